// Package llm implements ports.LLMProvider against OpenAI-compatible chat
// completion APIs (OpenAI, DeepSeek) and the Anthropic Messages API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxRetries     = 2
	baseRetryWait  = 500 * time.Millisecond
	requestTimeout = 30 * time.Second
)

// httpClient is the rate-limited, retrying JSON POST wrapper shared by all
// providers. Each provider holds its own instance so one model's backoff
// never throttles another.
type httpClient struct {
	http    *http.Client
	limiter *rate.Limiter
}

func newHTTPClient(requestsPerSec float64) *httpClient {
	if requestsPerSec <= 0 {
		requestsPerSec = 5
	}
	return &httpClient{
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 5),
	}
}

func (c *httpClient) postJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("llm.httpClient.postJSON: encode body: %w", err)
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("llm.httpClient.postJSON: rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("llm.httpClient.postJSON: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("llm.httpClient.postJSON: request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("llm.httpClient.postJSON: status %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			msg, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("llm.httpClient.postJSON: status %d: %s", resp.StatusCode, msg)
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("llm.httpClient.postJSON: decode: %w", err)
		}
		return nil
	}
	return fmt.Errorf("llm.httpClient.postJSON: exhausted %d retries", maxRetries)
}

func (c *httpClient) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
