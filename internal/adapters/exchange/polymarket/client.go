// Package polymarket implements ports.ExchangeAdapter over Polymarket's
// public Gamma REST API, which serves both market metadata and prices. The
// client also holds a CLOB base URL and limiter that no call uses.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultGammaBase = "https://gamma-api.polymarket.com"
	defaultCLOBBase  = "https://clob.polymarket.com"

	// Rate limits held at 60% of Polymarket's documented ceilings.
	gammaRatePerSec = 18
	clobRatePerSec  = 30

	maxRetries    = 3
	baseRetryWait = time.Second
)

// client is the rate-limited, retrying HTTP wrapper shared by Gamma and
// CLOB calls.
type client struct {
	http         *http.Client
	gammaBase    string
	clobBase     string
	gammaLimiter *rate.Limiter
	clobLimiter  *rate.Limiter
}

func newClient(gammaBase, clobBase string) *client {
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	return &client{
		http:         &http.Client{Timeout: 10 * time.Second},
		gammaBase:    gammaBase,
		clobBase:     clobBase,
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
		clobLimiter:  rate.NewLimiter(clobRatePerSec, 10),
	}
}

func (c *client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("polymarket.client.get: rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("polymarket.client.get: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("polymarket.client.get: request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("polymarket.client.get: status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Debug("polymarket: retrying", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("polymarket.client.get: status %d: %s", resp.StatusCode, body)
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("polymarket.client.get: decode: %w", err)
		}
		return nil
	}
	return fmt.Errorf("polymarket.client.get: exhausted %d retries", maxRetries)
}

func (c *client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
