package llm

import (
	"context"
	"fmt"

	"github.com/mdelacruz-oss/forecastbot/internal/entropy"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

const anthropicVersion = "2023-06-01"

type anthropicClient struct {
	http    *httpClient
	baseURL string
	apiKey  string
}

func newAnthropicClient(baseURL, apiKey string, requestsPerSec float64) *anthropicClient {
	return &anthropicClient{http: newHTTPClient(requestsPerSec), baseURL: baseURL, apiKey: apiKey}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *anthropicClient) chat(ctx context.Context, model, system, prompt string) (*ports.ForecastResult, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	req := anthropicRequest{
		Model:     model,
		MaxTokens: 300,
		System:    orDefault(system, defaultSystemPrompt),
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}

	var resp anthropicResponse
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	if err := c.http.postJSON(ctx, c.baseURL+"/v1/messages", headers, req, &resp); err != nil {
		return nil, fmt.Errorf("llm.anthropicClient.chat: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, nil
	}

	text := resp.Content[0].Text
	prob, ok := extractProbability(text)
	entropyVal := entropy.AnthropicSentinelUnparsed
	if ok {
		entropyVal = entropy.AnthropicSentinelParsed
	} else {
		prob = 0.5
	}

	return &ports.ForecastResult{
		Probability:  prob,
		Entropy:      entropyVal,
		Reasoning:    extractReasoning(text),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

func (c *anthropicClient) evolve(ctx context.Context, model, seedTemplate string) (string, int, int, error) {
	if c.apiKey == "" {
		return "", 0, 0, fmt.Errorf("llm.anthropicClient.evolve: no API key configured")
	}
	req := anthropicRequest{
		Model:     model,
		MaxTokens: 600,
		System:    "Improve the following forecasting prompt template while keeping its placeholders intact.",
		Messages:  []anthropicMessage{{Role: "user", Content: seedTemplate}},
	}
	var resp anthropicResponse
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	if err := c.http.postJSON(ctx, c.baseURL+"/v1/messages", headers, req, &resp); err != nil {
		return "", 0, 0, fmt.Errorf("llm.anthropicClient.evolve: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", 0, 0, fmt.Errorf("llm.anthropicClient.evolve: empty response")
	}
	return resp.Content[0].Text, resp.Usage.InputTokens, resp.Usage.OutputTokens, nil
}
