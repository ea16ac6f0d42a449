package llm

import (
	"context"
	"fmt"

	"github.com/mdelacruz-oss/forecastbot/internal/entropy"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

const defaultSystemPrompt = "You are a calibrated forecaster."

// openAIClient speaks the OpenAI chat-completions wire format. DeepSeek
// exposes the same shape at a different base URL, so one client type
// serves both.
type openAIClient struct {
	http    *httpClient
	baseURL string
	apiKey  string
}

func newOpenAIClient(baseURL, apiKey string, requestsPerSec float64) *openAIClient {
	return &openAIClient{http: newHTTPClient(requestsPerSec), baseURL: baseURL, apiKey: apiKey}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Logprobs    bool          `json:"logprobs,omitempty"`
	TopLogprobs int           `json:"top_logprobs,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Logprobs struct {
			Content []struct {
				Token   string  `json:"token"`
				Logprob float64 `json:"logprob"`
			} `json:"content"`
		} `json:"logprobs"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *openAIClient) chat(ctx context.Context, model, system, prompt string, withLogprobs bool) (*ports.ForecastResult, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	req := chatRequest{
		Model:     model,
		MaxTokens: 300,
		Messages: []chatMessage{
			{Role: "system", Content: orDefault(system, defaultSystemPrompt)},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
	}
	if withLogprobs {
		req.Logprobs = true
		req.TopLogprobs = 5
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.http.postJSON(ctx, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return nil, fmt.Errorf("llm.openAIClient.chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	choice := resp.Choices[0]
	text := choice.Message.Content
	prob, ok := extractProbability(text)
	if !ok {
		prob = 0.5
	}

	entropyVal := entropy.AnthropicSentinelParsed
	if withLogprobs && len(choice.Logprobs.Content) > 0 {
		tokens := make([]entropy.TokenLogprob, 0, len(choice.Logprobs.Content))
		for _, t := range choice.Logprobs.Content {
			tokens = append(tokens, entropy.TokenLogprob{ChosenLogprob: t.Logprob})
		}
		entropyVal = entropy.SequenceEntropy(tokens)
	}

	return &ports.ForecastResult{
		Probability:  prob,
		Entropy:      entropyVal,
		Reasoning:    extractReasoning(text),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *openAIClient) classify(ctx context.Context, model, question string) (string, int, int, error) {
	if c.apiKey == "" {
		return "", 0, 0, fmt.Errorf("llm.openAIClient.classify: no API key configured")
	}
	req := chatRequest{
		Model:     model,
		MaxTokens: 100,
		Messages: []chatMessage{
			{Role: "system", Content: "Classify the prediction market question into a domain and confidence. Respond with JSON."},
			{Role: "user", Content: question},
		},
		Temperature: 0,
	}
	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.http.postJSON(ctx, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", 0, 0, fmt.Errorf("llm.openAIClient.classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("llm.openAIClient.classify: empty response")
	}
	return resp.Choices[0].Message.Content, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil
}

func (c *openAIClient) evolve(ctx context.Context, model, seedTemplate string) (string, int, int, error) {
	if c.apiKey == "" {
		return "", 0, 0, fmt.Errorf("llm.openAIClient.evolve: no API key configured")
	}
	req := chatRequest{
		Model:     model,
		MaxTokens: 600,
		Messages: []chatMessage{
			{Role: "system", Content: "Improve the following forecasting prompt template while keeping its placeholders intact."},
			{Role: "user", Content: seedTemplate},
		},
		Temperature: 0.7,
	}
	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.http.postJSON(ctx, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", 0, 0, fmt.Errorf("llm.openAIClient.evolve: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("llm.openAIClient.evolve: empty response")
	}
	return resp.Choices[0].Message.Content, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
