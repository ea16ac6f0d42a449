package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

const (
	defaultOpenAIBase    = "https://api.openai.com/v1"
	defaultDeepSeekBase  = "https://api.deepseek.com"
	defaultAnthropicBase = "https://api.anthropic.com"
)

// Config selects which providers are reachable and with which credentials.
// An empty API key disables that provider; ForecastOne then returns a nil
// result for any model routed to it, matching the per-model skip taxonomy.
// The BaseURL fields default to the public APIs and only need overriding in
// tests.
type Config struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	DeepSeekAPIKey  string

	OpenAIBaseURL    string
	AnthropicBaseURL string
	DeepSeekBaseURL  string

	ClassifyProvider string
	ClassifyModel    string
	EvolveProvider   string
	EvolveModel      string
}

// Router implements ports.LLMProvider, dispatching each call to the
// provider named on the model config (or, for Classify/Evolve, the
// configured classify/evolve provider). Every completed call is logged to
// Store as an LLMCost row when Store is non-nil.
type Router struct {
	openai    *openAIClient
	anthropic *anthropicClient
	deepseek  *openAIClient

	classifyProvider, classifyModel string
	evolveProvider, evolveModel     string

	Store ports.Store
}

// New builds a Router from cfg. requestsPerSec bounds each provider's own
// outbound rate independently.
func New(cfg Config, requestsPerSec float64, store ports.Store) *Router {
	openaiBase := orDefault(cfg.OpenAIBaseURL, defaultOpenAIBase)
	anthropicBase := orDefault(cfg.AnthropicBaseURL, defaultAnthropicBase)
	deepseekBase := orDefault(cfg.DeepSeekBaseURL, defaultDeepSeekBase)

	return &Router{
		openai:           newOpenAIClient(openaiBase, cfg.OpenAIAPIKey, requestsPerSec),
		anthropic:        newAnthropicClient(anthropicBase, cfg.AnthropicAPIKey, requestsPerSec),
		deepseek:         newOpenAIClient(deepseekBase, cfg.DeepSeekAPIKey, requestsPerSec),
		classifyProvider: cfg.ClassifyProvider,
		classifyModel:    cfg.ClassifyModel,
		evolveProvider:   cfg.EvolveProvider,
		evolveModel:      cfg.EvolveModel,
		Store:            store,
	}
}

func (r *Router) ForecastOne(ctx context.Context, cfg ports.ModelConfig, systemPrompt, userPrompt string) (*ports.ForecastResult, error) {
	var (
		result *ports.ForecastResult
		err    error
	)
	switch cfg.Provider {
	case "anthropic":
		result, err = r.anthropic.chat(ctx, cfg.Name, systemPrompt, userPrompt)
	case "openai":
		result, err = r.openai.chat(ctx, cfg.Name, systemPrompt, userPrompt, cfg.HasLogprobs)
	case "deepseek":
		result, err = r.deepseek.chat(ctx, cfg.Name, systemPrompt, userPrompt, cfg.HasLogprobs)
	default:
		return nil, fmt.Errorf("llm.Router.ForecastOne: unknown provider %q", cfg.Provider)
	}
	if err != nil || result == nil {
		return result, err
	}
	r.logCost(ctx, cfg.Name, cfg.Provider, result.InputTokens, result.OutputTokens, domain.CallTypeForecast)
	return result, nil
}

func (r *Router) Classify(ctx context.Context, question string) (string, error) {
	if r.classifyProvider == "" || r.classifyModel == "" {
		return "", fmt.Errorf("llm.Router.Classify: no classify model configured")
	}
	client, ok := r.clientFor(r.classifyProvider)
	if !ok {
		return "", fmt.Errorf("llm.Router.Classify: unknown provider %q", r.classifyProvider)
	}
	text, inTok, outTok, err := client.classify(ctx, r.classifyModel, question)
	if err != nil {
		return "", fmt.Errorf("llm.Router.Classify: %w", err)
	}
	r.logCost(ctx, r.classifyModel, r.classifyProvider, inTok, outTok, domain.CallTypeClassify)
	return text, nil
}

func (r *Router) Evolve(ctx context.Context, seedTemplate string) (string, error) {
	if r.evolveProvider == "" || r.evolveModel == "" {
		return "", fmt.Errorf("llm.Router.Evolve: no evolve model configured")
	}

	var (
		text          string
		inTok, outTok int
		err           error
	)
	if r.evolveProvider == "anthropic" {
		text, inTok, outTok, err = r.anthropic.evolve(ctx, r.evolveModel, seedTemplate)
	} else {
		client, ok := r.clientFor(r.evolveProvider)
		if !ok {
			return "", fmt.Errorf("llm.Router.Evolve: unknown provider %q", r.evolveProvider)
		}
		text, inTok, outTok, err = client.evolve(ctx, r.evolveModel, seedTemplate)
	}
	if err != nil {
		return "", fmt.Errorf("llm.Router.Evolve: %w", err)
	}
	r.logCost(ctx, r.evolveModel, r.evolveProvider, inTok, outTok, domain.CallTypeEvolve)
	return text, nil
}

func (r *Router) clientFor(provider string) (*openAIClient, bool) {
	switch provider {
	case "openai":
		return r.openai, true
	case "deepseek":
		return r.deepseek, true
	default:
		return nil, false
	}
}

func (r *Router) logCost(ctx context.Context, model, provider string, inTok, outTok int, callType domain.CallType) {
	if r.Store == nil {
		return
	}
	cost := EstimateCost(provider, model, inTok, outTok)
	record := domain.LLMCost{
		Model:        model,
		InputTokens:  inTok,
		OutputTokens: outTok,
		CostUSD:      cost,
		CallType:     callType,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.Store.InsertLLMCost(ctx, record); err != nil {
		slog.Warn("llm: failed to log cost", "model", model, "err", err)
	}
}
