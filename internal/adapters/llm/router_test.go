package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdelacruz-oss/forecastbot/internal/ports"
	"github.com/mdelacruz-oss/forecastbot/internal/storetest"
)

func openAIStub(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

const openAIChatFixture = `{
	"choices": [{"message": {"content": "{\"probability\": 0.7, \"reasoning\": \"solid signal\"}"}}],
	"usage": {"prompt_tokens": 100, "completion_tokens": 20}
}`

func TestRouterForecastOneDispatchesToOpenAI(t *testing.T) {
	srv := openAIStub(t, openAIChatFixture)
	defer srv.Close()

	store := storetest.New()
	r := New(Config{OpenAIAPIKey: "key", OpenAIBaseURL: srv.URL}, 100, store)

	result, err := r.ForecastOne(context.Background(), ports.ModelConfig{Name: "gpt-4o-mini", Provider: "openai"}, "system", "prompt")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.InDelta(t, 0.7, result.Probability, 1e-9)
	assert.Equal(t, "solid signal", result.Reasoning)

	costs := store.LLMCosts()
	require.Len(t, costs, 1)
	assert.Equal(t, "gpt-4o-mini", costs[0].Model)
	assert.Equal(t, 100, costs[0].InputTokens)
}

func TestRouterForecastOneUnknownProviderErrors(t *testing.T) {
	r := New(Config{}, 100, nil)
	_, err := r.ForecastOne(context.Background(), ports.ModelConfig{Name: "x", Provider: "bogus"}, "", "")
	assert.Error(t, err)
}

func TestRouterClassifyUsesConfiguredModel(t *testing.T) {
	srv := openAIStub(t, `{"choices": [{"message": {"content": "{\"domain\": \"finance\"}"}}], "usage": {"prompt_tokens": 10, "completion_tokens": 5}}`)
	defer srv.Close()

	store := storetest.New()
	r := New(Config{
		OpenAIAPIKey:     "key",
		OpenAIBaseURL:    srv.URL,
		ClassifyProvider: "openai",
		ClassifyModel:    "gpt-4o-mini",
	}, 100, store)

	text, err := r.Classify(context.Background(), "Will the Fed cut rates?")
	require.NoError(t, err)
	assert.Contains(t, text, "finance")
	assert.Len(t, store.LLMCosts(), 1)
}

func TestRouterEvolveWithoutConfigErrors(t *testing.T) {
	r := New(Config{}, 100, nil)
	_, err := r.Evolve(context.Background(), "seed template")
	assert.Error(t, err)
}
