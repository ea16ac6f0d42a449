package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractProbabilityFromJSON(t *testing.T) {
	p, ok := extractProbability(`{"probability": 0.73, "reasoning": "looks likely"}`)
	assert.True(t, ok)
	assert.InDelta(t, 0.73, p, 1e-9)
}

func TestExtractProbabilityFromPercentText(t *testing.T) {
	p, ok := extractProbability("I estimate the probability: 65%")
	assert.True(t, ok)
	assert.InDelta(t, 0.65, p, 1e-9)
}

func TestExtractProbabilityNormalizesOverOne(t *testing.T) {
	p, ok := extractProbability(`{"probability": 73}`)
	assert.True(t, ok)
	assert.InDelta(t, 0.73, p, 1e-9)
}

func TestExtractProbabilityMissingReturnsFalse(t *testing.T) {
	_, ok := extractProbability("no numbers here at all")
	assert.False(t, ok)
}

func TestExtractReasoningFromJSON(t *testing.T) {
	r := extractReasoning(`{"probability": 0.5, "reasoning": "balanced evidence"}`)
	assert.Equal(t, "balanced evidence", r)
}

func TestExtractReasoningFallsBackToStrippedText(t *testing.T) {
	r := extractReasoning(`{"probability": 0.5} Additional context follows here.`)
	assert.Equal(t, "Additional context follows here.", r)
}

func TestExtractReasoningDefaultsWhenEmpty(t *testing.T) {
	r := extractReasoning("{}")
	assert.Equal(t, "No reasoning provided", r)
}
