// Package entropy provides Shannon-entropy utilities over token
// log-probabilities and the confidence-tier function derived from them.
package entropy

import (
	"math"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

// AnthropicSentinelParsed is the entropy value used when a provider returns
// no logprob information but a probability was still parsed from the reply.
const AnthropicSentinelParsed = 3.5

// AnthropicSentinelUnparsed is used when neither logprobs nor a probability
// could be parsed.
const AnthropicSentinelUnparsed = 6.0

// TokenLogprob is one token's chosen log-probability plus, optionally, the
// top-k alternatives considered at that position.
type TokenLogprob struct {
	ChosenLogprob float64
	// TopK holds the probabilities of the top-k candidates at this
	// position (not necessarily summing to 1); nil if unavailable.
	TopK []float64
}

// SequenceEntropy approximates per-token entropy as -logprob/ln2 and
// averages across tokens. Used when only the chosen token's logprob is
// available, not a full top-k distribution.
func SequenceEntropy(tokens []TokenLogprob) float64 {
	if len(tokens) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range tokens {
		sum += -t.ChosenLogprob / math.Ln2
	}
	return sum / float64(len(tokens))
}

// DistributionEntropy computes true Shannon entropy per token from its
// renormalised top-k distribution, then averages across tokens. Falls back
// to the per-token approximation for any token lacking a TopK slice.
func DistributionEntropy(tokens []TokenLogprob) float64 {
	if len(tokens) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range tokens {
		if len(t.TopK) == 0 {
			sum += -t.ChosenLogprob / math.Ln2
			continue
		}
		sum += shannonBits(renormalize(t.TopK))
	}
	return sum / float64(len(tokens))
}

func renormalize(ps []float64) []float64 {
	total := 0.0
	for _, p := range ps {
		total += p
	}
	if total <= 0 {
		return ps
	}
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p / total
	}
	return out
}

func shannonBits(ps []float64) float64 {
	h := 0.0
	for _, p := range ps {
		if p <= 0 {
			continue
		}
		h -= p * math.Log2(p)
	}
	return h
}

// Tier classifies an ensemble entropy against a per-domain threshold tau:
// high if entropy <= tau, medium if entropy <= 1.5*tau, else low.
func Tier(entropyBits, tau float64) domain.ConfidenceTier {
	switch {
	case entropyBits <= tau:
		return domain.TierHigh
	case entropyBits <= 1.5*tau:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}
