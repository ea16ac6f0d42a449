// Package edge computes the signed gap between an ensemble forecast and a
// market's quoted price, and the tradeable-decision filter gating execution.
package edge

import (
	"fmt"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
)

// MinEdge, MaxOpenPositions and MinDomainWeight are the default tradeable-
// filter thresholds; callers may override via the Filter struct.
const (
	MinEdge          = 0.05
	MaxOpenPositions = 20
	MinDomainWeight  = 0.5
)

// Compute returns the edge for a YES position: ensembleProb - marketPrice.
// Positive means YES is underpriced.
func Compute(ensembleProb, marketPrice float64) float64 {
	return ensembleProb - marketPrice
}

// BestSide returns the tradeable side and the (always non-negative)
// magnitude of its edge.
func BestSide(ensembleProb, marketPrice float64) (domain.Side, float64) {
	yesEdge := Compute(ensembleProb, marketPrice)
	if yesEdge >= 0 {
		return domain.SideYES, yesEdge
	}
	return domain.SideNO, -yesEdge
}

// Filter holds the tradeable-decision thresholds.
type Filter struct {
	MinEdge          float64
	MaxOpenPositions int
	MinDomainWeight  float64
}

// DefaultFilter returns the spec's default thresholds.
func DefaultFilter() Filter {
	return Filter{MinEdge: MinEdge, MaxOpenPositions: MaxOpenPositions, MinDomainWeight: MinDomainWeight}
}

// IsTradeable applies the tradeable filter chain, in order, returning the
// first failing reason verbatim (matching the wording the executor needs
// to surface to operators and tests).
func (f Filter) IsTradeable(ensembleProb, marketPrice float64, tier domain.ConfidenceTier, domainWeight float64, currentOpen int, hasPriorTrade bool) (bool, string) {
	if currentOpen >= f.MaxOpenPositions {
		return false, fmt.Sprintf("max open positions (%d) reached", f.MaxOpenPositions)
	}
	if hasPriorTrade {
		return false, "a trade already exists on this market"
	}
	_, edgeVal := BestSide(ensembleProb, marketPrice)
	if edgeVal < f.MinEdge {
		return false, fmt.Sprintf("edge %.3f < min %.2f", edgeVal, f.MinEdge)
	}
	if tier != domain.TierHigh {
		return false, fmt.Sprintf("confidence tier is '%s' (need 'high')", tier)
	}
	if domainWeight < f.MinDomainWeight {
		return false, fmt.Sprintf("domain weight %.2f < %.1f", domainWeight, f.MinDomainWeight)
	}
	return true, ""
}
