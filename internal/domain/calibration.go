package domain

import "time"

// CalibrationState is the per-(domain, model) learning state: a Brier-based
// domain weight and an adaptive confidence-entropy threshold.
type CalibrationState struct {
	Domain           Domain
	Model            string
	BrierScore       float64
	NResolved        int
	DomainWeight     float64 // in [0.3, 1.5]
	EntropyThreshold *float64 // bits, in [1, 8]; nil until the threshold adapter sets it
	UpdatedAt        time.Time
}

// DefaultEntropyThreshold is used by the ensemble when no CalibrationState
// row exists yet for a domain.
const DefaultEntropyThreshold = 4.0

// Threshold returns the calibration's entropy threshold, or the package
// default if unset.
func (c CalibrationState) Threshold() float64 {
	if c.EntropyThreshold == nil {
		return DefaultEntropyThreshold
	}
	return *c.EntropyThreshold
}
