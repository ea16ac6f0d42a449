package domain

import "time"

// ModelWeight is the active, normalised weight for one model across all
// domains. After a model-selection run, active (weight>0) weights sum to 1.
type ModelWeight struct {
	Model        string
	Weight       float64
	RollingBrier *float64
	NResolved    int
	UpdatedAt    time.Time
}
