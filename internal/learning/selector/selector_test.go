package selector

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/storetest"
)

func seedOutcome(t *testing.T, s *storetest.Store, model string, brier float64) {
	t.Helper()
	require.NoError(t, s.InsertOutcome(context.Background(), domain.Outcome{
		Model:      model,
		Brier:      decimal.NewFromFloat(brier),
		ResolvedAt: time.Now().UTC(),
	}))
}

func TestRunKillsBadModelAndNormalisesSurvivors(t *testing.T) {
	s := storetest.New()
	for i := 0; i < 5; i++ {
		seedOutcome(t, s, "good", 0.10)
		seedOutcome(t, s, "bad", 0.35)
	}

	weights, err := Run(context.Background(), s, []string{"good", "bad"}, 0.28)
	require.NoError(t, err)
	assert.Equal(t, 0.0, weights["bad"])
	assert.InDelta(t, 1.0, weights["good"], 1e-9)
}

func TestRunKeepsPriorWeightWithNoSamples(t *testing.T) {
	s := storetest.New()
	require.NoError(t, s.UpsertModelWeight(context.Background(), domain.ModelWeight{Model: "idle", Weight: 0.7}))

	weights, err := Run(context.Background(), s, []string{"idle"}, 0.28)
	require.NoError(t, err)
	// the prior 0.7 is kept, then normalised as the only active model
	assert.Equal(t, 1.0, weights["idle"])
}

func TestCurrentWeightsFallsBackToConfiguredDefault(t *testing.T) {
	s := storetest.New()
	weights, err := CurrentWeights(context.Background(), s, []string{"gpt", "claude"}, func(m string) float64 {
		if m == "claude" {
			return 0.8
		}
		return 1.0
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, weights["gpt"])
	assert.Equal(t, 0.8, weights["claude"])
}
