package chaos

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/catalog"
)

var baseProducts = catalog.StaticSource{
	{ID: "1", Title: "Mascara", Price: decimal.RequireFromString("9.99")},
	{ID: "2", Title: "Palette", Price: decimal.RequireFromString("19.99")},
}

func TestDefaultGameDayHolds(t *testing.T) {
	runner := NewRunner(baseProducts, nil, 42)

	results, err := runner.Execute(context.Background(), DefaultGameDay())
	require.NoError(t, err)
	require.Len(t, results, 4)

	byName := make(map[string]ExperimentResult, len(results))
	for _, res := range results {
		assert.True(t, res.HypothesisHeld, "%s: %s", res.ExperimentName, res.Error)
		byName[res.ExperimentName] = res
	}
	assert.Equal(t, "loaded", byName["steady-state"].LoadStatus)
	assert.Equal(t, 2, byName["steady-state"].Products)
	assert.Equal(t, "failed", byName["catalog-outage"].LoadStatus)
	assert.Equal(t, "failed", byName["catalog-timeout"].LoadStatus)
}

func TestViolatedHypothesisIsReported(t *testing.T) {
	runner := NewRunner(baseProducts, nil, 1)
	gd := GameDay{
		Name: "wrong expectations",
		Scenarios: []Scenario{{
			Experiment:   Experiment{Name: "outage", FailureRate: 1},
			Hypothesis:   "The catalog loads anyway",
			FetchTimeout: time.Second,
			Check:        DefaultGameDay().Scenarios[0].Check,
		}},
	}

	results, err := runner.Execute(context.Background(), gd)
	assert.ErrorIs(t, err, ErrHypothesisViolated)
	require.Len(t, results, 1)
	assert.False(t, results[0].HypothesisHeld)
	assert.NotEmpty(t, results[0].Error)
}

func TestSettleDeadline(t *testing.T) {
	runner := NewRunner(baseProducts, nil, 1)
	gd := GameDay{Scenarios: []Scenario{{
		Experiment: Experiment{Name: "stuck", Latency: time.Hour},
		Deadline:   20 * time.Millisecond,
	}}}

	results, err := runner.Execute(context.Background(), gd)
	assert.ErrorIs(t, err, ErrHypothesisViolated)
	require.Len(t, results, 1)
	assert.Equal(t, "loading", results[0].LoadStatus)
	assert.Contains(t, results[0].Error, "did not settle")
}
