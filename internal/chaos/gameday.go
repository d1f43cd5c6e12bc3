package chaos

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/store"
)

var ErrHypothesisViolated = errors.New("chaos: hypothesis violated")

// Scenario loads the catalog through a store whose source runs Experiment,
// then checks the settled snapshot against the hypothesis.
type Scenario struct {
	Experiment   Experiment
	Hypothesis   string
	FetchTimeout time.Duration
	// Deadline bounds how long the catalog may take to settle.
	Deadline time.Duration
	Check    func(store.Snapshot) error
}

type GameDay struct {
	Name      string
	Scenarios []Scenario
}

// ExperimentResult captures one scenario run.
type ExperimentResult struct {
	ExperimentName string        `json:"experiment_name"`
	Hypothesis     string        `json:"hypothesis"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	Duration       time.Duration `json:"duration"`
	HypothesisHeld bool          `json:"hypothesis_held"`
	LoadStatus     string        `json:"load_status"`
	Products       int           `json:"products"`
	Error          string        `json:"error,omitempty"`
}

// Runner executes game days against a base product source.
type Runner struct {
	base   catalog.Source
	logger *zap.Logger
	seed   uint64
}

func NewRunner(base catalog.Source, logger *zap.Logger, seed uint64) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{base: base, logger: logger, seed: seed}
}

// Execute runs every scenario in order. The returned error wraps
// ErrHypothesisViolated when any scenario's hypothesis did not hold.
func (r *Runner) Execute(ctx context.Context, gd GameDay) ([]ExperimentResult, error) {
	r.logger.Info("game day started", zap.String("game_day", gd.Name), zap.Int("scenarios", len(gd.Scenarios)))

	results := make([]ExperimentResult, 0, len(gd.Scenarios))
	failed := 0
	for i, sc := range gd.Scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.run(ctx, uint64(i), sc)
		if !res.HypothesisHeld {
			failed++
			r.logger.Warn("hypothesis violated",
				zap.String("experiment", res.ExperimentName),
				zap.String("load_status", res.LoadStatus),
				zap.String("error", res.Error))
		} else {
			r.logger.Info("hypothesis held",
				zap.String("experiment", res.ExperimentName),
				zap.Duration("duration", res.Duration))
		}
		results = append(results, res)
	}

	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d scenarios", ErrHypothesisViolated, failed, len(results))
	}
	return results, nil
}

func (r *Runner) run(ctx context.Context, stream uint64, sc Scenario) ExperimentResult {
	res := ExperimentResult{
		ExperimentName: sc.Experiment.Name,
		Hypothesis:     sc.Hypothesis,
		StartTime:      time.Now(),
	}
	defer func() {
		res.EndTime = time.Now()
		res.Duration = res.EndTime.Sub(res.StartTime)
	}()

	src := NewSource(r.base, sc.Experiment, rand.New(rand.NewPCG(r.seed, stream)))
	st := store.New(
		catalog.NewLoader(src, catalog.WithFetchTimeout(sc.FetchTimeout)),
		store.WithLogger(r.logger.Named(sc.Experiment.Name)),
	)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- st.Run(runCtx) }()
	defer func() {
		cancel()
		<-done
	}()

	updates, unsubscribe := st.Subscribe()
	defer unsubscribe()

	if _, err := st.Dispatch(runCtx, store.LoadCatalog()); err != nil {
		res.Error = err.Error()
		return res
	}

	snap, err := settle(runCtx, updates, sc.Deadline)
	res.LoadStatus = snap.LoadStatus().String()
	res.Products = len(snap.Products())
	if err == nil && sc.Check != nil {
		err = sc.Check(snap)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.HypothesisHeld = true
	return res
}

// settle waits for the catalog to leave the loading state.
func settle(ctx context.Context, updates <-chan store.Snapshot, deadline time.Duration) (store.Snapshot, error) {
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	var last store.Snapshot
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return last, store.ErrStoreClosed
			}
			last = snap
			switch snap.LoadStatus() {
			case catalog.StatusLoaded, catalog.StatusFailed:
				return snap, nil
			}
		case <-timer.C:
			return last, fmt.Errorf("catalog did not settle within %s", deadline)
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}

// DefaultGameDay exercises the loader's success, degraded, outage and
// timeout paths.
func DefaultGameDay() GameDay {
	loaded := func(s store.Snapshot) error {
		if s.LoadStatus() != catalog.StatusLoaded {
			return fmt.Errorf("expected loaded catalog, got %s", s.LoadStatus())
		}
		return nil
	}
	failedKeepsCart := func(s store.Snapshot) error {
		if s.LoadStatus() != catalog.StatusFailed {
			return fmt.Errorf("expected failed catalog, got %s", s.LoadStatus())
		}
		if !errors.Is(s.LoadError(), catalog.ErrCatalogLoadFailed) {
			return fmt.Errorf("unexpected load error: %v", s.LoadError())
		}
		if !s.IsEmpty() || !s.TotalPrice().IsZero() {
			return errors.New("failed load touched the cart")
		}
		return nil
	}

	return GameDay{
		Name: "Catalog Loader Game Day",
		Scenarios: []Scenario{
			{
				Experiment:   Experiment{Name: "steady-state"},
				Hypothesis:   "Without faults the catalog loads",
				FetchTimeout: time.Second,
				Check:        loaded,
			},
			{
				Experiment:   Experiment{Name: "degraded-latency", Latency: 50 * time.Millisecond, Jitter: 50 * time.Millisecond},
				Hypothesis:   "Latency below the fetch timeout still loads the catalog",
				FetchTimeout: time.Second,
				Check:        loaded,
			},
			{
				Experiment:   Experiment{Name: "catalog-outage", FailureRate: 1},
				Hypothesis:   "A failing source surfaces a load error and leaves the cart alone",
				FetchTimeout: time.Second,
				Check:        failedKeepsCart,
			},
			{
				Experiment:   Experiment{Name: "catalog-timeout", Latency: 500 * time.Millisecond},
				Hypothesis:   "A fetch slower than the timeout fails instead of hanging",
				FetchTimeout: 50 * time.Millisecond,
				Check:        failedKeepsCart,
			},
		},
	}
}
