package breeder

import (
	"context"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
	"github.com/XiaoConstantine/evolve-go/pkg/logging"
)

// SpawnEvaluator is the per-batch alternative to FitnessPool: it spawns a
// bounded set of goroutines for every batch and joins them before
// returning. No long-lived workers, no shutdown protocol, at the cost of
// goroutine churn on every generation.
type SpawnEvaluator struct {
	maxWorkers int
}

// SpawnOption configures a SpawnEvaluator.
type SpawnOption func(*SpawnEvaluator)

// WithMaxGoroutines bounds per-batch concurrency. Defaults to
// runtime.NumCPU().
func WithMaxGoroutines(count int) SpawnOption {
	return func(e *SpawnEvaluator) {
		if count > 0 {
			e.maxWorkers = count
		}
	}
}

// NewSpawnEvaluator creates a per-batch evaluator.
func NewSpawnEvaluator(opts ...SpawnOption) *SpawnEvaluator {
	e := &SpawnEvaluator{
		maxWorkers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitBatch evaluates every unevaluated candidate with bounded
// concurrency and blocks until the batch completes.
func (e *SpawnEvaluator) SubmitBatch(ctx context.Context, fn core.FitnessFunction, candidates []*core.Candidate) error {
	if fn == nil {
		return errors.New(errors.InvalidConfiguration, "fitness function is required")
	}
	if len(candidates) == 0 {
		return nil
	}
	if err := errors.CheckContext(ctx, "batch evaluation"); err != nil {
		return err
	}

	logger := logging.GetLogger()
	logger.Debug(ctx, "Evaluating batch with spawned goroutines: candidates=%d, max=%d", len(candidates), e.maxWorkers)

	p := pool.New().WithMaxGoroutines(e.maxWorkers)

	var mu sync.Mutex
	var firstErr error

	for _, candidate := range candidates {
		candidate := candidate // Capture loop variable
		p.Go(func() {
			if candidate.HasFitness() {
				return
			}
			if ctx.Err() != nil {
				return
			}

			fitness, err := fn.Evaluate(ctx, candidate)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			candidate.SetFitness(fitness)
		})
	}

	p.Wait()

	if firstErr != nil {
		return errors.WithFields(
			errors.Wrap(firstErr, errors.BatchFailed, "batch evaluation failed"),
			errors.Fields{"batch_size": len(candidates)})
	}
	if err := errors.CheckContext(ctx, "batch evaluation"); err != nil {
		return err
	}
	return nil
}
