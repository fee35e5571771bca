package breeder

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
)

func newTestPool(t *testing.T, opts ...PoolOption) *FitnessPool {
	t.Helper()
	p := NewFitnessPool(opts...)
	t.Cleanup(func() {
		if err := p.Shutdown(); err != nil && errors.CodeOf(err) != errors.DoubleShutdown {
			t.Errorf("shutdown failed: %v", err)
		}
		p.Wait()
	})
	return p
}

func TestFitnessPoolEvaluatesBatch(t *testing.T) {
	p := newTestPool(t, WithWorkers(2))

	pop := newPopulation("a", "bb", "ccc", "dddd")
	err := p.SubmitBatch(context.Background(), lengthFitness, pop.Candidates())
	require.NoError(t, err)

	for _, c := range pop.Candidates() {
		assert.True(t, c.HasFitness())
		assert.Equal(t, float64(len(c.Key())), c.Fitness())
	}
}

func TestFitnessPoolSkipsEvaluatedCandidates(t *testing.T) {
	p := newTestPool(t, WithWorkers(2))

	var calls int32
	counting := core.FitnessFunc(func(ctx context.Context, c *core.Candidate) (float64, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	})

	pop := newPopulation("a", "bb", "ccc")
	pop.Get(0).SetFitness(99)

	err := p.SubmitBatch(context.Background(), counting, pop.Candidates())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 99.0, pop.Get(0).Fitness())
}

func TestFitnessPoolEmptyBatch(t *testing.T) {
	p := newTestPool(t, WithWorkers(1))
	assert.NoError(t, p.SubmitBatch(context.Background(), lengthFitness, nil))
}

func TestFitnessPoolRequiresFitnessFunction(t *testing.T) {
	p := newTestPool(t, WithWorkers(1))
	err := p.SubmitBatch(context.Background(), nil, newPopulation("a").Candidates())
	assert.Equal(t, errors.InvalidConfiguration, errors.CodeOf(err))
}

func TestFitnessPoolEvaluationErrorFailsBatch(t *testing.T) {
	p := newTestPool(t, WithWorkers(2))

	failing := core.FitnessFunc(func(ctx context.Context, c *core.Candidate) (float64, error) {
		if c.Key() == "bad" {
			return 0, errors.New(errors.Unknown, "boom")
		}
		return 1, nil
	})

	pop := newPopulation("a", "bad", "ccc", "dddd")
	err := p.SubmitBatch(context.Background(), failing, pop.Candidates())
	assert.Equal(t, errors.BatchFailed, errors.CodeOf(err))
}

func TestFitnessPoolBatchTimeout(t *testing.T) {
	p := newTestPool(t, WithWorkers(1), WithBatchTimeout(20*time.Millisecond))

	slow := core.FitnessFunc(func(ctx context.Context, c *core.Candidate) (float64, error) {
		select {
		case <-time.After(time.Second):
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	pop := newPopulation("a", "bb")
	err := p.SubmitBatch(context.Background(), slow, pop.Candidates())
	require.Error(t, err)
	code := errors.CodeOf(err)
	assert.True(t, code == errors.Timeout || code == errors.BatchFailed,
		"expected Timeout or BatchFailed, got %v", err)
}

func TestFitnessPoolCanceledContext(t *testing.T) {
	p := newTestPool(t, WithWorkers(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pop := newPopulation("a", "bb")
	err := p.SubmitBatch(ctx, lengthFitness, pop.Candidates())
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
}

func TestFitnessPoolSequentialBatches(t *testing.T) {
	p := newTestPool(t, WithWorkers(2))

	first := newPopulation("a", "bb")
	require.NoError(t, p.SubmitBatch(context.Background(), lengthFitness, first.Candidates()))

	second := newPopulation("ccc", "dddd", "eeeee")
	require.NoError(t, p.SubmitBatch(context.Background(), lengthFitness, second.Candidates()))

	for _, c := range second.Candidates() {
		assert.Equal(t, float64(len(c.Key())), c.Fitness())
	}
}

func TestFitnessPoolRecoversAfterFailedBatch(t *testing.T) {
	p := newTestPool(t, WithWorkers(2))

	failing := core.FitnessFunc(func(ctx context.Context, c *core.Candidate) (float64, error) {
		return 0, errors.New(errors.Unknown, "boom")
	})

	bad := newPopulation("a", "bb", "ccc")
	err := p.SubmitBatch(context.Background(), failing, bad.Candidates())
	require.Error(t, err)

	// The queue must be clean; the next batch runs normally.
	good := newPopulation("dddd", "eeeee")
	require.NoError(t, p.SubmitBatch(context.Background(), lengthFitness, good.Candidates()))
	for _, c := range good.Candidates() {
		assert.True(t, c.HasFitness())
	}
}

func TestFitnessPoolShutdownTerminatesWorkers(t *testing.T) {
	p := NewFitnessPool(WithWorkers(4))

	require.NoError(t, p.Shutdown())

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("workers did not terminate after shutdown")
	}
}

func TestFitnessPoolDoubleShutdown(t *testing.T) {
	p := NewFitnessPool(WithWorkers(1))
	require.NoError(t, p.Shutdown())

	err := p.Shutdown()
	assert.Equal(t, errors.DoubleShutdown, errors.CodeOf(err))
}

func TestFitnessPoolSubmitAfterShutdown(t *testing.T) {
	p := NewFitnessPool(WithWorkers(1))
	require.NoError(t, p.Shutdown())

	err := p.SubmitBatch(context.Background(), lengthFitness, newPopulation("a").Candidates())
	assert.Equal(t, errors.PoolClosed, errors.CodeOf(err))
}

func TestFitnessPoolDefaultWorkerCount(t *testing.T) {
	p := newTestPool(t)
	assert.Greater(t, p.Workers(), 0)
}
