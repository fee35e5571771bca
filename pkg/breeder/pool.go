// Package breeder implements the generational breeding engine: a
// spawn-once fitness worker pool, a cross-generation batch deduplicator and
// the orchestrator that drives one evolution cycle per Evolve call.
//
// The pool is "spawn-once": workers are started when the pool is built and
// live until Shutdown, shared by every generation. This contrasts with the
// per-batch evaluator in spawn.go, which starts and joins goroutines for
// each batch.
package breeder

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
	"github.com/XiaoConstantine/evolve-go/pkg/logging"
)

// BatchEvaluator evaluates a batch of candidates, blocking until every
// candidate carries a fitness value or the batch fails as a whole. The
// fitness function travels with the batch: evaluators hold no per-run
// state and one instance serves any number of configurations.
type BatchEvaluator interface {
	SubmitBatch(ctx context.Context, fn core.FitnessFunction, candidates []*core.Candidate) error
}

// workItem is the tagged value carried by the pool's queue: either a
// candidate bound to its batch, or a stop marker telling a worker to exit.
// Stop markers carry no population semantics and never reach a Population.
type workItem struct {
	candidate *core.Candidate
	batch     *batch
	stop      bool
}

// batch tracks one SubmitBatch call: a completion barrier plus the first
// worker error. Batches are strictly sequential; the pool's batchMu
// guarantees no two are ever in flight.
type batch struct {
	fn      core.FitnessFunction
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	errOnce sync.Once
	err     error
}

func (b *batch) fail(err error) {
	b.errOnce.Do(func() {
		b.err = err
		b.cancel()
	})
}

// FitnessPool evaluates per-candidate fitness concurrently on a fixed set
// of long-lived workers.
type FitnessPool struct {
	queue        chan workItem
	workers      int
	batchTimeout time.Duration

	batchMu  sync.Mutex // held for the duration of SubmitBatch
	mu       sync.Mutex // guards closed
	closed   bool
	workerWG sync.WaitGroup
}

// PoolOption configures a FitnessPool.
type PoolOption func(*FitnessPool)

// WithWorkers sets the number of workers. Defaults to runtime.NumCPU().
func WithWorkers(count int) PoolOption {
	return func(p *FitnessPool) {
		if count > 0 {
			p.workers = count
		}
	}
}

// WithBatchTimeout bounds how long a single SubmitBatch call may block.
// Zero means no timeout.
func WithBatchTimeout(d time.Duration) PoolOption {
	return func(p *FitnessPool) {
		p.batchTimeout = d
	}
}

// NewFitnessPool builds the pool and starts its workers immediately.
func NewFitnessPool(opts ...PoolOption) *FitnessPool {
	p := &FitnessPool{
		workers: runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.queue = make(chan workItem, p.workers)

	p.workerWG.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(i)
	}

	return p
}

// Workers returns the number of workers the pool was built with.
func (p *FitnessPool) Workers() int {
	return p.workers
}

// SubmitBatch enqueues every candidate and blocks until all of them have
// been evaluated. On success every submitted candidate carries a fitness
// value. When a worker fails or the batch context ends, the whole batch is
// abandoned and a BatchFailed, Canceled or Timeout error is returned;
// candidates of a failed batch may be left partially evaluated and must
// not be trusted by the caller.
func (p *FitnessPool) SubmitBatch(ctx context.Context, fn core.FitnessFunction, candidates []*core.Candidate) error {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New(errors.PoolClosed, "batch submitted after shutdown")
	}
	p.mu.Unlock()

	if fn == nil {
		return errors.New(errors.InvalidConfiguration, "fitness function is required")
	}
	if len(candidates) == 0 {
		return nil
	}

	bctx := ctx
	var cancel context.CancelFunc
	if p.batchTimeout > 0 {
		bctx, cancel = context.WithTimeout(ctx, p.batchTimeout)
	} else {
		bctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	b := &batch{fn: fn, ctx: bctx, cancel: cancel}
	b.wg.Add(len(candidates))

	logger := logging.GetLogger()
	logger.Debug(ctx, "Submitting batch: candidates=%d, workers=%d", len(candidates), p.workers)

	enqueued := 0
	for _, c := range candidates {
		select {
		case p.queue <- workItem{candidate: c, batch: b}:
			enqueued++
		case <-bctx.Done():
			b.fail(bctx.Err())
			// Balance the barrier for items never enqueued, then wait
			// for the in-flight ones so the queue is clean before the
			// next batch.
			for i := enqueued; i < len(candidates); i++ {
				b.wg.Done()
			}
			b.wg.Wait()
			return p.batchError(ctx, b)
		}
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-bctx.Done():
		b.fail(bctx.Err())
		// Workers drop the remaining items of a failed batch, so the
		// barrier still drains.
		<-done
	}

	return p.batchError(ctx, b)
}

// batchError translates a finished batch into the caller-facing error.
func (p *FitnessPool) batchError(ctx context.Context, b *batch) error {
	if b.err == nil {
		return nil
	}
	switch b.err {
	case context.DeadlineExceeded:
		if ctx.Err() == nil {
			return errors.New(errors.Timeout, "batch timed out")
		}
		return errors.Wrap(b.err, errors.Canceled, "batch canceled")
	case context.Canceled:
		return errors.Wrap(b.err, errors.Canceled, "batch canceled")
	default:
		return errors.Wrap(b.err, errors.BatchFailed, "batch evaluation failed")
	}
}

// worker pulls items off the shared queue until it sees a stop marker.
func (p *FitnessPool) worker(id int) {
	defer p.workerWG.Done()
	logger := logging.GetLogger()

	for item := range p.queue {
		if item.stop {
			logger.Debug(context.Background(), "Fitness worker %d stopping", id)
			return
		}

		b := item.batch

		// Items of a failed or canceled batch are drained, not evaluated.
		if b.ctx.Err() != nil {
			b.wg.Done()
			continue
		}

		// Evaluating an already-scored candidate would be wasted work;
		// the evaluator contract makes it harmless, so only skip it.
		if item.candidate.HasFitness() {
			b.wg.Done()
			continue
		}

		fitness, err := b.fn.Evaluate(b.ctx, item.candidate)
		if err != nil {
			logger.Error(b.ctx, "Fitness worker %d failed: %v", id, err)
			b.fail(err)
			b.wg.Done()
			continue
		}

		item.candidate.SetFitness(fitness)
		b.wg.Done()
	}
}

// Shutdown enqueues one stop marker per worker and returns without waiting
// for them to exit. It must only be called when no batch is in flight;
// calling it twice, or submitting a batch afterwards, is a programmer
// error and reported as such.
func (p *FitnessPool) Shutdown() error {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New(errors.DoubleShutdown, "pool already shut down")
	}
	p.closed = true
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.queue <- workItem{stop: true}
	}
	close(p.queue)

	return nil
}

// Wait blocks until every worker has exited. Useful after Shutdown when
// the caller needs the goroutines gone, e.g. in tests.
func (p *FitnessPool) Wait() {
	p.workerWG.Wait()
}
