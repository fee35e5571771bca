package breeder

import (
	"context"
	"sync"
	"time"

	"github.com/XiaoConstantine/evolve-go/pkg/cache"
	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
	"github.com/XiaoConstantine/evolve-go/pkg/logging"
)

// Breeder drives the evolution cycle. One instance serves any number of
// populations and configurations; the fitness workers and the dedup store
// are built once and shared across every Evolve call until Shutdown.
type Breeder struct {
	evaluator BatchEvaluator
	ownedPool *FitnessPool
	dedup     *Deduplicator

	mu      sync.Mutex
	closed  bool
	lastPop *core.Population
	lastCfg *core.EvolutionConfig
}

// Option configures a Breeder.
type Option func(*breederOptions)

type breederOptions struct {
	evaluator  BatchEvaluator
	dedupStore cache.Cache
	dedupTTL   time.Duration
	poolOpts   []PoolOption
}

// WithEvaluator swaps the default spawn-once fitness pool for another
// batch evaluation strategy, e.g. a SpawnEvaluator.
func WithEvaluator(e BatchEvaluator) Option {
	return func(o *breederOptions) {
		o.evaluator = e
	}
}

// WithDedupCache backs the bulk-evaluation dedup set with the given cache,
// typically a bounded memory cache or a SQLite store for cross-run
// persistence.
func WithDedupCache(store cache.Cache) Option {
	return func(o *breederOptions) {
		o.dedupStore = store
	}
}

// WithDedupTTL expires dedup entries after the given duration. Zero keeps
// them until evicted.
func WithDedupTTL(ttl time.Duration) Option {
	return func(o *breederOptions) {
		o.dedupTTL = ttl
	}
}

// WithPoolOptions forwards options to the default fitness pool. Ignored
// when WithEvaluator is also given.
func WithPoolOptions(opts ...PoolOption) Option {
	return func(o *breederOptions) {
		o.poolOpts = append(o.poolOpts, opts...)
	}
}

// NewBreeder builds a breeder. Without options it owns a fitness pool
// sized to the machine and an unbounded in-memory dedup store.
func NewBreeder(opts ...Option) (*Breeder, error) {
	var o breederOptions
	for _, opt := range opts {
		opt(&o)
	}

	b := &Breeder{evaluator: o.evaluator}
	if b.evaluator == nil {
		b.ownedPool = NewFitnessPool(o.poolOpts...)
		b.evaluator = b.ownedPool
	}

	dedup, err := NewDeduplicator(o.dedupStore, o.dedupTTL)
	if err != nil {
		if b.ownedPool != nil {
			_ = b.ownedPool.Shutdown()
		}
		return nil, err
	}
	b.dedup = dedup

	return b, nil
}

// Evolve advances the population by one generation and returns the evolved
// population. The returned population may be a different instance than the
// input when the selector rebuilt it. On error the input population must
// be considered corrupted: candidates may carry partial bookkeeping.
func (b *Breeder) Evolve(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig) (*core.Population, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pop == nil {
		return nil, errors.New(errors.InvalidConfiguration, "population is nil")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.New(errors.PoolClosed, "evolve called after shutdown")
	}
	b.mu.Unlock()

	if err := errors.CheckContext(ctx, "evolve"); err != nil {
		return nil, err
	}

	ctx = logging.WithGeneration(ctx, cfg.Generation())
	logger := logging.GetLogger()
	logger.Debug(ctx, "Evolving generation %d: population=%d", cfg.Generation(), pop.Size())

	// The very first generation only establishes baseline fitness; no
	// selection or variation happens until every candidate is scored.
	if cfg.Generation() == 0 {
		done, err := b.bootstrapGeneration(ctx, pop, cfg)
		if err != nil {
			return nil, err
		}
		if done != nil {
			return b.finishCycle(ctx, done, cfg), nil
		}
	}

	// Remember the champion before selection and operators get a chance
	// to drop it.
	var fittest *core.Candidate
	if cfg.Generation() > 0 && cfg.PreserveFittest {
		fittest = pop.Fittest(cfg.Ranker)
	}

	if cfg.Generation() > 0 && cfg.BulkFitness == nil {
		keepPopSizeConstant(pop, cfg)
	}

	// First ensure-fitness pass: selection needs every candidate scored.
	cfg.FireEvent(core.EventBeforeEvaluation1, pop)
	if err := b.ensureFitness(ctx, pop, cfg); err != nil {
		return nil, err
	}
	cfg.FireEvent(core.EventAfterEvaluation1, pop)

	selected, err := cfg.Selector.Select(ctx, pop, cfg, true)
	if err != nil {
		return nil, errors.Wrap(err, errors.SelectionFailed, "pre-operator selection failed")
	}
	pop = selected

	// Everything the operators append lands after this boundary.
	boundary := pop.Size()

	for _, op := range cfg.Operators {
		if err := op.Apply(ctx, pop, cfg); err != nil {
			return nil, errors.Wrap(err, errors.OperatorFailed, "variation operator failed")
		}
	}

	// Survivors age one generation and shed their operated-on marker;
	// operator offspring start over with no fitness and no age.
	for i, c := range pop.Candidates() {
		if i < boundary {
			c.IncreaseAge()
			c.ResetOperatedOn()
		} else {
			c.ResetFitness()
			c.ResetAge()
			c.IncreaseOperatedOn()
		}
	}

	if cfg.BulkFitness != nil {
		pop, err = b.dedup.Evaluate(ctx, pop, cfg)
		if err != nil {
			return nil, err
		}
	}

	// Second ensure-fitness pass scores the operator offspring.
	cfg.FireEvent(core.EventBeforeEvaluation2, pop)
	if err := b.ensureFitness(ctx, pop, cfg); err != nil {
		return nil, err
	}
	cfg.FireEvent(core.EventAfterEvaluation2, pop)

	selected, err = cfg.Selector.Select(ctx, pop, cfg, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.SelectionFailed, "post-operator selection failed")
	}
	pop = selected

	if err := fillToMinimum(ctx, pop, cfg); err != nil {
		return nil, err
	}

	if fittest != nil && !pop.Contains(fittest) {
		pop.Add(fittest)
		cfg.FireEvent(core.EventReaddedFittest, fittest)
		logger.Debug(ctx, "Re-added preserved fittest candidate %s", fittest.ID())
	}

	return b.finishCycle(ctx, pop, cfg), nil
}

// bootstrapGeneration ages the initial population and, when a bulk fitness
// function is configured, scores it in one dedup pass. A non-nil return
// population means the cycle is complete.
func (b *Breeder) bootstrapGeneration(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig) (*core.Population, error) {
	for _, c := range pop.Candidates() {
		c.IncreaseAge()
	}

	if cfg.BulkFitness == nil {
		return nil, nil
	}

	pop, err := b.dedup.Evaluate(ctx, pop, cfg)
	if err != nil {
		return nil, err
	}
	return pop, nil
}

// ensureFitness scores every unevaluated candidate through the batch
// evaluator. A configured bulk fitness function makes this a no-op; bulk
// runs go through the deduplicator instead.
func (b *Breeder) ensureFitness(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig) error {
	if cfg.BulkFitness != nil {
		return nil
	}
	unevaluated := pop.Unevaluated()
	if len(unevaluated) == 0 {
		return nil
	}
	return b.evaluator.SubmitBatch(ctx, cfg.FitnessFunction, unevaluated)
}

// finishCycle advances the generation counter and records the run for
// introspection.
func (b *Breeder) finishCycle(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig) *core.Population {
	cfg.IncrementGeneration()
	cfg.FireEvent(core.EventGenerationEvolved, pop)

	b.mu.Lock()
	b.lastPop = pop
	b.lastCfg = cfg
	b.mu.Unlock()

	logging.GetLogger().Info(ctx, "Generation evolved: next=%d, population=%d", cfg.Generation(), pop.Size())
	return pop
}

// LastPopulation returns the population of the most recent completed
// cycle, nil before the first one.
func (b *Breeder) LastPopulation() *core.Population {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPop
}

// LastConfiguration returns the configuration of the most recent completed
// cycle, nil before the first one.
func (b *Breeder) LastConfiguration() *core.EvolutionConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastCfg
}

// DedupStats exposes the dedup store statistics.
func (b *Breeder) DedupStats() cache.CacheStats {
	return b.dedup.Stats()
}

// Shutdown stops the owned fitness pool and releases the dedup store. It
// must not race an in-flight Evolve call; calling it twice is a programmer
// error.
func (b *Breeder) Shutdown() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New(errors.DoubleShutdown, "breeder already shut down")
	}
	b.closed = true
	b.mu.Unlock()

	if b.ownedPool != nil {
		if err := b.ownedPool.Shutdown(); err != nil {
			return err
		}
	}
	return b.dedup.Close()
}
