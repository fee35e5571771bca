package breeder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/XiaoConstantine/evolve-go/pkg/cache"
	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
	"github.com/XiaoConstantine/evolve-go/pkg/logging"
)

// dedupEntry is the fitness-stripped record retained for every candidate a
// bulk fitness function has scored.
type dedupEntry struct {
	Age        int       `json:"age"`
	OperatedOn int       `json:"operated_on"`
	CachedAt   time.Time `json:"cached_at"`
}

// Deduplicator runs bulk fitness evaluation while filtering out candidates
// structurally equal to ones scored in earlier generations. The underlying
// cache bounds the otherwise monotonically growing dedup set by LRU
// eviction and optional TTL.
type Deduplicator struct {
	store cache.Cache
	keys  *cache.KeyGenerator
	ttl   time.Duration
}

// NewDeduplicator wraps a cache into a batch deduplicator. A nil store
// gets an unbounded in-memory cache.
func NewDeduplicator(store cache.Cache, ttl time.Duration) (*Deduplicator, error) {
	if store == nil {
		var err error
		store, err = cache.NewMemoryCache(cache.CacheConfig{})
		if err != nil {
			return nil, err
		}
	}
	return &Deduplicator{
		store: store,
		keys:  cache.NewKeyGenerator(""),
		ttl:   ttl,
	}, nil
}

// Evaluate runs one bulk evaluation pass over the population:
// already-scored candidates are kept as-is, cached duplicates are skipped,
// the batch is topped up and trimmed to a stable size, scored, recorded in
// the dedup store and merged back. Candidates a misbehaving bulk function
// left unscored are dropped.
func (d *Deduplicator) Evaluate(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig) (*core.Population, error) {
	if cfg.BulkFitness == nil {
		return pop, nil
	}

	logger := logging.GetLogger()
	cfg.FireEvent(core.EventBeforeBulkEvaluation, cfg.BulkFitness, pop)

	// Candidates which have been already evaluated stay out of the batch.
	toScore := core.NewPopulation(cfg.PopulationSize)
	for _, c := range pop.Unevaluated() {
		seen, err := d.contains(ctx, c)
		if err != nil {
			return nil, err
		}
		if !seen {
			toScore.Add(c)
		}
	}

	// Stabilize the batch size: top up with random candidates, then trim
	// back to the configured target.
	if err := fillToMinimum(ctx, toScore, cfg); err != nil {
		return nil, err
	}
	keepPopSizeConstant(toScore, cfg)

	if toScore.Size() > 0 {
		if err := cfg.BulkFitness.EvaluateAll(ctx, toScore); err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.BatchFailed, "bulk fitness evaluation failed"),
				errors.Fields{"batch_size": toScore.Size()})
		}
	}

	// Record a fitness-stripped marker for every batch member and merge
	// the ones the batch synthesized back into the population.
	for _, c := range toScore.Candidates() {
		if err := d.record(ctx, c); err != nil {
			return nil, err
		}
		if !pop.Contains(c) {
			pop.Add(c)
		}
	}

	// Drop stragglers a misbehaving bulk function failed to score.
	before := pop.Size()
	pop.RemoveUnevaluated()
	if dropped := before - pop.Size(); dropped > 0 {
		logger.Warn(ctx, "Bulk evaluation underflow: dropped %d unscored candidates", dropped)
	}

	cfg.FireEvent(core.EventAfterBulkEvaluation, cfg.BulkFitness, pop)
	return pop, nil
}

// contains reports whether a structurally equal candidate was scored in an
// earlier generation.
func (d *Deduplicator) contains(ctx context.Context, c *core.Candidate) (bool, error) {
	_, found, err := d.store.Get(ctx, d.keys.GenerateKey(c.Key()))
	if err != nil {
		return false, errors.Wrap(err, errors.BatchFailed, "dedup store lookup failed")
	}
	return found, nil
}

// record stores the fitness-stripped dedup marker for a scored candidate.
func (d *Deduplicator) record(ctx context.Context, c *core.Candidate) error {
	stripped := c.Clone()
	payload, err := json.Marshal(dedupEntry{
		Age:        stripped.Age(),
		OperatedOn: stripped.OperatedOn(),
		CachedAt:   time.Now(),
	})
	if err != nil {
		return errors.Wrap(err, errors.BatchFailed, "dedup entry encoding failed")
	}

	if err := d.store.Set(ctx, d.keys.GenerateKey(stripped.Key()), payload, d.ttl); err != nil {
		return errors.Wrap(err, errors.BatchFailed, "dedup store write failed")
	}
	return nil
}

// Clear wipes the dedup store.
func (d *Deduplicator) Clear(ctx context.Context) error {
	return d.store.Clear(ctx)
}

// Stats exposes the underlying cache statistics.
func (d *Deduplicator) Stats() cache.CacheStats {
	return d.store.Stats()
}

// Close releases the dedup store.
func (d *Deduplicator) Close() error {
	return d.store.Close()
}
