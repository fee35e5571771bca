package breeder

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
)

// testGenome is a trivial value genome keyed by a string.
type testGenome struct {
	key string
}

func (g *testGenome) Key() string       { return g.key }
func (g *testGenome) Clone() core.Genome { return &testGenome{key: g.key} }

func newCandidate(key string) *core.Candidate {
	return core.NewCandidate(&testGenome{key: key})
}

func newPopulation(keys ...string) *core.Population {
	pop := core.NewPopulation(len(keys))
	for _, k := range keys {
		pop.Add(newCandidate(k))
	}
	return pop
}

// lengthFitness scores candidates by genome key length. Deterministic and
// safe for concurrent calls.
var lengthFitness = core.FitnessFunc(func(ctx context.Context, c *core.Candidate) (float64, error) {
	return float64(len(c.Key())), nil
})

// identitySelector returns the population unchanged.
type identitySelector struct{}

func (identitySelector) Select(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig, prePhase bool) (*core.Population, error) {
	return pop, nil
}

// dropBestSelector removes the fittest candidate in the post phase.
type dropBestSelector struct{}

func (dropBestSelector) Select(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig, prePhase bool) (*core.Population, error) {
	if prePhase {
		return pop, nil
	}
	best := pop.Fittest(cfg.Ranker)
	out := core.NewPopulation(pop.Size())
	for _, c := range pop.Candidates() {
		if c != best {
			out.Add(c)
		}
	}
	return out, nil
}

// appendOperator appends one fresh candidate per application.
type appendOperator struct {
	key string
}

func (o *appendOperator) Apply(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig) error {
	pop.Add(newCandidate(o.key))
	return nil
}

// recordingMonitor captures the event kinds in firing order.
type recordingMonitor struct {
	mu    sync.Mutex
	kinds []core.EventKind
}

func (m *recordingMonitor) Event(kind core.EventKind, generation int, payload ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, kind)
}

func (m *recordingMonitor) recorded() []core.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.EventKind(nil), m.kinds...)
}

func baseConfig() *core.EvolutionConfig {
	return &core.EvolutionConfig{
		PopulationSize:  4,
		FitnessFunction: lengthFitness,
		Selector:        identitySelector{},
	}
}

func newTestBreeder(t *testing.T, opts ...Option) *Breeder {
	t.Helper()
	b, err := NewBreeder(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := b.Shutdown(); err != nil && errors.CodeOf(err) != errors.DoubleShutdown {
			t.Errorf("shutdown failed: %v", err)
		}
	})
	return b
}

func TestBreederFirstGenerationScoresEverything(t *testing.T) {
	b := newTestBreeder(t)
	pop := newPopulation("a", "bb", "ccc")
	cfg := baseConfig()

	evolved, err := b.Evolve(context.Background(), pop, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Generation())
	for _, c := range evolved.Candidates() {
		assert.True(t, c.HasFitness())
		assert.Equal(t, float64(len(c.Key())), c.Fitness())
		// Aged once by the first-generation bootstrap and once as an
		// unmodified survivor of the cycle.
		assert.Equal(t, 2, c.Age())
	}
}

func TestBreederBulkBootstrapShortCircuits(t *testing.T) {
	b := newTestBreeder(t)
	monitor := &recordingMonitor{}
	selectorCalled := false

	cfg := baseConfig()
	cfg.FitnessFunction = nil
	cfg.BulkFitness = bulkFunc(func(ctx context.Context, pop *core.Population) error {
		for _, c := range pop.Candidates() {
			c.SetFitness(float64(len(c.Key())))
		}
		return nil
	})
	cfg.Selector = selectorFunc(func(ctx context.Context, pop *core.Population, c *core.EvolutionConfig, prePhase bool) (*core.Population, error) {
		selectorCalled = true
		return pop, nil
	})
	cfg.Monitor = monitor

	pop := newPopulation("a", "bb")
	evolved, err := b.Evolve(context.Background(), pop, cfg)
	require.NoError(t, err)

	assert.False(t, selectorCalled, "bootstrap with a bulk function must not select")
	assert.Equal(t, 1, cfg.Generation())
	assert.Equal(t, 2, evolved.Size())
	for _, c := range evolved.Candidates() {
		assert.True(t, c.HasFitness())
		assert.Equal(t, 1, c.Age())
	}
	assert.Equal(t, []core.EventKind{
		core.EventBeforeBulkEvaluation,
		core.EventAfterBulkEvaluation,
		core.EventGenerationEvolved,
	}, monitor.recorded())
}

func TestBreederMonitorEventOrder(t *testing.T) {
	b := newTestBreeder(t)
	monitor := &recordingMonitor{}

	cfg := baseConfig()
	cfg.Monitor = monitor
	cfg.SetGeneration(1)

	pop := newPopulation("a", "bb")
	_, err := b.Evolve(context.Background(), pop, cfg)
	require.NoError(t, err)

	assert.Equal(t, []core.EventKind{
		core.EventBeforeEvaluation1,
		core.EventAfterEvaluation1,
		core.EventBeforeEvaluation2,
		core.EventAfterEvaluation2,
		core.EventGenerationEvolved,
	}, monitor.recorded())
}

func TestBreederOperatorBookkeeping(t *testing.T) {
	b := newTestBreeder(t)

	cfg := baseConfig()
	cfg.Operators = []core.Operator{&appendOperator{key: "offspring"}}
	cfg.SetGeneration(3)

	pop := newPopulation("a", "bb")
	for _, c := range pop.Candidates() {
		c.SetFitness(1)
		c.IncreaseOperatedOn()
	}

	evolved, err := b.Evolve(context.Background(), pop, cfg)
	require.NoError(t, err)
	require.Equal(t, 3, evolved.Size())

	for i, c := range evolved.Candidates() {
		if c.Key() == "offspring" {
			assert.Equal(t, 0, c.Age(), "offspring %d must be new-born", i)
			assert.Equal(t, 1, c.OperatedOn())
			assert.True(t, c.HasFitness(), "offspring must be scored by the second pass")
		} else {
			assert.Equal(t, 1, c.Age(), "survivor %d must age", i)
			assert.Equal(t, 0, c.OperatedOn())
		}
	}
}

func TestBreederPreservesFittest(t *testing.T) {
	b := newTestBreeder(t)
	monitor := &recordingMonitor{}

	cfg := baseConfig()
	cfg.PreserveFittest = true
	cfg.Selector = dropBestSelector{}
	cfg.Monitor = monitor
	cfg.SetGeneration(1)

	// The champion is recorded before the fitness pass, so a steady-state
	// population arrives already scored.
	pop := newPopulation("a", "bb", "ccc")
	for _, c := range pop.Candidates() {
		c.SetFitness(float64(len(c.Key())))
	}

	evolved, err := b.Evolve(context.Background(), pop, cfg)
	require.NoError(t, err)

	best := evolved.Fittest(nil)
	require.NotNil(t, best)
	assert.Equal(t, "ccc", best.Key(), "dropped champion must be re-added")
	assert.Contains(t, monitor.recorded(), core.EventReaddedFittest)
}

func TestBreederFittestNotPreservedInFirstGeneration(t *testing.T) {
	b := newTestBreeder(t)

	cfg := baseConfig()
	cfg.PreserveFittest = true
	cfg.Selector = dropBestSelector{}

	pop := newPopulation("a", "bb", "ccc")
	evolved, err := b.Evolve(context.Background(), pop, cfg)
	require.NoError(t, err)

	for _, c := range evolved.Candidates() {
		assert.NotEqual(t, "ccc", c.Key())
	}
}

func TestBreederKeepsPopulationSizeConstant(t *testing.T) {
	b := newTestBreeder(t)

	cfg := baseConfig()
	cfg.PopulationSize = 3
	cfg.KeepPopSizeConstant = true
	cfg.SetGeneration(1)

	pop := newPopulation("a", "bb", "ccc", "dddd", "eeeee")
	evolved, err := b.Evolve(context.Background(), pop, cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, evolved.Size())
}

func TestBreederFillsToMinimumSize(t *testing.T) {
	b := newTestBreeder(t)

	next := 0
	cfg := baseConfig()
	cfg.PopulationSize = 10
	cfg.MinPopSizePercent = 50
	cfg.Initializer = core.InitializerFunc(func(ctx context.Context) (*core.Candidate, error) {
		next++
		return newCandidate("filler"), nil
	})
	cfg.SetGeneration(1)

	pop := newPopulation("a", "bb", "ccc")
	evolved, err := b.Evolve(context.Background(), pop, cfg)
	require.NoError(t, err)

	assert.Equal(t, 5, evolved.Size())
	assert.Equal(t, 2, next)
}

func TestBreederValidatesInput(t *testing.T) {
	b := newTestBreeder(t)

	_, err := b.Evolve(context.Background(), nil, baseConfig())
	assert.Equal(t, errors.InvalidConfiguration, errors.CodeOf(err))

	_, err = b.Evolve(context.Background(), newPopulation("a"), &core.EvolutionConfig{})
	assert.Equal(t, errors.InvalidConfiguration, errors.CodeOf(err))
}

func TestBreederCanceledContext(t *testing.T) {
	b := newTestBreeder(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Evolve(ctx, newPopulation("a"), baseConfig())
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
}

func TestBreederShutdownLifecycle(t *testing.T) {
	b, err := NewBreeder()
	require.NoError(t, err)

	require.NoError(t, b.Shutdown())

	err = b.Shutdown()
	assert.Equal(t, errors.DoubleShutdown, errors.CodeOf(err))

	_, err = b.Evolve(context.Background(), newPopulation("a"), baseConfig())
	assert.Equal(t, errors.PoolClosed, errors.CodeOf(err))
}

func TestBreederRecordsLastRun(t *testing.T) {
	b := newTestBreeder(t)

	assert.Nil(t, b.LastPopulation())
	assert.Nil(t, b.LastConfiguration())

	cfg := baseConfig()
	pop := newPopulation("a", "bb")
	evolved, err := b.Evolve(context.Background(), pop, cfg)
	require.NoError(t, err)

	assert.Same(t, evolved, b.LastPopulation())
	assert.Same(t, cfg, b.LastConfiguration())
}

func TestBreederWithSpawnEvaluator(t *testing.T) {
	b := newTestBreeder(t, WithEvaluator(NewSpawnEvaluator(WithMaxGoroutines(2))))

	pop := newPopulation("a", "bb", "ccc", "dddd")
	evolved, err := b.Evolve(context.Background(), pop, baseConfig())
	require.NoError(t, err)

	for _, c := range evolved.Candidates() {
		assert.True(t, c.HasFitness())
	}
}

func TestBreederMultipleGenerations(t *testing.T) {
	b := newTestBreeder(t)

	cfg := baseConfig()
	cfg.Operators = []core.Operator{&appendOperator{key: "offspring"}}
	cfg.PopulationSize = 3
	cfg.KeepPopSizeConstant = true

	pop := newPopulation("a", "bb", "ccc")
	var err error
	for i := 0; i < 5; i++ {
		pop, err = b.Evolve(context.Background(), pop, cfg)
		require.NoError(t, err)
	}

	assert.Equal(t, 5, cfg.Generation())
	// The size trim runs at the start of the next cycle, so the final
	// population still carries the last offspring.
	assert.Equal(t, 4, pop.Size())
	for _, c := range pop.Candidates() {
		assert.True(t, c.HasFitness())
	}
}

// bulkFunc adapts a plain function to core.BulkFitnessFunction.
type bulkFunc func(ctx context.Context, pop *core.Population) error

func (f bulkFunc) EvaluateAll(ctx context.Context, pop *core.Population) error {
	return f(ctx, pop)
}

// selectorFunc adapts a plain function to core.Selector.
type selectorFunc func(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig, prePhase bool) (*core.Population, error)

func (f selectorFunc) Select(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig, prePhase bool) (*core.Population, error) {
	return f(ctx, pop, cfg, prePhase)
}
