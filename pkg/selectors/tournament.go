package selectors

import (
	"context"
	"math/rand"
	"time"

	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
)

// Tournament picks survivors by repeatedly sampling small tournaments and
// keeping each tournament's winner. Selection is with replacement: strong
// candidates may survive multiple times unless duplicates are collapsed by
// a later selector.
type Tournament struct {
	size int
	rng  *rand.Rand
}

// TournamentOption configures a Tournament selector.
type TournamentOption func(*Tournament)

// WithTournamentSize sets how many candidates compete per tournament.
// Defaults to 3.
func WithTournamentSize(size int) TournamentOption {
	return func(s *Tournament) {
		if size > 0 {
			s.size = size
		}
	}
}

// WithRand injects the random source, for deterministic tests.
func WithRand(rng *rand.Rand) TournamentOption {
	return func(s *Tournament) {
		s.rng = rng
	}
}

// NewTournament builds a tournament selector.
func NewTournament(opts ...TournamentOption) *Tournament {
	s := &Tournament{size: 3}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Select runs one tournament per surviving slot.
func (s *Tournament) Select(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig, prePhase bool) (*core.Population, error) {
	if err := errors.CheckContext(ctx, "selection"); err != nil {
		return nil, err
	}
	if pop.Size() == 0 {
		return pop, nil
	}

	ranker := cfg.Ranker
	if ranker == nil {
		ranker = core.HigherIsFitter
	}

	count := cfg.PopulationSize
	if count > pop.Size() {
		count = pop.Size()
	}

	out := core.NewPopulation(count)
	for i := 0; i < count; i++ {
		best := pop.Get(s.rng.Intn(pop.Size()))
		for j := 1; j < s.size; j++ {
			contender := pop.Get(s.rng.Intn(pop.Size()))
			if ranker(contender, best) {
				best = contender
			}
		}
		best.SetSelected(true)
		if !out.Contains(best) {
			out.Add(best)
		}
	}
	return out, nil
}

// Roulette picks survivors with probability proportional to fitness.
// Falls back to uniform sampling when the population carries no positive
// fitness at all.
type Roulette struct {
	rng *rand.Rand
}

// NewRoulette builds a roulette wheel selector.
func NewRoulette(rng *rand.Rand) *Roulette {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Roulette{rng: rng}
}

// Select spins the wheel once per surviving slot.
func (s *Roulette) Select(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig, prePhase bool) (*core.Population, error) {
	if err := errors.CheckContext(ctx, "selection"); err != nil {
		return nil, err
	}
	if pop.Size() == 0 {
		return pop, nil
	}

	total := 0.0
	for _, c := range pop.Candidates() {
		if c.HasFitness() && c.Fitness() > 0 {
			total += c.Fitness()
		}
	}

	count := cfg.PopulationSize
	if count > pop.Size() {
		count = pop.Size()
	}

	out := core.NewPopulation(count)
	for i := 0; i < count; i++ {
		var pick *core.Candidate
		if total == 0 {
			pick = pop.Get(s.rng.Intn(pop.Size()))
		} else {
			spin := s.rng.Float64() * total
			for _, c := range pop.Candidates() {
				if c.HasFitness() && c.Fitness() > 0 {
					spin -= c.Fitness()
				}
				if spin <= 0 {
					pick = c
					break
				}
			}
			if pick == nil {
				pick = pop.Get(pop.Size() - 1)
			}
		}
		pick.SetSelected(true)
		if !out.Contains(pick) {
			out.Add(pick)
		}
	}
	return out, nil
}
