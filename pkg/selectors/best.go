// Package selectors provides natural selectors for the breeding cycle:
// rank truncation, tournament and roulette wheel selection.
package selectors

import (
	"context"
	"sort"

	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
)

// Best keeps the top candidates by rank, truncating the population to a
// fraction of its configured target size. Structural duplicates can
// optionally be collapsed before ranking.
type Best struct {
	rate            float64
	allowDuplicates bool
}

// BestOption configures a Best selector.
type BestOption func(*Best)

// WithSurvivorRate sets the fraction of the configured population size
// that survives selection. Defaults to 1.0.
func WithSurvivorRate(rate float64) BestOption {
	return func(s *Best) {
		s.rate = rate
	}
}

// WithDuplicates allows structurally equal candidates to survive
// together. Off by default.
func WithDuplicates(allowed bool) BestOption {
	return func(s *Best) {
		s.allowDuplicates = allowed
	}
}

// NewBest builds a rank-truncation selector.
func NewBest(opts ...BestOption) *Best {
	s := &Best{rate: 1.0}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select ranks the population and keeps the top share. Candidates without
// a fitness value rank last.
func (s *Best) Select(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig, prePhase bool) (*core.Population, error) {
	if err := errors.CheckContext(ctx, "selection"); err != nil {
		return nil, err
	}

	ranker := cfg.Ranker
	if ranker == nil {
		ranker = core.HigherIsFitter
	}

	candidates := append([]*core.Candidate(nil), pop.Candidates()...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return ranker(candidates[i], candidates[j])
	})

	target := int(float64(cfg.PopulationSize) * s.rate)
	if target < 1 {
		target = 1
	}

	out := core.NewPopulation(target)
	for _, c := range candidates {
		if out.Size() >= target {
			break
		}
		if !s.allowDuplicates && out.ContainsEqual(c) {
			continue
		}
		c.SetSelected(true)
		out.Add(c)
	}
	return out, nil
}
