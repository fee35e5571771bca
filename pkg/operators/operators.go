// Package operators provides the variation operators of the breeding
// cycle. The engine treats genomes as opaque, so the actual recombination
// and mutation logic is supplied by the caller; the operators here decide
// which candidates to vary and append the offspring.
package operators

import (
	"context"
	"math/rand"
	"time"

	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
)

// CrossoverFunc recombines two parent genomes into two children.
type CrossoverFunc func(rng *rand.Rand, a, b core.Genome) (core.Genome, core.Genome)

// MutateFunc derives a mutated copy of a genome. Returning nil skips the
// mutation.
type MutateFunc func(rng *rand.Rand, g core.Genome) core.Genome

// Crossover pairs random parents and appends their offspring. Parents must
// have survived at least one generation; fresh offspring of the same cycle
// are never recombined.
type Crossover struct {
	fn     CrossoverFunc
	rate   float64
	minAge int
	rng    *rand.Rand
}

// CrossoverOption configures a Crossover operator.
type CrossoverOption func(*Crossover)

// WithCrossoverRate sets the number of crossovers as a fraction of the
// population size. Defaults to 0.7.
func WithCrossoverRate(rate float64) CrossoverOption {
	return func(o *Crossover) {
		o.rate = rate
	}
}

// WithMinParentAge sets the minimum age a candidate must have reached to
// act as a parent. Defaults to 1.
func WithMinParentAge(age int) CrossoverOption {
	return func(o *Crossover) {
		o.minAge = age
	}
}

// WithCrossoverRand injects the random source, for deterministic tests.
func WithCrossoverRand(rng *rand.Rand) CrossoverOption {
	return func(o *Crossover) {
		o.rng = rng
	}
}

// NewCrossover builds a crossover operator around the caller's
// recombination function.
func NewCrossover(fn CrossoverFunc, opts ...CrossoverOption) (*Crossover, error) {
	if fn == nil {
		return nil, errors.New(errors.InvalidConfiguration, "a crossover function is required")
	}
	o := &Crossover{fn: fn, rate: 0.7, minAge: 1}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o, nil
}

// Apply appends offspring pairs to the population. Existing candidates are
// never reordered or modified.
func (o *Crossover) Apply(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig) error {
	if err := errors.CheckContext(ctx, "crossover"); err != nil {
		return err
	}

	parents := make([]*core.Candidate, 0, pop.Size())
	for _, c := range pop.Candidates() {
		if c.Age() >= o.minAge {
			parents = append(parents, c)
		}
	}
	if len(parents) < 2 {
		return nil
	}

	pairs := int(float64(pop.Size()) * o.rate / 2)
	for i := 0; i < pairs; i++ {
		a := parents[o.rng.Intn(len(parents))]
		b := parents[o.rng.Intn(len(parents))]
		for b == a {
			b = parents[o.rng.Intn(len(parents))]
		}

		childA, childB := o.fn(o.rng, a.Genome().Clone(), b.Genome().Clone())
		if childA != nil {
			pop.Add(core.NewCandidate(childA))
		}
		if childB != nil {
			pop.Add(core.NewCandidate(childB))
		}
	}
	return nil
}

// Mutation mutates candidates with a configured probability, appending the
// mutants as new individuals.
type Mutation struct {
	fn   MutateFunc
	rate float64
	rng  *rand.Rand
}

// MutationOption configures a Mutation operator.
type MutationOption func(*Mutation)

// WithMutationRate sets the per-candidate mutation probability. Defaults
// to 0.3.
func WithMutationRate(rate float64) MutationOption {
	return func(o *Mutation) {
		o.rate = rate
	}
}

// WithMutationRand injects the random source, for deterministic tests.
func WithMutationRand(rng *rand.Rand) MutationOption {
	return func(o *Mutation) {
		o.rng = rng
	}
}

// NewMutation builds a mutation operator around the caller's mutation
// function.
func NewMutation(fn MutateFunc, opts ...MutationOption) (*Mutation, error) {
	if fn == nil {
		return nil, errors.New(errors.InvalidConfiguration, "a mutation function is required")
	}
	o := &Mutation{fn: fn, rate: 0.3}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o, nil
}

// Apply rolls the dice for every existing candidate and appends a mutant
// for each winning roll. The snapshot of the population is taken before
// appending, so mutants are not re-mutated in the same cycle.
func (o *Mutation) Apply(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig) error {
	if err := errors.CheckContext(ctx, "mutation"); err != nil {
		return err
	}

	originals := append([]*core.Candidate(nil), pop.Candidates()...)
	for _, c := range originals {
		if o.rng.Float64() >= o.rate {
			continue
		}
		mutated := o.fn(o.rng, c.Genome().Clone())
		if mutated != nil {
			pop.Add(core.NewCandidate(mutated))
		}
	}
	return nil
}
