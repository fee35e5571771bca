package core

import (
	"context"
)

// FitnessFunction scores a single candidate. Implementations must be safe
// for concurrent calls across distinct candidates and idempotent: scoring
// an already-evaluated candidate is wasted work but never incorrect.
type FitnessFunction interface {
	Evaluate(ctx context.Context, c *Candidate) (float64, error)
}

// BulkFitnessFunction scores an entire population at once, writing fitness
// values in place. It is always invoked on the orchestrator goroutine.
type BulkFitnessFunction interface {
	EvaluateAll(ctx context.Context, pop *Population) error
}

// Selector picks survivors from a population. It is invoked twice per
// generation: once before the variation operators (prePhase true) and once
// after (prePhase false).
type Selector interface {
	Select(ctx context.Context, pop *Population, cfg *EvolutionConfig, prePhase bool) (*Population, error)
}

// Operator applies a variation (crossover, mutation, ...) to a population.
// Operators may append candidates but must never reorder existing ones.
type Operator interface {
	Apply(ctx context.Context, pop *Population, cfg *EvolutionConfig) error
}

// Initializer synthesizes a fresh random candidate during size top-up.
type Initializer interface {
	Create(ctx context.Context) (*Candidate, error)
}

// FitnessFunc adapts a plain function to the FitnessFunction interface.
type FitnessFunc func(ctx context.Context, c *Candidate) (float64, error)

func (f FitnessFunc) Evaluate(ctx context.Context, c *Candidate) (float64, error) {
	return f(ctx, c)
}

// InitializerFunc adapts a plain function to the Initializer interface.
type InitializerFunc func(ctx context.Context) (*Candidate, error)

func (f InitializerFunc) Create(ctx context.Context) (*Candidate, error) {
	return f(ctx)
}
