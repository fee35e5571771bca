package core

import (
	"github.com/google/uuid"
)

// NoFitnessValue is the reserved sentinel meaning "not yet evaluated".
// Fitness values produced by evaluators must be >= 0.
const NoFitnessValue float64 = -1.0

// Genome is the opaque solution payload carried by a Candidate. The engine
// never inspects its contents; it only needs a structural identity key for
// cross-generation deduplication.
type Genome interface {
	// Key returns a deterministic string identifying the genome by value.
	// Two genomes representing the same solution must return the same key.
	Key() string

	// Clone returns a deep copy of the genome.
	Clone() Genome
}

// Candidate is one solution individual in a population. Fitness, age and
// the operated-on counter are mutated in place by the orchestrator during a
// generation; the genome itself belongs to the caller's operators.
type Candidate struct {
	id         string
	genome     Genome
	fitness    float64
	age        int
	operatedOn int
	selected   bool
}

// NewCandidate wraps a genome into an unevaluated candidate with a fresh ID.
func NewCandidate(genome Genome) *Candidate {
	return &Candidate{
		id:      uuid.New().String(),
		genome:  genome,
		fitness: NoFitnessValue,
	}
}

// ID returns the candidate's unique identifier.
func (c *Candidate) ID() string {
	return c.id
}

// Genome returns the solution payload.
func (c *Candidate) Genome() Genome {
	return c.genome
}

// Fitness returns the current fitness value, NoFitnessValue when the
// candidate has not been evaluated yet.
func (c *Candidate) Fitness() float64 {
	return c.fitness
}

// SetFitness records an evaluation result.
func (c *Candidate) SetFitness(fitness float64) {
	c.fitness = fitness
}

// ResetFitness marks the candidate as unevaluated.
func (c *Candidate) ResetFitness() {
	c.fitness = NoFitnessValue
}

// HasFitness reports whether the candidate carries an evaluation result.
func (c *Candidate) HasFitness() bool {
	return c.fitness != NoFitnessValue
}

// Age returns the number of generations the candidate survived unmodified.
func (c *Candidate) Age() int {
	return c.age
}

// IncreaseAge bumps the age by one generation.
func (c *Candidate) IncreaseAge() {
	c.age++
}

// ResetAge marks the candidate as new-born.
func (c *Candidate) ResetAge() {
	c.age = 0
}

// OperatedOn returns how many times variation operators touched the
// candidate in the current cycle.
func (c *Candidate) OperatedOn() int {
	return c.operatedOn
}

// IncreaseOperatedOn marks the candidate as produced by an operator.
func (c *Candidate) IncreaseOperatedOn() {
	c.operatedOn++
}

// ResetOperatedOn clears the operated-on marker.
func (c *Candidate) ResetOperatedOn() {
	c.operatedOn = 0
}

// Selected reports the selection flag.
func (c *Candidate) Selected() bool {
	return c.selected
}

// SetSelected sets the selection flag.
func (c *Candidate) SetSelected(selected bool) {
	c.selected = selected
}

// Key returns the structural identity of the candidate's genome.
func (c *Candidate) Key() string {
	return c.genome.Key()
}

// StructuralEqual reports whether two candidates carry the same genome by
// value, regardless of identity or fitness.
func (c *Candidate) StructuralEqual(other *Candidate) bool {
	if other == nil {
		return false
	}
	return c.genome.Key() == other.genome.Key()
}

// Clone returns a copy of the candidate with a fresh ID and the fitness
// stripped. Used by the dedup cache, which retains fitness-free copies.
func (c *Candidate) Clone() *Candidate {
	return &Candidate{
		id:         uuid.New().String(),
		genome:     c.genome.Clone(),
		fitness:    NoFitnessValue,
		age:        c.age,
		operatedOn: c.operatedOn,
	}
}
