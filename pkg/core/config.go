package core

import (
	"github.com/go-playground/validator/v10"

	"github.com/XiaoConstantine/evolve-go/pkg/errors"
)

// EvolutionConfig carries the collaborators and knobs for one evolution
// run. The breeder reads it on every Evolve call and mutates only the
// generation counter, by incrementing it at the end of each cycle.
type EvolutionConfig struct {
	// PopulationSize is the target size populations converge to at the
	// end of a generation.
	PopulationSize int `yaml:"population_size" validate:"required,min=1"`

	// MinPopSizePercent triggers random top-up when the population drops
	// below PopulationSize * MinPopSizePercent / 100. Zero disables it.
	MinPopSizePercent int `yaml:"min_pop_size_percent" validate:"min=0,max=100"`

	// PreserveFittest re-adds the pre-cycle best candidate when selection
	// and operators dropped it.
	PreserveFittest bool `yaml:"preserve_fittest"`

	// KeepPopSizeConstant trims populations back to PopulationSize.
	KeepPopSizeConstant bool `yaml:"keep_pop_size_constant"`

	// Collaborators. FitnessFunction or BulkFitness must be set.
	FitnessFunction FitnessFunction     `yaml:"-"`
	BulkFitness     BulkFitnessFunction `yaml:"-"`
	Selector        Selector            `yaml:"-"`
	Operators       []Operator          `yaml:"-"`
	Initializer     Initializer         `yaml:"-"`
	Monitor         Monitor             `yaml:"-"`

	// Ranker orders candidates for preserve-fittest. Nil means higher
	// fitness wins.
	Ranker Ranker `yaml:"-"`

	generation int
}

// Generation returns the current generation number, starting at zero.
func (c *EvolutionConfig) Generation() int {
	return c.generation
}

// IncrementGeneration advances the generation counter. Called by the
// breeder once per completed cycle.
func (c *EvolutionConfig) IncrementGeneration() {
	c.generation++
}

// SetGeneration overrides the generation counter, for resuming runs.
func (c *EvolutionConfig) SetGeneration(generation int) {
	c.generation = generation
}

// MonitorActive reports whether an observability hook is attached.
func (c *EvolutionConfig) MonitorActive() bool {
	return c.Monitor != nil
}

// FireEvent notifies the monitor when one is attached. Panics inside the
// hook are swallowed; the monitor contract is fire-and-forget.
func (c *EvolutionConfig) FireEvent(kind EventKind, payload ...interface{}) {
	if c.Monitor == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	c.Monitor.Event(kind, c.generation, payload...)
}

var validate = validator.New()

// Validate checks the configuration before a run. Collaborator wiring is
// checked beyond struct tags: an engine without any fitness source or
// without a selector cannot advance a generation.
func (c *EvolutionConfig) Validate() error {
	if c == nil {
		return errors.New(errors.InvalidConfiguration, "configuration is nil")
	}
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, errors.InvalidConfiguration, "invalid evolution configuration")
	}
	if c.FitnessFunction == nil && c.BulkFitness == nil {
		return errors.New(errors.InvalidConfiguration, "either a fitness function or a bulk fitness function is required")
	}
	if c.Selector == nil {
		return errors.New(errors.InvalidConfiguration, "a selector is required")
	}
	if c.MinPopSizePercent > 0 && c.Initializer == nil {
		return errors.New(errors.InvalidConfiguration, "min_pop_size_percent requires an initializer")
	}
	return nil
}
