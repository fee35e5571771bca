// Package metrics collects per-generation statistics of an evolution run.
package metrics

import (
	"math"
	"sync"

	"github.com/XiaoConstantine/evolve-go/pkg/core"
)

// GenerationStats summarizes one completed generation.
type GenerationStats struct {
	Generation     int     `json:"generation"`
	PopulationSize int     `json:"population_size"`
	BestFitness    float64 `json:"best_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	WorstFitness   float64 `json:"worst_fitness"`
	StdDev         float64 `json:"std_dev"`
	Unevaluated    int     `json:"unevaluated"`
}

// Collector is a core.Monitor that records statistics for every evolved
// generation. Safe for use from a single evolution at a time; reads may
// happen concurrently.
type Collector struct {
	mu      sync.Mutex
	history []GenerationStats
}

// NewCollector creates an empty statistics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Event implements core.Monitor. Only generation-evolved events carry a
// population snapshot worth summarizing; everything else is ignored.
func (c *Collector) Event(kind core.EventKind, generation int, payload ...interface{}) {
	if kind != core.EventGenerationEvolved || len(payload) == 0 {
		return
	}
	pop, ok := payload[0].(*core.Population)
	if !ok {
		return
	}

	stats := Summarize(pop)
	stats.Generation = generation

	c.mu.Lock()
	c.history = append(c.history, stats)
	c.mu.Unlock()
}

// History returns a copy of the recorded per-generation statistics.
func (c *Collector) History() []GenerationStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]GenerationStats(nil), c.history...)
}

// Latest returns the statistics of the most recent generation.
func (c *Collector) Latest() (GenerationStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return GenerationStats{}, false
	}
	return c.history[len(c.history)-1], true
}

// Summarize computes fitness statistics over the evaluated part of a
// population.
func Summarize(pop *core.Population) GenerationStats {
	stats := GenerationStats{
		PopulationSize: pop.Size(),
		BestFitness:    core.NoFitnessValue,
		WorstFitness:   core.NoFitnessValue,
	}

	var sum float64
	var values []float64
	for _, c := range pop.Candidates() {
		if !c.HasFitness() {
			stats.Unevaluated++
			continue
		}
		f := c.Fitness()
		values = append(values, f)
		sum += f
		if stats.BestFitness == core.NoFitnessValue || f > stats.BestFitness {
			stats.BestFitness = f
		}
		if stats.WorstFitness == core.NoFitnessValue || f < stats.WorstFitness {
			stats.WorstFitness = f
		}
	}

	if len(values) == 0 {
		return stats
	}

	mean := sum / float64(len(values))
	stats.MeanFitness = mean

	var variance float64
	for _, f := range values {
		variance += (f - mean) * (f - mean)
	}
	stats.StdDev = math.Sqrt(variance / float64(len(values)))
	return stats
}
