package breeder

import (
	"context"
	"math"

	"github.com/XiaoConstantine/evolve-go/pkg/core"
	"github.com/XiaoConstantine/evolve-go/pkg/errors"
	"github.com/XiaoConstantine/evolve-go/pkg/logging"
)

// keepPopSizeConstant trims the population back to the configured target
// size when the keep-constant flag is set. Survivors are ordered before
// operator-appended individuals, so trimming drops the newest tail.
func keepPopSizeConstant(pop *core.Population, cfg *core.EvolutionConfig) {
	if cfg.KeepPopSizeConstant {
		pop.KeepConstant(cfg.PopulationSize)
	}
}

// fillToMinimum appends freshly initialized candidates until the
// population reaches the configured floor: target size scaled by the
// minimum-size percentage. Initializer failure aborts the cycle; random
// candidate creation has no sensible partial-failure mode.
func fillToMinimum(ctx context.Context, pop *core.Population, cfg *core.EvolutionConfig) error {
	if cfg.MinPopSizePercent <= 0 {
		return nil
	}

	minSize := int(math.Round(float64(cfg.PopulationSize) * float64(cfg.MinPopSizePercent) / 100))
	if pop.Size() >= minSize {
		return nil
	}

	logger := logging.GetLogger()
	logger.Debug(ctx, "Filling population to minimum: current=%d, floor=%d", pop.Size(), minSize)

	for pop.Size() < minSize {
		candidate, err := cfg.Initializer.Create(ctx)
		if err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.InitializerFailed, "random candidate creation failed"),
				errors.Fields{"population_size": pop.Size(), "floor": minSize})
		}

		cfg.FireEvent(core.EventBeforeAddCandidate, pop, candidate)
		pop.Add(candidate)
	}

	return nil
}
