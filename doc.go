// Package evolve is a generational evolution engine for Go. It runs the
// breeding cycle of a genetic algorithm (fitness evaluation, natural
// selection, variation, population size control) against caller-supplied
// genomes, fitness functions and operators.
//
// Key Components:
//
//   - Core: the domain types. Candidate wraps an opaque Genome with
//     fitness, age and bookkeeping; Population is the ordered candidate
//     set; EvolutionConfig carries the collaborators and knobs of a run.
//
//   - Breeder: the orchestrator. One Evolve call advances a population by
//     one generation: size trim, fitness pass, pre-selection, variation
//     operators, bookkeeping, second fitness pass, post-selection, random
//     top-up and fittest preservation. Per-candidate fitness runs on a
//     spawn-once worker pool shared across generations; bulk fitness
//     functions run through a deduplicator that filters out candidates
//     already scored in earlier generations.
//
//   - Selectors: rank truncation, tournament and roulette wheel selection.
//
//   - Operators: crossover and mutation wrappers around caller-supplied
//     recombination logic.
//
//   - Cache: bounded in-memory and SQLite stores backing deduplication.
//
//   - Metrics: per-generation fitness statistics collected through the
//     monitor hook.
//
// Example usage:
//
//	b, err := breeder.NewBreeder()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Shutdown()
//
//	cfg := &core.EvolutionConfig{
//		PopulationSize:      50,
//		PreserveFittest:     true,
//		KeepPopSizeConstant: true,
//		FitnessFunction:     myFitness,
//		Selector:            selectors.NewBest(),
//		Operators:           []core.Operator{crossover, mutation},
//	}
//
//	for i := 0; i < generations; i++ {
//		pop, err = b.Evolve(ctx, pop, cfg)
//		if err != nil {
//			log.Fatal(err)
//		}
//	}
//
// For more examples and detailed documentation, visit:
// https://github.com/XiaoConstantine/evolve-go
package evolve
