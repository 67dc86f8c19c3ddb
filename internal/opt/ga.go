package opt

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
)

// Config fixes the genetic algorithm's behavior.
type Config struct {
	Set            FunctionalGroupSet
	PopulationSize int
	Generations    int
	CrossoverRate  float64 // probability a pair is blended
	MutationRate   float64 // probability an individual is perturbed
	TournamentSize int
	BlendAlpha     float64 // blend crossover expansion, 0 = midpoint-bounded
	MutationSigma  float64 // gaussian step as a fraction of each gene's range
	HallOfFameSize int
	Seed           int64
	Initializer    Initializer
	Strategy       Strategy
}

func (c Config) validate() error {
	if c.Set.Dimension() == 0 {
		return fmt.Errorf("ga: empty search space")
	}
	if c.PopulationSize < 2 {
		return fmt.Errorf("ga: population size must be >= 2, got %d", c.PopulationSize)
	}
	if c.Generations <= 0 {
		return fmt.Errorf("ga: generations must be > 0, got %d", c.Generations)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("ga: crossover rate must be in [0, 1], got %v", c.CrossoverRate)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("ga: mutation rate must be in [0, 1], got %v", c.MutationRate)
	}
	if c.TournamentSize < 1 {
		return fmt.Errorf("ga: tournament size must be >= 1, got %d", c.TournamentSize)
	}
	if c.BlendAlpha < 0 {
		return fmt.Errorf("ga: blend alpha must be >= 0, got %v", c.BlendAlpha)
	}
	if c.MutationSigma <= 0 {
		return fmt.Errorf("ga: mutation sigma must be > 0, got %v", c.MutationSigma)
	}
	if c.HallOfFameSize < 1 {
		return fmt.Errorf("ga: hall of fame size must be >= 1, got %d", c.HallOfFameSize)
	}
	return nil
}

// Result is the outcome of a calibration run.
type Result struct {
	Best       Individual
	HallOfFame []Individual
	Logbook    *Logbook
	Evaluated  int
}

// GeneticAlgorithm minimizes a cost function over the declared search
// space.
type GeneticAlgorithm struct {
	cfg   Config
	genes []Gene
	rng   *rand.Rand
}

func New(cfg Config) (*GeneticAlgorithm, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Initializer == nil {
		cfg.Initializer = Uniform{}
	}
	if cfg.Strategy == nil {
		cfg.Strategy = Sequential{}
	}
	return &GeneticAlgorithm{
		cfg:   cfg,
		genes: cfg.Set.Genes(),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run evolves the population for the configured number of generations and
// returns the best individual seen. The context cancels between
// evaluations.
func (ga *GeneticAlgorithm) Run(ctx context.Context, evaluate EvaluateFn) (*Result, error) {
	if evaluate == nil {
		return nil, fmt.Errorf("ga: evaluate function is required")
	}
	samples, err := ga.cfg.Initializer.Sample(ga.rng, ga.genes, ga.cfg.PopulationSize)
	if err != nil {
		return nil, err
	}
	pop := make(Population, len(samples))
	for i, genes := range samples {
		pop[i] = Individual{Genes: genes}
	}

	logbook := &Logbook{}
	var hof []Individual
	evaluated := 0

	for gen := 0; gen < ga.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pendingBefore := countPending(pop)
		if err := ga.cfg.Strategy.Evaluate(ctx, pop, evaluate); err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		evaluated += pendingBefore

		hof = updateHallOfFame(hof, pop, ga.cfg.HallOfFameSize)
		logbook.Observe(gen, CategoryPopulation, costs(pop))
		logbook.Observe(gen, CategoryHallOfFame, costs(hof))

		if gen == ga.cfg.Generations-1 {
			break
		}
		pop = ga.nextGeneration(pop)
	}

	return &Result{
		Best:       hof[0].clone(),
		HallOfFame: cloneAll(hof),
		Logbook:    logbook,
		Evaluated:  evaluated,
	}, nil
}

func (ga *GeneticAlgorithm) nextGeneration(pop Population) Population {
	next := make(Population, len(pop))
	for i := range next {
		next[i] = ga.tournament(pop).clone()
	}
	for i := 0; i+1 < len(next); i += 2 {
		if ga.rng.Float64() < ga.cfg.CrossoverRate {
			ga.blend(&next[i], &next[i+1])
		}
	}
	for i := range next {
		if ga.rng.Float64() < ga.cfg.MutationRate {
			ga.mutate(&next[i])
		}
	}
	return next
}

// tournament picks the lowest-cost individual among k uniform samples.
func (ga *GeneticAlgorithm) tournament(pop Population) Individual {
	best := pop[ga.rng.Intn(len(pop))]
	for i := 1; i < ga.cfg.TournamentSize; i++ {
		candidate := pop[ga.rng.Intn(len(pop))]
		if candidate.Cost < best.Cost {
			best = candidate
		}
	}
	return best
}

// blend mixes each gene pair inside the alpha-expanded interval between the
// parents, clamped to the gene bounds. Children need re-evaluation.
func (ga *GeneticAlgorithm) blend(a, b *Individual) {
	for j := range ga.genes {
		x, y := a.Genes[j], b.Genes[j]
		lo, hi := x, y
		if lo > hi {
			lo, hi = hi, lo
		}
		span := hi - lo
		lo -= ga.cfg.BlendAlpha * span
		hi += ga.cfg.BlendAlpha * span
		a.Genes[j] = ga.clamp(j, lo+ga.rng.Float64()*(hi-lo))
		b.Genes[j] = ga.clamp(j, lo+ga.rng.Float64()*(hi-lo))
	}
	a.Evaluated = false
	b.Evaluated = false
}

// mutate adds bounded gaussian noise scaled to each gene's range.
func (ga *GeneticAlgorithm) mutate(ind *Individual) {
	for j, g := range ga.genes {
		step := ga.rng.NormFloat64() * ga.cfg.MutationSigma * (g.High - g.Low)
		ind.Genes[j] = ga.clamp(j, ind.Genes[j]+step)
	}
	ind.Evaluated = false
}

func (ga *GeneticAlgorithm) clamp(j int, v float64) float64 {
	g := ga.genes[j]
	if v < g.Low {
		return g.Low
	}
	if v > g.High {
		return g.High
	}
	return v
}

func countPending(pop Population) int {
	n := 0
	for _, ind := range pop {
		if !ind.Evaluated {
			n++
		}
	}
	return n
}

func costs(pop []Individual) []float64 {
	out := make([]float64, len(pop))
	for i, ind := range pop {
		out[i] = ind.Cost
	}
	return out
}

// updateHallOfFame merges the generation into the running best list, sorted
// ascending by cost and truncated to size.
func updateHallOfFame(hof []Individual, pop Population, size int) []Individual {
	merged := make([]Individual, 0, len(hof)+len(pop))
	merged = append(merged, hof...)
	for _, ind := range pop {
		merged = append(merged, ind.clone())
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Cost < merged[j].Cost })
	if len(merged) > size {
		merged = merged[:size]
	}
	return merged
}

func cloneAll(individuals []Individual) []Individual {
	out := make([]Individual, len(individuals))
	for i, ind := range individuals {
		out[i] = ind.clone()
	}
	return out
}
