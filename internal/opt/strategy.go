package opt

import (
	"context"
	"fmt"
	"sync"
)

// Individual is one candidate parameter vector and its cost.
type Individual struct {
	Genes     []float64
	Cost      float64
	Evaluated bool
}

func (ind Individual) clone() Individual {
	genes := make([]float64, len(ind.Genes))
	copy(genes, ind.Genes)
	return Individual{Genes: genes, Cost: ind.Cost, Evaluated: ind.Evaluated}
}

// Population is one generation of individuals.
type Population []Individual

// EvaluateFn scores one gene vector. Lower is better.
type EvaluateFn func(ctx context.Context, genes []float64) (float64, error)

// Strategy decides how a generation's unevaluated individuals are scored.
// Implementations must fill costs in population order and fail the whole
// generation on the first error, reported for the lowest failing index.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, pop Population, evaluate EvaluateFn) error
}

// Sequential evaluates one individual at a time.
type Sequential struct{}

func (Sequential) Name() string { return "sequential" }

func (Sequential) Evaluate(ctx context.Context, pop Population, evaluate EvaluateFn) error {
	for i := range pop {
		if pop[i].Evaluated {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		cost, err := evaluate(ctx, pop[i].Genes)
		if err != nil {
			return fmt.Errorf("individual %d: %w", i, err)
		}
		pop[i].Cost = cost
		pop[i].Evaluated = true
	}
	return nil
}

// Parallel fans the generation out over a fixed worker pool. Results land
// at their individual's index regardless of completion order.
type Parallel struct {
	Workers int
}

func (Parallel) Name() string { return "parallel" }

func (p Parallel) Evaluate(ctx context.Context, pop Population, evaluate EvaluateFn) error {
	workers := p.Workers
	if workers <= 0 {
		workers = 4
	}

	pending := make([]int, 0, len(pop))
	for i := range pop {
		if !pop[i].Evaluated {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if workers > len(pending) {
		workers = len(pending)
	}

	jobs := make(chan int)
	errs := make([]error, len(pop))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				cost, err := evaluate(ctx, pop[i].Genes)
				if err != nil {
					errs[i] = err
					continue
				}
				pop[i].Cost = cost
				pop[i].Evaluated = true
			}
		}()
	}
	for _, i := range pending {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, i := range pending {
		if errs[i] != nil {
			return fmt.Errorf("individual %d: %w", i, errs[i])
		}
	}
	return nil
}

// Cluster submits evaluations to remote capacity. LocalCluster is the
// in-process stand-in used by tests and single-host runs.
type Cluster interface {
	Submit(ctx context.Context, genes []float64) (float64, error)
	Size() int
}

// LocalCluster evaluates submissions in-process with a concurrency cap.
type LocalCluster struct {
	Workers  int
	Evaluate EvaluateFn

	once sync.Once
	sem  chan struct{}
}

func (c *LocalCluster) Size() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

func (c *LocalCluster) Submit(ctx context.Context, genes []float64) (float64, error) {
	if c.Evaluate == nil {
		return 0, fmt.Errorf("local cluster has no evaluate function")
	}
	c.once.Do(func() { c.sem = make(chan struct{}, c.Size()) })
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { <-c.sem }()
	return c.Evaluate(ctx, genes)
}

// Distributed submits the generation to a cluster, one submission per
// individual, keeping population order for the results.
type Distributed struct {
	Cluster Cluster
}

func (Distributed) Name() string { return "distributed" }

func (d Distributed) Evaluate(ctx context.Context, pop Population, evaluate EvaluateFn) error {
	if d.Cluster == nil {
		return fmt.Errorf("distributed strategy needs a cluster")
	}
	pending := make([]int, 0, len(pop))
	for i := range pop {
		if !pop[i].Evaluated {
			pending = append(pending, i)
		}
	}
	errs := make([]error, len(pop))
	var wg sync.WaitGroup
	for _, i := range pending {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cost, err := d.Cluster.Submit(ctx, pop[i].Genes)
			if err != nil {
				errs[i] = err
				return
			}
			pop[i].Cost = cost
			pop[i].Evaluated = true
		}(i)
	}
	wg.Wait()
	for _, i := range pending {
		if errs[i] != nil {
			return fmt.Errorf("individual %d: %w", i, errs[i])
		}
	}
	return nil
}
