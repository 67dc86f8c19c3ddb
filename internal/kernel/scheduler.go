package kernel

import "sync"

// Scheduler materializes the chunks of a deferred computation. The kernel's
// control flow stays synchronous; only the chunk fan-out of a parallel unit
// goes through a scheduler.
type Scheduler interface {
	Map(n int, task func(i int) error) error
}

// Sync runs every chunk in the calling goroutine.
type Sync struct{}

func (Sync) Map(n int, task func(i int) error) error {
	for i := 0; i < n; i++ {
		if err := task(i); err != nil {
			return err
		}
	}
	return nil
}

// Pool fans chunks out over a fixed-size worker pool. On failure the first
// error by chunk index is reported, so diagnostics are deterministic.
type Pool struct {
	Workers int
}

func (p Pool) Map(n int, task func(i int) error) error {
	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = task(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
