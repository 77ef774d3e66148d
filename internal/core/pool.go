package core

// pool.go implements the bounded worker pool chunk work fans out on.
// All remote calls are synchronous; the only concurrency in the
// pipeline is this fan-out.

import "sync"

// DefaultWorkers is the pool size when configuration leaves it unset.
const DefaultWorkers = 4

// WorkerPool runs submitted jobs on a fixed set of goroutines.
type WorkerPool struct {
	jobs chan func()
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// NewWorkerPool starts workers goroutines consuming submitted jobs.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	p := &WorkerPool{jobs: make(chan func())}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

// Submit hands a job to the pool, blocking until a worker is free to
// queue it. The job must carry its own context/tenant snapshot.
func (p *WorkerPool) Submit(job func()) {
	p.jobs <- job
}

// Stop closes the pool and waits for in-flight jobs to finish.
func (p *WorkerPool) Stop() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
