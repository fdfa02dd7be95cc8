package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a job produces
type Result interface {
	GetError() error
}

type indexedJob struct {
	idx int
	job Job
}

type indexedResult struct {
	idx    int
	result Result
}

// Pool runs submitted jobs on a fixed number of workers and returns their
// results in submission order
type Pool struct {
	workers   int
	jobs      chan indexedJob
	results   chan indexedResult
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu        sync.Mutex
	submitted int
	collected map[int]Result
	drained   chan struct{}
}

// NewPool creates a pool bound to ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:   workers,
		jobs:      make(chan indexedJob, workers*2),
		results:   make(chan indexedResult, workers*2),
		ctx:       ctx,
		cancel:    cancel,
		collected: make(map[int]Result),
		drained:   make(chan struct{}),
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	go p.collect()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// collect drains results as they arrive so workers never block on a full
// results channel while jobs are still being submitted
func (p *Pool) collect() {
	defer close(p.drained)
	for ir := range p.results {
		p.mu.Lock()
		p.collected[ir.idx] = ir.result
		p.mu.Unlock()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobs:
			if !ok {
				return
			}
			res := ij.job.Execute(p.ctx)
			select {
			case p.results <- indexedResult{idx: ij.idx, result: res}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. Submitting after Shutdown is a no-op.
func (p *Pool) Submit(job Job) {
	p.mu.Lock()
	idx := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
	case p.jobs <- indexedJob{idx: idx, job: job}:
	}
}

// Wait closes the queue, waits for every job, and returns results in
// submission order. Jobs dropped by a shutdown leave a nil slot.
func (p *Pool) Wait() []Result {
	close(p.jobs)
	p.wg.Wait()
	p.closeResults()
	<-p.drained

	p.mu.Lock()
	defer p.mu.Unlock()
	ordered := make([]Result, p.submitted)
	for idx, res := range p.collected {
		if idx < len(ordered) {
			ordered[idx] = res
		}
	}
	return ordered
}

// Shutdown stops the workers immediately
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
