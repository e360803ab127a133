package worker

import (
	"log/slog"
	"sync"

	"github.com/baharkarakas/loyalty-admin/internal/metrics"
)

type task func()

// Pool runs fire-and-forget jobs such as audit writes off the request path.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task
}

func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{jobs: make(chan task, 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				run(job)
			}
		}()
	}
	return p
}

func run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker job panic", "err", rec)
		}
	}()
	job()
}

func (p *Pool) Submit(f task) {
	metrics.WorkerQueueDepth.Inc()
	p.jobs <- f
}

// Stop drains queued jobs and waits for the workers to exit.
func (p *Pool) Stop() { close(p.jobs); p.wg.Wait() }
