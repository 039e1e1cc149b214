package worker

import (
	"log/slog"
	"sync"

	"github.com/jothihub/jothi-gateway/internal/metrics"
)

type job struct {
	name string
	fn   func()
}

// Pool runs fire-and-forget background actions. Submitted jobs run to
// completion or failure on their own; there is no cancellation and no
// join from the submitting side.
type Pool struct {
	jobs   chan job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// New starts count workers over a queue of queueSize
func New(count, queueSize int, logger *slog.Logger) *Pool {
	p := &Pool{
		jobs:   make(chan job, queueSize),
		logger: logger,
	}
	for i := 0; i < count; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Submit queues a job. It blocks only when the queue is full, never on
// the job itself.
func (p *Pool) Submit(name string, fn func()) {
	p.jobs <- job{name: name, fn: fn}
	metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
}

// Stop closes the queue and waits for in-flight jobs to finish
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

func (p *Pool) run() {
	defer p.wg.Done()
	for j := range p.jobs {
		metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
		p.execute(j)
	}
}

// execute isolates one job so a panic kills neither the worker nor the
// process
func (p *Pool) execute(j job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Background action panicked", "action", j.name, "panic", r)
		}
	}()
	j.fn()
}
