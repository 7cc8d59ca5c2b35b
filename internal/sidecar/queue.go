package sidecar

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is one fire-and-forget unit of post-response work. Failures are
// logged and swallowed; they never reach the caller-facing path.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue runs sidecar jobs on detached workers so scheduling never blocks
// the turn's reply. Jobs are independent of each other; no completion
// ordering is guaranteed.
type Queue struct {
	jobs       chan Job
	jobTimeout time.Duration
	onOutcome  func(name, outcome string)

	startOnce sync.Once
	wg        sync.WaitGroup
	workers   int
}

func NewQueue(workers, buffer int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Queue{
		jobs:       make(chan Job, buffer),
		jobTimeout: 60 * time.Second,
		workers:    workers,
	}
}

// SetOutcomeHook observes job completions: outcome is one of
// "ok", "error", "dropped".
func (q *Queue) SetOutcomeHook(hook func(name, outcome string)) {
	q.onOutcome = hook
}

// Start launches the worker goroutines. Workers exit when ctx is done.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(ctx)
		}
	})
}

// Schedule enqueues a job without waiting. When the queue is saturated the
// job is dropped and logged rather than delaying the caller.
func (q *Queue) Schedule(job Job) bool {
	if job.Run == nil {
		return false
	}
	select {
	case q.jobs <- job:
		return true
	default:
		log.Printf("sidecar: dropped job %s (queue full)", job.Name)
		q.observe(job.Name, "dropped")
		return false
	}
}

// Wait blocks until all workers have exited. Used by tests and shutdown.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.run(ctx, job)
		}
	}
}

func (q *Queue) run(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, q.jobTimeout)
	defer cancel()

	if err := job.Run(jobCtx); err != nil {
		log.Printf("sidecar: job %s failed: %v", job.Name, err)
		q.observe(job.Name, "error")
		return
	}
	q.observe(job.Name, "ok")
}

func (q *Queue) observe(name, outcome string) {
	if q.onOutcome != nil {
		q.onOutcome(name, outcome)
	}
}
