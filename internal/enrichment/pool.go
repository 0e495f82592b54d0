package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/pkg/lifecycle"
)

// Task is one unit of background work.
type Task struct {
	Name   string
	CaseID uuid.UUID
	Run    func(ctx context.Context) error
}

// Stats counts pool activity since start.
type Stats struct {
	Submitted int64 `json:"submitted"`
	Dropped   int64 `json:"dropped"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Pool runs tasks on a fixed set of workers. Submit never blocks; a full
// queue drops the task. Task failures and panics are logged and never reach
// the submitter.
type Pool struct {
	workers int
	timeout time.Duration
	grace   time.Duration
	queue   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger

	submitted atomic.Int64
	dropped   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a pool from a finalized Config. Workers start with Start.
func NewPool(cfg *Config, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: cfg.Workers,
		timeout: cfg.TaskTimeoutDuration(),
		grace:   cfg.StopGraceDuration(),
		queue:   make(chan Task, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With("system", "enrichment"),
	}
}

// Start launches the workers and, when lc is non-nil, registers Stop as a
// shutdown hook.
func (p *Pool) Start(lc *lifecycle.Coordinator) {
	p.logger.Info("starting enrichment pool", "workers", p.workers, "queue", cap(p.queue))

	for i := range p.workers {
		p.wg.Go(func() { p.work(i) })
	}

	if lc != nil {
		lc.OnShutdown(func() {
			<-lc.Context().Done()
			p.Stop()
		})
	}
}

// Submit enqueues t and reports whether it was accepted.
func (p *Pool) Submit(t Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.dropped.Add(1)
		p.logger.Warn("pool stopped, task dropped", "task", t.Name, "case_id", t.CaseID)
		return false
	}

	select {
	case p.queue <- t:
		p.submitted.Add(1)
		return true
	default:
		p.dropped.Add(1)
		p.logger.Warn("queue full, task dropped", "task", t.Name, "case_id", t.CaseID)
		return false
	}
}

// Stop closes the queue and waits up to the grace period for workers to
// drain. Tasks still running after that are cancelled and abandoned.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("enrichment pool stopped")
	case <-time.After(p.grace):
		p.logger.Warn("enrichment pool stop grace elapsed, abandoning tasks", "grace", p.grace)
	}
	p.cancel()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Dropped:   p.dropped.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Pool) work(id int) {
	for t := range p.queue {
		if p.ctx.Err() != nil {
			return
		}
		p.run(id, t)
	}
}

func (p *Pool) run(worker int, t Task) {
	logger := p.logger.With("task", t.Name, "case_id", t.CaseID, "worker", worker)

	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := safely(ctx, t.Run)
	if err != nil {
		p.failed.Add(1)
		logger.Error("task failed", "error", err, "duration", time.Since(start))
		return
	}

	p.completed.Add(1)
	logger.Info("task complete", "duration", time.Since(start))
}

func safely(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}
