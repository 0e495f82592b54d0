// Package enrichment runs best-effort background work triggered by
// classification transitions. Nothing here can fail or delay the
// classification that triggered it.
package enrichment

import (
	"context"
	"log/slog"

	"github.com/JaimeStill/bidwatch/internal/cases"
)

// Sweeper runs the high-accuracy extractor over every document of a case.
type Sweeper interface {
	VisionSweep(ctx context.Context, c cases.Case) error
}

// Enricher is a side task that adds information to a case.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, c cases.Case) error
}

// Dispatcher turns transitions into pool tasks.
type Dispatcher struct {
	pool      *Pool
	sweeper   Sweeper
	enrichers []Enricher
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil sweeper disables the vision sweep.
func NewDispatcher(pool *Pool, sweeper Sweeper, logger *slog.Logger, enrichers ...Enricher) *Dispatcher {
	return &Dispatcher{
		pool:      pool,
		sweeper:   sweeper,
		enrichers: enrichers,
		logger:    logger.With("system", "dispatcher"),
	}
}

// OnTransition submits background tasks for a classification change and
// returns how many were accepted. Only entry into upset_bid dispatches.
func (d *Dispatcher) OnTransition(c cases.Case, from, to cases.Classification) int {
	if to != cases.UpsetBid || from == cases.UpsetBid {
		return 0
	}

	var tasks []Task

	if d.sweeper != nil {
		tasks = append(tasks, Task{
			Name:   "vision_sweep",
			CaseID: c.ID,
			Run: func(ctx context.Context) error {
				return d.sweeper.VisionSweep(ctx, c)
			},
		})
	}

	for _, e := range d.enrichers {
		tasks = append(tasks, Task{
			Name:   e.Name(),
			CaseID: c.ID,
			Run: func(ctx context.Context) error {
				return e.Enrich(ctx, c)
			},
		})
	}

	accepted := 0
	for _, t := range tasks {
		if d.pool.Submit(t) {
			accepted++
		}
	}

	d.logger.Info(
		"transition dispatched",
		"case_id", c.ID,
		"case_number", c.CaseNumber,
		"from", from,
		"to", to,
		"tasks", len(tasks),
		"accepted", accepted,
	)

	return accepted
}
