package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/extraction"
)

// Sweep reclassifies every monitored case with bounded concurrency. Each case
// is claimed at most once per run. A failing case is logged and counted; it
// never stops the sweep.
func (t *tracker) Sweep(ctx context.Context) (*SweepReport, error) {
	start := t.now()
	began := time.Now()

	monitored, err := t.store.Monitored(ctx, t.cfg.Grace(), start)
	if err != nil {
		return nil, fmt.Errorf("list monitored cases: %w", err)
	}

	report := &SweepReport{
		Errors:  make(map[string]string),
		Started: start,
	}

	var mu sync.Mutex
	claimed := make(map[uuid.UUID]struct{}, len(monitored))

	g := new(errgroup.Group)
	g.SetLimit(t.cfg.SweepConcurrency)

	for _, c := range monitored {
		if _, dup := claimed[c.ID]; dup {
			continue
		}
		claimed[c.ID] = struct{}{}

		g.Go(func() error {
			if ctx.Err() != nil {
				t.recordFailure(&mu, report, c, ctx.Err())
				return nil
			}

			outcome, err := t.reclassify(ctx, c.ID, extraction.Options{})
			if err != nil {
				t.recordFailure(&mu, report, c, err)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome.Skipped:
				report.Skipped++
			default:
				report.Reclassified++
				if outcome.Transition {
					report.Transitions++
				}
			}
			return nil
		})
	}

	g.Wait()
	report.Cases = len(claimed)
	report.Duration = time.Since(began).String()

	t.logger.InfoContext(
		ctx, "classification sweep complete",
		"cases", report.Cases,
		"reclassified", report.Reclassified,
		"transitions", report.Transitions,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration,
	)

	return report, nil
}

func (t *tracker) recordFailure(mu *sync.Mutex, report *SweepReport, c cases.Case, err error) {
	mu.Lock()
	report.Failed++
	report.Errors[c.CaseNumber] = err.Error()
	mu.Unlock()

	t.logger.Error(
		"case reclassification failed",
		"case_id", c.ID,
		"case_number", c.CaseNumber,
		"error", err,
	)
}
