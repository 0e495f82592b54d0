// Package tracking orchestrates the classification pipeline: extraction,
// classification, field merge, and the atomic case update, plus the batch
// sweeps and repair tiers built on it.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/classifier"
	"github.com/JaimeStill/bidwatch/internal/diagnosis"
	"github.com/JaimeStill/bidwatch/internal/enrichment"
	"github.com/JaimeStill/bidwatch/internal/extraction"
	"github.com/JaimeStill/bidwatch/internal/merge"
	"github.com/JaimeStill/bidwatch/pkg/businessday"
)

// Deps carries the collaborators of the tracking system. Downloader and
// Crawler are optional; without them the portal repair tiers fail with
// ErrNoPortal. Dispatcher takes precedence over Pool; with neither,
// transitions dispatch nothing. PatternsPath, when set, receives every
// merged skip table.
type Deps struct {
	Config       *Config
	Diagnosis    *diagnosis.Config
	Store        Store
	Router       *extraction.Router
	PatternsPath string
	Budget       *extraction.Budget
	Calendar     *businessday.Calendar
	Downloader   Downloader
	Crawler      Crawler
	Pool         *enrichment.Pool
	Enrichers    []enrichment.Enricher
	Dispatcher   Dispatcher
	Clock        func() time.Time
	Logger       *slog.Logger
}

type tracker struct {
	cfg        *Config
	required   cases.RequiredFields
	store      Store
	router     *extraction.Router
	patterns   string
	budget     *extraction.Budget
	calendar   *businessday.Calendar
	downloader Downloader
	crawler    Crawler
	dispatcher Dispatcher
	diagnoser  *diagnosis.Diagnoser
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

// New creates the tracking system.
func New(deps Deps) System {
	t := &tracker{
		cfg:        deps.Config,
		required:   deps.Config.Required(),
		store:      deps.Store,
		router:     deps.Router,
		patterns:   deps.PatternsPath,
		budget:     deps.Budget,
		calendar:   deps.Calendar,
		downloader: deps.Downloader,
		crawler:    deps.Crawler,
		dispatcher: deps.Dispatcher,
		now:        deps.Clock,
		logger:     deps.Logger.With("system", "tracking"),
		inflight:   make(map[uuid.UUID]struct{}),
	}

	if t.now == nil {
		t.now = time.Now
	}

	if t.dispatcher == nil && deps.Pool != nil {
		t.dispatcher = enrichment.NewDispatcher(deps.Pool, t, deps.Logger, deps.Enrichers...)
	}

	dcfg := deps.Diagnosis
	if dcfg == nil {
		dcfg = &diagnosis.Config{}
		dcfg.Finalize(nil)
	}
	t.diagnoser = diagnosis.New(dcfg, deps.Store, diagnosis.Strategies(t), t.required, deps.Logger)

	return t
}

func (t *tracker) Handler() *Handler {
	return NewHandler(t, t.logger)
}

func (t *tracker) Usage() extraction.Usage {
	if t.budget == nil {
		return extraction.Usage{}
	}
	return t.budget.Usage()
}

func (t *tracker) Patterns() *extraction.PatternTable {
	return t.router.Patterns()
}

func (t *tracker) MergePatterns(ctx context.Context, update *extraction.PatternTable) (*extraction.PatternTable, error) {
	merged, err := t.router.MergePatterns(update)
	if err != nil {
		return nil, err
	}

	if t.patterns != "" {
		if err := extraction.SavePatterns(t.patterns, merged); err != nil {
			return nil, err
		}
		t.logger.InfoContext(ctx, "skip patterns saved", "path", t.patterns, "version", merged.Version)
	}

	return merged, nil
}

func (t *tracker) Reclassify(ctx context.Context, id uuid.UUID) (*Outcome, error) {
	return t.reclassify(ctx, id, extraction.Options{})
}

func (t *tracker) Diagnose(ctx context.Context, id uuid.UUID, dryRun bool) (*diagnosis.Report, error) {
	c, err := t.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.diagnoser.Diagnose(ctx, *c, dryRun)
}

func (t *tracker) DiagnoseAll(ctx context.Context) (*diagnosis.RunReport, error) {
	return t.diagnoser.Run(ctx)
}

// claim marks id in flight. It returns false when another reclassification
// of the same case is running.
func (t *tracker) claim(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.inflight[id]; busy {
		return false
	}
	t.inflight[id] = struct{}{}
	return true
}

func (t *tracker) release(id uuid.UUID) {
	t.mu.Lock()
	delete(t.inflight, id)
	t.mu.Unlock()
}

// reclassify runs the pipeline for one case, then dispatches any transition
// once the case claim is released so background work on the same case can
// claim it.
func (t *tracker) reclassify(ctx context.Context, id uuid.UUID, opts extraction.Options) (*Outcome, error) {
	outcome, err := t.classify(ctx, id, opts)
	if err != nil {
		return nil, err
	}

	if outcome.Transition && t.dispatcher != nil {
		outcome.Dispatched = t.dispatcher.OnTransition(*outcome.Case, outcome.Previous, outcome.Case.Classification)
	}

	return outcome, nil
}

// classify holds the case claim while it decides from the event log,
// extracts with the decided classification, merges for the decided cycle,
// and applies everything in one update.
func (t *tracker) classify(ctx context.Context, id uuid.UUID, opts extraction.Options) (*Outcome, error) {
	if !t.claim(id) {
		return nil, fmt.Errorf("%w: %s", ErrInProgress, id)
	}
	defer t.release(id)

	c, err := t.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	logger := t.logger.With("case_id", c.ID, "case_number", c.CaseNumber)

	events, err := t.store.Events(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	decision, err := classifier.Decide(classifier.Input{
		Case:         *c,
		Events:       events,
		Calendar:     t.calendar,
		Now:          t.now(),
		Grace:        t.cfg.Grace(),
		UpsetBidDays: t.cfg.UpsetBidDays,
	})
	if err != nil {
		if errors.Is(err, classifier.ErrInvariantViolation) {
			logger.ErrorContext(ctx, "classification invariant violated", "error", err)
		}
		return nil, fmt.Errorf("classify %s: %w", c.CaseNumber, err)
	}

	outcome := &Outcome{
		Case:     c,
		Previous: decision.Previous,
		Reason:   decision.Reason,
		Anchor:   decision.Anchor,
	}

	if decision.Skipped {
		outcome.Skipped = true
		logger.DebugContext(ctx, "reclassification skipped", "reason", decision.Reason)
		return outcome, nil
	}

	docs, err := t.store.Documents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	routed := *c
	routed.Classification = decision.Classification
	batch := t.router.Process(ctx, &routed, docs, opts)
	outcome.Extraction = summarize(batch)
	outcome.failures = failures(batch)

	fields := merge.Merge(*c, decision.CycleStart, batch.Results, merge.EventFields{
		BidAmount: decision.BidAmount,
		BidDate:   decision.BidDate,
		SaleDate:  decision.SaleDate,
		Deadline:  decision.Deadline,
	})

	outcome.Sources = make(map[string]string, len(fields.Sources))
	for field, src := range fields.Sources {
		outcome.Sources[field] = string(src)
	}

	updated, err := t.store.Apply(ctx, id, cases.Update{
		Classification:   decision.Classification,
		CurrentBidAmount: fields.CurrentBidAmount,
		MinimumNextBid:   fields.MinimumNextBid,
		NextBidDeadline:  fields.NextBidDeadline,
		SaleDate:         fields.SaleDate,
		PropertyAddress:  fields.PropertyAddress,
		LegalDescription: fields.LegalDescription,
		SaleCycleStart:   decision.CycleStart,
	})
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", c.CaseNumber, err)
	}

	if decision.Review != "" {
		review := decision.Review
		if err := t.store.SetReview(ctx, id, &review); err != nil {
			return nil, fmt.Errorf("flag %s for review: %w", c.CaseNumber, err)
		}
		updated.NeedsReview = true
		updated.ReviewReason = &review
		outcome.Review = review
		logger.WarnContext(ctx, "case flagged for review", "reason", review)
	}

	outcome.Case = updated
	outcome.Transition = decision.Transition

	logger.InfoContext(
		ctx, "case reclassified",
		"from", decision.Previous,
		"to", decision.Classification,
		"transition", decision.Transition,
		"reason", decision.Reason,
		"processed", batch.Processed,
		"failed", len(batch.Errors),
	)

	return outcome, nil
}

func summarize(b *extraction.Batch) ExtractionSummary {
	s := ExtractionSummary{
		Processed: b.Processed,
		Skipped:   b.Skipped,
		Fallbacks: b.Fallbacks,
	}
	if len(b.Errors) > 0 {
		s.Failed = make(map[string]string, len(b.Errors))
		for id, err := range b.Errors {
			s.Failed[id.String()] = err.Error()
		}
	}
	return s
}

// failures joins the per-document extraction errors of b, or returns nil.
func failures(b *extraction.Batch) error {
	if !b.Failed() {
		return nil
	}

	ids := slices.SortedFunc(maps.Keys(b.Errors), func(x, y uuid.UUID) int {
		return strings.Compare(x.String(), y.String())
	})

	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, fmt.Errorf("document %s: %w", id, b.Errors[id]))
	}
	return errors.Join(errs...)
}
