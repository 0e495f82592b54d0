// Package diagnosis repairs cases that are missing required fields by
// escalating through repair tiers until the fields resolve.
package diagnosis

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/pkg/retry"
)

// Cases is the slice of the case store diagnosis reads and flags.
type Cases interface {
	Find(ctx context.Context, id uuid.UUID) (*cases.Case, error)
	NeedingAttention(ctx context.Context, required cases.RequiredFields) ([]cases.Case, error)
	SetReview(ctx context.Context, id uuid.UUID, reason *string) error
}

// TierResult records one tier's outcome. Succeeded means the tier left no
// required field missing; an attempt can return no error and still fail to
// resolve anything.
type TierResult struct {
	Tier      Tier     `json:"tier"`
	Attempted bool     `json:"attempted"`
	Attempts  int      `json:"attempts"`
	Succeeded bool     `json:"succeeded"`
	Error     string   `json:"error,omitempty"`
	Missing   []string `json:"missing"`
}

// Report is the diagnosis of one case.
type Report struct {
	CaseID         uuid.UUID            `json:"case_id"`
	CaseNumber     string               `json:"case_number"`
	Classification cases.Classification `json:"classification"`
	DryRun         bool                 `json:"dry_run"`
	Missing        []string             `json:"missing"`
	Remaining      []string             `json:"remaining"`
	Planned        []Tier               `json:"planned,omitempty"`
	Tiers          []TierResult         `json:"tiers"`
	Resolved       bool                 `json:"resolved"`
	Flagged        bool                 `json:"flagged"`
}

// RunReport summarizes a batch diagnosis.
type RunReport struct {
	Cases    int       `json:"cases"`
	Resolved int       `json:"resolved"`
	Flagged  int       `json:"flagged"`
	Failed   int       `json:"failed"`
	Reports  []*Report `json:"reports"`
}

// Diagnoser runs the tier loop.
type Diagnoser struct {
	cases      Cases
	strategies []Strategy
	required   cases.RequiredFields
	cfg        *Config
	logger     *slog.Logger
}

// New creates a Diagnoser that escalates through strategies in order.
func New(cfg *Config, store Cases, strategies []Strategy, required cases.RequiredFields, logger *slog.Logger) *Diagnoser {
	return &Diagnoser{
		cases:      store,
		strategies: strategies,
		required:   required,
		cfg:        cfg,
		logger:     logger.With("system", "diagnosis"),
	}
}

// Diagnose escalates through the tiers for c and stops at the first tier
// after which no required field is missing. Tier failures are recorded and
// the next tier still runs. A case left incomplete is flagged for review.
func (d *Diagnoser) Diagnose(ctx context.Context, c cases.Case, dryRun bool) (*Report, error) {
	report := &Report{
		CaseID:         c.ID,
		CaseNumber:     c.CaseNumber,
		Classification: c.Classification,
		DryRun:         dryRun,
		Missing:        d.required.Missing(&c),
		Tiers:          []TierResult{},
	}
	report.Remaining = report.Missing

	logger := d.logger.With("case_id", c.ID, "case_number", c.CaseNumber)

	if len(report.Missing) == 0 {
		report.Resolved = true
		if !dryRun && c.NeedsReview {
			if err := d.cases.SetReview(ctx, c.ID, nil); err != nil {
				return nil, fmt.Errorf("clear review flag: %w", err)
			}
		}
		return report, nil
	}

	if dryRun {
		for _, s := range d.strategies {
			report.Planned = append(report.Planned, s.Tier())
		}
		return report, nil
	}

	for _, s := range d.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := d.attempt(ctx, s, c)

		current, err := d.cases.Find(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("reload case after %s: %w", s.Tier(), err)
		}
		c = *current

		result.Missing = d.required.Missing(&c)
		result.Succeeded = len(result.Missing) == 0
		report.Tiers = append(report.Tiers, result)
		report.Remaining = result.Missing
		report.Classification = c.Classification

		logger.InfoContext(
			ctx, "tier complete",
			"tier", s.Tier(),
			"attempts", result.Attempts,
			"succeeded", result.Succeeded,
			"missing", strings.Join(result.Missing, ","),
			"error", result.Error,
		)

		if result.Succeeded {
			report.Resolved = true
			break
		}
	}

	if report.Resolved {
		if c.NeedsReview {
			if err := d.cases.SetReview(ctx, c.ID, nil); err != nil {
				return nil, fmt.Errorf("clear review flag: %w", err)
			}
		}
		return report, nil
	}

	reason := reviewReason(report)
	if err := d.cases.SetReview(ctx, c.ID, &reason); err != nil {
		return nil, fmt.Errorf("flag case for review: %w", err)
	}
	report.Flagged = true

	logger.WarnContext(ctx, "case flagged for review", "reason", reason)
	return report, nil
}

func (d *Diagnoser) attempt(ctx context.Context, s Strategy, c cases.Case) TierResult {
	result := TierResult{Tier: s.Tier(), Attempted: true}

	policy := retry.Policy{
		Attempts:  d.cfg.Attempts(s.Tier()),
		BaseDelay: d.cfg.RetryDelayDuration(),
	}

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		result.Attempts++
		return s.Attempt(ctx, c)
	})
	if err != nil {
		result.Error = err.Error()
	}

	return result
}

// Run diagnoses every case needing attention. A case that fails to diagnose
// is logged and counted; the run continues.
func (d *Diagnoser) Run(ctx context.Context) (*RunReport, error) {
	targets, err := d.cases.NeedingAttention(ctx, d.required)
	if err != nil {
		return nil, fmt.Errorf("list cases needing attention: %w", err)
	}

	run := &RunReport{Cases: len(targets), Reports: []*Report{}}

	for _, c := range targets {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		report, err := d.Diagnose(ctx, c, false)
		if err != nil {
			run.Failed++
			d.logger.ErrorContext(
				ctx, "diagnosis failed",
				"case_id", c.ID,
				"case_number", c.CaseNumber,
				"error", err,
			)
			continue
		}

		run.Reports = append(run.Reports, report)
		if report.Resolved {
			run.Resolved++
		}
		if report.Flagged {
			run.Flagged++
		}
	}

	d.logger.InfoContext(
		ctx, "diagnosis run complete",
		"cases", run.Cases,
		"resolved", run.Resolved,
		"flagged", run.Flagged,
		"failed", run.Failed,
	)

	return run, nil
}

func reviewReason(r *Report) string {
	tried := make([]string, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		tried = append(tried, string(t.Tier))
	}
	missing := slices.Clone(r.Remaining)
	slices.Sort(missing)
	return fmt.Sprintf("missing %s after %s", strings.Join(missing, ", "), strings.Join(tried, ", "))
}
