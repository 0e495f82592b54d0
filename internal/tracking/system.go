package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/diagnosis"
	"github.com/JaimeStill/bidwatch/internal/extraction"
)

// System defines the classification and repair operations.
type System interface {
	Handler() *Handler
	// Reclassify extracts, decides, merges, and applies one case.
	Reclassify(ctx context.Context, id uuid.UUID) (*Outcome, error)
	// Diagnose runs the repair tiers for one case.
	Diagnose(ctx context.Context, id uuid.UUID, dryRun bool) (*diagnosis.Report, error)
	// Sweep reclassifies every monitored case once.
	Sweep(ctx context.Context) (*SweepReport, error)
	// DiagnoseAll repairs every case missing required fields.
	DiagnoseAll(ctx context.Context) (*diagnosis.RunReport, error)
	// Usage reports vision spend for the current day.
	Usage() extraction.Usage
	// Patterns returns the document skip table in use.
	Patterns() *extraction.PatternTable
	// MergePatterns merges update into the skip table, persists the result
	// when a patterns file is configured, and returns the new table.
	MergePatterns(ctx context.Context, update *extraction.PatternTable) (*extraction.PatternTable, error)
}

// Store is the slice of the case domain tracking reads and writes.
// cases.System satisfies it.
type Store interface {
	Find(ctx context.Context, id uuid.UUID) (*cases.Case, error)
	Apply(ctx context.Context, id uuid.UUID, u cases.Update) (*cases.Case, error)
	SetReview(ctx context.Context, id uuid.UUID, reason *string) error
	Monitored(ctx context.Context, grace time.Duration, now time.Time) ([]cases.Case, error)
	NeedingAttention(ctx context.Context, required cases.RequiredFields) ([]cases.Case, error)
	Events(ctx context.Context, caseID uuid.UUID) ([]cases.Event, error)
	Documents(ctx context.Context, caseID uuid.UUID) ([]cases.Document, error)
	MarkProcessed(ctx context.Context, documentID uuid.UUID, cmd cases.ProcessedCommand) error
	MarkStored(ctx context.Context, documentID uuid.UUID, cmd cases.StoredCommand) error
	ResetDocuments(ctx context.Context, caseID uuid.UUID) error
}

// Downloader re-fetches a case's documents into storage.
type Downloader interface {
	DownloadAll(ctx context.Context, c cases.Case, docs []cases.Document) (int, error)
}

// Crawler refreshes a case from the portal.
type Crawler interface {
	Crawl(ctx context.Context, caseNumber string) error
}

// Dispatcher receives classification transitions.
type Dispatcher interface {
	OnTransition(c cases.Case, from, to cases.Classification) int
}

// Outcome is the result of reclassifying one case.
type Outcome struct {
	Case       *cases.Case          `json:"case"`
	Previous   cases.Classification `json:"previous"`
	Transition bool                 `json:"transition"`
	Skipped    bool                 `json:"skipped"`
	Reason     string               `json:"reason"`
	Review     string               `json:"review,omitempty"`
	Anchor     *cases.Event         `json:"anchor,omitempty"`
	Extraction ExtractionSummary    `json:"extraction"`
	Sources    map[string]string    `json:"sources,omitempty"`
	Dispatched int                  `json:"dispatched"`

	failures error
}

// ExtractionSummary counts the documents touched during a reclassification.
type ExtractionSummary struct {
	Processed int               `json:"processed"`
	Skipped   int               `json:"skipped"`
	Fallbacks int               `json:"fallbacks"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// SweepReport summarizes a classification sweep.
type SweepReport struct {
	Cases        int               `json:"cases"`
	Reclassified int               `json:"reclassified"`
	Transitions  int               `json:"transitions"`
	Skipped      int               `json:"skipped"`
	Failed       int               `json:"failed"`
	Errors       map[string]string `json:"errors,omitempty"`
	Started      time.Time         `json:"started"`
	Duration     string            `json:"duration"`
}
