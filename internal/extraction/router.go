package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
)

// Recorder persists extraction outcomes. cases.System satisfies it.
type Recorder interface {
	MarkProcessed(ctx context.Context, documentID uuid.UUID, cmd cases.ProcessedCommand) error
}

// Options alter which documents Process runs.
type Options struct {
	// Force re-runs documents that were already processed.
	Force bool
	// Vision routes every document that has not had a vision pass to the
	// vision extractor regardless of classification.
	Vision bool
}

// Batch is the outcome of processing a case's documents. Results holds a
// result for every document with extracted fields, including documents
// processed on earlier runs.
type Batch struct {
	Results   []Result
	Errors    map[uuid.UUID]error
	Processed int
	Skipped   int
	Fallbacks int
}

// Failed reports whether any document failed this run.
func (b *Batch) Failed() bool {
	return len(b.Errors) > 0
}

// Router chooses an extractor per document and records the outcome.
type Router struct {
	ocr      Extractor
	vision   Extractor
	recorder Recorder
	logger   *slog.Logger

	mu       sync.RWMutex
	patterns *PatternTable
}

// NewRouter creates a Router. A nil pattern table skips nothing.
func NewRouter(
	ocr Extractor,
	vision Extractor,
	patterns *PatternTable,
	recorder Recorder,
	logger *slog.Logger,
) *Router {
	if patterns == nil {
		patterns = EmptyPatterns()
	}
	return &Router{
		ocr:      ocr,
		vision:   vision,
		patterns: patterns,
		recorder: recorder,
		logger:   logger.With("system", "extraction"),
	}
}

// Patterns returns the skip table in use.
func (r *Router) Patterns() *PatternTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.patterns
}

// MergePatterns merges update into the skip table in use and swaps the
// merged table in. Batches already running keep the table they started with.
func (r *Router) MergePatterns(update *PatternTable) (*PatternTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged, err := r.patterns.Merge(update)
	if err != nil {
		return nil, err
	}
	r.patterns = merged

	r.logger.Info(
		"skip patterns updated",
		"version", merged.Version,
		"patterns", len(merged.Patterns),
	)
	return merged, nil
}

// Route picks the extractor for doc. Cases with an active upset bid get the
// vision extractor; everything else uses OCR.
func (r *Router) Route(class cases.Classification, doc cases.Document) Extractor {
	if class == cases.UpsetBid {
		return r.vision
	}
	return r.ocr
}

// Process runs extraction over docs for c. Documents already processed are
// skipped unless forced, but their stored results are still returned so the
// merge sees every document. A failure on one document never stops the rest.
func (r *Router) Process(ctx context.Context, c *cases.Case, docs []cases.Document, opts Options) *Batch {
	batch := &Batch{Errors: make(map[uuid.UUID]error)}
	patterns := r.Patterns()

	for _, doc := range docs {
		if ctx.Err() != nil {
			batch.Errors[doc.ID] = ctx.Err()
			continue
		}

		extractor, run := r.plan(c.Classification, doc, opts)
		if !run {
			if doc.Extraction != nil && !doc.Extraction.Empty() {
				batch.Results = append(batch.Results, withDocumentDate(*doc.Extraction, doc))
			}
			continue
		}

		if p, ok := patterns.Match(doc); ok {
			r.skip(ctx, c, doc, p, batch)
			continue
		}

		result, err := r.extract(ctx, c, doc, extractor, batch)
		if err != nil {
			batch.Errors[doc.ID] = err
			r.logger.WarnContext(
				ctx, "document extraction failed",
				"case_id", c.ID,
				"case_number", c.CaseNumber,
				"document_id", doc.ID,
				"method", extractor.Method(),
				"error", err,
			)
			if doc.Extraction != nil && !doc.Extraction.Empty() {
				batch.Results = append(batch.Results, withDocumentDate(*doc.Extraction, doc))
			}
			continue
		}

		batch.Processed++
		if result != nil && !result.Empty() {
			batch.Results = append(batch.Results, withDocumentDate(*result, doc))
		}
	}

	return batch
}

func (r *Router) plan(class cases.Classification, doc cases.Document, opts Options) (Extractor, bool) {
	if opts.Vision {
		if doc.VisionProcessedAt != nil && !opts.Force {
			return nil, false
		}
		return r.vision, true
	}

	if doc.Processed() && !opts.Force {
		return nil, false
	}

	return r.Route(class, doc), true
}

func (r *Router) extract(
	ctx context.Context,
	c *cases.Case,
	doc cases.Document,
	extractor Extractor,
	batch *Batch,
) (*Result, error) {
	out, err := extractor.Extract(ctx, doc)
	if errors.Is(err, ErrBudgetExceeded) && extractor.Method() == cases.MethodVision {
		r.logger.WarnContext(
			ctx, "vision budget exhausted, falling back to ocr",
			"case_id", c.ID,
			"document_id", doc.ID,
		)
		batch.Fallbacks++
		extractor = r.ocr
		out, err = extractor.Extract(ctx, doc)
	}
	if err != nil {
		return nil, err
	}

	cmd := cases.ProcessedCommand{
		Method:     extractor.Method(),
		OCRText:    out.Text,
		Extraction: out.Result,
	}
	if out.Result != nil && out.Result.Empty() {
		cmd.Extraction = nil
	}

	if err := r.recorder.MarkProcessed(ctx, doc.ID, cmd); err != nil {
		return nil, fmt.Errorf("record extraction: %w", err)
	}

	return out.Result, nil
}

func (r *Router) skip(ctx context.Context, c *cases.Case, doc cases.Document, p Pattern, batch *Batch) {
	batch.Skipped++

	err := r.recorder.MarkProcessed(ctx, doc.ID, cases.ProcessedCommand{Method: cases.MethodOCR})
	if err != nil {
		batch.Errors[doc.ID] = fmt.Errorf("%w: %w", ErrSkipped, err)
		return
	}

	r.logger.DebugContext(
		ctx, "document skipped",
		"case_id", c.ID,
		"document_id", doc.ID,
		"pattern", p.Name,
	)
}

// withDocumentDate fills the result's document date from the document row
// when the extractor found none, so staleness filtering can use it.
func withDocumentDate(res Result, doc cases.Document) Result {
	res.DocumentID = doc.ID
	if res.DocumentDate == nil {
		res.DocumentDate = doc.DocumentDate
	}
	return res
}
