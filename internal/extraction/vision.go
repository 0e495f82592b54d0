package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/textparse"
	"github.com/JaimeStill/bidwatch/pkg/formatting"
	"github.com/JaimeStill/bidwatch/pkg/retry"
	"github.com/JaimeStill/bidwatch/pkg/storage"
)

// State keys for the vision graph.
const (
	keyDocument = "document"
	keyPages    = "pages"
	keyAnswers  = "answers"
	keyResult   = "result"
)

type pageAnswer struct {
	PropertyAddress  *string  `json:"property_address"`
	LegalDescription *string  `json:"legal_description"`
	BidAmount        *float64 `json:"bid_amount"`
	MinimumNextBid   *float64 `json:"minimum_next_bid"`
	SaleDate         *string  `json:"sale_date"`
	DocumentDate     *string  `json:"document_date"`
	Confidence       string   `json:"confidence"`
}

func (a pageAnswer) empty() bool {
	return a.PropertyAddress == nil &&
		a.LegalDescription == nil &&
		a.BidAmount == nil &&
		a.MinimumNextBid == nil &&
		a.SaleDate == nil
}

// VisionExtractor renders a stored PDF and asks a vision model for the
// fields on each page. Pages run concurrently; a finalize step combines
// page answers into one Result.
type VisionExtractor struct {
	storage        storage.System
	renderer       PageRenderer
	client         VisionClient
	budget         *Budget
	limiter        *rate.Limiter
	retry          retry.Policy
	concurrency    int
	maxPages       int
	tokensPerImage int
	logger         *slog.Logger
}

// NewVisionExtractor creates a vision extractor from the extraction config.
func NewVisionExtractor(
	cfg *Config,
	store storage.System,
	renderer PageRenderer,
	client VisionClient,
	budget *Budget,
	limiter *rate.Limiter,
	logger *slog.Logger,
) *VisionExtractor {
	if renderer == nil {
		renderer = ImageMagickRenderer{}
	}
	if limiter == nil {
		limiter = cfg.Limiter()
	}

	policy := retry.Default()
	policy.BaseDelay = cfg.RetryDelayDuration()
	policy.Retryable = func(err error) bool { return errors.Is(err, ErrTransient) }

	return &VisionExtractor{
		storage:        store,
		renderer:       renderer,
		client:         client,
		budget:         budget,
		limiter:        limiter,
		retry:          policy,
		concurrency:    cfg.VisionConcurrency,
		maxPages:       cfg.MaxVisionPages,
		tokensPerImage: cfg.TokensPerImage,
		logger:         logger.With("extractor", "vision"),
	}
}

func (e *VisionExtractor) Method() cases.Method { return cases.MethodVision }

func (e *VisionExtractor) Extract(ctx context.Context, doc cases.Document) (*Output, error) {
	if err := e.budget.Allow(); err != nil {
		return nil, err
	}

	graph, err := e.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	initial := state.New(nil)
	initial = initial.Set(keyDocument, doc)

	final, err := graph.Execute(ctx, initial)
	if err != nil {
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	val, ok := final.Get(keyResult)
	if !ok {
		return nil, fmt.Errorf("missing %s in final state", keyResult)
	}

	result, ok := val.(*Result)
	if !ok {
		return nil, fmt.Errorf("%s is not *Result", keyResult)
	}

	return &Output{Result: result}, nil
}

func (e *VisionExtractor) buildGraph() (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("bidwatch-vision")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("init", e.initNode()); err != nil {
		return nil, err
	}
	if err := graph.AddNode("extract", e.extractNode()); err != nil {
		return nil, err
	}
	if err := graph.AddNode("finalize", e.finalizeNode()); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("init", "extract", hasPages); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("init", "finalize", state.Not(hasPages)); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("extract", "finalize", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("init"); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint("finalize"); err != nil {
		return nil, err
	}

	return graph, nil
}

func (e *VisionExtractor) initNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		doc, err := documentFromState(s)
		if err != nil {
			return s, fmt.Errorf("init: %w", err)
		}

		if doc.StorageKey == nil || *doc.StorageKey == "" {
			return s, fmt.Errorf("init: %w", ErrNoSource)
		}

		body, err := e.storage.Download(ctx, *doc.StorageKey)
		if err != nil {
			return s, fmt.Errorf("init: %w: download: %w", ErrTransient, err)
		}
		defer body.Close()

		pdf, err := io.ReadAll(body)
		if err != nil {
			return s, fmt.Errorf("init: %w: read blob: %w", ErrTransient, err)
		}

		if count, err := api.PageCount(bytes.NewReader(pdf), nil); err != nil {
			e.logger.WarnContext(ctx, "page count unavailable", "document_id", doc.ID, "error", err)
		} else if e.maxPages > 0 && count > e.maxPages {
			e.logger.InfoContext(
				ctx, "document truncated for vision",
				"document_id", doc.ID,
				"page_count", count,
				"max_pages", e.maxPages,
			)
		}

		pages, err := e.renderer.Render(ctx, pdf, e.maxPages)
		if err != nil {
			return s, fmt.Errorf("init: %w", err)
		}

		e.logger.InfoContext(ctx, "vision init complete", "document_id", doc.ID, "pages", len(pages))

		return s.Set(keyPages, pages), nil
	})
}

func (e *VisionExtractor) extractNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		pages := pagesFromState(s)
		answers := make([]pageAnswer, len(pages))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(min(e.concurrency, len(pages)), 1))

		for i, uri := range pages {
			g.Go(func() error {
				answer, err := e.askPage(gctx, uri)
				if err != nil {
					return fmt.Errorf("page %d: %w", i+1, err)
				}
				answers[i] = answer
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return s, fmt.Errorf("extract: %w", err)
		}

		return s.Set(keyAnswers, answers), nil
	})
}

func (e *VisionExtractor) askPage(ctx context.Context, uri string) (pageAnswer, error) {
	if err := e.budget.Allow(); err != nil {
		return pageAnswer{}, err
	}

	var content string
	err := retry.Do(ctx, e.retry, func(ctx context.Context) error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		c, err := e.client.Vision(ctx, visionPrompt, []string{uri})
		if err != nil {
			return err
		}
		content = c
		return nil
	})
	if err != nil {
		return pageAnswer{}, err
	}

	e.budget.Charge(
		EstimateTokens(visionPrompt, 1, e.tokensPerImage),
		EstimateTokens(content, 0, 0),
	)

	answer, err := formatting.Parse[pageAnswer](content)
	if err != nil {
		return pageAnswer{}, fmt.Errorf("parse response: %w", err)
	}

	return answer, nil
}

func (e *VisionExtractor) finalizeNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		doc, err := documentFromState(s)
		if err != nil {
			return s, fmt.Errorf("finalize: %w", err)
		}

		var answers []pageAnswer
		if val, ok := s.Get(keyAnswers); ok {
			answers, _ = val.([]pageAnswer)
		}

		result := combineAnswers(answers)
		result.DocumentID = doc.ID

		e.logger.InfoContext(
			ctx, "vision extraction complete",
			"document_id", doc.ID,
			"pages", len(answers),
			"confidence", result.Confidence,
		)

		return s.Set(keyResult, result), nil
	})
}

// combineAnswers takes each field from the first page that reports it. The
// document confidence is the lowest confidence among contributing pages.
func combineAnswers(answers []pageAnswer) *Result {
	r := &Result{Method: cases.MethodVision}
	var confidence cases.Confidence

	for _, a := range answers {
		if a.empty() {
			continue
		}

		if r.PropertyAddress == nil {
			r.PropertyAddress = nonEmpty(a.PropertyAddress)
		}
		if r.LegalDescription == nil {
			r.LegalDescription = nonEmpty(a.LegalDescription)
		}
		if r.BidAmount == nil && a.BidAmount != nil && *a.BidAmount > 0 {
			r.BidAmount = a.BidAmount
		}
		if r.MinimumNextBid == nil && a.MinimumNextBid != nil && *a.MinimumNextBid > 0 {
			r.MinimumNextBid = a.MinimumNextBid
		}
		if r.SaleDate == nil && a.SaleDate != nil {
			r.SaleDate = textparse.ParseDate(*a.SaleDate)
		}
		if r.DocumentDate == nil && a.DocumentDate != nil {
			r.DocumentDate = textparse.ParseDate(*a.DocumentDate)
		}

		c := cases.Confidence(a.Confidence)
		if confidence == "" || c.Rank() < confidence.Rank() {
			confidence = c
		}
	}

	if confidence.Rank() == 0 {
		confidence = cases.ConfidenceLow
	}
	r.Confidence = confidence

	return r
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func hasPages(s state.State) bool {
	return len(pagesFromState(s)) > 0
}

func pagesFromState(s state.State) []string {
	val, ok := s.Get(keyPages)
	if !ok {
		return nil
	}
	pages, _ := val.([]string)
	return pages
}

func documentFromState(s state.State) (cases.Document, error) {
	val, ok := s.Get(keyDocument)
	if !ok {
		return cases.Document{}, fmt.Errorf("missing %s in state", keyDocument)
	}

	doc, ok := val.(cases.Document)
	if !ok {
		return cases.Document{}, fmt.Errorf("%s is not cases.Document", keyDocument)
	}

	return doc, nil
}
