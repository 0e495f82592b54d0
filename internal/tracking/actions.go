package tracking

import (
	"context"
	"fmt"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/extraction"
)

// Reextract forces every document back through extraction. Any document
// failure fails the attempt so the tier can retry it.
func (t *tracker) Reextract(ctx context.Context, c cases.Case) error {
	outcome, err := t.reclassify(ctx, c.ID, extraction.Options{Force: true})
	if err != nil {
		return err
	}
	if outcome.failures != nil {
		return fmt.Errorf("re-extract %s: %w", c.CaseNumber, outcome.failures)
	}
	return nil
}

// Redownload fetches every document again, clears their processing marks,
// and reclassifies so the fresh copies are extracted.
func (t *tracker) Redownload(ctx context.Context, c cases.Case) error {
	if t.downloader == nil {
		return ErrNoPortal
	}

	docs, err := t.store.Documents(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	stored, err := t.downloader.DownloadAll(ctx, c, docs)
	if err != nil && stored == 0 {
		return fmt.Errorf("redownload %s: %w", c.CaseNumber, err)
	}
	if err != nil {
		t.logger.WarnContext(
			ctx, "partial redownload",
			"case_id", c.ID,
			"case_number", c.CaseNumber,
			"stored", stored,
			"error", err,
		)
	}

	if err := t.store.ResetDocuments(ctx, c.ID); err != nil {
		return fmt.Errorf("reset documents %s: %w", c.CaseNumber, err)
	}

	outcome, err := t.reclassify(ctx, c.ID, extraction.Options{})
	if err != nil {
		return err
	}
	if outcome.failures != nil {
		return fmt.Errorf("re-extract %s after redownload: %w", c.CaseNumber, outcome.failures)
	}
	return nil
}

// Recrawl asks the crawler to refresh the case, then redownloads.
func (t *tracker) Recrawl(ctx context.Context, c cases.Case) error {
	if t.crawler == nil {
		return ErrNoPortal
	}
	if err := t.crawler.Crawl(ctx, c.CaseNumber); err != nil {
		return fmt.Errorf("recrawl %s: %w", c.CaseNumber, err)
	}
	return t.Redownload(ctx, c)
}

// VisionSweep runs the vision extractor over every document that has not had
// a vision pass. It is the background task dispatched on entry to upset_bid.
func (t *tracker) VisionSweep(ctx context.Context, c cases.Case) error {
	_, err := t.reclassify(ctx, c.ID, extraction.Options{Vision: true})
	return err
}
