package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/pkg/storage"
)

// Store records where a downloaded document now lives.
type Store interface {
	MarkStored(ctx context.Context, documentID uuid.UUID, cmd cases.StoredCommand) error
}

// Downloader re-fetches document files from the portal into blob storage.
type Downloader struct {
	fetcher Fetcher
	blobs   storage.System
	store   Store
	prefix  string
	logger  *slog.Logger
}

// NewDownloader creates a Downloader that writes under prefix.
func NewDownloader(fetcher Fetcher, blobs storage.System, store Store, prefix string, logger *slog.Logger) *Downloader {
	return &Downloader{
		fetcher: fetcher,
		blobs:   blobs,
		store:   store,
		prefix:  prefix,
		logger:  logger.With("system", "downloader"),
	}
}

// Key returns the blob key for a case document.
func (d *Downloader) Key(c cases.Case, doc cases.Document) string {
	return path.Join(d.prefix, c.CaseNumber, doc.ID.String()+"-"+path.Base(doc.FilePath))
}

// Download fetches one document, uploads it, and records the new storage
// key. The page count is best effort; a file pdfcpu cannot read is still
// stored.
func (d *Downloader) Download(ctx context.Context, c cases.Case, doc cases.Document) (*cases.StoredCommand, error) {
	rc, err := d.fetcher.Fetch(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read document body: %w", ErrTransientFetch, err)
	}

	cmd := cases.StoredCommand{StorageKey: d.Key(c, doc)}

	if n, err := api.PageCount(bytes.NewReader(data), nil); err != nil {
		d.logger.WarnContext(ctx, "page count unavailable", "document_id", doc.ID, "error", err)
	} else {
		cmd.PageCount = &n
	}

	if err := d.blobs.Upload(ctx, cmd.StorageKey, bytes.NewReader(data), "application/pdf"); err != nil {
		return nil, fmt.Errorf("upload document %s: %w", doc.ID, err)
	}

	if err := d.store.MarkStored(ctx, doc.ID, cmd); err != nil {
		return nil, fmt.Errorf("record stored document %s: %w", doc.ID, err)
	}

	d.logger.InfoContext(
		ctx, "document stored",
		"case_id", c.ID,
		"case_number", c.CaseNumber,
		"document_id", doc.ID,
		"key", cmd.StorageKey,
		"bytes", len(data),
	)

	return &cmd, nil
}

// DownloadAll downloads every document with a source URL. It continues past
// individual failures and returns the number stored with the joined errors.
func (d *Downloader) DownloadAll(ctx context.Context, c cases.Case, docs []cases.Document) (int, error) {
	var errs []error
	stored := 0

	for _, doc := range docs {
		if doc.SourceURL == nil {
			continue
		}
		if _, err := d.Download(ctx, c, doc); err != nil {
			errs = append(errs, fmt.Errorf("document %s: %w", doc.ID, err))
			continue
		}
		stored++
	}

	return stored, errors.Join(errs...)
}
