package cases

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/pkg/pagination"
	"github.com/JaimeStill/bidwatch/pkg/query"
	"github.com/JaimeStill/bidwatch/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a case repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "cases"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Case], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "CaseNumber", "PropertyAddress", "County")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count cases: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanCase)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Case, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanCase)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) FindByNumber(ctx context.Context, caseNumber string) (*Case, error) {
	q, args := query.NewBuilder(projection).BuildSingle("CaseNumber", caseNumber)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanCase)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Case, error) {
	if strings.TrimSpace(cmd.CaseNumber) == "" {
		return nil, fmt.Errorf("%w: case_number required", ErrInvalidRequest)
	}

	q := `
		INSERT INTO cases(case_number, county)
		VALUES ($1, $2)
		RETURNING ` + caseColumns

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Case, error) {
		return repository.QueryOne(ctx, tx, q, []any{cmd.CaseNumber, cmd.County}, scanCase)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("case created", "id", c.ID, "case_number", c.CaseNumber)
	return &c, nil
}

func (r *repo) Apply(ctx context.Context, id uuid.UUID, u Update) (*Case, error) {
	if !u.Classification.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidClassification, u.Classification)
	}

	q := `
		UPDATE cases SET
			classification = $2::text,
			current_bid_amount = $3,
			minimum_next_bid = $4,
			next_bid_deadline = $5,
			sale_date = $6,
			property_address = $7,
			legal_description = $8,
			sale_cycle_start = $9,
			closed_at = CASE
				WHEN $2::text IN ('closed_sold', 'closed_dismissed') THEN
					CASE WHEN classification = $2::text AND closed_at IS NOT NULL
						THEN closed_at
						ELSE NOW()
					END
				ELSE NULL
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + caseColumns

	args := []any{
		id,
		string(u.Classification),
		u.CurrentBidAmount,
		u.MinimumNextBid,
		u.NextBidDeadline,
		u.SaleDate,
		u.PropertyAddress,
		u.LegalDescription,
		u.SaleCycleStart,
	}

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Case, error) {
		return repository.QueryOne(ctx, tx, q, args, scanCase)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &c, nil
}

func (r *repo) SetReview(ctx context.Context, id uuid.UUID, reason *string) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE cases SET needs_review = $2, review_reason = $3, updated_at = NOW() WHERE id = $1",
		id, reason != nil, reason,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) SetNarrative(ctx context.Context, id uuid.UUID, narrative string) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE cases SET narrative = $2, updated_at = NOW() WHERE id = $1",
		id, narrative,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) Monitored(ctx context.Context, grace time.Duration, now time.Time) ([]Case, error) {
	q := `
		SELECT ` + caseColumns + `
		FROM cases
		WHERE classification NOT IN ('closed_sold', 'closed_dismissed')
		   OR closed_at IS NULL
		   OR closed_at >= $1
		ORDER BY case_number`

	items, err := repository.QueryMany(ctx, r.db, q, []any{now.Add(-grace)}, scanCase)
	if err != nil {
		return nil, fmt.Errorf("query monitored cases: %w", err)
	}
	return slices.DeleteFunc(items, func(c Case) bool {
		return !c.InGrace(grace, now)
	}), nil
}

func (r *repo) NeedingAttention(ctx context.Context, required RequiredFields) ([]Case, error) {
	if err := required.Validate(); err != nil {
		return nil, err
	}

	q, args := needingAttentionQuery(required)
	if q == "" {
		return []Case{}, nil
	}

	items, err := repository.QueryMany(ctx, r.db, q, args, scanCase)
	if err != nil {
		return nil, fmt.Errorf("query cases needing attention: %w", err)
	}
	return items, nil
}

func (r *repo) Events(ctx context.Context, caseID uuid.UUID) ([]Event, error) {
	q := `
		SELECT ` + eventColumns + `
		FROM case_events
		WHERE case_id = $1
		ORDER BY event_date DESC NULLS LAST, id DESC`

	events, err := repository.QueryMany(ctx, r.db, q, []any{caseID}, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return events, nil
}

func (r *repo) AppendEvent(ctx context.Context, caseID uuid.UUID, cmd AppendEventCommand) (*Event, error) {
	if strings.TrimSpace(cmd.EventType) == "" {
		return nil, fmt.Errorf("%w: event_type required", ErrInvalidRequest)
	}

	q := `
		INSERT INTO case_events(case_id, event_date, event_type, event_description, filed_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + eventColumns

	args := []any{caseID, cmd.EventDate, cmd.EventType, cmd.EventDescription, cmd.FiledBy}

	e, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Event, error) {
		return repository.QueryOne(ctx, tx, q, args, scanEvent)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("event appended", "case_id", caseID, "event_id", e.ID, "event_type", e.EventType)
	return &e, nil
}

func (r *repo) Documents(ctx context.Context, caseID uuid.UUID) ([]Document, error) {
	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE case_id = $1
		ORDER BY document_date ASC NULLS LAST, created_at ASC`

	docs, err := repository.QueryMany(ctx, r.db, q, []any{caseID}, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	return docs, nil
}

func (r *repo) AddDocument(ctx context.Context, caseID uuid.UUID, cmd AddDocumentCommand) (*Document, error) {
	if strings.TrimSpace(cmd.FilePath) == "" {
		return nil, fmt.Errorf("%w: file_path required", ErrInvalidRequest)
	}

	q := `
		INSERT INTO documents(case_id, file_path, source_url, storage_key, document_date, page_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + documentColumns

	args := []any{caseID, cmd.FilePath, cmd.SourceURL, cmd.StorageKey, cmd.DocumentDate, cmd.PageCount}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, args, scanDocument)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrDocumentNotFound, ErrDuplicate)
	}

	r.logger.Info("document added", "case_id", caseID, "document_id", d.ID)
	return &d, nil
}

func (r *repo) MarkProcessed(ctx context.Context, documentID uuid.UUID, cmd ProcessedCommand) error {
	var extractionJSON *string
	if cmd.Extraction != nil {
		data, err := json.Marshal(cmd.Extraction)
		if err != nil {
			return fmt.Errorf("marshal extraction: %w", err)
		}
		raw := string(data)
		extractionJSON = &raw
	}

	var q string
	switch cmd.Method {
	case MethodVision:
		q = `
			UPDATE documents SET
				vision_processed_at = NOW(),
				extraction_attempted_at = COALESCE(extraction_attempted_at, NOW()),
				ocr_text = COALESCE($2, ocr_text),
				extraction = COALESCE($3::jsonb, extraction)
			WHERE id = $1`
	case MethodOCR:
		q = `
			UPDATE documents SET
				extraction_attempted_at = NOW(),
				ocr_text = COALESCE($2, ocr_text),
				extraction = COALESCE($3::jsonb, extraction)
			WHERE id = $1`
	default:
		return fmt.Errorf("%w: unknown extraction method %q", ErrInvalidRequest, cmd.Method)
	}

	err := repository.ExecExpectOne(ctx, r.db, q, documentID, cmd.OCRText, extractionJSON)
	return repository.MapError(err, ErrDocumentNotFound, ErrDuplicate)
}

func (r *repo) MarkStored(ctx context.Context, documentID uuid.UUID, cmd StoredCommand) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE documents SET storage_key = $2, page_count = COALESCE($3, page_count) WHERE id = $1",
		documentID, cmd.StorageKey, cmd.PageCount,
	)
	return repository.MapError(err, ErrDocumentNotFound, ErrDuplicate)
}

func (r *repo) ResetDocuments(ctx context.Context, caseID uuid.UUID) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE documents SET
			extraction_attempted_at = NULL,
			vision_processed_at = NULL,
			ocr_text = NULL
		WHERE case_id = $1`,
		caseID,
	)
	if err != nil {
		return fmt.Errorf("reset documents: %w", err)
	}

	r.logger.Info("documents reset for re-extraction", "case_id", caseID)
	return nil
}

// needingAttentionQuery builds one OR branch per classification with required
// fields. Field names are validated before reaching here, so they are safe to
// interpolate as column names.
func needingAttentionQuery(required RequiredFields) (string, []any) {
	var branches []string
	var args []any

	for _, class := range Classifications {
		fields := required[class]
		if len(fields) == 0 {
			continue
		}

		missing := make([]string, len(fields))
		for i, f := range fields {
			missing[i] = fmt.Sprintf("NULLIF(%s::text, '') IS NULL", f)
		}

		args = append(args, string(class))
		branches = append(branches, fmt.Sprintf(
			"(classification = $%d AND (%s))",
			len(args),
			strings.Join(missing, " OR "),
		))
	}

	if len(branches) == 0 {
		return "", nil
	}

	q := `
		SELECT ` + caseColumns + `
		FROM cases
		WHERE ` + strings.Join(branches, " OR ") + `
		ORDER BY next_bid_deadline ASC NULLS LAST, case_number`

	return q, args
}
