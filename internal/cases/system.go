package cases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/pkg/pagination"
)

// System defines the public contract for case domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Case], error)

	Find(ctx context.Context, id uuid.UUID) (*Case, error)
	FindByNumber(ctx context.Context, caseNumber string) (*Case, error)
	Create(ctx context.Context, cmd CreateCommand) (*Case, error)

	// Apply writes a reclassification atomically. ClosedAt is set when the
	// case enters a closed state and cleared when it leaves one.
	Apply(ctx context.Context, id uuid.UUID, u Update) (*Case, error)
	SetReview(ctx context.Context, id uuid.UUID, reason *string) error
	SetNarrative(ctx context.Context, id uuid.UUID, narrative string) error

	// Monitored returns every open case plus closed cases whose closed_at is
	// within grace of now.
	Monitored(ctx context.Context, grace time.Duration, now time.Time) ([]Case, error)
	// NeedingAttention returns cases missing at least one required field for
	// their classification.
	NeedingAttention(ctx context.Context, required RequiredFields) ([]Case, error)

	Events(ctx context.Context, caseID uuid.UUID) ([]Event, error)
	AppendEvent(ctx context.Context, caseID uuid.UUID, cmd AppendEventCommand) (*Event, error)

	Documents(ctx context.Context, caseID uuid.UUID) ([]Document, error)
	AddDocument(ctx context.Context, caseID uuid.UUID, cmd AddDocumentCommand) (*Document, error)
	MarkProcessed(ctx context.Context, documentID uuid.UUID, cmd ProcessedCommand) error
	MarkStored(ctx context.Context, documentID uuid.UUID, cmd StoredCommand) error
	ResetDocuments(ctx context.Context, caseID uuid.UUID) error
}
