package cases

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/JaimeStill/bidwatch/pkg/query"
	"github.com/JaimeStill/bidwatch/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "cases", "c").
	Project("id", "ID").
	Project("case_number", "CaseNumber").
	Project("county", "County").
	Project("classification", "Classification").
	ProjectNullable("current_bid_amount", "CurrentBidAmount").
	ProjectNullable("minimum_next_bid", "MinimumNextBid").
	ProjectNullable("next_bid_deadline", "NextBidDeadline").
	ProjectNullable("sale_date", "SaleDate").
	ProjectNullable("property_address", "PropertyAddress").
	ProjectNullable("legal_description", "LegalDescription").
	ProjectNullable("sale_cycle_start", "SaleCycleStart").
	ProjectNullable("closed_at", "ClosedAt").
	Project("needs_review", "NeedsReview").
	Project("review_reason", "ReviewReason").
	Project("narrative", "Narrative").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "NextBidDeadline",
	Descending: false,
}

const caseColumns = `id, case_number, county, classification, current_bid_amount,
	minimum_next_bid, next_bid_deadline, sale_date, property_address,
	legal_description, sale_cycle_start, closed_at, needs_review,
	review_reason, narrative, created_at, updated_at`

const eventColumns = `id, case_id, event_date, event_type, event_description, filed_by, created_at`

const documentColumns = `id, case_id, file_path, source_url, storage_key, document_date,
	page_count, ocr_text, extraction, extraction_attempted_at,
	vision_processed_at, created_at`

// Filters contains optional filtering criteria for case queries.
// Nil fields are ignored. CaseNumber and PropertyAddress use case-insensitive
// contains matching. DeadlineFrom and DeadlineTo bound next_bid_deadline to
// [from, to).
type Filters struct {
	Classification  *string `json:"classification,omitempty"`
	County          *string `json:"county,omitempty"`
	CaseNumber      *string `json:"case_number,omitempty"`
	PropertyAddress *string `json:"property_address,omitempty"`
	NeedsReview     *bool   `json:"needs_review,omitempty"`

	DeadlineFrom *time.Time `json:"deadline_from,omitempty"`
	DeadlineTo   *time.Time `json:"deadline_to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Classification", f.Classification).
		WhereEquals("County", f.County).
		WhereContains("CaseNumber", f.CaseNumber).
		WhereContains("PropertyAddress", f.PropertyAddress).
		WhereEquals("NeedsReview", f.NeedsReview).
		WhereRange("NextBidDeadline", f.DeadlineFrom, f.DeadlineTo)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("classification"); c != "" {
		f.Classification = &c
	}

	if c := values.Get("county"); c != "" {
		f.County = &c
	}

	if n := values.Get("case_number"); n != "" {
		f.CaseNumber = &n
	}

	if a := values.Get("property_address"); a != "" {
		f.PropertyAddress = &a
	}

	if r := values.Get("needs_review"); r != "" {
		if v, err := strconv.ParseBool(r); err == nil {
			f.NeedsReview = &v
		}
	}

	f.DeadlineFrom = parseDate(values.Get("deadline_from"))
	f.DeadlineTo = parseDate(values.Get("deadline_to"))

	return f
}

// parseDate accepts RFC 3339 timestamps or bare YYYY-MM-DD dates (midnight
// UTC). Unparseable input yields nil.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func scanCase(s repository.Scanner) (Case, error) {
	var c Case
	var class string

	err := s.Scan(
		&c.ID,
		&c.CaseNumber,
		&c.County,
		&class,
		&c.CurrentBidAmount,
		&c.MinimumNextBid,
		&c.NextBidDeadline,
		&c.SaleDate,
		&c.PropertyAddress,
		&c.LegalDescription,
		&c.SaleCycleStart,
		&c.ClosedAt,
		&c.NeedsReview,
		&c.ReviewReason,
		&c.Narrative,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	c.Classification = Classification(class)
	return c, err
}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event
	err := s.Scan(
		&e.ID,
		&e.CaseID,
		&e.EventDate,
		&e.EventType,
		&e.EventDescription,
		&e.FiledBy,
		&e.CreatedAt,
	)
	return e, err
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	var extractionRaw []byte

	err := s.Scan(
		&d.ID,
		&d.CaseID,
		&d.FilePath,
		&d.SourceURL,
		&d.StorageKey,
		&d.DocumentDate,
		&d.PageCount,
		&d.OCRText,
		&extractionRaw,
		&d.ExtractionAttemptedAt,
		&d.VisionProcessedAt,
		&d.CreatedAt,
	)

	if err != nil {
		return d, err
	}

	if len(extractionRaw) > 0 {
		var x Extraction
		if err := json.Unmarshal(extractionRaw, &x); err != nil {
			return d, fmt.Errorf("unmarshal extraction: %w", err)
		}
		d.Extraction = &x
	}

	return d, nil
}
