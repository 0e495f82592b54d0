package cases_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"testing"
	"time"

	"github.com/JaimeStill/bidwatch/internal/cases"
)

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", cases.ErrNotFound, http.StatusNotFound},
		{"document not found", cases.ErrDocumentNotFound, http.StatusNotFound},
		{"duplicate", cases.ErrDuplicate, http.StatusConflict},
		{"invalid classification", cases.ErrInvalidClassification, http.StatusBadRequest},
		{"unknown field", cases.ErrUnknownField, http.StatusBadRequest},
		{"wrapped invalid request", fmt.Errorf("create: %w", cases.ErrInvalidRequest), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cases.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClassification(t *testing.T) {
	for _, c := range cases.Classifications {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}

	if cases.Classification("pending").Valid() {
		t.Error("pending should be invalid")
	}

	terminal := []cases.Classification{cases.ClosedSold, cases.ClosedDismissed}
	for _, c := range cases.Classifications {
		want := slices.Contains(terminal, c)
		if c.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", c, c.Terminal(), want)
		}
	}
}

func TestInGrace(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	grace := 7 * 24 * time.Hour

	tests := []struct {
		name string
		c    cases.Case
		want bool
	}{
		{"open case", cases.Case{Classification: cases.UpsetBid}, true},
		{"closed without timestamp", cases.Case{Classification: cases.ClosedSold}, true},
		{
			"closed three days ago",
			cases.Case{Classification: cases.ClosedSold, ClosedAt: ptr(now.AddDate(0, 0, -3))},
			true,
		},
		{
			"closed ten days ago",
			cases.Case{Classification: cases.ClosedSold, ClosedAt: ptr(now.AddDate(0, 0, -10))},
			false,
		},
		{
			"closed exactly at window edge",
			cases.Case{Classification: cases.ClosedDismissed, ClosedAt: ptr(now.Add(-grace))},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.InGrace(grace, now); got != tt.want {
				t.Errorf("InGrace() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortEvents(t *testing.T) {
	events := []cases.Event{
		{ID: 1, EventDate: date(2026, 3, 1)},
		{ID: 2},
		{ID: 3, EventDate: date(2026, 3, 5)},
		{ID: 4, EventDate: date(2026, 3, 5)},
		{ID: 5},
		{ID: 6, EventDate: date(2026, 2, 1)},
	}

	cases.SortEvents(events)

	var got []int64
	for _, e := range events {
		got = append(got, e.ID)
	}

	want := []int64{4, 3, 1, 6, 5, 2}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestRequiredFieldsMissing(t *testing.T) {
	required := cases.DefaultRequiredFields()

	t.Run("complete upset bid case", func(t *testing.T) {
		c := &cases.Case{
			Classification:   cases.UpsetBid,
			CurrentBidAmount: ptr(245000.0),
			MinimumNextBid:   ptr(257250.0),
			NextBidDeadline:  date(2026, 3, 16),
			SaleDate:         date(2026, 3, 2),
			PropertyAddress:  ptr("12 Oak St"),
		}
		if missing := required.Missing(c); len(missing) != 0 {
			t.Errorf("missing = %v, want none", missing)
		}
	})

	t.Run("empty address counts as missing", func(t *testing.T) {
		c := &cases.Case{
			Classification:   cases.UpsetBid,
			CurrentBidAmount: ptr(245000.0),
			MinimumNextBid:   ptr(257250.0),
			NextBidDeadline:  date(2026, 3, 16),
			SaleDate:         date(2026, 3, 2),
			PropertyAddress:  ptr(""),
		}
		missing := required.Missing(c)
		if !slices.Equal(missing, []string{cases.FieldPropertyAddress}) {
			t.Errorf("missing = %v, want [%s]", missing, cases.FieldPropertyAddress)
		}
	})

	t.Run("classification without requirements", func(t *testing.T) {
		c := &cases.Case{Classification: cases.Upcoming}
		if missing := required.Missing(c); len(missing) != 0 {
			t.Errorf("missing = %v, want none", missing)
		}
	})
}

func TestRequiredFieldsValidate(t *testing.T) {
	tests := []struct {
		name     string
		required cases.RequiredFields
		wantErr  error
	}{
		{"defaults", cases.DefaultRequiredFields(), nil},
		{"unknown classification", cases.RequiredFields{"pending": {cases.FieldSaleDate}}, cases.ErrInvalidClassification},
		{"unknown field", cases.RequiredFields{cases.Blocked: {"notes"}}, cases.ErrUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.required.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	values := url.Values{
		"classification":   {"upset_bid"},
		"county":           {"wake"},
		"case_number":      {"24SP"},
		"property_address": {"oak"},
		"needs_review":     {"true"},
		"deadline_from":    {"2024-03-01"},
		"deadline_to":      {"2024-04-01T17:00:00-04:00"},
	}

	f := cases.FiltersFromQuery(values)

	if f.Classification == nil || *f.Classification != "upset_bid" {
		t.Errorf("classification = %v, want upset_bid", f.Classification)
	}
	if f.County == nil || *f.County != "wake" {
		t.Errorf("county = %v, want wake", f.County)
	}
	if f.CaseNumber == nil || *f.CaseNumber != "24SP" {
		t.Errorf("case_number = %v, want 24SP", f.CaseNumber)
	}
	if f.PropertyAddress == nil || *f.PropertyAddress != "oak" {
		t.Errorf("property_address = %v, want oak", f.PropertyAddress)
	}
	if f.NeedsReview == nil || !*f.NeedsReview {
		t.Errorf("needs_review = %v, want true", f.NeedsReview)
	}

	if f.DeadlineFrom == nil || !f.DeadlineFrom.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("deadline_from = %v, want 2024-03-01", f.DeadlineFrom)
	}
	if f.DeadlineTo == nil || !f.DeadlineTo.Equal(time.Date(2024, 4, 1, 21, 0, 0, 0, time.UTC)) {
		t.Errorf("deadline_to = %v, want 2024-04-01T21:00Z", f.DeadlineTo)
	}

	empty := cases.FiltersFromQuery(url.Values{
		"needs_review":  {"maybe"},
		"deadline_from": {"next week"},
	})
	if empty.NeedsReview != nil {
		t.Error("unparseable needs_review should be ignored")
	}
	if empty.DeadlineFrom != nil {
		t.Error("unparseable deadline_from should be ignored")
	}
}

func TestDocumentProcessed(t *testing.T) {
	now := time.Now()

	if (cases.Document{}).Processed() {
		t.Error("new document should not be processed")
	}
	if !(cases.Document{ExtractionAttemptedAt: &now}).Processed() {
		t.Error("OCR attempt should mark processed")
	}
	if !(cases.Document{VisionProcessedAt: &now}).Processed() {
		t.Error("vision pass should mark processed")
	}
}

func TestConfidenceRank(t *testing.T) {
	if cases.ConfidenceHigh.Rank() <= cases.ConfidenceMedium.Rank() {
		t.Error("high should outrank medium")
	}
	if cases.ConfidenceMedium.Rank() <= cases.ConfidenceLow.Rank() {
		t.Error("medium should outrank low")
	}
	if cases.Confidence("").Rank() != 0 {
		t.Error("unknown confidence should rank zero")
	}
}
