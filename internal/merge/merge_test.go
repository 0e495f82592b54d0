package merge_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/extraction"
	"github.com/JaimeStill/bidwatch/internal/merge"
)

func ptr[T any](v T) *T { return &v }

func day(m time.Month, d int) *time.Time {
	t := time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func result(date *time.Time, conf cases.Confidence, method cases.Method) extraction.Result {
	return extraction.Result{
		DocumentID:   uuid.New(),
		Method:       method,
		Confidence:   conf,
		DocumentDate: date,
	}
}

func TestAddressIsSticky(t *testing.T) {
	current := cases.Case{PropertyAddress: ptr("12 Oak St")}

	r := result(day(3, 20), cases.ConfidenceHigh, cases.MethodVision)
	r.PropertyAddress = ptr("99 Different Rd")

	f := merge.Merge(current, day(3, 1), []extraction.Result{r}, merge.EventFields{})

	if f.PropertyAddress == nil || *f.PropertyAddress != "12 Oak St" {
		t.Errorf("address = %v, want unchanged 12 Oak St", f.PropertyAddress)
	}
	if f.Sources[cases.FieldPropertyAddress] != merge.SourceCurrent {
		t.Errorf("source = %s, want current", f.Sources[cases.FieldPropertyAddress])
	}
}

func TestAddressFirstSetWins(t *testing.T) {
	early := result(day(1, 5), cases.ConfidenceLow, cases.MethodOCR)
	early.PropertyAddress = ptr("12 OAK STREET, RALEIGH, NC 27601")

	late := result(day(3, 5), cases.ConfidenceHigh, cases.MethodVision)
	late.PropertyAddress = ptr("12 Oak St Apt 4")

	undated := result(nil, cases.ConfidenceHigh, cases.MethodVision)
	undated.PropertyAddress = ptr("Unknown")

	f := merge.Merge(cases.Case{}, nil, []extraction.Result{undated, late, early}, merge.EventFields{})

	if f.PropertyAddress == nil || *f.PropertyAddress != "12 Oak Street, Raleigh, NC 27601" {
		t.Errorf("address = %v, want earliest document normalized", f.PropertyAddress)
	}
}

func TestAddressSameDateHigherConfidence(t *testing.T) {
	low := result(day(1, 5), cases.ConfidenceLow, cases.MethodOCR)
	low.PropertyAddress = ptr("12 Oak Sreet")

	high := result(day(1, 5), cases.ConfidenceHigh, cases.MethodVision)
	high.PropertyAddress = ptr("12 Oak Street")

	f := merge.Merge(cases.Case{}, nil, []extraction.Result{low, high}, merge.EventFields{})

	if *f.PropertyAddress != "12 Oak Street" {
		t.Errorf("address = %s, want higher confidence value", *f.PropertyAddress)
	}
}

func TestStaleCycleDocumentsExcluded(t *testing.T) {
	firstCycle := result(day(2, 3), cases.ConfidenceHigh, cases.MethodVision)
	firstCycle.BidAmount = ptr(999999.0)
	firstCycle.MinimumNextBid = ptr(1049999.0)
	firstCycle.SaleDate = day(2, 1)

	secondCycle := result(day(3, 12), cases.ConfidenceMedium, cases.MethodOCR)
	secondCycle.BidAmount = ptr(180000.0)

	current := cases.Case{
		SaleCycleStart:   day(2, 1),
		CurrentBidAmount: ptr(999999.0),
		SaleDate:         day(2, 1),
	}

	f := merge.Merge(current, day(3, 10), []extraction.Result{firstCycle, secondCycle}, merge.EventFields{})

	if f.CurrentBidAmount == nil || *f.CurrentBidAmount != 180000 {
		t.Errorf("bid = %v, want 180000 from the current cycle", f.CurrentBidAmount)
	}
	if f.MinimumNextBid == nil || *f.MinimumNextBid != 189000 {
		t.Errorf("minimum = %v, want derived 189000", f.MinimumNextBid)
	}
	if f.SaleDate != nil {
		t.Errorf("sale date = %v, want nil; prior cycle values must not carry over", f.SaleDate)
	}
}

func TestEventAmountBeatsDocument(t *testing.T) {
	doc := result(day(3, 2), cases.ConfidenceHigh, cases.MethodVision)
	doc.BidAmount = ptr(240000.0)

	ev := merge.EventFields{
		BidAmount: ptr(245000.0),
		BidDate:   day(3, 2),
		SaleDate:  day(3, 2),
		Deadline:  ptr(time.Date(2026, 3, 16, 17, 0, 0, 0, time.UTC)),
	}

	f := merge.Merge(cases.Case{}, day(3, 2), []extraction.Result{doc}, ev)

	if *f.CurrentBidAmount != 245000 {
		t.Errorf("bid = %v, want event amount 245000", *f.CurrentBidAmount)
	}
	if f.Sources[cases.FieldCurrentBidAmount] != merge.SourceEvent {
		t.Errorf("source = %s, want event", f.Sources[cases.FieldCurrentBidAmount])
	}
	if *f.MinimumNextBid != 257250 {
		t.Errorf("minimum = %v, want 257250", *f.MinimumNextBid)
	}
	if !f.MinimumDerived() {
		t.Error("minimum should be marked derived")
	}
	if !f.NextBidDeadline.Equal(*ev.Deadline) {
		t.Errorf("deadline = %v, want event deadline", f.NextBidDeadline)
	}
}

func TestLaterDocumentBeatsOlderEvent(t *testing.T) {
	doc := result(day(3, 9), cases.ConfidenceMedium, cases.MethodOCR)
	doc.BidAmount = ptr(262000.0)
	doc.MinimumNextBid = ptr(275100.0)

	ev := merge.EventFields{BidAmount: ptr(245000.0), BidDate: day(3, 2)}

	f := merge.Merge(cases.Case{}, day(3, 2), []extraction.Result{doc}, ev)

	if *f.CurrentBidAmount != 262000 {
		t.Errorf("bid = %v, want 262000", *f.CurrentBidAmount)
	}
	if *f.MinimumNextBid != 275100 {
		t.Errorf("minimum = %v, want document minimum 275100", *f.MinimumNextBid)
	}
	if f.BidDocument == nil || *f.BidDocument != doc.DocumentID {
		t.Error("bid document should be recorded")
	}
}

func TestDocumentMinimumOlderThanBidIgnored(t *testing.T) {
	older := result(day(3, 3), cases.ConfidenceHigh, cases.MethodVision)
	older.MinimumNextBid = ptr(257250.0)

	ev := merge.EventFields{BidAmount: ptr(270000.0), BidDate: day(3, 8)}

	f := merge.Merge(cases.Case{}, day(3, 2), []extraction.Result{older}, ev)

	if *f.MinimumNextBid != 283500 {
		t.Errorf("minimum = %v, want derived from the newer bid", *f.MinimumNextBid)
	}
}

func TestAmbiguousDocumentsResolveDeterministically(t *testing.T) {
	tests := []struct {
		name string
		a, b extraction.Result
		want float64
	}{
		{
			"confidence first",
			withBid(result(day(3, 5), cases.ConfidenceLow, cases.MethodVision), 1000),
			withBid(result(day(3, 5), cases.ConfidenceHigh, cases.MethodOCR), 2000),
			2000,
		},
		{
			"vision over ocr",
			withBid(result(day(3, 5), cases.ConfidenceMedium, cases.MethodOCR), 1000),
			withBid(result(day(3, 5), cases.ConfidenceMedium, cases.MethodVision), 2000),
			2000,
		},
		{
			"document id last",
			withBid(extraction.Result{DocumentID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), DocumentDate: day(3, 5), Confidence: cases.ConfidenceHigh}, 1000),
			withBid(extraction.Result{DocumentID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), DocumentDate: day(3, 5), Confidence: cases.ConfidenceHigh}, 2000),
			2000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, order := range [][]extraction.Result{{tt.a, tt.b}, {tt.b, tt.a}} {
				f := merge.Merge(cases.Case{}, day(3, 1), order, merge.EventFields{})
				if *f.CurrentBidAmount != tt.want {
					t.Errorf("bid = %v, want %v regardless of order", *f.CurrentBidAmount, tt.want)
				}
			}
		})
	}
}

func TestNoCycleClearsBidFields(t *testing.T) {
	current := cases.Case{
		CurrentBidAmount: ptr(245000.0),
		MinimumNextBid:   ptr(257250.0),
		SaleCycleStart:   day(3, 2),
	}

	doc := withBid(result(day(3, 5), cases.ConfidenceHigh, cases.MethodVision), 250000)

	f := merge.Merge(current, nil, []extraction.Result{doc}, merge.EventFields{SaleDate: day(5, 1)})

	if f.CurrentBidAmount != nil || f.MinimumNextBid != nil || f.NextBidDeadline != nil {
		t.Errorf("bid fields = %v/%v/%v, want nil without an active sale", f.CurrentBidAmount, f.MinimumNextBid, f.NextBidDeadline)
	}
	if f.SaleDate == nil || !f.SaleDate.Equal(*day(5, 1)) {
		t.Errorf("sale date = %v, want scheduled date from events", f.SaleDate)
	}
}

func TestSameCycleKeepsCurrentWhenNothingNew(t *testing.T) {
	current := cases.Case{
		CurrentBidAmount: ptr(245000.0),
		MinimumNextBid:   ptr(260000.0),
		SaleDate:         day(3, 2),
		SaleCycleStart:   day(3, 2),
	}

	f := merge.Merge(current, day(3, 2), nil, merge.EventFields{})

	if *f.CurrentBidAmount != 245000 || *f.MinimumNextBid != 260000 {
		t.Errorf("bid = %v, minimum = %v, want current values kept", *f.CurrentBidAmount, *f.MinimumNextBid)
	}
	if !f.SaleDate.Equal(*day(3, 2)) {
		t.Errorf("sale date = %v", f.SaleDate)
	}
}

func TestMinimumNextBid(t *testing.T) {
	tests := []struct {
		bid  float64
		want float64
	}{
		{245000, 257250},
		{10000, 10750},
		{15000, 15750},
		{15001, 15751.05},
		{100000.10, 105000.11},
	}

	for _, tt := range tests {
		if got := merge.MinimumNextBid(tt.bid); got != tt.want {
			t.Errorf("MinimumNextBid(%v) = %v, want %v", tt.bid, got, tt.want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123 OAK STREET, RALEIGH, NC 27601", "123 Oak Street, Raleigh, NC 27601"},
		{"45  N MAIN ST", "45 N Main St"},
		{"12 Oak St", "12 Oak St"},
	}

	for _, tt := range tests {
		if got := merge.NormalizeAddress(tt.in); got != tt.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func withBid(r extraction.Result, amount float64) extraction.Result {
	r.BidAmount = &amount
	return r
}
