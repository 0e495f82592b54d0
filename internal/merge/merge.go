// Package merge reconciles per-document extraction results and event-derived
// values into one set of case fields.
//
// Precedence:
//   - address and legal description are sticky: a value already on the case
//     is never replaced
//   - bid amounts come from the event log unless a document from the current
//     sale cycle is dated after the event that supplied the amount
//   - deadline is event-derived only
//   - documents dated before the current sale cycle never contribute bid or
//     sale date values
package merge

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/extraction"
)

// Statutory upset bid increment: five percent of the current bid with a
// $750 floor.
const (
	IncrementRate    = 0.05
	IncrementMinimum = 750.0
)

// Source identifies where a merged value came from.
type Source string

// Value sources.
const (
	SourceEvent    Source = "event"
	SourceDocument Source = "document"
	SourceDerived  Source = "derived"
	SourceCurrent  Source = "current"
)

// EventFields are the values the classifier derived from the event log.
// BidDate is the date of the event that supplied BidAmount.
type EventFields struct {
	BidAmount      *float64
	BidDate        *time.Time
	MinimumNextBid *float64
	SaleDate       *time.Time
	Deadline       *time.Time
}

// Fields is the merged result.
type Fields struct {
	CurrentBidAmount *float64
	MinimumNextBid   *float64
	NextBidDeadline  *time.Time
	SaleDate         *time.Time
	PropertyAddress  *string
	LegalDescription *string
	Sources          map[string]Source
	// BidDocument is set when a document supplied the bid amount.
	BidDocument *uuid.UUID
}

// MinimumDerived reports whether the minimum next bid was computed.
func (f Fields) MinimumDerived() bool {
	return f.Sources[cases.FieldMinimumNextBid] == SourceDerived
}

// Merge combines current case values, event-derived values, and document
// results for the sale cycle starting at cycleStart. A nil cycleStart means
// no sale is active and bid fields are cleared.
func Merge(current cases.Case, cycleStart *time.Time, results []extraction.Result, ev EventFields) Fields {
	f := Fields{Sources: make(map[string]Source)}

	f.PropertyAddress = sticky(f, cases.FieldPropertyAddress, current.PropertyAddress, results,
		func(r extraction.Result) *string { return r.PropertyAddress }, NormalizeAddress)
	f.LegalDescription = sticky(f, cases.FieldLegalDescription, current.LegalDescription, results,
		func(r extraction.Result) *string { return r.LegalDescription }, collapse)

	if ev.Deadline != nil {
		f.NextBidDeadline = ev.Deadline
		f.Sources[cases.FieldNextBidDeadline] = SourceEvent
	}

	if cycleStart == nil {
		if ev.SaleDate != nil {
			f.SaleDate = ev.SaleDate
			f.Sources[cases.FieldSaleDate] = SourceEvent
		}
		return f
	}

	qualifying := inCycle(results, *cycleStart)
	sameCycle := sameTime(current.SaleCycleStart, cycleStart)

	mergeBid(&f, current, qualifying, ev, sameCycle)
	mergeMinimum(&f, current, qualifying, ev, sameCycle)
	mergeSaleDate(&f, current, qualifying, ev, sameCycle)

	return f
}

// MinimumNextBid applies the statutory increment to bid, rounded up to the
// cent.
func MinimumNextBid(bid float64) float64 {
	increment := max(bid*IncrementRate, IncrementMinimum)
	// the epsilon absorbs float noise so exact cents are not bumped
	return math.Ceil((bid+increment)*100-1e-6) / 100
}

func sticky(
	f Fields,
	field string,
	current *string,
	results []extraction.Result,
	get func(extraction.Result) *string,
	normalize func(string) string,
) *string {
	if current != nil && *current != "" {
		f.Sources[field] = SourceCurrent
		return current
	}

	candidates := slices.DeleteFunc(slices.Clone(results), func(r extraction.Result) bool {
		v := get(r)
		return v == nil || *v == ""
	})
	if len(candidates) == 0 {
		return nil
	}

	slices.SortStableFunc(candidates, compareEarliest)

	v := normalize(*get(candidates[0]))
	f.Sources[field] = SourceDocument
	return &v
}

func mergeBid(f *Fields, current cases.Case, qualifying []extraction.Result, ev EventFields, sameCycle bool) {
	doc, ok := latest(qualifying, func(r extraction.Result) bool { return r.BidAmount != nil })

	switch {
	case ev.BidAmount != nil && (!ok || !after(doc.DocumentDate, ev.BidDate)):
		f.CurrentBidAmount = ev.BidAmount
		f.Sources[cases.FieldCurrentBidAmount] = SourceEvent
	case ok:
		f.CurrentBidAmount = doc.BidAmount
		f.Sources[cases.FieldCurrentBidAmount] = SourceDocument
		id := doc.DocumentID
		f.BidDocument = &id
	case sameCycle && current.CurrentBidAmount != nil:
		f.CurrentBidAmount = current.CurrentBidAmount
		f.Sources[cases.FieldCurrentBidAmount] = SourceCurrent
	}
}

func mergeMinimum(f *Fields, current cases.Case, qualifying []extraction.Result, ev EventFields, sameCycle bool) {
	if ev.MinimumNextBid != nil && f.Sources[cases.FieldCurrentBidAmount] == SourceEvent {
		f.MinimumNextBid = ev.MinimumNextBid
		f.Sources[cases.FieldMinimumNextBid] = SourceEvent
		return
	}

	// A document minimum only counts when it is at least as recent as the
	// bid it applies to.
	var bidDate *time.Time
	switch f.Sources[cases.FieldCurrentBidAmount] {
	case SourceEvent:
		bidDate = ev.BidDate
	case SourceDocument:
		for _, r := range qualifying {
			if f.BidDocument != nil && r.DocumentID == *f.BidDocument {
				bidDate = r.DocumentDate
			}
		}
	}

	doc, ok := latest(qualifying, func(r extraction.Result) bool {
		return r.MinimumNextBid != nil && !after(bidDate, r.DocumentDate)
	})
	if ok {
		f.MinimumNextBid = doc.MinimumNextBid
		f.Sources[cases.FieldMinimumNextBid] = SourceDocument
		return
	}

	if f.CurrentBidAmount != nil {
		if f.Sources[cases.FieldCurrentBidAmount] == SourceCurrent && current.MinimumNextBid != nil {
			f.MinimumNextBid = current.MinimumNextBid
			f.Sources[cases.FieldMinimumNextBid] = SourceCurrent
			return
		}
		v := MinimumNextBid(*f.CurrentBidAmount)
		f.MinimumNextBid = &v
		f.Sources[cases.FieldMinimumNextBid] = SourceDerived
		return
	}

	if sameCycle && current.MinimumNextBid != nil {
		f.MinimumNextBid = current.MinimumNextBid
		f.Sources[cases.FieldMinimumNextBid] = SourceCurrent
	}
}

func mergeSaleDate(f *Fields, current cases.Case, qualifying []extraction.Result, ev EventFields, sameCycle bool) {
	if ev.SaleDate != nil {
		f.SaleDate = ev.SaleDate
		f.Sources[cases.FieldSaleDate] = SourceEvent
		return
	}

	if doc, ok := latest(qualifying, func(r extraction.Result) bool { return r.SaleDate != nil }); ok {
		f.SaleDate = doc.SaleDate
		f.Sources[cases.FieldSaleDate] = SourceDocument
		return
	}

	if sameCycle && current.SaleDate != nil {
		f.SaleDate = current.SaleDate
		f.Sources[cases.FieldSaleDate] = SourceCurrent
	}
}

// inCycle keeps dated results on or after the cycle start. Undated results
// cannot be placed in a cycle and are excluded.
func inCycle(results []extraction.Result, cycleStart time.Time) []extraction.Result {
	var out []extraction.Result
	for _, r := range results {
		if r.DocumentDate != nil && !r.DocumentDate.Before(cycleStart) {
			out = append(out, r)
		}
	}
	return out
}

// latest returns the most recent result satisfying keep. Ties on date break
// by confidence, then vision over OCR, then lowest document ID.
func latest(results []extraction.Result, keep func(extraction.Result) bool) (extraction.Result, bool) {
	var best extraction.Result
	found := false

	for _, r := range results {
		if !keep(r) {
			continue
		}
		if !found || compareLatest(r, best) < 0 {
			best = r
			found = true
		}
	}

	return best, found
}

func compareLatest(a, b extraction.Result) int {
	if c := compareDates(b.DocumentDate, a.DocumentDate); c != 0 {
		return c
	}
	return tiebreak(a, b)
}

func compareEarliest(a, b extraction.Result) int {
	if c := compareDates(a.DocumentDate, b.DocumentDate); c != 0 {
		return c
	}
	return tiebreak(a, b)
}

func tiebreak(a, b extraction.Result) int {
	if c := cmp.Compare(b.Confidence.Rank(), a.Confidence.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(methodRank(b.Method), methodRank(a.Method)); c != 0 {
		return c
	}
	return slices.Compare(a.DocumentID[:], b.DocumentID[:])
}

// compareDates orders nil after any date.
func compareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

func methodRank(m cases.Method) int {
	if m == cases.MethodVision {
		return 1
	}
	return 0
}

// after reports whether a is strictly after b. A nil on either side is false.
func after(a, b *time.Time) bool {
	return a != nil && b != nil && a.After(*b)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
