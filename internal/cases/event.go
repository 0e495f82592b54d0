package cases

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable docket entry posted by the portal.
// EventDate is nil for the many party filings the portal posts without a date.
type Event struct {
	ID               int64      `json:"id"`
	CaseID           uuid.UUID  `json:"case_id"`
	EventDate        *time.Time `json:"event_date"`
	EventType        string     `json:"event_type"`
	EventDescription string     `json:"event_description"`
	FiledBy          string     `json:"filed_by"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Dated reports whether the event carries a usable date.
func (e Event) Dated() bool {
	return e.EventDate != nil
}

// AppendEventCommand carries a crawled event into the log.
type AppendEventCommand struct {
	EventDate        *time.Time `json:"event_date"`
	EventType        string     `json:"event_type"`
	EventDescription string     `json:"event_description"`
	FiledBy          string     `json:"filed_by"`
}

// SortEvents orders events most recent first: event_date descending with
// undated events last, then id descending. Insertion order does not track
// portal posting order, so every "most recent" question must use this order.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, CompareRecent)
}

// CompareRecent orders a before b when a is more recent.
func CompareRecent(a, b Event) int {
	switch {
	case a.EventDate == nil && b.EventDate == nil:
	case a.EventDate == nil:
		return 1
	case b.EventDate == nil:
		return -1
	default:
		if c := b.EventDate.Compare(*a.EventDate); c != 0 {
			return c
		}
	}
	return cmp.Compare(b.ID, a.ID)
}
