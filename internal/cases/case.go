// Package cases implements the foreclosure case domain for bidwatch.
// It owns the case read model, the append-only event log, and the document
// records produced by the portal crawler, along with the atomic update that
// persists classification and extraction results.
package cases

import (
	"time"

	"github.com/google/uuid"
)

// Classification is the lifecycle state of a case.
type Classification string

// Lifecycle states.
const (
	Upcoming        Classification = "upcoming"
	UpsetBid        Classification = "upset_bid"
	Blocked         Classification = "blocked"
	ClosedSold      Classification = "closed_sold"
	ClosedDismissed Classification = "closed_dismissed"
)

// Classifications lists every valid state.
var Classifications = []Classification{
	Upcoming,
	UpsetBid,
	Blocked,
	ClosedSold,
	ClosedDismissed,
}

// Valid reports whether c is a known state.
func (c Classification) Valid() bool {
	switch c {
	case Upcoming, UpsetBid, Blocked, ClosedSold, ClosedDismissed:
		return true
	}
	return false
}

// Terminal reports whether c is a closed state.
func (c Classification) Terminal() bool {
	return c == ClosedSold || c == ClosedDismissed
}

// Case is one legal proceeding and its derived fields.
type Case struct {
	ID               uuid.UUID      `json:"id"`
	CaseNumber       string         `json:"case_number"`
	County           string         `json:"county"`
	Classification   Classification `json:"classification"`
	CurrentBidAmount *float64       `json:"current_bid_amount"`
	MinimumNextBid   *float64       `json:"minimum_next_bid"`
	NextBidDeadline  *time.Time     `json:"next_bid_deadline"`
	SaleDate         *time.Time     `json:"sale_date"`
	PropertyAddress  *string        `json:"property_address"`
	LegalDescription *string        `json:"legal_description"`
	SaleCycleStart   *time.Time     `json:"sale_cycle_start"`
	ClosedAt         *time.Time     `json:"closed_at"`
	NeedsReview      bool           `json:"needs_review"`
	ReviewReason     *string        `json:"review_reason"`
	Narrative        *string        `json:"narrative"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// InGrace reports whether a closed case is still inside the reclassification
// grace window. Cases that are not closed are always eligible, and a closed
// case with no closing time counts as just closed. Monitored applies the same
// rule.
func (c *Case) InGrace(grace time.Duration, now time.Time) bool {
	if !c.Classification.Terminal() {
		return true
	}
	if c.ClosedAt == nil {
		return true
	}
	return !now.After(c.ClosedAt.Add(grace))
}

// Update carries every field the tracking pipeline may write in one
// transaction. Classification-owned fields and extraction-owned fields are
// written together so readers never observe a half-applied reclassification.
type Update struct {
	Classification   Classification
	CurrentBidAmount *float64
	MinimumNextBid   *float64
	NextBidDeadline  *time.Time
	SaleDate         *time.Time
	PropertyAddress  *string
	LegalDescription *string
	SaleCycleStart   *time.Time
}

// CreateCommand registers a case discovered by the crawler.
type CreateCommand struct {
	CaseNumber string `json:"case_number"`
	County     string `json:"county"`
}
