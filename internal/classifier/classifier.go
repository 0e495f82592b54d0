// Package classifier derives a case's lifecycle state from its event log.
//
// Decide is pure. It never reads the stored deadline: the deadline is always
// recomputed from the most recent qualifying event in the current sale cycle,
// and only then compared against now.
package classifier

import (
	"fmt"
	"slices"
	"time"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/textparse"
	"github.com/JaimeStill/bidwatch/pkg/businessday"
)

// DefaultUpsetBidDays is the statutory upset bid window in business days.
const DefaultUpsetBidDays = 10

// Input is everything Decide needs.
type Input struct {
	Case         cases.Case
	Events       []cases.Event
	Calendar     *businessday.Calendar
	Now          time.Time
	Grace        time.Duration
	UpsetBidDays int
}

// Decision is the computed state for a case.
type Decision struct {
	Classification cases.Classification
	Previous       cases.Classification
	Deadline       *time.Time
	SaleDate       *time.Time
	CycleStart     *time.Time
	BidAmount      *float64
	BidDate        *time.Time
	// Anchor is the event the deadline was computed from.
	Anchor *cases.Event
	// Transition is true when Classification differs from Previous.
	Transition bool
	// Skipped is true for closed cases outside the grace window; nothing
	// else in the decision is meaningful.
	Skipped bool
	Reason  string
	// Review is set when the events cannot support the classification the
	// clock would otherwise give and a person should look at the case.
	Review string
}

type categorized struct {
	event    cases.Event
	category Category
}

func (c categorized) date() time.Time {
	return *c.event.EventDate
}

// cycle is one sale and everything dated on or after it until it is voided.
type cycle struct {
	start  time.Time
	sale   *categorized
	events []categorized
}

// Decide computes the classification for in.Case from in.Events.
func Decide(in Input) (Decision, error) {
	if in.Calendar == nil {
		return Decision{}, ErrNoCalendar
	}

	days := in.UpsetBidDays
	if days <= 0 {
		days = DefaultUpsetBidDays
	}

	d := Decision{
		Classification: in.Case.Classification,
		Previous:       in.Case.Classification,
	}

	if !in.Case.InGrace(in.Grace, in.Now) {
		d.Skipped = true
		d.Reason = "closed outside grace window"
		return d, nil
	}

	events := chronological(in.Events)

	// (1) sale cycle
	cyc, scheduled := saleCycle(events)

	// (2) most recent qualifying event overall
	latest := latestQualifying(events)

	switch {
	case latest != nil && latest.category == Dismissal:
		d.Classification = cases.ClosedDismissed
		d.Reason = "dismissal is the most recent qualifying event"
		applyCycle(&d, cyc)

	case cyc != nil:
		if err := decideCycle(&d, cyc, in.Calendar, days, in.Now); err != nil {
			return Decision{}, err
		}

	default:
		if blocker := lastOf(events, Blocking, Unblock); blocker != nil && blocker.category == Blocking {
			d.Classification = cases.Blocked
			d.Reason = fmt.Sprintf("%q with no sale", blocker.event.EventType)
		} else {
			d.Classification = cases.Upcoming
			d.Reason = "no sale in the event log"
		}
		d.SaleDate = scheduled
	}

	d.Transition = d.Classification != d.Previous
	return d, nil
}

func decideCycle(d *Decision, cyc *cycle, cal *businessday.Calendar, days int, now time.Time) error {
	applyCycle(d, cyc)

	// (2) most recent qualifying event in the cycle
	latest := lastOf(cyc.events, Blocking, Unblock, Sale, UpsetBid)
	if latest != nil && latest.category == Blocking {
		d.Classification = cases.Blocked
		d.Reason = fmt.Sprintf("%q postdates the sale", latest.event.EventType)
		return nil
	}

	anchor := lastOf(cyc.events, Sale, UpsetBid, Unblock)
	if anchor == nil {
		return fmt.Errorf("%w: active sale cycle without an anchor event", ErrInvariantViolation)
	}

	// (3) deadline from the anchor
	deadline := cal.Deadline(anchor.date(), days)

	if err := guard(anchor, latest, deadline); err != nil {
		return err
	}

	e := anchor.event
	d.Anchor = &e
	d.Deadline = &deadline

	// (4) only now compare against the clock
	switch {
	case cal.Elapsed(deadline, now) && cyc.sale == nil:
		d.Classification = cases.UpsetBid
		d.Reason = fmt.Sprintf("upset bid period ended %s", deadline.Format(time.DateOnly))
		d.Review = fmt.Sprintf("upset bid period ended %s without a report of sale", deadline.Format(time.DateOnly))
	case cal.Elapsed(deadline, now):
		d.Classification = cases.ClosedSold
		d.Reason = fmt.Sprintf("upset bid period ended %s", deadline.Format(time.DateOnly))
	default:
		d.Classification = cases.UpsetBid
		d.Reason = fmt.Sprintf("upset bid period open until %s after %q", deadline.Format(time.DateOnly), anchor.event.EventType)
	}

	return nil
}

// guard enforces that the deadline came from the most recent qualifying event
// and does not precede it.
func guard(anchor, latest *categorized, deadline time.Time) error {
	if latest != nil && latest.date().After(anchor.date()) {
		return fmt.Errorf("%w: deadline anchored on %s but %q on %s is more recent",
			ErrInvariantViolation,
			anchor.date().Format(time.DateOnly),
			latest.event.EventType,
			latest.date().Format(time.DateOnly),
		)
	}
	if deadline.Before(anchor.date()) {
		return fmt.Errorf("%w: deadline %s precedes anchor %s",
			ErrInvariantViolation,
			deadline.Format(time.RFC3339),
			anchor.date().Format(time.DateOnly),
		)
	}
	return nil
}

func applyCycle(d *Decision, cyc *cycle) {
	if cyc == nil {
		return
	}

	start := cyc.start
	d.CycleStart = &start

	if cyc.sale != nil {
		sale := cyc.sale.date()
		d.SaleDate = &sale
	}

	for i := len(cyc.events) - 1; i >= 0; i-- {
		c := cyc.events[i]
		if c.category != Sale && c.category != UpsetBid {
			continue
		}
		if amount := BidAmount(c.event.EventDescription); amount != nil {
			date := c.date()
			d.BidAmount = amount
			d.BidDate = &date
			return
		}
	}
}

// chronological returns dated events oldest first. Undated events are not
// recency signals and are dropped.
func chronological(events []cases.Event) []categorized {
	sorted := slices.Clone(events)
	cases.SortEvents(sorted)

	var out []categorized
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		if !e.Dated() {
			continue
		}
		out = append(out, categorized{event: e, category: Categorize(e)})
	}
	return out
}

// saleCycle walks events oldest first and returns the active cycle, if any,
// plus the latest scheduled sale date announced outside a cycle.
func saleCycle(events []categorized) (*cycle, *time.Time) {
	var cyc *cycle
	var scheduled *time.Time

	for _, c := range events {
		switch c.category {
		case Sale:
			cyc = &cycle{start: c.date(), sale: &c}
		case UpsetBid:
			if cyc == nil {
				cyc = &cycle{start: c.date()}
			}
		case SaleVoided, Resale:
			cyc = nil
			if c.category == Resale {
				scheduled = announced(c.event)
			}
			continue
		case SaleScheduled:
			if cyc == nil {
				scheduled = announced(c.event)
			}
		}

		if cyc != nil {
			cyc.events = append(cyc.events, c)
		}
	}

	if cyc != nil {
		scheduled = nil
	}
	return cyc, scheduled
}

func announced(e cases.Event) *time.Time {
	if d := textparse.DateNear(e.EventDescription, 60, "sale on", "sale date", "scheduled for", "to be held"); d != nil {
		return d
	}
	return textparse.ParseDate(e.EventDescription)
}

func latestQualifying(events []categorized) *categorized {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].category.Qualifying() {
			return &events[i]
		}
	}
	return nil
}

func lastOf(events []categorized, categories ...Category) *categorized {
	for i := len(events) - 1; i >= 0; i-- {
		if slices.Contains(categories, events[i].category) {
			return &events[i]
		}
	}
	return nil
}
