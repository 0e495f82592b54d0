package classifier

import "errors"

var (
	// ErrInvariantViolation signals a programming defect: a deadline was
	// derived from something other than the most recent qualifying event.
	ErrInvariantViolation = errors.New("classification invariant violated")
	ErrNoCalendar         = errors.New("business day calendar required")
)
