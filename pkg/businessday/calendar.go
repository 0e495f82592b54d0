// Package businessday computes legal deadlines over a weekend and holiday calendar.
// All results are normalized to the calendar's close of business so that a
// deadline compares correctly against any timestamp on its final day.
package businessday

import (
	"fmt"
	"time"
)

// Calendar answers business-day questions for a single jurisdiction.
// It is immutable after construction and safe for concurrent use.
type Calendar struct {
	loc         *time.Location
	closeHour   int
	closeMinute int
	holidays    map[string]struct{}
}

// New builds a Calendar from a finalized Config.
func New(cfg *Config) (*Calendar, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}

	cob, err := time.Parse(clockLayout, cfg.CloseOfBusiness)
	if err != nil {
		return nil, fmt.Errorf("parse close of business: %w", err)
	}

	holidays := make(map[string]struct{}, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		d, err := time.Parse(dateLayout, h)
		if err != nil {
			return nil, fmt.Errorf("parse holiday %q: %w", h, err)
		}
		holidays[d.Format(dateLayout)] = struct{}{}
	}

	return &Calendar{
		loc:         loc,
		closeHour:   cob.Hour(),
		closeMinute: cob.Minute(),
		holidays:    holidays,
	}, nil
}

// Location returns the calendar's time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// IsHoliday reports whether t falls on a configured holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[c.dateKey(t)]
	return ok
}

// IsBusinessDay reports whether t falls on a weekday that is not a holiday.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	switch c.civil(t).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(t)
}

// AddBusinessDays returns the date n business days after start. The start day
// itself is never counted. The result carries start's clock time.
func (c *Calendar) AddBusinessDays(start time.Time, n int) time.Time {
	day := c.civil(start)
	for n > 0 {
		day = day.AddDate(0, 0, 1)
		if c.IsBusinessDay(day) {
			n--
		}
	}
	return day
}

// NextBusinessDay returns t if it is a business day, otherwise the first
// business day after it.
func (c *Calendar) NextBusinessDay(t time.Time) time.Time {
	day := c.civil(t)
	for !c.IsBusinessDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// Deadline returns close of business on the day offset business days after start.
func (c *Calendar) Deadline(start time.Time, offset int) time.Time {
	return c.EndOfDay(c.AddBusinessDays(start, offset))
}

// EndOfDay normalizes t to close of business on its calendar date.
func (c *Calendar) EndOfDay(t time.Time) time.Time {
	d := c.civil(t)
	return time.Date(d.Year(), d.Month(), d.Day(), c.closeHour, c.closeMinute, 0, 0, c.loc)
}

// Elapsed reports whether the deadline has passed as of now.
func (c *Calendar) Elapsed(deadline, now time.Time) bool {
	return now.After(deadline)
}

// civil interprets t as a calendar date in the calendar's location. Dates
// stored without a zone (midnight UTC) keep their calendar day rather than
// shifting to the previous evening.
func (c *Calendar) civil(t time.Time) time.Time {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
	}
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), c.loc)
}

func (c *Calendar) dateKey(t time.Time) string {
	return c.civil(t).Format(dateLayout)
}
