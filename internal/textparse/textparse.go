// Package textparse holds the heuristic grammar shared by the OCR field
// parser and the event description parser: dollar amounts, court dates, and
// street addresses. Every function returns nil when nothing plausible is
// found; callers treat results as best available signal, never as authority.
package textparse

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	amountRe = regexp.MustCompile(`\$\s?([0-9]{1,3}(?:,[0-9]{3})+|[0-9]+)(\.[0-9]{2})?`)

	numericDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	longDateRe    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	addressRe = regexp.MustCompile(`(?i)\b(\d{1,6}\s+(?:[NSEW]\.?\s+)?[A-Za-z0-9.' ]{2,40}?\s(?:street|st|avenue|ave|road|rd|drive|dr|lane|ln|court|ct|circle|cir|boulevard|blvd|way|place|pl|trail|trl|parkway|pkwy|highway|hwy)\b\.?)(?:\s*,?\s*(?:apt|unit|#)\s*[A-Za-z0-9-]+)?(?:\s*,\s*([A-Za-z .]+?),?\s+(?:NC|North Carolina)\s*(\d{5})?)?`)
)

// MinAmount is the smallest dollar figure treated as a bid. Smaller figures
// are filing fees and costs.
const MinAmount = 100.0

// Amount is a dollar figure and its byte offset in the source text.
type Amount struct {
	Value  float64
	Offset int
}

// Amounts returns every plausible dollar figure in text in source order.
func Amounts(text string) []Amount {
	var out []Amount
	for _, m := range amountRe.FindAllStringSubmatchIndex(text, -1) {
		whole := strings.ReplaceAll(text[m[2]:m[3]], ",", "")
		frac := ""
		if m[4] >= 0 {
			frac = text[m[4]:m[5]]
		}
		v, err := strconv.ParseFloat(whole+frac, 64)
		if err != nil || v < MinAmount {
			continue
		}
		out = append(out, Amount{Value: v, Offset: m[0]})
	}
	return out
}

// AmountNear returns the first dollar figure that follows one of the keywords
// within window bytes. Keywords are matched case-insensitively.
func AmountNear(text string, window int, keywords ...string) *float64 {
	lower := strings.ToLower(text)
	amounts := Amounts(text)

	for _, kw := range keywords {
		idx := strings.Index(lower, strings.ToLower(kw))
		for idx >= 0 {
			end := idx + len(kw)
			for _, a := range amounts {
				if a.Offset >= end && a.Offset-end <= window {
					v := a.Value
					return &v
				}
			}
			next := strings.Index(lower[end:], strings.ToLower(kw))
			if next < 0 {
				break
			}
			idx = end + next
		}
	}
	return nil
}

// Date is a calendar date found in text and its byte offset.
type Date struct {
	Value  time.Time
	Offset int
}

// Dates returns every recognizable date in text in source order, as UTC
// midnight values.
func Dates(text string) []Date {
	var out []Date

	for _, m := range numericDateRe.FindAllStringSubmatchIndex(text, -1) {
		month, _ := strconv.Atoi(text[m[2]:m[3]])
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if t, ok := civil(year, month, day); ok {
			out = append(out, Date{Value: t, Offset: m[0]})
		}
	}

	for _, m := range longDateRe.FindAllStringSubmatchIndex(text, -1) {
		month := monthIndex(text[m[2]:m[3]])
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if t, ok := civil(year, month, day); ok {
			out = append(out, Date{Value: t, Offset: m[0]})
		}
	}

	for _, m := range isoDateRe.FindAllStringSubmatchIndex(text, -1) {
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		day, _ := strconv.Atoi(text[m[6]:m[7]])
		if t, ok := civil(year, month, day); ok {
			out = append(out, Date{Value: t, Offset: m[0]})
		}
	}

	slices.SortStableFunc(out, func(a, b Date) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
	return out
}

// DateNear returns the first date that follows one of the keywords within
// window bytes.
func DateNear(text string, window int, keywords ...string) *time.Time {
	lower := strings.ToLower(text)
	dates := Dates(text)

	for _, kw := range keywords {
		idx := strings.Index(lower, strings.ToLower(kw))
		if idx < 0 {
			continue
		}
		end := idx + len(kw)
		for _, d := range dates {
			if d.Offset >= end && d.Offset-end <= window {
				v := d.Value
				return &v
			}
		}
	}
	return nil
}

// ParseDate parses a single date string in any supported layout.
func ParseDate(s string) *time.Time {
	dates := Dates(strings.TrimSpace(s))
	if len(dates) == 0 {
		return nil
	}
	return &dates[0].Value
}

// Address returns the first street address in text, whitespace-collapsed.
func Address(text string) *string {
	m := addressRe.FindString(text)
	if m == "" {
		return nil
	}
	addr := strings.Join(strings.Fields(m), " ")
	addr = strings.TrimRight(addr, ", ")
	return &addr
}

func civil(year, month, day int) (time.Time, bool) {
	if year < 1900 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func monthIndex(name string) int {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(m.String(), name) {
			return int(m)
		}
	}
	return 0
}
