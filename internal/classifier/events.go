package classifier

import (
	"regexp"

	"github.com/JaimeStill/bidwatch/internal/cases"
)

// Category is the legal significance of a docket event.
type Category string

// Event categories.
const (
	Sale          Category = "sale"
	UpsetBid      Category = "upset_bid"
	Blocking      Category = "blocking"
	Unblock       Category = "unblock"
	Dismissal     Category = "dismissal"
	SaleVoided    Category = "sale_voided"
	Resale        Category = "resale"
	SaleScheduled Category = "sale_scheduled"
	SaleConfirmed Category = "sale_confirmed"
	Other         Category = "other"
)

// Qualifying reports whether the category matters for classification.
func (c Category) Qualifying() bool {
	switch c {
	case Other, SaleScheduled, SaleConfirmed:
		return false
	}
	return true
}

type rule struct {
	category Category
	re       *regexp.Regexp
}

// Rules are evaluated in order. Unblock precedes Dismissal and Blocking so
// "bankruptcy dismissed" lifts a stay rather than closing the case.
// SaleConfirmed precedes Sale so a final report never opens a new cycle.
var rules = []rule{
	{Unblock, regexp.MustCompile(`(?i)(stay\s+(is\s+)?(lifted|terminated|dissolved|vacated)|relief\s+from\s+(the\s+)?(automatic\s+)?stay|lift(ing)?\s+(of\s+)?(the\s+)?stay|bankruptcy\s+(case\s+)?(dismissed|closed|discharged)|appeal\s+(dismissed|withdrawn))`)},
	{SaleVoided, regexp.MustCompile(`(?i)(set(ting)?\s+aside|\bvacat(e|ed|ing)\b|\bvoid(ed|ing)?\b|rescind)`)},
	{Resale, regexp.MustCompile(`(?i)\bre-?sale\b`)},
	{UpsetBid, regexp.MustCompile(`(?i)\bupset\s+bid`)},
	{SaleConfirmed, regexp.MustCompile(`(?i)(final\s+report(\s+and\s+account)?\s+of\s+(foreclosure\s+)?sale|confirm(ation|ing|ed)?\s+(of\s+)?(the\s+)?sale)`)},
	{Sale, regexp.MustCompile(`(?i)(report\s+of\s+(foreclosure\s+)?sale|sale\s+(was\s+)?(held|conducted))`)},
	{Dismissal, regexp.MustCompile(`(?i)(voluntary\s+dismissal|\bdismiss(al|ed)?\b)`)},
	{Blocking, regexp.MustCompile(`(?i)(bankruptcy|automatic\s+stay|\bstay\b|\bappeal|injunction|restraining\s+order)`)},
	{SaleScheduled, regexp.MustCompile(`(?i)(notice\s+of\s+(foreclosure\s+)?sale|sale\s+scheduled|order\s+(for|of|permitting)\s+sale)`)},
}

// Categorize assigns a category to e from its type, falling back to the
// description when the type is unrecognized.
func Categorize(e cases.Event) Category {
	if c := match(e.EventType); c != Other {
		return c
	}
	return match(e.EventDescription)
}

func match(text string) Category {
	if text == "" {
		return Other
	}
	for _, r := range rules {
		if r.re.MatchString(text) {
			return r.category
		}
	}
	return Other
}
