package classifier

import (
	"github.com/JaimeStill/bidwatch/internal/textparse"
)

var amountKeywords = []string{
	"upset bid in the amount of",
	"bid in the amount of",
	"bid amount",
	"amount of",
	"upset bid of",
	"bid of",
	"sold for",
	"high bid",
	"bid",
}

// BidAmount pulls the bid from an event description. A figure following a
// bid keyword wins; otherwise the largest figure is taken since deposits and
// costs are smaller than the bid they accompany. The result is a best
// available signal and is always replaced by a later event.
func BidAmount(description string) *float64 {
	if v := textparse.AmountNear(description, 40, amountKeywords...); v != nil {
		return v
	}

	amounts := textparse.Amounts(description)
	if len(amounts) == 0 {
		return nil
	}

	best := amounts[0].Value
	for _, a := range amounts[1:] {
		best = max(best, a.Value)
	}
	return &best
}
