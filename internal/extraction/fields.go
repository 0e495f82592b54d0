package extraction

import (
	"regexp"
	"strings"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/textparse"
)

const keywordWindow = 60

var (
	bidKeywords = []string{
		"amount of the bid",
		"amount bid",
		"highest bid",
		"bid amount",
		"upset bid of",
		"bid of",
		"sold for",
	}

	minimumBidKeywords = []string{
		"minimum upset bid",
		"minimum next bid",
		"minimum bid",
	}

	saleDateKeywords = []string{
		"date of sale",
		"sale was held on",
		"sold on",
		"sale held",
	}

	documentDateKeywords = []string{
		"this the",
		"dated",
		"filed",
	}

	addressKeywords = []string{
		"property address",
		"commonly known as",
		"known as",
		"located at",
	}

	legalRe = regexp.MustCompile(`(?is)\b(being (?:all of|that certain|lot)[^.]{10,400}\.)`)
)

// ParseText pulls fields out of OCR text. Confidence is medium when at least
// two independent fields were found, otherwise low.
func ParseText(text string) *Result {
	r := &Result{Method: cases.MethodOCR}

	r.BidAmount = textparse.AmountNear(text, keywordWindow, bidKeywords...)
	r.MinimumNextBid = textparse.AmountNear(text, keywordWindow, minimumBidKeywords...)
	r.SaleDate = textparse.DateNear(text, keywordWindow, saleDateKeywords...)
	r.DocumentDate = textparse.DateNear(text, keywordWindow, documentDateKeywords...)
	r.PropertyAddress = parseAddress(text)

	if m := legalRe.FindStringSubmatch(text); m != nil {
		legal := strings.Join(strings.Fields(m[1]), " ")
		r.LegalDescription = &legal
	}

	found := 0
	for _, present := range []bool{
		r.BidAmount != nil,
		r.MinimumNextBid != nil,
		r.SaleDate != nil,
		r.PropertyAddress != nil,
		r.LegalDescription != nil,
	} {
		if present {
			found++
		}
	}

	r.Confidence = cases.ConfidenceLow
	if found >= 2 {
		r.Confidence = cases.ConfidenceMedium
	}

	return r
}

func parseAddress(text string) *string {
	lower := strings.ToLower(text)
	for _, kw := range addressKeywords {
		if idx := strings.Index(lower, kw); idx >= 0 {
			end := min(len(text), idx+len(kw)+120)
			if addr := textparse.Address(text[idx+len(kw) : end]); addr != nil {
				return addr
			}
		}
	}
	return textparse.Address(text)
}
