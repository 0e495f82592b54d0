package merge

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var keepUpper = map[string]bool{
	"N": true, "S": true, "E": true, "W": true,
	"NE": true, "NW": true, "SE": true, "SW": true,
	"NC": true, "SC": true, "VA": true, "GA": true, "TN": true,
	"PO": true,
}

// NormalizeAddress collapses whitespace and title-cases addresses the portal
// or OCR produced in all capitals, keeping directionals and state codes upper.
func NormalizeAddress(addr string) string {
	addr = collapse(addr)
	if addr != strings.ToUpper(addr) {
		return addr
	}

	caser := cases.Title(language.English)
	words := strings.Fields(addr)
	for i, w := range words {
		core := strings.Trim(w, ".,")
		if keepUpper[core] {
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
