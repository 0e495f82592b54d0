// Package extraction turns stored court documents into normalized field
// sets. A Router picks the cheap OCR path or the vision path per document
// based on the owning case's classification, records which documents were
// processed, and returns every result the field merger needs.
package extraction

import (
	"context"

	"github.com/JaimeStill/bidwatch/internal/cases"
)

// Result is the normalized per-document field set. Absent values are nil.
type Result = cases.Extraction

// Output is what an extractor produced for one document. Text is the raw OCR
// text when the OCR path ran.
type Output struct {
	Result *Result
	Text   *string
}

// Extractor produces a Result for a single document.
type Extractor interface {
	Method() cases.Method
	Extract(ctx context.Context, doc cases.Document) (*Output, error)
}

func documentKey(doc cases.Document) string {
	if doc.StorageKey != nil && *doc.StorageKey != "" {
		return *doc.StorageKey
	}
	return doc.FilePath
}
