package cases

import (
	"time"

	"github.com/google/uuid"
)

// Method identifies the extractor that produced a result.
type Method string

// Extraction methods.
const (
	MethodOCR    Method = "ocr"
	MethodVision Method = "vision"
)

// Confidence is a categorical assessment of extraction certainty.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidence levels; unknown values rank lowest.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// Extraction is the normalized field set produced for one document by either
// extractor. Fields that were not found are nil; values are never guessed.
type Extraction struct {
	DocumentID       uuid.UUID  `json:"document_id"`
	Method           Method     `json:"method"`
	Confidence       Confidence `json:"confidence"`
	PropertyAddress  *string    `json:"property_address,omitempty"`
	LegalDescription *string    `json:"legal_description,omitempty"`
	BidAmount        *float64   `json:"bid_amount,omitempty"`
	MinimumNextBid   *float64   `json:"minimum_next_bid,omitempty"`
	SaleDate         *time.Time `json:"sale_date,omitempty"`
	DocumentDate     *time.Time `json:"document_date,omitempty"`
}

// Empty reports whether no field was extracted.
func (e *Extraction) Empty() bool {
	return e.PropertyAddress == nil &&
		e.LegalDescription == nil &&
		e.BidAmount == nil &&
		e.MinimumNextBid == nil &&
		e.SaleDate == nil
}
