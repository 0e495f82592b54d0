package cases

import "fmt"

// Field names that may be required per classification.
const (
	FieldCurrentBidAmount = "current_bid_amount"
	FieldMinimumNextBid   = "minimum_next_bid"
	FieldNextBidDeadline  = "next_bid_deadline"
	FieldSaleDate         = "sale_date"
	FieldPropertyAddress  = "property_address"
	FieldLegalDescription = "legal_description"
)

var fieldPresent = map[string]func(*Case) bool{
	FieldCurrentBidAmount: func(c *Case) bool { return c.CurrentBidAmount != nil },
	FieldMinimumNextBid:   func(c *Case) bool { return c.MinimumNextBid != nil },
	FieldNextBidDeadline:  func(c *Case) bool { return c.NextBidDeadline != nil },
	FieldSaleDate:         func(c *Case) bool { return c.SaleDate != nil },
	FieldPropertyAddress:  func(c *Case) bool { return c.PropertyAddress != nil && *c.PropertyAddress != "" },
	FieldLegalDescription: func(c *Case) bool { return c.LegalDescription != nil && *c.LegalDescription != "" },
}

// RequiredFields maps a classification to the fields a case in that state
// must carry to be considered complete.
type RequiredFields map[Classification][]string

// Validate rejects unknown classifications and field names.
func (r RequiredFields) Validate() error {
	for class, fields := range r {
		if !class.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidClassification, class)
		}
		for _, f := range fields {
			if _, ok := fieldPresent[f]; !ok {
				return fmt.Errorf("%w: %s", ErrUnknownField, f)
			}
		}
	}
	return nil
}

// Missing returns the required fields c lacks for its current classification.
func (r RequiredFields) Missing(c *Case) []string {
	var missing []string
	for _, f := range r[c.Classification] {
		present, ok := fieldPresent[f]
		if !ok || !present(c) {
			missing = append(missing, f)
		}
	}
	return missing
}

// DefaultRequiredFields returns the fields an active upset bid case needs for
// a bidding decision.
func DefaultRequiredFields() RequiredFields {
	return RequiredFields{
		UpsetBid: {
			FieldCurrentBidAmount,
			FieldMinimumNextBid,
			FieldNextBidDeadline,
			FieldSaleDate,
			FieldPropertyAddress,
		},
	}
}
