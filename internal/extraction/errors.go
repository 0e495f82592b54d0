package extraction

import (
	"errors"
	"net/http"
)

var (
	// ErrTransient marks a service or network failure that is worth retrying.
	ErrTransient = errors.New("transient extraction failure")
	// ErrEmptyResult marks OCR output below the minimum text length. The
	// document is left unprocessed so a later run can try again.
	ErrEmptyResult = errors.New("extraction produced no usable text")
	// ErrBudgetExceeded is returned by the vision path when the daily cost
	// cap is reached and hard stop is configured.
	ErrBudgetExceeded = errors.New("vision budget exceeded")
	// ErrSkipped marks a document matched by a learned skip pattern.
	ErrSkipped         = errors.New("document skipped by pattern")
	ErrNoSource        = errors.New("document has no stored file")
	ErrRenderFailed    = errors.New("page rendering failed")
	ErrInvalidPatterns = errors.New("invalid pattern table")
)

// MapHTTPStatus maps extraction errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrBudgetExceeded) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, ErrTransient) {
		return http.StatusBadGateway
	}
	if errors.Is(err, ErrInvalidPatterns) || errors.Is(err, ErrNoSource) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
