package tracking

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/classifier"
	"github.com/JaimeStill/bidwatch/internal/extraction"
	"github.com/JaimeStill/bidwatch/internal/portal"
)

var (
	// ErrInProgress means the case is already being reclassified.
	ErrInProgress = errors.New("case reclassification already in progress")
	ErrNoPortal   = errors.New("portal repair tiers not configured")
)

// MapHTTPStatus maps tracking errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInProgress):
		return http.StatusConflict
	case errors.Is(err, cases.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoPortal):
		return http.StatusNotImplemented
	case errors.Is(err, classifier.ErrInvariantViolation):
		return http.StatusInternalServerError
	case errors.Is(err, portal.ErrTransientFetch):
		return http.StatusBadGateway
	}
	return extraction.MapHTTPStatus(err)
}
