package cases

import (
	"errors"
	"net/http"
)

// Domain errors for case operations.
var (
	ErrNotFound              = errors.New("case not found")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrDuplicate             = errors.New("case already exists")
	ErrInvalidClassification = errors.New("invalid classification")
	ErrUnknownField          = errors.New("unknown case field")
	ErrInvalidRequest        = errors.New("invalid request")
)

// MapHTTPStatus maps case domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDocumentNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidClassification) || errors.Is(err, ErrUnknownField) || errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
