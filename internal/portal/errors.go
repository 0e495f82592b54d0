package portal

import (
	"errors"
	"net/http"
)

var (
	// ErrTransientFetch is a network or portal failure that survived its retry.
	ErrTransientFetch = errors.New("transient portal failure")
	ErrNotFound       = errors.New("document not found on portal")
	ErrNoSource       = errors.New("document has no source url")
)

// MapHTTPStatus maps portal errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoSource):
		return http.StatusBadRequest
	case errors.Is(err, ErrTransientFetch):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
