package routes

import (
	"net/http"

	"github.com/JaimeStill/bidwatch/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler. OpenAPI is optional
// documentation merged into the generated spec.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}
