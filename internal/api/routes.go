package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/pkg/openapi"
	"github.com/JaimeStill/bidwatch/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) error {
	content := NewContentHandler(domain.Cases, runtime.Storage, runtime.Logger)

	groups := []routes.Group{
		domain.Cases.Handler().Routes(),
		domain.Tracking.Handler().Routes(),
		content.Routes(),
	}
	routes.Register(mux, groups...)

	spec, err := buildSpec(runtime, groups)
	if err != nil {
		return err
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))

	return nil
}

func buildSpec(runtime *Runtime, groups []routes.Group) ([]byte, error) {
	cfg := runtime.Config

	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)
	spec.Components.AddSchemas(cases.Schemas())

	routes.Describe(spec, groups...)

	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi spec: %w", err)
	}
	return data, nil
}
