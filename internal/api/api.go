// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/JaimeStill/bidwatch/internal/config"
	"github.com/JaimeStill/bidwatch/internal/infrastructure"
	"github.com/JaimeStill/bidwatch/pkg/middleware"
	"github.com/JaimeStill/bidwatch/pkg/module"
)

const discoveryTimeout = 15 * time.Second

// NewModule creates the API module with all domain handlers and middleware,
// and starts the domain's background workers on the lifecycle coordinator.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime)
	if err != nil {
		return nil, err
	}
	domain.Start(runtime)

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, runtime); err != nil {
		return nil, err
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	if cfg.API.Auth.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
		defer cancel()

		verifier, err := middleware.NewOIDCVerifier(ctx, &cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		m.Use(middleware.Auth(verifier, cfg.API.Auth.Public, runtime.Logger))
	}

	return m, nil
}
