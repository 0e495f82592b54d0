package api

import (
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/bidwatch/internal/config"
	"github.com/JaimeStill/bidwatch/internal/infrastructure"
	"github.com/JaimeStill/bidwatch/pkg/pagination"
)

// Runtime extends Infrastructure with the settings domain systems are built from.
type Runtime struct {
	*infrastructure.Infrastructure
	Config     *config.Config
	Agent      gaconfig.AgentConfig
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Calendar:  infra.Calendar,
		},
		Config:     cfg,
		Agent:      cfg.Agent,
		Pagination: cfg.API.Pagination,
	}
}
