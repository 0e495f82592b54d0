package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/bidwatch/internal/api"
	"github.com/JaimeStill/bidwatch/internal/config"
	"github.com/JaimeStill/bidwatch/internal/infrastructure"
)

// session is a started infrastructure plus domain for a single job run.
type session struct {
	cfg    *config.Config
	infra  *infrastructure.Infrastructure
	domain *api.Domain
}

func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := infra.Start(); err != nil {
		return nil, err
	}
	infra.Lifecycle.WaitForStartup()

	if !infra.Database.Ready() {
		infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, fmt.Errorf("database unavailable")
	}

	runtime := api.NewRuntime(cfg, infra)
	domain, err := api.NewDomain(runtime)
	if err != nil {
		infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, err
	}
	domain.Start(runtime)

	return &session{cfg: cfg, infra: infra, domain: domain}, nil
}

// Close drains the enrichment pool and closes connections.
func (s *session) Close() error {
	return s.infra.Lifecycle.Shutdown(s.cfg.ShutdownTimeoutDuration())
}

// run opens a session, runs fn under a signal-aware context, and closes the
// session.
func run(fn func(ctx context.Context, s *session) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := fn(ctx, s)
	if err := s.Close(); err != nil {
		s.infra.Logger.Warn("shutdown incomplete", "error", err)
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
