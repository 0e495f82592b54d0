package database_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/JaimeStill/bidwatch/pkg/database"
)

func TestNew(t *testing.T) {
	cfg := database.Config{Name: "bidwatch", User: "bidwatch", MaxOpenConns: 12}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := database.New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := sys.Connection()
	defer conn.Close()

	if got := conn.Stats().MaxOpenConnections; got != 12 {
		t.Errorf("MaxOpenConnections = %d, want 12", got)
	}
	if sys.Ready() {
		t.Error("Ready() = true before the startup ping")
	}
}
