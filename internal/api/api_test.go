package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/api"
	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/config"
	"github.com/JaimeStill/bidwatch/internal/infrastructure"
	"github.com/JaimeStill/bidwatch/pkg/businessday"
	"github.com/JaimeStill/bidwatch/pkg/database"
	"github.com/JaimeStill/bidwatch/pkg/lifecycle"
	"github.com/JaimeStill/bidwatch/pkg/middleware"
	"github.com/JaimeStill/bidwatch/pkg/pagination"
	"github.com/JaimeStill/bidwatch/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Agent: gaconfig.AgentConfig{
			Name: "test-agent",
			Provider: &gaconfig.ProviderConfig{
				Name:    "ollama",
				BaseURL: "http://localhost:11434",
				Options: make(map[string]any),
			},
			Model: &gaconfig.ModelConfig{
				Name: "llava:13b",
			},
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "bidwatch",
			User:            "bidwatch",
			Password:        "bidwatch",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "case-documents",
			ConnectionString: azuriteConnString,
		},
		API: config.APIConfig{
			BasePath: "/api",
			CORS:     middleware.CORSConfig{Enabled: false},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
		},
		Calendar: businessday.Config{
			TimeZone:        "America/New_York",
			CloseOfBusiness: "17:00",
		},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}

	steps := []func() error{
		func() error { return cfg.API.OpenAPI.Finalize(nil) },
		func() error { return cfg.Tracking.Finalize(nil) },
		func() error { return cfg.Diagnosis.Finalize(nil) },
		func() error { return cfg.Extraction.Finalize(nil) },
		func() error { return cfg.Portal.Finalize(nil) },
		func() error { return cfg.Enrichment.Finalize(nil) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("finalize: %v", err)
		}
	}
	return cfg
}

func setupInfra(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	t.Cleanup(func() { infra.Lifecycle.Shutdown(5 * time.Second) })
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}

	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest("GET", "/api/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("openapi status: got %d, want 200", rec.Code)
	}

	var spec struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("decode spec: %v", err)
	}

	if spec.Info.Title != "bidwatch API" {
		t.Errorf("title: got %q", spec.Info.Title)
	}

	want := map[string]string{
		"/cases":                                     "get",
		"/cases/{id}/reclassify":                     "post",
		"/cases/{id}/diagnose":                       "post",
		"/sweeps/classification":                     "post",
		"/sweeps/diagnosis":                          "post",
		"/extraction/budget":                         "get",
		"/extraction/patterns":                       "post",
		"/cases/{id}/documents/{documentId}/content": "get",
	}
	for path, method := range want {
		item, ok := spec.Paths[path]
		if !ok {
			t.Errorf("spec missing path %s", path)
			continue
		}
		if _, ok := item[method]; !ok {
			t.Errorf("spec path %s missing %s", path, method)
		}
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Agent.Name != "test-agent" {
		t.Errorf("agent name: got %s", runtime.Agent.Name)
	}
	if runtime.Calendar == nil {
		t.Error("runtime calendar is nil")
	}
	if runtime.Logger == nil {
		t.Error("runtime logger is nil")
	}
	if runtime.Config != cfg {
		t.Error("runtime config should be the loaded config")
	}
}

func TestNewDomain(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)
	runtime := api.NewRuntime(cfg, infra)

	domain, err := api.NewDomain(runtime)
	if err != nil {
		t.Fatalf("NewDomain() error = %v", err)
	}
	if domain.Cases == nil || domain.Tracking == nil || domain.Pool == nil {
		t.Fatalf("domain incomplete: %+v", domain)
	}

	if usage := domain.Tracking.Usage(); usage.Cost != 0 || usage.Calls != 0 {
		t.Errorf("fresh budget: got %+v, want no spend", usage)
	}
}

func TestNewDomainBadPatterns(t *testing.T) {
	cfg := validConfig(t)
	cfg.Extraction.PatternsPath = "/nonexistent/patterns.yaml"
	infra := setupInfra(t, cfg)

	if _, err := api.NewDomain(api.NewRuntime(cfg, infra)); err == nil {
		t.Fatal("expected error for missing pattern table")
	}
}

type fakeLister struct {
	docs []cases.Document
	err  error
}

func (f fakeLister) Documents(context.Context, uuid.UUID) ([]cases.Document, error) {
	return f.docs, f.err
}

type memStorage struct {
	blobs map[string][]byte
}

func (m *memStorage) Start(*lifecycle.Coordinator) error { return nil }

func (m *memStorage) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.blobs[key] = data
	return nil
}

func (m *memStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

func (m *memStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.blobs[key]
	return ok, nil
}

func TestContentHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	caseID := uuid.New()
	stored := uuid.New()
	unstored := uuid.New()
	missing := uuid.New()
	key := "cases/24SP000437-910/" + stored.String() + "-report.pdf"
	goneKey := "cases/gone.pdf"

	lister := fakeLister{docs: []cases.Document{
		{ID: stored, CaseID: caseID, FilePath: "report.pdf", StorageKey: &key},
		{ID: unstored, CaseID: caseID, FilePath: "notice.pdf"},
		{ID: missing, CaseID: caseID, FilePath: "gone.pdf", StorageKey: &goneKey},
	}}
	blobs := &memStorage{blobs: map[string][]byte{key: []byte("%PDF-1.7")}}

	mux := http.NewServeMux()
	h := api.NewContentHandler(lister, blobs, logger)
	for _, r := range h.Routes().Routes {
		mux.HandleFunc(r.Method+" "+h.Routes().Prefix+r.Pattern, r.Handler)
	}

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"stored document", "/cases/" + caseID.String() + "/documents/" + stored.String() + "/content", http.StatusOK, "%PDF-1.7"},
		{"not yet stored", "/cases/" + caseID.String() + "/documents/" + unstored.String() + "/content", http.StatusNotFound, ""},
		{"blob missing", "/cases/" + caseID.String() + "/documents/" + missing.String() + "/content", http.StatusNotFound, ""},
		{"unknown document", "/cases/" + caseID.String() + "/documents/" + uuid.NewString() + "/content", http.StatusNotFound, ""},
		{"bad case id", "/cases/nope/documents/" + stored.String() + "/content", http.StatusBadRequest, ""},
		{"bad document id", "/cases/" + caseID.String() + "/documents/nope/content", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.status)
			}
			if tt.body != "" {
				if got := rec.Body.String(); got != tt.body {
					t.Errorf("body: got %q, want %q", got, tt.body)
				}
				if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
					t.Errorf("content type: got %q", ct)
				}
			}
		})
	}
}
