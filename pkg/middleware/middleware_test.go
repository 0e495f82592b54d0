package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/JaimeStill/bidwatch/pkg/middleware"
)

const dashboard = "https://dashboard.bidwatch.example"

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestApplyOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	mw := middleware.New()
	mw.Use(tag("logger"))
	mw.Use(tag("cors"))
	mw.Use(tag("auth"))

	mw.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "sweep")
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/sweeps/classification", nil))

	if got := strings.Join(order, ","); got != "logger,cors,auth,sweep" {
		t.Errorf("order = %s, want logger,cors,auth,sweep", got)
	}
}

func TestCORS(t *testing.T) {
	enabled := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{dashboard},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           600,
	}

	tests := []struct {
		name        string
		cfg         *middleware.CORSConfig
		method      string
		origin      string
		status      int
		allowOrigin string
	}{
		{"disabled", &middleware.CORSConfig{Origins: []string{dashboard}}, http.MethodGet, dashboard, http.StatusOK, ""},
		{"allowed origin", enabled, http.MethodGet, dashboard, http.StatusOK, dashboard},
		{"unknown origin", enabled, http.MethodGet, "https://elsewhere.example", http.StatusOK, ""},
		{"preflight", enabled, http.MethodOptions, dashboard, http.StatusNoContent, dashboard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/cases", nil)
			req.Header.Set("Origin", tt.origin)
			middleware.CORS(tt.cfg)(ok()).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.allowOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.allowOrigin)
			}
			if tt.allowOrigin == "" {
				return
			}
			if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
				t.Errorf("Allow-Methods = %q", got)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
				t.Errorf("Allow-Credentials = %q", got)
			}
			if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
				t.Errorf("Max-Age = %q", got)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"success", http.StatusOK, "level=INFO"},
		{"server error", http.StatusBadGateway, "level=WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/cases/abc/reclassify?force=1", nil))

			out := buf.String()
			for _, want := range []string{
				tt.level,
				"method=POST",
				"uri=\"/cases/abc/reclassify?force=1\"",
				"status=" + strconv.Itoa(tt.status),
				"duration=",
			} {
				if !strings.Contains(out, want) {
					t.Errorf("log %q missing %q", out, want)
				}
			}
		})
	}
}

func TestCORSConfigFinalize(t *testing.T) {
	t.Setenv("BIDWATCH_CORS_ORIGINS", dashboard+", ,http://localhost:5173")
	t.Setenv("BIDWATCH_CORS_ALLOW_CREDENTIALS", "true")

	cfg := &middleware.CORSConfig{}
	err := cfg.Finalize(&middleware.CORSEnv{
		Origins:          "BIDWATCH_CORS_ORIGINS",
		AllowCredentials: "BIDWATCH_CORS_ALLOW_CREDENTIALS",
		MaxAge:           "BIDWATCH_CORS_MAX_AGE",
	})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if len(cfg.Origins) != 2 || cfg.Origins[0] != dashboard || cfg.Origins[1] != "http://localhost:5173" {
		t.Errorf("Origins = %v", cfg.Origins)
	}
	if !cfg.AllowCredentials {
		t.Error("AllowCredentials = false, want true")
	}
	if cfg.MaxAge != 3600 || len(cfg.AllowedMethods) != 5 || len(cfg.AllowedHeaders) != 2 {
		t.Errorf("defaults = max age %d methods %v headers %v", cfg.MaxAge, cfg.AllowedMethods, cfg.AllowedHeaders)
	}
}

func TestCORSConfigMerge(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:        true,
		Origins:        []string{"http://localhost:5173"},
		AllowedMethods: []string{"GET"},
		MaxAge:         3600,
	}

	cfg.Merge(&middleware.CORSConfig{
		Origins: []string{dashboard},
		MaxAge:  -1,
	})

	if cfg.Enabled {
		t.Error("Enabled should follow the overlay")
	}
	if len(cfg.Origins) != 1 || cfg.Origins[0] != dashboard {
		t.Errorf("Origins = %v", cfg.Origins)
	}
	if len(cfg.AllowedMethods) != 1 {
		t.Errorf("AllowedMethods = %v, want kept", cfg.AllowedMethods)
	}
	if cfg.MaxAge != 3600 {
		t.Errorf("MaxAge = %d, want kept for negative overlay", cfg.MaxAge)
	}
}
