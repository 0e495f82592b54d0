package tracking_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/diagnosis"
	"github.com/JaimeStill/bidwatch/internal/extraction"
	"github.com/JaimeStill/bidwatch/internal/tracking"
	"github.com/JaimeStill/bidwatch/pkg/routes"
)

type mockSystem struct {
	reclassifyFn func(ctx context.Context, id uuid.UUID) (*tracking.Outcome, error)
	diagnoseFn   func(ctx context.Context, id uuid.UUID, dryRun bool) (*diagnosis.Report, error)
	sweepFn      func(ctx context.Context) (*tracking.SweepReport, error)
	mergeFn      func(ctx context.Context, update *extraction.PatternTable) (*extraction.PatternTable, error)
	usage        extraction.Usage
}

func (m *mockSystem) Handler() *tracking.Handler { return tracking.NewHandler(m, discard()) }

func (m *mockSystem) Reclassify(ctx context.Context, id uuid.UUID) (*tracking.Outcome, error) {
	return m.reclassifyFn(ctx, id)
}

func (m *mockSystem) Diagnose(ctx context.Context, id uuid.UUID, dryRun bool) (*diagnosis.Report, error) {
	return m.diagnoseFn(ctx, id, dryRun)
}

func (m *mockSystem) Sweep(ctx context.Context) (*tracking.SweepReport, error) {
	return m.sweepFn(ctx)
}

func (m *mockSystem) DiagnoseAll(context.Context) (*diagnosis.RunReport, error) {
	return &diagnosis.RunReport{}, nil
}

func (m *mockSystem) Usage() extraction.Usage { return m.usage }

func (m *mockSystem) Patterns() *extraction.PatternTable { return extraction.EmptyPatterns() }

func (m *mockSystem) MergePatterns(ctx context.Context, update *extraction.PatternTable) (*extraction.PatternTable, error) {
	return m.mergeFn(ctx, update)
}

func setupMux(m *mockSystem) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, m.Handler().Routes())
	return mux
}

func TestHandlerReclassify(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"success", "/cases/" + id.String() + "/reclassify", nil, http.StatusOK},
		{"invalid id", "/cases/not-a-uuid/reclassify", nil, http.StatusBadRequest},
		{"not found", "/cases/" + id.String() + "/reclassify", cases.ErrNotFound, http.StatusNotFound},
		{"in progress", "/cases/" + id.String() + "/reclassify", tracking.ErrInProgress, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockSystem{
				reclassifyFn: func(_ context.Context, got uuid.UUID) (*tracking.Outcome, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					if got != id {
						t.Errorf("id = %s, want %s", got, id)
					}
					return &tracking.Outcome{
						Case:       &cases.Case{ID: id, Classification: cases.UpsetBid},
						Previous:   cases.Upcoming,
						Transition: true,
					}, nil
				},
			}

			rec := httptest.NewRecorder()
			setupMux(m).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}

			var out tracking.Outcome
			if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !out.Transition || out.Case.Classification != cases.UpsetBid {
				t.Errorf("outcome = %+v", out)
			}
		})
	}
}

func TestHandlerDiagnoseDryRun(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		query  string
		dryRun bool
		status int
	}{
		{"", false, http.StatusOK},
		{"?dry_run=true", true, http.StatusOK},
		{"?dry_run=false", false, http.StatusOK},
		{"?dry_run=maybe", false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			m := &mockSystem{
				diagnoseFn: func(_ context.Context, _ uuid.UUID, dryRun bool) (*diagnosis.Report, error) {
					if dryRun != tt.dryRun {
						t.Errorf("dryRun = %v, want %v", dryRun, tt.dryRun)
					}
					return &diagnosis.Report{CaseID: id, DryRun: dryRun}, nil
				},
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/cases/"+id.String()+"/diagnose"+tt.query, nil)
			setupMux(m).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestHandlerSweep(t *testing.T) {
	m := &mockSystem{
		sweepFn: func(context.Context) (*tracking.SweepReport, error) {
			return &tracking.SweepReport{Cases: 4, Reclassified: 3, Failed: 1}, nil
		},
	}

	rec := httptest.NewRecorder()
	setupMux(m).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sweeps/classification", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var out tracking.SweepReport
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Cases != 4 || out.Failed != 1 {
		t.Errorf("report = %+v", out)
	}
}

func TestHandlerBudget(t *testing.T) {
	m := &mockSystem{usage: extraction.Usage{Calls: 12, Cost: 3.5, Cap: 25}}

	rec := httptest.NewRecorder()
	setupMux(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/extraction/budget", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var out extraction.Usage
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Calls != 12 || out.Cost != 3.5 {
		t.Errorf("usage = %+v", out)
	}
}

func TestHandlerMergePatterns(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{
			name:   "valid table",
			body:   "version: 1\npatterns:\n  - name: cover-sheets\n    target: file_path\n    expr: '/cover/'\n",
			status: http.StatusOK,
		},
		{
			name:   "unknown target",
			body:   "patterns:\n  - name: cover-sheets\n    target: docket\n    expr: cover\n",
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed yaml",
			body:   "patterns: [",
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := false
			m := &mockSystem{
				mergeFn: func(_ context.Context, update *extraction.PatternTable) (*extraction.PatternTable, error) {
					merged = true
					return extraction.EmptyPatterns().Merge(update)
				},
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/extraction/patterns", strings.NewReader(tt.body))
			setupMux(m).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				if merged {
					t.Error("invalid table must not be merged")
				}
				return
			}

			var out extraction.PatternTable
			if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out.Version != 2 || len(out.Patterns) != 1 || out.Patterns[0].Name != "cover-sheets" {
				t.Errorf("table = %+v, want version 2 with cover-sheets", out)
			}
		})
	}
}
