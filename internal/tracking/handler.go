package tracking

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/extraction"
	"github.com/JaimeStill/bidwatch/pkg/handlers"
	"github.com/JaimeStill/bidwatch/pkg/routes"
)

// maxPatternsBody bounds an uploaded skip table.
const maxPatternsBody = 1 << 20

// Handler exposes on-demand reclassification, diagnosis, and the batch sweeps.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "tracking"),
	}
}

// Routes returns the route group for tracking endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "",
		Tags:   []string{"Tracking"},
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/cases/{id}/reclassify", Handler: h.Reclassify, OpenAPI: Spec.Reclassify},
			{Method: "POST", Pattern: "/cases/{id}/diagnose", Handler: h.Diagnose, OpenAPI: Spec.Diagnose},
			{Method: "POST", Pattern: "/sweeps/classification", Handler: h.Sweep, OpenAPI: Spec.Sweep},
			{Method: "POST", Pattern: "/sweeps/diagnosis", Handler: h.DiagnoseAll, OpenAPI: Spec.DiagnoseAll},
			{Method: "GET", Pattern: "/extraction/budget", Handler: h.Budget, OpenAPI: Spec.Budget},
			{Method: "GET", Pattern: "/extraction/patterns", Handler: h.Patterns, OpenAPI: Spec.Patterns},
			{Method: "POST", Pattern: "/extraction/patterns", Handler: h.MergePatterns, OpenAPI: Spec.MergePatterns},
		},
	}
}

// Reclassify runs the classification pipeline for one case.
func (h *Handler) Reclassify(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, cases.ErrInvalidRequest)
		return
	}

	outcome, err := h.sys.Reclassify(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, outcome)
}

// Diagnose runs the repair tiers for one case. dry_run=true reports without
// repairing.
func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, cases.ErrInvalidRequest)
		return
	}

	dryRun := false
	if v := r.URL.Query().Get("dry_run"); v != "" {
		dryRun, err = strconv.ParseBool(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, cases.ErrInvalidRequest)
			return
		}
	}

	report, err := h.sys.Diagnose(r.Context(), id, dryRun)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// Sweep runs the classification sweep synchronously.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.sys.Sweep(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// DiagnoseAll runs the diagnosis sweep synchronously.
func (h *Handler) DiagnoseAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.sys.DiagnoseAll(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// Budget reports vision spend for the current day.
func (h *Handler) Budget(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.Usage())
}

// Patterns returns the document skip table in use.
func (h *Handler) Patterns(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.Patterns())
}

// MergePatterns merges a YAML skip table from the request body into the
// table in use.
func (h *Handler) MergePatterns(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPatternsBody))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", extraction.ErrInvalidPatterns, err))
		return
	}

	update, err := extraction.ParsePatterns(body)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	merged, err := h.sys.MergePatterns(r.Context(), update)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, merged)
}
