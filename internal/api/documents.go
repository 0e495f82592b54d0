package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/pkg/handlers"
	"github.com/JaimeStill/bidwatch/pkg/openapi"
	"github.com/JaimeStill/bidwatch/pkg/routes"
	"github.com/JaimeStill/bidwatch/pkg/storage"
)

// DocumentLister is the slice of cases.System the content handler needs.
type DocumentLister interface {
	Documents(ctx context.Context, caseID uuid.UUID) ([]cases.Document, error)
}

// ContentHandler streams stored case documents out of blob storage.
type ContentHandler struct {
	docs   DocumentLister
	store  storage.System
	logger *slog.Logger
}

// NewContentHandler creates a ContentHandler.
func NewContentHandler(docs DocumentLister, store storage.System, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{
		docs:   docs,
		store:  store,
		logger: logger.With("handler", "content"),
	}
}

// Routes returns the route group for document content.
func (h *ContentHandler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/cases",
		Tags:   []string{"Documents"},
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "/{id}/documents/{documentId}/content",
				Handler: h.Download,
				OpenAPI: &openapi.Operation{
					Summary: "Download a stored case document",
					Responses: map[int]*openapi.Response{
						200: {Description: "PDF content"},
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
		},
	}
}

// Download streams the stored PDF for a case document.
func (h *ContentHandler) Download(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, cases.ErrInvalidRequest)
		return
	}
	docID, err := uuid.Parse(r.PathValue("documentId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, cases.ErrInvalidRequest)
		return
	}

	docs, err := h.docs.Documents(r.Context(), caseID)
	if err != nil {
		handlers.RespondError(w, h.logger, cases.MapHTTPStatus(err), err)
		return
	}

	var key string
	for _, d := range docs {
		if d.ID == docID && d.StorageKey != nil {
			key = *d.StorageKey
		}
	}
	if key == "" {
		handlers.RespondError(w, h.logger, http.StatusNotFound, storage.ErrNotFound)
		return
	}

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("document stream interrupted", "document_id", docID, "error", err)
	}
}
