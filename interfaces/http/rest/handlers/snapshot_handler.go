// Package handlers serves the snapshot backend's REST resources.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ontograph/application/ports"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"
	"ontograph/pkg/auth"
	pkgerrors "ontograph/pkg/errors"
	"ontograph/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MaxSnapshotBytes bounds a PUT body
const MaxSnapshotBytes = 8 << 20

// SnapshotService is what the handler needs from the application layer
type SnapshotService interface {
	Get(ctx context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, error)
	Save(ctx context.Context, snapshot aggregates.Snapshot, baseRevision int64, savedBy string) (ports.SaveResult, error)
	Rename(ctx context.Context, iri valueobjects.OntologyIRI, label string) error
	Delete(ctx context.Context, iri valueobjects.OntologyIRI) error
}

// SnapshotHandler handles ontology snapshot requests
type SnapshotHandler struct {
	service SnapshotService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(service SnapshotService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{service: service, errors: errs, logger: logger}
}

// RenameRequest is the PATCH body
type RenameRequest struct {
	Label string `json:"label" validate:"required,max=200"`
}

// GetSnapshot handles GET /ontologies/{iri}/snapshot
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	iri, err := iriParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	snapshot, err := h.service.Get(r.Context(), iri)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.Header().Set("ETag", strconv.FormatInt(snapshot.Revision, 10))
	h.respondJSON(w, http.StatusOK, snapshot)
}

// PutSnapshot handles PUT /ontologies/{iri}/snapshot. If-Match carries the
// writer's base revision; a stale base is stored anyway and flagged.
func (h *SnapshotHandler) PutSnapshot(w http.ResponseWriter, r *http.Request) {
	iri, err := iriParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxSnapshotBytes))
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("snapshot body too large or unreadable").WithCause(err))
		return
	}
	snapshot, err := aggregates.DecodeSnapshot(body)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	switch snapshot.OntologyIRI {
	case "":
		snapshot.OntologyIRI = iri
	case iri:
	default:
		h.errors.Handle(w, r, pkgerrors.NewValidationError("snapshot IRI does not match the URL"))
		return
	}

	base := snapshot.Revision
	if header := r.Header.Get("If-Match"); header != "" {
		base, err = parseRevision(header)
		if err != nil {
			h.errors.Handle(w, r, err)
			return
		}
	}

	user, _ := auth.UserFromContext(r.Context())
	result, err := h.service.Save(r.Context(), snapshot, base, user.ID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.Header().Set("ETag", strconv.FormatInt(result.Revision, 10))
	h.respondJSON(w, http.StatusOK, result)
}

// RenameOntology handles PATCH /ontologies/{iri}
func (h *SnapshotHandler) RenameOntology(w http.ResponseWriter, r *http.Request) {
	iri, err := iriParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := h.service.Rename(r.Context(), iri, req.Label); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteOntology handles DELETE /ontologies/{iri}
func (h *SnapshotHandler) DeleteOntology(w http.ResponseWriter, r *http.Request) {
	iri, err := iriParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), iri); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// iriParam decodes the path-escaped IRI segment
func iriParam(r *http.Request) (valueobjects.OntologyIRI, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "iri"))
	if err != nil || strings.TrimSpace(raw) == "" {
		return "", pkgerrors.NewValidationError("invalid ontology IRI in path")
	}
	return valueobjects.OntologyIRI(raw), nil
}

func parseRevision(header string) (int64, error) {
	v := strings.TrimPrefix(strings.TrimSpace(header), "W/")
	v = strings.Trim(v, `"`)
	rev, err := strconv.ParseInt(v, 10, 64)
	if err != nil || rev < 0 {
		return 0, pkgerrors.NewValidationError("If-Match must be a revision number")
	}
	return rev, nil
}

func (h *SnapshotHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
