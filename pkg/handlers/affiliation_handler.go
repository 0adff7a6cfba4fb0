package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// SetActiveRequest for PATCH /api/affiliations/{kind}/{id}
type SetActiveRequest struct {
	IsActive *bool `json:"isActive"`
}

// ValidateContextRequest for POST /api/affiliations/validate
type ValidateContextRequest struct {
	PreceptorID   uuid.UUID `json:"preceptorId"`
	SchoolID      uuid.UUID `json:"schoolId"`
	SiteID        uuid.UUID `json:"siteId"`
	ProgramTypeID uuid.UUID `json:"programTypeId"`
}

// ============================================================================
// Handler
// ============================================================================

// AffiliationHandler manages preceptor affiliation edges and the inverse
// "who works here" queries.
type AffiliationHandler struct {
	resolver services.AffiliationResolver
	logger   *zap.Logger
}

// NewAffiliationHandler creates a new affiliation handler.
func NewAffiliationHandler(resolver services.AffiliationResolver, logger *zap.Logger) *AffiliationHandler {
	return &AffiliationHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// RegisterRoutes registers the affiliation routes on the given mux.
func (h *AffiliationHandler) RegisterRoutes(mux *http.ServeMux, scope Middleware) {
	base := "/api/affiliations"

	mux.HandleFunc("POST "+base, scope(h.Create))
	mux.HandleFunc("POST "+base+"/validate", scope(h.ValidateContext))
	mux.HandleFunc("PATCH "+base+"/{kind}/{id}", scope(h.SetActive))
	mux.HandleFunc("DELETE "+base+"/{kind}/{id}", scope(h.Delete))

	mux.HandleFunc("GET /api/schools/{id}/preceptors", scope(h.PreceptorsOfSchool))
	mux.HandleFunc("GET /api/sites/{id}/preceptors", scope(h.PreceptorsOfSite))
	mux.HandleFunc("GET /api/program-types/{id}/preceptors", scope(h.PreceptorsOfProgram))
}

// Create handles POST /api/affiliations
func (h *AffiliationHandler) Create(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.logger, "create affiliation", h.resolver.CreateAffiliation)
}

// ValidateContext handles POST /api/affiliations/validate.
// A rejected context is a normal 200 response with isValid=false.
func (h *AffiliationHandler) ValidateContext(w http.ResponseWriter, r *http.Request) {
	var req ValidateContextRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	result := h.resolver.ValidateContext(r.Context(), req.PreceptorID, req.SchoolID, req.SiteID, req.ProgramTypeID)
	writeData(w, http.StatusOK, result, h.logger)
}

// SetActive handles PATCH /api/affiliations/{kind}/{id}
func (h *AffiliationHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var req SetActiveRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "isActive is required", h.logger)
		return
	}

	if err := h.resolver.SetActive(r.Context(), kind, id, *req.IsActive); err != nil {
		writeServiceError(w, err, "set affiliation active", h.logger,
			zap.String("kind", string(kind)),
			zap.String("edge_id", id.String()))
		return
	}
	writeData(w, http.StatusOK, map[string]any{"kind": kind, "id": id, "isActive": *req.IsActive}, h.logger)
}

// Delete handles DELETE /api/affiliations/{kind}/{id}
func (h *AffiliationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}
	handleDelete(w, r, h.logger, "delete affiliation", func(ctx context.Context, id uuid.UUID) error {
		return h.resolver.DeleteAffiliation(ctx, kind, id)
	})
}

// PreceptorsOfSchool handles GET /api/schools/{id}/preceptors?onlyActive=
func (h *AffiliationHandler) PreceptorsOfSchool(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	active, ok := onlyActive(w, r, true, h.logger)
	if !ok {
		return
	}

	preceptors, err := h.resolver.PreceptorsOfSchool(r.Context(), id, active)
	h.writePreceptors(w, preceptors, err, "list preceptors of school", id)
}

// PreceptorsOfSite handles GET /api/sites/{id}/preceptors?schoolId=&onlyActive=
func (h *AffiliationHandler) PreceptorsOfSite(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	schoolID, ok := queryUUID(w, r, "schoolId", h.logger)
	if !ok {
		return
	}
	active, ok := onlyActive(w, r, true, h.logger)
	if !ok {
		return
	}

	preceptors, err := h.resolver.PreceptorsOfSite(r.Context(), id, schoolID, active)
	h.writePreceptors(w, preceptors, err, "list preceptors of site", id)
}

// PreceptorsOfProgram handles GET /api/program-types/{id}/preceptors?schoolId=&siteId=&onlyActive=
func (h *AffiliationHandler) PreceptorsOfProgram(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	schoolID, ok := queryUUID(w, r, "schoolId", h.logger)
	if !ok {
		return
	}
	siteID, ok := queryUUID(w, r, "siteId", h.logger)
	if !ok {
		return
	}
	active, ok := onlyActive(w, r, true, h.logger)
	if !ok {
		return
	}

	preceptors, err := h.resolver.PreceptorsOfProgram(r.Context(), id, schoolID, siteID, active)
	h.writePreceptors(w, preceptors, err, "list preceptors of program", id)
}

func (h *AffiliationHandler) writePreceptors(w http.ResponseWriter, preceptors []*models.Preceptor, err error, op string, id uuid.UUID) {
	if err != nil {
		writeServiceError(w, err, op, h.logger, zap.String("id", id.String()))
		return
	}
	writeData(w, http.StatusOK, newListResponse(preceptors), h.logger)
}

func (h *AffiliationHandler) parseKind(w http.ResponseWriter, r *http.Request) (models.AffiliationKind, bool) {
	kind, err := models.ParseAffiliationKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_kind", "kind must be one of: school, site, program", h.logger)
		return "", false
	}
	return kind, true
}
