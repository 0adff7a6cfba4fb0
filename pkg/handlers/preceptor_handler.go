package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/services"
)

// PreceptorHandler handles preceptor CRUD and the review-form pickers.
type PreceptorHandler struct {
	preceptors services.PreceptorService
	logger     *zap.Logger
}

// NewPreceptorHandler creates a new preceptor handler.
func NewPreceptorHandler(preceptors services.PreceptorService, logger *zap.Logger) *PreceptorHandler {
	return &PreceptorHandler{
		preceptors: preceptors,
		logger:     logger,
	}
}

// RegisterRoutes registers the preceptor routes on the given mux.
func (h *PreceptorHandler) RegisterRoutes(mux *http.ServeMux, scope Middleware) {
	base := "/api/preceptors"

	mux.HandleFunc("GET "+base, scope(h.List))
	mux.HandleFunc("POST "+base, scope(h.Create))
	mux.HandleFunc("GET "+base+"/by-name", scope(h.GetByName))
	mux.HandleFunc("GET "+base+"/{id}", scope(h.Get))
	mux.HandleFunc("PATCH "+base+"/{id}", scope(h.Update))
	mux.HandleFunc("DELETE "+base+"/{id}", scope(h.Delete))
	mux.HandleFunc("GET "+base+"/{id}/affiliations", scope(h.GetWithAffiliations))
	mux.HandleFunc("GET "+base+"/{id}/available-schools", scope(h.AvailableSchools))
	mux.HandleFunc("GET "+base+"/{id}/available-sites", scope(h.AvailableSites))
	mux.HandleFunc("GET "+base+"/{id}/available-programs", scope(h.AvailablePrograms))
}

// List handles GET /api/preceptors
func (h *PreceptorHandler) List(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.logger, "list preceptors", h.preceptors.List)
}

// Create handles POST /api/preceptors
func (h *PreceptorHandler) Create(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.logger, "create preceptor", h.preceptors.Create)
}

// Get handles GET /api/preceptors/{id}
func (h *PreceptorHandler) Get(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.logger, "get preceptor", h.preceptors.Get)
}

// GetByName handles GET /api/preceptors/by-name?name=
func (h *PreceptorHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "invalid_query", "name is required", h.logger)
		return
	}

	p, err := h.preceptors.GetByFullName(r.Context(), name)
	if err != nil {
		writeServiceError(w, err, "get preceptor by name", h.logger, zap.String("name", name))
		return
	}
	writeData(w, http.StatusOK, p, h.logger)
}

// Update handles PATCH /api/preceptors/{id}
func (h *PreceptorHandler) Update(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, h.logger, "update preceptor", h.preceptors.Update)
}

// Delete handles DELETE /api/preceptors/{id}
func (h *PreceptorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.logger, "delete preceptor", h.preceptors.Delete)
}

// GetWithAffiliations handles GET /api/preceptors/{id}/affiliations?onlyActive=
// onlyActive defaults to false so the full history is visible.
func (h *PreceptorHandler) GetWithAffiliations(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	active, ok := onlyActive(w, r, false, h.logger)
	if !ok {
		return
	}

	p, err := h.preceptors.GetWithAffiliations(r.Context(), id, active)
	if err != nil {
		writeServiceError(w, err, "get preceptor affiliations", h.logger, zap.String("preceptor_id", id.String()))
		return
	}
	writeData(w, http.StatusOK, p, h.logger)
}

// AvailableSchools handles GET /api/preceptors/{id}/available-schools
func (h *PreceptorHandler) AvailableSchools(w http.ResponseWriter, r *http.Request) {
	handleListByID(w, r, h.logger, "list available schools", h.preceptors.AvailableSchools)
}

// AvailableSites handles GET /api/preceptors/{id}/available-sites?schoolId=
func (h *PreceptorHandler) AvailableSites(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	schoolID, ok := queryUUID(w, r, "schoolId", h.logger)
	if !ok {
		return
	}

	sites, err := h.preceptors.AvailableSites(r.Context(), id, schoolID)
	if err != nil {
		writeServiceError(w, err, "list available sites", h.logger, zap.String("preceptor_id", id.String()))
		return
	}
	writeData(w, http.StatusOK, newListResponse(sites), h.logger)
}

// AvailablePrograms handles GET /api/preceptors/{id}/available-programs?schoolId=&siteId=
func (h *PreceptorHandler) AvailablePrograms(w http.ResponseWriter, r *http.Request) {
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

	programs, err := h.preceptors.AvailablePrograms(r.Context(), id, schoolID, siteID)
	if err != nil {
		writeServiceError(w, err, "list available programs", h.logger, zap.String("preceptor_id", id.String()))
		return
	}
	writeData(w, http.StatusOK, newListResponse(programs), h.logger)
}
