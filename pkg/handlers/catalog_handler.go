package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/services"
)

// Middleware wraps a handler func, e.g. database.WithRequestScope.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// CatalogHandler serves schools, practice sites, program types,
// rotation types and experience types.
type CatalogHandler struct {
	catalog services.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog services.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers the catalog routes on the given mux.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux, scope Middleware) {
	mux.HandleFunc("GET /api/schools", scope(h.ListSchools))
	mux.HandleFunc("POST /api/schools", scope(h.CreateSchool))
	mux.HandleFunc("GET /api/schools/{id}", scope(h.GetSchool))
	mux.HandleFunc("PATCH /api/schools/{id}", scope(h.UpdateSchool))
	mux.HandleFunc("DELETE /api/schools/{id}", scope(h.DeleteSchool))

	mux.HandleFunc("GET /api/sites", scope(h.ListSites))
	mux.HandleFunc("POST /api/sites", scope(h.CreateSite))
	mux.HandleFunc("GET /api/sites/{id}", scope(h.GetSite))
	mux.HandleFunc("PATCH /api/sites/{id}", scope(h.UpdateSite))
	mux.HandleFunc("DELETE /api/sites/{id}", scope(h.DeleteSite))

	mux.HandleFunc("GET /api/program-types", scope(h.ListProgramTypes))
	mux.HandleFunc("POST /api/program-types", scope(h.CreateProgramType))
	mux.HandleFunc("GET /api/program-types/{id}", scope(h.GetProgramType))
	mux.HandleFunc("PATCH /api/program-types/{id}", scope(h.UpdateProgramType))
	mux.HandleFunc("DELETE /api/program-types/{id}", scope(h.DeleteProgramType))
	mux.HandleFunc("GET /api/program-types/{id}/rotation-types", scope(h.ListRotationTypesByProgram))
	mux.HandleFunc("GET /api/program-types/{id}/experience-types", scope(h.ListExperienceTypesByProgram))

	mux.HandleFunc("GET /api/rotation-types", scope(h.ListRotationTypes))
	mux.HandleFunc("POST /api/rotation-types", scope(h.CreateRotationType))
	mux.HandleFunc("GET /api/rotation-types/{id}", scope(h.GetRotationType))
	mux.HandleFunc("PATCH /api/rotation-types/{id}", scope(h.UpdateRotationType))
	mux.HandleFunc("DELETE /api/rotation-types/{id}", scope(h.DeleteRotationType))

	mux.HandleFunc("GET /api/experience-types", scope(h.ListExperienceTypes))
	mux.HandleFunc("POST /api/experience-types", scope(h.CreateExperienceType))
	mux.HandleFunc("GET /api/experience-types/{id}", scope(h.GetExperienceType))
	mux.HandleFunc("PATCH /api/experience-types/{id}", scope(h.UpdateExperienceType))
	mux.HandleFunc("DELETE /api/experience-types/{id}", scope(h.DeleteExperienceType))
}

// ============================================================================
// Schools
// ============================================================================

// ListSchools handles GET /api/schools
func (h *CatalogHandler) ListSchools(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.logger, "list schools", h.catalog.ListSchools)
}

// CreateSchool handles POST /api/schools
func (h *CatalogHandler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.logger, "create school", h.catalog.CreateSchool)
}

// GetSchool handles GET /api/schools/{id}
func (h *CatalogHandler) GetSchool(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.logger, "get school", h.catalog.GetSchool)
}

// UpdateSchool handles PATCH /api/schools/{id}
func (h *CatalogHandler) UpdateSchool(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, h.logger, "update school", h.catalog.UpdateSchool)
}

// DeleteSchool handles DELETE /api/schools/{id}
func (h *CatalogHandler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.logger, "delete school", h.catalog.DeleteSchool)
}

// ============================================================================
// Practice Sites
// ============================================================================

func (h *CatalogHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.logger, "list sites", h.catalog.ListSites)
}

func (h *CatalogHandler) CreateSite(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.logger, "create site", h.catalog.CreateSite)
}

func (h *CatalogHandler) GetSite(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.logger, "get site", h.catalog.GetSite)
}

func (h *CatalogHandler) UpdateSite(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, h.logger, "update site", h.catalog.UpdateSite)
}

func (h *CatalogHandler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.logger, "delete site", h.catalog.DeleteSite)
}

// ============================================================================
// Program Types
// ============================================================================

func (h *CatalogHandler) ListProgramTypes(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.logger, "list program types", h.catalog.ListProgramTypes)
}

func (h *CatalogHandler) CreateProgramType(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.logger, "create program type", h.catalog.CreateProgramType)
}

func (h *CatalogHandler) GetProgramType(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.logger, "get program type", h.catalog.GetProgramType)
}

func (h *CatalogHandler) UpdateProgramType(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, h.logger, "update program type", h.catalog.UpdateProgramType)
}

// DeleteProgramType handles DELETE /api/program-types/{id}.
// Returns 409 while rotation or experience types still reference the program.
func (h *CatalogHandler) DeleteProgramType(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.logger, "delete program type", h.catalog.DeleteProgramType)
}

// ListRotationTypesByProgram handles GET /api/program-types/{id}/rotation-types
func (h *CatalogHandler) ListRotationTypesByProgram(w http.ResponseWriter, r *http.Request) {
	handleListByID(w, r, h.logger, "list rotation types by program", h.catalog.ListRotationTypesByProgram)
}

// ListExperienceTypesByProgram handles GET /api/program-types/{id}/experience-types
func (h *CatalogHandler) ListExperienceTypesByProgram(w http.ResponseWriter, r *http.Request) {
	handleListByID(w, r, h.logger, "list experience types by program", h.catalog.ListExperienceTypesByProgram)
}

// ============================================================================
// Rotation and Experience Types
// ============================================================================

func (h *CatalogHandler) ListRotationTypes(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.logger, "list rotation types", h.catalog.ListRotationTypes)
}

func (h *CatalogHandler) CreateRotationType(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.logger, "create rotation type", h.catalog.CreateRotationType)
}

func (h *CatalogHandler) GetRotationType(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.logger, "get rotation type", h.catalog.GetRotationType)
}

func (h *CatalogHandler) UpdateRotationType(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, h.logger, "update rotation type", h.catalog.UpdateRotationType)
}

func (h *CatalogHandler) DeleteRotationType(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.logger, "delete rotation type", h.catalog.DeleteRotationType)
}

func (h *CatalogHandler) ListExperienceTypes(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.logger, "list experience types", h.catalog.ListExperienceTypes)
}

func (h *CatalogHandler) CreateExperienceType(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.logger, "create experience type", h.catalog.CreateExperienceType)
}

func (h *CatalogHandler) GetExperienceType(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.logger, "get experience type", h.catalog.GetExperienceType)
}

func (h *CatalogHandler) UpdateExperienceType(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, h.logger, "update experience type", h.catalog.UpdateExperienceType)
}

func (h *CatalogHandler) DeleteExperienceType(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.logger, "delete experience type", h.catalog.DeleteExperienceType)
}
