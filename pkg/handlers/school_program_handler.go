package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/services"
)

// SchoolProgramHandler handles the school/program-type join records.
type SchoolProgramHandler struct {
	links  services.SchoolProgramService
	logger *zap.Logger
}

// NewSchoolProgramHandler creates a new school program handler.
func NewSchoolProgramHandler(links services.SchoolProgramService, logger *zap.Logger) *SchoolProgramHandler {
	return &SchoolProgramHandler{
		links:  links,
		logger: logger,
	}
}

// RegisterRoutes registers the school program routes on the given mux.
func (h *SchoolProgramHandler) RegisterRoutes(mux *http.ServeMux, scope Middleware) {
	base := "/api/school-programs"

	mux.HandleFunc("GET "+base, scope(h.List))
	mux.HandleFunc("POST "+base, scope(h.Create))
	mux.HandleFunc("PATCH "+base+"/{id}", scope(h.Update))
	mux.HandleFunc("DELETE "+base+"/{id}", scope(h.Delete))
}

// List handles GET /api/school-programs?schoolId=|programTypeId=
func (h *SchoolProgramHandler) List(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := queryUUID(w, r, "schoolId", h.logger)
	if !ok {
		return
	}
	programTypeID, ok := queryUUID(w, r, "programTypeId", h.logger)
	if !ok {
		return
	}

	var views []*models.SchoolProgramView
	var err error
	switch {
	case schoolID != uuid.Nil && programTypeID != uuid.Nil:
		writeError(w, http.StatusBadRequest, "invalid_query", "filter by schoolId or programTypeId, not both", h.logger)
		return
	case schoolID != uuid.Nil:
		views, err = h.links.ListBySchool(r.Context(), schoolID)
	case programTypeID != uuid.Nil:
		views, err = h.links.ListByProgramType(r.Context(), programTypeID)
	default:
		views, err = h.links.List(r.Context())
	}
	if err != nil {
		writeServiceError(w, err, "list school programs", h.logger)
		return
	}
	writeData(w, http.StatusOK, newListResponse(views), h.logger)
}

// Create handles POST /api/school-programs
func (h *SchoolProgramHandler) Create(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.logger, "create school program", h.links.Create)
}

// Update handles PATCH /api/school-programs/{id}
func (h *SchoolProgramHandler) Update(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, h.logger, "update school program", h.links.Update)
}

// Delete handles DELETE /api/school-programs/{id}
func (h *SchoolProgramHandler) Delete(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.logger, "delete school program", h.links.Delete)
}
