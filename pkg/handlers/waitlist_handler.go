package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/services"
)

// JoinWaitlistRequest for POST /api/waitlist
type JoinWaitlistRequest struct {
	Email string `json:"email"`
}

// WaitlistHandler handles the launch waitlist.
type WaitlistHandler struct {
	waitlist services.WaitlistService
	logger   *zap.Logger
}

// NewWaitlistHandler creates a new waitlist handler.
func NewWaitlistHandler(waitlist services.WaitlistService, logger *zap.Logger) *WaitlistHandler {
	return &WaitlistHandler{
		waitlist: waitlist,
		logger:   logger,
	}
}

// RegisterRoutes registers the waitlist routes on the given mux.
func (h *WaitlistHandler) RegisterRoutes(mux *http.ServeMux, scope Middleware) {
	mux.HandleFunc("POST /api/waitlist", scope(h.Join))
	mux.HandleFunc("GET /api/waitlist/count", scope(h.Count))
}

// Join handles POST /api/waitlist. Joining twice returns the existing entry.
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinWaitlistRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	entry, err := h.waitlist.AddEmail(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err, "join waitlist", h.logger)
		return
	}
	writeData(w, http.StatusOK, entry, h.logger)
}

// Count handles GET /api/waitlist/count
func (h *WaitlistHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.waitlist.Count(r.Context())
	if err != nil {
		writeServiceError(w, err, "count waitlist", h.logger)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"count": n}, h.logger)
}
