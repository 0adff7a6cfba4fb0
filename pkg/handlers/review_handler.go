package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/services"
)

// ReviewHandler handles review submission, voting and rankings.
type ReviewHandler struct {
	reviews services.ReviewService
	logger  *zap.Logger
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(reviews services.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		logger:  logger,
	}
}

// RegisterRoutes registers the review routes on the given mux.
func (h *ReviewHandler) RegisterRoutes(mux *http.ServeMux, scope Middleware) {
	base := "/api/reviews"

	mux.HandleFunc("GET "+base, scope(h.List))
	mux.HandleFunc("POST "+base, scope(h.Create))
	mux.HandleFunc("GET "+base+"/top", scope(h.TopReviews))
	mux.HandleFunc("GET "+base+"/{id}", scope(h.Get))
	mux.HandleFunc("PATCH "+base+"/{id}", scope(h.Update))
	mux.HandleFunc("DELETE "+base+"/{id}", scope(h.Delete))
	mux.HandleFunc("POST "+base+"/{id}/upvote", scope(h.Upvote))
	mux.HandleFunc("POST "+base+"/{id}/downvote", scope(h.Downvote))

	mux.HandleFunc("GET /api/preceptors/most-reviewed", scope(h.MostReviewed))
	mux.HandleFunc("GET /api/preceptors/{id}/stats", scope(h.Stats))
}

// List handles GET /api/reviews. With ?preceptor=<full name> only that
// preceptor's reviews are returned; an unknown name gives an empty list.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("preceptor"); name != "" {
		reviews, err := h.reviews.ListForPreceptor(r.Context(), name)
		if err != nil {
			writeServiceError(w, err, "list reviews for preceptor", h.logger, zap.String("preceptor", name))
			return
		}
		writeData(w, http.StatusOK, newListResponse(reviews), h.logger)
		return
	}
	handleList(w, r, h.logger, "list reviews", h.reviews.List)
}

// Create handles POST /api/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.logger, "create review", h.reviews.Create)
}

// Get handles GET /api/reviews/{id}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.logger, "get review", h.reviews.Get)
}

// Update handles PATCH /api/reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, h.logger, "update review", h.reviews.Update)
}

// Delete handles DELETE /api/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.logger, "delete review", h.reviews.Delete)
}

// Upvote handles POST /api/reviews/{id}/upvote
func (h *ReviewHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, models.VoteUp)
}

// Downvote handles POST /api/reviews/{id}/downvote
func (h *ReviewHandler) Downvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, models.VoteDown)
}

func (h *ReviewHandler) vote(w http.ResponseWriter, r *http.Request, direction models.VoteDirection) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	review, err := h.reviews.Vote(r.Context(), id, direction)
	if err != nil {
		writeServiceError(w, err, "record vote", h.logger,
			zap.String("review_id", id.String()),
			zap.String("direction", string(direction)))
		return
	}
	writeData(w, http.StatusOK, review, h.logger)
}

// TopReviews handles GET /api/reviews/top?limit=
func (h *ReviewHandler) TopReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", h.logger)
	if !ok {
		return
	}

	reviews, err := h.reviews.TopReviews(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err, "list top reviews", h.logger)
		return
	}
	writeData(w, http.StatusOK, newListResponse(reviews), h.logger)
}

// MostReviewed handles GET /api/preceptors/most-reviewed?limit=
func (h *ReviewHandler) MostReviewed(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", h.logger)
	if !ok {
		return
	}

	ranked, err := h.reviews.MostReviewedPreceptors(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err, "list most reviewed preceptors", h.logger)
		return
	}
	writeData(w, http.StatusOK, newListResponse(ranked), h.logger)
}

// Stats handles GET /api/preceptors/{id}/stats.
// A preceptor without reviews gets all-zero stats.
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.logger, "compute preceptor stats", h.reviews.Stats)
}
