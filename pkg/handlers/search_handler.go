package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/services"
)

// SearchHandler serves free-text preceptor search and review filtering.
type SearchHandler struct {
	search services.SearchService
	logger *zap.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(search services.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		search: search,
		logger: logger,
	}
}

// RegisterRoutes registers the search routes on the given mux.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux, scope Middleware) {
	mux.HandleFunc("GET /api/search", scope(h.Search))
	mux.HandleFunc("GET /api/search/reviews", scope(h.SearchByReviews))
	mux.HandleFunc("GET /api/reviews/filter", scope(h.FilterReviews))
}

// Search handles GET /api/search?q=&limit=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", h.logger)
	if !ok {
		return
	}
	term := r.URL.Query().Get("q")

	results, err := h.search.Search(r.Context(), term, limit)
	if err != nil {
		writeServiceError(w, err, "search preceptors", h.logger, zap.String("term", term))
		return
	}
	writeData(w, http.StatusOK, newListResponse(results), h.logger)
}

// SearchByReviews handles GET /api/search/reviews?q=
func (h *SearchHandler) SearchByReviews(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")

	results, err := h.search.SearchPreceptorsByReviews(r.Context(), term)
	if err != nil {
		writeServiceError(w, err, "search preceptors by reviews", h.logger, zap.String("term", term))
		return
	}
	writeData(w, http.StatusOK, newListResponse(results), h.logger)
}

// FilterReviews handles GET /api/reviews/filter. Every parameter is optional
// and they combine with AND:
// preceptorId, experienceType, rotationType, starRating, wouldRecommend, comment, limit.
func (h *SearchHandler) FilterReviews(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	reviews, err := h.search.FilterReviews(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "filter reviews", h.logger)
		return
	}
	writeData(w, http.StatusOK, newListResponse(reviews), h.logger)
}

func (h *SearchHandler) parseFilter(w http.ResponseWriter, r *http.Request) (models.ReviewFilter, bool) {
	q := r.URL.Query()
	filter := models.ReviewFilter{
		ExperienceTypeName: strings.TrimSpace(q.Get("experienceType")),
		RotationTypeName:   strings.TrimSpace(q.Get("rotationType")),
		CommentContains:    q.Get("comment"),
	}

	var ok bool
	if filter.PreceptorID, ok = queryUUID(w, r, "preceptorId", h.logger); !ok {
		return filter, false
	}
	if filter.WouldRecommend, ok = queryBool(w, r, "wouldRecommend", h.logger); !ok {
		return filter, false
	}
	if filter.Limit, ok = queryInt(w, r, "limit", h.logger); !ok {
		return filter, false
	}
	if q.Get("starRating") != "" {
		star, ok := queryInt(w, r, "starRating", h.logger)
		if !ok {
			return filter, false
		}
		filter.StarRating = &star
	}
	return filter, true
}
