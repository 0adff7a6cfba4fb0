package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

// StatsReviewLimit bounds how many reviews are read to compute stats.
const StatsReviewLimit = 10000

// ReviewAggregator computes per-preceptor statistics and maintains vote counts.
type ReviewAggregator interface {
	// StatsFor returns all-zero stats, never an error, for a preceptor without reviews.
	StatsFor(ctx context.Context, preceptorID uuid.UUID) (models.PreceptorStats, error)
	// BatchStats reads all reviews of the given preceptors in one query.
	BatchStats(ctx context.Context, preceptorIDs []uuid.UUID) (map[uuid.UUID]models.PreceptorStats, error)
	RecordVote(ctx context.Context, reviewID uuid.UUID, direction models.VoteDirection) (*models.Review, error)
	// TopReviews orders by net score descending, newest first on ties.
	TopReviews(ctx context.Context, limit int) ([]*models.Review, error)
	// MostReviewed orders by review count descending, then by name.
	MostReviewed(ctx context.Context, limit int) ([]*models.RankedPreceptor, error)
}

type reviewAggregator struct {
	reviews        repositories.ReviewRepository
	preceptors     repositories.PreceptorRepository
	candidateLimit int
	statsLimit     int
	logger         *zap.Logger
}

// NewReviewAggregator creates a new ReviewAggregator. candidateLimit bounds how
// many preceptors the most-reviewed ranking considers.
func NewReviewAggregator(
	reviews repositories.ReviewRepository,
	preceptors repositories.PreceptorRepository,
	candidateLimit int,
	logger *zap.Logger,
) ReviewAggregator {
	return &reviewAggregator{
		reviews:        reviews,
		preceptors:     preceptors,
		candidateLimit: candidateLimit,
		statsLimit:     StatsReviewLimit,
		logger:         logger.Named("review-aggregator"),
	}
}

var _ ReviewAggregator = (*reviewAggregator)(nil)

func (a *reviewAggregator) StatsFor(ctx context.Context, preceptorID uuid.UUID) (models.PreceptorStats, error) {
	reviews, err := a.reviews.ListByPreceptor(ctx, preceptorID, a.statsLimit)
	if err != nil {
		return models.PreceptorStats{}, fmt.Errorf("list reviews for stats: %w", err)
	}
	if len(reviews) >= a.statsLimit {
		a.logger.Warn("Review stats truncated at limit",
			zap.String("preceptor_id", preceptorID.String()),
			zap.Int("limit", a.statsLimit))
	}
	return ComputeStats(reviews), nil
}

func (a *reviewAggregator) BatchStats(ctx context.Context, preceptorIDs []uuid.UUID) (map[uuid.UUID]models.PreceptorStats, error) {
	ids := uniqueIDs(preceptorIDs)
	reviews, err := a.reviews.ListByPreceptors(ctx, ids, a.statsLimit)
	if err != nil {
		return nil, fmt.Errorf("list reviews for stats: %w", err)
	}
	if len(reviews) >= a.statsLimit {
		a.logger.Warn("Review stats truncated at limit",
			zap.Int("preceptors", len(ids)),
			zap.Int("limit", a.statsLimit))
	}
	return GroupStats(ids, reviews), nil
}

func (a *reviewAggregator) RecordVote(ctx context.Context, reviewID uuid.UUID, direction models.VoteDirection) (*models.Review, error) {
	review, err := a.reviews.IncrementVote(ctx, reviewID, direction)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Vote recorded",
		zap.String("review_id", reviewID.String()),
		zap.String("direction", string(direction)),
		zap.Int("net_score", review.NetScore))
	return review, nil
}

func (a *reviewAggregator) TopReviews(ctx context.Context, limit int) ([]*models.Review, error) {
	reviews, err := a.reviews.ListTop(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list top reviews: %w", err)
	}
	return reviews, nil
}

func (a *reviewAggregator) MostReviewed(ctx context.Context, limit int) ([]*models.RankedPreceptor, error) {
	counts, err := a.reviews.CountByPreceptor(ctx, a.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(counts))
	exact := make(map[uuid.UUID]int, len(counts))
	for _, c := range counts {
		ids = append(ids, c.PreceptorID)
		exact[c.PreceptorID] = c.Count
	}

	preceptors, err := dereference(ctx, Tolerant, ids, a.preceptors.GetByIDs, preceptorIDOf)
	if err != nil {
		return nil, fmt.Errorf("load preceptors: %w", err)
	}
	stats, err := a.BatchStats(ctx, ids)
	if err != nil {
		return nil, err
	}

	ranked := make([]*models.RankedPreceptor, 0, len(preceptors))
	for _, p := range preceptors {
		st := stats[p.ID]
		// Averages may come from a truncated read; the count is always exact.
		st.TotalReviews = exact[p.ID]
		ranked = append(ranked, &models.RankedPreceptor{Preceptor: *p, Stats: st})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Stats.TotalReviews != ranked[j].Stats.TotalReviews {
			return ranked[i].Stats.TotalReviews > ranked[j].Stats.TotalReviews
		}
		return ranked[i].FullName < ranked[j].FullName
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
