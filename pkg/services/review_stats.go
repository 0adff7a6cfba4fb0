package services

import (
	"github.com/google/uuid"

	"github.com/preceptorhub/preceptor-engine/pkg/models"
)

// statsAccumulator sums one preceptor's reviews.
type statsAccumulator struct {
	count       int
	stars       int
	recommended int
	scheduling  int
	workload    int
	expectation int
	mentorship  int
	enjoyment   int
}

func (a *statsAccumulator) add(r *models.Review) {
	a.count++
	a.stars += r.StarRating
	if r.WouldRecommend {
		a.recommended++
	}
	a.scheduling += r.SchedulingFlexibility
	a.workload += r.Workload
	a.expectation += r.Expectations
	a.mentorship += r.Mentorship
	a.enjoyment += r.Enjoyment
}

func (a *statsAccumulator) stats() models.PreceptorStats {
	if a == nil || a.count == 0 {
		return models.PreceptorStats{}
	}
	n := float64(a.count)
	return models.PreceptorStats{
		TotalReviews:                 a.count,
		AverageStarRating:            float64(a.stars) / n,
		RecommendationRate:           100 * float64(a.recommended) / n,
		AverageSchedulingFlexibility: float64(a.scheduling) / n,
		AverageWorkload:              float64(a.workload) / n,
		AverageExpectations:          float64(a.expectation) / n,
		AverageMentorship:            float64(a.mentorship) / n,
		AverageEnjoyment:             float64(a.enjoyment) / n,
	}
}

// ComputeStats summarizes reviews. An empty slice yields all-zero stats.
func ComputeStats(reviews []*models.Review) models.PreceptorStats {
	var acc statsAccumulator
	for _, r := range reviews {
		acc.add(r)
	}
	return acc.stats()
}

// GroupStats buckets reviews by preceptor in a single pass. Every id in
// preceptorIDs gets an entry; those without reviews get zero stats.
// Reviews of preceptors not in preceptorIDs are ignored.
func GroupStats(preceptorIDs []uuid.UUID, reviews []*models.Review) map[uuid.UUID]models.PreceptorStats {
	buckets := make(map[uuid.UUID]*statsAccumulator, len(preceptorIDs))
	for _, id := range preceptorIDs {
		buckets[id] = &statsAccumulator{}
	}
	for _, r := range reviews {
		if acc, ok := buckets[r.PreceptorID]; ok {
			acc.add(r)
		}
	}

	out := make(map[uuid.UUID]models.PreceptorStats, len(buckets))
	for id, acc := range buckets {
		out[id] = acc.stats()
	}
	return out
}
