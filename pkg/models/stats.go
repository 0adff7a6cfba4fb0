package models

// PreceptorStats summarizes a preceptor's reviews. A preceptor without
// reviews has every field at zero.
type PreceptorStats struct {
	TotalReviews                 int     `json:"totalReviews"`
	AverageStarRating            float64 `json:"averageStarRating"`
	RecommendationRate           float64 `json:"recommendationRate"`
	AverageSchedulingFlexibility float64 `json:"averageSchedulingFlexibility"`
	AverageWorkload              float64 `json:"averageWorkload"`
	AverageExpectations          float64 `json:"averageExpectations"`
	AverageMentorship            float64 `json:"averageMentorship"`
	AverageEnjoyment             float64 `json:"averageEnjoyment"`
}
