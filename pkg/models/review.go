package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/preceptorhub/preceptor-engine/pkg/jsonutil"
)

// PriorExperience is how much experience the student had before the rotation.
type PriorExperience string

const (
	PriorExperienceNone        PriorExperience = "None"
	PriorExperienceLittle      PriorExperience = "Little"
	PriorExperienceModerate    PriorExperience = "Moderate"
	PriorExperienceSignificant PriorExperience = "Significant"
)

// VoteDirection is the direction of a helpfulness vote on a review.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// Review is a student's rating of a preceptor for one rotation.
// NetScore is always UpvoteCount - DownvoteCount.
type Review struct {
	ID                    uuid.UUID       `json:"id"`
	PreceptorID           uuid.UUID       `json:"preceptorId"`
	SchoolID              uuid.UUID       `json:"schoolId"`
	SiteID                uuid.UUID       `json:"siteId"`
	RotationTypeID        uuid.UUID       `json:"rotationTypeId"`
	ExperienceTypeID      uuid.UUID       `json:"experienceTypeId"`
	SchoolYear            string          `json:"schoolYear"`
	PriorExperience       PriorExperience `json:"priorExperience"`
	ExtraHours            *float64        `json:"extraHours,omitempty"`
	SchedulingFlexibility int             `json:"schedulingFlexibility"`
	Workload              int             `json:"workload"`
	Expectations          int             `json:"expectations"`
	Mentorship            int             `json:"mentorship"`
	Enjoyment             int             `json:"enjoyment"`
	WouldRecommend        bool            `json:"wouldRecommend"`
	StarRating            int             `json:"starRating"`
	Comment               *string         `json:"comment,omitempty"`
	UpvoteCount           int             `json:"upvoteCount"`
	DownvoteCount         int             `json:"downvoteCount"`
	NetScore              int             `json:"netScore"`
	IsOutlier             bool            `json:"isOutlier"`
	OutlierReason         *string         `json:"outlierReason,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// ReviewInput is a review submission. Ratings and booleans accept either JSON
// numbers/booleans or their string forms, as posted by HTML forms.
type ReviewInput struct {
	PreceptorID           uuid.UUID         `json:"preceptorId" validate:"required"`
	SchoolID              uuid.UUID         `json:"schoolId" validate:"required"`
	SiteID                uuid.UUID         `json:"siteId" validate:"required"`
	RotationTypeID        uuid.UUID         `json:"rotationTypeId" validate:"required"`
	ExperienceTypeID      uuid.UUID         `json:"experienceTypeId" validate:"required"`
	SchoolYear            string            `json:"schoolYear" validate:"required,max=20"`
	PriorExperience       PriorExperience   `json:"priorExperience" validate:"required,oneof=None Little Moderate Significant"`
	ExtraHours            *float64          `json:"extraHours" validate:"omitempty,min=0,max=60"`
	SchedulingFlexibility jsonutil.FlexInt  `json:"schedulingFlexibility" validate:"min=1,max=5"`
	Workload              jsonutil.FlexInt  `json:"workload" validate:"min=1,max=5"`
	Expectations          jsonutil.FlexInt  `json:"expectations" validate:"min=1,max=5"`
	Mentorship            jsonutil.FlexInt  `json:"mentorship" validate:"min=1,max=5"`
	Enjoyment             jsonutil.FlexInt  `json:"enjoyment" validate:"min=1,max=5"`
	WouldRecommend        jsonutil.FlexBool `json:"wouldRecommend"`
	StarRating            jsonutil.FlexInt  `json:"starRating" validate:"min=1,max=5"`
	Comment               *string           `json:"comment" validate:"omitempty,max=2000"`
	IsOutlier             jsonutil.FlexBool `json:"isOutlier"`
	OutlierReason         *string           `json:"outlierReason" validate:"omitempty,max=500"`
}

// ToReview builds an unsaved review with zeroed vote counters.
func (in *ReviewInput) ToReview() *Review {
	return &Review{
		PreceptorID:           in.PreceptorID,
		SchoolID:              in.SchoolID,
		SiteID:                in.SiteID,
		RotationTypeID:        in.RotationTypeID,
		ExperienceTypeID:      in.ExperienceTypeID,
		SchoolYear:            in.SchoolYear,
		PriorExperience:       in.PriorExperience,
		ExtraHours:            in.ExtraHours,
		SchedulingFlexibility: int(in.SchedulingFlexibility),
		Workload:              int(in.Workload),
		Expectations:          int(in.Expectations),
		Mentorship:            int(in.Mentorship),
		Enjoyment:             int(in.Enjoyment),
		WouldRecommend:        bool(in.WouldRecommend),
		StarRating:            int(in.StarRating),
		Comment:               in.Comment,
		IsOutlier:             bool(in.IsOutlier),
		OutlierReason:         in.OutlierReason,
	}
}

// ReviewPatch is a partial update. Absent fields are untouched; null clears
// the optional ones (extraHours, comment, outlierReason).
type ReviewPatch struct {
	SchoolYear            jsonutil.Optional[string]          `json:"schoolYear"`
	PriorExperience       jsonutil.Optional[PriorExperience] `json:"priorExperience"`
	ExtraHours            jsonutil.Optional[float64]         `json:"extraHours"`
	SchedulingFlexibility jsonutil.Optional[int]             `json:"schedulingFlexibility"`
	Workload              jsonutil.Optional[int]             `json:"workload"`
	Expectations          jsonutil.Optional[int]             `json:"expectations"`
	Mentorship            jsonutil.Optional[int]             `json:"mentorship"`
	Enjoyment             jsonutil.Optional[int]             `json:"enjoyment"`
	WouldRecommend        jsonutil.Optional[bool]            `json:"wouldRecommend"`
	StarRating            jsonutil.Optional[int]             `json:"starRating"`
	Comment               jsonutil.Optional[string]          `json:"comment"`
	IsOutlier             jsonutil.Optional[bool]            `json:"isOutlier"`
	OutlierReason         jsonutil.Optional[string]          `json:"outlierReason"`
}

// ReviewFilter composes conjunctively. Name filters are resolved to ids
// before the store is queried.
type ReviewFilter struct {
	PreceptorID        uuid.UUID `json:"preceptorId,omitempty"`
	ExperienceTypeName string    `json:"experienceType,omitempty"`
	RotationTypeName   string    `json:"rotationType,omitempty"`
	StarRating         *int      `json:"starRating,omitempty"`
	WouldRecommend     *bool     `json:"wouldRecommend,omitempty"`
	CommentContains    string    `json:"comment,omitempty"`
	Limit              int       `json:"limit,omitempty"`
}

// ReviewQuery is a ReviewFilter after names are resolved to ids.
// A nil id slice does not filter; a name can resolve to several types.
type ReviewQuery struct {
	PreceptorID       uuid.UUID
	ExperienceTypeIDs []uuid.UUID
	RotationTypeIDs   []uuid.UUID
	StarRating        *int
	WouldRecommend    *bool
	CommentContains   string
	Limit             int
}

// ReviewView is a review with display names attached.
type ReviewView struct {
	Review
	PreceptorName      string `json:"preceptorName"`
	SchoolName         string `json:"schoolName"`
	SiteName           string `json:"siteName"`
	RotationTypeName   string `json:"rotationTypeName"`
	ExperienceTypeName string `json:"experienceTypeName"`
}
