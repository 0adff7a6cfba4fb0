package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/config"
	"github.com/preceptorhub/preceptor-engine/pkg/jsonutil"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

// ReviewService manages review submission, editing, voting and listings.
type ReviewService interface {
	// Create validates the input, then checks the preceptor context through the
	// affiliation gate. The rotation type supplies the program type.
	Create(ctx context.Context, input *models.ReviewInput) (*models.Review, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ReviewView, error)
	// Update applies a partial patch. A patch with no fields leaves updatedAt alone.
	Update(ctx context.Context, id uuid.UUID, patch *models.ReviewPatch) (*models.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context) ([]*models.ReviewView, error)
	// ListForPreceptor looks the preceptor up by full name. An unknown name yields no reviews.
	ListForPreceptor(ctx context.Context, fullName string) ([]*models.ReviewView, error)
	TopReviews(ctx context.Context, limit int) ([]*models.ReviewView, error)
	MostReviewedPreceptors(ctx context.Context, limit int) ([]*models.RankedPreceptor, error)

	Vote(ctx context.Context, id uuid.UUID, direction models.VoteDirection) (*models.Review, error)
	Stats(ctx context.Context, preceptorID uuid.UUID) (models.PreceptorStats, error)
}

type reviewService struct {
	reviews         repositories.ReviewRepository
	preceptors      repositories.PreceptorRepository
	rotationTypes   repositories.RotationTypeRepository
	experienceTypes repositories.ExperienceTypeRepository
	resolver        AffiliationResolver
	aggregator      ReviewAggregator
	denormalizer    *Denormalizer
	validator       *InputValidator
	listing         config.ListingConfig
	logger          *zap.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	reviews repositories.ReviewRepository,
	preceptors repositories.PreceptorRepository,
	rotationTypes repositories.RotationTypeRepository,
	experienceTypes repositories.ExperienceTypeRepository,
	resolver AffiliationResolver,
	aggregator ReviewAggregator,
	denormalizer *Denormalizer,
	validator *InputValidator,
	listing config.ListingConfig,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		reviews:         reviews,
		preceptors:      preceptors,
		rotationTypes:   rotationTypes,
		experienceTypes: experienceTypes,
		resolver:        resolver,
		aggregator:      aggregator,
		denormalizer:    denormalizer,
		validator:       validator,
		listing:         listing,
		logger:          logger.Named("review-service"),
	}
}

var _ ReviewService = (*reviewService)(nil)

// ============================================================================
// Submission
// ============================================================================

func (s *reviewService) Create(ctx context.Context, input *models.ReviewInput) (*models.Review, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	programTypeID, err := s.programOf(ctx, input.RotationTypeID, input.ExperienceTypeID)
	if err != nil {
		return nil, err
	}

	check := s.resolver.ValidateContext(ctx, input.PreceptorID, input.SchoolID, input.SiteID, programTypeID)
	if !check.IsValid {
		s.logger.Info("Review rejected by affiliation gate",
			zap.String("preceptor_id", input.PreceptorID.String()),
			zap.Strings("errors", check.Errors))
		return nil, apperrors.NewValidationError("context", strings.Join(check.Errors, "; "))
	}

	review := input.ToReview()
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

// programOf resolves the program type shared by a rotation and an experience type.
func (s *reviewService) programOf(ctx context.Context, rotationTypeID, experienceTypeID uuid.UUID) (uuid.UUID, error) {
	rotation, err := s.rotationTypes.GetByID(ctx, rotationTypeID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return uuid.Nil, apperrors.NewValidationError("rotationTypeId", "does not exist")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load rotation type: %w", err)
	}

	experience, err := s.experienceTypes.GetByID(ctx, experienceTypeID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return uuid.Nil, apperrors.NewValidationError("experienceTypeId", "does not exist")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load experience type: %w", err)
	}

	if rotation.ProgramTypeID != experience.ProgramTypeID {
		return uuid.Nil, apperrors.NewValidationError("experienceTypeId", "must belong to the rotation type's program")
	}
	return rotation.ProgramTypeID, nil
}

// ============================================================================
// Editing
// ============================================================================

func (s *reviewService) Get(ctx context.Context, id uuid.UUID) (*models.ReviewView, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.denormalizer.Reviews(ctx, []*models.Review{review})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *reviewService) Update(ctx context.Context, id uuid.UUID, patch *models.ReviewPatch) (*models.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &patcher{}
	setField(p, "schoolYear", patch.SchoolYear, &review.SchoolYear)
	setField(p, "priorExperience", patch.PriorExperience, &review.PriorExperience)
	setNullable(p, patch.ExtraHours, &review.ExtraHours)
	setField(p, "schedulingFlexibility", patch.SchedulingFlexibility, &review.SchedulingFlexibility)
	setField(p, "workload", patch.Workload, &review.Workload)
	setField(p, "expectations", patch.Expectations, &review.Expectations)
	setField(p, "mentorship", patch.Mentorship, &review.Mentorship)
	setField(p, "enjoyment", patch.Enjoyment, &review.Enjoyment)
	setField(p, "wouldRecommend", patch.WouldRecommend, &review.WouldRecommend)
	setField(p, "starRating", patch.StarRating, &review.StarRating)
	setNullable(p, patch.Comment, &review.Comment)
	setField(p, "isOutlier", patch.IsOutlier, &review.IsOutlier)
	setNullable(p, patch.OutlierReason, &review.OutlierReason)
	if err := p.err(); err != nil {
		return nil, err
	}
	if !p.touched {
		return review, nil
	}

	if err := s.validator.Struct(reviewToInput(review)); err != nil {
		return nil, err
	}
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	return review, nil
}

// reviewToInput lets a merged record be validated with the submission rules.
func reviewToInput(r *models.Review) *models.ReviewInput {
	return &models.ReviewInput{
		PreceptorID:           r.PreceptorID,
		SchoolID:              r.SchoolID,
		SiteID:                r.SiteID,
		RotationTypeID:        r.RotationTypeID,
		ExperienceTypeID:      r.ExperienceTypeID,
		SchoolYear:            r.SchoolYear,
		PriorExperience:       r.PriorExperience,
		ExtraHours:            r.ExtraHours,
		SchedulingFlexibility: jsonutil.FlexInt(r.SchedulingFlexibility),
		Workload:              jsonutil.FlexInt(r.Workload),
		Expectations:          jsonutil.FlexInt(r.Expectations),
		Mentorship:            jsonutil.FlexInt(r.Mentorship),
		Enjoyment:             jsonutil.FlexInt(r.Enjoyment),
		WouldRecommend:        jsonutil.FlexBool(r.WouldRecommend),
		StarRating:            jsonutil.FlexInt(r.StarRating),
		Comment:               r.Comment,
		IsOutlier:             jsonutil.FlexBool(r.IsOutlier),
		OutlierReason:         r.OutlierReason,
	}
}

func (s *reviewService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.reviews.Delete(ctx, id)
}

// ============================================================================
// Listings
// ============================================================================

func (s *reviewService) List(ctx context.Context) ([]*models.ReviewView, error) {
	reviews, err := s.reviews.List(ctx, models.ReviewQuery{Limit: s.listing.ReviewFilterLimit})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return s.denormalizer.Reviews(ctx, reviews)
}

func (s *reviewService) ListForPreceptor(ctx context.Context, fullName string) ([]*models.ReviewView, error) {
	preceptor, err := s.preceptors.GetByFullName(ctx, strings.TrimSpace(fullName))
	if errors.Is(err, apperrors.ErrNotFound) {
		return []*models.ReviewView{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up preceptor: %w", err)
	}

	reviews, err := s.reviews.ListByPreceptor(ctx, preceptor.ID, s.listing.ReviewFilterLimit)
	if err != nil {
		return nil, fmt.Errorf("list preceptor reviews: %w", err)
	}
	return s.denormalizer.Reviews(ctx, reviews)
}

func (s *reviewService) TopReviews(ctx context.Context, limit int) ([]*models.ReviewView, error) {
	if limit <= 0 {
		limit = s.listing.TopReviewsLimit
	}
	reviews, err := s.aggregator.TopReviews(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.denormalizer.Reviews(ctx, reviews)
}

func (s *reviewService) MostReviewedPreceptors(ctx context.Context, limit int) ([]*models.RankedPreceptor, error) {
	if limit <= 0 {
		limit = s.listing.MostReviewedLimit
	}
	return s.aggregator.MostReviewed(ctx, limit)
}

// ============================================================================
// Votes and stats
// ============================================================================

func (s *reviewService) Vote(ctx context.Context, id uuid.UUID, direction models.VoteDirection) (*models.Review, error) {
	return s.aggregator.RecordVote(ctx, id, direction)
}

func (s *reviewService) Stats(ctx context.Context, preceptorID uuid.UUID) (models.PreceptorStats, error) {
	return s.aggregator.StatsFor(ctx, preceptorID)
}
