package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
)

// PreceptorReviewCount is the number of reviews stored for one preceptor.
type PreceptorReviewCount struct {
	PreceptorID uuid.UUID
	Count       int
}

// ReviewRepository provides data access for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	// Update writes the student-editable fields. Vote counters are never written here.
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns reviews matching every set field of q, newest first.
	List(ctx context.Context, q models.ReviewQuery) ([]*models.Review, error)
	ListByPreceptor(ctx context.Context, preceptorID uuid.UUID, limit int) ([]*models.Review, error)
	ListByPreceptors(ctx context.Context, preceptorIDs []uuid.UUID, limit int) ([]*models.Review, error)
	// ListTop orders by net score, then newest first.
	ListTop(ctx context.Context, limit int) ([]*models.Review, error)
	CountByPreceptor(ctx context.Context, limit int) ([]PreceptorReviewCount, error)

	// IncrementVote adds one vote in a single statement and returns the updated row.
	IncrementVote(ctx context.Context, id uuid.UUID, direction models.VoteDirection) (*models.Review, error)
}

type reviewRepository struct{}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository() ReviewRepository {
	return &reviewRepository{}
}

var _ ReviewRepository = (*reviewRepository)(nil)

const reviewColumns = `id, preceptor_id, school_id, site_id, rotation_type_id, experience_type_id,
	school_year, prior_experience, extra_hours,
	scheduling_flexibility, workload, expectations, mentorship, enjoyment,
	would_recommend, star_rating, comment,
	upvote_count, downvote_count, net_score, is_outlier, outlier_reason,
	created_at, updated_at`

// ============================================================================
// CRUD Operations
// ============================================================================

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	review.UpvoteCount = 0
	review.DownvoteCount = 0
	review.NetScore = 0

	err = c.QueryRow(ctx, `
		INSERT INTO reviews (
			preceptor_id, school_id, site_id, rotation_type_id, experience_type_id,
			school_year, prior_experience, extra_hours,
			scheduling_flexibility, workload, expectations, mentorship, enjoyment,
			would_recommend, star_rating, comment,
			upvote_count, downvote_count, net_score, is_outlier, outlier_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			0, 0, 0, $17, $18, $19, $19)
		RETURNING id, created_at, updated_at`,
		review.PreceptorID,
		review.SchoolID,
		review.SiteID,
		review.RotationTypeID,
		review.ExperienceTypeID,
		review.SchoolYear,
		string(review.PriorExperience),
		review.ExtraHours,
		review.SchedulingFlexibility,
		review.Workload,
		review.Expectations,
		review.Mentorship,
		review.Enjoyment,
		review.WouldRecommend,
		review.StarRating,
		review.Comment,
		review.IsOutlier,
		review.OutlierReason,
		now,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create review")
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	review, err := scanReview(c.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return review, nil
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	err = c.QueryRow(ctx, `
		UPDATE reviews
		SET school_year = $2, prior_experience = $3, extra_hours = $4,
		    scheduling_flexibility = $5, workload = $6, expectations = $7,
		    mentorship = $8, enjoyment = $9, would_recommend = $10,
		    star_rating = $11, comment = $12, is_outlier = $13, outlier_reason = $14,
		    updated_at = $15
		WHERE id = $1
		RETURNING updated_at`,
		review.ID,
		review.SchoolYear,
		string(review.PriorExperience),
		review.ExtraHours,
		review.SchedulingFlexibility,
		review.Workload,
		review.Expectations,
		review.Mentorship,
		review.Enjoyment,
		review.WouldRecommend,
		review.StarRating,
		review.Comment,
		review.IsOutlier,
		review.OutlierReason,
		time.Now(),
	).Scan(&review.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "update review")
	}
	return nil
}

func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	result, err := c.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ============================================================================
// Queries
// ============================================================================

func (r *reviewRepository) List(ctx context.Context, q models.ReviewQuery) ([]*models.Review, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if q.PreceptorID != uuid.Nil {
		conds = append(conds, "preceptor_id = "+arg(q.PreceptorID))
	}
	if q.ExperienceTypeIDs != nil {
		conds = append(conds, "experience_type_id = ANY("+arg(q.ExperienceTypeIDs)+")")
	}
	if q.RotationTypeIDs != nil {
		conds = append(conds, "rotation_type_id = ANY("+arg(q.RotationTypeIDs)+")")
	}
	if q.StarRating != nil {
		conds = append(conds, "star_rating = "+arg(*q.StarRating))
	}
	if q.WouldRecommend != nil {
		conds = append(conds, "would_recommend = "+arg(*q.WouldRecommend))
	}
	if q.CommentContains != "" {
		conds = append(conds, "strpos(lower(coalesce(comment, '')), lower("+arg(q.CommentContains)+")) > 0")
	}

	sql := `SELECT ` + reviewColumns + ` FROM reviews`
	if len(conds) > 0 {
		sql += ` WHERE ` + strings.Join(conds, " AND ")
	}
	sql += ` ORDER BY created_at DESC LIMIT ` + arg(limitOrDefault(q.Limit))

	return r.query(ctx, sql, args...)
}

func (r *reviewRepository) ListByPreceptor(ctx context.Context, preceptorID uuid.UUID, limit int) ([]*models.Review, error) {
	return r.query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE preceptor_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, preceptorID, limitOrDefault(limit))
}

func (r *reviewRepository) ListByPreceptors(ctx context.Context, preceptorIDs []uuid.UUID, limit int) ([]*models.Review, error) {
	if len(preceptorIDs) == 0 {
		return nil, nil
	}
	return r.query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE preceptor_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2`, preceptorIDs, limitOrDefault(limit))
}

func (r *reviewRepository) ListTop(ctx context.Context, limit int) ([]*models.Review, error) {
	return r.query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		ORDER BY net_score DESC, created_at DESC
		LIMIT $1`, limitOrDefault(limit))
}

func (r *reviewRepository) CountByPreceptor(ctx context.Context, limit int) ([]PreceptorReviewCount, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, `
		SELECT preceptor_id, count(*)
		FROM reviews
		GROUP BY preceptor_id
		ORDER BY count(*) DESC, preceptor_id
		LIMIT $1`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to count reviews: %w", err)
	}
	defer rows.Close()

	var counts []PreceptorReviewCount
	for rows.Next() {
		var pc PreceptorReviewCount
		if err := rows.Scan(&pc.PreceptorID, &pc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan review count: %w", err)
		}
		counts = append(counts, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review counts: %w", err)
	}
	return counts, nil
}

// ============================================================================
// Voting
// ============================================================================

func (r *reviewRepository) IncrementVote(ctx context.Context, id uuid.UUID, direction models.VoteDirection) (*models.Review, error) {
	var up, down int
	switch direction {
	case models.VoteUp:
		up = 1
	case models.VoteDown:
		down = 1
	default:
		return nil, fmt.Errorf("unknown vote direction %q: %w", direction, apperrors.ErrValidation)
	}

	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	review, err := scanReview(c.QueryRow(ctx, `
		UPDATE reviews
		SET upvote_count = upvote_count + $2,
		    downvote_count = downvote_count + $3,
		    net_score = (upvote_count + $2) - (downvote_count + $3),
		    updated_at = $4
		WHERE id = $1
		RETURNING `+reviewColumns,
		id, up, down, time.Now()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return review, nil
}

func (r *reviewRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Review, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	return collectRows(rows, scanReview, "reviews")
}

func scanReview(row pgx.Row) (*models.Review, error) {
	var rv models.Review
	var prior string
	err := row.Scan(
		&rv.ID,
		&rv.PreceptorID,
		&rv.SchoolID,
		&rv.SiteID,
		&rv.RotationTypeID,
		&rv.ExperienceTypeID,
		&rv.SchoolYear,
		&prior,
		&rv.ExtraHours,
		&rv.SchedulingFlexibility,
		&rv.Workload,
		&rv.Expectations,
		&rv.Mentorship,
		&rv.Enjoyment,
		&rv.WouldRecommend,
		&rv.StarRating,
		&rv.Comment,
		&rv.UpvoteCount,
		&rv.DownvoteCount,
		&rv.NetScore,
		&rv.IsOutlier,
		&rv.OutlierReason,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan review: %w", err)
	}
	rv.PriorExperience = models.PriorExperience(prior)
	return &rv, nil
}
