package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
)

// SchoolRepository provides data access for schools.
type SchoolRepository interface {
	Create(ctx context.Context, school *models.School) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.School, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.School, error)
	List(ctx context.Context, limit int) ([]*models.School, error)
	Update(ctx context.Context, school *models.School) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type schoolRepository struct{}

// NewSchoolRepository creates a new SchoolRepository.
func NewSchoolRepository() SchoolRepository {
	return &schoolRepository{}
}

var _ SchoolRepository = (*schoolRepository)(nil)

const schoolColumns = `id, name, created_at, updated_at`

func (r *schoolRepository) Create(ctx context.Context, school *models.School) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	err = c.QueryRow(ctx, `
		INSERT INTO schools (name, created_at, updated_at)
		VALUES ($1, $2, $2)
		RETURNING id, created_at, updated_at`,
		school.Name, now,
	).Scan(&school.ID, &school.CreatedAt, &school.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create school")
	}
	return nil
}

func (r *schoolRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.School, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	school, err := scanSchool(c.QueryRow(ctx, `SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return school, nil
}

// GetByIDs returns the schools that exist among ids. Missing ids are skipped.
func (r *schoolRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.School, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, `SELECT `+schoolColumns+` FROM schools WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query schools: %w", err)
	}
	return collectRows(rows, scanSchool, "schools")
}

func (r *schoolRepository) List(ctx context.Context, limit int) ([]*models.School, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, `SELECT `+schoolColumns+` FROM schools ORDER BY name LIMIT $1`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	return collectRows(rows, scanSchool, "schools")
}

func (r *schoolRepository) Update(ctx context.Context, school *models.School) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	err = c.QueryRow(ctx, `
		UPDATE schools SET name = $2, updated_at = $3
		WHERE id = $1
		RETURNING updated_at`,
		school.ID, school.Name, time.Now(),
	).Scan(&school.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "update school")
	}
	return nil
}

func (r *schoolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	result, err := c.Exec(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return wrapDeleteError(err, "delete school")
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanSchool(row pgx.Row) (*models.School, error) {
	var s models.School
	if err := row.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan school: %w", err)
	}
	return &s, nil
}
