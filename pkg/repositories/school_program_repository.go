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

// SchoolProgramRepository provides data access for the programs each school offers.
type SchoolProgramRepository interface {
	Create(ctx context.Context, sp *models.SchoolProgram) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SchoolProgram, error)
	List(ctx context.Context, limit int) ([]*models.SchoolProgram, error)
	ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*models.SchoolProgram, error)
	ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.SchoolProgram, error)
	Update(ctx context.Context, sp *models.SchoolProgram) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type schoolProgramRepository struct{}

// NewSchoolProgramRepository creates a new SchoolProgramRepository.
func NewSchoolProgramRepository() SchoolProgramRepository {
	return &schoolProgramRepository{}
}

var _ SchoolProgramRepository = (*schoolProgramRepository)(nil)

const schoolProgramColumns = `id, school_id, program_type_id, created_at, updated_at`

func (r *schoolProgramRepository) Create(ctx context.Context, sp *models.SchoolProgram) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	err = c.QueryRow(ctx, `
		INSERT INTO school_programs (school_id, program_type_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id, created_at, updated_at`,
		sp.SchoolID, sp.ProgramTypeID, now,
	).Scan(&sp.ID, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create school program")
	}
	return nil
}

func (r *schoolProgramRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SchoolProgram, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	sp, err := scanSchoolProgram(c.QueryRow(ctx, `SELECT `+schoolProgramColumns+` FROM school_programs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return sp, nil
}

func (r *schoolProgramRepository) List(ctx context.Context, limit int) ([]*models.SchoolProgram, error) {
	return r.query(ctx, `SELECT `+schoolProgramColumns+` FROM school_programs ORDER BY created_at LIMIT $1`, limitOrDefault(limit))
}

func (r *schoolProgramRepository) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*models.SchoolProgram, error) {
	return r.query(ctx, `SELECT `+schoolProgramColumns+` FROM school_programs WHERE school_id = $1 ORDER BY created_at`, schoolID)
}

func (r *schoolProgramRepository) ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.SchoolProgram, error) {
	return r.query(ctx, `SELECT `+schoolProgramColumns+` FROM school_programs WHERE program_type_id = $1 ORDER BY created_at`, programTypeID)
}

func (r *schoolProgramRepository) Update(ctx context.Context, sp *models.SchoolProgram) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	err = c.QueryRow(ctx, `
		UPDATE school_programs SET school_id = $2, program_type_id = $3, updated_at = $4
		WHERE id = $1
		RETURNING updated_at`,
		sp.ID, sp.SchoolID, sp.ProgramTypeID, time.Now(),
	).Scan(&sp.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "update school program")
	}
	return nil
}

func (r *schoolProgramRepository) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	result, err := c.Exec(ctx, `DELETE FROM school_programs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete school program: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *schoolProgramRepository) query(ctx context.Context, sql string, args ...any) ([]*models.SchoolProgram, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query school programs: %w", err)
	}
	return collectRows(rows, scanSchoolProgram, "school programs")
}

func scanSchoolProgram(row pgx.Row) (*models.SchoolProgram, error) {
	var sp models.SchoolProgram
	if err := row.Scan(&sp.ID, &sp.SchoolID, &sp.ProgramTypeID, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan school program: %w", err)
	}
	return &sp, nil
}
