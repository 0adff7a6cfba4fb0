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

// ProgramTypeRepository provides data access for program types.
type ProgramTypeRepository interface {
	Create(ctx context.Context, pt *models.ProgramType) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProgramType, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.ProgramType, error)
	List(ctx context.Context, limit int) ([]*models.ProgramType, error)
	Update(ctx context.Context, pt *models.ProgramType) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type programTypeRepository struct{}

// NewProgramTypeRepository creates a new ProgramTypeRepository.
func NewProgramTypeRepository() ProgramTypeRepository {
	return &programTypeRepository{}
}

var _ ProgramTypeRepository = (*programTypeRepository)(nil)

const programTypeColumns = `id, name, abbreviation, year_labels, created_at, updated_at`

func (r *programTypeRepository) Create(ctx context.Context, pt *models.ProgramType) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	if pt.YearLabels == nil {
		pt.YearLabels = []string{}
	}

	now := time.Now()
	err = c.QueryRow(ctx, `
		INSERT INTO program_types (name, abbreviation, year_labels, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at`,
		pt.Name, pt.Abbreviation, pt.YearLabels, now,
	).Scan(&pt.ID, &pt.CreatedAt, &pt.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create program type")
	}
	return nil
}

func (r *programTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProgramType, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	pt, err := scanProgramType(c.QueryRow(ctx, `SELECT `+programTypeColumns+` FROM program_types WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return pt, nil
}

func (r *programTypeRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.ProgramType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, `SELECT `+programTypeColumns+` FROM program_types WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query program types: %w", err)
	}
	return collectRows(rows, scanProgramType, "program types")
}

func (r *programTypeRepository) List(ctx context.Context, limit int) ([]*models.ProgramType, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, `SELECT `+programTypeColumns+` FROM program_types ORDER BY name LIMIT $1`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list program types: %w", err)
	}
	return collectRows(rows, scanProgramType, "program types")
}

func (r *programTypeRepository) Update(ctx context.Context, pt *models.ProgramType) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	if pt.YearLabels == nil {
		pt.YearLabels = []string{}
	}

	err = c.QueryRow(ctx, `
		UPDATE program_types SET name = $2, abbreviation = $3, year_labels = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at`,
		pt.ID, pt.Name, pt.Abbreviation, pt.YearLabels, time.Now(),
	).Scan(&pt.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "update program type")
	}
	return nil
}

// Delete fails with ErrConflict while rotation or experience types still belong to the program.
func (r *programTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	result, err := c.Exec(ctx, `DELETE FROM program_types WHERE id = $1`, id)
	if err != nil {
		return wrapDeleteError(err, "delete program type")
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanProgramType(row pgx.Row) (*models.ProgramType, error) {
	var pt models.ProgramType
	if err := row.Scan(&pt.ID, &pt.Name, &pt.Abbreviation, &pt.YearLabels, &pt.CreatedAt, &pt.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan program type: %w", err)
	}
	return &pt, nil
}
