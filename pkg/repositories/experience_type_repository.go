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

// ExperienceTypeRepository provides data access for experience types.
type ExperienceTypeRepository interface {
	Create(ctx context.Context, et *models.ExperienceType) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ExperienceType, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.ExperienceType, error)
	FindByName(ctx context.Context, name string) ([]*models.ExperienceType, error)
	List(ctx context.Context, limit int) ([]*models.ExperienceType, error)
	ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.ExperienceType, error)
	Update(ctx context.Context, et *models.ExperienceType) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type experienceTypeRepository struct{}

// NewExperienceTypeRepository creates a new ExperienceTypeRepository.
func NewExperienceTypeRepository() ExperienceTypeRepository {
	return &experienceTypeRepository{}
}

var _ ExperienceTypeRepository = (*experienceTypeRepository)(nil)

const experienceTypeColumns = `id, program_type_id, name, description, created_at, updated_at`

func (r *experienceTypeRepository) Create(ctx context.Context, et *models.ExperienceType) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	err = c.QueryRow(ctx, `
		INSERT INTO experience_types (program_type_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at`,
		et.ProgramTypeID, et.Name, et.Description, now,
	).Scan(&et.ID, &et.CreatedAt, &et.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create experience type")
	}
	return nil
}

func (r *experienceTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ExperienceType, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	et, err := scanExperienceType(c.QueryRow(ctx, `SELECT `+experienceTypeColumns+` FROM experience_types WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return et, nil
}

func (r *experienceTypeRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.ExperienceType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+experienceTypeColumns+` FROM experience_types WHERE id = ANY($1) ORDER BY name`, ids)
}

func (r *experienceTypeRepository) FindByName(ctx context.Context, name string) ([]*models.ExperienceType, error) {
	return r.query(ctx, `SELECT `+experienceTypeColumns+` FROM experience_types WHERE lower(name) = lower($1) ORDER BY name`, name)
}

func (r *experienceTypeRepository) List(ctx context.Context, limit int) ([]*models.ExperienceType, error) {
	return r.query(ctx, `SELECT `+experienceTypeColumns+` FROM experience_types ORDER BY name LIMIT $1`, limitOrDefault(limit))
}

func (r *experienceTypeRepository) ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.ExperienceType, error) {
	return r.query(ctx, `SELECT `+experienceTypeColumns+` FROM experience_types WHERE program_type_id = $1 ORDER BY name`, programTypeID)
}

func (r *experienceTypeRepository) Update(ctx context.Context, et *models.ExperienceType) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	err = c.QueryRow(ctx, `
		UPDATE experience_types SET program_type_id = $2, name = $3, description = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at`,
		et.ID, et.ProgramTypeID, et.Name, et.Description, time.Now(),
	).Scan(&et.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "update experience type")
	}
	return nil
}

func (r *experienceTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	result, err := c.Exec(ctx, `DELETE FROM experience_types WHERE id = $1`, id)
	if err != nil {
		return wrapDeleteError(err, "delete experience type")
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *experienceTypeRepository) query(ctx context.Context, sql string, args ...any) ([]*models.ExperienceType, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query experience types: %w", err)
	}
	return collectRows(rows, scanExperienceType, "experience types")
}

func scanExperienceType(row pgx.Row) (*models.ExperienceType, error) {
	var et models.ExperienceType
	if err := row.Scan(&et.ID, &et.ProgramTypeID, &et.Name, &et.Description, &et.CreatedAt, &et.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan experience type: %w", err)
	}
	return &et, nil
}
