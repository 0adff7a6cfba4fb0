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

// RotationTypeRepository provides data access for rotation types.
type RotationTypeRepository interface {
	Create(ctx context.Context, rt *models.RotationType) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RotationType, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.RotationType, error)
	// FindByName matches the name case-insensitively. The same name may exist under several programs.
	FindByName(ctx context.Context, name string) ([]*models.RotationType, error)
	List(ctx context.Context, limit int) ([]*models.RotationType, error)
	ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.RotationType, error)
	Update(ctx context.Context, rt *models.RotationType) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type rotationTypeRepository struct{}

// NewRotationTypeRepository creates a new RotationTypeRepository.
func NewRotationTypeRepository() RotationTypeRepository {
	return &rotationTypeRepository{}
}

var _ RotationTypeRepository = (*rotationTypeRepository)(nil)

const rotationTypeColumns = `id, program_type_id, name, created_at, updated_at`

func (r *rotationTypeRepository) Create(ctx context.Context, rt *models.RotationType) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	err = c.QueryRow(ctx, `
		INSERT INTO rotation_types (program_type_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id, created_at, updated_at`,
		rt.ProgramTypeID, rt.Name, now,
	).Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create rotation type")
	}
	return nil
}

func (r *rotationTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RotationType, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rt, err := scanRotationType(c.QueryRow(ctx, `SELECT `+rotationTypeColumns+` FROM rotation_types WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return rt, nil
}

func (r *rotationTypeRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.RotationType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+rotationTypeColumns+` FROM rotation_types WHERE id = ANY($1) ORDER BY name`, ids)
}

func (r *rotationTypeRepository) FindByName(ctx context.Context, name string) ([]*models.RotationType, error) {
	return r.query(ctx, `SELECT `+rotationTypeColumns+` FROM rotation_types WHERE lower(name) = lower($1) ORDER BY name`, name)
}

func (r *rotationTypeRepository) List(ctx context.Context, limit int) ([]*models.RotationType, error) {
	return r.query(ctx, `SELECT `+rotationTypeColumns+` FROM rotation_types ORDER BY name LIMIT $1`, limitOrDefault(limit))
}

func (r *rotationTypeRepository) ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.RotationType, error) {
	return r.query(ctx, `SELECT `+rotationTypeColumns+` FROM rotation_types WHERE program_type_id = $1 ORDER BY name`, programTypeID)
}

func (r *rotationTypeRepository) Update(ctx context.Context, rt *models.RotationType) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	err = c.QueryRow(ctx, `
		UPDATE rotation_types SET program_type_id = $2, name = $3, updated_at = $4
		WHERE id = $1
		RETURNING updated_at`,
		rt.ID, rt.ProgramTypeID, rt.Name, time.Now(),
	).Scan(&rt.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "update rotation type")
	}
	return nil
}

func (r *rotationTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	result, err := c.Exec(ctx, `DELETE FROM rotation_types WHERE id = $1`, id)
	if err != nil {
		return wrapDeleteError(err, "delete rotation type")
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *rotationTypeRepository) query(ctx context.Context, sql string, args ...any) ([]*models.RotationType, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation types: %w", err)
	}
	return collectRows(rows, scanRotationType, "rotation types")
}

func scanRotationType(row pgx.Row) (*models.RotationType, error) {
	var rt models.RotationType
	if err := row.Scan(&rt.ID, &rt.ProgramTypeID, &rt.Name, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan rotation type: %w", err)
	}
	return &rt, nil
}
