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

// PreceptorRepository provides data access for preceptors.
type PreceptorRepository interface {
	Create(ctx context.Context, p *models.Preceptor) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Preceptor, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Preceptor, error)
	// GetByFullName returns the first preceptor with exactly this name, or ErrNotFound.
	GetByFullName(ctx context.Context, fullName string) (*models.Preceptor, error)
	List(ctx context.Context, limit int) ([]*models.Preceptor, error)
	Update(ctx context.Context, p *models.Preceptor) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type preceptorRepository struct{}

// NewPreceptorRepository creates a new PreceptorRepository.
func NewPreceptorRepository() PreceptorRepository {
	return &preceptorRepository{}
}

var _ PreceptorRepository = (*preceptorRepository)(nil)

const preceptorColumns = `id, full_name, email, credentials, created_at, updated_at`

func (r *preceptorRepository) Create(ctx context.Context, p *models.Preceptor) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	err = c.QueryRow(ctx, `
		INSERT INTO preceptors (full_name, email, credentials, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at`,
		p.FullName, p.Email, p.Credentials, now,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create preceptor")
	}
	return nil
}

func (r *preceptorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Preceptor, error) {
	return r.getOne(ctx, `SELECT `+preceptorColumns+` FROM preceptors WHERE id = $1`, id)
}

func (r *preceptorRepository) GetByFullName(ctx context.Context, fullName string) (*models.Preceptor, error) {
	return r.getOne(ctx, `SELECT `+preceptorColumns+` FROM preceptors WHERE full_name = $1 ORDER BY created_at LIMIT 1`, fullName)
}

func (r *preceptorRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Preceptor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+preceptorColumns+` FROM preceptors WHERE id = ANY($1) ORDER BY full_name`, ids)
}

func (r *preceptorRepository) List(ctx context.Context, limit int) ([]*models.Preceptor, error) {
	return r.query(ctx, `SELECT `+preceptorColumns+` FROM preceptors ORDER BY full_name LIMIT $1`, limitOrDefault(limit))
}

func (r *preceptorRepository) Update(ctx context.Context, p *models.Preceptor) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	err = c.QueryRow(ctx, `
		UPDATE preceptors SET full_name = $2, email = $3, credentials = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FullName, p.Email, p.Credentials, time.Now(),
	).Scan(&p.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "update preceptor")
	}
	return nil
}

// Delete removes the preceptor only. Edges and reviews that reference it are left dangling.
func (r *preceptorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	result, err := c.Exec(ctx, `DELETE FROM preceptors WHERE id = $1`, id)
	if err != nil {
		return wrapDeleteError(err, "delete preceptor")
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *preceptorRepository) getOne(ctx context.Context, sql string, arg any) (*models.Preceptor, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	p, err := scanPreceptor(c.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *preceptorRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Preceptor, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query preceptors: %w", err)
	}
	return collectRows(rows, scanPreceptor, "preceptors")
}

func scanPreceptor(row pgx.Row) (*models.Preceptor, error) {
	var p models.Preceptor
	if err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Credentials, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan preceptor: %w", err)
	}
	return &p, nil
}
