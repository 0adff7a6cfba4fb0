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

// PracticeSiteRepository provides data access for practice sites.
type PracticeSiteRepository interface {
	Create(ctx context.Context, site *models.PracticeSite) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PracticeSite, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.PracticeSite, error)
	List(ctx context.Context, limit int) ([]*models.PracticeSite, error)
	Update(ctx context.Context, site *models.PracticeSite) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type practiceSiteRepository struct{}

// NewPracticeSiteRepository creates a new PracticeSiteRepository.
func NewPracticeSiteRepository() PracticeSiteRepository {
	return &practiceSiteRepository{}
}

var _ PracticeSiteRepository = (*practiceSiteRepository)(nil)

const practiceSiteColumns = `id, name, city, state, created_at, updated_at`

func (r *practiceSiteRepository) Create(ctx context.Context, site *models.PracticeSite) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	err = c.QueryRow(ctx, `
		INSERT INTO practice_sites (name, city, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at`,
		site.Name, site.City, site.State, now,
	).Scan(&site.ID, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create practice site")
	}
	return nil
}

func (r *practiceSiteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PracticeSite, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	site, err := scanPracticeSite(c.QueryRow(ctx, `SELECT `+practiceSiteColumns+` FROM practice_sites WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return site, nil
}

func (r *practiceSiteRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.PracticeSite, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, `SELECT `+practiceSiteColumns+` FROM practice_sites WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query practice sites: %w", err)
	}
	return collectRows(rows, scanPracticeSite, "practice sites")
}

func (r *practiceSiteRepository) List(ctx context.Context, limit int) ([]*models.PracticeSite, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, `SELECT `+practiceSiteColumns+` FROM practice_sites ORDER BY name LIMIT $1`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list practice sites: %w", err)
	}
	return collectRows(rows, scanPracticeSite, "practice sites")
}

func (r *practiceSiteRepository) Update(ctx context.Context, site *models.PracticeSite) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	err = c.QueryRow(ctx, `
		UPDATE practice_sites SET name = $2, city = $3, state = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at`,
		site.ID, site.Name, site.City, site.State, time.Now(),
	).Scan(&site.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "update practice site")
	}
	return nil
}

func (r *practiceSiteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	result, err := c.Exec(ctx, `DELETE FROM practice_sites WHERE id = $1`, id)
	if err != nil {
		return wrapDeleteError(err, "delete practice site")
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanPracticeSite(row pgx.Row) (*models.PracticeSite, error) {
	var s models.PracticeSite
	if err := row.Scan(&s.ID, &s.Name, &s.City, &s.State, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan practice site: %w", err)
	}
	return &s, nil
}
