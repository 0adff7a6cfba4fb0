package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/preceptorhub/preceptor-engine/pkg/models"
)

// WaitlistRepository stores launch waitlist signups.
type WaitlistRepository interface {
	// Add inserts the email unless it is already present. created reports whether a row was written.
	Add(ctx context.Context, email string) (entry *models.WaitlistEntry, created bool, err error)
	Count(ctx context.Context) (int, error)
}

type waitlistRepository struct{}

// NewWaitlistRepository creates a new WaitlistRepository.
func NewWaitlistRepository() WaitlistRepository {
	return &waitlistRepository{}
}

var _ WaitlistRepository = (*waitlistRepository)(nil)

func (r *waitlistRepository) Add(ctx context.Context, email string) (*models.WaitlistEntry, bool, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, false, err
	}

	entry := &models.WaitlistEntry{Email: email}
	err = c.QueryRow(ctx, `
		INSERT INTO waitlist (email, created_at)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, created_at`,
		email, time.Now(),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err == nil {
		return entry, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to add waitlist email: %w", err)
	}

	err = c.QueryRow(ctx, `SELECT id, created_at FROM waitlist WHERE email = $1`, email).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read existing waitlist email: %w", err)
	}
	return entry, false, nil
}

func (r *waitlistRepository) Count(ctx context.Context) (int, error) {
	c, err := conn(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	if err := c.QueryRow(ctx, `SELECT count(*) FROM waitlist`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count waitlist: %w", err)
	}
	return n, nil
}
