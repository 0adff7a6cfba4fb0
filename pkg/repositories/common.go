package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/database"
)

// PostgreSQL error codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// DefaultListLimit bounds list queries when the caller passes no limit.
const DefaultListLimit = 1000

var errNoScope = errors.New("no database scope in context")

// conn returns the request-scoped connection.
func conn(ctx context.Context) (*pgxpool.Conn, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, errNoScope
	}
	return scope.Conn, nil
}

// wrapWriteError maps constraint violations on insert/update to app errors.
func wrapWriteError(err error, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", action, apperrors.ErrConflict)
		case pgForeignKeyViolation, pgCheckViolation:
			return fmt.Errorf("%s: %w: %s", action, apperrors.ErrValidation, pgErr.Message)
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// wrapDeleteError maps a restrict violation on delete to ErrConflict:
// the row is still referenced.
func wrapDeleteError(err error, action string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%s: still referenced: %w", action, apperrors.ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// ListLimit is the row cap a list query applies for the requested limit.
func ListLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func limitOrDefault(limit int) int { return ListLimit(limit) }

// collectRows drains rows through scan, closing them.
func collectRows[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error), what string) ([]*T, error) {
	defer rows.Close()

	var out []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return out, nil
}
