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

// AffiliationRepository provides data access for the three preceptor edge collections.
// Edges are soft-deactivated with SetActive and only hard-removed with Delete.
type AffiliationRepository interface {
	CreateSchoolEdge(ctx context.Context, edge *models.PreceptorSchool) error
	CreateSiteEdge(ctx context.Context, edge *models.PreceptorSite) error
	CreateProgramEdge(ctx context.Context, edge *models.PreceptorProgram) error

	SetActive(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID, isActive bool) (time.Time, error)
	Delete(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID) error

	ListSchoolEdges(ctx context.Context, filter models.AffiliationFilter) ([]*models.PreceptorSchool, error)
	ListSiteEdges(ctx context.Context, filter models.AffiliationFilter) ([]*models.PreceptorSite, error)
	ListProgramEdges(ctx context.Context, filter models.AffiliationFilter) ([]*models.PreceptorProgram, error)

	// FindProgramEdge returns the edge for the exact 4-tuple, preferring an active one.
	// Returns nil, nil when no edge exists.
	FindProgramEdge(ctx context.Context, preceptorID, schoolID, siteID, programTypeID uuid.UUID) (*models.PreceptorProgram, error)
	HasActiveSchoolEdge(ctx context.Context, preceptorID uuid.UUID) (bool, error)
}

type affiliationRepository struct{}

// NewAffiliationRepository creates a new AffiliationRepository.
func NewAffiliationRepository() AffiliationRepository {
	return &affiliationRepository{}
}

var _ AffiliationRepository = (*affiliationRepository)(nil)

var edgeTables = map[models.AffiliationKind]string{
	models.AffiliationSchool:  "preceptor_schools",
	models.AffiliationSite:    "preceptor_sites",
	models.AffiliationProgram: "preceptor_programs",
}

// ============================================================================
// Create
// ============================================================================

func (r *affiliationRepository) CreateSchoolEdge(ctx context.Context, edge *models.PreceptorSchool) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	err = c.QueryRow(ctx, `
		INSERT INTO preceptor_schools (preceptor_id, school_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at`,
		edge.PreceptorID, edge.SchoolID, edge.IsActive, now,
	).Scan(&edge.ID, &edge.CreatedAt, &edge.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create preceptor school affiliation")
	}
	return nil
}

func (r *affiliationRepository) CreateSiteEdge(ctx context.Context, edge *models.PreceptorSite) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	err = c.QueryRow(ctx, `
		INSERT INTO preceptor_sites (preceptor_id, school_id, site_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, created_at, updated_at`,
		edge.PreceptorID, edge.SchoolID, edge.SiteID, edge.IsActive, now,
	).Scan(&edge.ID, &edge.CreatedAt, &edge.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create preceptor site affiliation")
	}
	return nil
}

func (r *affiliationRepository) CreateProgramEdge(ctx context.Context, edge *models.PreceptorProgram) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	err = c.QueryRow(ctx, `
		INSERT INTO preceptor_programs (preceptor_id, school_id, site_id, program_type_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, created_at, updated_at`,
		edge.PreceptorID, edge.SchoolID, edge.SiteID, edge.ProgramTypeID, edge.IsActive, now,
	).Scan(&edge.ID, &edge.CreatedAt, &edge.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "create preceptor program affiliation")
	}
	return nil
}

// ============================================================================
// Mutations
// ============================================================================

func (r *affiliationRepository) SetActive(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID, isActive bool) (time.Time, error) {
	table, ok := edgeTables[kind]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown affiliation kind %q: %w", kind, apperrors.ErrValidation)
	}
	c, err := conn(ctx)
	if err != nil {
		return time.Time{}, err
	}

	var updatedAt time.Time
	err = c.QueryRow(ctx,
		`UPDATE `+table+` SET is_active = $2, updated_at = $3 WHERE id = $1 RETURNING updated_at`,
		edgeID, isActive, time.Now(),
	).Scan(&updatedAt)
	if err != nil {
		return time.Time{}, wrapWriteError(err, "set affiliation active flag")
	}
	return updatedAt, nil
}

func (r *affiliationRepository) Delete(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID) error {
	table, ok := edgeTables[kind]
	if !ok {
		return fmt.Errorf("unknown affiliation kind %q: %w", kind, apperrors.ErrValidation)
	}
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	result, err := c.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, edgeID)
	if err != nil {
		return fmt.Errorf("failed to delete affiliation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ============================================================================
// Queries
// ============================================================================

func (r *affiliationRepository) ListSchoolEdges(ctx context.Context, filter models.AffiliationFilter) ([]*models.PreceptorSchool, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	where, args := edgeWhere(filter, false, false)
	limit, args := edgeLimit(filter, args)
	rows, err := c.Query(ctx, `
		SELECT id, preceptor_id, school_id, is_active, created_at, updated_at
		FROM preceptor_schools`+where+`
		ORDER BY created_at`+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query preceptor school affiliations: %w", err)
	}
	return collectRows(rows, scanSchoolEdge, "preceptor school affiliations")
}

func (r *affiliationRepository) ListSiteEdges(ctx context.Context, filter models.AffiliationFilter) ([]*models.PreceptorSite, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	where, args := edgeWhere(filter, true, false)
	limit, args := edgeLimit(filter, args)
	rows, err := c.Query(ctx, `
		SELECT id, preceptor_id, school_id, site_id, is_active, created_at, updated_at
		FROM preceptor_sites`+where+`
		ORDER BY created_at`+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query preceptor site affiliations: %w", err)
	}
	return collectRows(rows, scanSiteEdge, "preceptor site affiliations")
}

func (r *affiliationRepository) ListProgramEdges(ctx context.Context, filter models.AffiliationFilter) ([]*models.PreceptorProgram, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	where, args := edgeWhere(filter, true, true)
	limit, args := edgeLimit(filter, args)
	rows, err := c.Query(ctx, `
		SELECT id, preceptor_id, school_id, site_id, program_type_id, is_active, created_at, updated_at
		FROM preceptor_programs`+where+`
		ORDER BY created_at`+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query preceptor program affiliations: %w", err)
	}
	return collectRows(rows, scanProgramEdge, "preceptor program affiliations")
}

func (r *affiliationRepository) FindProgramEdge(ctx context.Context, preceptorID, schoolID, siteID, programTypeID uuid.UUID) (*models.PreceptorProgram, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	edge, err := scanProgramEdge(c.QueryRow(ctx, `
		SELECT id, preceptor_id, school_id, site_id, program_type_id, is_active, created_at, updated_at
		FROM preceptor_programs
		WHERE preceptor_id = $1 AND school_id = $2 AND site_id = $3 AND program_type_id = $4
		ORDER BY is_active DESC, created_at
		LIMIT 1`,
		preceptorID, schoolID, siteID, programTypeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return edge, nil
}

func (r *affiliationRepository) HasActiveSchoolEdge(ctx context.Context, preceptorID uuid.UUID) (bool, error) {
	c, err := conn(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = c.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM preceptor_schools WHERE preceptor_id = $1 AND is_active
		)`, preceptorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active affiliation: %w", err)
	}
	return exists, nil
}

// edgeWhere builds the WHERE clause for a filter. Site and program columns
// are only applied to tables that have them.
func edgeWhere(f models.AffiliationFilter, hasSite, hasProgram bool) (string, []any) {
	var conds []string
	var args []any

	add := func(column string, id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		args = append(args, id)
		conds = append(conds, column+" = "+placeholder(len(args)))
	}

	add("preceptor_id", f.PreceptorID)
	if f.PreceptorIDs != nil {
		args = append(args, f.PreceptorIDs)
		conds = append(conds, "preceptor_id = ANY("+placeholder(len(args))+")")
	}
	add("school_id", f.SchoolID)
	if hasSite {
		add("site_id", f.SiteID)
	}
	if hasProgram {
		add("program_type_id", f.ProgramTypeID)
	}
	if f.OnlyActive {
		conds = append(conds, "is_active")
	}

	if len(conds) == 0 {
		return "", args
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

// EdgeListLimit is the row cap an edge query applies. A query keyed by an
// explicit preceptor id set returns every edge of those preceptors (0, no cap);
// the id set is already bounded by the caller.
func EdgeListLimit(f models.AffiliationFilter) int {
	if f.PreceptorIDs != nil && f.Limit <= 0 {
		return 0
	}
	return ListLimit(f.Limit)
}

func edgeLimit(f models.AffiliationFilter, args []any) (string, []any) {
	n := EdgeListLimit(f)
	if n == 0 {
		return "", args
	}
	args = append(args, n)
	return "\n\t\tLIMIT " + placeholder(len(args)), args
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func scanSchoolEdge(row pgx.Row) (*models.PreceptorSchool, error) {
	var e models.PreceptorSchool
	if err := row.Scan(&e.ID, &e.PreceptorID, &e.SchoolID, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan preceptor school affiliation: %w", err)
	}
	return &e, nil
}

func scanSiteEdge(row pgx.Row) (*models.PreceptorSite, error) {
	var e models.PreceptorSite
	if err := row.Scan(&e.ID, &e.PreceptorID, &e.SchoolID, &e.SiteID, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan preceptor site affiliation: %w", err)
	}
	return &e, nil
}

func scanProgramEdge(row pgx.Row) (*models.PreceptorProgram, error) {
	var e models.PreceptorProgram
	if err := row.Scan(&e.ID, &e.PreceptorID, &e.SchoolID, &e.SiteID, &e.ProgramTypeID, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan preceptor program affiliation: %w", err)
	}
	return &e, nil
}
