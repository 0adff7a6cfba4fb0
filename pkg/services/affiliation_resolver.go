package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/database"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

// DerefPolicy decides what happens when an edge points at a missing entity.
type DerefPolicy int

const (
	// Tolerant drops edges whose target no longer exists.
	Tolerant DerefPolicy = iota
	// Strict fails with ErrDanglingReference when any target is missing.
	Strict
)

// ErrDanglingReference is returned by Strict dereferencing.
var ErrDanglingReference = errors.New("dangling reference")

// InvalidContextMessage is reported when no active edge covers a review context.
const InvalidContextMessage = "Invalid preceptor context"

// AffiliationResolver answers which schools, sites and programs a preceptor is
// affiliated with, and the reverse. Reads dereference tolerantly; only
// ValidateContext is strict.
type AffiliationResolver interface {
	SchoolsOf(ctx context.Context, preceptorID uuid.UUID, onlyActive bool) ([]*models.School, error)
	// SitesOf filters by school unless schoolID is uuid.Nil.
	SitesOf(ctx context.Context, preceptorID, schoolID uuid.UUID, onlyActive bool) ([]*models.PracticeSite, error)
	ProgramsOf(ctx context.Context, preceptorID, schoolID, siteID uuid.UUID, onlyActive bool) ([]*models.ProgramType, error)

	PreceptorsOfSchool(ctx context.Context, schoolID uuid.UUID, onlyActive bool) ([]*models.Preceptor, error)
	PreceptorsOfSite(ctx context.Context, siteID, schoolID uuid.UUID, onlyActive bool) ([]*models.Preceptor, error)
	PreceptorsOfProgram(ctx context.Context, programTypeID, schoolID, siteID uuid.UUID, onlyActive bool) ([]*models.Preceptor, error)

	// WithAffiliations attaches schools, sites and programs to each preceptor
	// using one edge query and one target query per edge kind.
	WithAffiliations(ctx context.Context, preceptors []*models.Preceptor, onlyActive bool) ([]*models.PreceptorWithAffiliations, error)

	// ValidateContext is the review-submission gate. It fails closed and never returns an error:
	// lookup failures produce IsValid=false.
	ValidateContext(ctx context.Context, preceptorID, schoolID, siteID, programTypeID uuid.UUID) *models.ContextValidation
	HasActiveAffiliation(ctx context.Context, preceptorID uuid.UUID) (bool, error)

	CreateAffiliation(ctx context.Context, input *models.AffiliationInput) (*models.Affiliation, error)
	SetActive(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID, isActive bool) error
	DeleteAffiliation(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID) error
}

type affiliationResolver struct {
	affiliations repositories.AffiliationRepository
	schools      repositories.SchoolRepository
	sites        repositories.PracticeSiteRepository
	programs     repositories.ProgramTypeRepository
	preceptors   repositories.PreceptorRepository
	validator    *InputValidator
	scope        database.ScopeFunc
	logger       *zap.Logger
}

// NewAffiliationResolver creates a new AffiliationResolver.
// scope may be nil, in which case bulk fetches run sequentially.
func NewAffiliationResolver(
	affiliations repositories.AffiliationRepository,
	schools repositories.SchoolRepository,
	sites repositories.PracticeSiteRepository,
	programs repositories.ProgramTypeRepository,
	preceptors repositories.PreceptorRepository,
	validator *InputValidator,
	scope database.ScopeFunc,
	logger *zap.Logger,
) AffiliationResolver {
	return &affiliationResolver{
		affiliations: affiliations,
		schools:      schools,
		sites:        sites,
		programs:     programs,
		preceptors:   preceptors,
		validator:    validator,
		scope:        scope,
		logger:       logger.Named("affiliation-resolver"),
	}
}

var _ AffiliationResolver = (*affiliationResolver)(nil)

// ============================================================================
// Dereferencing
// ============================================================================

// dereference loads the targets of ids in one bulk fetch. Tolerant drops
// misses; Strict reports them as ErrDanglingReference.
func dereference[T any](
	ctx context.Context,
	policy DerefPolicy,
	ids []uuid.UUID,
	fetch func(context.Context, []uuid.UUID) ([]*T, error),
	idOf func(*T) uuid.UUID,
) ([]*T, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return []*T{}, nil
	}

	found, err := fetch(ctx, unique)
	if err != nil {
		return nil, err
	}

	if policy == Strict && len(found) < len(unique) {
		present := make(map[uuid.UUID]bool, len(found))
		for _, t := range found {
			present[idOf(t)] = true
		}
		var missing []uuid.UUID
		for _, id := range unique {
			if !present[id] {
				missing = append(missing, id)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrDanglingReference, missing)
	}

	if found == nil {
		found = []*T{}
	}
	return found, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func schoolIDOf(s *models.School) uuid.UUID           { return s.ID }
func siteIDOf(s *models.PracticeSite) uuid.UUID       { return s.ID }
func programTypeIDOf(p *models.ProgramType) uuid.UUID { return p.ID }
func preceptorIDOf(p *models.Preceptor) uuid.UUID     { return p.ID }

// ============================================================================
// Forward queries
// ============================================================================

func (r *affiliationResolver) SchoolsOf(ctx context.Context, preceptorID uuid.UUID, onlyActive bool) ([]*models.School, error) {
	edges, err := r.affiliations.ListSchoolEdges(ctx, models.AffiliationFilter{PreceptorID: preceptorID, OnlyActive: onlyActive})
	if err != nil {
		return nil, fmt.Errorf("list school affiliations: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.SchoolID)
	}
	return dereference(ctx, Tolerant, ids, r.schools.GetByIDs, schoolIDOf)
}

func (r *affiliationResolver) SitesOf(ctx context.Context, preceptorID, schoolID uuid.UUID, onlyActive bool) ([]*models.PracticeSite, error) {
	edges, err := r.affiliations.ListSiteEdges(ctx, models.AffiliationFilter{
		PreceptorID: preceptorID,
		SchoolID:    schoolID,
		OnlyActive:  onlyActive,
	})
	if err != nil {
		return nil, fmt.Errorf("list site affiliations: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.SiteID)
	}
	return dereference(ctx, Tolerant, ids, r.sites.GetByIDs, siteIDOf)
}

func (r *affiliationResolver) ProgramsOf(ctx context.Context, preceptorID, schoolID, siteID uuid.UUID, onlyActive bool) ([]*models.ProgramType, error) {
	edges, err := r.affiliations.ListProgramEdges(ctx, models.AffiliationFilter{
		PreceptorID: preceptorID,
		SchoolID:    schoolID,
		SiteID:      siteID,
		OnlyActive:  onlyActive,
	})
	if err != nil {
		return nil, fmt.Errorf("list program affiliations: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ProgramTypeID)
	}
	return dereference(ctx, Tolerant, ids, r.programs.GetByIDs, programTypeIDOf)
}

// ============================================================================
// Inverse queries
// ============================================================================

func (r *affiliationResolver) PreceptorsOfSchool(ctx context.Context, schoolID uuid.UUID, onlyActive bool) ([]*models.Preceptor, error) {
	edges, err := r.affiliations.ListSchoolEdges(ctx, models.AffiliationFilter{SchoolID: schoolID, OnlyActive: onlyActive})
	if err != nil {
		return nil, fmt.Errorf("list school affiliations: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.PreceptorID)
	}
	return dereference(ctx, Tolerant, ids, r.preceptors.GetByIDs, preceptorIDOf)
}

func (r *affiliationResolver) PreceptorsOfSite(ctx context.Context, siteID, schoolID uuid.UUID, onlyActive bool) ([]*models.Preceptor, error) {
	edges, err := r.affiliations.ListSiteEdges(ctx, models.AffiliationFilter{
		SiteID:     siteID,
		SchoolID:   schoolID,
		OnlyActive: onlyActive,
	})
	if err != nil {
		return nil, fmt.Errorf("list site affiliations: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.PreceptorID)
	}
	return dereference(ctx, Tolerant, ids, r.preceptors.GetByIDs, preceptorIDOf)
}

func (r *affiliationResolver) PreceptorsOfProgram(ctx context.Context, programTypeID, schoolID, siteID uuid.UUID, onlyActive bool) ([]*models.Preceptor, error) {
	edges, err := r.affiliations.ListProgramEdges(ctx, models.AffiliationFilter{
		ProgramTypeID: programTypeID,
		SchoolID:      schoolID,
		SiteID:        siteID,
		OnlyActive:    onlyActive,
	})
	if err != nil {
		return nil, fmt.Errorf("list program affiliations: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.PreceptorID)
	}
	return dereference(ctx, Tolerant, ids, r.preceptors.GetByIDs, preceptorIDOf)
}

// ============================================================================
// Bulk attach
// ============================================================================

func (r *affiliationResolver) WithAffiliations(ctx context.Context, preceptors []*models.Preceptor, onlyActive bool) ([]*models.PreceptorWithAffiliations, error) {
	out := make([]*models.PreceptorWithAffiliations, 0, len(preceptors))
	if len(preceptors) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(preceptors))
	for _, p := range preceptors {
		ids = append(ids, p.ID)
	}
	filter := models.AffiliationFilter{PreceptorIDs: ids, OnlyActive: onlyActive}

	var (
		schoolEdges  []*models.PreceptorSchool
		siteEdges    []*models.PreceptorSite
		programEdges []*models.PreceptorProgram
	)
	err := runParallel(ctx, r.scope,
		func(ctx context.Context) (err error) {
			schoolEdges, err = r.affiliations.ListSchoolEdges(ctx, filter)
			return err
		},
		func(ctx context.Context) (err error) {
			siteEdges, err = r.affiliations.ListSiteEdges(ctx, filter)
			return err
		},
		func(ctx context.Context) (err error) {
			programEdges, err = r.affiliations.ListProgramEdges(ctx, filter)
			return err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("list affiliations: %w", err)
	}

	schoolsBy := make(map[uuid.UUID]map[uuid.UUID]bool)
	sitesBy := make(map[uuid.UUID]map[uuid.UUID]bool)
	programsBy := make(map[uuid.UUID]map[uuid.UUID]bool)
	var schoolIDs, siteIDs, programIDs []uuid.UUID
	for _, e := range schoolEdges {
		markEdge(schoolsBy, e.PreceptorID, e.SchoolID)
		schoolIDs = append(schoolIDs, e.SchoolID)
	}
	for _, e := range siteEdges {
		markEdge(sitesBy, e.PreceptorID, e.SiteID)
		siteIDs = append(siteIDs, e.SiteID)
	}
	for _, e := range programEdges {
		markEdge(programsBy, e.PreceptorID, e.ProgramTypeID)
		programIDs = append(programIDs, e.ProgramTypeID)
	}

	var (
		schools  []*models.School
		sites    []*models.PracticeSite
		programs []*models.ProgramType
	)
	err = runParallel(ctx, r.scope,
		func(ctx context.Context) (err error) {
			schools, err = dereference(ctx, Tolerant, schoolIDs, r.schools.GetByIDs, schoolIDOf)
			return err
		},
		func(ctx context.Context) (err error) {
			sites, err = dereference(ctx, Tolerant, siteIDs, r.sites.GetByIDs, siteIDOf)
			return err
		},
		func(ctx context.Context) (err error) {
			programs, err = dereference(ctx, Tolerant, programIDs, r.programs.GetByIDs, programTypeIDOf)
			return err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("load affiliation targets: %w", err)
	}

	for _, p := range preceptors {
		out = append(out, &models.PreceptorWithAffiliations{
			Preceptor: *p,
			Schools:   pick(schools, schoolsBy[p.ID], schoolIDOf),
			Sites:     pick(sites, sitesBy[p.ID], siteIDOf),
			Programs:  pick(programs, programsBy[p.ID], programTypeIDOf),
		})
	}
	return out, nil
}

func markEdge(m map[uuid.UUID]map[uuid.UUID]bool, from, to uuid.UUID) {
	if m[from] == nil {
		m[from] = make(map[uuid.UUID]bool)
	}
	m[from][to] = true
}

// pick keeps the order of all, selecting the members of want.
func pick[T any](all []*T, want map[uuid.UUID]bool, idOf func(*T) uuid.UUID) []*T {
	out := make([]*T, 0, len(want))
	for _, t := range all {
		if want[idOf(t)] {
			out = append(out, t)
		}
	}
	return out
}

// ============================================================================
// Gate
// ============================================================================

func (r *affiliationResolver) ValidateContext(ctx context.Context, preceptorID, schoolID, siteID, programTypeID uuid.UUID) *models.ContextValidation {
	result := &models.ContextValidation{Errors: []string{}}

	edge, err := r.affiliations.FindProgramEdge(ctx, preceptorID, schoolID, siteID, programTypeID)
	switch {
	case err != nil:
		r.logger.Error("Failed to look up program affiliation",
			zap.String("preceptor_id", preceptorID.String()),
			zap.Error(err))
		result.Errors = append(result.Errors, InvalidContextMessage)
	case edge == nil:
		result.Errors = append(result.Errors, InvalidContextMessage)
	case !edge.IsActive:
		result.Errors = append(result.Errors, InvalidContextMessage, "Preceptor is no longer affiliated with this program")
	default:
		result.Errors = append(result.Errors, r.checkTargets(ctx, schoolID, siteID, programTypeID)...)
	}

	result.IsValid = len(result.Errors) == 0
	if !result.IsValid {
		result.Suggestions = r.suggest(ctx, preceptorID, schoolID, siteID)
	}
	return result
}

// checkTargets strictly dereferences the school, site and program of an active edge.
func (r *affiliationResolver) checkTargets(ctx context.Context, schoolID, siteID, programTypeID uuid.UUID) []string {
	var problems []string
	report := func(what string, err error) {
		if err == nil {
			return
		}
		if !errors.Is(err, ErrDanglingReference) {
			r.logger.Error("Failed to verify affiliation target",
				zap.String("target", what),
				zap.Error(err))
		}
		problems = append(problems, fmt.Sprintf("%s does not exist", what))
	}

	_, err := dereference(ctx, Strict, []uuid.UUID{schoolID}, r.schools.GetByIDs, schoolIDOf)
	report("School", err)
	_, err = dereference(ctx, Strict, []uuid.UUID{siteID}, r.sites.GetByIDs, siteIDOf)
	report("Site", err)
	_, err = dereference(ctx, Strict, []uuid.UUID{programTypeID}, r.programs.GetByIDs, programTypeIDOf)
	report("Program", err)
	return problems
}

// suggest lists the active alternatives along the chain the caller already chose.
func (r *affiliationResolver) suggest(ctx context.Context, preceptorID, schoolID, siteID uuid.UUID) models.ContextSuggestions {
	var s models.ContextSuggestions
	var err error

	if s.Schools, err = r.SchoolsOf(ctx, preceptorID, true); err != nil {
		r.logger.Warn("Failed to build school suggestions", zap.Error(err))
		return s
	}
	if !containsID(s.Schools, schoolID, schoolIDOf) {
		return s
	}
	if s.Sites, err = r.SitesOf(ctx, preceptorID, schoolID, true); err != nil {
		r.logger.Warn("Failed to build site suggestions", zap.Error(err))
		return s
	}
	if !containsID(s.Sites, siteID, siteIDOf) {
		return s
	}
	if s.Programs, err = r.ProgramsOf(ctx, preceptorID, schoolID, siteID, true); err != nil {
		r.logger.Warn("Failed to build program suggestions", zap.Error(err))
	}
	return s
}

func containsID[T any](items []*T, id uuid.UUID, idOf func(*T) uuid.UUID) bool {
	for _, t := range items {
		if idOf(t) == id {
			return true
		}
	}
	return false
}

func (r *affiliationResolver) HasActiveAffiliation(ctx context.Context, preceptorID uuid.UUID) (bool, error) {
	ok, err := r.affiliations.HasActiveSchoolEdge(ctx, preceptorID)
	if err != nil {
		return false, fmt.Errorf("check active affiliation: %w", err)
	}
	return ok, nil
}

// ============================================================================
// Mutations
// ============================================================================

func (r *affiliationResolver) CreateAffiliation(ctx context.Context, input *models.AffiliationInput) (*models.Affiliation, error) {
	if err := r.validator.Struct(input); err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	switch input.Kind {
	case models.AffiliationSchool:
		edge := &models.PreceptorSchool{PreceptorID: input.PreceptorID, SchoolID: input.SchoolID, IsActive: isActive}
		if err := r.affiliations.CreateSchoolEdge(ctx, edge); err != nil {
			return nil, err
		}
		return &models.Affiliation{Kind: input.Kind, Edge: edge}, nil
	case models.AffiliationSite:
		edge := &models.PreceptorSite{
			PreceptorID: input.PreceptorID,
			SchoolID:    input.SchoolID,
			SiteID:      input.SiteID,
			IsActive:    isActive,
		}
		if err := r.affiliations.CreateSiteEdge(ctx, edge); err != nil {
			return nil, err
		}
		return &models.Affiliation{Kind: input.Kind, Edge: edge}, nil
	case models.AffiliationProgram:
		edge := &models.PreceptorProgram{
			PreceptorID:   input.PreceptorID,
			SchoolID:      input.SchoolID,
			SiteID:        input.SiteID,
			ProgramTypeID: input.ProgramTypeID,
			IsActive:      isActive,
		}
		if err := r.affiliations.CreateProgramEdge(ctx, edge); err != nil {
			return nil, err
		}
		return &models.Affiliation{Kind: input.Kind, Edge: edge}, nil
	}
	return nil, apperrors.NewValidationError("kind", "must be one of: school, site, program")
}

func (r *affiliationResolver) SetActive(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID, isActive bool) error {
	if _, err := r.affiliations.SetActive(ctx, kind, edgeID, isActive); err != nil {
		return err
	}
	r.logger.Info("Affiliation active flag changed",
		zap.String("kind", string(kind)),
		zap.String("edge_id", edgeID.String()),
		zap.Bool("is_active", isActive))
	return nil
}

func (r *affiliationResolver) DeleteAffiliation(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID) error {
	return r.affiliations.Delete(ctx, kind, edgeID)
}
