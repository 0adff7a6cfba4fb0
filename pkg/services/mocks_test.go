package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/config"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

// memStore is an in-memory stand-in for the Postgres schema. Every repository
// fake below reads and writes the same store, so services see a consistent view.
type memStore struct {
	mu    sync.Mutex
	clock time.Time

	schools         map[uuid.UUID]*models.School
	sites           map[uuid.UUID]*models.PracticeSite
	programTypes    map[uuid.UUID]*models.ProgramType
	rotationTypes   map[uuid.UUID]*models.RotationType
	experienceTypes map[uuid.UUID]*models.ExperienceType
	preceptors      map[uuid.UUID]*models.Preceptor
	schoolEdges     map[uuid.UUID]*models.PreceptorSchool
	siteEdges       map[uuid.UUID]*models.PreceptorSite
	programEdges    map[uuid.UUID]*models.PreceptorProgram
	reviews         map[uuid.UUID]*models.Review
	schoolPrograms  map[uuid.UUID]*models.SchoolProgram
	waitlist        map[string]*models.WaitlistEntry

	// Call counters for asserting bulk-fetch behavior.
	nameLookups   map[repositories.Collection]int
	reviewLists   int
	edgeListCalls int

	namesErr  error
	reviewErr error
	edgeErr   error
}

func newMemStore() *memStore {
	return &memStore{
		clock:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		schools:         map[uuid.UUID]*models.School{},
		sites:           map[uuid.UUID]*models.PracticeSite{},
		programTypes:    map[uuid.UUID]*models.ProgramType{},
		rotationTypes:   map[uuid.UUID]*models.RotationType{},
		experienceTypes: map[uuid.UUID]*models.ExperienceType{},
		preceptors:      map[uuid.UUID]*models.Preceptor{},
		schoolEdges:     map[uuid.UUID]*models.PreceptorSchool{},
		siteEdges:       map[uuid.UUID]*models.PreceptorSite{},
		programEdges:    map[uuid.UUID]*models.PreceptorProgram{},
		reviews:         map[uuid.UUID]*models.Review{},
		schoolPrograms:  map[uuid.UUID]*models.SchoolProgram{},
		waitlist:        map[string]*models.WaitlistEntry{},
		nameLookups:     map[repositories.Collection]int{},
	}
}

// now advances a fake clock so every write gets a distinct, increasing timestamp.
func (s *memStore) now() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// ============================================================================
// Generic table helpers
// ============================================================================

func getRow[T any](m map[uuid.UUID]*T, id uuid.UUID) (*T, error) {
	v, ok := m[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func sortedRows[T any](rows []*T, key func(*T) string) []*T {
	sort.SliceStable(rows, func(i, j int) bool { return key(rows[i]) < key(rows[j]) })
	return rows
}

func getRows[T any](m map[uuid.UUID]*T, ids []uuid.UUID, key func(*T) string) []*T {
	out := []*T{}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if v, ok := m[id]; ok && !seen[id] {
			seen[id] = true
			cp := *v
			out = append(out, &cp)
		}
	}
	return sortedRows(out, key)
}

func allRows[T any](m map[uuid.UUID]*T, key func(*T) string, limit int) []*T {
	out := []*T{}
	for _, v := range m {
		cp := *v
		out = append(out, &cp)
	}
	return capRows(sortedRows(out, key), repositories.ListLimit(limit))
}

// capRows truncates to n rows; n == 0 means no cap.
func capRows[T any](rows []*T, n int) []*T {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

// edgeRows filters edges and orders them by creation, capped the way the SQL is.
func edgeRows[T any](m map[uuid.UUID]*T, f models.AffiliationFilter, keep func(*T) bool, created func(*T) time.Time) []*T {
	out := []*T{}
	for _, v := range m {
		if keep(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return created(out[i]).Before(created(out[j])) })
	return capRows(out, repositories.EdgeListLimit(f))
}

func filterRows[T any](m map[uuid.UUID]*T, keep func(*T) bool, key func(*T) string) []*T {
	out := []*T{}
	for _, v := range m {
		if keep(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	return sortedRows(out, key)
}

func deleteRow[T any](m map[uuid.UUID]*T, id uuid.UUID) error {
	if _, ok := m[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m, id)
	return nil
}

func schoolKey(s *models.School) string             { return s.Name }
func siteKey(s *models.PracticeSite) string         { return s.Name }
func programKey(p *models.ProgramType) string       { return p.Name }
func rotationKey(r *models.RotationType) string     { return r.Name }
func experienceKey(e *models.ExperienceType) string { return e.Name }
func preceptorKey(p *models.Preceptor) string       { return p.FullName }

// ============================================================================
// Catalog fakes
// ============================================================================

type memSchools struct{ *memStore }

func (r memSchools) Create(ctx context.Context, school *models.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	school.ID = uuid.New()
	school.CreatedAt = r.now()
	school.UpdatedAt = school.CreatedAt
	cp := *school
	r.schools[school.ID] = &cp
	return nil
}

func (r memSchools) GetByID(ctx context.Context, id uuid.UUID) (*models.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRow(r.schools, id)
}

func (r memSchools) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRows(r.schools, ids, schoolKey), nil
}

func (r memSchools) List(ctx context.Context, limit int) ([]*models.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return allRows(r.schools, schoolKey, limit), nil
}

func (r memSchools) Update(ctx context.Context, school *models.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schools[school.ID]; !ok {
		return apperrors.ErrNotFound
	}
	school.UpdatedAt = r.now()
	cp := *school
	r.schools[school.ID] = &cp
	return nil
}

func (r memSchools) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return deleteRow(r.schools, id)
}

type memSites struct{ *memStore }

func (r memSites) Create(ctx context.Context, site *models.PracticeSite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	site.ID = uuid.New()
	site.CreatedAt = r.now()
	site.UpdatedAt = site.CreatedAt
	cp := *site
	r.sites[site.ID] = &cp
	return nil
}

func (r memSites) GetByID(ctx context.Context, id uuid.UUID) (*models.PracticeSite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRow(r.sites, id)
}

func (r memSites) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.PracticeSite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRows(r.sites, ids, siteKey), nil
}

func (r memSites) List(ctx context.Context, limit int) ([]*models.PracticeSite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return allRows(r.sites, siteKey, limit), nil
}

func (r memSites) Update(ctx context.Context, site *models.PracticeSite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sites[site.ID]; !ok {
		return apperrors.ErrNotFound
	}
	site.UpdatedAt = r.now()
	cp := *site
	r.sites[site.ID] = &cp
	return nil
}

func (r memSites) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return deleteRow(r.sites, id)
}

type memProgramTypes struct{ *memStore }

func (r memProgramTypes) Create(ctx context.Context, pt *models.ProgramType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pt.ID = uuid.New()
	pt.CreatedAt = r.now()
	pt.UpdatedAt = pt.CreatedAt
	cp := *pt
	r.programTypes[pt.ID] = &cp
	return nil
}

func (r memProgramTypes) GetByID(ctx context.Context, id uuid.UUID) (*models.ProgramType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRow(r.programTypes, id)
}

func (r memProgramTypes) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.ProgramType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRows(r.programTypes, ids, programKey), nil
}

func (r memProgramTypes) List(ctx context.Context, limit int) ([]*models.ProgramType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return allRows(r.programTypes, programKey, limit), nil
}

func (r memProgramTypes) Update(ctx context.Context, pt *models.ProgramType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programTypes[pt.ID]; !ok {
		return apperrors.ErrNotFound
	}
	pt.UpdatedAt = r.now()
	cp := *pt
	r.programTypes[pt.ID] = &cp
	return nil
}

// Delete mirrors the ON DELETE RESTRICT foreign keys from rotation and experience types.
func (r memProgramTypes) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.rotationTypes {
		if rt.ProgramTypeID == id {
			return apperrors.ErrConflict
		}
	}
	for _, et := range r.experienceTypes {
		if et.ProgramTypeID == id {
			return apperrors.ErrConflict
		}
	}
	return deleteRow(r.programTypes, id)
}

type memRotationTypes struct{ *memStore }

func (r memRotationTypes) Create(ctx context.Context, rt *models.RotationType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt.ID = uuid.New()
	rt.CreatedAt = r.now()
	rt.UpdatedAt = rt.CreatedAt
	cp := *rt
	r.rotationTypes[rt.ID] = &cp
	return nil
}

func (r memRotationTypes) GetByID(ctx context.Context, id uuid.UUID) (*models.RotationType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRow(r.rotationTypes, id)
}

func (r memRotationTypes) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.RotationType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRows(r.rotationTypes, ids, rotationKey), nil
}

func (r memRotationTypes) FindByName(ctx context.Context, name string) ([]*models.RotationType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filterRows(r.rotationTypes, func(rt *models.RotationType) bool {
		return strings.EqualFold(rt.Name, name)
	}, rotationKey), nil
}

func (r memRotationTypes) List(ctx context.Context, limit int) ([]*models.RotationType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return allRows(r.rotationTypes, rotationKey, limit), nil
}

func (r memRotationTypes) ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.RotationType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filterRows(r.rotationTypes, func(rt *models.RotationType) bool {
		return rt.ProgramTypeID == programTypeID
	}, rotationKey), nil
}

func (r memRotationTypes) Update(ctx context.Context, rt *models.RotationType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rotationTypes[rt.ID]; !ok {
		return apperrors.ErrNotFound
	}
	rt.UpdatedAt = r.now()
	cp := *rt
	r.rotationTypes[rt.ID] = &cp
	return nil
}

func (r memRotationTypes) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return deleteRow(r.rotationTypes, id)
}

type memExperienceTypes struct{ *memStore }

func (r memExperienceTypes) Create(ctx context.Context, et *models.ExperienceType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	et.ID = uuid.New()
	et.CreatedAt = r.now()
	et.UpdatedAt = et.CreatedAt
	cp := *et
	r.experienceTypes[et.ID] = &cp
	return nil
}

func (r memExperienceTypes) GetByID(ctx context.Context, id uuid.UUID) (*models.ExperienceType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRow(r.experienceTypes, id)
}

func (r memExperienceTypes) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.ExperienceType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRows(r.experienceTypes, ids, experienceKey), nil
}

func (r memExperienceTypes) FindByName(ctx context.Context, name string) ([]*models.ExperienceType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filterRows(r.experienceTypes, func(et *models.ExperienceType) bool {
		return strings.EqualFold(et.Name, name)
	}, experienceKey), nil
}

func (r memExperienceTypes) List(ctx context.Context, limit int) ([]*models.ExperienceType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return allRows(r.experienceTypes, experienceKey, limit), nil
}

func (r memExperienceTypes) ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.ExperienceType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filterRows(r.experienceTypes, func(et *models.ExperienceType) bool {
		return et.ProgramTypeID == programTypeID
	}, experienceKey), nil
}

func (r memExperienceTypes) Update(ctx context.Context, et *models.ExperienceType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.experienceTypes[et.ID]; !ok {
		return apperrors.ErrNotFound
	}
	et.UpdatedAt = r.now()
	cp := *et
	r.experienceTypes[et.ID] = &cp
	return nil
}

func (r memExperienceTypes) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return deleteRow(r.experienceTypes, id)
}

type memPreceptors struct{ *memStore }

func (r memPreceptors) Create(ctx context.Context, p *models.Preceptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = r.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.preceptors[p.ID] = &cp
	return nil
}

func (r memPreceptors) GetByID(ctx context.Context, id uuid.UUID) (*models.Preceptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRow(r.preceptors, id)
}

func (r memPreceptors) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Preceptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRows(r.preceptors, ids, preceptorKey), nil
}

func (r memPreceptors) GetByFullName(ctx context.Context, fullName string) (*models.Preceptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first *models.Preceptor
	for _, p := range r.preceptors {
		if p.FullName == fullName && (first == nil || p.CreatedAt.Before(first.CreatedAt)) {
			first = p
		}
	}
	if first == nil {
		return nil, apperrors.ErrNotFound
	}
	cp := *first
	return &cp, nil
}

func (r memPreceptors) List(ctx context.Context, limit int) ([]*models.Preceptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return allRows(r.preceptors, preceptorKey, limit), nil
}

func (r memPreceptors) Update(ctx context.Context, p *models.Preceptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.preceptors[p.ID]; !ok {
		return apperrors.ErrNotFound
	}
	p.UpdatedAt = r.now()
	cp := *p
	r.preceptors[p.ID] = &cp
	return nil
}

func (r memPreceptors) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return deleteRow(r.preceptors, id)
}

// ============================================================================
// Affiliation fake
// ============================================================================

type memAffiliations struct{ *memStore }

func (r memAffiliations) CreateSchoolEdge(ctx context.Context, edge *models.PreceptorSchool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	edge.ID = uuid.New()
	edge.CreatedAt = r.now()
	edge.UpdatedAt = edge.CreatedAt
	cp := *edge
	r.schoolEdges[edge.ID] = &cp
	return nil
}

func (r memAffiliations) CreateSiteEdge(ctx context.Context, edge *models.PreceptorSite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	edge.ID = uuid.New()
	edge.CreatedAt = r.now()
	edge.UpdatedAt = edge.CreatedAt
	cp := *edge
	r.siteEdges[edge.ID] = &cp
	return nil
}

func (r memAffiliations) CreateProgramEdge(ctx context.Context, edge *models.PreceptorProgram) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	edge.ID = uuid.New()
	edge.CreatedAt = r.now()
	edge.UpdatedAt = edge.CreatedAt
	cp := *edge
	r.programEdges[edge.ID] = &cp
	return nil
}

func (r memAffiliations) SetActive(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID, isActive bool) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	switch kind {
	case models.AffiliationSchool:
		if e, ok := r.schoolEdges[edgeID]; ok {
			e.IsActive, e.UpdatedAt = isActive, now
			return now, nil
		}
	case models.AffiliationSite:
		if e, ok := r.siteEdges[edgeID]; ok {
			e.IsActive, e.UpdatedAt = isActive, now
			return now, nil
		}
	case models.AffiliationProgram:
		if e, ok := r.programEdges[edgeID]; ok {
			e.IsActive, e.UpdatedAt = isActive, now
			return now, nil
		}
	default:
		return time.Time{}, apperrors.ErrValidation
	}
	return time.Time{}, apperrors.ErrNotFound
}

func (r memAffiliations) Delete(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch kind {
	case models.AffiliationSchool:
		return deleteRow(r.schoolEdges, edgeID)
	case models.AffiliationSite:
		return deleteRow(r.siteEdges, edgeID)
	case models.AffiliationProgram:
		return deleteRow(r.programEdges, edgeID)
	}
	return apperrors.ErrValidation
}

// edgeMatches applies the same narrowing as the SQL edge filter.
func edgeMatches(f models.AffiliationFilter, preceptorID, schoolID, siteID, programTypeID uuid.UUID, isActive bool) bool {
	if f.PreceptorID != uuid.Nil && f.PreceptorID != preceptorID {
		return false
	}
	if f.PreceptorIDs != nil {
		found := false
		for _, id := range f.PreceptorIDs {
			found = found || id == preceptorID
		}
		if !found {
			return false
		}
	}
	if f.SchoolID != uuid.Nil && f.SchoolID != schoolID {
		return false
	}
	if f.SiteID != uuid.Nil && siteID != uuid.Nil && f.SiteID != siteID {
		return false
	}
	if f.ProgramTypeID != uuid.Nil && programTypeID != uuid.Nil && f.ProgramTypeID != programTypeID {
		return false
	}
	return !f.OnlyActive || isActive
}

func (r memAffiliations) ListSchoolEdges(ctx context.Context, f models.AffiliationFilter) ([]*models.PreceptorSchool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edgeListCalls++
	if r.edgeErr != nil {
		return nil, r.edgeErr
	}
	return edgeRows(r.schoolEdges, f, func(e *models.PreceptorSchool) bool {
		return edgeMatches(f, e.PreceptorID, e.SchoolID, uuid.Nil, uuid.Nil, e.IsActive)
	}, func(e *models.PreceptorSchool) time.Time { return e.CreatedAt }), nil
}

func (r memAffiliations) ListSiteEdges(ctx context.Context, f models.AffiliationFilter) ([]*models.PreceptorSite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edgeListCalls++
	if r.edgeErr != nil {
		return nil, r.edgeErr
	}
	return edgeRows(r.siteEdges, f, func(e *models.PreceptorSite) bool {
		return edgeMatches(f, e.PreceptorID, e.SchoolID, e.SiteID, uuid.Nil, e.IsActive)
	}, func(e *models.PreceptorSite) time.Time { return e.CreatedAt }), nil
}

func (r memAffiliations) ListProgramEdges(ctx context.Context, f models.AffiliationFilter) ([]*models.PreceptorProgram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edgeListCalls++
	if r.edgeErr != nil {
		return nil, r.edgeErr
	}
	return edgeRows(r.programEdges, f, func(e *models.PreceptorProgram) bool {
		return edgeMatches(f, e.PreceptorID, e.SchoolID, e.SiteID, e.ProgramTypeID, e.IsActive)
	}, func(e *models.PreceptorProgram) time.Time { return e.CreatedAt }), nil
}

func (r memAffiliations) FindProgramEdge(ctx context.Context, preceptorID, schoolID, siteID, programTypeID uuid.UUID) (*models.PreceptorProgram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.edgeErr != nil {
		return nil, r.edgeErr
	}
	var found *models.PreceptorProgram
	for _, e := range r.programEdges {
		if e.PreceptorID != preceptorID || e.SchoolID != schoolID || e.SiteID != siteID || e.ProgramTypeID != programTypeID {
			continue
		}
		if found == nil || (e.IsActive && !found.IsActive) {
			found = e
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (r memAffiliations) HasActiveSchoolEdge(ctx context.Context, preceptorID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.schoolEdges {
		if e.PreceptorID == preceptorID && e.IsActive {
			return true, nil
		}
	}
	return false, nil
}

// ============================================================================
// Review fake
// ============================================================================

type memReviews struct{ *memStore }

func (r memReviews) Create(ctx context.Context, review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	review.ID = uuid.New()
	review.UpvoteCount, review.DownvoteCount, review.NetScore = 0, 0, 0
	review.CreatedAt = r.now()
	review.UpdatedAt = review.CreatedAt
	cp := *review
	r.reviews[review.ID] = &cp
	return nil
}

func (r memReviews) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRow(r.reviews, id)
}

func (r memReviews) Update(ctx context.Context, review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reviews[review.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	review.UpdatedAt = r.now()
	cp := *review
	cp.UpvoteCount, cp.DownvoteCount, cp.NetScore = stored.UpvoteCount, stored.DownvoteCount, stored.NetScore
	r.reviews[review.ID] = &cp
	return nil
}

func (r memReviews) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return deleteRow(r.reviews, id)
}

func newestFirst(rows []*models.Review, limit int) []*models.Review {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return capRows(rows, repositories.ListLimit(limit))
}

func inIDs(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (r memReviews) selectReviews(keep func(*models.Review) bool, limit int) ([]*models.Review, error) {
	r.reviewLists++
	if r.reviewErr != nil {
		return nil, r.reviewErr
	}
	out := []*models.Review{}
	for _, v := range r.reviews {
		if keep(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	return newestFirst(out, limit), nil
}

func (r memReviews) List(ctx context.Context, q models.ReviewQuery) ([]*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectReviews(func(v *models.Review) bool {
		switch {
		case q.PreceptorID != uuid.Nil && v.PreceptorID != q.PreceptorID:
			return false
		case q.ExperienceTypeIDs != nil && !inIDs(q.ExperienceTypeIDs, v.ExperienceTypeID):
			return false
		case q.RotationTypeIDs != nil && !inIDs(q.RotationTypeIDs, v.RotationTypeID):
			return false
		case q.StarRating != nil && v.StarRating != *q.StarRating:
			return false
		case q.WouldRecommend != nil && v.WouldRecommend != *q.WouldRecommend:
			return false
		case q.CommentContains != "":
			return v.Comment != nil && strings.Contains(strings.ToLower(*v.Comment), strings.ToLower(q.CommentContains))
		}
		return true
	}, q.Limit)
}

func (r memReviews) ListByPreceptor(ctx context.Context, preceptorID uuid.UUID, limit int) ([]*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectReviews(func(v *models.Review) bool { return v.PreceptorID == preceptorID }, limit)
}

func (r memReviews) ListByPreceptors(ctx context.Context, preceptorIDs []uuid.UUID, limit int) ([]*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectReviews(func(v *models.Review) bool { return inIDs(preceptorIDs, v.PreceptorID) }, limit)
}

func (r memReviews) ListTop(ctx context.Context, limit int) ([]*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Review{}
	for _, v := range r.reviews {
		cp := *v
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NetScore != out[j].NetScore {
			return out[i].NetScore > out[j].NetScore
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return capRows(out, repositories.ListLimit(limit)), nil
}

func (r memReviews) CountByPreceptor(ctx context.Context, limit int) ([]repositories.PreceptorReviewCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[uuid.UUID]int{}
	for _, v := range r.reviews {
		counts[v.PreceptorID]++
	}
	out := make([]repositories.PreceptorReviewCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, repositories.PreceptorReviewCount{PreceptorID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].PreceptorID.String() < out[j].PreceptorID.String()
	})
	return capRows(out, repositories.ListLimit(limit)), nil
}

func (r memReviews) IncrementVote(ctx context.Context, id uuid.UUID, direction models.VoteDirection) (*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.reviews[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	switch direction {
	case models.VoteUp:
		v.UpvoteCount++
	case models.VoteDown:
		v.DownvoteCount++
	default:
		return nil, apperrors.ErrValidation
	}
	v.NetScore = v.UpvoteCount - v.DownvoteCount
	v.UpdatedAt = r.now()
	cp := *v
	return &cp, nil
}

// ============================================================================
// Remaining fakes
// ============================================================================

type memSchoolPrograms struct{ *memStore }

func schoolProgramKey(sp *models.SchoolProgram) string { return sp.CreatedAt.Format(time.RFC3339Nano) }

func (r memSchoolPrograms) Create(ctx context.Context, sp *models.SchoolProgram) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.schoolPrograms {
		if existing.SchoolID == sp.SchoolID && existing.ProgramTypeID == sp.ProgramTypeID {
			return apperrors.ErrConflict
		}
	}
	sp.ID = uuid.New()
	sp.CreatedAt = r.now()
	sp.UpdatedAt = sp.CreatedAt
	cp := *sp
	r.schoolPrograms[sp.ID] = &cp
	return nil
}

func (r memSchoolPrograms) GetByID(ctx context.Context, id uuid.UUID) (*models.SchoolProgram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getRow(r.schoolPrograms, id)
}

func (r memSchoolPrograms) List(ctx context.Context, limit int) ([]*models.SchoolProgram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return allRows(r.schoolPrograms, schoolProgramKey, limit), nil
}

func (r memSchoolPrograms) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*models.SchoolProgram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filterRows(r.schoolPrograms, func(sp *models.SchoolProgram) bool { return sp.SchoolID == schoolID }, schoolProgramKey), nil
}

func (r memSchoolPrograms) ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.SchoolProgram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filterRows(r.schoolPrograms, func(sp *models.SchoolProgram) bool { return sp.ProgramTypeID == programTypeID }, schoolProgramKey), nil
}

func (r memSchoolPrograms) Update(ctx context.Context, sp *models.SchoolProgram) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schoolPrograms[sp.ID]; !ok {
		return apperrors.ErrNotFound
	}
	sp.UpdatedAt = r.now()
	cp := *sp
	r.schoolPrograms[sp.ID] = &cp
	return nil
}

func (r memSchoolPrograms) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return deleteRow(r.schoolPrograms, id)
}

type memWaitlist struct{ *memStore }

func (r memWaitlist) Add(ctx context.Context, email string) (*models.WaitlistEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.waitlist[email]; ok {
		cp := *existing
		return &cp, false, nil
	}
	entry := &models.WaitlistEntry{ID: uuid.New(), Email: email, CreatedAt: r.now()}
	r.waitlist[email] = entry
	cp := *entry
	return &cp, true, nil
}

func (r memWaitlist) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waitlist), nil
}

type memNames struct{ *memStore }

func (r memNames) Names(ctx context.Context, collection repositories.Collection, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nameLookups[collection]++
	if r.namesErr != nil {
		return nil, r.namesErr
	}

	out := make(map[uuid.UUID]string)
	for _, id := range ids {
		var name string
		var ok bool
		switch collection {
		case repositories.CollectionSchool:
			var v *models.School
			if v, ok = r.schools[id]; ok {
				name = v.Name
			}
		case repositories.CollectionPracticeSite:
			var v *models.PracticeSite
			if v, ok = r.sites[id]; ok {
				name = v.Name
			}
		case repositories.CollectionProgramType:
			var v *models.ProgramType
			if v, ok = r.programTypes[id]; ok {
				name = v.Name
			}
		case repositories.CollectionRotationType:
			var v *models.RotationType
			if v, ok = r.rotationTypes[id]; ok {
				name = v.Name
			}
		case repositories.CollectionExperienceType:
			var v *models.ExperienceType
			if v, ok = r.experienceTypes[id]; ok {
				name = v.Name
			}
		case repositories.CollectionPreceptor:
			var v *models.Preceptor
			if v, ok = r.preceptors[id]; ok {
				name = v.FullName
			}
		}
		if ok {
			out[id] = name
		}
	}
	return out, nil
}

// ============================================================================
// Test environment
// ============================================================================

var (
	_ repositories.SchoolRepository         = memSchools{}
	_ repositories.PracticeSiteRepository   = memSites{}
	_ repositories.ProgramTypeRepository    = memProgramTypes{}
	_ repositories.RotationTypeRepository   = memRotationTypes{}
	_ repositories.ExperienceTypeRepository = memExperienceTypes{}
	_ repositories.PreceptorRepository      = memPreceptors{}
	_ repositories.AffiliationRepository    = memAffiliations{}
	_ repositories.ReviewRepository         = memReviews{}
	_ repositories.SchoolProgramRepository  = memSchoolPrograms{}
	_ repositories.WaitlistRepository       = memWaitlist{}
	_ repositories.NameLookupRepository     = memNames{}
)

// testEnv wires every service over one memStore with a nil scope, so parallel
// fetches run sequentially on the test context.
type testEnv struct {
	store *memStore

	resolver       AffiliationResolver
	aggregator     ReviewAggregator
	denormalizer   *Denormalizer
	search         SearchService
	reviews        ReviewService
	catalog        CatalogService
	preceptors     PreceptorService
	schoolPrograms SchoolProgramService
	waitlist       WaitlistService
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{CandidateLimit: 1000, DefaultLimit: 20, MaxLimit: 100}
}

func testListingConfig() config.ListingConfig {
	return config.ListingConfig{TopReviewsLimit: 10, MostReviewedLimit: 10, ReviewFilterLimit: 200, CatalogListingSize: 1000}
}

func newTestEnv() *testEnv {
	store := newMemStore()
	logger := zap.NewNop()
	validator := NewInputValidator()

	schools := memSchools{store}
	sites := memSites{store}
	programs := memProgramTypes{store}
	rotations := memRotationTypes{store}
	experiences := memExperienceTypes{store}
	preceptors := memPreceptors{store}
	reviews := memReviews{store}

	env := &testEnv{store: store}
	env.resolver = NewAffiliationResolver(memAffiliations{store}, schools, sites, programs, preceptors, validator, nil, logger)
	env.aggregator = NewReviewAggregator(reviews, preceptors, 1000, logger)
	env.denormalizer = NewDenormalizer(memNames{store}, nil, logger)
	env.search = NewSearchService(preceptors, reviews, rotations, experiences, env.resolver, env.aggregator,
		env.denormalizer, testSearchConfig(), testListingConfig(), logger)
	env.reviews = NewReviewService(reviews, preceptors, rotations, experiences, env.resolver, env.aggregator,
		env.denormalizer, validator, testListingConfig(), logger)
	env.catalog = NewCatalogService(schools, sites, programs, rotations, experiences, env.denormalizer, validator, 1000, logger)
	env.preceptors = NewPreceptorService(preceptors, env.resolver, validator, 1000, logger)
	env.schoolPrograms = NewSchoolProgramService(memSchoolPrograms{store}, schools, programs, env.denormalizer, validator, 1000, logger)
	env.waitlist = NewWaitlistService(memWaitlist{store}, validator, logger)
	return env
}

// fixture is one fully affiliated preceptor with a rotation and experience
// type under the same program.
type fixture struct {
	preceptor  *models.Preceptor
	school     *models.School
	site       *models.PracticeSite
	program    *models.ProgramType
	rotation   *models.RotationType
	experience *models.ExperienceType
	edge       *models.PreceptorProgram
}

func (e *testEnv) addSchool(name string) *models.School {
	s := &models.School{Name: name}
	_ = memSchools{e.store}.Create(context.Background(), s)
	return s
}

func (e *testEnv) addSite(name, city, state string) *models.PracticeSite {
	s := &models.PracticeSite{Name: name, City: city, State: state}
	_ = memSites{e.store}.Create(context.Background(), s)
	return s
}

func (e *testEnv) addProgram(name, abbreviation string) *models.ProgramType {
	p := &models.ProgramType{Name: name, Abbreviation: abbreviation, YearLabels: []string{"P1", "P2", "P3", "P4"}}
	_ = memProgramTypes{e.store}.Create(context.Background(), p)
	return p
}

func (e *testEnv) addRotation(programID uuid.UUID, name string) *models.RotationType {
	r := &models.RotationType{ProgramTypeID: programID, Name: name}
	_ = memRotationTypes{e.store}.Create(context.Background(), r)
	return r
}

func (e *testEnv) addExperience(programID uuid.UUID, name string) *models.ExperienceType {
	x := &models.ExperienceType{ProgramTypeID: programID, Name: name}
	_ = memExperienceTypes{e.store}.Create(context.Background(), x)
	return x
}

func (e *testEnv) addPreceptor(name string) *models.Preceptor {
	p := &models.Preceptor{FullName: name}
	_ = memPreceptors{e.store}.Create(context.Background(), p)
	return p
}

// affiliate creates the school, site and program edges for one 4-tuple.
func (e *testEnv) affiliate(p *models.Preceptor, s *models.School, site *models.PracticeSite, pt *models.ProgramType, active bool) *models.PreceptorProgram {
	ctx := context.Background()
	repo := memAffiliations{e.store}
	_ = repo.CreateSchoolEdge(ctx, &models.PreceptorSchool{PreceptorID: p.ID, SchoolID: s.ID, IsActive: active})
	_ = repo.CreateSiteEdge(ctx, &models.PreceptorSite{PreceptorID: p.ID, SchoolID: s.ID, SiteID: site.ID, IsActive: active})
	edge := &models.PreceptorProgram{PreceptorID: p.ID, SchoolID: s.ID, SiteID: site.ID, ProgramTypeID: pt.ID, IsActive: active}
	_ = repo.CreateProgramEdge(ctx, edge)
	return edge
}

func (e *testEnv) newFixture(preceptorName string) *fixture {
	f := &fixture{
		preceptor: e.addPreceptor(preceptorName),
		school:    e.addSchool("Test University"),
		site:      e.addSite("General Hospital", "Springfield", "IL"),
		program:   e.addProgram("Doctor of Pharmacy", "PharmD"),
	}
	f.rotation = e.addRotation(f.program.ID, "Internal Medicine")
	f.experience = e.addExperience(f.program.ID, "APPE")
	f.edge = e.affiliate(f.preceptor, f.school, f.site, f.program, true)
	return f
}

// addReview stores a review directly, bypassing the affiliation gate.
func (e *testEnv) addReview(f *fixture, star int, recommend bool, comment string) *models.Review {
	r := &models.Review{
		PreceptorID:           f.preceptor.ID,
		SchoolID:              f.school.ID,
		SiteID:                f.site.ID,
		RotationTypeID:        f.rotation.ID,
		ExperienceTypeID:      f.experience.ID,
		SchoolYear:            "P4",
		PriorExperience:       models.PriorExperienceLittle,
		SchedulingFlexibility: star,
		Workload:              star,
		Expectations:          star,
		Mentorship:            star,
		Enjoyment:             star,
		WouldRecommend:        recommend,
		StarRating:            star,
	}
	if comment != "" {
		r.Comment = &comment
	}
	_ = memReviews{e.store}.Create(context.Background(), r)
	return r
}

// validInput is a submission that passes validation for f's context.
func validInput(f *fixture) *models.ReviewInput {
	return &models.ReviewInput{
		PreceptorID:           f.preceptor.ID,
		SchoolID:              f.school.ID,
		SiteID:                f.site.ID,
		RotationTypeID:        f.rotation.ID,
		ExperienceTypeID:      f.experience.ID,
		SchoolYear:            "P4",
		PriorExperience:       models.PriorExperienceModerate,
		SchedulingFlexibility: 4,
		Workload:              3,
		Expectations:          5,
		Mentorship:            5,
		Enjoyment:             4,
		WouldRecommend:        true,
		StarRating:            5,
	}
}
