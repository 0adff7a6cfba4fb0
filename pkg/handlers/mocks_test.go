package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/services"
)

// ============================================================================
// Test Helpers
// ============================================================================

// noScope stands in for database.WithRequestScope in handler tests.
func noScope(next http.HandlerFunc) http.HandlerFunc { return next }

type routeRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, scope Middleware)
}

func newTestMux(handlers ...routeRegistrar) *http.ServeMux {
	mux := http.NewServeMux()
	for _, h := range handlers {
		h.RegisterRoutes(mux, noScope)
	}
	return mux
}

func doRequest(t *testing.T, mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps a successful ApiResponse into T.
func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.True(t, envelope.Success, rec.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// ============================================================================
// Mock Implementations
// ============================================================================

// mockCatalogService implements services.CatalogService. Schools and rotation
// types are backed by fixtures; every method fails with err when it is set.
type mockCatalogService struct {
	schools   []*models.School
	rotations []*models.RotationTypeView
	err       error

	createdSchool  *models.SchoolInput
	patchedSchool  *models.SchoolPatch
	deletedID      uuid.UUID
	listedByProgID uuid.UUID
}

var _ services.CatalogService = (*mockCatalogService)(nil)

func (m *mockCatalogService) CreateSchool(ctx context.Context, input *models.SchoolInput) (*models.School, error) {
	m.createdSchool = input
	if m.err != nil {
		return nil, m.err
	}
	return &models.School{ID: uuid.New(), Name: input.Name}, nil
}

func (m *mockCatalogService) GetSchool(ctx context.Context, id uuid.UUID) (*models.School, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.School{ID: id, Name: "Midwestern University"}, nil
}

func (m *mockCatalogService) ListSchools(ctx context.Context) ([]*models.School, error) {
	return m.schools, m.err
}

func (m *mockCatalogService) UpdateSchool(ctx context.Context, id uuid.UUID, patch *models.SchoolPatch) (*models.School, error) {
	m.patchedSchool = patch
	if m.err != nil {
		return nil, m.err
	}
	return &models.School{ID: id, Name: patch.Name.Value}, nil
}

func (m *mockCatalogService) DeleteSchool(ctx context.Context, id uuid.UUID) error {
	m.deletedID = id
	return m.err
}

func (m *mockCatalogService) CreateSite(ctx context.Context, input *models.PracticeSiteInput) (*models.PracticeSite, error) {
	return nil, m.err
}

func (m *mockCatalogService) GetSite(ctx context.Context, id uuid.UUID) (*models.PracticeSite, error) {
	return nil, m.err
}

func (m *mockCatalogService) ListSites(ctx context.Context) ([]*models.PracticeSite, error) {
	return nil, m.err
}

func (m *mockCatalogService) UpdateSite(ctx context.Context, id uuid.UUID, patch *models.PracticeSitePatch) (*models.PracticeSite, error) {
	return nil, m.err
}

func (m *mockCatalogService) DeleteSite(ctx context.Context, id uuid.UUID) error {
	return m.err
}

func (m *mockCatalogService) CreateProgramType(ctx context.Context, input *models.ProgramTypeInput) (*models.ProgramType, error) {
	return nil, m.err
}

func (m *mockCatalogService) GetProgramType(ctx context.Context, id uuid.UUID) (*models.ProgramType, error) {
	return nil, m.err
}

func (m *mockCatalogService) ListProgramTypes(ctx context.Context) ([]*models.ProgramType, error) {
	return nil, m.err
}

func (m *mockCatalogService) UpdateProgramType(ctx context.Context, id uuid.UUID, patch *models.ProgramTypePatch) (*models.ProgramType, error) {
	return nil, m.err
}

func (m *mockCatalogService) DeleteProgramType(ctx context.Context, id uuid.UUID) error {
	m.deletedID = id
	return m.err
}

func (m *mockCatalogService) CreateRotationType(ctx context.Context, input *models.RotationTypeInput) (*models.RotationType, error) {
	return nil, m.err
}

func (m *mockCatalogService) GetRotationType(ctx context.Context, id uuid.UUID) (*models.RotationTypeView, error) {
	return nil, m.err
}

func (m *mockCatalogService) ListRotationTypes(ctx context.Context) ([]*models.RotationTypeView, error) {
	return m.rotations, m.err
}

func (m *mockCatalogService) ListRotationTypesByProgram(ctx context.Context, programTypeID uuid.UUID) ([]*models.RotationTypeView, error) {
	m.listedByProgID = programTypeID
	return m.rotations, m.err
}

func (m *mockCatalogService) UpdateRotationType(ctx context.Context, id uuid.UUID, patch *models.RotationTypePatch) (*models.RotationType, error) {
	return nil, m.err
}

func (m *mockCatalogService) DeleteRotationType(ctx context.Context, id uuid.UUID) error {
	return m.err
}

func (m *mockCatalogService) CreateExperienceType(ctx context.Context, input *models.ExperienceTypeInput) (*models.ExperienceType, error) {
	return nil, m.err
}

func (m *mockCatalogService) GetExperienceType(ctx context.Context, id uuid.UUID) (*models.ExperienceTypeView, error) {
	return nil, m.err
}

func (m *mockCatalogService) ListExperienceTypes(ctx context.Context) ([]*models.ExperienceTypeView, error) {
	return nil, m.err
}

func (m *mockCatalogService) ListExperienceTypesByProgram(ctx context.Context, programTypeID uuid.UUID) ([]*models.ExperienceTypeView, error) {
	m.listedByProgID = programTypeID
	return nil, m.err
}

func (m *mockCatalogService) UpdateExperienceType(ctx context.Context, id uuid.UUID, patch *models.ExperienceTypePatch) (*models.ExperienceType, error) {
	return nil, m.err
}

func (m *mockCatalogService) DeleteExperienceType(ctx context.Context, id uuid.UUID) error {
	return m.err
}

// mockPreceptorService implements services.PreceptorService and records the
// arguments of the picker calls.
type mockPreceptorService struct {
	preceptor *models.Preceptor
	schools   []*models.School
	sites     []*models.PracticeSite
	programs  []*models.ProgramType
	err       error

	gotName       string
	gotOnlyActive bool
	gotSchoolID   uuid.UUID
	gotSiteID     uuid.UUID
}

var _ services.PreceptorService = (*mockPreceptorService)(nil)

func (m *mockPreceptorService) Create(ctx context.Context, input *models.PreceptorInput) (*models.Preceptor, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Preceptor{ID: uuid.New(), FullName: input.FullName}, nil
}

func (m *mockPreceptorService) Get(ctx context.Context, id uuid.UUID) (*models.Preceptor, error) {
	return m.preceptor, m.err
}

func (m *mockPreceptorService) GetWithAffiliations(ctx context.Context, id uuid.UUID, onlyActive bool) (*models.PreceptorWithAffiliations, error) {
	m.gotOnlyActive = onlyActive
	if m.err != nil {
		return nil, m.err
	}
	return &models.PreceptorWithAffiliations{
		Preceptor: *m.preceptor,
		Schools:   m.schools,
		Sites:     m.sites,
		Programs:  m.programs,
	}, nil
}

func (m *mockPreceptorService) GetByFullName(ctx context.Context, fullName string) (*models.Preceptor, error) {
	m.gotName = fullName
	return m.preceptor, m.err
}

func (m *mockPreceptorService) List(ctx context.Context) ([]*models.Preceptor, error) {
	if m.preceptor == nil {
		return nil, m.err
	}
	return []*models.Preceptor{m.preceptor}, m.err
}

func (m *mockPreceptorService) Update(ctx context.Context, id uuid.UUID, patch *models.PreceptorPatch) (*models.Preceptor, error) {
	return m.preceptor, m.err
}

func (m *mockPreceptorService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.err
}

func (m *mockPreceptorService) AvailableSchools(ctx context.Context, preceptorID uuid.UUID) ([]*models.School, error) {
	return m.schools, m.err
}

func (m *mockPreceptorService) AvailableSites(ctx context.Context, preceptorID, schoolID uuid.UUID) ([]*models.PracticeSite, error) {
	m.gotSchoolID = schoolID
	return m.sites, m.err
}

func (m *mockPreceptorService) AvailablePrograms(ctx context.Context, preceptorID, schoolID, siteID uuid.UUID) ([]*models.ProgramType, error) {
	m.gotSchoolID = schoolID
	m.gotSiteID = siteID
	return m.programs, m.err
}

// mockAffiliationResolver implements services.AffiliationResolver.
type mockAffiliationResolver struct {
	preceptors []*models.Preceptor
	validation *models.ContextValidation
	err        error

	gotKind       models.AffiliationKind
	gotEdgeID     uuid.UUID
	gotActive     bool
	gotOnlyActive bool
	gotSchoolID   uuid.UUID
	gotSiteID     uuid.UUID
	setActiveCall bool
}

var _ services.AffiliationResolver = (*mockAffiliationResolver)(nil)

func (m *mockAffiliationResolver) SchoolsOf(ctx context.Context, preceptorID uuid.UUID, onlyActive bool) ([]*models.School, error) {
	return nil, m.err
}

func (m *mockAffiliationResolver) SitesOf(ctx context.Context, preceptorID, schoolID uuid.UUID, onlyActive bool) ([]*models.PracticeSite, error) {
	return nil, m.err
}

func (m *mockAffiliationResolver) ProgramsOf(ctx context.Context, preceptorID, schoolID, siteID uuid.UUID, onlyActive bool) ([]*models.ProgramType, error) {
	return nil, m.err
}

func (m *mockAffiliationResolver) PreceptorsOfSchool(ctx context.Context, schoolID uuid.UUID, onlyActive bool) ([]*models.Preceptor, error) {
	m.gotOnlyActive = onlyActive
	return m.preceptors, m.err
}

func (m *mockAffiliationResolver) PreceptorsOfSite(ctx context.Context, siteID, schoolID uuid.UUID, onlyActive bool) ([]*models.Preceptor, error) {
	m.gotOnlyActive = onlyActive
	m.gotSchoolID = schoolID
	return m.preceptors, m.err
}

func (m *mockAffiliationResolver) PreceptorsOfProgram(ctx context.Context, programTypeID, schoolID, siteID uuid.UUID, onlyActive bool) ([]*models.Preceptor, error) {
	m.gotOnlyActive = onlyActive
	m.gotSchoolID = schoolID
	m.gotSiteID = siteID
	return m.preceptors, m.err
}

func (m *mockAffiliationResolver) WithAffiliations(ctx context.Context, preceptors []*models.Preceptor, onlyActive bool) ([]*models.PreceptorWithAffiliations, error) {
	return nil, m.err
}

func (m *mockAffiliationResolver) ValidateContext(ctx context.Context, preceptorID, schoolID, siteID, programTypeID uuid.UUID) *models.ContextValidation {
	return m.validation
}

func (m *mockAffiliationResolver) HasActiveAffiliation(ctx context.Context, preceptorID uuid.UUID) (bool, error) {
	return len(m.preceptors) > 0, m.err
}

func (m *mockAffiliationResolver) CreateAffiliation(ctx context.Context, input *models.AffiliationInput) (*models.Affiliation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Affiliation{Kind: input.Kind}, nil
}

func (m *mockAffiliationResolver) SetActive(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID, isActive bool) error {
	m.setActiveCall = true
	m.gotKind, m.gotEdgeID, m.gotActive = kind, edgeID, isActive
	return m.err
}

func (m *mockAffiliationResolver) DeleteAffiliation(ctx context.Context, kind models.AffiliationKind, edgeID uuid.UUID) error {
	m.gotKind, m.gotEdgeID = kind, edgeID
	return m.err
}

// mockReviewService implements services.ReviewService.
type mockReviewService struct {
	views  []*models.ReviewView
	ranked []*models.RankedPreceptor
	stats  models.PreceptorStats
	err    error

	gotName      string
	gotLimit     int
	gotDirection models.VoteDirection
	gotInput     *models.ReviewInput
}

var _ services.ReviewService = (*mockReviewService)(nil)

func (m *mockReviewService) Create(ctx context.Context, input *models.ReviewInput) (*models.Review, error) {
	m.gotInput = input
	if m.err != nil {
		return nil, m.err
	}
	return &models.Review{ID: uuid.New(), PreceptorID: input.PreceptorID}, nil
}

func (m *mockReviewService) Get(ctx context.Context, id uuid.UUID) (*models.ReviewView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.ReviewView{Review: models.Review{ID: id}}, nil
}

func (m *mockReviewService) Update(ctx context.Context, id uuid.UUID, patch *models.ReviewPatch) (*models.Review, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Review{ID: id}, nil
}

func (m *mockReviewService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.err
}

func (m *mockReviewService) List(ctx context.Context) ([]*models.ReviewView, error) {
	return m.views, m.err
}

func (m *mockReviewService) ListForPreceptor(ctx context.Context, fullName string) ([]*models.ReviewView, error) {
	m.gotName = fullName
	return m.views, m.err
}

func (m *mockReviewService) TopReviews(ctx context.Context, limit int) ([]*models.ReviewView, error) {
	m.gotLimit = limit
	return m.views, m.err
}

func (m *mockReviewService) MostReviewedPreceptors(ctx context.Context, limit int) ([]*models.RankedPreceptor, error) {
	m.gotLimit = limit
	return m.ranked, m.err
}

func (m *mockReviewService) Vote(ctx context.Context, id uuid.UUID, direction models.VoteDirection) (*models.Review, error) {
	m.gotDirection = direction
	if m.err != nil {
		return nil, m.err
	}
	r := &models.Review{ID: id}
	if direction == models.VoteUp {
		r.UpvoteCount = 1
	} else {
		r.DownvoteCount = 1
	}
	r.NetScore = r.UpvoteCount - r.DownvoteCount
	return r, nil
}

func (m *mockReviewService) Stats(ctx context.Context, preceptorID uuid.UUID) (models.PreceptorStats, error) {
	return m.stats, m.err
}

// mockSearchService implements services.SearchService.
type mockSearchService struct {
	results []*models.PreceptorSearchResult
	views   []*models.ReviewView
	err     error

	gotTerm   string
	gotLimit  int
	gotFilter models.ReviewFilter
}

var _ services.SearchService = (*mockSearchService)(nil)

func (m *mockSearchService) Search(ctx context.Context, term string, limit int) ([]*models.PreceptorSearchResult, error) {
	m.gotTerm, m.gotLimit = term, limit
	return m.results, m.err
}

func (m *mockSearchService) FilterReviews(ctx context.Context, filter models.ReviewFilter) ([]*models.ReviewView, error) {
	m.gotFilter = filter
	return m.views, m.err
}

func (m *mockSearchService) SearchPreceptorsByReviews(ctx context.Context, term string) ([]*models.PreceptorSearchResult, error) {
	m.gotTerm = term
	return m.results, m.err
}

// mockSchoolProgramService implements services.SchoolProgramService and
// records which listing was used.
type mockSchoolProgramService struct {
	views []*models.SchoolProgramView
	err   error

	listedBy string
	gotID    uuid.UUID
}

var _ services.SchoolProgramService = (*mockSchoolProgramService)(nil)

func (m *mockSchoolProgramService) Create(ctx context.Context, input *models.SchoolProgramInput) (*models.SchoolProgram, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.SchoolProgram{ID: uuid.New(), SchoolID: input.SchoolID, ProgramTypeID: input.ProgramTypeID}, nil
}

func (m *mockSchoolProgramService) Update(ctx context.Context, id uuid.UUID, patch *models.SchoolProgramPatch) (*models.SchoolProgram, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.SchoolProgram{ID: id}, nil
}

func (m *mockSchoolProgramService) Delete(ctx context.Context, id uuid.UUID) error {
	m.gotID = id
	return m.err
}

func (m *mockSchoolProgramService) List(ctx context.Context) ([]*models.SchoolProgramView, error) {
	m.listedBy = "all"
	return m.views, m.err
}

func (m *mockSchoolProgramService) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*models.SchoolProgramView, error) {
	m.listedBy, m.gotID = "school", schoolID
	return m.views, m.err
}

func (m *mockSchoolProgramService) ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.SchoolProgramView, error) {
	m.listedBy, m.gotID = "programType", programTypeID
	return m.views, m.err
}

// mockWaitlistService implements services.WaitlistService.
type mockWaitlistService struct {
	count int
	err   error

	gotEmail string
}

var _ services.WaitlistService = (*mockWaitlistService)(nil)

func (m *mockWaitlistService) AddEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	m.gotEmail = email
	if m.err != nil {
		return nil, m.err
	}
	return &models.WaitlistEntry{ID: uuid.New(), Email: email}, nil
}

func (m *mockWaitlistService) Count(ctx context.Context) (int, error) {
	return m.count, m.err
}

func testLogger() *zap.Logger { return zap.NewNop() }
