package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

// CatalogService manages the static catalog: schools, practice sites, program
// types and the rotation and experience types that belong to a program.
type CatalogService interface {
	CreateSchool(ctx context.Context, input *models.SchoolInput) (*models.School, error)
	GetSchool(ctx context.Context, id uuid.UUID) (*models.School, error)
	ListSchools(ctx context.Context) ([]*models.School, error)
	UpdateSchool(ctx context.Context, id uuid.UUID, patch *models.SchoolPatch) (*models.School, error)
	DeleteSchool(ctx context.Context, id uuid.UUID) error

	CreateSite(ctx context.Context, input *models.PracticeSiteInput) (*models.PracticeSite, error)
	GetSite(ctx context.Context, id uuid.UUID) (*models.PracticeSite, error)
	ListSites(ctx context.Context) ([]*models.PracticeSite, error)
	UpdateSite(ctx context.Context, id uuid.UUID, patch *models.PracticeSitePatch) (*models.PracticeSite, error)
	DeleteSite(ctx context.Context, id uuid.UUID) error

	CreateProgramType(ctx context.Context, input *models.ProgramTypeInput) (*models.ProgramType, error)
	GetProgramType(ctx context.Context, id uuid.UUID) (*models.ProgramType, error)
	ListProgramTypes(ctx context.Context) ([]*models.ProgramType, error)
	UpdateProgramType(ctx context.Context, id uuid.UUID, patch *models.ProgramTypePatch) (*models.ProgramType, error)
	// DeleteProgramType fails with ErrConflict while rotation or experience types reference it.
	DeleteProgramType(ctx context.Context, id uuid.UUID) error

	CreateRotationType(ctx context.Context, input *models.RotationTypeInput) (*models.RotationType, error)
	GetRotationType(ctx context.Context, id uuid.UUID) (*models.RotationTypeView, error)
	ListRotationTypes(ctx context.Context) ([]*models.RotationTypeView, error)
	ListRotationTypesByProgram(ctx context.Context, programTypeID uuid.UUID) ([]*models.RotationTypeView, error)
	UpdateRotationType(ctx context.Context, id uuid.UUID, patch *models.RotationTypePatch) (*models.RotationType, error)
	DeleteRotationType(ctx context.Context, id uuid.UUID) error

	CreateExperienceType(ctx context.Context, input *models.ExperienceTypeInput) (*models.ExperienceType, error)
	GetExperienceType(ctx context.Context, id uuid.UUID) (*models.ExperienceTypeView, error)
	ListExperienceTypes(ctx context.Context) ([]*models.ExperienceTypeView, error)
	ListExperienceTypesByProgram(ctx context.Context, programTypeID uuid.UUID) ([]*models.ExperienceTypeView, error)
	UpdateExperienceType(ctx context.Context, id uuid.UUID, patch *models.ExperienceTypePatch) (*models.ExperienceType, error)
	DeleteExperienceType(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	schools         repositories.SchoolRepository
	sites           repositories.PracticeSiteRepository
	programTypes    repositories.ProgramTypeRepository
	rotationTypes   repositories.RotationTypeRepository
	experienceTypes repositories.ExperienceTypeRepository
	denormalizer    *Denormalizer
	validator       *InputValidator
	listLimit       int
	logger          *zap.Logger
}

// NewCatalogService creates a new CatalogService. listLimit bounds every list call.
func NewCatalogService(
	schools repositories.SchoolRepository,
	sites repositories.PracticeSiteRepository,
	programTypes repositories.ProgramTypeRepository,
	rotationTypes repositories.RotationTypeRepository,
	experienceTypes repositories.ExperienceTypeRepository,
	denormalizer *Denormalizer,
	validator *InputValidator,
	listLimit int,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		schools:         schools,
		sites:           sites,
		programTypes:    programTypes,
		rotationTypes:   rotationTypes,
		experienceTypes: experienceTypes,
		denormalizer:    denormalizer,
		validator:       validator,
		listLimit:       listLimit,
		logger:          logger.Named("catalog-service"),
	}
}

var _ CatalogService = (*catalogService)(nil)

// requireProgramType turns a missing program type into a field error.
func (s *catalogService) requireProgramType(ctx context.Context, id uuid.UUID) error {
	_, err := s.programTypes.GetByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewValidationError("programTypeId", "program type does not exist")
	}
	if err != nil {
		return fmt.Errorf("load program type: %w", err)
	}
	return nil
}

// ============================================================================
// Schools
// ============================================================================

func (s *catalogService) CreateSchool(ctx context.Context, input *models.SchoolInput) (*models.School, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	school := &models.School{Name: input.Name}
	if err := s.schools.Create(ctx, school); err != nil {
		return nil, fmt.Errorf("create school: %w", err)
	}
	return school, nil
}

func (s *catalogService) GetSchool(ctx context.Context, id uuid.UUID) (*models.School, error) {
	return s.schools.GetByID(ctx, id)
}

func (s *catalogService) ListSchools(ctx context.Context) ([]*models.School, error) {
	return s.schools.List(ctx, s.listLimit)
}

func (s *catalogService) UpdateSchool(ctx context.Context, id uuid.UUID, patch *models.SchoolPatch) (*models.School, error) {
	school, err := s.schools.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &patcher{}
	setField(p, "name", patch.Name, &school.Name)
	if err := p.err(); err != nil {
		return nil, err
	}
	if !p.touched {
		return school, nil
	}

	school.Name = strings.TrimSpace(school.Name)
	if err := s.validator.Struct(&models.SchoolInput{Name: school.Name}); err != nil {
		return nil, err
	}
	if err := s.schools.Update(ctx, school); err != nil {
		return nil, fmt.Errorf("update school: %w", err)
	}
	return school, nil
}

func (s *catalogService) DeleteSchool(ctx context.Context, id uuid.UUID) error {
	return s.schools.Delete(ctx, id)
}

// ============================================================================
// Practice sites
// ============================================================================

func (s *catalogService) CreateSite(ctx context.Context, input *models.PracticeSiteInput) (*models.PracticeSite, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	site := &models.PracticeSite{
		Name:  input.Name,
		City:  strings.TrimSpace(input.City),
		State: strings.TrimSpace(input.State),
	}
	if err := s.sites.Create(ctx, site); err != nil {
		return nil, fmt.Errorf("create practice site: %w", err)
	}
	return site, nil
}

func (s *catalogService) GetSite(ctx context.Context, id uuid.UUID) (*models.PracticeSite, error) {
	return s.sites.GetByID(ctx, id)
}

func (s *catalogService) ListSites(ctx context.Context) ([]*models.PracticeSite, error) {
	return s.sites.List(ctx, s.listLimit)
}

func (s *catalogService) UpdateSite(ctx context.Context, id uuid.UUID, patch *models.PracticeSitePatch) (*models.PracticeSite, error) {
	site, err := s.sites.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &patcher{}
	setField(p, "name", patch.Name, &site.Name)
	setField(p, "city", patch.City, &site.City)
	setField(p, "state", patch.State, &site.State)
	if err := p.err(); err != nil {
		return nil, err
	}
	if !p.touched {
		return site, nil
	}

	site.Name = strings.TrimSpace(site.Name)
	if err := s.validator.Struct(&models.PracticeSiteInput{Name: site.Name, City: site.City, State: site.State}); err != nil {
		return nil, err
	}
	if err := s.sites.Update(ctx, site); err != nil {
		return nil, fmt.Errorf("update practice site: %w", err)
	}
	return site, nil
}

func (s *catalogService) DeleteSite(ctx context.Context, id uuid.UUID) error {
	return s.sites.Delete(ctx, id)
}

// ============================================================================
// Program types
// ============================================================================

func (s *catalogService) CreateProgramType(ctx context.Context, input *models.ProgramTypeInput) (*models.ProgramType, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	pt := &models.ProgramType{
		Name:         strings.TrimSpace(input.Name),
		Abbreviation: strings.TrimSpace(input.Abbreviation),
		YearLabels:   input.YearLabels,
	}
	if pt.YearLabels == nil {
		pt.YearLabels = []string{}
	}
	if err := s.programTypes.Create(ctx, pt); err != nil {
		return nil, fmt.Errorf("create program type: %w", err)
	}
	return pt, nil
}

func (s *catalogService) GetProgramType(ctx context.Context, id uuid.UUID) (*models.ProgramType, error) {
	return s.programTypes.GetByID(ctx, id)
}

func (s *catalogService) ListProgramTypes(ctx context.Context) ([]*models.ProgramType, error) {
	return s.programTypes.List(ctx, s.listLimit)
}

func (s *catalogService) UpdateProgramType(ctx context.Context, id uuid.UUID, patch *models.ProgramTypePatch) (*models.ProgramType, error) {
	pt, err := s.programTypes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &patcher{}
	setField(p, "name", patch.Name, &pt.Name)
	setField(p, "abbreviation", patch.Abbreviation, &pt.Abbreviation)
	setField(p, "yearLabels", patch.YearLabels, &pt.YearLabels)
	if err := p.err(); err != nil {
		return nil, err
	}
	if !p.touched {
		return pt, nil
	}

	input := &models.ProgramTypeInput{Name: pt.Name, Abbreviation: pt.Abbreviation, YearLabels: pt.YearLabels}
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	if err := s.programTypes.Update(ctx, pt); err != nil {
		return nil, fmt.Errorf("update program type: %w", err)
	}
	return pt, nil
}

func (s *catalogService) DeleteProgramType(ctx context.Context, id uuid.UUID) error {
	if err := s.programTypes.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.logger.Info("Program type still referenced",
				zap.String("program_type_id", id.String()))
		}
		return err
	}
	return nil
}

// ============================================================================
// Rotation types
// ============================================================================

func (s *catalogService) CreateRotationType(ctx context.Context, input *models.RotationTypeInput) (*models.RotationType, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	if err := s.requireProgramType(ctx, input.ProgramTypeID); err != nil {
		return nil, err
	}
	rt := &models.RotationType{ProgramTypeID: input.ProgramTypeID, Name: strings.TrimSpace(input.Name)}
	if err := s.rotationTypes.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("create rotation type: %w", err)
	}
	return rt, nil
}

func (s *catalogService) GetRotationType(ctx context.Context, id uuid.UUID) (*models.RotationTypeView, error) {
	rt, err := s.rotationTypes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.denormalizer.RotationTypes(ctx, []*models.RotationType{rt})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *catalogService) ListRotationTypes(ctx context.Context) ([]*models.RotationTypeView, error) {
	types, err := s.rotationTypes.List(ctx, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list rotation types: %w", err)
	}
	return s.denormalizer.RotationTypes(ctx, types)
}

func (s *catalogService) ListRotationTypesByProgram(ctx context.Context, programTypeID uuid.UUID) ([]*models.RotationTypeView, error) {
	types, err := s.rotationTypes.ListByProgramType(ctx, programTypeID)
	if err != nil {
		return nil, fmt.Errorf("list rotation types: %w", err)
	}
	return s.denormalizer.RotationTypes(ctx, types)
}

func (s *catalogService) UpdateRotationType(ctx context.Context, id uuid.UUID, patch *models.RotationTypePatch) (*models.RotationType, error) {
	rt, err := s.rotationTypes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &patcher{}
	setField(p, "programTypeId", patch.ProgramTypeID, &rt.ProgramTypeID)
	setField(p, "name", patch.Name, &rt.Name)
	if err := p.err(); err != nil {
		return nil, err
	}
	if !p.touched {
		return rt, nil
	}

	if err := s.validator.Struct(&models.RotationTypeInput{ProgramTypeID: rt.ProgramTypeID, Name: rt.Name}); err != nil {
		return nil, err
	}
	if patch.ProgramTypeID.Set {
		if err := s.requireProgramType(ctx, rt.ProgramTypeID); err != nil {
			return nil, err
		}
	}
	if err := s.rotationTypes.Update(ctx, rt); err != nil {
		return nil, fmt.Errorf("update rotation type: %w", err)
	}
	return rt, nil
}

func (s *catalogService) DeleteRotationType(ctx context.Context, id uuid.UUID) error {
	return s.rotationTypes.Delete(ctx, id)
}

// ============================================================================
// Experience types
// ============================================================================

func (s *catalogService) CreateExperienceType(ctx context.Context, input *models.ExperienceTypeInput) (*models.ExperienceType, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	if err := s.requireProgramType(ctx, input.ProgramTypeID); err != nil {
		return nil, err
	}
	et := &models.ExperienceType{
		ProgramTypeID: input.ProgramTypeID,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
	}
	if err := s.experienceTypes.Create(ctx, et); err != nil {
		return nil, fmt.Errorf("create experience type: %w", err)
	}
	return et, nil
}

func (s *catalogService) GetExperienceType(ctx context.Context, id uuid.UUID) (*models.ExperienceTypeView, error) {
	et, err := s.experienceTypes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.denormalizer.ExperienceTypes(ctx, []*models.ExperienceType{et})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *catalogService) ListExperienceTypes(ctx context.Context) ([]*models.ExperienceTypeView, error) {
	types, err := s.experienceTypes.List(ctx, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list experience types: %w", err)
	}
	return s.denormalizer.ExperienceTypes(ctx, types)
}

func (s *catalogService) ListExperienceTypesByProgram(ctx context.Context, programTypeID uuid.UUID) ([]*models.ExperienceTypeView, error) {
	types, err := s.experienceTypes.ListByProgramType(ctx, programTypeID)
	if err != nil {
		return nil, fmt.Errorf("list experience types: %w", err)
	}
	return s.denormalizer.ExperienceTypes(ctx, types)
}

func (s *catalogService) UpdateExperienceType(ctx context.Context, id uuid.UUID, patch *models.ExperienceTypePatch) (*models.ExperienceType, error) {
	et, err := s.experienceTypes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &patcher{}
	setField(p, "programTypeId", patch.ProgramTypeID, &et.ProgramTypeID)
	setField(p, "name", patch.Name, &et.Name)
	setNullable(p, patch.Description, &et.Description)
	if err := p.err(); err != nil {
		return nil, err
	}
	if !p.touched {
		return et, nil
	}

	input := &models.ExperienceTypeInput{ProgramTypeID: et.ProgramTypeID, Name: et.Name, Description: et.Description}
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	if patch.ProgramTypeID.Set {
		if err := s.requireProgramType(ctx, et.ProgramTypeID); err != nil {
			return nil, err
		}
	}
	if err := s.experienceTypes.Update(ctx, et); err != nil {
		return nil, fmt.Errorf("update experience type: %w", err)
	}
	return et, nil
}

func (s *catalogService) DeleteExperienceType(ctx context.Context, id uuid.UUID) error {
	return s.experienceTypes.Delete(ctx, id)
}
