package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

// SchoolProgramService manages which program types each school offers.
type SchoolProgramService interface {
	Create(ctx context.Context, input *models.SchoolProgramInput) (*models.SchoolProgram, error)
	Update(ctx context.Context, id uuid.UUID, patch *models.SchoolProgramPatch) (*models.SchoolProgram, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*models.SchoolProgramView, error)
	ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*models.SchoolProgramView, error)
	ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.SchoolProgramView, error)
}

type schoolProgramService struct {
	links        repositories.SchoolProgramRepository
	schools      repositories.SchoolRepository
	programTypes repositories.ProgramTypeRepository
	denormalizer *Denormalizer
	validator    *InputValidator
	listLimit    int
	logger       *zap.Logger
}

// NewSchoolProgramService creates a new SchoolProgramService.
func NewSchoolProgramService(
	links repositories.SchoolProgramRepository,
	schools repositories.SchoolRepository,
	programTypes repositories.ProgramTypeRepository,
	denormalizer *Denormalizer,
	validator *InputValidator,
	listLimit int,
	logger *zap.Logger,
) SchoolProgramService {
	return &schoolProgramService{
		links:        links,
		schools:      schools,
		programTypes: programTypes,
		denormalizer: denormalizer,
		validator:    validator,
		listLimit:    listLimit,
		logger:       logger.Named("school-program-service"),
	}
}

var _ SchoolProgramService = (*schoolProgramService)(nil)

func (s *schoolProgramService) Create(ctx context.Context, input *models.SchoolProgramInput) (*models.SchoolProgram, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	if err := s.checkTargets(ctx, input.SchoolID, input.ProgramTypeID); err != nil {
		return nil, err
	}
	link := &models.SchoolProgram{SchoolID: input.SchoolID, ProgramTypeID: input.ProgramTypeID}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create school program: %w", err)
	}
	return link, nil
}

// checkTargets rejects links to a school or program type that does not exist.
func (s *schoolProgramService) checkTargets(ctx context.Context, schoolID, programTypeID uuid.UUID) error {
	if _, err := s.schools.GetByID(ctx, schoolID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewValidationError("schoolId", "school does not exist")
		}
		return fmt.Errorf("load school: %w", err)
	}
	if _, err := s.programTypes.GetByID(ctx, programTypeID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewValidationError("programTypeId", "program type does not exist")
		}
		return fmt.Errorf("load program type: %w", err)
	}
	return nil
}

func (s *schoolProgramService) Update(ctx context.Context, id uuid.UUID, patch *models.SchoolProgramPatch) (*models.SchoolProgram, error) {
	link, err := s.links.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &patcher{}
	setField(p, "schoolId", patch.SchoolID, &link.SchoolID)
	setField(p, "programTypeId", patch.ProgramTypeID, &link.ProgramTypeID)
	if err := p.err(); err != nil {
		return nil, err
	}
	if !p.touched {
		return link, nil
	}

	if err := s.validator.Struct(&models.SchoolProgramInput{SchoolID: link.SchoolID, ProgramTypeID: link.ProgramTypeID}); err != nil {
		return nil, err
	}
	if err := s.checkTargets(ctx, link.SchoolID, link.ProgramTypeID); err != nil {
		return nil, err
	}
	if err := s.links.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("update school program: %w", err)
	}
	return link, nil
}

func (s *schoolProgramService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.links.Delete(ctx, id)
}

func (s *schoolProgramService) List(ctx context.Context) ([]*models.SchoolProgramView, error) {
	links, err := s.links.List(ctx, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list school programs: %w", err)
	}
	return s.denormalizer.SchoolPrograms(ctx, links)
}

func (s *schoolProgramService) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*models.SchoolProgramView, error) {
	links, err := s.links.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("list school programs: %w", err)
	}
	return s.denormalizer.SchoolPrograms(ctx, links)
}

func (s *schoolProgramService) ListByProgramType(ctx context.Context, programTypeID uuid.UUID) ([]*models.SchoolProgramView, error) {
	links, err := s.links.ListByProgramType(ctx, programTypeID)
	if err != nil {
		return nil, fmt.Errorf("list school programs: %w", err)
	}
	return s.denormalizer.SchoolPrograms(ctx, links)
}
