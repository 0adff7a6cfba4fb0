package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

// PreceptorService manages preceptor records and exposes their affiliations.
type PreceptorService interface {
	Create(ctx context.Context, input *models.PreceptorInput) (*models.Preceptor, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Preceptor, error)
	GetWithAffiliations(ctx context.Context, id uuid.UUID, onlyActive bool) (*models.PreceptorWithAffiliations, error)
	GetByFullName(ctx context.Context, fullName string) (*models.Preceptor, error)
	List(ctx context.Context) ([]*models.Preceptor, error)
	Update(ctx context.Context, id uuid.UUID, patch *models.PreceptorPatch) (*models.Preceptor, error)
	// Delete removes the preceptor only. Edges and reviews that point at it are left
	// in place and resolve to placeholders or are dropped on read.
	Delete(ctx context.Context, id uuid.UUID) error

	// Active-only pickers used when composing a review.
	AvailableSchools(ctx context.Context, preceptorID uuid.UUID) ([]*models.School, error)
	AvailableSites(ctx context.Context, preceptorID, schoolID uuid.UUID) ([]*models.PracticeSite, error)
	AvailablePrograms(ctx context.Context, preceptorID, schoolID, siteID uuid.UUID) ([]*models.ProgramType, error)
}

type preceptorService struct {
	preceptors repositories.PreceptorRepository
	resolver   AffiliationResolver
	validator  *InputValidator
	listLimit  int
	logger     *zap.Logger
}

// NewPreceptorService creates a new PreceptorService.
func NewPreceptorService(
	preceptors repositories.PreceptorRepository,
	resolver AffiliationResolver,
	validator *InputValidator,
	listLimit int,
	logger *zap.Logger,
) PreceptorService {
	return &preceptorService{
		preceptors: preceptors,
		resolver:   resolver,
		validator:  validator,
		listLimit:  listLimit,
		logger:     logger.Named("preceptor-service"),
	}
}

var _ PreceptorService = (*preceptorService)(nil)

func (s *preceptorService) Create(ctx context.Context, input *models.PreceptorInput) (*models.Preceptor, error) {
	input.FullName = FormatName(input.FullName, true)
	input.Email = normalizeEmail(input.Email)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	p := &models.Preceptor{
		FullName:    input.FullName,
		Email:       input.Email,
		Credentials: input.Credentials,
	}
	// Credentials typed into the name are lifted out when none were given.
	if p.Credentials == nil {
		if _, creds := ExtractCredentials(p.FullName); creds != "" {
			p.Credentials = &creds
		}
	}

	if err := s.preceptors.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create preceptor: %w", err)
	}
	return p, nil
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" {
		return nil
	}
	return &e
}

func (s *preceptorService) Get(ctx context.Context, id uuid.UUID) (*models.Preceptor, error) {
	return s.preceptors.GetByID(ctx, id)
}

func (s *preceptorService) GetWithAffiliations(ctx context.Context, id uuid.UUID, onlyActive bool) (*models.PreceptorWithAffiliations, error) {
	p, err := s.preceptors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.resolver.WithAffiliations(ctx, []*models.Preceptor{p}, onlyActive)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *preceptorService) GetByFullName(ctx context.Context, fullName string) (*models.Preceptor, error) {
	return s.preceptors.GetByFullName(ctx, strings.TrimSpace(fullName))
}

func (s *preceptorService) List(ctx context.Context) ([]*models.Preceptor, error) {
	return s.preceptors.List(ctx, s.listLimit)
}

func (s *preceptorService) Update(ctx context.Context, id uuid.UUID, patch *models.PreceptorPatch) (*models.Preceptor, error) {
	p, err := s.preceptors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pt := &patcher{}
	setField(pt, "fullName", patch.FullName, &p.FullName)
	setNullable(pt, patch.Email, &p.Email)
	setNullable(pt, patch.Credentials, &p.Credentials)
	if err := pt.err(); err != nil {
		return nil, err
	}
	if !pt.touched {
		return p, nil
	}

	p.FullName = FormatName(p.FullName, true)
	p.Email = normalizeEmail(p.Email)
	input := &models.PreceptorInput{FullName: p.FullName, Email: p.Email, Credentials: p.Credentials}
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	if err := s.preceptors.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update preceptor: %w", err)
	}
	return p, nil
}

func (s *preceptorService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.preceptors.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Preceptor deleted", zap.String("preceptor_id", id.String()))
	return nil
}

func (s *preceptorService) AvailableSchools(ctx context.Context, preceptorID uuid.UUID) ([]*models.School, error) {
	return s.resolver.SchoolsOf(ctx, preceptorID, true)
}

func (s *preceptorService) AvailableSites(ctx context.Context, preceptorID, schoolID uuid.UUID) ([]*models.PracticeSite, error) {
	return s.resolver.SitesOf(ctx, preceptorID, schoolID, true)
}

func (s *preceptorService) AvailablePrograms(ctx context.Context, preceptorID, schoolID, siteID uuid.UUID) ([]*models.ProgramType, error) {
	return s.resolver.ProgramsOf(ctx, preceptorID, schoolID, siteID, true)
}
