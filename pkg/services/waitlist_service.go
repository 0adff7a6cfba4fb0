package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/logging"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

// WaitlistService collects emails of people waiting for launch.
type WaitlistService interface {
	// AddEmail is idempotent: an address already on the list is returned unchanged.
	AddEmail(ctx context.Context, email string) (*models.WaitlistEntry, error)
	Count(ctx context.Context) (int, error)
}

type waitlistService struct {
	repo      repositories.WaitlistRepository
	validator *InputValidator
	logger    *zap.Logger
}

// NewWaitlistService creates a new WaitlistService.
func NewWaitlistService(repo repositories.WaitlistRepository, validator *InputValidator, logger *zap.Logger) WaitlistService {
	return &waitlistService{
		repo:      repo,
		validator: validator,
		logger:    logger.Named("waitlist-service"),
	}
}

var _ WaitlistService = (*waitlistService)(nil)

func (s *waitlistService) AddEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validator.Email(email); err != nil {
		return nil, err
	}

	entry, created, err := s.repo.Add(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("add waitlist email: %w", err)
	}
	if created {
		s.logger.Info("Waitlist signup", logging.Email(email))
	}
	return entry, nil
}

func (s *waitlistService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
