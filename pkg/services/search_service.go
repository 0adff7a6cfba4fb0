package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/config"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

// SearchService provides free-text preceptor search and structured review filtering.
type SearchService interface {
	// Search matches term against preceptor fields and the names of active affiliations.
	// A blank term returns an empty result.
	Search(ctx context.Context, term string, limit int) ([]*models.PreceptorSearchResult, error)
	FilterReviews(ctx context.Context, filter models.ReviewFilter) ([]*models.ReviewView, error)
	// SearchPreceptorsByReviews finds preceptors with a review whose preceptor, school, site or
	// rotation name contains term. Stats describe all of each preceptor's reviews.
	SearchPreceptorsByReviews(ctx context.Context, term string) ([]*models.PreceptorSearchResult, error)
}

type searchService struct {
	preceptors      repositories.PreceptorRepository
	reviews         repositories.ReviewRepository
	rotationTypes   repositories.RotationTypeRepository
	experienceTypes repositories.ExperienceTypeRepository
	resolver        AffiliationResolver
	aggregator      ReviewAggregator
	denormalizer    *Denormalizer
	search          config.SearchConfig
	reviewLimit     int
	logger          *zap.Logger
}

// NewSearchService creates a new SearchService.
func NewSearchService(
	preceptors repositories.PreceptorRepository,
	reviews repositories.ReviewRepository,
	rotationTypes repositories.RotationTypeRepository,
	experienceTypes repositories.ExperienceTypeRepository,
	resolver AffiliationResolver,
	aggregator ReviewAggregator,
	denormalizer *Denormalizer,
	search config.SearchConfig,
	listing config.ListingConfig,
	logger *zap.Logger,
) SearchService {
	return &searchService{
		preceptors:      preceptors,
		reviews:         reviews,
		rotationTypes:   rotationTypes,
		experienceTypes: experienceTypes,
		resolver:        resolver,
		aggregator:      aggregator,
		denormalizer:    denormalizer,
		search:          search,
		reviewLimit:     listing.ReviewFilterLimit,
		logger:          logger.Named("search-service"),
	}
}

var _ SearchService = (*searchService)(nil)

func (s *searchService) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.search.DefaultLimit
	case limit > s.search.MaxLimit:
		return s.search.MaxLimit
	}
	return limit
}

func (s *searchService) Search(ctx context.Context, term string, limit int) ([]*models.PreceptorSearchResult, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return []*models.PreceptorSearchResult{}, nil
	}
	limit = s.clampLimit(limit)

	candidates, err := s.preceptors.List(ctx, s.search.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list search candidates: %w", err)
	}
	withAffiliations, err := s.resolver.WithAffiliations(ctx, candidates, true)
	if err != nil {
		return nil, err
	}

	var matches []*models.PreceptorWithAffiliations
	for _, p := range withAffiliations {
		if matchesPreceptor(p, needle) {
			matches = append(matches, p)
		}
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	s.logger.Debug("Preceptor search",
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)))

	return s.attachStats(ctx, matches)
}

func (s *searchService) attachStats(ctx context.Context, preceptors []*models.PreceptorWithAffiliations) ([]*models.PreceptorSearchResult, error) {
	ids := make([]uuid.UUID, 0, len(preceptors))
	for _, p := range preceptors {
		ids = append(ids, p.ID)
	}
	stats, err := s.aggregator.BatchStats(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]*models.PreceptorSearchResult, 0, len(preceptors))
	for _, p := range preceptors {
		results = append(results, &models.PreceptorSearchResult{
			PreceptorWithAffiliations: *p,
			Stats:                     stats[p.ID],
		})
	}
	return results, nil
}

// matchesPreceptor tests needle, already lowercased, against every searchable field.
func matchesPreceptor(p *models.PreceptorWithAffiliations, needle string) bool {
	contains := func(s string) bool {
		return s != "" && strings.Contains(strings.ToLower(s), needle)
	}
	containsPtr := func(s *string) bool {
		return s != nil && contains(*s)
	}

	if contains(p.FullName) || containsPtr(p.Email) || containsPtr(p.Credentials) {
		return true
	}
	for _, school := range p.Schools {
		if contains(school.Name) {
			return true
		}
	}
	for _, site := range p.Sites {
		if contains(site.Name) || contains(site.City) || contains(site.State) {
			return true
		}
	}
	for _, program := range p.Programs {
		if contains(program.Name) || contains(program.Abbreviation) {
			return true
		}
	}
	return false
}

func (s *searchService) FilterReviews(ctx context.Context, filter models.ReviewFilter) ([]*models.ReviewView, error) {
	q := models.ReviewQuery{
		PreceptorID:     filter.PreceptorID,
		StarRating:      filter.StarRating,
		WouldRecommend:  filter.WouldRecommend,
		CommentContains: strings.TrimSpace(filter.CommentContains),
		Limit:           filter.Limit,
	}
	if q.Limit <= 0 || q.Limit > s.reviewLimit {
		q.Limit = s.reviewLimit
	}

	if name := strings.TrimSpace(filter.ExperienceTypeName); name != "" {
		types, err := s.experienceTypes.FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve experience type: %w", err)
		}
		q.ExperienceTypeIDs = make([]uuid.UUID, 0, len(types))
		for _, t := range types {
			q.ExperienceTypeIDs = append(q.ExperienceTypeIDs, t.ID)
		}
	}
	if name := strings.TrimSpace(filter.RotationTypeName); name != "" {
		types, err := s.rotationTypes.FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve rotation type: %w", err)
		}
		q.RotationTypeIDs = make([]uuid.UUID, 0, len(types))
		for _, t := range types {
			q.RotationTypeIDs = append(q.RotationTypeIDs, t.ID)
		}
	}

	// A name that resolves to nothing matches nothing.
	if (q.ExperienceTypeIDs != nil && len(q.ExperienceTypeIDs) == 0) ||
		(q.RotationTypeIDs != nil && len(q.RotationTypeIDs) == 0) {
		return []*models.ReviewView{}, nil
	}

	reviews, err := s.reviews.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter reviews: %w", err)
	}
	return s.denormalizer.Reviews(ctx, reviews)
}

func (s *searchService) SearchPreceptorsByReviews(ctx context.Context, term string) ([]*models.PreceptorSearchResult, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return []*models.PreceptorSearchResult{}, nil
	}

	reviews, err := s.reviews.List(ctx, models.ReviewQuery{Limit: StatsReviewLimit})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	refs := NameRefs{}
	for _, r := range reviews {
		refs.Add(repositories.CollectionPreceptor, r.PreceptorID)
		refs.Add(repositories.CollectionSchool, r.SchoolID)
		refs.Add(repositories.CollectionPracticeSite, r.SiteID)
		refs.Add(repositories.CollectionRotationType, r.RotationTypeID)
	}
	names, err := s.denormalizer.Lookup(ctx, refs)
	if err != nil {
		return nil, err
	}

	matched := make(map[uuid.UUID]bool)
	var matchedIDs []uuid.UUID
	for _, r := range reviews {
		if matched[r.PreceptorID] || !names.Has(repositories.CollectionPreceptor, r.PreceptorID) {
			continue
		}
		if reviewMatches(names, r, needle) {
			matched[r.PreceptorID] = true
			matchedIDs = append(matchedIDs, r.PreceptorID)
		}
	}

	preceptors, err := dereference(ctx, Tolerant, matchedIDs, s.preceptors.GetByIDs, preceptorIDOf)
	if err != nil {
		return nil, fmt.Errorf("load matched preceptors: %w", err)
	}
	withAffiliations, err := s.resolver.WithAffiliations(ctx, preceptors, true)
	if err != nil {
		return nil, err
	}
	return s.attachStats(ctx, withAffiliations)
}

// reviewMatches checks only names that resolved; placeholders never match.
func reviewMatches(names NameMaps, r *models.Review, needle string) bool {
	check := func(c repositories.Collection, id uuid.UUID) bool {
		name, ok := names[c][id]
		return ok && strings.Contains(strings.ToLower(name), needle)
	}
	return check(repositories.CollectionPreceptor, r.PreceptorID) ||
		check(repositories.CollectionSchool, r.SchoolID) ||
		check(repositories.CollectionPracticeSite, r.SiteID) ||
		check(repositories.CollectionRotationType, r.RotationTypeID)
}
