package seed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

// Config controls how much data Seed generates.
type Config struct {
	Preceptors int
	// Schools and Sites are capped at the catalog size.
	Schools    int
	Sites      int
	MinReviews int
	MaxReviews int
	// Positive and Neutral are the shares of favorable and middling reviews;
	// the remainder is negative.
	Positive float64
	Neutral  float64
	// RandSeed makes a run reproducible. Zero seeds from the clock.
	RandSeed int64
}

// DefaultConfig returns the standard demo dataset size.
func DefaultConfig() Config {
	return Config{
		Preceptors: 150,
		Schools:    15,
		Sites:      25,
		MinReviews: 1,
		MaxReviews: 8,
		Positive:   0.6,
		Neutral:    0.3,
	}
}

// Validate rejects configurations the generator cannot honor.
func (c Config) Validate() error {
	switch {
	case c.Preceptors < 0 || c.Schools < 1 || c.Sites < 1:
		return errors.New("preceptors must be >= 0; schools and sites must be >= 1")
	case c.MinReviews < 0 || c.MaxReviews < c.MinReviews:
		return fmt.Errorf("invalid review range %d..%d", c.MinReviews, c.MaxReviews)
	case c.Positive < 0 || c.Neutral < 0 || c.Positive+c.Neutral > 1:
		return errors.New("positive and neutral shares must be non-negative and sum to at most 1")
	}
	return nil
}

// Counts reports how many rows a Seed run created.
type Counts struct {
	ProgramTypes    int `json:"programTypes"`
	Schools         int `json:"schools"`
	Sites           int `json:"sites"`
	ExperienceTypes int `json:"experienceTypes"`
	RotationTypes   int `json:"rotationTypes"`
	SchoolPrograms  int `json:"schoolPrograms"`
	Preceptors      int `json:"preceptors"`
	Affiliations    int `json:"affiliations"`
	Reviews         int `json:"reviews"`
}

// Repositories are the stores the seeder writes through.
type Repositories struct {
	Schools         repositories.SchoolRepository
	Sites           repositories.PracticeSiteRepository
	ProgramTypes    repositories.ProgramTypeRepository
	RotationTypes   repositories.RotationTypeRepository
	ExperienceTypes repositories.ExperienceTypeRepository
	SchoolPrograms  repositories.SchoolProgramRepository
	Preceptors      repositories.PreceptorRepository
	Affiliations    repositories.AffiliationRepository
	Reviews         repositories.ReviewRepository
	Maintenance     repositories.MaintenanceRepository
}

// NewRepositories wires the Postgres implementations.
func NewRepositories() Repositories {
	return Repositories{
		Schools:         repositories.NewSchoolRepository(),
		Sites:           repositories.NewPracticeSiteRepository(),
		ProgramTypes:    repositories.NewProgramTypeRepository(),
		RotationTypes:   repositories.NewRotationTypeRepository(),
		ExperienceTypes: repositories.NewExperienceTypeRepository(),
		SchoolPrograms:  repositories.NewSchoolProgramRepository(),
		Preceptors:      repositories.NewPreceptorRepository(),
		Affiliations:    repositories.NewAffiliationRepository(),
		Reviews:         repositories.NewReviewRepository(),
		Maintenance:     repositories.NewMaintenanceRepository(),
	}
}

// Seeder clears and repopulates the directory with generated demo data.
type Seeder struct {
	repos   Repositories
	catalog *Catalog
	logger  *zap.Logger
}

// NewSeeder creates a new Seeder.
func NewSeeder(repos Repositories, catalog *Catalog, logger *zap.Logger) *Seeder {
	return &Seeder{
		repos:   repos,
		catalog: catalog,
		logger:  logger.Named("seeder"),
	}
}

// seededProgram keeps a program type together with its scoped types.
type seededProgram struct {
	program     *models.ProgramType
	rotations   []*models.RotationType
	experiences []*models.ExperienceType
}

// seededPreceptor is one preceptor and the single affiliation chain it was given.
type seededPreceptor struct {
	preceptor *models.Preceptor
	school    *models.School
	site      *models.PracticeSite
	program   *seededProgram
}

// Clear empties every directory table. The waitlist is kept.
func (s *Seeder) Clear(ctx context.Context) error {
	if err := s.repos.Maintenance.ClearDirectory(ctx); err != nil {
		return err
	}
	s.logger.Info("Cleared directory tables", zap.Strings("tables", repositories.DirectoryTables))
	return nil
}

// Seed clears the directory, then generates the catalog, preceptors with a full
// active affiliation chain each, and reviews consistent with those chains.
func (s *Seeder) Seed(ctx context.Context, cfg Config) (*Counts, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	s.logger.Info("Seeding directory",
		zap.Int64("rand_seed", seed),
		zap.Int("preceptors", cfg.Preceptors))

	if err := s.Clear(ctx); err != nil {
		return nil, err
	}

	counts := &Counts{}

	programs, err := s.seedPrograms(ctx, counts)
	if err != nil {
		return nil, err
	}
	schools, err := s.seedSchools(ctx, cfg.Schools, counts)
	if err != nil {
		return nil, err
	}
	sites, err := s.seedSites(ctx, cfg.Sites, counts)
	if err != nil {
		return nil, err
	}
	offered, err := s.seedSchoolPrograms(ctx, rng, schools, programs, counts)
	if err != nil {
		return nil, err
	}
	preceptors, err := s.seedPreceptors(ctx, rng, cfg.Preceptors, schools, sites, offered, counts)
	if err != nil {
		return nil, err
	}
	if err := s.seedReviews(ctx, rng, cfg, preceptors, counts); err != nil {
		return nil, err
	}

	s.logger.Info("Seeding complete", zap.Any("counts", counts))
	return counts, nil
}

// ============================================================================
// Catalog
// ============================================================================

func (s *Seeder) seedPrograms(ctx context.Context, counts *Counts) ([]*seededProgram, error) {
	out := make([]*seededProgram, 0, len(s.catalog.ProgramTypes))
	for _, ps := range s.catalog.ProgramTypes {
		pt := &models.ProgramType{Name: ps.Name, Abbreviation: ps.Abbreviation, YearLabels: ps.YearLabels}
		if err := s.repos.ProgramTypes.Create(ctx, pt); err != nil {
			return nil, fmt.Errorf("seed program type %q: %w", ps.Name, err)
		}
		sp := &seededProgram{program: pt}

		for _, es := range ps.ExperienceTypes {
			et := &models.ExperienceType{ProgramTypeID: pt.ID, Name: es.Name}
			if es.Description != "" {
				desc := es.Description
				et.Description = &desc
			}
			if err := s.repos.ExperienceTypes.Create(ctx, et); err != nil {
				return nil, fmt.Errorf("seed experience type %q: %w", es.Name, err)
			}
			sp.experiences = append(sp.experiences, et)
		}
		for _, name := range ps.RotationTypes {
			rt := &models.RotationType{ProgramTypeID: pt.ID, Name: name}
			if err := s.repos.RotationTypes.Create(ctx, rt); err != nil {
				return nil, fmt.Errorf("seed rotation type %q: %w", name, err)
			}
			sp.rotations = append(sp.rotations, rt)
		}

		counts.ExperienceTypes += len(sp.experiences)
		counts.RotationTypes += len(sp.rotations)
		out = append(out, sp)
	}
	counts.ProgramTypes = len(out)
	return out, nil
}

func (s *Seeder) seedSchools(ctx context.Context, n int, counts *Counts) ([]*models.School, error) {
	names := s.catalog.Schools[:min(n, len(s.catalog.Schools))]
	out := make([]*models.School, 0, len(names))
	for _, name := range names {
		school := &models.School{Name: name}
		if err := s.repos.Schools.Create(ctx, school); err != nil {
			return nil, fmt.Errorf("seed school %q: %w", name, err)
		}
		out = append(out, school)
	}
	counts.Schools = len(out)
	return out, nil
}

func (s *Seeder) seedSites(ctx context.Context, n int, counts *Counts) ([]*models.PracticeSite, error) {
	seeds := s.catalog.Sites[:min(n, len(s.catalog.Sites))]
	out := make([]*models.PracticeSite, 0, len(seeds))
	for _, ss := range seeds {
		site := &models.PracticeSite{Name: ss.Name, City: ss.City, State: ss.State}
		if err := s.repos.Sites.Create(ctx, site); err != nil {
			return nil, fmt.Errorf("seed site %q: %w", ss.Name, err)
		}
		out = append(out, site)
	}
	counts.Sites = len(out)
	return out, nil
}

// seedSchoolPrograms gives each school one to three distinct programs and
// returns the programs offered per school.
func (s *Seeder) seedSchoolPrograms(ctx context.Context, rng *rand.Rand, schools []*models.School, programs []*seededProgram, counts *Counts) (map[*models.School][]*seededProgram, error) {
	offered := make(map[*models.School][]*seededProgram, len(schools))
	for _, school := range schools {
		n := 1 + rng.Intn(min(3, len(programs)))
		for _, idx := range rng.Perm(len(programs))[:n] {
			sp := &models.SchoolProgram{SchoolID: school.ID, ProgramTypeID: programs[idx].program.ID}
			if err := s.repos.SchoolPrograms.Create(ctx, sp); err != nil {
				return nil, fmt.Errorf("seed school program: %w", err)
			}
			offered[school] = append(offered[school], programs[idx])
			counts.SchoolPrograms++
		}
	}
	return offered, nil
}

// ============================================================================
// Preceptors and Affiliations
// ============================================================================

func (s *Seeder) seedPreceptors(
	ctx context.Context,
	rng *rand.Rand,
	n int,
	schools []*models.School,
	sites []*models.PracticeSite,
	offered map[*models.School][]*seededProgram,
	counts *Counts,
) ([]*seededPreceptor, error) {
	out := make([]*seededPreceptor, 0, n)
	for range n {
		first := s.catalog.FirstNames[rng.Intn(len(s.catalog.FirstNames))]
		last := s.catalog.LastNames[rng.Intn(len(s.catalog.LastNames))]
		school := schools[rng.Intn(len(schools))]
		site := sites[rng.Intn(len(sites))]
		programs := offered[school]
		program := programs[rng.Intn(len(programs))]

		p := &models.Preceptor{FullName: "Dr. " + first + " " + last}
		if err := s.repos.Preceptors.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("seed preceptor %q: %w", p.FullName, err)
		}
		if err := s.affiliate(ctx, p, school, site, program.program); err != nil {
			return nil, err
		}
		counts.Affiliations += 3

		out = append(out, &seededPreceptor{
			preceptor: p,
			school:    school,
			site:      site,
			program:   program,
		})
	}
	counts.Preceptors = len(out)
	return out, nil
}

// affiliate creates the school, site and program edges of one active chain.
func (s *Seeder) affiliate(ctx context.Context, p *models.Preceptor, school *models.School, site *models.PracticeSite, program *models.ProgramType) error {
	if err := s.repos.Affiliations.CreateSchoolEdge(ctx, &models.PreceptorSchool{
		PreceptorID: p.ID, SchoolID: school.ID, IsActive: true,
	}); err != nil {
		return fmt.Errorf("seed school affiliation: %w", err)
	}
	if err := s.repos.Affiliations.CreateSiteEdge(ctx, &models.PreceptorSite{
		PreceptorID: p.ID, SchoolID: school.ID, SiteID: site.ID, IsActive: true,
	}); err != nil {
		return fmt.Errorf("seed site affiliation: %w", err)
	}
	if err := s.repos.Affiliations.CreateProgramEdge(ctx, &models.PreceptorProgram{
		PreceptorID: p.ID, SchoolID: school.ID, SiteID: site.ID, ProgramTypeID: program.ID, IsActive: true,
	}); err != nil {
		return fmt.Errorf("seed program affiliation: %w", err)
	}
	return nil
}

// ============================================================================
// Reviews
// ============================================================================

var priorExperiences = []models.PriorExperience{
	models.PriorExperienceNone,
	models.PriorExperienceLittle,
	models.PriorExperienceModerate,
	models.PriorExperienceSignificant,
}

// seedReviews writes reviews that always pass the affiliation gate: each uses
// the preceptor's own chain and a rotation and experience of its program.
func (s *Seeder) seedReviews(ctx context.Context, rng *rand.Rand, cfg Config, preceptors []*seededPreceptor, counts *Counts) error {
	for _, sp := range preceptors {
		n := cfg.MinReviews + rng.Intn(cfg.MaxReviews-cfg.MinReviews+1)
		program := sp.program

		for range n {
			ratings := generateRatings(rng, cfg)
			review := &models.Review{
				PreceptorID:           sp.preceptor.ID,
				SchoolID:              sp.school.ID,
				SiteID:                sp.site.ID,
				RotationTypeID:        program.rotations[rng.Intn(len(program.rotations))].ID,
				ExperienceTypeID:      program.experiences[rng.Intn(len(program.experiences))].ID,
				SchoolYear:            program.program.YearLabels[rng.Intn(len(program.program.YearLabels))],
				PriorExperience:       priorExperiences[rng.Intn(len(priorExperiences))],
				SchedulingFlexibility: ratings.scheduling,
				Workload:              ratings.workload,
				Expectations:          ratings.expectations,
				Mentorship:            ratings.mentorship,
				Enjoyment:             ratings.enjoyment,
				StarRating:            ratings.star,
				WouldRecommend:        ratings.star >= 3,
			}
			if rng.Float64() > 0.7 {
				hours := float64(rng.Intn(20))
				review.ExtraHours = &hours
			}
			if rng.Float64() > 0.3 && len(s.catalog.Comments) > 0 {
				comment := s.catalog.Comments[rng.Intn(len(s.catalog.Comments))]
				review.Comment = &comment
			}

			if err := s.repos.Reviews.Create(ctx, review); err != nil {
				return fmt.Errorf("seed review: %w", err)
			}
			if err := s.vote(ctx, review, rng.Intn(6), rng.Intn(3)); err != nil {
				return err
			}
			counts.Reviews++
		}
	}
	return nil
}

func (s *Seeder) vote(ctx context.Context, review *models.Review, up, down int) error {
	for range up {
		if _, err := s.repos.Reviews.IncrementVote(ctx, review.ID, models.VoteUp); err != nil {
			return fmt.Errorf("seed vote: %w", err)
		}
	}
	for range down {
		if _, err := s.repos.Reviews.IncrementVote(ctx, review.ID, models.VoteDown); err != nil {
			return fmt.Errorf("seed vote: %w", err)
		}
	}
	return nil
}

type ratings struct {
	scheduling   int
	workload     int
	expectations int
	mentorship   int
	enjoyment    int
	star         int
}

// generateRatings draws a review's ratings from one of three bands. The star
// rating is the rounded mean of every rating except workload.
func generateRatings(rng *rand.Rand, cfg Config) ratings {
	lo, hi, bias := 1, 3, 0.3
	switch roll := rng.Float64(); {
	case roll < cfg.Positive:
		lo, hi, bias = 3, 5, 0.7
	case roll < cfg.Positive+cfg.Neutral:
		lo, hi, bias = 2, 4, 0.5
	}

	draw := func(lo, hi int, bias float64) int {
		v := lo + rng.Intn(hi-lo+1)
		if rng.Float64() < bias {
			v = min(hi, v+1)
		}
		return v
	}

	r := ratings{
		scheduling:   draw(lo, hi, bias),
		workload:     draw(1, 5, 0.5),
		expectations: draw(lo, hi, bias),
		mentorship:   draw(lo, hi, bias),
		enjoyment:    draw(lo, hi, bias),
	}
	r.star = int(math.Round(float64(r.scheduling+r.expectations+r.mentorship+r.enjoyment) / 4))
	return r
}
