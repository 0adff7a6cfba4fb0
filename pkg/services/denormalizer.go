package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/database"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
	"github.com/preceptorhub/preceptor-engine/pkg/repositories"
)

var placeholders = map[repositories.Collection]string{
	repositories.CollectionSchool:         "Unknown School",
	repositories.CollectionPracticeSite:   "Unknown Site",
	repositories.CollectionProgramType:    "Unknown Program",
	repositories.CollectionRotationType:   "Unknown Rotation",
	repositories.CollectionExperienceType: "Unknown Experience",
	repositories.CollectionPreceptor:      "Unknown Preceptor",
}

// Placeholder is the display name used when an id does not resolve.
func Placeholder(c repositories.Collection) string {
	return placeholders[c]
}

// NameRefs collects the ids referenced by a batch of records, per collection.
type NameRefs map[repositories.Collection][]uuid.UUID

// Add records an id as referenced.
func (r NameRefs) Add(c repositories.Collection, id uuid.UUID) {
	r[c] = append(r[c], id)
}

// NameMaps holds id -> name lookups per collection.
type NameMaps map[repositories.Collection]map[uuid.UUID]string

// Name resolves an id, falling back to the collection's placeholder.
func (m NameMaps) Name(c repositories.Collection, id uuid.UUID) string {
	if name, ok := m[c][id]; ok {
		return name
	}
	return Placeholder(c)
}

// Has reports whether the id resolved.
func (m NameMaps) Has(c repositories.Collection, id uuid.UUID) bool {
	_, ok := m[c][id]
	return ok
}

// Denormalizer attaches display names to records. It issues one bulk lookup
// per referenced collection regardless of how many records it is given.
type Denormalizer struct {
	names  repositories.NameLookupRepository
	scope  database.ScopeFunc
	logger *zap.Logger
}

// NewDenormalizer creates a Denormalizer. scope may be nil, in which case
// lookups run sequentially on the caller's connection.
func NewDenormalizer(names repositories.NameLookupRepository, scope database.ScopeFunc, logger *zap.Logger) *Denormalizer {
	return &Denormalizer{
		names:  names,
		scope:  scope,
		logger: logger.Named("denormalizer"),
	}
}

// Lookup fetches the names for refs, one query per collection, concurrently.
func (d *Denormalizer) Lookup(ctx context.Context, refs NameRefs) (NameMaps, error) {
	var mu sync.Mutex
	maps := make(NameMaps, len(refs))

	fetches := make([]func(context.Context) error, 0, len(refs))
	for collection, ids := range refs {
		ids := uniqueIDs(ids)
		fetches = append(fetches, func(ctx context.Context) error {
			names, err := d.names.Names(ctx, collection, ids)
			if err != nil {
				return fmt.Errorf("look up %s: %w", collection.Plural(), err)
			}
			if missing := len(ids) - len(names); missing > 0 {
				d.logger.Debug("Unresolved references",
					zap.String("collection", collection.Plural()),
					zap.Int("missing", missing))
			}
			mu.Lock()
			maps[collection] = names
			mu.Unlock()
			return nil
		})
	}

	if err := runParallel(ctx, d.scope, fetches...); err != nil {
		return nil, err
	}
	return maps, nil
}

// Reviews attaches preceptor, school, site, rotation and experience names.
func (d *Denormalizer) Reviews(ctx context.Context, reviews []*models.Review) ([]*models.ReviewView, error) {
	refs := NameRefs{}
	for _, r := range reviews {
		refs.Add(repositories.CollectionPreceptor, r.PreceptorID)
		refs.Add(repositories.CollectionSchool, r.SchoolID)
		refs.Add(repositories.CollectionPracticeSite, r.SiteID)
		refs.Add(repositories.CollectionRotationType, r.RotationTypeID)
		refs.Add(repositories.CollectionExperienceType, r.ExperienceTypeID)
	}

	names, err := d.Lookup(ctx, refs)
	if err != nil {
		return nil, err
	}

	views := make([]*models.ReviewView, 0, len(reviews))
	for _, r := range reviews {
		views = append(views, &models.ReviewView{
			Review:             *r,
			PreceptorName:      names.Name(repositories.CollectionPreceptor, r.PreceptorID),
			SchoolName:         names.Name(repositories.CollectionSchool, r.SchoolID),
			SiteName:           names.Name(repositories.CollectionPracticeSite, r.SiteID),
			RotationTypeName:   names.Name(repositories.CollectionRotationType, r.RotationTypeID),
			ExperienceTypeName: names.Name(repositories.CollectionExperienceType, r.ExperienceTypeID),
		})
	}
	return views, nil
}

// RotationTypes attaches program names.
func (d *Denormalizer) RotationTypes(ctx context.Context, types []*models.RotationType) ([]*models.RotationTypeView, error) {
	refs := NameRefs{}
	for _, t := range types {
		refs.Add(repositories.CollectionProgramType, t.ProgramTypeID)
	}
	names, err := d.Lookup(ctx, refs)
	if err != nil {
		return nil, err
	}

	views := make([]*models.RotationTypeView, 0, len(types))
	for _, t := range types {
		views = append(views, &models.RotationTypeView{
			RotationType:    *t,
			ProgramTypeName: names.Name(repositories.CollectionProgramType, t.ProgramTypeID),
		})
	}
	return views, nil
}

// ExperienceTypes attaches program names.
func (d *Denormalizer) ExperienceTypes(ctx context.Context, types []*models.ExperienceType) ([]*models.ExperienceTypeView, error) {
	refs := NameRefs{}
	for _, t := range types {
		refs.Add(repositories.CollectionProgramType, t.ProgramTypeID)
	}
	names, err := d.Lookup(ctx, refs)
	if err != nil {
		return nil, err
	}

	views := make([]*models.ExperienceTypeView, 0, len(types))
	for _, t := range types {
		views = append(views, &models.ExperienceTypeView{
			ExperienceType:  *t,
			ProgramTypeName: names.Name(repositories.CollectionProgramType, t.ProgramTypeID),
		})
	}
	return views, nil
}

// SchoolPrograms attaches school and program names.
func (d *Denormalizer) SchoolPrograms(ctx context.Context, links []*models.SchoolProgram) ([]*models.SchoolProgramView, error) {
	refs := NameRefs{}
	for _, l := range links {
		refs.Add(repositories.CollectionSchool, l.SchoolID)
		refs.Add(repositories.CollectionProgramType, l.ProgramTypeID)
	}
	names, err := d.Lookup(ctx, refs)
	if err != nil {
		return nil, err
	}

	views := make([]*models.SchoolProgramView, 0, len(links))
	for _, l := range links {
		views = append(views, &models.SchoolProgramView{
			SchoolProgram:   *l,
			SchoolName:      names.Name(repositories.CollectionSchool, l.SchoolID),
			ProgramTypeName: names.Name(repositories.CollectionProgramType, l.ProgramTypeID),
		})
	}
	return views, nil
}
