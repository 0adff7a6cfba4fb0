package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
)

// Collection names an entity whose display name can be looked up in bulk.
// The table is the plural of the collection name.
type Collection string

const (
	CollectionSchool         Collection = "school"
	CollectionPracticeSite   Collection = "practice_site"
	CollectionProgramType    Collection = "program_type"
	CollectionRotationType   Collection = "rotation_type"
	CollectionExperienceType Collection = "experience_type"
	CollectionPreceptor      Collection = "preceptor"
)

// Table returns the table backing the collection.
func (c Collection) Table() string {
	return inflection.Plural(string(c))
}

// Plural is the human-readable plural, used in log fields.
func (c Collection) Plural() string {
	return strings.ReplaceAll(c.Table(), "_", " ")
}

func (c Collection) nameColumn() string {
	if c == CollectionPreceptor {
		return "full_name"
	}
	return "name"
}

func (c Collection) valid() bool {
	switch c {
	case CollectionSchool, CollectionPracticeSite, CollectionProgramType,
		CollectionRotationType, CollectionExperienceType, CollectionPreceptor:
		return true
	}
	return false
}

// NameLookupRepository fetches id -> display name maps, one query per collection.
type NameLookupRepository interface {
	// Names returns names for the ids that exist. Missing ids are absent from the map.
	Names(ctx context.Context, collection Collection, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type nameLookupRepository struct{}

// NewNameLookupRepository creates a new NameLookupRepository.
func NewNameLookupRepository() NameLookupRepository {
	return &nameLookupRepository{}
}

var _ NameLookupRepository = (*nameLookupRepository)(nil)

func (r *nameLookupRepository) Names(ctx context.Context, collection Collection, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	if !collection.valid() {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx,
		`SELECT id, `+collection.nameColumn()+` FROM `+collection.Table()+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", collection.Plural(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan %s name: %w", collection, err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", collection.Plural(), err)
	}
	return names, nil
}
