package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AffiliationKind selects one of the three edge collections.
type AffiliationKind string

const (
	AffiliationSchool  AffiliationKind = "school"
	AffiliationSite    AffiliationKind = "site"
	AffiliationProgram AffiliationKind = "program"
)

// ParseAffiliationKind validates a kind received from a caller.
func ParseAffiliationKind(s string) (AffiliationKind, error) {
	switch k := AffiliationKind(s); k {
	case AffiliationSchool, AffiliationSite, AffiliationProgram:
		return k, nil
	}
	return "", fmt.Errorf("unknown affiliation kind %q", s)
}

// PreceptorSchool links a preceptor to a school.
type PreceptorSchool struct {
	ID          uuid.UUID `json:"id"`
	PreceptorID uuid.UUID `json:"preceptorId"`
	SchoolID    uuid.UUID `json:"schoolId"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PreceptorSite links a preceptor to a site, in the context of a school.
type PreceptorSite struct {
	ID          uuid.UUID `json:"id"`
	PreceptorID uuid.UUID `json:"preceptorId"`
	SchoolID    uuid.UUID `json:"schoolId"`
	SiteID      uuid.UUID `json:"siteId"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PreceptorProgram links a preceptor to a program at a school and site.
// An active edge is what authorizes reviews for that 4-tuple.
type PreceptorProgram struct {
	ID            uuid.UUID `json:"id"`
	PreceptorID   uuid.UUID `json:"preceptorId"`
	SchoolID      uuid.UUID `json:"schoolId"`
	SiteID        uuid.UUID `json:"siteId"`
	ProgramTypeID uuid.UUID `json:"programTypeId"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AffiliationInput carries the fields for creating an edge of any kind.
// Fields not used by the kind are ignored. IsActive defaults to true.
type AffiliationInput struct {
	Kind          AffiliationKind `json:"kind" validate:"required,oneof=school site program"`
	PreceptorID   uuid.UUID       `json:"preceptorId" validate:"required"`
	SchoolID      uuid.UUID       `json:"schoolId" validate:"required"`
	SiteID        uuid.UUID       `json:"siteId" validate:"required_unless=Kind school"`
	ProgramTypeID uuid.UUID       `json:"programTypeId" validate:"required_if=Kind program"`
	IsActive      *bool           `json:"isActive"`
}

// Affiliation is a created edge of any kind, returned to callers.
type Affiliation struct {
	Kind AffiliationKind `json:"kind"`
	Edge any             `json:"edge"`
}

// AffiliationFilter narrows an edge listing. Zero-valued ids are ignored.
// PreceptorIDs, when non-nil, restricts to any of the given preceptors.
type AffiliationFilter struct {
	PreceptorID   uuid.UUID
	PreceptorIDs  []uuid.UUID
	SchoolID      uuid.UUID
	SiteID        uuid.UUID
	ProgramTypeID uuid.UUID
	OnlyActive    bool
	Limit         int
}

// ContextValidation is the outcome of the review-submission gate.
// Suggestions lists the active alternatives so a form can offer them.
type ContextValidation struct {
	IsValid     bool               `json:"isValid"`
	Errors      []string           `json:"errors"`
	Suggestions ContextSuggestions `json:"suggestions"`
}

type ContextSuggestions struct {
	Schools  []*School       `json:"schools,omitempty"`
	Sites    []*PracticeSite `json:"sites,omitempty"`
	Programs []*ProgramType  `json:"programs,omitempty"`
}
