package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/preceptorhub/preceptor-engine/pkg/jsonutil"
)

// Preceptor is a clinician who supervises students. Identity is independent
// of affiliation: schools, sites and programs attach through edge records.
type Preceptor struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"fullName"`
	Email       *string   `json:"email,omitempty"`
	Credentials *string   `json:"credentials,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PreceptorInput is the create payload for a preceptor.
type PreceptorInput struct {
	FullName    string  `json:"fullName" validate:"required,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Credentials *string `json:"credentials" validate:"omitempty,max=200"`
}

// PreceptorWithAffiliations is a preceptor plus the targets of its edges.
type PreceptorWithAffiliations struct {
	Preceptor
	Schools  []*School       `json:"schools"`
	Sites    []*PracticeSite `json:"sites"`
	Programs []*ProgramType  `json:"programs"`
}

// PreceptorSearchResult is one search match with its affiliations and review stats.
type PreceptorSearchResult struct {
	PreceptorWithAffiliations
	Stats PreceptorStats `json:"stats"`
}

// RankedPreceptor is an entry of the most-reviewed listing.
type RankedPreceptor struct {
	Preceptor
	Stats PreceptorStats `json:"stats"`
}

// PreceptorPatch is a partial update; null clears email or credentials.
type PreceptorPatch struct {
	FullName    jsonutil.Optional[string] `json:"fullName"`
	Email       jsonutil.Optional[string] `json:"email"`
	Credentials jsonutil.Optional[string] `json:"credentials"`
}
