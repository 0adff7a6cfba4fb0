package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/preceptorhub/preceptor-engine/pkg/jsonutil"
)

// School is an academic institution that places students with preceptors.
type School struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PracticeSite is a clinical location where rotations happen.
type PracticeSite struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SchoolInput is the create payload for a school.
type SchoolInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

// PracticeSiteInput is the create payload for a practice site.
type PracticeSiteInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	City  string `json:"city" validate:"max=100"`
	State string `json:"state" validate:"max=50"`
}

// SchoolPatch is a partial update of a school.
type SchoolPatch struct {
	Name jsonutil.Optional[string] `json:"name"`
}

// PracticeSitePatch is a partial update of a practice site.
type PracticeSitePatch struct {
	Name  jsonutil.Optional[string] `json:"name"`
	City  jsonutil.Optional[string] `json:"city"`
	State jsonutil.Optional[string] `json:"state"`
}
