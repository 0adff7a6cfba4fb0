package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/preceptorhub/preceptor-engine/pkg/jsonutil"
)

// ProgramType is a degree program (PharmD, MD, OD, DPT...).
// YearLabels name the program's years as students refer to them ("P1".."P4").
type ProgramType struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	YearLabels   []string  `json:"yearLabels"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RotationType belongs to exactly one ProgramType.
type RotationType struct {
	ID            uuid.UUID `json:"id"`
	ProgramTypeID uuid.UUID `json:"programTypeId"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ExperienceType belongs to exactly one ProgramType.
type ExperienceType struct {
	ID            uuid.UUID `json:"id"`
	ProgramTypeID uuid.UUID `json:"programTypeId"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SchoolProgram records that a school offers a program type.
type SchoolProgram struct {
	ID            uuid.UUID `json:"id"`
	SchoolID      uuid.UUID `json:"schoolId"`
	ProgramTypeID uuid.UUID `json:"programTypeId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// RotationTypeView is a rotation type with its program name attached.
type RotationTypeView struct {
	RotationType
	ProgramTypeName string `json:"programTypeName"`
}

// ExperienceTypeView is an experience type with its program name attached.
type ExperienceTypeView struct {
	ExperienceType
	ProgramTypeName string `json:"programTypeName"`
}

// SchoolProgramView is a school/program link with both names attached.
type SchoolProgramView struct {
	SchoolProgram
	SchoolName      string `json:"schoolName"`
	ProgramTypeName string `json:"programTypeName"`
}

type ProgramTypeInput struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Abbreviation string   `json:"abbreviation" validate:"required,max=20"`
	YearLabels   []string `json:"yearLabels" validate:"dive,required,max=20"`
}

type RotationTypeInput struct {
	ProgramTypeID uuid.UUID `json:"programTypeId" validate:"required"`
	Name          string    `json:"name" validate:"required,max=200"`
}

type ExperienceTypeInput struct {
	ProgramTypeID uuid.UUID `json:"programTypeId" validate:"required"`
	Name          string    `json:"name" validate:"required,max=200"`
	Description   *string   `json:"description" validate:"omitempty,max=1000"`
}

type SchoolProgramInput struct {
	SchoolID      uuid.UUID `json:"schoolId" validate:"required"`
	ProgramTypeID uuid.UUID `json:"programTypeId" validate:"required"`
}

type ProgramTypePatch struct {
	Name         jsonutil.Optional[string]   `json:"name"`
	Abbreviation jsonutil.Optional[string]   `json:"abbreviation"`
	YearLabels   jsonutil.Optional[[]string] `json:"yearLabels"`
}

type RotationTypePatch struct {
	ProgramTypeID jsonutil.Optional[uuid.UUID] `json:"programTypeId"`
	Name          jsonutil.Optional[string]    `json:"name"`
}

type ExperienceTypePatch struct {
	ProgramTypeID jsonutil.Optional[uuid.UUID] `json:"programTypeId"`
	Name          jsonutil.Optional[string]    `json:"name"`
	Description   jsonutil.Optional[string]    `json:"description"`
}

type SchoolProgramPatch struct {
	SchoolID      jsonutil.Optional[uuid.UUID] `json:"schoolId"`
	ProgramTypeID jsonutil.Optional[uuid.UUID] `json:"programTypeId"`
}
