package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
)

func TestSchoolProgramHandler_List(t *testing.T) {
	schoolID, programID := uuid.New(), uuid.New()

	tests := []struct {
		name         string
		query        string
		wantListedBy string
		wantID       uuid.UUID
	}{
		{"all", "", "all", uuid.Nil},
		{"by school", "?schoolId=" + schoolID.String(), "school", schoolID},
		{"by program type", "?programTypeId=" + programID.String(), "programType", programID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSchoolProgramService{views: []*models.SchoolProgramView{
				{SchoolProgram: models.SchoolProgram{ID: uuid.New()}, SchoolName: "Rush University", ProgramTypeName: "Medicine"},
			}}
			mux := newTestMux(NewSchoolProgramHandler(svc, testLogger()))

			rec := doRequest(t, mux, http.MethodGet, "/api/school-programs"+tt.query, nil)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantListedBy, svc.listedBy)
			assert.Equal(t, tt.wantID, svc.gotID)
			list := decodeData[ListResponse[models.SchoolProgramView]](t, rec)
			assert.Equal(t, "Medicine", list.Items[0].ProgramTypeName)
		})
	}
}

func TestSchoolProgramHandler_List_BothFilters(t *testing.T) {
	svc := &mockSchoolProgramService{}
	mux := newTestMux(NewSchoolProgramHandler(svc, testLogger()))

	rec := doRequest(t, mux, http.MethodGet,
		"/api/school-programs?schoolId="+uuid.NewString()+"&programTypeId="+uuid.NewString(), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.listedBy)
}

func TestSchoolProgramHandler_Create(t *testing.T) {
	mux := newTestMux(NewSchoolProgramHandler(&mockSchoolProgramService{}, testLogger()))
	in := models.SchoolProgramInput{SchoolID: uuid.New(), ProgramTypeID: uuid.New()}

	rec := doRequest(t, mux, http.MethodPost, "/api/school-programs", in)

	require.Equal(t, http.StatusCreated, rec.Code)
	got := decodeData[models.SchoolProgram](t, rec)
	assert.Equal(t, in.SchoolID, got.SchoolID)
	assert.Equal(t, in.ProgramTypeID, got.ProgramTypeID)
}

func TestSchoolProgramHandler_Create_Duplicate(t *testing.T) {
	svc := &mockSchoolProgramService{err: fmt.Errorf("school already offers program: %w", apperrors.ErrConflict)}
	mux := newTestMux(NewSchoolProgramHandler(svc, testLogger()))

	rec := doRequest(t, mux, http.MethodPost, "/api/school-programs", models.SchoolProgramInput{})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSchoolProgramHandler_Delete(t *testing.T) {
	svc := &mockSchoolProgramService{}
	mux := newTestMux(NewSchoolProgramHandler(svc, testLogger()))
	id := uuid.New()

	rec := doRequest(t, mux, http.MethodDelete, "/api/school-programs/"+id.String(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, svc.gotID)
}
