package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollection_Table(t *testing.T) {
	tests := []struct {
		collection Collection
		table      string
		plural     string
	}{
		{CollectionSchool, "schools", "schools"},
		{CollectionPracticeSite, "practice_sites", "practice sites"},
		{CollectionProgramType, "program_types", "program types"},
		{CollectionRotationType, "rotation_types", "rotation types"},
		{CollectionExperienceType, "experience_types", "experience types"},
		{CollectionPreceptor, "preceptors", "preceptors"},
	}

	for _, tt := range tests {
		t.Run(string(tt.collection), func(t *testing.T) {
			assert.Equal(t, tt.table, tt.collection.Table())
			assert.Equal(t, tt.plural, tt.collection.Plural())
			assert.True(t, tt.collection.valid())
		})
	}

	assert.False(t, Collection("waitlist_entry").valid())
}
