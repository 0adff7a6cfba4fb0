package sql

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValue(t *testing.T) {
	tests := []struct {
		name            string
		paramName       string
		value           string
		expectInjection bool
	}{
		{"empty", "q", "", false},
		{"preceptor name", "q", "Maya Patel", false},
		{"school name", "q", "Midwestern University", false},
		{"rotation type", "rotationType", "Ambulatory Care", false},
		{"uuid", "preceptorId", "550e8400-e29b-41d4-a716-446655440000", false},
		{"review comment", "comment", "Great mentor and very flexible with scheduling", false},
		{"classic tautology", "q", "' OR '1'='1", true},
		{"stacked drop", "comment", "'; DROP TABLE reviews--", true},
		{"union select", "q", "1 UNION SELECT * FROM passwords", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckValue(tt.paramName, tt.value)
			if !tt.expectInjection {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.paramName, result.ParamName)
			assert.Equal(t, tt.value, result.ParamValue)
			assert.NotEmpty(t, result.Fingerprint)
		})
	}
}

func TestCheckQuery(t *testing.T) {
	query := url.Values{
		"q":       {"pharmacy"},
		"comment": {"fine", "'; DROP TABLE reviews--"},
		"limit":   {"10"},
	}

	results := CheckQuery(query)

	require.Len(t, results, 1)
	assert.Equal(t, "comment", results[0].ParamName)
}

func TestCheckQuery_Clean(t *testing.T) {
	assert.Empty(t, CheckQuery(url.Values{"q": {"Rush University"}}))
	assert.Empty(t, CheckQuery(nil))
}
