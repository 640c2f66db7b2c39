package utils

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	ChildAgeMonths int    `json:"child_age_months" validate:"gte=0,lte=300"`
	BehaviorText   string `json:"behavior_text" validate:"notblank,max=2000"`
	Category       string `json:"category" validate:"required,category"`
	ChildID        string `json:"child_id,omitempty" validate:"omitempty,uuid"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      observation
		wantFields []string
	}{
		{
			name:  "valid",
			input: observation{ChildAgeMonths: 36, BehaviorText: "shares a toy", Category: "social"},
		},
		{
			name:       "negative age",
			input:      observation{ChildAgeMonths: -1, BehaviorText: "x", Category: "social"},
			wantFields: []string{"child_age_months"},
		},
		{
			name:       "blank behavior",
			input:      observation{ChildAgeMonths: 3, BehaviorText: "   ", Category: "sleep"},
			wantFields: []string{"behavior_text"},
		},
		{
			name:       "unknown category",
			input:      observation{ChildAgeMonths: 3, BehaviorText: "x", Category: "astrology"},
			wantFields: []string{"category"},
		},
		{
			name:       "several problems",
			input:      observation{ChildAgeMonths: 400, Category: "", ChildID: "nope"},
			wantFields: []string{"child_age_months", "behavior_text", "category", "child_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			fields := GetValidationFields(err)
			assert.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestValidationMessages(t *testing.T) {
	err := ValidateStruct(observation{ChildAgeMonths: 1, BehaviorText: "", Category: "nope"})

	fields := GetValidationFields(err)
	assert.Equal(t, "behavior_text is required", fields["behavior_text"])
	assert.Contains(t, fields["category"], "emotion, social")
}

func TestIsValidationError(t *testing.T) {
	assert.False(t, IsValidationError(errors.New("plain")))
	assert.Nil(t, GetValidationFields(errors.New("plain")))
	assert.True(t, IsValidationError(&ValidationError{Message: "x"}))
}

func TestParseUUID(t *testing.T) {
	id := uuid.New()

	got, err := ParseUUID(id.String(), "childID")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUID("not-a-uuid", "childID")
	assert.EqualError(t, err, "childID must be a valid UUID")
}
