package domain_test

import (
	"testing"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredConsult_Apply(t *testing.T) {
	tests := []struct {
		name    string
		answers []domain.MappedAnswer
		applied bool
		want    map[string]any
	}{
		{
			name:    "scalar field",
			answers: []domain.MappedAnswer{{KeyPath: domain.FieldHairLossLocation, ValueID: "crown"}},
			applied: true,
			want:    map[string]any{domain.FieldHairLossLocation: "crown"},
		},
		{
			name:    "free text is kept verbatim",
			answers: []domain.MappedAnswer{{KeyPath: domain.FieldGoalsText, ValueID: "  Keep my hairline  "}},
			applied: true,
			want:    map[string]any{domain.FieldGoalsText: "  Keep my hairline  "},
		},
		{
			name: "treatment goals deduplicate in insertion order",
			answers: []domain.MappedAnswer{
				{KeyPath: domain.FieldTreatmentGoals, ValueID: "regrow"},
				{KeyPath: domain.FieldTreatmentGoals, ValueID: "prevent,regrow"},
			},
			applied: true,
			want:    map[string]any{domain.FieldTreatmentGoals: []string{"regrow", "prevent"}},
		},
		{
			name:    "unknown key is ignored",
			answers: []domain.MappedAnswer{{KeyPath: "favourite_colour", ValueID: "blue"}},
			applied: false,
			want:    map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.NewStructuredConsult()
			for _, a := range tt.answers {
				assert.Equal(t, tt.applied, c.Apply(a))
			}
			assert.Equal(t, tt.want, c.Fields())
			assert.NotNil(t, c.TreatmentGoals)
		})
	}
}

func TestStructuredConsult_CloneIsIndependent(t *testing.T) {
	c := domain.NewStructuredConsult()
	require.True(t, c.Apply(domain.MappedAnswer{KeyPath: domain.FieldHairType, ValueID: "curly"}))
	require.True(t, c.Apply(domain.MappedAnswer{KeyPath: domain.FieldTreatmentGoals, ValueID: "regrow"}))

	clone := c.Clone()
	c.Apply(domain.MappedAnswer{KeyPath: domain.FieldHairType, ValueID: "straight"})
	c.Apply(domain.MappedAnswer{KeyPath: domain.FieldTreatmentGoals, ValueID: "prevent"})

	require.NotNil(t, clone.HairType)
	assert.Equal(t, "curly", *clone.HairType)
	assert.Equal(t, []string{"regrow"}, clone.TreatmentGoals)
}

func TestMappedAnswer_Values(t *testing.T) {
	a := domain.MappedAnswer{KeyPath: "q", ValueID: "a, b,,c "}
	assert.Equal(t, []string{"a", "b", "c"}, a.Values())
}
