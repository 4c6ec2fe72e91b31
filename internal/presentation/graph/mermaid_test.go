package graph_test

import (
	"strings"
	"testing"

	"github.com/Chuabacca/Medley-AI/internal/presentation/graph"
	"github.com/Chuabacca/Medley-AI/internal/testutils"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name        string
		schema      *domain.Schema
		overlay     *graph.GraphOverlay
		contains    []string
		notContains []string
	}{
		{
			name:   "Question Shapes",
			schema: testutils.ConsultSchema(),
			contains: []string{
				"__start__((\"start\"))",
				"__start__ --> hair_loss_location",
				"hair_loss_location{\"hair_loss_location <br/> Where are you noticing hair loss?\"}",
				"goals_text[/\"goals_text <br/> What would you like to achieve?\"/]",
				"hair_loss_location --> goals_text",
				"goals_text --> __end__",
			},
			notContains: []string{"classDef"},
		},
		{
			name:   "Dangling Edge",
			schema: testutils.DanglingSchema(),
			contains: []string{
				"q1 -.-> missing",
			},
		},
		{
			name: "ID Sanitization and Quotes",
			schema: domain.NewSchema("1", "a.b-c", domain.Question{
				ID:     "a.b-c",
				Prompt: `Say "hi"`,
				Type:   domain.QuestionFreeText,
			}),
			contains: []string{
				"__start__ --> a_b_c",
				"a_b_c[/\"a.b-c <br/> Say 'hi'\"/]",
				"a_b_c --> __end__",
			},
		},
		{
			name:   "Overlay",
			schema: testutils.ConsultSchema(),
			overlay: &graph.GraphOverlay{
				Answered: []string{domain.FieldHairLossLocation, domain.FieldHairLossLocation},
				Current:  domain.FieldGoalsText,
			},
			contains: []string{
				"classDef answered",
				"class hair_loss_location answered;",
				"class goals_text current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.schema, tt.overlay)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, got, unwanted)
			}
			if tt.overlay != nil {
				assert.Equal(t, 1, strings.Count(got, "answered;"))
			}
		})
	}
}

func TestOverlayFromSnapshot(t *testing.T) {
	snap := domain.NewSnapshot("s1")
	snap.CurrentQuestionID = domain.FieldGoalsText
	snap.Data.Apply(domain.MappedAnswer{KeyPath: domain.FieldHairLossLocation, ValueID: "crown"})

	overlay := graph.OverlayFromSnapshot(snap)
	assert.Equal(t, []string{domain.FieldHairLossLocation}, overlay.Answered)
	assert.Equal(t, domain.FieldGoalsText, overlay.Current)
}
