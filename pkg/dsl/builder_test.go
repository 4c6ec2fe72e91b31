package dsl_test

import (
	"context"
	"testing"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/dsl"
	"github.com/Chuabacca/Medley-AI/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := dsl.New("1")

	b.Add("hair_loss_location").
		Ask("Where are you noticing hair loss?").
		SingleChoice().
		Option("crown", "Crown").
		Option("hairline", "Hairline").
		RepliesFromOptions().
		Go("goals_text")

	b.Add("goals_text").
		Ask("What would you like to achieve?").
		Info("Results take a few months.").
		Complete()

	loader, err := b.Build()
	require.NoError(t, err)

	s, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", s.Version)
	assert.Equal(t, "hair_loss_location", s.Intro.FirstQuestionID)
	require.Len(t, s.Questions, 2)

	first, ok := s.FirstQuestion()
	require.True(t, ok)
	assert.Equal(t, domain.QuestionSingleChoice, first.Type)
	assert.Equal(t, []string{"Crown", "Hairline"}, first.PredefinedResponses)
	assert.Equal(t, "goals_text", first.NextID())

	goals, ok := s.Question("goals_text")
	require.True(t, ok)
	assert.Equal(t, domain.QuestionFreeText, goals.Type)
	assert.True(t, goals.HasInfo())
	assert.Equal(t, domain.SentinelEnd, goals.NextID())
}

func TestBuilder_StartAndChaining(t *testing.T) {
	b := dsl.New("2").Start("b")
	b.Add("a").Ask("A?").Terminal().
		Add("b").Ask("B?").Number().Go("a")

	s := b.Schema()
	assert.Equal(t, "b", s.Intro.FirstQuestionID)
	assert.Equal(t, []string{"a", "b"}, []string{s.Questions[0].ID, s.Questions[1].ID})
	assert.Nil(t, s.Questions[0].Next)
	assert.Same(t, b.Add("a"), b.Add("a"))
}

func TestBuilder_InvalidSchema(t *testing.T) {
	b := dsl.New("1")
	b.Add("start").Ask("Pick one").SingleChoice().Go("nowhere")

	_, err := b.Build()
	require.Error(t, err)

	var aggr *schema.AggregateError
	require.ErrorAs(t, err, &aggr)
	assert.Len(t, aggr.Errors, 2, "missing options and dangling next")
}
