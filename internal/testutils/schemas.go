package testutils

import "github.com/Chuabacca/Medley-AI/pkg/domain"

// InfoSchema is a two-question graph whose first question carries info.
// q1 is single_choice (opt1 "Option 1", opt2 "Option 2") and leads to q2,
// a free_text question ending in the completion sentinel.
func InfoSchema() *domain.Schema {
	return domain.NewSchema("1.0", "q1",
		domain.Question{
			ID:                  "q1",
			Prompt:              "Test question 1",
			Info:                "This is important information",
			Type:                domain.QuestionSingleChoice,
			Options:             []domain.Option{{ID: "opt1", Label: "Option 1"}, {ID: "opt2", Label: "Option 2"}},
			PredefinedResponses: []string{"Option 1", "Option 2"},
			Next:                &domain.NextRules{Default: "q2"},
		},
		domain.Question{
			ID:     "q2",
			Prompt: "Test question 2",
			Type:   domain.QuestionFreeText,
			Next:   &domain.NextRules{Default: domain.SentinelComplete},
		},
	)
}

// InfoSuccessorSchema puts a free text question in front of InfoSchema, so the
// question with info is reached by an answer.
func InfoSuccessorSchema() *domain.Schema {
	info := InfoSchema()
	return domain.NewSchema("1.0", "q0",
		domain.Question{
			ID:     "q0",
			Prompt: "What brings you in today?",
			Type:   domain.QuestionFreeText,
			Next:   &domain.NextRules{Default: "q1"},
		},
		info.Questions[0],
		info.Questions[1],
	)
}

// ConsultSchema is a two-question graph keyed by result field names.
func ConsultSchema() *domain.Schema {
	return domain.NewSchema("1.0", domain.FieldHairLossLocation,
		domain.Question{
			ID:     domain.FieldHairLossLocation,
			Prompt: "Where are you noticing hair loss?",
			Type:   domain.QuestionSingleChoice,
			Options: []domain.Option{
				{ID: "crown", Label: "Crown"},
				{ID: "hairline", Label: "Hairline"},
				{ID: "overall", Label: "Overall thinning"},
			},
			PredefinedResponses: []string{"Crown", "Hairline", "Overall thinning"},
			Next:                &domain.NextRules{Default: domain.FieldGoalsText},
		},
		domain.Question{
			ID:     domain.FieldGoalsText,
			Prompt: "What would you like to achieve?",
			Type:   domain.QuestionFreeText,
			Next:   &domain.NextRules{Default: domain.SentinelEnd},
		},
	)
}

// DanglingSchema has a question whose successor does not exist.
func DanglingSchema() *domain.Schema {
	return domain.NewSchema("1.0", "q1",
		domain.Question{
			ID:     "q1",
			Prompt: "Tell me about yourself",
			Type:   domain.QuestionFreeText,
			Next:   &domain.NextRules{Default: "missing"},
		},
	)
}
