package domain

import "strings"

// QuestionType enumerates the answer shapes a question accepts.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFreeText       QuestionType = "free_text"
	QuestionNumber         QuestionType = "number"
	QuestionDate           QuestionType = "date"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionFreeText, QuestionNumber, QuestionDate:
		return true
	}
	return false
}

// IsChoice reports whether answers are expected to resolve to option ids.
func (t QuestionType) IsChoice() bool {
	return t == QuestionSingleChoice || t == QuestionMultipleChoice
}

// Option is a selectable answer of a choice question.
type Option struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// NextRules holds the routing of a question.
type NextRules struct {
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
}

// Question is a node of the branching question graph.
type Question struct {
	ID                  string       `json:"id" yaml:"id"`
	Prompt              string       `json:"prompt" yaml:"prompt"`
	Info                string       `json:"info,omitempty" yaml:"info,omitempty"`
	Type                QuestionType `json:"type" yaml:"type"`
	Options             []Option     `json:"options,omitempty" yaml:"options,omitempty"`
	PredefinedResponses []string     `json:"predefinedResponses,omitempty" yaml:"predefinedResponses,omitempty"`
	Next                *NextRules   `json:"next,omitempty" yaml:"next,omitempty"`
}

// NextID returns next.default, or "" when the question is terminal.
func (q Question) NextID() string {
	if q.Next == nil {
		return ""
	}
	return q.Next.Default
}

// HasInfo reports whether the question carries supplementary info text.
func (q Question) HasInfo() bool {
	return strings.TrimSpace(q.Info) != ""
}

// Option returns the option with the given id.
func (q Question) Option(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Intro names the entry node of the graph.
type Intro struct {
	FirstQuestionID string `json:"firstQuestionId" yaml:"firstQuestionId"`
}

// Schema is the immutable question graph.
// Call Reindex after building one by hand or decoding it; loaders do this already.
type Schema struct {
	Version   string     `json:"version" yaml:"version"`
	Intro     Intro      `json:"intro" yaml:"intro"`
	Questions []Question `json:"questions" yaml:"questions"`

	byID map[string]Question
}

// NewSchema builds an indexed schema.
func NewSchema(version, firstQuestionID string, questions ...Question) *Schema {
	s := &Schema{
		Version:   version,
		Intro:     Intro{FirstQuestionID: firstQuestionID},
		Questions: questions,
	}
	s.Reindex()
	return s
}

// EmptySchema is what a failed load degrades to.
func EmptySchema() *Schema {
	return NewSchema("", "")
}

// Reindex rebuilds the id lookup. Duplicate ids shadow earlier entries.
func (s *Schema) Reindex() {
	s.byID = make(map[string]Question, len(s.Questions))
	for _, q := range s.Questions {
		s.byID[q.ID] = q
	}
}

// Question resolves a question by id.
func (s *Schema) Question(id string) (Question, bool) {
	if s == nil || id == "" {
		return Question{}, false
	}
	if s.byID != nil {
		q, ok := s.byID[id]
		return q, ok
	}
	// Unindexed schema: scan backwards to keep last-write-wins.
	for i := len(s.Questions) - 1; i >= 0; i-- {
		if s.Questions[i].ID == id {
			return s.Questions[i], true
		}
	}
	return Question{}, false
}

// FirstQuestion resolves intro.firstQuestionId.
func (s *Schema) FirstQuestion() (Question, bool) {
	if s == nil {
		return Question{}, false
	}
	return s.Question(s.Intro.FirstQuestionID)
}

// IsEmpty reports whether the schema has no questions at all.
func (s *Schema) IsEmpty() bool {
	return s == nil || len(s.Questions) == 0
}
