package dsl

import "github.com/Chuabacca/Medley-AI/pkg/domain"

// QuestionBuilder provides a fluent API for configuring a question.
type QuestionBuilder struct {
	question domain.Question
	builder  *Builder
}

// Ask sets the prompt, the topic the backend phrases into a question.
func (q *QuestionBuilder) Ask(prompt string) *QuestionBuilder {
	q.question.Prompt = prompt
	return q
}

// Info sets supplementary text shown before the question is asked.
func (q *QuestionBuilder) Info(info string) *QuestionBuilder {
	q.question.Info = info
	return q
}

// SingleChoice marks the question as single choice.
func (q *QuestionBuilder) SingleChoice() *QuestionBuilder {
	q.question.Type = domain.QuestionSingleChoice
	return q
}

// MultipleChoice marks the question as multiple choice.
func (q *QuestionBuilder) MultipleChoice() *QuestionBuilder {
	q.question.Type = domain.QuestionMultipleChoice
	return q
}

// FreeText marks the question as free text. This is the default.
func (q *QuestionBuilder) FreeText() *QuestionBuilder {
	q.question.Type = domain.QuestionFreeText
	return q
}

// Number marks the question as numeric.
func (q *QuestionBuilder) Number() *QuestionBuilder {
	q.question.Type = domain.QuestionNumber
	return q
}

// Date marks the question as a date.
func (q *QuestionBuilder) Date() *QuestionBuilder {
	q.question.Type = domain.QuestionDate
	return q
}

// Option appends an answer option.
func (q *QuestionBuilder) Option(id, label string) *QuestionBuilder {
	q.question.Options = append(q.question.Options, domain.Option{ID: id, Label: label})
	return q
}

// Replies sets the quick replies offered with the question.
func (q *QuestionBuilder) Replies(replies ...string) *QuestionBuilder {
	q.question.PredefinedResponses = append(q.question.PredefinedResponses, replies...)
	return q
}

// RepliesFromOptions offers every option label as a quick reply.
func (q *QuestionBuilder) RepliesFromOptions() *QuestionBuilder {
	for _, opt := range q.question.Options {
		q.question.PredefinedResponses = append(q.question.PredefinedResponses, opt.Label)
	}
	return q
}

// Go sets the next question.
func (q *QuestionBuilder) Go(target string) *QuestionBuilder {
	q.question.Next = &domain.NextRules{Default: target}
	return q
}

// Complete ends the consultation after this question.
func (q *QuestionBuilder) Complete() *QuestionBuilder {
	return q.Go(domain.SentinelEnd)
}

// Terminal removes any next rule. The conversation halts after this question.
func (q *QuestionBuilder) Terminal() *QuestionBuilder {
	q.question.Next = nil
	return q
}

// Add continues with another question of the same schema.
func (q *QuestionBuilder) Add(id string) *QuestionBuilder {
	return q.builder.Add(id)
}

// Build returns the underlying domain.Question.
// This is primarily used by the Builder, but exposed for advanced usage.
func (q *QuestionBuilder) Build() domain.Question {
	out := q.question
	out.Options = append([]domain.Option(nil), q.question.Options...)
	out.PredefinedResponses = append([]string(nil), q.question.PredefinedResponses...)
	if q.question.Next != nil {
		next := *q.question.Next
		out.Next = &next
	}
	return out
}
