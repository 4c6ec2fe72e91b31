package schema

import (
	"strconv"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// Validate checks the integrity of the question graph.
// Returns an error with all validation failures found.
func Validate(s *domain.Schema) error {
	if s.IsEmpty() {
		return &AggregateError{Errors: []error{&ValidationError{Reason: domain.ErrSchemaEmpty.Error()}}}
	}

	var errs []error
	seen := make(map[string]bool, len(s.Questions))

	if s.Intro.FirstQuestionID == "" {
		errs = append(errs, &ValidationError{Reason: "intro.firstQuestionId is required"})
	} else if _, ok := s.Question(s.Intro.FirstQuestionID); !ok {
		errs = append(errs, &ValidationError{
			Reason: "intro.firstQuestionId references unknown question " + strconv.Quote(s.Intro.FirstQuestionID),
		})
	}

	for _, q := range s.Questions {
		if q.ID == "" {
			errs = append(errs, &ValidationError{Reason: "question without id (prompt " + strconv.Quote(q.Prompt) + ")"})
			continue
		}
		if seen[q.ID] {
			errs = append(errs, &ValidationError{QuestionID: q.ID, Reason: "duplicate id, later definition shadows earlier"})
		}
		seen[q.ID] = true

		if q.Prompt == "" {
			errs = append(errs, &ValidationError{QuestionID: q.ID, Reason: "prompt is required"})
		}
		if !q.Type.Valid() {
			errs = append(errs, &ValidationError{QuestionID: q.ID, Reason: "unknown type " + strconv.Quote(string(q.Type))})
		}
		if q.Type.IsChoice() && len(q.Options) == 0 {
			errs = append(errs, &ValidationError{QuestionID: q.ID, Reason: "choice question has no options"})
		}

		next := q.NextID()
		if next != "" && !domain.IsSentinel(next) {
			if _, ok := s.Question(next); !ok {
				errs = append(errs, &ValidationError{QuestionID: q.ID, Reason: "next.default references unknown question " + strconv.Quote(next)})
			}
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Unreachable returns the ids of questions that no path from the entry visits,
// in declaration order.
func Unreachable(s *domain.Schema) []string {
	visited := make(map[string]bool)
	id := s.Intro.FirstQuestionID
	for id != "" && !visited[id] {
		q, ok := s.Question(id)
		if !ok {
			break
		}
		visited[id] = true
		id = q.NextID()
	}

	var out []string
	for _, q := range s.Questions {
		if !visited[q.ID] {
			out = append(out, q.ID)
		}
	}
	return out
}
