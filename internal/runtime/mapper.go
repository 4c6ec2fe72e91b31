package runtime

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
)

// Mapper converts raw user replies into MappedAnswers.
type Mapper struct {
	backend      ports.Backend
	instructions string
	logger       *slog.Logger
}

// NewMapper creates a mapper that falls back to backend categorization.
func NewMapper(backend ports.Backend, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mapper{
		backend:      backend,
		instructions: DefaultInstructions,
		logger:       logger,
	}
}

// Map resolves rawText against q. First match wins:
//  1. an option label (case-insensitive) or option id;
//  2. the raw text itself for free_text questions;
//  3. a backend categorization over the question's options, validated against them;
//  4. nothing.
//
// Categorization failures never surface: they degrade to the first declared option.
func (m *Mapper) Map(ctx context.Context, rawText string, q domain.Question) *domain.MappedAnswer {
	if id, ok := matchOptions(rawText, q); ok {
		return &domain.MappedAnswer{KeyPath: q.ID, ValueID: id}
	}

	if q.Type == domain.QuestionFreeText {
		return &domain.MappedAnswer{KeyPath: q.ID, ValueID: rawText}
	}

	if len(q.Options) == 0 {
		return nil
	}

	return &domain.MappedAnswer{KeyPath: q.ID, ValueID: m.categorize(ctx, rawText, q)}
}

func (m *Mapper) categorize(ctx context.Context, rawText string, q domain.Question) string {
	first := q.Options[0].ID

	reply, err := m.backend.Categorize(ctx, categorizePrompt(m.instructions, q, rawText))
	if err != nil {
		m.logger.Warn("Categorization failed, using first option",
			"question_id", q.ID,
			"err", err,
		)
		return first
	}

	if id, ok := validateCategory(reply, q); ok {
		return id
	}

	m.logger.Debug("Categorization returned no known option, using first option",
		"question_id", q.ID,
		"reply", reply,
	)
	return first
}

// matchOptions implements the exact-match rule. Multiple-choice replies may list
// several labels or ids separated by commas; all of them must match.
func matchOptions(rawText string, q domain.Question) (string, bool) {
	if id, ok := matchOption(rawText, q.Options); ok {
		return id, true
	}

	if q.Type != domain.QuestionMultipleChoice || !strings.Contains(rawText, ",") {
		return "", false
	}

	var ids []string
	for _, part := range strings.Split(rawText, ",") {
		id, ok := matchOption(part, q.Options)
		if !ok {
			return "", false
		}
		ids = appendUnique(ids, id)
	}
	return strings.Join(ids, ","), len(ids) > 0
}

func matchOption(text string, options []domain.Option) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, opt := range options {
		if strings.EqualFold(opt.Label, text) || opt.ID == text {
			return opt.ID, true
		}
	}
	return "", false
}

// validateCategory treats the backend reply as untrusted text.
func validateCategory(reply string, q domain.Question) (string, bool) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", false
	}

	if _, ok := q.Option(reply); ok {
		return reply, true
	}

	if q.Type == domain.QuestionMultipleChoice {
		var ids []string
		for _, token := range strings.FieldsFunc(reply, isSeparator) {
			token = strings.Trim(token, "`'\".")
			if _, ok := q.Option(token); ok {
				ids = appendUnique(ids, token)
			}
		}
		if len(ids) > 0 {
			return strings.Join(ids, ","), true
		}
	}

	// Prefer the longest contained id so "opt1" does not shadow "opt10".
	best := ""
	for _, opt := range q.Options {
		if opt.ID != "" && strings.Contains(reply, opt.ID) && len(opt.ID) > len(best) {
			best = opt.ID
		}
	}
	return best, best != ""
}

func isSeparator(r rune) bool {
	return r == ',' || r == ';' || unicode.IsSpace(r)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
