package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// Summary returns a function that renders a finished consultation as a markdown
// table, in the order the schema asks its questions. Choice answers show their labels.
func Summary(schema *domain.Schema) func(*domain.Snapshot) string {
	return func(snap *domain.Snapshot) string {
		return RenderResults(schema, snap)
	}
}

// RenderResults formats the collected answers of snap.
func RenderResults(schema *domain.Schema, snap *domain.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("## Consultation summary\n\n")

	fields := snap.Data.Fields()
	if len(fields) == 0 {
		sb.WriteString("_No answers recorded._\n")
		return sb.String()
	}

	sb.WriteString("| Question | Answer |\n|---|---|\n")
	seen := make(map[string]bool)
	if schema != nil {
		for _, q := range schema.Questions {
			value, ok := fields[q.ID]
			if !ok {
				continue
			}
			seen[q.ID] = true
			writeRow(&sb, q.Prompt, answerText(q, value))
		}
	}

	var rest []string
	for key := range fields {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	slices.Sort(rest)
	for _, key := range rest {
		writeRow(&sb, key, answerText(domain.Question{}, fields[key]))
	}
	return sb.String()
}

func answerText(q domain.Question, value any) string {
	var ids []string
	switch v := value.(type) {
	case string:
		if q.Type == domain.QuestionMultipleChoice {
			ids = domain.MappedAnswer{ValueID: v}.Values()
		} else {
			ids = []string{v}
		}
	case []string:
		ids = v
	default:
		return fmt.Sprint(v)
	}

	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if opt, ok := q.Option(id); ok {
			labels = append(labels, opt.Label)
		} else {
			labels = append(labels, id)
		}
	}
	return strings.Join(labels, ", ")
}

func writeRow(sb *strings.Builder, question, answer string) {
	fmt.Fprintf(sb, "| %s | %s |\n", cell(question), cell(answer))
}

// cell keeps a value on one table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}
