// Package graph renders the question graph as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// Node ids of the synthetic entry and exit nodes.
const (
	StartID = "__start__"
	EndID   = "__end__"
)

// GraphOverlay contains consultation progress to visualize on the graph.
type GraphOverlay struct {
	Answered []string
	Current  string
}

// OverlayFromSnapshot marks the answered questions and the question awaiting an answer.
func OverlayFromSnapshot(snap *domain.Snapshot) *GraphOverlay {
	overlay := &GraphOverlay{Current: snap.CurrentQuestionID}
	for key := range snap.Data.Fields() {
		overlay.Answered = append(overlay.Answered, key)
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart of the schema.
// It applies semantic styling:
// - Start/End: ((Circle))
// - Choice questions: {Rhombus}
// - Free text, number, date: [/Parallelogram/]
// Edges to an unknown id are drawn dotted so broken routing stands out.
func GenerateMermaid(schema *domain.Schema, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sb.WriteString(fmt.Sprintf("    %s((\"start\"))\n", StartID))
	sb.WriteString(fmt.Sprintf("    %s((\"end\"))\n", EndID))
	if first := schema.Intro.FirstQuestionID; first != "" {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", StartID, target(first)))
	}

	for _, q := range schema.Questions {
		safeID := sanitizeMermaidID(q.ID)

		opener, closer := "[/", "/]"
		if q.Type.IsChoice() {
			opener, closer = "{", "}"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label(q), closer))

		next := q.NextID()
		arrow := "-->"
		if next != "" && !domain.IsSentinel(next) {
			if _, ok := schema.Question(next); !ok {
				arrow = "-.->"
			}
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, target(next)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef answered fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, q := range schema.Questions {
			for _, id := range overlay.Answered {
				if id == q.ID && !seen[id] {
					seen[id] = true
					sb.WriteString(fmt.Sprintf("    class %s answered;\n", sanitizeMermaidID(id)))
				}
			}
		}
		if overlay.Current != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Current)))
		}
	}

	return sb.String()
}

// target maps a routing id to a node id; terminal and sentinel ids lead to the end node.
func target(id string) string {
	if id == "" || domain.IsSentinel(id) {
		return EndID
	}
	return sanitizeMermaidID(id)
}

func label(q domain.Question) string {
	text := strings.ReplaceAll(q.Prompt, "\"", "'")
	if text == "" {
		return q.ID
	}
	return fmt.Sprintf("%s <br/> %s", q.ID, text)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
