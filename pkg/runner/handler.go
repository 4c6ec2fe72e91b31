package runner

import (
	"context"

	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (terminal) and JSON (structured) modes.
type IOHandler interface {
	// Render presents one change of the conversation, such as a streamed delta.
	Render(ctx context.Context, u conversation.Update) error

	// Input reads the answer to the current question.
	// replies are the quick replies the question offers, possibly none.
	Input(ctx context.Context, replies []string) (string, error)

	// SystemOutput presents a meta-message (errors, resume notices).
	// This is distinct from conversation content.
	SystemOutput(ctx context.Context, msg string) error

	// Result presents a finished consultation.
	Result(ctx context.Context, snap *domain.Snapshot) error
}

// ContentRenderer transforms content before it is written.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
