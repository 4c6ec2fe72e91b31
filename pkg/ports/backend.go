package ports

import (
	"context"
	"strings"
)

// Prompt is a model-facing request: standing instructions plus the turn-specific lines.
type Prompt struct {
	Instructions string
	Lines        []string
}

// String renders the prompt lines, one per line.
func (p Prompt) String() string {
	return strings.Join(p.Lines, "\n")
}

// Snapshot is one element of a streamed completion.
// Text is the full text generated so far, never a delta. A non-nil Err ends the stream.
type Snapshot struct {
	Text string
	Err  error
}

// Backend is the generative text capability the engine requires.
type Backend interface {
	// Generate returns a single complete response.
	Generate(ctx context.Context, p Prompt) (string, error)

	// GenerateStream returns a channel of growing snapshots. The channel is closed when
	// generation ends. Implementations must stop sending when ctx is done.
	GenerateStream(ctx context.Context, p Prompt) (<-chan Snapshot, error)

	// Categorize asks the model to pick option ids. The reply is untrusted text.
	Categorize(ctx context.Context, p Prompt) (string, error)

	// Prewarm is a best-effort hint. It must not block and reports nothing.
	Prewarm(ctx context.Context)
}
