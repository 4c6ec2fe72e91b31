package ports

import (
	"context"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// TurnEngine produces the streamed turns of a consultation.
// It is stateless: the orchestrator owns the position in the graph and passes it in.
// Every returned channel yields exactly one terminal event and is then closed.
type TurnEngine interface {
	// Schema returns the question graph the engine routes over.
	Schema() *domain.Schema

	// Opening streams the greeting that introduces the first question.
	Opening(ctx context.Context) <-chan domain.StreamingTurn

	// NextTurn maps userText as the answer to question and streams the acknowledgment,
	// the acknowledgment with the next question, or the closing message.
	NextTurn(ctx context.Context, question domain.Question, userText string) <-chan domain.StreamingTurn

	// InfoSummary streams a friendly restatement of a question's info text.
	InfoSummary(ctx context.Context, info string) <-chan domain.StreamingTurn

	// Question streams the standalone phrasing of a question.
	Question(ctx context.Context, question domain.Question) <-chan domain.StreamingTurn

	// Prewarm forwards a best-effort warmup to the backend without blocking.
	Prewarm(ctx context.Context)
}
