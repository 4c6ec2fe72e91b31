package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// Sessions is the part of the session service the runner drives.
// *session.Manager implements it.
type Sessions interface {
	Open(ctx context.Context, sessionID string) (*conversation.Conversation, error)
	Start(ctx context.Context, sessionID string) (*conversation.Conversation, error)
	Send(ctx context.Context, sessionID, text string) (*conversation.Conversation, error)
}

// Runner handles the question loop of one consultation using the provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. If nil, a TextHandler on Stdin/Stdout is used.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Signals makes Ctrl+C cancel the streaming turn instead of the process.
	Signals bool
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run conducts the consultation identified by sessionID until it completes,
// halts, or the input ends. A stored consultation awaiting an answer is resumed.
// It returns the final snapshot.
func (r *Runner) Run(ctx context.Context, sessions Sessions, sessionID string) (*domain.Snapshot, error) {
	handler := r.resolveHandler()

	conv, err := sessions.Open(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	sessionID = conv.ID()

	updates, stop := conv.Subscribe()
	defer stop()

	switch conv.Status() {
	case domain.StatusAwaitingAnswer:
		_ = handler.SystemOutput(ctx, fmt.Sprintf("Resuming consultation %s", sessionID))
		r.replay(ctx, handler, conv)
	case domain.StatusComplete:
		r.replay(ctx, handler, conv)
	default:
		err := r.turn(ctx, handler, updates, func(ctx context.Context) error {
			_, err := sessions.Start(ctx, sessionID)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	for conv.Status() == domain.StatusAwaitingAnswer {
		text, err := handler.Input(ctx, conv.PredefinedResponses())
		if err != nil {
			if errors.Is(err, io.EOF) {
				_ = handler.SystemOutput(ctx, fmt.Sprintf("Consultation saved. Resume with --session %s", sessionID))
				return conv.Snapshot(), nil
			}
			return nil, err
		}

		err = r.turn(ctx, handler, updates, func(ctx context.Context) error {
			_, err := sessions.Send(ctx, sessionID, text)
			return err
		})
		switch {
		case err == nil:
		case isInputError(err):
			_ = handler.SystemOutput(ctx, fmt.Sprintf("Error: %v. Please try again.", err))
		default:
			return nil, err
		}
	}

	snap := conv.Snapshot()
	switch snap.Status {
	case domain.StatusComplete:
		if err := handler.Result(ctx, snap); err != nil {
			return snap, fmt.Errorf("output error: %w", err)
		}
	case domain.StatusHalted:
		_ = handler.SystemOutput(ctx, "The consultation cannot continue.")
	}
	r.Logger.Debug("Runner finished", "session_id", sessionID, "status", snap.Status)
	return snap, nil
}

// turn runs fn while rendering the updates it produces. Updates still buffered
// when fn returns are drained before turn does.
func (r *Runner) turn(ctx context.Context, handler IOHandler, updates <-chan conversation.Update, fn func(context.Context) error) error {
	turnCtx := ctx
	if r.Signals {
		signals := NewSignalManager(ctx)
		defer signals.Stop()
		turnCtx = signals.Context()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn(turnCtx)
	}()

	render := func(u conversation.Update) {
		if err := handler.Render(ctx, u); err != nil {
			r.Logger.Warn("Failed to render update", "kind", u.Kind, "err", err)
		}
	}

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return <-done
			}
			render(u)
		case err := <-done:
			for {
				select {
				case u, ok := <-updates:
					if !ok {
						return err
					}
					render(u)
				default:
					return err
				}
			}
		}
	}
}

// replay shows the stored history of a resumed consultation.
func (r *Runner) replay(ctx context.Context, handler IOHandler, conv *conversation.Conversation) {
	for _, m := range conv.Messages() {
		m.Streaming = false
		_ = handler.Render(ctx, conversation.Update{
			Kind:      conversation.UpdateMessageAppended,
			SessionID: conv.ID(),
			Message:   &m,
			Status:    conv.Status(),
		})
	}
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r.Handler
}

func isInputError(err error) bool {
	return errors.Is(err, domain.ErrEmptyInput) ||
		errors.Is(err, domain.ErrInputTooLarge) ||
		errors.Is(err, domain.ErrInvalidUTF8) ||
		errors.Is(err, domain.ErrTurnInFlight)
}
