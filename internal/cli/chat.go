package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Chuabacca/Medley-AI/internal/presentation/tui"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/runner"
)

// ChatOptions configures a terminal consultation.
type ChatOptions struct {
	SessionID string
	JSON      bool // NDJSON events on stdout instead of text
	Fresh     bool // discard a stored session with the same id first
	NoBanner  bool
	In        io.Reader
	Out       io.Writer
}

// Chat runs one consultation against the app's session manager and returns its
// final snapshot. Ctrl+C cancels the streaming turn in interactive text mode.
func (a *App) Chat(ctx context.Context, opts ChatOptions) (*domain.Snapshot, error) {
	in, out := opts.In, opts.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	if opts.Fresh && opts.SessionID != "" {
		if err := a.Manager.Delete(ctx, opts.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("reset session: %w", err)
		}
		a.Logger.Info("Session reset", "session_id", opts.SessionID)
	}

	interactive := runner.IsTerminal(in) && runner.IsTerminal(out)

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(in, out)
	} else {
		if interactive && !opts.NoBanner {
			tui.PrintBanner(out)
		}
		hopts := []runner.TextHandlerOption{
			runner.WithTextHandlerSummary(tui.Summary(a.Schema())),
			runner.WithInteractive(interactive),
		}
		if interactive {
			hopts = append(hopts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
		}
		handler = runner.NewTextHandler(in, out, hopts...)
	}

	// The first reply is slow while the model loads.
	go a.Engine.Prewarm(ctx)

	r := runner.NewRunner(
		runner.WithLogger(a.Logger),
		runner.WithInputHandler(handler),
		runner.WithSignalHandling(interactive && !opts.JSON),
	)
	return r.Run(ctx, a.Manager, opts.SessionID)
}
