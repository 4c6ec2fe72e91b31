package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"golang.org/x/term"
)

// SummaryFunc formats a finished consultation as markdown.
type SummaryFunc func(snap *domain.Snapshot) string

// TextHandler implements the standard terminal interface.
// Model replies are printed as they stream; quick replies are listed by number.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	Summary  SummaryFunc

	// Interactive is true when the input is a terminal. Prompts are only
	// printed for interactive sessions.
	Interactive bool

	inputChan chan inputResult
	startOnce sync.Once

	// printed tracks how much of each streaming message is already on screen.
	printed map[string]string
	open    string
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerSummary configures how the finished consultation is shown.
func WithTextHandlerSummary(summary SummaryFunc) TextHandlerOption {
	return func(h *TextHandler) {
		h.Summary = summary
	}
}

// WithInteractive overrides terminal detection.
func WithInteractive(interactive bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Interactive = interactive
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader:      bufio.NewReader(r),
		Writer:      w,
		Interactive: IsTerminal(r),
		printed:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour cancellation.
func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			return
		}
	}
}

// Render prints model messages, streaming deltas in place.
// User messages are not echoed.
func (h *TextHandler) Render(ctx context.Context, u conversation.Update) error {
	switch u.Kind {
	case conversation.UpdateMessageAppended, conversation.UpdateMessageUpdated:
		if u.Message == nil || u.Message.Role == domain.RoleUser {
			return nil
		}
		h.write(*u.Message)
	case conversation.UpdateMessageRemoved:
		if u.Message != nil && h.open == u.Message.ID {
			fmt.Fprintln(h.Writer)
			h.open = ""
		}
		if u.Message != nil {
			delete(h.printed, u.Message.ID)
		}
	}
	return nil
}

func (h *TextHandler) write(m domain.ChatMessage) {
	if h.open != "" && h.open != m.ID {
		fmt.Fprintln(h.Writer)
		h.open = ""
	}

	shown, seen := h.printed[m.ID]
	switch {
	case !seen:
		fmt.Fprint(h.Writer, m.Text)
	case strings.HasPrefix(m.Text, shown):
		fmt.Fprint(h.Writer, m.Text[len(shown):])
	default:
		// The text was replaced, e.g. by a fallback reply.
		fmt.Fprint(h.Writer, "\n"+m.Text)
	}
	h.printed[m.ID] = m.Text

	if m.Streaming {
		h.open = m.ID
		return
	}
	fmt.Fprintln(h.Writer)
	h.open = ""
	delete(h.printed, m.ID)
}

// Input lists the quick replies and reads one line.
// A number selects the matching quick reply.
func (h *TextHandler) Input(ctx context.Context, replies []string) (string, error) {
	h.initPump()

	for i, r := range replies {
		fmt.Fprintf(h.Writer, "  %d) %s\n", i+1, r)
	}
	if h.Interactive {
		fmt.Fprint(h.Writer, "> ")
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return selectReply(strings.TrimSpace(res.text), replies), nil
	}
}

func selectReply(text string, replies []string) string {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(replies) {
		return text
	}
	return replies[n-1]
}

// SystemOutput prints a bracketed notice.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return nil
}

// Result prints the summary, rendered when a renderer is set.
func (h *TextHandler) Result(ctx context.Context, snap *domain.Snapshot) error {
	if h.Summary == nil {
		return nil
	}
	output := h.Summary(snap)
	if h.Renderer != nil {
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	return nil
}
