package testutils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Chuabacca/Medley-AI/pkg/ports"
)

// FakeBackend is a scriptable ports.Backend for tests.
// Streams split the reply into words and deliver growing snapshots, Delay apart.
type FakeBackend struct {
	// Reply computes the text for a prompt. Nil echoes "Reply: <first line>".
	Reply func(p ports.Prompt) string

	// Category is returned by Categorize.
	Category string

	GenerateErr   error // returned by Generate
	StreamErr     error // returned by GenerateStream before any snapshot
	MidStreamErr  error // sent after the first snapshot
	CategorizeErr error // returned by Categorize
	Delay         time.Duration

	mu         sync.Mutex
	prompts    []ports.Prompt
	categories []ports.Prompt
	prewarms   int
}

// NewFakeBackend returns a backend that echoes prompts.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{}
}

func (f *FakeBackend) reply(p ports.Prompt) string {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()

	if f.Reply != nil {
		return f.Reply(p)
	}
	first := ""
	if len(p.Lines) > 0 {
		first = p.Lines[0]
	}
	return "Reply: " + first
}

func (f *FakeBackend) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	text := f.reply(p)
	if f.GenerateErr != nil {
		return "", f.GenerateErr
	}
	return text, nil
}

func (f *FakeBackend) GenerateStream(ctx context.Context, p ports.Prompt) (<-chan ports.Snapshot, error) {
	text := f.reply(p)
	if f.StreamErr != nil {
		return nil, f.StreamErr
	}

	ch := make(chan ports.Snapshot)
	go func() {
		defer close(ch)
		var b strings.Builder
		for i, word := range strings.SplitAfter(text, " ") {
			if i > 0 && f.Delay > 0 {
				select {
				case <-time.After(f.Delay):
				case <-ctx.Done():
					return
				}
			}
			b.WriteString(word)
			select {
			case ch <- ports.Snapshot{Text: b.String()}:
			case <-ctx.Done():
				return
			}
			if i == 0 && f.MidStreamErr != nil {
				select {
				case ch <- ports.Snapshot{Err: f.MidStreamErr}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return ch, nil
}

func (f *FakeBackend) Categorize(ctx context.Context, p ports.Prompt) (string, error) {
	f.mu.Lock()
	f.categories = append(f.categories, p)
	f.mu.Unlock()

	if f.CategorizeErr != nil {
		return "", f.CategorizeErr
	}
	return f.Category, nil
}

func (f *FakeBackend) Prewarm(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prewarms++
}

// Prompts returns the generation prompts received so far.
func (f *FakeBackend) Prompts() []ports.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.Prompt(nil), f.prompts...)
}

// CategorizePrompts returns the categorization prompts received so far.
func (f *FakeBackend) CategorizePrompts() []ports.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.Prompt(nil), f.categories...)
}

// Prewarms returns how many times Prewarm ran.
func (f *FakeBackend) Prewarms() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prewarms
}
