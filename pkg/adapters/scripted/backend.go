// Package scripted provides a deterministic offline backend.
// It reads the topic lines of a prompt and answers with fixed phrasing, which keeps
// demos and tests independent of a running model.
package scripted

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/Chuabacca/Medley-AI/pkg/ports"
)

const (
	opening = "Welcome to the clinic. Let's talk about what brings you in today."
	ack     = "Thank you for sharing that."
	closing = "Thank you for completing the consultation. Your summary is ready on the next screen."
)

// Backend answers prompts without a model.
type Backend struct {
	delay time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithDelay pauses between streamed words.
func WithDelay(d time.Duration) Option {
	return func(b *Backend) {
		b.delay = d
	}
}

// New creates a scripted backend.
func New(opts ...Option) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Generate returns the scripted reply for p.
func (b *Backend) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return reply(p), nil
}

// GenerateStream delivers the scripted reply one word at a time.
func (b *Backend) GenerateStream(ctx context.Context, p ports.Prompt) (<-chan ports.Snapshot, error) {
	text := reply(p)
	ch := make(chan ports.Snapshot)

	go func() {
		defer close(ch)
		var sb strings.Builder
		for i, word := range strings.SplitAfter(text, " ") {
			if i > 0 && b.delay > 0 {
				select {
				case <-time.After(b.delay):
				case <-ctx.Done():
					return
				}
			}
			sb.WriteString(word)
			select {
			case ch <- ports.Snapshot{Text: sb.String()}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Categorize picks the option whose label shares the most words with the user's response.
// Ties go to the earlier option, and no overlap yields the first option.
func (b *Backend) Categorize(ctx context.Context, p ports.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	response := words(value(p.Lines, "User's response: "))
	var best string
	bestScore := 0
	for _, line := range p.Lines {
		for _, opt := range strings.Split(line, "\n") {
			id, label, ok := strings.Cut(strings.TrimPrefix(opt, "- "), ": ")
			if !ok || !strings.HasPrefix(opt, "- ") {
				continue
			}
			if best == "" {
				best = id
			}
			score := 0
			for w := range words(label) {
				if response[w] {
					score++
				}
			}
			if score > bestScore {
				best, bestScore = id, score
			}
		}
	}
	return best, nil
}

// Prewarm is a no-op.
func (b *Backend) Prewarm(ctx context.Context) {}

func reply(p ports.Prompt) string {
	switch {
	case has(p.Lines, "Generate a warm opening message"):
		if topic := value(p.Lines, "The first question will be about: "); topic != "" {
			return "Welcome to the clinic. " + topic
		}
		return opening
	case has(p.Lines, "The patient has completed the consultation"):
		return closing
	case has(p.Lines, "Summarize the following information"):
		for i, line := range p.Lines {
			if strings.HasPrefix(line, "Summarize the following information") && i+1 < len(p.Lines) {
				return "Before we continue, a quick note. " + p.Lines[i+1]
			}
		}
	}

	topic := value(p.Lines, "Next question topic: ")
	switch {
	case has(p.Lines, "Patient's answer: ") && topic != "":
		return ack + " " + topic
	case has(p.Lines, "Patient's answer: "):
		return ack
	case topic != "":
		return topic
	}
	return ack
}

func has(lines []string, prefix string) bool {
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func value(lines []string, prefix string) string {
	for _, line := range lines {
		if v, ok := strings.CutPrefix(line, prefix); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func words(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) > 2 {
			out[w] = true
		}
	}
	return out
}
