package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

var errNilStream = errors.New("backend returned no stream")

// Stream generates t incrementally.
//
// The returned channel yields zero or more partial events whose PartialText only ever
// grows by extension, then exactly one terminal event carrying the routing metadata,
// and is then closed. When generation fails or yields nothing, the terminal event
// carries the turn's fallback text instead of an empty PartialText.
//
// Each call starts a fresh producer. A consumer that stops reading early must cancel
// ctx; the producer then exits without delivering the terminal event.
func (g *Generator) Stream(ctx context.Context, t domain.Turn, mapped *domain.MappedAnswer) <-chan domain.StreamingTurn {
	p := g.plan(t, mapped)
	out := make(chan domain.StreamingTurn)

	go func() {
		defer close(out)

		text, err := g.pump(ctx, p, out)
		if ctx.Err() != nil {
			g.logger.Debug("Stream abandoned", "turn", p.kind, "err", ctx.Err())
			return
		}

		terminal := p.event(true)
		if err != nil || text == "" {
			if err != nil {
				g.logger.Warn("Streaming failed, using fallback", "turn", p.kind, "err", err)
			}
			terminal.PartialText = p.fallback
			terminal.Fallback = true
		}

		select {
		case out <- terminal:
		case <-ctx.Done():
		}
	}()

	return out
}

// pump forwards backend snapshots as partial events and returns the last text sent.
func (g *Generator) pump(ctx context.Context, p plan, out chan<- domain.StreamingTurn) (last string, err error) {
	if p.prompt == nil {
		return "", nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()

	emit := func(text string) bool {
		ev := p.event(false)
		ev.PartialText = text
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	snapshots, err := g.backend.GenerateStream(ctx, *p.prompt)
	if errors.Is(err, domain.ErrStreamingUnsupported) {
		text, err := g.generateOnce(ctx, p)
		if err != nil || text == "" {
			return "", err
		}
		if !emit(text) {
			return "", ctx.Err()
		}
		return text, nil
	}
	if err != nil {
		return "", err
	}
	if snapshots == nil {
		return "", errNilStream
	}

	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case snap, ok := <-snapshots:
			if !ok {
				return last, nil
			}
			if snap.Err != nil {
				return last, snap.Err
			}
			if snap.Text == "" || snap.Text == last {
				continue
			}
			if !strings.HasPrefix(snap.Text, last) {
				g.logger.Debug("Dropping snapshot that rewrites emitted text", "turn", p.kind)
				continue
			}
			last = snap.Text
			if !emit(last) {
				return last, ctx.Err()
			}
		}
	}
}
