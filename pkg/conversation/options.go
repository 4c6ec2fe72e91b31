package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// DefaultPacing separates an info summary from the question that follows it.
const DefaultPacing = 400 * time.Millisecond

// Option configures a Conversation.
type Option func(*Conversation)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conversation) {
		c.logger = logger
	}
}

// WithHooks registers lifecycle callbacks. Repeated calls are merged.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Conversation) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// WithPacing overrides DefaultPacing.
func WithPacing(d time.Duration) Option {
	return func(c *Conversation) {
		c.pacing = d
	}
}

// WithSleep replaces the function used to wait between paced turns.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Conversation) {
		c.sleep = sleep
	}
}

// WithSessionID sets the session id. A random id is used otherwise.
func WithSessionID(id string) Option {
	return func(c *Conversation) {
		c.id = id
	}
}

// WithMaxInputSize overrides the input size limit for this conversation.
func WithMaxInputSize(n int) Option {
	return func(c *Conversation) {
		c.maxInput = n
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
