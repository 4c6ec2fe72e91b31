// Package ollama implements ports.Backend against a local Ollama server
// through the official api client.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 60 * time.Second
)

// Config holds the server settings.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration // bounds single-shot calls; streams follow the caller's context
	KeepAlive   string        // how long the model stays loaded after Prewarm, e.g. "10m"
}

// Backend talks to Ollama over HTTP.
type Backend struct {
	cfg       Config
	keepAlive *api.Duration
	http      *http.Client
	client    *api.Client
	logger    *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) {
		b.http = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// New creates a Backend. Zero config fields take the package defaults.
func New(cfg Config, opts ...Option) *Backend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	b := &Backend{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		b.logger.Warn("Invalid Ollama URL, using default", "url", cfg.BaseURL, "err", err)
		base, _ = url.Parse(DefaultBaseURL)
	}
	b.client = api.NewClient(base, b.http)

	if cfg.KeepAlive != "" {
		d, err := time.ParseDuration(cfg.KeepAlive)
		if err != nil {
			b.logger.Warn("Ignoring invalid keep_alive", "value", cfg.KeepAlive, "err", err)
		} else {
			b.keepAlive = &api.Duration{Duration: d}
		}
	}
	return b
}

func (b *Backend) request(p ports.Prompt, stream bool, temperature float64) *api.ChatRequest {
	var msgs []api.Message
	if p.Instructions != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: p.Instructions})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: p.String()})
	return &api.ChatRequest{
		Model:     b.cfg.Model,
		Messages:  msgs,
		Stream:    &stream,
		Options:   map[string]any{"temperature": temperature},
		KeepAlive: b.keepAlive,
	}
}

// unavailable marks failures that happen before the model produced anything.
func unavailable(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
}

func (b *Backend) chat(ctx context.Context, req *api.ChatRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	var text strings.Builder
	err := b.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", unavailable(ctx, err)
	}
	return text.String(), nil
}

// Generate returns a single complete response.
func (b *Backend) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	return b.chat(ctx, b.request(p, false, b.cfg.Temperature))
}

// Categorize runs at temperature zero.
func (b *Backend) Categorize(ctx context.Context, p ports.Prompt) (string, error) {
	return b.chat(ctx, b.request(p, false, 0))
}

// GenerateStream returns once the first chunk arrives or the request fails,
// then emits the accumulated text of every later chunk.
func (b *Backend) GenerateStream(ctx context.Context, p ports.Prompt) (<-chan ports.Snapshot, error) {
	req := b.request(p, true, b.cfg.Temperature)
	ch := make(chan ports.Snapshot)
	opened := make(chan error, 1)

	go func() {
		defer close(ch)

		started := false
		open := func(err error) {
			if !started {
				started = true
				opened <- err
			}
		}

		var text strings.Builder
		err := b.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			open(nil)
			if resp.Message.Content == "" {
				return nil
			}
			text.WriteString(resp.Message.Content)
			select {
			case ch <- ports.Snapshot{Text: text.String()}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if !started {
			open(err)
			return
		}
		if err != nil && ctx.Err() == nil {
			b.logger.Warn("Ollama stream failed", "err", err)
			select {
			case ch <- ports.Snapshot{Text: text.String(), Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	select {
	case err := <-opened:
		if err != nil {
			return nil, unavailable(ctx, err)
		}
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Prewarm asks Ollama to load the model without generating anything.
func (b *Backend) Prewarm(ctx context.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.Timeout)
		defer cancel()

		req := &api.GenerateRequest{Model: b.cfg.Model, KeepAlive: b.keepAlive}
		err := b.client.Generate(ctx, req, func(api.GenerateResponse) error { return nil })
		if err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Debug("Prewarm failed", "model", b.cfg.Model, "err", err)
		}
	}()
}
