// Package openai implements ports.Backend for OpenAI compatible chat completion
// APIs (OpenAI, Groq and similar) on top of go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// Config holds the API settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Backend calls /chat/completions.
type Backend struct {
	cfg    Config
	http   *http.Client
	client *goopenai.Client
	logger *slog.Logger
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

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = b.http
	b.client = goopenai.NewClientWithConfig(clientCfg)
	return b
}

// wireTemperature maps zero to the smallest positive value, because the
// client omits a zero temperature and the server would apply its default.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func (b *Backend) request(p ports.Prompt, temperature float64) goopenai.ChatCompletionRequest {
	var msgs []goopenai.ChatCompletionMessage
	if p.Instructions != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: p.Instructions})
	}
	msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: p.String()})
	return goopenai.ChatCompletionRequest{
		Model:       b.cfg.Model,
		Messages:    msgs,
		Temperature: wireTemperature(temperature),
	}
}

func unavailable(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
}

func (b *Backend) complete(ctx context.Context, req goopenai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", unavailable(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Generate returns a single complete response.
func (b *Backend) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	return b.complete(ctx, b.request(p, b.cfg.Temperature))
}

// Categorize runs at temperature zero.
func (b *Backend) Categorize(ctx context.Context, p ports.Prompt) (string, error) {
	return b.complete(ctx, b.request(p, 0))
}

// GenerateStream emits the accumulated text of every delta until the stream ends.
func (b *Backend) GenerateStream(ctx context.Context, p ports.Prompt) (<-chan ports.Snapshot, error) {
	stream, err := b.client.CreateChatCompletionStream(ctx, b.request(p, b.cfg.Temperature))
	if err != nil {
		return nil, unavailable(ctx, err)
	}

	ch := make(chan ports.Snapshot)
	go func() {
		defer close(ch)
		defer stream.Close()

		send := func(s ports.Snapshot) bool {
			select {
			case ch <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var text strings.Builder
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					b.logger.Warn("Completion stream failed", "err", err)
					send(ports.Snapshot{Text: text.String(), Err: err})
				}
				return
			}
			delta := ""
			for _, c := range chunk.Choices {
				delta += c.Delta.Content
			}
			if delta == "" {
				continue
			}
			text.WriteString(delta)
			if !send(ports.Snapshot{Text: text.String()}) {
				return
			}
		}
	}()
	return ch, nil
}

// Prewarm is a no-op: hosted models are always loaded.
func (b *Backend) Prewarm(ctx context.Context) {}
