package medley

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/internal/runtime"
	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/Chuabacca/Medley-AI/pkg/schema"
)

// ErrNoBackend is returned by New when no backend was provided.
var ErrNoBackend = errors.New("medley: a backend is required")

// Reply is the single-shot result of a turn.
type Reply = runtime.Reply

// Engine is the high-level entry point of the library.
// It implements ports.TurnEngine and creates conversations bound to it.
type Engine struct {
	generator    *runtime.Generator
	backend      ports.Backend
	schema       *domain.Schema
	loader       ports.SchemaLoader
	instructions string
	hooks        domain.LifecycleHooks
	convOpts     []conversation.Option
	logger       *slog.Logger
	strict       bool
	Name         string
}

var _ ports.TurnEngine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithBackend sets the generative backend. It is required.
func WithBackend(b ports.Backend) Option {
	return func(e *Engine) {
		e.backend = b
	}
}

// WithSchema uses s instead of loading a schema.
func WithSchema(s *domain.Schema) Option {
	return func(e *Engine) {
		e.schema = s
	}
}

// WithLoader injects a custom SchemaLoader.
func WithLoader(l ports.SchemaLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine and its conversations.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithInstructions replaces the system instructions sent with every prompt.
func WithInstructions(instructions string) Option {
	return func(e *Engine) {
		e.instructions = instructions
	}
}

// WithLifecycleHooks registers observability hooks on every conversation.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithConversationOptions adds options applied to every conversation.
func WithConversationOptions(opts ...conversation.Option) Option {
	return func(e *Engine) {
		e.convOpts = append(e.convOpts, opts...)
	}
}

// WithStrict makes New fail on load or validation errors instead of degrading.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// New initializes an Engine.
// The schema comes from WithSchema, then WithLoader, then the file at schemaPath.
func New(schemaPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.backend == nil {
		return nil, ErrNoBackend
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if schemaPath != "" {
		eng.Name = filepath.Base(schemaPath)
		eng.logger = eng.logger.With("schema", eng.Name)
	}

	if err := eng.loadSchema(context.Background(), schemaPath); err != nil {
		return nil, err
	}

	genOpts := []runtime.Option{runtime.WithLogger(eng.logger)}
	if eng.instructions != "" {
		genOpts = append(genOpts, runtime.WithInstructions(eng.instructions))
	}
	eng.generator = runtime.NewGenerator(eng.schema, eng.backend, genOpts...)
	return eng, nil
}

func (e *Engine) loadSchema(ctx context.Context, path string) error {
	var err error
	switch {
	case e.schema != nil:
	case e.loader != nil:
		e.schema, err = e.loader.Load(ctx)
	case path != "" && e.strict:
		e.schema, err = schema.Load(path)
	case path != "":
		e.schema = schema.LoadOrEmpty(path, e.logger)
	}

	if err != nil {
		if e.strict {
			return fmt.Errorf("failed to load schema: %w", err)
		}
		e.logger.Warn("Schema could not be loaded, using an empty schema", "err", err)
		e.schema = nil
	}
	if e.schema == nil {
		e.schema = domain.EmptySchema()
	}

	if verr := schema.Validate(e.schema); verr != nil {
		if e.strict {
			return verr
		}
		e.logger.Warn("Schema has problems", "err", verr)
	}
	return nil
}

// NewConversation creates a conversation driven by this engine.
// Options given here apply after the engine-wide ones.
func (e *Engine) NewConversation(opts ...conversation.Option) *conversation.Conversation {
	all := []conversation.Option{
		conversation.WithLogger(e.logger),
		conversation.WithHooks(e.hooks),
	}
	all = append(all, e.convOpts...)
	all = append(all, opts...)
	return conversation.New(e, all...)
}

// Validate checks the loaded schema.
func (e *Engine) Validate() error {
	return schema.Validate(e.schema)
}

// Generate produces one turn without streaming.
func (e *Engine) Generate(ctx context.Context, t domain.Turn, mapped *domain.MappedAnswer) Reply {
	return e.generator.Generate(ctx, t, mapped)
}

// Schema returns the question graph.
func (e *Engine) Schema() *domain.Schema {
	return e.schema
}

// Backend returns the generative backend.
func (e *Engine) Backend() ports.Backend {
	return e.backend
}

func (e *Engine) Opening(ctx context.Context) <-chan domain.StreamingTurn {
	return e.generator.Opening(ctx)
}

func (e *Engine) NextTurn(ctx context.Context, q domain.Question, userText string) <-chan domain.StreamingTurn {
	return e.generator.NextTurn(ctx, q, userText)
}

func (e *Engine) InfoSummary(ctx context.Context, info string) <-chan domain.StreamingTurn {
	return e.generator.InfoSummary(ctx, info)
}

func (e *Engine) Question(ctx context.Context, q domain.Question) <-chan domain.StreamingTurn {
	return e.generator.Question(ctx, q)
}

func (e *Engine) Prewarm(ctx context.Context) {
	e.generator.Prewarm(ctx)
}
