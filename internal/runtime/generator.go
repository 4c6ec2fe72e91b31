package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
)

// Deterministic texts used when the backend cannot produce a turn.
const (
	GreetingFallback = "Let's get started."
	ClosingFallback  = "Thank you for your time."
	AckFallback      = "Thank you for sharing that."
	UnresolvedAck    = "Thank you for sharing that information."
)

// Generator produces the turns of a consultation. It reads the schema and never mutates it.
type Generator struct {
	schema       *domain.Schema
	backend      ports.Backend
	mapper       *Mapper
	instructions string
	logger       *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithInstructions replaces DefaultInstructions.
func WithInstructions(instructions string) Option {
	return func(g *Generator) {
		g.instructions = instructions
	}
}

// NewGenerator creates a generator over schema using backend.
// A nil schema is treated as empty.
func NewGenerator(schema *domain.Schema, backend ports.Backend, opts ...Option) *Generator {
	if schema == nil {
		schema = domain.EmptySchema()
	}
	g := &Generator{
		schema:       schema,
		backend:      backend,
		instructions: DefaultInstructions,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.mapper = NewMapper(backend, g.logger)
	g.mapper.instructions = g.instructions
	return g
}

// Reply is the single-shot result of a turn.
type Reply struct {
	Kind             domain.TurnKind
	Text             string
	MappedAnswer     *domain.MappedAnswer
	NextQuestionID   string
	NextQuestionInfo string
	Fallback         bool
}

// plan is a turn resolved to what must be sent and what to say if that fails.
// A nil prompt means the turn is static and the backend is not consulted.
type plan struct {
	kind     domain.TurnKind
	prompt   *ports.Prompt
	fallback string
	mapped   *domain.MappedAnswer
	nextID   string
	nextInfo string
}

func (p plan) event(complete bool) domain.StreamingTurn {
	return domain.StreamingTurn{
		Kind:             p.kind,
		Complete:         complete,
		MappedAnswer:     p.mapped,
		NextQuestionID:   p.nextID,
		NextQuestionInfo: p.nextInfo,
	}
}

func (g *Generator) plan(t domain.Turn, mapped *domain.MappedAnswer) plan {
	p := plan{kind: t.Kind(), mapped: mapped}

	switch t := t.(type) {
	case domain.OpeningTurn:
		p.nextID = t.FirstID
		if t.First == nil {
			p.fallback = GreetingFallback
			return p
		}
		p.prompt = g.openingPrompt(*t.First)
		p.fallback = t.First.Prompt
	case domain.AckTurn:
		p.nextID = t.NextID
		if t.Next == nil {
			p.fallback = UnresolvedAck
			return p
		}
		p.prompt = g.ackNextPrompt(t.Previous, t.UserText, *t.Next)
		p.fallback = AckFallback
	case domain.AckWithInfoTurn:
		p.nextID = t.Next.ID
		p.nextInfo = t.Next.Info
		p.prompt = g.ackPrompt(t.Previous, t.UserText)
		p.fallback = AckFallback
	case domain.InfoSummaryTurn:
		p.prompt = g.infoPrompt(t.Info)
		p.fallback = t.Info
	case domain.QuestionTurn:
		p.prompt = g.questionPrompt(t.Question)
		p.fallback = t.Question.Prompt
	case domain.ClosingTurn:
		// Empty when the question has no successor, which halts rather than completes.
		p.nextID = t.Previous.NextID()
		p.prompt = g.closingPrompt()
		p.fallback = ClosingFallback
	default:
		panic(fmt.Sprintf("runtime: unhandled turn kind %T", t))
	}
	return p
}

// Route maps userText as the answer to q and selects the kind of the reply turn.
func (g *Generator) Route(ctx context.Context, q domain.Question, userText string) (domain.Turn, *domain.MappedAnswer) {
	mapped := g.mapper.Map(ctx, userText, q)

	nextID := q.NextID()
	if nextID == "" || domain.IsSentinel(nextID) {
		return domain.ClosingTurn{Previous: q, UserText: userText}, mapped
	}

	next, ok := g.schema.Question(nextID)
	if !ok {
		g.logger.Warn("Successor question not found", "question_id", q.ID, "next", nextID)
		return domain.AckTurn{Previous: q, UserText: userText, NextID: nextID}, mapped
	}

	if next.HasInfo() {
		return domain.AckWithInfoTurn{Previous: q, UserText: userText, Next: next}, mapped
	}
	return domain.AckTurn{Previous: q, UserText: userText, NextID: nextID, Next: &next}, mapped
}

// Generate produces a turn with a single backend call.
func (g *Generator) Generate(ctx context.Context, t domain.Turn, mapped *domain.MappedAnswer) Reply {
	p := g.plan(t, mapped)
	r := Reply{
		Kind:             p.kind,
		MappedAnswer:     p.mapped,
		NextQuestionID:   p.nextID,
		NextQuestionInfo: p.nextInfo,
	}

	text, err := g.generateOnce(ctx, p)
	if err != nil {
		g.logger.Warn("Generation failed, using fallback", "turn", p.kind, "err", err)
	}
	if err != nil || text == "" {
		r.Text = p.fallback
		r.Fallback = true
		return r
	}
	r.Text = text
	return r
}

func (g *Generator) generateOnce(ctx context.Context, p plan) (text string, err error) {
	if p.prompt == nil {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	text, err = g.backend.Generate(ctx, *p.prompt)
	return strings.TrimSpace(text), err
}

// Schema returns the question graph.
func (g *Generator) Schema() *domain.Schema {
	return g.schema
}

// Opening streams the greeting for the first question.
func (g *Generator) Opening(ctx context.Context) <-chan domain.StreamingTurn {
	t := domain.OpeningTurn{FirstID: g.schema.Intro.FirstQuestionID}
	if first, ok := g.schema.FirstQuestion(); ok {
		t.First = &first
	}
	return g.Stream(ctx, t, nil)
}

// NextTurn maps the answer and streams the reply turn.
func (g *Generator) NextTurn(ctx context.Context, q domain.Question, userText string) <-chan domain.StreamingTurn {
	t, mapped := g.Route(ctx, q, userText)
	return g.Stream(ctx, t, mapped)
}

// InfoSummary streams a restatement of info.
func (g *Generator) InfoSummary(ctx context.Context, info string) <-chan domain.StreamingTurn {
	return g.Stream(ctx, domain.InfoSummaryTurn{Info: info}, nil)
}

// Question streams the standalone phrasing of q.
func (g *Generator) Question(ctx context.Context, q domain.Question) <-chan domain.StreamingTurn {
	return g.Stream(ctx, domain.QuestionTurn{Question: q}, nil)
}

// Prewarm asks the backend to warm up in the background.
func (g *Generator) Prewarm(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.logger.Debug("Prewarm panicked", "panic", r)
			}
		}()
		g.backend.Prewarm(ctx)
	}()
}
