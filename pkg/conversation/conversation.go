package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/google/uuid"
)

// Apology is appended to the history when a turn fails unexpectedly.
const Apology = "I apologize, I'm having a little trouble. Could you try again?"

var errNoTerminal = errors.New("turn stream closed without a terminal event")

// Conversation is the state machine of one consultation.
// It is safe for concurrent use; turns are serialized.
type Conversation struct {
	engine   ports.TurnEngine
	schema   *domain.Schema
	id       string
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	pacing   time.Duration
	sleep    func(context.Context, time.Duration) error
	maxInput int

	mu       sync.Mutex
	state    *domain.Snapshot
	inFlight bool
	subs     map[int]*subscriber
	nextSub  int
}

// New creates a conversation driven by engine.
func New(engine ports.TurnEngine, opts ...Option) *Conversation {
	c := &Conversation{
		engine: engine,
		schema: engine.Schema(),
		logger: logging.NewNop(),
		pacing: DefaultPacing,
		sleep:  sleepContext,
		subs:   make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	if c.schema == nil {
		c.schema = domain.EmptySchema()
	}
	c.state = c.freshState()
	return c
}

func (c *Conversation) freshState() *domain.Snapshot {
	s := domain.NewSnapshot(c.id)
	s.SchemaVersion = c.schema.Version
	return s
}

// ID returns the session id.
func (c *Conversation) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Start resets the conversation and streams the opening turn.
// It may be called again at any time no turn is in flight.
func (c *Conversation) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return domain.ErrTurnInFlight
	}
	c.inFlight = true

	c.state = c.freshState()
	c.state.CurrentQuestionID = c.schema.Intro.FirstQuestionID
	if first, ok := c.schema.FirstQuestion(); ok {
		c.state.PredefinedResponses = cloneReplies(first.PredefinedResponses)
	}
	cp := c.checkpointLocked()
	c.publishLocked(UpdateStateChanged, nil)
	c.mu.Unlock()
	defer c.end()

	c.engine.Prewarm(ctx)

	return c.guard(ctx, cp, func() error {
		terminal, err := c.stream(ctx, "", c.engine.Opening)
		if err != nil {
			return err
		}
		return c.advance(ctx, "", terminal.NextQuestionID)
	})
}

// Send answers the current question with text.
func (c *Conversation) Send(ctx context.Context, text string) error {
	clean, err := SanitizeInput(text, c.maxInput)
	if err != nil {
		return err
	}
	if strings.TrimSpace(clean) == "" {
		return domain.ErrEmptyInput
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return domain.ErrTurnInFlight
	}
	q, ok := c.activeQuestionLocked()
	if !ok {
		c.mu.Unlock()
		return domain.ErrNoActiveQuestion
	}
	c.inFlight = true

	cp := c.checkpointLocked()
	user := domain.NewMessage(domain.RoleUser, clean)
	c.state.Messages = append(c.state.Messages, user)
	c.publishLocked(UpdateMessageAppended, &user)
	c.mu.Unlock()
	defer c.end()

	return c.guard(ctx, cp, func() error {
		terminal, err := c.stream(ctx, q.ID, func(ctx context.Context) <-chan domain.StreamingTurn {
			return c.engine.NextTurn(ctx, q, clean)
		})
		if err != nil {
			return err
		}
		if terminal.MappedAnswer != nil {
			c.apply(ctx, *terminal.MappedAnswer)
		}
		return c.advance(ctx, q.ID, terminal.NextQuestionID)
	})
}

func (c *Conversation) activeQuestionLocked() (domain.Question, bool) {
	if c.state.Status != domain.StatusAwaitingAnswer {
		return domain.Question{}, false
	}
	return c.schema.Question(c.state.CurrentQuestionID)
}

func (c *Conversation) end() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

// advance moves to nextID. A question with info is introduced by an info summary
// and, after the pacing delay, asked on its own. After the opening (empty fromID)
// the first question has already been asked, so its info is not played.
func (c *Conversation) advance(ctx context.Context, fromID, nextID string) error {
	var next domain.Question
	var hasInfo bool

	c.mu.Lock()
	switch q, ok := c.schema.Question(nextID); {
	case domain.IsSentinel(nextID):
		c.state.Status = domain.StatusComplete
		c.state.CurrentQuestionID = ""
		c.state.PredefinedResponses = []string{}
	case !ok:
		c.logger.Warn("Next question does not resolve, halting",
			"session_id", c.id,
			"question_id", fromID,
			"next", nextID,
		)
		c.state.Status = domain.StatusHalted
		c.state.CurrentQuestionID = ""
		c.state.PredefinedResponses = []string{}
	default:
		c.state.Status = domain.StatusAwaitingAnswer
		c.state.CurrentQuestionID = q.ID
		c.state.PredefinedResponses = cloneReplies(q.PredefinedResponses)
		next, hasInfo = q, q.HasInfo()
	}
	status := c.state.Status
	data := c.state.Data.Clone()
	c.publishLocked(UpdateStateChanged, nil)
	c.mu.Unlock()

	if c.hooks.OnAdvance != nil {
		c.hooks.OnAdvance(ctx, &domain.AdvanceEvent{
			EventBase:      c.eventBase(domain.EventAdvance),
			FromQuestionID: fromID,
			ToQuestionID:   nextID,
			Status:         status,
		})
	}
	if status == domain.StatusComplete {
		c.logger.Info("Consultation complete", "session_id", c.id)
		if c.hooks.OnComplete != nil {
			c.hooks.OnComplete(ctx, &domain.CompleteEvent{
				EventBase:     c.eventBase(domain.EventComplete),
				SchemaVersion: c.schema.Version,
				Data:          data,
			})
		}
	}

	if !hasInfo || fromID == "" {
		return nil
	}

	_, err := c.stream(ctx, next.ID, func(ctx context.Context) <-chan domain.StreamingTurn {
		return c.engine.InfoSummary(ctx, next.Info)
	})
	if err != nil {
		return err
	}
	if err := c.sleep(ctx, c.pacing); err != nil {
		return err
	}
	_, err = c.stream(ctx, next.ID, func(ctx context.Context) <-chan domain.StreamingTurn {
		return c.engine.Question(ctx, next)
	})
	return err
}

// stream appends a placeholder and fills it from the events of one turn.
// The mapped answer is left to the caller, which applies it after the terminal event.
func (c *Conversation) stream(ctx context.Context, questionID string, open func(context.Context) <-chan domain.StreamingTurn) (domain.StreamingTurn, error) {
	placeholder := domain.NewPlaceholder()
	c.mu.Lock()
	c.state.Messages = append(c.state.Messages, placeholder)
	c.publishLocked(UpdateMessageAppended, &placeholder)
	c.mu.Unlock()

	began := time.Now()
	events := open(ctx)
	if events == nil {
		return domain.StreamingTurn{}, errNoTerminal
	}

	var terminal domain.StreamingTurn
	var started, done bool
	for ev := range events {
		if !started {
			started = true
			if c.hooks.OnTurnStart != nil {
				c.hooks.OnTurnStart(ctx, &domain.TurnEvent{
					EventBase:  c.eventBase(domain.EventTurnStart),
					Kind:       ev.Kind,
					QuestionID: questionID,
				})
			}
		}
		if done {
			continue
		}

		c.mu.Lock()
		if msg := c.messageLocked(placeholder.ID); msg != nil {
			if ev.PartialText != "" {
				msg.Text = ev.PartialText
			}
			if ev.Complete {
				msg.Streaming = false
			}
			c.publishLocked(UpdateMessageUpdated, msg)
		}
		c.mu.Unlock()

		if ev.Complete {
			terminal, done = ev, true
		}
	}
	if !done {
		return domain.StreamingTurn{}, errNoTerminal
	}

	if c.hooks.OnTurnComplete != nil {
		c.hooks.OnTurnComplete(ctx, &domain.TurnEvent{
			EventBase:  c.eventBase(domain.EventTurnComplete),
			Kind:       terminal.Kind,
			QuestionID: questionID,
			Fallback:   terminal.Fallback,
			Duration:   time.Since(began),
		})
	}
	return terminal, nil
}

func (c *Conversation) apply(ctx context.Context, answer domain.MappedAnswer) {
	c.mu.Lock()
	applied := c.state.Data.Apply(answer)
	c.mu.Unlock()

	if !applied {
		c.logger.Debug("Answer does not name a result field",
			"session_id", c.id,
			"question_id", answer.KeyPath,
		)
	}
	if c.hooks.OnAnswerMapped != nil {
		c.hooks.OnAnswerMapped(ctx, &domain.AnswerEvent{
			EventBase: c.eventBase(domain.EventAnswerMapped),
			Answer:    answer,
			Applied:   applied,
		})
	}
}

// guard runs fn and turns any failure, panics included, into the apology.
func (c *Conversation) guard(ctx context.Context, cp checkpoint, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			c.fail(ctx, cp, err)
			err = nil
		}
	}()
	return fn()
}

func (c *Conversation) fail(ctx context.Context, cp checkpoint, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Error("Turn failed", "session_id", c.id, "err", cause, "ctx_err", ctx.Err())

	for i := len(c.state.Messages) - 1; i >= 0; i-- {
		msg := &c.state.Messages[i]
		if !msg.Streaming {
			continue
		}
		if msg.Text == "" {
			removed := *msg
			c.state.Messages = slices.Delete(c.state.Messages, i, i+1)
			c.publishLocked(UpdateMessageRemoved, &removed)
			continue
		}
		msg.Streaming = false
		c.publishLocked(UpdateMessageUpdated, msg)
	}

	cp.restoreLocked(c.state)
	apology := domain.NewMessage(domain.RoleModel, Apology)
	c.state.Messages = append(c.state.Messages, apology)
	c.publishLocked(UpdateMessageAppended, &apology)
	c.publishLocked(UpdateStateChanged, nil)
}

// checkpoint is the part of the state a failed turn must not change.
type checkpoint struct {
	status  domain.Status
	current string
	replies []string
	data    domain.StructuredConsult
}

func (c *Conversation) checkpointLocked() checkpoint {
	return checkpoint{
		status:  c.state.Status,
		current: c.state.CurrentQuestionID,
		replies: cloneReplies(c.state.PredefinedResponses),
		data:    c.state.Data.Clone(),
	}
}

func (cp checkpoint) restoreLocked(s *domain.Snapshot) {
	s.Status = cp.status
	s.CurrentQuestionID = cp.current
	s.PredefinedResponses = cloneReplies(cp.replies)
	s.Data = cp.data.Clone()
}

func (c *Conversation) messageLocked(id string) *domain.ChatMessage {
	for i := len(c.state.Messages) - 1; i >= 0; i-- {
		if c.state.Messages[i].ID == id {
			return &c.state.Messages[i]
		}
	}
	return nil
}

func (c *Conversation) eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, SessionID: c.id}
}

func cloneReplies(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
