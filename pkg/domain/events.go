package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnStart    EventType = "turn_start"
	EventTurnComplete EventType = "turn_complete"
	EventAnswerMapped EventType = "answer_mapped"
	EventAdvance      EventType = "advance"
	EventComplete     EventType = "complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// TurnEvent describes the start or the end of a generated turn.
type TurnEvent struct {
	EventBase
	Kind       TurnKind      `json:"kind"`
	QuestionID string        `json:"question_id,omitempty"`
	Fallback   bool          `json:"fallback,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// AnswerEvent reports a mapped answer. Applied is false when no result field matched.
type AnswerEvent struct {
	EventBase
	Answer  MappedAnswer `json:"answer"`
	Applied bool         `json:"applied"`
}

// AdvanceEvent reports a move through the question graph.
type AdvanceEvent struct {
	EventBase
	FromQuestionID string `json:"from_question_id,omitempty"`
	ToQuestionID   string `json:"to_question_id,omitempty"`
	Status         Status `json:"status"`
}

// CompleteEvent carries the final result of a consultation.
type CompleteEvent struct {
	EventBase
	SchemaVersion string            `json:"schema_version,omitempty"`
	Data          StructuredConsult `json:"data"`
}

// LifecycleHooks defines callbacks for conversation observability.
type LifecycleHooks struct {
	OnTurnStart    func(context.Context, *TurnEvent)
	OnTurnComplete func(context.Context, *TurnEvent)
	OnAnswerMapped func(context.Context, *AnswerEvent)
	OnAdvance      func(context.Context, *AdvanceEvent)
	OnComplete     func(context.Context, *CompleteEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTurnStart:    chain(h.OnTurnStart, other.OnTurnStart),
		OnTurnComplete: chain(h.OnTurnComplete, other.OnTurnComplete),
		OnAnswerMapped: chain(h.OnAnswerMapped, other.OnAnswerMapped),
		OnAdvance:      chain(h.OnAdvance, other.OnAdvance),
		OnComplete:     chain(h.OnComplete, other.OnComplete),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
