package domain

import (
	"slices"
	"time"
)

// Status is the position of a conversation in its lifecycle.
type Status string

const (
	StatusNotStarted     Status = "not_started"
	StatusAwaitingAnswer Status = "awaiting_answer" // A question has been shown and waits for a reply
	StatusComplete       Status = "complete"        // Sentinel reached; the result is final
	StatusHalted         Status = "halted"          // Successor did not resolve; no further advance
)

// Terminal reports whether no further question transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusHalted
}

// Snapshot is the persistable state of one conversation.
type Snapshot struct {
	SessionID           string            `json:"session_id"`
	SchemaVersion       string            `json:"schema_version,omitempty"`
	Status              Status            `json:"status"`
	CurrentQuestionID   string            `json:"current_question_id,omitempty"`
	Messages            []ChatMessage     `json:"messages"`
	PredefinedResponses []string          `json:"predefined_responses"`
	Data                StructuredConsult `json:"data"`
	UpdatedAt           time.Time         `json:"updated_at"`

	// Sealed holds the whole snapshot encrypted when the store encrypts at rest.
	// The other content fields are then empty.
	Sealed string `json:"sealed,omitempty"`
}

// NewSnapshot creates the snapshot of a conversation that has not started.
func NewSnapshot(sessionID string) *Snapshot {
	return &Snapshot{
		SessionID:           sessionID,
		Status:              StatusNotStarted,
		Messages:            []ChatMessage{},
		PredefinedResponses: []string{},
		Data:                NewStructuredConsult(),
	}
}

// Clone returns a deep copy, so stores can isolate callers from their internal state.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = slices.Clone(s.Messages)
	out.PredefinedResponses = slices.Clone(s.PredefinedResponses)
	out.Data = s.Data.Clone()
	return &out
}
