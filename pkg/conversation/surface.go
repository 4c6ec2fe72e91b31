package conversation

import (
	"errors"
	"slices"
	"time"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// Messages returns a copy of the history.
func (c *Conversation) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.state.Messages)
}

// PredefinedResponses returns the quick replies for the current question.
func (c *Conversation) PredefinedResponses() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneReplies(c.state.PredefinedResponses)
}

// IsComplete reports whether the consultation reached its end.
func (c *Conversation) IsComplete() bool {
	return c.Status() == domain.StatusComplete
}

// Status returns the lifecycle status.
func (c *Conversation) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status
}

// CurrentQuestionID returns the question awaiting an answer, if any.
func (c *Conversation) CurrentQuestionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.CurrentQuestionID
}

// Data returns a copy of the structured result.
func (c *Conversation) Data() domain.StructuredConsult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Data.Clone()
}

// Busy reports whether a turn is in flight.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Snapshot returns the persistable state.
func (c *Conversation) Snapshot() *domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state.Clone()
	s.UpdatedAt = time.Now().UTC()
	return s
}

// Restore replaces the state with s, typically loaded from a store.
// Messages persisted while streaming are treated as final.
func (c *Conversation) Restore(s *domain.Snapshot) error {
	if s == nil {
		return errors.New("conversation: nil snapshot")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return domain.ErrTurnInFlight
	}

	st := s.Clone()
	if st.SessionID == "" {
		st.SessionID = c.id
	}
	if st.Status == "" {
		st.Status = domain.StatusNotStarted
	}
	if st.Messages == nil {
		st.Messages = []domain.ChatMessage{}
	}
	if st.PredefinedResponses == nil {
		st.PredefinedResponses = []string{}
	}
	for i := range st.Messages {
		st.Messages[i].Streaming = false
	}

	c.id = st.SessionID
	c.state = st
	c.publishLocked(UpdateStateChanged, nil)
	return nil
}
