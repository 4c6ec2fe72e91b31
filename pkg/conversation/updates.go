package conversation

import (
	"sync"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// UpdateKind names a change to the display surface.
type UpdateKind string

const (
	UpdateMessageAppended UpdateKind = "message_appended"
	UpdateMessageUpdated  UpdateKind = "message_updated"
	UpdateMessageRemoved  UpdateKind = "message_removed"
	UpdateStateChanged    UpdateKind = "state_changed"
)

// Update is one change observed by a subscriber.
// Message is set for message updates. The state fields are always current.
type Update struct {
	Kind                UpdateKind          `json:"kind"`
	SessionID           string              `json:"session_id"`
	Message             *domain.ChatMessage `json:"message,omitempty"`
	Status              domain.Status       `json:"status"`
	CurrentQuestionID   string              `json:"current_question_id,omitempty"`
	PredefinedResponses []string            `json:"predefined_responses,omitempty"`
}

const subscriberBuffer = 256

// subscriber delivers updates without ever blocking the conversation.
// Once its channel is full, updates wait in a backlog drained by a goroutine.
// Consecutive text updates of one message are merged there, so a lagging
// reader skips intermediate text but never a final message or a state change.
type subscriber struct {
	ch   chan Update
	done chan struct{}

	mu       sync.Mutex
	backlog  []Update
	draining bool
	stopped  bool
}

func newSubscriber() *subscriber {
	return &subscriber{
		ch:   make(chan Update, subscriberBuffer),
		done: make(chan struct{}),
	}
}

func (s *subscriber) push(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.draining {
		s.backlog = mergeUpdate(s.backlog, u)
		return
	}
	select {
	case s.ch <- u:
	default:
		s.backlog = append(s.backlog, u)
		s.draining = true
		go s.drain()
	}
}

// drain owns the channel's sends while the backlog is non-empty.
func (s *subscriber) drain() {
	for {
		s.mu.Lock()
		if len(s.backlog) == 0 {
			s.draining = false
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				close(s.ch)
			}
			return
		}
		u := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.mu.Unlock()

		select {
		case s.ch <- u:
		case <-s.done:
			s.mu.Lock()
			s.draining = false
			s.backlog = nil
			s.mu.Unlock()
			close(s.ch)
			return
		}
	}
}

func (s *subscriber) stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.done)
	draining := s.draining
	s.mu.Unlock()

	// A running drain closes the channel when it exits.
	if !draining {
		close(s.ch)
	}
}

// mergeUpdate appends u, replacing the tail when both are text updates of the same message.
func mergeUpdate(backlog []Update, u Update) []Update {
	if n := len(backlog); n > 0 && u.Kind == UpdateMessageUpdated && u.Message != nil {
		last := backlog[n-1]
		if last.Kind == UpdateMessageUpdated && last.Message != nil && last.Message.ID == u.Message.ID {
			backlog[n-1] = u
			return backlog
		}
	}
	return append(backlog, u)
}

// Subscribe returns a channel of updates and a function that stops delivery.
// A slow subscriber never blocks the conversation. It may miss intermediate
// text of a streaming message, but every other update arrives in order.
func (c *Conversation) Subscribe() (<-chan Update, func()) {
	sub := newSubscriber()

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub
	c.mu.Unlock()

	return sub.ch, func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		sub.stop()
	}
}

// publishLocked must be called with c.mu held.
func (c *Conversation) publishLocked(kind UpdateKind, msg *domain.ChatMessage) {
	if len(c.subs) == 0 {
		return
	}
	u := Update{
		Kind:                kind,
		SessionID:           c.id,
		Status:              c.state.Status,
		CurrentQuestionID:   c.state.CurrentQuestionID,
		PredefinedResponses: append([]string(nil), c.state.PredefinedResponses...),
	}
	if msg != nil {
		m := *msg
		u.Message = &m
	}
	for _, sub := range c.subs {
		sub.push(u)
	}
}
