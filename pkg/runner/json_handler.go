package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// Event types written by JSONHandler, one JSON object per line.
const (
	EventUpdate       = "update"
	EventInputRequest = "input_request"
	EventSystem       = "system"
	EventResult       = "result"
)

// Event is one line of JSONHandler output.
type Event struct {
	Type                string                    `json:"type"`
	Update              *conversation.Update      `json:"update,omitempty"`
	PredefinedResponses []string                  `json:"predefined_responses,omitempty"`
	Message             string                    `json:"message,omitempty"`
	SessionID           string                    `json:"session_id,omitempty"`
	Status              domain.Status             `json:"status,omitempty"`
	Data                *domain.StructuredConsult `json:"data,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// Each input line is a JSON string, an object with a "text" field, or plain text.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder

	mu sync.Mutex
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) emit(ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(ev)
}

// Render emits every update, user messages included.
func (h *JSONHandler) Render(ctx context.Context, u conversation.Update) error {
	return h.emit(Event{Type: EventUpdate, Update: &u})
}

// Input announces the question and reads the next non-blank line.
func (h *JSONHandler) Input(ctx context.Context, replies []string) (string, error) {
	if err := h.emit(Event{Type: EventInputRequest, PredefinedResponses: replies}); err != nil {
		return "", err
	}
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := h.Reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			return decodeInput(line), nil
		}
		if err != nil {
			return "", err
		}
	}
}

func decodeInput(line string) string {
	var s string
	if err := json.Unmarshal([]byte(line), &s); err == nil {
		return s
	}
	var obj struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal([]byte(line), &obj); err == nil && obj.Text != nil {
		return *obj.Text
	}
	// Fallback: return raw text (e.g. if they just sent plain text)
	return line
}

// SystemOutput emits a system event.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.emit(Event{Type: EventSystem, Message: msg})
}

// Result emits the collected data.
func (h *JSONHandler) Result(ctx context.Context, snap *domain.Snapshot) error {
	data := snap.Data.Clone()
	return h.emit(Event{
		Type:      EventResult,
		SessionID: snap.SessionID,
		Status:    snap.Status,
		Data:      &data,
	})
}
