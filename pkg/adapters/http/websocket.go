package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// ClientMessage is a frame sent by a websocket client.
//
//	{"type":"send","text":"Crown"}
//	{"type":"start"}
//	{"type":"ping"}
type ClientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ServerMessage is a frame the server sends besides conversation updates.
type ServerMessage struct {
	Kind    string           `json:"kind"`
	Session *SessionResponse `json:"session,omitempty"`
	Error   string           `json:"error,omitempty"`
	Status  int              `json:"status,omitempty"`
}

// ServeWebsocket handles GET /sessions/{id}/ws.
// Updates stream to the client as JSON text frames; client frames drive the session.
func (s *Server) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conv, err := s.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.Error("Failed to accept WebSocket", "session_id", sessionID, "err", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			s.Logger.Debug("Failed to close websocket", "session_id", sessionID, "err", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := conv.Subscribe()
	defer unsubscribe()

	snap := newSessionResponse(conv.Snapshot())
	if err := writeFrame(ctx, ws, ServerMessage{Kind: "snapshot", Session: &snap}); err != nil {
		return
	}

	go s.outputLoop(ctx, ws, updates)
	s.inputLoop(ctx, ws, sessionID)
}

func (s *Server) outputLoop(ctx context.Context, ws *websocket.Conn, updates <-chan conversation.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := writeFrame(ctx, ws, u); err != nil {
				return
			}
		}
	}
}

func (s *Server) inputLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				s.Logger.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				s.Logger.Warn("WebSocket read error", "session_id", sessionID, "err", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = writeFrame(ctx, ws, ServerMessage{Kind: "error", Error: "invalid message", Status: http.StatusBadRequest})
			continue
		}

		switch msg.Type {
		case "ping":
			_ = writeFrame(ctx, ws, ServerMessage{Kind: "pong"})
		case "send", "start":
			// Turns run beside the read loop so the client can keep talking,
			// e.g. to observe ErrTurnInFlight.
			go s.runTurn(ctx, ws, sessionID, msg)
		default:
			_ = writeFrame(ctx, ws, ServerMessage{Kind: "error", Error: "unknown message type " + msg.Type, Status: http.StatusBadRequest})
		}
	}
}

func (s *Server) runTurn(ctx context.Context, ws *websocket.Conn, sessionID string, msg ClientMessage) {
	var (
		conv *conversation.Conversation
		err  error
	)
	// A client that disconnects mid-turn does not abort it.
	turnCtx := context.WithoutCancel(ctx)
	if msg.Type == "start" {
		conv, err = s.Sessions.Start(turnCtx, sessionID)
	} else {
		conv, err = s.Sessions.Send(turnCtx, sessionID, msg.Text)
	}
	if err != nil {
		if ctx.Err() == nil {
			_ = writeFrame(ctx, ws, ServerMessage{Kind: "error", Error: err.Error(), Status: StatusFor(err)})
		}
		return
	}
	snap := newSessionResponse(conv.Snapshot())
	_ = writeFrame(ctx, ws, ServerMessage{Kind: "turn_complete", Session: &snap})
}

func writeFrame(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
