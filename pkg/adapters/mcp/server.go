// Package mcp exposes consultations as Model Context Protocol tools,
// so an agent can conduct an intake on a patient's behalf.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SchemaURI is the resource holding the question graph.
const SchemaURI = "medley://schema"

// Sessions is the session service the tools drive. *session.Manager implements it.
type Sessions interface {
	Start(ctx context.Context, sessionID string) (*conversation.Conversation, error)
	Send(ctx context.Context, sessionID, text string) (*conversation.Conversation, error)
	Snapshot(ctx context.Context, sessionID string) (*domain.Snapshot, error)
	List(ctx context.Context) ([]string, error)
}

// ConsultationResponse is the structured result of every tool.
type ConsultationResponse struct {
	SessionID           string                   `json:"session_id" jsonschema_description:"Identifier to pass to send_answer"`
	Status              domain.Status            `json:"status" jsonschema_description:"not_started, awaiting_answer, complete or halted"`
	Reply               string                   `json:"reply" jsonschema_description:"Clinic messages since the patient last spoke, separated by blank lines"`
	Replies             []string                 `json:"replies" jsonschema_description:"The same clinic messages, one per entry"`
	CurrentQuestionID   string                   `json:"current_question_id,omitempty" jsonschema_description:"Question awaiting an answer"`
	PredefinedResponses []string                 `json:"predefined_responses" jsonschema_description:"Suggested answers for the current question"`
	IsComplete          bool                     `json:"is_complete" jsonschema_description:"Whether the consultation reached its end"`
	Data                domain.StructuredConsult `json:"data" jsonschema_description:"Answers collected so far"`
}

// StartArgs are the arguments of start_consultation.
type StartArgs struct {
	SessionID string `json:"session_id,omitempty"`
}

// SendArgs are the arguments of send_answer.
type SendArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// GetArgs are the arguments of get_consultation.
type GetArgs struct {
	SessionID string `json:"session_id"`
}

// Server exposes a Sessions service as an MCP server.
type Server struct {
	sessions  Sessions
	schema    *domain.Schema
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions Sessions, schema *domain.Schema, version string, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		schema:    schema,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("medley-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_consultation",
		mcp.WithDescription("Begin a hair loss consultation. Returns the clinic's opening message and the first question."),
		mcp.WithString("session_id", mcp.Description("Identifier to use; generated when omitted. Reusing an id restarts it.")),
		mcp.WithOutputSchema[ConsultationResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	sendTool := mcp.NewTool("send_answer",
		mcp.WithDescription("Answer the current question of a consultation in the patient's words."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Consultation identifier")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The patient's answer")),
		mcp.WithOutputSchema[ConsultationResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSend))

	getTool := mcp.NewTool("get_consultation",
		mcp.WithDescription("Read the state and collected answers of a consultation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Consultation identifier")),
		mcp.WithOutputSchema[ConsultationResponse](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("list_consultations",
		mcp.WithDescription("List stored consultation identifiers."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		if ids == nil {
			ids = []string{}
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args StartArgs) (ConsultationResponse, error) {
	conv, err := s.sessions.Start(ctx, args.SessionID)
	if err != nil {
		return ConsultationResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return respond(conv.Snapshot()), nil
}

func (s *Server) handleSend(ctx context.Context, request mcp.CallToolRequest, args SendArgs) (ConsultationResponse, error) {
	if args.SessionID == "" {
		return ConsultationResponse{}, fmt.Errorf("session_id is required")
	}
	conv, err := s.sessions.Send(ctx, args.SessionID, args.Text)
	if err != nil {
		s.logger.Warn("MCP send_answer rejected", "session_id", args.SessionID, "err", err)
		return ConsultationResponse{}, fmt.Errorf("send failed: %w", err)
	}
	return respond(conv.Snapshot()), nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest, args GetArgs) (ConsultationResponse, error) {
	snap, err := s.sessions.Snapshot(ctx, args.SessionID)
	if err != nil {
		return ConsultationResponse{}, fmt.Errorf("get failed: %w", err)
	}
	return respond(snap), nil
}

func respond(snap *domain.Snapshot) ConsultationResponse {
	resp := ConsultationResponse{
		SessionID:           snap.SessionID,
		Status:              snap.Status,
		CurrentQuestionID:   snap.CurrentQuestionID,
		PredefinedResponses: snap.PredefinedResponses,
		IsComplete:          snap.Status == domain.StatusComplete,
		Data:                snap.Data,
	}
	if resp.PredefinedResponses == nil {
		resp.PredefinedResponses = []string{}
	}
	// An answer can produce an acknowledgment, an info summary and a question.
	start := len(snap.Messages)
	for start > 0 && snap.Messages[start-1].Role != domain.RoleUser {
		start--
	}
	resp.Replies = []string{}
	for _, m := range snap.Messages[start:] {
		if m.Role == domain.RoleModel && m.Text != "" {
			resp.Replies = append(resp.Replies, m.Text)
		}
	}
	resp.Reply = strings.Join(resp.Replies, "\n\n")
	return resp
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SchemaURI, "Consultation Question Graph",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return s.readSchema()
	})
}

func (s *Server) readSchema() ([]mcp.ResourceContents, error) {
	if s.schema == nil {
		return nil, fmt.Errorf("no schema loaded")
	}
	jsonBytes, err := json.Marshal(s.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SchemaURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
