package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Chuabacca/Medley-AI/internal/runtime"
	"github.com/Chuabacca/Medley-AI/internal/testutils"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/memory"
	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	return newServerFor(testutils.ConsultSchema())
}

func newServerFor(schema *domain.Schema) *Server {
	engine := runtime.NewGenerator(schema, testutils.NewFakeBackend())
	mgr := session.NewManager(func(opts ...conversation.Option) *conversation.Conversation {
		noSleep := func(context.Context, time.Duration) error { return nil }
		return conversation.New(engine, append([]conversation.Option{conversation.WithSleep(noSleep)}, opts...)...)
	}, memory.NewStore())
	return NewServer(mgr, schema, "test")
}

func TestTools_ConsultationFlow(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	started, err := s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{SessionID: "agent-1"})
	require.NoError(t, err)
	assert.Equal(t, "agent-1", started.SessionID)
	assert.Equal(t, domain.StatusAwaitingAnswer, started.Status)
	assert.NotEmpty(t, started.Reply)
	assert.Equal(t, []string{"Crown", "Hairline", "Overall thinning"}, started.PredefinedResponses)

	resp, err := s.handleSend(ctx, mcp.CallToolRequest{}, SendArgs{SessionID: "agent-1", Text: "Crown"})
	require.NoError(t, err)
	assert.Equal(t, domain.FieldGoalsText, resp.CurrentQuestionID)
	assert.Empty(t, resp.PredefinedResponses)
	assert.NotNil(t, resp.PredefinedResponses)

	resp, err = s.handleSend(ctx, mcp.CallToolRequest{}, SendArgs{SessionID: "agent-1", Text: "Keep my hairline"})
	require.NoError(t, err)
	assert.True(t, resp.IsComplete)

	got, err := s.handleGet(ctx, mcp.CallToolRequest{}, GetArgs{SessionID: "agent-1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		domain.FieldHairLossLocation: "crown",
		domain.FieldGoalsText:        "Keep my hairline",
	}, got.Data.Fields())
}

func TestTools_ReplyCoversEveryClinicMessage(t *testing.T) {
	s := newServerFor(testutils.InfoSuccessorSchema())
	ctx := context.Background()

	started, err := s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{SessionID: "agent-2"})
	require.NoError(t, err)
	require.Len(t, started.Replies, 1)
	assert.Equal(t, started.Replies[0], started.Reply)

	resp, err := s.handleSend(ctx, mcp.CallToolRequest{}, SendArgs{SessionID: "agent-2", Text: "My hair is thinning"})
	require.NoError(t, err)
	assert.Equal(t, "q1", resp.CurrentQuestionID)
	require.Len(t, resp.Replies, 3, "acknowledgment, info summary and question")
	assert.Contains(t, resp.Replies[1], "Summarize the following information")
	assert.Contains(t, resp.Replies[2], "Next question topic: Test question 1")
	assert.Equal(t, strings.Join(resp.Replies, "\n\n"), resp.Reply)
	assert.NotContains(t, resp.Reply, "My hair is thinning")
}

func TestTools_Errors(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, err := s.handleSend(ctx, mcp.CallToolRequest{}, SendArgs{Text: "hi"})
	assert.Error(t, err)

	_, err = s.handleSend(ctx, mcp.CallToolRequest{}, SendArgs{SessionID: "ghost", Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = s.handleGet(ctx, mcp.CallToolRequest{}, GetArgs{SessionID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestResource_Schema(t *testing.T) {
	s := newTestServer()

	contents, err := s.readSchema()
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, SchemaURI, text.URI)

	var schema domain.Schema
	require.NoError(t, json.Unmarshal([]byte(text.Text), &schema))
	assert.Equal(t, "1.0", schema.Version)
	assert.Len(t, schema.Questions, 2)
}
