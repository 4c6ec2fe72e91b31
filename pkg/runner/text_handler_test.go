package runner_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(kind conversation.UpdateKind, id, text string, streaming bool) conversation.Update {
	return conversation.Update{
		Kind:    kind,
		Message: &domain.ChatMessage{ID: id, Role: domain.RoleModel, Text: text, Streaming: streaming},
	}
}

func TestTextHandler_RenderStreamsDeltas(t *testing.T) {
	out := &bytes.Buffer{}
	h := runner.NewTextHandler(strings.NewReader(""), out)
	ctx := context.Background()

	require.NoError(t, h.Render(ctx, update(conversation.UpdateMessageAppended, "m1", "", true)))
	require.NoError(t, h.Render(ctx, update(conversation.UpdateMessageUpdated, "m1", "Where are", true)))
	require.NoError(t, h.Render(ctx, update(conversation.UpdateMessageUpdated, "m1", "Where are you noticing it?", false)))

	user := conversation.Update{
		Kind:    conversation.UpdateMessageAppended,
		Message: &domain.ChatMessage{ID: "u1", Role: domain.RoleUser, Text: "Crown"},
	}
	require.NoError(t, h.Render(ctx, user))

	assert.Equal(t, "Where are you noticing it?\n", out.String())
}

func TestTextHandler_RenderReplacedText(t *testing.T) {
	out := &bytes.Buffer{}
	h := runner.NewTextHandler(strings.NewReader(""), out)
	ctx := context.Background()

	require.NoError(t, h.Render(ctx, update(conversation.UpdateMessageAppended, "m1", "", true)))
	require.NoError(t, h.Render(ctx, update(conversation.UpdateMessageUpdated, "m1", "Partial", true)))
	require.NoError(t, h.Render(ctx, update(conversation.UpdateMessageUpdated, "m1", "Thanks for sharing.", false)))

	assert.Equal(t, "Partial\nThanks for sharing.\n", out.String())
}

func TestTextHandler_InputSelectsQuickReply(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"By number", "2\n", "Hairline"},
		{"Out of range", "7\n", "7"},
		{"Free text", "  Just the crown \n", "Just the crown"},
		{"Without newline", "1", "Crown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			h := runner.NewTextHandler(strings.NewReader(tt.input), out, runner.WithInteractive(false))

			got, err := h.Input(context.Background(), []string{"Crown", "Hairline"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "  1) Crown\n  2) Hairline\n", out.String())
		})
	}
}

func TestTextHandler_InputPrompt(t *testing.T) {
	out := &bytes.Buffer{}
	h := runner.NewTextHandler(strings.NewReader("hello\n"), out, runner.WithInteractive(true))

	_, err := h.Input(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "> ", out.String())

	_, err = h.Input(context.Background(), nil)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_InputCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	h := runner.NewTextHandler(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Input(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTextHandler_Result(t *testing.T) {
	out := &bytes.Buffer{}
	h := runner.NewTextHandler(strings.NewReader(""), out,
		runner.WithTextHandlerSummary(func(snap *domain.Snapshot) string {
			return "| field | value |\n"
		}),
		runner.WithTextHandlerRenderer(func(s string) (string, error) {
			return "Rendered: " + s, nil
		}),
	)

	require.NoError(t, h.Result(context.Background(), domain.NewSnapshot("s1")))
	assert.Equal(t, "Rendered: | field | value |\n", out.String())
}
