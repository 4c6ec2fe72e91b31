package conversation_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Chuabacca/Medley-AI/internal/runtime"
	"github.com/Chuabacca/Medley-AI/internal/testutils"
	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newConversation(schema *domain.Schema, backend ports.Backend, opts ...conversation.Option) *conversation.Conversation {
	engine := runtime.NewGenerator(schema, backend)
	return conversation.New(engine, append([]conversation.Option{conversation.WithSleep(noSleep)}, opts...)...)
}

func TestConversation_RoundTrip(t *testing.T) {
	ctx := context.Background()
	conv := newConversation(testutils.ConsultSchema(), testutils.NewFakeBackend())

	require.NoError(t, conv.Start(ctx))
	assert.Equal(t, domain.StatusAwaitingAnswer, conv.Status())
	assert.Equal(t, domain.FieldHairLossLocation, conv.CurrentQuestionID())
	assert.Equal(t, []string{"Crown", "Hairline", "Overall thinning"}, conv.PredefinedResponses())

	require.NoError(t, conv.Send(ctx, "Crown"))
	assert.Equal(t, domain.FieldGoalsText, conv.CurrentQuestionID())
	assert.Empty(t, conv.PredefinedResponses())

	require.NoError(t, conv.Send(ctx, "Thicker hair at the crown"))
	assert.True(t, conv.IsComplete())
	assert.Empty(t, conv.CurrentQuestionID())
	assert.NotNil(t, conv.PredefinedResponses())
	assert.Empty(t, conv.PredefinedResponses())

	data := conv.Data()
	assert.Equal(t, map[string]any{
		domain.FieldHairLossLocation: "crown",
		domain.FieldGoalsText:        "Thicker hair at the crown",
	}, data.Fields())
	require.NotNil(t, data.TreatmentGoals)
	assert.Empty(t, data.TreatmentGoals)

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"treatment_goals":[]`)

	msgs := conv.Messages()
	require.Len(t, msgs, 5)
	roles := make([]domain.Role, len(msgs))
	for i, m := range msgs {
		roles[i] = m.Role
		assert.False(t, m.Streaming)
		assert.NotEmpty(t, m.Text)
	}
	assert.Equal(t, []domain.Role{
		domain.RoleModel, domain.RoleUser, domain.RoleModel, domain.RoleUser, domain.RoleModel,
	}, roles)

	assert.ErrorIs(t, conv.Send(ctx, "one more thing"), domain.ErrNoActiveQuestion)
}

func TestConversation_SentinelCompletes(t *testing.T) {
	ctx := context.Background()
	var advances []domain.AdvanceEvent
	var completes []domain.CompleteEvent

	conv := newConversation(testutils.InfoSchema(), testutils.NewFakeBackend(),
		conversation.WithHooks(domain.LifecycleHooks{
			OnAdvance:  func(_ context.Context, e *domain.AdvanceEvent) { advances = append(advances, *e) },
			OnComplete: func(_ context.Context, e *domain.CompleteEvent) { completes = append(completes, *e) },
		}),
	)

	require.NoError(t, conv.Start(ctx))
	require.NoError(t, conv.Send(ctx, "Option 2"))
	require.NoError(t, conv.Send(ctx, "That is all"))

	assert.True(t, conv.IsComplete())
	assert.Empty(t, conv.PredefinedResponses())

	require.Len(t, advances, 3)
	last := advances[2]
	assert.Equal(t, "q2", last.FromQuestionID)
	assert.Equal(t, domain.SentinelComplete, last.ToQuestionID)
	assert.Equal(t, domain.StatusComplete, last.Status)

	require.Len(t, completes, 1)
	assert.Equal(t, "1.0", completes[0].SchemaVersion)
}

func TestConversation_DanglingSuccessorHalts(t *testing.T) {
	ctx := context.Background()
	conv := newConversation(testutils.DanglingSchema(), testutils.NewFakeBackend())

	require.NoError(t, conv.Start(ctx))
	require.NoError(t, conv.Send(ctx, "I am a new patient"))

	assert.Equal(t, domain.StatusHalted, conv.Status())
	assert.False(t, conv.IsComplete())

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, runtime.UnresolvedAck, msgs[2].Text)
	assert.False(t, msgs[2].Streaming)

	assert.ErrorIs(t, conv.Send(ctx, "hello?"), domain.ErrNoActiveQuestion)
	assert.Len(t, conv.Messages(), 3)
}

func TestConversation_MissingSuccessorHalts(t *testing.T) {
	ctx := context.Background()
	s := domain.NewSchema("1.0", "only",
		domain.Question{ID: "only", Prompt: "Anything else to add?", Type: domain.QuestionFreeText},
	)
	conv := newConversation(s, testutils.NewFakeBackend())

	require.NoError(t, conv.Start(ctx))
	require.NoError(t, conv.Send(ctx, "No, that is everything"))

	assert.Equal(t, domain.StatusHalted, conv.Status())
	assert.False(t, conv.IsComplete())
	assert.Empty(t, conv.PredefinedResponses())
	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Reply: The patient has completed the consultation.", msgs[2].Text)
	assert.ErrorIs(t, conv.Send(ctx, "hello?"), domain.ErrNoActiveQuestion)
}

func TestConversation_EmptySchemaGreets(t *testing.T) {
	backend := testutils.NewFakeBackend()
	conv := newConversation(domain.EmptySchema(), backend)

	require.NoError(t, conv.Start(context.Background()))

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, runtime.GreetingFallback, msgs[0].Text)
	assert.Equal(t, domain.StatusHalted, conv.Status())
	assert.Empty(t, backend.Prompts())
}

func TestConversation_InfoThenQuestion(t *testing.T) {
	ctx := context.Background()
	var conv *conversation.Conversation
	var pauses []time.Duration
	var duringPause error
	var shownBeforePause int

	sleep := func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		shownBeforePause = len(conv.Messages())
		duringPause = conv.Send(ctx, "Option 1")
		return nil
	}
	conv = newConversation(testutils.InfoSuccessorSchema(), testutils.NewFakeBackend(), conversation.WithSleep(sleep))

	require.NoError(t, conv.Start(ctx))
	require.NoError(t, conv.Send(ctx, "My hair is thinning"))

	assert.Equal(t, []time.Duration{conversation.DefaultPacing}, pauses)
	assert.ErrorIs(t, duringPause, domain.ErrTurnInFlight)
	assert.Equal(t, 4, shownBeforePause, "acknowledgment and info summary precede the pause")

	msgs := conv.Messages()
	require.Len(t, msgs, 5)
	assert.Contains(t, msgs[3].Text, "Summarize the following information")
	assert.Contains(t, msgs[4].Text, "Next question topic: Test question 1")
	assert.Equal(t, "q1", conv.CurrentQuestionID())
	assert.Equal(t, []string{"Option 1", "Option 2"}, conv.PredefinedResponses())
}

func TestConversation_OpeningSkipsFirstQuestionInfo(t *testing.T) {
	var pauses int
	sleep := func(context.Context, time.Duration) error {
		pauses++
		return nil
	}
	conv := newConversation(testutils.InfoSchema(), testutils.NewFakeBackend(), conversation.WithSleep(sleep))

	require.NoError(t, conv.Start(context.Background()))

	assert.Zero(t, pauses)
	msgs := conv.Messages()
	require.Len(t, msgs, 1, "the opening already asks the first question")
	assert.Equal(t, domain.StatusAwaitingAnswer, conv.Status())
	assert.Equal(t, "q1", conv.CurrentQuestionID())
	assert.Equal(t, []string{"Option 1", "Option 2"}, conv.PredefinedResponses())
}

func TestConversation_InfoPacingIsObservable(t *testing.T) {
	ctx := context.Background()
	engine := runtime.NewGenerator(testutils.InfoSuccessorSchema(), testutils.NewFakeBackend())
	conv := conversation.New(engine)

	require.NoError(t, conv.Start(ctx))
	require.NoError(t, conv.Send(ctx, "My hair is thinning"))

	msgs := conv.Messages()
	require.Len(t, msgs, 5)
	assert.GreaterOrEqual(t, msgs[4].CreatedAt.Sub(msgs[3].CreatedAt), conversation.DefaultPacing)
}

func TestConversation_SerializesTurns(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	backend := testutils.NewFakeBackend()
	backend.Reply = func(p ports.Prompt) string {
		if len(p.Lines) > 0 && strings.HasPrefix(p.Lines[0], "Previous question") {
			<-release
		}
		return "Noted. What would you like to achieve?"
	}
	conv := newConversation(testutils.ConsultSchema(), backend)
	require.NoError(t, conv.Start(ctx))

	const senders = 10
	results := make(chan error, senders)
	for i := 0; i < senders; i++ {
		go func() { results <- conv.Send(ctx, "Crown") }()
	}

	for i := 0; i < senders-1; i++ {
		select {
		case err := <-results:
			assert.ErrorIs(t, err, domain.ErrTurnInFlight)
		case <-time.After(5 * time.Second):
			t.Fatal("sends were not rejected")
		}
	}
	assert.True(t, conv.Busy())
	assert.ErrorIs(t, conv.Start(ctx), domain.ErrTurnInFlight)
	assert.ErrorIs(t, conv.Restore(conv.Snapshot()), domain.ErrTurnInFlight)

	close(release)
	select {
	case err := <-results:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("send did not finish")
	}

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Crown", msgs[1].Text)
	assert.Equal(t, domain.FieldGoalsText, conv.CurrentQuestionID())
}

// brokenEngine fails every answer turn without a terminal event.
type brokenEngine struct {
	*runtime.Generator
	panics bool
}

func (e brokenEngine) NextTurn(ctx context.Context, q domain.Question, text string) <-chan domain.StreamingTurn {
	if e.panics {
		panic("engine exploded")
	}
	ch := make(chan domain.StreamingTurn)
	close(ch)
	return ch
}

func TestConversation_UnexpectedFailureApologizes(t *testing.T) {
	tests := []struct {
		name   string
		panics bool
	}{
		{"stream closed early", false},
		{"engine panic", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			engine := brokenEngine{
				Generator: runtime.NewGenerator(testutils.ConsultSchema(), testutils.NewFakeBackend()),
				panics:    tt.panics,
			}
			conv := conversation.New(engine)
			require.NoError(t, conv.Start(ctx))

			require.NoError(t, conv.Send(ctx, "Crown"))

			msgs := conv.Messages()
			require.Len(t, msgs, 3, "placeholder is replaced by the apology")
			assert.Equal(t, domain.RoleUser, msgs[1].Role)
			assert.Equal(t, conversation.Apology, msgs[2].Text)
			assert.Equal(t, domain.StatusAwaitingAnswer, conv.Status())
			assert.Equal(t, domain.FieldHairLossLocation, conv.CurrentQuestionID())
			assert.Empty(t, conv.Data().Fields())
			assert.False(t, conv.Busy())
		})
	}
}

func TestConversation_CancelledTurnApologizes(t *testing.T) {
	backend := testutils.NewFakeBackend()
	backend.Delay = 20 * time.Millisecond
	backend.Reply = func(ports.Prompt) string { return "one two three four five six seven eight" }
	conv := newConversation(testutils.ConsultSchema(), backend)
	require.NoError(t, conv.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, conv.Send(ctx, "Crown"))

	msgs := conv.Messages()
	assert.Equal(t, conversation.Apology, msgs[len(msgs)-1].Text)
	assert.Equal(t, domain.FieldHairLossLocation, conv.CurrentQuestionID())
	assert.Empty(t, conv.Data().Fields())
}

func TestConversation_FallbackReplacesPlaceholder(t *testing.T) {
	backend := testutils.NewFakeBackend()
	backend.StreamErr = assert.AnError
	conv := newConversation(testutils.ConsultSchema(), backend)

	require.NoError(t, conv.Start(context.Background()))

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Where are you noticing hair loss?", msgs[0].Text)
	assert.False(t, msgs[0].Streaming)
}

func TestConversation_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	conv := newConversation(testutils.ConsultSchema(), testutils.NewFakeBackend(), conversation.WithMaxInputSize(8))

	assert.ErrorIs(t, conv.Send(ctx, "Crown"), domain.ErrNoActiveQuestion)

	require.NoError(t, conv.Start(ctx))
	assert.ErrorIs(t, conv.Send(ctx, "   "), domain.ErrEmptyInput)
	assert.ErrorIs(t, conv.Send(ctx, "far too long for the limit"), domain.ErrInputTooLarge)
	assert.ErrorIs(t, conv.Send(ctx, "\xff\xfe"), domain.ErrInvalidUTF8)
	assert.Len(t, conv.Messages(), 1)
}

func TestConversation_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	engine := runtime.NewGenerator(testutils.ConsultSchema(), testutils.NewFakeBackend())

	first := conversation.New(engine, conversation.WithSessionID("s-1"))
	require.NoError(t, first.Start(ctx))
	require.NoError(t, first.Send(ctx, "Hairline"))
	snap := first.Snapshot()
	assert.Equal(t, "s-1", snap.SessionID)
	assert.False(t, snap.UpdatedAt.IsZero())

	second := conversation.New(engine)
	require.NoError(t, second.Restore(snap))
	assert.Equal(t, "s-1", second.ID())
	assert.Equal(t, first.Messages(), second.Messages())

	require.NoError(t, second.Send(ctx, "Less shedding"))
	assert.True(t, second.IsComplete())
	assert.Equal(t, map[string]any{
		domain.FieldHairLossLocation: "hairline",
		domain.FieldGoalsText:        "Less shedding",
	}, second.Data().Fields())

	assert.Equal(t, domain.FieldGoalsText, first.CurrentQuestionID(), "restore copies the snapshot")
}

func TestConversation_SubscribeStreamsById(t *testing.T) {
	backend := testutils.NewFakeBackend()
	backend.Reply = func(ports.Prompt) string { return "Hello and welcome in" }
	conv := newConversation(testutils.ConsultSchema(), backend)

	updates, cancel := conv.Subscribe()
	require.NoError(t, conv.Start(context.Background()))
	cancel()

	var got []conversation.Update
	for u := range updates {
		got = append(got, u)
	}
	require.NotEmpty(t, got)
	assert.Equal(t, conversation.UpdateStateChanged, got[0].Kind)

	var appended *domain.ChatMessage
	var texts []string
	for _, u := range got {
		switch u.Kind {
		case conversation.UpdateMessageAppended:
			appended = u.Message
		case conversation.UpdateMessageUpdated:
			require.NotNil(t, appended)
			assert.Equal(t, appended.ID, u.Message.ID)
			texts = append(texts, u.Message.Text)
		}
	}
	require.NotEmpty(t, texts)
	assert.Equal(t, "Hello and welcome in", texts[len(texts)-1])
	for i := 1; i < len(texts); i++ {
		assert.True(t, strings.HasPrefix(texts[i], texts[i-1]))
	}

	last := got[len(got)-1]
	assert.Equal(t, domain.StatusAwaitingAnswer, last.Status)
	assert.Equal(t, domain.FieldHairLossLocation, last.CurrentQuestionID)
}

func TestConversation_LaggingSubscriberSeesTurnEnd(t *testing.T) {
	reply := strings.TrimSpace(strings.Repeat("word ", 400))
	backend := testutils.NewFakeBackend()
	backend.Reply = func(ports.Prompt) string { return reply }
	conv := newConversation(testutils.ConsultSchema(), backend)

	updates, cancel := conv.Subscribe()
	defer cancel()
	// Nothing reads until the whole opening has streamed.
	require.NoError(t, conv.Start(context.Background()))

	var received int
	var final *domain.ChatMessage
	var settled bool
	timeout := time.After(5 * time.Second)
	for final == nil || !settled {
		select {
		case u := <-updates:
			received++
			switch {
			case u.Kind == conversation.UpdateMessageUpdated && !u.Message.Streaming:
				final = u.Message
			case u.Kind == conversation.UpdateStateChanged && u.Status == domain.StatusAwaitingAnswer:
				require.NotNil(t, final, "state change arrived before the final text")
				settled = true
			}
		case <-timeout:
			t.Fatalf("turn end not delivered after %d updates", received)
		}
	}

	assert.Equal(t, reply, final.Text)
	assert.Equal(t, domain.FieldHairLossLocation, conv.CurrentQuestionID())
	assert.Less(t, received, 400, "text updates that waited are merged")
}

func TestConversation_CancelLaggingSubscriber(t *testing.T) {
	backend := testutils.NewFakeBackend()
	backend.Reply = func(ports.Prompt) string { return strings.Repeat("word ", 400) }
	conv := newConversation(testutils.ConsultSchema(), backend)

	updates, cancel := conv.Subscribe()
	require.NoError(t, conv.Start(context.Background()))
	cancel()
	cancel()

	done := make(chan int)
	go func() {
		n := 0
		for range updates {
			n++
		}
		done <- n
	}()
	select {
	case n := <-done:
		assert.Positive(t, n)
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestConversation_HooksReportTurns(t *testing.T) {
	var mu sync.Mutex
	var kinds []domain.TurnKind
	var answers []domain.AnswerEvent

	conv := newConversation(testutils.InfoSchema(), testutils.NewFakeBackend(),
		conversation.WithHooks(domain.LifecycleHooks{
			OnTurnComplete: func(_ context.Context, e *domain.TurnEvent) {
				mu.Lock()
				defer mu.Unlock()
				kinds = append(kinds, e.Kind)
			},
			OnAnswerMapped: func(_ context.Context, e *domain.AnswerEvent) {
				answers = append(answers, *e)
			},
		}),
	)

	ctx := context.Background()
	require.NoError(t, conv.Start(ctx))
	require.NoError(t, conv.Send(ctx, "option 2"))

	assert.Equal(t, []domain.TurnKind{
		domain.TurnOpening, domain.TurnAck,
	}, kinds)
	require.Len(t, answers, 1)
	assert.Equal(t, domain.MappedAnswer{KeyPath: "q1", ValueID: "opt2"}, answers[0].Answer)
	assert.False(t, answers[0].Applied, "q1 is not a result field")
}
