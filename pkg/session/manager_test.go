package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Chuabacca/Medley-AI/internal/runtime"
	"github.com/Chuabacca/Medley-AI/internal/testutils"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/memory"
	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/Chuabacca/Medley-AI/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func factory(backend ports.Backend) session.Factory {
	engine := runtime.NewGenerator(testutils.ConsultSchema(), backend)
	return func(opts ...conversation.Option) *conversation.Conversation {
		return conversation.New(engine, append([]conversation.Option{conversation.WithSleep(noSleep)}, opts...)...)
	}
}

type recordingSink struct {
	mu      sync.Mutex
	reports []ports.Report
	err     error
}

func (s *recordingSink) Publish(ctx context.Context, r ports.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

// mutexLocker is an in-process stand-in for a distributed lock.
type mutexLocker struct {
	mu    sync.Mutex
	calls int
}

func (l *mutexLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.calls++
	return func(context.Context) error {
		l.mu.Unlock()
		return nil
	}, nil
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	sink := &recordingSink{}
	m := session.NewManager(factory(testutils.NewFakeBackend()), store, session.WithReportSink(sink))

	conv, err := m.Start(ctx, "")
	require.NoError(t, err)
	id := conv.ID()
	require.NotEmpty(t, id)

	snap, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingAnswer, snap.Status)
	assert.Equal(t, domain.FieldHairLossLocation, snap.CurrentQuestionID)

	_, err = m.Send(ctx, id, "Crown")
	require.NoError(t, err)
	assert.Equal(t, 0, sink.count())

	conv, err = m.Send(ctx, id, "Fuller hair")
	require.NoError(t, err)
	assert.True(t, conv.IsComplete())

	snap, err = store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, snap.Status)

	require.Equal(t, 1, sink.count())
	report := sink.reports[0]
	assert.Equal(t, id, report.SessionID)
	assert.Equal(t, "1.0", report.SchemaVersion)
	assert.Equal(t, "crown", *report.Data.HairLossLocation)
	assert.Len(t, report.Transcript, 5)

	_, err = m.Send(ctx, id, "again")
	assert.ErrorIs(t, err, domain.ErrNoActiveQuestion)
	assert.Equal(t, 1, sink.count())
}

func TestManager_ResumesFromStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	backend := testutils.NewFakeBackend()

	first := session.NewManager(factory(backend), store)
	_, err := first.Start(ctx, "resume-me")
	require.NoError(t, err)
	_, err = first.Send(ctx, "resume-me", "Hairline")
	require.NoError(t, err)

	// A fresh process only has the store.
	second := session.NewManager(factory(backend), store)
	assert.Equal(t, 0, second.Active())

	conv, err := second.Send(ctx, "resume-me", "Stop shedding")
	require.NoError(t, err)
	assert.True(t, conv.IsComplete())
	assert.Equal(t, map[string]any{
		domain.FieldHairLossLocation: "hairline",
		domain.FieldGoalsText:        "Stop shedding",
	}, conv.Data().Fields())
	assert.Equal(t, 1, second.Active())
}

func TestManager_UnknownSession(t *testing.T) {
	m := session.NewManager(factory(testutils.NewFakeBackend()), memory.NewStore())

	_, err := m.Send(context.Background(), "ghost", "hello")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = m.Snapshot(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_SendWhileTurnStreams(t *testing.T) {
	ctx := context.Background()
	backend := testutils.NewFakeBackend()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	backend.Reply = func(p ports.Prompt) string {
		if len(p.Lines) > 0 && p.Lines[0] == "Previous question: Where are you noticing hair loss?" {
			once.Do(func() { close(started) })
			<-release
		}
		return "ok"
	}

	m := session.NewManager(factory(backend), memory.NewStore())
	_, err := m.Start(ctx, "busy")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := m.Send(ctx, "busy", "Crown")
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("turn never reached the backend")
	}

	_, err = m.Send(ctx, "busy", "Crown")
	assert.ErrorIs(t, err, domain.ErrTurnInFlight)

	// Reads do not wait for the turn.
	snap, err := m.Snapshot(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, "busy", snap.SessionID)

	close(release)
	require.NoError(t, <-done)
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := session.NewManager(factory(testutils.NewFakeBackend()), store)

	_, err := m.Start(ctx, "gone")
	require.NoError(t, err)
	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, ids)

	require.NoError(t, m.Delete(ctx, "gone"))
	assert.Equal(t, 0, m.Active())
	_, err = m.Get(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_ReplicasShareProgress(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	locker := &mutexLocker{}
	backend := testutils.NewFakeBackend()

	a := session.NewManager(factory(backend), store, session.WithLocker(locker))
	b := session.NewManager(factory(backend), store, session.WithLocker(locker))

	_, err := a.Start(ctx, "shared")
	require.NoError(t, err)
	_, err = b.Send(ctx, "shared", "Overall thinning")
	require.NoError(t, err)

	// a still holds the pre-answer conversation in memory and must reload it.
	conv, err := a.Send(ctx, "shared", "Thicker hair")
	require.NoError(t, err)
	assert.True(t, conv.IsComplete())
	assert.Equal(t, "overall", *conv.Data().HairLossLocation)
	assert.Equal(t, 3, locker.calls)
}

func TestManager_ReportFailureDoesNotFailTurn(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{err: errors.New("bucket gone")}
	m := session.NewManager(factory(testutils.NewFakeBackend()), memory.NewStore(), session.WithReportSink(sink))

	_, err := m.Start(ctx, "s")
	require.NoError(t, err)
	_, err = m.Send(ctx, "s", "Crown")
	require.NoError(t, err)
	conv, err := m.Send(ctx, "s", "More volume")
	require.NoError(t, err)
	assert.True(t, conv.IsComplete())
	assert.Equal(t, 1, sink.count())
}

func TestManager_OpenSubscribesBeforeOpening(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := session.NewManager(factory(testutils.NewFakeBackend()), store)

	conv, err := m.Open(ctx, "watched")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotStarted, conv.Status())

	updates, stop := conv.Subscribe()
	started, err := m.Start(ctx, "watched")
	require.NoError(t, err)
	assert.Same(t, conv, started)
	stop()

	var appended int
	for u := range updates {
		if u.Kind == conversation.UpdateMessageAppended {
			appended++
		}
	}
	assert.Positive(t, appended)

	// Another process resumes the stored state.
	other := session.NewManager(factory(testutils.NewFakeBackend()), store)
	resumed, err := other.Open(ctx, "watched")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingAnswer, resumed.Status())
	assert.Equal(t, domain.FieldHairLossLocation, resumed.CurrentQuestionID())
}
