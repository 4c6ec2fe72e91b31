package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a replica may hold a session's distributed lock.
const DefaultLockTTL = 2 * time.Minute

// Factory creates a conversation bound to an engine.
// (*medley.Engine).NewConversation satisfies it.
type Factory func(opts ...conversation.Option) *conversation.Conversation

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the live conversations of a process and keeps their store in sync.
// Turns on the same session are serialized locally by a ref-counted mutex and,
// when a locker is configured, across replicas.
type Manager struct {
	factory Factory
	store   ports.SessionStore
	sink    ports.ReportSink

	mu     sync.Mutex            // guards locks and active
	locks  map[string]*lockEntry // ref-counted per-session locks
	active map[string]*conversation.Conversation

	locker   ports.DistributedLocker
	lockTTL  time.Duration
	convOpts []conversation.Option
	logger   *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking. Conversations are then reloaded from
// the store before every operation, since another replica may have advanced them.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(d time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = d
	}
}

// WithReportSink publishes every consultation that reaches completion.
func WithReportSink(sink ports.ReportSink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithConversationOptions applies opts to every conversation the Manager creates.
func WithConversationOptions(opts ...conversation.Option) Option {
	return func(m *Manager) {
		m.convOpts = append(m.convOpts, opts...)
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager persisting to store.
func NewManager(factory Factory, store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		factory: factory,
		store:   store,
		locks:   make(map[string]*lockEntry),
		active:  make(map[string]*conversation.Conversation),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must call release(sessionID) once done with the entry.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()
	return m.distributed(ctx, sessionID, fn)
}

// tryWithLock is WithLock but fails fast with ErrTurnInFlight when a local
// turn holds the session.
func (m *Manager) tryWithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	if !entry.mu.TryLock() {
		m.release(sessionID)
		return domain.ErrTurnInFlight
	}
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()
	return m.distributed(ctx, sessionID, fn)
}

func (m *Manager) distributed(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	if m.locker == nil {
		return fn(ctx)
	}
	unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire distributed lock: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
				"session_id", sessionID,
				"err", err,
			)
		}
	}()
	return fn(ctx)
}

// Start creates a conversation, streams its opening and persists it.
// An empty sessionID gets a generated one. Starting an existing id restarts it.
func (m *Manager) Start(ctx context.Context, sessionID string) (*conversation.Conversation, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var conv *conversation.Conversation
	err := m.tryWithLock(ctx, sessionID, func(ctx context.Context) error {
		conv = m.cached(sessionID)
		if conv == nil {
			conv = m.factory(append(m.convOpts, conversation.WithSessionID(sessionID))...)
			m.cache(sessionID, conv)
		}
		if err := conv.Start(ctx); err != nil {
			return err
		}
		m.logger.Info("Consultation started", "session_id", sessionID, "status", conv.Status())
		return m.persist(ctx, conv, domain.StatusNotStarted)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Send answers the current question of a session and persists the result.
func (m *Manager) Send(ctx context.Context, sessionID, text string) (*conversation.Conversation, error) {
	var conv *conversation.Conversation
	err := m.tryWithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, err = m.resolve(ctx, sessionID)
		if err != nil {
			return err
		}
		before := conv.Status()
		if err := conv.Send(ctx, text); err != nil {
			return err
		}
		return m.persist(ctx, conv, before)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Get returns the live conversation, restoring it from the store if needed.
// A conversation already held in memory is returned without waiting for its turn.
func (m *Manager) Get(ctx context.Context, sessionID string) (*conversation.Conversation, error) {
	if conv := m.cached(sessionID); conv != nil && m.locker == nil {
		return conv, nil
	}
	var conv *conversation.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, err = m.resolve(ctx, sessionID)
		return err
	})
	return conv, err
}

// Open returns the session's conversation without running a turn, so callers can
// subscribe before calling Start. An unknown id gets a fresh conversation that
// Start will reuse.
func (m *Manager) Open(ctx context.Context, sessionID string) (*conversation.Conversation, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	var conv *conversation.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, err = m.resolve(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			conv = m.factory(append(m.convOpts, conversation.WithSessionID(sessionID))...)
			m.cache(sessionID, conv)
			return nil
		}
		return err
	})
	return conv, err
}

// Snapshot returns the current state of a session without taking its lock,
// so it can be read while a turn streams.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	if conv := m.cached(sessionID); conv != nil && m.locker == nil {
		return conv.Snapshot(), nil
	}
	return m.store.Load(ctx, sessionID)
}

// Delete drops the session from memory and from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.mu.Lock()
		delete(m.active, sessionID)
		m.mu.Unlock()
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Active returns the number of conversations held in memory.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) cached(sessionID string) *conversation.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[sessionID]
}

func (m *Manager) cache(sessionID string, conv *conversation.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[sessionID] = conv
}

// resolve must run under the session lock.
func (m *Manager) resolve(ctx context.Context, sessionID string) (*conversation.Conversation, error) {
	conv := m.cached(sessionID)
	if conv != nil && m.locker == nil {
		return conv, nil
	}

	snap, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if conv != nil && errors.Is(err, domain.ErrSessionNotFound) {
			m.mu.Lock()
			delete(m.active, sessionID)
			m.mu.Unlock()
		}
		return nil, err
	}

	if conv == nil {
		conv = m.factory(append(m.convOpts, conversation.WithSessionID(sessionID))...)
	}
	// Restoring into the cached value keeps its subscribers attached.
	if err := conv.Restore(snap); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	m.cache(sessionID, conv)
	m.logger.Debug("Session restored", "session_id", sessionID, "status", snap.Status)
	return conv, nil
}

func (m *Manager) persist(ctx context.Context, conv *conversation.Conversation, before domain.Status) error {
	snap := conv.Snapshot()
	if err := m.store.Save(ctx, snap.SessionID, snap); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	if m.sink != nil && before != domain.StatusComplete && snap.Status == domain.StatusComplete {
		report := ports.Report{
			SessionID:     snap.SessionID,
			SchemaVersion: snap.SchemaVersion,
			CompletedAt:   snap.UpdatedAt,
			Data:          snap.Data,
			Transcript:    snap.Messages,
		}
		if err := m.sink.Publish(ctx, report); err != nil {
			m.logger.Warn("Failed to publish consultation report", "session_id", snap.SessionID, "err", err)
		} else {
			m.logger.Info("Consultation report published", "session_id", snap.SessionID)
		}
	}
	return nil
}
