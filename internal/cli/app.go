package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	medley "github.com/Chuabacca/Medley-AI"
	"github.com/Chuabacca/Medley-AI/internal/config"
	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/file"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/memory"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/minio"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/ollama"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/openai"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/redis"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/scripted"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/sqlstore"
	"github.com/Chuabacca/Medley-AI/pkg/conversation"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/observability"
	"github.com/Chuabacca/Medley-AI/pkg/persistence/middleware"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/Chuabacca/Medley-AI/pkg/session"
)

// DefaultSQLiteDSN is used when the sqlite driver has no dsn.
const DefaultSQLiteDSN = ".medley/medley.db"

// App is the wired object graph shared by every command.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Engine  *medley.Engine
	Store   ports.SessionStore
	Sink    ports.ReportSink
	Manager *session.Manager
	Metrics *observability.Metrics

	closers []io.Closer
}

// AppOption tweaks how NewApp builds the graph.
type AppOption func(*appOptions)

type appOptions struct {
	backend ports.Backend
	metrics bool
	strict  bool
}

// WithBackend replaces the backend selected by the config. Tests use it.
func WithBackend(b ports.Backend) AppOption {
	return func(o *appOptions) {
		o.backend = b
	}
}

// WithMetrics registers the Prometheus collectors as lifecycle hooks.
func WithMetrics(enabled bool) AppOption {
	return func(o *appOptions) {
		o.metrics = enabled
	}
}

// WithStrict fails on schema warnings as well as errors.
func WithStrict(strict bool) AppOption {
	return func(o *appOptions) {
		o.strict = strict
	}
}

// NewApp validates cfg and builds the engine, store, report sink and session manager.
// Close must be called to release connections.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := appOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	app := &App{Config: cfg, Logger: logger}

	backend := o.backend
	if backend == nil {
		var err error
		if backend, err = NewBackend(cfg.Backend, logger); err != nil {
			return nil, err
		}
	}

	hooks := observability.LogHooks(logger)
	if o.metrics {
		app.Metrics = observability.NewMetrics(nil)
		hooks = hooks.Merge(app.Metrics.Hooks())
	}

	convOpts := []conversation.Option{conversation.WithPacing(cfg.Conversation.Pacing)}
	if cfg.Input.MaxSize > 0 {
		convOpts = append(convOpts, conversation.WithMaxInputSize(cfg.Input.MaxSize))
	}

	engineOpts := []medley.Option{
		medley.WithBackend(backend),
		medley.WithLogger(logger),
		medley.WithLifecycleHooks(hooks),
		medley.WithStrict(o.strict),
		medley.WithConversationOptions(convOpts...),
	}
	if cfg.Backend.Instructions != "" {
		engineOpts = append(engineOpts, medley.WithInstructions(cfg.Backend.Instructions))
	}

	engine, err := medley.New(cfg.Schema.Path, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = engine

	store, locker, closer, err := NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	app.addCloser(closer)
	app.Store = store

	sink, err := NewSink(ctx, cfg.Report, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Sink = sink

	mgrOpts := []session.Option{session.WithLogger(logger)}
	if sink != nil {
		mgrOpts = append(mgrOpts, session.WithReportSink(sink))
	}
	if locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(locker))
	}
	app.Manager = session.NewManager(engine.NewConversation, store, mgrOpts...)

	logger.Debug("Application ready",
		"provider", cfg.Backend.Provider,
		"store", cfg.Store.Driver,
		"report", cfg.Report.Sink,
	)
	return app, nil
}

func (a *App) addCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// Close releases store connections, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewBackend builds the generative backend named by cfg.Provider.
func NewBackend(cfg config.BackendConfig, logger *slog.Logger) (ports.Backend, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.New(ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			KeepAlive:   cfg.KeepAlive,
		}, ollama.WithLogger(logger)), nil
	case config.ProviderOpenAI:
		return openai.New(openai.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, openai.WithLogger(logger)), nil
	case config.ProviderScripted:
		return scripted.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend provider %q", cfg.Provider)
	}
}

// NewStore opens the session store named by cfg.Driver and wraps it with the
// configured PII and encryption middleware. The locker is non-nil only for
// redis with locking enabled; the closer may be nil.
func NewStore(ctx context.Context, cfg config.StoreConfig) (ports.SessionStore, ports.DistributedLocker, io.Closer, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
		closer io.Closer
	)

	switch cfg.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
	case config.DriverFile:
		store = file.New(cfg.Dir)
	case config.DriverRedis:
		prefix := cfg.Prefix
		if prefix != "" && !strings.HasSuffix(prefix, ":") {
			prefix += ":"
		}
		rs := redis.New(cfg.Addr, cfg.Password, cfg.DB,
			redis.WithPrefix(prefix+"session:"),
			redis.WithTTL(cfg.TTL),
		)
		if cfg.Locking {
			locker = redis.NewLocker(rs.Client(), prefix)
		}
		store, closer = rs, rs
	case config.DriverSQLite, config.DriverPostgres:
		dialect := sqlstore.Postgres
		dsn := cfg.DSN
		if cfg.Driver == config.DriverSQLite {
			dialect = sqlstore.SQLite
			if dsn == "" {
				dsn = DefaultSQLiteDSN
			}
			if err := ensureDir(dsn); err != nil {
				return nil, nil, nil, err
			}
		}
		var sqlOpts []sqlstore.Option
		if cfg.Table != "" {
			sqlOpts = append(sqlOpts, sqlstore.WithTable(cfg.Table))
		}
		ss, err := sqlstore.Open(ctx, dialect, dsn, sqlOpts...)
		if err != nil {
			return nil, nil, nil, err
		}
		store, closer = ss, ss
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	var mws []middleware.Middleware
	if cfg.RedactPII {
		patterns := cfg.PIIPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultPIIPatterns
		}
		mws = append(mws, middleware.NewPIIMiddleware(patterns))
	}
	if cfg.EncryptionKey != "" {
		enc, err := encryptionConfig(cfg)
		if err != nil {
			if closer != nil {
				_ = closer.Close()
			}
			return nil, nil, nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}

	return middleware.Chain(store, mws...), locker, closer, nil
}

func encryptionConfig(cfg config.StoreConfig) (middleware.EncryptionConfig, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("store.encryption_key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.PreviousKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("store.previous_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return enc, nil
}

// ensureDir creates the parent directory of a file-backed sqlite database.
func ensureDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}

// NewSink builds the report sink named by cfg.Sink. "none" yields nil.
func NewSink(ctx context.Context, cfg config.ReportConfig, logger *slog.Logger) (ports.ReportSink, error) {
	switch cfg.Sink {
	case "", config.SinkNone:
		return nil, nil
	case config.SinkFile:
		return file.NewSink(cfg.Dir), nil
	case config.SinkMinio:
		sink, err := minio.New(ctx, minio.Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Secure:    cfg.Secure,
			Prefix:    cfg.Prefix,
		}, minio.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("connect report bucket: %w", err)
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown report sink %q", cfg.Sink)
	}
}

// Schema returns the loaded question graph.
func (a *App) Schema() *domain.Schema {
	return a.Engine.Schema()
}
