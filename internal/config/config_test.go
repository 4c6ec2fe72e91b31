package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Chuabacca/Medley-AI/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func key(b byte) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat(string(b), 32)))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.ProviderOllama, cfg.Backend.Provider)
	assert.Equal(t, config.DriverFile, cfg.Store.Driver)
	assert.Equal(t, 400*time.Millisecond, cfg.Conversation.Pacing)
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	t.Setenv("MEDLEY_TEST_OPENAI_KEY", "sk-test")
	path := writeFile(t, "medley.yaml", `
schema:
  path: intake.json
backend:
  provider: openai
  api_key: ${MEDLEY_TEST_OPENAI_KEY}
  timeout: 15s
  temperature: 0
store:
  driver: sqlite
  dsn: medley.db
  previous_keys: "`+key('a')+`,`+key('b')+`"
report:
  sink: minio
  endpoint: localhost:9000
  secure: true
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "intake.json", cfg.Schema.Path)
	assert.Equal(t, config.ProviderOpenAI, cfg.Backend.Provider)
	assert.Equal(t, "sk-test", cfg.Backend.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Zero(t, cfg.Backend.Temperature)
	assert.Equal(t, config.DriverSQLite, cfg.Store.Driver)
	assert.Len(t, cfg.Store.PreviousKeys, 2)
	assert.True(t, cfg.Report.Secure)

	// Untouched groups keep their defaults.
	assert.Equal(t, "medley-reports", cfg.Report.Bucket)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "medley.yaml", "backend:\n  model: llama3.2\nhttp:\n  metrics: true\n")
	t.Setenv("MEDLEY_MODEL", "qwen2.5")
	t.Setenv("MEDLEY_METRICS", "false")
	t.Setenv("MEDLEY_PACING", "1s")
	t.Setenv("MEDLEY_REDIS_DB", "3")
	t.Setenv("MEDLEY_MAX_INPUT_SIZE", "")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5", cfg.Backend.Model)
	assert.False(t, cfg.HTTP.Metrics)
	assert.Equal(t, time.Second, cfg.Conversation.Pacing)
	assert.Equal(t, 3, cfg.Store.DB)
	assert.Zero(t, cfg.Input.MaxSize)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, config.ErrConfigNotFound)

	_, err = config.Load(writeFile(t, "bad.yaml", "backend: [unclosed"))
	assert.ErrorIs(t, err, config.ErrInvalidYAML)

	_, err = config.Load(writeFile(t, "typo.yaml", "backend:\n  modle: llama3.2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modle")

	t.Setenv("MEDLEY_PACING", "soon")
	_, err = config.Load(writeFile(t, "ok.yaml", "{}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment")
}

func TestApplyEnv_UsesLookup(t *testing.T) {
	cfg := config.Default()
	env := map[string]string{
		"MEDLEY_STORE":         "redis",
		"MEDLEY_LOCKING":       "true",
		"MEDLEY_PREVIOUS_KEYS": key('c'),
		"UNRELATED":            "x",
	}
	require.NoError(t, cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, config.DriverRedis, cfg.Store.Driver)
	assert.True(t, cfg.Store.Locking)
	assert.Equal(t, []string{key('c')}, cfg.Store.PreviousKeys)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Provider = "claude"
	cfg.Store.Driver = "mongo"
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
	cfg.Report.Sink = "s3"
	cfg.Log.Level = "chatty"
	cfg.Store.Locking = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidValue)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	assert.Len(t, joined.Unwrap(), 6)

	for _, field := range []string{"backend.provider", "store.driver", "store.encryption_key", "report.sink", "log.level", "store.locking"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestValidate_RequiredByChoice(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"OpenAI key", func(c *config.Config) { c.Backend.Provider = config.ProviderOpenAI }, "backend.api_key"},
		{"Postgres DSN", func(c *config.Config) { c.Store.Driver = config.DriverPostgres }, "store.dsn"},
		{"Minio endpoint", func(c *config.Config) { c.Report.Sink = config.SinkMinio }, "report.endpoint"},
		{"Temperature", func(c *config.Config) { c.Backend.Temperature = 3 }, "backend.temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MEDLEY_TEST_HOST", "db.internal")
	assert.Equal(t, "postgres://db.internal:5432", config.ExpandEnv("postgres://${MEDLEY_TEST_HOST}:5432"))
	assert.Equal(t, "price $5", config.ExpandEnv("price $$5"))
	assert.Equal(t, "x=", config.ExpandEnv("x=${MEDLEY_TEST_UNSET_VAR}"))
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	const onlyInFile = "MEDLEY_TEST_DOTENV_ONLY"
	require.NoError(t, os.Unsetenv(onlyInFile))
	t.Cleanup(func() { _ = os.Unsetenv(onlyInFile) })
	t.Setenv("MEDLEY_TEST_DOTENV_SET", "from-env")

	path := writeFile(t, ".env", onlyInFile+"=from-file\nMEDLEY_TEST_DOTENV_SET=from-file\n")
	require.NoError(t, config.LoadDotEnv(path))

	assert.Equal(t, "from-file", os.Getenv(onlyInFile))
	assert.Equal(t, "from-env", os.Getenv("MEDLEY_TEST_DOTENV_SET"))

	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
