// Package config loads the settings shared by every medley command.
//
// Sources, lowest precedence first: defaults, the YAML file, a .env file,
// MEDLEY_* environment variables. Command-line flags are applied by the caller.
package config

import (
	"time"
)

// Backend providers.
const (
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderScripted = "scripted"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Report sinks.
const (
	SinkNone  = "none"
	SinkFile  = "file"
	SinkMinio = "minio"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "medley.yaml"

// Config is the complete medley configuration.
type Config struct {
	Schema       SchemaConfig       `mapstructure:"schema"`
	Backend      BackendConfig      `mapstructure:"backend"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Store        StoreConfig        `mapstructure:"store"`
	Report       ReportConfig       `mapstructure:"report"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Log          LogConfig          `mapstructure:"log"`
	Input        InputConfig        `mapstructure:"input"`
}

// SchemaConfig locates the question graph.
type SchemaConfig struct {
	Path string `mapstructure:"path"`
}

// BackendConfig selects and tunes the generative backend.
type BackendConfig struct {
	Provider     string        `mapstructure:"provider"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Temperature  float64       `mapstructure:"temperature"`
	KeepAlive    string        `mapstructure:"keep_alive"`
	Instructions string        `mapstructure:"instructions"`
}

// ConversationConfig tunes the conversation state machine.
type ConversationConfig struct {
	Pacing time.Duration `mapstructure:"pacing"`
}

// StoreConfig selects where sessions are persisted.
type StoreConfig struct {
	Driver   string        `mapstructure:"driver"`
	DSN      string        `mapstructure:"dsn"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Dir      string        `mapstructure:"dir"`
	Prefix   string        `mapstructure:"prefix"`
	Table    string        `mapstructure:"table"`
	TTL      time.Duration `mapstructure:"ttl"`

	// Locking serializes turns across replicas. Redis only.
	Locking bool `mapstructure:"locking"`

	// EncryptionKey is a base64 AES-256 key. PreviousKeys still decrypt.
	EncryptionKey string   `mapstructure:"encryption_key"`
	PreviousKeys  []string `mapstructure:"previous_keys"`

	RedactPII   bool     `mapstructure:"redact_pii"`
	PIIPatterns []string `mapstructure:"pii_patterns"`
}

// ReportConfig selects where completed consultations are exported.
type ReportConfig struct {
	Sink      string `mapstructure:"sink"`
	Dir       string `mapstructure:"dir"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Secure    bool   `mapstructure:"secure"`
	Prefix    string `mapstructure:"prefix"`
}

// HTTPConfig configures `medley serve`.
type HTTPConfig struct {
	Addr    string `mapstructure:"addr"`
	Metrics bool   `mapstructure:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// InputConfig bounds user replies.
type InputConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Schema: SchemaConfig{Path: "data_schema.json"},
		Backend: BackendConfig{
			Provider:    ProviderOllama,
			Timeout:     60 * time.Second,
			Temperature: 0.7,
			KeepAlive:   "10m",
		},
		Conversation: ConversationConfig{Pacing: 400 * time.Millisecond},
		Store: StoreConfig{
			Driver: DriverFile,
			Dir:    ".medley/sessions",
			Addr:   "localhost:6379",
			Prefix: "medley",
		},
		Report: ReportConfig{
			Sink:   SinkNone,
			Dir:    ".medley/reports",
			Bucket: "medley-reports",
		},
		HTTP: HTTPConfig{Addr: ":8080", Metrics: true},
		Log:  LogConfig{Level: "info"},
	}
}
