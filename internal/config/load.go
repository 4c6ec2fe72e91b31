package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var (
	// ErrConfigNotFound indicates an explicitly named file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidYAML indicates YAML parsing failed.
	ErrInvalidYAML = errors.New("invalid YAML syntax")
)

// EnvPrefix starts every environment override.
const EnvPrefix = "MEDLEY_"

// envKeys maps environment variables to config keys.
var envKeys = map[string]string{
	"MEDLEY_SCHEMA":           "schema.path",
	"MEDLEY_BACKEND":          "backend.provider",
	"MEDLEY_BACKEND_URL":      "backend.base_url",
	"MEDLEY_MODEL":            "backend.model",
	"MEDLEY_API_KEY":          "backend.api_key",
	"MEDLEY_BACKEND_TIMEOUT":  "backend.timeout",
	"MEDLEY_TEMPERATURE":      "backend.temperature",
	"MEDLEY_PACING":           "conversation.pacing",
	"MEDLEY_STORE":            "store.driver",
	"MEDLEY_STORE_DSN":        "store.dsn",
	"MEDLEY_STORE_DIR":        "store.dir",
	"MEDLEY_STORE_TTL":        "store.ttl",
	"MEDLEY_REDIS_ADDR":       "store.addr",
	"MEDLEY_REDIS_PASSWORD":   "store.password",
	"MEDLEY_REDIS_DB":         "store.db",
	"MEDLEY_LOCKING":          "store.locking",
	"MEDLEY_ENCRYPTION_KEY":   "store.encryption_key",
	"MEDLEY_PREVIOUS_KEYS":    "store.previous_keys",
	"MEDLEY_REDACT_PII":       "store.redact_pii",
	"MEDLEY_REPORT_SINK":      "report.sink",
	"MEDLEY_REPORT_DIR":       "report.dir",
	"MEDLEY_MINIO_ENDPOINT":   "report.endpoint",
	"MEDLEY_MINIO_BUCKET":     "report.bucket",
	"MEDLEY_MINIO_ACCESS_KEY": "report.access_key",
	"MEDLEY_MINIO_SECRET_KEY": "report.secret_key",
	"MEDLEY_MINIO_SECURE":     "report.secure",
	"MEDLEY_HTTP_ADDR":        "http.addr",
	"MEDLEY_METRICS":          "http.metrics",
	"MEDLEY_LOG_LEVEL":        "log.level",
	"MEDLEY_LOG_FILE":         "log.file",
	"MEDLEY_MAX_INPUT_SIZE":   "input.max_size",
}

// Load builds the configuration from defaults, the YAML file at path, the .env
// file in the working directory and the environment.
// An empty path reads DefaultFile when it exists.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.merge(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// merge decodes a YAML document over cfg. ${VAR} references are expanded first.
func (c *Config) merge(data []byte) error {
	expanded := ExpandEnv(string(data))

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return c.decode(raw, true)
}

// ApplyEnv overrides settings from MEDLEY_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	raw := make(map[string]any)
	for env, key := range envKeys {
		v, ok := lookup(env)
		if !ok || v == "" {
			continue
		}
		group, field, _ := strings.Cut(key, ".")
		section, _ := raw[group].(map[string]any)
		if section == nil {
			section = make(map[string]any)
			raw[group] = section
		}
		section[field] = v
	}
	if len(raw) == 0 {
		return nil
	}
	if err := c.decode(raw, false); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

func (c *Config) decode(raw map[string]any, strict bool) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// ExpandEnv replaces ${VAR} and $VAR with environment values.
// Unset variables expand to the empty string; "$$" yields a literal "$".
func ExpandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		return os.Getenv(name)
	})
}
