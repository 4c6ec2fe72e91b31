package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Chuabacca/Medley-AI/internal/logging"
	"github.com/Chuabacca/Medley-AI/pkg/persistence/middleware"
)

// ErrInvalidValue indicates a field has an invalid value.
var ErrInvalidValue = errors.New("invalid field value")

// FieldError locates an invalid setting.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(field, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, &FieldError{
				Field: field,
				Err:   fmt.Errorf("%w %q, want one of %s", ErrInvalidValue, value, strings.Join(allowed, ", ")),
			})
		}
	}
	invalid := func(field, format string, args ...any) {
		errs = append(errs, &FieldError{Field: field, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidValue}, args...)...)})
	}

	oneOf("backend.provider", c.Backend.Provider, ProviderOllama, ProviderOpenAI, ProviderScripted)
	oneOf("store.driver", c.Store.Driver, DriverMemory, DriverFile, DriverRedis, DriverSQLite, DriverPostgres)
	oneOf("report.sink", c.Report.Sink, SinkNone, SinkFile, SinkMinio)
	if _, ok := logging.LookupLevel(c.Log.Level); !ok {
		invalid("log.level", "unknown level %q", c.Log.Level)
	}

	if c.Backend.Provider == ProviderOpenAI && c.Backend.APIKey == "" {
		invalid("backend.api_key", "required for provider %s", ProviderOpenAI)
	}
	if c.Backend.Temperature < 0 || c.Backend.Temperature > 2 {
		invalid("backend.temperature", "%v is outside [0, 2]", c.Backend.Temperature)
	}
	if c.Backend.Timeout < 0 {
		invalid("backend.timeout", "must not be negative")
	}
	if c.Conversation.Pacing < 0 {
		invalid("conversation.pacing", "must not be negative")
	}
	if c.Store.Driver == DriverPostgres && c.Store.DSN == "" {
		invalid("store.dsn", "required for driver %s", DriverPostgres)
	}
	if c.Store.Locking && c.Store.Driver != DriverRedis {
		invalid("store.locking", "requires driver %s", DriverRedis)
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Store.EncryptionKey); err != nil {
			errs = append(errs, &FieldError{Field: "store.encryption_key", Err: err})
		}
	}
	for i, k := range c.Store.PreviousKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			errs = append(errs, &FieldError{Field: fmt.Sprintf("store.previous_keys[%d]", i), Err: err})
		}
	}
	if c.Report.Sink == SinkMinio && c.Report.Endpoint == "" {
		invalid("report.endpoint", "required for sink %s", SinkMinio)
	}
	if c.Input.MaxSize < 0 {
		invalid("input.max_size", "must not be negative")
	}

	return errors.Join(errs...)
}
