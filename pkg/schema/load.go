package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a schema document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the format from the file extension. Unknown extensions are JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes and indexes a schema document.
func Parse(data []byte, format Format) (*domain.Schema, error) {
	var s domain.Schema
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to decode yaml schema: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to decode json schema: %w", err)
		}
	}
	s.Reindex()
	return &s, nil
}

// Load reads and parses the schema document at path.
func Load(path string) (*domain.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return Parse(data, FormatFromPath(path))
}

// LoadOrEmpty behaves like Load but degrades to an empty schema on any failure.
func LoadOrEmpty(path string, logger *slog.Logger) *domain.Schema {
	s, err := Load(path)
	if err != nil {
		if logger != nil {
			logger.Warn("Schema unavailable, continuing with an empty schema", "path", path, "err", err)
		}
		return domain.EmptySchema()
	}
	return s
}
