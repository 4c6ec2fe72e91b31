package file

import (
	"context"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/schema"
)

// Loader reads the schema document from disk on every Load,
// so edits are picked up by conversations started afterwards.
type Loader struct {
	Path string
}

// NewLoader creates a Loader for a JSON or YAML schema file.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// Load parses and indexes the schema file.
func (l *Loader) Load(ctx context.Context) (*domain.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return schema.Load(l.Path)
}
