package ports

import (
	"context"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// SchemaLoader defines how the engine retrieves the question graph.
// This allows the source (file, memory, embedded) to be decoupled.
type SchemaLoader interface {
	// Load returns an indexed schema.
	Load(ctx context.Context) (*domain.Schema, error)
}
