package memory

import (
	"context"
	"fmt"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// Loader implements ports.SchemaLoader over a schema held in memory.
type Loader struct {
	schema *domain.Schema
}

// NewLoader wraps an already built schema.
func NewLoader(s *domain.Schema) *Loader {
	if s == nil {
		s = domain.EmptySchema()
	}
	return &Loader{schema: s}
}

// NewFromQuestions builds a schema from domain objects.
// This improves DX for tests and embedded flows.
func NewFromQuestions(version, firstQuestionID string, questions ...domain.Question) (*Loader, error) {
	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d missing ID", i)
		}
	}
	return NewLoader(domain.NewSchema(version, firstQuestionID, questions...)), nil
}

// Load returns the schema. It is shared, and callers must treat it as read-only.
func (l *Loader) Load(ctx context.Context) (*domain.Schema, error) {
	return l.schema, nil
}
