package dsl

import (
	"fmt"

	"github.com/Chuabacca/Medley-AI/pkg/adapters/memory"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/schema"
)

// Builder manages the schema construction.
type Builder struct {
	version   string
	first     string
	order     []string
	questions map[string]*QuestionBuilder
}

// New creates a new schema builder.
func New(version string) *Builder {
	return &Builder{
		version:   version,
		questions: make(map[string]*QuestionBuilder),
	}
}

// Start sets the entry question. It defaults to the first question added.
func (b *Builder) Start(id string) *Builder {
	b.first = id
	return b
}

// Add creates a new question in the schema.
// If the question already exists, it returns the existing builder.
func (b *Builder) Add(id string) *QuestionBuilder {
	if qb, ok := b.questions[id]; ok {
		return qb
	}
	qb := &QuestionBuilder{
		question: domain.Question{
			ID:   id,
			Type: domain.QuestionFreeText,
		},
		builder: b,
	}
	b.questions[id] = qb
	b.order = append(b.order, id)
	return qb
}

// Schema returns the schema in insertion order without validating it.
func (b *Builder) Schema() *domain.Schema {
	questions := make([]domain.Question, 0, len(b.order))
	for _, id := range b.order {
		questions = append(questions, b.questions[id].Build())
	}

	first := b.first
	if first == "" && len(b.order) > 0 {
		first = b.order[0]
	}
	return domain.NewSchema(b.version, first, questions...)
}

// Build validates the schema and wraps it in a memory loader.
func (b *Builder) Build() (*memory.Loader, error) {
	s := b.Schema()
	if err := schema.Validate(s); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return memory.NewLoader(s), nil
}
