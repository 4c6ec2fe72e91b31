package ports

import (
	"context"
	"time"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// Report is the exported record of a completed consultation.
type Report struct {
	SessionID     string                   `json:"session_id"`
	SchemaVersion string                   `json:"schema_version,omitempty"`
	CompletedAt   time.Time                `json:"completed_at"`
	Data          domain.StructuredConsult `json:"data"`
	Transcript    []domain.ChatMessage     `json:"transcript,omitempty"`
}

// ReportSink receives completed consultations.
type ReportSink interface {
	Publish(ctx context.Context, report Report) error
}
