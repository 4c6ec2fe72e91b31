package file

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/Chuabacca/Medley-AI/pkg/ports"
)

// DefaultReportDir is used when NewSink receives an empty path.
var DefaultReportDir = filepath.Join(".medley", "reports")

// Sink writes completed consultations as <session_id>.json.
type Sink struct {
	Dir string
}

// NewSink creates a report Sink rooted at dir.
func NewSink(dir string) *Sink {
	if dir == "" {
		dir = DefaultReportDir
	}
	return &Sink{Dir: dir}
}

// Publish writes the report, replacing an earlier one for the same session.
func (s *Sink) Publish(ctx context.Context, report ports.Report) error {
	if report.SessionID == "" {
		return fmt.Errorf("report has no session id")
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	dest := filepath.Join(s.Dir, filepath.Base(report.SessionID)+".json")
	return writeAtomic(s.Dir, dest, "tmp-report-*.json", data)
}
