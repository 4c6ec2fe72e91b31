package file_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Chuabacca/Medley-AI/pkg/adapters/file"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.ReportSink = (*file.Sink)(nil)

func TestSink_Publish(t *testing.T) {
	dir := t.TempDir()
	sink := file.NewSink(dir)

	data := domain.NewStructuredConsult()
	data.Apply(domain.MappedAnswer{KeyPath: domain.FieldHairLossLocation, ValueID: "crown"})

	report := ports.Report{
		SessionID:     "s1",
		SchemaVersion: "1.0",
		CompletedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Data:          data,
	}
	require.NoError(t, sink.Publish(context.Background(), report))

	raw, err := os.ReadFile(filepath.Join(dir, "s1.json"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "s1", decoded["session_id"])
	assert.Equal(t, map[string]any{
		"hair_loss_location": "crown",
		"treatment_goals":    []any{},
	}, decoded["data"])
}

func TestSink_RequiresSessionID(t *testing.T) {
	err := file.NewSink(t.TempDir()).Publish(context.Background(), ports.Report{})
	assert.Error(t, err)
}
