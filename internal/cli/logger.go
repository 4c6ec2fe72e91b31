package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/Chuabacca/Medley-AI/internal/config"
	"github.com/Chuabacca/Medley-AI/internal/logging"
)

// LogMode selects how a command logs.
type LogMode int

const (
	// LogInteractive is for commands whose stdout is the conversation.
	// Records are dropped unless debug is on.
	LogInteractive LogMode = iota
	// LogServer emits JSON records on stderr.
	LogServer
)

// NewLogger configures the application logger.
// A log file in cfg always wins and is rotated; the closer is nil otherwise.
func NewLogger(cfg config.LogConfig, debug bool, mode LogMode) (*slog.Logger, io.Closer) {
	level := logging.ParseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}

	switch {
	case cfg.File != "":
		return logging.NewRotating(cfg.File, level)
	case mode == LogServer:
		return logging.NewJSON(os.Stderr, level), nil
	case debug:
		// Stderr keeps debug records apart from the chat on stdout.
		return logging.New(level), nil
	default:
		return logging.NewNop(), nil
	}
}
