package observability

import (
	"context"
	"log/slog"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
)

// LogHooks writes one structured record per lifecycle event.
// Answer values are not logged; they may contain patient data.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn_start",
				"session_id", e.SessionID,
				"turn", e.Kind,
				"question_id", e.QuestionID,
			)
		},
		OnTurnComplete: func(ctx context.Context, e *domain.TurnEvent) {
			level := slog.LevelInfo
			if e.Fallback {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "turn_complete",
				"session_id", e.SessionID,
				"turn", e.Kind,
				"question_id", e.QuestionID,
				"fallback", e.Fallback,
				"duration", e.Duration,
			)
		},
		OnAnswerMapped: func(ctx context.Context, e *domain.AnswerEvent) {
			logger.InfoContext(ctx, "answer_mapped",
				"session_id", e.SessionID,
				"question_id", e.Answer.KeyPath,
				"applied", e.Applied,
			)
		},
		OnAdvance: func(ctx context.Context, e *domain.AdvanceEvent) {
			logger.InfoContext(ctx, "advance",
				"session_id", e.SessionID,
				"from", e.FromQuestionID,
				"to", e.ToQuestionID,
				"status", e.Status,
			)
		},
		OnComplete: func(ctx context.Context, e *domain.CompleteEvent) {
			logger.InfoContext(ctx, "consultation_complete",
				"session_id", e.SessionID,
				"schema_version", e.SchemaVersion,
				"fields", len(e.Data.Fields()),
			)
		},
	}
}
