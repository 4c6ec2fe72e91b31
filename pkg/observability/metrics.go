package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medley"

// Metrics holds the consultation collectors.
type Metrics struct {
	Turns        *prometheus.CounterVec
	TurnDuration *prometheus.HistogramVec
	Answers      *prometheus.CounterVec
	Advances     *prometheus.CounterVec
	Completed    prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Generated turns by kind and whether the fallback text was used.",
			},
			[]string{"kind", "fallback"},
		),
		TurnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Time from the first streamed token to the terminal event.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"kind"},
		),
		Answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Mapped answers by question and whether a result field received them.",
			},
			[]string{"question_id", "applied"},
		),
		Advances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "advances_total",
				Help:      "Moves through the question graph by resulting status.",
			},
			[]string{"status"},
		),
		Completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consultations_completed_total",
			Help:      "Consultations that reached a completion sentinel.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.Turns, m.TurnDuration, m.Answers, m.Advances, m.Completed)
	return m
}

// Hooks records every event into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnComplete: func(_ context.Context, e *domain.TurnEvent) {
			kind := string(e.Kind)
			m.Turns.WithLabelValues(kind, strconv.FormatBool(e.Fallback)).Inc()
			m.TurnDuration.WithLabelValues(kind).Observe(e.Duration.Seconds())
		},
		OnAnswerMapped: func(_ context.Context, e *domain.AnswerEvent) {
			m.Answers.WithLabelValues(e.Answer.KeyPath, strconv.FormatBool(e.Applied)).Inc()
		},
		OnAdvance: func(_ context.Context, e *domain.AdvanceEvent) {
			m.Advances.WithLabelValues(string(e.Status)).Inc()
		},
		OnComplete: func(context.Context, *domain.CompleteEvent) {
			m.Completed.Inc()
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
