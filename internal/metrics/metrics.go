package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gokatarajesh/quizbot/internal/session"
)

const namespace = "quizbot"

// Sessions records session lifecycle events as Prometheus series.
type Sessions struct {
	started prometheus.Counter
	ended   *prometheus.CounterVec
	answers *prometheus.CounterVec
	active  prometheus.Gauge
}

var _ session.Observer = (*Sessions)(nil)

// NewSessions registers the session collectors on reg.
func NewSessions(reg prometheus.Registerer) *Sessions {
	m := &Sessions{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Quiz sessions started.",
		}),
		ended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Quiz sessions ended, by reason.",
		}, []string{"reason"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Scored questions, by outcome.",
		}, []string{"outcome"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently running.",
		}),
	}
	reg.MustRegister(m.started, m.ended, m.answers, m.active)
	return m
}

func (m *Sessions) SessionStarted() {
	m.started.Inc()
	m.active.Inc()
}

func (m *Sessions) SessionEnded(reason string) {
	m.ended.WithLabelValues(reason).Inc()
	m.active.Dec()
}

func (m *Sessions) AnswerRecorded(outcome session.Outcome) {
	m.answers.WithLabelValues(string(outcome)).Inc()
}
