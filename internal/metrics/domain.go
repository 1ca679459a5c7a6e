package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "questions_served_total",
		Help:      "Questions handed to candidates, by source",
	}, []string{"source"})

	QuestionFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "question_fetch_failures_total",
		Help:      "Failed attempts to obtain the next question",
	})

	AnswersRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_recorded_total",
		Help:      "Answers recorded, by kind (typed or timeout)",
	}, []string{"kind"})

	InterviewsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interviews_completed_total",
		Help:      "Completed interviews, by summary outcome",
	}, []string{"outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Interview controllers currently held in memory",
	})

	OutboxFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_failures_total",
		Help:      "Candidate writes that failed to reach the document store",
	})

	OutboxRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_retries_total",
		Help:      "Outbox entries re-driven by the retry job, by result",
	}, []string{"result"})

	OutboxPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_pending",
		Help:      "Candidate writes waiting in the outbox",
	})
)

const (
	AnswerTyped   = "typed"
	AnswerTimeout = "timeout"

	OutcomeScored   = "scored"
	OutcomeFallback = "fallback"
)
