// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pollsurvey"

// Outcome labels for ledger writes.
const (
	OutcomeCreated   = "created"
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

var (
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of requests currently being processed",
		},
	)

	PollVotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "poll_votes_total",
			Help:      "Poll vote attempts by outcome",
		},
		[]string{"outcome"},
	)
	VoteRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "poll_vote_retries_total",
			Help:      "Poll votes retried after losing a concurrent write",
		},
	)
	SurveySubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "survey_submissions_total",
			Help:      "Survey submissions by outcome",
		},
		[]string{"outcome"},
	)
)

// Middleware records count, latency and in-flight requests per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		RequestCounter.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}
