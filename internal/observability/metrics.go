// Package observability exposes prometheus metrics for the check-in
// pipeline.
package observability

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	remindersSentCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quarterlog",
		Subsystem: "broadcast",
		Name:      "reminders_sent_total",
		Help:      "Check-in prompts successfully handed to the SMS provider.",
	})
	remindersFailedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quarterlog",
		Subsystem: "broadcast",
		Name:      "reminders_failed_total",
		Help:      "Check-in prompts the SMS provider rejected or that never reached it.",
	})
	repliesProcessedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quarterlog",
		Subsystem: "inbound",
		Name:      "replies_processed_total",
		Help:      "Inbound replies correlated to a slot and stored.",
	})
	repliesFailedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quarterlog",
		Subsystem: "inbound",
		Name:      "replies_failed_total",
		Help:      "Inbound replies that could not be stored.",
	})
	registrationsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quarterlog",
		Subsystem: "registry",
		Name:      "registrations_total",
		Help:      "Subscriber registrations, explicit and auto-onboarded.",
	})
)

func init() {
	prometheus.MustRegister(
		remindersSentCounter,
		remindersFailedCounter,
		repliesProcessedCounter,
		repliesFailedCounter,
		registrationsCounter,
	)
}

// RecordReminderSent counts one prompt accepted by the provider.
func RecordReminderSent() { remindersSentCounter.Inc() }

// RecordReminderFailed counts one prompt that failed to send.
func RecordReminderFailed() { remindersFailedCounter.Inc() }

// RecordReplyProcessed counts one stored inbound reply.
func RecordReplyProcessed() { repliesProcessedCounter.Inc() }

// RecordReplyFailed counts one inbound reply that was not stored.
func RecordReplyFailed() { repliesFailedCounter.Inc() }

// RecordRegistration counts one subscriber registration.
func RecordRegistration() { registrationsCounter.Inc() }

// ServeMetrics runs a dedicated metrics listener. It blocks, so callers
// run it on its own goroutine; errors other than a clean close are
// returned.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("[Metrics] Listening on %s", addr)
	err := http.ListenAndServe(addr, mux)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
