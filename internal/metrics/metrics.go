// Package metrics exposes prometheus counters for playback and history activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playbackAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onetap_playback_attempts_total",
		Help: "Playback start attempts by show and result",
	}, []string{"show", "result"}) // result=success|failure

	playbackOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onetap_playback_outcomes_total",
		Help: "Terminal playback session outcomes by show",
	}, []string{"show", "outcome"}) // outcome=played|exhausted|aborted

	historyWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onetap_history_writes_total",
		Help: "History store mutations by operation and result",
	}, []string{"op", "result"}) // op=append|remove_last|purge

	autoAdvanceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onetap_auto_advance_events_total",
		Help: "Transport events handled by the auto-advance controller",
	}, []string{"event"})

	candidatesGenerated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "onetap_candidates_generated",
		Help:    "Length of generated candidate lists",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordAttempt counts one playback start attempt.
func RecordAttempt(showID string, ok bool) {
	playbackAttempts.WithLabelValues(showID, resultLabel(ok)).Inc()
}

// RecordOutcome counts one terminal session outcome.
func RecordOutcome(showID, outcome string) {
	playbackOutcomes.WithLabelValues(showID, outcome).Inc()
}

// RecordHistoryWrite counts one history mutation.
func RecordHistoryWrite(op string, ok bool) {
	historyWrites.WithLabelValues(op, resultLabel(ok)).Inc()
}

// RecordAutoAdvanceEvent counts one event seen by the controller.
func RecordAutoAdvanceEvent(event string) {
	autoAdvanceEvents.WithLabelValues(event).Inc()
}

// ObserveCandidates records the size of a candidate list.
func ObserveCandidates(n int) {
	candidatesGenerated.Observe(float64(n))
}
