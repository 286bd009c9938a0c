// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	VoiceCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_voice_commands_total",
		Help: "Voice and text commands processed, by intent and outcome",
	}, []string{"intent", "status"})

	VoiceCorrectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_voice_corrections_total",
		Help: "Commands re-executed after a correction",
	})

	TranscriptionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_transcription_failures_total",
		Help: "Failed transcriptions, by kind",
	}, []string{"kind"})

	VoiceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_voice_latency_seconds",
		Help:    "End-to-end latency of a voice submission",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_http_requests_total",
		Help: "HTTP requests, by method and status code",
	}, []string{"method", "code"})
)

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// ObserveCommand counts one dispatched command.
func ObserveCommand(intent string, success bool) {
	status := StatusFailure
	if success {
		status = StatusSuccess
	}
	VoiceCommandsTotal.WithLabelValues(intent, status).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
