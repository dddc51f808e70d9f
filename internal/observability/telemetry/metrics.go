package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	VoiceTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxbank_voice_turns_total",
		Help: "Total voice turns processed",
	}, []string{"status"})

	VoiceTurnLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxbank_voice_turn_latency_seconds",
		Help:    "End to end latency of a voice turn",
		Buckets: prometheus.DefBuckets,
	})

	AuthorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxbank_authorizations_total",
		Help: "Total authorization sessions completed",
	}, []string{"action", "status"})

	SlotsReconciledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxbank_slots_reconciled_total",
		Help: "Total recognized slots applied to forms",
	})

	// Infrastructure metrics
	RealtimeReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxbank_realtime_reconnects_total",
		Help: "Total reconnect attempts of the realtime channel",
	})

	RealtimeFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxbank_realtime_frames_total",
		Help: "Total frames over the realtime channel",
	}, []string{"direction"})
)
