// Package trymetrics exposes the Prometheus collectors the signaling core
// uses to make its announce loop and signaling handler observable from
// outside the process.
package trymetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Announces counts announce attempts per tracker URL, labeled by
	// outcome: "sent", "skipped" (socket CONNECTING), or "error" (dial or
	// write failure).
	Announces = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trystero",
		Subsystem: "announce",
		Name:      "total",
		Help:      "Announce attempts per tracker URL, labeled by outcome.",
	}, []string{"tracker", "outcome"})

	// AnnounceIntervalSeconds is the current (grow-only) announce interval.
	AnnounceIntervalSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trystero",
		Subsystem: "announce",
		Name:      "interval_seconds",
		Help:      "Current announce interval in seconds, adapted from tracker hints.",
	})

	// VerifyFailures counts SDP signature verification failures by reason.
	VerifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trystero",
		Subsystem: "signaling",
		Name:      "verify_failures_total",
		Help:      "SDP signature verification failures, labeled by reason.",
	}, []string{"reason"})

	// FrameErrors counts tracker frames dropped for failing to parse.
	FrameErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trystero",
		Subsystem: "signaling",
		Name:      "frame_errors_total",
		Help:      "Tracker frames dropped for failing to parse as JSON.",
	})

	// PeersConnectedTotal counts peers that completed a verified handshake.
	PeersConnectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trystero",
		Subsystem: "signaling",
		Name:      "peers_connected_total",
		Help:      "Peers that completed a verified WebRTC handshake.",
	})

	// ConnectedGauge tracks peers currently marked connected.
	ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trystero",
		Subsystem: "signaling",
		Name:      "peers_connected",
		Help:      "Peers currently marked connected for this process.",
	})
)
