// Package metrics exposes Prometheus instrumentation for the synchronizer
// and session. Grounded on psubacz-dungeongate/pkg/metrics/prometheus.go,
// which is the only repo in the example pack with a dedicated metrics
// package (NewServiceMetrics(namespace) registering a struct of
// promauto-built collectors).
//
// A nil *Recorder is a valid, no-op recorder throughout this module, so
// mounting Prometheus is never mandatory for an embedder of the core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds every collector the synchronizer and session report to.
type Recorder struct {
	rollbacksTotal          prometheus.Counter
	rollbackDepthFrames     prometheus.Histogram
	predictionBarrierTrips  prometheus.Counter
	savedStateRingOccupancy prometheus.Gauge
	peerDisconnectsTotal    *prometheus.CounterVec
}

// NewRecorder registers a full set of collectors under namespace and
// returns a Recorder that reports to them.
func NewRecorder(namespace string) *Recorder {
	return &Recorder{
		rollbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollbacks_total",
			Help:      "Number of rollbacks performed by the synchronizer.",
		}),
		rollbackDepthFrames: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rollback_depth_frames",
			Help:      "Number of frames replayed per rollback.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
		predictionBarrierTrips: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_barrier_trips_total",
			Help:      "Number of times a local input was rejected by the prediction barrier.",
		}),
		savedStateRingOccupancy: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "saved_state_ring_occupancy",
			Help:      "Current number of snapshots retained in the saved-state ring.",
		}),
		peerDisconnectsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_disconnects_total",
			Help:      "Number of times a remote peer was marked disconnected.",
		}, []string{"peer"}),
	}
}

// RecordRollback reports one rollback of the given depth in frames.
func (r *Recorder) RecordRollback(depthFrames uint32) {
	if r == nil {
		return
	}
	r.rollbacksTotal.Inc()
	r.rollbackDepthFrames.Observe(float64(depthFrames))
}

// PredictionBarrierTrip reports one rejected local input.
func (r *Recorder) PredictionBarrierTrip() {
	if r == nil {
		return
	}
	r.predictionBarrierTrips.Inc()
}

// SetRingOccupancy reports the saved-state ring's current size.
func (r *Recorder) SetRingOccupancy(n int) {
	if r == nil {
		return
	}
	r.savedStateRingOccupancy.Set(float64(n))
}

// PeerDisconnected reports that peer was marked disconnected.
func (r *Recorder) PeerDisconnected(peer string) {
	if r == nil {
		return
	}
	r.peerDisconnectsTotal.WithLabelValues(peer).Inc()
}

// Serve starts a blocking HTTP server exposing /metrics on addr. Callers
// that want it in the background should run it in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
