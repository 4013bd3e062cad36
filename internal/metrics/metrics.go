package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels stay low-cardinality: store paths and fixed result names only.

var (
	// SnapshotsTotal counts snapshots delivered to subscribers, per store path
	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seizowatch_snapshots_total",
			Help: "Total snapshots received from the remote store",
		},
		[]string{"path"},
	)

	SubscriptionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seizowatch_subscription_errors_total",
			Help: "Total subscription errors reported by the remote store",
		},
		[]string{"path"},
	)

	// Events is the size of the latest event collection
	Events = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seizowatch_events",
			Help: "Number of seizure events in the latest snapshot",
		},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seizowatch_alerts_total",
			Help: "Alert dispatch outcomes",
		},
		[]string{"result"}, // sent, failed, skipped
	)

	// CameraRunning is 1 while the capture pipeline reports running
	CameraRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seizowatch_camera_running",
			Help: "Camera pipeline state (1=running, 0=stopped)",
		},
	)
)

func RecordSnapshot(path string) {
	SnapshotsTotal.WithLabelValues(path).Inc()
}

func RecordSubscriptionError(path string) {
	SubscriptionErrorsTotal.WithLabelValues(path).Inc()
}

func SetEventCount(n int) {
	Events.Set(float64(n))
}

func RecordAlert(result string) {
	AlertsTotal.WithLabelValues(result).Inc()
}

func SetCameraRunning(running bool) {
	if running {
		CameraRunning.Set(1)
	} else {
		CameraRunning.Set(0)
	}
}
