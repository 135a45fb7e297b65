// Package telemetry holds the prometheus metrics and opentelemetry
// tracing shared by panels, bindings and the gateway.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultDiscarded = "discarded"
)

var (
	metricRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panelsync",
		Name:      "refreshes_total",
		Help:      "Output refreshes by result.",
	}, []string{"result"})
	metricRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "panelsync",
		Name:      "refresh_duration_seconds",
		Help:      "Time from widget fetch to committed outputs.",
		Buckets:   prometheus.DefBuckets,
	})
	metricCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panelsync",
		Name:      "refresh_requests_coalesced_total",
		Help:      "Refresh requests folded into a pending refresh.",
	})
	metricWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panelsync",
		Name:      "input_writes_total",
		Help:      "Remote input writes by result.",
	}, []string{"result"})
	metricWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "panelsync",
		Name:      "input_write_duration_seconds",
		Help:      "Latency of remote input writes.",
		Buckets:   prometheus.DefBuckets,
	})
	metricOutputOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panelsync",
		Name:      "output_opens_total",
		Help:      "Output panel open requests by result.",
	}, []string{"result"})
	metricRevisionChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panelsync",
		Name:      "revision_notifications_total",
		Help:      "Revision source change notifications observed.",
	})
	metricPanelsMounted = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "panelsync",
		Name:      "panels_mounted",
		Help:      "Interactive panels currently mounted.",
	})
)

// RecordRefresh counts a finished refresh.
func RecordRefresh(result string, elapsed time.Duration) {
	metricRefreshes.WithLabelValues(result).Inc()
	if result != ResultDiscarded {
		metricRefreshDuration.Observe(elapsed.Seconds())
	}
}

// RecordCoalesced counts a refresh request absorbed by the pending flag.
func RecordCoalesced() {
	metricCoalesced.Inc()
}

// RecordWrite counts a finished input write.
func RecordWrite(result string, elapsed time.Duration) {
	metricWrites.WithLabelValues(result).Inc()
	metricWriteDuration.Observe(elapsed.Seconds())
}

// RecordOutputOpen counts an output panel open request.
func RecordOutputOpen(result string) {
	metricOutputOpens.WithLabelValues(result).Inc()
}

// RecordRevisionChange counts a revision notification.
func RecordRevisionChange() {
	metricRevisionChanges.Inc()
}

// PanelMounted adjusts the mounted panel gauge.
func PanelMounted(delta int) {
	metricPanelsMounted.Add(float64(delta))
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
