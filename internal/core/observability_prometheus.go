package core

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports lifecycle metrics as Prometheus collectors.
type PrometheusMetricsRecorder struct {
	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder builds the collectors and registers them with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	rec := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "volunteercore",
				Subsystem: "lifecycle",
				Name:      "operations_total",
				Help:      "Lifecycle service operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "volunteercore",
				Subsystem: "lifecycle",
				Name:      "operation_duration_seconds",
				Help:      "Duration of lifecycle service operations.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"operation"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "volunteercore",
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Committed application status transitions.",
			},
			[]string{"from", "to"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "volunteercore",
				Subsystem: "notifications",
				Name:      "deliveries_total",
				Help:      "Notification deliveries by event and result.",
			},
			[]string{"event", "result"},
		),
	}
	for _, c := range []prometheus.Collector{rec.operations, rec.durations, rec.transitions, rec.deliveries} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register lifecycle metrics: %w", err)
		}
	}
	return rec, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveTransition implements LifecycleMetrics.
func (r *PrometheusMetricsRecorder) ObserveTransition(from, to Status) {
	r.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveDispatch implements LifecycleMetrics.
func (r *PrometheusMetricsRecorder) ObserveDispatch(event Event, delivered, failed int) {
	if delivered > 0 {
		r.deliveries.WithLabelValues(string(event), "delivered").Add(float64(delivered))
	}
	if failed > 0 {
		r.deliveries.WithLabelValues(string(event), "failed").Add(float64(failed))
	}
}
