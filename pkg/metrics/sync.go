package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records reconciler drain outcomes.
type SyncMetrics struct {
	drainDuration *prometheus.HistogramVec
	drained       *prometheus.CounterVec
	retried       *prometheus.CounterVec
	rejected      *prometheus.CounterVec
}

// NewSyncMetrics registers the reconciler metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	drainDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_drain_duration_seconds",
		Help:    "Duration of sync queue drain cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity_type"})
	drained := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_entries_drained",
		Help: "Queue entries applied to the remote store.",
	}, []string{"entity_type", "action"})
	retried := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_entries_retried",
		Help: "Queue entries left queued after a transient failure.",
	}, []string{"entity_type"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_entries_rejected",
		Help: "Queue entries rejected permanently by the remote store.",
	}, []string{"entity_type"})
	reg.MustRegister(drainDuration, drained, retried, rejected)
	return &SyncMetrics{
		drainDuration: drainDuration,
		drained:       drained,
		retried:       retried,
		rejected:      rejected,
	}
}

// ObserveDrain records the duration of a drain pass for an entity type.
func (s *SyncMetrics) ObserveDrain(entityType string, duration time.Duration) {
	if s == nil || s.drainDuration == nil {
		return
	}
	s.drainDuration.WithLabelValues(normalizeLabel(entityType)).Observe(duration.Seconds())
}

// IncDrained increments the applied-entry counter.
func (s *SyncMetrics) IncDrained(entityType, action string) {
	if s == nil || s.drained == nil {
		return
	}
	s.drained.WithLabelValues(normalizeLabel(entityType), normalizeLabel(action)).Inc()
}

// IncRetried increments the transient-failure counter.
func (s *SyncMetrics) IncRetried(entityType string) {
	if s == nil || s.retried == nil {
		return
	}
	s.retried.WithLabelValues(normalizeLabel(entityType)).Inc()
}

// IncRejected increments the permanent-failure counter.
func (s *SyncMetrics) IncRejected(entityType string) {
	if s == nil || s.rejected == nil {
		return
	}
	s.rejected.WithLabelValues(normalizeLabel(entityType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
