package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the agent's own operational metrics. All vectors are
// labeled with the device host tag.
type Metrics struct {
	Cycles           *prometheus.CounterVec
	CycleDuration    *prometheus.HistogramVec
	PointsEmitted    *prometheus.CounterVec
	ReadErrors       *prometheus.CounterVec
	ConversionErrors *prometheus.CounterVec
	Reconnects       *prometheus.CounterVec
}

// New registers the agent metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Cycles: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_cycles_total",
				Help: "Completed collection cycles per device",
			},
			[]string{"device"},
		),
		CycleDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_cycle_duration_seconds",
				Help:    "Duration of one collection cycle",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"device"},
		),
		PointsEmitted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_points_total",
				Help: "Metric points handed to the sink",
			},
			[]string{"device"},
		),
		ReadErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_read_errors_total",
				Help: "Collection cycles aborted by a device error",
			},
			[]string{"device"},
		),
		ConversionErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_conversion_errors_total",
				Help: "Metric points dropped because a raw value was outside the conversion domain",
			},
			[]string{"device"},
		),
		Reconnects: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_reconnects_total",
				Help: "Device reinitializations after invalid data",
			},
			[]string{"device"},
		),
	}
}
