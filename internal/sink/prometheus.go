package sink

import (
	"context"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fritz-collector/internal/fritz"
)

var promLabels = []string{"host", "instance", "type"}

// Prometheus exposes the most recent batch per host as gauges on the
// agent's /metrics endpoint. Metric names are derived from the point
// suffixes ("fritzbox_sendrate", ...), so the set of series follows the
// filtered schema.
type Prometheus struct {
	mu      sync.RWMutex
	batches map[string]fritz.Batch // keyed by host tag
}

func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	s := &Prometheus{batches: make(map[string]fritz.Batch)}
	if err := reg.Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Prometheus) Write(_ context.Context, batch fritz.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.Tags["host"]] = batch
	return nil
}

func (s *Prometheus) Close() error { return nil }

// Describe sends nothing: the metric set is dynamic, so the collector
// is registered unchecked.
func (s *Prometheus) Describe(chan<- *prometheus.Desc) {}

func (s *Prometheus) Collect(ch chan<- prometheus.Metric) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for host, batch := range s.batches {
		for key, pt := range batch.Points {
			desc := prometheus.NewDesc(
				"fritzbox_"+sanitizeName(key.Suffix),
				"Reading republished from the device",
				promLabels, nil,
			)
			m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, pt.Value,
				host, key.Instance, pt.Type)
			if err != nil {
				continue
			}
			ch <- prometheus.NewMetricWithTimestamp(batch.Time, m)
		}
	}
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
