// Package sink provides the metric sinks a collection batch can be
// published to. The sink is selected by configuration (or the --sink
// flag).
package sink

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fritz-collector/config"
	"github.com/fritz-collector/internal/fritz"
)

// Sink extends the collector's write seam with resource release.
type Sink interface {
	fritz.Sink
	Close() error
}

// New builds the configured sink. The prometheus sink registers itself
// with reg.
func New(cfg config.SinkConfig, reg prometheus.Registerer, log *zap.Logger) (Sink, error) {
	switch cfg.Type {
	case "influx":
		return NewInflux(cfg.Influx), nil
	case "prometheus":
		return NewPrometheus(reg)
	case "stdout":
		return NewStdout(log), nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}
