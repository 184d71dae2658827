package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/fritz-collector/internal/fritz"
)

// Stdout logs every point instead of publishing it. Useful for dry
// runs and schema debugging.
type Stdout struct {
	log *zap.Logger
}

func NewStdout(log *zap.Logger) *Stdout {
	return &Stdout{log: log}
}

func (s *Stdout) Write(_ context.Context, batch fritz.Batch) error {
	for key, pt := range batch.Points {
		s.log.Info("point",
			zap.String("host", batch.Tags["host"]),
			zap.String("instance", key.Instance),
			zap.String("suffix", key.Suffix),
			zap.String("type", pt.Type),
			zap.Float64("value", pt.Value),
			zap.Time("time", batch.Time))
	}
	return nil
}

func (s *Stdout) Close() error { return nil }
