package sink

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/fritz-collector/config"
	"github.com/fritz-collector/internal/fritz"
)

const measurement = "fritzbox"

// Influx publishes batches to InfluxDB, one point per metric point,
// tagged with host, instance and the semantic type.
type Influx struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

func NewInflux(cfg config.InfluxConfig) *Influx {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Influx{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

func (s *Influx) Write(ctx context.Context, batch fritz.Batch) error {
	points := make([]*write.Point, 0, len(batch.Points))
	for key, pt := range batch.Points {
		tags := map[string]string{
			"instance": key.Instance,
			"type":     pt.Type,
		}
		for k, v := range batch.Tags {
			tags[k] = v
		}
		points = append(points, influxdb2.NewPoint(
			measurement,
			tags,
			map[string]any{key.Suffix: pt.Value},
			batch.Time,
		))
	}
	if len(points) == 0 {
		return nil
	}
	if err := s.write.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

func (s *Influx) Close() error {
	s.client.Close()
	return nil
}
