package sink

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fritz-collector/config"
	"github.com/fritz-collector/internal/fritz"
)

func testBatch(host string) fritz.Batch {
	return fritz.Batch{
		Time: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Tags: map[string]string{"host": host},
		Points: fritz.PointSet{
			{Instance: "", Suffix: "uptime"}:               {Type: "uptime", Value: 120},
			{Instance: "house-dect0", Suffix: "sendrate"}:  {Type: "bitrate", Value: 800},
			{Instance: "house-dect0", Suffix: "lan/bytes"}: {Type: "bytes", Value: 42},
		},
	}
}

func TestNewSelectsConfiguredSink(t *testing.T) {
	log := zap.NewNop()

	s, err := New(config.SinkConfig{Type: "stdout"}, prometheus.NewRegistry(), log)
	require.NoError(t, err)
	assert.IsType(t, &Stdout{}, s)

	s, err = New(config.SinkConfig{Type: "prometheus"}, prometheus.NewRegistry(), log)
	require.NoError(t, err)
	assert.IsType(t, &Prometheus{}, s)

	s, err = New(config.SinkConfig{Type: "influx", Influx: config.InfluxConfig{URL: "http://influx:8086", Bucket: "fritz"}},
		prometheus.NewRegistry(), log)
	require.NoError(t, err)
	assert.IsType(t, &Influx{}, s)
	require.NoError(t, s.Close())

	_, err = New(config.SinkConfig{Type: "kafka"}, prometheus.NewRegistry(), log)
	assert.Error(t, err)
}

func TestPrometheusSinkExposesLatestBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPrometheus(reg)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), testBatch("myhouse")))

	families, err := reg.Gather()
	require.NoError(t, err)

	metrics := make(map[string]float64)
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			assert.Equal(t, "myhouse", labels["host"])
			metrics[fam.GetName()+"|"+labels["instance"]] = m.GetGauge().GetValue()
		}
	}

	assert.Equal(t, float64(120), metrics["fritzbox_uptime|"])
	assert.Equal(t, float64(800), metrics["fritzbox_sendrate|house-dect0"])
	// Suffix characters outside [a-zA-Z0-9_] are sanitized.
	assert.Equal(t, float64(42), metrics["fritzbox_lan_bytes|house-dect0"])
}

func TestPrometheusSinkKeepsOneBatchPerHost(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPrometheus(reg)
	require.NoError(t, err)

	first := testBatch("myhouse")
	require.NoError(t, s.Write(context.Background(), first))

	second := fritz.Batch{
		Time: first.Time.Add(time.Minute),
		Tags: map[string]string{"host": "myhouse"},
		Points: fritz.PointSet{
			{Instance: "", Suffix: "uptime"}: {Type: "uptime", Value: 180},
		},
	}
	require.NoError(t, s.Write(context.Background(), second))

	families, err := reg.Gather()
	require.NoError(t, err)

	require.Len(t, families, 1, "older batch replaced, not accumulated")
	assert.Equal(t, float64(180), families[0].GetMetric()[0].GetGauge().GetValue())
}

func TestStdoutSinkNeverFails(t *testing.T) {
	s := NewStdout(zap.NewNop())

	assert.NoError(t, s.Write(context.Background(), testBatch("myhouse")))
	assert.NoError(t, s.Write(context.Background(), fritz.Batch{}))
	assert.NoError(t, s.Close())
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "sendrate", sanitizeName("sendrate"))
	assert.Equal(t, "lan_bytes_sent", sanitizeName("lan/bytes-sent"))
}
