package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fritz-collector/internal/fritz"
	"github.com/fritz-collector/internal/monitor"
)

// scriptedConn answers the baseline action per call number, so tests
// can fail exactly one read in a sequence.
type scriptedConn struct {
	calls  int
	script func(call int) (fritz.ReadingSet, error)
	closed bool
}

func healthyReadings(int) (fritz.ReadingSet, error) {
	return fritz.ReadingSet{"NewConnectionStatus": "Connected", "NewUptime": int64(120)}, nil
}

func (c *scriptedConn) Actions() map[fritz.ActionKey]struct{} {
	return map[fritz.ActionKey]struct{}{
		{Service: "WANIPConnection:1", Action: "GetStatusInfo"}: {},
	}
}

func (c *scriptedConn) Invoke(context.Context, string, string, map[string]string) (fritz.ReadingSet, error) {
	c.calls++
	return c.script(c.calls)
}

func (c *scriptedConn) Close() error {
	c.closed = true
	return nil
}

type scriptedDialer struct {
	conn *scriptedConn
	err  error
}

func (d *scriptedDialer) Dial(context.Context, string, int, string, string) (fritz.Connection, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

type memorySink struct {
	mu      sync.Mutex
	batches []fritz.Batch
}

func (s *memorySink) Write(_ context.Context, batch fritz.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return nil
}

func (s *memorySink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func newTestRunner(dialer fritz.Dialer, sink fritz.Sink, metrics *monitor.Metrics, interval time.Duration) *Runner {
	configs := []fritz.Config{{Address: "fritz.box", Hostname: "myhouse"}}
	return New(configs, dialer, sink, 0, interval, metrics, zap.NewNop())
}

func TestCycleInitializesAndReads(t *testing.T) {
	conn := &scriptedConn{script: healthyReadings}
	sink := &memorySink{}
	metrics := monitor.New(prometheus.NewRegistry())

	r := newTestRunner(&scriptedDialer{conn: conn}, sink, metrics, time.Hour)
	r.cycle(context.Background(), r.devices[0])

	assert.True(t, r.devices[0].ready)
	require.Equal(t, 1, sink.len())
	assert.Equal(t, "myhouse", sink.batches[0].Tags["host"])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Cycles.WithLabelValues("myhouse")))
}

func TestCycleReconnectsOnInvalidData(t *testing.T) {
	conn := &scriptedConn{script: func(call int) (fritz.ReadingSet, error) {
		// 1: init probe, 2: read fails, 3: re-init probe, 4: read.
		if call == 2 {
			return nil, &fritz.InvalidDataError{
				Service: "WANIPConnection:1", Action: "GetStatusInfo",
				Underlying: errors.New("truncated response"),
			}
		}
		return healthyReadings(call)
	}}
	sink := &memorySink{}
	metrics := monitor.New(prometheus.NewRegistry())

	r := newTestRunner(&scriptedDialer{conn: conn}, sink, metrics, time.Hour)
	d := r.devices[0]

	r.cycle(context.Background(), d)
	assert.False(t, d.ready, "invalid data drops the device to not-ready")
	assert.Equal(t, 0, sink.len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ReadErrors.WithLabelValues("myhouse")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Reconnects.WithLabelValues("myhouse")))

	r.cycle(context.Background(), d)
	assert.True(t, d.ready, "next cycle reinitializes")
	assert.Equal(t, 1, sink.len())
}

func TestCycleRetriesFailedInit(t *testing.T) {
	conn := &scriptedConn{script: healthyReadings}
	dialer := &scriptedDialer{conn: conn, err: errors.New("connection refused")}
	sink := &memorySink{}
	metrics := monitor.New(prometheus.NewRegistry())

	r := newTestRunner(dialer, sink, metrics, time.Hour)
	d := r.devices[0]

	r.cycle(context.Background(), d)
	assert.False(t, d.ready)
	assert.Equal(t, 0, sink.len())

	// The device comes back; the next tick picks it up.
	dialer.err = nil
	r.cycle(context.Background(), d)
	assert.True(t, d.ready)
	assert.Equal(t, 1, sink.len())
}

func TestCycleWithoutMetrics(t *testing.T) {
	conn := &scriptedConn{script: func(call int) (fritz.ReadingSet, error) {
		if call == 2 {
			return nil, &fritz.InvalidDataError{
				Service: "WANIPConnection:1", Action: "GetStatusInfo",
				Underlying: errors.New("truncated response"),
			}
		}
		return healthyReadings(call)
	}}
	sink := &memorySink{}

	r := newTestRunner(&scriptedDialer{conn: conn}, sink, nil, time.Hour)
	d := r.devices[0]

	// Both error branches must tolerate a nil metrics handle.
	r.cycle(context.Background(), d)
	assert.False(t, d.ready)

	r.cycle(context.Background(), d)
	assert.True(t, d.ready)
	assert.Equal(t, 1, sink.len())
}

func TestStartRunsImmediateCycleAndStopReleases(t *testing.T) {
	conn := &scriptedConn{script: healthyReadings}
	sink := &memorySink{}
	metrics := monitor.New(prometheus.NewRegistry())

	r := newTestRunner(&scriptedDialer{conn: conn}, sink, metrics, time.Hour)
	r.Start(context.Background())
	r.Stop()

	assert.GreaterOrEqual(t, sink.len(), 1, "first cycle runs before the first tick")
	assert.True(t, conn.closed, "stop shuts the collector down")
}
