package fritz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fritz-collector/internal/monitor"
)

// The baseline operation every supported device must answer. Init fails
// when it does not.
const (
	baselineService = "WANIPConnection:1"
	baselineAction  = "GetStatusInfo"
)

// Config describes one device to collect from.
type Config struct {
	Address  string
	Port     int
	User     string
	Password string
	// Hostname tags every published batch.
	Hostname string
	// Instance is the base metric instance; may be empty.
	Instance string
}

// Collector owns one non-authenticated and one optional authenticated
// connection to a single device and turns each Read call into one
// merged batch for the sink.
//
// Lifecycle: NewCollector -> Init -> Read* -> Shutdown. Read after a
// failed or missing Init returns ErrNotInitialized. A Collector is not
// safe for concurrent use; distinct devices get distinct collectors.
type Collector struct {
	cfg     Config
	dialer  Dialer
	poller  *Poller
	log     *zap.Logger
	metrics *monitor.Metrics

	conn       Connection
	authConn   Connection
	schema     Schema
	authSchema Schema
}

// NewCollector builds a collector for one device. metrics may be nil.
// maxEnum <= 0 selects DefaultMaxEnumeration.
func NewCollector(cfg Config, dialer Dialer, maxEnum int, metrics *monitor.Metrics, log *zap.Logger) *Collector {
	var onDrop func()
	if metrics != nil {
		onDrop = func() { metrics.ConversionErrors.WithLabelValues(cfg.Hostname).Inc() }
	}
	return &Collector{
		cfg:     cfg,
		dialer:  dialer,
		poller:  NewPoller(NewConversionRegistry(), maxEnum, log, onDrop),
		log:     log,
		metrics: metrics,
	}
}

// Host returns the host tag the collector publishes under.
func (c *Collector) Host() string { return c.cfg.Hostname }

// Init establishes the connections and filters the schemas. It is also
// the recovery path: calling it again drops any previous connections
// first. Failure modes: ErrUnreachable (no connection),
// ErrUnsupportedBaseline (baseline probe unanswered), *AuthError
// (authenticated probe rejected; the whole collector fails, the plain
// connection is dropped too).
func (c *Collector) Init(ctx context.Context) error {
	c.Shutdown()

	conn, err := c.dialer.Dial(ctx, c.cfg.Address, c.cfg.Port, c.cfg.User, "")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, c.cfg.Address, err)
	}

	readings, err := conn.Invoke(ctx, baselineService, baselineAction, nil)
	if err != nil || len(readings) == 0 {
		_ = conn.Close()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedBaseline, err)
		}
		return ErrUnsupportedBaseline
	}

	c.schema = DefaultSchema().Filter(conn.Actions(), c.log)
	c.conn = conn

	if c.cfg.Password == "" {
		c.log.Info("no password configured, some values cannot be queried")
		return nil
	}

	authConn, err := c.dialer.Dial(ctx, c.cfg.Address, c.cfg.Port, c.cfg.User, c.cfg.Password)
	if err != nil {
		c.Shutdown()
		return fmt.Errorf("%w: %s (authenticated): %v", ErrUnreachable, c.cfg.Address, err)
	}
	if _, err := authConn.Invoke(ctx, baselineService, baselineAction, nil); err != nil {
		_ = authConn.Close()
		c.Shutdown()
		return &AuthError{Address: c.cfg.Address, Underlying: err}
	}

	c.authSchema = AuthSchema().Filter(authConn.Actions(), c.log)
	c.authConn = authConn
	return nil
}

// Read runs one collection cycle and writes the merged batch to the
// sink. The authenticated schema is polled second, so on overlapping
// point keys its values win. An *InvalidDataError aborts the cycle; the
// caller is expected to Init again before the next Read. Enumeration
// overflow keeps the partial readings and completes the cycle.
func (c *Collector) Read(ctx context.Context, sink Sink) error {
	if c.conn == nil {
		return ErrNotInitialized
	}

	start := time.Now()

	points, err := c.poller.Poll(ctx, c.conn, c.schema, c.cfg.Instance)
	if err != nil {
		if !errors.Is(err, ErrEnumerationOverflow) {
			return err
		}
		c.log.Warn("keeping partial readings", zap.Error(err))
	}

	if c.authConn != nil {
		authPoints, err := c.poller.Poll(ctx, c.authConn, c.authSchema, c.cfg.Instance)
		if err != nil {
			if !errors.Is(err, ErrEnumerationOverflow) {
				return err
			}
			c.log.Warn("keeping partial readings", zap.Error(err))
		}
		points.Merge(authPoints)
	}

	batch := Batch{
		Time:   time.Now().UTC(),
		Tags:   map[string]string{"host": c.cfg.Hostname},
		Points: points,
	}
	if err := sink.Write(ctx, batch); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}

	if c.metrics != nil {
		c.metrics.Cycles.WithLabelValues(c.cfg.Hostname).Inc()
		c.metrics.CycleDuration.WithLabelValues(c.cfg.Hostname).Observe(time.Since(start).Seconds())
		c.metrics.PointsEmitted.WithLabelValues(c.cfg.Hostname).Add(float64(len(points)))
	}
	return nil
}

// Shutdown releases the connections. The collector needs another Init
// before it can Read again.
func (c *Collector) Shutdown() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if c.authConn != nil {
		_ = c.authConn.Close()
		c.authConn = nil
	}
	c.schema = nil
	c.authSchema = nil
}
