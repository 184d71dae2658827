// Package runner drives the per-device collection cycles. Devices are
// independent: each one runs on its own goroutine and ticker, while a
// single device's connections are polled strictly sequentially inside
// its collector.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fritz-collector/internal/fritz"
	"github.com/fritz-collector/internal/monitor"
)

type device struct {
	collector *fritz.Collector
	// ready is owned by the device's own goroutine. It drops to false
	// when a cycle reports invalid data, forcing a reinit before the
	// next cycle.
	ready bool
}

// Runner owns the collection loops for all configured devices.
type Runner struct {
	devices  []*device
	sink     fritz.Sink
	interval time.Duration
	metrics  *monitor.Metrics
	log      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds one collector per device config.
func New(configs []fritz.Config, dialer fritz.Dialer, sink fritz.Sink, maxEnum int,
	interval time.Duration, metrics *monitor.Metrics, log *zap.Logger) *Runner {

	r := &Runner{
		sink:     sink,
		interval: interval,
		metrics:  metrics,
		log:      log,
	}
	for _, cfg := range configs {
		r.devices = append(r.devices, &device{
			collector: fritz.NewCollector(cfg, dialer, maxEnum, metrics,
				log.With(zap.String("device", cfg.Hostname))),
		})
	}
	return r
}

// Start launches one loop per device. It returns immediately.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.log.Info("runner started",
		zap.Int("devices", len(r.devices)),
		zap.Duration("interval", r.interval))

	for _, d := range r.devices {
		r.wg.Add(1)
		go r.loop(ctx, d)
	}
}

// Stop cancels the loops, waits for in-flight cycles and releases the
// device connections.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	for _, d := range r.devices {
		d.collector.Shutdown()
	}
	r.log.Info("runner stopped")
}

func (r *Runner) loop(ctx context.Context, d *device) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.cycle(ctx, d)
	for {
		select {
		case <-ticker.C:
			r.cycle(ctx, d)
		case <-ctx.Done():
			return
		}
	}
}

// cycle runs (re)initialization when needed and one Read. Init errors
// leave the device not-ready; the next tick tries again.
func (r *Runner) cycle(ctx context.Context, d *device) {
	host := d.collector.Host()
	log := r.log.With(zap.String("device", host))

	if !d.ready {
		if err := d.collector.Init(ctx); err != nil {
			log.Error("device initialization failed", zap.Error(err))
			return
		}
		d.ready = true
		log.Info("device initialized")
	}

	err := d.collector.Read(ctx, r.sink)
	if err == nil {
		return
	}

	if r.metrics != nil {
		r.metrics.ReadErrors.WithLabelValues(host).Inc()
	}

	var invalid *fritz.InvalidDataError
	if errors.As(err, &invalid) {
		log.Warn("invalid data received, attempting to reconnect", zap.Error(err))
		d.ready = false
		if r.metrics != nil {
			r.metrics.Reconnects.WithLabelValues(host).Inc()
		}
		return
	}
	log.Error("collection cycle failed", zap.Error(err))
}
