// Package selfstats publishes the agent host's own CPU and memory
// usage next to the device metrics, so a dashboard can tell device
// gaps from agent starvation apart.
package selfstats

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// Collector samples host stats on its own ticker.
type Collector struct {
	interval time.Duration
	log      *zap.Logger

	cpuPercent prometheus.Gauge
	memPercent prometheus.Gauge
	memUsed    prometheus.Gauge

	cancel context.CancelFunc
	done   chan struct{}
}

func New(reg prometheus.Registerer, interval time.Duration, log *zap.Logger) *Collector {
	return &Collector{
		interval: interval,
		log:      log,
		cpuPercent: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "agent_host_cpu_percent",
			Help: "CPU utilization of the agent host",
		}),
		memPercent: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "agent_host_memory_percent",
			Help: "Memory utilization of the agent host",
		}),
		memUsed: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "agent_host_memory_used_bytes",
			Help: "Memory used on the agent host",
		}),
		done: make(chan struct{}),
	}
}

// Start samples in the background until Stop.
func (c *Collector) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.sample(ctx)
		for {
			select {
			case <-ticker.C:
				c.sample(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends sampling and waits for the loop to exit.
func (c *Collector) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

func (c *Collector) sample(ctx context.Context) {
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		c.cpuPercent.Set(percents[0])
	} else if err != nil {
		c.log.Warn("cpu sample failed", zap.Error(err))
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		c.memPercent.Set(vm.UsedPercent)
		c.memUsed.Set(float64(vm.Used))
	} else {
		c.log.Warn("memory sample failed", zap.Error(err))
	}
}
