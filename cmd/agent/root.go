package agent

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fritz-collector/config"
	"github.com/fritz-collector/internal/fritz"
	"github.com/fritz-collector/internal/monitor"
	"github.com/fritz-collector/internal/runner"
	"github.com/fritz-collector/internal/selfstats"
	"github.com/fritz-collector/internal/server"
	"github.com/fritz-collector/internal/sink"
	"github.com/fritz-collector/internal/tr064"
	"github.com/fritz-collector/pkg/logger"
	"github.com/fritz-collector/pkg/signal"
	"github.com/fritz-collector/pkg/util"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fritz-collector",
	Short: "Polls FRITZ!Box routers over TR-064 and republishes the readings to a metrics sink",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithCli(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := run(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return nil
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "configs/config.yaml", "path to the config file")
	initServerFlags(rootCmd)
	initMonitorFlags(rootCmd)
	initSinkFlags(rootCmd)
	initLogFlags(rootCmd)
}

func run(ctx context.Context, cfg *config.Config) error {
	util.PrintBanner("fritz-collector", "ColorBlue")

	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	log.Info("configuration loaded",
		zap.Int("devices", len(cfg.Devices)),
		zap.String("sink", cfg.Sink.Type),
		zap.Duration("interval", cfg.Monitor.Interval))
	if len(cfg.Devices) == 0 {
		log.Warn("no devices configured, only /health and /metrics will be served")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := monitor.New(registry)

	metricSink, err := sink.New(cfg.Sink, registry, logger.Named("sink"))
	if err != nil {
		return err
	}

	dialer := tr064.Dialer{
		Timeout: cfg.Monitor.RequestTimeout,
		Log:     logger.Named("tr064"),
	}

	deviceConfigs := make([]fritz.Config, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		deviceConfigs = append(deviceConfigs, fritz.Config{
			Address:  d.Address,
			Port:     d.Port,
			User:     d.User,
			Password: d.Password,
			Hostname: d.Hostname,
			Instance: d.Instance,
		})
	}

	collectRunner := runner.New(deviceConfigs, dialer, metricSink,
		cfg.Monitor.MaxEnumeration, cfg.Monitor.Interval, metrics, logger.Named("runner"))
	collectRunner.Start(ctx)

	var stats *selfstats.Collector
	if cfg.Monitor.SelfStats {
		stats = selfstats.New(registry, cfg.Monitor.Interval, logger.Named("selfstats"))
		stats.Start(ctx)
	}

	httpServer := server.NewHTTPServer(cfg.Server, logger.Named("http"), registry)
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}

	signal.WaitForShutdown(log, func() error {
		collectRunner.Stop()
		if stats != nil {
			stats.Stop()
		}
		if err := httpServer.Shutdown(); err != nil {
			return err
		}
		return metricSink.Close()
	})
	return nil
}
