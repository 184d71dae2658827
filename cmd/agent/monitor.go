package agent

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func initMonitorFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.Duration("monitor.interval", defaultCfg.Monitor.Interval, "collection interval per device")
	f.Duration("monitor.request_timeout", defaultCfg.Monitor.RequestTimeout, "timeout for a single TR-064 request")
	f.Int("monitor.max_enumeration", defaultCfg.Monitor.MaxEnumeration, "cap for indexed enumeration loops")
	f.Bool("monitor.selfstats", defaultCfg.Monitor.SelfStats, "publish the agent host's own CPU/memory gauges")

	_ = viper.BindPFlags(f)
}
