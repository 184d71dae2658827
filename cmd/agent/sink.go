package agent

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func initSinkFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("sink.type", defaultCfg.Sink.Type, "metrics sink [influx,prometheus,stdout]")
	f.String("sink.influx.url", defaultCfg.Sink.Influx.URL, "InfluxDB server URL")
	f.String("sink.influx.token", defaultCfg.Sink.Influx.Token, "InfluxDB auth token")
	f.String("sink.influx.org", defaultCfg.Sink.Influx.Org, "InfluxDB organization")
	f.String("sink.influx.bucket", defaultCfg.Sink.Influx.Bucket, "InfluxDB bucket")

	_ = viper.BindPFlags(f)
}
