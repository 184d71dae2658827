package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// Config aggregates every module of the agent.
type Config struct {
	Server  ServerConfig   `yaml:"server" mapstructure:"server"`
	Monitor MonitorConfig  `yaml:"monitor" mapstructure:"monitor"`
	Sink    SinkConfig     `yaml:"sink" mapstructure:"sink"`
	Log     ZapLogConfig   `yaml:"log" mapstructure:"log"`
	Devices []DeviceConfig `yaml:"devices" mapstructure:"devices" validate:"dive"`
}

// ServerConfig configures the agent's own HTTP endpoint (/metrics,
// /health).
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr" env:"HTTP_ADDR" validate:"required,hostname_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" env:"HTTP_READ_TIMEOUT" validate:"required,gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" env:"HTTP_WRITE_TIMEOUT" validate:"required,gt=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" validate:"required,gt=0"`
}

// MonitorConfig configures the collection loop.
type MonitorConfig struct {
	// Interval between collection cycles per device.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" env:"MONITOR_INTERVAL" validate:"required,gt=0"`
	// RequestTimeout bounds a single TR-064 round trip.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout" env:"MONITOR_REQUEST_TIMEOUT" validate:"required,gt=0"`
	// MaxEnumeration caps indexed enumeration loops.
	MaxEnumeration int `yaml:"max_enumeration" mapstructure:"max_enumeration" env:"MONITOR_MAX_ENUMERATION" validate:"required,gt=0"`
	// SelfStats enables the agent's own host CPU/memory gauges.
	SelfStats bool `yaml:"selfstats" mapstructure:"selfstats" env:"MONITOR_SELFSTATS"`
}

// SinkConfig selects where batches are published.
type SinkConfig struct {
	Type   string       `yaml:"type" mapstructure:"type" env:"SINK_TYPE" validate:"required,oneof=influx prometheus stdout"`
	Influx InfluxConfig `yaml:"influx" mapstructure:"influx"`
}

// InfluxConfig configures the InfluxDB sink. Checked only when the
// influx sink is selected.
type InfluxConfig struct {
	URL    string `yaml:"url" mapstructure:"url" env:"SINK_INFLUX_URL"`
	Token  string `yaml:"token" mapstructure:"token" env:"SINK_INFLUX_TOKEN"`
	Org    string `yaml:"org" mapstructure:"org" env:"SINK_INFLUX_ORG"`
	Bucket string `yaml:"bucket" mapstructure:"bucket" env:"SINK_INFLUX_BUCKET"`
}

// DeviceConfig is one router to poll. An empty device list is valid:
// the agent idles and serves /health only.
type DeviceConfig struct {
	Address string `yaml:"address" mapstructure:"address" validate:"required"`
	Port    int    `yaml:"port" mapstructure:"port" validate:"gte=0"`
	User    string `yaml:"user" mapstructure:"user"`
	// Password unlocks the authenticated schema; empty keeps the agent
	// on the public readings only.
	Password string `yaml:"password" mapstructure:"password"`
	// Hostname tags published batches; defaults to the address.
	Hostname string `yaml:"hostname" mapstructure:"hostname"`
	// Instance is the base metric instance name; may be empty.
	Instance string `yaml:"instance" mapstructure:"instance"`
}

// ZapLogConfig configures the zap logger and its file rotation.
type ZapLogConfig struct {
	Level    string `yaml:"level" mapstructure:"level" env:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	Format   string `yaml:"format" mapstructure:"format" env:"LOG_FORMAT" validate:"required,oneof=json console"`
	Path     string `yaml:"path" mapstructure:"path" env:"LOG_PATH" validate:"required"`
	MaxSize  int    `yaml:"max_size" mapstructure:"max_size" env:"LOG_MAX_SIZE" validate:"required,gt=0"`
	MaxAge   int    `yaml:"max_age" mapstructure:"max_age" env:"LOG_MAX_AGE" validate:"required,gte=0"`
	Compress bool   `yaml:"compress" mapstructure:"compress" env:"LOG_COMPRESS"`
}

// NewDefaultConfig returns a config with every field populated so a
// missing file still yields a runnable agent.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "0.0.0.0:8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Monitor: MonitorConfig{
			Interval:       30 * time.Second,
			RequestTimeout: 10 * time.Second,
			MaxEnumeration: 256,
			SelfStats:      false,
		},
		Sink: SinkConfig{
			Type: "stdout",
		},
		Log: ZapLogConfig{
			Level:    "info",
			Format:   "json",
			Path:     "./logs",
			MaxSize:  100,
			MaxAge:   7,
			Compress: true,
		},
	}
}

// LoadConfigWithCli merges flags, the YAML file and environment
// variables into the defaults.
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	cfg := NewDefaultConfig()
	v := viper.New()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		err := v.ReadInConfig()
		// A missing config file is not an error: the agent runs on the
		// defaults with an empty device list and idles.
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	decoderConfig := &mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDeviceDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDeviceDefaults() {
	for i := range c.Devices {
		if c.Devices[i].Port == 0 {
			c.Devices[i].Port = 49000
		}
		if c.Devices[i].Hostname == "" {
			c.Devices[i].Hostname = c.Devices[i].Address
		}
	}
}

// Validate checks the whole configuration, including the sink
// requirements the struct tags cannot express.
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	if c.Sink.Type == "influx" {
		if c.Sink.Influx.URL == "" {
			return fmt.Errorf("sink.influx.url is required for the influx sink")
		}
		if c.Sink.Influx.Bucket == "" {
			return fmt.Errorf("sink.influx.bucket is required for the influx sink")
		}
	}
	return nil
}
