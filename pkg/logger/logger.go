package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fritz-collector/config"
)

type Logger = zap.Logger

var (
	baseLogger  *zap.Logger
	initOnce    sync.Once
	initialized bool
)

// Init builds the global logger: a console core plus a rotating JSON
// file core. Safe to call once; later calls are no-ops.
func Init(cfg config.ZapLogConfig) error {
	var err error
	initOnce.Do(func() {
		level := zapcore.InfoLevel
		switch strings.ToLower(cfg.Level) {
		case "debug":
			level = zapcore.DebugLevel
		case "info":
			level = zapcore.InfoLevel
		case "warn":
			level = zapcore.WarnLevel
		case "error":
			level = zapcore.ErrorLevel
		case "dpanic":
			level = zapcore.DPanicLevel
		case "panic":
			level = zapcore.PanicLevel
		case "fatal":
			level = zapcore.FatalLevel
		}

		if err = os.MkdirAll(cfg.Path, 0755); err != nil {
			return
		}

		writer, wErr := rotatelogs.New(
			filepath.Join(cfg.Path, "fritz-collector-%Y%m%d.log"),
			rotatelogs.WithMaxAge(time.Duration(cfg.MaxAge)*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithRotationSize(int64(cfg.MaxSize)*1024*1024),
		)
		if wErr != nil {
			err = wErr
			return
		}

		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.ConsoleSeparator = " "
		consoleCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02 15:04:05.000 -07:00"))
		}
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleCfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
			rel := filepath.Join(filepath.Base(filepath.Dir(c.File)), filepath.Base(c.File))
			enc.AppendString(fmt.Sprintf("%s:%d", rel, c.Line))
		}

		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.TimeKey = "timestamp"
		jsonCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02 15:04:05.000 -07:00"))
		}
		jsonCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

		// The file core is always JSON; cfg.Format picks the stdout
		// encoding.
		stdoutEncoder := zapcore.NewConsoleEncoder(consoleCfg)
		if cfg.Format == "json" {
			stdoutEncoder = zapcore.NewJSONEncoder(jsonCfg)
		}

		core := zapcore.NewTee(
			zapcore.NewCore(stdoutEncoder, zapcore.AddSync(os.Stdout), level),
			zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(writer), level),
		)

		baseLogger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
		initialized = true
	})
	return err
}

// L returns the global logger.
func L() *zap.Logger {
	if !initialized {
		panic("logger not initialized: call logger.Init() first")
	}
	return baseLogger
}

// Named returns a child logger tagged with a component name.
func Named(component string) *zap.Logger {
	return L().Named(component)
}

// Sync flushes buffered log entries. Safe before Init.
func Sync() error {
	if !initialized {
		return nil
	}
	return baseLogger.Sync()
}
