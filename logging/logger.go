// Package logging builds the zap logger shared by the CLI, the HTTP server
// and the analysis engines.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level is one of debug, info, warn, error. Anything else means info.
	Level string `mapstructure:"level"`
	// Format is "json" or "console".
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New constructs a logger from cfg. Logs go to stderr by default so that
// stdout stays reserved for reports.
func New(cfg Config) (*zap.Logger, error) {
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stderr"}
	}

	encoding := "json"
	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Format == "console" {
		encoding = "console"
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: failed to build zap logger: %w", err)
	}
	return logger, nil
}

func Nop() *zap.Logger { return zap.NewNop() }
