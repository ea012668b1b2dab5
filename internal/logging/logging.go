// Package logging builds the structured zap logger shared by every
// component of the build-task orchestration core, and bridges it to
// logr (AsLogr) for components written against that interface.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the logger is built.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// Development enables human-readable console output instead of JSON,
	// and includes stack traces on warn level and above.
	Development bool
}

// New builds a *zap.Logger from cfg. An unrecognized or empty Level
// defaults to info.
func New(cfg Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.OutputPaths = []string{"stdout"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	return zapCfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// AsLogr bridges a *zap.Logger to logr.Logger for dependencies that
// speak the logr interface.
func AsLogr(logger *zap.Logger) logr.Logger {
	return zapr.NewLogger(logger)
}
