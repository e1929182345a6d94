// Package logging builds the process logger: ectologger backed by zap
package logging

import (
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level and encoder
type Config struct {
	AppName string
	Level   string
	// Pretty switches to the console encoder
	Pretty bool
}

// New returns the logger and a flush func to call before exiting
func New(cfg Config) (ectologger.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Pretty {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if cfg.AppName != "" {
		zc.InitialFields = map[string]any{"service": cfg.AppName}
	}

	zl, err := zc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	flush := func() {
		// stderr sync errors are expected on some terminals
		_ = zl.Sync()
	}
	return zapadapter.NewZapEctoLogger(zl, nil), flush, nil
}
