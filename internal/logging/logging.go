// Package logging builds the engine's structured logger: zap under the
// hood, exposed as a logr.Logger so every component (including the
// vendored Cluster Adapter conventions borrowed from controller-runtime)
// takes the same logr.Logger type regardless of whether it runs inside
// a controller or a plain CLI invocation.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures logger construction.
type Options struct {
	Development bool
	Level       string // debug, info, warn, error
}

// New builds a logr.Logger backed by zap, matching the verbosity and
// encoding conventions used across the pack's controller-runtime-based
// repos (JSON in production, console in development).
func New(opts Options) (logr.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			return logr.Discard(), err
		}
	}

	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}
