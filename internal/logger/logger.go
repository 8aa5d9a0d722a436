// Package logger builds the process logger.
package logger

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger at the given level. Format "json" selects
// the production encoder; anything else logs human-readable console lines.
func New(level, format string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return l.Sugar(), nil
}
