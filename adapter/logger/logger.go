// Package logger builds the zap loggers used across godm.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a sugared logger. Debug mode uses the development
// configuration writing to stdout; otherwise the production configuration
// is used.
func New(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stdout"}
	} else {
		cfg = zap.NewProductionConfig()
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l.Sugar(), nil
}

// Nop returns a logger discarding everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
