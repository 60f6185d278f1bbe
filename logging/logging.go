// Package logging builds the process logger and hands components a printf-style
// function so they stay independent of the logging backend.
package logging

import (
	"strings"

	"go.uber.org/zap"
)

// LogFunc is the signature every component accepts for its log output.
type LogFunc func(format string, args ...any)

type Logger struct {
	*zap.SugaredLogger
}

// New returns a production JSON logger for mode "prod"/"production" and a
// human-readable development logger otherwise.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Printf adapts the logger to LogFunc.
func (l *Logger) Printf(format string, args ...any) {
	l.Infof(format, args...)
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}
