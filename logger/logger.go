// Package logger provides the debug logging abstraction used throughout
// the daemon. Callers depend only on the DebugLogger interface, so the
// backend can be swapped between a structured zap logger in production
// and a silent NullLogger in tests or library embeddings.
package logger

import "go.uber.org/zap"

// DebugLogger is implemented by anything that can receive printf-style
// log lines at three severities. It is intentionally narrow: the core
// packages never need more than this.
type DebugLogger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NullLogger discards everything. Useful for tests and for callers that
// embed the daemon as a library without wanting its log output.
type NullLogger struct{}

func (l *NullLogger) Debugf(format string, args ...interface{}) {}
func (l *NullLogger) Infof(format string, args ...interface{})  {}
func (l *NullLogger) Errorf(format string, args ...interface{}) {}

// ZapLogger adapts a *zap.SugaredLogger to the DebugLogger interface.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZap builds a DebugLogger backed by a production zap logger.
func NewZap() (*ZapLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{s: l.Sugar()}, nil
}

func (l *ZapLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *ZapLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *ZapLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

// Sync flushes any buffered log entries. Call it before process exit.
func (l *ZapLogger) Sync() error { return l.s.Sync() }
