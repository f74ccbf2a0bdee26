package logger

import "go.uber.org/multierr"

// MultiLogger broadcasts log messages to multiple Logger backends,
// e.g. stderr and a per-session log file.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to all provided backends in order.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Info(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Info(format, args...)
	}
}

func (m *MultiLogger) Warning(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Warning(format, args...)
	}
}

func (m *MultiLogger) Error(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Error(format, args...)
	}
}

// Close closes every backend and returns the combined close errors.
func (m *MultiLogger) Close() error {
	var err error
	for _, l := range m.loggers {
		err = multierr.Append(err, l.Close())
	}
	return err
}

var _ Logger = (*MultiLogger)(nil)
