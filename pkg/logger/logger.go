// Package logger is the logging seam shared by every warpstream component.
// The stream core, the fetchers and the RPC server all log through the
// Logger interface so that embedding applications can route messages
// wherever they like.
package logger

import (
	"fmt"
	"log"
	"sync"
)

// Logger is a printf-style, level-aware logger.
type Logger interface {
	// Info logs an informational message (e.g., "frame 3 ready in 120ms").
	Info(format string, args ...interface{})

	// Warning logs a recoverable condition (e.g., "memory budget exceeded").
	Warning(format string, args ...interface{})

	// Error logs a failure (e.g., "fetch of tile 7 failed: 404").
	Error(format string, args ...interface{})

	// Close releases resources held by the logger.
	// Safe to call multiple times.
	Close() error
}

// StandardLogger wraps the stdlib *log.Logger for console/file output.
type StandardLogger struct {
	logger *log.Logger
}

// NewStandardLogger creates a logger that wraps the given *log.Logger.
func NewStandardLogger(l *log.Logger) *StandardLogger {
	return &StandardLogger{logger: l}
}

// Info logs an informational message with [INFO] prefix.
func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.logger.Printf("[INFO] "+format, args...)
}

// Warning logs a warning message with [WARNING] prefix.
func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.logger.Printf("[WARNING] "+format, args...)
}

// Error logs an error message with [ERROR] prefix.
func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}

// Close is a no-op for StandardLogger.
func (s *StandardLogger) Close() error {
	return nil
}

// NopLogger discards all messages.
type NopLogger struct{}

// NewNopLogger creates a logger that discards all messages.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}
func (n *NopLogger) Close() error                               { return nil }

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}

// PrefixLogger tags every message with a component prefix such as "stream: ".
type PrefixLogger struct {
	prefix string
	next   Logger
}

// WithPrefix wraps next so that each message starts with prefix.
func WithPrefix(next Logger, prefix string) *PrefixLogger {
	return &PrefixLogger{prefix: prefix, next: OrNop(next)}
}

func (p *PrefixLogger) Info(format string, args ...interface{}) {
	p.next.Info(p.prefix+format, args...)
}

func (p *PrefixLogger) Warning(format string, args ...interface{}) {
	p.next.Warning(p.prefix+format, args...)
}

func (p *PrefixLogger) Error(format string, args ...interface{}) {
	p.next.Error(p.prefix+format, args...)
}

// Close closes the wrapped logger.
func (p *PrefixLogger) Close() error {
	return p.next.Close()
}

// QuietLogger forwards warnings and errors and drops info messages.
type QuietLogger struct {
	next Logger
}

// Quiet wraps next so that only warnings and errors reach it.
func Quiet(next Logger) *QuietLogger {
	return &QuietLogger{next: OrNop(next)}
}

func (q *QuietLogger) Info(format string, args ...interface{}) {}

func (q *QuietLogger) Warning(format string, args ...interface{}) {
	q.next.Warning(format, args...)
}

func (q *QuietLogger) Error(format string, args ...interface{}) {
	q.next.Error(format, args...)
}

func (q *QuietLogger) Close() error {
	return q.next.Close()
}

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*NopLogger)(nil)
	_ Logger = (*PrefixLogger)(nil)
	_ Logger = (*QuietLogger)(nil)
)

// MockLogger records all log calls for verification in tests.
// It is safe for concurrent use because fetch goroutines log too.
type MockLogger struct {
	mu           sync.Mutex
	infoCalls    []string
	warningCalls []string
	errorCalls   []string
	closeCalled  bool
}

// NewMockLogger creates a new MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Info(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoCalls = append(m.infoCalls, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warningCalls = append(m.warningCalls, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Error(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCalls = append(m.errorCalls, fmt.Sprintf(format, args...))
}

// Close records that Close was called.
func (m *MockLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalled = true
	return nil
}

// InfoCalls returns a copy of the recorded info messages.
func (m *MockLogger) InfoCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.infoCalls...)
}

// WarningCalls returns a copy of the recorded warning messages.
func (m *MockLogger) WarningCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.warningCalls...)
}

// ErrorCalls returns a copy of the recorded error messages.
func (m *MockLogger) ErrorCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errorCalls...)
}

// CloseCalled reports whether Close has been called.
func (m *MockLogger) CloseCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalled
}

var _ Logger = (*MockLogger)(nil)
