package logger

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
)

func TestStandardLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		log    func(Logger)
		prefix string
		body   string
	}{
		{"info", func(l Logger) { l.Info("frame %d ready", 3) }, "[INFO]", "frame 3 ready"},
		{"warning", func(l Logger) { l.Warning("budget %s", "exceeded") }, "[WARNING]", "budget exceeded"},
		{"error", func(l Logger) { l.Error("fetch failed: %v", "404") }, "[ERROR]", "fetch failed: 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.log(NewStandardLogger(log.New(buf, "", 0)))
			output := buf.String()
			if !strings.Contains(output, tt.prefix) {
				t.Errorf("expected %s prefix, got: %s", tt.prefix, output)
			}
			if !strings.Contains(output, tt.body) {
				t.Errorf("expected message content, got: %s", output)
			}
		})
	}
}

func TestStandardLogger_Close(t *testing.T) {
	l := NewStandardLogger(log.New(&bytes.Buffer{}, "", 0))
	if err := l.Close(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("test")
	l.Warning("test")
	l.Error("test")
	if err := l.Close(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(*NopLogger); !ok {
		t.Error("OrNop(nil) should return a NopLogger")
	}
	m := NewMockLogger()
	if OrNop(m) != Logger(m) {
		t.Error("OrNop should return a non-nil logger unchanged")
	}
}

func TestPrefixLogger(t *testing.T) {
	m := NewMockLogger()
	l := WithPrefix(m, "stream: ")
	l.Info("tick %d", 1)
	l.Warning("slow")
	l.Error("boom")

	if got := m.InfoCalls(); len(got) != 1 || got[0] != "stream: tick 1" {
		t.Errorf("unexpected info calls: %v", got)
	}
	if got := m.WarningCalls(); len(got) != 1 || got[0] != "stream: slow" {
		t.Errorf("unexpected warning calls: %v", got)
	}
	if got := m.ErrorCalls(); len(got) != 1 || got[0] != "stream: boom" {
		t.Errorf("unexpected error calls: %v", got)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !m.CloseCalled() {
		t.Error("Close should reach the wrapped logger")
	}
}

func TestPrefixLogger_NilNext(t *testing.T) {
	l := WithPrefix(nil, "x: ")
	l.Info("should not panic")
}

func TestQuietLogger(t *testing.T) {
	m := NewMockLogger()
	l := Quiet(m)
	l.Info("dropped")
	l.Warning("kept %d", 1)
	l.Error("kept %d", 2)
	if len(m.InfoCalls()) != 0 {
		t.Errorf("info should be dropped, got %v", m.InfoCalls())
	}
	if len(m.WarningCalls()) != 1 || len(m.ErrorCalls()) != 1 {
		t.Errorf("warnings and errors should pass through")
	}
	_ = l.Close()
	if !m.CloseCalled() {
		t.Error("Close should reach the wrapped logger")
	}
}

func TestMockLogger_RecordsCalls(t *testing.T) {
	l := NewMockLogger()

	l.Info("info %d", 1)
	l.Info("info %d", 2)
	l.Warning("warn %s", "test")
	l.Error("err %v", "fail")

	info := l.InfoCalls()
	if len(info) != 2 || info[0] != "info 1" || info[1] != "info 2" {
		t.Errorf("unexpected info calls: %v", info)
	}
	if w := l.WarningCalls(); len(w) != 1 || w[0] != "warn test" {
		t.Errorf("unexpected warning calls: %v", w)
	}
	if e := l.ErrorCalls(); len(e) != 1 || e[0] != "err fail" {
		t.Errorf("unexpected error calls: %v", e)
	}
	if l.CloseCalled() {
		t.Error("CloseCalled should be false initially")
	}
	_ = l.Close()
	if !l.CloseCalled() {
		t.Error("CloseCalled should be true after Close()")
	}
}

func TestMockLogger_Concurrent(t *testing.T) {
	l := NewMockLogger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Info("fetch %d", i)
		}(i)
	}
	wg.Wait()
	if got := len(l.InfoCalls()); got != 50 {
		t.Errorf("expected 50 info calls, got %d", got)
	}
}

func TestMultiLogger_BroadcastsToAll(t *testing.T) {
	mock1 := NewMockLogger()
	mock2 := NewMockLogger()
	multi := NewMultiLogger(mock1, mock2)

	multi.Info("info msg")
	multi.Warning("warn msg")
	multi.Error("error msg")

	for i, m := range []*MockLogger{mock1, mock2} {
		if c := m.InfoCalls(); len(c) != 1 || c[0] != "info msg" {
			t.Errorf("logger %d should receive info message", i)
		}
		if c := m.WarningCalls(); len(c) != 1 || c[0] != "warn msg" {
			t.Errorf("logger %d should receive warning message", i)
		}
		if c := m.ErrorCalls(); len(c) != 1 || c[0] != "error msg" {
			t.Errorf("logger %d should receive error message", i)
		}
	}
}

func TestMultiLogger_EmptyLoggers(t *testing.T) {
	multi := NewMultiLogger()
	multi.Info("test")
	multi.Warning("test")
	multi.Error("test")
	if err := multi.Close(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

type failingCloseLogger struct {
	NopLogger
	closeErr error
}

func (f *failingCloseLogger) Close() error {
	return f.closeErr
}

func TestMultiLogger_Close_CombinesErrors(t *testing.T) {
	err1 := errors.New("file logger failed to close")
	err2 := errors.New("socket logger failed to close")
	mock := NewMockLogger()

	multi := NewMultiLogger(&failingCloseLogger{closeErr: err1}, mock, &failingCloseLogger{closeErr: err2})
	err := multi.Close()

	if !errors.Is(err, err1) {
		t.Errorf("expected %v in combined error, got %v", err1, err)
	}
	if !errors.Is(err, err2) {
		t.Errorf("expected %v in combined error, got %v", err2, err)
	}
	if !mock.CloseCalled() {
		t.Error("expected every backend to be closed")
	}
}
