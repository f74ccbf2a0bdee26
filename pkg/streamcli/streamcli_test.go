package streamcli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/warpdl/warpstream/common"
	"github.com/warpdl/warpstream/internal/server"
	"github.com/warpdl/warpstream/pkg/pcstream"
)

const testSecret = "streamcli-secret"

type fakeStream struct {
	mu         sync.Mutex
	status     pcstream.Status
	frames     []pcstream.FrameStatus
	styleMarks int
}

func (f *fakeStream) Status() (pcstream.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, nil
}

func (f *fakeStream) Frames() ([]pcstream.FrameStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames, nil
}

func (f *fakeStream) MarkStyleDirty() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.styleMarks++
	return nil
}

func (f *fakeStream) IsDestroyed() bool { return false }

func startEndpoint(t *testing.T, s *fakeStream) (*httptest.Server, *server.RPCNotifier) {
	t.Helper()
	n := server.NewRPCNotifier(nil)
	rs := server.NewRPCServer(&server.RPCConfig{Secret: testSecret, Version: "1.2.3"}, s, n, nil)
	srv := httptest.NewServer(rs.Handler())
	t.Cleanup(func() {
		rs.Close()
		srv.Close()
	})
	return srv, n
}

func dialTest(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, testSecret)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitSessions(t *testing.T, n *server.RPCNotifier, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for n.Count() < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d sessions, got %d", want, n.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{"127.0.0.1:7373", "ws://127.0.0.1:7373/jsonrpc/ws", false},
		{"http://host:1", "ws://host:1/jsonrpc/ws", false},
		{"https://host:1/", "wss://host:1/jsonrpc/ws", false},
		{"ws://host:1/jsonrpc/ws", "ws://host:1/jsonrpc/ws", false},
		{"ftp://host", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Endpoint(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("Endpoint(%q) error = %v, want error %v", tt.in, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("Endpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDial_Unauthorized(t *testing.T) {
	srv, _ := startEndpoint(t, &fakeStream{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Dial(ctx, srv.URL, "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_Methods(t *testing.T) {
	s := &fakeStream{
		status: pcstream.Status{Intervals: 3, Frames: 3, ReadyFrames: 2, LastPresentedIndex: 1, MemoryBudgetBytes: 1 << 20},
		frames: []pcstream.FrameStatus{{Index: 0, Locator: "file:///a.pcd", State: pcstream.FrameReady, ByteSize: 64}},
	}
	srv, _ := startEndpoint(t, s)
	c := dialTest(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := c.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", v.Version)
	}

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Intervals != 3 || st.ReadyFrames != 2 || st.LastPresentedIndex != 1 || st.MemoryBudgetBytes != 1<<20 {
		t.Errorf("unexpected status: %+v", st)
	}

	fr, err := c.Frames(ctx)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if len(fr.Frames) != 1 || fr.Frames[0].Locator != "file:///a.pcd" || fr.Frames[0].State != "ready" {
		t.Errorf("unexpected frames: %+v", fr.Frames)
	}

	if err := c.MarkStyleDirty(ctx); err != nil {
		t.Fatalf("MarkStyleDirty: %v", err)
	}
	s.mu.Lock()
	marks := s.styleMarks
	s.mu.Unlock()
	if marks != 1 {
		t.Errorf("expected 1 style mark, got %d", marks)
	}
}

func TestClient_Notifications(t *testing.T) {
	srv, n := startEndpoint(t, &fakeStream{})
	c := dialTest(t, srv.URL)

	changed := make(chan int, 1)
	c.Handle(common.NOTIFY_FRAME_CHANGED, NewFrameChangedHandler(func(p *common.FrameChangedParams) error {
		changed <- p.Index
		return nil
	}))
	c.Handle(common.NOTIFY_FRAME_FAILED, NewFrameFailedHandler(func(p *common.FrameFailedParams) error {
		if p.Error != "404" {
			t.Errorf("unexpected error text %q", p.Error)
		}
		return ErrDisconnect
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.Version(ctx); err != nil {
		t.Fatalf("Version: %v", err)
	}
	waitSessions(t, n, 1)

	n.Broadcast(common.NOTIFY_FRAME_CHANGED, common.FrameChangedParams{Index: 4, Locator: "x"})
	select {
	case idx := <-changed:
		if idx != 4 {
			t.Errorf("expected index 4, got %d", idx)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for frameChanged")
	}

	n.Broadcast(common.NOTIFY_FRAME_FAILED, common.FrameFailedParams{Index: 5, Error: "404"})
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestClient_HandlerError(t *testing.T) {
	srv, n := startEndpoint(t, &fakeStream{})
	c := dialTest(t, srv.URL)
	boom := errors.New("boom")
	c.Handle(common.NOTIFY_FRAME_CHANGED, NewFrameChangedHandler(func(*common.FrameChangedParams) error {
		return boom
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.Status(ctx); err != nil {
		t.Fatalf("Status: %v", err)
	}
	waitSessions(t, n, 1)
	n.Broadcast(common.NOTIFY_FRAME_CHANGED, common.FrameChangedParams{Index: 1})
	if err := c.Wait(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestClient_WaitContext(t *testing.T) {
	srv, _ := startEndpoint(t, &fakeStream{})
	c := dialTest(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := c.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCheckVersionMismatch(t *testing.T) {
	srv, _ := startEndpoint(t, &fakeStream{})
	c := dialTest(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var buf bytes.Buffer
	c.CheckVersionMismatch(ctx, &buf, "1.2.3")
	if buf.Len() != 0 {
		t.Errorf("expected no warning, got %q", buf.String())
	}
	c.CheckVersionMismatch(ctx, &buf, "9.9.9")
	if !strings.Contains(buf.String(), "differs from player version (1.2.3)") {
		t.Errorf("expected mismatch warning, got %q", buf.String())
	}

	buf.Reset()
	t.Setenv(common.VersionCheckEnv, "1")
	c.CheckVersionMismatch(ctx, &buf, "9.9.9")
	if buf.Len() != 0 {
		t.Errorf("expected suppressed warning, got %q", buf.String())
	}
}
