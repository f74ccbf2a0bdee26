package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newTileServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/tiles/0.pcd", func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "warpstream-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	})
	mux.HandleFunc("/nohead.pcd", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write(payload)
	})
	mux.HandleFunc("/busy.pcd", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_ProbeAndFetch(t *testing.T) {
	payload := bytes.Repeat([]byte("xyz"), 1000)
	srv := newTileServer(t, payload)
	r := NewRouter(srv.Client(), nil, &Options{UserAgent: "warpstream-test"})

	f, err := r.NewFetcher(srv.URL + "/tiles/0.pcd")
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer f.Close()
	if _, err := f.Fetch(context.Background(), &bytes.Buffer{}, nil); !errors.Is(err, ErrProbeRequired) {
		t.Errorf("expected ErrProbeRequired, got %v", err)
	}
	probe, err := f.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if probe.ContentLength != int64(len(payload)) || probe.Name != "0.pcd" {
		t.Errorf("unexpected probe: %+v", probe)
	}
	var buf bytes.Buffer
	n, err := f.Fetch(context.Background(), &buf, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n != int64(len(payload)) || !bytes.Equal(buf.Bytes(), payload) {
		t.Errorf("fetched %d bytes, content mismatch", n)
	}
}

func TestHTTPFetcher_HeadNotAllowed(t *testing.T) {
	payload := []byte("tile")
	srv := newTileServer(t, payload)
	r := NewRouter(srv.Client(), nil, nil)
	f, _ := r.NewFetcher(srv.URL + "/nohead.pcd")
	probe, err := f.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if probe.ContentLength != -1 {
		t.Errorf("expected unknown length, got %d", probe.ContentLength)
	}
	data, err := r.Fetch(context.Background(), srv.URL+"/nohead.pcd")
	if err != nil || string(data) != "tile" {
		t.Errorf("Fetch = %q, %v", data, err)
	}
}

func TestHTTPFetcher_StatusClassification(t *testing.T) {
	srv := newTileServer(t, nil)
	r := NewRouter(srv.Client(), nil, nil)
	tests := []struct {
		path      string
		transient bool
	}{
		{"/missing.pcd", false},
		{"/busy.pcd", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := r.Fetch(context.Background(), srv.URL+tt.path)
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fe.IsTransient() != tt.transient {
				t.Errorf("transient = %v, want %v (%v)", fe.IsTransient(), tt.transient, err)
			}
			if !errors.Is(err, ErrUnexpectedStatus) {
				t.Errorf("expected ErrUnexpectedStatus, got %v", err)
			}
		})
	}
}

func TestHTTPFetcher_Canceled(t *testing.T) {
	srv := newTileServer(t, []byte("x"))
	r := NewRouter(srv.Client(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Fetch(ctx, srv.URL+"/tiles/0.pcd"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestHTTPFetcher_FactoryErrors(t *testing.T) {
	if _, err := newHTTPFetcher("http:///nohost", nil, http.DefaultClient); err == nil {
		t.Error("expected missing host error")
	}
	if _, err := newHTTPFetcher("ftp://h/a", nil, http.DefaultClient); err == nil {
		t.Error("expected scheme error")
	}
}
