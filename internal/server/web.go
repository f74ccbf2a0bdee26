package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/warpdl/warpstream/pkg/logger"
)

// WebServer exposes an RPCServer over TCP.
type WebServer struct {
	mu     sync.Mutex
	rpc    *RPCServer
	log    logger.Logger
	server *http.Server
	addr   net.Addr
}

// NewWebServer wraps rs.
func NewWebServer(rs *RPCServer, l logger.Logger) *WebServer {
	return &WebServer{rpc: rs, log: logger.OrNop(l)}
}

// Start listens on listen and serves in the background. It returns once the
// listener is bound.
func (s *WebServer) Start(listen string) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.rpc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.addr = ln.Addr()
	srv := s.server
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("rpc: serve: %v", err)
		}
	}()
	s.log.Info("rpc: listening on %s", ln.Addr())
	return nil
}

// Addr is the bound address, or nil before Start.
func (s *WebServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops accepting connections and closes the bridge.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.rpc.Close()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
