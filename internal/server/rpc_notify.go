package server

import (
	"context"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/warpdl/warpstream/common"
	"github.com/warpdl/warpstream/pkg/logger"
	"github.com/warpdl/warpstream/pkg/pcstream"
)

// RPCNotifier tracks connected WebSocket sessions and pushes stream events
// to all of them.
type RPCNotifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	log     logger.Logger
}

// NewRPCNotifier creates an empty notifier.
func NewRPCNotifier(l logger.Logger) *RPCNotifier {
	return &RPCNotifier{
		servers: make(map[*jrpc2.Server]struct{}),
		log:     logger.OrNop(l),
	}
}

func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[srv] = struct{}{}
}

func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.servers, srv)
}

// Broadcast sends a notification to every session. Sessions that cannot be
// reached are dropped.
func (n *RPCNotifier) Broadcast(method common.Notification, params any) {
	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		if err := srv.Notify(context.Background(), string(method), params); err != nil {
			n.log.Warning("rpc push %s failed: %v", method, err)
			failed = append(failed, srv)
		}
	}
	if len(failed) > 0 {
		n.mu.Lock()
		for _, srv := range failed {
			delete(n.servers, srv)
		}
		n.mu.Unlock()
	}
}

// Stop ends every session.
func (n *RPCNotifier) Stop() {
	n.mu.Lock()
	servers := n.servers
	n.servers = make(map[*jrpc2.Server]struct{})
	n.mu.Unlock()
	for srv := range servers {
		srv.Stop()
	}
}

// Count returns the number of connected sessions.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}

// FrameChanged pushes stream.frameChanged. It has the signature of
// pcstream.Config.OnFrameChanged.
func (n *RPCNotifier) FrameChanged(ev pcstream.FrameChangedEvent) {
	n.Broadcast(common.NOTIFY_FRAME_CHANGED, &common.FrameChangedParams{
		Index:   ev.Index,
		Locator: ev.Locator,
	})
}

// FrameFailed pushes stream.frameFailed. It has the signature of
// pcstream.Config.OnFrameFailed.
func (n *RPCNotifier) FrameFailed(ev pcstream.FrameFailedEvent) {
	n.Broadcast(common.NOTIFY_FRAME_FAILED, &common.FrameFailedParams{
		Index:   ev.Index,
		Locator: ev.Locator,
		Error:   ev.Err.Error(),
	})
}
