package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/warpstream/common"
	"github.com/warpdl/warpstream/pkg/logger"
	"github.com/warpdl/warpstream/pkg/pcstream"
)

// codeStreamDestroyed is returned once the stream has been torn down.
const codeStreamDestroyed = jrpc2.Code(-32001)

// Stream is the part of *pcstream.Stream the endpoint exposes.
type Stream interface {
	Status() (pcstream.Status, error)
	Frames() ([]pcstream.FrameStatus, error)
	MarkStyleDirty() error
	IsDestroyed() bool
}

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // required; empty rejects every request
	Version   string
	Commit    string
	BuildType string
}

// RPCServer serves the stream control methods over an HTTP bridge and over
// WebSocket sessions that also receive push notifications.
type RPCServer struct {
	bridge    jhttp.Bridge
	methods   handler.Map
	secret    string
	version   string
	commit    string
	buildType string
	stream    Stream
	notifier  *RPCNotifier
	log       logger.Logger
}

// NewRPCServer creates the method table and HTTP bridge for stream.
func NewRPCServer(cfg *RPCConfig, stream Stream, notifier *RPCNotifier, l logger.Logger) *RPCServer {
	rs := &RPCServer{
		secret:    cfg.Secret,
		version:   cfg.Version,
		commit:    cfg.Commit,
		buildType: cfg.BuildType,
		stream:    stream,
		notifier:  notifier,
		log:       logger.OrNop(l),
	}
	rs.methods = handler.Map{
		string(common.METHOD_GET_VERSION):      handler.New(rs.systemGetVersion),
		string(common.METHOD_STATUS):           handler.New(rs.streamStatus),
		string(common.METHOD_FRAMES):           handler.New(rs.streamFrames),
		string(common.METHOD_MARK_STYLE_DIRTY): handler.New(rs.streamMarkStyleDirty),
	}
	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

// Handler routes /jsonrpc to the HTTP bridge and /jsonrpc/ws to WebSocket
// sessions, both behind token authentication.
func (rs *RPCServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/jsonrpc", requireToken(rs.secret, rs.bridge))
	mux.Handle("/jsonrpc/ws", requireToken(rs.secret, http.HandlerFunc(rs.serveWS)))
	return mux
}

func (rs *RPCServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		rs.log.Warning("rpc: websocket accept: %v", err)
		return
	}
	ch := &wsChannel{conn: conn, ctx: r.Context()}
	srv := jrpc2.NewServer(rs.methods, &jrpc2.ServerOptions{AllowPush: true}).Start(ch)
	if rs.notifier != nil {
		rs.notifier.Register(srv)
		defer rs.notifier.Unregister(srv)
	}
	if err := srv.Wait(); err != nil && !isClosed(err) {
		rs.log.Warning("rpc: websocket session: %v", err)
	}
}

func isClosed(err error) bool {
	s := cws.CloseStatus(err)
	return s == cws.StatusNormalClosure || s == cws.StatusGoingAway || errors.Is(err, context.Canceled)
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResponse, error) {
	return &common.VersionResponse{
		Version: rs.version,
		Commit:  rs.commit,
		Type:    rs.buildType,
	}, nil
}

func (rs *RPCServer) streamStatus(_ context.Context) (*common.StatusResponse, error) {
	if rs.stream.IsDestroyed() {
		return &common.StatusResponse{Destroyed: true, LastPresentedIndex: -1}, nil
	}
	st, err := rs.stream.Status()
	if err != nil {
		return nil, streamError(err)
	}
	return &common.StatusResponse{
		Intervals:          st.Intervals,
		Frames:             st.Frames,
		ReadyFrames:        st.ReadyFrames,
		FailedFrames:       st.FailedFrames,
		MemoryUsageBytes:   st.MemoryUsageBytes,
		MemoryBudgetBytes:  st.MemoryBudgetBytes,
		AverageLoadTimeMs:  milliseconds(st.AverageLoadTime),
		LastPresentedIndex: st.LastPresentedIndex,
	}, nil
}

func (rs *RPCServer) streamFrames(_ context.Context) (*common.FramesResponse, error) {
	frames, err := rs.stream.Frames()
	if err != nil {
		return nil, streamError(err)
	}
	out := make([]common.FrameInfo, 0, len(frames))
	for _, f := range frames {
		info := common.FrameInfo{
			Index:         f.Index,
			Locator:       f.Locator,
			State:         f.State.String(),
			ReadyDuration: milliseconds(f.ReadyDuration),
			ByteSize:      f.ByteSize,
		}
		if f.Err != nil {
			info.State = "failed"
			info.Error = f.Err.Error()
		}
		out = append(out, info)
	}
	return &common.FramesResponse{Frames: out}, nil
}

func (rs *RPCServer) streamMarkStyleDirty(_ context.Context) (bool, error) {
	if err := rs.stream.MarkStyleDirty(); err != nil {
		return false, streamError(err)
	}
	return true, nil
}

func streamError(err error) error {
	if errors.Is(err, pcstream.ErrDestroyed) {
		return &jrpc2.Error{Code: codeStreamDestroyed, Message: err.Error()}
	}
	return err
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Close shuts down the bridge and ends WebSocket sessions.
func (rs *RPCServer) Close() {
	rs.bridge.Close()
	if rs.notifier != nil {
		rs.notifier.Stop()
	}
}
