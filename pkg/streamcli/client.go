// Package streamcli is a client for the JSON-RPC control endpoint of a
// playing stream. Requests and server-pushed frame notifications share a
// single WebSocket session.
package streamcli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/warpdl/warpstream/common"
)

// Client talks to one control endpoint.
type Client struct {
	rpc *jrpc2.Client
	ch  *wsChannel
	d   *Dispatcher

	mu  sync.Mutex
	err error
}

// Endpoint converts a listen address or URL into the WebSocket URL of the
// control endpoint. "host:port", "http://host:port" and "ws://host:port/..."
// are accepted.
func Endpoint(addr string) (string, error) {
	if addr == "" {
		return "", errors.New("empty endpoint address")
	}
	switch {
	case strings.HasPrefix(addr, "ws://"), strings.HasPrefix(addr, "wss://"):
	case strings.HasPrefix(addr, "http://"), strings.HasPrefix(addr, "https://"):
		addr = "ws" + strings.TrimPrefix(addr, "http")
	case strings.Contains(addr, "://"):
		return "", fmt.Errorf("unsupported endpoint scheme: %s", addr)
	default:
		addr = "ws://" + addr
	}
	if !strings.HasSuffix(addr, "/jsonrpc/ws") {
		addr = strings.TrimSuffix(addr, "/") + "/jsonrpc/ws"
	}
	return addr, nil
}

// Dial opens a session to the endpoint at addr, authenticating with secret.
func Dial(ctx context.Context, addr, secret string) (*Client, error) {
	u, err := Endpoint(addr)
	if err != nil {
		return nil, err
	}
	conn, resp, err := cws.Dial(ctx, u, &cws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + secret}},
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return newClient(conn), nil
}

// ErrUnauthorized is returned by Dial when the endpoint rejects the secret.
var ErrUnauthorized = errors.New("control endpoint rejected the secret")

func newClient(conn *cws.Conn) *Client {
	c := &Client{
		ch: newWSChannel(conn),
		d:  &Dispatcher{Handlers: make(map[common.Notification]Handler)},
	}
	c.rpc = jrpc2.NewClient(c.ch, &jrpc2.ClientOptions{
		OnNotify: c.onNotify,
	})
	return c
}

func (c *Client) onNotify(req *jrpc2.Request) {
	err := c.d.process(common.Notification(req.Method()), req.UnmarshalParams)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrDisconnect) {
		c.mu.Lock()
		if c.err == nil {
			c.err = err
		}
		c.mu.Unlock()
	}
	go c.Close()
}

// Handle registers h for the notification method n, replacing any previous
// handler. A handler returning ErrDisconnect ends the session cleanly.
func (c *Client) Handle(n common.Notification, h Handler) {
	c.d.set(n, h)
}

// Wait blocks until the session ends or ctx is done. It returns the first
// handler error, if any.
func (c *Client) Wait(ctx context.Context) error {
	select {
	case <-c.ch.done:
	case <-ctx.Done():
		_ = c.Close()
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close ends the session.
func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) invoke(ctx context.Context, method common.Method, result any) error {
	err := c.rpc.CallResult(ctx, string(method), nil, result)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// wsChannel carries one JSON-RPC message per WebSocket text frame. done is
// closed once the peer goes away.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
	done chan struct{}
	once sync.Once
}

func newWSChannel(conn *cws.Conn) *wsChannel {
	return &wsChannel{conn: conn, ctx: context.Background(), done: make(chan struct{})}
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		c.finish()
	}
	return data, err
}

func (c *wsChannel) Close() error {
	c.finish()
	return c.conn.Close(cws.StatusNormalClosure, "")
}

func (c *wsChannel) finish() {
	c.once.Do(func() { close(c.done) })
}
