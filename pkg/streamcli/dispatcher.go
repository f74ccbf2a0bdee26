package streamcli

import (
	"errors"
	"sync"

	"github.com/warpdl/warpstream/common"
)

// Dispatcher routes notifications to handlers by method name.
// Notifications without a handler are ignored.
type Dispatcher struct {
	mu       sync.RWMutex
	Handlers map[common.Notification]Handler
}

// ErrDisconnect may be returned by a handler to end the session without
// reporting an error.
var ErrDisconnect = errors.New("disconnect")

func (d *Dispatcher) set(n common.Notification, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h == nil {
		delete(d.Handlers, n)
		return
	}
	d.Handlers[n] = h
}

func (d *Dispatcher) process(n common.Notification, decode func(any) error) error {
	d.mu.RLock()
	h, ok := d.Handlers[n]
	d.mu.RUnlock()
	if !ok {
		return nil
	}
	return h.Handle(decode)
}
