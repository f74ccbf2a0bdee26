package streamcli

import "github.com/warpdl/warpstream/common"

// Handler processes one notification. decode unmarshals its params.
type Handler interface {
	Handle(decode func(any) error) error
}

// FrameChangedHandler invokes Callback for every presented frame.
type FrameChangedHandler struct {
	Callback func(*common.FrameChangedParams) error
}

// NewFrameChangedHandler wraps callback as a stream.frameChanged handler.
func NewFrameChangedHandler(callback func(*common.FrameChangedParams) error) *FrameChangedHandler {
	return &FrameChangedHandler{Callback: callback}
}

func (h *FrameChangedHandler) Handle(decode func(any) error) error {
	var v common.FrameChangedParams
	if err := decode(&v); err != nil {
		return err
	}
	return h.Callback(&v)
}

// FrameFailedHandler invokes Callback for every frame whose load failed.
type FrameFailedHandler struct {
	Callback func(*common.FrameFailedParams) error
}

// NewFrameFailedHandler wraps callback as a stream.frameFailed handler.
func NewFrameFailedHandler(callback func(*common.FrameFailedParams) error) *FrameFailedHandler {
	return &FrameFailedHandler{Callback: callback}
}

func (h *FrameFailedHandler) Handle(decode func(any) error) error {
	var v common.FrameFailedParams
	if err := decode(&v); err != nil {
		return err
	}
	return h.Callback(&v)
}
