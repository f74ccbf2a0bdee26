package pcstream

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/warpdl/warpstream/pkg/timeline"
)

// FrameState is the readiness of a cached tile. It only moves forward.
type FrameState int

const (
	FrameRequested FrameState = iota
	FramePreparing
	FrameReady
)

func (s FrameState) String() string {
	switch s {
	case FrameRequested:
		return "requested"
	case FramePreparing:
		return "preparing"
	case FrameReady:
		return "ready"
	}
	return "unknown"
}

// Frame is the cache slot of one interval.
type Frame struct {
	index       int
	interval    timeline.Interval
	asset       Asset
	transform   mgl64.Mat4
	requestedAt time.Time
	state       FrameState

	readyDuration time.Duration
	byteSize      int64
	err           error

	// sequential is cleared when a tick passes without the frame being
	// touched; only sequential loads feed the average load time.
	sequential   bool
	touchedFrame uint64
}

func newFrame(index int, iv timeline.Interval, now time.Time, frameNumber uint64) *Frame {
	return &Frame{
		index:        index,
		interval:     iv,
		transform:    iv.TransformOrIdentity(),
		requestedAt:  now,
		state:        FrameRequested,
		sequential:   true,
		touchedFrame: frameNumber,
	}
}

// failed reports whether the frame can never become ready.
func (f *Frame) failed() bool {
	return f.err != nil
}

func (f *Frame) touch(frameNumber uint64) {
	if frameNumber > 0 && f.touchedFrame < frameNumber-1 {
		f.sequential = false
	}
	f.touchedFrame = frameNumber
}

// FrameStatus is a read-only view of a cache slot.
type FrameStatus struct {
	Index         int
	Locator       string
	State         FrameState
	ReadyDuration time.Duration
	ByteSize      int64
	Err           error
}

func (f *Frame) status() FrameStatus {
	return FrameStatus{
		Index:         f.index,
		Locator:       redact(f.interval.Source),
		State:         f.state,
		ReadyDuration: f.readyDuration,
		ByteSize:      f.byteSize,
		Err:           f.err,
	}
}
