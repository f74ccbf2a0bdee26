package pcstream

import (
	"errors"
	"fmt"
)

var (
	// ErrDestroyed is returned by every operation after Destroy.
	ErrDestroyed = errors.New("pcstream: stream has been destroyed")
	// ErrTickInProgress is returned when Tick is entered while another Tick runs.
	ErrTickInProgress = errors.New("pcstream: tick already in progress")
	// ErrInvalidConfig is wrapped by every *ConfigError.
	ErrInvalidConfig = errors.New("pcstream: invalid config")
	// ErrClippingPlanesOwned is returned when a clipping collection already
	// belongs to another stream.
	ErrClippingPlanesOwned = errors.New("pcstream: clipping planes are owned by another stream")
	// ErrNilRenderContext is returned by Tick(nil).
	ErrNilRenderContext = errors.New("pcstream: nil render context")
)

// ConfigError reports a missing or invalid Config field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// FrameError records why a tile could not be shown. A frame holding a
// FrameError is never retried.
type FrameError struct {
	Index   int
	Locator string
	// Op is "fetch", "decode" or "prepare".
	Op    string
	Cause error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (%s) %s: %v", e.Index, e.Locator, e.Op, e.Cause)
}

func (e *FrameError) Unwrap() error {
	return e.Cause
}
