package pcstream

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/warpdl/warpstream/pkg/clock"
	"github.com/warpdl/warpstream/pkg/logger"
	"github.com/warpdl/warpstream/pkg/timeline"
)

const (
	// DefaultMemoryBudgetMB is used when Config.MaximumMemoryUsageMB is zero.
	DefaultMemoryBudgetMB = 256
	// DefaultPrefetchWindow is how far ahead, in wall-clock time, the next
	// tile is requested.
	DefaultPrefetchWindow = 5 * time.Second
)

// ShadowMode controls shadow casting and receiving.
type ShadowMode int

const (
	ShadowsEnabled ShadowMode = iota
	ShadowsDisabled
	ShadowsCastOnly
	ShadowsReceiveOnly
)

func (m ShadowMode) String() string {
	switch m {
	case ShadowsEnabled:
		return "enabled"
	case ShadowsDisabled:
		return "disabled"
	case ShadowsCastOnly:
		return "cast-only"
	case ShadowsReceiveOnly:
		return "receive-only"
	}
	return "unknown"
}

// Shading configures point size attenuation and eye-dome lighting.
type Shading struct {
	Attenuation         bool
	GeometricErrorScale float64 // zero means 1
	MaximumAttenuation  float64 // pixels; zero means renderer default
	// BaseResolution overrides the derived geometric error when positive.
	BaseResolution          float64
	EyeDomeLighting         bool
	EyeDomeLightingStrength float64 // zero means 1
	EyeDomeLightingRadius   float64 // zero means 1
}

func (s Shading) withDefaults() Shading {
	if s.GeometricErrorScale == 0 {
		s.GeometricErrorScale = 1
	}
	if s.EyeDomeLightingStrength == 0 {
		s.EyeDomeLightingStrength = 1
	}
	if s.EyeDomeLightingRadius == 0 {
		s.EyeDomeLightingRadius = 1
	}
	return s
}

// FrameFailedEvent is delivered when a tile cannot be shown.
type FrameFailedEvent struct {
	Index   int
	Locator string
	Err     error
}

// FrameChangedEvent is delivered when a different tile is presented.
type FrameChangedEvent struct {
	Index   int
	Locator string
}

// Config holds everything New needs. Clock, Intervals, Source and Decoder
// are required; every other zero value selects a default.
type Config struct {
	Clock     clock.Clock
	Intervals *timeline.Index
	Source    Source
	Decoder   Decoder

	Hidden bool
	// ModelMatrix is the base transform. The zero matrix means identity.
	ModelMatrix mgl64.Mat4
	Shadows     ShadowMode
	// MaximumMemoryUsageMB is advisory; exceeding it only logs a warning.
	MaximumMemoryUsageMB int
	Shading              Shading
	Style                Style
	// ClippingPlanes ownership passes to the stream.
	ClippingPlanes ClippingPlanes
	// PostProcessor ownership passes to the stream.
	PostProcessor PostProcessor

	PrefetchWindow time.Duration
	Logger         logger.Logger
	// Now is the wall clock used for load timing.
	Now func() time.Time

	// OnFrameFailed and OnFrameChanged run on the Tick goroutine after the
	// stream lock is released, so they may call back into the stream.
	OnFrameFailed  func(FrameFailedEvent)
	OnFrameChanged func(FrameChangedEvent)
}

func (c *Config) validate() error {
	switch {
	case c.Clock == nil:
		return &ConfigError{Field: "Clock", Reason: "a clock is required"}
	case c.Intervals == nil:
		return &ConfigError{Field: "Intervals", Reason: "an interval collection is required"}
	case c.Source == nil:
		return &ConfigError{Field: "Source", Reason: "a tile source is required"}
	case c.Decoder == nil:
		return &ConfigError{Field: "Decoder", Reason: "a decoder is required"}
	case c.MaximumMemoryUsageMB < 0:
		return &ConfigError{Field: "MaximumMemoryUsageMB", Reason: "must not be negative"}
	case c.PrefetchWindow < 0:
		return &ConfigError{Field: "PrefetchWindow", Reason: "must not be negative"}
	}
	return nil
}

func modelOrIdentity(m mgl64.Mat4) mgl64.Mat4 {
	if m == (mgl64.Mat4{}) {
		return mgl64.Ident4()
	}
	return m
}
