package pcstream

import (
	"context"

	"github.com/warpdl/warpstream/pkg/timeline"
)

// RenderContext is the renderer state passed to Tick. Commands are opaque to
// the stream; it only counts and truncates them.
type RenderContext interface {
	// FrameNumber increases by one for every rendered frame.
	FrameNumber() uint64
	AddCommand(cmd any)
	CommandCount() int
	// TruncateCommands drops every command after the first n.
	TruncateCommands(n int)
	CreatePickID(owner any) PickID
}

// PickID is a renderer-allocated picking handle.
type PickID interface {
	Destroy()
}

// Asset is a decoded tile. Prepare is called once per tick until it reports
// ready; any commands it adds are discarded. Update is called on ticks where
// the asset is the presented tile.
type Asset interface {
	Prepare(rc RenderContext) (ready bool, err error)
	Update(rc RenderContext, p *Presentation) error
	// ByteSize is the device memory held once ready.
	ByteSize() int64
	Destroy() error
}

// Bounded is implemented by assets that know their point count and bounding
// sphere, which the stream uses to derive a geometric error.
type Bounded interface {
	PointCount() int
	BoundingRadius() float64
}

// Source returns the raw bytes of a tile.
type Source interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, locator string) ([]byte, error)

func (f SourceFunc) Fetch(ctx context.Context, locator string) ([]byte, error) {
	return f(ctx, locator)
}

// Decoder turns tile bytes into an Asset. It runs on a fetch goroutine.
type Decoder interface {
	Decode(ctx context.Context, iv timeline.Interval, data []byte) (Asset, error)
}

// Color is 8-bit RGBA.
type Color [4]uint8

// Point is the per-point input of a Style.
type Point struct {
	Index     int
	X, Y, Z   float64
	Color     Color
	Intensity float64
}

// Style evaluates per-point visibility and color.
type Style interface {
	Show(p Point) (bool, error)
	Color(p Point) (Color, error)
}

// ClippingPlanes is a clipping plane collection. A collection is owned by at
// most one stream.
type ClippingPlanes interface {
	Enabled() bool
	Update(rc RenderContext)
	// State changes whenever the planes change.
	State() uint64
	Owner() any
	SetOwner(owner any)
	Destroy() error
}

// PostProcessor is a screen-space pass over the commands a tick added,
// such as eye-dome lighting.
type PostProcessor interface {
	Process(rc RenderContext, firstCommand int, shading Shading) error
	Destroy() error
}
