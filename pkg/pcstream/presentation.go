package pcstream

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Presentation is everything an asset needs to draw itself on a tick where
// it is the current tile.
type Presentation struct {
	// ModelMatrix is the stream's base transform times the interval transform.
	ModelMatrix mgl64.Mat4
	Style       Style
	StyleDirty  bool
	// TimeSinceLoad is milliseconds of clock time since the stream's first tick.
	TimeSinceLoad       float64
	Shadows             ShadowMode
	ClippingPlanes      ClippingPlanes
	IsClipped           bool
	ClippingPlanesDirty bool
	Shading             Shading
	GeometricError      float64
	PickID              PickID
}

// geometricError is the base resolution when configured, otherwise the edge
// of the cube each point would occupy if the bounding sphere's volume were
// shared evenly.
func geometricError(sh Shading, a Asset) float64 {
	if sh.BaseResolution > 0 {
		return sh.BaseResolution
	}
	b, ok := a.(Bounded)
	if !ok || b.PointCount() == 0 {
		return 0
	}
	r := b.BoundingRadius()
	volume := 4.0 / 3.0 * math.Pi * r * r * r
	return math.Cbrt(volume / float64(b.PointCount()))
}
