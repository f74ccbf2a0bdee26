package pcd

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/warpdl/warpstream/pkg/pcstream"
)

// DefaultChunkPoints is how many points one Prepare call uploads.
const DefaultChunkPoints = 65536

// UploadCommand is the scratch command Prepare records while staging a
// chunk. The stream discards it.
type UploadCommand struct {
	First, Count int
}

// DrawCommand is added by Update for every presented tick.
type DrawCommand struct {
	Cloud          *Cloud
	ModelMatrix    mgl64.Mat4
	Visible        int
	PointSize      float64
	GeometricError float64
	TimeSinceLoad  float64
	Shadows        pcstream.ShadowMode
	Clipped        bool
	PickID         pcstream.PickID
}

// Cloud is a decoded tile that uploads itself in chunks.
type Cloud struct {
	mu        sync.Mutex
	points    *Points
	chunk     int
	uploaded  int
	styled    bool
	visible   []bool
	colors    []pcstream.Color
	shown     int
	destroyed bool
}

// NewCloud wraps p. chunk <= 0 selects DefaultChunkPoints.
func NewCloud(p *Points, chunk int) *Cloud {
	if chunk <= 0 {
		chunk = DefaultChunkPoints
	}
	return &Cloud{points: p, chunk: chunk, shown: p.Len()}
}

// Prepare uploads the next chunk and reports whether every point is resident.
func (c *Cloud) Prepare(rc pcstream.RenderContext) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return false, errDestroyed
	}
	n := c.points.Len()
	if c.uploaded < n {
		count := min(c.chunk, n-c.uploaded)
		rc.AddCommand(UploadCommand{First: c.uploaded, Count: count})
		c.uploaded += count
	}
	return c.uploaded >= n, nil
}

// Update applies the style when it changed and records a draw command.
func (c *Cloud) Update(rc pcstream.RenderContext, p *pcstream.Presentation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return errDestroyed
	}
	if p.Style != nil && (p.StyleDirty || !c.styled) {
		if err := c.applyStyle(p.Style); err != nil {
			return err
		}
	}
	if p.Style == nil && c.styled {
		c.visible, c.colors, c.shown, c.styled = nil, nil, c.points.Len(), false
	}
	rc.AddCommand(DrawCommand{
		Cloud:          c,
		ModelMatrix:    p.ModelMatrix,
		Visible:        c.shown,
		PointSize:      pointSize(p.Shading, p.GeometricError),
		GeometricError: p.GeometricError,
		TimeSinceLoad:  p.TimeSinceLoad,
		Shadows:        p.Shadows,
		Clipped:        p.IsClipped,
		PickID:         p.PickID,
	})
	return nil
}

func (c *Cloud) applyStyle(s pcstream.Style) error {
	n := c.points.Len()
	visible := make([]bool, n)
	colors := make([]pcstream.Color, n)
	shown := 0
	var err error
	c.visitLocked(func(pt pcstream.Point) bool {
		var show bool
		if show, err = s.Show(pt); err != nil {
			return false
		}
		visible[pt.Index] = show
		if !show {
			return true
		}
		shown++
		colors[pt.Index], err = s.Color(pt)
		return err == nil
	})
	if err != nil {
		return err
	}
	c.visible, c.colors, c.shown, c.styled = visible, colors, shown, true
	return nil
}

// pointSize is the attenuated point size in pixels; 1 without attenuation.
func pointSize(sh pcstream.Shading, geometricError float64) float64 {
	if !sh.Attenuation || geometricError <= 0 {
		return 1
	}
	size := geometricError
	if sh.MaximumAttenuation > 0 {
		size = math.Min(size, sh.MaximumAttenuation)
	}
	return math.Max(size, 1)
}

// ByteSize is the device memory of positions, colors and intensities.
func (c *Cloud) ByteSize() int64 {
	p := c.points
	return int64(4*len(p.Positions) + len(p.Colors) + 4*len(p.Intensity))
}

// PointCount implements pcstream.Bounded.
func (c *Cloud) PointCount() int { return c.points.Len() }

// BoundingRadius implements pcstream.Bounded.
func (c *Cloud) BoundingRadius() float64 { return c.points.Radius }

// Visible returns the number of points the current style shows.
func (c *Cloud) Visible() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shown
}

// IsVisible reports whether the current style shows point i.
func (c *Cloud) IsVisible(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible == nil || c.visible[i]
}

// ColorAt returns the styled color of point i, falling back to the tile color.
func (c *Cloud) ColorAt(i int) pcstream.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors != nil {
		return c.colors[i]
	}
	return c.points.color(i)
}

// VisitPoints calls fn for every point in order until fn returns false.
func (c *Cloud) VisitPoints(fn func(pcstream.Point) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visitLocked(fn)
}

func (c *Cloud) visitLocked(fn func(pcstream.Point) bool) {
	p := c.points
	for i := 0; i < p.Len(); i++ {
		pt := pcstream.Point{
			Index: i,
			X:     float64(p.Positions[3*i]),
			Y:     float64(p.Positions[3*i+1]),
			Z:     float64(p.Positions[3*i+2]),
			Color: p.color(i),
		}
		if p.Intensity != nil {
			pt.Intensity = float64(p.Intensity[i])
		}
		if !fn(pt) {
			return
		}
	}
}

func (p *Points) color(i int) pcstream.Color {
	if p.Colors == nil {
		return pcstream.Color{255, 255, 255, 255}
	}
	return pcstream.Color{p.Colors[4*i], p.Colors[4*i+1], p.Colors[4*i+2], p.Colors[4*i+3]}
}

// Destroy drops the point buffers. It is safe to call more than once.
func (c *Cloud) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	c.visible, c.colors = nil, nil
	return nil
}

var (
	_ pcstream.Asset   = (*Cloud)(nil)
	_ pcstream.Bounded = (*Cloud)(nil)
)
