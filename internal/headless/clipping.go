package headless

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/warpdl/warpstream/pkg/pcstream"
)

// ErrClippingDestroyed is returned when a destroyed collection is modified.
var ErrClippingDestroyed = errors.New("clipping planes destroyed")

// Plane is the set of points p with Normal.Dot(p) + Distance == 0. Points on
// the negative side are clipped.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// SignedDistance is positive in front of the plane.
func (p Plane) SignedDistance(pt mgl64.Vec3) float64 {
	return p.Normal.Dot(pt) + p.Distance
}

// ClippingPlanes is a plane collection in the stream's model space. It
// implements pcstream.ClippingPlanes.
type ClippingPlanes struct {
	mu        sync.Mutex
	planes    []Plane
	enabled   bool
	union     bool
	owner     any
	state     uint64
	updates   uint64
	destroyed bool
}

// NewClippingPlanes returns an enabled collection. Normals are normalized.
func NewClippingPlanes(planes ...Plane) *ClippingPlanes {
	c := &ClippingPlanes{enabled: true}
	for _, p := range planes {
		c.planes = append(c.planes, normalize(p))
	}
	return c
}

func normalize(p Plane) Plane {
	l := p.Normal.Len()
	if l == 0 {
		return p
	}
	return Plane{Normal: p.Normal.Mul(1 / l), Distance: p.Distance / l}
}

// Add appends a plane.
func (c *ClippingPlanes) Add(p Plane) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrClippingDestroyed
	}
	c.planes = append(c.planes, normalize(p))
	return nil
}

// RemoveAll drops every plane.
func (c *ClippingPlanes) RemoveAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrClippingDestroyed
	}
	c.planes = nil
	return nil
}

// SetEnabled turns clipping on or off without discarding the planes.
func (c *ClippingPlanes) SetEnabled(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = v
}

// SetUnionClipping selects whether a point is clipped by any plane (union)
// or only when every plane clips it (intersection, the default).
func (c *ClippingPlanes) SetUnionClipping(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.union = v
}

// Len returns the number of planes.
func (c *ClippingPlanes) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.planes)
}

// Enabled reports whether the collection clips anything.
func (c *ClippingPlanes) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && len(c.planes) > 0 && !c.destroyed
}

// Update recomputes the state hash. It is called once per tick by the owner.
func (c *ClippingPlanes) Update(rc pcstream.RenderContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates++
	h := fnv.New64a()
	var buf [8]byte
	word := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	if c.union {
		word(1)
	} else {
		word(0)
	}
	for _, p := range c.planes {
		for _, v := range p.Normal {
			word(math.Float64bits(v))
		}
		word(math.Float64bits(p.Distance))
	}
	c.state = h.Sum64()
}

// State is the hash computed by the last Update.
func (c *ClippingPlanes) State() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Updates returns the number of Update calls.
func (c *ClippingPlanes) Updates() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

// Clips reports whether pt, transformed by model, is removed.
func (c *ClippingPlanes) Clips(model mgl64.Mat4, pt mgl64.Vec3) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || len(c.planes) == 0 {
		return false
	}
	world := mgl64.TransformCoordinate(pt, model)
	clipped := 0
	for _, p := range c.planes {
		if p.SignedDistance(world) < 0 {
			if c.union {
				return true
			}
			clipped++
		}
	}
	return !c.union && clipped == len(c.planes)
}

func (c *ClippingPlanes) Owner() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

func (c *ClippingPlanes) SetOwner(owner any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = owner
}

// IsDestroyed reports whether Destroy was called.
func (c *ClippingPlanes) IsDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Destroy releases the planes. It is safe to call more than once.
func (c *ClippingPlanes) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	c.planes = nil
	c.owner = nil
	return nil
}

var _ pcstream.ClippingPlanes = (*ClippingPlanes)(nil)
