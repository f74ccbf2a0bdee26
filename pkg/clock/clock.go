// Package clock supplies the playback clock a stream is synchronized against.
package clock

import (
	"sync"
	"time"
)

// Snapshot is the clock state sampled once per tick.
type Snapshot struct {
	CurrentTime time.Time
	// Multiplier is simulation seconds per wall-clock second. Negative plays backward.
	Multiplier    float64
	CanAnimate    bool
	ShouldAnimate bool
}

// Animating reports whether the clock advances on its own.
func (s Snapshot) Animating() bool {
	return s.CanAnimate && s.ShouldAnimate
}

// Clock is anything that can be sampled for a Snapshot.
type Clock interface {
	Snapshot() Snapshot
}

// Static is a Clock that always returns the same snapshot.
type Static Snapshot

// Snapshot returns s unchanged.
func (s Static) Snapshot() Snapshot {
	return Snapshot(s)
}

// Range controls what a SimClock does when it reaches either end of its range.
type Range int

const (
	// Unbounded lets the clock run past its start and stop.
	Unbounded Range = iota
	// Clamped holds the clock at the boundary it reached.
	Clamped
	// LoopStop jumps back to the opposite boundary.
	LoopStop
)

// SimClock is a simulation clock advanced by wall-clock deltas scaled by a
// multiplier. It is safe for concurrent use.
type SimClock struct {
	mu            sync.Mutex
	start, stop   time.Time
	current       time.Time
	multiplier    float64
	canAnimate    bool
	shouldAnimate bool
	rng           Range
	now           func() time.Time
	lastWall      time.Time
}

// NewSimClock returns an animating clock at start with multiplier 1.
func NewSimClock(start, stop time.Time) *SimClock {
	return &SimClock{
		start:         start,
		stop:          stop,
		current:       start,
		multiplier:    1,
		canAnimate:    true,
		shouldAnimate: true,
		now:           time.Now,
	}
}

// SetWallClock replaces the wall-clock source used by Tick.
func (c *SimClock) SetWallClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	c.lastWall = time.Time{}
}

// SetRange sets the boundary behavior.
func (c *SimClock) SetRange(r Range) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rng = r
}

// SetMultiplier sets the playback rate.
func (c *SimClock) SetMultiplier(m float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.multiplier = m
}

// SetShouldAnimate pauses or resumes playback.
func (c *SimClock) SetShouldAnimate(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldAnimate = v
}

// SetCanAnimate marks whether the clock is allowed to advance at all,
// e.g. while data the application waits on is still loading.
func (c *SimClock) SetCanAnimate(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canAnimate = v
}

// SetCurrentTime jumps the clock.
func (c *SimClock) SetCurrentTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Snapshot returns the current state without advancing.
func (c *SimClock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *SimClock) snapshotLocked() Snapshot {
	return Snapshot{
		CurrentTime:   c.current,
		Multiplier:    c.multiplier,
		CanAnimate:    c.canAnimate,
		ShouldAnimate: c.shouldAnimate,
	}
}

// Tick advances the clock by the wall time elapsed since the previous Tick
// and returns the new state. The first call only records the wall time.
func (c *SimClock) Tick() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	wall := c.now()
	if c.lastWall.IsZero() {
		c.lastWall = wall
		return c.snapshotLocked()
	}
	delta := wall.Sub(c.lastWall)
	c.lastWall = wall
	if c.canAnimate && c.shouldAnimate && c.multiplier != 0 {
		c.current = c.current.Add(time.Duration(float64(delta) * c.multiplier))
		c.applyRangeLocked()
	}
	return c.snapshotLocked()
}

func (c *SimClock) applyRangeLocked() {
	switch c.rng {
	case Clamped:
		if c.current.Before(c.start) {
			c.current = c.start
		} else if c.current.After(c.stop) {
			c.current = c.stop
		}
	case LoopStop:
		if c.multiplier > 0 && c.current.After(c.stop) {
			c.current = c.start
		} else if c.multiplier < 0 && c.current.Before(c.start) {
			c.current = c.stop
		}
	}
}

var (
	_ Clock = Static{}
	_ Clock = (*SimClock)(nil)
)
