// Package timeline holds the ordered set of time intervals a stream plays
// through and the manifest format that describes them.
package timeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrEmptyInterval = errors.New("interval stop must be after start")
	ErrOverlap       = errors.New("intervals overlap")
	ErrNoSource      = errors.New("interval has no source locator")
)

// Interval is one time-bounded tile of the sequence.
type Interval struct {
	Start time.Time
	Stop  time.Time
	// Source locates the tile bytes, e.g. "https://host/tiles/0.pcd".
	Source string
	// Transform is applied on top of the stream's model matrix. Nil means identity.
	Transform *mgl64.Mat4
}

// Contains reports whether t falls in [Start, Stop).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.Stop)
}

// Duration returns Stop - Start.
func (iv Interval) Duration() time.Duration {
	return iv.Stop.Sub(iv.Start)
}

// TransformOrIdentity returns the interval transform or the identity matrix.
func (iv Interval) TransformOrIdentity() mgl64.Mat4 {
	if iv.Transform == nil {
		return mgl64.Ident4()
	}
	return *iv.Transform
}

// Index is an immutable, ordered, non-overlapping list of intervals.
// Interval indices are stable for the life of the Index.
type Index struct {
	intervals []Interval
}

// NewIndex sorts a copy of intervals by start time and validates it.
func NewIndex(intervals []Interval) (*Index, error) {
	ivs := make([]Interval, len(intervals))
	copy(ivs, intervals)
	sort.SliceStable(ivs, func(i, j int) bool {
		return ivs[i].Start.Before(ivs[j].Start)
	})
	for i, iv := range ivs {
		if !iv.Stop.After(iv.Start) {
			return nil, fmt.Errorf("interval %d (%s): %w", i, iv.Source, ErrEmptyInterval)
		}
		if iv.Source == "" {
			return nil, fmt.Errorf("interval %d: %w", i, ErrNoSource)
		}
		if i > 0 && iv.Start.Before(ivs[i-1].Stop) {
			return nil, fmt.Errorf("interval %d (%s) starts before %d ends: %w", i, iv.Source, i-1, ErrOverlap)
		}
	}
	return &Index{intervals: ivs}, nil
}

// Len returns the number of intervals.
func (x *Index) Len() int {
	return len(x.intervals)
}

// At returns the interval at i. ok is false when i is out of range.
func (x *Index) At(i int) (iv Interval, ok bool) {
	if i < 0 || i >= len(x.intervals) {
		return Interval{}, false
	}
	return x.intervals[i], true
}

// Find returns the index of the interval containing t.
// Intervals are half-open, except that the final interval also contains its
// stop time so a clock parked at the end still resolves to the last tile.
func (x *Index) Find(t time.Time) (int, bool) {
	n := len(x.intervals)
	i := sort.Search(n, func(i int) bool {
		return x.intervals[i].Stop.After(t)
	})
	if i < n && x.intervals[i].Contains(t) {
		return i, true
	}
	if n > 0 && x.intervals[n-1].Stop.Equal(t) {
		return n - 1, true
	}
	return -1, false
}

// Span returns the start of the first interval and the stop of the last.
func (x *Index) Span() (start, stop time.Time) {
	if len(x.intervals) == 0 {
		return time.Time{}, time.Time{}
	}
	return x.intervals[0].Start, x.intervals[len(x.intervals)-1].Stop
}

// All returns a copy of the intervals in order.
func (x *Index) All() []Interval {
	return append([]Interval(nil), x.intervals...)
}
