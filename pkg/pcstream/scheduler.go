package pcstream

import (
	"time"

	"github.com/warpdl/warpstream/pkg/clock"
	"github.com/warpdl/warpstream/pkg/timeline"
)

// ResolveCurrent returns the index of the interval containing the snapshot's
// current time.
func ResolveCurrent(snap clock.Snapshot, intervals *timeline.Index) (int, bool) {
	return intervals.Find(snap.CurrentTime)
}

// ResolveApproaching returns the interval playback will enter next, provided
// the boundary is at most window away in wall-clock time. Only an animating
// clock has an approaching interval.
func ResolveApproaching(snap clock.Snapshot, intervals *timeline.Index, window time.Duration) (int, bool) {
	if !snap.Animating() || snap.Multiplier == 0 {
		return -1, false
	}
	cur, ok := intervals.Find(snap.CurrentTime)
	if !ok {
		return -1, false
	}
	iv, _ := intervals.At(cur)

	candidate, boundary := cur+1, iv.Stop
	if snap.Multiplier < 0 {
		candidate, boundary = cur-1, iv.Start
	}
	if candidate < 0 || candidate >= intervals.Len() {
		return -1, false
	}
	// Positive in both directions: the boundary lies ahead of playback.
	wallSeconds := boundary.Sub(snap.CurrentTime).Seconds() / snap.Multiplier
	if wallSeconds > window.Seconds() {
		return -1, false
	}
	return candidate, true
}
