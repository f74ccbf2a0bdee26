package pcstream

import (
	"testing"
	"time"

	"github.com/warpdl/warpstream/pkg/clock"
)

func snapAt(offset time.Duration, multiplier float64, animating bool) clock.Snapshot {
	return clock.Snapshot{
		CurrentTime:   t0.Add(offset),
		Multiplier:    multiplier,
		CanAnimate:    animating,
		ShouldAnimate: animating,
	}
}

func TestResolveCurrent(t *testing.T) {
	idx := threeIntervals(t)
	tests := []struct {
		name   string
		offset time.Duration
		want   int
		ok     bool
	}{
		{"first interval", 5 * time.Second, 0, true},
		{"start is inclusive", 10 * time.Second, 1, true},
		{"just before boundary", 20*time.Second - time.Nanosecond, 1, true},
		{"last stop is inclusive", 30 * time.Second, 2, true},
		{"before first", -time.Second, -1, false},
		{"after last", 31 * time.Second, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveCurrent(snapAt(tt.offset, 1, true), idx)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("ResolveCurrent = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestResolveApproaching(t *testing.T) {
	idx := threeIntervals(t)
	tests := []struct {
		name       string
		offset     time.Duration
		multiplier float64
		animating  bool
		want       int
		ok         bool
	}{
		{"forward within window", 7 * time.Second, 1, true, 1, true},
		{"forward exactly at window", 5 * time.Second, 1, true, 1, true},
		{"forward beyond window", 3 * time.Second, 1, true, -1, false},
		{"multiplier shrinks wall time", 3 * time.Second, 2, true, 1, true},
		{"slow multiplier stretches wall time", 8 * time.Second, 0.1, true, -1, false},
		{"paused clock", 9 * time.Second, 1, false, -1, false},
		{"zero multiplier", 9 * time.Second, 0, true, -1, false},
		{"backward within window", 12 * time.Second, -1, true, 0, true},
		{"backward beyond window", 18 * time.Second, -1, true, -1, false},
		{"backward from first interval", 2 * time.Second, -1, true, -1, false},
		{"forward from last interval", 28 * time.Second, 1, true, -1, false},
		{"outside every interval", 40 * time.Second, 1, true, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveApproaching(snapAt(tt.offset, tt.multiplier, tt.animating), idx, DefaultPrefetchWindow)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("ResolveApproaching = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLoadTimeAverage(t *testing.T) {
	var a loadTimeAverage
	if a.mean() != 0 {
		t.Fatalf("empty mean = %v, want 0", a.mean())
	}
	for i := 1; i <= 3; i++ {
		a.add(time.Duration(i) * time.Second)
	}
	if got := a.mean(); got != 2*time.Second {
		t.Errorf("mean of 1,2,3s = %v, want 2s", got)
	}
	// Only the last five samples count: 3..7s.
	for i := 4; i <= 7; i++ {
		a.add(time.Duration(i) * time.Second)
	}
	if got := a.mean(); got != 5*time.Second {
		t.Errorf("mean of last five = %v, want 5s", got)
	}
}

func TestMemoryAccountant(t *testing.T) {
	m := newMemoryAccountant(0)
	if m.Budget() != DefaultMemoryBudgetMB*1024*1024 {
		t.Errorf("default budget = %d", m.Budget())
	}
	m = newMemoryAccountant(1)
	if m.add(512 * 1024) {
		t.Error("half the budget should not warn")
	}
	if !m.add(768 * 1024) {
		t.Error("crossing the budget should warn once")
	}
	if m.add(1024) {
		t.Error("the budget warning must only fire once")
	}
	if m.add(-10); m.Total() != 512*1024+768*1024+1024 {
		t.Errorf("total = %d; negative sizes must be ignored", m.Total())
	}
}

func TestGeometricError(t *testing.T) {
	a := &fakeAsset{points: 1000, radius: 10}
	if got := geometricError(Shading{BaseResolution: 0.25}, a); got != 0.25 {
		t.Errorf("base resolution override = %v, want 0.25", got)
	}
	got := geometricError(Shading{}, a)
	// (4/3 * pi * 1000 / 1000)^(1/3)
	if got < 1.611 || got > 1.612 {
		t.Errorf("derived geometric error = %v, want ~1.6120", got)
	}
	if got := geometricError(Shading{}, &fakeAsset{}); got != 0 {
		t.Errorf("empty asset geometric error = %v, want 0", got)
	}
}
