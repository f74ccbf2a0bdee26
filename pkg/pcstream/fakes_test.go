package pcstream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/warpdl/warpstream/pkg/clock"
	"github.com/warpdl/warpstream/pkg/timeline"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeRC is a RenderContext that records commands.
type fakeRC struct {
	frame   uint64
	cmds    []any
	pickIDs int
}

func (r *fakeRC) FrameNumber() uint64    { return r.frame }
func (r *fakeRC) AddCommand(cmd any)     { r.cmds = append(r.cmds, cmd) }
func (r *fakeRC) CommandCount() int      { return len(r.cmds) }
func (r *fakeRC) TruncateCommands(n int) { r.cmds = r.cmds[:n] }

func (r *fakeRC) CreatePickID(owner any) PickID {
	r.pickIDs++
	return &fakePickID{}
}

// next starts a new rendered frame.
func (r *fakeRC) next() *fakeRC {
	r.frame++
	r.cmds = nil
	return r
}

type fakePickID struct{ destroyed atomic.Bool }

func (p *fakePickID) Destroy() { p.destroyed.Store(true) }

// fakeAsset becomes ready after prepareSteps calls to Prepare. Every Prepare
// adds a scratch command and every Update adds a draw command.
type fakeAsset struct {
	mu           sync.Mutex
	locator      string
	prepareSteps int
	prepareErr   error
	preparePanic bool
	size         int64
	points       int
	radius       float64

	prepares  int
	updates   []Presentation
	destroyed atomic.Bool
}

func (a *fakeAsset) Prepare(rc RenderContext) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prepares++
	rc.AddCommand("scratch")
	if a.preparePanic {
		panic("prepare exploded")
	}
	if a.prepareErr != nil {
		return false, a.prepareErr
	}
	return a.prepares >= a.prepareSteps, nil
}

func (a *fakeAsset) Update(rc RenderContext, p *Presentation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	rc.AddCommand("draw " + a.locator)
	a.updates = append(a.updates, *p)
	return nil
}

func (a *fakeAsset) ByteSize() int64 { return a.size }

func (a *fakeAsset) PointCount() int         { return a.points }
func (a *fakeAsset) BoundingRadius() float64 { return a.radius }

func (a *fakeAsset) Destroy() error {
	a.destroyed.Store(true)
	return nil
}

func (a *fakeAsset) updateCalls() []Presentation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Presentation(nil), a.updates...)
}

// fakeDecoder builds a fakeAsset per locator and remembers it.
type fakeDecoder struct {
	mu         sync.Mutex
	assets     map[string]*fakeAsset
	steps      int
	size       int64
	err        error
	prepareErr error
	// set before the first tick
	panics       bool
	preparePanic bool
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{assets: map[string]*fakeAsset{}, steps: 1, size: 1000}
}

func (d *fakeDecoder) Decode(ctx context.Context, iv timeline.Interval, data []byte) (Asset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panics {
		panic("decode exploded")
	}
	if d.err != nil {
		return nil, d.err
	}
	a := &fakeAsset{locator: iv.Source, prepareSteps: d.steps, prepareErr: d.prepareErr, preparePanic: d.preparePanic, size: d.size, points: 1000, radius: 10}
	d.assets[iv.Source] = a
	return a, nil
}

func (d *fakeDecoder) asset(locator string) *fakeAsset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.assets[locator]
}

// fakeSource counts fetches per locator. When gated, fetches block until
// release is called or the context is cancelled.
type fakeSource struct {
	mu     sync.Mutex
	counts map[string]int
	fail   map[string]error
	gate   chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{counts: map[string]int{}, fail: map[string]error{}}
}

func (s *fakeSource) gated() *fakeSource {
	s.gate = make(chan struct{})
	return s
}

func (s *fakeSource) release() { close(s.gate) }

func (s *fakeSource) Fetch(ctx context.Context, locator string) ([]byte, error) {
	s.mu.Lock()
	s.counts[locator]++
	err := s.fail[locator]
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	if err != nil {
		return nil, err
	}
	return []byte(locator), nil
}

func (s *fakeSource) count(locator string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[locator]
}

func (s *fakeSource) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

type fakeClipping struct {
	enabled   bool
	state     uint64
	owner     any
	updates   int
	destroyed bool
}

func (c *fakeClipping) Enabled() bool           { return c.enabled }
func (c *fakeClipping) Update(rc RenderContext) { c.updates++ }
func (c *fakeClipping) State() uint64           { return c.state }
func (c *fakeClipping) Owner() any              { return c.owner }
func (c *fakeClipping) SetOwner(owner any)      { c.owner = owner }

func (c *fakeClipping) Destroy() error {
	c.destroyed = true
	return nil
}

type fakePost struct {
	calls     []int
	destroyed bool
}

func (p *fakePost) Process(rc RenderContext, firstCommand int, sh Shading) error {
	p.calls = append(p.calls, firstCommand)
	return nil
}

func (p *fakePost) Destroy() error {
	p.destroyed = true
	return nil
}

// threeIntervals is [t0,t0+10s) A, [t0+10s,t0+20s) B, [t0+20s,t0+30s) C.
// B carries a translation.
func threeIntervals(t *testing.T) *timeline.Index {
	t.Helper()
	shift := mgl64.Translate3D(1, 2, 3)
	idx, err := timeline.NewIndex([]timeline.Interval{
		{Start: t0, Stop: t0.Add(10 * time.Second), Source: "A"},
		{Start: t0.Add(10 * time.Second), Stop: t0.Add(20 * time.Second), Source: "B", Transform: &shift},
		{Start: t0.Add(20 * time.Second), Stop: t0.Add(30 * time.Second), Source: "C"},
	})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

// mutableClock is a Clock tests can move between ticks.
type mutableClock struct {
	mu   sync.Mutex
	snap clock.Snapshot
}

func newMutableClock(at time.Time, multiplier float64, animating bool) *mutableClock {
	return &mutableClock{snap: clock.Snapshot{
		CurrentTime:   at,
		Multiplier:    multiplier,
		CanAnimate:    animating,
		ShouldAnimate: animating,
	}}
}

func (c *mutableClock) set(at time.Time) {
	c.mu.Lock()
	c.snap.CurrentTime = at
	c.mu.Unlock()
}

func (c *mutableClock) setMultiplier(m float64) {
	c.mu.Lock()
	c.snap.Multiplier = m
	c.mu.Unlock()
}

func (c *mutableClock) Snapshot() clock.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// waitIdle waits until every issued fetch has posted its completion.
func waitIdle(t *testing.T, s *Stream) {
	t.Helper()
	waitFor(t, func() bool { return s.orch.pending() == 0 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

var errBoom = errors.New("boom")
