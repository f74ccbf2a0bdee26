package pcstream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/warpdl/warpstream/pkg/clock"
	"github.com/warpdl/warpstream/pkg/logger"
	"github.com/warpdl/warpstream/pkg/timeline"
	"go.uber.org/multierr"
)

// Stream is a time-dynamic point cloud. Create it with New, drive it with
// Tick from one goroutine and release it with Destroy.
type Stream struct {
	ticking   atomic.Bool
	destroyed atomic.Bool

	mu        sync.Mutex
	clock     clock.Clock
	intervals *timeline.Index
	cache     *frameCache
	orch      *orchestrator
	mem       *memoryAccountant
	loadTimes loadTimeAverage
	log       logger.Logger
	now       func() time.Time
	window    time.Duration

	hidden      bool
	modelMatrix mgl64.Mat4
	shadows     ShadowMode
	shading     Shading
	style       Style
	styleDirty  bool

	clipping      ClippingPlanes
	clippingState uint64
	post          PostProcessor
	pickID        PickID

	started       bool
	startTime     time.Time
	lastPresented int

	onFrameFailed  func(FrameFailedEvent)
	onFrameChanged func(FrameChangedEvent)
}

// New validates cfg and returns a stream that has not fetched anything yet.
func New(cfg Config) (*Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	l := logger.WithPrefix(cfg.Logger, "stream: ")
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	window := cfg.PrefetchWindow
	if window == 0 {
		window = DefaultPrefetchWindow
	}
	s := &Stream{
		clock:          cfg.Clock,
		intervals:      cfg.Intervals,
		cache:          newFrameCache(cfg.Intervals.Len()),
		orch:           newOrchestrator(cfg.Source, cfg.Decoder, l),
		mem:            newMemoryAccountant(cfg.MaximumMemoryUsageMB),
		log:            l,
		now:            now,
		window:         window,
		hidden:         cfg.Hidden,
		modelMatrix:    modelOrIdentity(cfg.ModelMatrix),
		shadows:        cfg.Shadows,
		shading:        cfg.Shading.withDefaults(),
		style:          cfg.Style,
		post:           cfg.PostProcessor,
		lastPresented:  -1,
		onFrameFailed:  cfg.OnFrameFailed,
		onFrameChanged: cfg.OnFrameChanged,
	}
	if cfg.ClippingPlanes != nil {
		if err := s.adoptClippingPlanes(cfg.ClippingPlanes); err != nil {
			s.orch.cancel()
			return nil, err
		}
	}
	return s, nil
}

// event is a callback deferred until the stream lock is released.
type event func()

// Tick runs one update against rc. It never blocks on I/O.
func (s *Stream) Tick(rc RenderContext) error {
	if rc == nil {
		return ErrNilRenderContext
	}
	if !s.ticking.CompareAndSwap(false, true) {
		return ErrTickInProgress
	}
	defer s.ticking.Store(false)

	events, err := s.lockedTick(rc)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev != nil {
			ev()
		}
	}
	return nil
}

// lockedTick runs tickLocked under s.mu. The lock is released even when an
// asset panics.
func (s *Stream) lockedTick(rc RenderContext) ([]event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return nil, ErrDestroyed
	}
	return s.tickLocked(rc), nil
}

func (s *Stream) tickLocked(rc RenderContext) []event {
	if s.hidden {
		return nil
	}
	events := s.collectCompletions()

	if s.pickID == nil {
		s.pickID = rc.CreatePickID(s)
	}
	snap := s.clock.Snapshot()
	if !s.started {
		s.started = true
		s.startTime = snap.CurrentTime
	}

	isClipped := s.clipping != nil && s.clipping.Enabled()
	var clippingState uint64
	if isClipped {
		s.clipping.Update(rc)
		clippingState = s.clipping.State()
	}
	clippingDirty := clippingState != s.clippingState
	s.clippingState = clippingState

	commandStart := rc.CommandCount()

	if idx, ok := ResolveCurrent(snap, s.intervals); ok {
		f := s.ensureFrame(idx, rc)
		events = append(events, s.advanceFrame(f, rc)...)
		if f.state == FrameReady {
			events = append(events, s.present(f, rc, snap, isClipped, clippingDirty)...)
		}
	}

	if idx, ok := ResolveApproaching(snap, s.intervals, s.window); ok {
		f := s.ensureFrame(idx, rc)
		events = append(events, s.advanceFrame(f, rc)...)
	}

	if s.post != nil && s.shading.EyeDomeLighting && s.shading.Attenuation && rc.CommandCount() > commandStart {
		if err := s.post.Process(rc, commandStart, s.shading); err != nil {
			s.log.Error("post-processing: %v", err)
		}
	}
	return events
}

// collectCompletions applies fetch results posted since the last tick.
func (s *Stream) collectCompletions() []event {
	var events []event
	for _, c := range s.orch.drain() {
		f := s.cache.get(c.index)
		if f == nil {
			if c.asset != nil {
				_ = c.asset.Destroy()
			}
			continue
		}
		if c.err != nil {
			events = append(events, s.fail(f, c.err))
			continue
		}
		f.asset = c.asset
		f.state = FramePreparing
	}
	return events
}

// ensureFrame returns the frame for idx, creating it and issuing its fetch
// on first use.
func (s *Stream) ensureFrame(idx int, rc RenderContext) *Frame {
	iv, _ := s.intervals.At(idx)
	f, created := s.cache.ensure(idx, func() *Frame {
		return newFrame(idx, iv, s.now(), rc.FrameNumber())
	})
	if created {
		s.orch.issue(f)
	}
	return f
}

func (s *Stream) advanceFrame(f *Frame, rc RenderContext) []event {
	f.touch(rc.FrameNumber())
	ready, err := advance(f, rc)
	if err != nil {
		return []event{s.fail(f, &FrameError{Index: f.index, Locator: redact(f.interval.Source), Op: "prepare", Cause: err})}
	}
	if !ready {
		return nil
	}
	f.readyDuration = s.now().Sub(f.requestedAt)
	f.byteSize = f.asset.ByteSize()
	if s.mem.add(f.byteSize) {
		s.log.Warning("memory usage %d bytes exceeds the %d byte budget", s.mem.Total(), s.mem.Budget())
	}
	if f.sequential {
		s.loadTimes.add(f.readyDuration)
	}
	s.log.Info("frame %d ready in %s (%d bytes)", f.index, f.readyDuration, f.byteSize)
	return nil
}

func (s *Stream) fail(f *Frame, err error) event {
	f.err = err
	ev := FrameFailedEvent{Index: f.index, Locator: redact(f.interval.Source), Err: err}
	if s.onFrameFailed == nil {
		s.log.Error("%v", err)
		return nil
	}
	cb := s.onFrameFailed
	return func() { cb(ev) }
}

func (s *Stream) present(f *Frame, rc RenderContext, snap clock.Snapshot, isClipped, clippingDirty bool) []event {
	elapsed := float64(snap.CurrentTime.Sub(s.startTime)) / float64(time.Millisecond)
	if elapsed < 0 {
		elapsed = 0
	}
	p := &Presentation{
		ModelMatrix:         s.modelMatrix.Mul4(f.transform),
		Style:               s.style,
		StyleDirty:          s.styleDirty,
		TimeSinceLoad:       elapsed,
		Shadows:             s.shadows,
		ClippingPlanes:      s.clipping,
		IsClipped:           isClipped,
		ClippingPlanesDirty: clippingDirty,
		Shading:             s.shading,
		GeometricError:      geometricError(s.shading, f.asset) * s.shading.GeometricErrorScale,
		PickID:              s.pickID,
	}
	if err := f.asset.Update(rc, p); err != nil {
		s.log.Error("frame %d update: %v", f.index, err)
	}
	s.styleDirty = false

	if f.index == s.lastPresented {
		return nil
	}
	s.lastPresented = f.index
	if s.onFrameChanged == nil {
		return nil
	}
	cb, ev := s.onFrameChanged, FrameChangedEvent{Index: f.index, Locator: redact(f.interval.Source)}
	return []event{func() { cb(ev) }}
}

// MarkStyleDirty forces the style to be re-applied on the next presented tick.
func (s *Stream) MarkStyleDirty() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return ErrDestroyed
	}
	s.styleDirty = true
	return nil
}

// SetStyle replaces the style and marks it dirty.
func (s *Stream) SetStyle(style Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return ErrDestroyed
	}
	s.style = style
	s.styleDirty = true
	return nil
}

// SetShow toggles visibility. A hidden stream does no work on Tick.
func (s *Stream) SetShow(show bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return ErrDestroyed
	}
	s.hidden = !show
	return nil
}

// SetModelMatrix replaces the base transform. The zero matrix means identity.
func (s *Stream) SetModelMatrix(m mgl64.Mat4) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return ErrDestroyed
	}
	s.modelMatrix = modelOrIdentity(m)
	return nil
}

// SetShading replaces the shading options.
func (s *Stream) SetShading(sh Shading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return ErrDestroyed
	}
	s.shading = sh.withDefaults()
	return nil
}

// SetClippingPlanes takes ownership of cp, destroying the collection it
// replaces. nil removes clipping.
func (s *Stream) SetClippingPlanes(cp ClippingPlanes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return ErrDestroyed
	}
	if cp == s.clipping {
		return nil
	}
	if cp != nil {
		if owner := cp.Owner(); owner != nil && owner != any(s) {
			return ErrClippingPlanesOwned
		}
	}
	var err error
	if s.clipping != nil {
		err = s.clipping.Destroy()
	}
	s.clipping = nil
	if cp != nil {
		err = multierr.Append(err, s.adoptClippingPlanes(cp))
	}
	return err
}

func (s *Stream) adoptClippingPlanes(cp ClippingPlanes) error {
	if owner := cp.Owner(); owner != nil && owner != any(s) {
		return ErrClippingPlanesOwned
	}
	cp.SetOwner(s)
	s.clipping = cp
	return nil
}

// TotalMemoryUsageBytes is the device memory of every frame that became ready.
func (s *Stream) TotalMemoryUsageBytes() (int64, error) {
	if s.destroyed.Load() {
		return 0, ErrDestroyed
	}
	return s.mem.Total(), nil
}

// AverageLoadTime is the mean time from request to ready over the last five
// frames that loaded on consecutive ticks.
func (s *Stream) AverageLoadTime() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return 0, ErrDestroyed
	}
	return s.loadTimes.mean(), nil
}

// LastPresentedIndex is the interval index drawn most recently, or -1.
func (s *Stream) LastPresentedIndex() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return -1, ErrDestroyed
	}
	return s.lastPresented, nil
}

// Frames returns the state of every cache slot in interval order.
func (s *Stream) Frames() ([]FrameStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return nil, ErrDestroyed
	}
	return s.cache.statuses(), nil
}

// Status summarizes the stream for tooling.
type Status struct {
	Intervals          int
	Frames             int
	ReadyFrames        int
	FailedFrames       int
	PendingFetches     int
	MemoryUsageBytes   int64
	MemoryBudgetBytes  int64
	AverageLoadTime    time.Duration
	LastPresentedIndex int
}

// Status returns a snapshot of counters.
func (s *Stream) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Load() {
		return Status{}, ErrDestroyed
	}
	st := Status{
		Intervals:          s.intervals.Len(),
		Frames:             s.cache.len(),
		PendingFetches:     s.orch.pending(),
		MemoryUsageBytes:   s.mem.Total(),
		MemoryBudgetBytes:  s.mem.Budget(),
		AverageLoadTime:    s.loadTimes.mean(),
		LastPresentedIndex: s.lastPresented,
	}
	s.cache.each(func(f *Frame) {
		switch {
		case f.failed():
			st.FailedFrames++
		case f.state == FrameReady:
			st.ReadyFrames++
		}
	})
	return st, nil
}

// IsDestroyed reports whether Destroy has been called.
func (s *Stream) IsDestroyed() bool {
	return s.destroyed.Load()
}

// Wait blocks until every fetch goroutine started by the stream has returned
// or ctx is done. Call it after Destroy to make sure no fetch still uses the
// Source, e.g. before closing a cache behind it.
func (s *Stream) Wait(ctx context.Context) error {
	return s.orch.wait(ctx)
}

// Destroy releases every asset and owned resource. In-flight fetches are
// cancelled and their results discarded. Calling Destroy again is a no-op.
func (s *Stream) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed.Swap(true) {
		return nil
	}
	err := s.orch.shutdown()
	s.cache.each(func(f *Frame) {
		if f.asset != nil {
			err = multierr.Append(err, f.asset.Destroy())
			f.asset = nil
		}
	})
	s.cache.clear()
	if s.clipping != nil {
		err = multierr.Append(err, s.clipping.Destroy())
		s.clipping = nil
	}
	if s.post != nil {
		err = multierr.Append(err, s.post.Destroy())
		s.post = nil
	}
	if s.pickID != nil {
		s.pickID.Destroy()
		s.pickID = nil
	}
	return err
}
