package pcstream

import "sort"

// frameCache maps interval indices to frames. Slots are created lazily and
// never replaced, which is what bounds fetches to one per interval.
type frameCache struct {
	frames []*Frame
	count  int
}

func newFrameCache(size int) *frameCache {
	return &frameCache{frames: make([]*Frame, size)}
}

func (c *frameCache) get(index int) *Frame {
	if index < 0 || index >= len(c.frames) {
		return nil
	}
	return c.frames[index]
}

// ensure returns the frame at index, creating it with create when absent.
// created is true only for the call that created it.
func (c *frameCache) ensure(index int, create func() *Frame) (f *Frame, created bool) {
	if f = c.get(index); f != nil {
		return f, false
	}
	f = create()
	c.frames[index] = f
	c.count++
	return f, true
}

func (c *frameCache) each(fn func(*Frame)) {
	for _, f := range c.frames {
		if f != nil {
			fn(f)
		}
	}
}

func (c *frameCache) len() int {
	return c.count
}

func (c *frameCache) clear() {
	for i := range c.frames {
		c.frames[i] = nil
	}
	c.count = 0
}

func (c *frameCache) statuses() []FrameStatus {
	out := make([]FrameStatus, 0, c.count)
	c.each(func(f *Frame) {
		out = append(out, f.status())
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
