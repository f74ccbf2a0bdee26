package headless

import (
	"sync"

	"github.com/warpdl/warpstream/pkg/pcstream"
)

// Context records render commands for one frame at a time. It implements
// pcstream.RenderContext.
type Context struct {
	mu       sync.Mutex
	frame    uint64
	commands []any
	nextPick uint32
	picks    map[uint32]any
}

// NewContext returns a context positioned at frame 0.
func NewContext() *Context {
	return &Context{picks: make(map[uint32]any)}
}

// BeginFrame advances the frame counter and returns the commands recorded
// during the previous frame.
func (c *Context) BeginFrame() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.commands
	c.commands = nil
	c.frame++
	return prev
}

func (c *Context) FrameNumber() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

func (c *Context) AddCommand(cmd any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, cmd)
}

func (c *Context) CommandCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.commands)
}

func (c *Context) TruncateCommands(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n < len(c.commands) {
		clear(c.commands[n:])
		c.commands = c.commands[:n]
	}
}

// Commands returns a copy of the commands recorded so far this frame.
func (c *Context) Commands() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.commands))
	copy(out, c.commands)
	return out
}

// Command returns the i-th command of the current frame.
func (c *Context) Command(i int) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.commands) {
		return nil, false
	}
	return c.commands[i], true
}

// CreatePickID allocates a picking handle for owner. Ids start at 1.
func (c *Context) CreatePickID(owner any) pcstream.PickID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextPick++
	c.picks[c.nextPick] = owner
	return &PickID{ctx: c, id: c.nextPick}
}

// PickOwner resolves a pick id to the object it was created for.
func (c *Context) PickOwner(id uint32) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.picks[id]
	return owner, ok
}

// LivePickIDs returns the number of pick ids not yet destroyed.
func (c *Context) LivePickIDs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.picks)
}

func (c *Context) releasePick(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.picks, id)
}

// PickID is a handle allocated by Context.CreatePickID.
type PickID struct {
	ctx  *Context
	id   uint32
	once sync.Once
}

// ID is the numeric id written to the pick buffer.
func (p *PickID) ID() uint32 { return p.id }

// Destroy releases the id. Further calls do nothing.
func (p *PickID) Destroy() {
	p.once.Do(func() { p.ctx.releasePick(p.id) })
}

var _ pcstream.RenderContext = (*Context)(nil)
