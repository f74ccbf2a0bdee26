package headless

import (
	"errors"
	"sync"

	"github.com/warpdl/warpstream/pkg/pcstream"
)

var errEDLDestroyed = errors.New("eye-dome lighting destroyed")

// EDLCommand is the screen-space pass added after a tick's draws. It shades
// the commands in [First, First+Count).
type EDLCommand struct {
	First    int
	Count    int
	Strength float64
	Radius   float64
}

// EyeDomeLighting adds one EDLCommand per processed tick. It implements
// pcstream.PostProcessor.
type EyeDomeLighting struct {
	mu        sync.Mutex
	passes    int
	destroyed bool
}

func NewEyeDomeLighting() *EyeDomeLighting {
	return &EyeDomeLighting{}
}

func (e *EyeDomeLighting) Process(rc pcstream.RenderContext, firstCommand int, sh pcstream.Shading) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return errEDLDestroyed
	}
	n := rc.CommandCount() - firstCommand
	if n <= 0 {
		return nil
	}
	rc.AddCommand(EDLCommand{
		First:    firstCommand,
		Count:    n,
		Strength: sh.EyeDomeLightingStrength,
		Radius:   sh.EyeDomeLightingRadius,
	})
	e.passes++
	return nil
}

// Passes returns the number of EDL commands added.
func (e *EyeDomeLighting) Passes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.passes
}

func (e *EyeDomeLighting) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = true
	return nil
}

var _ pcstream.PostProcessor = (*EyeDomeLighting)(nil)
