// Package style evaluates JavaScript point styles with goja.
//
// A style has two optional parts: a show expression deciding whether a point
// is drawn and a color expression returning its color. Both see the point as
// p with fields x, y, z, r, g, b, a, intensity and index. Colors are
// "#rrggbb", "#rrggbbaa" or an [r, g, b(, a)] array.
package style

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/warpdl/warpstream/pkg/pcstream"
)

var (
	ErrNotFunction = errors.New("style: not a function")
	ErrBadColor    = errors.New("style: invalid color value")
)

// prelude is evaluated in every runtime before the style.
const prelude = `
function rgb(r, g, b) { return [r, g, b, 255]; }
function rgba(r, g, b, a) { return [r, g, b, a]; }
function clamp(v, lo, hi) { return Math.min(Math.max(v, lo), hi); }
function mix(a, b, t) { return a + (b - a) * t; }
`

// Style is a compiled style. A goja runtime is single threaded, so calls are
// serialized.
type Style struct {
	mu    sync.Mutex
	rt    *Runtime
	show  goja.Callable
	color goja.Callable
	point *goja.Object
}

// Compile builds a Style from a show and a color expression. An empty
// expression keeps the default: every point is shown in its own color.
func Compile(show, color string) (*Style, error) {
	rt, err := NewRuntime(nil, "", nil)
	if err != nil {
		return nil, err
	}
	s := &Style{rt: rt}
	if show != "" {
		if s.show, err = rt.compileExpression("show", show); err != nil {
			return nil, err
		}
	}
	if color != "" {
		if s.color, err = rt.compileExpression("color", color); err != nil {
			return nil, err
		}
	}
	s.point = rt.NewObject()
	return s, nil
}

// Show implements pcstream.Style.
func (s *Style) Show(p pcstream.Point) (bool, error) {
	if s.show == nil {
		return true, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.show(goja.Undefined(), s.pointValue(p))
	if err != nil {
		return false, fmt.Errorf("style: show: %w", err)
	}
	return v.ToBoolean(), nil
}

// Color implements pcstream.Style.
func (s *Style) Color(p pcstream.Point) (pcstream.Color, error) {
	if s.color == nil {
		return p.Color, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.color(goja.Undefined(), s.pointValue(p))
	if err != nil {
		return pcstream.Color{}, fmt.Errorf("style: color: %w", err)
	}
	return toColor(v.Export())
}

// pointValue reuses one object per style; callers must not keep p.
func (s *Style) pointValue(p pcstream.Point) goja.Value {
	o := s.point
	_ = o.Set("x", p.X)
	_ = o.Set("y", p.Y)
	_ = o.Set("z", p.Z)
	_ = o.Set("r", int(p.Color[0]))
	_ = o.Set("g", int(p.Color[1]))
	_ = o.Set("b", int(p.Color[2]))
	_ = o.Set("a", int(p.Color[3]))
	_ = o.Set("intensity", p.Intensity)
	_ = o.Set("index", p.Index)
	return o
}

func toColor(v interface{}) (pcstream.Color, error) {
	switch c := v.(type) {
	case string:
		return parseHex(c)
	case []interface{}:
		if len(c) != 3 && len(c) != 4 {
			return pcstream.Color{}, fmt.Errorf("%w: %d components", ErrBadColor, len(c))
		}
		out := pcstream.Color{0, 0, 0, 255}
		for i, comp := range c {
			f, ok := toFloat(comp)
			if !ok {
				return pcstream.Color{}, fmt.Errorf("%w: component %v", ErrBadColor, comp)
			}
			out[i] = uint8(min(max(f, 0), 255))
		}
		return out, nil
	}
	return pcstream.Color{}, fmt.Errorf("%w: %v", ErrBadColor, v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func parseHex(s string) (pcstream.Color, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return pcstream.Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return pcstream.Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	if len(h) == 6 {
		n = n<<8 | 0xFF
	}
	return pcstream.Color{uint8(n >> 24), uint8(n >> 16), uint8(n >> 8), uint8(n)}, nil
}

var _ pcstream.Style = (*Style)(nil)
