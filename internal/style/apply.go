package style

import "github.com/warpdl/warpstream/pkg/pcstream"

// PointSource is anything that can enumerate its points, such as a decoded
// tile.
type PointSource interface {
	VisitPoints(fn func(pcstream.Point) bool)
}

// Result is the outcome of applying a style to every point of a source.
type Result struct {
	Total   int
	Shown   int
	Visible []bool
	Colors  []pcstream.Color
}

// ApplyStyle evaluates s against every point of src. It stops at the first
// evaluation error.
func (s *Style) ApplyStyle(src PointSource) (Result, error) {
	var res Result
	var err error
	src.VisitPoints(func(p pcstream.Point) bool {
		res.Total++
		var show bool
		if show, err = s.Show(p); err != nil {
			return false
		}
		res.Visible = append(res.Visible, show)
		if !show {
			res.Colors = append(res.Colors, pcstream.Color{})
			return true
		}
		var c pcstream.Color
		if c, err = s.Color(p); err != nil {
			return false
		}
		res.Shown++
		res.Colors = append(res.Colors, c)
		return true
	})
	return res, err
}
