package pcd

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/warpdl/warpstream/pkg/pcstream"
	"github.com/warpdl/warpstream/pkg/timeline"
)

const asciiTile = `# .PCD v0.7 - Point Cloud Data file format
VERSION .7
FIELDS x y z rgb
SIZE 4 4 4 4
TYPE F F F U
COUNT 1 1 1 1
WIDTH 3
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 3
DATA ascii
-1 0 0 16711680
1 0 0 65280
0 2 0 255
`

// binaryTile encodes x y z intensity records.
func binaryTile(t *testing.T, pts [][4]float32) []byte {
	t.Helper()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "VERSION .7\nFIELDS x y z intensity\nSIZE 4 4 4 4\nTYPE F F F F\nCOUNT 1 1 1 1\n")
	fmt.Fprintf(&buf, "WIDTH %d\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS %d\nDATA binary\n", len(pts), len(pts))
	for _, p := range pts {
		for _, v := range p {
			if err := binary.Write(&buf, binary.LittleEndian, math.Float32bits(v)); err != nil {
				t.Fatal(err)
			}
		}
	}
	return buf.Bytes()
}

func TestParse_ASCII(t *testing.T) {
	p, err := Parse([]byte(asciiTile))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3", p.Len())
	}
	if p.Header.Data != DataASCII {
		t.Errorf("Data = %v, want ascii", p.Header.Data)
	}
	want := []pcstream.Color{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}}
	for i, c := range want {
		if got := p.color(i); got != c {
			t.Errorf("color(%d) = %v, want %v", i, got, c)
		}
	}
	if p.Intensity != nil {
		t.Error("tile without intensity should have nil Intensity")
	}
	// Box is [-1,1]x[0,2]x[0,0]: center (0,1,0), radius sqrt(2).
	if p.Center != [3]float64{0, 1, 0} || math.Abs(p.Radius-math.Sqrt2) > 1e-9 {
		t.Errorf("bounds = %v r=%v", p.Center, p.Radius)
	}
}

func TestParse_Binary(t *testing.T) {
	data := binaryTile(t, [][4]float32{{1, 2, 3, 0.5}, {4, 5, 6, 0.25}})
	p, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}
	if p.Positions[3] != 4 || p.Positions[5] != 6 {
		t.Errorf("positions = %v", p.Positions)
	}
	if p.Intensity[1] != 0.25 {
		t.Errorf("intensity = %v", p.Intensity)
	}
	if p.Colors != nil {
		t.Error("tile without rgb should have nil Colors")
	}
}

func TestParse_Zstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	framed := enc.EncodeAll([]byte(asciiTile), nil)
	enc.Close()

	p, err := Parse(framed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Len() != 3 {
		t.Errorf("Len = %d, want 3", p.Len())
	}
}

func TestParse_Errors(t *testing.T) {
	truncated := binaryTile(t, [][4]float32{{1, 2, 3, 4}, {5, 6, 7, 8}})
	truncated = truncated[:len(truncated)-3]

	tests := []struct {
		name string
		data string
		want error
	}{
		{"truncated binary", string(truncated), ErrTruncated},
		{"missing z", "VERSION .7\nFIELDS x y\nSIZE 4 4\nTYPE F F\nCOUNT 1 1\nWIDTH 0\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS 0\nDATA ascii\n", ErrMissingXYZ},
		{"compressed data", "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 0\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS 0\nDATA binary_compressed\n", ErrUnsupportedData},
		{"bad version", "VERSION .5\n", ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParse_HeaderMismatch(t *testing.T) {
	bad := "VERSION .7\nFIELDS x y z\nSIZE 4 4\n"
	if _, err := Parse([]byte(bad)); err == nil {
		t.Error("expected an error for a SIZE line with too few values")
	}
	points := "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 2\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS 3\nDATA ascii\n"
	if _, err := Parse([]byte(points)); err == nil {
		t.Error("expected an error when POINTS disagrees with WIDTH*HEIGHT")
	}
}

type recordingRC struct {
	cmds []any
}

func (r *recordingRC) FrameNumber() uint64                    { return 1 }
func (r *recordingRC) AddCommand(cmd any)                     { r.cmds = append(r.cmds, cmd) }
func (r *recordingRC) CommandCount() int                      { return len(r.cmds) }
func (r *recordingRC) TruncateCommands(n int)                 { r.cmds = r.cmds[:n] }
func (r *recordingRC) CreatePickID(owner any) pcstream.PickID { return nil }

func TestCloud_PrepareInChunks(t *testing.T) {
	pts := make([][4]float32, 5)
	p, err := Parse(binaryTile(t, pts))
	if err != nil {
		t.Fatal(err)
	}
	c := NewCloud(p, 2)
	rc := &recordingRC{}
	for i, want := range []bool{false, false, true, true} {
		ready, err := c.Prepare(rc)
		if err != nil {
			t.Fatalf("Prepare %d: %v", i, err)
		}
		if ready != want {
			t.Fatalf("Prepare %d ready = %v, want %v", i, ready, want)
		}
	}
	if len(rc.cmds) != 3 {
		t.Fatalf("expected three upload commands, got %d", len(rc.cmds))
	}
	if last := rc.cmds[2].(UploadCommand); last.First != 4 || last.Count != 1 {
		t.Errorf("last upload = %+v", last)
	}
	if got := c.ByteSize(); got != 5*3*4+5*4 {
		t.Errorf("ByteSize = %d", got)
	}
}

type countingStyle struct {
	shows int
}

func (s *countingStyle) Show(p pcstream.Point) (bool, error) {
	s.shows++
	return p.X > 0, nil
}

func (s *countingStyle) Color(p pcstream.Point) (pcstream.Color, error) {
	return pcstream.Color{0, 0, 255, 255}, nil
}

func TestCloud_UpdateAppliesStyle(t *testing.T) {
	p, err := Parse([]byte(asciiTile))
	if err != nil {
		t.Fatal(err)
	}
	c := NewCloud(p, 0)
	style := &countingStyle{}
	rc := &recordingRC{}

	if err := c.Update(rc, &pcstream.Presentation{Style: style}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if c.Visible() != 1 || !c.IsVisible(1) || c.IsVisible(0) {
		t.Errorf("expected only point 1 visible, got %d", c.Visible())
	}
	if got := c.ColorAt(1); got != (pcstream.Color{0, 0, 255, 255}) {
		t.Errorf("styled color = %v", got)
	}
	if err := c.Update(rc, &pcstream.Presentation{Style: style}); err != nil {
		t.Fatal(err)
	}
	if style.shows != 3 {
		t.Errorf("style re-evaluated without being dirty: %d calls", style.shows)
	}
	if err := c.Update(rc, &pcstream.Presentation{Style: style, StyleDirty: true}); err != nil {
		t.Fatal(err)
	}
	if style.shows != 6 {
		t.Errorf("dirty style should be re-evaluated: %d calls", style.shows)
	}
	draw, ok := rc.cmds[len(rc.cmds)-1].(DrawCommand)
	if !ok || draw.Visible != 1 || draw.Cloud != c {
		t.Errorf("unexpected draw command %+v", rc.cmds[len(rc.cmds)-1])
	}
}

func TestPointSize(t *testing.T) {
	tests := []struct {
		name string
		sh   pcstream.Shading
		ge   float64
		want float64
	}{
		{"no attenuation", pcstream.Shading{}, 4, 1},
		{"attenuated", pcstream.Shading{Attenuation: true}, 4, 4},
		{"clamped", pcstream.Shading{Attenuation: true, MaximumAttenuation: 3}, 4, 3},
		{"at least one pixel", pcstream.Shading{Attenuation: true}, 0.2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pointSize(tt.sh, tt.ge); got != tt.want {
				t.Errorf("pointSize = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCloud_Destroyed(t *testing.T) {
	p, _ := Parse([]byte(asciiTile))
	c := NewCloud(p, 0)
	if err := c.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := c.Destroy(); err != nil {
		t.Errorf("second Destroy = %v", err)
	}
	if _, err := c.Prepare(&recordingRC{}); err == nil {
		t.Error("Prepare after Destroy should fail")
	}
}

func TestDecoder(t *testing.T) {
	d := &Decoder{}
	iv := timeline.Interval{Source: "tiles/0.pcd"}
	a, err := d.Decode(context.Background(), iv, []byte(asciiTile))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b, ok := a.(pcstream.Bounded); !ok || b.PointCount() != 3 {
		t.Errorf("decoded asset should report 3 points")
	}

	if _, err := d.Decode(context.Background(), iv, []byte("garbage")); err == nil {
		t.Error("expected an error for garbage input")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Decode(ctx, iv, []byte(asciiTile)); !errors.Is(err, context.Canceled) {
		t.Errorf("Decode with cancelled context = %v", err)
	}
}
