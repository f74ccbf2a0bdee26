package pcd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// DefaultMaxDecodedBytes bounds the size of a decompressed tile.
const DefaultMaxDecodedBytes = 512 << 20

// Points is a decoded tile in structure-of-arrays form.
type Points struct {
	Header *Header
	// Positions holds x, y, z per point.
	Positions []float32
	// Colors holds r, g, b, a per point; nil when the tile has no color.
	Colors []uint8
	// Intensity is nil when the tile has no intensity field.
	Intensity []float32

	Center [3]float64
	Radius float64

	// column of each field in a record, -1 when absent
	xi, yi, zi, ci, ii int
	alpha              bool
}

// Len returns the number of points.
func (p *Points) Len() int {
	return len(p.Positions) / 3
}

// Parse decodes a PCD tile. Tiles wrapped in a zstd frame are decompressed
// first.
func Parse(data []byte) (*Points, error) {
	return parse(data, DefaultMaxDecodedBytes)
}

func parse(data []byte, maxDecoded int) (*Points, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(maxDecoded)))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("pcd: zstd: %w", err)
		}
	}
	in := bufio.NewReader(bytes.NewReader(data))
	h, err := readHeader(in)
	if err != nil {
		return nil, err
	}
	p := newPoints(h)
	switch h.Data {
	case DataASCII:
		err = p.readASCII(in)
	case DataBinary:
		err = p.readBinary(in)
	default:
		err = fmt.Errorf("%w %s", ErrUnsupportedData, h.Data)
	}
	if err != nil {
		return nil, err
	}
	p.computeBounds()
	return p, nil
}

func newPoints(h *Header) *Points {
	p := &Points{
		Header:    h,
		Positions: make([]float32, 0, 3*h.Points),
		xi:        h.index("x"),
		yi:        h.index("y"),
		zi:        h.index("z"),
		ci:        h.index("rgb"),
		ii:        h.index("intensity"),
	}
	if p.ci < 0 {
		p.ci = h.index("rgba")
		p.alpha = p.ci >= 0
	}
	if p.ci >= 0 {
		p.Colors = make([]uint8, 0, 4*h.Points)
	}
	if p.ii >= 0 {
		p.Intensity = make([]float32, 0, h.Points)
	}
	return p
}

func (p *Points) readASCII(in *bufio.Reader) error {
	h := p.Header
	values := make([]float64, len(h.fields))
	for i := 0; i < h.Points; i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return fmt.Errorf("%w: point %d: %v", ErrTruncated, i, err)
		}
		tokens := strings.Fields(line)
		if len(tokens) < len(h.fields) {
			return fmt.Errorf("pcd: point %d has %d values, want %d", i, len(tokens), len(h.fields))
		}
		for j := range h.fields {
			// Packed rgb is written as a float reinterpretation of the integer.
			if name := h.fields[j].name; (name == "rgb" || name == "rgba") && h.fields[j].typ == 'F' {
				f, err := strconv.ParseFloat(tokens[j], 32)
				if err != nil {
					return fmt.Errorf("pcd: point %d field %s: %w", i, name, err)
				}
				values[j] = float64(math.Float32bits(float32(f)))
				continue
			}
			values[j], err = strconv.ParseFloat(tokens[j], 64)
			if err != nil {
				return fmt.Errorf("pcd: point %d field %s: %w", i, h.fields[j].name, err)
			}
		}
		p.append(values)
	}
	return nil
}

func (p *Points) readBinary(in *bufio.Reader) error {
	h := p.Header
	record := make([]byte, h.recordSize())
	values := make([]float64, len(h.fields))
	for i := 0; i < h.Points; i++ {
		if _, err := io.ReadFull(in, record); err != nil {
			return fmt.Errorf("%w: point %d: %v", ErrTruncated, i, err)
		}
		off := 0
		for j, f := range h.fields {
			values[j] = decodeValue(record[off:off+f.size], f)
			off += f.size * f.count
		}
		p.append(values)
	}
	return nil
}

// decodeValue reads the first element of a field. Packed colors keep their
// raw bits.
func decodeValue(b []byte, f field) float64 {
	le := binary.LittleEndian
	if f.name == "rgb" || f.name == "rgba" {
		if f.size == 4 {
			return float64(le.Uint32(b))
		}
	}
	switch f.typ {
	case 'F':
		if f.size == 8 {
			return math.Float64frombits(le.Uint64(b))
		}
		return float64(math.Float32frombits(le.Uint32(b)))
	case 'U':
		switch f.size {
		case 1:
			return float64(b[0])
		case 2:
			return float64(le.Uint16(b))
		case 4:
			return float64(le.Uint32(b))
		}
		return float64(le.Uint64(b))
	default:
		switch f.size {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(le.Uint16(b)))
		case 4:
			return float64(int32(le.Uint32(b)))
		}
		return float64(int64(le.Uint64(b)))
	}
}

func (p *Points) append(values []float64) {
	p.Positions = append(p.Positions, float32(values[p.xi]), float32(values[p.yi]), float32(values[p.zi]))
	if p.Colors != nil {
		c := uint32(values[p.ci])
		a := uint8(255)
		if p.alpha {
			a = uint8(c >> 24)
		}
		p.Colors = append(p.Colors, uint8(c>>16), uint8(c>>8), uint8(c), a)
	}
	if p.Intensity != nil {
		p.Intensity = append(p.Intensity, float32(values[p.ii]))
	}
}

// computeBounds sets the bounding sphere around the axis-aligned box of the
// positions.
func (p *Points) computeBounds() {
	n := p.Len()
	if n == 0 {
		return
	}
	lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			v := float64(p.Positions[3*i+k])
			lo[k] = math.Min(lo[k], v)
			hi[k] = math.Max(hi[k], v)
		}
	}
	var r2 float64
	for k := 0; k < 3; k++ {
		p.Center[k] = (lo[k] + hi[k]) / 2
		d := hi[k] - p.Center[k]
		r2 += d * d
	}
	p.Radius = math.Sqrt(r2)
}
