// Package pcd decodes point cloud tiles stored in the PCD format and turns
// them into stream assets.
package pcd

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DataType is the encoding of the point records that follow the header.
type DataType int

const (
	DataASCII DataType = iota
	DataBinary
	DataBinaryCompressed
)

func (d DataType) String() string {
	switch d {
	case DataASCII:
		return "ascii"
	case DataBinary:
		return "binary"
	case DataBinaryCompressed:
		return "binary_compressed"
	}
	return "unknown"
}

var (
	ErrUnsupportedVersion = errors.New("pcd: unsupported version")
	ErrUnsupportedData    = errors.New("pcd: unsupported data encoding")
	ErrMissingXYZ         = errors.New("pcd: fields must include x, y and z")
	ErrTruncated          = errors.New("pcd: point data is truncated")
)

const commentChar = "#"

var headerFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

// field is one column of a point record.
type field struct {
	name  string
	size  int
	typ   byte // 'F', 'I' or 'U'
	count int
}

// Header is the parsed PCD header.
type Header struct {
	Version string
	Width   int
	Height  int
	Points  int
	Data    DataType
	fields  []field
}

// Fields returns the field names in record order.
func (h *Header) Fields() []string {
	names := make([]string, len(h.fields))
	for i, f := range h.fields {
		names[i] = f.name
	}
	return names
}

// recordSize is the byte length of one binary point record.
func (h *Header) recordSize() int {
	n := 0
	for _, f := range h.fields {
		n += f.size * f.count
	}
	return n
}

func (h *Header) index(name string) int {
	for i, f := range h.fields {
		if f.name == name {
			return i
		}
	}
	return -1
}

func readHeader(in *bufio.Reader) (*Header, error) {
	h := &Header{}
	n := 0
	for n < len(headerFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("pcd: reading header line %d: %w", n, err)
		}
		line, _, _ = strings.Cut(line, commentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, value, _ := strings.Cut(line, " ")
		// VERSION is optional in files written by some tools.
		if n == 0 && name != "VERSION" {
			n++
		}
		if name != headerFields[n] {
			return nil, fmt.Errorf("pcd: header line %d should start with %s, got %q", n, headerFields[n], line)
		}
		if err := h.parseLine(name, strings.TrimSpace(value)); err != nil {
			return nil, err
		}
		n++
	}
	if h.Points == 0 {
		h.Points = h.Width * h.Height
	}
	if h.index("x") < 0 || h.index("y") < 0 || h.index("z") < 0 {
		return nil, ErrMissingXYZ
	}
	return h, nil
}

func (h *Header) parseLine(name, value string) error {
	tokens := strings.Fields(value)
	switch name {
	case "VERSION":
		switch value {
		case ".7", "0.7":
			h.Version = "0.7"
		default:
			return fmt.Errorf("%w %s", ErrUnsupportedVersion, value)
		}
	case "FIELDS":
		h.fields = make([]field, len(tokens))
		for i, tok := range tokens {
			h.fields[i] = field{name: tok, size: 4, typ: 'F', count: 1}
		}
	case "SIZE":
		return h.eachField(name, tokens, func(f *field, tok string) error {
			size, err := strconv.Atoi(tok)
			if err != nil || (size != 1 && size != 2 && size != 4 && size != 8) {
				return fmt.Errorf("pcd: invalid SIZE %q", tok)
			}
			f.size = size
			return nil
		})
	case "TYPE":
		return h.eachField(name, tokens, func(f *field, tok string) error {
			if tok != "F" && tok != "I" && tok != "U" {
				return fmt.Errorf("pcd: invalid TYPE %q", tok)
			}
			f.typ = tok[0]
			return nil
		})
	case "COUNT":
		return h.eachField(name, tokens, func(f *field, tok string) error {
			count, err := strconv.Atoi(tok)
			if err != nil || count < 1 {
				return fmt.Errorf("pcd: invalid COUNT %q", tok)
			}
			f.count = count
			return nil
		})
	case "WIDTH", "HEIGHT", "POINTS":
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 {
			return fmt.Errorf("pcd: invalid %s %q", name, value)
		}
		switch name {
		case "WIDTH":
			h.Width = v
		case "HEIGHT":
			h.Height = v
		case "POINTS":
			if v != h.Width*h.Height {
				return fmt.Errorf("pcd: POINTS %d does not match WIDTH*HEIGHT %d", v, h.Width*h.Height)
			}
			h.Points = v
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return fmt.Errorf("pcd: VIEWPOINT needs 7 values, got %d", len(tokens))
		}
	case "DATA":
		switch value {
		case "ascii":
			h.Data = DataASCII
		case "binary":
			h.Data = DataBinary
		case "binary_compressed":
			h.Data = DataBinaryCompressed
		default:
			return fmt.Errorf("%w %q", ErrUnsupportedData, value)
		}
	}
	return nil
}

func (h *Header) eachField(line string, tokens []string, fn func(*field, string) error) error {
	if len(tokens) != len(h.fields) {
		return fmt.Errorf("pcd: %s has %d values for %d fields", line, len(tokens), len(h.fields))
	}
	for i, tok := range tokens {
		if err := fn(&h.fields[i], tok); err != nil {
			return err
		}
	}
	return nil
}
