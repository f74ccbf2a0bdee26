package timeline

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var ErrNoIntervals = errors.New("manifest lists no intervals")

// Manifest is the on-disk description of a point cloud sequence.
// YAML is the native format; JSON documents parse as well.
//
//	base_uri: https://example.com/tiles/
//	intervals:
//	  - start: 2018-07-19T15:18:00Z
//	    stop: 2018-07-19T15:18:00.5Z
//	    uri: 0.pcd
//	playback:
//	  multiplier: 1
type Manifest struct {
	BaseURI   string         `yaml:"base_uri" json:"base_uri"`
	Intervals []IntervalSpec `yaml:"intervals" json:"intervals"`
	Playback  Playback       `yaml:"playback" json:"playback"`

	dir string
}

// IntervalSpec is the serialized form of an Interval.
type IntervalSpec struct {
	Start string `yaml:"start" json:"start"`
	Stop  string `yaml:"stop" json:"stop"`
	URI   string `yaml:"uri" json:"uri"`
	// Transform is a 4x4 matrix in column-major order.
	Transform []float64 `yaml:"transform,omitempty" json:"transform,omitempty"`
}

// Playback holds optional defaults for the player. Zero values mean "unset".
type Playback struct {
	Multiplier     float64 `yaml:"multiplier" json:"multiplier"`
	MemoryBudgetMB int     `yaml:"memory_budget_mb" json:"memory_budget_mb"`
	TickRateHz     int     `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	Style          string  `yaml:"style" json:"style"`
	Loop           bool    `yaml:"loop" json:"loop"`
	Shading        Shading `yaml:"shading" json:"shading"`
}

// Shading mirrors the stream's point shading options.
type Shading struct {
	Attenuation         bool    `yaml:"attenuation" json:"attenuation"`
	EyeDomeLighting     bool    `yaml:"eye_dome_lighting" json:"eye_dome_lighting"`
	GeometricErrorScale float64 `yaml:"geometric_error_scale" json:"geometric_error_scale"`
	MaximumAttenuation  float64 `yaml:"maximum_attenuation" json:"maximum_attenuation"`
	BaseResolution      float64 `yaml:"base_resolution" json:"base_resolution"`
}

// ParseManifest decodes a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if len(m.Intervals) == 0 {
		return nil, ErrNoIntervals
	}
	return &m, nil
}

// LoadManifest reads and parses the manifest at name. Relative tile URIs
// without a base_uri are resolved against the manifest's directory.
func LoadManifest(fs afero.Fs, name string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	m.dir = filepath.Dir(name)
	return m, nil
}

// Index converts the manifest into a validated Index.
func (m *Manifest) Index() (*Index, error) {
	var base *url.URL
	if m.BaseURI != "" {
		u, err := url.Parse(m.BaseURI)
		if err != nil {
			return nil, fmt.Errorf("base_uri: %w", err)
		}
		base = u
	}
	ivs := make([]Interval, 0, len(m.Intervals))
	for i, spec := range m.Intervals {
		iv, err := spec.interval()
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", i, err)
		}
		iv.Source, err = m.resolve(base, spec.URI)
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", i, err)
		}
		ivs = append(ivs, iv)
	}
	return NewIndex(ivs)
}

func (m *Manifest) resolve(base *url.URL, ref string) (string, error) {
	if ref == "" {
		return "", ErrNoSource
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if u.Scheme != "" {
		return ref, nil
	}
	if base != nil {
		if base.Scheme == "" {
			return path.Join(base.Path, ref), nil
		}
		return base.ResolveReference(u).String(), nil
	}
	if m.dir != "" && !filepath.IsAbs(ref) {
		return filepath.Join(m.dir, filepath.FromSlash(ref)), nil
	}
	return ref, nil
}

func (s IntervalSpec) interval() (Interval, error) {
	start, err := parseTime(s.Start)
	if err != nil {
		return Interval{}, fmt.Errorf("start: %w", err)
	}
	stop, err := parseTime(s.Stop)
	if err != nil {
		return Interval{}, fmt.Errorf("stop: %w", err)
	}
	iv := Interval{Start: start, Stop: stop}
	if len(s.Transform) > 0 {
		if len(s.Transform) != 16 {
			return Interval{}, fmt.Errorf("transform needs 16 values, got %d", len(s.Transform))
		}
		var mat mgl64.Mat4
		copy(mat[:], s.Transform)
		iv.Transform = &mat
	}
	return iv, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}
