package pcd

import (
	"context"
	"errors"
	"fmt"

	"github.com/warpdl/warpstream/pkg/pcstream"
	"github.com/warpdl/warpstream/pkg/timeline"
)

var errDestroyed = errors.New("pcd: cloud has been destroyed")

// Decoder implements pcstream.Decoder for PCD tiles.
type Decoder struct {
	// ChunkPoints is the number of points uploaded per tick.
	ChunkPoints int
	// MaxDecodedBytes bounds zstd decompression. Zero selects DefaultMaxDecodedBytes.
	MaxDecodedBytes int
}

// Decode parses data into a Cloud.
func (d *Decoder) Decode(ctx context.Context, iv timeline.Interval, data []byte) (pcstream.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := d.MaxDecodedBytes
	if limit <= 0 {
		limit = DefaultMaxDecodedBytes
	}
	p, err := parse(data, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", iv.Source, err)
	}
	return NewCloud(p, d.ChunkPoints), nil
}

var _ pcstream.Decoder = (*Decoder)(nil)
