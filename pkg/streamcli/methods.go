package streamcli

import (
	"context"

	"github.com/warpdl/warpstream/common"
)

// Version returns the build information of the playing process.
func (c *Client) Version(ctx context.Context) (*common.VersionResponse, error) {
	var v common.VersionResponse
	if err := c.invoke(ctx, common.METHOD_GET_VERSION, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Status returns the stream status snapshot.
func (c *Client) Status(ctx context.Context) (*common.StatusResponse, error) {
	var v common.StatusResponse
	if err := c.invoke(ctx, common.METHOD_STATUS, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Frames lists every cache slot.
func (c *Client) Frames(ctx context.Context) (*common.FramesResponse, error) {
	var v common.FramesResponse
	if err := c.invoke(ctx, common.METHOD_FRAMES, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// MarkStyleDirty asks the stream to re-apply its style on the next
// presented frame.
func (c *Client) MarkStyleDirty(ctx context.Context) error {
	var ok bool
	return c.invoke(ctx, common.METHOD_MARK_STYLE_DIRTY, &ok)
}
