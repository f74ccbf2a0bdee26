package streamcli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/warpdl/warpstream/common"
)

// CheckVersionMismatch writes a warning to w when the playing process runs
// a different version than expected. Nothing is written when expected is
// empty or VersionCheckEnv is set.
func (c *Client) CheckVersionMismatch(ctx context.Context, w io.Writer, expected string) {
	if expected == "" || os.Getenv(common.VersionCheckEnv) != "" {
		return
	}
	v, err := c.Version(ctx)
	if err != nil {
		fmt.Fprintf(w, "Warning: could not verify player version: %v\n", err)
		return
	}
	if v.Version != expected {
		fmt.Fprintf(w, "Warning: CLI version (%s) differs from player version (%s)\n", expected, v.Version)
	}
}
