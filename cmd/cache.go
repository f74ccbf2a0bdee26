package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli"
	cmdCommon "github.com/warpdl/warpstream/cmd/common"
	"github.com/warpdl/warpstream/common"
	"github.com/warpdl/warpstream/internal/tilestore"
	"github.com/warpdl/warpstream/pkg/fetch"
)

var (
	forceFlush bool
	keepMB     int

	cacheFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "cache-db",
			Usage:       "sqlite tile cache (default: <config dir>/tiles.db)",
			EnvVar:      common.CacheDBEnv,
			Destination: &cacheDB,
		},
	}

	flushFlags = append([]cli.Flag{
		cli.BoolFlag{
			Name:        "force, f",
			Usage:       "use this flag to force flush (default: false)",
			Destination: &forceFlush,
		},
		cli.IntFlag{
			Name:        "keep-mb",
			Usage:       "keep the most recent tiles up to this size instead of flushing everything",
			Destination: &keepMB,
		},
	}, cacheFlags...)
)

func cacheStats(ctx *cli.Context) error {
	store, err := tilestore.Open(sourceConfigFromFlags().cachePath())
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "cache", "open", err)
		return nil
	}
	defer store.Close()
	if err := writeCacheStats(context.Background(), os.Stdout, store); err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "cache", "stats", err)
	}
	return nil
}

func writeCacheStats(ctx context.Context, w io.Writer, store *tilestore.Store) error {
	st, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, `
Tile Cache
Tiles`+"\t"+`: %d
Size`+"\t"+`: %s
Hits`+"\t"+`: %d
`, st.Tiles, fetch.ByteSize(st.Bytes), st.Hits)
	if st.Tiles > 0 {
		fmt.Fprintf(w, "Oldest\t: %s\nNewest\t: %s\n",
			st.Oldest.Format(time.RFC3339), st.Newest.Format(time.RFC3339))
	}
	return nil
}

func cacheFlush(ctx *cli.Context) error {
	if !confirm(command("cache flush"), forceFlush) {
		return nil
	}
	store, err := tilestore.Open(sourceConfigFromFlags().cachePath())
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "cache", "open", err)
		return nil
	}
	defer store.Close()
	n, err := flushCache(context.Background(), store, keepMB)
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "cache", "flush", err)
		return nil
	}
	fmt.Printf("Removed %d cached tiles\n", n)
	return nil
}

// flushCache empties the cache, or trims it to keepMB when positive.
func flushCache(ctx context.Context, store *tilestore.Store, keepMB int) (int64, error) {
	if keepMB > 0 {
		return store.Prune(ctx, int64(keepMB)<<20)
	}
	return store.Flush(ctx)
}
