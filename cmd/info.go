package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	cmdCommon "github.com/warpdl/warpstream/cmd/common"
	"github.com/warpdl/warpstream/internal/style"
	"github.com/warpdl/warpstream/pkg/fetch"
	"github.com/warpdl/warpstream/pkg/logger"
	"github.com/warpdl/warpstream/pkg/pcd"
	"github.com/warpdl/warpstream/pkg/timeline"
)

var (
	infoTile  int
	infoStyle string

	infoFlags = append([]cli.Flag{
		cli.IntFlag{
			Name:        "tile, t",
			Usage:       "fetch and decode the tile of this interval (default: none)",
			Value:       -1,
			Destination: &infoTile,
		},
		cli.StringFlag{
			Name:        "style, s",
			Usage:       "style script to evaluate against --tile",
			Destination: &infoStyle,
		},
	}, sourceFlags...)
)

func info(ctx *cli.Context) error {
	manifest := ctx.Args().First()
	if manifest == "" {
		return cmdCommon.PrintErrWithCmdHelp(
			ctx,
			errors.New("no manifest provided"),
		)
	} else if manifest == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	l, err := newLogger(false, "")
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "info", "logger", err)
		return nil
	}
	defer l.Close()
	err = writeInfo(context.Background(), os.Stdout, afero.NewOsFs(), manifest, infoTile, infoStyle, sourceConfigFromFlags(), l)
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "info", "run", err)
	}
	return nil
}

// writeInfo prints a manifest summary and, when tile >= 0, statistics of
// that tile.
func writeInfo(ctx context.Context, w io.Writer, fs afero.Fs, manifest string, tile int, stylePath string, src sourceConfig, l logger.Logger) error {
	m, err := timeline.LoadManifest(fs, manifest)
	if err != nil {
		return err
	}
	idx, err := m.Index()
	if err != nil {
		return err
	}
	start, stop := idx.Span()
	fmt.Fprintf(w, `
Manifest Info
Name`+"\t\t"+`: %s
Intervals`+"\t"+`: %d
Start`+"\t\t"+`: %s
Stop`+"\t\t"+`: %s
Duration`+"\t"+`: %s
Sources`+"\t\t"+`: %s
`,
		manifest,
		idx.Len(),
		start.Format(time.RFC3339Nano),
		stop.Format(time.RFC3339Nano),
		stop.Sub(start),
		schemeSummary(idx),
	)
	if tile < 0 {
		return nil
	}

	iv, ok := idx.At(tile)
	if !ok {
		return fmt.Errorf("tile %d out of range [0, %d)", tile, idx.Len())
	}
	router, store, err := newRouter(src, fs, l)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	data, err := router.Fetch(ctx, iv.Source)
	if err != nil {
		return err
	}
	p, err := pcd.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", fetch.Redact(iv.Source), err)
	}
	cloud := pcd.NewCloud(p, 0)
	defer cloud.Destroy()
	fmt.Fprintf(w, `
Tile Info
Source`+"\t\t"+`: %s
Size`+"\t\t"+`: %s
Points`+"\t\t"+`: %d
Fields`+"\t\t"+`: %s
Center`+"\t\t"+`: %.3f %.3f %.3f
Radius`+"\t\t"+`: %.3f
Device memory`+"\t"+`: %s
`,
		fetch.Redact(iv.Source),
		fetch.ByteSize(len(data)),
		cloud.PointCount(),
		strings.Join(p.Header.Fields(), " "),
		p.Center[0], p.Center[1], p.Center[2],
		p.Radius,
		fetch.ByteSize(cloud.ByteSize()),
	)
	if stylePath == "" {
		return nil
	}
	st, err := style.Load(fs, stylePath, l)
	if err != nil {
		return err
	}
	res, err := st.ApplyStyle(cloud)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Shown\t\t: %d of %d\n", res.Shown, res.Total)
	return nil
}

// schemeSummary counts intervals per locator scheme, e.g. "https x3, file x1".
func schemeSummary(idx *timeline.Index) string {
	counts := make(map[string]int)
	for _, iv := range idx.All() {
		scheme := "file"
		if i := strings.Index(iv.Source, "://"); i > 0 {
			scheme = strings.ToLower(iv.Source[:i])
		}
		counts[scheme]++
	}
	schemes := make([]string, 0, len(counts))
	for s := range counts {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	parts := make([]string, len(schemes))
	for i, s := range schemes {
		parts[i] = fmt.Sprintf("%s x%d", s, counts[s])
	}
	return strings.Join(parts, ", ")
}
