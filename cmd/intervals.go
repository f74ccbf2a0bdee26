package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	cmdCommon "github.com/warpdl/warpstream/cmd/common"
	"github.com/warpdl/warpstream/pkg/fetch"
	"github.com/warpdl/warpstream/pkg/timeline"
)

const (
	txtWidth  = 24
	indxWidth = 6
)

func intervals(ctx *cli.Context) error {
	manifest := ctx.Args().First()
	if manifest == "" {
		return cmdCommon.PrintErrWithCmdHelp(
			ctx,
			errors.New("no manifest provided"),
		)
	} else if manifest == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if err := writeIntervals(os.Stdout, afero.NewOsFs(), manifest); err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "intervals", "load", err)
	}
	return nil
}

func writeIntervals(w io.Writer, fs afero.Fs, manifest string) error {
	m, err := timeline.LoadManifest(fs, manifest)
	if err != nil {
		return err
	}
	idx, err := m.Index()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "|%s|%s|%s|%s|\n",
		cmdCommon.Beaut("#", indxWidth),
		cmdCommon.Beaut("Start", txtWidth),
		cmdCommon.Beaut("Duration", 12),
		cmdCommon.Beaut("Source", txtWidth),
	)
	for i, iv := range idx.All() {
		fmt.Fprintf(w, "|%s|%s|%s| %s\n",
			cmdCommon.Beaut(fmt.Sprint(i), indxWidth),
			cmdCommon.Beaut(iv.Start.UTC().Format("2006-01-02T15:04:05.000"), txtWidth),
			cmdCommon.Beaut(iv.Duration().Round(time.Millisecond).String(), 12),
			fetch.Redact(iv.Source),
		)
	}
	return nil
}
