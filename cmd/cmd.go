// Package cmd is the warpstream command-line interface.
package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
	"github.com/warpdl/warpstream/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// buildArgs is reported by the RPC endpoint's system.getVersion.
var buildArgs BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	buildArgs = bArgs
	app := cli.App{
		Name:                  "warpstream",
		HelpName:              "warpstream",
		Usage:                 "A time-dynamic point cloud player.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "warpstream <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:                   "play",
				Aliases:                []string{"p"},
				Usage:                  "play a point cloud sequence",
				UsageText:              "play [flags] <manifest>",
				Description:            PlayDescription,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Action:                 play,
				Flags:                  playFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "info",
				Aliases:            []string{"i"},
				Usage:              "shows info about a manifest",
				UsageText:          "info [flags] <manifest>",
				Description:        InfoDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             info,
				Flags:              infoFlags,
			},
			{
				Name:               "intervals",
				Aliases:            []string{"ls"},
				Usage:              "lists the intervals of a manifest",
				UsageText:          "intervals <manifest>",
				Description:        IntervalsDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             intervals,
			},
			{
				Name:               "status",
				Aliases:            []string{"st"},
				Usage:              "queries a playing stream over its control endpoint",
				UsageText:          "status [flags]",
				Description:        StatusDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             status,
				Flags:              statusFlags,
			},
			{
				Name:               "cache",
				Usage:              "inspect or clear the tile cache",
				Description:        CacheDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Subcommands: []cli.Command{
					{
						Name:         "stats",
						Usage:        "prints tile cache statistics",
						OnUsageError: common.UsageErrorCallback,
						Action:       cacheStats,
						Flags:        cacheFlags,
					},
					{
						Name:         "flush",
						Usage:        "removes cached tiles",
						OnUsageError: common.UsageErrorCallback,
						Action:       cacheFlush,
						Flags:        flushFlags,
					},
				},
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of warpstream",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:      common.Help,
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
