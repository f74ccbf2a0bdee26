package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli"
	cmdCommon "github.com/warpdl/warpstream/cmd/common"
	"github.com/warpdl/warpstream/common"
	"github.com/warpdl/warpstream/pkg/fetch"
	"github.com/warpdl/warpstream/pkg/streamcli"
)

var (
	showFrames bool
	watch      bool
	restyle    bool

	statusFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "rpc-listen",
			Usage:       "control endpoint address",
			Value:       common.DefaultRPCListen,
			EnvVar:      common.RPCListenEnv,
			Destination: &rpcListen,
		},
		cli.StringFlag{
			Name:        "rpc-secret",
			Usage:       "bearer token printed by \"warpstream play --rpc\"",
			EnvVar:      common.RPCSecretEnv,
			Destination: &rpcSecret,
		},
		cli.BoolFlag{
			Name:        "frames",
			Usage:       "list every frame slot",
			Destination: &showFrames,
		},
		cli.BoolFlag{
			Name:        "watch, w",
			Usage:       "print frame events until interrupted",
			Destination: &watch,
		},
		cli.BoolFlag{
			Name:        "restyle",
			Usage:       "re-apply the style on the next presented frame",
			Destination: &restyle,
		},
	}
)

type statusOptions struct {
	Frames  bool
	Watch   bool
	Restyle bool
}

func status(ctx *cli.Context) error {
	if rpcSecret == "" {
		return cmdCommon.PrintErrWithCmdHelp(ctx, errors.New("no rpc secret provided"))
	}
	sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	opts := statusOptions{Frames: showFrames, Watch: watch, Restyle: restyle}
	if err := runStatus(sctx, os.Stdout, rpcListen, rpcSecret, opts); err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "status", "rpc", err)
	}
	return nil
}

func runStatus(ctx context.Context, w io.Writer, addr, secret string, opts statusOptions) error {
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := streamcli.Dial(dctx, addr, secret)
	if err != nil {
		return err
	}
	defer client.Close()
	client.CheckVersionMismatch(dctx, os.Stderr, buildArgs.Version)
	if opts.Watch {
		handleFrameEvents(w, client)
	}

	st, err := client.Status(dctx)
	if err != nil {
		return err
	}
	writeStatus(w, st)
	if opts.Frames {
		fr, err := client.Frames(dctx)
		if err != nil {
			return err
		}
		writeFrames(w, fr.Frames)
	}
	if opts.Restyle {
		if err := client.MarkStyleDirty(dctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "style marked dirty")
	}
	if !opts.Watch {
		return nil
	}
	err = client.Wait(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func writeStatus(w io.Writer, st *common.StatusResponse) {
	if st.Destroyed {
		fmt.Fprintln(w, "stream destroyed")
		return
	}
	presented := "none"
	if st.LastPresentedIndex >= 0 {
		presented = fmt.Sprint(st.LastPresentedIndex)
	}
	fmt.Fprintf(w, `
Stream Status
Intervals`+"\t"+`: %d
Frames`+"\t\t"+`: %d (%d ready, %d failed)
Memory`+"\t\t"+`: %s of %s
Avg load`+"\t"+`: %.1fms
Presented`+"\t"+`: %s
`,
		st.Intervals,
		st.Frames, st.ReadyFrames, st.FailedFrames,
		fetch.ByteSize(st.MemoryUsageBytes), fetch.ByteSize(st.MemoryBudgetBytes),
		st.AverageLoadTimeMs,
		presented,
	)
}

func writeFrames(w io.Writer, frames []common.FrameInfo) {
	fmt.Fprintf(w, "|%s|%s|%s| %s\n",
		cmdCommon.Beaut("#", indxWidth),
		cmdCommon.Beaut("State", 12),
		cmdCommon.Beaut("Size", 12),
		"Source",
	)
	for _, f := range frames {
		fmt.Fprintf(w, "|%s|%s|%s| %s\n",
			cmdCommon.Beaut(fmt.Sprint(f.Index), indxWidth),
			cmdCommon.Beaut(f.State, 12),
			cmdCommon.Beaut(fetch.ByteSize(f.ByteSize).String(), 12),
			fetch.Redact(f.Locator),
		)
	}
}

// handleFrameEvents prints every frame notification to w.
func handleFrameEvents(w io.Writer, client *streamcli.Client) {
	var mu sync.Mutex
	client.Handle(common.NOTIFY_FRAME_CHANGED, streamcli.NewFrameChangedHandler(func(p *common.FrameChangedParams) error {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "frame %d: %s\n", p.Index, fetch.Redact(p.Locator))
		return nil
	}))
	client.Handle(common.NOTIFY_FRAME_FAILED, streamcli.NewFrameFailedHandler(func(p *common.FrameFailedParams) error {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "frame %d failed (%s): %s\n", p.Index, fetch.Redact(p.Locator), p.Error)
		return nil
	}))
}
