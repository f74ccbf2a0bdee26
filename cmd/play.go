package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	cmdCommon "github.com/warpdl/warpstream/cmd/common"
	"github.com/warpdl/warpstream/common"
	"github.com/warpdl/warpstream/internal/headless"
	"github.com/warpdl/warpstream/internal/server"
	"github.com/warpdl/warpstream/internal/style"
	"github.com/warpdl/warpstream/pkg/clock"
	"github.com/warpdl/warpstream/pkg/fetch"
	"github.com/warpdl/warpstream/pkg/logger"
	"github.com/warpdl/warpstream/pkg/pcd"
	"github.com/warpdl/warpstream/pkg/pcstream"
	"github.com/warpdl/warpstream/pkg/timeline"
)

var (
	multiplier   float64
	tickRate     int
	startAt      string
	playFor      time.Duration
	memoryBudget int
	stylePath    string
	showExpr     string
	colorExpr    string
	edl          bool
	attenuation  bool
	loop         bool
	clipPlanes   cli.StringSlice
	rpcEnabled   bool
	rpcListen    string
	rpcSecret    string
	noProgress   bool
	debug        bool
	logFile      string

	playFlags = append([]cli.Flag{
		cli.Float64Flag{
			Name:        "multiplier, m",
			Usage:       "simulation seconds per wall-clock second, negative plays backward (default: manifest or 1)",
			Destination: &multiplier,
		},
		cli.IntFlag{
			Name:        "tick-rate, r",
			Usage:       "ticks per second (default: manifest or 60)",
			Destination: &tickRate,
		},
		cli.StringFlag{
			Name:        "start",
			Usage:       "RFC 3339 time to start at (default: first interval)",
			Destination: &startAt,
		},
		cli.DurationFlag{
			Name:        "duration, d",
			Usage:       "stop after this much wall-clock time (default: end of the sequence)",
			Destination: &playFor,
		},
		cli.IntFlag{
			Name:        "memory-budget",
			Usage:       "advisory tile memory budget in MB (default: manifest or 256)",
			Destination: &memoryBudget,
		},
		cli.StringFlag{
			Name:        "style, s",
			Usage:       "style script defining show(p) and color(p)",
			Destination: &stylePath,
		},
		cli.StringFlag{
			Name:        "show",
			Usage:       "show expression, e.g. \"p.z > 0\"",
			Destination: &showExpr,
		},
		cli.StringFlag{
			Name:        "color",
			Usage:       "color expression, e.g. \"rgb(p.intensity, 0, 0)\"",
			Destination: &colorExpr,
		},
		cli.BoolFlag{
			Name:        "edl",
			Usage:       "enable eye-dome lighting (requires --attenuation)",
			Destination: &edl,
		},
		cli.BoolFlag{
			Name:        "attenuation",
			Usage:       "scale point size by geometric error",
			Destination: &attenuation,
		},
		cli.BoolFlag{
			Name:        "loop, l",
			Usage:       "restart at the other end of the sequence",
			Destination: &loop,
		},
		cli.StringSliceFlag{
			Name:  "clip",
			Usage: "clipping plane as nx,ny,nz,d; may be repeated",
			Value: &clipPlanes,
		},
		cli.BoolFlag{
			Name:        "rpc",
			Usage:       "serve the JSON-RPC control endpoint",
			Destination: &rpcEnabled,
		},
		cli.StringFlag{
			Name:        "rpc-listen",
			Usage:       "control endpoint address",
			Value:       common.DefaultRPCListen,
			EnvVar:      common.RPCListenEnv,
			Destination: &rpcListen,
		},
		cli.StringFlag{
			Name:        "rpc-secret",
			Usage:       "bearer token for the control endpoint (default: random)",
			EnvVar:      common.RPCSecretEnv,
			Destination: &rpcSecret,
		},
		cli.BoolFlag{
			Name:        "no-progress",
			Usage:       "hide tile progress bars",
			Destination: &noProgress,
		},
		cli.BoolFlag{
			Name:        "debug",
			Usage:       "log every frame event",
			EnvVar:      common.DebugEnv,
			Destination: &debug,
		},
		cli.StringFlag{
			Name:        "log-file",
			Usage:       "also write logs to this file",
			Destination: &logFile,
		},
	}, sourceFlags...)
)

// playConfig is everything runPlay needs. Zero values defer to the
// manifest's playback block, then to built-in defaults.
type playConfig struct {
	Manifest       string
	Multiplier     float64
	TickRate       int
	Start          string
	Duration       time.Duration
	MemoryBudgetMB int
	Style          string
	Show           string
	Color          string
	EDL            bool
	Attenuation    bool
	Loop           bool
	Clip           []string
	RPC            bool
	RPCListen      string
	RPCSecret      string
	Source         sourceConfig
}

func playConfigFromFlags(manifest string) playConfig {
	return playConfig{
		Manifest:       manifest,
		Multiplier:     multiplier,
		TickRate:       tickRate,
		Start:          startAt,
		Duration:       playFor,
		MemoryBudgetMB: memoryBudget,
		Style:          stylePath,
		Show:           showExpr,
		Color:          colorExpr,
		EDL:            edl,
		Attenuation:    attenuation,
		Loop:           loop,
		Clip:           clipPlanes.Value(),
		RPC:            rpcEnabled,
		RPCListen:      rpcListen,
		RPCSecret:      rpcSecret,
		Source:         sourceConfigFromFlags(),
	}
}

// withPlayback fills unset fields from the manifest.
func (c playConfig) withPlayback(pb timeline.Playback) playConfig {
	if c.Multiplier == 0 {
		c.Multiplier = pb.Multiplier
	}
	if c.Multiplier == 0 {
		c.Multiplier = DEF_MULTIPLIER
	}
	if c.TickRate <= 0 {
		c.TickRate = pb.TickRateHz
	}
	if c.TickRate <= 0 {
		c.TickRate = common.DefaultTickRate
	}
	if c.MemoryBudgetMB <= 0 {
		c.MemoryBudgetMB = pb.MemoryBudgetMB
	}
	if c.Style == "" && c.Show == "" && c.Color == "" && pb.Style != "" {
		c.Style = pb.Style
		if !filepath.IsAbs(c.Style) {
			c.Style = filepath.Join(filepath.Dir(c.Manifest), c.Style)
		}
	}
	c.EDL = c.EDL || pb.Shading.EyeDomeLighting
	c.Attenuation = c.Attenuation || pb.Shading.Attenuation
	c.Loop = c.Loop || pb.Loop
	return c
}

// playSummary is what a finished run reports.
type playSummary struct {
	Ticks         int
	FrameChanges  int
	FrameFailures int
	Elapsed       time.Duration
	Status        pcstream.Status
	RPCAddr       string
}

func play(ctx *cli.Context) error {
	manifest := ctx.Args().First()
	if manifest == "" {
		return cmdCommon.PrintErrWithCmdHelp(
			ctx,
			errors.New("no manifest provided"),
		)
	} else if manifest == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	l, err := newLogger(debug, logFile)
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "play", "logger", err)
		return nil
	}
	defer l.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var p *mpb.Progress
	if !noProgress {
		p = mpb.NewWithContext(sigCtx, mpb.WithWidth(64), mpb.WithRefreshRate(150*time.Millisecond))
	}
	sum, err := runPlay(sigCtx, playConfigFromFlags(manifest), afero.NewOsFs(), l, p)
	if p != nil {
		p.Shutdown()
	}
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "play", "run", err)
		return nil
	}
	printSummary(sum)
	return nil
}

func printSummary(sum playSummary) {
	st := sum.Status
	fmt.Printf(`
Playback Summary
Elapsed`+"\t\t"+`: %s
Ticks`+"\t\t"+`: %d
Intervals`+"\t"+`: %d
Ready`+"\t\t"+`: %d
Failed`+"\t\t"+`: %d
Frame changes`+"\t"+`: %d
Avg load time`+"\t"+`: %s
Memory`+"\t\t"+`: %s / %s
`,
		sum.Elapsed.Round(time.Millisecond),
		sum.Ticks,
		st.Intervals,
		st.ReadyFrames,
		st.FailedFrames,
		sum.FrameChanges,
		st.AverageLoadTime.Round(time.Millisecond),
		fetch.ByteSize(st.MemoryUsageBytes),
		fetch.ByteSize(st.MemoryBudgetBytes),
	)
}

// runPlay plays a manifest until it ends, cfg.Duration elapses or ctx is
// canceled. p may be nil to disable progress bars.
func runPlay(ctx context.Context, cfg playConfig, fs afero.Fs, l logger.Logger, p *mpb.Progress) (playSummary, error) {
	var sum playSummary
	l = logger.OrNop(l)
	m, err := timeline.LoadManifest(fs, cfg.Manifest)
	if err != nil {
		return sum, err
	}
	idx, err := m.Index()
	if err != nil {
		return sum, err
	}
	cfg = cfg.withPlayback(m.Playback)

	router, store, err := newRouter(cfg.Source, fs, l)
	if err != nil {
		return sum, err
	}
	if store != nil {
		defer store.Close()
	}
	if p != nil {
		router.SetHandlers(cmdCommon.NewTileBars(p).Handlers())
	}

	spanStart, spanStop := idx.Span()
	clk := clock.NewSimClock(spanStart, spanStop)
	clk.SetMultiplier(cfg.Multiplier)
	if cfg.Loop {
		clk.SetRange(clock.LoopStop)
	} else {
		clk.SetRange(clock.Clamped)
	}
	if cfg.Multiplier < 0 {
		clk.SetCurrentTime(spanStop)
	}
	if cfg.Start != "" {
		t, err := time.Parse(time.RFC3339Nano, cfg.Start)
		if err != nil {
			return sum, fmt.Errorf("start: %w", err)
		}
		clk.SetCurrentTime(t)
	}

	st, err := loadStyle(fs, cfg, l)
	if err != nil {
		return sum, err
	}
	var planes pcstream.ClippingPlanes
	if len(cfg.Clip) > 0 {
		cp, err := parseClippingPlanes(cfg.Clip)
		if err != nil {
			return sum, err
		}
		planes = cp
	}

	notifier := server.NewRPCNotifier(l)
	s, err := pcstream.New(pcstream.Config{
		Clock:                clk,
		Intervals:            idx,
		Source:               router,
		Decoder:              &pcd.Decoder{},
		MaximumMemoryUsageMB: cfg.MemoryBudgetMB,
		Shading: pcstream.Shading{
			Attenuation:         cfg.Attenuation,
			EyeDomeLighting:     cfg.EDL,
			GeometricErrorScale: m.Playback.Shading.GeometricErrorScale,
			MaximumAttenuation:  m.Playback.Shading.MaximumAttenuation,
			BaseResolution:      m.Playback.Shading.BaseResolution,
		},
		Style:          st,
		ClippingPlanes: planes,
		PostProcessor:  headless.NewEyeDomeLighting(),
		Logger:         l,
		OnFrameFailed: func(ev pcstream.FrameFailedEvent) {
			sum.FrameFailures++
			l.Error("frame %d (%s): %v", ev.Index, fetch.Redact(ev.Locator), ev.Err)
			notifier.FrameFailed(ev)
		},
		OnFrameChanged: func(ev pcstream.FrameChangedEvent) {
			sum.FrameChanges++
			notifier.FrameChanged(ev)
		},
	})
	if err != nil {
		return sum, err
	}
	// Runs before store.Close: cancelled fetches may still write to the cache.
	defer func() {
		if err := s.Destroy(); err != nil {
			l.Warning("teardown: %v", err)
		}
		wctx, cancel := context.WithTimeout(context.Background(), DEF_SHUTDOWN_WAIT)
		defer cancel()
		if err := s.Wait(wctx); err != nil {
			l.Warning("teardown: fetches still running: %v", err)
		}
	}()

	if cfg.RPC {
		ws, err := startRPC(cfg, s, notifier, l)
		if err != nil {
			return sum, err
		}
		sum.RPCAddr = ws.Addr().String()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), DEF_SHUTDOWN_WAIT)
			defer cancel()
			_ = ws.Shutdown(sctx)
		}()
	}

	rc := headless.NewContext()
	ticker := time.NewTicker(time.Second / time.Duration(cfg.TickRate))
	defer ticker.Stop()
	began := time.Now()
	for {
		select {
		case <-ctx.Done():
			return finish(&sum, s, began)
		case <-ticker.C:
		}
		snap := clk.Tick()
		rc.BeginFrame()
		if err := s.Tick(rc); err != nil {
			return sum, err
		}
		sum.Ticks++
		if cfg.Duration > 0 && time.Since(began) >= cfg.Duration {
			return finish(&sum, s, began)
		}
		if !cfg.Loop && atEnd(snap, spanStart, spanStop) && settled(s) {
			return finish(&sum, s, began)
		}
	}
}

func finish(sum *playSummary, s *pcstream.Stream, began time.Time) (playSummary, error) {
	sum.Elapsed = time.Since(began)
	st, err := s.Status()
	if err != nil {
		return *sum, err
	}
	sum.Status = st
	return *sum, nil
}

// atEnd reports whether a clamped clock has reached the end it plays toward.
func atEnd(snap clock.Snapshot, start, stop time.Time) bool {
	if snap.Multiplier < 0 {
		return !snap.CurrentTime.After(start)
	}
	return !snap.CurrentTime.Before(stop)
}

// settled reports whether every requested tile is ready or failed.
func settled(s *pcstream.Stream) bool {
	st, err := s.Status()
	if err != nil {
		return true
	}
	return st.PendingFetches == 0 && st.ReadyFrames+st.FailedFrames == st.Frames
}

func loadStyle(fs afero.Fs, cfg playConfig, l logger.Logger) (pcstream.Style, error) {
	switch {
	case cfg.Style != "":
		st, err := style.Load(fs, cfg.Style, l)
		if err != nil {
			return nil, err
		}
		return st, nil
	case cfg.Show != "" || cfg.Color != "":
		st, err := style.Compile(cfg.Show, cfg.Color)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, nil
}

// parseClippingPlanes parses "nx,ny,nz,d" plane specs.
func parseClippingPlanes(specs []string) (*headless.ClippingPlanes, error) {
	planes := make([]headless.Plane, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("clip %q: want nx,ny,nz,d", spec)
		}
		var v [4]float64
		for i, part := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("clip %q: %w", spec, err)
			}
			v[i] = f
		}
		n := mgl64.Vec3{v[0], v[1], v[2]}
		if n.Len() == 0 {
			return nil, fmt.Errorf("clip %q: zero normal", spec)
		}
		planes = append(planes, headless.Plane{Normal: n, Distance: v[3]})
	}
	return headless.NewClippingPlanes(planes...), nil
}

func startRPC(cfg playConfig, s *pcstream.Stream, n *server.RPCNotifier, l logger.Logger) (*server.WebServer, error) {
	secret := cfg.RPCSecret
	if secret == "" {
		var err error
		if secret, err = randomSecret(); err != nil {
			return nil, err
		}
		fmt.Printf("rpc secret: %s\n", secret)
	}
	rs := server.NewRPCServer(&server.RPCConfig{
		Secret:    secret,
		Version:   buildArgs.Version,
		Commit:    buildArgs.Commit,
		BuildType: buildArgs.BuildType,
	}, s, n, l)
	ws := server.NewWebServer(rs, l)
	if err := ws.Start(cfg.RPCListen); err != nil {
		return nil, fmt.Errorf("rpc: %w", err)
	}
	return ws, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
