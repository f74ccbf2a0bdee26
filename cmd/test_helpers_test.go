package cmd

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	cmdCommon "github.com/warpdl/warpstream/cmd/common"
)

// captureOutput captures stdout and stderr during function execution.
func captureOutput(f func()) (stdout, stderr string) {
	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	outC := make(chan string)
	errC := make(chan string)
	go func() {
		var b bytes.Buffer
		_, _ = io.Copy(&b, rOut)
		outC <- b.String()
	}()
	go func() {
		var b bytes.Buffer
		_, _ = io.Copy(&b, rErr)
		errC <- b.String()
	}()

	f()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr
	stdout, stderr = <-outC, <-errC
	rOut.Close()
	rErr.Close()
	return
}

// assertContains checks if output contains the expected substring.
func assertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// assertContainsAll checks that output contains all expected substrings.
func assertContainsAll(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, exp := range expected {
		if !strings.Contains(output, exp) {
			t.Errorf("expected output to contain %q, got:\n%s", exp, output)
		}
	}
}

// assertErrorFormat checks that error output follows the standard format:
// warpstream: cmd[action]: msg
func assertErrorFormat(t *testing.T, output, cmd, action string) {
	t.Helper()
	pattern := "warpstream: " + cmd + "[" + action + "]:"
	if !strings.Contains(output, pattern) {
		t.Errorf("expected error format %q, got:\n%s", pattern, output)
	}
}

// newContext creates a CLI context for testing commands.
func newContext(app *cli.App, args []string, name string) *cli.Context {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	_ = set.Parse(args)
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: name}
	return ctx
}

func newTestApp() *cli.App {
	app := cli.NewApp()
	app.Name = "warpstream"
	app.HelpName = "warpstream"
	return app
}

// tilePCD is a two point ASCII tile; z is the tile number.
func tilePCD(z int) string {
	return fmt.Sprintf(`VERSION .7
FIELDS x y z
SIZE 4 4 4
TYPE F F F
COUNT 1 1 1
WIDTH 2
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 2
DATA ascii
0 0 %d
1 1 %d
`, z, z)
}

const sequenceYAML = `intervals:
  - start: 2024-05-01T12:00:00Z
    stop: 2024-05-01T12:00:00.1Z
    uri: 0.pcd
  - start: 2024-05-01T12:00:00.1Z
    stop: 2024-05-01T12:00:00.2Z
    uri: 1.pcd
playback:
  tick_rate_hz: 200
  memory_budget_mb: 16
`

// writeSequence writes /seq/seq.yaml and its tiles. Tiles listed in skip
// are left out.
func writeSequence(t *testing.T, fs afero.Fs, manifest string, skip ...int) string {
	t.Helper()
	if err := afero.WriteFile(fs, "/seq/seq.yaml", []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := make(map[int]bool)
	for _, i := range skip {
		missing[i] = true
	}
	for i := 0; i < 2; i++ {
		if missing[i] {
			continue
		}
		if err := afero.WriteFile(fs, fmt.Sprintf("/seq/%d.pcd", i), []byte(tilePCD(i)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return "/seq/seq.yaml"
}

// showCommandHelpForTest replaces command help with fn until restore is called.
func showCommandHelpForTest(fn func()) (restore func()) {
	prev := cmdCommon.SetShowCommandHelp(func(*cli.Context, string) error {
		fn()
		return nil
	})
	return func() { cmdCommon.SetShowCommandHelp(prev) }
}
