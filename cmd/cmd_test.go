package cmd

import (
	"strings"
	"testing"

	cmdCommon "github.com/warpdl/warpstream/cmd/common"
)

func TestExecute_Version(t *testing.T) {
	stdout, _ := captureOutput(func() {
		err := Execute([]string{"warpstream", "version"}, BuildArgs{
			Version:   "1.2.3",
			BuildType: "test",
			Date:      "2024-05-01",
			Commit:    "abc123",
		})
		if err != nil {
			t.Errorf("Execute: %v", err)
		}
	})
	assertContainsAll(t, stdout, []string{"warpstream 1.2.3-test", "2024-05-01=abc123"})
	if !strings.HasPrefix(cmdCommon.VersionCmdStr, "warpstream") {
		t.Errorf("VersionCmdStr = %q", cmdCommon.VersionCmdStr)
	}
	if buildArgs.Commit != "abc123" {
		t.Errorf("buildArgs not recorded: %+v", buildArgs)
	}
}

func TestExecute_Intervals(t *testing.T) {
	stdout, _ := captureOutput(func() {
		_ = Execute([]string{"warpstream", "intervals", "/no/such/manifest.yaml"}, BuildArgs{})
	})
	assertErrorFormat(t, stdout, "intervals", "load")
}

func TestCommandAction(t *testing.T) {
	if got := command("cache flush").action(); got != "warpstream cache flush" {
		t.Errorf("action() = %q", got)
	}
	if !confirm(command("flush"), true) {
		t.Error("forced confirm should succeed")
	}
}

func TestConfirmFrom(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var got bool
		stdout, _ := captureOutput(func() {
			got = confirmFrom(strings.NewReader(tt.input), command("cache flush"))
		})
		if got != tt.want {
			t.Errorf("confirmFrom(%q) = %v, want %v", tt.input, got, tt.want)
		}
		assertContains(t, stdout, `Run "warpstream cache flush"? [y/N]`)
		if !tt.want {
			assertContains(t, stdout, "nothing changed")
		}
	}
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger(false, "")
	if err != nil {
		t.Fatal(err)
	}
	_ = l.Close()

	path := t.TempDir() + "/play.log"
	l, err = newLogger(true, path)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("frame %d ready", 1)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := newLogger(false, t.TempDir()+"/missing/dir/play.log"); err == nil {
		t.Error("unwritable log file should fail")
	}
}
