package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	fs := NewFlagSet("test")
	var (
		out   string
		quiet bool
		jobs  int
		trace []string
		funcs []string
	)
	fs.String(&out, "output", "o", "-", "output", "file")
	fs.Bool(&quiet, "quiet", "q", false, "quiet")
	fs.Int(&jobs, "jobs", "j", 1, "jobs", "n")
	fs.List(&trace, "trace", "", nil, "trace", "topic")
	fs.Special(&funcs, "f", "function", "name")

	args := []string{"-o", "a.txt", "-q", "--jobs=3", "--trace", "phi,liveness", "-fmain", "x.ll", "-fother", "--", "-q"}
	if err := fs.Parse(args); err != nil { t.Fatal(err) }

	if out != "a.txt" || !quiet || jobs != 3 { t.Errorf("out=%q quiet=%v jobs=%d", out, quiet, jobs) }
	if diff := cmp.Diff([]string{"phi", "liveness"}, trace); diff != "" { t.Errorf("trace (-want +got):\n%s", diff) }
	if diff := cmp.Diff([]string{"main", "other"}, funcs); diff != "" { t.Errorf("funcs (-want +got):\n%s", diff) }
	if diff := cmp.Diff([]string{"x.ll", "-q"}, fs.Args()); diff != "" { t.Errorf("args (-want +got):\n%s", diff) }
}

func TestParseErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--nope"},
		{"-z"},
		{"-o"},
		{"--jobs", "many"},
		{"--quiet=maybe"},
	} {
		fs := NewFlagSet("test")
		var out string
		var quiet bool
		var jobs int
		fs.String(&out, "output", "o", "", "output", "file")
		fs.Bool(&quiet, "quiet", "q", false, "quiet")
		fs.Int(&jobs, "jobs", "j", 1, "jobs", "n")
		if err := fs.Parse(args); err == nil { t.Errorf("%v: expected an error", args) }
	}
}

func TestFlagGroup(t *testing.T) {
	fs := NewFlagSet("test")
	var on, off bool
	fs.AddFlagGroup("Feature Flags", "Switches.", "feature", "Available Features:", []FlagGroupEntry{
		{Name: "locations", Prefix: "F", Usage: "attach locations", Enabled: &on, Disabled: &off},
	})
	if err := fs.Parse([]string{"-Fno-locations"}); err != nil { t.Fatal(err) }
	if on || !off { t.Errorf("on=%v off=%v", on, off) }
}

func TestHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := NewApp("tool")
	app.Synopsis = "[options] <input> ..."
	app.Authors = []string{"someone"}
	app.Stdout, app.Stderr = &stdout, &stderr

	var out string
	app.FlagSet.String(&out, "output", "o", "-", "Write the output to <file>.", "file")

	ran := false
	app.Action = func([]string) error { ran = true; return nil }

	if err := app.Run([]string{"--help"}); err != nil { t.Fatal(err) }
	if ran { t.Errorf("action ran with --help") }
	help := stdout.String()
	for _, want := range []string{"tool <options> <input>", "--output", "Write the output to <file>."} {
		if !strings.Contains(help, want) { t.Errorf("help lacks %q:\n%s", want, help) }
	}

	bad := NewApp("tool")
	bad.Stdout, bad.Stderr = &stdout, &stderr
	if err := bad.Run([]string{"--bogus"}); err == nil { t.Errorf("expected an error") }
	if !strings.Contains(stderr.String(), "Usage: tool") { t.Errorf("usage not printed:\n%s", stderr.String()) }
}
