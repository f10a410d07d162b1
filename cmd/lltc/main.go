package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/xplshn/lltree/pkg/cli"
	"github.com/xplshn/lltree/pkg/config"
	"github.com/xplshn/lltree/pkg/convert"
	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/llimport"
	"github.com/xplshn/lltree/pkg/lower"
	"github.com/xplshn/lltree/pkg/tree"
	"github.com/xplshn/lltree/pkg/util"
)

func main() {
	app := cli.NewApp("lltc")
	app.Synopsis = "[options] <input.ll> ..."
	app.Description = "Lowers LLVM IR functions into trees of block units with explicit slots, phi writes and invalidation points."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/lltree>"
	app.Since = 2025

	var (
		outFile string
		target  string
		profile string
		emit    string
		trace   []string
		funcs   []string
		wall    []string
		quiet   bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "-", "Write the output to <file> ('-' for stdout).", "file")
	fs.String(&target, "target", "t", "", "Set the target ABI used for type layout.", "target")
	fs.String(&profile, "profile", "p", "release", "Select a preset of features and warnings (release, debug).", "profile")
	fs.String(&emit, "emit", "e", "tree", "What to print: tree, liveness, ir or fingerprint.", "kind")
	fs.List(&trace, "trace", "", []string{}, "Enable trace output for a topic (import, liveness, phi, lower, convert).", "topic")
	fs.Special(&funcs, "f", "Only convert function <name> (e.g., -fmain)", "name")
	fs.Special(&wall, "W", "Toggle every warning at once (-Wall, -Wno-all)", "all")
	fs.Bool(&quiet, "quiet", "q", false, "Do not print progress messages.")

	cfg := config.NewConfig()
	groups := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		if len(inputFiles) == 0 {
			util.Error(util.Pos{}, "no input files specified.")
		}

		// Profile first, explicit flags override it
		if err := cfg.ApplyProfile(profile); err != nil {
			util.Error(util.Pos{}, "%v", err)
		}
		for _, w := range wall {
			if err := cfg.ApplyFlagString("-W" + w); err != nil { util.Error(util.Pos{}, "%v", err) }
		}
		groups.Apply(cfg)

		if !quiet { cfg.Log = os.Stderr }
		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target)

		if len(trace) > 0 { tlog.SetVerbosity(strings.Join(trace, ",")) }

		var w io.Writer = os.Stdout
		if outFile != "" && outFile != "-" {
			f, err := os.Create(outFile)
			if err != nil { util.Error(util.Pos{}, "%v", err) }
			defer f.Close()
			w = f
		}
		bw := bufio.NewWriter(w)
		defer bw.Flush()

		progress := func(format string, args ...any) {
			if !quiet { util.Info(format, args...) }
		}

		conv := convert.New(cfg, tree.Factory{})
		for _, path := range inputFiles {
			progress("Importing %s...", path)
			m, err := llimport.ParseFile(path)
			if err != nil { util.Error(util.Pos{}, "%v", err) }

			for _, fn := range m.Funcs {
				if !selected(funcs, fn.Name) { continue }
				if err := output(bw, emit, conv, fn); err != nil {
					util.Error(util.Pos{Func: fn.Name}, "%v", err)
				}
			}
		}

		progress("Converted %d function(s).", conv.Len())
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func selected(names []string, name string) bool {
	if len(names) == 0 { return true }
	for _, n := range names {
		if n == name { return true }
	}
	return false
}

func output(w io.Writer, emit string, conv *convert.Converter, fn *ir.Function) error {
	if emit == "ir" {
		_, err := fmt.Fprintln(w, fn.String())
		return err
	}

	out, err := conv.Convert(fn)
	if err != nil { return err }

	switch emit {
	case "tree":
		return tree.Dump(w, out)
	case "fingerprint":
		_, err := fmt.Fprintf(w, "%016x @%s\n", tree.Fingerprint(out), out.Name)
		return err
	case "liveness":
		return dumpLiveness(w, fn, out)
	default:
		return errors.New("unknown output kind %q", emit)
	}
}

func dumpLiveness(w io.Writer, fn *ir.Function, out *lower.Function) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "liveness @%s slots=%d visits=%d\n", out.Name, out.Liveness.SlotCount, out.Liveness.Visits)
	for i, b := range out.Liveness.Blocks {
		fmt.Fprintf(&sb, "block %d %s\n", i, fn.Blocks[i].Name)
		fmt.Fprintf(&sb, "  in    %v\n", b.In)
		fmt.Fprintf(&sb, "  out   %v\n", b.Out)
		fmt.Fprintf(&sb, "  entry %v\n", b.Entry)
		fmt.Fprintf(&sb, "  exit  %v\n", b.Exit)
		for _, p := range b.Points {
			fmt.Fprintf(&sb, "  dead  %%%d after %d\n", p.Slot, p.Index)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
