// Package util prints diagnostics for the lltree commands and the converter.
package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/xplshn/lltree/pkg/config"
	"github.com/xplshn/lltree/pkg/ir"
)

// Pos places a diagnostic in a function. Loc is the debug location of the
// instruction, if it has one.
type Pos struct {
	Func  string
	Block string
	Loc   ir.Location
}

func (p Pos) String() string {
	var sb strings.Builder
	if !p.Loc.IsZero() { sb.WriteString(p.Loc.String() + ": ") }
	if p.Func != "" { sb.WriteString("@" + p.Func) }
	if p.Block != "" { sb.WriteString(":%" + p.Block) }
	return sb.String()
}

const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

var (
	mu     sync.Mutex
	out    io.Writer = os.Stderr
	colors           = isTerminal(os.Stderr)
	exit             = os.Exit
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetOutput redirects diagnostics to w. Colors are used only when w is a
// terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out, colors = w, isTerminal(w)
}

func report(color, kind string, pos Pos, msg string) {
	mu.Lock()
	defer mu.Unlock()

	prefix := ""
	if p := pos.String(); p != "" { prefix = p + ": " }
	if colors {
		fmt.Fprintf(out, "%s%s%s%s%s:%s %s\n", colorBold, prefix, colorReset, color, kind, colorReset, msg)
		return
	}
	fmt.Fprintf(out, "%s%s: %s\n", prefix, kind, msg)
}

func Info(format string, args ...any) { report(colorBold, "info", Pos{}, fmt.Sprintf(format, args...)) }

// Warn reports a warning if wt is enabled in cfg.
func Warn(cfg *config.Config, wt config.Warning, pos Pos, format string, args ...any) {
	if !cfg.IsWarningEnabled(wt) { return }
	msg := fmt.Sprintf(format, args...)
	report(colorYellow, "warning", pos, fmt.Sprintf("%s [-W%s]", msg, cfg.Warnings[wt].Name))
}

// Error reports an error and exits. Only the commands call it.
func Error(pos Pos, format string, args ...any) {
	report(colorRed, "error", pos, fmt.Sprintf(format, args...))
	exit(1)
}
