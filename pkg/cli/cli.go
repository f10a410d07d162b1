package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nikandfor/errors"
	"golang.org/x/term"
)

const indentUnit = 4

func indent(level int) string { return strings.Repeat(" ", indentUnit*level) }

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" { *v.p = true; return nil }
	val, err := strconv.ParseBool(s)
	if err != nil { return errors.Wrap(err, "invalid boolean value '%s'", s) }
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil { return errors.Wrap(err, "invalid integer value '%s'", s) }
	*v.p = n
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }
func (v *intValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" { *v.p = append(*v.p, part) }
	}
	return nil
}
func (v *listValue) String() string { return strings.Join(*v.p, ",") }
func (v *listValue) Get() any       { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (f *Flag) isBool() bool { _, ok := f.Value.(*boolValue); return ok }

type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

// FlagGroupEntry is one toggle of a group: Prefix+Name sets Enabled and
// Prefix+"no-"+Name sets Disabled.
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name          string
	flags         map[string]*Flag
	shorthands    map[string]*Flag
	specialPrefix map[string]*Flag
	args          []string
	flagGroups    []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:          name,
		flags:         make(map[string]*Flag),
		shorthands:    make(map[string]*Flag),
		specialPrefix: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, expectedType string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), expectedType)
}

// List collects repeated or comma separated values.
func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = append([]string(nil), value...)
	f.Var(&listValue{p}, name, shorthand, usage, strings.Join(value, ","), expectedType)
}

// Special collects every argument of the form -<prefix><rest> that is not a
// defined flag, e.g. -Wall for the prefix W.
func (f *FlagSet) Special(p *[]string, prefix, usage, expectedType string) {
	*p = []string{}
	f.Var(&listValue{p}, prefix, "", usage, "", expectedType)
	f.specialPrefix[prefix] = f.flags[prefix]
}

func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil { f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage) }
		if e.Disabled != nil { f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'") }
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:                 name,
		Description:          description,
		Flags:                entries,
		GroupType:            groupType,
		AvailableFlagsHeader: availableFlagsHeader,
	})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" { panic("flag name cannot be empty") }
	if _, ok := f.flags[name]; ok { panic("flag redefined: " + name) }
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand == "" { return }
	if _, ok := f.shorthands[shorthand]; ok { panic("shorthand flag redefined: " + shorthand) }
	f.shorthands[shorthand] = flag
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
			continue
		}

		dashes := "-"
		body := arg[1:]
		if strings.HasPrefix(arg, "--") { dashes, body = "--", arg[2:] }

		name, value, hasValue := strings.Cut(body, "=")
		if name == "" { return errors.New("empty flag name") }

		flag, ok := f.flags[name]
		if !ok && dashes == "-" {
			if err := f.parseShortFlag(arg, arguments, &i); err != nil { return err }
			continue
		}
		if !ok { return errors.New("unknown flag: --%s", name) }

		switch {
		case hasValue:
		case flag.isBool():
			value = ""
		case i+1 >= len(arguments):
			return errors.New("flag needs an argument: %s%s", dashes, name)
		default:
			i++
			value = arguments[i]
		}
		if err := flag.Value.Set(value); err != nil { return errors.Wrap(err, "%s%s", dashes, name) }
	}
	return nil
}

func (f *FlagSet) parseShortFlag(arg string, arguments []string, i *int) error {
	for prefix, flag := range f.specialPrefix {
		if strings.HasPrefix(arg, "-"+prefix) && len(arg) > len(prefix)+1 { return flag.Value.Set(arg[len(prefix)+1:]) }
	}

	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok { return errors.New("unknown shorthand flag: -%s", shorthand) }
	if flag.isBool() { return flag.Value.Set("") }

	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) { return errors.New("flag needs an argument: -%s", shorthand) }
		*i++
		value = arguments[*i]
	}
	return flag.Value.Set(value)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		a.writeUsage(a.Stderr)
		return err
	}
	if help {
		a.writeHelp(a.Stdout)
		return nil
	}
	if a.Action != nil { return a.Action(a.FlagSet.Args()) }
	return nil
}

func (a *App) synopsis() string {
	if a.Synopsis == "" { return "<options>" }
	return strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
}

func (a *App) writeUsage(w io.Writer) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.synopsis())

	opts := a.optionFlags()
	if len(opts) > 0 {
		lw, uw := 0, 0
		for _, flag := range opts {
			lw = max(lw, len(flagString(flag)))
			uw = max(uw, len(flag.Usage))
		}
		fmt.Fprintf(&sb, "\n%sOptions\n", indent(1))
		for _, flag := range opts {
			a.flagLine(&sb, flag, terminalWidth(a.Stdout), lw, uw)
		}
	}

	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	io.WriteString(w, sb.String())
}

func (a *App) writeHelp(w io.Writer) {
	var sb strings.Builder
	width := terminalWidth(w)

	lw, uw := 0, 0
	opts := a.optionFlags()
	for _, flag := range opts {
		lw = max(lw, len(flagString(flag)))
		uw = max(uw, len(flag.Usage))
	}
	for _, g := range a.FlagSet.flagGroups {
		if len(g.Flags) == 0 { continue }
		lw = max(lw, len(fmt.Sprintf("-%sno-<%s>", g.Flags[0].Prefix, g.groupType())))
		for _, e := range g.Flags {
			lw = max(lw, len(e.Name))
			uw = max(uw, len(e.Usage))
		}
	}

	years := strconv.Itoa(time.Now().Year())
	if a.Since > 0 && strconv.Itoa(a.Since) != years { years = strconv.Itoa(a.Since) + "-" + years }
	fmt.Fprintf(&sb, "\n%sCopyright (c) %s: %s\n", indent(1), years, strings.Join(a.Authors, ", ")+" and contributors")
	if a.Repository != "" { fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indent(1), a.Repository) }

	fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indent(1), indent(2), a.Name, a.synopsis())
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indent(1))
		for _, line := range wrapText(a.Description, width-len(indent(2))) {
			fmt.Fprintf(&sb, "%s%s\n", indent(2), line)
		}
	}

	if len(opts) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indent(1))
		for _, flag := range opts {
			a.flagLine(&sb, flag, width, lw, uw)
		}
	}

	groups := append([]FlagGroup(nil), a.FlagSet.flagGroups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, g := range groups {
		g.write(&sb, width, lw, uw)
	}
	io.WriteString(w, sb.String())
}

func (a *App) optionFlags() []*Flag {
	grouped := map[string]bool{}
	for _, g := range a.FlagSet.flagGroups {
		for _, e := range g.Flags {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}

	var out []*Flag
	for name, flag := range a.FlagSet.flags {
		if _, special := a.FlagSet.specialPrefix[name]; special || grouped[name] { continue }
		out = append(out, flag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func flagString(flag *Flag) string {
	var sb strings.Builder
	typ := ""
	if !flag.isBool() && flag.ExpectedType != "" { typ = "<" + flag.ExpectedType + ">" }

	if flag.Shorthand != "" {
		sb.WriteString("-" + flag.Shorthand)
		if typ != "" { sb.WriteString(" " + typ) }
		sb.WriteString(", ")
	}
	sb.WriteString("--" + flag.Name)
	if typ != "" { sb.WriteString("=" + typ) }
	return sb.String()
}

func (a *App) flagLine(sb *strings.Builder, flag *Flag, width, lw, uw int) {
	right := ""
	if !flag.isBool() && flag.DefValue != "" && flag.DefValue != "0" { right = "|" + flag.DefValue + "|" }
	entry(sb, width, flagString(flag), flag.Usage, right, lw, uw)
}

func (g FlagGroup) groupType() string {
	if g.GroupType == "" { return "flag" }
	return g.GroupType
}

func (g FlagGroup) write(sb *strings.Builder, width, lw, uw int) {
	if len(g.Flags) == 0 { return }
	prefix, typ := g.Flags[0].Prefix, g.groupType()

	fmt.Fprintf(sb, "\n%s%s\n", indent(1), g.Name)
	if g.Description != "" { fmt.Fprintf(sb, "%s%s\n", indent(2), g.Description) }
	fmt.Fprintf(sb, "%s%-*s Enable a specific %s\n", indent(2), lw, "-"+prefix+"<"+typ+">", typ)
	fmt.Fprintf(sb, "%s%-*s Disable a specific %s\n", indent(2), lw, "-"+prefix+"no-<"+typ+">", typ)
	if g.AvailableFlagsHeader != "" { fmt.Fprintf(sb, "%s%s\n", indent(1), g.AvailableFlagsHeader) }

	entries := append([]FlagGroupEntry(nil), g.Flags...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, e := range entries {
		mark := "|-|"
		if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) { mark = "|x|" }
		entry(sb, width, e.Name, e.Usage, mark, lw, uw)
	}
}

// entry writes one aligned help line, wrapping the usage text under itself.
func entry(sb *strings.Builder, width int, left, usage, right string, lw, uw int) {
	pad := indent(2)
	avail := max(width-len(pad)-lw-3-len(right), 10)
	uw = min(uw, avail)

	lines := wrapText(usage, avail)
	first := ""
	if len(lines) > 0 { first = lines[0] }

	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", pad, lw, left, uw, first, right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", pad, lw, left, first)
	}
	for _, l := range lines[min(1, len(lines)):] {
		fmt.Fprintf(sb, "%s%s %s\n", pad, strings.Repeat(" ", lw), l)
	}
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok { return 80 }
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil { return 80 }
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 { return words }

	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		if len(cur)+1+len(w) > maxWidth {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur += " " + w
	}
	return append(lines, cur)
}
