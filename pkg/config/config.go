package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/nikandfor/errors"
	"modernc.org/libqbe"

	"github.com/xplshn/lltree/pkg/ir"
)

type Feature int

const (
	FeatInvalidate Feature = iota
	FeatBoundaryInvalidate
	FeatLocations
	FeatSharedOperands
	FeatVerifyLiveness
	FeatCount
)

type Warning int

const (
	WarnDeadValue Warning = iota
	WarnUnusedParam
	WarnDuplicatePhiEdge
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features       map[Feature]Info
	Warnings       map[Warning]Info
	FeatureMap     map[string]Feature
	WarningMap     map[string]Warning
	Profile        string
	GOOS, GOARCH   string
	QbeTarget      string
	WordSize       int
	StackAlignment int
	// Log receives target selection messages. Nil keeps them quiet.
	Log io.Writer
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		Profile:    "release",
		WordSize:   8,
	}

	features := map[Feature]Info{
		FeatInvalidate:         {"invalidate", true, "Clear dead slots right after their last use inside a block."},
		FeatBoundaryInvalidate: {"boundary-invalidate", true, "Clear dead slots when control enters or leaves a block."},
		FeatLocations:          {"locations", true, "Attach source locations to statements."},
		FeatSharedOperands:     {"shared-operands", true, "Build one expression per operand value and share it."},
		FeatVerifyLiveness:     {"verify-liveness", false, "Cross-check liveness against a plain recomputation."},
	}

	warnings := map[Warning]Info{
		WarnDeadValue:        {"dead-value", false, "Warn about instruction results that are never read."},
		WarnUnusedParam:      {"unused-param", false, "Warn about parameters that are never read."},
		WarnDuplicatePhiEdge: {"duplicate-phi-edge", true, "Warn when a phi repeats a predecessor with the same value."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) logf(format string, args ...any) {
	if c.Log != nil { fmt.Fprintf(c.Log, "lltc: info: "+format+"\n", args...) }
}

// SetTarget picks the word size for a target. An empty target means the
// host's.
func (c *Config) SetTarget(goos, goarch, target string) {
	if target == "" {
		c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
		c.logf("no target specified, defaulting to host target '%s'", c.QbeTarget)
	} else {
		c.QbeTarget = target
		c.logf("using specified target '%s'", c.QbeTarget)
	}

	c.GOOS, c.GOARCH = goos, goarch

	switch c.QbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.WordSize, c.StackAlignment = 8, 16
	case "arm", "rv32", "i386":
		c.WordSize, c.StackAlignment = 4, 8
	default:
		c.logf("unrecognized target '%s', assuming 64-bit pointers", c.QbeTarget)
		c.WordSize, c.StackAlignment = 8, 16
	}
}

// Layout is the data layout of the configured target.
func (c *Config) Layout() ir.Layout { return ir.NewLayout(c.WordSize) }

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyProfile sets features and warnings as a group. Individual flags
// applied afterwards override it.
func (c *Config) ApplyProfile(name string) error {
	type setting struct {
		feature          Feature
		debug, release   bool
	}

	settings := []setting{
		{FeatInvalidate, true, true},
		{FeatBoundaryInvalidate, true, true},
		{FeatLocations, true, false},
		{FeatSharedOperands, false, true},
		{FeatVerifyLiveness, true, false},
	}

	switch name {
	case "debug":
		for _, s := range settings {
			c.SetFeature(s.feature, s.debug)
		}
		for w := Warning(0); w < WarnCount; w++ {
			c.SetWarning(w, true)
		}
	case "release":
		for _, s := range settings {
			c.SetFeature(s.feature, s.release)
		}
		c.SetWarning(WarnDeadValue, false)
		c.SetWarning(WarnUnusedParam, false)
		c.SetWarning(WarnDuplicatePhiEdge, true)
	default:
		return errors.New("unsupported profile '%s'. Supported: 'debug', 'release'", name)
	}
	c.Profile = name
	return nil
}

func (c *Config) applyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return errors.New("unknown flag '%s'", flag)
	}
	if isNo { name = strings.TrimPrefix(name, "no-") }

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok { return errors.New("unknown warning '%s'", name) }
		c.SetWarning(w, enable)
		return nil
	}

	f, ok := c.FeatureMap[name]
	if !ok { return errors.New("unknown feature '%s'", name) }
	c.SetFeature(f, enable)
	return nil
}

// ApplyFlags applies -W and -F flags. -Wall and -Wno-all go first so the
// specific flags refine them.
func (c *Config) ApplyFlags(flags []string) error {
	for _, f := range flags {
		if t := strings.TrimPrefix(f, "-"); t == "Wall" || t == "Wno-all" {
			if err := c.applyFlag(f); err != nil { return err }
		}
	}
	for _, f := range flags {
		if t := strings.TrimPrefix(f, "-"); t != "Wall" && t != "Wno-all" {
			if err := c.applyFlag(f); err != nil { return err }
		}
	}
	return nil
}

// ApplyFlagString applies a space separated flag list, as stored next to a
// test input.
func (c *Config) ApplyFlagString(s string) error { return c.ApplyFlags(strings.Fields(s)) }

// Clone returns an independent copy of c.
func (c *Config) Clone() *Config {
	n := *c
	n.Features = make(map[Feature]Info, len(c.Features))
	n.Warnings = make(map[Warning]Info, len(c.Warnings))
	for k, v := range c.Features {
		n.Features[k] = v
	}
	for k, v := range c.Warnings {
		n.Warnings[k] = v
	}
	return &n
}
