package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xplshn/lltree/pkg/cli"
)

func TestDefaults(t *testing.T) {
	c := NewConfig()
	if !c.IsFeatureEnabled(FeatInvalidate) || !c.IsFeatureEnabled(FeatBoundaryInvalidate) { t.Errorf("invalidation should be on by default") }
	if c.IsFeatureEnabled(FeatVerifyLiveness) { t.Errorf("verify-liveness should be off by default") }
	if c.WordSize != 8 { t.Errorf("word size: %d", c.WordSize) }
	if len(c.FeatureMap) != int(FeatCount) || len(c.WarningMap) != int(WarnCount) { t.Errorf("maps: %d features, %d warnings", len(c.FeatureMap), len(c.WarningMap)) }
}

func TestApplyFlags(t *testing.T) {
	c := NewConfig()
	if err := c.ApplyFlags([]string{"-Wno-duplicate-phi-edge", "-Wall", "-Fno-locations", "-Fverify-liveness"}); err != nil { t.Fatal(err) }

	if c.IsWarningEnabled(WarnDuplicatePhiEdge) { t.Errorf("specific warning flag should refine -Wall") }
	if !c.IsWarningEnabled(WarnDeadValue) || !c.IsWarningEnabled(WarnUnusedParam) { t.Errorf("-Wall should enable the rest") }
	if c.IsFeatureEnabled(FeatLocations) { t.Errorf("locations still on") }
	if !c.IsFeatureEnabled(FeatVerifyLiveness) { t.Errorf("verify-liveness still off") }
}

func TestApplyFlagErrors(t *testing.T) {
	for _, flag := range []string{"-Wbogus", "-Fbogus", "-Xfoo"} {
		if err := NewConfig().ApplyFlags([]string{flag}); err == nil { t.Errorf("%s: expected error", flag) }
	}
}

func TestApplyProfile(t *testing.T) {
	c := NewConfig()
	if err := c.ApplyProfile("debug"); err != nil { t.Fatal(err) }
	if !c.IsFeatureEnabled(FeatVerifyLiveness) || c.IsFeatureEnabled(FeatSharedOperands) { t.Errorf("debug profile: %+v", c.Features) }
	if !c.IsWarningEnabled(WarnDeadValue) { t.Errorf("debug profile should enable all warnings") }

	if err := c.ApplyProfile("release"); err != nil { t.Fatal(err) }
	if c.IsFeatureEnabled(FeatLocations) || !c.IsFeatureEnabled(FeatSharedOperands) { t.Errorf("release profile: %+v", c.Features) }

	if err := c.ApplyProfile("fast"); err == nil { t.Errorf("expected error for unknown profile") }
	if c.Profile != "release" { t.Errorf("profile changed on error: %s", c.Profile) }
}

func TestSetTarget(t *testing.T) {
	var log bytes.Buffer
	c := NewConfig()
	c.Log = &log

	c.SetTarget("linux", "386", "i386")
	if c.WordSize != 4 || c.StackAlignment != 8 { t.Errorf("i386: %d/%d", c.WordSize, c.StackAlignment) }
	if c.Layout().PointerSize != 4 { t.Errorf("layout pointer size: %d", c.Layout().PointerSize) }

	c.SetTarget("linux", "amd64", "amd64_sysv")
	if c.WordSize != 8 { t.Errorf("amd64: %d", c.WordSize) }

	if !strings.Contains(log.String(), "using specified target 'amd64_sysv'") { t.Errorf("log: %q", log.String()) }
}

func TestFlagGroups(t *testing.T) {
	c := NewConfig()
	fs := cli.NewFlagSet("test")
	g := c.SetupFlagGroups(fs)

	if err := fs.Parse([]string{"-Wdead-value", "-Fno-invalidate", "in.ll"}); err != nil { t.Fatal(err) }
	g.Apply(c)

	if !c.IsWarningEnabled(WarnDeadValue) { t.Errorf("dead-value not enabled") }
	if c.IsFeatureEnabled(FeatInvalidate) { t.Errorf("invalidate not disabled") }
	if !c.IsFeatureEnabled(FeatBoundaryInvalidate) { t.Errorf("untouched feature changed") }
	if args := fs.Args(); len(args) != 1 || args[0] != "in.ll" { t.Errorf("args: %v", args) }
}

func TestClone(t *testing.T) {
	c := NewConfig()
	d := c.Clone()
	d.SetFeature(FeatInvalidate, false)
	if !c.IsFeatureEnabled(FeatInvalidate) { t.Errorf("clone shares feature map") }
}
