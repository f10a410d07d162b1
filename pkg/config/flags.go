package config

import (
	"sort"

	"github.com/xplshn/lltree/pkg/cli"
)

// FlagGroups binds the -W and -F toggles of a FlagSet to c. Call Apply
// after parsing to copy the toggles that were set into c.
type FlagGroups struct {
	warnings map[Warning]*toggle
	features map[Feature]*toggle
}

type toggle struct{ on, off bool }

func (c *Config) SetupFlagGroups(fs *cli.FlagSet) *FlagGroups {
	g := &FlagGroups{warnings: map[Warning]*toggle{}, features: map[Feature]*toggle{}}

	var wEntries, fEntries []cli.FlagGroupEntry
	for _, w := range sortedKeys(c.Warnings) {
		t := &toggle{}
		g.warnings[w] = t
		wEntries = append(wEntries, cli.FlagGroupEntry{Name: c.Warnings[w].Name, Prefix: "W", Usage: c.Warnings[w].Description, Enabled: &t.on, Disabled: &t.off})
	}
	for _, f := range sortedKeys(c.Features) {
		t := &toggle{}
		g.features[f] = t
		fEntries = append(fEntries, cli.FlagGroupEntry{Name: c.Features[f].Name, Prefix: "F", Usage: c.Features[f].Description, Enabled: &t.on, Disabled: &t.off})
	}

	fs.AddFlagGroup("Warning Flags", "Diagnostics reported while converting.", "warning", "Available Warning Flags:", wEntries)
	fs.AddFlagGroup("Feature Flags", "Switches for the shape of the produced tree.", "feature", "Available Features:", fEntries)
	return g
}

// Apply copies the toggles given on the command line into c. A -no- form
// wins over the plain one.
func (g *FlagGroups) Apply(c *Config) {
	for w, t := range g.warnings {
		if t.on { c.SetWarning(w, true) }
		if t.off { c.SetWarning(w, false) }
	}
	for f, t := range g.features {
		if t.on { c.SetFeature(f, true) }
		if t.off { c.SetFeature(f, false) }
	}
}

func sortedKeys[K ~int](m map[K]Info) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
