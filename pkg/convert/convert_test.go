package convert_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/nikandfor/errors"

	"github.com/xplshn/lltree/pkg/config"
	"github.com/xplshn/lltree/pkg/convert"
	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/ir/irtest"
	"github.com/xplshn/lltree/pkg/lower"
	"github.com/xplshn/lltree/pkg/tree"
	"github.com/xplshn/lltree/pkg/util"
)

func fixtures() []*ir.Function {
	return []*ir.Function{irtest.Straight(), irtest.Diamond(), irtest.Loop(), irtest.Swap(), irtest.SwitchDup(), irtest.Dead(), irtest.Memory()}
}

func quiet(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	util.SetOutput(&buf)
	t.Cleanup(func() { util.SetOutput(&bytes.Buffer{}) })
	return &buf
}

func TestConvertOnce(t *testing.T) {
	quiet(t)
	c := convert.New(nil, tree.Factory{})
	for _, fn := range fixtures() {
		a, err := c.Convert(fn)
		if err != nil { t.Fatalf("%s: %v", fn.Name, err) }
		b, err := c.Convert(fn)
		if err != nil { t.Fatalf("%s: second call: %v", fn.Name, err) }
		if a != b { t.Errorf("%s: second call built a new function", fn.Name) }
		if len(a.Units) != len(fn.Blocks) { t.Errorf("%s: %d units for %d blocks", fn.Name, len(a.Units), len(fn.Blocks)) }
	}
	if c.Len() != len(fixtures()) { t.Errorf("Len = %d", c.Len()) }
}

func TestConvertConcurrent(t *testing.T) {
	quiet(t)
	for _, fn := range fixtures() {
		ref, err := convert.New(nil, tree.Factory{}).Convert(fn)
		if err != nil { t.Fatalf("%s: %v", fn.Name, err) }
		want := tree.Fingerprint(ref)

		c := convert.New(nil, tree.Factory{})
		results := make([]*lower.Function, 32)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = c.Convert(fn)
			}(i)
		}
		wg.Wait()

		for i, r := range results {
			if r != results[0] { t.Errorf("%s: goroutine %d got a different result", fn.Name, i) }
		}
		if got := tree.Fingerprint(results[0]); got != want { t.Errorf("%s: fingerprint %x, want %x", fn.Name, got, want) }
	}
}

func TestErrorMemoized(t *testing.T) {
	f := ir.NewFunction("bad", ir.Void, false)
	b := f.NewBlock("entry")
	b.NewBinary("x", ir.Add, ir.NewInt(ir.I64, 1), ir.NewInt(ir.I64, 2))

	c := convert.New(nil, tree.Factory{})
	_, err1 := c.Convert(f)
	_, err2 := c.Convert(f)

	if !errors.Is(err1, ir.ErrBadTerminator) || !errors.Is(err1, ir.ErrMalformed) { t.Fatalf("got %v", err1) }
	if err1 != err2 { t.Errorf("error not memoized: %v vs %v", err1, err2) }
}

type brokenFactory struct{ tree.Factory }

func (brokenFactory) Return(lower.Expr) lower.Control { panic("no return node") }

func TestPanicMemoized(t *testing.T) {
	quiet(t)
	f := irtest.Straight()
	c := convert.New(nil, brokenFactory{})

	res1, err1 := c.Convert(f)
	res2, err2 := c.Convert(f)

	if res1 != nil || res2 != nil { t.Errorf("partial results %v %v", res1, res2) }
	if !errors.Is(err1, ir.ErrInvariant) { t.Fatalf("got %v", err1) }
	if err1 != err2 { t.Errorf("error not memoized: %v vs %v", err1, err2) }
	if !strings.Contains(err1.Error(), "no return node") { t.Errorf("panic value lost: %v", err1) }
}

func countInvalidates(fn *lower.Function) (stmts, boundary int) {
	for _, u := range fn.Units {
		for _, s := range u.Stmts {
			if _, ok := s.(*tree.Invalidate); ok { stmts++ }
		}
		boundary += len(u.EntryInvalidate) + len(u.ExitInvalidate)
	}
	return
}

func TestFeatures(t *testing.T) {
	quiet(t)

	on, err := convert.New(nil, tree.Factory{}).Convert(irtest.Loop())
	if err != nil { t.Fatal(err) }
	s, bnd := countInvalidates(on)
	if s == 0 && bnd == 0 { t.Fatalf("no invalidation emitted with defaults") }

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatInvalidate, false)
	cfg.SetFeature(config.FeatBoundaryInvalidate, false)
	off, err := convert.New(cfg, tree.Factory{}).Convert(irtest.Loop())
	if err != nil { t.Fatal(err) }
	if s, bnd := countInvalidates(off); s != 0 || bnd != 0 { t.Errorf("invalidation disabled but got %d statements, %d boundary slots", s, bnd) }
}

func TestVerifyLiveness(t *testing.T) {
	quiet(t)
	cfg := config.NewConfig()
	if err := cfg.ApplyProfile("debug"); err != nil { t.Fatal(err) }
	c := convert.New(cfg, tree.Factory{})
	for _, fn := range fixtures() {
		if _, err := c.Convert(fn); err != nil { t.Errorf("%s: %v", fn.Name, err) }
	}
}

func TestWarnings(t *testing.T) {
	buf := quiet(t)
	cfg := config.NewConfig()
	if err := cfg.ApplyFlags([]string{"-Wall"}); err != nil { t.Fatal(err) }
	c := convert.New(cfg, tree.Factory{})

	if _, err := c.Convert(irtest.Dead()); err != nil { t.Fatal(err) }
	if _, err := c.Convert(irtest.SwitchDup()); err != nil { t.Fatal(err) }

	out := buf.String()
	for _, want := range []string{
		"value %waste is never read [-Wdead-value]",
		"parameter %unused is never read [-Wunused-param]",
		"%p repeats predecessor %entry [-Wduplicate-phi-edge]",
	} {
		if !strings.Contains(out, want) { t.Errorf("missing %q in\n%s", want, out) }
	}
	if strings.Contains(out, "%x is never read") { t.Errorf("returned value reported dead:\n%s", out) }
}
