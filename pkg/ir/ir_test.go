package ir_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nikandfor/errors"

	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/ir/irtest"
)

func blockNames(bs []*ir.Block) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name
	}
	return out
}

func TestPreds(t *testing.T) {
	f := irtest.Loop()
	var got [][]string
	for _, ps := range f.Preds() {
		got = append(got, blockNames(ps))
	}
	want := [][]string{nil, {"entry", "body"}, {"head"}, {"head"}}
	if diff := cmp.Diff(want, got, cmp.Transformer("empty", func(s []string) []string {
		if len(s) == 0 { return nil }
		return s
	})); diff != "" {
		t.Errorf("preds mismatch (-want +got):\n%s", diff)
	}
}

func TestPredsDedupSwitch(t *testing.T) {
	f := irtest.SwitchDup()
	preds := f.Preds()
	if got := blockNames(preds[1]); len(got) != 1 || got[0] != "entry" {
		t.Errorf("preds(t) = %v, want [entry]", got)
	}
	if got := len(f.Blocks[0].Term().Succs()); got != 3 {
		t.Errorf("switch edges = %d, want 3", got)
	}
	if got := len(f.Blocks[0].Succs()); got != 2 {
		t.Errorf("distinct successors = %d, want 2", got)
	}
}

func TestVerifyGood(t *testing.T) {
	for _, f := range []*ir.Function{irtest.Straight(), irtest.Diamond(), irtest.Loop(), irtest.Swap(), irtest.SwitchDup(), irtest.Dead(), irtest.Memory()} {
		if err := f.Verify(); err != nil {
			t.Errorf("%s: %v", f.Name, err)
		}
	}
}

func TestVerifyErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *ir.Function
		want  error
	}{
		{"no blocks", func() *ir.Function { return ir.NewFunction("f", ir.Void, false) }, ir.ErrMalformed},
		{"open block", func() *ir.Function {
			f := ir.NewFunction("f", ir.Void, false)
			f.NewBlock("entry").NewFence()
			return f
		}, ir.ErrBadTerminator},
		{"early terminator", func() *ir.Function {
			f := ir.NewFunction("f", ir.Void, false)
			b := f.NewBlock("entry")
			b.NewRet(nil)
			b.NewRet(nil)
			return f
		}, ir.ErrBadTerminator},
		{"late phi", func() *ir.Function {
			f := ir.NewFunction("f", ir.Void, false)
			a := f.NewParam("a", ir.I64)
			entry, next := f.NewBlock("entry"), f.NewBlock("next")
			entry.NewBr(next)
			next.NewFence()
			next.NewPhi("p", ir.I64, ir.Incoming{Value: a, Pred: entry})
			next.NewRet(nil)
			return f
		}, ir.ErrPhiPlacement},
		{"foreign successor", func() *ir.Function {
			other := ir.NewFunction("g", ir.Void, false)
			ob := other.NewBlock("entry")
			ob.NewRet(nil)
			f := ir.NewFunction("f", ir.Void, false)
			f.NewBlock("entry").NewBr(ob)
			return f
		}, ir.ErrBadSuccessor},
		{"unreachable block", func() *ir.Function {
			f := ir.NewFunction("f", ir.Void, false)
			f.NewBlock("entry").NewRet(nil)
			f.NewBlock("orphan").NewRet(nil)
			return f
		}, ir.ErrUnreachableBlock},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build().Verify()
			if !errors.Is(err, tc.want) {
				t.Fatalf("Verify() = %v, want %v", err, tc.want)
			}
			if !errors.Is(err, ir.ErrMalformed) {
				t.Errorf("error %v is not malformed input", err)
			}
		})
	}
}

func TestLayout(t *testing.T) {
	l := ir.NewLayout(8)
	st := ir.StructOf(false, ir.I8, ir.I32, ir.I16)
	tests := []struct {
		typ         *ir.Type
		size, align int64
	}{
		{ir.I1, 1, 1},
		{ir.I32, 4, 4},
		{ir.I64, 8, 8},
		{ir.Ptr, 8, 8},
		{ir.F32, 4, 4},
		{ir.Double, 8, 8},
		{ir.FP80, 16, 16},
		{ir.ArrayOf(ir.I16, 5), 10, 2},
		{st, 12, 4},
		{ir.StructOf(true, ir.I8, ir.I32), 5, 1},
		{ir.VectorOf(ir.I32, 4), 16, 16},
	}
	for _, tc := range tests {
		if got := l.Size(tc.typ); got != tc.size {
			t.Errorf("Size(%v) = %d, want %d", tc.typ, got, tc.size)
		}
		if got := l.Align(tc.typ); got != tc.align {
			t.Errorf("Align(%v) = %d, want %d", tc.typ, got, tc.align)
		}
	}

	if got := l.FieldOffset(st, 2); got != 8 {
		t.Errorf("FieldOffset(%v, 2) = %d, want 8", st, got)
	}
	if got := ir.NewLayout(4).Size(ir.Ptr); got != 4 {
		t.Errorf("32-bit pointer size = %d, want 4", got)
	}
}

func TestFloatTypes(t *testing.T) {
	for bits, want := range map[int]*ir.Type{16: ir.Half, 32: ir.F32, 64: ir.Double, 80: ir.FP80, 128: ir.FP128} {
		if got := ir.FloatType(bits); got != want {
			t.Errorf("FloatType(%d) = %v, want %v", bits, got, want)
		}
	}

	c := ir.NewFloat(ir.F32, 1.5)
	if c.Type() != ir.F32 || c.Value != 1.5 {
		t.Errorf("constant %v has type %v", c, c.Type())
	}
}

func TestPrint(t *testing.T) {
	want := `define i64 @diamond(i1 %c, i64 %a, i64 %b) {
entry:
  br i1 %c, label %left, label %right
left:
  br label %join
right:
  br label %join
join:
  %p = phi i64 [ %a, %left ], [ %b, %right ]
  ret i64 %p
}
`
	if diff := cmp.Diff(want, irtest.Diamond().String()); diff != "" {
		t.Errorf("print mismatch (-want +got):\n%s", diff)
	}
}

func TestAutoNames(t *testing.T) {
	f := ir.NewFunction("f", ir.I64, false)
	a := f.NewParam("", ir.I64)
	b := f.NewBlock("")
	x := b.NewBinary("", ir.Add, a, a)
	b.NewRet(x)
	if got := f.String(); !strings.Contains(got, "%2 = add i64 %0, %0") {
		t.Errorf("unexpected names in\n%s", got)
	}
}

func TestSameValue(t *testing.T) {
	a := ir.NewLocal("a", ir.I64)
	tests := []struct {
		x, y ir.Value
		want bool
	}{
		{a, a, true},
		{a, ir.NewLocal("a", ir.I64), false},
		{ir.NewInt(ir.I64, 3), ir.NewInt(ir.I64, 3), true},
		{ir.NewInt(ir.I64, 3), ir.NewInt(ir.I32, 3), false},
		{&ir.Undef{Typ: ir.I8}, &ir.Undef{Typ: ir.I8}, true},
		{&ir.GlobalRef{Name: "g"}, &ir.GlobalRef{Name: "g"}, true},
		{&ir.Null{}, ir.NewInt(ir.I64, 0), false},
	}
	for _, tc := range tests {
		if got := ir.SameValue(tc.x, tc.y); got != tc.want {
			t.Errorf("SameValue(%v, %v) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}
}
