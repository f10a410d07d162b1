package tree_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/lltree/pkg/convert"
	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/ir/irtest"
	"github.com/xplshn/lltree/pkg/lower"
	"github.com/xplshn/lltree/pkg/tree"
)

func TestDumpDiamond(t *testing.T) {
	fn, err := convert.New(nil, tree.Factory{}).Convert(irtest.Diamond())
	if err != nil { t.Fatal(err) }

	want := `function @diamond slots=4 params=[0 1 2]
unit 0 entry
  (if (read %0 i1) (jump 1 (phis)) (jump 2 (phis)))
  exit-invalidate [0]
unit 1 left
  entry-invalidate [2]
  (jump 3 (phis (%3 (read %1 i64))))
unit 2 right
  entry-invalidate [1]
  (jump 3 (phis (%3 (read %2 i64))))
unit 3 join
  entry-invalidate [1 2]
  (return (read %3 i64))
  exit-invalidate [3]
`
	if diff := cmp.Diff(want, tree.DumpString(fn)); diff != "" { t.Errorf("dump (-want +got):\n%s", diff) }
}

func TestFormat(t *testing.T) {
	f := tree.Factory{}
	read := func(s int) lower.Expr { return f.ReadSlot(s, ir.I64) }

	for _, tc := range []struct {
		node any
		want string
	}{
		{f.WriteSlot(1, ir.I64, f.Binary(ir.Add, ir.I64, read(0), f.Const(ir.NewInt(ir.I64, 1)))), "(write %1 (add i64 (read %0 i64) (const i64 1)))"},
		{f.Invalidate([]int{0, 4}), "(invalidate %0 %4)"},
		{f.Compare(ir.IntSLT, ir.I64, read(0), read(1)), "(cmp slt i64 (read %0 i64) (read %1 i64))"},
		{f.Offset(read(2), 0, nil), "(read %2 i64)"},
		{f.Offset(read(2), 4, []lower.Scaled{{Index: read(1), Type: ir.I64, Stride: 4}}), "(offset (read %2 i64) 4 (* (read %1 i64) 4))"},
		{f.Store(ir.I32, read(3), read(0), true), "(store-volatile i32 (read %3 i64) (read %0 i64))"},
		{f.Locate(f.Eval(f.Call(ir.FuncOf(ir.Void, nil, false), f.Global(&ir.GlobalRef{Name: "g", Func: true}), nil)), ir.Location{File: "a.c", Line: 2, Col: 5}), "(eval (call (global @g))) ; a.c:2:5"},
		{f.Return(nil), "(return)"},
		{f.Switch(read(0), ir.I64, []lower.Expr{f.Const(ir.NewInt(ir.I64, 7))}, []int{2, 1}, [][]lower.Assign{nil, {{Slot: 5, Value: read(0)}}}), "(switch (read %0 i64) (default 2 (phis)) (case (const i64 7) 1 (phis (%5 (read %0 i64)))))"},
		{f.Unreachable(), "(unreachable)"},
	} {
		if got := tree.Format(tc.node); got != tc.want { t.Errorf("got  %s\nwant %s", got, tc.want) }
	}
}

func TestFingerprint(t *testing.T) {
	build := func(fn *ir.Function) *lower.Function {
		t.Helper()
		out, err := convert.New(nil, tree.Factory{}).Convert(fn)
		if err != nil { t.Fatal(err) }
		return out
	}

	a, b := build(irtest.Loop()), build(irtest.Loop())
	if tree.Fingerprint(a) != tree.Fingerprint(b) { t.Errorf("equal functions hash differently") }
	if tree.Fingerprint(a) == tree.Fingerprint(build(irtest.Swap())) { t.Errorf("different functions hash equal") }
}
