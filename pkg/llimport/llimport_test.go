package llimport_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
	"github.com/nikandfor/errors"

	"github.com/xplshn/lltree/pkg/convert"
	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/llimport"
	"github.com/xplshn/lltree/pkg/tree"
)

const loopSrc = `
define i64 @sum(i64 %n) {
entry:
  br label %head

head:
  %i = phi i64 [ 0, %entry ], [ %j, %body ]
  %acc = phi i64 [ 0, %entry ], [ %acc2, %body ]
  %c = icmp slt i64 %i, %n
  br i1 %c, label %body, label %exit

body:
  %acc2 = add i64 %acc, %i
  %j = add i64 %i, 1
  br label %head

exit:
  ret i64 %acc
}

declare i32 @puts(i8*)
`

func parse(t *testing.T, src string) *llimport.Module {
	t.Helper()
	m, err := llimport.ParseString("test.ll", src)
	if err != nil { t.Fatalf("ParseString: %v", err) }
	return m
}

func blockNames(fn *ir.Function) []string {
	var out []string
	for _, b := range fn.Blocks {
		out = append(out, b.Name)
	}
	return out
}

func TestImportLoop(t *testing.T) {
	m := parse(t, loopSrc)
	if diff := cmp.Diff([]string{"puts"}, m.Decls); diff != "" { t.Errorf("decls (-want +got):\n%s", diff) }

	fn := m.Func("sum")
	if fn == nil { t.Fatalf("no @sum in %v", m.Funcs) }
	if err := fn.Verify(); err != nil { t.Fatalf("Verify: %v", err) }

	if diff := cmp.Diff([]string{"entry", "head", "body", "exit"}, blockNames(fn)); diff != "" { t.Errorf("blocks (-want +got):\n%s", diff) }
	if len(fn.Params) != 1 || fn.Params[0].Name != "n" || !fn.Params[0].Typ.Equal(ir.I64) { t.Errorf("params %v", fn.Params) }

	head := fn.Blocks[1]
	phis := head.Phis()
	if len(phis) != 2 { t.Fatalf("head has %d phis", len(phis)) }
	i := phis[0]
	if i.Incoming[0].Pred != fn.Blocks[0] || i.Incoming[1].Pred != fn.Blocks[2] { t.Errorf("phi preds %v", i) }
	j := fn.Blocks[2].Instrs[1].Def()
	if i.Incoming[1].Value != j { t.Errorf("phi reads %v, want %v", i.Incoming[1].Value, j) }

	cmpInst, ok := head.Instrs[2].(*ir.Compare)
	if !ok || cmpInst.Pred != ir.IntSLT || cmpInst.Y != fn.Params[0] { t.Errorf("compare %v", head.Instrs[2]) }

	if _, err := convert.New(nil, tree.Factory{}).Convert(fn); err != nil { t.Errorf("Convert: %v", err) }
}

func TestImportMemory(t *testing.T) {
	m := parse(t, `
%pair = type { i8, [4 x i32] }

define i32 @get(i32 %v, i64 %i) {
entry:
  %p = alloca %pair
  %q = getelementptr %pair, %pair* %p, i64 0, i32 1, i64 %i
  store i32 %v, i32* %q
  %r = load i32, i32* %q
  ret i32 %r
}
`)
	fn := m.Func("get")
	if fn == nil { t.Fatal("no @get") }

	a, ok := fn.Blocks[0].Instrs[0].(*ir.Alloca)
	if !ok { t.Fatalf("first instruction %v", fn.Blocks[0].Instrs[0]) }
	if a.Elem.Kind != ir.KindStruct || a.Elem.Name != "pair" || len(a.Elem.Fields) != 2 { t.Errorf("alloca type %v", a.Elem) }

	out, err := convert.New(nil, tree.Factory{}).Convert(fn)
	if err != nil { t.Fatal(err) }

	var off *tree.Offset
	for _, s := range out.Units[0].Stmts {
		if l, ok := s.(*tree.Located); ok { s = l.Stmt }
		if w, ok := s.(*tree.Write); ok {
			if o, ok := w.Value.(*tree.Offset); ok { off = o }
		}
	}
	if off == nil { t.Fatalf("no offset in\n%s", tree.DumpString(out)) }
	if off.Offset != 4 || len(off.Indices) != 1 || off.Indices[0].Stride != 4 { t.Errorf("offset %s", tree.Format(off)) }
}

func TestImportSwitch(t *testing.T) {
	m := parse(t, `
declare void @side()

define i32 @pick(i32 %k) {
entry:
  switch i32 %k, label %d [
    i32 1, label %t
    i32 2, label %t
  ]

t:
  %p = phi i32 [ 10, %entry ], [ 10, %entry ]
  ret i32 %p

d:
  call void @side()
  ret i32 0
}
`)
	fn := m.Func("pick")
	if fn == nil { t.Fatal("no @pick") }

	sw, ok := fn.Blocks[0].Term().(*ir.Switch)
	if !ok { t.Fatalf("terminator %v", fn.Blocks[0].Term()) }
	if len(sw.Cases) != 2 || sw.Cases[0].Target != sw.Cases[1].Target || sw.Default != fn.Blocks[2] { t.Errorf("switch %v", sw) }

	call, ok := fn.Blocks[2].Instrs[0].(*ir.Call)
	if !ok || call.Dst != nil { t.Errorf("void call %v", fn.Blocks[2].Instrs[0]) }
	if g, ok := call.Callee.(*ir.GlobalRef); !ok || g.Name != "side" || !g.Func { t.Errorf("callee %v", call.Callee) }

	if _, err := convert.New(nil, tree.Factory{}).Convert(fn); err != nil { t.Errorf("Convert: %v", err) }
}

func TestImportLocation(t *testing.T) {
	m := llir.NewModule()
	f := m.NewFunc("g", types.I64, llir.NewParam("a", types.I64))
	b := f.NewBlock("entry")
	x := b.NewAdd(f.Params[0], constant.NewInt(types.I64, 1))
	x.SetName("x")
	x.Metadata = append(x.Metadata, &metadata.Attachment{
		Name: "dbg",
		Node: &metadata.DILocation{Line: 7, Column: 3, Scope: &metadata.DISubprogram{File: &metadata.DIFile{Filename: "g.c"}}},
	})
	b.NewRet(x)

	fn, err := llimport.ImportFunc(f)
	if err != nil { t.Fatal(err) }
	if got, want := fn.Blocks[0].Instrs[0].Location(), (ir.Location{File: "g.c", Line: 7, Col: 3}); got != want { t.Errorf("location %v, want %v", got, want) }
	if !fn.Blocks[0].Instrs[1].Location().IsZero() { t.Errorf("ret has a location") }
}

func TestImportUnsupported(t *testing.T) {
	m := llir.NewModule()
	f := m.NewFunc("f", types.Void)
	f.NewBlock("entry").NewResume(constant.NewUndef(types.I32))

	_, err := llimport.ImportFunc(f)
	if !errors.Is(err, llimport.ErrUnsupported) { t.Errorf("got %v", err) }
}

func TestParseError(t *testing.T) {
	if _, err := llimport.ParseString("bad.ll", "define i32 @f( {"); err == nil { t.Errorf("expected parse error") }
}
