// Package llimport reads LLVM assembly and builds lltree functions from it.
package llimport

import (
	"strings"

	"github.com/llir/llvm/asm"
	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/xplshn/lltree/pkg/ir"
)

var ErrUnsupported = errors.New("unsupported construct")

// Module holds the defined functions of an LLVM module. Decls names the
// functions that are only declared.
type Module struct {
	Name  string
	Funcs []*ir.Function
	Decls []string
}

// Func returns the function called name, or nil.
func (m *Module) Func(name string) *ir.Function {
	for _, f := range m.Funcs {
		if f.Name == name { return f }
	}
	return nil
}

func ParseFile(path string) (*Module, error) {
	m, err := asm.ParseFile(path)
	if err != nil { return nil, errors.Wrap(err, "parse %s", path) }
	return ImportModule(m)
}

// ParseString parses src as the contents of a file called name.
func ParseString(name, src string) (*Module, error) {
	m, err := asm.ParseString(name, src)
	if err != nil { return nil, errors.Wrap(err, "parse %s", name) }
	return ImportModule(m)
}

func ImportModule(m *llir.Module) (*Module, error) {
	out := &Module{Name: m.SourceFilename}
	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			out.Decls = append(out.Decls, f.Name())
			continue
		}
		fn, err := ImportFunc(f)
		if err != nil { return nil, err }
		out.Funcs = append(out.Funcs, fn)
	}

	tlog.V("import").Printw("module", "name", out.Name, "funcs", len(out.Funcs), "decls", len(out.Decls))

	return out, nil
}

type importer struct {
	fn     *ir.Function
	types  typeCache
	locals map[value.Value]*ir.Local
	blocks map[*llir.Block]*ir.Block
}

// ImportFunc translates one function definition. Values are created for
// every instruction before any is translated, so operands may refer to
// values defined later in the function.
func ImportFunc(f *llir.Func) (*ir.Function, error) {
	if len(f.Blocks) == 0 { return nil, errors.Wrap(ir.ErrMalformed, "@%s is a declaration", f.Name()) }
	if err := f.AssignIDs(); err != nil { return nil, errors.Wrap(err, "@%s", f.Name()) }

	im := &importer{types: typeCache{}, locals: map[value.Value]*ir.Local{}, blocks: map[*llir.Block]*ir.Block{}}

	ret, err := im.types.conv(f.Sig.RetType)
	if err != nil { return nil, errors.Wrap(err, "@%s: return type", f.Name()) }
	im.fn = ir.NewFunction(f.Name(), ret, f.Sig.Variadic)

	for _, p := range f.Params {
		t, err := im.types.conv(p.Typ)
		if err != nil { return nil, errors.Wrap(err, "@%s: param %s", f.Name(), p.Name()) }
		im.locals[p] = im.fn.NewParam(p.Name(), t)
	}

	for _, b := range f.Blocks {
		im.blocks[b] = im.fn.NewBlock(b.Name())
		for _, inst := range b.Insts {
			v, ok := inst.(value.Named)
			if !ok { continue }
			if _, void := v.Type().(*types.VoidType); void { continue }
			t, err := im.types.conv(v.Type())
			if err != nil { return nil, errors.Wrap(err, "@%s: %%%s", f.Name(), v.Name()) }
			im.locals[v] = ir.NewLocal(v.Name(), t)
		}
	}

	for _, b := range f.Blocks {
		ib := im.blocks[b]
		for _, inst := range b.Insts {
			if skip(inst) { continue }
			x, err := im.inst(inst)
			if err != nil { return nil, errors.Wrap(err, "@%s: block %s: %s", f.Name(), b.Name(), inst.LLString()) }
			ib.Append(x)
			setLocation(x, inst)
		}
		if b.Term == nil { return nil, errors.Wrap(ir.ErrBadTerminator, "@%s: block %s", f.Name(), b.Name()) }
		t, err := im.term(b.Term)
		if err != nil { return nil, errors.Wrap(err, "@%s: block %s: %s", f.Name(), b.Name(), b.Term.LLString()) }
		ib.Append(t)
		setLocation(t, b.Term)
	}

	return im.fn, nil
}

// skip drops debug intrinsics. They carry no value the tree can use.
func skip(inst llir.Instruction) bool {
	c, ok := inst.(*llir.InstCall)
	if !ok { return false }
	callee, ok := c.Callee.(*llir.Func)
	return ok && strings.HasPrefix(callee.Name(), "llvm.dbg.")
}

func (im *importer) block(v any) (*ir.Block, error) {
	b, ok := v.(*llir.Block)
	if !ok { return nil, errors.Wrap(ir.ErrMalformed, "%v is not a block", v) }
	ib, ok := im.blocks[b]
	if !ok { return nil, errors.Wrap(ir.ErrBadSuccessor, "block %s", b.Name()) }
	return ib, nil
}

func (im *importer) value(v value.Value) (ir.Value, error) {
	if v == nil { return nil, nil }
	if l, ok := im.locals[v]; ok { return l, nil }

	switch v := v.(type) {
	case *llir.Param, llir.Instruction:
		return nil, errors.Wrap(ir.ErrNoSlot, "%s is not defined in this function", v.Ident())
	case *llir.Func:
		sig, err := im.types.conv(v.Sig)
		if err != nil { return nil, err }
		return &ir.GlobalRef{Name: v.Name(), Typ: sig, Func: true}, nil
	case *llir.Global:
		t, err := im.types.conv(v.ContentType)
		if err != nil { return nil, err }
		return &ir.GlobalRef{Name: v.Name(), Typ: t}, nil
	case *llir.Block:
		return nil, errors.Wrap(ir.ErrMalformed, "label %s used as a value", v.Ident())
	}

	c, ok := v.(constant.Constant)
	if !ok { return nil, errors.Wrap(ErrUnsupported, "value %s", v.Ident()) }

	t, err := im.types.conv(c.Type())
	if err != nil { return nil, err }

	switch c := c.(type) {
	case *constant.Int:
		if !c.X.IsInt64() { return &ir.ConstExpr{Text: c.Ident(), Typ: t}, nil }
		return ir.NewInt(t, c.X.Int64()), nil
	case *constant.Float:
		f, _ := c.X.Float64()
		return ir.NewFloat(t, f), nil
	case *constant.Null:
		return &ir.Null{Typ: t}, nil
	case *constant.Undef:
		return &ir.Undef{Typ: t}, nil
	case *constant.ZeroInitializer:
		return &ir.Zero{Typ: t}, nil
	}
	if c.Ident() == "poison" { return &ir.Undef{Typ: t, Poison: true}, nil }
	return &ir.ConstExpr{Text: c.Ident(), Typ: t}, nil
}

func (im *importer) values(vs ...value.Value) ([]ir.Value, error) {
	out := make([]ir.Value, len(vs))
	for i, v := range vs {
		x, err := im.value(v)
		if err != nil { return nil, errors.Wrap(err, "operand %d", i) }
		out[i] = x
	}
	return out, nil
}

type attached interface {
	MDAttachments() []*metadata.Attachment
}

func setLocation(x ir.Instruction, from any) {
	a, ok := from.(attached)
	if !ok { return }
	for _, md := range a.MDAttachments() {
		if md.Name != "dbg" { continue }
		l, ok := md.Node.(*metadata.DILocation)
		if !ok { continue }
		x.(interface{ SetLocation(ir.Location) }).SetLocation(ir.Location{File: scopeFile(l.Scope), Line: int(l.Line), Col: int(l.Column)})
		return
	}
}

func scopeFile(s metadata.Field) string {
	var f *metadata.DIFile
	switch s := s.(type) {
	case *metadata.DISubprogram:
		f = s.File
	case *metadata.DILexicalBlock:
		f = s.File
	case *metadata.DILexicalBlockFile:
		f = s.File
	}
	if f == nil { return "" }
	return f.Filename
}
