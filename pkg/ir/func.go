package ir

import (
	"strconv"

	"github.com/nikandfor/errors"
)

type Function struct {
	Name     string
	Params   []*Local
	Ret      *Type
	Variadic bool
	Blocks   []*Block
	nextID   int
}

// Block is a basic block. Phis come first, the terminator last.
type Block struct {
	Name   string
	Index  int
	Instrs []Instruction
	parent *Function
}

func NewFunction(name string, ret *Type, variadic bool) *Function {
	return &Function{Name: name, Ret: ret, Variadic: variadic}
}

func (f *Function) NewParam(name string, typ *Type) *Local {
	if name == "" { name = f.nextName() }
	l := &Local{Name: name, Typ: typ, param: len(f.Params)}
	f.Params = append(f.Params, l)
	return l
}

func (f *Function) NewBlock(name string) *Block {
	if name == "" { name = f.nextName() }
	b := &Block{Name: name, Index: len(f.Blocks), parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

func (f *Function) nextName() string {
	f.nextID++
	return strconv.Itoa(f.nextID - 1)
}

func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 { return nil }
	return f.Blocks[0]
}

// Sig is the function's type.
func (f *Function) Sig() *Type {
	params := make([]*Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Typ
	}
	return FuncOf(f.Ret, params, f.Variadic)
}

func (b *Block) Func() *Function { return b.parent }

// Append adds inst at the end of b and binds its result to it.
func (b *Block) Append(inst Instruction) Instruction {
	inst.base().parent = b
	if d := inst.Def(); d != nil {
		d.def = inst
		d.param = -1
	}
	b.Instrs = append(b.Instrs, inst)
	return inst
}

// Term returns the block terminator, nil while the block is open.
func (b *Block) Term() Terminator {
	if len(b.Instrs) == 0 { return nil }
	t, _ := b.Instrs[len(b.Instrs)-1].(Terminator)
	return t
}

// Phis returns the phis at the head of the block.
func (b *Block) Phis() []*Phi {
	var out []*Phi
	for _, inst := range b.Instrs {
		p, ok := inst.(*Phi)
		if !ok { break }
		out = append(out, p)
	}
	return out
}

// Succs returns the distinct successors of b in first-edge order.
func (b *Block) Succs() []*Block {
	t := b.Term()
	if t == nil { return nil }
	return uniqueBlocks(t.Succs())
}

func uniqueBlocks(bs []*Block) []*Block {
	out := make([]*Block, 0, len(bs))
	for _, s := range bs {
		dup := false
		for _, o := range out {
			if o == s { dup = true; break }
		}
		if !dup { out = append(out, s) }
	}
	return out
}

// Preds returns the distinct predecessors of every block, indexed by block
// index and ordered by predecessor index.
func (f *Function) Preds() [][]*Block {
	preds := make([][]*Block, len(f.Blocks))
	for _, b := range f.Blocks {
		for _, s := range b.Succs() {
			if !f.Owns(s) { continue }
			preds[s.Index] = append(preds[s.Index], b)
		}
	}
	return preds
}

// Owns reports whether b is one of f's blocks.
func (f *Function) Owns(b *Block) bool {
	return b != nil && b.parent == f && b.Index >= 0 && b.Index < len(f.Blocks) && f.Blocks[b.Index] == b
}

// Verify checks the structural rules every consumer relies on.
func (f *Function) Verify() error {
	if len(f.Blocks) == 0 { return errors.Wrap(ErrMalformed, "function @%s has no blocks", f.Name) }

	for _, p := range f.Params {
		if p.def != nil { return errors.Wrap(ErrDuplicateDef, "@%s: param %v", f.Name, p) }
	}

	for i, b := range f.Blocks {
		if b.Index != i || b.parent != f { return errors.Wrap(ErrMalformed, "@%s: block %s: index %d at position %d", f.Name, b.Name, b.Index, i) }
		if err := f.verifyBlock(b); err != nil { return errors.Wrap(err, "@%s: block %s", f.Name, b.Name) }
	}

	preds := f.Preds()
	for i, ps := range preds {
		if i > 0 && len(ps) == 0 { return errors.Wrap(ErrUnreachableBlock, "@%s: block %s", f.Name, f.Blocks[i].Name) }
	}

	return nil
}

func (f *Function) verifyBlock(b *Block) error {
	if b.Term() == nil { return errors.Wrap(ErrBadTerminator, "missing terminator") }

	last := len(b.Instrs) - 1
	phis := true
	for i, inst := range b.Instrs {
		if inst.Block() != b { return errors.Wrap(ErrMalformed, "instruction %d (%v) belongs to another block", i, inst) }
		if _, ok := inst.(Terminator); ok && i != last { return errors.Wrap(ErrBadTerminator, "terminator at %d (%v) before end of block", i, inst) }
		if _, ok := inst.(*Phi); ok {
			if !phis { return errors.Wrap(ErrPhiPlacement, "instruction %d (%v)", i, inst) }
		} else {
			phis = false
		}
		if d := inst.Def(); d != nil && d.def != inst { return errors.Wrap(ErrDuplicateDef, "instruction %d (%v)", i, inst) }
	}

	for _, s := range b.Term().Succs() {
		if !f.Owns(s) { return errors.Wrap(ErrBadSuccessor, "%v", b.Term()) }
	}

	return nil
}
