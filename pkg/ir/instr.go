package ir

import "fmt"

// Location is a source position attached to an instruction.
type Location struct {
	File      string
	Line, Col int
}

func (l Location) IsZero() bool { return l.Line == 0 && l.Col == 0 && l.File == "" }

func (l Location) String() string {
	if l.File == "" { return fmt.Sprintf("%d:%d", l.Line, l.Col) }
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Instruction is the closed set of block instructions, terminators included.
// Operands lists every value the instruction reads and Def the value it
// writes, nil when it writes none.
type Instruction interface {
	base() *instr
	Def() *Local
	Operands() []Value
	Block() *Block
	Location() Location
	String() string
}

// Terminator ends a block and names its successors in edge order.
type Terminator interface {
	Instruction
	Succs() []*Block
}

type instr struct {
	parent *Block
	loc    Location
}

func (i *instr) base() *instr              { return i }
func (i *instr) Block() *Block             { return i.parent }
func (i *instr) Location() Location        { return i.loc }
func (i *instr) SetLocation(loc Location)  { i.loc = loc }

func values(vs ...Value) []Value {
	out := vs[:0]
	for _, v := range vs {
		if v != nil { out = append(out, v) }
	}
	return out
}

type Binary struct {
	instr
	Dst  *Local
	Op   BinOp
	X, Y Value
}

type Unary struct {
	instr
	Dst *Local
	Op  UnOp
	X   Value
}

// Cast converts X to Dst.Typ.
type Cast struct {
	instr
	Dst *Local
	Op  CastOp
	X   Value
}

type Compare struct {
	instr
	Dst  *Local
	Pred Pred
	X, Y Value
}

type Select struct {
	instr
	Dst        *Local
	Cond, X, Y Value
}

// Alloca reserves Count elements of Elem in the frame. A nil Count means one.
type Alloca struct {
	instr
	Dst   *Local
	Elem  *Type
	Count Value
}

type Load struct {
	instr
	Dst      *Local
	Src      Value
	Volatile bool
}

type Store struct {
	instr
	Val, Dst Value
	Volatile bool
}

// GetElementPtr computes an address from Src. The first index steps over
// whole Elem values, the rest select into aggregates.
type GetElementPtr struct {
	instr
	Dst     *Local
	Elem    *Type
	Src     Value
	Indices []Value
}

// Call has a nil Dst when the callee returns void.
type Call struct {
	instr
	Dst    *Local
	Callee Value
	Args   []Value
	Sig    *Type
}

type ExtractValue struct {
	instr
	Dst     *Local
	Agg     Value
	Indices []int
}

type InsertValue struct {
	instr
	Dst       *Local
	Agg, Elem Value
	Indices   []int
}

type ExtractElement struct {
	instr
	Dst        *Local
	Vec, Index Value
}

type InsertElement struct {
	instr
	Dst              *Local
	Vec, Elem, Index Value
}

type ShuffleVector struct {
	instr
	Dst        *Local
	X, Y, Mask Value
}

type AtomicRMW struct {
	instr
	Dst      *Local
	Op       AtomicOp
	Ptr, Val Value
}

type CmpXchg struct {
	instr
	Dst           *Local
	Ptr, Cmp, New Value
}

type Fence struct{ instr }

type VAArg struct {
	instr
	Dst  *Local
	List Value
}

// Incoming is one phi entry: Value flows in when control arrives from Pred.
type Incoming struct {
	Value Value
	Pred  *Block
}

// Phi selects a value by predecessor. Its incoming values are read on the
// predecessor edges, not in the phi's own block.
type Phi struct {
	instr
	Dst      *Local
	Incoming []Incoming
}

func (p *Phi) AddIncoming(v Value, pred *Block) { p.Incoming = append(p.Incoming, Incoming{v, pred}) }

type Ret struct {
	instr
	X Value
}

type Br struct {
	instr
	Target *Block
}

type CondBr struct {
	instr
	Cond        Value
	True, False *Block
}

type Case struct {
	Value  Constant
	Target *Block
}

type Switch struct {
	instr
	X       Value
	Default *Block
	Cases   []Case
}

type IndirectBr struct {
	instr
	Addr    Value
	Targets []*Block
}

type Unreachable struct{ instr }

func (i *Binary) Def() *Local         { return i.Dst }
func (i *Unary) Def() *Local          { return i.Dst }
func (i *Cast) Def() *Local           { return i.Dst }
func (i *Compare) Def() *Local        { return i.Dst }
func (i *Select) Def() *Local         { return i.Dst }
func (i *Alloca) Def() *Local         { return i.Dst }
func (i *Load) Def() *Local           { return i.Dst }
func (i *Store) Def() *Local          { return nil }
func (i *GetElementPtr) Def() *Local  { return i.Dst }
func (i *Call) Def() *Local           { return i.Dst }
func (i *ExtractValue) Def() *Local   { return i.Dst }
func (i *InsertValue) Def() *Local    { return i.Dst }
func (i *ExtractElement) Def() *Local { return i.Dst }
func (i *InsertElement) Def() *Local  { return i.Dst }
func (i *ShuffleVector) Def() *Local  { return i.Dst }
func (i *AtomicRMW) Def() *Local      { return i.Dst }
func (i *CmpXchg) Def() *Local        { return i.Dst }
func (i *Fence) Def() *Local          { return nil }
func (i *VAArg) Def() *Local          { return i.Dst }
func (i *Phi) Def() *Local            { return i.Dst }
func (i *Ret) Def() *Local            { return nil }
func (i *Br) Def() *Local             { return nil }
func (i *CondBr) Def() *Local         { return nil }
func (i *Switch) Def() *Local         { return nil }
func (i *IndirectBr) Def() *Local     { return nil }
func (i *Unreachable) Def() *Local    { return nil }

func (i *Binary) Operands() []Value         { return values(i.X, i.Y) }
func (i *Unary) Operands() []Value          { return values(i.X) }
func (i *Cast) Operands() []Value           { return values(i.X) }
func (i *Compare) Operands() []Value        { return values(i.X, i.Y) }
func (i *Select) Operands() []Value         { return values(i.Cond, i.X, i.Y) }
func (i *Alloca) Operands() []Value         { return values(i.Count) }
func (i *Load) Operands() []Value           { return values(i.Src) }
func (i *Store) Operands() []Value          { return values(i.Val, i.Dst) }
func (i *ExtractValue) Operands() []Value   { return values(i.Agg) }
func (i *InsertValue) Operands() []Value    { return values(i.Agg, i.Elem) }
func (i *ExtractElement) Operands() []Value { return values(i.Vec, i.Index) }
func (i *InsertElement) Operands() []Value  { return values(i.Vec, i.Elem, i.Index) }
func (i *ShuffleVector) Operands() []Value  { return values(i.X, i.Y, i.Mask) }
func (i *AtomicRMW) Operands() []Value      { return values(i.Ptr, i.Val) }
func (i *CmpXchg) Operands() []Value        { return values(i.Ptr, i.Cmp, i.New) }
func (i *Fence) Operands() []Value          { return nil }
func (i *VAArg) Operands() []Value          { return values(i.List) }
func (i *Ret) Operands() []Value            { return values(i.X) }
func (i *Br) Operands() []Value             { return nil }
func (i *CondBr) Operands() []Value         { return values(i.Cond) }
func (i *Switch) Operands() []Value         { return values(i.X) }
func (i *IndirectBr) Operands() []Value     { return values(i.Addr) }
func (i *Unreachable) Operands() []Value    { return nil }

func (i *GetElementPtr) Operands() []Value {
	return values(append([]Value{i.Src}, i.Indices...)...)
}

func (i *Call) Operands() []Value {
	return values(append([]Value{i.Callee}, i.Args...)...)
}

func (i *Phi) Operands() []Value {
	out := make([]Value, 0, len(i.Incoming))
	for _, in := range i.Incoming {
		out = append(out, in.Value)
	}
	return values(out...)
}

func (i *Ret) Succs() []*Block         { return nil }
func (i *Br) Succs() []*Block          { return []*Block{i.Target} }
func (i *CondBr) Succs() []*Block      { return []*Block{i.True, i.False} }
func (i *Unreachable) Succs() []*Block { return nil }

// Succs lists the default target first, then one entry per case.
func (i *Switch) Succs() []*Block {
	out := make([]*Block, 0, len(i.Cases)+1)
	out = append(out, i.Default)
	for _, c := range i.Cases {
		out = append(out, c.Target)
	}
	return out
}

func (i *IndirectBr) Succs() []*Block { return append([]*Block(nil), i.Targets...) }

// IsValueProducing reports whether inst writes a Local.
func IsValueProducing(inst Instruction) bool { return inst.Def() != nil }
