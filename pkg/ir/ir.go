package ir

import (
	"fmt"
	"strings"
)

type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	UDiv
	SDiv
	URem
	SRem
	Shl
	LShr
	AShr
	And
	Or
	Xor
	FAdd
	FSub
	FMul
	FDiv
	FRem
)

var binOpNames = [...]string{
	Add: "add", Sub: "sub", Mul: "mul", UDiv: "udiv", SDiv: "sdiv", URem: "urem", SRem: "srem",
	Shl: "shl", LShr: "lshr", AShr: "ashr", And: "and", Or: "or", Xor: "xor",
	FAdd: "fadd", FSub: "fsub", FMul: "fmul", FDiv: "fdiv", FRem: "frem",
}

func (op BinOp) String() string { return opName(binOpNames[:], int(op)) }

// IsFloat reports whether the operator works on floating point operands.
func (op BinOp) IsFloat() bool { return op >= FAdd }

type UnOp int

const (
	FNeg UnOp = iota
	Freeze
)

var unOpNames = [...]string{FNeg: "fneg", Freeze: "freeze"}

func (op UnOp) String() string { return opName(unOpNames[:], int(op)) }

type CastOp int

const (
	Trunc CastOp = iota
	ZExt
	SExt
	FPTrunc
	FPExt
	FPToUI
	FPToSI
	UIToFP
	SIToFP
	PtrToInt
	IntToPtr
	BitCast
	AddrSpaceCast
)

var castOpNames = [...]string{
	Trunc: "trunc", ZExt: "zext", SExt: "sext", FPTrunc: "fptrunc", FPExt: "fpext",
	FPToUI: "fptoui", FPToSI: "fptosi", UIToFP: "uitofp", SIToFP: "sitofp",
	PtrToInt: "ptrtoint", IntToPtr: "inttoptr", BitCast: "bitcast", AddrSpaceCast: "addrspacecast",
}

func (op CastOp) String() string { return opName(castOpNames[:], int(op)) }

// Pred is a comparison predicate. Integer predicates come first, followed by
// the ordered/unordered floating point ones.
type Pred int

const (
	IntEQ Pred = iota
	IntNE
	IntUGT
	IntUGE
	IntULT
	IntULE
	IntSGT
	IntSGE
	IntSLT
	IntSLE
	FloatFalse
	FloatOEQ
	FloatOGT
	FloatOGE
	FloatOLT
	FloatOLE
	FloatONE
	FloatORD
	FloatUEQ
	FloatUGT
	FloatUGE
	FloatULT
	FloatULE
	FloatUNE
	FloatUNO
	FloatTrue
)

var predNames = [...]string{
	IntEQ: "eq", IntNE: "ne", IntUGT: "ugt", IntUGE: "uge", IntULT: "ult", IntULE: "ule",
	IntSGT: "sgt", IntSGE: "sge", IntSLT: "slt", IntSLE: "sle",
	FloatFalse: "false", FloatOEQ: "oeq", FloatOGT: "ogt", FloatOGE: "oge", FloatOLT: "olt",
	FloatOLE: "ole", FloatONE: "one", FloatORD: "ord", FloatUEQ: "ueq", FloatUGT: "ugt",
	FloatUGE: "uge", FloatULT: "ult", FloatULE: "ule", FloatUNE: "une", FloatUNO: "uno", FloatTrue: "true",
}

func (p Pred) String() string { return opName(predNames[:], int(p)) }
func (p Pred) IsFloat() bool  { return p >= FloatFalse }

// ParseIntPred maps an icmp predicate keyword to its Pred.
func ParseIntPred(s string) (Pred, bool) { return lookupName(predNames[:IntSLE+1], s, 0) }

// ParseFloatPred maps an fcmp predicate keyword to its Pred.
func ParseFloatPred(s string) (Pred, bool) { return lookupName(predNames[FloatFalse:], s, FloatFalse) }

type AtomicOp int

const (
	AtomicXchg AtomicOp = iota
	AtomicAdd
	AtomicSub
	AtomicAnd
	AtomicNand
	AtomicOr
	AtomicXor
	AtomicMax
	AtomicMin
	AtomicUMax
	AtomicUMin
	AtomicFAdd
	AtomicFSub
)

var atomicOpNames = [...]string{
	AtomicXchg: "xchg", AtomicAdd: "add", AtomicSub: "sub", AtomicAnd: "and", AtomicNand: "nand",
	AtomicOr: "or", AtomicXor: "xor", AtomicMax: "max", AtomicMin: "min", AtomicUMax: "umax",
	AtomicUMin: "umin", AtomicFAdd: "fadd", AtomicFSub: "fsub",
}

func (op AtomicOp) String() string { return opName(atomicOpNames[:], int(op)) }

func ParseAtomicOp(s string) (AtomicOp, bool) {
	p, ok := lookupName(atomicOpNames[:], s, 0)
	return AtomicOp(p), ok
}

func opName(names []string, i int) string {
	if i < 0 || i >= len(names) { return fmt.Sprintf("op(%d)", i) }
	return names[i]
}

func lookupName(names []string, s string, base Pred) (Pred, bool) {
	for i, n := range names {
		if n == s { return base + Pred(i), true }
	}
	return 0, false
}

type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindPtr
	KindVector
	KindArray
	KindStruct
	KindFunc
	KindLabel
	KindMetadata
	KindToken
)

// Type describes the shape of a value. Pointers are opaque: a pointer never
// carries its pointee type, loads and GEPs state the element type instead.
type Type struct {
	Kind     Kind
	Bits     int
	Elem     *Type
	Len      int
	Fields   []*Type
	Packed   bool
	Name     string
	Ret      *Type
	Params   []*Type
	Variadic bool
}

var (
	Void     = &Type{Kind: KindVoid}
	I1       = &Type{Kind: KindInt, Bits: 1}
	I8       = &Type{Kind: KindInt, Bits: 8}
	I16      = &Type{Kind: KindInt, Bits: 16}
	I32      = &Type{Kind: KindInt, Bits: 32}
	I64      = &Type{Kind: KindInt, Bits: 64}
	I128     = &Type{Kind: KindInt, Bits: 128}
	Half     = &Type{Kind: KindFloat, Bits: 16}
	F32      = &Type{Kind: KindFloat, Bits: 32}
	Double   = &Type{Kind: KindFloat, Bits: 64}
	FP80     = &Type{Kind: KindFloat, Bits: 80}
	FP128    = &Type{Kind: KindFloat, Bits: 128}
	Ptr      = &Type{Kind: KindPtr}
	Label    = &Type{Kind: KindLabel}
	Metadata = &Type{Kind: KindMetadata}
	Token    = &Type{Kind: KindToken}
)

func IntType(bits int) *Type {
	switch bits {
	case 1: return I1
	case 8: return I8
	case 16: return I16
	case 32: return I32
	case 64: return I64
	case 128: return I128
	}
	return &Type{Kind: KindInt, Bits: bits}
}

func FloatType(bits int) *Type {
	switch bits {
	case 16: return Half
	case 32: return F32
	case 64: return Double
	case 80: return FP80
	case 128: return FP128
	}
	return &Type{Kind: KindFloat, Bits: bits}
}

func VectorOf(elem *Type, n int) *Type { return &Type{Kind: KindVector, Elem: elem, Len: n} }
func ArrayOf(elem *Type, n int) *Type  { return &Type{Kind: KindArray, Elem: elem, Len: n} }

func StructOf(packed bool, fields ...*Type) *Type {
	return &Type{Kind: KindStruct, Fields: fields, Packed: packed}
}

func FuncOf(ret *Type, params []*Type, variadic bool) *Type {
	return &Type{Kind: KindFunc, Ret: ret, Params: params, Variadic: variadic}
}

func (t *Type) IsInt() bool   { return t != nil && t.Kind == KindInt }
func (t *Type) IsFloat() bool { return t != nil && t.Kind == KindFloat }
func (t *Type) IsPtr() bool   { return t != nil && t.Kind == KindPtr }
func (t *Type) IsVoid() bool  { return t == nil || t.Kind == KindVoid }

// Equal reports structural equality. Named structs compare by name.
func (t *Type) Equal(u *Type) bool {
	if t == u { return true }
	if t == nil || u == nil || t.Kind != u.Kind { return false }
	switch t.Kind {
	case KindInt, KindFloat:
		return t.Bits == u.Bits
	case KindVector, KindArray:
		return t.Len == u.Len && t.Elem.Equal(u.Elem)
	case KindStruct:
		if t.Name != "" || u.Name != "" { return t.Name == u.Name }
		return t.Packed == u.Packed && typesEqual(t.Fields, u.Fields)
	case KindFunc:
		return t.Variadic == u.Variadic && t.Ret.Equal(u.Ret) && typesEqual(t.Params, u.Params)
	}
	return true
}

func typesEqual(a, b []*Type) bool {
	if len(a) != len(b) { return false }
	for i := range a {
		if !a[i].Equal(b[i]) { return false }
	}
	return true
}

func (t *Type) String() string {
	if t == nil { return "void" }
	switch t.Kind {
	case KindVoid: return "void"
	case KindInt: return fmt.Sprintf("i%d", t.Bits)
	case KindFloat:
		switch t.Bits {
		case 16: return "half"
		case 32: return "float"
		case 64: return "double"
		case 80: return "x86_fp80"
		case 128: return "fp128"
		}
		return fmt.Sprintf("f%d", t.Bits)
	case KindPtr: return "ptr"
	case KindVector: return fmt.Sprintf("<%d x %s>", t.Len, t.Elem)
	case KindArray: return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
	case KindStruct:
		if t.Name != "" { return "%" + t.Name }
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.String()
		}
		if t.Packed { return "<{ " + strings.Join(parts, ", ") + " }>" }
		return "{ " + strings.Join(parts, ", ") + " }"
	case KindFunc:
		parts := make([]string, 0, len(t.Params)+1)
		for _, p := range t.Params {
			parts = append(parts, p.String())
		}
		if t.Variadic { parts = append(parts, "...") }
		return fmt.Sprintf("%s (%s)", t.Ret, strings.Join(parts, ", "))
	case KindLabel: return "label"
	case KindMetadata: return "metadata"
	case KindToken: return "token"
	}
	return "?"
}
