package ir

import (
	"math"
	"strconv"
)

// Value is anything an instruction can read: a Local or a constant.
type Value interface {
	isValue()
	Type() *Type
	String() string
}

// Constant is a Value that needs no slot.
type Constant interface {
	Value
	isConstant()
}

// Local is an SSA value. It is either a function parameter or the result of
// exactly one instruction.
type Local struct {
	Name  string
	Typ   *Type
	param int
	def   Instruction
}

func NewLocal(name string, typ *Type) *Local { return &Local{Name: name, Typ: typ, param: -1} }

func (l *Local) isValue()          {}
func (l *Local) Type() *Type       { return l.Typ }
func (l *Local) String() string    { return "%" + l.Name }
func (l *Local) IsParam() bool     { return l.param >= 0 }
func (l *Local) ParamIndex() int   { return l.param }
func (l *Local) Def() Instruction  { return l.def }

type Int struct {
	Typ   *Type
	Value int64
}

type Float struct {
	Typ   *Type
	Value float64
}

type Null struct{ Typ *Type }

type Undef struct {
	Typ    *Type
	Poison bool
}

// Zero is zeroinitializer of any type.
type Zero struct{ Typ *Type }

// GlobalRef is the address of a global variable or function.
type GlobalRef struct {
	Name string
	Typ  *Type
	Func bool
}

// ConstExpr is a constant the model keeps in textual form only.
type ConstExpr struct {
	Text string
	Typ  *Type
}

func NewInt(t *Type, v int64) *Int       { return &Int{Typ: t, Value: v} }
func NewFloat(t *Type, v float64) *Float { return &Float{Typ: t, Value: v} }
func NewBool(v bool) *Int {
	if v { return &Int{Typ: I1, Value: 1} }
	return &Int{Typ: I1}
}

func (*Int) isValue()       {}
func (*Float) isValue()     {}
func (*Null) isValue()      {}
func (*Undef) isValue()     {}
func (*Zero) isValue()      {}
func (*GlobalRef) isValue() {}
func (*ConstExpr) isValue() {}

func (*Int) isConstant()       {}
func (*Float) isConstant()     {}
func (*Null) isConstant()      {}
func (*Undef) isConstant()     {}
func (*Zero) isConstant()      {}
func (*GlobalRef) isConstant() {}
func (*ConstExpr) isConstant() {}

func (c *Int) Type() *Type {
	if c.Typ == nil { return I64 }
	return c.Typ
}
func (c *Float) Type() *Type {
	if c.Typ == nil { return Double }
	return c.Typ
}
func (c *Null) Type() *Type      { return Ptr }
func (c *Undef) Type() *Type     { return c.Typ }
func (c *Zero) Type() *Type      { return c.Typ }
func (c *GlobalRef) Type() *Type { return Ptr }
func (c *ConstExpr) Type() *Type { return c.Typ }

func (c *Int) String() string {
	if c.Typ == I1 {
		if c.Value != 0 { return "true" }
		return "false"
	}
	return strconv.FormatInt(c.Value, 10)
}

func (c *Float) String() string {
	switch {
	case math.IsNaN(c.Value): return "nan"
	case math.IsInf(c.Value, 1): return "inf"
	case math.IsInf(c.Value, -1): return "-inf"
	}
	return strconv.FormatFloat(c.Value, 'g', -1, 64)
}

func (c *Null) String() string { return "null" }

func (c *Undef) String() string {
	if c.Poison { return "poison" }
	return "undef"
}

func (c *Zero) String() string      { return "zeroinitializer" }
func (c *GlobalRef) String() string { return "@" + c.Name }
func (c *ConstExpr) String() string { return c.Text }

// SameValue reports whether a and b denote the same value. Locals compare by
// identity, constants by type and contents.
func SameValue(a, b Value) bool {
	if a == b { return true }
	switch x := a.(type) {
	case *Int:
		y, ok := b.(*Int)
		return ok && x.Value == y.Value && x.Type().Equal(y.Type())
	case *Float:
		y, ok := b.(*Float)
		if !ok || !x.Type().Equal(y.Type()) { return false }
		return x.Value == y.Value || math.IsNaN(x.Value) && math.IsNaN(y.Value)
	case *Null:
		_, ok := b.(*Null)
		return ok
	case *Undef:
		y, ok := b.(*Undef)
		return ok && x.Poison == y.Poison && x.Typ.Equal(y.Typ)
	case *Zero:
		y, ok := b.(*Zero)
		return ok && x.Typ.Equal(y.Typ)
	case *GlobalRef:
		y, ok := b.(*GlobalRef)
		return ok && x.Name == y.Name
	case *ConstExpr:
		y, ok := b.(*ConstExpr)
		return ok && x.Text == y.Text && x.Typ.Equal(y.Typ)
	}
	return false
}
