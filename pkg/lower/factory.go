package lower

import "github.com/xplshn/lltree/pkg/ir"

// Expr, Stmt and Control are opaque to this package. A Factory creates them
// and only the Factory's interpreter reads them.
type (
	Expr    any
	Stmt    any
	Control any
)

// Assign is one phi write performed when an edge is taken.
type Assign struct {
	Slot  int
	Value Expr
}

// Scaled is a dynamic GEP index: Index * Stride bytes.
type Scaled struct {
	Index  Expr
	Type   *ir.Type
	Stride int64
}

// Factory builds the nodes of a lowered function.
//
// The terminator constructors receive one assignment list per successor edge.
// Edges to the same successor share the same slice. A Factory must perform
// each list as a parallel copy: all Values are evaluated before any Slot is
// written.
type Factory interface {
	Const(c ir.Constant) Expr
	Global(g *ir.GlobalRef) Expr
	ReadSlot(slot int, t *ir.Type) Expr

	Binary(op ir.BinOp, t *ir.Type, x, y Expr) Expr
	Unary(op ir.UnOp, t *ir.Type, x Expr) Expr
	Cast(op ir.CastOp, from, to *ir.Type, x Expr) Expr
	Compare(pred ir.Pred, t *ir.Type, x, y Expr) Expr
	Select(t *ir.Type, cond, x, y Expr) Expr
	Alloca(elem *ir.Type, size, align int64, count Expr) Expr
	Load(t *ir.Type, ptr Expr, volatile bool) Expr
	Offset(base Expr, offset int64, indices []Scaled) Expr
	Call(sig *ir.Type, callee Expr, args []Expr) Expr
	ExtractValue(agg *ir.Type, x Expr, offset int64, t *ir.Type) Expr
	InsertValue(agg *ir.Type, x, elem Expr, offset int64) Expr
	ExtractElement(vec *ir.Type, x, index Expr) Expr
	InsertElement(vec *ir.Type, x, elem, index Expr) Expr
	ShuffleVector(t *ir.Type, x, y, mask Expr) Expr
	AtomicRMW(op ir.AtomicOp, t *ir.Type, ptr, val Expr) Expr
	CmpXchg(t *ir.Type, ptr, cmp, new Expr) Expr
	VAArg(t *ir.Type, list Expr) Expr

	WriteSlot(slot int, t *ir.Type, value Expr) Stmt
	Store(t *ir.Type, ptr, value Expr, volatile bool) Stmt
	Eval(x Expr) Stmt
	Fence() Stmt
	Invalidate(slots []int) Stmt
	Locate(s Stmt, loc ir.Location) Stmt

	Return(x Expr) Control
	Jump(target int, phis []Assign) Control
	CondJump(cond Expr, then, els int, phis [2][]Assign) Control
	Switch(x Expr, t *ir.Type, cases []Expr, targets []int, phis [][]Assign) Control
	IndirectJump(addr Expr, targets []int, phis [][]Assign) Control
	Unreachable() Control
}

// SymbolResolver turns an operand into an expression.
type SymbolResolver interface {
	Resolve(v ir.Value) (Expr, error)
}
