package tree

import (
	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/lower"
)

// Factory builds tree nodes. The zero value is ready to use.
type Factory struct{}

var _ lower.Factory = Factory{}

func (Factory) Const(c ir.Constant) lower.Expr { return &Const{Value: c} }
func (Factory) Global(g *ir.GlobalRef) lower.Expr { return &Global{Name: g.Name, Func: g.Func} }
func (Factory) ReadSlot(slot int, t *ir.Type) lower.Expr { return &Read{Slot: slot, Type: t} }

func (Factory) Binary(op ir.BinOp, t *ir.Type, x, y lower.Expr) lower.Expr {
	return &Binary{Op: op, Type: t, X: x, Y: y}
}

func (Factory) Unary(op ir.UnOp, t *ir.Type, x lower.Expr) lower.Expr {
	return &Unary{Op: op, Type: t, X: x}
}

func (Factory) Cast(op ir.CastOp, from, to *ir.Type, x lower.Expr) lower.Expr {
	return &Cast{Op: op, From: from, To: to, X: x}
}

func (Factory) Compare(pred ir.Pred, t *ir.Type, x, y lower.Expr) lower.Expr {
	return &Compare{Pred: pred, Type: t, X: x, Y: y}
}

func (Factory) Select(t *ir.Type, cond, x, y lower.Expr) lower.Expr {
	return &Select{Type: t, Cond: cond, X: x, Y: y}
}

func (Factory) Alloca(elem *ir.Type, size, align int64, count lower.Expr) lower.Expr {
	return &Alloca{Elem: elem, Size: size, Align: align, Count: count}
}

func (Factory) Load(t *ir.Type, ptr lower.Expr, volatile bool) lower.Expr {
	return &Load{Type: t, Ptr: ptr, Volatile: volatile}
}

func (Factory) Offset(base lower.Expr, offset int64, indices []lower.Scaled) lower.Expr {
	if offset == 0 && len(indices) == 0 { return base }
	return &Offset{Base: base, Offset: offset, Indices: indices}
}

func (Factory) Call(sig *ir.Type, callee lower.Expr, args []lower.Expr) lower.Expr {
	return &Call{Sig: sig, Callee: callee, Args: args}
}

func (Factory) ExtractValue(agg *ir.Type, x lower.Expr, offset int64, t *ir.Type) lower.Expr {
	return &ExtractValue{Agg: agg, X: x, Offset: offset, Type: t}
}

func (Factory) InsertValue(agg *ir.Type, x, elem lower.Expr, offset int64) lower.Expr {
	return &InsertValue{Agg: agg, X: x, Elem: elem, Offset: offset}
}

func (Factory) ExtractElement(vec *ir.Type, x, index lower.Expr) lower.Expr {
	return &ExtractElement{Vec: vec, X: x, Index: index}
}

func (Factory) InsertElement(vec *ir.Type, x, elem, index lower.Expr) lower.Expr {
	return &InsertElement{Vec: vec, X: x, Elem: elem, Index: index}
}

func (Factory) ShuffleVector(t *ir.Type, x, y, mask lower.Expr) lower.Expr {
	return &ShuffleVector{Type: t, X: x, Y: y, Mask: mask}
}

func (Factory) AtomicRMW(op ir.AtomicOp, t *ir.Type, ptr, val lower.Expr) lower.Expr {
	return &AtomicRMW{Op: op, Type: t, Ptr: ptr, Val: val}
}

func (Factory) CmpXchg(t *ir.Type, ptr, cmp, new lower.Expr) lower.Expr {
	return &CmpXchg{Type: t, Ptr: ptr, Cmp: cmp, New: new}
}

func (Factory) VAArg(t *ir.Type, list lower.Expr) lower.Expr { return &VAArg{Type: t, List: list} }

func (Factory) WriteSlot(slot int, t *ir.Type, value lower.Expr) lower.Stmt {
	return &Write{Slot: slot, Type: t, Value: value}
}

func (Factory) Store(t *ir.Type, ptr, value lower.Expr, volatile bool) lower.Stmt {
	return &Store{Type: t, Ptr: ptr, Value: value, Volatile: volatile}
}

func (Factory) Eval(x lower.Expr) lower.Stmt           { return &Eval{X: x} }
func (Factory) Fence() lower.Stmt                      { return &Fence{} }
func (Factory) Invalidate(slots []int) lower.Stmt      { return &Invalidate{Slots: slots} }
func (Factory) Locate(s lower.Stmt, loc ir.Location) lower.Stmt { return &Located{Loc: loc, Stmt: s} }

func (Factory) Return(x lower.Expr) lower.Control { return &Return{X: x} }

func (Factory) Jump(target int, phis []lower.Assign) lower.Control {
	return &Jump{Target: target, Phis: phis}
}

func (Factory) CondJump(cond lower.Expr, then, els int, phis [2][]lower.Assign) lower.Control {
	return &CondJump{Cond: cond, Then: then, Else: els, Phis: phis}
}

func (Factory) Switch(x lower.Expr, t *ir.Type, cases []lower.Expr, targets []int, phis [][]lower.Assign) lower.Control {
	return &Switch{X: x, Type: t, Cases: cases, Targets: targets, Phis: phis}
}

func (Factory) IndirectJump(addr lower.Expr, targets []int, phis [][]lower.Assign) lower.Control {
	return &IndirectJump{Addr: addr, Targets: targets, Phis: phis}
}

func (Factory) Unreachable() lower.Control { return &Unreachable{} }
