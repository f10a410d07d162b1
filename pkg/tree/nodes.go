// Package tree is the node set lltree builds by default: plain structs a
// tree-walking interpreter can switch over.
package tree

import (
	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/lower"
)

type (
	Const  struct{ Value ir.Constant }
	Global struct{ Name string; Func bool }
	Read   struct {
		Slot int
		Type *ir.Type
	}

	Binary struct {
		Op   ir.BinOp
		Type *ir.Type
		X, Y lower.Expr
	}
	Unary struct {
		Op   ir.UnOp
		Type *ir.Type
		X    lower.Expr
	}
	Cast struct {
		Op       ir.CastOp
		From, To *ir.Type
		X        lower.Expr
	}
	Compare struct {
		Pred ir.Pred
		Type *ir.Type
		X, Y lower.Expr
	}
	Select struct {
		Type       *ir.Type
		Cond, X, Y lower.Expr
	}
	Alloca struct {
		Elem        *ir.Type
		Size, Align int64
		Count       lower.Expr
	}
	Load struct {
		Type     *ir.Type
		Ptr      lower.Expr
		Volatile bool
	}
	// Offset is Base + Offset + sum(Index * Stride) in bytes.
	Offset struct {
		Base    lower.Expr
		Offset  int64
		Indices []lower.Scaled
	}
	Call struct {
		Sig    *ir.Type
		Callee lower.Expr
		Args   []lower.Expr
	}
	ExtractValue struct {
		Agg    *ir.Type
		X      lower.Expr
		Offset int64
		Type   *ir.Type
	}
	InsertValue struct {
		Agg     *ir.Type
		X, Elem lower.Expr
		Offset  int64
	}
	ExtractElement struct {
		Vec      *ir.Type
		X, Index lower.Expr
	}
	InsertElement struct {
		Vec            *ir.Type
		X, Elem, Index lower.Expr
	}
	ShuffleVector struct {
		Type       *ir.Type
		X, Y, Mask lower.Expr
	}
	AtomicRMW struct {
		Op       ir.AtomicOp
		Type     *ir.Type
		Ptr, Val lower.Expr
	}
	CmpXchg struct {
		Type          *ir.Type
		Ptr, Cmp, New lower.Expr
	}
	VAArg struct {
		Type *ir.Type
		List lower.Expr
	}
)

type (
	Write struct {
		Slot  int
		Type  *ir.Type
		Value lower.Expr
	}
	Store struct {
		Type       *ir.Type
		Ptr, Value lower.Expr
		Volatile   bool
	}
	Eval       struct{ X lower.Expr }
	Fence      struct{}
	Invalidate struct{ Slots []int }
	Located    struct {
		Loc  ir.Location
		Stmt lower.Stmt
	}
)

// Phi writes on an edge are a parallel copy: an interpreter evaluates every
// Value of the list before writing any Slot.
type (
	Return struct{ X lower.Expr }
	Jump   struct {
		Target int
		Phis   []lower.Assign
	}
	CondJump struct {
		Cond       lower.Expr
		Then, Else int
		Phis       [2][]lower.Assign
	}
	// Switch targets and phis start with the default edge.
	Switch struct {
		X       lower.Expr
		Type    *ir.Type
		Cases   []lower.Expr
		Targets []int
		Phis    [][]lower.Assign
	}
	IndirectJump struct {
		Addr    lower.Expr
		Targets []int
		Phis    [][]lower.Assign
	}
	Unreachable struct{}
)
