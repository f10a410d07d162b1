// Package lower turns the instructions of a block into factory nodes.
package lower

import (
	"sort"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/liveness"
	"github.com/xplshn/lltree/pkg/phi"
	"github.com/xplshn/lltree/pkg/slots"
)

// Unit is one lowered block. EntryInvalidate slots are cleared when control
// enters the unit, ExitInvalidate slots when it leaves.
type Unit struct {
	Index           int
	Name            string
	Stmts           []Stmt
	Control         Control
	EntryInvalidate []int
	ExitInvalidate  []int
}

type Function struct {
	Name       string
	Units      []*Unit
	SlotCount  int
	ParamSlots []int
	Liveness   *liveness.Result
}

type Options struct {
	// Invalidate emits in-block invalidation statements.
	Invalidate bool
	// Boundary fills the entry and exit invalidation sets of units.
	Boundary bool
	// Locations attaches source locations to statements.
	Locations bool
}

func DefaultOptions() Options { return Options{Invalidate: true, Boundary: true, Locations: true} }

// Visitor lowers the blocks of one function.
type Visitor struct {
	factory Factory
	symbols SymbolResolver
	slots   *slots.Table
	layout  ir.Layout
	opts    Options

	assigns map[*phi.WriteSet][]Assign
	lastLoc ir.Location
}

func NewVisitor(f Factory, sym SymbolResolver, st *slots.Table, layout ir.Layout, opts Options) *Visitor {
	return &Visitor{factory: f, symbols: sym, slots: st, layout: layout, opts: opts, assigns: map[*phi.WriteSet][]Assign{}}
}

// LowerBlock builds the unit of b. sets holds one write set per successor
// edge of b's terminator, in edge order.
func (v *Visitor) LowerBlock(b *ir.Block, live *liveness.Block, sets []*phi.WriteSet) (*Unit, error) {
	u := &Unit{Index: b.Index, Name: b.Name}
	v.lastLoc = ir.Location{}

	term := b.Term()
	if term == nil { return nil, errors.Wrap(ir.ErrBadTerminator, "block %s", b.Name) }
	last := len(b.Instrs) - 1

	pts := live.Points
	k := len(pts) - 1
	for i, inst := range b.Instrs[:last] {
		s, err := v.lowerInstr(inst)
		if err != nil { return nil, errors.Wrap(err, "block %s: instruction %d (%v)", b.Name, i, inst) }
		if s != nil { u.Stmts = append(u.Stmts, v.locate(s, inst)) }

		var dead []int
		for ; k >= 0 && pts[k].Index <= i; k-- {
			if pts[k].Index < i { return nil, errors.Wrap(ir.ErrUnplacedInvalidation, "block %s: slot %d at %d passed", b.Name, pts[k].Slot, pts[k].Index) }
			dead = append(dead, pts[k].Slot)
		}
		if len(dead) > 0 && v.opts.Invalidate {
			sort.Ints(dead)
			u.Stmts = append(u.Stmts, v.factory.Invalidate(dead))
		}
	}
	if k >= 0 { return nil, errors.Wrap(ir.ErrUnplacedInvalidation, "block %s: slot %d at %d", b.Name, pts[k].Slot, pts[k].Index) }

	ctl, err := v.lowerTerm(term, sets)
	if err != nil { return nil, errors.Wrap(err, "block %s: %v", b.Name, term) }
	u.Control = ctl

	if v.opts.Boundary {
		u.EntryInvalidate = live.Entry.Slots()
		u.ExitInvalidate = live.Exit.Slots()
	}

	tlog.V("lower").Printw("block", "block", b.Name, "stmts", len(u.Stmts), "points", len(pts))

	return u, nil
}

func (v *Visitor) locate(s Stmt, inst ir.Instruction) Stmt {
	if !v.opts.Locations { return s }
	loc := inst.Location()
	if loc.IsZero() || loc == v.lastLoc { return s }
	v.lastLoc = loc
	return v.factory.Locate(s, loc)
}

func (v *Visitor) operand(x ir.Value) (Expr, error) { return v.symbols.Resolve(x) }

func (v *Visitor) operands(xs []ir.Value) ([]Expr, error) {
	out := make([]Expr, len(xs))
	for i, x := range xs {
		e, err := v.operand(x)
		if err != nil { return nil, errors.Wrap(err, "operand %d", i) }
		out[i] = e
	}
	return out, nil
}

func (v *Visitor) lowerInstr(inst ir.Instruction) (Stmt, error) {
	switch inst := inst.(type) {
	case *ir.Phi:
		return nil, nil
	case *ir.Store:
		return v.lowerStore(inst)
	case *ir.Fence:
		return v.factory.Fence(), nil
	case *ir.Call:
		if inst.Dst == nil {
			x, err := v.lowerCall(inst)
			if err != nil { return nil, err }
			return v.factory.Eval(x), nil
		}
	case ir.Terminator:
		return nil, errors.Wrap(ir.ErrBadTerminator, "terminator inside block")
	}

	d := inst.Def()
	if d == nil { return nil, errors.Wrap(ir.ErrMalformed, "unsupported instruction %T", inst) }
	slot, ok := v.slots.Lookup(d)
	if !ok { return nil, errors.Wrap(ir.ErrNoSlot, "result %v", d) }

	x, err := v.lowerExpr(inst)
	if err != nil { return nil, err }
	return v.factory.WriteSlot(slot, d.Typ, x), nil
}

func (v *Visitor) lowerExpr(inst ir.Instruction) (Expr, error) {
	switch inst := inst.(type) {
	case *ir.Binary:
		return v.lowerBinary(inst)
	case *ir.Unary:
		x, err := v.operand(inst.X)
		if err != nil { return nil, err }
		return v.factory.Unary(inst.Op, inst.Dst.Typ, x), nil
	case *ir.Cast:
		x, err := v.operand(inst.X)
		if err != nil { return nil, err }
		return v.factory.Cast(inst.Op, inst.X.Type(), inst.Dst.Typ, x), nil
	case *ir.Compare:
		return v.lowerCompare(inst)
	case *ir.Select:
		xs, err := v.operands([]ir.Value{inst.Cond, inst.X, inst.Y})
		if err != nil { return nil, err }
		return v.factory.Select(inst.Dst.Typ, xs[0], xs[1], xs[2]), nil
	case *ir.Alloca:
		return v.lowerAlloca(inst)
	case *ir.Load:
		p, err := v.operand(inst.Src)
		if err != nil { return nil, err }
		return v.factory.Load(inst.Dst.Typ, p, inst.Volatile), nil
	case *ir.GetElementPtr:
		return v.lowerGEP(inst)
	case *ir.Call:
		return v.lowerCall(inst)
	case *ir.ExtractValue:
		return v.lowerExtractValue(inst)
	case *ir.InsertValue:
		return v.lowerInsertValue(inst)
	case *ir.ExtractElement:
		xs, err := v.operands([]ir.Value{inst.Vec, inst.Index})
		if err != nil { return nil, err }
		return v.factory.ExtractElement(inst.Vec.Type(), xs[0], xs[1]), nil
	case *ir.InsertElement:
		xs, err := v.operands([]ir.Value{inst.Vec, inst.Elem, inst.Index})
		if err != nil { return nil, err }
		return v.factory.InsertElement(inst.Vec.Type(), xs[0], xs[1], xs[2]), nil
	case *ir.ShuffleVector:
		xs, err := v.operands([]ir.Value{inst.X, inst.Y, inst.Mask})
		if err != nil { return nil, err }
		return v.factory.ShuffleVector(inst.Dst.Typ, xs[0], xs[1], xs[2]), nil
	case *ir.AtomicRMW:
		xs, err := v.operands([]ir.Value{inst.Ptr, inst.Val})
		if err != nil { return nil, err }
		return v.factory.AtomicRMW(inst.Op, inst.Val.Type(), xs[0], xs[1]), nil
	case *ir.CmpXchg:
		xs, err := v.operands([]ir.Value{inst.Ptr, inst.Cmp, inst.New})
		if err != nil { return nil, err }
		return v.factory.CmpXchg(inst.Cmp.Type(), xs[0], xs[1], xs[2]), nil
	case *ir.VAArg:
		l, err := v.operand(inst.List)
		if err != nil { return nil, err }
		return v.factory.VAArg(inst.Dst.Typ, l), nil
	}
	return nil, errors.Wrap(ir.ErrMalformed, "unsupported instruction %T", inst)
}

func (v *Visitor) lowerBinary(inst *ir.Binary) (Expr, error) {
	x, err := v.operand(inst.X)
	if err != nil { return nil, err }
	y, err := v.operand(inst.Y)
	if err != nil { return nil, err }
	return v.factory.Binary(inst.Op, inst.Dst.Typ, x, y), nil
}

func (v *Visitor) lowerCompare(inst *ir.Compare) (Expr, error) {
	x, err := v.operand(inst.X)
	if err != nil { return nil, err }
	y, err := v.operand(inst.Y)
	if err != nil { return nil, err }
	return v.factory.Compare(inst.Pred, inst.X.Type(), x, y), nil
}

func (v *Visitor) lowerAlloca(inst *ir.Alloca) (Expr, error) {
	var count Expr
	if inst.Count != nil {
		c, err := v.operand(inst.Count)
		if err != nil { return nil, err }
		count = c
	}
	return v.factory.Alloca(inst.Elem, v.layout.Size(inst.Elem), v.layout.Align(inst.Elem), count), nil
}

func (v *Visitor) lowerStore(inst *ir.Store) (Stmt, error) {
	p, err := v.operand(inst.Dst)
	if err != nil { return nil, err }
	x, err := v.operand(inst.Val)
	if err != nil { return nil, err }
	return v.factory.Store(inst.Val.Type(), p, x, inst.Volatile), nil
}

func (v *Visitor) lowerCall(inst *ir.Call) (Expr, error) {
	callee, err := v.operand(inst.Callee)
	if err != nil { return nil, errors.Wrap(err, "callee") }
	args, err := v.operands(inst.Args)
	if err != nil { return nil, err }
	return v.factory.Call(inst.Sig, callee, args), nil
}

// lowerGEP folds constant indices into one byte offset and keeps the
// dynamic ones as scaled terms.
func (v *Visitor) lowerGEP(inst *ir.GetElementPtr) (Expr, error) {
	base, err := v.operand(inst.Src)
	if err != nil { return nil, err }

	var off int64
	var dyn []Scaled
	step := func(idx ir.Value, stride int64) error {
		if c, ok := idx.(*ir.Int); ok {
			off += c.Value * stride
			return nil
		}
		x, err := v.operand(idx)
		if err != nil { return err }
		dyn = append(dyn, Scaled{Index: x, Type: idx.Type(), Stride: stride})
		return nil
	}

	t := inst.Elem
	for n, idx := range inst.Indices {
		if n == 0 {
			if err := step(idx, v.layout.Size(t)); err != nil { return nil, errors.Wrap(err, "index 0") }
			continue
		}
		switch t.Kind {
		case ir.KindStruct:
			c, ok := idx.(*ir.Int)
			if !ok || c.Value < 0 || int(c.Value) >= len(t.Fields) { return nil, errors.Wrap(ir.ErrMalformed, "index %d: bad field %v of %v", n, idx, t) }
			off += v.layout.FieldOffset(t, int(c.Value))
			t = t.Fields[c.Value]
		case ir.KindArray, ir.KindVector:
			t = t.Elem
			if err := step(idx, v.layout.Size(t)); err != nil { return nil, errors.Wrap(err, "index %d", n) }
		default:
			return nil, errors.Wrap(ir.ErrMalformed, "index %d: %v is not an aggregate", n, t)
		}
	}

	return v.factory.Offset(base, off, dyn), nil
}

func (v *Visitor) aggregateOffset(t *ir.Type, indices []int) (int64, *ir.Type, error) {
	var off int64
	for _, i := range indices {
		switch t.Kind {
		case ir.KindStruct:
			if i < 0 || i >= len(t.Fields) { return 0, nil, errors.Wrap(ir.ErrMalformed, "field %d of %v", i, t) }
			off += v.layout.FieldOffset(t, i)
			t = t.Fields[i]
		case ir.KindArray:
			if i < 0 || i >= t.Len { return 0, nil, errors.Wrap(ir.ErrMalformed, "element %d of %v", i, t) }
			t = t.Elem
			off += int64(i) * v.layout.Size(t)
		default:
			return 0, nil, errors.Wrap(ir.ErrMalformed, "%v is not an aggregate", t)
		}
	}
	return off, t, nil
}

func (v *Visitor) lowerExtractValue(inst *ir.ExtractValue) (Expr, error) {
	x, err := v.operand(inst.Agg)
	if err != nil { return nil, err }
	off, t, err := v.aggregateOffset(inst.Agg.Type(), inst.Indices)
	if err != nil { return nil, err }
	return v.factory.ExtractValue(inst.Agg.Type(), x, off, t), nil
}

func (v *Visitor) lowerInsertValue(inst *ir.InsertValue) (Expr, error) {
	x, err := v.operand(inst.Agg)
	if err != nil { return nil, err }
	e, err := v.operand(inst.Elem)
	if err != nil { return nil, err }
	off, _, err := v.aggregateOffset(inst.Agg.Type(), inst.Indices)
	if err != nil { return nil, err }
	return v.factory.InsertValue(inst.Agg.Type(), x, e, off), nil
}

func (v *Visitor) edges(sets []*phi.WriteSet) ([][]Assign, error) {
	out := make([][]Assign, len(sets))
	for i, ws := range sets {
		if as, ok := v.assigns[ws]; ok {
			out[i] = as
			continue
		}
		as := make([]Assign, len(ws.Edges))
		for j, e := range ws.Edges {
			x, err := v.operand(e.Src)
			if err != nil { return nil, errors.Wrap(err, "phi write to %s", ws.Succ.Name) }
			as[j] = Assign{Slot: e.Dst, Value: x}
		}
		v.assigns[ws] = as
		out[i] = as
	}
	return out, nil
}

func (v *Visitor) lowerTerm(term ir.Terminator, sets []*phi.WriteSet) (Control, error) {
	succs := term.Succs()
	if len(sets) != len(succs) { return nil, errors.Wrap(ir.ErrInvariant, "%d write sets for %d edges", len(sets), len(succs)) }
	phis, err := v.edges(sets)
	if err != nil { return nil, err }

	targets := make([]int, len(succs))
	for i, s := range succs {
		targets[i] = s.Index
	}

	switch term := term.(type) {
	case *ir.Ret:
		if term.X == nil { return v.factory.Return(nil), nil }
		x, err := v.operand(term.X)
		if err != nil { return nil, err }
		return v.factory.Return(x), nil
	case *ir.Br:
		return v.factory.Jump(targets[0], phis[0]), nil
	case *ir.CondBr:
		c, err := v.operand(term.Cond)
		if err != nil { return nil, err }
		return v.factory.CondJump(c, targets[0], targets[1], [2][]Assign{phis[0], phis[1]}), nil
	case *ir.Switch:
		x, err := v.operand(term.X)
		if err != nil { return nil, err }
		cases := make([]Expr, len(term.Cases))
		for i, c := range term.Cases {
			cases[i], err = v.operand(c.Value)
			if err != nil { return nil, errors.Wrap(err, "case %d", i) }
		}
		return v.factory.Switch(x, term.X.Type(), cases, targets, phis), nil
	case *ir.IndirectBr:
		a, err := v.operand(term.Addr)
		if err != nil { return nil, err }
		return v.factory.IndirectJump(a, targets, phis), nil
	case *ir.Unreachable:
		return v.factory.Unreachable(), nil
	}
	return nil, errors.Wrap(ir.ErrBadTerminator, "unsupported terminator %T", term)
}
