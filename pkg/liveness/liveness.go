// Package liveness computes which slots are live across every block and
// where each slot can be cleared.
//
// Phi reads belong to the predecessor: a value flowing into a phi of B from
// P is live out of P and not live into B. A phi result is live into its own
// block.
package liveness

import (
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/phi"
	"github.com/xplshn/lltree/pkg/slots"
)

// Point says Slot is dead right after instruction Index of its block.
type Point struct {
	Slot, Index int
}

type Block struct {
	// Points sorted by Index descending, ties by Slot ascending.
	Points []Point
	// Entry slots are live out of some predecessor but not into this block.
	Entry Set
	// Exit slots die exactly at the block boundary.
	Exit Set

	In, Out         Set
	Gen, Kill, Defs Set
	PhiDefs         Set
	PhiUses         Set
}

type Result struct {
	Blocks    []Block
	SlotCount int
	// Visits is the number of worklist entries processed.
	Visits int
}

type Options struct {
	// Observe is called after a block's out set gained bits.
	Observe func(block int, out Set)
}

type sets struct {
	gen, kill, defs  *bitset.BitSet
	phiDefs, phiUses *bitset.BitSet
	in, out          *bitset.BitSet
}

type analyzer struct {
	fn    *ir.Function
	slots *slots.Table
	phis  *phi.Table
	opts  Options

	preds [][]int
	sets  []sets
}

func Analyze(fn *ir.Function, st *slots.Table, phis *phi.Table) (*Result, error) {
	return AnalyzeWith(fn, st, phis, Options{})
}

func AnalyzeWith(fn *ir.Function, st *slots.Table, phis *phi.Table, opts Options) (*Result, error) {
	a := &analyzer{fn: fn, slots: st, phis: phis, opts: opts}

	a.preds = make([][]int, len(fn.Blocks))
	for i, ps := range fn.Preds() {
		for _, p := range ps {
			a.preds[i] = append(a.preds[i], p.Index)
		}
		if i > 0 && len(ps) == 0 { return nil, errors.Wrap(ir.ErrUnreachableBlock, "@%s: block %s", fn.Name, fn.Blocks[i].Name) }
	}

	if err := a.local(); err != nil { return nil, errors.Wrap(err, "@%s: local sets", fn.Name) }

	visits, err := a.solve()
	if err != nil { return nil, errors.Wrap(err, "@%s", fn.Name) }

	res := &Result{Blocks: make([]Block, len(fn.Blocks)), SlotCount: st.Count(), Visits: visits}
	for _, b := range fn.Blocks {
		lb, err := a.points(b)
		if err != nil { return nil, errors.Wrap(err, "@%s: block %s", fn.Name, b.Name) }
		res.Blocks[b.Index] = lb

		if tlog.If("liveness") {
			tlog.Printw("block", "func", fn.Name, "block", b.Name,
				"in", lb.In.String(), "out", lb.Out.String(), "gen", lb.Gen.String(), "kill", lb.Kill.String(),
				"phi_defs", lb.PhiDefs.String(), "phi_uses", lb.PhiUses.String(),
				"entry", lb.Entry.String(), "exit", lb.Exit.String(), "points", len(lb.Points))
		}
	}

	tlog.V("liveness").Printw("solved", "func", fn.Name, "blocks", len(fn.Blocks), "slots", st.Count(), "visits", visits)

	return res, nil
}

func (a *analyzer) slot(v *ir.Local) (int, error) {
	s, ok := a.slots.Lookup(v)
	if !ok { return 0, errors.Wrap(ir.ErrNoSlot, "%v", v) }
	return s, nil
}

// local fills gen, kill, defs and the phi sets of every block.
func (a *analyzer) local() error {
	n := a.slots.Count()
	a.sets = make([]sets, len(a.fn.Blocks))
	for i := range a.sets {
		a.sets[i] = sets{
			gen: newSet(n), kill: newSet(n), defs: newSet(n),
			phiDefs: newSet(n), phiUses: newSet(n),
			in: newSet(n), out: newSet(n),
		}
	}

	for _, p := range a.fn.Params {
		s, err := a.slot(p)
		if err != nil { return errors.Wrap(err, "param") }
		a.sets[0].gen.Set(uint(s))
	}

	for _, b := range a.fn.Blocks {
		bs := &a.sets[b.Index]
		for _, p := range a.phis.Of(b) {
			if err := a.localPhi(b, p); err != nil { return errors.Wrap(err, "block %s", b.Name) }
		}

		for i, inst := range b.Instrs {
			if _, ok := inst.(*ir.Phi); ok { continue }

			for _, op := range inst.Operands() {
				l, ok := op.(*ir.Local)
				if !ok { continue }
				s, err := a.slot(l)
				if err != nil { return errors.Wrap(err, "block %s: instruction %d (%v)", b.Name, i, inst) }
				if !bs.kill.Test(uint(s)) { bs.gen.Set(uint(s)) }
			}

			if d := inst.Def(); d != nil {
				s, err := a.slot(d)
				if err != nil { return errors.Wrap(err, "block %s: instruction %d (%v)", b.Name, i, inst) }
				bs.defs.Set(uint(s))
				if !bs.gen.Test(uint(s)) { bs.kill.Set(uint(s)) }
			}
		}
	}

	return nil
}

func (a *analyzer) localPhi(b *ir.Block, p *ir.Phi) error {
	s, err := a.slot(p.Dst)
	if err != nil { return err }
	a.sets[b.Index].defs.Set(uint(s))
	a.sets[b.Index].phiDefs.Set(uint(s))

	for _, in := range p.Incoming {
		if !a.fn.Owns(in.Pred) { return errors.Wrap(ir.ErrStrayPhiEdge, "phi %v: entry from a foreign block", p.Dst) }
		l, ok := in.Value.(*ir.Local)
		if !ok { continue }
		us, err := a.slot(l)
		if err != nil { return errors.Wrap(err, "phi %v", p.Dst) }
		a.sets[in.Pred.Index].phiUses.Set(uint(us))
	}

	return nil
}

// solve runs the backward fixed point. Every block is visited once, then
// again each time its out set grows.
func (a *analyzer) solve() (int, error) {
	n := len(a.fn.Blocks)
	limit := n * (a.slots.Count() + 2)

	queue := make([]int, 0, n)
	queued := make([]bool, n)
	for i := n - 1; i >= 0; i-- {
		queue = append(queue, i)
		queued[i] = true
	}

	cand := newSet(a.slots.Count())
	visits := 0

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		queued[b] = false

		visits++
		if visits > limit { return visits, errors.Wrap(ir.ErrNoFixedPoint, "%d visits over %d blocks", visits, n) }

		bs := &a.sets[b]
		bs.in.ClearAll()
		bs.in.InPlaceUnion(bs.out)
		bs.in.InPlaceDifference(bs.defs)
		bs.in.InPlaceUnion(bs.gen)
		bs.in.InPlaceUnion(bs.phiDefs)

		for _, p := range a.preds[b] {
			ps := &a.sets[p]

			cand.ClearAll()
			cand.InPlaceUnion(bs.in)
			cand.InPlaceDifference(bs.phiDefs)
			cand.InPlaceUnion(ps.phiUses)

			if ps.out.IsSuperSet(cand) { continue }
			ps.out.InPlaceUnion(cand)
			if a.opts.Observe != nil { a.opts.Observe(p, Set{ps.out.Clone()}) }

			if !queued[p] {
				queue = append(queue, p)
				queued[p] = true
			}
		}
	}

	return visits, nil
}

// points derives the invalidation points and the boundary sets of b.
func (a *analyzer) points(b *ir.Block) (Block, error) {
	bs := &a.sets[b.Index]
	last := make([]int, a.slots.Count())
	for i := range last {
		last[i] = -1
	}
	if b.Index == 0 {
		for _, p := range a.fn.Params {
			s, _ := a.slots.Lookup(p)
			last[s] = 0
		}
	}

	var pts []Point
	for i, inst := range b.Instrs {
		if _, isPhi := inst.(*ir.Phi); !isPhi {
			for _, op := range inst.Operands() {
				if s, ok := a.slots.Slot(op); ok { last[s] = i }
			}
		}
		if d := inst.Def(); d != nil {
			s, _ := a.slots.Lookup(d)
			if last[s] >= 0 && last[s] != i { pts = append(pts, Point{Slot: s, Index: last[s]}) }
			last[s] = i
		}
	}

	dies := bs.defs.Union(bs.in)
	dies.InPlaceDifference(bs.out)

	term := len(b.Instrs) - 1
	exit := newSet(a.slots.Count())
	for s, ok := dies.NextSet(0); ok; s, ok = dies.NextSet(s + 1) {
		t := last[s]
		switch {
		case t < 0:
			return Block{}, errors.Wrap(ir.ErrUntouchedSlot, "slot %d (%v)", s, a.slots.Value(int(s)))
		case t == term || bs.phiUses.Test(s):
			exit.Set(s)
		default:
			pts = append(pts, Point{Slot: int(s), Index: t})
		}
	}

	entry := newSet(a.slots.Count())
	for _, p := range a.preds[b.Index] {
		entry.InPlaceUnion(a.sets[p].out)
	}
	entry.InPlaceDifference(bs.in)

	slices.SortFunc(pts, func(x, y Point) int {
		if x.Index != y.Index { return y.Index - x.Index }
		return x.Slot - y.Slot
	})

	return Block{
		Points:  pts,
		Entry:   Set{entry},
		Exit:    Set{exit},
		In:      Set{bs.in},
		Out:     Set{bs.out},
		Gen:     Set{bs.gen},
		Kill:    Set{bs.kill},
		Defs:    Set{bs.defs},
		PhiDefs: Set{bs.phiDefs},
		PhiUses: Set{bs.phiUses},
	}, nil
}
