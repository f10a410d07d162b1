// Package phi turns the phis of a block into the slot writes each incoming
// edge has to perform.
package phi

import (
	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/slots"
)

// Table holds the phis at the head of every block, by block index.
type Table struct {
	phis [][]*ir.Phi
}

func NewTable(fn *ir.Function) *Table {
	t := &Table{phis: make([][]*ir.Phi, len(fn.Blocks))}
	for i, b := range fn.Blocks {
		t.phis[i] = b.Phis()
	}
	return t
}

func (t *Table) Of(b *ir.Block) []*ir.Phi {
	if b == nil || b.Index < 0 || b.Index >= len(t.phis) { return nil }
	return t.phis[b.Index]
}

// Edge writes Src into slot Dst.
type Edge struct {
	Dst int
	Src ir.Value
}

// WriteSet is what taking the edge Pred -> Succ must do. The writes form a
// parallel copy: every Src is read before any Dst is written.
type WriteSet struct {
	Pred, Succ *ir.Block
	Edges      []Edge
}

// Collapsed records a phi that lists the same predecessor more than once
// with the same value.
type Collapsed struct {
	Phi  *ir.Phi
	Pred *ir.Block
}

// Result holds the write sets of every block terminator, by block index.
type Result struct {
	Sets      [][]*WriteSet
	Collapsed []Collapsed
}

type resolver struct {
	table     *Table
	slots     *slots.Table
	collapsed []Collapsed
}

// Resolve returns one write set per successor edge of term, in successor
// order. Edges to the same successor share one set.
func Resolve(term ir.Terminator, t *Table, st *slots.Table) ([]*WriteSet, error) {
	r := &resolver{table: t, slots: st}
	return r.resolve(term)
}

// ResolveAll resolves every block of fn and rejects phi entries that name a
// block which is not a predecessor.
func ResolveAll(fn *ir.Function, t *Table, st *slots.Table) (*Result, error) {
	r := &resolver{table: t, slots: st}
	preds := fn.Preds()

	for _, b := range fn.Blocks {
		for _, p := range t.Of(b) {
			for _, in := range p.Incoming {
				if !isPred(preds[b.Index], in.Pred) { return nil, errors.Wrap(ir.ErrStrayPhiEdge, "block %s: %v: entry from %s", b.Name, p.Dst, blockName(in.Pred)) }
			}
		}
	}

	res := &Result{Sets: make([][]*WriteSet, len(fn.Blocks))}
	for _, b := range fn.Blocks {
		sets, err := r.resolve(b.Term())
		if err != nil { return nil, errors.Wrap(err, "block %s", b.Name) }
		res.Sets[b.Index] = sets
	}
	res.Collapsed = r.collapsed

	if tlog.If("phi") {
		for _, b := range fn.Blocks {
			for _, ws := range res.Sets[b.Index] {
				tlog.V("phi").Printw("edge", "func", fn.Name, "pred", ws.Pred.Name, "succ", ws.Succ.Name, "writes", len(ws.Edges))
			}
		}
	}

	return res, nil
}

func (r *resolver) resolve(term ir.Terminator) ([]*WriteSet, error) {
	if term == nil { return nil, errors.Wrap(ir.ErrBadTerminator, "missing terminator") }
	pred := term.Block()
	succs := term.Succs()
	sets := make([]*WriteSet, len(succs))
	seen := make(map[*ir.Block]*WriteSet, len(succs))

	for i, s := range succs {
		if ws, ok := seen[s]; ok {
			sets[i] = ws
			continue
		}
		ws, err := r.edge(pred, s)
		if err != nil { return nil, errors.Wrap(err, "edge to %s", blockName(s)) }
		seen[s] = ws
		sets[i] = ws
	}

	return sets, nil
}

func (r *resolver) edge(pred, succ *ir.Block) (*WriteSet, error) {
	phis := r.table.Of(succ)
	ws := &WriteSet{Pred: pred, Succ: succ, Edges: make([]Edge, 0, len(phis))}

	for _, p := range phis {
		dst, ok := r.slots.Lookup(p.Dst)
		if !ok { return nil, errors.Wrap(ir.ErrNoSlot, "phi %v", p.Dst) }
		src, err := r.incoming(p, pred)
		if err != nil { return nil, err }
		if l, isLocal := src.(*ir.Local); isLocal {
			if _, ok := r.slots.Lookup(l); !ok { return nil, errors.Wrap(ir.ErrNoSlot, "phi %v: incoming %v", p.Dst, l) }
		}
		ws.Edges = append(ws.Edges, Edge{Dst: dst, Src: src})
	}

	return ws, nil
}

func (r *resolver) incoming(p *ir.Phi, pred *ir.Block) (ir.Value, error) {
	var found ir.Value
	for _, in := range p.Incoming {
		if in.Pred != pred { continue }
		switch {
		case found == nil:
			found = in.Value
		case ir.SameValue(found, in.Value):
			r.collapsed = append(r.collapsed, Collapsed{Phi: p, Pred: pred})
		default:
			return nil, errors.Wrap(ir.ErrAmbiguousPhiEdge, "phi %v: %v and %v from %s", p.Dst, found, in.Value, pred.Name)
		}
	}
	if found == nil { return nil, errors.Wrap(ir.ErrMissingPhiEdge, "phi %v: from %s", p.Dst, pred.Name) }
	return found, nil
}

func isPred(preds []*ir.Block, b *ir.Block) bool {
	for _, p := range preds {
		if p == b { return true }
	}
	return false
}

func blockName(b *ir.Block) string {
	if b == nil { return "<nil>" }
	return b.Name
}
