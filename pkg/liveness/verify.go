package liveness

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/nikandfor/errors"

	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/phi"
	"github.com/xplshn/lltree/pkg/slots"
)

// Verify recomputes in and out of every block with plain round-robin
// backward liveness, walking instructions one at a time, and compares them
// with res.
func Verify(fn *ir.Function, st *slots.Table, phis *phi.Table, res *Result) error {
	in, out, err := recompute(fn, st, phis)
	if err != nil { return errors.Wrap(err, "@%s: recompute", fn.Name) }
	if len(res.Blocks) != len(fn.Blocks) { return errors.Wrap(ir.ErrLivenessMismatch, "@%s: %d blocks, result has %d", fn.Name, len(fn.Blocks), len(res.Blocks)) }

	for _, b := range fn.Blocks {
		lb := res.Blocks[b.Index]
		if want := (Set{in[b.Index]}); !lb.In.Equal(want) {
			return errors.Wrap(ir.ErrLivenessMismatch, "@%s: block %s: in %v, recomputed %v", fn.Name, b.Name, lb.In, want)
		}
		if want := (Set{out[b.Index]}); !lb.Out.Equal(want) {
			return errors.Wrap(ir.ErrLivenessMismatch, "@%s: block %s: out %v, recomputed %v", fn.Name, b.Name, lb.Out, want)
		}
	}

	return nil
}

func recompute(fn *ir.Function, st *slots.Table, phis *phi.Table) (in, out []*bitset.BitSet, err error) {
	n := st.Count()
	nb := len(fn.Blocks)
	in = make([]*bitset.BitSet, nb)
	out = make([]*bitset.BitSet, nb)
	phiUses := make([]*bitset.BitSet, nb)
	phiDefs := make([]*bitset.BitSet, nb)
	for i := range fn.Blocks {
		in[i], out[i] = newSet(n), newSet(n)
		phiUses[i], phiDefs[i] = newSet(n), newSet(n)
	}

	for _, b := range fn.Blocks {
		for _, p := range phis.Of(b) {
			d, ok := st.Lookup(p.Dst)
			if !ok { return nil, nil, errors.Wrap(ir.ErrNoSlot, "phi %v", p.Dst) }
			phiDefs[b.Index].Set(uint(d))
			for _, inc := range p.Incoming {
				if s, ok := st.Slot(inc.Value); ok && fn.Owns(inc.Pred) { phiUses[inc.Pred.Index].Set(uint(s)) }
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for i := nb - 1; i >= 0; i-- {
			b := fn.Blocks[i]

			o := newSet(n)
			for _, s := range b.Succs() {
				o.InPlaceUnion(in[s.Index].Difference(phiDefs[s.Index]))
				o.InPlaceUnion(phiUses[i])
			}

			live := o.Clone()
			for j := len(b.Instrs) - 1; j >= 0; j-- {
				inst := b.Instrs[j]
				if _, isPhi := inst.(*ir.Phi); isPhi { continue }
				if d := inst.Def(); d != nil {
					if s, ok := st.Lookup(d); ok { live.Clear(uint(s)) }
				}
				for _, op := range inst.Operands() {
					if s, ok := st.Slot(op); ok { live.Set(uint(s)) }
				}
			}
			live.InPlaceUnion(phiDefs[i])
			if i == 0 {
				for _, s := range st.ParamSlots() {
					live.Set(uint(s))
				}
			}

			if !o.Equal(out[i]) || !live.Equal(in[i]) {
				out[i], in[i] = o, live
				changed = true
			}
		}
	}

	return in, out, nil
}
