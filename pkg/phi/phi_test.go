package phi_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nikandfor/errors"

	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/ir/irtest"
	"github.com/xplshn/lltree/pkg/phi"
	"github.com/xplshn/lltree/pkg/slots"
)

type edge struct {
	Dst int
	Src string
}

func flatten(ws *phi.WriteSet) []edge {
	var out []edge
	for _, e := range ws.Edges {
		out = append(out, edge{e.Dst, e.Src.String()})
	}
	return out
}

func resolveAll(t *testing.T, f *ir.Function) (*phi.Result, *slots.Table) {
	t.Helper()
	st := slots.Allocate(f)
	res, err := phi.ResolveAll(f, phi.NewTable(f), st)
	if err != nil { t.Fatalf("ResolveAll: %v", err) }
	return res, st
}

func TestDiamond(t *testing.T) {
	f := irtest.Diamond()
	res, st := resolveAll(t, f)
	p, _ := st.Lookup(f.Blocks[3].Phis()[0].Dst)

	if got := res.Sets[0]; len(got) != 2 || len(got[0].Edges) != 0 || len(got[1].Edges) != 0 {
		t.Errorf("entry edges carry writes: %v", got)
	}
	if diff := cmp.Diff([]edge{{p, "%a"}}, flatten(res.Sets[1][0])); diff != "" {
		t.Errorf("left -> join (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]edge{{p, "%b"}}, flatten(res.Sets[2][0])); diff != "" {
		t.Errorf("right -> join (-want +got):\n%s", diff)
	}
	if res.Sets[3] != nil && len(res.Sets[3]) != 0 {
		t.Errorf("ret has edges: %v", res.Sets[3])
	}
}

// Both loop phis read each other: the set lists the old values so the
// consumer can copy in parallel.
func TestSwapIsParallel(t *testing.T) {
	f := irtest.Swap()
	res, st := resolveAll(t, f)
	head := f.Blocks[1]
	x, _ := st.Lookup(head.Phis()[0].Dst)
	y, _ := st.Lookup(head.Phis()[1].Dst)

	back := res.Sets[1][0]
	if back.Succ != head || back.Pred != head {
		t.Fatalf("first head edge = %s -> %s, want head -> head", back.Pred.Name, back.Succ.Name)
	}
	if diff := cmp.Diff([]edge{{x, "%y"}, {y, "%x"}}, flatten(back)); diff != "" {
		t.Errorf("back edge (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]edge{{x, "1"}, {y, "2"}}, flatten(res.Sets[0][0])); diff != "" {
		t.Errorf("entry edge (-want +got):\n%s", diff)
	}
}

func TestDuplicateSuccessorsShareSet(t *testing.T) {
	f := irtest.SwitchDup()
	res, _ := resolveAll(t, f)
	sets := res.Sets[0]
	if len(sets) != 3 {
		t.Fatalf("switch sets = %d, want 3", len(sets))
	}
	if sets[1] != sets[2] {
		t.Errorf("edges to the same successor got distinct sets")
	}
	if sets[0] == sets[1] {
		t.Errorf("default and case edges share a set")
	}
	if len(res.Collapsed) != 1 {
		t.Errorf("collapsed = %d, want 1", len(res.Collapsed))
	}
}

// Every phi target edge must produce exactly one write per phi.
func TestEdgeCompleteness(t *testing.T) {
	for _, f := range []*ir.Function{irtest.Diamond(), irtest.Loop(), irtest.Swap(), irtest.SwitchDup()} {
		res, _ := resolveAll(t, f)
		for _, b := range f.Blocks {
			for i, s := range b.Term().Succs() {
				ws := res.Sets[b.Index][i]
				if ws.Succ != s || ws.Pred != b {
					t.Errorf("%s: %s edge %d labelled %s -> %s", f.Name, b.Name, i, ws.Pred.Name, ws.Succ.Name)
				}
				if len(ws.Edges) != len(s.Phis()) {
					t.Errorf("%s: %s -> %s: %d writes for %d phis", f.Name, b.Name, s.Name, len(ws.Edges), len(s.Phis()))
				}
			}
		}
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *ir.Function)
		want   error
	}{
		{"missing", func(f *ir.Function) {
			p := f.Blocks[3].Phis()[0]
			p.Incoming = p.Incoming[:1]
		}, ir.ErrMissingPhiEdge},
		{"ambiguous", func(f *ir.Function) {
			p := f.Blocks[3].Phis()[0]
			p.AddIncoming(ir.NewInt(ir.I64, 9), f.Blocks[1])
		}, ir.ErrAmbiguousPhiEdge},
		{"stray", func(f *ir.Function) {
			p := f.Blocks[3].Phis()[0]
			p.AddIncoming(ir.NewInt(ir.I64, 9), f.Blocks[0])
		}, ir.ErrStrayPhiEdge},
		{"foreign value", func(f *ir.Function) {
			p := f.Blocks[3].Phis()[0]
			p.Incoming[0].Value = ir.NewLocal("ghost", ir.I64)
		}, ir.ErrNoSlot},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := irtest.Diamond()
			tc.mutate(f)
			_, err := phi.ResolveAll(f, phi.NewTable(f), slots.Allocate(f))
			if !errors.Is(err, tc.want) {
				t.Errorf("ResolveAll = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestResolveSingleTerminator(t *testing.T) {
	f := irtest.Loop()
	st := slots.Allocate(f)
	sets, err := phi.Resolve(f.Blocks[2].Term(), phi.NewTable(f), st)
	if err != nil { t.Fatalf("Resolve: %v", err) }
	i, _ := st.Lookup(f.Blocks[1].Phis()[0].Dst)
	if diff := cmp.Diff([]edge{{i, "%j"}}, flatten(sets[0])); diff != "" {
		t.Errorf("body -> head (-want +got):\n%s", diff)
	}
}
