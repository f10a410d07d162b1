package slots_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nikandfor/errors"

	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/ir/irtest"
	"github.com/xplshn/lltree/pkg/slots"
)

func names(t *slots.Table) []string {
	out := make([]string, t.Count())
	for i := range out {
		out[i] = t.Value(i).Name
	}
	return out
}

func TestAllocateOrder(t *testing.T) {
	tab := slots.Allocate(irtest.Loop())
	if diff := cmp.Diff([]string{"n", "i", "c", "j"}, names(tab)); diff != "" {
		t.Errorf("slot order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, tab.ParamSlots()); diff != "" {
		t.Errorf("param slots (-want +got):\n%s", diff)
	}
}

// Count covers every param and every value-producing instruction.
func TestAllocateConservation(t *testing.T) {
	for _, f := range []*ir.Function{irtest.Straight(), irtest.Diamond(), irtest.Loop(), irtest.Swap(), irtest.SwitchDup(), irtest.Dead(), irtest.Memory()} {
		want := len(f.Params)
		for _, b := range f.Blocks {
			for _, inst := range b.Instrs {
				if ir.IsValueProducing(inst) { want++ }
			}
		}
		tab := slots.Allocate(f)
		if tab.Count() != want {
			t.Errorf("%s: Count() = %d, want %d", f.Name, tab.Count(), want)
		}
		for i := 0; i < tab.Count(); i++ {
			if got, ok := tab.Lookup(tab.Value(i)); !ok || got != i {
				t.Errorf("%s: Lookup(Value(%d)) = %d, %v", f.Name, i, got, ok)
			}
		}
	}
}

func TestLookupMisses(t *testing.T) {
	tab := slots.Allocate(irtest.Straight())
	if _, ok := tab.Lookup(ir.NewLocal("stranger", ir.I64)); ok {
		t.Errorf("foreign local has a slot")
	}
	if _, ok := tab.Slot(ir.NewInt(ir.I64, 1)); ok {
		t.Errorf("constant has a slot")
	}
	if v := tab.Value(99); v != nil {
		t.Errorf("Value(99) = %v, want nil", v)
	}
}

func TestVoidCallHasNoSlot(t *testing.T) {
	f := ir.NewFunction("f", ir.Void, false)
	b := f.NewBlock("entry")
	if d := b.NewCall("", ir.Void, &ir.GlobalRef{Name: "g", Func: true}); d != nil {
		t.Fatalf("void call defines %v", d)
	}
	b.NewRet(nil)
	if got := slots.Allocate(f).Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

// A local defined twice keeps its first slot here. Verify is what rejects
// the function.
func TestDuplicateDefKeepsOneSlot(t *testing.T) {
	f := ir.NewFunction("twice", ir.I64, false)
	a := f.NewParam("a", ir.I64)
	b := f.NewBlock("entry")
	x := b.NewBinary("x", ir.Add, a, ir.NewInt(ir.I64, 1))
	b.Append(&ir.Binary{Dst: x, Op: ir.Add, X: a, Y: x})
	b.NewRet(x)

	tab := slots.Allocate(f)
	if diff := cmp.Diff([]string{"a", "x"}, names(tab)); diff != "" {
		t.Errorf("slots (-want +got):\n%s", diff)
	}
	if err := f.Verify(); !errors.Is(err, ir.ErrDuplicateDef) {
		t.Errorf("Verify() = %v, want ErrDuplicateDef", err)
	}
}
