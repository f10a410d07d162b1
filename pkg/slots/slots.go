// Package slots numbers the SSA values of a function. Parameters get the
// lowest slots, then instruction results in block and instruction order.
package slots

import "github.com/xplshn/lltree/pkg/ir"

type Table struct {
	ids    map[*ir.Local]int
	values []*ir.Local
	params []int
}

func Allocate(fn *ir.Function) *Table {
	t := &Table{ids: make(map[*ir.Local]int, len(fn.Params))}
	for _, p := range fn.Params {
		t.params = append(t.params, t.add(p))
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instrs {
			if d := inst.Def(); d != nil { t.add(d) }
		}
	}
	return t
}

func (t *Table) add(l *ir.Local) int {
	if id, ok := t.ids[l]; ok { return id }
	id := len(t.values)
	t.ids[l] = id
	t.values = append(t.values, l)
	return id
}

func (t *Table) Count() int { return len(t.values) }

func (t *Table) Lookup(l *ir.Local) (int, bool) {
	id, ok := t.ids[l]
	return id, ok
}

// Slot is Lookup for any value; constants never have a slot.
func (t *Table) Slot(v ir.Value) (int, bool) {
	l, ok := v.(*ir.Local)
	if !ok { return 0, false }
	return t.Lookup(l)
}

func (t *Table) Value(slot int) *ir.Local {
	if slot < 0 || slot >= len(t.values) { return nil }
	return t.values[slot]
}

func (t *Table) ParamSlots() []int { return append([]int(nil), t.params...) }
