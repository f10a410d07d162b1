package lower

import (
	"github.com/nikandfor/errors"

	"github.com/xplshn/lltree/pkg/ir"
	"github.com/xplshn/lltree/pkg/slots"
)

// Symbols resolves locals to slot reads and constants to constant nodes.
type Symbols struct {
	factory Factory
	slots   *slots.Table
}

func NewSymbols(f Factory, st *slots.Table) *Symbols { return &Symbols{factory: f, slots: st} }

func (s *Symbols) Resolve(v ir.Value) (Expr, error) {
	switch v := v.(type) {
	case nil:
		return nil, errors.Wrap(ir.ErrMalformed, "nil operand")
	case *ir.Local:
		slot, ok := s.slots.Lookup(v)
		if !ok { return nil, errors.Wrap(ir.ErrNoSlot, "%v", v) }
		return s.factory.ReadSlot(slot, v.Typ), nil
	case *ir.GlobalRef:
		return s.factory.Global(v), nil
	case ir.Constant:
		return s.factory.Const(v), nil
	}
	return nil, errors.Wrap(ir.ErrMalformed, "operand %v (%T)", v, v)
}

// Memo caches the expression of every value it resolved.
type Memo struct {
	next  SymbolResolver
	cache map[ir.Value]Expr
}

func NewMemo(next SymbolResolver) *Memo { return &Memo{next: next, cache: map[ir.Value]Expr{}} }

func (m *Memo) Resolve(v ir.Value) (Expr, error) {
	if x, ok := m.cache[v]; ok { return x, nil }
	x, err := m.next.Resolve(v)
	if err != nil { return nil, err }
	m.cache[v] = x
	return x, nil
}

func (m *Memo) Len() int { return len(m.cache) }
