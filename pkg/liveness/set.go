package liveness

import (
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Set is a read-only view of a slot set.
type Set struct {
	bits *bitset.BitSet
}

func newSet(n int) *bitset.BitSet { return bitset.New(uint(n)) }

func (s Set) Has(slot int) bool {
	return s.bits != nil && slot >= 0 && s.bits.Test(uint(slot))
}

func (s Set) Len() int {
	if s.bits == nil { return 0 }
	return int(s.bits.Count())
}

// Slots returns the members in ascending order.
func (s Set) Slots() []int {
	if s.bits == nil { return nil }
	out := make([]int, 0, s.bits.Count())
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

func (s Set) Equal(o Set) bool {
	if s.Len() == 0 || o.Len() == 0 { return s.Len() == o.Len() }
	return s.bits.SymmetricDifferenceCardinality(o.bits) == 0
}

func (s Set) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, slot := range s.Slots() {
		if i > 0 { sb.WriteByte(' ') }
		sb.WriteString(strconv.Itoa(slot))
	}
	sb.WriteByte('}')
	return sb.String()
}
