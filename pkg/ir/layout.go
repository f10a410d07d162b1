package ir

// Layout computes sizes and alignments in bytes. PointerSize is the target
// word size.
type Layout struct {
	PointerSize int64
}

func NewLayout(wordSize int) Layout {
	if wordSize <= 0 { wordSize = 8 }
	return Layout{PointerSize: int64(wordSize)}
}

// Size returns the allocation size of t: the distance between consecutive
// elements of an array of t.
func (l Layout) Size(t *Type) int64 {
	if t == nil { return 0 }
	switch t.Kind {
	case KindInt:
		return alignTo(storeSize(t.Bits), l.Align(t))
	case KindFloat:
		if t.Bits == 80 { return 16 }
		return storeSize(t.Bits)
	case KindPtr:
		return l.PointerSize
	case KindVector:
		return alignTo(storeSize(l.elemBits(t)*t.Len), l.Align(t))
	case KindArray:
		return int64(t.Len) * l.Size(t.Elem)
	case KindStruct:
		size, _ := l.structLayout(t, -1)
		return size
	}
	return 0
}

func (l Layout) Align(t *Type) int64 {
	if t == nil { return 1 }
	switch t.Kind {
	case KindInt, KindFloat:
		a := pow2(storeSize(t.Bits))
		if t.Kind == KindFloat && t.Bits == 80 { a = 16 }
		return min(a, 16)
	case KindPtr:
		return l.PointerSize
	case KindVector:
		return min(pow2(storeSize(l.elemBits(t)*t.Len)), 16)
	case KindArray:
		return l.Align(t.Elem)
	case KindStruct:
		if t.Packed { return 1 }
		a := int64(1)
		for _, f := range t.Fields {
			a = max(a, l.Align(f))
		}
		return a
	}
	return 1
}

// FieldOffset returns the byte offset of field i of struct t.
func (l Layout) FieldOffset(t *Type, i int) int64 {
	_, off := l.structLayout(t, i)
	return off
}

func (l Layout) structLayout(t *Type, field int) (size, offset int64) {
	for i, f := range t.Fields {
		if !t.Packed { size = alignTo(size, l.Align(f)) }
		if i == field { offset = size }
		size += l.Size(f)
	}
	return alignTo(size, l.Align(t)), offset
}

func (l Layout) elemBits(t *Type) int {
	if t.Elem == nil { return 0 }
	if t.Elem.Kind == KindPtr { return int(l.PointerSize * 8) }
	return t.Elem.Bits
}

func storeSize(bits int) int64 { return int64(bits+7) / 8 }

func alignTo(n, a int64) int64 {
	if a <= 1 { return n }
	return (n + a - 1) / a * a
}

func pow2(n int64) int64 {
	p := int64(1)
	for p < n {
		p <<= 1
	}
	return p
}
