package ir

// Builder helpers append one instruction to a block and return its result.
// An empty name picks the next numeric name in the function.

func (b *Block) local(name string, typ *Type) *Local {
	if name == "" { name = b.parent.nextName() }
	return NewLocal(name, typ)
}

func (b *Block) NewBinary(name string, op BinOp, x, y Value) *Local {
	d := b.local(name, x.Type())
	b.Append(&Binary{Dst: d, Op: op, X: x, Y: y})
	return d
}

func (b *Block) NewUnary(name string, op UnOp, x Value) *Local {
	d := b.local(name, x.Type())
	b.Append(&Unary{Dst: d, Op: op, X: x})
	return d
}

func (b *Block) NewCast(name string, op CastOp, x Value, to *Type) *Local {
	d := b.local(name, to)
	b.Append(&Cast{Dst: d, Op: op, X: x})
	return d
}

func (b *Block) NewCompare(name string, pred Pred, x, y Value) *Local {
	t := I1
	if xt := x.Type(); xt != nil && xt.Kind == KindVector { t = VectorOf(I1, xt.Len) }
	d := b.local(name, t)
	b.Append(&Compare{Dst: d, Pred: pred, X: x, Y: y})
	return d
}

func (b *Block) NewSelect(name string, cond, x, y Value) *Local {
	d := b.local(name, x.Type())
	b.Append(&Select{Dst: d, Cond: cond, X: x, Y: y})
	return d
}

func (b *Block) NewAlloca(name string, elem *Type, count Value) *Local {
	d := b.local(name, Ptr)
	b.Append(&Alloca{Dst: d, Elem: elem, Count: count})
	return d
}

func (b *Block) NewLoad(name string, typ *Type, src Value) *Local {
	d := b.local(name, typ)
	b.Append(&Load{Dst: d, Src: src})
	return d
}

func (b *Block) NewStore(val, dst Value) *Store {
	s := &Store{Val: val, Dst: dst}
	b.Append(s)
	return s
}

func (b *Block) NewGEP(name string, elem *Type, src Value, indices ...Value) *Local {
	d := b.local(name, Ptr)
	b.Append(&GetElementPtr{Dst: d, Elem: elem, Src: src, Indices: indices})
	return d
}

// NewCall returns nil for a void callee.
func (b *Block) NewCall(name string, ret *Type, callee Value, args ...Value) *Local {
	params := make([]*Type, len(args))
	for i, a := range args {
		params[i] = a.Type()
	}
	c := &Call{Callee: callee, Args: args, Sig: FuncOf(ret, params, false)}
	if !ret.IsVoid() { c.Dst = b.local(name, ret) }
	b.Append(c)
	return c.Dst
}

func (b *Block) NewExtractValue(name string, typ *Type, agg Value, indices ...int) *Local {
	d := b.local(name, typ)
	b.Append(&ExtractValue{Dst: d, Agg: agg, Indices: indices})
	return d
}

func (b *Block) NewInsertValue(name string, agg, elem Value, indices ...int) *Local {
	d := b.local(name, agg.Type())
	b.Append(&InsertValue{Dst: d, Agg: agg, Elem: elem, Indices: indices})
	return d
}

func (b *Block) NewExtractElement(name string, vec, index Value) *Local {
	var t *Type
	if vt := vec.Type(); vt != nil { t = vt.Elem }
	d := b.local(name, t)
	b.Append(&ExtractElement{Dst: d, Vec: vec, Index: index})
	return d
}

func (b *Block) NewInsertElement(name string, vec, elem, index Value) *Local {
	d := b.local(name, vec.Type())
	b.Append(&InsertElement{Dst: d, Vec: vec, Elem: elem, Index: index})
	return d
}

func (b *Block) NewAtomicRMW(name string, op AtomicOp, ptr, val Value) *Local {
	d := b.local(name, val.Type())
	b.Append(&AtomicRMW{Dst: d, Op: op, Ptr: ptr, Val: val})
	return d
}

func (b *Block) NewFence() *Fence {
	f := &Fence{}
	b.Append(f)
	return f
}

// NewPhi appends an empty phi. Fill it with AddIncoming once the
// predecessors exist.
func (b *Block) NewPhi(name string, typ *Type, in ...Incoming) *Phi {
	p := &Phi{Dst: b.local(name, typ), Incoming: in}
	b.Append(p)
	return p
}

func (b *Block) NewRet(x Value) *Ret {
	r := &Ret{X: x}
	b.Append(r)
	return r
}

func (b *Block) NewBr(target *Block) *Br {
	br := &Br{Target: target}
	b.Append(br)
	return br
}

func (b *Block) NewCondBr(cond Value, t, f *Block) *CondBr {
	br := &CondBr{Cond: cond, True: t, False: f}
	b.Append(br)
	return br
}

func (b *Block) NewSwitch(x Value, def *Block, cases ...Case) *Switch {
	s := &Switch{X: x, Default: def, Cases: cases}
	b.Append(s)
	return s
}

func (b *Block) NewIndirectBr(addr Value, targets ...*Block) *IndirectBr {
	br := &IndirectBr{Addr: addr, Targets: targets}
	b.Append(br)
	return br
}

func (b *Block) NewUnreachable() *Unreachable {
	u := &Unreachable{}
	b.Append(u)
	return u
}
