package ir

import (
	"fmt"
	"strings"
)

func typed(v Value) string {
	if v == nil { return "<nil>" }
	return v.Type().String() + " " + v.String()
}

func label(b *Block) string {
	if b == nil { return "label <nil>" }
	return "label %" + b.Name
}

func joinTyped(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = typed(v)
	}
	return strings.Join(parts, ", ")
}

func joinInts(is []int) string {
	parts := make([]string, len(is))
	for i, n := range is {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

func (i *Binary) String() string  { return fmt.Sprintf("%v = %v %v, %v", i.Dst, i.Op, typed(i.X), i.Y) }
func (i *Unary) String() string   { return fmt.Sprintf("%v = %v %v", i.Dst, i.Op, typed(i.X)) }
func (i *Cast) String() string    { return fmt.Sprintf("%v = %v %v to %v", i.Dst, i.Op, typed(i.X), i.Dst.Typ) }
func (i *Compare) String() string {
	kw := "icmp"
	if i.Pred.IsFloat() { kw = "fcmp" }
	return fmt.Sprintf("%v = %s %v %v, %v", i.Dst, kw, i.Pred, typed(i.X), i.Y)
}
func (i *Select) String() string {
	return fmt.Sprintf("%v = select %v, %v, %v", i.Dst, typed(i.Cond), typed(i.X), typed(i.Y))
}

func (i *Alloca) String() string {
	if i.Count == nil { return fmt.Sprintf("%v = alloca %v", i.Dst, i.Elem) }
	return fmt.Sprintf("%v = alloca %v, %v", i.Dst, i.Elem, typed(i.Count))
}

func (i *Load) String() string {
	kw := "load"
	if i.Volatile { kw = "load volatile" }
	return fmt.Sprintf("%v = %s %v, %v", i.Dst, kw, i.Dst.Typ, typed(i.Src))
}

func (i *Store) String() string {
	kw := "store"
	if i.Volatile { kw = "store volatile" }
	return fmt.Sprintf("%s %v, %v", kw, typed(i.Val), typed(i.Dst))
}

func (i *GetElementPtr) String() string {
	s := fmt.Sprintf("%v = getelementptr %v, %v", i.Dst, i.Elem, typed(i.Src))
	if len(i.Indices) > 0 { s += ", " + joinTyped(i.Indices) }
	return s
}

func (i *Call) String() string {
	ret := Void
	if i.Sig != nil { ret = i.Sig.Ret }
	s := fmt.Sprintf("call %v %v(%s)", ret, i.Callee, joinTyped(i.Args))
	if i.Dst != nil { s = i.Dst.String() + " = " + s }
	return s
}

func (i *ExtractValue) String() string {
	return fmt.Sprintf("%v = extractvalue %v, %s", i.Dst, typed(i.Agg), joinInts(i.Indices))
}

func (i *InsertValue) String() string {
	return fmt.Sprintf("%v = insertvalue %v, %v, %s", i.Dst, typed(i.Agg), typed(i.Elem), joinInts(i.Indices))
}

func (i *ExtractElement) String() string {
	return fmt.Sprintf("%v = extractelement %v, %v", i.Dst, typed(i.Vec), typed(i.Index))
}

func (i *InsertElement) String() string {
	return fmt.Sprintf("%v = insertelement %v, %v, %v", i.Dst, typed(i.Vec), typed(i.Elem), typed(i.Index))
}

func (i *ShuffleVector) String() string {
	return fmt.Sprintf("%v = shufflevector %v, %v, %v", i.Dst, typed(i.X), typed(i.Y), typed(i.Mask))
}

func (i *AtomicRMW) String() string {
	return fmt.Sprintf("%v = atomicrmw %v %v, %v seq_cst", i.Dst, i.Op, typed(i.Ptr), typed(i.Val))
}

func (i *CmpXchg) String() string {
	return fmt.Sprintf("%v = cmpxchg %v, %v, %v seq_cst seq_cst", i.Dst, typed(i.Ptr), typed(i.Cmp), typed(i.New))
}

func (i *Fence) String() string { return "fence seq_cst" }

func (i *VAArg) String() string { return fmt.Sprintf("%v = va_arg %v, %v", i.Dst, typed(i.List), i.Dst.Typ) }

func (i *Phi) String() string {
	parts := make([]string, len(i.Incoming))
	for n, in := range i.Incoming {
		pred := "<nil>"
		if in.Pred != nil { pred = "%" + in.Pred.Name }
		parts[n] = fmt.Sprintf("[ %v, %s ]", in.Value, pred)
	}
	return fmt.Sprintf("%v = phi %v %s", i.Dst, i.Dst.Typ, strings.Join(parts, ", "))
}

func (i *Ret) String() string {
	if i.X == nil { return "ret void" }
	return "ret " + typed(i.X)
}

func (i *Br) String() string     { return "br " + label(i.Target) }
func (i *CondBr) String() string { return fmt.Sprintf("br %v, %s, %s", typed(i.Cond), label(i.True), label(i.False)) }

func (i *Switch) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "switch %v, %s [", typed(i.X), label(i.Default))
	for _, c := range i.Cases {
		fmt.Fprintf(&sb, " %v, %s", typed(c.Value), label(c.Target))
	}
	sb.WriteString(" ]")
	return sb.String()
}

func (i *IndirectBr) String() string {
	parts := make([]string, len(i.Targets))
	for n, t := range i.Targets {
		parts[n] = label(t)
	}
	return fmt.Sprintf("indirectbr %v, [ %s ]", typed(i.Addr), strings.Join(parts, ", "))
}

func (i *Unreachable) String() string { return "unreachable" }

func (b *Block) String() string {
	var sb strings.Builder
	sb.WriteString(b.Name + ":\n")
	for _, inst := range b.Instrs {
		sb.WriteString("  " + inst.String() + "\n")
	}
	return sb.String()
}

func (f *Function) String() string {
	var sb strings.Builder
	params := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		params = append(params, typed(p))
	}
	if f.Variadic { params = append(params, "...") }
	fmt.Fprintf(&sb, "define %v @%s(%s) {\n", f.Ret, f.Name, strings.Join(params, ", "))
	for _, b := range f.Blocks {
		sb.WriteString(b.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}
