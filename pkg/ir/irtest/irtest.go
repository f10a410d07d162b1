// Package irtest builds small functions shared by the analysis tests.
package irtest

import "github.com/xplshn/lltree/pkg/ir"

// Straight is
//
//	entry: %x = add %a, 1 ; br exit
//	exit:  ret %x
func Straight() *ir.Function {
	f := ir.NewFunction("straight", ir.I64, false)
	a := f.NewParam("a", ir.I64)
	entry, exit := f.NewBlock("entry"), f.NewBlock("exit")
	x := entry.NewBinary("x", ir.Add, a, ir.NewInt(ir.I64, 1))
	entry.NewBr(exit)
	exit.NewRet(x)
	return f
}

// Diamond branches on %c and joins with %p = phi [%a, left], [%b, right].
func Diamond() *ir.Function {
	f := ir.NewFunction("diamond", ir.I64, false)
	c := f.NewParam("c", ir.I1)
	a := f.NewParam("a", ir.I64)
	b := f.NewParam("b", ir.I64)
	entry, left, right, join := f.NewBlock("entry"), f.NewBlock("left"), f.NewBlock("right"), f.NewBlock("join")
	entry.NewCondBr(c, left, right)
	left.NewBr(join)
	right.NewBr(join)
	p := join.NewPhi("p", ir.I64)
	p.AddIncoming(a, left)
	p.AddIncoming(b, right)
	join.NewRet(p.Dst)
	return f
}

// Loop counts %i from 0 to %n:
//
//	entry: br head
//	head:  %i = phi [0, entry], [%j, body] ; %c = icmp slt %i, %n ; br %c, body, exit
//	body:  %j = add %i, 1 ; br head
//	exit:  ret %i
func Loop() *ir.Function {
	f := ir.NewFunction("loop", ir.I64, false)
	n := f.NewParam("n", ir.I64)
	entry, head, body, exit := f.NewBlock("entry"), f.NewBlock("head"), f.NewBlock("body"), f.NewBlock("exit")
	entry.NewBr(head)
	i := head.NewPhi("i", ir.I64)
	c := head.NewCompare("c", ir.IntSLT, i.Dst, n)
	head.NewCondBr(c, body, exit)
	j := body.NewBinary("j", ir.Add, i.Dst, ir.NewInt(ir.I64, 1))
	body.NewBr(head)
	exit.NewRet(i.Dst)
	i.AddIncoming(ir.NewInt(ir.I64, 0), entry)
	i.AddIncoming(j, body)
	return f
}

// Swap rotates two phis around a loop; each reads the other's previous value.
func Swap() *ir.Function {
	f := ir.NewFunction("swap", ir.I64, false)
	n := f.NewParam("n", ir.I1)
	entry, head, exit := f.NewBlock("entry"), f.NewBlock("head"), f.NewBlock("exit")
	entry.NewBr(head)
	x := head.NewPhi("x", ir.I64)
	y := head.NewPhi("y", ir.I64)
	head.NewCondBr(n, head, exit)
	exit.NewRet(x.Dst)
	x.AddIncoming(ir.NewInt(ir.I64, 1), entry)
	x.AddIncoming(y.Dst, head)
	y.AddIncoming(ir.NewInt(ir.I64, 2), entry)
	y.AddIncoming(x.Dst, head)
	return f
}

// SwitchDup switches to the same target from two cases; the target's phi has
// one entry per edge, as LLVM prints it.
func SwitchDup() *ir.Function {
	f := ir.NewFunction("switchdup", ir.I64, false)
	k := f.NewParam("k", ir.I32)
	v := f.NewParam("v", ir.I64)
	entry, t, d := f.NewBlock("entry"), f.NewBlock("t"), f.NewBlock("d")
	entry.NewSwitch(k, d,
		ir.Case{Value: ir.NewInt(ir.I32, 1), Target: t},
		ir.Case{Value: ir.NewInt(ir.I32, 2), Target: t},
	)
	p := t.NewPhi("p", ir.I64)
	p.AddIncoming(v, entry)
	p.AddIncoming(v, entry)
	t.NewRet(p.Dst)
	d.NewRet(ir.NewInt(ir.I64, 0))
	return f
}

// Dead defines a value nobody reads and ignores its second param.
func Dead() *ir.Function {
	f := ir.NewFunction("dead", ir.I64, false)
	a := f.NewParam("a", ir.I64)
	f.NewParam("unused", ir.I64)
	entry := f.NewBlock("entry")
	entry.NewBinary("waste", ir.Mul, a, a)
	x := entry.NewBinary("x", ir.Add, a, ir.NewInt(ir.I64, 2))
	entry.NewRet(x)
	return f
}

// Memory stores into a stack struct and reads a field back through a GEP.
func Memory() *ir.Function {
	f := ir.NewFunction("memory", ir.I32, false)
	v := f.NewParam("v", ir.I32)
	i := f.NewParam("i", ir.I64)
	entry := f.NewBlock("entry")
	st := ir.StructOf(false, ir.I8, ir.ArrayOf(ir.I32, 4))
	p := entry.NewAlloca("p", st, nil)
	q := entry.NewGEP("q", st, p, ir.NewInt(ir.I64, 0), ir.NewInt(ir.I32, 1), i)
	entry.NewStore(v, q)
	r := entry.NewLoad("r", ir.I32, q)
	entry.NewRet(r)
	return f
}
