package llimport

import (
	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
	"github.com/nikandfor/errors"

	"github.com/xplshn/lltree/pkg/ir"
)

func (im *importer) def(v any) *ir.Local {
	if x, ok := v.(value.Value); ok { return im.locals[x] }
	return nil
}

func (im *importer) inst(inst llir.Instruction) (ir.Instruction, error) {
	d := im.def(inst)

	switch inst := inst.(type) {
	// binary
	case *llir.InstAdd:
		return im.binary(d, ir.Add, inst.X, inst.Y)
	case *llir.InstSub:
		return im.binary(d, ir.Sub, inst.X, inst.Y)
	case *llir.InstMul:
		return im.binary(d, ir.Mul, inst.X, inst.Y)
	case *llir.InstUDiv:
		return im.binary(d, ir.UDiv, inst.X, inst.Y)
	case *llir.InstSDiv:
		return im.binary(d, ir.SDiv, inst.X, inst.Y)
	case *llir.InstURem:
		return im.binary(d, ir.URem, inst.X, inst.Y)
	case *llir.InstSRem:
		return im.binary(d, ir.SRem, inst.X, inst.Y)
	case *llir.InstShl:
		return im.binary(d, ir.Shl, inst.X, inst.Y)
	case *llir.InstLShr:
		return im.binary(d, ir.LShr, inst.X, inst.Y)
	case *llir.InstAShr:
		return im.binary(d, ir.AShr, inst.X, inst.Y)
	case *llir.InstAnd:
		return im.binary(d, ir.And, inst.X, inst.Y)
	case *llir.InstOr:
		return im.binary(d, ir.Or, inst.X, inst.Y)
	case *llir.InstXor:
		return im.binary(d, ir.Xor, inst.X, inst.Y)
	case *llir.InstFAdd:
		return im.binary(d, ir.FAdd, inst.X, inst.Y)
	case *llir.InstFSub:
		return im.binary(d, ir.FSub, inst.X, inst.Y)
	case *llir.InstFMul:
		return im.binary(d, ir.FMul, inst.X, inst.Y)
	case *llir.InstFDiv:
		return im.binary(d, ir.FDiv, inst.X, inst.Y)
	case *llir.InstFRem:
		return im.binary(d, ir.FRem, inst.X, inst.Y)

	// unary
	case *llir.InstFNeg:
		x, err := im.value(inst.X)
		if err != nil { return nil, err }
		return &ir.Unary{Dst: d, Op: ir.FNeg, X: x}, nil
	case *llir.InstFreeze:
		x, err := im.value(inst.X)
		if err != nil { return nil, err }
		return &ir.Unary{Dst: d, Op: ir.Freeze, X: x}, nil

	// conversion
	case *llir.InstTrunc:
		return im.cast(d, ir.Trunc, inst.From)
	case *llir.InstZExt:
		return im.cast(d, ir.ZExt, inst.From)
	case *llir.InstSExt:
		return im.cast(d, ir.SExt, inst.From)
	case *llir.InstFPTrunc:
		return im.cast(d, ir.FPTrunc, inst.From)
	case *llir.InstFPExt:
		return im.cast(d, ir.FPExt, inst.From)
	case *llir.InstFPToUI:
		return im.cast(d, ir.FPToUI, inst.From)
	case *llir.InstFPToSI:
		return im.cast(d, ir.FPToSI, inst.From)
	case *llir.InstUIToFP:
		return im.cast(d, ir.UIToFP, inst.From)
	case *llir.InstSIToFP:
		return im.cast(d, ir.SIToFP, inst.From)
	case *llir.InstPtrToInt:
		return im.cast(d, ir.PtrToInt, inst.From)
	case *llir.InstIntToPtr:
		return im.cast(d, ir.IntToPtr, inst.From)
	case *llir.InstBitCast:
		return im.cast(d, ir.BitCast, inst.From)
	case *llir.InstAddrSpaceCast:
		return im.cast(d, ir.AddrSpaceCast, inst.From)

	// comparison and select
	case *llir.InstICmp:
		p, ok := ir.ParseIntPred(inst.Pred.String())
		if !ok { return nil, errors.Wrap(ErrUnsupported, "icmp predicate %v", inst.Pred) }
		return im.compare(d, p, inst.X, inst.Y)
	case *llir.InstFCmp:
		p, ok := ir.ParseFloatPred(inst.Pred.String())
		if !ok { return nil, errors.Wrap(ErrUnsupported, "fcmp predicate %v", inst.Pred) }
		return im.compare(d, p, inst.X, inst.Y)
	case *llir.InstSelect:
		xs, err := im.values(inst.Cond, inst.ValueTrue, inst.ValueFalse)
		if err != nil { return nil, err }
		return &ir.Select{Dst: d, Cond: xs[0], X: xs[1], Y: xs[2]}, nil

	// memory
	case *llir.InstAlloca:
		elem, err := im.types.conv(inst.ElemType)
		if err != nil { return nil, err }
		n, err := im.value(inst.NElems)
		if err != nil { return nil, err }
		return &ir.Alloca{Dst: d, Elem: elem, Count: n}, nil
	case *llir.InstLoad:
		src, err := im.value(inst.Src)
		if err != nil { return nil, err }
		return &ir.Load{Dst: d, Src: src, Volatile: inst.Volatile}, nil
	case *llir.InstStore:
		xs, err := im.values(inst.Src, inst.Dst)
		if err != nil { return nil, err }
		return &ir.Store{Val: xs[0], Dst: xs[1], Volatile: inst.Volatile}, nil
	case *llir.InstGetElementPtr:
		elem, err := im.types.conv(inst.ElemType)
		if err != nil { return nil, err }
		xs, err := im.values(append([]value.Value{inst.Src}, inst.Indices...)...)
		if err != nil { return nil, err }
		return &ir.GetElementPtr{Dst: d, Elem: elem, Src: xs[0], Indices: xs[1:]}, nil
	case *llir.InstFence:
		return &ir.Fence{}, nil
	case *llir.InstAtomicRMW:
		op, ok := ir.ParseAtomicOp(inst.Op.String())
		if !ok { return nil, errors.Wrap(ErrUnsupported, "atomicrmw %v", inst.Op) }
		xs, err := im.values(inst.Dst, inst.X)
		if err != nil { return nil, err }
		return &ir.AtomicRMW{Dst: d, Op: op, Ptr: xs[0], Val: xs[1]}, nil
	case *llir.InstCmpXchg:
		xs, err := im.values(inst.Ptr, inst.Cmp, inst.New)
		if err != nil { return nil, err }
		return &ir.CmpXchg{Dst: d, Ptr: xs[0], Cmp: xs[1], New: xs[2]}, nil

	// aggregates and vectors
	case *llir.InstExtractValue:
		x, err := im.value(inst.X)
		if err != nil { return nil, err }
		return &ir.ExtractValue{Dst: d, Agg: x, Indices: ints(inst.Indices)}, nil
	case *llir.InstInsertValue:
		xs, err := im.values(inst.X, inst.Elem)
		if err != nil { return nil, err }
		return &ir.InsertValue{Dst: d, Agg: xs[0], Elem: xs[1], Indices: ints(inst.Indices)}, nil
	case *llir.InstExtractElement:
		xs, err := im.values(inst.X, inst.Index)
		if err != nil { return nil, err }
		return &ir.ExtractElement{Dst: d, Vec: xs[0], Index: xs[1]}, nil
	case *llir.InstInsertElement:
		xs, err := im.values(inst.X, inst.Elem, inst.Index)
		if err != nil { return nil, err }
		return &ir.InsertElement{Dst: d, Vec: xs[0], Elem: xs[1], Index: xs[2]}, nil
	case *llir.InstShuffleVector:
		xs, err := im.values(inst.X, inst.Y, inst.Mask)
		if err != nil { return nil, err }
		return &ir.ShuffleVector{Dst: d, X: xs[0], Y: xs[1], Mask: xs[2]}, nil

	// other
	case *llir.InstCall:
		return im.call(d, inst)
	case *llir.InstVAArg:
		l, err := im.value(inst.ArgList)
		if err != nil { return nil, err }
		return &ir.VAArg{Dst: d, List: l}, nil
	case *llir.InstPhi:
		p := &ir.Phi{Dst: d}
		for i, in := range inst.Incs {
			x, err := im.value(in.X)
			if err != nil { return nil, errors.Wrap(err, "incoming %d", i) }
			pred, err := im.block(in.Pred)
			if err != nil { return nil, errors.Wrap(err, "incoming %d", i) }
			p.AddIncoming(x, pred)
		}
		return p, nil

	case *llir.InstLandingPad, *llir.InstCatchPad, *llir.InstCleanupPad:
		return nil, errors.Wrap(ErrUnsupported, "exception handling")
	}
	return nil, errors.Wrap(ErrUnsupported, "instruction %T", inst)
}

func (im *importer) binary(d *ir.Local, op ir.BinOp, x, y value.Value) (ir.Instruction, error) {
	xs, err := im.values(x, y)
	if err != nil { return nil, err }
	return &ir.Binary{Dst: d, Op: op, X: xs[0], Y: xs[1]}, nil
}

func (im *importer) cast(d *ir.Local, op ir.CastOp, from value.Value) (ir.Instruction, error) {
	x, err := im.value(from)
	if err != nil { return nil, err }
	return &ir.Cast{Dst: d, Op: op, X: x}, nil
}

func (im *importer) compare(d *ir.Local, p ir.Pred, x, y value.Value) (ir.Instruction, error) {
	xs, err := im.values(x, y)
	if err != nil { return nil, err }
	return &ir.Compare{Dst: d, Pred: p, X: xs[0], Y: xs[1]}, nil
}

func (im *importer) call(d *ir.Local, inst *llir.InstCall) (ir.Instruction, error) {
	callee, err := im.value(inst.Callee)
	if err != nil { return nil, errors.Wrap(err, "callee") }
	args, err := im.values(inst.Args...)
	if err != nil { return nil, err }
	sig, err := im.types.conv(inst.Sig())
	if err != nil { return nil, err }
	return &ir.Call{Dst: d, Callee: callee, Args: args, Sig: sig}, nil
}

func (im *importer) term(t llir.Terminator) (ir.Instruction, error) {
	switch t := t.(type) {
	case *llir.TermRet:
		x, err := im.value(t.X)
		if err != nil { return nil, err }
		return &ir.Ret{X: x}, nil
	case *llir.TermBr:
		b, err := im.block(t.Target)
		if err != nil { return nil, err }
		return &ir.Br{Target: b}, nil
	case *llir.TermCondBr:
		c, err := im.value(t.Cond)
		if err != nil { return nil, err }
		tb, err := im.block(t.TargetTrue)
		if err != nil { return nil, err }
		fb, err := im.block(t.TargetFalse)
		if err != nil { return nil, err }
		return &ir.CondBr{Cond: c, True: tb, False: fb}, nil
	case *llir.TermSwitch:
		x, err := im.value(t.X)
		if err != nil { return nil, err }
		def, err := im.block(t.TargetDefault)
		if err != nil { return nil, err }
		sw := &ir.Switch{X: x, Default: def}
		for i, c := range t.Cases {
			v, err := im.value(c.X)
			if err != nil { return nil, errors.Wrap(err, "case %d", i) }
			k, ok := v.(ir.Constant)
			if !ok { return nil, errors.Wrap(ir.ErrMalformed, "case %d: %v is not a constant", i, v) }
			b, err := im.block(c.Target)
			if err != nil { return nil, errors.Wrap(err, "case %d", i) }
			sw.Cases = append(sw.Cases, ir.Case{Value: k, Target: b})
		}
		return sw, nil
	case *llir.TermIndirectBr:
		a, err := im.value(t.Addr)
		if err != nil { return nil, err }
		ib := &ir.IndirectBr{Addr: a}
		for _, vt := range t.ValidTargets {
			b, err := im.block(vt)
			if err != nil { return nil, err }
			ib.Targets = append(ib.Targets, b)
		}
		return ib, nil
	case *llir.TermUnreachable:
		return &ir.Unreachable{}, nil
	case *llir.TermCallBr:
		return nil, errors.Wrap(ErrUnsupported, "callbr")
	case *llir.TermInvoke, *llir.TermResume, *llir.TermCatchSwitch, *llir.TermCatchRet, *llir.TermCleanupRet:
		return nil, errors.Wrap(ErrUnsupported, "exception handling")
	}
	return nil, errors.Wrap(ErrUnsupported, "terminator %T", t)
}

func ints(xs []uint64) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = int(x)
	}
	return out
}
