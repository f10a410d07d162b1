package llimport

import (
	"github.com/llir/llvm/ir/types"
	"github.com/nikandfor/errors"

	"github.com/xplshn/lltree/pkg/ir"
)

// typeCache converts llir types once each. Named structs are entered before
// their fields so self references terminate.
type typeCache map[types.Type]*ir.Type

func (tc typeCache) conv(t types.Type) (*ir.Type, error) {
	if r, ok := tc[t]; ok { return r, nil }

	var r *ir.Type
	switch t := t.(type) {
	case *types.VoidType:
		r = ir.Void
	case *types.IntType:
		r = ir.IntType(int(t.BitSize))
	case *types.FloatType:
		switch t.Kind {
		case types.FloatKindHalf: r = ir.Half
		case types.FloatKindFloat: r = ir.F32
		case types.FloatKindDouble: r = ir.Double
		case types.FloatKindX86_FP80: r = ir.FP80
		case types.FloatKindFP128, types.FloatKindPPC_FP128: r = ir.FP128
		default: return nil, errors.Wrap(ErrUnsupported, "float type %v", t)
		}
	case *types.PointerType:
		r = ir.Ptr
	case *types.LabelType:
		r = ir.Label
	case *types.MetadataType:
		r = ir.Metadata
	case *types.TokenType:
		r = ir.Token
	case *types.VectorType:
		e, err := tc.conv(t.ElemType)
		if err != nil { return nil, err }
		r = ir.VectorOf(e, int(t.Len))
	case *types.ArrayType:
		e, err := tc.conv(t.ElemType)
		if err != nil { return nil, err }
		r = ir.ArrayOf(e, int(t.Len))
	case *types.StructType:
		st := &ir.Type{Kind: ir.KindStruct, Packed: t.Packed, Name: t.Name()}
		tc[t] = st
		for i, f := range t.Fields {
			ft, err := tc.conv(f)
			if err != nil { return nil, errors.Wrap(err, "field %d of %v", i, t) }
			st.Fields = append(st.Fields, ft)
		}
		return st, nil
	case *types.FuncType:
		ret, err := tc.conv(t.RetType)
		if err != nil { return nil, err }
		params := make([]*ir.Type, len(t.Params))
		for i, p := range t.Params {
			if params[i], err = tc.conv(p); err != nil { return nil, err }
		}
		r = ir.FuncOf(ret, params, t.Variadic)
	default:
		return nil, errors.Wrap(ErrUnsupported, "type %v", t)
	}

	tc[t] = r
	return r, nil
}
