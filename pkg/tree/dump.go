package tree

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/xplshn/lltree/pkg/lower"
)

// Dump writes fn as one s-expression per statement, unit by unit.
func Dump(w io.Writer, fn *lower.Function) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function @%s slots=%d params=%s\n", fn.Name, fn.SlotCount, ints(fn.ParamSlots))
	for _, u := range fn.Units {
		fmt.Fprintf(&sb, "unit %d %s\n", u.Index, u.Name)
		if len(u.EntryInvalidate) > 0 { fmt.Fprintf(&sb, "  entry-invalidate %s\n", ints(u.EntryInvalidate)) }
		for _, s := range u.Stmts {
			sb.WriteString("  " + Format(s) + "\n")
		}
		sb.WriteString("  " + Format(u.Control) + "\n")
		if len(u.ExitInvalidate) > 0 { fmt.Fprintf(&sb, "  exit-invalidate %s\n", ints(u.ExitInvalidate)) }
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// DumpString is Dump into a string.
func DumpString(fn *lower.Function) string {
	var sb strings.Builder
	_ = Dump(&sb, fn)
	return sb.String()
}

// Fingerprint hashes the dump of fn. Equal trees hash equal.
func Fingerprint(fn *lower.Function) uint64 {
	d := xxhash.New()
	_ = Dump(d, fn)
	return d.Sum64()
}

func ints(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func list(head string, xs ...string) string {
	if len(xs) == 0 { return "(" + head + ")" }
	return "(" + head + " " + strings.Join(xs, " ") + ")"
}

func exprs(xs []lower.Expr) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = Format(x)
	}
	return out
}

func assigns(as []lower.Assign) string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = list("%"+strconv.Itoa(a.Slot), Format(a.Value))
	}
	return list("phis", parts...)
}

func slot(n int) string { return "%" + strconv.Itoa(n) }

// Format renders any node built by Factory.
func Format(n any) string {
	switch n := n.(type) {
	case nil:
		return "()"
	case *Const:
		return list("const", n.Value.Type().String(), n.Value.String())
	case *Global:
		return list("global", "@"+n.Name)
	case *Read:
		return list("read", slot(n.Slot), n.Type.String())
	case *Binary:
		return list(n.Op.String(), n.Type.String(), Format(n.X), Format(n.Y))
	case *Unary:
		return list(n.Op.String(), n.Type.String(), Format(n.X))
	case *Cast:
		return list(n.Op.String(), n.From.String(), n.To.String(), Format(n.X))
	case *Compare:
		return list("cmp", n.Pred.String(), n.Type.String(), Format(n.X), Format(n.Y))
	case *Select:
		return list("select", n.Type.String(), Format(n.Cond), Format(n.X), Format(n.Y))
	case *Alloca:
		parts := []string{n.Elem.String(), fmt.Sprintf("size=%d", n.Size), fmt.Sprintf("align=%d", n.Align)}
		if n.Count != nil { parts = append(parts, Format(n.Count)) }
		return list("alloca", parts...)
	case *Load:
		head := "load"
		if n.Volatile { head = "load-volatile" }
		return list(head, n.Type.String(), Format(n.Ptr))
	case *Offset:
		parts := []string{Format(n.Base), strconv.FormatInt(n.Offset, 10)}
		for _, s := range n.Indices {
			parts = append(parts, list("*", Format(s.Index), strconv.FormatInt(s.Stride, 10)))
		}
		return list("offset", parts...)
	case *Call:
		return list("call", append([]string{Format(n.Callee)}, exprs(n.Args)...)...)
	case *ExtractValue:
		return list("extractvalue", n.Type.String(), Format(n.X), strconv.FormatInt(n.Offset, 10))
	case *InsertValue:
		return list("insertvalue", n.Agg.String(), Format(n.X), Format(n.Elem), strconv.FormatInt(n.Offset, 10))
	case *ExtractElement:
		return list("extractelement", n.Vec.String(), Format(n.X), Format(n.Index))
	case *InsertElement:
		return list("insertelement", n.Vec.String(), Format(n.X), Format(n.Elem), Format(n.Index))
	case *ShuffleVector:
		return list("shufflevector", n.Type.String(), Format(n.X), Format(n.Y), Format(n.Mask))
	case *AtomicRMW:
		return list("atomicrmw", n.Op.String(), n.Type.String(), Format(n.Ptr), Format(n.Val))
	case *CmpXchg:
		return list("cmpxchg", n.Type.String(), Format(n.Ptr), Format(n.Cmp), Format(n.New))
	case *VAArg:
		return list("va_arg", n.Type.String(), Format(n.List))

	case *Write:
		return list("write", slot(n.Slot), Format(n.Value))
	case *Store:
		head := "store"
		if n.Volatile { head = "store-volatile" }
		return list(head, n.Type.String(), Format(n.Ptr), Format(n.Value))
	case *Eval:
		return list("eval", Format(n.X))
	case *Fence:
		return list("fence")
	case *Invalidate:
		parts := make([]string, len(n.Slots))
		for i, s := range n.Slots {
			parts[i] = slot(s)
		}
		return list("invalidate", parts...)
	case *Located:
		return Format(n.Stmt) + " ; " + n.Loc.String()

	case *Return:
		if n.X == nil { return list("return") }
		return list("return", Format(n.X))
	case *Jump:
		return list("jump", strconv.Itoa(n.Target), assigns(n.Phis))
	case *CondJump:
		return list("if", Format(n.Cond), list("jump", strconv.Itoa(n.Then), assigns(n.Phis[0])), list("jump", strconv.Itoa(n.Else), assigns(n.Phis[1])))
	case *Switch:
		parts := []string{Format(n.X), list("default", strconv.Itoa(n.Targets[0]), assigns(n.Phis[0]))}
		for i, c := range n.Cases {
			parts = append(parts, list("case", Format(c), strconv.Itoa(n.Targets[i+1]), assigns(n.Phis[i+1])))
		}
		return list("switch", parts...)
	case *IndirectJump:
		parts := []string{Format(n.Addr)}
		for i, t := range n.Targets {
			parts = append(parts, list("jump", strconv.Itoa(t), assigns(n.Phis[i])))
		}
		return list("indirect", parts...)
	case *Unreachable:
		return list("unreachable")
	}
	return fmt.Sprintf("(? %T)", n)
}
