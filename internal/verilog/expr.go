package verilog

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"fhdl/internal/ir"
	"fhdl/internal/namer"
)

// PrintExpr renders e and reports whether the rendered expression is
// signed. Operands of mixed signedness are promoted so the result follows
// two's-complement rules.
func PrintExpr(ns *namer.Namespace, e ir.Expr) (string, bool, error) {
	switch n := e.(type) {
	case *ir.Constant:
		return printConstant(n), n.Signed, nil
	case *ir.SignalRef:
		name, err := signalName(ns, n.Signal)
		if err != nil {
			return "", false, err
		}
		return name, n.Signal.Type.Signed, nil
	case *ir.UnaryOp:
		r, s, err := PrintExpr(ns, n.Operand)
		if err != nil {
			return "", false, err
		}
		if n.Op == ir.Neg {
			if !s {
				r = toSigned(r)
			}
			return "(-" + r + ")", true, nil
		}
		return "(" + n.Op.Symbol() + r + ")", s, nil
	case *ir.BinaryOp:
		r1, s1, err := PrintExpr(ns, n.LHS)
		if err != nil {
			return "", false, err
		}
		r2, s2, err := PrintExpr(ns, n.RHS)
		if err != nil {
			return "", false, err
		}
		if !n.Op.IsShift() {
			r1, r2 = promote(r1, s1, r2, s2)
		}
		return fmt.Sprintf("(%s %s %s)", r1, n.Op.Symbol(), r2), s1 || s2, nil
	case *ir.Mux:
		rc, _, err := PrintExpr(ns, n.Cond)
		if err != nil {
			return "", false, err
		}
		rt, st, err := PrintExpr(ns, n.IfTrue)
		if err != nil {
			return "", false, err
		}
		rf, sf, err := PrintExpr(ns, n.IfFalse)
		if err != nil {
			return "", false, err
		}
		rt, rf = promote(rt, st, rf, sf)
		return fmt.Sprintf("(%s ? %s : %s)", rc, rt, rf), st || sf, nil
	case *ir.Slice:
		return printSlice(ns, n)
	case *ir.Concat:
		parts := make([]string, len(n.Parts))
		for i, p := range n.Parts {
			r, _, err := PrintExpr(ns, p)
			if err != nil {
				return "", false, err
			}
			parts[len(n.Parts)-1-i] = r
		}
		return "{" + strings.Join(parts, ", ") + "}", false, nil
	case *ir.Replicate:
		r, _, err := PrintExpr(ns, n.Value)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("{%d{%s}}", n.Count, r), false, nil
	case *ir.ClockRef, *ir.ResetRef, *ir.ArrayProxy, *ir.Part:
		return "", false, &ir.MalformedExpressionError{Node: e, Reason: "derived expression survived lowering"}
	default:
		return "", false, ir.UnknownExpr(e)
	}
}

func signalName(ns *namer.Namespace, sig *ir.Signal) (string, error) {
	if sig == nil {
		return "", &ir.MalformedExpressionError{Reason: "nil signal"}
	}
	name, ok := ns.Lookup(sig.DUID)
	if !ok {
		return "", &ir.MalformedExpressionError{Node: ir.Ref(sig), Reason: fmt.Sprintf("signal %s has no allocated name", sig)}
	}
	return name, nil
}

func toSigned(r string) string {
	return "$signed({1'd0, " + r + "})"
}

// promote widens the unsigned side of a mixed-signedness pair.
func promote(r1 string, s1 bool, r2 string, s2 bool) (string, string) {
	switch {
	case s2 && !s1:
		r1 = toSigned(r1)
	case s1 && !s2:
		r2 = toSigned(r2)
	}
	return r1, r2
}

// printConstant renders W'dV, or W'sdV with the two's-complement digits of
// V for signed constants. Verbatim constants print their plain value.
func printConstant(c *ir.Constant) string {
	if c.Verbatim {
		return strconv.FormatInt(c.Value, 10)
	}
	v := big.NewInt(c.Value)
	if v.Sign() < 0 {
		v.Add(v, new(big.Int).Lsh(big.NewInt(1), uint(c.Width)))
	}
	if c.Signed {
		return fmt.Sprintf("%d'sd%s", c.Width, v)
	}
	return fmt.Sprintf("%d'd%s", c.Width, v)
}

func printSlice(ns *namer.Namespace, n *ir.Slice) (string, bool, error) {
	if n.Stop-n.Start < 1 {
		return "", false, &ir.MalformedExpressionError{Node: n, Reason: "empty slice"}
	}
	r, s, err := PrintExpr(ns, n.Base)
	if err != nil {
		return "", false, err
	}
	if ref, ok := n.Base.(*ir.SignalRef); ok && ref.Signal.Type.Width == 1 {
		return r, s, nil
	}
	if n.Stop-n.Start == 1 {
		return fmt.Sprintf("%s[%d]", r, n.Start), s, nil
	}
	return fmt.Sprintf("%s[%d:%d]", r, n.Stop-1, n.Start), s, nil
}

// printDecl renders the "signed [w-1:0] name" part of a declaration.
func printDecl(ns *namer.Namespace, sig *ir.Signal) (string, error) {
	name, err := signalName(ns, sig)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if sig.Type.Signed {
		b.WriteString("signed ")
	}
	if sig.Type.Width > 1 {
		fmt.Fprintf(&b, "[%d:0] ", sig.Type.Width-1)
	}
	b.WriteString(name)
	return b.String(), nil
}
