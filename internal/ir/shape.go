package ir

// maxShiftGrowth bounds the width growth assumed for a left shift by a
// non-constant amount.
const maxShiftGrowth = 1 << 16

// ShapeOf infers the width and signedness of an expression.
func ShapeOf(e Expr) (SignalType, error) {
	switch n := e.(type) {
	case *Constant:
		return SignalType{Width: n.Width, Signed: n.Signed}, nil
	case *SignalRef:
		if n.Signal == nil {
			return SignalType{}, &MalformedExpressionError{Node: n, Reason: "nil signal"}
		}
		return n.Signal.Type, nil
	case *ClockRef, *ResetRef:
		return SignalType{Width: 1}, nil
	case *UnaryOp:
		t, err := ShapeOf(n.Operand)
		if err != nil {
			return SignalType{}, err
		}
		if n.Op == Neg && !t.Signed {
			return SignalType{Width: t.Width + 1, Signed: true}, nil
		}
		return t, nil
	case *BinaryOp:
		return binaryShape(n)
	case *Mux:
		a, err := ShapeOf(n.IfTrue)
		if err != nil {
			return SignalType{}, err
		}
		b, err := ShapeOf(n.IfFalse)
		if err != nil {
			return SignalType{}, err
		}
		return bitwiseShape(a, b), nil
	case *Slice:
		t, err := ShapeOf(n.Base)
		if err != nil {
			return SignalType{}, err
		}
		return SignalType{Width: n.Stop - n.Start, Signed: t.Signed}, nil
	case *Concat:
		width := 0
		for _, p := range n.Parts {
			t, err := ShapeOf(p)
			if err != nil {
				return SignalType{}, err
			}
			width += t.Width
		}
		return SignalType{Width: width}, nil
	case *Replicate:
		t, err := ShapeOf(n.Value)
		if err != nil {
			return SignalType{}, err
		}
		return SignalType{Width: t.Width * n.Count}, nil
	case *ArrayProxy:
		var out SignalType
		for _, c := range n.Choices {
			t, err := ShapeOf(c)
			if err != nil {
				return SignalType{}, err
			}
			if t.Width > out.Width {
				out.Width = t.Width
			}
			out.Signed = out.Signed || t.Signed
		}
		return out, nil
	case *Part:
		return SignalType{Width: n.Width}, nil
	default:
		return SignalType{}, UnknownExpr(e)
	}
}

func binaryShape(n *BinaryOp) (SignalType, error) {
	a, err := ShapeOf(n.LHS)
	if err != nil {
		return SignalType{}, err
	}
	b, err := ShapeOf(n.RHS)
	if err != nil {
		return SignalType{}, err
	}
	switch n.Op {
	case Add, Sub:
		t := bitwiseShape(a, b)
		t.Width++
		return t, nil
	case Mul:
		switch {
		case !a.Signed && !b.Signed:
			return SignalType{Width: a.Width + b.Width}, nil
		case a.Signed && b.Signed:
			return SignalType{Width: a.Width + b.Width - 1, Signed: true}, nil
		default:
			return SignalType{Width: a.Width + b.Width, Signed: true}, nil
		}
	case Shl:
		extra := maxShiftGrowth
		if c, ok := n.RHS.(*Constant); ok {
			extra = int(c.Value)
		} else if b.Width < 16 {
			extra = 1<<uint(b.Width) - 1
		}
		return SignalType{Width: a.Width + extra, Signed: a.Signed}, nil
	case Shr:
		width := a.Width
		if c, ok := n.RHS.(*Constant); ok {
			width -= int(c.Value)
		}
		if width < 1 {
			width = 1
		}
		return SignalType{Width: width, Signed: a.Signed}, nil
	case And, Or, Xor:
		return bitwiseShape(a, b), nil
	case Equal, Ne, Lt, Le, Gt, Ge:
		return SignalType{Width: 1}, nil
	default:
		return SignalType{}, &MalformedExpressionError{Node: n, Reason: "unknown binary operator"}
	}
}

// bitwiseShape gives the common shape of two operands, adding a sign bit to
// the unsigned one when signedness differs.
func bitwiseShape(a, b SignalType) SignalType {
	switch {
	case !a.Signed && !b.Signed:
		return SignalType{Width: max(a.Width, b.Width)}
	case a.Signed && b.Signed:
		return SignalType{Width: max(a.Width, b.Width), Signed: true}
	case !a.Signed && b.Signed:
		return SignalType{Width: max(a.Width+1, b.Width), Signed: true}
	default:
		return SignalType{Width: max(a.Width, b.Width+1), Signed: true}
	}
}
