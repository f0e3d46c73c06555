package passes

import (
	"fmt"

	"fhdl/internal/ir"
)

// BasicLowering removes the derived expression forms: clock and reset
// references resolve to domain signals, variable-offset parts become arrays
// of slices and arrays become case statements over a temporary. Running it
// on an already lowered fragment changes nothing.
type BasicLowering struct{}

// NewBasicLowering constructs the pass.
func NewBasicLowering() *BasicLowering {
	return &BasicLowering{}
}

// Name implements the Pass interface.
func (p *BasicLowering) Name() string {
	return "lower-basics"
}

type basicLowerer struct {
	ctx   *Context
	frag  *ir.Fragment
	r     *rewriter
	comb  ir.Block
	added ir.SignalSet
}

// Run implements the Pass interface.
func (p *BasicLowering) Run(ctx *Context, f *ir.Fragment) (*ir.Fragment, error) {
	l := &basicLowerer{ctx: ctx, frag: f, added: ir.SignalSet{}}
	l.r = &rewriter{visit: l.visit}
	out, err := l.r.fragment(f, &l.comb)
	if err != nil {
		return nil, err
	}
	out.Comb = append(out.Comb, l.comb...)
	out.Signals.Union(l.added)
	return out, nil
}

func (l *basicLowerer) visit(e ir.Expr, target bool) (ir.Expr, error) {
	switch n := e.(type) {
	case *ir.ClockRef:
		cd, err := l.frag.Domain(n.Domain)
		if err != nil {
			return nil, err
		}
		l.added.Add(cd.Clk)
		return ir.Ref(cd.Clk), nil
	case *ir.ResetRef:
		cd, err := l.frag.Domain(n.Domain)
		if err != nil {
			return nil, err
		}
		if cd.Rst == nil {
			if !n.AllowResetLess {
				return nil, &ir.MalformedExpressionError{Node: n, Reason: fmt.Sprintf("clock domain %q has no reset", n.Domain)}
			}
			return ir.Const(0, 1, false), nil
		}
		l.added.Add(cd.Rst)
		return ir.Ref(cd.Rst), nil
	case *ir.Part:
		return l.lowerPart(n, target)
	case *ir.ArrayProxy:
		return l.lowerArray(n, target)
	}
	return e, nil
}

func (l *basicLowerer) lowerPart(n *ir.Part, target bool) (ir.Expr, error) {
	base := n.Base
	t, err := ir.ShapeOf(base)
	if err != nil {
		return nil, err
	}
	if _, ok := base.(*ir.SignalRef); !ok {
		proxy := l.ctx.Alloc.Signal("part_proxy", t.Width)
		proxy.Type.Signed = t.Signed
		l.added.Add(proxy)
		if target {
			l.comb = append(l.comb, ir.Eq(base, ir.Ref(proxy)))
		} else {
			l.comb = append(l.comb, ir.Eq(ir.Ref(proxy), base))
		}
		base = ir.Ref(proxy)
	}
	offsetShape, err := ir.ShapeOf(n.Offset)
	if err != nil {
		return nil, err
	}
	limit := 1 << 16
	if offsetShape.Width < 16 {
		limit = 1 << uint(offsetShape.Width)
	}
	var choices []ir.Expr
	for i := 0; i < limit; i++ {
		start := i * n.Stride
		if start+n.Width > t.Width {
			break
		}
		choices = append(choices, &ir.Slice{Base: base, Start: start, Stop: start + n.Width})
	}
	if len(choices) == 0 {
		stop := n.Width
		if stop > t.Width {
			stop = t.Width
		}
		choices = append(choices, &ir.Slice{Base: base, Start: 0, Stop: stop})
	}
	return l.lowerArray(&ir.ArrayProxy{Choices: choices, Key: n.Offset}, target)
}

func (l *basicLowerer) lowerArray(n *ir.ArrayProxy, target bool) (ir.Expr, error) {
	t, err := ir.ShapeOf(n)
	if err != nil {
		return nil, err
	}
	opts := []ir.SignalOption{ir.AsVariable()}
	if t.Signed {
		opts = append(opts, ir.Signed())
	}
	muxed := l.ctx.Alloc.Signal("array_muxed", t.Width, opts...)
	l.added.Add(muxed)
	keyShape, err := ir.ShapeOf(n.Key)
	if err != nil {
		return nil, err
	}
	reachable := len(n.Choices)
	if keyShape.Width < 31 && 1<<uint(keyShape.Width) < reachable {
		reachable = 1 << uint(keyShape.Width)
	}
	// The last reachable choice also covers out-of-range keys.
	sel := &ir.Case{Test: n.Key}
	for i, choice := range n.Choices[:reachable] {
		var body ir.Block
		if target {
			body = ir.Block{ir.Eq(choice, ir.Ref(muxed))}
		} else {
			body = ir.Block{ir.Eq(ir.Ref(muxed), choice)}
		}
		if i == reachable-1 {
			sel.Default = body
			break
		}
		sel.Arms = append(sel.Arms, ir.CaseArm{Key: ir.Const(int64(i), keyShape.Width, false), Body: body})
	}
	if target {
		l.r.emit(sel)
	} else {
		l.comb = append(l.comb, sel)
	}
	return ir.Ref(muxed), nil
}
