package passes

import "fhdl/internal/ir"

// SliceLowering leaves only slices of plain signals: nested slices collapse,
// slices of constants fold and slices of any other expression read (or, as
// targets, drive) a proxy signal assigned combinationally.
type SliceLowering struct{}

// NewSliceLowering constructs the pass.
func NewSliceLowering() *SliceLowering {
	return &SliceLowering{}
}

// Name implements the Pass interface.
func (p *SliceLowering) Name() string {
	return "lower-slices"
}

// Run implements the Pass interface.
func (p *SliceLowering) Run(ctx *Context, f *ir.Fragment) (*ir.Fragment, error) {
	var comb ir.Block
	proxies := ir.SignalSet{}
	r := &rewriter{}
	r.visit = func(e ir.Expr, target bool) (ir.Expr, error) {
		s, ok := e.(*ir.Slice)
		if !ok {
			return e, nil
		}
		switch base := s.Base.(type) {
		case *ir.SignalRef:
			return s, nil
		case *ir.Slice:
			return &ir.Slice{Base: base.Base, Start: base.Start + s.Start, Stop: base.Start + s.Stop}, nil
		case *ir.Constant:
			return ir.Const(base.Value>>uint(s.Start), s.Stop-s.Start, base.Signed), nil
		}
		t, err := ir.ShapeOf(s.Base)
		if err != nil {
			return nil, err
		}
		proxy := ctx.Alloc.Signal("slice_proxy", t.Width)
		proxy.Type.Signed = t.Signed
		proxies.Add(proxy)
		if target {
			comb = append(comb, ir.Eq(s.Base, ir.Ref(proxy)))
		} else {
			comb = append(comb, ir.Eq(ir.Ref(proxy), s.Base))
		}
		return &ir.Slice{Base: ir.Ref(proxy), Start: s.Start, Stop: s.Stop}, nil
	}
	out, err := r.fragment(f, &comb)
	if err != nil {
		return nil, err
	}
	out.Comb = append(out.Comb, comb...)
	out.Signals.Union(proxies)
	return out, nil
}
