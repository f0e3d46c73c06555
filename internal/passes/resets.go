package passes

import "fhdl/internal/ir"

// ResetInsertion appends, to the synchronous block of every clock domain
// that has a reset, a final If(rst) assigning each resettable target its
// reset value. Being last, it overrides the logic before it.
type ResetInsertion struct{}

// NewResetInsertion constructs the pass.
func NewResetInsertion() *ResetInsertion {
	return &ResetInsertion{}
}

// Name implements the Pass interface.
func (p *ResetInsertion) Name() string {
	return "insert-resets"
}

// Run implements the Pass interface.
func (p *ResetInsertion) Run(_ *Context, f *ir.Fragment) (*ir.Fragment, error) {
	out := f.Clone()
	for _, name := range f.SyncDomains() {
		cd, err := f.Domain(name)
		if err != nil {
			return nil, err
		}
		if cd.Rst == nil {
			continue
		}
		var stmts ir.Block
		for _, t := range ir.Targets(f.Sync[name]...).Sorted() {
			if t.ResetLess {
				continue
			}
			stmts = append(stmts, ir.Eq(ir.Ref(t), ir.Const(t.Reset, t.Type.Width, t.Type.Signed)))
		}
		if len(stmts) == 0 {
			continue
		}
		var cond ir.Expr = ir.Ref(cd.Rst)
		if cd.ResetActiveLow {
			cond = ir.Unary(ir.Not, cond)
		}
		out.Sync[name] = append(out.Sync[name], &ir.If{Cond: cond, Then: stmts})
		out.Signals.Add(cd.Rst)
	}
	return out, nil
}
