package passes

import "fhdl/internal/ir"

// rewriter rebuilds statements and expressions bottom-up, applying visit to
// every expression node after its children have been rebuilt. Statements
// queued with emit are placed right after the statement being rebuilt.
type rewriter struct {
	visit   func(e ir.Expr, target bool) (ir.Expr, error)
	pending []ir.Stmt
}

func (r *rewriter) emit(s ir.Stmt) {
	r.pending = append(r.pending, s)
}

func (r *rewriter) block(b ir.Block) (ir.Block, error) {
	if b == nil {
		return nil, nil
	}
	out := make(ir.Block, 0, len(b))
	for _, s := range b {
		saved := r.pending
		r.pending = nil
		ns, err := r.stmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ns)
		out = append(out, r.pending...)
		r.pending = saved
	}
	return out, nil
}

func (r *rewriter) stmt(s ir.Stmt) (ir.Stmt, error) {
	switch n := s.(type) {
	case *ir.Assign:
		target, err := r.expr(n.Target, true)
		if err != nil {
			return nil, err
		}
		value, err := r.expr(n.Value, false)
		if err != nil {
			return nil, err
		}
		return &ir.Assign{Target: target, Value: value, Kind: n.Kind}, nil
	case *ir.If:
		cond, err := r.expr(n.Cond, false)
		if err != nil {
			return nil, err
		}
		then, err := r.block(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := r.block(n.Else)
		if err != nil {
			return nil, err
		}
		return &ir.If{Cond: cond, Then: then, Else: els}, nil
	case *ir.Case:
		test, err := r.expr(n.Test, false)
		if err != nil {
			return nil, err
		}
		out := &ir.Case{Test: test, Arms: make([]ir.CaseArm, 0, len(n.Arms))}
		for _, arm := range n.Arms {
			body, err := r.block(arm.Body)
			if err != nil {
				return nil, err
			}
			out.Arms = append(out.Arms, ir.CaseArm{Key: arm.Key, Body: body})
		}
		if out.Default, err = r.block(n.Default); err != nil {
			return nil, err
		}
		return out, nil
	case *ir.Display:
		out := &ir.Display{Format: n.Format, Args: make([]ir.DisplayArg, 0, len(n.Args))}
		for _, a := range n.Args {
			if a.Expr != nil {
				e, err := r.expr(a.Expr, false)
				if err != nil {
					return nil, err
				}
				a = ir.DisplayArg{Expr: e}
			}
			out.Args = append(out.Args, a)
		}
		return out, nil
	case *ir.Finish:
		return n, nil
	default:
		return nil, ir.UnknownStmt(s)
	}
}

func (r *rewriter) expr(e ir.Expr, target bool) (ir.Expr, error) {
	var out ir.Expr
	switch n := e.(type) {
	case *ir.Constant, *ir.SignalRef, *ir.ClockRef, *ir.ResetRef:
		out = e
	case *ir.UnaryOp:
		operand, err := r.expr(n.Operand, false)
		if err != nil {
			return nil, err
		}
		out = &ir.UnaryOp{Op: n.Op, Operand: operand}
	case *ir.BinaryOp:
		lhs, err := r.expr(n.LHS, false)
		if err != nil {
			return nil, err
		}
		rhs, err := r.expr(n.RHS, false)
		if err != nil {
			return nil, err
		}
		out = &ir.BinaryOp{Op: n.Op, LHS: lhs, RHS: rhs}
	case *ir.Mux:
		parts, err := r.exprs([]ir.Expr{n.Cond, n.IfTrue, n.IfFalse}, false)
		if err != nil {
			return nil, err
		}
		out = &ir.Mux{Cond: parts[0], IfTrue: parts[1], IfFalse: parts[2]}
	case *ir.Slice:
		base, err := r.expr(n.Base, target)
		if err != nil {
			return nil, err
		}
		out = &ir.Slice{Base: base, Start: n.Start, Stop: n.Stop}
	case *ir.Concat:
		parts, err := r.exprs(n.Parts, target)
		if err != nil {
			return nil, err
		}
		out = &ir.Concat{Parts: parts}
	case *ir.Replicate:
		v, err := r.expr(n.Value, false)
		if err != nil {
			return nil, err
		}
		out = &ir.Replicate{Value: v, Count: n.Count}
	case *ir.ArrayProxy:
		choices, err := r.exprs(n.Choices, target)
		if err != nil {
			return nil, err
		}
		key, err := r.expr(n.Key, false)
		if err != nil {
			return nil, err
		}
		out = &ir.ArrayProxy{Choices: choices, Key: key}
	case *ir.Part:
		base, err := r.expr(n.Base, target)
		if err != nil {
			return nil, err
		}
		offset, err := r.expr(n.Offset, false)
		if err != nil {
			return nil, err
		}
		out = &ir.Part{Base: base, Offset: offset, Width: n.Width, Stride: n.Stride}
	default:
		return nil, ir.UnknownExpr(e)
	}
	if r.visit == nil {
		return out, nil
	}
	return r.visit(out, target)
}

func (r *rewriter) exprs(in []ir.Expr, target bool) ([]ir.Expr, error) {
	out := make([]ir.Expr, len(in))
	for i, e := range in {
		v, err := r.expr(e, target)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fragment rewrites every block and special of f into a clone. Specials are
// rewritten through MapExprs; statements they need are added to comb.
func (r *rewriter) fragment(f *ir.Fragment, comb *ir.Block) (*ir.Fragment, error) {
	out := f.Clone()
	var err error
	if out.Comb, err = r.block(f.Comb); err != nil {
		return nil, err
	}
	for _, name := range f.SyncDomains() {
		if out.Sync[name], err = r.block(f.Sync[name]); err != nil {
			return nil, err
		}
	}
	for i, sp := range f.Specials {
		r.pending = nil
		mapped, err := sp.MapExprs(func(e ir.Expr, target bool) (ir.Expr, error) {
			return r.expr(e, target)
		})
		if err != nil {
			return nil, err
		}
		out.Specials[i] = mapped
		*comb = append(*comb, r.pending...)
		r.pending = nil
	}
	return out, nil
}
