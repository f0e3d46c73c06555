package validate

import (
	"fmt"

	"fhdl/internal/diag"
	"fhdl/internal/ir"
)

// Check validates that the fragment is structurally sound before lowering:
// every node is of a known kind, every referenced clock domain is defined,
// case arms carry distinct constant keys and assignment targets are
// assignable. Each issue is reported to reporter (which may be nil); the
// returned error wraps the first one so errors.Is matches its kind.
func Check(f *ir.Fragment, reporter *diag.Reporter) error {
	if f == nil {
		return fmt.Errorf("no fragment provided for validation")
	}
	c := &checker{reporter: reporter, frag: f, specials: make(map[int]bool, len(f.Specials))}
	c.run()
	if len(c.errs) > 0 {
		return fmt.Errorf("validation failed with %d issue(s): %w", len(c.errs), c.errs[0])
	}
	return nil
}

type checker struct {
	reporter *diag.Reporter
	frag     *ir.Fragment
	errs     []error
	specials map[int]bool
}

func (c *checker) run() {
	c.checkBlock("comb", c.frag.Comb)
	for _, name := range c.frag.SyncDomains() {
		subject := "sync " + name
		if _, err := c.frag.Domain(name); err != nil {
			c.fail(subject, err)
		}
		c.checkBlock(subject, c.frag.Sync[name])
	}
	for _, sp := range c.frag.SortedSpecials() {
		c.checkSpecial(sp)
	}
}

func (c *checker) checkSpecial(sp ir.Special) {
	subject := fmt.Sprintf("special %s#%d", sp.Kind(), sp.DUID())
	if sig, ok := c.frag.Signals[sp.DUID()]; ok {
		c.fail(subject, fmt.Errorf("duid %d is already used by signal %s", sp.DUID(), sig))
	} else if c.specials[sp.DUID()] {
		c.fail(subject, fmt.Errorf("duid %d is used by another special", sp.DUID()))
	}
	c.specials[sp.DUID()] = true
	if du, ok := sp.(ir.DomainUser); ok {
		for _, name := range du.Domains() {
			if _, err := c.frag.Domain(name); err != nil {
				c.fail(subject, err)
			}
		}
	}
	for _, io := range sp.IOs() {
		c.checkExpr(subject, io.Expr)
		if io.Direction == ir.Output || io.Direction == ir.InOut {
			c.checkTarget(subject, io.Expr)
		}
	}
}

func (c *checker) checkBlock(subject string, b ir.Block) {
	_ = ir.WalkStmts(b, func(s ir.Stmt) error {
		switch n := s.(type) {
		case *ir.Assign:
			c.checkExpr(subject, n.Target)
			c.checkTarget(subject, n.Target)
			c.checkExpr(subject, n.Value)
		case *ir.If:
			c.checkExpr(subject, n.Cond)
		case *ir.Case:
			c.checkExpr(subject, n.Test)
			c.checkArms(subject, n)
		case *ir.Display:
			for i, a := range n.Args {
				switch {
				case a.Expr != nil:
					c.checkExpr(subject, a.Expr)
				case a.Text == "":
					c.fail(subject, &ir.MalformedStatementError{Node: n, Reason: fmt.Sprintf("display argument %d is empty", i)})
				}
			}
		case *ir.Finish:
		default:
			c.fail(subject, ir.UnknownStmt(s))
		}
		return nil
	})
}

func (c *checker) checkArms(subject string, n *ir.Case) {
	seen := make(map[int64]bool, len(n.Arms))
	for _, arm := range n.Arms {
		k, ok := arm.Key.(*ir.Constant)
		if !ok {
			c.fail(subject, &ir.InvalidCaseArmError{Key: arm.Key, Reason: "key is not a constant"})
			continue
		}
		if seen[k.Value] {
			c.fail(subject, &ir.InvalidCaseArmError{Key: arm.Key, Reason: fmt.Sprintf("duplicate key %d", k.Value)})
			continue
		}
		seen[k.Value] = true
	}
}

func (c *checker) checkExpr(subject string, e ir.Expr) {
	_ = ir.WalkExpr(e, func(n ir.Expr) error {
		switch x := n.(type) {
		case *ir.Constant:
			if x.Width <= 0 && !x.Verbatim {
				c.fail(subject, &ir.MalformedExpressionError{Node: x, Reason: "constant width must be positive"})
			}
		case *ir.SignalRef:
			switch {
			case x.Signal == nil:
				c.fail(subject, &ir.MalformedExpressionError{Node: x, Reason: "nil signal"})
			case x.Signal.Type.Width <= 0:
				c.fail(subject, &ir.MalformedExpressionError{Node: x, Reason: fmt.Sprintf("signal %s has width %d", x.Signal, x.Signal.Type.Width)})
			case !c.frag.Signals.Has(x.Signal) && !c.frag.IOs.Has(x.Signal):
				c.fail(subject, &ir.MalformedExpressionError{Node: x, Reason: fmt.Sprintf("signal %s is not part of the fragment", x.Signal)})
			}
		case *ir.UnaryOp, *ir.BinaryOp, *ir.Mux, *ir.Concat:
		case *ir.Slice:
			t, err := ir.ShapeOf(x.Base)
			if err != nil {
				// Reported when the walk reaches the base.
				return nil
			}
			if x.Start < 0 || x.Stop <= x.Start || x.Stop > t.Width {
				c.fail(subject, &ir.MalformedExpressionError{Node: x, Reason: fmt.Sprintf("slice [%d:%d] out of range for width %d", x.Start, x.Stop, t.Width)})
			}
		case *ir.Replicate:
			if x.Count < 1 {
				c.fail(subject, &ir.MalformedExpressionError{Node: x, Reason: "replication count must be positive"})
			}
		case *ir.ClockRef:
			if _, err := c.frag.Domain(x.Domain); err != nil {
				c.fail(subject, err)
			}
		case *ir.ResetRef:
			cd, err := c.frag.Domain(x.Domain)
			if err != nil {
				c.fail(subject, err)
			} else if cd.Rst == nil && !x.AllowResetLess {
				c.fail(subject, &ir.MalformedExpressionError{Node: x, Reason: fmt.Sprintf("clock domain %q has no reset", x.Domain)})
			}
		case *ir.ArrayProxy:
			if len(x.Choices) == 0 {
				c.fail(subject, &ir.MalformedExpressionError{Node: x, Reason: "array has no choices"})
			}
		case *ir.Part:
			if x.Width < 1 || x.Stride < 1 {
				c.fail(subject, &ir.MalformedExpressionError{Node: x, Reason: "part width and stride must be positive"})
			}
		default:
			c.fail(subject, ir.UnknownExpr(n))
		}
		return nil
	})
}

func (c *checker) checkTarget(subject string, e ir.Expr) {
	switch n := e.(type) {
	case *ir.SignalRef:
	case *ir.Slice:
		c.checkTarget(subject, n.Base)
	case *ir.Concat:
		for _, p := range n.Parts {
			c.checkTarget(subject, p)
		}
	case *ir.ArrayProxy:
		for _, ch := range n.Choices {
			c.checkTarget(subject, ch)
		}
	case *ir.Part:
		c.checkTarget(subject, n.Base)
	case nil:
	default:
		c.fail(subject, &ir.MalformedExpressionError{Node: e, Reason: "expression is not assignable"})
	}
}

func (c *checker) fail(subject string, err error) {
	c.errs = append(c.errs, err)
	if c.reporter != nil {
		c.reporter.Error(subject, err.Error())
	}
}
