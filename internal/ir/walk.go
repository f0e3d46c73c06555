package ir

import "sort"

// ExprUse is one expression directly held by a statement.
type ExprUse struct {
	Expr   Expr
	Target bool
}

// StmtExprs lists the expressions held directly by s, not those of nested
// statements.
func StmtExprs(s Stmt) []ExprUse {
	switch n := s.(type) {
	case *Assign:
		return []ExprUse{{Expr: n.Target, Target: true}, {Expr: n.Value}}
	case *If:
		return []ExprUse{{Expr: n.Cond}}
	case *Case:
		uses := []ExprUse{{Expr: n.Test}}
		for _, arm := range n.Arms {
			uses = append(uses, ExprUse{Expr: arm.Key})
		}
		return uses
	case *Display:
		var uses []ExprUse
		for _, a := range n.Args {
			if a.Expr != nil {
				uses = append(uses, ExprUse{Expr: a.Expr})
			}
		}
		return uses
	default:
		return nil
	}
}

// WalkStmts calls fn for every statement of b in pre-order, descending into
// If and Case bodies.
func WalkStmts(b Block, fn func(Stmt) error) error {
	for _, s := range b {
		if err := fn(s); err != nil {
			return err
		}
		switch n := s.(type) {
		case *If:
			if err := WalkStmts(n.Then, fn); err != nil {
				return err
			}
			if err := WalkStmts(n.Else, fn); err != nil {
				return err
			}
		case *Case:
			for _, arm := range n.Arms {
				if err := WalkStmts(arm.Body, fn); err != nil {
					return err
				}
			}
			if err := WalkStmts(n.Default, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// WalkExpr calls fn for e and every sub-expression in pre-order.
func WalkExpr(e Expr, fn func(Expr) error) error {
	if err := fn(e); err != nil {
		return err
	}
	var children []Expr
	switch n := e.(type) {
	case *UnaryOp:
		children = []Expr{n.Operand}
	case *BinaryOp:
		children = []Expr{n.LHS, n.RHS}
	case *Mux:
		children = []Expr{n.Cond, n.IfTrue, n.IfFalse}
	case *Slice:
		children = []Expr{n.Base}
	case *Concat:
		children = n.Parts
	case *Replicate:
		children = []Expr{n.Value}
	case *ArrayProxy:
		children = append(append(children, n.Choices...), n.Key)
	case *Part:
		children = []Expr{n.Base, n.Offset}
	}
	for _, c := range children {
		if err := WalkExpr(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// ExprSignals returns every signal read or driven by e.
func ExprSignals(e Expr) SignalSet {
	set := SignalSet{}
	_ = WalkExpr(e, func(n Expr) error {
		if r, ok := n.(*SignalRef); ok {
			set.Add(r.Signal)
		}
		return nil
	})
	return set
}

// ExprTargets returns the signals driven when e is used as an assignment
// target.
func ExprTargets(e Expr) SignalSet {
	set := SignalSet{}
	collectTargets(e, set)
	return set
}

func collectTargets(e Expr, set SignalSet) {
	switch n := e.(type) {
	case *SignalRef:
		set.Add(n.Signal)
	case *Slice:
		collectTargets(n.Base, set)
	case *Concat:
		for _, p := range n.Parts {
			collectTargets(p, set)
		}
	case *ArrayProxy:
		for _, c := range n.Choices {
			collectTargets(c, set)
		}
	case *Part:
		collectTargets(n.Base, set)
	}
}

// Targets returns the signals assigned anywhere in the given statements.
func Targets(stmts ...Stmt) SignalSet {
	set := SignalSet{}
	_ = WalkStmts(stmts, func(s Stmt) error {
		if a, ok := s.(*Assign); ok {
			collectTargets(a.Target, set)
		}
		return nil
	})
	return set
}

// BlockSignals returns every signal referenced by the statements of b.
func BlockSignals(b Block) SignalSet {
	set := SignalSet{}
	_ = WalkStmts(b, func(s Stmt) error {
		for _, use := range StmtExprs(s) {
			set.Union(ExprSignals(use.Expr))
		}
		return nil
	})
	return set
}

// SpecialSignals returns every signal connected to sp, including the
// signals it declares itself.
func SpecialSignals(sp Special) SignalSet {
	set := SignalSet{}
	for _, io := range sp.IOs() {
		set.Union(ExprSignals(io.Expr))
	}
	for _, s := range sp.Internals() {
		set.Add(s)
	}
	return set
}

// Group is a set of statements sharing targets.
type Group struct {
	Targets SignalSet
	Stmts   Block
}

// GroupByTargets partitions the top-level statements of b so that any two
// statements driving a common signal land in the same group. Statements
// keep their original order inside a group; groups are ordered by their
// first statement.
func GroupByTargets(b Block) []Group {
	type pending struct {
		targets SignalSet
		order   []int
	}
	var groups []pending
	seen := SignalSet{}
	for idx, s := range b {
		targets := Targets(s)
		order := []int{idx}
		disjoint := true
		for duid := range targets {
			if _, ok := seen[duid]; ok {
				disjoint = false
				break
			}
		}
		seen.Union(targets)
		if !disjoint {
			old := groups
			groups = nil
			for _, g := range old {
				if overlaps(g.targets, targets) {
					targets.Union(g.targets)
					order = append(order, g.order...)
				} else {
					groups = append(groups, g)
				}
			}
		}
		groups = append(groups, pending{targets: targets, order: order})
	}
	for i := range groups {
		sort.Ints(groups[i].order)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].order[0] < groups[j].order[0] })

	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		stmts := make(Block, 0, len(g.order))
		for _, idx := range g.order {
			stmts = append(stmts, b[idx])
		}
		out = append(out, Group{Targets: g.targets, Stmts: stmts})
	}
	return out
}

func overlaps(a, b SignalSet) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for duid := range a {
		if _, ok := b[duid]; ok {
			return true
		}
	}
	return false
}
