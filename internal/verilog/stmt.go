package verilog

import (
	"fmt"
	"sort"
	"strings"

	"fhdl/internal/ir"
	"fhdl/internal/namer"
)

// AssignMode selects the operator used for non-blocking assignments.
type AssignMode int

const (
	// AtBlocking prints every assignment with "=".
	AtBlocking AssignMode = iota
	// AtNonBlocking prints "<=" except for variables and blocking assigns.
	AtNonBlocking
	// AtSignal prints "<=" for signals and "=" for variables.
	AtSignal
)

// PrintStmts renders b at the given indentation level. When filter is
// non-nil only statements that assign filter are printed.
func PrintStmts(ns *namer.Namespace, mode AssignMode, level int, b ir.Block, filter *ir.Signal) (string, error) {
	p := &stmtPrinter{ns: ns, mode: mode, filter: filter}
	if err := p.block(level, b); err != nil {
		return "", err
	}
	return p.out.String(), nil
}

type stmtPrinter struct {
	ns     *namer.Namespace
	mode   AssignMode
	filter *ir.Signal
	out    strings.Builder
}

func (p *stmtPrinter) indent(level int) {
	p.out.WriteString(strings.Repeat("\t", level))
}

func (p *stmtPrinter) block(level int, b ir.Block) error {
	for _, s := range b {
		if err := p.stmt(level, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *stmtPrinter) expr(e ir.Expr) (string, error) {
	r, _, err := PrintExpr(p.ns, e)
	return r, err
}

func (p *stmtPrinter) stmt(level int, s ir.Stmt) error {
	if p.filter != nil && s != nil && !ir.Targets(s).Has(p.filter) {
		return nil
	}
	switch n := s.(type) {
	case *ir.Assign:
		lhs, err := p.expr(n.Target)
		if err != nil {
			return err
		}
		rhs, err := p.expr(n.Value)
		if err != nil {
			return err
		}
		p.indent(level)
		fmt.Fprintf(&p.out, "%s %s %s;\n", lhs, p.operator(n), rhs)
	case *ir.If:
		cond, err := p.expr(n.Cond)
		if err != nil {
			return err
		}
		p.indent(level)
		fmt.Fprintf(&p.out, "if (%s) begin\n", cond)
		if err := p.block(level+1, n.Then); err != nil {
			return err
		}
		if len(n.Else) > 0 {
			p.indent(level)
			p.out.WriteString("end else begin\n")
			if err := p.block(level+1, n.Else); err != nil {
				return err
			}
		}
		p.indent(level)
		p.out.WriteString("end\n")
	case *ir.Case:
		return p.caseStmt(level, n)
	case *ir.Display:
		args := []string{quote(n.Format)}
		for _, a := range n.Args {
			if a.Expr == nil {
				if a.Text == "" {
					return &ir.MalformedStatementError{Node: n, Reason: "empty display argument"}
				}
				args = append(args, a.Text)
				continue
			}
			r, err := p.expr(a.Expr)
			if err != nil {
				return err
			}
			args = append(args, r)
		}
		p.indent(level)
		fmt.Fprintf(&p.out, "$display(%s);\n", strings.Join(args, ", "))
	case *ir.Finish:
		p.indent(level)
		p.out.WriteString("$finish;\n")
	default:
		return ir.UnknownStmt(s)
	}
	return nil
}

func (p *stmtPrinter) operator(a *ir.Assign) string {
	if a.Kind == ir.Blocking || isVariable(a.Target) || p.mode == AtBlocking {
		return "="
	}
	return "<="
}

// isVariable reports whether every signal driven through target is a
// procedural variable.
func isVariable(target ir.Expr) bool {
	targets := ir.ExprTargets(target)
	if len(targets) == 0 {
		return false
	}
	for _, s := range targets {
		if !s.Variable {
			return false
		}
	}
	return true
}

type sortedArm struct {
	key  *ir.Constant
	body ir.Block
}

func (p *stmtPrinter) caseStmt(level int, n *ir.Case) error {
	arms := make([]sortedArm, 0, len(n.Arms))
	seen := make(map[int64]bool, len(n.Arms))
	for _, arm := range n.Arms {
		k, ok := arm.Key.(*ir.Constant)
		if !ok {
			return &ir.InvalidCaseArmError{Key: arm.Key, Reason: "key is not a constant"}
		}
		if seen[k.Value] {
			return &ir.InvalidCaseArmError{Key: arm.Key, Reason: fmt.Sprintf("duplicate key %d", k.Value)}
		}
		seen[k.Value] = true
		arms = append(arms, sortedArm{key: k, body: arm.Body})
	}
	if len(arms) == 0 && n.Default == nil {
		return nil
	}
	sort.SliceStable(arms, func(i, j int) bool { return arms[i].key.Value < arms[j].key.Value })

	test, err := p.expr(n.Test)
	if err != nil {
		return err
	}
	p.indent(level)
	fmt.Fprintf(&p.out, "case (%s)\n", test)
	for _, arm := range arms {
		p.indent(level + 1)
		fmt.Fprintf(&p.out, "%s: begin\n", printConstant(arm.key))
		if err := p.block(level+2, arm.body); err != nil {
			return err
		}
		p.indent(level + 1)
		p.out.WriteString("end\n")
	}
	if n.Default != nil {
		p.indent(level + 1)
		p.out.WriteString("default: begin\n")
		if err := p.block(level+2, n.Default); err != nil {
			return err
		}
		p.indent(level + 1)
		p.out.WriteString("end\n")
	}
	p.indent(level)
	p.out.WriteString("endcase\n")
	return nil
}

var displayEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

func quote(format string) string {
	return `"` + displayEscaper.Replace(format) + `"`
}
