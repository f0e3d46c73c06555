package ir

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by errors.Is against the structural error types below.
var (
	ErrUnresolvedClockDomain = errors.New("unresolved clock domain")
	ErrUnhandledSpecial      = errors.New("unhandled special")
	ErrMalformedExpression   = errors.New("malformed expression")
	ErrMalformedStatement    = errors.New("malformed statement")
	ErrInvalidCaseArm        = errors.New("invalid case arm")
)

// UnresolvedClockDomainError reports a reference to an undefined clock domain.
type UnresolvedClockDomainError struct {
	Domain  string
	Defined []string
}

func (e *UnresolvedClockDomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unresolved clock domain %q, available:", e.Domain)
	if len(e.Defined) == 0 {
		b.WriteString(" none")
	}
	for _, name := range e.Defined {
		fmt.Fprintf(&b, "\n- %s", name)
	}
	return b.String()
}

func (e *UnresolvedClockDomainError) Is(target error) bool {
	return target == ErrUnresolvedClockDomain
}

// UnhandledSpecialError reports a special no registered emitter claims.
type UnhandledSpecialError struct {
	Kind    string
	Special Special
}

func (e *UnhandledSpecialError) Error() string {
	return fmt.Sprintf("special %q failed to emit verilog: no handler claimed it", e.Kind)
}

func (e *UnhandledSpecialError) Is(target error) bool {
	return target == ErrUnhandledSpecial
}

// MalformedExpressionError reports an expression node a stage cannot handle.
type MalformedExpressionError struct {
	Node   Expr
	Reason string
}

func (e *MalformedExpressionError) Error() string {
	return fmt.Sprintf("malformed expression %T: %s", e.Node, e.Reason)
}

func (e *MalformedExpressionError) Is(target error) bool {
	return target == ErrMalformedExpression
}

// MalformedStatementError reports a statement node a stage cannot handle.
type MalformedStatementError struct {
	Node   Stmt
	Reason string
}

func (e *MalformedStatementError) Error() string {
	return fmt.Sprintf("malformed statement %T: %s", e.Node, e.Reason)
}

func (e *MalformedStatementError) Is(target error) bool {
	return target == ErrMalformedStatement
}

// InvalidCaseArmError reports a non-constant or duplicate case arm key.
type InvalidCaseArmError struct {
	Key    Expr
	Reason string
}

func (e *InvalidCaseArmError) Error() string {
	return fmt.Sprintf("invalid case arm %T: %s", e.Key, e.Reason)
}

func (e *InvalidCaseArmError) Is(target error) bool {
	return target == ErrInvalidCaseArm
}

// UnknownExpr builds the error returned for an unrecognised expression node.
func UnknownExpr(e Expr) error {
	if e == nil {
		return &MalformedExpressionError{Reason: "nil expression"}
	}
	return &MalformedExpressionError{Node: e, Reason: "expression of unrecognized type"}
}

// UnknownStmt builds the error returned for an unrecognised statement node.
func UnknownStmt(s Stmt) error {
	if s == nil {
		return &MalformedStatementError{Reason: "nil statement"}
	}
	return &MalformedStatementError{Node: s, Reason: "node of unrecognized type"}
}
