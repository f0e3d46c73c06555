package ir

// Stmt is implemented by every statement node. The set of kinds is closed.
type Stmt interface {
	isStmt()
}

// Block is an ordered sequence of statements.
type Block []Stmt

// AssignKind selects the assignment timing semantics.
type AssignKind int

const (
	NonBlocking AssignKind = iota
	Blocking
)

// Assign drives Target with Value.
type Assign struct {
	Target Expr
	Value  Expr
	Kind   AssignKind
}

// If runs Then when Cond is non-zero, Else otherwise. A nil Else is absent.
type If struct {
	Cond Expr
	Then Block
	Else Block
}

// CaseArm is one labelled branch of a Case. Key must be a *Constant.
type CaseArm struct {
	Key  Expr
	Body Block
}

// Case dispatches on Test. A nil Default is absent.
type Case struct {
	Test    Expr
	Arms    []CaseArm
	Default Block
}

// DisplayArg is one $display argument: an expression, or literal text when
// Expr is nil.
type DisplayArg struct {
	Expr Expr
	Text string
}

// Display prints Format with Args during simulation.
type Display struct {
	Format string
	Args   []DisplayArg
}

// Finish ends simulation.
type Finish struct{}

func (*Assign) isStmt()  {}
func (*If) isStmt()      {}
func (*Case) isStmt()    {}
func (*Display) isStmt() {}
func (*Finish) isStmt()  {}

// Eq builds a non-blocking assignment target <= value.
func Eq(target, value Expr) *Assign {
	return &Assign{Target: target, Value: value}
}

// BlockingEq builds a blocking assignment target = value.
func BlockingEq(target, value Expr) *Assign {
	return &Assign{Target: target, Value: value, Kind: Blocking}
}

// When builds an If without an else branch.
func When(cond Expr, then ...Stmt) *If {
	return &If{Cond: cond, Then: then}
}

// Arg wraps an expression as a display argument.
func Arg(e Expr) DisplayArg {
	return DisplayArg{Expr: e}
}

// Time is the simulation time display argument.
var Time = DisplayArg{Text: "$time"}
