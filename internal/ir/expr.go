package ir

// Expr is implemented by every expression node. The set of kinds is closed.
type Expr interface {
	isExpr()
}

// Constant is a width-truncated integer literal. Verbatim constants are
// printed as their plain decimal value (used for instance parameters).
type Constant struct {
	Value    int64
	Width    int
	Signed   bool
	Verbatim bool
}

// SignalRef reads or drives a signal.
type SignalRef struct {
	Signal *Signal
}

// UnaryOp applies Op to Operand.
type UnaryOp struct {
	Op      UnOp
	Operand Expr
}

// BinaryOp applies Op to LHS and RHS.
type BinaryOp struct {
	Op  BinOp
	LHS Expr
	RHS Expr
}

// Mux selects IfTrue when Cond is non-zero, IfFalse otherwise.
type Mux struct {
	Cond    Expr
	IfTrue  Expr
	IfFalse Expr
}

// Slice selects bits [Start, Stop) of Base.
type Slice struct {
	Base  Expr
	Start int
	Stop  int
}

// Concat joins Parts; Parts[0] holds the least significant bits.
type Concat struct {
	Parts []Expr
}

// Replicate repeats Value Count times.
type Replicate struct {
	Value Expr
	Count int
}

// ClockRef refers to the clock signal of a domain. Removed by basic lowering.
type ClockRef struct {
	Domain string
}

// ResetRef refers to the reset signal of a domain. Removed by basic lowering.
type ResetRef struct {
	Domain         string
	AllowResetLess bool
}

// ArrayProxy selects Choices[Key]; the last choice also covers out-of-range
// keys. Removed by basic lowering.
type ArrayProxy struct {
	Choices []Expr
	Key     Expr
}

// Part is a variable-offset slice of Width bits starting at Offset*Stride.
// Removed by basic lowering.
type Part struct {
	Base   Expr
	Offset Expr
	Width  int
	Stride int
}

func (*Constant) isExpr()   {}
func (*SignalRef) isExpr()  {}
func (*UnaryOp) isExpr()    {}
func (*BinaryOp) isExpr()   {}
func (*Mux) isExpr()        {}
func (*Slice) isExpr()      {}
func (*Concat) isExpr()     {}
func (*Replicate) isExpr()  {}
func (*ClockRef) isExpr()   {}
func (*ResetRef) isExpr()   {}
func (*ArrayProxy) isExpr() {}
func (*Part) isExpr()       {}

// UnOp enumerates supported unary ops.
type UnOp int

const (
	Not UnOp = iota
	Neg
)

// Symbol returns the Verilog operator.
func (op UnOp) Symbol() string {
	switch op {
	case Not:
		return "~"
	case Neg:
		return "-"
	default:
		return "?"
	}
}

// BinOp enumerates supported binary ops.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Equal
	Ne
	Lt
	Le
	Gt
	Ge
	And
	Or
	Xor
	Shl
	Shr
)

// Symbol returns the Verilog operator.
func (op BinOp) Symbol() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Equal:
		return "=="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	case And:
		return "&"
	case Or:
		return "|"
	case Xor:
		return "^"
	case Shl:
		return "<<<"
	case Shr:
		return ">>>"
	default:
		return "?"
	}
}

// IsShift reports whether op is a shift.
func (op BinOp) IsShift() bool {
	return op == Shl || op == Shr
}

// IsCompare reports whether op produces a single-bit comparison result.
func (op BinOp) IsCompare() bool {
	switch op {
	case Equal, Ne, Lt, Le, Gt, Ge:
		return true
	}
	return false
}

// Const builds a constant truncated to width bits.
func Const(value int64, width int, signed bool) *Constant {
	return &Constant{Value: Truncate(value, width, signed), Width: width, Signed: signed}
}

// Int builds the narrowest constant able to hold value (signed when negative).
func Int(value int64) *Constant {
	width, signed := BitsFor(value)
	return &Constant{Value: value, Width: width, Signed: signed}
}

// Ref wraps a signal in a SignalRef.
func Ref(sig *Signal) *SignalRef {
	return &SignalRef{Signal: sig}
}

// Binary builds a binary operation.
func Binary(op BinOp, lhs, rhs Expr) *BinaryOp {
	return &BinaryOp{Op: op, LHS: lhs, RHS: rhs}
}

// Unary builds a unary operation.
func Unary(op UnOp, operand Expr) *UnaryOp {
	return &UnaryOp{Op: op, Operand: operand}
}

// Bit selects a single bit of base.
func Bit(base Expr, index int) *Slice {
	return &Slice{Base: base, Start: index, Stop: index + 1}
}

// Cat concatenates parts, least significant first.
func Cat(parts ...Expr) *Concat {
	return &Concat{Parts: parts}
}

// Truncate wraps value into the range representable with width bits.
func Truncate(value int64, width int, signed bool) int64 {
	if width <= 0 || width >= 64 {
		return value
	}
	mask := int64(1)<<uint(width) - 1
	v := value & mask
	if signed && v&(int64(1)<<uint(width-1)) != 0 {
		v -= int64(1) << uint(width)
	}
	return v
}

// BitsFor returns the minimal width (and signedness) needed to hold value.
func BitsFor(value int64) (int, bool) {
	if value >= 0 {
		width := 1
		for v := value >> 1; v != 0; v >>= 1 {
			width++
		}
		return width, false
	}
	width := 1
	for v := value; v != -1; v >>= 1 {
		width++
	}
	return width, true
}
