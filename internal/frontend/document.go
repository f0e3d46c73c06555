// Package frontend reads and writes the msgpack interchange document a
// frontend hands to the backend.
package frontend

// SchemaVersion is written by Encode and checked by Decode.
const SchemaVersion uint16 = 1

// Document is the serialized form of one fragment. Signals and specials
// refer to each other by duid; a duid of 0 means "none".
type Document struct {
	Schema   uint16                  `msgpack:"schema"`
	Signals  []SignalRecord          `msgpack:"signals"`
	Domains  []DomainRecord          `msgpack:"domains"`
	IOs      []int64                 `msgpack:"ios"`
	Comb     []StmtRecord            `msgpack:"comb"`
	Sync     map[string][]StmtRecord `msgpack:"sync"`
	Specials []SpecialRecord         `msgpack:"specials"`
}

type SignalRecord struct {
	DUID      int64        `msgpack:"duid"`
	Name      string       `msgpack:"name"`
	Width     int64        `msgpack:"width"`
	Signed    bool         `msgpack:"signed,omitempty"`
	Reset     int64        `msgpack:"reset,omitempty"`
	ResetLess bool         `msgpack:"reset_less,omitempty"`
	Variable  bool         `msgpack:"variable,omitempty"`
	Attrs     []AttrRecord `msgpack:"attrs,omitempty"`
}

// AttrRecord carries either a translation Key or a direct Name/Value pair.
type AttrRecord struct {
	Key   string      `msgpack:"key,omitempty"`
	Name  string      `msgpack:"name,omitempty"`
	Value interface{} `msgpack:"value,omitempty"`
}

type DomainRecord struct {
	Name      string `msgpack:"name"`
	Clk       int64  `msgpack:"clk"`
	Rst       int64  `msgpack:"rst,omitempty"`
	ActiveLow bool   `msgpack:"active_low,omitempty"`
}

// Expression record kinds.
const (
	KindConst  = "const"
	KindSignal = "sig"
	KindUnary  = "un"
	KindBinary = "bin"
	KindMux    = "mux"
	KindSlice  = "slice"
	KindConcat = "cat"
	KindRepl   = "rep"
	KindClock  = "clk"
	KindReset  = "rst"
	KindArray  = "array"
	KindPart   = "part"
)

// ExprRecord is a tagged expression. Args holds the operands: the operand
// of a unary op, lhs/rhs of a binary op, cond/true/false of a mux, the base
// of a slice or part (followed by the part offset), the parts of a concat,
// the value of a replicate and the choices of an array followed by its key.
type ExprRecord struct {
	K              string       `msgpack:"k"`
	Value          int64        `msgpack:"value,omitempty"`
	Width          int64        `msgpack:"width,omitempty"`
	Signed         bool         `msgpack:"signed,omitempty"`
	Verbatim       bool         `msgpack:"verbatim,omitempty"`
	Sig            int64        `msgpack:"sig,omitempty"`
	Op             string       `msgpack:"op,omitempty"`
	Args           []ExprRecord `msgpack:"args,omitempty"`
	Start          int64        `msgpack:"start,omitempty"`
	Stop           int64        `msgpack:"stop,omitempty"`
	Count          int64        `msgpack:"count,omitempty"`
	Stride         int64        `msgpack:"stride,omitempty"`
	Domain         string       `msgpack:"domain,omitempty"`
	AllowResetLess bool         `msgpack:"allow_reset_less,omitempty"`
}

// Statement record kinds.
const (
	KindAssign  = "assign"
	KindIf      = "if"
	KindCase    = "case"
	KindDisplay = "display"
	KindFinish  = "finish"
)

type StmtRecord struct {
	K          string          `msgpack:"k"`
	Target     *ExprRecord     `msgpack:"target,omitempty"`
	Value      *ExprRecord     `msgpack:"value,omitempty"`
	Blocking   bool            `msgpack:"blocking,omitempty"`
	Cond       *ExprRecord     `msgpack:"cond,omitempty"`
	Then       []StmtRecord    `msgpack:"then,omitempty"`
	Else       []StmtRecord    `msgpack:"else,omitempty"`
	Test       *ExprRecord     `msgpack:"test,omitempty"`
	Arms       []ArmRecord     `msgpack:"arms,omitempty"`
	HasDefault bool            `msgpack:"has_default,omitempty"`
	Default    []StmtRecord    `msgpack:"default,omitempty"`
	Format     string          `msgpack:"format,omitempty"`
	Args       []DisplayRecord `msgpack:"args,omitempty"`
}

type ArmRecord struct {
	Key  ExprRecord   `msgpack:"key"`
	Body []StmtRecord `msgpack:"body"`
}

// DisplayRecord is an expression argument, or literal Text when Expr is nil.
type DisplayRecord struct {
	Expr *ExprRecord `msgpack:"expr,omitempty"`
	Text string      `msgpack:"text,omitempty"`
}

// Special record kinds match ir.Special.Kind.
const (
	KindMemory   = "memory"
	KindInstance = "instance"
	KindTristate = "tristate"
	KindMultiReg = "multireg"
)

type SpecialRecord struct {
	K     string       `msgpack:"k"`
	DUID  int64        `msgpack:"duid"`
	Name  string       `msgpack:"name,omitempty"`
	Attrs []AttrRecord `msgpack:"attrs,omitempty"`

	// memory
	Width    int64           `msgpack:"width,omitempty"`
	Depth    int64           `msgpack:"depth,omitempty"`
	Init     []uint64        `msgpack:"init,omitempty"`
	MemPorts []MemPortRecord `msgpack:"mem_ports,omitempty"`

	// instance
	Of     string        `msgpack:"of,omitempty"`
	Params []ParamRecord `msgpack:"params,omitempty"`
	Ports  []PortRecord  `msgpack:"ports,omitempty"`

	// tristate
	Target *ExprRecord `msgpack:"target,omitempty"`
	O      *ExprRecord `msgpack:"o,omitempty"`
	OE     *ExprRecord `msgpack:"oe,omitempty"`

	// tristate input, multireg input
	I *ExprRecord `msgpack:"i,omitempty"`

	// multireg
	Out    *ExprRecord `msgpack:"out,omitempty"`
	Domain string      `msgpack:"domain,omitempty"`
	Stages int64       `msgpack:"stages,omitempty"`
	Reset  int64       `msgpack:"reset,omitempty"`
}

type MemPortRecord struct {
	Domain        string `msgpack:"domain"`
	Adr           int64  `msgpack:"adr"`
	DatR          int64  `msgpack:"dat_r"`
	We            int64  `msgpack:"we,omitempty"`
	DatW          int64  `msgpack:"dat_w,omitempty"`
	Re            int64  `msgpack:"re,omitempty"`
	WeGranularity int64  `msgpack:"we_granularity,omitempty"`
	AsyncRead     bool   `msgpack:"async_read,omitempty"`
	Mode          string `msgpack:"mode,omitempty"`
	AdrReg        int64  `msgpack:"adr_reg,omitempty"`
	DatReg        int64  `msgpack:"dat_reg,omitempty"`
}

// ParamRecord is an instance parameter. Kind is "const", "string",
// "float", "int" or "raw".
type ParamRecord struct {
	Name  string      `msgpack:"name"`
	Kind  string      `msgpack:"kind"`
	Const *ExprRecord `msgpack:"const,omitempty"`
	Str   string      `msgpack:"str,omitempty"`
	Float float64     `msgpack:"float,omitempty"`
	Int   int64       `msgpack:"int,omitempty"`
}

type PortRecord struct {
	Name string     `msgpack:"name"`
	Dir  string     `msgpack:"dir"`
	Expr ExprRecord `msgpack:"expr"`
}
