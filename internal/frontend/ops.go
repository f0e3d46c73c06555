package frontend

import "fhdl/internal/ir"

var unaryOps = map[string]ir.UnOp{
	"not": ir.Not,
	"neg": ir.Neg,
}

var binaryOps = map[string]ir.BinOp{
	"add": ir.Add,
	"sub": ir.Sub,
	"mul": ir.Mul,
	"eq":  ir.Equal,
	"ne":  ir.Ne,
	"lt":  ir.Lt,
	"le":  ir.Le,
	"gt":  ir.Gt,
	"ge":  ir.Ge,
	"and": ir.And,
	"or":  ir.Or,
	"xor": ir.Xor,
	"shl": ir.Shl,
	"shr": ir.Shr,
}

var directions = map[string]ir.PortDirection{
	"input":  ir.Input,
	"output": ir.Output,
	"inout":  ir.InOut,
}

var portModes = map[string]ir.MemoryPortMode{
	"":            ir.ReadFirst,
	"read_first":  ir.ReadFirst,
	"write_first": ir.WriteFirst,
	"no_change":   ir.NoChange,
}

func unaryName(op ir.UnOp) string {
	for name, o := range unaryOps {
		if o == op {
			return name
		}
	}
	return ""
}

func binaryName(op ir.BinOp) string {
	for name, o := range binaryOps {
		if o == op {
			return name
		}
	}
	return ""
}

func modeName(m ir.MemoryPortMode) string {
	switch m {
	case ir.WriteFirst:
		return "write_first"
	case ir.NoChange:
		return "no_change"
	default:
		return "read_first"
	}
}
