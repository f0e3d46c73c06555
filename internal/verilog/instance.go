package verilog

import (
	"fmt"
	"strconv"
	"strings"

	"fhdl/internal/ir"
	"fhdl/internal/namer"
)

func emitInstance(sp ir.Special, ns *namer.Namespace, _ DataFileWriter) (string, bool, error) {
	inst, ok := sp.(*ir.Instance)
	if !ok {
		return "", false, nil
	}
	name, err := specialName(ns, inst)
	if err != nil {
		return "", false, err
	}
	var b strings.Builder
	b.WriteString(inst.Of + " ")
	if len(inst.Params) > 0 {
		b.WriteString("#(\n")
		for i, p := range inst.Params {
			if i > 0 {
				b.WriteString(",\n")
			}
			v, err := paramValue(ns, p)
			if err != nil {
				return "", false, err
			}
			fmt.Fprintf(&b, "\t.%s(%s)", p.Name, v)
		}
		b.WriteString("\n) ")
	}
	b.WriteString(name)
	if len(inst.Params) > 0 {
		b.WriteString(" ")
	}
	b.WriteString("(\n")
	for i, port := range inst.Ports {
		if i > 0 {
			b.WriteString(",\n")
		}
		r, _, err := PrintExpr(ns, port.Expr)
		if err != nil {
			return "", false, err
		}
		fmt.Fprintf(&b, "\t.%s(%s)", port.Name, r)
	}
	if len(inst.Ports) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(");\n\n")
	return b.String(), true, nil
}

func paramValue(ns *namer.Namespace, p ir.InstanceParam) (string, error) {
	switch v := p.Value.(type) {
	case *ir.Constant:
		r, _, err := PrintExpr(ns, v)
		return r, err
	case ir.Preformatted:
		return string(v), nil
	case string:
		return strconv.Quote(v), nil
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("instance parameter %s: unsupported value type %T", p.Name, p.Value)
	}
}
