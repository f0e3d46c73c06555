package verilog

import (
	"fmt"
	"strings"

	"fhdl/internal/ir"
	"fhdl/internal/namer"
)

func emitTristate(sp ir.Special, ns *namer.Namespace, _ DataFileWriter) (string, bool, error) {
	t, ok := sp.(*ir.Tristate)
	if !ok {
		return "", false, nil
	}
	shape, err := ir.ShapeOf(t.Target)
	if err != nil {
		return "", false, err
	}
	target, _, err := PrintExpr(ns, t.Target)
	if err != nil {
		return "", false, err
	}
	oe, _, err := PrintExpr(ns, t.OE)
	if err != nil {
		return "", false, err
	}
	o, _, err := PrintExpr(ns, t.O)
	if err != nil {
		return "", false, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "assign %s = %s ? %s : %d'bz;\n", target, oe, o, shape.Width)
	if t.I != nil {
		i, _, err := PrintExpr(ns, t.I)
		if err != nil {
			return "", false, err
		}
		fmt.Fprintf(&b, "assign %s = %s;\n", i, target)
	}
	b.WriteString("\n")
	return b.String(), true, nil
}
