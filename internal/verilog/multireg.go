package verilog

import (
	"fmt"

	"fhdl/internal/ir"
)

// defaultMultiRegStages is used when a MultiReg leaves Stages unset.
const defaultMultiRegStages = 2

// lowerMultiReg replaces a MultiReg by a chain of reset-less registers in
// its domain. The registers carry the no_retiming attribute.
func lowerMultiReg(sp ir.Special, alloc *ir.Allocator) (*ir.Fragment, bool, error) {
	m, ok := sp.(*ir.MultiReg)
	if !ok {
		return nil, false, nil
	}
	stages := m.Stages
	if stages == 0 {
		stages = defaultMultiRegStages
	}
	if stages < 0 {
		return nil, false, fmt.Errorf("multireg #%d: negative stage count %d", m.ID, m.Stages)
	}
	shape, err := ir.ShapeOf(m.I)
	if err != nil {
		return nil, false, err
	}
	opts := []ir.SignalOption{
		ir.NoReset(),
		ir.ResetValue(m.Reset),
		ir.WithAttrs(ir.Attribute{Key: "no_retiming"}),
	}
	if shape.Signed {
		opts = append(opts, ir.Signed())
	}
	f := &ir.Fragment{Signals: ir.SignalSet{}, Sync: map[string]ir.Block{}, IOs: ir.SignalSet{}}
	src := m.I
	for i := 0; i < stages; i++ {
		reg := alloc.Signal("multireg", shape.Width, opts...)
		f.Signals.Add(reg)
		f.Sync[m.Domain] = append(f.Sync[m.Domain], ir.Eq(ir.Ref(reg), src))
		src = ir.Ref(reg)
	}
	f.Comb = ir.Block{ir.Eq(m.O, src)}
	f.Signals.Union(ir.ExprSignals(m.I))
	f.Signals.Union(ir.ExprSignals(m.O))
	return f, true, nil
}
