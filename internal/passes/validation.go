package passes

import (
	"fhdl/internal/diag"
	"fhdl/internal/ir"
	"fhdl/internal/validate"
)

// Validation rejects structurally broken fragments before any lowering.
type Validation struct {
	reporter *diag.Reporter
}

// NewValidation constructs the pass. reporter is optional.
func NewValidation(reporter *diag.Reporter) *Validation {
	return &Validation{reporter: reporter}
}

// Name implements the Pass interface.
func (v *Validation) Name() string {
	return "validate"
}

// Run implements the Pass interface. The fragment is returned unchanged.
func (v *Validation) Run(_ *Context, f *ir.Fragment) (*ir.Fragment, error) {
	if err := validate.Check(f, v.reporter); err != nil {
		return nil, err
	}
	return f, nil
}
