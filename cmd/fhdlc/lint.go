package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fhdl/internal/diag"
	"fhdl/internal/frontend"
	"fhdl/internal/validate"
	"fhdl/internal/verilog"
)

func (a *app) lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint inputs...",
		Short: "Check interchange documents without writing output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLint(args)
		},
	}
}

// runLint validates every input and then converts it in memory so errors
// raised past validation (unhandled specials, unresolved domains in lowered
// logic) are reported as well.
func (a *app) runLint(inputs []string) error {
	reporter := a.reporter()
	for _, in := range inputs {
		frag, err := frontend.ReadFile(in)
		if err != nil {
			reporter.Error(in, err.Error())
			continue
		}
		if err := validate.Check(frag, reporter); err != nil {
			continue
		}
		if _, err := verilog.Convert(frag, verilog.Options{Logger: a.logger()}); err != nil {
			reporter.Error(in, err.Error())
		}
	}
	if n := reporter.Count(diag.SevError); n > 0 {
		return fmt.Errorf("lint failed with %d error(s)", n)
	}
	return nil
}
