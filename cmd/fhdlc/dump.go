package main

import (
	"github.com/spf13/cobra"

	"fhdl/internal/frontend"
	"fhdl/internal/ir"
	"fhdl/internal/passes"
	"fhdl/internal/verilog"
)

func (a *app) dumpCmd() *cobra.Command {
	var lowered bool
	cmd := &cobra.Command{
		Use:   "dump input",
		Short: "Print the fragment held in an interchange document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frag, err := frontend.ReadFile(args[0])
			if err != nil {
				return err
			}
			if lowered {
				mgr := passes.Default(verilog.DefaultRegistry(), nil)
				mgr.Logger = a.logger()
				if frag, err = mgr.Run(frag); err != nil {
					return err
				}
			}
			ir.Dump(frag, a.stdout)
			return nil
		},
	}
	cmd.Flags().BoolVar(&lowered, "lowered", false, "dump the fragment after the lowering pipeline")
	return cmd
}
