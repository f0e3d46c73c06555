package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the fhdlc version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := color.New(color.Bold, color.FgCyan)
			name.DisableColor()
			if isTerminal(a.stdout) {
				name.EnableColor()
			}
			fmt.Fprintf(a.stdout, "%s %s (%s/%s, %s)\n", name.Sprint("fhdlc"), version, runtime.GOOS, runtime.GOARCH, runtime.Version())
			return nil
		},
	}
}
