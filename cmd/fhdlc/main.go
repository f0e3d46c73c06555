package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fhdl/internal/diag"
)

// version is overridden at link time.
var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	verbose    bool
	diagFormat string
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	flags  globalFlags
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "fhdlc",
		Short:         "Structural hardware IR to Verilog compiler",
		Long:          "fhdlc lowers fragments in the fhdl interchange format and prints them as Verilog modules.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log every compilation stage")
	root.PersistentFlags().StringVar(&a.flags.diagFormat, "diag-format", "text", "diagnostic output format (text|json)")

	root.AddCommand(a.compileCmd())
	root.AddCommand(a.lintCmd())
	root.AddCommand(a.dumpCmd())
	root.AddCommand(a.versionCmd())
	return root
}

func (a *app) logger() *slog.Logger {
	level := slog.LevelWarn
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
}

func (a *app) reporter() *diag.Reporter {
	return diag.NewReporter(a.stderr, a.flags.diagFormat)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
