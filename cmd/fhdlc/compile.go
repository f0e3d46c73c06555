package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fhdl/internal/backend"
	"fhdl/internal/config"
	"fhdl/internal/frontend"
)

var emitAll = backend.EmitAll

type compileFlags struct {
	output     string
	configPath string
	name       string
	device     string
	revision   string
	simulation bool
	jobs       int
}

func (a *app) compileCmd() *cobra.Command {
	var f compileFlags
	cmd := &cobra.Command{
		Use:   "compile [flags] inputs...",
		Short: "Compile interchange documents to Verilog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompile(cmd, f, args)
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file, or directory when compiling several inputs (stdout when omitted)")
	cmd.Flags().StringVar(&f.configPath, "config", "", "TOML configuration file")
	cmd.Flags().StringVar(&f.name, "name", "", "module name (defaults to the output file name)")
	cmd.Flags().StringVar(&f.device, "device", "", "device recorded in the banner")
	cmd.Flags().StringVar(&f.revision, "revision", "", "revision recorded in the banner")
	cmd.Flags().BoolVar(&f.simulation, "simulation", false, "emit one combinational process per signal")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "maximum number of concurrent compilations (0 means unlimited)")
	return cmd
}

func (a *app) runCompile(cmd *cobra.Command, f compileFlags, inputs []string) error {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	opts := backend.Options{Options: cfg.Options(), Stdout: a.stdout}
	flags := cmd.Flags()
	if flags.Changed("name") {
		opts.Name = f.name
	}
	if flags.Changed("device") {
		opts.Device = f.device
	}
	if flags.Changed("revision") {
		opts.Revision = f.revision
	}
	if flags.Changed("simulation") {
		opts.Simulation = f.simulation
	}
	// Validation issues surface through the returned error; lint lists them
	// all.
	opts.Logger = a.logger()

	if len(inputs) > 1 && opts.Name != "" {
		return fmt.Errorf("a fixed module name cannot be used with %d inputs", len(inputs))
	}
	outputs, err := outputPaths(inputs, f.output)
	if err != nil {
		return err
	}

	jobs := make([]backend.Job, 0, len(inputs))
	for i, in := range inputs {
		frag, err := frontend.ReadFile(in)
		if err != nil {
			return err
		}
		jobs = append(jobs, backend.Job{Fragment: frag, OutputPath: outputs[i], Options: opts})
	}
	results, err := emitAll(context.Background(), jobs, f.jobs)
	if err != nil {
		return err
	}
	for _, res := range results {
		if len(res.AuxPaths) > 0 {
			fmt.Fprintf(a.stderr, "additional sources written: %s\n", strings.Join(res.AuxPaths, ", "))
		}
	}
	return nil
}

// outputPaths maps every input to its output file. With several inputs the
// output flag names a directory receiving <input>.v files.
func outputPaths(inputs []string, output string) ([]string, error) {
	if len(inputs) == 1 {
		return []string{output}, nil
	}
	if output == "" || output == "-" {
		return nil, fmt.Errorf("compiling %d inputs requires -o <directory>", len(inputs))
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	out := make([]string, len(inputs))
	for i, in := range inputs {
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		out[i] = filepath.Join(output, base+".v")
	}
	return out, nil
}
