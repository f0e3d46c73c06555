package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"fhdl/internal/ir"
	"fhdl/internal/verilog"
)

// Options configures how a fragment is written out.
type Options struct {
	verilog.Options
	// Stdout receives the main source when the output path is "-".
	Stdout io.Writer
}

// Result lists the artifacts produced during Verilog emission.
type Result struct {
	MainPath string
	AuxPaths []string
}

// EmitVerilog converts f and writes the module to outputPath. Data files
// referenced by the module (memory initialisation files) are written next to
// it and returned via Result.AuxPaths. When opts.Name is empty the module is
// named after the output file.
func EmitVerilog(f *ir.Fragment, outputPath string, opts Options) (Result, error) {
	if f == nil {
		return Result{}, fmt.Errorf("backend: fragment is nil")
	}
	toStdout := outputPath == "" || outputPath == "-"
	if opts.Name == "" && !toStdout {
		opts.Name = moduleName(outputPath)
	}

	art, err := verilog.Convert(f, opts.Options)
	if err != nil {
		return Result{}, fmt.Errorf("backend: %w", err)
	}

	if toStdout {
		if len(art.DataFiles) > 0 {
			return Result{}, fmt.Errorf("backend: verilog emission requires -o when data files are generated")
		}
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, err := io.WriteString(w, art.Source); err != nil {
			return Result{}, fmt.Errorf("backend: write verilog: %w", err)
		}
		return Result{MainPath: "-"}, nil
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("backend: create verilog output dir: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(art.Source), 0o644); err != nil {
		return Result{}, fmt.Errorf("backend: write verilog: %w", err)
	}
	res := Result{MainPath: outputPath}
	for _, df := range art.DataFiles {
		auxPath := filepath.Join(dir, df.Name)
		if err := os.WriteFile(auxPath, df.Content, 0o644); err != nil {
			return Result{}, fmt.Errorf("backend: write data file: %w", err)
		}
		res.AuxPaths = append(res.AuxPaths, auxPath)
	}
	return res, nil
}

// Job is one fragment to compile with EmitAll.
type Job struct {
	Fragment   *ir.Fragment
	OutputPath string
	Options    Options
}

// EmitAll compiles independent fragments concurrently, running at most
// limit conversions at once (no limit when limit <= 0). Results are in job
// order. The first failure cancels the jobs that have not started yet.
func EmitAll(ctx context.Context, jobs []Job, limit int) ([]Result, error) {
	if err := checkOutputs(jobs); err != nil {
		return nil, err
	}
	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := EmitVerilog(job.Fragment, job.OutputPath, job.Options)
			if err != nil {
				return fmt.Errorf("%s: %w", job.OutputPath, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkOutputs rejects jobs that would overwrite each other.
func checkOutputs(jobs []Job) error {
	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if job.OutputPath == "" || job.OutputPath == "-" {
			if len(jobs) > 1 {
				return fmt.Errorf("backend: every job needs an output path when compiling %d fragments", len(jobs))
			}
			continue
		}
		p := filepath.Clean(job.OutputPath)
		if seen[p] {
			return fmt.Errorf("backend: output %s is used by more than one job", p)
		}
		seen[p] = true
	}
	return nil
}

func moduleName(outputPath string) string {
	base := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	if base == "" || base == "." {
		return ""
	}
	return sanitize(base)
}

func sanitize(name string) string {
	var b strings.Builder
	for i, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || (r >= '0' && r <= '9' && i > 0) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
