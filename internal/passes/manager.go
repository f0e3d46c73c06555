package passes

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"fhdl/internal/diag"
	"fhdl/internal/ir"
)

// Context carries per-compilation state shared by the passes of one run.
type Context struct {
	// Alloc hands out DUIDs for signals created by lowering. It is seeded
	// past every DUID of the input fragment.
	Alloc  *ir.Allocator
	Logger *slog.Logger
}

// Pass is a functional fragment transformation. Passes never modify their
// input; they return a new fragment.
type Pass interface {
	Name() string
	Run(ctx *Context, f *ir.Fragment) (*ir.Fragment, error)
}

// Manager runs passes in order.
type Manager struct {
	Logger *slog.Logger
	passes []Pass
}

// NewManager creates a manager running the given passes.
func NewManager(passes ...Pass) *Manager {
	return &Manager{passes: passes}
}

// Add appends a pass.
func (m *Manager) Add(p Pass) {
	m.passes = append(m.passes, p)
}

// Passes lists the pass names in execution order.
func (m *Manager) Passes() []string {
	names := make([]string, 0, len(m.passes))
	for _, p := range m.passes {
		names = append(names, p.Name())
	}
	return names
}

// Run threads f through every pass, aborting on the first error.
func (m *Manager) Run(f *ir.Fragment) (*ir.Fragment, error) {
	if f == nil {
		return nil, errors.New("pass manager requires a non-nil fragment")
	}
	ctx := &Context{
		Alloc:  ir.NewAllocator(f.MaxDUID() + 1),
		Logger: componentLogger(m.Logger, "passes"),
	}
	for _, p := range m.passes {
		if logEnabled(ctx.Logger, slog.LevelDebug) {
			ctx.Logger.LogAttrs(context.Background(), slog.LevelDebug, "running pass",
				slog.String("pass", p.Name()),
				slog.Int("signals", len(f.Signals)),
				slog.Int("specials", len(f.Specials)))
		}
		out, err := p.Run(ctx, f)
		if err != nil {
			return nil, errors.Wrapf(err, "pass %s", p.Name())
		}
		f = out
	}
	return f, nil
}

// Default builds the standard lowering pipeline. reporter may be nil.
func Default(lowerer SpecialLowerer, reporter *diag.Reporter) *Manager {
	return NewManager(
		NewValidation(reporter),
		NewSliceLowering(),
		NewResetInsertion(),
		NewBasicLowering(),
		NewSpecialLowering(lowerer),
		NewBasicLowering(),
	)
}

func componentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("component", component))
}

func logEnabled(logger *slog.Logger, level slog.Level) bool {
	return logger != nil && logger.Enabled(context.Background(), level)
}
