package passes

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"fhdl/internal/ir"
)

// SpecialLowerer replaces a special by ordinary logic. handled is false
// when the special must be kept for direct emission.
type SpecialLowerer interface {
	LowerSpecial(sp ir.Special, alloc *ir.Allocator) (f *ir.Fragment, handled bool, err error)
}

// maxSpecialDepth bounds how often specials produced by lowering are
// offered again.
const maxSpecialDepth = 16

// SpecialLowering offers every special to a SpecialLowerer and merges the
// fragments of those it replaces.
type SpecialLowering struct {
	lowerer SpecialLowerer
}

// NewSpecialLowering constructs the pass. A nil lowerer keeps all specials.
func NewSpecialLowering(lowerer SpecialLowerer) *SpecialLowering {
	return &SpecialLowering{lowerer: lowerer}
}

// Name implements the Pass interface.
func (p *SpecialLowering) Name() string {
	return "lower-specials"
}

// Run implements the Pass interface.
func (p *SpecialLowering) Run(ctx *Context, f *ir.Fragment) (*ir.Fragment, error) {
	if p.lowerer == nil {
		return f, nil
	}
	out := f.Clone()
	out.Specials = nil
	queue := f.SortedSpecials()
	for depth := 0; len(queue) > 0; depth++ {
		if depth > maxSpecialDepth {
			return nil, errors.Errorf("specials still expanding after %d rounds", maxSpecialDepth)
		}
		var next []ir.Special
		for _, sp := range queue {
			lowered, handled, err := p.lowerer.LowerSpecial(sp, ctx.Alloc)
			if err != nil {
				return nil, errors.Wrapf(err, "lower %s special", sp.Kind())
			}
			if !handled {
				out.Specials = append(out.Specials, sp)
				continue
			}
			if logEnabled(ctx.Logger, slog.LevelDebug) {
				ctx.Logger.LogAttrs(context.Background(), slog.LevelDebug, "lowered special",
					slog.String("kind", sp.Kind()),
					slog.Int("duid", sp.DUID()))
			}
			if lowered == nil {
				continue
			}
			merge(out, lowered)
			next = append(next, lowered.SortedSpecials()...)
		}
		queue = next
	}
	return out, nil
}

// merge adds the logic and signals of src to dst. Specials are left to the
// caller.
func merge(dst, src *ir.Fragment) {
	dst.Comb = append(dst.Comb, src.Comb...)
	for _, name := range src.SyncDomains() {
		dst.Sync[name] = append(dst.Sync[name], src.Sync[name]...)
	}
	dst.Signals.Union(src.Signals)
	for _, cd := range src.ClockDomains {
		if _, err := dst.Domain(cd.Name); err != nil {
			dst.ClockDomains = append(dst.ClockDomains, cd)
		}
	}
}
