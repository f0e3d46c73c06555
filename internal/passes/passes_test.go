package passes

import (
	"errors"
	"strings"
	"testing"

	"fhdl/internal/ir"
)

func runPass(t *testing.T, p Pass, f *ir.Fragment) *ir.Fragment {
	t.Helper()
	ctx := &Context{Alloc: ir.NewAllocator(f.MaxDUID() + 1)}
	out, err := p.Run(ctx, f)
	if err != nil {
		t.Fatalf("%s failed: %v", p.Name(), err)
	}
	return out
}

func TestManagerRunsDefaultOrder(t *testing.T) {
	m := Default(nil, nil)
	want := []string{"validate", "lower-slices", "insert-resets", "lower-basics", "lower-specials", "lower-basics"}
	got := m.Passes()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected pass order %v", got)
	}
}

func TestManagerWrapsErrorsWithPassName(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys")
	x := b.Signal("x", 1)
	b.Sync("video", ir.Eq(ir.Ref(x), ir.Int(1)))

	_, err := Default(nil, nil).Run(b.Fragment())
	if !errors.Is(err, ir.ErrUnresolvedClockDomain) {
		t.Fatalf("expected unresolved clock domain, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "pass validate: ") {
		t.Fatalf("expected pass name prefix, got %q", err)
	}
}

func TestManagerDoesNotModifyInput(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys")
	counter := b.Signal("counter", 8)
	b.Sync("sys", ir.Eq(ir.Ref(counter), ir.Binary(ir.Add, ir.Ref(counter), ir.Int(1))))
	f := b.Fragment()

	out, err := Default(nil, nil).Run(f)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if len(f.Sync["sys"]) != 1 {
		t.Fatalf("input fragment was modified: %d sync statements", len(f.Sync["sys"]))
	}
	if len(out.Sync["sys"]) != 2 {
		t.Fatalf("expected reset override appended, got %d statements", len(out.Sync["sys"]))
	}
}

func TestSliceLoweringCollapsesAndFolds(t *testing.T) {
	b := ir.NewBuilder()
	a := b.Signal("a", 16)
	y := b.Signal("y", 2)
	z := b.Signal("z", 3)
	nested := &ir.Slice{Base: &ir.Slice{Base: ir.Ref(a), Start: 2, Stop: 8}, Start: 1, Stop: 3}
	folded := &ir.Slice{Base: ir.Const(0xb4, 8, false), Start: 2, Stop: 5}
	b.Comb(ir.Eq(ir.Ref(y), nested), ir.Eq(ir.Ref(z), folded))

	out := runPass(t, NewSliceLowering(), b.Fragment())
	s, ok := out.Comb[0].(*ir.Assign).Value.(*ir.Slice)
	if !ok || s.Start != 3 || s.Stop != 5 {
		t.Fatalf("expected a[3:5], got %s", ir.FormatExpr(out.Comb[0].(*ir.Assign).Value))
	}
	if _, ok := s.Base.(*ir.SignalRef); !ok {
		t.Fatalf("collapsed slice must refer to the signal directly")
	}
	c, ok := out.Comb[1].(*ir.Assign).Value.(*ir.Constant)
	if !ok || c.Value != 5 || c.Width != 3 {
		t.Fatalf("expected folded constant 5:u3, got %s", ir.FormatExpr(out.Comb[1].(*ir.Assign).Value))
	}
}

func TestSliceLoweringProxiesExpressions(t *testing.T) {
	b := ir.NewBuilder()
	a := b.Signal("a", 4)
	c := b.Signal("c", 4)
	y := b.Signal("y", 2)
	b.Comb(
		ir.Eq(ir.Ref(y), &ir.Slice{Base: ir.Binary(ir.Add, ir.Ref(a), ir.Ref(c)), Start: 3, Stop: 5}),
		ir.Eq(&ir.Slice{Base: ir.Cat(ir.Ref(a), ir.Ref(c)), Start: 2, Stop: 4}, ir.Ref(y)),
	)
	f := b.Fragment()
	out := runPass(t, NewSliceLowering(), f)
	if len(out.Comb) != 4 {
		t.Fatalf("expected two proxy assignments, got %d statements", len(out.Comb))
	}
	read := out.Comb[2].(*ir.Assign)
	proxy, ok := read.Target.(*ir.SignalRef)
	if !ok || proxy.Signal.Type.Width != 5 {
		t.Fatalf("expected 5-bit read proxy, got %s", ir.FormatExpr(read.Target))
	}
	if proxy.Signal.DUID <= f.MaxDUID() {
		t.Fatalf("proxy duid %d must sort after frontend signals", proxy.Signal.DUID)
	}
	write := out.Comb[3].(*ir.Assign)
	if _, ok := write.Target.(*ir.Concat); !ok {
		t.Fatalf("target proxy must drive the concatenation, got %s", ir.FormatExpr(write.Target))
	}
	if !out.Signals.Has(proxy.Signal) {
		t.Fatalf("proxy signal must join the fragment")
	}
}

func TestResetInsertion(t *testing.T) {
	b := ir.NewBuilder()
	sys := b.ClockDomain("sys")
	low := b.ClockDomain("low", ir.ActiveLowReset())
	free := b.ClockDomain("free", ir.ResetLessDomain())
	second := b.Signal("second", 4, ir.ResetValue(3))
	first := b.Signal("first", 4)
	keep := b.Signal("keep", 1, ir.NoReset())
	other := b.Signal("other", 1)
	b.Sync("sys", ir.Eq(ir.Ref(second), ir.Ref(first)), ir.Eq(ir.Ref(first), ir.Int(1)), ir.Eq(ir.Ref(keep), ir.Int(1)))
	b.Sync("low", ir.Eq(ir.Ref(other), ir.Int(1)))
	b.Sync("free", ir.Eq(ir.Ref(other), ir.Int(0)))
	_ = free

	out := runPass(t, NewResetInsertion(), b.Fragment())
	stmts := out.Sync["sys"]
	rst, ok := stmts[len(stmts)-1].(*ir.If)
	if !ok {
		t.Fatalf("expected trailing reset override")
	}
	if ref, ok := rst.Cond.(*ir.SignalRef); !ok || ref.Signal != sys.Rst {
		t.Fatalf("expected condition on sys_rst, got %s", ir.FormatExpr(rst.Cond))
	}
	if len(rst.Then) != 2 {
		t.Fatalf("reset-less signal must be skipped, got %d assignments", len(rst.Then))
	}
	if rst.Then[0].(*ir.Assign).Target.(*ir.SignalRef).Signal != second {
		t.Fatalf("reset assignments must follow duid order")
	}
	if v := rst.Then[0].(*ir.Assign).Value.(*ir.Constant).Value; v != 3 {
		t.Fatalf("expected reset value 3, got %d", v)
	}
	lowIf := out.Sync["low"][1].(*ir.If)
	if u, ok := lowIf.Cond.(*ir.UnaryOp); !ok || u.Op != ir.Not || u.Operand.(*ir.SignalRef).Signal != low.Rst {
		t.Fatalf("active-low reset must test ~low_rst, got %s", ir.FormatExpr(lowIf.Cond))
	}
	if len(out.Sync["free"]) != 1 {
		t.Fatalf("reset-less domain must not get a reset override")
	}
}

func TestBasicLoweringResolvesDomainRefs(t *testing.T) {
	b := ir.NewBuilder()
	sys := b.ClockDomain("sys")
	b.ClockDomain("free", ir.ResetLessDomain())
	x := b.Signal("x", 1)
	y := b.Signal("y", 1)
	b.Comb(
		ir.Eq(ir.Ref(x), &ir.ClockRef{Domain: "sys"}),
		ir.Eq(ir.Ref(y), &ir.ResetRef{Domain: "free", AllowResetLess: true}),
	)
	out := runPass(t, NewBasicLowering(), b.Fragment())
	if out.Comb[0].(*ir.Assign).Value.(*ir.SignalRef).Signal != sys.Clk {
		t.Fatalf("clock reference must resolve to sys_clk")
	}
	if c, ok := out.Comb[1].(*ir.Assign).Value.(*ir.Constant); !ok || c.Value != 0 {
		t.Fatalf("reset of a reset-less domain must lower to 0")
	}

	f := out.Clone()
	f.Comb = ir.Block{ir.Eq(ir.Ref(y), &ir.ResetRef{Domain: "free"})}
	_, err := NewBasicLowering().Run(&Context{Alloc: ir.NewAllocator(100)}, f)
	if !errors.Is(err, ir.ErrMalformedExpression) {
		t.Fatalf("expected malformed expression, got %v", err)
	}
	f.Comb = ir.Block{ir.Eq(ir.Ref(y), &ir.ClockRef{Domain: "video"})}
	_, err = NewBasicLowering().Run(&Context{Alloc: ir.NewAllocator(100)}, f)
	if !errors.Is(err, ir.ErrUnresolvedClockDomain) {
		t.Fatalf("expected unresolved clock domain, got %v", err)
	}
}

func TestBasicLoweringArrayRead(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys")
	a0 := b.Signal("a0", 4)
	a1 := b.Signal("a1", 4)
	a2 := b.Signal("a2", 4)
	sel := b.Signal("sel", 2)
	y := b.Signal("y", 4)
	b.Sync("sys", ir.Eq(ir.Ref(y), &ir.ArrayProxy{Choices: []ir.Expr{ir.Ref(a0), ir.Ref(a1), ir.Ref(a2)}, Key: ir.Ref(sel)}))

	out := runPass(t, NewBasicLowering(), b.Fragment())
	muxed := out.Sync["sys"][0].(*ir.Assign).Value.(*ir.SignalRef).Signal
	if !muxed.Variable || muxed.Type.Width != 4 {
		t.Fatalf("expected 4-bit variable temporary, got %+v", muxed)
	}
	if len(out.Comb) != 1 {
		t.Fatalf("expected the temporary to be driven combinationally")
	}
	c := out.Comb[0].(*ir.Case)
	if len(c.Arms) != 2 || c.Default == nil {
		t.Fatalf("expected two arms and a default, got %d arms", len(c.Arms))
	}
	if c.Default[0].(*ir.Assign).Value.(*ir.SignalRef).Signal != a2 {
		t.Fatalf("the last choice must be the default")
	}

	again := runPass(t, NewBasicLowering(), out)
	if len(again.Comb) != len(out.Comb) || len(again.Signals) != len(out.Signals) {
		t.Fatalf("basic lowering must be idempotent")
	}
}

func TestBasicLoweringArrayTarget(t *testing.T) {
	b := ir.NewBuilder()
	a0 := b.Signal("a0", 4)
	a1 := b.Signal("a1", 4)
	sel := b.Signal("sel", 1)
	v := b.Signal("v", 4)
	b.Comb(ir.Eq(&ir.ArrayProxy{Choices: []ir.Expr{ir.Ref(a0), ir.Ref(a1)}, Key: ir.Ref(sel)}, ir.Ref(v)))

	out := runPass(t, NewBasicLowering(), b.Fragment())
	if len(out.Comb) != 2 {
		t.Fatalf("expected assignment plus trailing case, got %d", len(out.Comb))
	}
	tmp := out.Comb[0].(*ir.Assign).Target.(*ir.SignalRef).Signal
	c := out.Comb[1].(*ir.Case)
	drive := c.Arms[0].Body[0].(*ir.Assign)
	if drive.Target.(*ir.SignalRef).Signal != a0 || drive.Value.(*ir.SignalRef).Signal != tmp {
		t.Fatalf("case must drive the choices from the temporary")
	}
	if c.Default[0].(*ir.Assign).Target.(*ir.SignalRef).Signal != a1 {
		t.Fatalf("last choice must be the default target")
	}
}

func TestBasicLoweringPart(t *testing.T) {
	b := ir.NewBuilder()
	word := b.Signal("word", 16)
	off := b.Signal("off", 2)
	y := b.Signal("y", 4)
	b.Comb(ir.Eq(ir.Ref(y), &ir.Part{Base: ir.Ref(word), Offset: ir.Ref(off), Width: 4, Stride: 4}))

	out := runPass(t, NewBasicLowering(), b.Fragment())
	c := out.Comb[len(out.Comb)-1].(*ir.Case)
	if len(c.Arms) != 3 {
		t.Fatalf("expected 3 arms plus default, got %d", len(c.Arms))
	}
	last := c.Default[0].(*ir.Assign).Value.(*ir.Slice)
	if last.Start != 12 || last.Stop != 16 {
		t.Fatalf("expected default word[12:16], got %s", ir.FormatExpr(last))
	}
}

type fakeLowerer struct {
	offered []string
}

func (l *fakeLowerer) LowerSpecial(sp ir.Special, alloc *ir.Allocator) (*ir.Fragment, bool, error) {
	l.offered = append(l.offered, sp.Kind())
	switch s := sp.(type) {
	case *ir.MultiReg:
		stage := alloc.Signal("stage", 1)
		return &ir.Fragment{
			Signals: ir.NewSignalSet(stage),
			Comb:    ir.Block{ir.Eq(s.O, ir.Ref(stage))},
			Sync:    map[string]ir.Block{s.Domain: {ir.Eq(ir.Ref(stage), s.I)}},
			Specials: []ir.Special{&ir.Tristate{
				ID: alloc.Next(), Target: ir.Ref(stage), O: ir.Int(0), OE: ir.Int(0),
			}},
		}, true, nil
	case *ir.Instance:
		return nil, false, errors.New("instances are broken")
	}
	return nil, false, nil
}

func TestSpecialLoweringMergesAndReoffers(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys")
	i := b.Signal("i", 1)
	o := b.Signal("o", 1)
	b.MultiReg(ir.Ref(i), ir.Ref(o), "sys", 2)

	l := &fakeLowerer{}
	out := runPass(t, NewSpecialLowering(l), b.Fragment())
	if strings.Join(l.offered, ",") != "multireg,tristate" {
		t.Fatalf("unexpected offers %v", l.offered)
	}
	if len(out.Specials) != 1 || out.Specials[0].Kind() != "tristate" {
		t.Fatalf("expected the nested tristate to be kept, got %v", out.Specials)
	}
	if len(out.Comb) != 1 || len(out.Sync["sys"]) != 1 {
		t.Fatalf("lowered logic must be merged")
	}

	b.Instance("BUFG", "", nil, nil)
	_, err := NewSpecialLowering(l).Run(&Context{Alloc: ir.NewAllocator(100)}, b.Fragment())
	if err == nil || !strings.Contains(err.Error(), "lower instance special") {
		t.Fatalf("expected wrapped lowering error, got %v", err)
	}
}
