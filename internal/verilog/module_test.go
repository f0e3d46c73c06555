package verilog

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"

	"fhdl/internal/ir"
	"fhdl/internal/namer"
)

var fixedNow = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

func convert(t *testing.T, f *ir.Fragment, opts Options) *Artifact {
	t.Helper()
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	art, err := Convert(f, opts)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	return art
}

func mustContain(t *testing.T, src string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(src, p) {
			t.Fatalf("output is missing %q:\n%s", p, src)
		}
	}
}

func counterFragment() *ir.Fragment {
	b := ir.NewBuilder()
	sys := b.ClockDomain("sys")
	counter := b.Signal("counter", 8)
	b.Sync("sys", ir.Eq(ir.Ref(counter), ir.Binary(ir.Add, ir.Ref(counter), ir.Int(1))))
	b.IO(sys.Clk, sys.Rst, counter)
	return b.Fragment()
}

func TestConvertCounterGolden(t *testing.T) {
	ar, err := txtar.ParseFile("testdata/counter.txtar")
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	var want string
	for _, f := range ar.Files {
		if f.Name == "top.v" {
			want = string(f.Data)
		}
	}
	if want == "" {
		t.Fatalf("golden archive has no top.v")
	}

	art := convert(t, counterFragment(), Options{})
	if diff := cmp.Diff(want, art.Source); diff != "" {
		t.Fatalf("counter output mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertIsDeterministic(t *testing.T) {
	first := convert(t, counterFragment(), Options{})
	for i := 0; i < 5; i++ {
		again := convert(t, counterFragment(), Options{})
		if again.Source != first.Source {
			t.Fatalf("run %d produced different output", i)
		}
	}
}

func TestConvertUnresolvedDomain(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys")
	x := b.Signal("x", 1)
	b.Sync("video", ir.Eq(ir.Ref(x), ir.Int(1)))

	_, err := Convert(b.Fragment(), Options{Now: fixedNow})
	if !errors.Is(err, ir.ErrUnresolvedClockDomain) {
		t.Fatalf("expected unresolved clock domain, got %v", err)
	}
	if !strings.Contains(err.Error(), `"video"`) || !strings.Contains(err.Error(), "- sys") {
		t.Fatalf("error should name the domain and list the defined ones: %v", err)
	}
}

type blackbox struct{ id int }

func (b *blackbox) DUID() int                  { return b.id }
func (b *blackbox) Kind() string               { return "blackbox" }
func (b *blackbox) Hint() string               { return "bb" }
func (b *blackbox) IOs() []ir.SpecialIO        { return nil }
func (b *blackbox) Internals() []*ir.Signal    { return nil }
func (b *blackbox) Attributes() []ir.Attribute { return nil }
func (b *blackbox) MapExprs(func(ir.Expr, bool) (ir.Expr, error)) (ir.Special, error) {
	return b, nil
}

func TestConvertUnhandledSpecial(t *testing.T) {
	b := ir.NewBuilder()
	b.Special(&blackbox{id: b.Alloc().Next()})

	_, err := Convert(b.Fragment(), Options{Now: fixedNow})
	if !errors.Is(err, ir.ErrUnhandledSpecial) {
		t.Fatalf("expected unhandled special, got %v", err)
	}
	if !strings.Contains(err.Error(), `"blackbox"`) {
		t.Fatalf("error should name the special kind: %v", err)
	}
}

func TestConvertCustomSpecialHandler(t *testing.T) {
	b := ir.NewBuilder()
	b.Special(&blackbox{id: b.Alloc().Next()})
	reg := DefaultRegistry()
	reg.Register("blackbox", Handler{Emit: func(sp ir.Special, ns *namer.Namespace, _ DataFileWriter) (string, bool, error) {
		name, _ := ns.Lookup(sp.DUID())
		return "// blackbox " + name + "\n", true, nil
	}})

	art := convert(t, b.Fragment(), Options{Registry: reg})
	mustContain(t, art.Source, "// blackbox bb\n")
}

func TestConvertWireAndRegClassification(t *testing.T) {
	b := ir.NewBuilder()
	a := b.Signal("a", 1)
	c := b.Signal("c", 1)
	y := b.Signal("y", 1)
	z := b.Signal("z", 1)
	b.Comb(
		ir.Eq(ir.Ref(y), ir.Binary(ir.And, ir.Ref(a), ir.Ref(c))),
		ir.When(ir.Ref(a), ir.Eq(ir.Ref(z), ir.Int(1))),
	)
	b.IO(a, c, y, z)

	art := convert(t, b.Fragment(), Options{})
	mustContain(t, art.Source,
		"\tinput  wire a,\n",
		"\toutput wire y,\n",
		"\toutput reg  z\n",
		"assign y = (a & c);\n",
		"always @(*) begin\n\tz <= 1'd0;\n\tif (a) begin\n\t\tz <= 1'd1;\n\tend\nend\n",
	)
	if got := art.Classes[y.DUID]; got != (ir.SignalClass{Direction: ir.Output, Kind: ir.Wire}) {
		t.Fatalf("y classified as %v %v", got.Direction, got.Kind)
	}
	if got := art.Classes[z.DUID]; got != (ir.SignalClass{Direction: ir.Output, Kind: ir.Reg}) {
		t.Fatalf("z classified as %v %v", got.Direction, got.Kind)
	}
	if got := art.Classes[a.DUID]; got.Direction != ir.Input {
		t.Fatalf("a classified as %v", got.Direction)
	}
}

func TestConvertDeclaresSignalsInDUIDOrder(t *testing.T) {
	b := ir.NewBuilder()
	late := b.Signal("zeta", 4, ir.ResetValue(3))
	early := b.Signal("alpha", 4, ir.Signed(), ir.ResetValue(-1))
	out := b.Signal("out", 4)
	b.Comb(ir.Eq(ir.Ref(out), ir.Binary(ir.Xor, ir.Ref(late), ir.Ref(early))))
	b.IO(out)

	src := convert(t, b.Fragment(), Options{}).Source
	zeta := strings.Index(src, "reg  [3:0] zeta = 4'd3;\n")
	alpha := strings.Index(src, "reg  signed [3:0] alpha = 4'sd15;\n")
	if zeta < 0 || alpha < 0 {
		t.Fatalf("missing declarations:\n%s", src)
	}
	if zeta > alpha {
		t.Fatalf("declarations are not in creation order:\n%s", src)
	}
	mustContain(t, src, "assign out = ($signed({1'd0, zeta}) ^ alpha);\n")
}

func TestConvertActiveLowReset(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys", ir.ActiveLowReset())
	q := b.Signal("q", 1, ir.ResetValue(1))
	b.Sync("sys", ir.Eq(ir.Ref(q), ir.Unary(ir.Not, ir.Ref(q))))

	src := convert(t, b.Fragment(), Options{}).Source
	mustContain(t, src, "\tif ((~sys_rst)) begin\n\t\tq <= 1'd1;\n\tend\n")
}

func TestConvertSyncDomainsInDefinitionOrder(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys")
	b.ClockDomain("audio", ir.ResetLessDomain())
	x := b.Signal("x", 1)
	y := b.Signal("y", 1)
	b.Sync("audio", ir.Eq(ir.Ref(y), ir.Ref(x)))
	b.Sync("sys", ir.Eq(ir.Ref(x), ir.Ref(y)))

	src := convert(t, b.Fragment(), Options{}).Source
	sys := strings.Index(src, "always @(posedge sys_clk)")
	audio := strings.Index(src, "always @(posedge audio_clk)")
	if sys < 0 || audio < 0 || sys > audio {
		t.Fatalf("sync blocks out of order:\n%s", src)
	}
	if strings.Count(src, "if (") != 1 {
		t.Fatalf("reset-less domain must not get a reset block:\n%s", src)
	}
}

func partialOverlapFragment() *ir.Fragment {
	b := ir.NewBuilder()
	c := b.Signal("c", 1)
	p := b.Signal("p", 1)
	q := b.Signal("q", 1)
	b.Comb(
		ir.When(ir.Ref(c), ir.Eq(ir.Ref(p), ir.Int(1)), ir.Eq(ir.Ref(q), ir.Int(1))),
		ir.Eq(ir.Ref(q), ir.Ref(c)),
	)
	b.IO(c, p, q)
	return b.Fragment()
}

func TestConvertPartialOverlapSynthesis(t *testing.T) {
	src := convert(t, partialOverlapFragment(), Options{}).Source
	if n := strings.Count(src, "always @(*)"); n != 1 {
		t.Fatalf("expected one merged process, got %d:\n%s", n, src)
	}
	mustContain(t, src, "always @(*) begin\n"+
		"\tp <= 1'd0;\n"+
		"\tq <= 1'd0;\n"+
		"\tif (c) begin\n\t\tp <= 1'd1;\n\t\tq <= 1'd1;\n\tend\n"+
		"\tq <= c;\n"+
		"end\n")
}

func TestConvertPartialOverlapSimulation(t *testing.T) {
	src := convert(t, partialOverlapFragment(), Options{Simulation: true}).Source
	if n := strings.Count(src, "always @(*)"); n != 2 {
		t.Fatalf("expected one process per signal, got %d:\n%s", n, src)
	}
	mustContain(t, src,
		"always @(*) begin\n\tp <= 1'd0;\n\tif (c) begin\n\t\tp <= 1'd1;\n\tend\nend\n",
		"always @(*) begin\n\tq <= 1'd0;\n\tif (c) begin\n\t\tq <= 1'd1;\n\tend\n\tq <= c;\nend\n",
	)
}

func TestConvertSimulationKeepsUntargetedStatements(t *testing.T) {
	b := ir.NewBuilder()
	a := b.Signal("a", 1)
	y := b.Signal("y", 1)
	sel := b.Signal("sel", 1)
	b.Comb(
		ir.When(ir.Ref(a), &ir.Display{Format: "hit"}, &ir.Finish{}),
		ir.When(ir.Ref(sel), ir.Eq(ir.Ref(y), ir.Ref(a)), &ir.Display{Format: "y=%d", Args: []ir.DisplayArg{ir.Arg(ir.Ref(a))}}),
	)
	b.IO(a, y, sel)

	for _, sim := range []bool{false, true} {
		src := convert(t, b.Fragment(), Options{Simulation: sim}).Source
		if n := strings.Count(src, "$display(\"hit\");"); n != 1 {
			t.Fatalf("simulation=%v: expected one hit display, got %d:\n%s", sim, n, src)
		}
		if n := strings.Count(src, "$finish;"); n != 1 {
			t.Fatalf("simulation=%v: expected one finish, got %d:\n%s", sim, n, src)
		}
		if n := strings.Count(src, "$display(\"y=%d\", a);"); n != 1 {
			t.Fatalf("simulation=%v: expected one y display, got %d:\n%s", sim, n, src)
		}
	}

	src := convert(t, b.Fragment(), Options{Simulation: true}).Source
	mustContain(t, src,
		"always @(*) begin\n\ty <= 1'd0;\n\tif (sel) begin\n\t\ty <= a;\n\tend\nend\n",
		"always @(*) begin\n\tif (a) begin\n\t\t$display(\"hit\");\n\t\t$finish;\n\tend\n\tif (sel) begin\n\t\t$display(\"y=%d\", a);\n\tend\nend\n",
	)
}

func TestConvertSimulationKeepsContinuousAssigns(t *testing.T) {
	b := ir.NewBuilder()
	a := b.Signal("a", 2)
	y := b.Signal("y", 2)
	b.Comb(ir.Eq(ir.Cat(ir.Bit(ir.Ref(y), 0), ir.Bit(ir.Ref(y), 1)), ir.Ref(a)))
	b.IO(a, y)

	src := convert(t, b.Fragment(), Options{Simulation: true}).Source
	if n := strings.Count(src, "assign "); n != 1 {
		t.Fatalf("expected a single continuous assignment, got %d:\n%s", n, src)
	}
	mustContain(t, src, "assign {y[1], y[0]} = a;\n")
}

func TestConvertAttributesAndKeywords(t *testing.T) {
	b := ir.NewBuilder()
	keep := b.Signal("reg", 1, ir.WithAttrs(ir.Attribute{Key: "keep"}, ir.Attribute{Key: "unknown"}))
	direct := b.Signal("counter", 1, ir.WithAttrs(ir.Attribute{Name: "mark_debug", Value: "true"}))
	y := b.Signal("y", 1)
	b.Comb(ir.Eq(ir.Ref(y), ir.Binary(ir.Or, ir.Ref(keep), ir.Ref(direct))))
	b.IO(y)

	art := convert(t, b.Fragment(), Options{
		Attributes:    AttrTable{"keep": {Name: "keep", Value: 1}},
		ExtraKeywords: []string{"counter"},
	})
	mustContain(t, art.Source,
		"(* keep = 1 *) reg  reg_1 = 1'd0;\n",
		"(* mark_debug = \"true\" *) reg  counter_1 = 1'd0;\n",
	)
	if strings.Contains(art.Source, "unknown =") {
		t.Fatalf("untranslated attribute leaked:\n%s", art.Source)
	}
	if got := art.Namespace.NameOf(keep); got != "reg_1" {
		t.Fatalf("keyword clash named %q", got)
	}
}

func TestConvertBannerFields(t *testing.T) {
	art := convert(t, counterFragment(), Options{Name: "blinky", Device: "ice40", Revision: "abc123"})
	mustContain(t, art.Source,
		"// Filename   : blinky.v\n",
		"// Device     : ice40\n",
		"// Revision   : abc123\n",
		"module blinky (\n",
		"//  Auto-Generated by fhdl on 2024-01-02 03:04:05.\n",
	)
}

func TestConvertDoesNotModifyInput(t *testing.T) {
	f := counterFragment()
	convert(t, f, Options{})
	if len(f.Sync["sys"]) != 1 {
		t.Fatalf("input fragment gained %d sync statements", len(f.Sync["sys"])-1)
	}
}
