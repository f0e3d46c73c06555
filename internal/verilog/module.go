package verilog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fhdl/internal/diag"
	"fhdl/internal/ir"
	"fhdl/internal/namer"
	"fhdl/internal/passes"
)

// Options configures one conversion.
type Options struct {
	// Name is the module name; "top" when empty.
	Name     string
	Device   string
	Revision string
	// Attributes translates attribute keys. nil prints every key as
	// key = "true".
	Attributes AttrTable
	// Simulation selects per-signal combinational blocks instead of the
	// merged synthesis style.
	Simulation bool
	// Registry handles specials; DefaultRegistry() when nil.
	Registry *Registry
	// ExtraKeywords are reserved in addition to Keywords.
	ExtraKeywords []string
	Reporter      *diag.Reporter
	Logger        *slog.Logger
	// Now stamps the banner; time.Now when nil.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "top"
	}
	if o.Registry == nil {
		o.Registry = DefaultRegistry()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Artifact is the result of a conversion.
type Artifact struct {
	Source    string
	Namespace *namer.Namespace
	// Classes holds the direction and kind of every declared or port
	// signal, keyed by DUID.
	Classes   map[int]ir.SignalClass
	DataFiles []DataFile
}

// Convert lowers f and prints it as a Verilog module. f is not modified.
func Convert(f *ir.Fragment, opts Options) (*Artifact, error) {
	opts = opts.withDefaults()
	logger := componentLogger(opts.Logger, "verilog")

	mgr := passes.Default(opts.Registry, opts.Reporter)
	mgr.Logger = opts.Logger
	lowered, err := mgr.Run(f)
	if err != nil {
		return nil, err
	}

	ns := buildNamespace(lowered, Keywords.Union(opts.ExtraKeywords...))
	cls := classify(lowered)
	a := &assembler{
		frag:  lowered,
		ns:    ns,
		cls:   cls,
		opts:  opts,
		files: newDataFiles(opts.Name),
	}
	src, err := a.print()
	if err != nil {
		return nil, err
	}
	if logEnabled(logger, slog.LevelDebug) {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "converted module",
			slog.String("module", opts.Name),
			slog.Int("names", ns.Len()),
			slog.Int("data_files", len(a.files.files)),
			slog.Int("bytes", len(src)))
	}
	return &Artifact{
		Source:    src,
		Namespace: ns,
		Classes:   cls.table(),
		DataFiles: a.files.files,
	}, nil
}

// specialIOSignals returns the signals connected to specials, split by
// whether the special drives them.
func specialIOSignals(f *ir.Fragment) (all, outs, inouts ir.SignalSet) {
	all, outs, inouts = ir.SignalSet{}, ir.SignalSet{}, ir.SignalSet{}
	for _, sp := range f.Specials {
		for _, io := range sp.IOs() {
			all.Union(ir.ExprSignals(io.Expr))
			switch io.Direction {
			case ir.Output:
				outs.Union(ir.ExprTargets(io.Expr))
			case ir.InOut:
				outs.Union(ir.ExprTargets(io.Expr))
				inouts.Union(ir.ExprTargets(io.Expr))
			}
		}
	}
	return all, outs, inouts
}

func buildNamespace(f *ir.Fragment, reserved namer.Keywords) *namer.Namespace {
	sigs := f.Signals.Clone()
	sigs.Union(f.IOs)
	specialSigs, _, _ := specialIOSignals(f)
	sigs.Union(specialSigs)
	cands := namer.SignalCandidates(sigs.Sorted()...)
	for _, sp := range f.Specials {
		cands = append(cands, namer.SignalCandidates(sp.Internals()...)...)
		if hint := sp.Hint(); hint != "" {
			cands = append(cands, namer.Candidate{DUID: sp.DUID(), Hint: hint})
		}
	}
	return namer.Build(cands, reserved)
}

// classes is the per-compilation classification side table.
type classes struct {
	all     ir.SignalSet
	targets ir.SignalSet
	wires   ir.SignalSet
	inouts  ir.SignalSet
	ios     ir.SignalSet
}

func classify(f *ir.Fragment) *classes {
	specialSigs, specialOuts, inouts := specialIOSignals(f)
	c := &classes{
		all:     f.Signals.Clone(),
		targets: ir.Targets(f.Comb...),
		wires:   ir.SignalSet{},
		inouts:  inouts,
		ios:     f.IOs,
	}
	c.all.Union(specialSigs)
	c.all.Union(f.IOs)
	syncTargets := ir.SignalSet{}
	for _, name := range f.SyncDomains() {
		syncTargets.Union(ir.Targets(f.Sync[name]...))
	}
	c.targets.Union(syncTargets)
	c.targets.Union(specialOuts)
	for _, g := range ir.GroupByTargets(f.Comb) {
		if len(g.Stmts) != 1 {
			continue
		}
		if _, ok := g.Stmts[0].(*ir.Assign); !ok {
			continue
		}
		for duid, s := range g.Targets {
			if _, driven := syncTargets[duid]; !driven {
				c.wires.Add(s)
			}
		}
	}
	c.wires.Union(specialOuts)
	return c
}

func (c *classes) class(s *ir.Signal) ir.SignalClass {
	kind := ir.Reg
	if c.wires.Has(s) {
		kind = ir.Wire
	}
	if !c.ios.Has(s) {
		return ir.SignalClass{Direction: ir.Internal, Kind: kind}
	}
	switch {
	case c.inouts.Has(s):
		return ir.SignalClass{Direction: ir.InOut, Kind: ir.Wire}
	case c.targets.Has(s):
		return ir.SignalClass{Direction: ir.Output, Kind: kind}
	default:
		return ir.SignalClass{Direction: ir.Input, Kind: ir.Wire}
	}
}

func (c *classes) table() map[int]ir.SignalClass {
	out := make(map[int]ir.SignalClass, len(c.all))
	for duid, s := range c.all {
		out[duid] = c.class(s)
	}
	return out
}

type assembler struct {
	frag  *ir.Fragment
	ns    *namer.Namespace
	cls   *classes
	opts  Options
	files *dataFiles
	b     strings.Builder
}

func (a *assembler) print() (string, error) {
	data := newBannerData(a.opts.Name, a.opts.Device, a.opts.Revision, a.opts.Now())
	if err := printBanner(&a.b, data); err != nil {
		return "", fmt.Errorf("verilog: banner: %w", err)
	}
	printSeparator(&a.b, "Module")
	if err := a.printHeader(); err != nil {
		return "", err
	}
	printSeparator(&a.b, "Signals")
	if err := a.printSignals(); err != nil {
		return "", err
	}
	printSeparator(&a.b, "Combinational Logic")
	var err error
	if a.opts.Simulation {
		err = a.printCombSimulation()
	} else {
		err = a.printCombSynthesis()
	}
	if err != nil {
		return "", err
	}
	printSeparator(&a.b, "Synchronous Logic")
	if err := a.printSync(); err != nil {
		return "", err
	}
	printSeparator(&a.b, "Specialized Logic")
	if err := a.printSpecials(); err != nil {
		return "", err
	}
	a.b.WriteString("endmodule\n")
	if err := printTrailer(&a.b, data); err != nil {
		return "", fmt.Errorf("verilog: trailer: %w", err)
	}
	return a.b.String(), nil
}

func (a *assembler) printHeader() error {
	fmt.Fprintf(&a.b, "module %s (\n", a.opts.Name)
	for i, sig := range a.frag.IOs.Sorted() {
		if i > 0 {
			a.b.WriteString(",\n")
		}
		a.b.WriteString("\t")
		if attr := printAttributes(sig.Attrs, a.opts.Attributes); attr != "" {
			a.b.WriteString(attr + " ")
		}
		decl, err := printDecl(a.ns, sig)
		if err != nil {
			return err
		}
		c := a.cls.class(sig)
		switch {
		case c.Direction == ir.InOut:
			a.b.WriteString("inout  wire " + decl)
		case c.Direction == ir.Output && c.Kind == ir.Wire:
			a.b.WriteString("output wire " + decl)
		case c.Direction == ir.Output:
			a.b.WriteString("output reg  " + decl)
		default:
			a.b.WriteString("input  wire " + decl)
		}
	}
	a.b.WriteString("\n);\n\n")
	return nil
}

func (a *assembler) printSignals() error {
	for _, sig := range a.cls.all.Sorted() {
		if a.frag.IOs.Has(sig) {
			continue
		}
		if attr := printAttributes(sig.Attrs, a.opts.Attributes); attr != "" {
			a.b.WriteString(attr + " ")
		}
		decl, err := printDecl(a.ns, sig)
		if err != nil {
			return err
		}
		if a.cls.wires.Has(sig) {
			fmt.Fprintf(&a.b, "wire %s;\n", decl)
			continue
		}
		fmt.Fprintf(&a.b, "reg  %s = %s;\n", decl, printConstant(resetOf(sig)))
	}
	return nil
}

func resetOf(sig *ir.Signal) *ir.Constant {
	return ir.Const(sig.Reset, sig.Type.Width, sig.Type.Signed)
}

// continuous reports whether g prints as a continuous assignment.
func (a *assembler) continuous(g ir.Group) (*ir.Assign, bool) {
	if len(g.Stmts) != 1 {
		return nil, false
	}
	as, ok := g.Stmts[0].(*ir.Assign)
	if !ok {
		return nil, false
	}
	for _, t := range g.Targets {
		if !a.cls.wires.Has(t) {
			return nil, false
		}
	}
	return as, true
}

func (a *assembler) printAssign(as *ir.Assign) error {
	text, err := PrintStmts(a.ns, AtBlocking, 0, ir.Block{as}, nil)
	if err != nil {
		return err
	}
	a.b.WriteString("assign " + text)
	return nil
}

// printProcess prints an always @(*) block defaulting each target to its
// reset value before the statements of b.
func (a *assembler) printProcess(targets []*ir.Signal, b ir.Block, filter *ir.Signal) error {
	defaults := make(ir.Block, 0, len(targets))
	for _, t := range targets {
		defaults = append(defaults, ir.Eq(ir.Ref(t), resetOf(t)))
	}
	head, err := PrintStmts(a.ns, AtNonBlocking, 1, defaults, nil)
	if err != nil {
		return err
	}
	body, err := PrintStmts(a.ns, AtNonBlocking, 1, b, filter)
	if err != nil {
		return err
	}
	a.b.WriteString("always @(*) begin\n")
	a.b.WriteString(head)
	a.b.WriteString(body)
	a.b.WriteString("end\n")
	return nil
}

func (a *assembler) printCombSynthesis() error {
	for _, g := range ir.GroupByTargets(a.frag.Comb) {
		if as, ok := a.continuous(g); ok {
			if err := a.printAssign(as); err != nil {
				return err
			}
			continue
		}
		if err := a.printProcess(g.Targets.Sorted(), g.Stmts, nil); err != nil {
			return err
		}
	}
	a.b.WriteString("\n")
	return nil
}

func (a *assembler) printCombSimulation() error {
	groups := ir.GroupByTargets(a.frag.Comb)
	groupOf := make(map[int]int)
	for i, g := range groups {
		for duid := range g.Targets {
			groupOf[duid] = i
		}
	}
	printed := make(map[int]bool)
	for _, t := range ir.Targets(a.frag.Comb...).Sorted() {
		gi := groupOf[t.DUID]
		if as, ok := a.continuous(groups[gi]); ok {
			if printed[gi] {
				continue
			}
			printed[gi] = true
			if err := a.printAssign(as); err != nil {
				return err
			}
			continue
		}
		if err := a.printProcess([]*ir.Signal{t}, a.frag.Comb, t); err != nil {
			return err
		}
	}
	// The target filter drops statements that drive nothing; they run in a
	// process of their own.
	if rest := untargeted(a.frag.Comb); len(rest) > 0 {
		if err := a.printProcess(nil, rest, nil); err != nil {
			return err
		}
	}
	a.b.WriteString("\n")
	return nil
}

// untargeted strips every assignment from b, keeping the control flow that
// still leads to a statement without targets.
func untargeted(b ir.Block) ir.Block {
	var out ir.Block
	for _, s := range b {
		switch n := s.(type) {
		case *ir.Assign:
		case *ir.If:
			then, els := untargeted(n.Then), untargeted(n.Else)
			if len(then) > 0 || len(els) > 0 {
				out = append(out, &ir.If{Cond: n.Cond, Then: then, Else: els})
			}
		case *ir.Case:
			c := &ir.Case{Test: n.Test, Default: untargeted(n.Default)}
			keep := len(c.Default) > 0
			for _, arm := range n.Arms {
				body := untargeted(arm.Body)
				keep = keep || len(body) > 0
				c.Arms = append(c.Arms, ir.CaseArm{Key: arm.Key, Body: body})
			}
			if keep {
				out = append(out, c)
			}
		default:
			out = append(out, s)
		}
	}
	return out
}

func (a *assembler) printSync() error {
	for _, name := range a.frag.SyncDomains() {
		if _, err := a.frag.Domain(name); err != nil {
			return err
		}
	}
	for _, cd := range a.frag.ClockDomains {
		stmts := a.frag.Sync[cd.Name]
		if len(stmts) == 0 {
			continue
		}
		clk, err := signalName(a.ns, cd.Clk)
		if err != nil {
			return err
		}
		body, err := PrintStmts(a.ns, AtSignal, 1, stmts, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(&a.b, "always @(posedge %s) begin\n", clk)
		a.b.WriteString(body)
		a.b.WriteString("end\n\n")
	}
	return nil
}

func (a *assembler) printSpecials() error {
	for _, sp := range a.frag.SortedSpecials() {
		text, err := a.opts.Registry.Emit(sp, a.ns, a.files)
		if err != nil {
			return err
		}
		if attr := printAttributes(sp.Attributes(), a.opts.Attributes); attr != "" {
			a.b.WriteString(attr + " ")
		}
		a.b.WriteString(text)
	}
	return nil
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
