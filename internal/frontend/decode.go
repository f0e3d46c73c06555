package frontend

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"fhdl/internal/ir"
)

// ReadFile decodes the document stored at path.
func ReadFile(path string) (*ir.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frontend: %w", err)
	}
	f, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// DecodeBytes decodes a document held in memory.
func DecodeBytes(data []byte) (*ir.Fragment, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one document from r and rebuilds the fragment it describes.
func Decode(r io.Reader) (*ir.Fragment, error) {
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("frontend: decode document: %w", err)
	}
	return FromDocument(&doc)
}

// FromDocument rebuilds the fragment described by doc.
func FromDocument(doc *Document) (*ir.Fragment, error) {
	if doc.Schema != SchemaVersion {
		return nil, fmt.Errorf("frontend: unsupported schema version %d (want %d)", doc.Schema, SchemaVersion)
	}
	d := &decoder{sigs: make(map[int]*ir.Signal, len(doc.Signals))}
	f, err := d.fragment(doc)
	if err != nil {
		return nil, fmt.Errorf("frontend: %w", err)
	}
	return f, nil
}

type decoder struct {
	sigs map[int]*ir.Signal
}

func narrow(field string, v int64) (int, error) {
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return n, nil
}

func (d *decoder) fragment(doc *Document) (*ir.Fragment, error) {
	for _, rec := range doc.Signals {
		sig, err := d.signal(rec)
		if err != nil {
			return nil, err
		}
		if _, dup := d.sigs[sig.DUID]; dup {
			return nil, fmt.Errorf("signal %s: duplicate duid", sig)
		}
		d.sigs[sig.DUID] = sig
	}

	f := &ir.Fragment{Signals: ir.SignalSet{}, Sync: map[string]ir.Block{}, IOs: ir.SignalSet{}}
	for _, rec := range doc.Domains {
		cd, err := d.domain(rec)
		if err != nil {
			return nil, err
		}
		f.ClockDomains = append(f.ClockDomains, cd)
	}
	for _, duid := range doc.IOs {
		sig, err := d.lookup(duid)
		if err != nil {
			return nil, fmt.Errorf("ios: %w", err)
		}
		f.IOs.Add(sig)
	}
	comb, err := d.block(doc.Comb)
	if err != nil {
		return nil, fmt.Errorf("comb: %w", err)
	}
	f.Comb = comb
	for name, recs := range doc.Sync {
		b, err := d.block(recs)
		if err != nil {
			return nil, fmt.Errorf("sync %s: %w", name, err)
		}
		f.Sync[name] = b
	}
	internals := ir.SignalSet{}
	specials := make(map[int]bool, len(doc.Specials))
	for _, rec := range doc.Specials {
		sp, err := d.special(rec)
		if err != nil {
			return nil, fmt.Errorf("special %s#%d: %w", rec.K, rec.DUID, err)
		}
		if _, clash := d.sigs[sp.DUID()]; clash || specials[sp.DUID()] {
			return nil, fmt.Errorf("special %s#%d: duplicate duid", rec.K, rec.DUID)
		}
		specials[sp.DUID()] = true
		for _, s := range sp.Internals() {
			internals.Add(s)
		}
		f.Specials = append(f.Specials, sp)
	}
	for duid, sig := range d.sigs {
		if _, internal := internals[duid]; !internal {
			f.Signals.Add(sig)
		}
	}
	return f, nil
}

func (d *decoder) signal(rec SignalRecord) (*ir.Signal, error) {
	duid, err := narrow("signal duid", rec.DUID)
	if err != nil {
		return nil, err
	}
	if duid < 1 {
		return nil, fmt.Errorf("signal %q: invalid duid %d", rec.Name, duid)
	}
	width, err := narrow("signal width", rec.Width)
	if err != nil {
		return nil, err
	}
	return &ir.Signal{
		DUID:      duid,
		Name:      rec.Name,
		Type:      ir.SignalType{Width: width, Signed: rec.Signed},
		Reset:     ir.Truncate(rec.Reset, width, rec.Signed),
		Attrs:     attributes(rec.Attrs),
		ResetLess: rec.ResetLess,
		Variable:  rec.Variable,
	}, nil
}

func attributes(recs []AttrRecord) []ir.Attribute {
	if len(recs) == 0 {
		return nil
	}
	out := make([]ir.Attribute, len(recs))
	for i, a := range recs {
		out[i] = ir.Attribute{Key: a.Key, Name: a.Name, Value: a.Value}
	}
	return out
}

func (d *decoder) lookup(duid int64) (*ir.Signal, error) {
	id, err := narrow("duid", duid)
	if err != nil {
		return nil, err
	}
	sig, ok := d.sigs[id]
	if !ok {
		return nil, &ir.MalformedExpressionError{Reason: fmt.Sprintf("unknown signal duid %d", duid)}
	}
	return sig, nil
}

// optional resolves a duid that may be 0.
func (d *decoder) optional(duid int64) (*ir.Signal, error) {
	if duid == 0 {
		return nil, nil
	}
	return d.lookup(duid)
}

func (d *decoder) domain(rec DomainRecord) (*ir.ClockDomain, error) {
	clk, err := d.lookup(rec.Clk)
	if err != nil {
		return nil, fmt.Errorf("domain %s clock: %w", rec.Name, err)
	}
	rst, err := d.optional(rec.Rst)
	if err != nil {
		return nil, fmt.Errorf("domain %s reset: %w", rec.Name, err)
	}
	return &ir.ClockDomain{Name: rec.Name, Clk: clk, Rst: rst, ResetActiveLow: rec.ActiveLow}, nil
}

func (d *decoder) exprs(recs []ExprRecord) ([]ir.Expr, error) {
	out := make([]ir.Expr, len(recs))
	for i := range recs {
		e, err := d.expr(&recs[i])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (d *decoder) args(rec *ExprRecord, n int) ([]ir.Expr, error) {
	if len(rec.Args) != n {
		return nil, &ir.MalformedExpressionError{Reason: fmt.Sprintf("%s record needs %d operands, has %d", rec.K, n, len(rec.Args))}
	}
	return d.exprs(rec.Args)
}

func (d *decoder) expr(rec *ExprRecord) (ir.Expr, error) {
	if rec == nil {
		return nil, &ir.MalformedExpressionError{Reason: "missing expression"}
	}
	switch rec.K {
	case KindConst:
		width, err := narrow("constant width", rec.Width)
		if err != nil {
			return nil, err
		}
		c := ir.Const(rec.Value, width, rec.Signed)
		c.Verbatim = rec.Verbatim
		return c, nil
	case KindSignal:
		sig, err := d.lookup(rec.Sig)
		if err != nil {
			return nil, err
		}
		return ir.Ref(sig), nil
	case KindUnary:
		op, ok := unaryOps[rec.Op]
		if !ok {
			return nil, &ir.MalformedExpressionError{Reason: fmt.Sprintf("unknown unary operator %q", rec.Op)}
		}
		a, err := d.args(rec, 1)
		if err != nil {
			return nil, err
		}
		return ir.Unary(op, a[0]), nil
	case KindBinary:
		op, ok := binaryOps[rec.Op]
		if !ok {
			return nil, &ir.MalformedExpressionError{Reason: fmt.Sprintf("unknown binary operator %q", rec.Op)}
		}
		a, err := d.args(rec, 2)
		if err != nil {
			return nil, err
		}
		return ir.Binary(op, a[0], a[1]), nil
	case KindMux:
		a, err := d.args(rec, 3)
		if err != nil {
			return nil, err
		}
		return &ir.Mux{Cond: a[0], IfTrue: a[1], IfFalse: a[2]}, nil
	case KindSlice:
		a, err := d.args(rec, 1)
		if err != nil {
			return nil, err
		}
		start, err := narrow("slice start", rec.Start)
		if err != nil {
			return nil, err
		}
		stop, err := narrow("slice stop", rec.Stop)
		if err != nil {
			return nil, err
		}
		return &ir.Slice{Base: a[0], Start: start, Stop: stop}, nil
	case KindConcat:
		parts, err := d.exprs(rec.Args)
		if err != nil {
			return nil, err
		}
		return ir.Cat(parts...), nil
	case KindRepl:
		a, err := d.args(rec, 1)
		if err != nil {
			return nil, err
		}
		count, err := narrow("replicate count", rec.Count)
		if err != nil {
			return nil, err
		}
		return &ir.Replicate{Value: a[0], Count: count}, nil
	case KindClock:
		return &ir.ClockRef{Domain: rec.Domain}, nil
	case KindReset:
		return &ir.ResetRef{Domain: rec.Domain, AllowResetLess: rec.AllowResetLess}, nil
	case KindArray:
		if len(rec.Args) < 2 {
			return nil, &ir.MalformedExpressionError{Reason: "array record needs choices and a key"}
		}
		a, err := d.exprs(rec.Args)
		if err != nil {
			return nil, err
		}
		return &ir.ArrayProxy{Choices: a[:len(a)-1], Key: a[len(a)-1]}, nil
	case KindPart:
		a, err := d.args(rec, 2)
		if err != nil {
			return nil, err
		}
		width, err := narrow("part width", rec.Width)
		if err != nil {
			return nil, err
		}
		stride, err := narrow("part stride", rec.Stride)
		if err != nil {
			return nil, err
		}
		return &ir.Part{Base: a[0], Offset: a[1], Width: width, Stride: stride}, nil
	default:
		return nil, &ir.MalformedExpressionError{Reason: fmt.Sprintf("unknown expression kind %q", rec.K)}
	}
}

func (d *decoder) block(recs []StmtRecord) (ir.Block, error) {
	if recs == nil {
		return nil, nil
	}
	out := make(ir.Block, 0, len(recs))
	for i := range recs {
		s, err := d.stmt(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) stmt(rec *StmtRecord) (ir.Stmt, error) {
	switch rec.K {
	case KindAssign:
		target, err := d.expr(rec.Target)
		if err != nil {
			return nil, err
		}
		value, err := d.expr(rec.Value)
		if err != nil {
			return nil, err
		}
		a := ir.Eq(target, value)
		if rec.Blocking {
			a.Kind = ir.Blocking
		}
		return a, nil
	case KindIf:
		cond, err := d.expr(rec.Cond)
		if err != nil {
			return nil, err
		}
		then, err := d.block(rec.Then)
		if err != nil {
			return nil, err
		}
		els, err := d.block(rec.Else)
		if err != nil {
			return nil, err
		}
		return &ir.If{Cond: cond, Then: then, Else: els}, nil
	case KindCase:
		test, err := d.expr(rec.Test)
		if err != nil {
			return nil, err
		}
		c := &ir.Case{Test: test}
		for i := range rec.Arms {
			key, err := d.expr(&rec.Arms[i].Key)
			if err != nil {
				return nil, err
			}
			body, err := d.block(rec.Arms[i].Body)
			if err != nil {
				return nil, err
			}
			c.Arms = append(c.Arms, ir.CaseArm{Key: key, Body: body})
		}
		if rec.HasDefault {
			def, err := d.block(rec.Default)
			if err != nil {
				return nil, err
			}
			if def == nil {
				def = ir.Block{}
			}
			c.Default = def
		}
		return c, nil
	case KindDisplay:
		disp := &ir.Display{Format: rec.Format}
		for _, a := range rec.Args {
			if a.Expr == nil {
				disp.Args = append(disp.Args, ir.DisplayArg{Text: a.Text})
				continue
			}
			e, err := d.expr(a.Expr)
			if err != nil {
				return nil, err
			}
			disp.Args = append(disp.Args, ir.Arg(e))
		}
		return disp, nil
	case KindFinish:
		return &ir.Finish{}, nil
	default:
		return nil, &ir.MalformedStatementError{Reason: fmt.Sprintf("unknown statement kind %q", rec.K)}
	}
}

func (d *decoder) special(rec SpecialRecord) (ir.Special, error) {
	id, err := narrow("special duid", rec.DUID)
	if err != nil {
		return nil, err
	}
	switch rec.K {
	case KindMemory:
		return d.memory(id, rec)
	case KindInstance:
		return d.instance(id, rec)
	case KindTristate:
		t := &ir.Tristate{ID: id}
		if t.Target, err = d.expr(rec.Target); err != nil {
			return nil, err
		}
		if t.O, err = d.expr(rec.O); err != nil {
			return nil, err
		}
		if t.OE, err = d.expr(rec.OE); err != nil {
			return nil, err
		}
		if rec.I != nil {
			if t.I, err = d.expr(rec.I); err != nil {
				return nil, err
			}
		}
		return t, nil
	case KindMultiReg:
		m := &ir.MultiReg{ID: id, Domain: rec.Domain, Reset: rec.Reset}
		if m.I, err = d.expr(rec.I); err != nil {
			return nil, err
		}
		if m.O, err = d.expr(rec.Out); err != nil {
			return nil, err
		}
		if m.Stages, err = narrow("multireg stages", rec.Stages); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, &ir.UnhandledSpecialError{Kind: rec.K}
	}
}

func (d *decoder) memory(id int, rec SpecialRecord) (*ir.Memory, error) {
	width, err := narrow("memory width", rec.Width)
	if err != nil {
		return nil, err
	}
	depth, err := narrow("memory depth", rec.Depth)
	if err != nil {
		return nil, err
	}
	mem := &ir.Memory{ID: id, Name: rec.Name, Width: width, Depth: depth, Init: rec.Init, Attrs: attributes(rec.Attrs)}
	for i, p := range rec.MemPorts {
		port, err := d.memoryPort(p)
		if err != nil {
			return nil, fmt.Errorf("port %d: %w", i, err)
		}
		mem.Ports = append(mem.Ports, port)
	}
	return mem, nil
}

func (d *decoder) memoryPort(p MemPortRecord) (ir.MemoryPort, error) {
	mode, ok := portModes[p.Mode]
	if !ok {
		return ir.MemoryPort{}, fmt.Errorf("unknown port mode %q", p.Mode)
	}
	gran, err := narrow("we granularity", p.WeGranularity)
	if err != nil {
		return ir.MemoryPort{}, err
	}
	port := ir.MemoryPort{
		Clock:         &ir.ClockRef{Domain: p.Domain},
		WeGranularity: gran,
		AsyncRead:     p.AsyncRead,
		Mode:          mode,
	}
	required := []struct {
		dst  **ir.Signal
		duid int64
	}{{&port.Adr, p.Adr}, {&port.DatR, p.DatR}}
	for _, r := range required {
		if *r.dst, err = d.lookup(r.duid); err != nil {
			return ir.MemoryPort{}, err
		}
	}
	optional := []struct {
		dst  **ir.Signal
		duid int64
	}{{&port.We, p.We}, {&port.DatW, p.DatW}, {&port.Re, p.Re}, {&port.AdrReg, p.AdrReg}, {&port.DatReg, p.DatReg}}
	for _, o := range optional {
		if *o.dst, err = d.optional(o.duid); err != nil {
			return ir.MemoryPort{}, err
		}
	}
	return port, nil
}

func (d *decoder) instance(id int, rec SpecialRecord) (*ir.Instance, error) {
	inst := &ir.Instance{ID: id, Of: rec.Of, Name: rec.Name, Attrs: attributes(rec.Attrs)}
	for _, p := range rec.Params {
		param := ir.InstanceParam{Name: p.Name}
		switch p.Kind {
		case "const":
			e, err := d.expr(p.Const)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
			}
			c, ok := e.(*ir.Constant)
			if !ok {
				return nil, fmt.Errorf("parameter %s: not a constant", p.Name)
			}
			param.Value = c
		case "string":
			param.Value = p.Str
		case "float":
			param.Value = p.Float
		case "int":
			param.Value = p.Int
		case "raw":
			param.Value = ir.Preformatted(p.Str)
		default:
			return nil, fmt.Errorf("parameter %s: unknown kind %q", p.Name, p.Kind)
		}
		inst.Params = append(inst.Params, param)
	}
	for i := range rec.Ports {
		p := &rec.Ports[i]
		dir, ok := directions[p.Dir]
		if !ok {
			return nil, fmt.Errorf("port %s: unknown direction %q", p.Name, p.Dir)
		}
		e, err := d.expr(&p.Expr)
		if err != nil {
			return nil, fmt.Errorf("port %s: %w", p.Name, err)
		}
		inst.Ports = append(inst.Ports, ir.InstancePort{Name: p.Name, Direction: dir, Expr: e})
	}
	return inst, nil
}
