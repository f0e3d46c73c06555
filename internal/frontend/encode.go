package frontend

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"fhdl/internal/ir"
)

// Encode writes f to w as a document.
func Encode(w io.Writer, f *ir.Fragment) error {
	doc, err := ToDocument(f)
	if err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("frontend: encode document: %w", err)
	}
	return nil
}

// EncodeBytes returns the encoded document of f.
func EncodeBytes(f *ir.Fragment) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes f into path.
func WriteFile(path string, f *ir.Fragment) error {
	data, err := EncodeBytes(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("frontend: %w", err)
	}
	return nil
}

// ToDocument converts f into its interchange form.
func ToDocument(f *ir.Fragment) (*Document, error) {
	doc := &Document{Schema: SchemaVersion, Sync: map[string][]StmtRecord{}}

	all := f.Signals.Clone()
	all.Union(f.IOs)
	for _, cd := range f.ClockDomains {
		all.Add(cd.Clk)
		all.Add(cd.Rst)
	}
	for _, sp := range f.Specials {
		all.Union(ir.SpecialSignals(sp))
	}
	for _, sig := range all.Sorted() {
		doc.Signals = append(doc.Signals, SignalRecord{
			DUID:      int64(sig.DUID),
			Name:      sig.Name,
			Width:     int64(sig.Type.Width),
			Signed:    sig.Type.Signed,
			Reset:     sig.Reset,
			ResetLess: sig.ResetLess,
			Variable:  sig.Variable,
			Attrs:     attrRecords(sig.Attrs),
		})
	}
	for _, cd := range f.ClockDomains {
		rec := DomainRecord{Name: cd.Name, Clk: int64(cd.Clk.DUID), ActiveLow: cd.ResetActiveLow}
		if cd.Rst != nil {
			rec.Rst = int64(cd.Rst.DUID)
		}
		doc.Domains = append(doc.Domains, rec)
	}
	for _, sig := range f.IOs.Sorted() {
		doc.IOs = append(doc.IOs, int64(sig.DUID))
	}

	var err error
	if doc.Comb, err = stmtRecords(f.Comb); err != nil {
		return nil, fmt.Errorf("frontend: comb: %w", err)
	}
	names := make([]string, 0, len(f.Sync))
	for name := range f.Sync {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		recs, err := stmtRecords(f.Sync[name])
		if err != nil {
			return nil, fmt.Errorf("frontend: sync %s: %w", name, err)
		}
		doc.Sync[name] = recs
	}
	for _, sp := range f.SortedSpecials() {
		rec, err := specialRecord(sp)
		if err != nil {
			return nil, fmt.Errorf("frontend: special %s#%d: %w", sp.Kind(), sp.DUID(), err)
		}
		doc.Specials = append(doc.Specials, rec)
	}
	return doc, nil
}

func attrRecords(attrs []ir.Attribute) []AttrRecord {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]AttrRecord, len(attrs))
	for i, a := range attrs {
		out[i] = AttrRecord{Key: a.Key, Name: a.Name, Value: a.Value}
	}
	return out
}

func duidOf(s *ir.Signal) int64 {
	if s == nil {
		return 0
	}
	return int64(s.DUID)
}

func exprRecords(es []ir.Expr) ([]ExprRecord, error) {
	out := make([]ExprRecord, len(es))
	for i, e := range es {
		rec, err := exprRecord(e)
		if err != nil {
			return nil, err
		}
		out[i] = *rec
	}
	return out, nil
}

func exprRecord(e ir.Expr) (*ExprRecord, error) {
	switch n := e.(type) {
	case *ir.Constant:
		return &ExprRecord{K: KindConst, Value: n.Value, Width: int64(n.Width), Signed: n.Signed, Verbatim: n.Verbatim}, nil
	case *ir.SignalRef:
		if n.Signal == nil {
			return nil, &ir.MalformedExpressionError{Node: n, Reason: "nil signal"}
		}
		return &ExprRecord{K: KindSignal, Sig: int64(n.Signal.DUID)}, nil
	case *ir.UnaryOp:
		args, err := exprRecords([]ir.Expr{n.Operand})
		if err != nil {
			return nil, err
		}
		return &ExprRecord{K: KindUnary, Op: unaryName(n.Op), Args: args}, nil
	case *ir.BinaryOp:
		args, err := exprRecords([]ir.Expr{n.LHS, n.RHS})
		if err != nil {
			return nil, err
		}
		return &ExprRecord{K: KindBinary, Op: binaryName(n.Op), Args: args}, nil
	case *ir.Mux:
		args, err := exprRecords([]ir.Expr{n.Cond, n.IfTrue, n.IfFalse})
		if err != nil {
			return nil, err
		}
		return &ExprRecord{K: KindMux, Args: args}, nil
	case *ir.Slice:
		args, err := exprRecords([]ir.Expr{n.Base})
		if err != nil {
			return nil, err
		}
		return &ExprRecord{K: KindSlice, Args: args, Start: int64(n.Start), Stop: int64(n.Stop)}, nil
	case *ir.Concat:
		args, err := exprRecords(n.Parts)
		if err != nil {
			return nil, err
		}
		return &ExprRecord{K: KindConcat, Args: args}, nil
	case *ir.Replicate:
		args, err := exprRecords([]ir.Expr{n.Value})
		if err != nil {
			return nil, err
		}
		return &ExprRecord{K: KindRepl, Args: args, Count: int64(n.Count)}, nil
	case *ir.ClockRef:
		return &ExprRecord{K: KindClock, Domain: n.Domain}, nil
	case *ir.ResetRef:
		return &ExprRecord{K: KindReset, Domain: n.Domain, AllowResetLess: n.AllowResetLess}, nil
	case *ir.ArrayProxy:
		args, err := exprRecords(append(append([]ir.Expr(nil), n.Choices...), n.Key))
		if err != nil {
			return nil, err
		}
		return &ExprRecord{K: KindArray, Args: args}, nil
	case *ir.Part:
		args, err := exprRecords([]ir.Expr{n.Base, n.Offset})
		if err != nil {
			return nil, err
		}
		return &ExprRecord{K: KindPart, Args: args, Width: int64(n.Width), Stride: int64(n.Stride)}, nil
	default:
		return nil, ir.UnknownExpr(e)
	}
}

func stmtRecords(b ir.Block) ([]StmtRecord, error) {
	if b == nil {
		return nil, nil
	}
	out := make([]StmtRecord, 0, len(b))
	for _, s := range b {
		rec, err := stmtRecord(s)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func stmtRecord(s ir.Stmt) (StmtRecord, error) {
	switch n := s.(type) {
	case *ir.Assign:
		target, err := exprRecord(n.Target)
		if err != nil {
			return StmtRecord{}, err
		}
		value, err := exprRecord(n.Value)
		if err != nil {
			return StmtRecord{}, err
		}
		return StmtRecord{K: KindAssign, Target: target, Value: value, Blocking: n.Kind == ir.Blocking}, nil
	case *ir.If:
		cond, err := exprRecord(n.Cond)
		if err != nil {
			return StmtRecord{}, err
		}
		then, err := stmtRecords(n.Then)
		if err != nil {
			return StmtRecord{}, err
		}
		els, err := stmtRecords(n.Else)
		if err != nil {
			return StmtRecord{}, err
		}
		return StmtRecord{K: KindIf, Cond: cond, Then: then, Else: els}, nil
	case *ir.Case:
		test, err := exprRecord(n.Test)
		if err != nil {
			return StmtRecord{}, err
		}
		rec := StmtRecord{K: KindCase, Test: test, HasDefault: n.Default != nil}
		for _, arm := range n.Arms {
			key, err := exprRecord(arm.Key)
			if err != nil {
				return StmtRecord{}, err
			}
			body, err := stmtRecords(arm.Body)
			if err != nil {
				return StmtRecord{}, err
			}
			rec.Arms = append(rec.Arms, ArmRecord{Key: *key, Body: body})
		}
		if rec.Default, err = stmtRecords(n.Default); err != nil {
			return StmtRecord{}, err
		}
		return rec, nil
	case *ir.Display:
		rec := StmtRecord{K: KindDisplay, Format: n.Format}
		for _, a := range n.Args {
			if a.Expr == nil {
				rec.Args = append(rec.Args, DisplayRecord{Text: a.Text})
				continue
			}
			e, err := exprRecord(a.Expr)
			if err != nil {
				return StmtRecord{}, err
			}
			rec.Args = append(rec.Args, DisplayRecord{Expr: e})
		}
		return rec, nil
	case *ir.Finish:
		return StmtRecord{K: KindFinish}, nil
	default:
		return StmtRecord{}, ir.UnknownStmt(s)
	}
}

func specialRecord(sp ir.Special) (SpecialRecord, error) {
	rec := SpecialRecord{K: sp.Kind(), DUID: int64(sp.DUID()), Attrs: attrRecords(sp.Attributes())}
	var err error
	switch n := sp.(type) {
	case *ir.Memory:
		rec.Name = n.Name
		rec.Width = int64(n.Width)
		rec.Depth = int64(n.Depth)
		rec.Init = n.Init
		for _, p := range n.Ports {
			clk, ok := p.Clock.(*ir.ClockRef)
			if !ok {
				return rec, fmt.Errorf("memory port clock %s is not a domain reference", ir.FormatExpr(p.Clock))
			}
			rec.MemPorts = append(rec.MemPorts, MemPortRecord{
				Domain:        clk.Domain,
				Adr:           duidOf(p.Adr),
				DatR:          duidOf(p.DatR),
				We:            duidOf(p.We),
				DatW:          duidOf(p.DatW),
				Re:            duidOf(p.Re),
				WeGranularity: int64(p.WeGranularity),
				AsyncRead:     p.AsyncRead,
				Mode:          modeName(p.Mode),
				AdrReg:        duidOf(p.AdrReg),
				DatReg:        duidOf(p.DatReg),
			})
		}
	case *ir.Instance:
		rec.Of = n.Of
		rec.Name = n.Name
		for _, p := range n.Params {
			param, err := paramRecord(p)
			if err != nil {
				return rec, err
			}
			rec.Params = append(rec.Params, param)
		}
		for _, p := range n.Ports {
			e, err := exprRecord(p.Expr)
			if err != nil {
				return rec, fmt.Errorf("port %s: %w", p.Name, err)
			}
			rec.Ports = append(rec.Ports, PortRecord{Name: p.Name, Dir: p.Direction.String(), Expr: *e})
		}
	case *ir.Tristate:
		if rec.Target, err = exprRecord(n.Target); err != nil {
			return rec, err
		}
		if rec.O, err = exprRecord(n.O); err != nil {
			return rec, err
		}
		if rec.OE, err = exprRecord(n.OE); err != nil {
			return rec, err
		}
		if n.I != nil {
			if rec.I, err = exprRecord(n.I); err != nil {
				return rec, err
			}
		}
	case *ir.MultiReg:
		if rec.I, err = exprRecord(n.I); err != nil {
			return rec, err
		}
		if rec.Out, err = exprRecord(n.O); err != nil {
			return rec, err
		}
		rec.Domain = n.Domain
		rec.Stages = int64(n.Stages)
		rec.Reset = n.Reset
	default:
		return rec, &ir.UnhandledSpecialError{Kind: sp.Kind(), Special: sp}
	}
	return rec, nil
}

func paramRecord(p ir.InstanceParam) (ParamRecord, error) {
	rec := ParamRecord{Name: p.Name}
	switch v := p.Value.(type) {
	case *ir.Constant:
		c, err := exprRecord(v)
		if err != nil {
			return rec, err
		}
		rec.Kind, rec.Const = "const", c
	case ir.Preformatted:
		rec.Kind, rec.Str = "raw", string(v)
	case string:
		rec.Kind, rec.Str = "string", v
	case float64:
		rec.Kind, rec.Float = "float", v
	case int:
		rec.Kind, rec.Int = "int", int64(v)
	case int64:
		rec.Kind, rec.Int = "int", v
	default:
		return rec, fmt.Errorf("parameter %s: unsupported value type %T", p.Name, p.Value)
	}
	return rec, nil
}
