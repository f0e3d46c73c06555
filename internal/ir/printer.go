package ir

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a simple human-readable representation of the fragment.
func Dump(f *Fragment, w io.Writer) {
	if f == nil {
		fmt.Fprintln(w, "<nil fragment>")
		return
	}
	fmt.Fprintln(w, "fragment")
	dumpSignals(f, w)
	dumpDomains(f, w)
	if len(f.Comb) > 0 {
		fmt.Fprintln(w, "  comb:")
		dumpBlock(f.Comb, w, 2)
	}
	for _, name := range f.SyncDomains() {
		fmt.Fprintf(w, "  sync %s:\n", name)
		dumpBlock(f.Sync[name], w, 2)
	}
	dumpSpecials(f, w)
}

func dumpSignals(f *Fragment, w io.Writer) {
	if len(f.Signals) == 0 {
		return
	}
	fmt.Fprintln(w, "  signals:")
	for _, sig := range f.Signals.Sorted() {
		var flags []string
		if f.IOs.Has(sig) {
			flags = append(flags, "io")
		}
		if sig.ResetLess {
			flags = append(flags, "reset_less")
		}
		if sig.Variable {
			flags = append(flags, "variable")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ",") + "]"
		}
		fmt.Fprintf(w, "    %-12s %-4s reset=%d%s\n", sig, sig.Type.Description(), sig.Reset, suffix)
	}
}

func dumpDomains(f *Fragment, w io.Writer) {
	if len(f.ClockDomains) == 0 {
		return
	}
	fmt.Fprintln(w, "  domains:")
	for _, cd := range f.ClockDomains {
		rst := "none"
		if cd.Rst != nil {
			rst = cd.Rst.String()
			if cd.ResetActiveLow {
				rst += " (active low)"
			}
		}
		fmt.Fprintf(w, "    %s clk=%s rst=%s\n", cd.Name, cd.Clk, rst)
	}
}

func dumpSpecials(f *Fragment, w io.Writer) {
	if len(f.Specials) == 0 {
		return
	}
	fmt.Fprintln(w, "  specials:")
	for _, sp := range f.SortedSpecials() {
		fmt.Fprintf(w, "    %s#%d", sp.Kind(), sp.DUID())
		if hint := sp.Hint(); hint != "" {
			fmt.Fprintf(w, " %q", hint)
		}
		fmt.Fprintln(w)
		for _, io := range sp.IOs() {
			fmt.Fprintf(w, "      %-6s %s\n", io.Direction, FormatExpr(io.Expr))
		}
	}
}

func dumpBlock(b Block, w io.Writer, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, s := range b {
		switch n := s.(type) {
		case *Assign:
			op := "<="
			if n.Kind == Blocking {
				op = "="
			}
			fmt.Fprintf(w, "%s%s %s %s\n", pad, FormatExpr(n.Target), op, FormatExpr(n.Value))
		case *If:
			fmt.Fprintf(w, "%sif %s\n", pad, FormatExpr(n.Cond))
			dumpBlock(n.Then, w, depth+1)
			if n.Else != nil {
				fmt.Fprintf(w, "%selse\n", pad)
				dumpBlock(n.Else, w, depth+1)
			}
		case *Case:
			fmt.Fprintf(w, "%scase %s\n", pad, FormatExpr(n.Test))
			for _, arm := range n.Arms {
				fmt.Fprintf(w, "%s  %s:\n", pad, FormatExpr(arm.Key))
				dumpBlock(arm.Body, w, depth+2)
			}
			if n.Default != nil {
				fmt.Fprintf(w, "%s  default:\n", pad)
				dumpBlock(n.Default, w, depth+2)
			}
		case *Display:
			args := make([]string, 0, len(n.Args))
			for _, a := range n.Args {
				if a.Expr == nil {
					args = append(args, a.Text)
				} else {
					args = append(args, FormatExpr(a.Expr))
				}
			}
			fmt.Fprintf(w, "%sdisplay %q %s\n", pad, n.Format, strings.Join(args, ", "))
		case *Finish:
			fmt.Fprintf(w, "%sfinish\n", pad)
		default:
			fmt.Fprintf(w, "%s<%T>\n", pad, s)
		}
	}
}

// FormatExpr renders e in a compact debug notation.
func FormatExpr(e Expr) string {
	switch n := e.(type) {
	case nil:
		return "<nil>"
	case *Constant:
		if n.Signed {
			return fmt.Sprintf("%d:s%d", n.Value, n.Width)
		}
		return fmt.Sprintf("%d:u%d", n.Value, n.Width)
	case *SignalRef:
		return n.Signal.String()
	case *UnaryOp:
		return n.Op.Symbol() + FormatExpr(n.Operand)
	case *BinaryOp:
		return fmt.Sprintf("(%s %s %s)", FormatExpr(n.LHS), n.Op.Symbol(), FormatExpr(n.RHS))
	case *Mux:
		return fmt.Sprintf("(%s ? %s : %s)", FormatExpr(n.Cond), FormatExpr(n.IfTrue), FormatExpr(n.IfFalse))
	case *Slice:
		return fmt.Sprintf("%s[%d:%d]", FormatExpr(n.Base), n.Start, n.Stop)
	case *Concat:
		parts := make([]string, len(n.Parts))
		for i, p := range n.Parts {
			parts[i] = FormatExpr(p)
		}
		return "cat(" + strings.Join(parts, ", ") + ")"
	case *Replicate:
		return fmt.Sprintf("rep(%s, %d)", FormatExpr(n.Value), n.Count)
	case *ClockRef:
		return "clk(" + n.Domain + ")"
	case *ResetRef:
		return "rst(" + n.Domain + ")"
	case *ArrayProxy:
		parts := make([]string, len(n.Choices))
		for i, c := range n.Choices {
			parts[i] = FormatExpr(c)
		}
		return fmt.Sprintf("array[%s](%s)", FormatExpr(n.Key), strings.Join(parts, ", "))
	case *Part:
		return fmt.Sprintf("part(%s, %s, %d, %d)", FormatExpr(n.Base), FormatExpr(n.Offset), n.Width, n.Stride)
	default:
		return fmt.Sprintf("<%T>", e)
	}
}
