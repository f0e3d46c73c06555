package verilog

import (
	"fmt"
	"strings"

	"fhdl/internal/ir"
	"fhdl/internal/namer"
)

func specialName(ns *namer.Namespace, sp ir.Special) (string, error) {
	name, ok := ns.Lookup(sp.DUID())
	if !ok {
		return "", fmt.Errorf("%s special #%d has no allocated name", sp.Kind(), sp.DUID())
	}
	return name, nil
}

// memoryPrinter resolves names for one memory while it is being emitted.
type memoryPrinter struct {
	ns  *namer.Namespace
	err error
}

func (p *memoryPrinter) name(s *ir.Signal) string {
	if p.err != nil {
		return ""
	}
	name, err := signalName(p.ns, s)
	if err != nil {
		p.err = err
	}
	return name
}

func (p *memoryPrinter) expr(e ir.Expr) string {
	if p.err != nil {
		return ""
	}
	r, _, err := PrintExpr(p.ns, e)
	if err != nil {
		p.err = err
	}
	return r
}

func emitMemory(sp ir.Special, ns *namer.Namespace, files DataFileWriter) (string, bool, error) {
	mem, ok := sp.(*ir.Memory)
	if !ok {
		return "", false, nil
	}
	name, err := specialName(ns, mem)
	if err != nil {
		return "", false, err
	}
	p := &memoryPrinter{ns: ns}
	adrBits, _ := ir.BitsFor(int64(mem.Depth - 1))

	var b strings.Builder
	b.WriteString(separatorLine)
	fmt.Fprintf(&b, "// Memory %s: %d-words x %d-bit\n", name, mem.Depth, mem.Width)
	b.WriteString(separatorLine)
	for n, port := range mem.Ports {
		fmt.Fprintf(&b, "// Port %d | ", n)
		if port.AsyncRead {
			b.WriteString("Read: Async | ")
		} else {
			b.WriteString("Read: Sync  | ")
		}
		if port.We == nil {
			b.WriteString("Write: ---- | ")
		} else {
			b.WriteString("Write: Sync | Mode: ")
			switch port.Mode {
			case ir.WriteFirst:
				b.WriteString("Write-First | ")
			case ir.NoChange:
				b.WriteString("No-Change | ")
			default:
				b.WriteString("Read-First  | ")
			}
			fmt.Fprintf(&b, "Write-Granularity: %d ", port.WeGranularity)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "reg [%d:0] %s[0:%d];\n", mem.Width-1, name, mem.Depth-1)
	if mem.Init != nil {
		digits := (mem.Width + 3) / 4
		var content strings.Builder
		for _, word := range mem.Init {
			fmt.Fprintf(&content, "%0*x\n", digits, word)
		}
		file := files.Add(name+".init", []byte(content.String()))
		b.WriteString("initial begin\n")
		fmt.Fprintf(&b, "\t$readmemh(%q, %s);\n", file, name)
		b.WriteString("end\n")
	}

	for _, port := range mem.Ports {
		if port.AsyncRead {
			continue
		}
		if port.AdrReg != nil {
			fmt.Fprintf(&b, "reg [%d:0] %s;\n", adrBits-1, p.name(port.AdrReg))
		}
		if port.DatReg != nil {
			fmt.Fprintf(&b, "reg [%d:0] %s;\n", mem.Width-1, p.name(port.DatReg))
		}
	}

	for _, port := range mem.Ports {
		if port.We == nil && port.AsyncRead {
			continue
		}
		fmt.Fprintf(&b, "always @(posedge %s) begin\n", p.expr(port.Clock))
		if port.We != nil {
			writeMemoryPort(&b, p, name, mem.Width, port)
		}
		if !port.AsyncRead {
			readMemoryPort(&b, p, name, port)
		}
		b.WriteString("end\n")
	}

	for _, port := range mem.Ports {
		switch {
		case port.AsyncRead:
			fmt.Fprintf(&b, "assign %s = %s[%s];\n", p.name(port.DatR), name, p.name(port.Adr))
		case port.AdrReg != nil:
			fmt.Fprintf(&b, "assign %s = %s[%s];\n", p.name(port.DatR), name, p.name(port.AdrReg))
		case port.DatReg != nil:
			fmt.Fprintf(&b, "assign %s = %s;\n", p.name(port.DatR), p.name(port.DatReg))
		}
	}
	b.WriteString(separatorLine)
	b.WriteString("\n")
	if p.err != nil {
		return "", false, p.err
	}
	return b.String(), true, nil
}

func writeMemoryPort(b *strings.Builder, p *memoryPrinter, name string, width int, port ir.MemoryPort) {
	we, adr, dat := p.name(port.We), p.name(port.Adr), p.name(port.DatW)
	if port.WeGranularity == 0 || port.WeGranularity >= width {
		fmt.Fprintf(b, "\tif (%s)\n", we)
		fmt.Fprintf(b, "\t\t%s[%s] <= %s;\n", name, adr, dat)
		return
	}
	for i := 0; i < width/port.WeGranularity; i++ {
		lo := i * port.WeGranularity
		hi := lo + port.WeGranularity - 1
		fmt.Fprintf(b, "\tif (%s[%d])\n", we, i)
		fmt.Fprintf(b, "\t\t%s[%s][%d:%d] <= %s[%d:%d];\n", name, adr, hi, lo, dat, hi, lo)
	}
}

func readMemoryPort(b *strings.Builder, p *memoryPrinter, name string, port ir.MemoryPort) {
	var lines []string
	switch {
	case port.AdrReg != nil:
		lines = append(lines, fmt.Sprintf("%s <= %s;", p.name(port.AdrReg), p.name(port.Adr)))
	case port.DatReg != nil:
		read := fmt.Sprintf("%s <= %s[%s];", p.name(port.DatReg), name, p.name(port.Adr))
		if port.Mode == ir.NoChange && port.We != nil {
			lines = append(lines, fmt.Sprintf("if (!%s)", p.name(port.We)), "\t"+read)
		} else {
			lines = append(lines, read)
		}
	default:
		return
	}
	indent := "\t"
	if port.Re != nil {
		fmt.Fprintf(b, "\tif (%s)\n", p.name(port.Re))
		indent = "\t\t"
	}
	for _, l := range lines {
		b.WriteString(indent + l + "\n")
	}
}
