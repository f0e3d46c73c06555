package ir

import "fmt"

// Allocator hands out monotonically increasing DUIDs. Each compilation owns
// its allocators; there is no process-wide counter.
type Allocator struct {
	next int
}

// NewAllocator returns an allocator whose first DUID is start.
func NewAllocator(start int) *Allocator {
	if start < 1 {
		start = 1
	}
	return &Allocator{next: start}
}

// Next returns a fresh DUID.
func (a *Allocator) Next() int {
	id := a.next
	a.next++
	return id
}

// SignalOption customises a signal at creation time.
type SignalOption func(*Signal)

// Signed makes the signal signed.
func Signed() SignalOption {
	return func(s *Signal) { s.Type.Signed = true }
}

// ResetValue sets the reset value (truncated to the signal width).
func ResetValue(v int64) SignalOption {
	return func(s *Signal) { s.Reset = v }
}

// NoReset excludes the signal from synchronous reset insertion.
func NoReset() SignalOption {
	return func(s *Signal) { s.ResetLess = true }
}

// AsVariable marks the signal as a procedural variable.
func AsVariable() SignalOption {
	return func(s *Signal) { s.Variable = true }
}

// WithAttrs attaches attributes to the signal.
func WithAttrs(attrs ...Attribute) SignalOption {
	return func(s *Signal) { s.Attrs = append(s.Attrs, attrs...) }
}

// Signal creates a signal with a fresh DUID.
func (a *Allocator) Signal(name string, width int, opts ...SignalOption) *Signal {
	sig := &Signal{
		DUID: a.Next(),
		Name: name,
		Type: SignalType{Width: width},
	}
	for _, opt := range opts {
		opt(sig)
	}
	sig.Reset = Truncate(sig.Reset, sig.Type.Width, sig.Type.Signed)
	return sig
}

// Builder assembles a Fragment the way a frontend would.
type Builder struct {
	alloc    *Allocator
	comb     Block
	sync     map[string]Block
	domains  []*ClockDomain
	specials []Special
	ios      SignalSet
}

// NewBuilder returns an empty builder whose first DUID is 1.
func NewBuilder() *Builder {
	return &Builder{
		alloc: NewAllocator(1),
		sync:  make(map[string]Block),
		ios:   SignalSet{},
	}
}

// Alloc exposes the builder's DUID allocator.
func (b *Builder) Alloc() *Allocator {
	return b.alloc
}

// Signal creates a signal.
func (b *Builder) Signal(name string, width int, opts ...SignalOption) *Signal {
	return b.alloc.Signal(name, width, opts...)
}

// DomainOption customises a clock domain.
type DomainOption func(*domainConfig)

type domainConfig struct {
	resetLess bool
	activeLow bool
}

// ResetLessDomain creates the domain without a reset signal.
func ResetLessDomain() DomainOption {
	return func(c *domainConfig) { c.resetLess = true }
}

// ActiveLowReset makes the domain reset active low.
func ActiveLowReset() DomainOption {
	return func(c *domainConfig) { c.activeLow = true }
}

// ClockDomain defines a clock domain named name with signals <name>_clk and
// <name>_rst.
func (b *Builder) ClockDomain(name string, opts ...DomainOption) *ClockDomain {
	var cfg domainConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	cd := &ClockDomain{
		Name:           name,
		Clk:            b.alloc.Signal(name+"_clk", 1),
		ResetActiveLow: cfg.activeLow,
	}
	if !cfg.resetLess {
		cd.Rst = b.alloc.Signal(name+"_rst", 1)
	}
	b.domains = append(b.domains, cd)
	return cd
}

// Comb appends combinational statements.
func (b *Builder) Comb(stmts ...Stmt) {
	b.comb = append(b.comb, stmts...)
}

// Sync appends statements clocked by domain.
func (b *Builder) Sync(domain string, stmts ...Stmt) {
	b.sync[domain] = append(b.sync[domain], stmts...)
}

// IO designates module ports.
func (b *Builder) IO(sigs ...*Signal) {
	for _, s := range sigs {
		b.ios.Add(s)
	}
}

// Special adds an already constructed special.
func (b *Builder) Special(sp Special) {
	b.specials = append(b.specials, sp)
}

// MemoryPortConfig describes one port requested from Builder.Memory.
type MemoryPortConfig struct {
	Domain        string
	Write         bool
	WeGranularity int
	AsyncRead     bool
	Mode          MemoryPortMode
	ReadEnable    bool
}

// Memory creates a memory special together with its port signals.
func (b *Builder) Memory(name string, width, depth int, init []uint64, ports ...MemoryPortConfig) *Memory {
	mem := &Memory{ID: b.alloc.Next(), Name: name, Width: width, Depth: depth, Init: init}
	adrWidth, _ := BitsFor(int64(depth - 1))
	for i, cfg := range ports {
		domain := cfg.Domain
		if domain == "" {
			domain = "sys"
		}
		p := MemoryPort{
			Clock:         &ClockRef{Domain: domain},
			Adr:           b.alloc.Signal(fmt.Sprintf("%s_adr%d", mem.Hint(), i), adrWidth),
			DatR:          b.alloc.Signal(fmt.Sprintf("%s_dat_r%d", mem.Hint(), i), width),
			WeGranularity: cfg.WeGranularity,
			AsyncRead:     cfg.AsyncRead,
			Mode:          cfg.Mode,
		}
		if cfg.Write {
			weWidth := 1
			if cfg.WeGranularity > 0 {
				weWidth = width / cfg.WeGranularity
			}
			p.We = b.alloc.Signal(fmt.Sprintf("%s_we%d", mem.Hint(), i), weWidth)
			p.DatW = b.alloc.Signal(fmt.Sprintf("%s_dat_w%d", mem.Hint(), i), width)
		}
		if cfg.ReadEnable {
			p.Re = b.alloc.Signal(fmt.Sprintf("%s_re%d", mem.Hint(), i), 1)
		}
		if !cfg.AsyncRead {
			if cfg.Mode == WriteFirst {
				p.AdrReg = b.alloc.Signal("memadr", adrWidth)
			} else {
				p.DatReg = b.alloc.Signal("memdat", width)
			}
		}
		mem.Ports = append(mem.Ports, p)
	}
	b.specials = append(b.specials, mem)
	return mem
}

// Instance creates an instance special.
func (b *Builder) Instance(of, name string, params []InstanceParam, ports []InstancePort) *Instance {
	inst := &Instance{ID: b.alloc.Next(), Of: of, Name: name, Params: params, Ports: ports}
	b.specials = append(b.specials, inst)
	return inst
}

// Tristate creates a tristate special. i may be nil.
func (b *Builder) Tristate(target, o, oe, i Expr) *Tristate {
	t := &Tristate{ID: b.alloc.Next(), Target: target, O: o, OE: oe, I: i}
	b.specials = append(b.specials, t)
	return t
}

// MultiReg creates a resynchronisation special clocked by domain.
func (b *Builder) MultiReg(i, o Expr, domain string, stages int) *MultiReg {
	m := &MultiReg{ID: b.alloc.Next(), I: i, O: o, Domain: domain, Stages: stages}
	b.specials = append(b.specials, m)
	return m
}

// Fragment snapshots the builder. The signal set holds every signal the
// logic, the specials, the clock domains and the IOs refer to.
func (b *Builder) Fragment() *Fragment {
	f := &Fragment{
		Signals:      SignalSet{},
		Comb:         append(Block(nil), b.comb...),
		Sync:         make(map[string]Block, len(b.sync)),
		ClockDomains: append([]*ClockDomain(nil), b.domains...),
		Specials:     append([]Special(nil), b.specials...),
		IOs:          b.ios.Clone(),
	}
	f.Signals.Union(BlockSignals(f.Comb))
	for name, stmts := range b.sync {
		f.Sync[name] = append(Block(nil), stmts...)
		f.Signals.Union(BlockSignals(stmts))
	}
	for _, cd := range f.ClockDomains {
		f.Signals.Add(cd.Clk)
		f.Signals.Add(cd.Rst)
	}
	for _, sp := range f.Specials {
		for _, io := range sp.IOs() {
			f.Signals.Union(ExprSignals(io.Expr))
		}
	}
	f.Signals.Union(f.IOs)
	return f
}
