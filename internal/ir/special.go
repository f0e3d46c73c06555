package ir

// Special is a device-level construct that is not plain signal logic. The
// set of kinds is open; each kind is handled by an entry of the specials
// registry.
type Special interface {
	DUID() int
	Kind() string
	// Hint is the namespace hint of the special itself, or "" when the
	// emitter never names it.
	Hint() string
	IOs() []SpecialIO
	// Internals lists signals declared by the emitter itself. They are
	// named by the namespace but never declared in the signals section.
	Internals() []*Signal
	Attributes() []Attribute
	// MapExprs returns a copy of the special with every expression replaced
	// by fn. target is true for expressions the special drives.
	MapExprs(fn func(e Expr, target bool) (Expr, error)) (Special, error)
}

// DomainUser is implemented by specials that refer to clock domains by name.
type DomainUser interface {
	Domains() []string
}

// SpecialIO is one expression connected to a special.
type SpecialIO struct {
	Expr      Expr
	Direction PortDirection
}

// MemoryPortMode selects the synchronous read behaviour of a memory port.
type MemoryPortMode int

const (
	ReadFirst MemoryPortMode = iota
	WriteFirst
	NoChange
)

// MemoryPort is one read (and optionally write) port of a Memory.
type MemoryPort struct {
	Clock Expr
	Adr   *Signal
	DatR  *Signal
	// We and DatW are nil for read-only ports.
	We   *Signal
	DatW *Signal
	// Re is nil when reads are always enabled.
	Re            *Signal
	WeGranularity int
	AsyncRead     bool
	Mode          MemoryPortMode
	// AdrReg is the registered address of write-first synchronous ports,
	// DatReg the registered data of the other synchronous ports.
	AdrReg *Signal
	DatReg *Signal
}

// Memory is an inferred RAM.
type Memory struct {
	ID    int
	Name  string
	Width int
	Depth int
	// Init is nil when the memory has no initial contents.
	Init  []uint64
	Ports []MemoryPort
	Attrs []Attribute
}

func (m *Memory) DUID() int               { return m.ID }
func (m *Memory) Kind() string            { return "memory" }
func (m *Memory) Attributes() []Attribute { return m.Attrs }

func (m *Memory) Hint() string {
	if m.Name == "" {
		return "mem"
	}
	return m.Name
}

func (m *Memory) IOs() []SpecialIO {
	var ios []SpecialIO
	in := func(s *Signal) {
		if s != nil {
			ios = append(ios, SpecialIO{Expr: Ref(s), Direction: Input})
		}
	}
	for _, p := range m.Ports {
		if p.Clock != nil {
			ios = append(ios, SpecialIO{Expr: p.Clock, Direction: Input})
		}
		in(p.Adr)
		in(p.We)
		in(p.DatW)
		in(p.Re)
		if p.DatR != nil {
			ios = append(ios, SpecialIO{Expr: Ref(p.DatR), Direction: Output})
		}
	}
	return ios
}

func (m *Memory) Internals() []*Signal {
	var out []*Signal
	for _, p := range m.Ports {
		if p.AdrReg != nil {
			out = append(out, p.AdrReg)
		}
		if p.DatReg != nil {
			out = append(out, p.DatReg)
		}
	}
	return out
}

func (m *Memory) MapExprs(fn func(e Expr, target bool) (Expr, error)) (Special, error) {
	out := *m
	out.Ports = append([]MemoryPort(nil), m.Ports...)
	for i := range out.Ports {
		if out.Ports[i].Clock == nil {
			continue
		}
		clk, err := fn(out.Ports[i].Clock, false)
		if err != nil {
			return nil, err
		}
		out.Ports[i].Clock = clk
	}
	return &out, nil
}

// Preformatted is an instance parameter value printed exactly as given.
type Preformatted string

// InstanceParam is one parameter override. Value is a *Constant, string,
// float64 or Preformatted.
type InstanceParam struct {
	Name  string
	Value interface{}
}

// InstancePort connects Expr to the named port of the instantiated module.
type InstancePort struct {
	Name      string
	Direction PortDirection
	Expr      Expr
}

// Instance instantiates an opaque module.
type Instance struct {
	ID     int
	Of     string
	Name   string
	Params []InstanceParam
	Ports  []InstancePort
	Attrs  []Attribute
}

func (i *Instance) DUID() int               { return i.ID }
func (i *Instance) Kind() string            { return "instance" }
func (i *Instance) Internals() []*Signal    { return nil }
func (i *Instance) Attributes() []Attribute { return i.Attrs }

func (i *Instance) Hint() string {
	if i.Name == "" {
		return i.Of
	}
	return i.Name
}

func (i *Instance) IOs() []SpecialIO {
	ios := make([]SpecialIO, 0, len(i.Ports))
	for _, p := range i.Ports {
		ios = append(ios, SpecialIO{Expr: p.Expr, Direction: p.Direction})
	}
	return ios
}

func (i *Instance) MapExprs(fn func(e Expr, target bool) (Expr, error)) (Special, error) {
	out := *i
	out.Ports = append([]InstancePort(nil), i.Ports...)
	for idx := range out.Ports {
		e, err := fn(out.Ports[idx].Expr, out.Ports[idx].Direction != Input)
		if err != nil {
			return nil, err
		}
		out.Ports[idx].Expr = e
	}
	return &out, nil
}

// Tristate drives Target with O while OE is set and releases it otherwise.
// I, when present, samples Target.
type Tristate struct {
	ID     int
	Target Expr
	O      Expr
	OE     Expr
	I      Expr
}

func (t *Tristate) DUID() int               { return t.ID }
func (t *Tristate) Kind() string            { return "tristate" }
func (t *Tristate) Hint() string            { return "" }
func (t *Tristate) Internals() []*Signal    { return nil }
func (t *Tristate) Attributes() []Attribute { return nil }

func (t *Tristate) IOs() []SpecialIO {
	ios := []SpecialIO{
		{Expr: t.Target, Direction: InOut},
		{Expr: t.O, Direction: Input},
		{Expr: t.OE, Direction: Input},
	}
	if t.I != nil {
		ios = append(ios, SpecialIO{Expr: t.I, Direction: Output})
	}
	return ios
}

func (t *Tristate) MapExprs(fn func(e Expr, target bool) (Expr, error)) (Special, error) {
	out := *t
	var err error
	if out.Target, err = fn(t.Target, true); err != nil {
		return nil, err
	}
	if out.O, err = fn(t.O, false); err != nil {
		return nil, err
	}
	if out.OE, err = fn(t.OE, false); err != nil {
		return nil, err
	}
	if t.I != nil {
		if out.I, err = fn(t.I, true); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// MultiReg resynchronises I into Domain through Stages registers driving O.
type MultiReg struct {
	ID     int
	I      Expr
	O      Expr
	Domain string
	Stages int
	Reset  int64
}

func (m *MultiReg) DUID() int               { return m.ID }
func (m *MultiReg) Kind() string            { return "multireg" }
func (m *MultiReg) Hint() string            { return "" }
func (m *MultiReg) Internals() []*Signal    { return nil }
func (m *MultiReg) Attributes() []Attribute { return nil }
func (m *MultiReg) Domains() []string       { return []string{m.Domain} }

func (m *MultiReg) IOs() []SpecialIO {
	return []SpecialIO{
		{Expr: m.I, Direction: Input},
		{Expr: m.O, Direction: Output},
	}
}

func (m *MultiReg) MapExprs(fn func(e Expr, target bool) (Expr, error)) (Special, error) {
	out := *m
	var err error
	if out.I, err = fn(m.I, false); err != nil {
		return nil, err
	}
	if out.O, err = fn(m.O, true); err != nil {
		return nil, err
	}
	return &out, nil
}
