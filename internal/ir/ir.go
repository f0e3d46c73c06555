package ir

import (
	"fmt"
	"sort"
)

// Signal captures a hardware wire/register. Signals are immutable once
// created; derived facts (direction, wire/reg kind, final name) live in side
// tables keyed by DUID.
type Signal struct {
	DUID  int
	Name  string
	Type  SignalType
	Reset int64
	Attrs []Attribute
	// ResetLess excludes the signal from synchronous reset insertion.
	ResetLess bool
	// Variable marks a procedural variable; assignments to it are always
	// blocking.
	Variable bool
}

// SignalType records width/sign metadata for a signal or expression.
type SignalType struct {
	Width  int
	Signed bool
}

// Description renders the type as e.g. "u8" or "s16".
func (t SignalType) Description() string {
	if t.Signed {
		return fmt.Sprintf("s%d", t.Width)
	}
	return fmt.Sprintf("u%d", t.Width)
}

func (s *Signal) String() string {
	if s == nil {
		return "<nil signal>"
	}
	if s.Name != "" {
		return fmt.Sprintf("%s#%d", s.Name, s.DUID)
	}
	return fmt.Sprintf("sig#%d", s.DUID)
}

// Attribute is a vendor pragma attached to a signal or special. When Name is
// empty the Key is looked up in the attribute translation table; otherwise
// Name/Value are emitted verbatim. Value holds a string or an integer.
type Attribute struct {
	Key   string
	Name  string
	Value interface{}
}

// PortDirection classifies how a signal is exposed by the emitted module.
type PortDirection int

const (
	Input PortDirection = iota
	Output
	InOut
	Internal
)

func (d PortDirection) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case InOut:
		return "inout"
	case Internal:
		return "internal"
	default:
		return "?"
	}
}

// SignalKind classifies how a signal is declared.
type SignalKind int

const (
	Wire SignalKind = iota
	Reg
)

func (k SignalKind) String() string {
	if k == Wire {
		return "wire"
	}
	return "reg"
}

// SignalClass is the classification computed once per signal during module
// assembly.
type SignalClass struct {
	Direction PortDirection
	Kind      SignalKind
}

// ClockDomain groups sequential logic sharing one clock and optional reset.
type ClockDomain struct {
	Name string
	Clk  *Signal
	// Rst is nil for reset-less domains.
	Rst            *Signal
	ResetActiveLow bool
}

// SignalSet is an unordered set of signals keyed by DUID.
type SignalSet map[int]*Signal

// NewSignalSet builds a set from the given signals, skipping nils.
func NewSignalSet(sigs ...*Signal) SignalSet {
	set := make(SignalSet, len(sigs))
	for _, s := range sigs {
		set.Add(s)
	}
	return set
}

// Add inserts sig into the set.
func (s SignalSet) Add(sig *Signal) {
	if sig != nil {
		s[sig.DUID] = sig
	}
}

// Has reports whether a signal with the same DUID is in the set.
func (s SignalSet) Has(sig *Signal) bool {
	if sig == nil {
		return false
	}
	_, ok := s[sig.DUID]
	return ok
}

// Union adds every member of other.
func (s SignalSet) Union(other SignalSet) {
	for k, v := range other {
		s[k] = v
	}
}

// Sorted returns the members in ascending DUID order.
func (s SignalSet) Sorted() []*Signal {
	out := make([]*Signal, 0, len(s))
	for _, sig := range s {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DUID < out[j].DUID })
	return out
}

// Clone returns a shallow copy of the set.
func (s SignalSet) Clone() SignalSet {
	out := make(SignalSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Fragment is the unit under compilation: one module's signals, logic and
// specials.
type Fragment struct {
	Signals      SignalSet
	Comb         Block
	Sync         map[string]Block
	ClockDomains []*ClockDomain
	Specials     []Special
	IOs          SignalSet
}

// Clone returns a copy whose containers may be modified without affecting
// f. Nodes are shared; they are immutable.
func (f *Fragment) Clone() *Fragment {
	out := &Fragment{
		Signals:      f.Signals.Clone(),
		Comb:         append(Block(nil), f.Comb...),
		Sync:         make(map[string]Block, len(f.Sync)),
		ClockDomains: append([]*ClockDomain(nil), f.ClockDomains...),
		Specials:     append([]Special(nil), f.Specials...),
		IOs:          f.IOs.Clone(),
	}
	if out.Signals == nil {
		out.Signals = SignalSet{}
	}
	if out.IOs == nil {
		out.IOs = SignalSet{}
	}
	for k, v := range f.Sync {
		out.Sync[k] = append(Block(nil), v...)
	}
	return out
}

// Domain resolves a clock domain by name.
func (f *Fragment) Domain(name string) (*ClockDomain, error) {
	for _, cd := range f.ClockDomains {
		if cd.Name == name {
			return cd, nil
		}
	}
	return nil, &UnresolvedClockDomainError{Domain: name, Defined: f.DomainNames()}
}

// DomainNames lists the defined clock domains in definition order.
func (f *Fragment) DomainNames() []string {
	names := make([]string, 0, len(f.ClockDomains))
	for _, cd := range f.ClockDomains {
		names = append(names, cd.Name)
	}
	return names
}

// SyncDomains returns the names used as keys of f.Sync, sorted.
func (f *Fragment) SyncDomains() []string {
	names := make([]string, 0, len(f.Sync))
	for name := range f.Sync {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaxDUID returns the largest DUID carried by any signal or special of f.
func (f *Fragment) MaxDUID() int {
	max := 0
	for duid := range f.Signals {
		if duid > max {
			max = duid
		}
	}
	for duid := range f.IOs {
		if duid > max {
			max = duid
		}
	}
	for _, cd := range f.ClockDomains {
		for _, s := range []*Signal{cd.Clk, cd.Rst} {
			if s != nil && s.DUID > max {
				max = s.DUID
			}
		}
	}
	for _, sp := range f.Specials {
		if sp.DUID() > max {
			max = sp.DUID()
		}
		for _, s := range sp.Internals() {
			if s.DUID > max {
				max = s.DUID
			}
		}
	}
	return max
}

// SortedSpecials returns the specials in ascending DUID order.
func (f *Fragment) SortedSpecials() []Special {
	out := append([]Special(nil), f.Specials...)
	sort.Slice(out, func(i, j int) bool { return out[i].DUID() < out[j].DUID() })
	return out
}
