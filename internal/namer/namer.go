// Package namer allocates unique, deterministic identifiers for signals and
// specials.
package namer

import (
	"fmt"
	"sort"
	"strings"

	"fhdl/internal/ir"
)

// Keywords is a set of reserved identifiers.
type Keywords map[string]struct{}

// NewKeywords builds a keyword set.
func NewKeywords(words ...string) Keywords {
	k := make(Keywords, len(words))
	for _, w := range words {
		k[w] = struct{}{}
	}
	return k
}

// Has reports whether word is reserved.
func (k Keywords) Has(word string) bool {
	_, ok := k[word]
	return ok
}

// Union returns a new set holding the words of k and extra.
func (k Keywords) Union(extra ...string) Keywords {
	out := make(Keywords, len(k)+len(extra))
	for w := range k {
		out[w] = struct{}{}
	}
	for _, w := range extra {
		out[w] = struct{}{}
	}
	return out
}

// Candidate is an object needing a name.
type Candidate struct {
	DUID int
	Hint string
}

// Entry is one allocated name.
type Entry struct {
	DUID int
	Name string
}

// Namespace maps DUIDs to allocated names. It is immutable once built.
type Namespace struct {
	names   map[int]string
	entries []Entry
}

// SignalCandidates turns signals into candidates named after their hints.
func SignalCandidates(sigs ...*ir.Signal) []Candidate {
	out := make([]Candidate, 0, len(sigs))
	for _, s := range sigs {
		if s != nil {
			out = append(out, Candidate{DUID: s.DUID, Hint: s.Name})
		}
	}
	return out
}

// Build allocates names in ascending DUID order. The base name is the
// sanitised hint, or sig<duid> without one; on a clash with an earlier name
// or a reserved word the suffixes _1, _2, ... are tried in turn. Repeated
// candidates for one DUID keep the first hint seen.
func Build(candidates []Candidate, reserved Keywords) *Namespace {
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DUID < sorted[j].DUID })

	ns := &Namespace{names: make(map[int]string, len(sorted))}
	taken := make(map[string]bool, len(sorted))
	for _, c := range sorted {
		if _, done := ns.names[c.DUID]; done {
			continue
		}
		base := Sanitize(c.Hint)
		if base == "" {
			base = fmt.Sprintf("sig%d", c.DUID)
		}
		name := base
		for i := 1; taken[name] || reserved.Has(name); i++ {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		taken[name] = true
		ns.names[c.DUID] = name
		ns.entries = append(ns.entries, Entry{DUID: c.DUID, Name: name})
	}
	return ns
}

// Sanitize replaces characters that are not valid in an identifier with
// underscores and prefixes a leading digit with one.
func Sanitize(hint string) string {
	if hint == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Lookup returns the name allocated to duid.
func (ns *Namespace) Lookup(duid int) (string, bool) {
	name, ok := ns.names[duid]
	return name, ok
}

// NameOf returns the name of sig, or "" when it was never a candidate.
func (ns *Namespace) NameOf(sig *ir.Signal) string {
	if sig == nil {
		return ""
	}
	return ns.names[sig.DUID]
}

// Entries lists every allocation in DUID order.
func (ns *Namespace) Entries() []Entry {
	return append([]Entry(nil), ns.entries...)
}

// Len returns the number of allocated names.
func (ns *Namespace) Len() int {
	return len(ns.entries)
}
