package namer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fhdl/internal/ir"
)

func TestBuildOrdersByDUIDAndSuffixes(t *testing.T) {
	ns := Build([]Candidate{
		{DUID: 7, Hint: "count"},
		{DUID: 2, Hint: "count"},
		{DUID: 4, Hint: "count"},
		{DUID: 9, Hint: "count_1"},
	}, nil)

	require.Equal(t, []Entry{
		{DUID: 2, Name: "count"},
		{DUID: 4, Name: "count_1"},
		{DUID: 7, Name: "count_2"},
		{DUID: 9, Name: "count_1_1"},
	}, ns.Entries())
	require.Equal(t, 4, ns.Len())
}

func TestBuildAvoidsKeywords(t *testing.T) {
	reserved := NewKeywords("reg", "wire", "reg_1")
	ns := Build([]Candidate{{DUID: 1, Hint: "reg"}, {DUID: 2, Hint: "wire"}}, reserved)

	name, ok := ns.Lookup(1)
	require.True(t, ok)
	require.Equal(t, "reg_2", name)
	name, _ = ns.Lookup(2)
	require.Equal(t, "wire_1", name)
}

func TestBuildFallbackAndSanitize(t *testing.T) {
	ns := Build([]Candidate{
		{DUID: 3},
		{DUID: 5, Hint: "9lives"},
		{DUID: 6, Hint: "a.b-c d"},
		{DUID: 3, Hint: "ignored"},
	}, nil)

	got := map[int]string{}
	for _, e := range ns.Entries() {
		got[e.DUID] = e.Name
	}
	require.Equal(t, map[int]string{3: "sig3", 5: "_9lives", 6: "a_b_c_d"}, got)
}

func TestBuildIsDeterministic(t *testing.T) {
	cands := []Candidate{{DUID: 5, Hint: "x"}, {DUID: 1, Hint: "x"}, {DUID: 3, Hint: "x"}}
	first := Build(cands, nil).Entries()
	for i := 0; i < 10; i++ {
		reversed := []Candidate{cands[2], cands[1], cands[0]}
		require.Equal(t, first, Build(reversed, nil).Entries())
	}
}

func TestSignalCandidates(t *testing.T) {
	alloc := ir.NewAllocator(1)
	a := alloc.Signal("a", 1)
	b := alloc.Signal("", 1)
	ns := Build(SignalCandidates(a, nil, b), nil)

	require.Equal(t, "a", ns.NameOf(a))
	require.Equal(t, "sig2", ns.NameOf(b))
	require.Equal(t, "", ns.NameOf(alloc.Signal("unknown", 1)))
	require.True(t, NewKeywords("x").Union("y").Has("y"))
}
