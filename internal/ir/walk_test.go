package ir

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestTargetsDescendIntoControlFlow(t *testing.T) {
	b := NewBuilder()
	x := b.Signal("x", 4)
	y := b.Signal("y", 4)
	z := b.Signal("z", 8)
	c := b.Signal("c", 1)
	stmt := &If{
		Cond: Ref(c),
		Then: Block{Eq(&Slice{Base: Ref(z), Start: 0, Stop: 4}, Ref(x))},
		Else: Block{&Case{Test: Ref(x), Arms: []CaseArm{{Key: Int(1), Body: Block{Eq(Cat(Ref(x), Ref(y)), Ref(z))}}}}},
	}
	got := Targets(stmt)
	for _, s := range []*Signal{x, y, z} {
		if !got.Has(s) {
			t.Fatalf("expected %s among targets", s)
		}
	}
	if got.Has(c) {
		t.Fatalf("condition signal must not be a target")
	}
	if !BlockSignals(Block{stmt}).Has(c) {
		t.Fatalf("block signals must include the condition")
	}
}

func TestGroupByTargetsMergesOverlaps(t *testing.T) {
	b := NewBuilder()
	a := b.Signal("a", 1)
	bb := b.Signal("b", 1)
	c := b.Signal("c", 1)
	d := b.Signal("d", 1)
	in := b.Signal("in", 1)

	s0 := Eq(Ref(a), Ref(in))
	s1 := Eq(Ref(d), Ref(in))
	s2 := When(Ref(in), Eq(Ref(bb), Ref(in)), Eq(Ref(c), Ref(in)))
	s3 := When(Ref(in), Eq(Ref(a), Int(0)), Eq(Ref(bb), Int(0)))

	groups := GroupByTargets(Block{s0, s1, s2, s3})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0].Stmts) != 3 || groups[0].Stmts[0] != Stmt(s0) || groups[0].Stmts[1] != Stmt(s2) || groups[0].Stmts[2] != Stmt(s3) {
		t.Fatalf("unexpected first group %+v", groups[0].Stmts)
	}
	if len(groups[0].Targets) != 3 {
		t.Fatalf("expected merged targets a,b,c; got %d", len(groups[0].Targets))
	}
	if len(groups[1].Stmts) != 1 || groups[1].Stmts[0] != Stmt(s1) {
		t.Fatalf("unexpected second group %+v", groups[1].Stmts)
	}
}

func TestDomainErrorListsDefinedDomains(t *testing.T) {
	b := NewBuilder()
	b.ClockDomain("sys")
	f := b.Fragment()
	_, err := f.Domain("video")
	if !errors.Is(err, ErrUnresolvedClockDomain) {
		t.Fatalf("expected unresolved clock domain error, got %v", err)
	}
	if !strings.Contains(err.Error(), "- sys") {
		t.Fatalf("expected defined domains in message, got %q", err)
	}
}

func TestDumpListsFragment(t *testing.T) {
	b := NewBuilder()
	b.ClockDomain("sys")
	counter := b.Signal("counter", 8)
	b.IO(counter)
	b.Sync("sys", Eq(Ref(counter), Binary(Add, Ref(counter), Int(1))))
	b.Tristate(Ref(b.Signal("pad", 1)), Int(1), Int(1), nil)

	var buf bytes.Buffer
	Dump(b.Fragment(), &buf)
	out := buf.String()
	for _, want := range []string{
		"fragment",
		"counter#3",
		"[io]",
		"sys clk=sys_clk#1 rst=sys_rst#2",
		"sync sys:",
		"counter#3 <= (counter#3 + 1:u1)",
		"tristate#5",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in dump:\n%s", want, out)
		}
	}
}
