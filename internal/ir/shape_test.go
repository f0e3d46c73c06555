package ir

import "testing"

func TestShapeOf(t *testing.T) {
	b := NewBuilder()
	u8 := Ref(b.Signal("u8", 8))
	s8 := Ref(b.Signal("s8", 8, Signed()))
	u4 := Ref(b.Signal("u4", 4))
	one := Ref(b.Signal("bit", 1))

	cases := []struct {
		name string
		expr Expr
		want SignalType
	}{
		{"add unsigned", Binary(Add, u8, u4), SignalType{Width: 9}},
		{"add mixed", Binary(Add, s8, u8), SignalType{Width: 10, Signed: true}},
		{"mul mixed", Binary(Mul, s8, u4), SignalType{Width: 12, Signed: true}},
		{"mul signed", Binary(Mul, s8, s8), SignalType{Width: 15, Signed: true}},
		{"compare", Binary(Lt, s8, u8), SignalType{Width: 1}},
		{"equal", Binary(Equal, u8, u4), SignalType{Width: 1}},
		{"shl const", Binary(Shl, u8, Int(3)), SignalType{Width: 11}},
		{"shl var", Binary(Shl, u8, u4), SignalType{Width: 8 + 15}},
		{"shr const", Binary(Shr, s8, Int(3)), SignalType{Width: 5, Signed: true}},
		{"neg unsigned", Unary(Neg, u8), SignalType{Width: 9, Signed: true}},
		{"not", Unary(Not, s8), SignalType{Width: 8, Signed: true}},
		{"mux", &Mux{Cond: one, IfTrue: u4, IfFalse: s8}, SignalType{Width: 8, Signed: true}},
		{"slice keeps sign", &Slice{Base: s8, Start: 2, Stop: 5}, SignalType{Width: 3, Signed: true}},
		{"concat", Cat(s8, u4), SignalType{Width: 12}},
		{"replicate", &Replicate{Value: u4, Count: 3}, SignalType{Width: 12}},
		{"array", &ArrayProxy{Choices: []Expr{u4, s8}, Key: one}, SignalType{Width: 8, Signed: true}},
		{"part", &Part{Base: u8, Offset: one, Width: 4, Stride: 4}, SignalType{Width: 4}},
		{"clock", &ClockRef{Domain: "sys"}, SignalType{Width: 1}},
	}
	for _, tc := range cases {
		got, err := ShapeOf(tc.expr)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want.Description(), got.Description())
		}
	}
}

func TestEqualityOperatorAndAssignConstructor(t *testing.T) {
	if !Equal.IsCompare() || Equal.Symbol() != "==" {
		t.Fatalf("Equal should be the == comparison, got %q", Equal.Symbol())
	}
	b := NewBuilder()
	x := Ref(b.Signal("x", 1))
	a := Eq(x, Binary(Equal, x, Const(1, 1, false)))
	if a.Kind != NonBlocking {
		t.Fatalf("Eq should build a non-blocking assignment")
	}
	if op, ok := a.Value.(*BinaryOp); !ok || op.Op != Equal {
		t.Fatalf("expected == comparison as value, got %T", a.Value)
	}
}

func TestShapeOfUnknownNode(t *testing.T) {
	if _, err := ShapeOf(nil); err == nil {
		t.Fatalf("expected error for nil expression")
	}
}

func TestBitsFor(t *testing.T) {
	cases := []struct {
		v      int64
		width  int
		signed bool
	}{
		{0, 1, false},
		{1, 1, false},
		{255, 8, false},
		{256, 9, false},
		{-1, 1, true},
		{-128, 8, true},
		{-129, 9, true},
	}
	for _, tc := range cases {
		w, s := BitsFor(tc.v)
		if w != tc.width || s != tc.signed {
			t.Fatalf("BitsFor(%d) = (%d, %v), want (%d, %v)", tc.v, w, s, tc.width, tc.signed)
		}
	}
}
