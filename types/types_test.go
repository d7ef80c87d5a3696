package types

import (
	"testing"
)

func TestScalarSizes(t *testing.T) {
	tests := []struct {
		info Info
		want int
	}{
		{Info{Kind: I8}, 1},
		{Info{Kind: U8}, 1},
		{Info{Kind: Bool}, 1},
		{Info{Kind: I16}, 2},
		{Info{Kind: U16}, 2},
		{Info{Kind: I32}, 4},
		{Info{Kind: U32}, 4},
		{Info{Kind: FarPointer}, 4},
		{Info{Kind: I8, PointerDepth: 1}, 2},
		{Info{Kind: I16, PointerDepth: 1, FarPointer: true}, 4},
		{Info{Kind: I16, IsArray: true, ArraySize: 5}, 10},
		{Info{Kind: I8, IsArray: true, ArraySize: 5}, 5},
	}

	for _, tt := range tests {
		if got := tt.info.Size(); got != tt.want {
			t.Errorf("Size(%+v) = %d, want %d", tt.info, got, tt.want)
		}
	}
}

func TestStructLayout(t *testing.T) {
	s := &StructInfo{
		Name: "Mixed",
		Members: []*StructMember{
			{Name: "a", Type: Info{Kind: I8}},
			{Name: "l", Type: Info{Kind: I32}},
			{Name: "buf", Type: Info{Kind: I8, IsArray: true, ArraySize: 3}},
			{Name: "n", Type: Info{Kind: I16}},
		},
	}
	s.Layout()

	wantOffsets := map[string]int{"a": 0, "l": 1, "buf": 5, "n": 8}
	for name, want := range wantOffsets {
		m := s.Member(name)
		if m == nil {
			t.Fatalf("member %s missing", name)
		}
		if m.Offset != want {
			t.Errorf("offset(%s) = %d, want %d", name, m.Offset, want)
		}
	}
	if s.Size != 10 {
		t.Errorf("struct size = %d, want 10", s.Size)
	}
}

func TestNestedStructLayout(t *testing.T) {
	inner := &StructInfo{
		Name: "Point",
		Members: []*StructMember{
			{Name: "x", Type: Info{Kind: I16}},
			{Name: "y", Type: Info{Kind: I16}},
		},
	}
	inner.Layout()
	if inner.Size != 4 {
		t.Fatalf("inner size = %d, want 4", inner.Size)
	}

	outer := &StructInfo{
		Name: "Rect",
		Members: []*StructMember{
			{Name: "min", Type: Info{Kind: StructKind, Struct: inner}},
			{Name: "max", Type: Info{Kind: StructKind, Struct: inner}},
		},
	}
	outer.Layout()
	if outer.Size != 8 {
		t.Errorf("outer size = %d, want 8", outer.Size)
	}
	if outer.Member("max").Offset != 4 {
		t.Errorf("max offset = %d, want 4", outer.Member("max").Offset)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Add(&StructInfo{Name: "P"}); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if err := r.Add(&StructInfo{Name: "P"}); err == nil {
		t.Errorf("duplicate Add should fail")
	}
	if r.Lookup("P") == nil {
		t.Errorf("Lookup(P) = nil, want descriptor")
	}
	if r.Lookup("Q") != nil {
		t.Errorf("Lookup(Q) should be nil")
	}
}

func TestDerefAndDecay(t *testing.T) {
	ptr := Info{Kind: I8, PointerDepth: 1}
	if !ptr.PointeeIsByte() {
		t.Errorf("char* pointee should be byte")
	}
	if ptr.Deref().Kind != I8 || ptr.Deref().IsPointer() {
		t.Errorf("deref of char* should be char value")
	}

	arr := Info{Kind: I8, IsArray: true, ArraySize: 4}
	if !arr.IsPointer() {
		t.Errorf("array should decay to pointer")
	}
	if !arr.PointeeIsByte() {
		t.Errorf("char array pointee should be byte")
	}

	wordArr := Info{Kind: I16, IsArray: true, ArraySize: 4}
	if wordArr.PointeeIsByte() {
		t.Errorf("int array pointee should not be byte")
	}

	far := Info{Kind: I16, PointerDepth: 1, FarPointer: true}
	deref := far.Deref()
	if deref.IsPointer() || deref.FarPointer {
		t.Errorf("deref of far pointer should drop pointer decoration")
	}
}

func TestSymbolTableOrder(t *testing.T) {
	table := NewSymbolTable()
	table.Add("b", Info{Kind: I16})
	table.Add("a", Info{Kind: I8})
	table.Add("b", Info{Kind: U16}) // update keeps position

	names := table.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("Names() = %v, want [b a]", names)
	}
	info, ok := table.Lookup("b")
	if !ok || info.Kind != U16 {
		t.Errorf("Lookup(b) = %+v, %v", info, ok)
	}
}
