// Package types defines the compiler's type descriptors: base kinds,
// pointer and array decoration, struct layout, the struct registry, and
// the flat symbol table populated during parsing.
package types

import (
	"fmt"
)

// Kind is the closed set of base type kinds.
type Kind int

const (
	// I8 is an 8-bit signed integer (char).
	I8 Kind = iota
	// U8 is an 8-bit unsigned integer (unsigned char).
	U8
	// I16 is a 16-bit signed integer (int, short).
	I16
	// U16 is a 16-bit unsigned integer (unsigned int, unsigned short).
	U16
	// I32 is a 32-bit signed integer (long).
	I32
	// U32 is a 32-bit unsigned integer (unsigned long).
	U32
	// Bool is the C23 bool type (1 byte).
	Bool
	// Void is the void type.
	Void
	// FarPointer is a 32-bit segment:offset pair.
	FarPointer
	// StructKind is a struct type; Info.Struct points at its descriptor.
	StructKind
)

var kindNames = map[Kind]string{
	I8:         "char",
	U8:         "unsigned char",
	I16:        "int",
	U16:        "unsigned int",
	I32:        "long",
	U32:        "unsigned long",
	Bool:       "bool",
	Void:       "void",
	FarPointer: "far pointer",
	StructKind: "struct",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsByte reports whether values of this kind occupy a single byte.
func (k Kind) IsByte() bool {
	return k == I8 || k == U8 || k == Bool
}

// IsUnsigned reports whether this kind is an unsigned integer kind.
func (k Kind) IsUnsigned() bool {
	return k == U8 || k == U16 || k == U32
}

// scalarSize returns the in-memory size of a value of this kind: 1 byte
// for the byte kinds, 4 for the 32-bit kinds and far pointers, 2 otherwise.
func (k Kind) scalarSize() int {
	switch {
	case k.IsByte():
		return 1
	case k == I32 || k == U32 || k == FarPointer:
		return 4
	default:
		return 2
	}
}

// Info is a full type descriptor: a base kind plus pointer depth, array
// decoration, and storage/attribute flags. Struct types carry a non-owning
// reference to their descriptor in the registry.
type Info struct {
	Kind       Kind
	PointerDepth int
	FarPointer bool
	IsArray    bool
	ArraySize  int

	Static     bool
	Stackframe bool
	Far        bool

	Struct *StructInfo
}

// IsPointer reports whether the descriptor has at least one pointer level.
// An array name decays to a pointer to its element type in expressions, so
// arrays count as pointers here.
func (i Info) IsPointer() bool { return i.PointerDepth > 0 || i.IsArray }

// Size returns the in-memory size of a value of this type in bytes,
// following the packed layout rules: members pack with no padding, arrays
// multiply element size by element count, nested structs use their
// resolved size.
func (i Info) Size() int {
	elem := i.elementSize()
	if i.IsArray {
		return elem * i.ArraySize
	}
	return elem
}

// elementSize is the size of one element, ignoring array decoration.
func (i Info) elementSize() int {
	if i.PointerDepth > 0 {
		if i.FarPointer {
			return 4
		}
		return 2
	}
	if i.Kind == StructKind && i.Struct != nil {
		return i.Struct.Size
	}
	return i.Kind.scalarSize()
}

// Deref returns the type obtained by removing one pointer level. An array
// decays to a pointer to its element type first.
func (i Info) Deref() Info {
	out := i
	out.IsArray = false
	out.ArraySize = 0
	if out.PointerDepth > 0 {
		out.PointerDepth--
		if out.PointerDepth == 0 {
			out.FarPointer = false
		}
	}
	return out
}

// PointerTo returns a pointer to this type.
func (i Info) PointerTo() Info {
	out := i
	out.PointerDepth++
	return out
}

// PointeeIsByte reports whether a dereference of this pointer yields a
// single byte. Used for choosing between al and ax loads and stores, and
// for deciding whether pointer arithmetic needs index scaling.
func (i Info) PointeeIsByte() bool {
	if !i.IsPointer() {
		return false
	}
	if i.PointerDepth == 0 {
		// An array of bytes decays to a byte pointer.
		return i.Kind.IsByte()
	}
	return i.PointerDepth == 1 && i.Kind.IsByte()
}

// StructMember is one member of a struct: its name, type, and byte offset
// within the struct.
type StructMember struct {
	Name   string
	Type   Info
	Offset int
}

// StructInfo describes a struct: its name, ordered member list, and total
// byte size. Layout is computed eagerly at definition time.
type StructInfo struct {
	Name    string
	Members []*StructMember
	Size    int
}

// Layout computes member offsets and the total struct size. Members are
// packed in declaration order with no alignment padding.
func (s *StructInfo) Layout() {
	offset := 0
	for _, m := range s.Members {
		m.Offset = offset
		offset += m.Type.Size()
	}
	s.Size = offset
}

// Member returns the member with the given name, or nil.
func (s *StructInfo) Member(name string) *StructMember {
	for _, m := range s.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Registry maps struct names to their descriptors. Struct descriptors are
// owned by the registry, which outlives the AST; type descriptors
// reference them weakly.
type Registry struct {
	structs []*StructInfo
}

// NewRegistry creates an empty struct registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a struct definition. Duplicate names are an error.
func (r *Registry) Add(info *StructInfo) error {
	if r.Lookup(info.Name) != nil {
		return fmt.Errorf("duplicate struct definition for '%s'", info.Name)
	}
	r.structs = append(r.structs, info)
	return nil
}

// Lookup returns the descriptor for a struct name, or nil.
func (r *Registry) Lookup(name string) *StructInfo {
	for _, s := range r.structs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// SymbolTable is a flat mapping from identifier to type descriptor,
// populated during parsing for globals, parameters, and local
// declarations. Insertion order is preserved so global emission order
// matches source order.
type SymbolTable struct {
	symbols map[string]Info
	order   []string
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]Info)}
}

// Add records or updates the type of an identifier.
func (t *SymbolTable) Add(name string, info Info) {
	if _, exists := t.symbols[name]; !exists {
		t.order = append(t.order, name)
	}
	t.symbols[name] = info
}

// Lookup returns the type of an identifier and whether it is known.
func (t *SymbolTable) Lookup(name string) (Info, bool) {
	info, ok := t.symbols[name]
	return info, ok
}

// Names returns the identifiers in insertion order.
func (t *SymbolTable) Names() []string {
	return t.order
}
