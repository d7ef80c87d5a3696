// oracle.go answers "what is the type of this expression?" from the AST,
// the symbol table, and the struct registry. It is the sole source of truth
// for deciding whether pointer arithmetic needs element-size scaling.

package types

// TypedExpr is the view of an AST expression the oracle needs. The ast
// package's expression nodes implement it via OracleType; keeping the
// dependency in this direction avoids an import cycle between the packages.
type TypedExpr interface {
	OracleType(o *Oracle) Info
}

// Oracle infers expression types. It is consulted by the parser for error
// checks and by the code generator for pointer scaling and store widths.
type Oracle struct {
	Symbols *SymbolTable
	Structs *Registry
}

// NewOracle creates an oracle over the given tables.
func NewOracle(symbols *SymbolTable, structs *Registry) *Oracle {
	return &Oracle{Symbols: symbols, Structs: structs}
}

// TypeOf returns the inferred type of an expression. Unknown expressions
// default to int.
func (o *Oracle) TypeOf(expr TypedExpr) Info {
	if expr == nil {
		return Info{Kind: I16}
	}
	return expr.OracleType(o)
}

// IsPointer reports whether the expression has pointer type.
func (o *Oracle) IsPointer(expr TypedExpr) bool {
	return o.TypeOf(expr).IsPointer()
}

// IsVoidPointer reports whether the expression is a pointer to void.
func (o *Oracle) IsVoidPointer(expr TypedExpr) bool {
	info := o.TypeOf(expr)
	return info.Kind == Void && info.IsPointer()
}

// ScaledElemSize returns the element size relevant for pointer arithmetic:
// 1 for byte pointees, 2 for everything else the 16-bit target addresses
// word wise.
func (o *Oracle) ScaledElemSize(pointer TypedExpr) int {
	info := o.TypeOf(pointer)
	if info.PointeeIsByte() {
		return 1
	}
	return 2
}
