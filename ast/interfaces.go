// interfaces.go declares the interfaces all statement and expression AST
// nodes implement. The tree is a sum type: one struct per node kind, and
// consumers dispatch with a type switch.

package ast

import (
	"ncc/types"
)

// Node is the base interface for every AST node.
type Node interface {
	node()
}

// Expr is implemented by all expression nodes. An expression always
// evaluates to a value. Every expression reports its inferred type to the
// type oracle through OracleType, which also makes any Expr directly
// usable as a types.TypedExpr.
type Expr interface {
	Node
	exprNode()
	OracleType(*types.Oracle) types.Info
}

// Stmt is implemented by all statement nodes. A statement represents an
// action and does not produce a value.
type Stmt interface {
	Node
	stmtNode()
}
