// oracle.go wires the expression nodes into the type oracle. Each node
// reports its inferred type; the rules follow the target's data model:
// arithmetic defaults to int, pointers are sticky through arithmetic, and
// a string literal is a char pointer.

package ast

import (
	"ncc/types"
)

func intType() types.Info {
	return types.Info{Kind: types.I16}
}

func (n *IntLiteral) OracleType(o *types.Oracle) types.Info {
	return intType()
}

func (n *BoolLiteral) OracleType(o *types.Oracle) types.Info {
	return types.Info{Kind: types.Bool}
}

func (n *StringLiteral) OracleType(o *types.Oracle) types.Info {
	return types.Info{Kind: types.I8, PointerDepth: 1}
}

func (n *FarPointerLiteral) OracleType(o *types.Oracle) types.Info {
	return types.Info{Kind: types.I16, PointerDepth: 1, FarPointer: true}
}

func (n *Identifier) OracleType(o *types.Oracle) types.Info {
	if info, ok := o.Symbols.Lookup(n.Name); ok {
		return info
	}
	return intType()
}

func (n *Unary) OracleType(o *types.Oracle) types.Info {
	switch n.Op {
	case UnaryAddressOf:
		return o.TypeOf(n.Operand).PointerTo()
	case UnaryDeref:
		return o.TypeOf(n.Operand).Deref()
	case UnaryCast:
		return n.CastTo
	case PrefixIncrement, PrefixDecrement, PostfixIncrement, PostfixDecrement:
		return o.TypeOf(n.Operand)
	default:
		return intType()
	}
}

func (n *Binary) OracleType(o *types.Oracle) types.Info {
	if n.Op == OpComma {
		return o.TypeOf(n.Right)
	}
	left := o.TypeOf(n.Left)
	if left.IsPointer() {
		return left
	}
	right := o.TypeOf(n.Right)
	if right.IsPointer() {
		return right
	}
	return left
}

func (n *Assign) OracleType(o *types.Oracle) types.Info {
	return o.TypeOf(n.LHS)
}

func (n *Ternary) OracleType(o *types.Oracle) types.Info {
	return o.TypeOf(n.Then)
}

func (n *Call) OracleType(o *types.Oracle) types.Info {
	return intType()
}

func (n *Member) OracleType(o *types.Oracle) types.Info {
	base := o.TypeOf(n.X)
	if base.Kind == types.StructKind && base.Struct != nil {
		if m := base.Struct.Member(n.Name); m != nil {
			return m.Type
		}
	}
	return intType()
}
