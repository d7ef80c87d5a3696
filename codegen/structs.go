// structs.go emits struct member access and address-of computations using
// the offsets recorded in the struct registry. Members of local structs
// are addressed directly off BP; arrow access and nested expressions go
// through a computed address in BX.

package codegen

import (
	"ncc/ast"
	"ncc/types"
)

// memberOf resolves a member-access node against the struct registry.
func (g *Generator) memberOf(node *ast.Member) *types.StructMember {
	base := g.oracle.TypeOf(node.X)
	if base.Kind != types.StructKind || base.Struct == nil {
		return nil
	}
	return base.Struct.Member(node.Name)
}

// localStructBase returns the BP offset of a directly addressable local
// struct variable, or 0.
func (g *Generator) localStructBase(expr ast.Expr) int {
	ident, ok := expr.(*ast.Identifier)
	if !ok || g.isParameter(ident.Name) {
		return 0
	}
	info, found := g.oracle.Symbols.Lookup(ident.Name)
	if !found || info.Kind != types.StructKind || info.IsPointer() {
		return 0
	}
	return g.variableOffset(ident.Name)
}

// generateMemberLoad loads s.m or p->m into AX.
func (g *Generator) generateMemberLoad(node *ast.Member) {
	member := g.memberOf(node)
	if member == nil {
		g.diag.Errorf(node.Pos, "Unknown struct member '%s'", node.Name)
		return
	}
	isByte := member.Type.Kind.IsByte() && !member.Type.IsPointer()

	if node.Op == ast.OpDot {
		if base := g.localStructBase(node.X); base != 0 {
			offset := base - member.Offset
			if isByte {
				g.ins("mov al, [bp-%d] ; Load member %s", offset, node.Name)
				g.ins("mov ah, 0 ; Zero-extend to 16-bit")
			} else {
				g.ins("mov ax, [bp-%d] ; Load member %s", offset, node.Name)
			}
			return
		}
		g.generateAddressOf(node.X)
		if member.Offset > 0 {
			g.ins("add ax, %d ; Add member offset", member.Offset)
		}
	} else {
		// p->m: the pointer value plus the member offset.
		g.generateExpression(node.X)
		if member.Offset > 0 {
			g.ins("add ax, %d ; Add member offset to struct pointer", member.Offset)
		}
	}

	g.ins("mov bx, ax ; Member address to BX")
	if isByte {
		g.ins("mov al, [bx] ; Load member %s", node.Name)
		g.ins("mov ah, 0 ; Zero-extend to 16-bit")
	} else {
		g.ins("mov ax, [bx] ; Load member %s", node.Name)
	}
}

// storeMember stores AX into s.m or p->m.
func (g *Generator) storeMember(node *ast.Member) {
	member := g.memberOf(node)
	if member == nil {
		g.diag.Errorf(node.Pos, "Unknown struct member '%s'", node.Name)
		return
	}
	isByte := member.Type.Kind.IsByte() && !member.Type.IsPointer()

	if node.Op == ast.OpDot {
		if base := g.localStructBase(node.X); base != 0 {
			offset := base - member.Offset
			if isByte {
				g.ins("mov [bp-%d], al ; Store in member %s", offset, node.Name)
			} else {
				g.ins("mov [bp-%d], ax ; Store in member %s", offset, node.Name)
			}
			return
		}
	}

	g.ins("push ax ; Save value for member store")
	if node.Op == ast.OpDot {
		g.generateAddressOf(node.X)
	} else {
		g.generateExpression(node.X)
	}
	if member.Offset > 0 {
		g.ins("add ax, %d ; Add member offset", member.Offset)
	}
	g.ins("mov bx, ax ; Member address to BX")
	g.ins("pop ax ; Restore value")
	if isByte {
		g.ins("mov [bx], al ; Store byte in member %s", node.Name)
	} else {
		g.ins("mov [bx], ax ; Store word in member %s", node.Name)
	}
}

// generateAddressOf loads the address of an lvalue expression into AX.
func (g *Generator) generateAddressOf(expr ast.Expr) {
	switch node := expr.(type) {
	case *ast.Identifier:
		if g.isParameter(node.Name) {
			g.comment("Address of parameter %s", node.Name)
			g.ins("lea ax, [bp+%d] ; Load address of parameter", -g.variableOffset(node.Name))
			return
		}
		if offset := g.variableOffset(node.Name); offset != 0 {
			g.comment("Address of variable %s", node.Name)
			g.ins("lea ax, [bp-%d] ; Load address of local variable", offset)
			return
		}
		info, _ := g.oracle.Symbols.Lookup(node.Name)
		if info.IsArray {
			g.ins("mov ax, _%s ; Address of array %s", node.Name, node.Name)
			return
		}
		g.ins("mov ax, %s ; Address of global variable %s", g.globalLabel(node.Name), node.Name)

	case *ast.Unary:
		if node.Op == ast.UnaryDeref {
			// The address of *p is the value of p.
			g.generateExpression(node.Operand)
			return
		}
		g.diag.Errorf(node.Pos, "Cannot take address of this expression")

	case *ast.Member:
		member := g.memberOf(node)
		if member == nil {
			g.diag.Errorf(node.Pos, "Unknown struct member '%s'", node.Name)
			return
		}
		if node.Op == ast.OpDot {
			g.generateAddressOf(node.X)
		} else {
			g.generateExpression(node.X)
		}
		if member.Offset > 0 {
			g.ins("add ax, %d ; Add member offset to struct address", member.Offset)
		}

	case *ast.Binary:
		if node.Op != ast.OpAdd && node.Op != ast.OpSub {
			g.diag.Warnf(-1, "Cannot take address of this binary expression")
			return
		}
		// Pointer arithmetic for array indexing.
		g.generateExpression(node.Left)
		g.ins("push ax ; Save base address")
		g.generateExpression(node.Right)
		if g.oracle.ScaledElemSize(node.Left) > 1 {
			g.ins("shl ax, 1 ; Multiply index by 2")
		}
		g.ins("pop bx ; Restore base address")
		if node.Op == ast.OpAdd {
			g.ins("add ax, bx ; Add offset to base")
		} else {
			g.ins("sub bx, ax ; Subtract offset from base")
			g.ins("mov ax, bx ; Result to AX")
		}

	default:
		g.diag.Warnf(-1, "Cannot take address of this expression type")
	}
}
