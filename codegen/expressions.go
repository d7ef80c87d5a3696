// expressions.go emits expressions. Every expression leaves its result in
// AX; far pointers leave the segment in DX. Binary operators evaluate the
// left operand first, park it on the stack, and combine with the right
// operand in BX.

package codegen

import (
	"fmt"

	"github.com/samber/lo"

	"ncc/ast"
	"ncc/types"
)

// generateExpression dispatches one expression node.
func (g *Generator) generateExpression(expr ast.Expr) {
	switch node := expr.(type) {
	case *ast.IntLiteral:
		if node.IsChar {
			g.ins("mov al, %d ; Load character value", node.Value)
			g.ins("mov ah, 0 ; Zero-extend to 16-bit")
		} else {
			g.ins("mov ax, %d ; Load literal", node.Value)
		}

	case *ast.BoolLiteral:
		if node.Value {
			g.ins("mov ax, 1 ; Load boolean value (true)")
		} else {
			g.ins("mov ax, 0 ; Load boolean value (false)")
		}

	case *ast.StringLiteral:
		index := g.internString(node.Value)
		g.comment("String literal")
		g.ins("mov ax, string_%d ; Address of string", index)

	case *ast.FarPointerLiteral:
		g.ins("mov dx, 0x%04X ; Segment", node.Segment)
		g.ins("mov ax, 0x%04X ; Offset", node.Offset)

	case *ast.Identifier:
		g.loadIdentifier(node)

	case *ast.Binary:
		g.generateBinaryOp(node)

	case *ast.Unary:
		g.generateUnaryOp(node)

	case *ast.Assign:
		g.generateAssignment(node)

	case *ast.Ternary:
		g.generateTernary(node)

	case *ast.Call:
		g.generateCall(node)

	case *ast.Member:
		g.generateMemberLoad(node)

	default:
		g.diag.Warnf(-1, "Unsupported expression type %T", expr)
		g.comment("Unsupported expression %T", expr)
	}
}

// loadIdentifier loads a parameter, local, or global into AX. Any name
// absent from the frame table is a global and uses the mangled label.
func (g *Generator) loadIdentifier(node *ast.Identifier) {
	if g.isParameter(node.Name) {
		g.ins("mov ax, [bp+%d] ; Load parameter %s", -g.variableOffset(node.Name), node.Name)
		return
	}

	offset := g.variableOffset(node.Name)
	if offset != 0 {
		g.ins("mov ax, [bp-%d] ; Load local variable %s", offset, node.Name)
		return
	}

	info, known := g.oracle.Symbols.Lookup(node.Name)
	if known && info.Kind.IsByte() && !info.IsPointer() && !info.IsArray {
		g.ins("mov al, [%s] ; Load global variable %s", g.globalLabel(node.Name), node.Name)
		g.ins("mov ah, 0 ; Zero-extend to 16-bit")
		return
	}
	if known && info.IsArray && !g.isStringGlobal(node.Name) {
		// A global array name evaluates to its address.
		g.ins("mov ax, _%s ; Address of array %s", node.Name, node.Name)
		return
	}
	g.ins("mov ax, [%s] ; Load global variable %s", g.globalLabel(node.Name), node.Name)
}

func (g *Generator) isStringGlobal(name string) bool {
	_, ok := g.stringGlobals[name]
	return ok
}

// generateBinaryOp emits a binary operation. Logical operators
// short-circuit; everything else evaluates left, pushes it, evaluates
// right into BX, and restores left into AX.
func (g *Generator) generateBinaryOp(node *ast.Binary) {
	switch node.Op {
	case ast.OpLogicalAnd:
		falseLabel := g.nextLabel("land_false")
		endLabel := g.nextLabel("land_end")
		g.generateExpression(node.Left)
		g.ins("test ax, ax ; logical AND left test")
		g.ins("jz %s ; left false, skip right", falseLabel)
		g.generateExpression(node.Right)
		g.ins("test ax, ax ; logical AND right test")
		g.ins("jz %s ; right false, result false", falseLabel)
		g.ins("mov ax, 1 ; both true -> true")
		g.ins("jmp %s", endLabel)
		g.label(falseLabel)
		g.ins("mov ax, 0 ; false")
		g.label(endLabel)
		return

	case ast.OpLogicalOr:
		trueLabel := g.nextLabel("lor_true")
		endLabel := g.nextLabel("lor_end")
		g.generateExpression(node.Left)
		g.ins("test ax, ax ; logical OR left test")
		g.ins("jnz %s ; left true, result true", trueLabel)
		g.generateExpression(node.Right)
		g.ins("test ax, ax ; logical OR right test")
		g.ins("jnz %s ; right true -> true", trueLabel)
		g.ins("mov ax, 0 ; both false -> false")
		g.ins("jmp %s", endLabel)
		g.label(trueLabel)
		g.ins("mov ax, 1 ; true")
		g.label(endLabel)
		return

	case ast.OpComma:
		// Left is evaluated and discarded; right is the result.
		g.generateExpression(node.Left)
		g.generateExpression(node.Right)
		return
	}

	g.generateExpression(node.Left)
	g.ins("push ax ; Save left operand")
	g.generateExpression(node.Right)
	g.ins("mov bx, ax ; Right operand to bx")
	g.ins("pop ax ; Restore left operand")

	switch node.Op {
	case ast.OpAdd:
		if g.oracle.IsPointer(node.Left) {
			if g.oracle.ScaledElemSize(node.Left) > 1 {
				g.comment("Pointer arithmetic: scale by element size 2")
				g.ins("shl bx, 1 ; Scale index by 2 for word elements")
			}
		} else if g.oracle.IsPointer(node.Right) {
			if g.oracle.ScaledElemSize(node.Right) > 1 {
				g.comment("Pointer arithmetic: scale by element size 2")
				g.ins("shl ax, 1 ; Scale index by 2 for word elements")
			}
			g.ins("xchg ax, bx ; Swap to put pointer in AX")
		}
		g.ins("add ax, bx ; Addition")

	case ast.OpSub:
		if g.oracle.IsPointer(node.Left) {
			if g.oracle.IsPointer(node.Right) {
				g.comment("Pointer difference")
				g.ins("sub ax, bx ; Calculate raw byte difference")
				if g.oracle.ScaledElemSize(node.Left) > 1 {
					g.ins("sar ax, 1 ; Divide by 2 for word elements")
				}
			} else {
				if g.oracle.ScaledElemSize(node.Left) > 1 {
					g.comment("Pointer arithmetic: scale by element size")
					g.ins("shl bx, 1 ; Scale index by 2 for word elements")
				}
				g.ins("sub ax, bx ; Subtraction")
			}
		} else {
			g.ins("sub ax, bx ; Subtraction")
		}

	case ast.OpMul:
		g.ins("imul bx ; Multiplication (signed)")

	case ast.OpDiv, ast.OpMod:
		if g.oracle.TypeOf(node.Left).Kind.IsUnsigned() {
			g.ins("mov dx, 0 ; Clear DX for unsigned division")
			g.ins("div bx ; Division (unsigned)")
		} else {
			g.ins("cwd ; Sign extend AX into DX:AX")
			g.ins("idiv bx ; Division (signed)")
		}
		if node.Op == ast.OpMod {
			g.ins("mov ax, dx ; Remainder is in DX")
		}

	case ast.OpEq:
		g.generateComparison("je", "eq", "Equal comparison")
	case ast.OpNeq:
		g.generateComparison("jne", "neq", "Not equal comparison")
	case ast.OpLt:
		g.generateComparison("jl", "lt", "Less than comparison")
	case ast.OpLte:
		g.generateComparison("jle", "lte", "Less than or equal comparison")
	case ast.OpGt:
		g.generateComparison("jg", "gt", "Greater than comparison")
	case ast.OpGte:
		g.generateComparison("jge", "gte", "Greater than or equal comparison")

	case ast.OpBitwiseAnd:
		g.ins("and ax, bx ; Bitwise AND")
	case ast.OpBitwiseOr:
		g.ins("or ax, bx ; Bitwise OR")
	case ast.OpBitwiseXor:
		g.ins("xor ax, bx ; Bitwise XOR")

	case ast.OpLeftShift:
		g.ins("mov cx, bx ; Set shift count in CX")
		g.ins("shl ax, cl ; Shift left")
	case ast.OpRightShift:
		g.ins("mov cx, bx ; Set shift count in CX")
		g.ins("sar ax, cl ; Shift right (arithmetic, preserves sign)")

	default:
		g.diag.Warnf(-1, "Unsupported binary operator %d", node.Op)
	}
}

// generateComparison materializes 0 or 1 in AX from a cmp, using a
// compare-and-branch pair of unique labels (the 8086 has no setcc).
func (g *Generator) generateComparison(jump, prefix, what string) {
	n := g.labelCounter
	g.labelCounter++
	g.ins("cmp ax, bx ; %s", what)
	g.ins("mov ax, 0  ; Assume false")
	g.ins("%s %s_true_%d", jump, prefix, n)
	g.ins("jmp %s_end_%d", prefix, n)
	g.label(fmt.Sprintf("%s_true_%d", prefix, n))
	g.ins("mov ax, 1  ; Set true")
	g.label(fmt.Sprintf("%s_end_%d", prefix, n))
}

// generateUnaryOp emits a unary operation.
func (g *Generator) generateUnaryOp(node *ast.Unary) {
	switch node.Op {
	case ast.UnaryDeref:
		g.generateExpression(node.Operand)
		ptr := g.oracle.TypeOf(node.Operand)
		if ptr.FarPointer {
			g.comment("Dereferencing far pointer")
			g.ins("push ds ; Save current DS")
			g.ins("mov bx, ax ; Move offset to BX")
			g.ins("mov ds, dx ; Set DS to segment")
			if ptr.PointeeIsByte() {
				g.ins("mov al, [bx] ; Load byte through far pointer")
				g.ins("mov ah, 0 ; Zero-extend to 16-bit")
			} else {
				g.ins("mov ax, [bx] ; Load word through far pointer")
			}
			g.ins("pop ds ; Restore DS")
			return
		}
		g.comment("Dereferencing pointer")
		g.ins("mov bx, ax ; Move address to BX")
		if ptr.PointeeIsByte() {
			g.ins("mov al, [bx] ; Dereference byte pointer")
			g.ins("mov ah, 0 ; Zero-extend to 16-bit")
		} else {
			g.ins("mov ax, [bx] ; Dereference pointer")
		}

	case ast.UnaryAddressOf:
		g.generateAddressOf(node.Operand)

	case ast.UnaryNegate:
		g.generateExpression(node.Operand)
		g.ins("neg ax ; Negate value")

	case ast.UnaryNot:
		g.generateExpression(node.Operand)
		g.ins("test ax, ax ; Test if AX is zero")
		g.ins("setz al ; Set AL to 1 if AX is zero, 0 otherwise")
		g.ins("movzx ax, al ; Zero-extend AL to AX")

	case ast.UnaryBitwiseNot:
		g.generateExpression(node.Operand)
		g.ins("not ax ; Bitwise NOT")

	case ast.UnarySizeof:
		var size int
		if node.Operand != nil {
			size = g.oracle.TypeOf(node.Operand).Size()
		} else {
			size = node.SizeofType.Size()
		}
		g.ins("mov ax, %d ; sizeof", size)

	case ast.UnaryCast:
		g.generateExpression(node.Operand)
		g.generateTypeConversion(g.oracle.TypeOf(node.Operand).Kind, node.CastTo.Kind)

	case ast.PrefixIncrement, ast.PrefixDecrement:
		g.generateExpression(node.Operand)
		if node.Op == ast.PrefixIncrement {
			g.ins("add ax, 1 ; Pre-increment")
		} else {
			g.ins("sub ax, 1 ; Pre-decrement")
		}
		g.storeAX(node.Operand)

	case ast.PostfixIncrement, ast.PostfixDecrement:
		g.generateExpression(node.Operand)
		g.ins("push ax ; Save original value")
		if node.Op == ast.PostfixIncrement {
			g.ins("add ax, 1 ; Post-increment")
		} else {
			g.ins("sub ax, 1 ; Post-decrement")
		}
		g.storeAX(node.Operand)
		g.ins("pop ax ; Result is the original value")

	default:
		g.diag.Warnf(node.Pos, "Unsupported unary operator %d", node.Op)
	}
}

// generateTypeConversion emits the extension or truncation between byte
// and word kinds: cbw for signed widening, a mask for unsigned widening,
// and nothing for narrowing (the value is already in AL).
func (g *Generator) generateTypeConversion(from, to types.Kind) {
	if from == to {
		return
	}
	switch {
	case from == types.I8 && (to == types.I16 || to == types.I32):
		g.comment("Convert char to int (sign extension)")
		g.ins("cbw ; Convert byte in AL to word in AX")
	case from.IsByte() && !to.IsByte():
		g.comment("Convert char to unsigned int (zero extension)")
		g.ins("and ax, 0x00FF ; Zero extend AL to AX")
	case !from.IsByte() && to.IsByte():
		g.comment("Truncate int to char (keeping lower byte)")
	}
}

// generateTernary evaluates the condition and one of the two branches,
// leaving the chosen value in AX.
func (g *Generator) generateTernary(node *ast.Ternary) {
	falseLabel := g.nextLabel("ternary_false")
	endLabel := g.nextLabel("ternary_end")

	g.comment("Ternary expression")
	g.generateExpression(node.Cond)
	g.ins("test ax, ax")
	g.ins("jz %s", falseLabel)
	g.generateExpression(node.Then)
	g.ins("jmp %s", endLabel)
	g.label(falseLabel)
	g.generateExpression(node.Else)
	g.label(endLabel)
}

// generateCall pushes the arguments right to left, calls near, and
// removes the arguments with the caller-cleanup convention. The return
// value is in AX.
func (g *Generator) generateCall(node *ast.Call) {
	g.comment("Function call to %s", node.Name)

	for _, arg := range lo.Reverse(append([]ast.Expr(nil), node.Args...)) {
		g.generateExpression(arg)
		g.ins("push ax ; Argument")
	}

	g.ins("call _%s", node.Name)

	if len(node.Args) > 0 {
		g.ins("add sp, %d ; Remove arguments", len(node.Args)*2)
	}
}

// generateAssignment emits plain and compound assignments; the assigned
// value remains in AX so assignments compose as expressions.
func (g *Generator) generateAssignment(node *ast.Assign) {
	g.comment("Assignment statement")

	if node.Op == ast.OpNone {
		g.generateExpression(node.RHS)
		g.storeAX(node.LHS)
		return
	}

	// Compound: old value and RHS are parked on the stack, combined, and
	// stored back.
	g.generateExpression(node.LHS)
	g.ins("push ax ; Save old value")
	g.generateExpression(node.RHS)
	g.ins("push ax ; Save RHS value")
	g.ins("pop bx ; RHS value")
	g.ins("pop ax ; Old LHS value")

	switch node.Op {
	case ast.OpPlusAssign:
		g.ins("add ax, bx ; +=")
	case ast.OpMinusAssign:
		g.ins("sub ax, bx ; -=")
	case ast.OpMulAssign:
		g.ins("imul bx ; *=")
	case ast.OpDivAssign:
		g.ins("cwd ; Sign extend AX into DX:AX for division")
		g.ins("idiv bx ; /=")
	case ast.OpModAssign:
		g.ins("cwd ; Sign extend AX into DX:AX for mod")
		g.ins("idiv bx ;")
		g.ins("mov ax, dx ; remainder in DX")
	case ast.OpLeftShiftAssign:
		g.ins("mov cx, bx ; Set shift count in CX")
		g.ins("shl ax, cl ; <<=")
	case ast.OpRightShiftAssign:
		g.ins("mov cx, bx ; Set shift count in CX")
		g.ins("sar ax, cl ; >>=")
	}

	g.storeAX(node.LHS)
}

// storeAX stores AX into an lvalue, preserving AX as the expression
// result. Identifier targets store directly; dereference and member
// targets compute the address into BX first.
func (g *Generator) storeAX(lhs ast.Expr) {
	switch target := lhs.(type) {
	case *ast.Identifier:
		if g.isParameter(target.Name) {
			g.ins("mov [bp+%d], ax ; Store in parameter %s", -g.variableOffset(target.Name), target.Name)
			return
		}
		offset := g.variableOffset(target.Name)
		if offset != 0 {
			g.ins("mov [bp-%d], ax ; Store in local variable %s", offset, target.Name)
			return
		}
		info, known := g.oracle.Symbols.Lookup(target.Name)
		if known && info.Kind.IsByte() && !info.IsPointer() {
			g.ins("mov [%s], al ; Store in global variable %s", g.globalLabel(target.Name), target.Name)
		} else {
			g.ins("mov [%s], ax ; Store in global variable %s", g.globalLabel(target.Name), target.Name)
		}

	case *ast.Unary:
		if target.Op != ast.UnaryDeref {
			g.diag.Warnf(target.Pos, "Unsupported assignment target")
			return
		}
		ptr := g.oracle.TypeOf(target.Operand)
		g.ins("push ax ; Save right-hand side value")
		g.generateExpression(target.Operand)

		if ptr.FarPointer || isFarPointerLiteral(target.Operand) {
			g.comment("Far pointer assignment")
			g.ins("mov bx, ax ; Move offset to BX")
			g.ins("pop ax ; Restore right-hand side value")
			g.ins("push ds ; Save current DS")
			g.ins("mov ds, dx ; Set DS to segment")
			if ptr.PointeeIsByte() {
				g.ins("mov [bx], al ; Store byte value through far pointer")
			} else {
				g.ins("mov [bx], ax ; Store word value through far pointer")
			}
			g.ins("pop ds ; Restore DS")
			return
		}

		g.ins("mov bx, ax ; Move pointer address to BX")
		g.ins("pop ax ; Restore right-hand side value")
		if ptr.PointeeIsByte() {
			g.ins("mov [bx], al ; Store byte value through pointer")
		} else {
			g.ins("mov [bx], ax ; Store word value through pointer")
		}

	case *ast.Member:
		g.storeMember(target)

	default:
		g.diag.Warnf(-1, "Unsupported assignment target")
	}
}

func isFarPointerLiteral(expr ast.Expr) bool {
	_, ok := expr.(*ast.FarPointerLiteral)
	return ok
}
