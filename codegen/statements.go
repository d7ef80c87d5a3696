// statements.go emits statements: local declarations, control flow,
// returns, and inline assembly. Loops maintain the continue/break label
// stack.

package codegen

import (
	"fmt"

	"ncc/ast"
	"ncc/types"
)

// generateBlock emits every statement of a block in order.
func (g *Generator) generateBlock(block *ast.Block) {
	for _, stmt := range block.Stmts {
		g.generateStatement(stmt)
	}
}

// generateStatement dispatches one statement.
func (g *Generator) generateStatement(stmt ast.Stmt) {
	switch node := stmt.(type) {
	case *ast.Block:
		g.generateBlock(node)
	case *ast.Declaration:
		g.generateLocalDeclaration(node)
	case *ast.StructDef:
		// Definition only; layout lives in the registry.
	case *ast.ExprStmt:
		g.generateExpression(node.X)
	case *ast.Return:
		g.generateReturn(node)
	case *ast.If:
		g.generateIf(node)
	case *ast.While:
		g.generateWhile(node)
	case *ast.DoWhile:
		g.generateDoWhile(node)
	case *ast.For:
		g.generateFor(node)
	case *ast.Break:
		g.generateBreak(node)
	case *ast.Continue:
		g.generateContinue(node)
	case *ast.AsmBlock:
		g.comment("Inline assembly block")
		fmt.Fprintf(g.w, "%s\n", node.Text)
	case *ast.AsmStmt:
		g.generateAsmStmt(node)
	default:
		g.diag.Warnf(-1, "Unsupported statement type %T", stmt)
		g.comment("Unsupported statement %T", stmt)
	}
}

// generateLocalDeclaration reserves frame space for a local variable and
// emits its initialization. Every scalar consumes one word slot; structs
// consume their size rounded up to words; arrays store their data in the
// deferred array table and keep a pointer in the frame.
func (g *Generator) generateLocalDeclaration(node *ast.Declaration) {
	if node.Type.IsArray && node.Type.ArraySize > 0 {
		if s, ok := node.Init.(*ast.StringLiteral); ok {
			// A local char array initialized from a string literal keeps
			// the string's address.
			g.comment("Array variable declaration: %s[%d]", node.Name, node.Type.ArraySize)
			index := g.internString(s.Value)
			g.ins("mov ax, string_%d ; Address of string", index)
			g.ins("push ax ; Store pointer to array")
			g.addLocal(node.Name, 1)
			return
		}

		if node.InitList != nil {
			g.addArray(node.Name, node.Type.ArraySize, node.Type.Kind, literalValues(node.InitList))
		} else {
			g.addArray(node.Name, node.Type.ArraySize, node.Type.Kind, nil)
		}

		g.comment("Array variable declaration: %s[%d]", node.Name, node.Type.ArraySize)
		g.ins("mov ax, _%s ; Address of array", node.Name)
		g.ins("push ax ; Store pointer to array")
		g.addLocal(node.Name, 1)
		return
	}

	if node.Type.Kind == types.StructKind && !node.Type.IsPointer() && node.Type.Struct != nil {
		words := (node.Type.Struct.Size + 1) / 2
		g.comment("Struct variable declaration: %s (%d bytes)", node.Name, node.Type.Struct.Size)
		for i := 0; i < words; i++ {
			g.ins("push 0 ; Reserve struct storage")
		}
		g.addLocal(node.Name, words)
		g.generateStructInitializers(node)
		return
	}

	g.comment("Local variable declaration: %s", node.Name)
	if node.Init != nil {
		g.generateExpression(node.Init)
		g.ins("push ax ; Initialize local variable")
	} else {
		g.ins("push 0 ; Uninitialized local variable")
	}
	g.addLocal(node.Name, 1)
}

// generateStructInitializers stores a brace-list initializer into a local
// struct's members in declaration order.
func (g *Generator) generateStructInitializers(node *ast.Declaration) {
	if node.InitList == nil {
		return
	}
	base := g.variableOffset(node.Name)
	for i, expr := range node.InitList {
		if i >= len(node.Type.Struct.Members) {
			break
		}
		member := node.Type.Struct.Members[i]
		g.generateExpression(expr)
		offset := base - member.Offset
		if member.Type.Kind.IsByte() && !member.Type.IsPointer() {
			g.ins("mov [bp-%d], al ; Initialize member %s", offset, member.Name)
		} else {
			g.ins("mov [bp-%d], ax ; Initialize member %s", offset, member.Name)
		}
	}
}

// generateReturn evaluates the return value into AX and jumps to the
// function's exit label. Naked functions get no automatic control flow.
func (g *Generator) generateReturn(node *ast.Return) {
	g.comment("Return statement")
	if node.X != nil {
		g.generateExpression(node.X)
	}
	if g.currentNaked {
		g.comment("Naked function - no automatic jump to epilogue generated")
		return
	}
	g.ins("jmp _%s_exit", g.currentFunction)
}

// generateIf emits the condition test and both branches.
func (g *Generator) generateIf(node *ast.If) {
	elseLabel := g.nextLabel("if_else")
	endLabel := g.nextLabel("if_end")

	g.comment("If statement")
	g.generateExpression(node.Cond)
	g.ins("test ax, ax")
	if node.Else != nil {
		g.ins("jz %s", elseLabel)
	} else {
		g.ins("jz %s", endLabel)
	}

	g.comment("If true branch")
	g.generateStatement(node.Then)

	if node.Else != nil {
		g.ins("jmp %s", endLabel)
		g.label(elseLabel)
		g.comment("Else branch")
		g.generateStatement(node.Else)
	}

	g.label(endLabel)
}

// generateWhile emits cond: test, jz end, body, jmp cond, end:.
func (g *Generator) generateWhile(node *ast.While) {
	condLabel := g.nextLabel("while_cond")
	bodyLabel := g.nextLabel("while_body")
	endLabel := g.nextLabel("while_end")

	g.comment("While loop")
	g.label(condLabel)
	g.pushLoop(condLabel, endLabel)

	g.generateExpression(node.Cond)
	g.ins("test ax, ax")
	g.ins("jz %s", endLabel)

	g.label(bodyLabel)
	g.comment("Loop body")
	g.generateStatement(node.Body)

	g.ins("jmp %s", condLabel)
	g.label(endLabel)
	g.popLoop()
}

// generateDoWhile emits body: body, cond: test, jnz body, end:.
func (g *Generator) generateDoWhile(node *ast.DoWhile) {
	bodyLabel := g.nextLabel("do_body")
	condLabel := g.nextLabel("do_cond")
	endLabel := g.nextLabel("do_end")

	g.comment("Do-while loop")
	g.label(bodyLabel)
	g.pushLoop(condLabel, endLabel)

	g.comment("Loop body")
	g.generateStatement(node.Body)

	g.label(condLabel)
	g.generateExpression(node.Cond)
	g.ins("test ax, ax")
	g.ins("jnz %s", bodyLabel)

	g.label(endLabel)
	g.popLoop()
}

// generateFor emits init, jmp cond, start: body, update: update,
// cond: test, jnz start, end:.
func (g *Generator) generateFor(node *ast.For) {
	startLabel := g.nextLabel("for_start")
	condLabel := g.nextLabel("for_cond")
	updateLabel := g.nextLabel("for_update")
	endLabel := g.nextLabel("for_end")

	g.comment("For loop")
	if node.Init != nil {
		g.comment("For loop initialization")
		g.generateStatement(node.Init)
	}

	g.ins("jmp %s", condLabel)
	g.label(startLabel)
	g.pushLoop(updateLabel, endLabel)

	if node.Body != nil {
		g.comment("For loop body")
		g.generateStatement(node.Body)
	}

	g.label(updateLabel)
	if node.Update != nil {
		g.comment("For loop update")
		g.generateStatement(node.Update)
	}

	g.label(condLabel)
	if node.Cond != nil {
		g.comment("For loop condition")
		g.generateExpression(node.Cond)
		g.ins("test ax, ax")
		g.ins("jnz %s", startLabel)
	} else {
		g.ins("jmp %s ; Unconditional loop", startLabel)
	}

	g.label(endLabel)
	g.popLoop()
}

func (g *Generator) pushLoop(continueLabel, breakLabel string) {
	g.loopStack = append(g.loopStack, loopLabels{continueLabel: continueLabel, breakLabel: breakLabel})
}

func (g *Generator) popLoop() {
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
}

func (g *Generator) generateBreak(node *ast.Break) {
	if len(g.loopStack) == 0 {
		g.diag.Errorf(node.Pos, "'break' outside of a loop")
		return
	}
	g.ins("jmp %s ; break", g.loopStack[len(g.loopStack)-1].breakLabel)
}

func (g *Generator) generateContinue(node *ast.Continue) {
	if len(g.loopStack) == 0 {
		g.diag.Errorf(node.Pos, "'continue' outside of a loop")
		return
	}
	g.ins("jmp %s ; continue", g.loopStack[len(g.loopStack)-1].continueLabel)
}

// generateAsmStmt emits the template text verbatim. Operand expressions of
// the extended form are accepted but %0/%1 substitution is not performed;
// the template is expected to name registers directly.
func (g *Generator) generateAsmStmt(node *ast.AsmStmt) {
	g.comment("Inline assembly statement")
	g.ins("%s", node.Template)
}
