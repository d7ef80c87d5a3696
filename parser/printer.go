// printer.go renders the AST as prettified JSON for the compile command's
// debug mode. Each node becomes a map keyed by "type" plus its payload.

package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"ncc/ast"
	"ncc/types"
)

const (
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

var opNames = map[ast.Op]string{
	ast.OpNone:             "=",
	ast.OpAdd:              "+",
	ast.OpSub:              "-",
	ast.OpMul:              "*",
	ast.OpDiv:              "/",
	ast.OpMod:              "%",
	ast.OpEq:               "==",
	ast.OpNeq:              "!=",
	ast.OpLt:               "<",
	ast.OpLte:              "<=",
	ast.OpGt:               ">",
	ast.OpGte:              ">=",
	ast.OpLogicalAnd:       "&&",
	ast.OpLogicalOr:        "||",
	ast.OpBitwiseAnd:       "&",
	ast.OpBitwiseOr:        "|",
	ast.OpBitwiseXor:       "^",
	ast.OpLeftShift:        "<<",
	ast.OpRightShift:       ">>",
	ast.OpPlusAssign:       "+=",
	ast.OpMinusAssign:      "-=",
	ast.OpMulAssign:        "*=",
	ast.OpDivAssign:        "/=",
	ast.OpModAssign:        "%=",
	ast.OpLeftShiftAssign:  "<<=",
	ast.OpRightShiftAssign: ">>=",
	ast.OpDot:              ".",
	ast.OpArrow:            "->",
	ast.OpComma:            ",",
}

var unaryOpNames = map[ast.UnaryOp]string{
	ast.UnaryAddressOf:   "&",
	ast.UnaryDeref:       "*",
	ast.UnaryNegate:      "-",
	ast.UnaryNot:         "!",
	ast.UnaryBitwiseNot:  "~",
	ast.UnarySizeof:      "sizeof",
	ast.UnaryCast:        "cast",
	ast.PrefixIncrement:  "++pre",
	ast.PrefixDecrement:  "--pre",
	ast.PostfixIncrement: "post++",
	ast.PostfixDecrement: "post--",
}

func typeString(info types.Info) string {
	name := info.Kind.String()
	if info.Kind == types.StructKind && info.Struct != nil {
		name = "struct " + info.Struct.Name
	}
	for i := 0; i < info.PointerDepth; i++ {
		name += "*"
	}
	if info.IsArray {
		name = fmt.Sprintf("%s[%d]", name, info.ArraySize)
	}
	return name
}

func nodeJSON(node ast.Node) any {
	switch n := node.(type) {
	case *ast.Program:
		decls := make([]any, 0, len(n.Decls))
		for _, d := range n.Decls {
			decls = append(decls, nodeJSON(d))
		}
		return map[string]any{"type": "Program", "decls": decls}

	case *ast.Function:
		params := make([]any, 0, len(n.Params))
		for _, param := range n.Params {
			params = append(params, nodeJSON(param))
		}
		out := map[string]any{
			"type":    "Function",
			"name":    n.Name,
			"returns": typeString(n.ReturnType),
			"params":  params,
			"body":    nodeJSON(n.Body),
		}
		if n.Info.Naked {
			out["naked"] = true
		}
		if n.Info.Stackframe {
			out["stackframe"] = true
		}
		if n.Info.Deprecated {
			out["deprecated"] = n.Info.DeprecationMsg
		}
		if n.Info.Variadic {
			out["variadic"] = true
		}
		return out

	case *ast.Block:
		stmts := make([]any, 0, len(n.Stmts))
		for _, s := range n.Stmts {
			stmts = append(stmts, nodeJSON(s))
		}
		return map[string]any{"type": "Block", "statements": stmts}

	case *ast.Declaration:
		out := map[string]any{
			"type":     "Declaration",
			"name":     n.Name,
			"dataType": typeString(n.Type),
		}
		if n.Init != nil {
			out["initializer"] = nodeJSON(n.Init)
		}
		if n.InitList != nil {
			list := make([]any, 0, len(n.InitList))
			for _, e := range n.InitList {
				list = append(list, nodeJSON(e))
			}
			out["initializerList"] = list
		}
		return out

	case *ast.StructDef:
		members := make([]any, 0, len(n.Members))
		for _, m := range n.Members {
			members = append(members, nodeJSON(m))
		}
		return map[string]any{
			"type":    "StructDef",
			"name":    n.Name,
			"size":    n.Info.Size,
			"members": members,
		}

	case *ast.ExprStmt:
		return map[string]any{"type": "ExpressionStmt", "expression": nodeJSON(n.X)}

	case *ast.Return:
		out := map[string]any{"type": "Return"}
		if n.X != nil {
			out["expression"] = nodeJSON(n.X)
		}
		return out

	case *ast.If:
		out := map[string]any{
			"type":      "If",
			"condition": nodeJSON(n.Cond),
			"then":      nodeJSON(n.Then),
		}
		if n.Else != nil {
			out["else"] = nodeJSON(n.Else)
		}
		return out

	case *ast.While:
		return map[string]any{
			"type":      "While",
			"condition": nodeJSON(n.Cond),
			"body":      nodeJSON(n.Body),
		}

	case *ast.DoWhile:
		return map[string]any{
			"type":      "DoWhile",
			"body":      nodeJSON(n.Body),
			"condition": nodeJSON(n.Cond),
		}

	case *ast.For:
		out := map[string]any{"type": "For", "body": nodeJSON(n.Body)}
		if n.Init != nil {
			out["init"] = nodeJSON(n.Init)
		}
		if n.Cond != nil {
			out["condition"] = nodeJSON(n.Cond)
		}
		if n.Update != nil {
			out["update"] = nodeJSON(n.Update)
		}
		return out

	case *ast.Break:
		return map[string]any{"type": "Break"}

	case *ast.Continue:
		return map[string]any{"type": "Continue"}

	case *ast.AsmBlock:
		return map[string]any{"type": "AsmBlock", "text": n.Text}

	case *ast.AsmStmt:
		out := map[string]any{"type": "AsmStmt", "template": n.Template}
		if len(n.Operands) > 0 {
			operands := make([]any, 0, len(n.Operands))
			for i, operand := range n.Operands {
				operands = append(operands, map[string]any{
					"constraint": n.Constraints[i],
					"expression": nodeJSON(operand),
				})
			}
			out["operands"] = operands
		}
		return out

	case *ast.IntLiteral:
		return n.Value

	case *ast.BoolLiteral:
		return n.Value

	case *ast.StringLiteral:
		return n.Value

	case *ast.FarPointerLiteral:
		return map[string]any{
			"type":    "FarPointer",
			"segment": n.Segment,
			"offset":  n.Offset,
		}

	case *ast.Identifier:
		return map[string]any{"type": "Identifier", "name": n.Name}

	case *ast.Binary:
		return map[string]any{
			"type":     "Binary",
			"operator": opNames[n.Op],
			"left":     nodeJSON(n.Left),
			"right":    nodeJSON(n.Right),
		}

	case *ast.Unary:
		out := map[string]any{
			"type":     "Unary",
			"operator": unaryOpNames[n.Op],
		}
		if n.Operand != nil {
			out["operand"] = nodeJSON(n.Operand)
		}
		if n.Op == ast.UnaryCast {
			out["castTo"] = typeString(n.CastTo)
		}
		if n.Op == ast.UnarySizeof && n.Operand == nil {
			out["sizeofType"] = typeString(n.SizeofType)
		}
		return out

	case *ast.Assign:
		return map[string]any{
			"type":     "Assign",
			"operator": opNames[n.Op],
			"target":   nodeJSON(n.LHS),
			"value":    nodeJSON(n.RHS),
		}

	case *ast.Ternary:
		return map[string]any{
			"type":      "Ternary",
			"condition": nodeJSON(n.Cond),
			"then":      nodeJSON(n.Then),
			"else":      nodeJSON(n.Else),
		}

	case *ast.Call:
		args := make([]any, 0, len(n.Args))
		for _, arg := range n.Args {
			args = append(args, nodeJSON(arg))
		}
		return map[string]any{"type": "Call", "name": n.Name, "args": args}

	case *ast.Member:
		return map[string]any{
			"type":     "Member",
			"operator": opNames[n.Op],
			"object":   nodeJSON(n.X),
			"member":   n.Name,
		}
	}

	return map[string]any{"type": fmt.Sprintf("%T", node)}
}

// PrintASTJSON converts a program into a prettified JSON string and prints
// it to standard output.
func PrintASTJSON(program *ast.Program) (string, error) {
	bytes, err := json.MarshalIndent(nodeJSON(program), "", "  ")
	if err != nil {
		return "", err
	}

	jsonStr := string(bytes)
	fmt.Println(colorYellow + "----- AST JSON -----")
	fmt.Println(colorYellow + jsonStr)
	fmt.Println(colorYellow + "-----" + colorReset)
	fmt.Println("")
	return jsonStr, nil
}

// WriteASTJSONToFile writes the prettified AST JSON to the given path.
func WriteASTJSONToFile(program *ast.Program, path string) error {
	s, err := PrintASTJSON(program)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		return fmt.Errorf("error writing AST to file: %s", err.Error())
	}
	return nil
}
