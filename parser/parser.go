// Recursive descent parser
// https://en.wikipedia.org/wiki/Recursive_descent_parser
//
// A recursive descent parser is a top-down parser: it starts from the top
// grammar rule and works its way down into the nested sub-expressions
// before reaching the leaves of the syntax tree (terminal rules).
package parser

import (
	"strconv"

	"ncc/ast"
	"ncc/diag"
	"ncc/lexer"
	"ncc/token"
	"ncc/types"
)

// Parser consumes a token stream and builds the typed AST. It populates
// the symbol table with parameter and declaration types, and the struct
// registry with each struct definition (layout computed at definition
// time).
type Parser struct {
	lex  *lexer.Lexer
	diag *diag.Manager

	symbols *types.SymbolTable
	structs *types.Registry

	// The program being built, used to check call sites against
	// previously parsed deprecated functions.
	program *ast.Program
}

// New creates a parser over an initialized lexer.
func New(lex *lexer.Lexer, d *diag.Manager) *Parser {
	return &Parser{
		lex:     lex,
		diag:    d,
		symbols: types.NewSymbolTable(),
		structs: types.NewRegistry(),
	}
}

// Symbols returns the symbol table populated during parsing.
func (p *Parser) Symbols() *types.SymbolTable { return p.symbols }

// Structs returns the struct registry populated during parsing.
func (p *Parser) Structs() *types.Registry { return p.structs }

// errorf reports a positioned error and returns it. Parsing unwinds on the
// first error at each site; the diagnostics manager enforces the cap.
func (p *Parser) errorf(pos int, format string, args ...any) error {
	return p.diag.Errorf(pos, format, args...)
}

// expect consumes the current token if it has the given type and reports
// an error otherwise.
func (p *Parser) expect(t token.TokenType) error {
	if p.lex.Consume(t) {
		return nil
	}
	current := p.lex.Current()
	return p.errorf(current.Pos, "Expected %s but got %s", t, current.Type)
}

// ParseProgram parses the entire token stream into a Program node.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	p.program = &ast.Program{}

	for !p.lex.TokenIs(token.EOF) {
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		p.program.Decls = append(p.program.Decls, decl)
	}

	if err := p.lex.Err(); err != nil {
		return nil, err
	}
	return p.program, nil
}

// parseDeclaration parses one top-level or local declaration:
//
//	decl ::= [ "static" ] [ attribute ] ( struct_def | var_decl | func_def )
func (p *Parser) parseDeclaration() (ast.Node, error) {
	isStatic := p.lex.Consume(token.STATIC)

	// Attributes written before the type, e.g.
	// __attribute__((naked)) void f() or [[deprecated]] int g().
	var pre ast.FuncInfo
	hasAttributes := false
	if p.lex.TokenIs(token.ATTRIBUTE) || p.lex.TokenIs(token.ATTR_OPEN) {
		if err := p.parseFunctionAttributes(&pre); err != nil {
			return nil, err
		}
		hasAttributes = true
	}

	// A struct keyword followed by a name and '{' is a definition;
	// otherwise it is a struct-typed declaration.
	if p.lex.TokenIs(token.STRUCT) && p.lex.Peek().Type == token.IDENTIFIER {
		saved := p.lex.Snapshot()
		p.lex.Next()
		p.lex.Next()
		isDefinition := p.lex.TokenIs(token.LBRACE)
		p.lex.Restore(saved)
		if isDefinition {
			return p.parseStructDefinition()
		}
	}

	typeInfo, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if isStatic {
		typeInfo.Static = true
	}

	nameTok := p.lex.Current()
	name, ok := p.lex.ConsumeValue(token.IDENTIFIER)
	if !ok {
		return nil, p.errorf(nameTok.Pos, "Expected identifier after type specifier")
	}

	if p.lex.TokenIs(token.LPAREN) {
		fn, err := p.parseFunctionDefinition(name, typeInfo, nameTok.Pos)
		if err != nil {
			return nil, err
		}
		if hasAttributes {
			fn.Info.Naked = fn.Info.Naked || pre.Naked
			fn.Info.Stackframe = fn.Info.Stackframe || pre.Stackframe
			fn.Info.Far = fn.Info.Far || pre.Far
			if pre.Deprecated {
				fn.Info.Deprecated = true
				fn.Info.DeprecationMsg = pre.DeprecationMsg
			}
		}
		return fn, nil
	}

	return p.parseVariableDeclaration(name, typeInfo, nameTok.Pos)
}

// parseType parses a type specifier:
// [unsigned] [__stackframe|__far|__farcalled] base {"*" ["__far"]}.
func (p *Parser) parseType() (types.Info, error) {
	var info types.Info

	if p.lex.TokenIs(token.STRUCT) {
		return p.parseStructType()
	}

	isUnsigned := p.lex.Consume(token.UNSIGNED)

	// Function attribute keywords may precede the base type in any order.
	for {
		if p.lex.Consume(token.STACKFRAME) {
			info.Stackframe = true
		} else if p.lex.Consume(token.FAR) || p.lex.Consume(token.FARCALLED) {
			info.Far = true
		} else {
			break
		}
	}

	switch {
	case p.lex.Consume(token.INT), p.lex.Consume(token.SHORT):
		if isUnsigned {
			info.Kind = types.U16
		} else {
			info.Kind = types.I16
		}
	case p.lex.Consume(token.LONG):
		if isUnsigned {
			info.Kind = types.U32
		} else {
			info.Kind = types.I32
		}
	case p.lex.Consume(token.CHAR):
		if isUnsigned {
			info.Kind = types.U8
		} else {
			info.Kind = types.I8
		}
	case p.lex.Consume(token.BOOL):
		info.Kind = types.Bool
	case p.lex.Consume(token.VOID):
		info.Kind = types.Void
	default:
		if isUnsigned {
			// A bare 'unsigned' defaults to unsigned int.
			info.Kind = types.U16
			break
		}
		current := p.lex.Current()
		return info, p.errorf(current.Pos, "Expected type specifier")
	}

	for p.lex.Consume(token.STAR) {
		if p.lex.Consume(token.FAR) {
			info.FarPointer = true
		}
		info.PointerDepth++
	}

	return info, nil
}

// parseParameter parses one function parameter and registers it in the
// symbol table.
func (p *Parser) parseParameter() (*ast.Declaration, error) {
	typeInfo, err := p.parseType()
	if err != nil {
		return nil, err
	}

	nameTok := p.lex.Current()
	name, ok := p.lex.ConsumeValue(token.IDENTIFIER)
	if !ok {
		return nil, p.errorf(nameTok.Pos, "Expected parameter name")
	}

	// void pointers are allowed, plain void parameters are not.
	if typeInfo.Kind == types.Void && !typeInfo.IsPointer() {
		return nil, p.errorf(nameTok.Pos, "Parameter '%s' has incomplete type 'void'", name)
	}

	p.symbols.Add(name, typeInfo)
	return &ast.Declaration{Name: name, Type: typeInfo, Pos: nameTok.Pos}, nil
}

// parseFunctionDefinition parses the parameter list, trailing attributes,
// and body of a function whose name and return type were already read.
func (p *Parser) parseFunctionDefinition(name string, returnType types.Info, pos int) (*ast.Function, error) {
	fn := &ast.Function{
		Name:       name,
		ReturnType: returnType,
		Pos:        pos,
		Info: ast.FuncInfo{
			Stackframe: returnType.Stackframe,
			Far:        returnType.Far,
			Static:     returnType.Static,
		},
	}

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	if !p.lex.TokenIs(token.RPAREN) {
		for {
			if p.lex.Consume(token.ELLIPSIS) {
				// The ellipsis must be the last parameter.
				fn.Info.Variadic = true
				break
			}
			param, err := p.parseParameter()
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, param)
			if !p.lex.Consume(token.COMMA) {
				break
			}
		}
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	if p.lex.TokenIs(token.ATTRIBUTE) || p.lex.TokenIs(token.ATTR_OPEN) {
		if err := p.parseFunctionAttributes(&fn.Info); err != nil {
			return nil, err
		}
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

// parseVariableDeclaration parses the array suffix, optional initializer,
// and terminating semicolon of a variable whose name and type were already
// read. The variable is registered in the symbol table.
func (p *Parser) parseVariableDeclaration(name string, typeInfo types.Info, pos int) (*ast.Declaration, error) {
	if typeInfo.Kind == types.Void && !typeInfo.IsPointer() {
		return nil, p.errorf(pos, "Variable '%s' has incomplete type 'void'", name)
	}

	node := &ast.Declaration{Name: name, Type: typeInfo, Pos: pos}

	if p.lex.Consume(token.LBRACKET) {
		node.Type.IsArray = true
		if value, ok := p.lex.ConsumeValue(token.NUMBER); ok {
			node.Type.ArraySize = parseNumber(value)
		}
		if err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
	}

	if p.lex.Consume(token.ASSIGN) {
		if p.lex.TokenIs(token.LBRACE) && (node.Type.IsArray || node.Type.Kind == types.StructKind) {
			list, err := p.parseInitializerList()
			if err != nil {
				return nil, err
			}
			node.InitList = list
			// An unsized array takes its size from the initializer count.
			if node.Type.IsArray && node.Type.ArraySize == 0 {
				node.Type.ArraySize = len(list)
			}
		} else {
			init, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			node.Init = init
			// A char array initialized from a string literal takes the
			// string's length (with terminator) as its size.
			if node.Type.IsArray && node.Type.ArraySize == 0 {
				if s, ok := init.(*ast.StringLiteral); ok {
					node.Type.ArraySize = len(s.Value) + 1
				}
			}
		}
	}

	p.symbols.Add(name, node.Type)

	if err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return node, nil
}

// parseInitializerList parses "{ expr, expr, ... }" with an optional
// trailing comma.
func (p *Parser) parseInitializerList() ([]ast.Expr, error) {
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}

	var list []ast.Expr
	if !p.lex.TokenIs(token.RBRACE) {
		for {
			expr, err := p.parseAssignmentExpression()
			if err != nil {
				return nil, err
			}
			list = append(list, expr)
			if !p.lex.Consume(token.COMMA) {
				break
			}
			if p.lex.TokenIs(token.RBRACE) {
				break // trailing comma
			}
		}
	}

	if err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return list, nil
}

// parseBlock parses "{ stmt* }".
func (p *Parser) parseBlock() (*ast.Block, error) {
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}

	block := &ast.Block{}
	for !p.lex.TokenIs(token.RBRACE) && !p.lex.TokenIs(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}

	if err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

// declarationStart reports whether the current token can begin a local
// declaration.
func (p *Parser) declarationStart() bool {
	switch p.lex.Current().Type {
	case token.STATIC, token.INT, token.SHORT, token.LONG, token.UNSIGNED,
		token.CHAR, token.VOID, token.BOOL, token.STRUCT:
		return true
	}
	return false
}

// parseStatement parses a single statement.
func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.lex.Current().Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		pos := p.lex.Current().Pos
		p.lex.Next()
		if err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.Break{Pos: pos}, nil
	case token.CONTINUE:
		pos := p.lex.Current().Pos
		p.lex.Next()
		if err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.Continue{Pos: pos}, nil
	case token.ASM:
		return p.parseInlineAssembly()
	}

	if p.declarationStart() {
		// Static local variables are not supported; 'static' is ignored.
		if p.lex.TokenIs(token.STATIC) {
			p.diag.Warnf(p.lex.Current().Pos,
				"Static local variables are not supported - 'static' ignored in local context")
			p.lex.Next()
		}
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		stmt, ok := decl.(ast.Stmt)
		if !ok {
			return nil, p.errorf(p.lex.Current().Pos, "Expected declaration statement")
		}
		return stmt, nil
	}

	return p.parseExpressionStatement()
}

// parseReturnStatement parses "return [expr];".
func (p *Parser) parseReturnStatement() (ast.Stmt, error) {
	node := &ast.Return{Pos: p.lex.Current().Pos}
	p.lex.Next()

	if !p.lex.TokenIs(token.SEMICOLON) {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node.X = expr
	}

	if err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return node, nil
}

// parseExpressionStatement parses "expr;".
func (p *Parser) parseExpressionStatement() (ast.Stmt, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{X: expr}, nil
}

// parseIfStatement parses "if (cond) stmt [else stmt]".
func (p *Parser) parseIfStatement() (ast.Stmt, error) {
	p.lex.Next()

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	node := &ast.If{Cond: cond, Then: then}
	if p.lex.Consume(token.ELSE) {
		elseStmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		node.Else = elseStmt
	}
	return node, nil
}

// parseWhileStatement parses "while (cond) stmt".
func (p *Parser) parseWhileStatement() (ast.Stmt, error) {
	p.lex.Next()

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body}, nil
}

// parseDoWhileStatement parses "do stmt while (cond);".
func (p *Parser) parseDoWhileStatement() (ast.Stmt, error) {
	p.lex.Next()

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	if err := p.expect(token.WHILE); err != nil {
		return nil, err
	}
	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.DoWhile{Body: body, Cond: cond}, nil
}

// parseForStatement parses "for (init; cond; update) stmt" where each of
// the three parts may be empty.
func (p *Parser) parseForStatement() (ast.Stmt, error) {
	p.lex.Next()

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	node := &ast.For{}

	switch {
	case p.declarationStart():
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		node.Init = decl.(ast.Stmt)
	case !p.lex.TokenIs(token.SEMICOLON):
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node.Init = &ast.ExprStmt{X: expr}
		if err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
	default:
		p.lex.Next()
	}

	if !p.lex.TokenIs(token.SEMICOLON) {
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node.Cond = cond
	}
	if err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}

	if !p.lex.TokenIs(token.RPAREN) {
		update, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node.Update = &ast.ExprStmt{X: update}
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	node.Body = body
	return node, nil
}

// parseNumber converts a decimal or 0x-prefixed hex literal.
func parseNumber(text string) int {
	value, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0
	}
	return int(value)
}
