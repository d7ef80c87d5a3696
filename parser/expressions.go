// expressions.go implements the expression grammar as a descent chain,
// lowest precedence first: comma, assignment, ternary, logical-or,
// logical-and, relational/equality, bitwise-or, bitwise-xor, bitwise-and,
// shift, additive, multiplicative, unary, postfix, primary.

package parser

import (
	"ncc/ast"
	"ncc/token"
	"ncc/types"
)

// parseExpression is the entry point for expressions; it parses the comma
// operator, whose right operand's value is the result.
func (p *Parser) parseExpression() (ast.Expr, error) {
	left, err := p.parseAssignmentExpression()
	if err != nil {
		return nil, err
	}

	for p.lex.Consume(token.COMMA) {
		right, err := p.parseAssignmentExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpComma, Left: left, Right: right}
	}
	return left, nil
}

var assignmentOps = map[token.TokenType]ast.Op{
	token.ASSIGN:             ast.OpNone,
	token.PLUS_ASSIGN:        ast.OpPlusAssign,
	token.MINUS_ASSIGN:       ast.OpMinusAssign,
	token.MUL_ASSIGN:         ast.OpMulAssign,
	token.DIV_ASSIGN:         ast.OpDivAssign,
	token.MOD_ASSIGN:         ast.OpModAssign,
	token.LEFT_SHIFT_ASSIGN:  ast.OpLeftShiftAssign,
	token.RIGHT_SHIFT_ASSIGN: ast.OpRightShiftAssign,
}

// parseAssignmentExpression parses plain and compound assignments,
// right-associatively.
func (p *Parser) parseAssignmentExpression() (ast.Expr, error) {
	left, err := p.parseTernaryExpression()
	if err != nil {
		return nil, err
	}

	op, ok := assignmentOps[p.lex.Current().Type]
	if !ok {
		return left, nil
	}
	opTok := p.lex.Current()
	p.lex.Next()

	// Storing through a dereferenced void pointer has no defined size.
	if deref, isDeref := left.(*ast.Unary); isDeref && deref.Op == ast.UnaryDeref {
		oracle := types.NewOracle(p.symbols, p.structs)
		if oracle.IsVoidPointer(deref.Operand) {
			return nil, p.errorf(opTok.Pos,
				"Cannot assign to a dereferenced void pointer - it has no defined size")
		}
	}

	right, err := p.parseAssignmentExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Op: op, LHS: left, RHS: right, Pos: opTok.Pos}, nil
}

// parseTernaryExpression parses "cond ? a : b".
func (p *Parser) parseTernaryExpression() (ast.Expr, error) {
	cond, err := p.parseLogicalOrExpression()
	if err != nil {
		return nil, err
	}

	if !p.lex.Consume(token.QUESTION) {
		return cond, nil
	}

	// A lone number right before ':' is the then-branch, not the segment
	// of a far pointer literal.
	var then ast.Expr
	if cur := p.lex.Current(); cur.Type == token.NUMBER && p.lex.Peek().Type == token.COLON {
		p.lex.Next()
		then = &ast.IntLiteral{Value: parseNumber(cur.Value), Pos: cur.Pos}
	} else {
		then, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	elseExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{Cond: cond, Then: then, Else: elseExpr}, nil
}

func (p *Parser) parseLogicalOrExpression() (ast.Expr, error) {
	left, err := p.parseLogicalAndExpression()
	if err != nil {
		return nil, err
	}
	for p.lex.Consume(token.OR) {
		right, err := p.parseLogicalAndExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpLogicalOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalAndExpression() (ast.Expr, error) {
	left, err := p.parseRelationalExpression()
	if err != nil {
		return nil, err
	}
	for p.lex.Consume(token.AND) {
		right, err := p.parseRelationalExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpLogicalAnd, Left: left, Right: right}
	}
	return left, nil
}

var relationalOps = map[token.TokenType]ast.Op{
	token.LT:  ast.OpLt,
	token.GT:  ast.OpGt,
	token.LTE: ast.OpLte,
	token.GTE: ast.OpGte,
	token.EQ:  ast.OpEq,
	token.NEQ: ast.OpNeq,
}

// parseRelationalExpression parses the relational and equality operators.
func (p *Parser) parseRelationalExpression() (ast.Expr, error) {
	left, err := p.parseBitwiseOrExpression()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := relationalOps[p.lex.Current().Type]
		if !ok {
			return left, nil
		}
		p.lex.Next()
		right, err := p.parseBitwiseOrExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseBitwiseOrExpression() (ast.Expr, error) {
	left, err := p.parseBitwiseXorExpression()
	if err != nil {
		return nil, err
	}
	for p.lex.TokenIs(token.PIPE) {
		p.lex.Next()
		right, err := p.parseBitwiseXorExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpBitwiseOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseBitwiseXorExpression() (ast.Expr, error) {
	left, err := p.parseBitwiseAndExpression()
	if err != nil {
		return nil, err
	}
	for p.lex.Consume(token.XOR) {
		right, err := p.parseBitwiseAndExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpBitwiseXor, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseBitwiseAndExpression() (ast.Expr, error) {
	left, err := p.parseShiftExpression()
	if err != nil {
		return nil, err
	}
	for p.lex.TokenIs(token.AMPERSAND) {
		p.lex.Next()
		right, err := p.parseShiftExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpBitwiseAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseShiftExpression() (ast.Expr, error) {
	left, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.Op
		switch p.lex.Current().Type {
		case token.LEFT_SHIFT:
			op = ast.OpLeftShift
		case token.RIGHT_SHIFT:
			op = ast.OpRightShift
		default:
			return left, nil
		}
		p.lex.Next()
		right, err := p.parseAdditiveExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdditiveExpression() (ast.Expr, error) {
	left, err := p.parseMultiplicativeExpression()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.Op
		switch p.lex.Current().Type {
		case token.PLUS:
			op = ast.OpAdd
		case token.MINUS:
			op = ast.OpSub
		default:
			return left, nil
		}
		p.lex.Next()
		right, err := p.parseMultiplicativeExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseMultiplicativeExpression() (ast.Expr, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.Op
		switch p.lex.Current().Type {
		case token.STAR:
			op = ast.OpMul
		case token.SLASH:
			op = ast.OpDiv
		case token.PERCENT:
			op = ast.OpMod
		default:
			return left, nil
		}
		p.lex.Next()
		right, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
}

// parseUnaryExpression parses prefix operators, sizeof, and casts.
func (p *Parser) parseUnaryExpression() (ast.Expr, error) {
	current := p.lex.Current()

	prefix := func(op ast.UnaryOp) (ast.Expr, error) {
		p.lex.Next()
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: op, Operand: operand, Pos: current.Pos}, nil
	}

	switch current.Type {
	case token.AMPERSAND:
		return prefix(ast.UnaryAddressOf)
	case token.STAR:
		return prefix(ast.UnaryDeref)
	case token.MINUS:
		return prefix(ast.UnaryNegate)
	case token.NOT:
		return prefix(ast.UnaryNot)
	case token.BITWISE_NOT:
		return prefix(ast.UnaryBitwiseNot)
	case token.INCREMENT:
		return prefix(ast.PrefixIncrement)
	case token.DECREMENT:
		return prefix(ast.PrefixDecrement)
	case token.SIZEOF:
		return p.parseSizeof()
	case token.LPAREN:
		// A parenthesized type name is a cast.
		if p.lex.Peek().IsTypeName() {
			p.lex.Next()
			castTo, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			operand, err := p.parseUnaryExpression()
			if err != nil {
				return nil, err
			}
			return &ast.Unary{Op: ast.UnaryCast, Operand: operand, CastTo: castTo, Pos: current.Pos}, nil
		}
	}

	return p.parsePostfixExpression()
}

// parseSizeof parses sizeof(TYPE) and sizeof expr.
func (p *Parser) parseSizeof() (ast.Expr, error) {
	pos := p.lex.Current().Pos
	p.lex.Next()

	if p.lex.TokenIs(token.LPAREN) && p.lex.Peek().IsTypeName() {
		p.lex.Next()
		info, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.UnarySizeof, SizeofType: info, Pos: pos}, nil
	}

	operand, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Unary{Op: ast.UnarySizeof, Operand: operand, Pos: pos}, nil
}

// parsePostfixExpression parses array subscripts, member accesses, and
// postfix increment and decrement. Array indexing a[i] desugars to *(a+i).
func (p *Parser) parsePostfixExpression() (ast.Expr, error) {
	left, err := p.parsePrimaryExpression()
	if err != nil {
		return nil, err
	}

	for {
		current := p.lex.Current()
		switch current.Type {
		case token.LBRACKET:
			p.lex.Next()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			left = &ast.Unary{
				Op:      ast.UnaryDeref,
				Operand: &ast.Binary{Op: ast.OpAdd, Left: left, Right: index},
				Pos:     current.Pos,
			}

		case token.DOT, token.ARROW:
			op := ast.OpDot
			if current.Type == token.ARROW {
				op = ast.OpArrow
			}
			p.lex.Next()
			nameTok := p.lex.Current()
			name, ok := p.lex.ConsumeValue(token.IDENTIFIER)
			if !ok {
				return nil, p.errorf(nameTok.Pos, "Expected member name after '%s'", current.Type)
			}
			left = &ast.Member{Op: op, X: left, Name: name, Pos: nameTok.Pos}

		case token.INCREMENT:
			p.lex.Next()
			left = &ast.Unary{Op: ast.PostfixIncrement, Operand: left, Pos: current.Pos}

		case token.DECREMENT:
			p.lex.Next()
			left = &ast.Unary{Op: ast.PostfixDecrement, Operand: left, Pos: current.Pos}

		default:
			return left, nil
		}
	}
}

// parsePrimaryExpression parses identifiers, calls, literals, and
// parenthesized expressions.
func (p *Parser) parsePrimaryExpression() (ast.Expr, error) {
	current := p.lex.Current()

	switch current.Type {
	case token.IDENTIFIER:
		name := current.Value
		p.lex.Next()
		if p.lex.TokenIs(token.LPAREN) {
			return p.parseCall(name, current.Pos)
		}
		return &ast.Identifier{Name: name, Pos: current.Pos}, nil

	case token.NUMBER:
		p.lex.Next()
		value := parseNumber(current.Value)

		// segment:offset is a far pointer literal.
		if p.lex.TokenIs(token.COLON) && p.lex.Peek().Type == token.NUMBER {
			p.lex.Next()
			offsetTok := p.lex.Current()
			p.lex.Next()
			return &ast.FarPointerLiteral{
				Segment: value,
				Offset:  parseNumber(offsetTok.Value),
				Pos:     current.Pos,
			}, nil
		}
		return &ast.IntLiteral{Value: value, Pos: current.Pos}, nil

	case token.CHAR_LITERAL:
		p.lex.Next()
		return &ast.IntLiteral{Value: int(current.Value[0]), IsChar: true, Pos: current.Pos}, nil

	case token.STRING:
		p.lex.Next()
		return &ast.StringLiteral{Value: current.Value, Pos: current.Pos}, nil

	case token.TRUE, token.FALSE:
		p.lex.Next()
		return &ast.BoolLiteral{Value: current.Type == token.TRUE, Pos: current.Pos}, nil

	case token.LPAREN:
		p.lex.Next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}

	return nil, p.errorf(current.Pos, "Expected expression")
}

// parseCall parses the argument list of a function call and warns if the
// callee was previously marked deprecated.
func (p *Parser) parseCall(name string, pos int) (ast.Expr, error) {
	p.checkDeprecatedCall(name, pos)

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	node := &ast.Call{Name: name, Pos: pos}
	if !p.lex.TokenIs(token.RPAREN) {
		for {
			arg, err := p.parseAssignmentExpression()
			if err != nil {
				return nil, err
			}
			node.Args = append(node.Args, arg)
			if !p.lex.Consume(token.COMMA) {
				break
			}
		}
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return node, nil
}

// checkDeprecatedCall warns when calling a function already parsed and
// marked deprecated, including its message if one was given.
func (p *Parser) checkDeprecatedCall(name string, pos int) {
	if p.program == nil {
		return
	}
	for _, decl := range p.program.Decls {
		fn, ok := decl.(*ast.Function)
		if !ok || fn.Name != name {
			continue
		}
		if fn.Info.Deprecated {
			if fn.Info.DeprecationMsg != "" {
				p.diag.Warnf(pos, "Call to deprecated function '%s': %s", name, fn.Info.DeprecationMsg)
			} else {
				p.diag.Warnf(pos, "Call to deprecated function '%s'", name)
			}
		}
		return
	}
}
