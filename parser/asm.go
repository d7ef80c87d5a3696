// asm.go parses the two inline-assembly forms: the brace block
// __asm { ... } whose raw tokens are collected verbatim, and the
// parenthesized __asm("text") form with the optional extended
// constraint/operand syntax.

package parser

import (
	"strings"

	"ncc/ast"
	"ncc/token"
)

// parseInlineAssembly dispatches on the form following the __asm keyword.
func (p *Parser) parseInlineAssembly() (ast.Stmt, error) {
	p.lex.Next()

	if p.lex.TokenIs(token.LBRACE) {
		return p.parseAsmBlock()
	}

	node := &ast.AsmStmt{}

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	tmplTok := p.lex.Current()
	template, ok := p.lex.ConsumeValue(token.STRING)
	if !ok {
		return nil, p.errorf(tmplTok.Pos, "Expected string literal in __asm statement")
	}
	node.Template = template

	// Extended syntax: __asm("instr %0" : outputs : inputs). Output
	// operands are not supported; input operands are parsed as
	// constraint string plus parenthesized expression.
	if p.lex.Consume(token.COLON) {
		if p.lex.Consume(token.COLON) {
			for !p.lex.TokenIs(token.RPAREN) && !p.lex.TokenIs(token.EOF) {
				p.lex.Consume(token.COMMA)
				if p.lex.TokenIs(token.RPAREN) {
					break
				}

				constraintTok := p.lex.Current()
				constraint, ok := p.lex.ConsumeValue(token.STRING)
				if !ok {
					return nil, p.errorf(constraintTok.Pos, "Expected constraint string for assembly operand")
				}
				node.Constraints = append(node.Constraints, constraint)

				if err := p.expect(token.LPAREN); err != nil {
					return nil, err
				}
				operand, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				node.Operands = append(node.Operands, operand)
				if err := p.expect(token.RPAREN); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return node, nil
}

// parseAsmBlock collects the raw tokens between balanced braces and joins
// them into the emitted text.
func (p *Parser) parseAsmBlock() (ast.Stmt, error) {
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}

	var parts []string
	depth := 1
	for depth > 0 && !p.lex.TokenIs(token.EOF) {
		current := p.lex.Current()
		if current.Type == token.LBRACE {
			depth++
		} else if current.Type == token.RBRACE {
			depth--
			if depth == 0 {
				p.lex.Next()
				break
			}
		}
		parts = append(parts, current.Value)
		p.lex.Next()
	}

	if err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.AsmBlock{Text: strings.Join(parts, " ")}, nil
}
