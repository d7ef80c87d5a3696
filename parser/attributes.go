// attributes.go parses function attributes in both accepted forms: the
// legacy __attribute__((name, ...)) and the C23 [[name, name(arg), ...]]
// bracket syntax. Recognized names: naked, deprecated (optional string
// message), stackframe, far/farcalled. Unknown attribute names are
// skipped.

package parser

import (
	"ncc/ast"
	"ncc/token"
)

// parseFunctionAttributes parses one attribute specifier and applies the
// recognized attributes to info.
func (p *Parser) parseFunctionAttributes(info *ast.FuncInfo) error {
	if p.lex.Consume(token.ATTRIBUTE) {
		if err := p.expect(token.LPAREN); err != nil {
			return err
		}
		if err := p.expect(token.LPAREN); err != nil {
			return err
		}
		if err := p.parseAttributeList(info, token.RPAREN); err != nil {
			return err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return err
		}
		return p.expect(token.RPAREN)
	}

	if p.lex.Consume(token.ATTR_OPEN) {
		if err := p.parseAttributeList(info, token.ATTR_CLOSE); err != nil {
			return err
		}
		return p.expect(token.ATTR_CLOSE)
	}

	return nil
}

// parseAttributeList parses comma-separated attribute names up to the
// given closing token.
func (p *Parser) parseAttributeList(info *ast.FuncInfo, closing token.TokenType) error {
	for !p.lex.TokenIs(closing) && !p.lex.TokenIs(token.EOF) {
		current := p.lex.Current()

		switch current.Type {
		case token.NAKED:
			p.lex.Next()
			info.Naked = true

		case token.DEPRECATED:
			p.lex.Next()
			info.Deprecated = true
			if p.lex.Consume(token.LPAREN) {
				msgTok := p.lex.Current()
				if msg, ok := p.lex.ConsumeValue(token.STRING); ok {
					info.DeprecationMsg = msg
				} else {
					return p.errorf(msgTok.Pos, "Expected string literal in deprecated attribute")
				}
				if err := p.expect(token.RPAREN); err != nil {
					return err
				}
			}

		case token.STACKFRAME:
			p.lex.Next()
			info.Stackframe = true

		case token.FAR, token.FARCALLED:
			p.lex.Next()
			info.Far = true

		case token.IDENTIFIER:
			// stackframe, far, and farcalled are recognized by name; any
			// other attribute is skipped, arguments included.
			p.lex.Next()
			switch current.Value {
			case "stackframe":
				info.Stackframe = true
			case "far", "farcalled":
				info.Far = true
			}
			if p.lex.Consume(token.LPAREN) {
				depth := 1
				for depth > 0 && !p.lex.TokenIs(token.EOF) {
					if p.lex.TokenIs(token.LPAREN) {
						depth++
					} else if p.lex.TokenIs(token.RPAREN) {
						depth--
					}
					p.lex.Next()
				}
			}

		default:
			return p.errorf(current.Pos, "Expected attribute name but got %s", current.Type)
		}

		if !p.lex.Consume(token.COMMA) {
			break
		}
	}
	return nil
}
