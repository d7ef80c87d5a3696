// structs.go parses struct types and struct definitions. Layout (member
// offsets and total size) is computed eagerly when the definition closes.

package parser

import (
	"ncc/ast"
	"ncc/token"
	"ncc/types"
)

// parseStructType parses "struct NAME" used as a type specifier, with
// optional pointer decoration. The struct must already be defined.
func (p *Parser) parseStructType() (types.Info, error) {
	info := types.Info{Kind: types.StructKind}
	p.lex.Next()

	nameTok := p.lex.Current()
	name, ok := p.lex.ConsumeValue(token.IDENTIFIER)
	if !ok {
		return info, p.errorf(nameTok.Pos, "Expected struct name after 'struct' keyword")
	}

	structInfo := p.structs.Lookup(name)
	if structInfo == nil {
		return info, p.errorf(nameTok.Pos, "Unknown struct type '%s'", name)
	}
	info.Struct = structInfo

	for p.lex.Consume(token.STAR) {
		if p.lex.Consume(token.FAR) {
			info.FarPointer = true
		}
		info.PointerDepth++
	}

	return info, nil
}

// parseStructDefinition parses "struct NAME { members };" and registers
// the descriptor. The descriptor is added to the registry before the body
// is parsed so self-referential pointer members resolve.
func (p *Parser) parseStructDefinition() (ast.Node, error) {
	structTok := p.lex.Current()
	p.lex.Next()

	nameTok := p.lex.Current()
	name, ok := p.lex.ConsumeValue(token.IDENTIFIER)
	if !ok {
		return nil, p.errorf(nameTok.Pos, "Expected struct name after 'struct' keyword")
	}

	structInfo := &types.StructInfo{Name: name}
	if err := p.structs.Add(structInfo); err != nil {
		return nil, p.errorf(nameTok.Pos, "Duplicate definition of struct '%s'", name)
	}

	node := &ast.StructDef{Name: name, Info: structInfo, Pos: structTok.Pos}

	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}

	for !p.lex.TokenIs(token.RBRACE) && !p.lex.TokenIs(token.EOF) {
		memberType, err := p.parseType()
		if err != nil {
			return nil, err
		}

		memberTok := p.lex.Current()
		memberName, ok := p.lex.ConsumeValue(token.IDENTIFIER)
		if !ok {
			return nil, p.errorf(memberTok.Pos, "Expected member name in struct definition")
		}

		if p.lex.Consume(token.LBRACKET) {
			sizeTok := p.lex.Current()
			size, ok := p.lex.ConsumeValue(token.NUMBER)
			if !ok {
				return nil, p.errorf(sizeTok.Pos, "Array member '%s' must have a size", memberName)
			}
			memberType.IsArray = true
			memberType.ArraySize = parseNumber(size)
			if err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
		}

		structInfo.Members = append(structInfo.Members, &types.StructMember{
			Name: memberName,
			Type: memberType,
		})
		node.Members = append(node.Members, &ast.Declaration{
			Name: memberName,
			Type: memberType,
			Pos:  memberTok.Pos,
		})

		if err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
	}

	if err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	if err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}

	structInfo.Layout()
	return node, nil
}
