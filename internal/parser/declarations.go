package parser

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/lexer"
)

// parseClassDefinition parses `class Name [extends Base] [implements
// I1, I2] { ... }`. Attributes gathered by the attribute scanner (dynamic,
// final, public, etc.) are applied to the resulting node by
// applyPendingAttrs after this returns.
func (p *Parser) parseClassDefinition() *ast.Node {
	pos := p.cur().Pos
	p.expect(lexer.CLASS)
	name := p.cur().Literal
	p.expect(lexer.IDENT)
	cls := ast.NewClass(pos, ast.QName{Name: name})

	if p.at(lexer.IDENT) && p.cur().Literal == lexerEXTENDS {
		p.advance()
		cls.AddOptionalChild(p.parseQNameRef())
	} else {
		cls.AddOptionalChild(nil)
	}

	if p.at(lexer.IDENT) && p.cur().Literal == lexerIMPLEMENTS {
		p.advance()
		impl := ast.NewNode(ast.KindTypeIdentifiers, p.cur().Pos)
		for {
			impl.AddChild(p.parseQNameRef())
			if !p.at(lexer.COMMA) {
				break
			}
			p.advance()
		}
		cls.AddOptionalChild(impl)
	} else {
		cls.AddOptionalChild(ast.NewNode(ast.KindTypeIdentifiers, pos))
	}

	p.pushState(func(s *compstate.State) { s.InClass = true })
	body := p.parseBlock()
	p.popState()
	cls.AddOptionalChild(body)
	return cls
}

// extends/implements are contextual keywords lexed as plain identifiers;
// the lexer does not reserve them since Ejscript allows them as ordinary
// names outside a class header.
const (
	lexerEXTENDS    = "extends"
	lexerIMPLEMENTS = "implements"
)

func (p *Parser) parseQNameRef() *ast.Node {
	pos := p.cur().Pos
	name := p.cur().Literal
	p.expect(lexer.IDENT)
	return ast.NewQNameNode(pos, ast.QName{Name: name})
}

func (p *Parser) parseInterfaceDefinition() *ast.Node {
	pos := p.cur().Pos
	p.expect(lexer.INTERFACE)
	name := p.cur().Literal
	p.expect(lexer.IDENT)
	iface := ast.NewInterface(pos, ast.QName{Name: name})

	extendsList := ast.NewNode(ast.KindTypeIdentifiers, pos)
	if p.at(lexer.IDENT) && p.cur().Literal == lexerEXTENDS {
		p.advance()
		for {
			extendsList.AddChild(p.parseQNameRef())
			if !p.at(lexer.COMMA) {
				break
			}
			p.advance()
		}
	}
	iface.AddOptionalChild(extendsList)

	p.pushState(func(s *compstate.State) { s.InInterface = true })
	body := p.parseBlock()
	p.popState()
	iface.AddOptionalChild(body)
	return iface
}

// parseFunctionSignatureAndBody parses `(params) [: returnType] { body }`
// and attaches params then the body Block as children of fn. Shared by
// function declarations, function expressions, and get/set accessors.
func (p *Parser) parseFunctionSignatureAndBody(fn *ast.Node) {
	p.expect(lexer.LPAREN)
	params := ast.NewNode(ast.KindArgs, p.cur().Pos)
	for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
		params.AddChild(p.parseParam())
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(lexer.RPAREN)
	fn.AddOptionalChild(params)

	if p.at(lexer.COLON) {
		p.advance()
		fn.AddOptionalChild(p.parseTypeAnnotation())
	} else {
		fn.AddOptionalChild(nil)
	}

	if p.at(lexer.LBRACE) {
		p.pushState(func(s *compstate.State) { s.InFunction = true })
		body := p.parseBlock()
		p.popState()
		fn.AddOptionalChild(body)
	} else {
		p.expect(lexer.SEMI) // native/abstract signature, no body
		fn.AddOptionalChild(nil)
	}
}

// parseParam parses one parameter: optional `...rest`, name, optional
// `: type`, optional `= default`.
func (p *Parser) parseParam() *ast.Node {
	pos := p.cur().Pos
	isRest := false
	if p.at(lexer.DOTDOTDOT) {
		isRest = true
		p.advance()
	}
	name := p.cur().Literal
	p.expect(lexer.IDENT)
	v := ast.NewVarDefinition(pos, "param", ast.QName{Name: name})
	if isRest {
		v.SetFlag(ast.FlagIsRest)
	}
	if p.at(lexer.COLON) {
		p.advance()
		v.AddOptionalChild(p.parseTypeAnnotation())
	} else {
		v.AddOptionalChild(nil)
	}
	if p.at(lexer.ASSIGN) {
		p.advance()
		v.AddOptionalChild(p.parseAssignment())
	} else {
		v.AddOptionalChild(nil)
	}
	return v
}

// parseTypeAnnotation parses a type reference used after `:` in params,
// return types, and variable declarations. Type identifiers are
// qualified-name chains (`a.b.C`) resolved against the class/module scope
// in Phase 3 (Fixup); `*` denotes the untyped wildcard.
func (p *Parser) parseTypeAnnotation() *ast.Node {
	pos := p.cur().Pos
	if p.at(lexer.STAR) {
		p.advance()
		return ast.NewQNameNode(pos, ast.QName{Name: "*"})
	}
	name := p.cur().Literal
	p.expect(lexer.IDENT)
	for p.at(lexer.DOT) {
		p.advance()
		name = name + "." + p.cur().Literal
		p.expect(lexer.IDENT)
	}
	return ast.NewQNameNode(pos, ast.QName{Name: name})
}

// parseVarDefinition parses `var|let|const name [: type] [= init] (,
// name...)`, terminated by the caller (directive-level `;`).
func (p *Parser) parseVarDefinition(varKind string) *ast.Node {
	pos := p.cur().Pos
	p.advance() // consume var/let/const
	group := ast.NewNode(ast.KindDirectives, pos)
	for {
		vpos := p.cur().Pos
		name := p.cur().Literal
		p.expect(lexer.IDENT)
		v := ast.NewVarDefinition(vpos, varKind, ast.QName{Name: name})
		if varKind == "let" {
			v.SetFlag(ast.FlagLetScope)
		}
		if p.at(lexer.COLON) {
			p.advance()
			v.AddOptionalChild(p.parseTypeAnnotation())
		} else {
			v.AddOptionalChild(nil)
		}
		if p.at(lexer.ASSIGN) {
			p.advance()
			v.AddOptionalChild(p.parseAssignment())
		} else {
			v.AddOptionalChild(nil)
		}
		group.AddChild(v)
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	return group
}

// parsePragma handles `use namespace N`, `use module "m"`, `require module
// "m"`, `use strict|standard`, `lang ecma|plus|fixed` — the compile-mode
// pragmas. `use default namespace N` is not recognized and is reported as
// an unexpected pragma.
func (p *Parser) parsePragma() *ast.Node {
	pos := p.cur().Pos
	switch p.cur().Type {
	case lexer.USE:
		p.advance()
		switch {
		case p.at(lexer.NAMESPACE):
			p.advance()
			ns := p.cur().Literal
			p.expect(lexer.IDENT)
			n := ast.NewNode(ast.KindUseNamespace, pos)
			n.Text = ns
			p.state().Namespace = ns
			return n
		case p.at(lexer.MODULE):
			p.advance()
			mod := p.cur().Value
			p.expect(lexer.STRING)
			n := ast.NewNode(ast.KindUseModule, pos)
			if s, ok := mod.(string); ok {
				n.Text = s
			}
			return n
		case p.at(lexer.STRICT):
			p.advance()
			p.state().Mode = compstate.ModeStrict
			return ast.NewNode(ast.KindPragma, pos)
		case p.at(lexer.STANDARD):
			p.advance()
			p.state().Mode = compstate.ModeStandard
			return ast.NewNode(ast.KindPragma, pos)
		default:
			p.errorf("unexpected pragma after 'use'")
			return ast.NewNode(ast.KindNop, pos)
		}
	case lexer.REQUIRE:
		p.advance()
		p.expect(lexer.MODULE)
		mod := p.cur().Value
		p.expect(lexer.STRING)
		n := ast.NewNode(ast.KindUseModule, pos)
		if s, ok := mod.(string); ok {
			n.Text = s
		}
		return n
	case lexer.LANG:
		p.advance()
		lang := p.cur().Literal
		p.advance()
		switch lang {
		case "plus":
			p.state().Lang = compstate.LangPlus
		case "fixed":
			p.state().Lang = compstate.LangFixed
		default:
			p.state().Lang = compstate.LangECMA
		}
		return ast.NewNode(ast.KindPragma, pos)
	default:
		p.errorf("unexpected pragma")
		return ast.NewNode(ast.KindNop, pos)
	}
}
