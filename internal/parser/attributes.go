package parser

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/lexer"
)

var attrTokens = map[lexer.TokenType]ast.Attrs{
	lexer.PUBLIC:     ast.AttrPublic,
	lexer.PRIVATE:    ast.AttrPrivate,
	lexer.PROTECTED:  ast.AttrProtected,
	lexer.INTERNAL:   ast.AttrInternal,
	lexer.INTRINSIC:  ast.AttrIntrinsic,
	lexer.STATIC:     ast.AttrStatic,
	lexer.FINAL:      ast.AttrFinal,
	lexer.NATIVE:     ast.AttrNative,
	lexer.OVERRIDE:   ast.AttrOverride,
	lexer.ENUMERABLE: ast.AttrEnumerable,
	lexer.DYNAMIC:    ast.AttrDynamic,
}

// directiveStart is the follow set a bounded attribute scan must land on
// to commit its lookahead.
func directiveStart(tt lexer.TokenType) bool {
	switch tt {
	case lexer.CLASS, lexer.FUNCTION, lexer.VAR, lexer.LET, lexer.CONST,
		lexer.NAMESPACE, lexer.INTERFACE:
		return true
	default:
		return false
	}
}

// scanAttributes consumes a run of declaration attributes (visibility,
// static/final/native/override/enumerable/dynamic, and namespace
// identifiers) ahead of a directive, using bounded lookahead to confirm
// the run is actually followed by an annotatable directive before
// committing. On a non-match it
// leaves the cursor untouched.
func (p *Parser) scanAttributes() {
	mark := p.w.mark()
	var attrs ast.Attrs
	var namespaces []string
	sawNamespace := false

	for i := 0; i < LookAhead; i++ {
		tok := p.cur()
		if bit, ok := attrTokens[tok.Type]; ok {
			attrs |= bit
			p.advance()
			continue
		}
		if tok.Type == lexer.IDENT && lexer.IsReservedNamespace(tok.Literal) && p.peekAt1IsAttrContinuation() {
			namespaces = append(namespaces, tok.Literal)
			p.advance()
			continue
		}
		if tok.Type == lexer.IDENT && p.looksLikeNamespaceQualifier() {
			if sawNamespace {
				p.errorf("directive cannot carry more than one namespace qualifier")
			}
			sawNamespace = true
			namespaces = append(namespaces, tok.Literal)
			p.advance()
			continue
		}
		break
	}

	if attrs == 0 && len(namespaces) == 0 {
		p.w.reset(mark)
		return
	}
	if !directiveStart(p.cur().Type) {
		// The run wasn't actually attributes on a directive (e.g. a bare
		// expression statement starting with an identifier that happens to
		// be a reserved-namespace word); back out entirely.
		p.w.reset(mark)
		return
	}

	p.pendingAttrs |= attrs
	p.pendingNS = append(p.pendingNS, namespaces...)
}

// peekAt1IsAttrContinuation reports whether the token after a reserved
// namespace word continues an attribute run or reaches a directive start,
// distinguishing `public class C {}` from a bare identifier named
// "public" used as a value in expression position.
func (p *Parser) peekAt1IsAttrContinuation() bool {
	nxt := p.peek(1).Type
	if _, ok := attrTokens[nxt]; ok {
		return true
	}
	if nxt == lexer.IDENT || directiveStart(nxt) {
		return true
	}
	return false
}

// looksLikeNamespaceQualifier reports whether the current bare identifier
// is being used as a namespace qualifier ahead of a directive, i.e. it is
// immediately followed by another identifier or a directive-start
// keyword rather than an operator or terminator.
func (p *Parser) looksLikeNamespaceQualifier() bool {
	nxt := p.peek(1).Type
	return nxt == lexer.IDENT || directiveStart(nxt)
}
