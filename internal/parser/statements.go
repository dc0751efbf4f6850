package parser

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/lexer"
)

// parseBlock parses `{ directive* }` into a Block node.
func (p *Parser) parseBlock() *ast.Node {
	pos := p.cur().Pos
	p.expect(lexer.LBRACE)
	block := ast.NewBlock(pos)
	p.pushState(func(s *compstate.State) { s.BlockNestCount++ })
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		block.AddChild(p.parseDirective())
	}
	p.popState()
	p.expect(lexer.RBRACE)
	return block
}

// parseDirective parses one top-level-or-block statement/declaration,
// running the attribute scanner first and recovering to the next boundary on error.
// A directive that failed to parse is replaced by a Nop.
func (p *Parser) parseDirective() *ast.Node {
	pos, start := p.cur().Pos, p.w.index
	p.scanAttributes()
	n := p.parseDirectiveInner()
	if p.error {
		p.synchronize()
		if p.w.index == start {
			p.advance()
		}
		return ast.NewNode(ast.KindNop, pos)
	}
	return n
}

func (p *Parser) parseDirectiveInner() *ast.Node {
	switch p.cur().Type {
	case lexer.CLASS:
		return p.applyPendingAttrs(p.parseClassDefinition())
	case lexer.INTERFACE:
		return p.applyPendingAttrs(p.parseInterfaceDefinition())
	case lexer.FUNCTION:
		return p.applyPendingAttrs(p.parseFunctionDeclaration())
	case lexer.VAR, lexer.LET, lexer.CONST:
		n := p.parseVarDefinition(p.cur().Type.String())
		p.expect(lexer.SEMI)
		return p.applyPendingAttrs(n)
	case lexer.USE, lexer.REQUIRE, lexer.LANG:
		n := p.parsePragma()
		p.expect(lexer.SEMI)
		return n
	case lexer.NAMESPACE:
		return p.parseNamespaceDefinition()
	case lexer.MODULE:
		return p.parseModuleDefinition()
	case lexer.IF:
		return p.parseIf()
	case lexer.FOR:
		return p.parseFor()
	case lexer.DO:
		return p.parseDoWhile()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.SWITCH:
		return p.parseSwitch()
	case lexer.TRY:
		return p.parseTry()
	case lexer.THROW:
		return p.parseThrow()
	case lexer.WITH:
		return p.parseWith()
	case lexer.BREAK:
		return p.parseBreakContinue(true)
	case lexer.CONTINUE:
		return p.parseBreakContinue(false)
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.HASH:
		return p.parseHashDirective()
	case lexer.SEMI:
		pos := p.cur().Pos
		p.advance()
		return ast.NewNode(ast.KindNop, pos)
	default:
		expr := p.parseExpression()
		if p.at(lexer.SEMI) {
			p.advance()
		}
		return expr
	}
}

// parseModuleDefinition parses `module Name { directives }`. The body's
// declarations land in the enclosing scope qualified by the module's
// name; the node itself is a grouping directive.
func (p *Parser) parseModuleDefinition() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	name := p.cur().Literal
	p.expect(lexer.IDENT)
	n := ast.NewNode(ast.KindModule, pos)
	n.Text = name
	n.AddChild(p.parseBlock())
	return n
}

func (p *Parser) parseNamespaceDefinition() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	name := p.cur().Literal
	p.expect(lexer.IDENT)
	p.expect(lexer.SEMI)
	n := ast.NewNode(ast.KindUseNamespace, pos)
	n.Text = name
	n.SetFlag(ast.FlagIsNamespace)
	return n
}

func (p *Parser) parseFunctionDeclaration() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	accessor := ""
	if p.at(lexer.GET) || p.at(lexer.SET) {
		accessor = p.cur().Type.String()
		p.advance()
	}
	name := p.cur().Literal
	p.expect(lexer.IDENT)
	fn := ast.NewFunction(pos, ast.QName{Name: name})
	fn.Text = accessor
	p.parseFunctionSignatureAndBody(fn)
	return fn
}

// applyPendingAttrs merges attributes accumulated by scanAttributes onto
// the just-parsed directive, then clears the pending state. A directive
// may only receive one namespace qualifier; scanAttributes reports a
// second one as an ordinary syntax error.
func (p *Parser) applyPendingAttrs(n *ast.Node) *ast.Node {
	if n == nil {
		p.pendingAttrs = 0
		p.pendingNS = nil
		return n
	}
	// A `var a, b = 1;` group arrives as a Directives node; the
	// attributes belong to every declaration in it, not the grouping
	// node itself.
	targets := []*ast.Node{n}
	if n.Kind == ast.KindDirectives {
		targets = n.Children
	}
	for _, tgt := range targets {
		if tgt == nil {
			continue
		}
		tgt.Attrs |= p.pendingAttrs
		tgt.Namespaces = append(tgt.Namespaces, p.pendingNS...)
	}
	p.pendingAttrs = 0
	p.pendingNS = nil
	return n
}

// parseIf parses `if (cond) then [else else]`.
func (p *Parser) parseIf() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	p.expect(lexer.LPAREN)
	cond := p.parseExpression()
	p.expect(lexer.RPAREN)
	then := p.parseDirective()
	var els *ast.Node
	if p.at(lexer.ELSE) {
		p.advance()
		els = p.parseDirective()
	}
	return ast.NewIf(pos, cond, then, els)
}

// parseFor parses the canonical `for (init; cond; perLoop) body` and the
// `for (x in/each in rhs) body` forms, dispatching to parseForIn once a
// bare `in`/`each` is seen in the header.
func (p *Parser) parseFor() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	isEach := false
	if p.at(lexer.EACH) {
		isEach = true
		p.advance()
	}
	p.expect(lexer.LPAREN)

	var init *ast.Node
	switch p.cur().Type {
	case lexer.VAR, lexer.LET, lexer.CONST:
		kind := p.cur().Type.String()
		p.advance()
		vpos := p.cur().Pos
		name := p.cur().Literal
		p.expect(lexer.IDENT)
		v := ast.NewVarDefinition(vpos, kind, ast.QName{Name: name})
		if p.at(lexer.COLON) {
			p.advance()
			v.AddOptionalChild(p.parseTypeAnnotation())
		} else {
			v.AddOptionalChild(nil)
		}
		if p.at(lexer.IN) {
			v.AddOptionalChild(nil)
			return p.finishForIn(pos, v, isEach)
		}
		if p.at(lexer.ASSIGN) {
			p.advance()
			v.AddOptionalChild(p.parseAssignment())
		} else {
			v.AddOptionalChild(nil)
		}
		init = v
		for p.at(lexer.COMMA) {
			p.advance()
			p.parseVarDefinition(kind) // additional decls, discarded grouping
		}
	case lexer.SEMI:
		init = nil
	default:
		p.pushState(func(s *compstate.State) { s.Noin = true })
		expr := p.parseExpression()
		p.popState()
		if p.at(lexer.IN) {
			return p.finishForIn(pos, expr, isEach)
		}
		init = expr
	}

	p.expect(lexer.SEMI)
	var cond *ast.Node
	if !p.at(lexer.SEMI) {
		cond = p.parseExpression()
	}
	p.expect(lexer.SEMI)
	var perLoop *ast.Node
	if !p.at(lexer.RPAREN) {
		perLoop = p.parseExpression()
	}
	p.expect(lexer.RPAREN)
	body := p.parseDirective()
	return ast.NewFor(pos, init, cond, perLoop, body)
}

func (p *Parser) finishForIn(pos ast.Pos, target *ast.Node, isEach bool) *ast.Node {
	p.expect(lexer.IN)
	rhs := p.parseExpression()
	p.expect(lexer.RPAREN)
	body := p.parseDirective()
	return ast.NewForIn(pos, target, rhs, body, isEach)
}

// parseWhile rewrites `while (cond) body` into the canonical for-shape
// `for (; cond; ) body` with a nil init/perLoop.
func (p *Parser) parseWhile() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	p.expect(lexer.LPAREN)
	cond := p.parseExpression()
	p.expect(lexer.RPAREN)
	body := p.parseDirective()
	return ast.NewFor(pos, nil, cond, nil, body)
}

// parseDoWhile rewrites `do body while (cond);` into a for-shape node
// tagged Text="do" so CodeGen knows to test the condition after the
// first iteration rather than before it.
func (p *Parser) parseDoWhile() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	body := p.parseDirective()
	p.expect(lexer.WHILE)
	p.expect(lexer.LPAREN)
	cond := p.parseExpression()
	p.expect(lexer.RPAREN)
	if p.at(lexer.SEMI) {
		p.advance()
	}
	n := ast.NewFor(pos, nil, cond, nil, body)
	n.Text = "do"
	return n
}

func (p *Parser) parseSwitch() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	p.expect(lexer.LPAREN)
	disc := p.parseExpression()
	p.expect(lexer.RPAREN)
	p.expect(lexer.LBRACE)
	cases := ast.NewNode(ast.KindCaseElements, p.cur().Pos)
	p.pushState(func(s *compstate.State) { s.BlockNestCount++ })
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		cases.AddChild(p.parseCaseLabel())
	}
	p.popState()
	p.expect(lexer.RBRACE)
	return ast.NewSwitch(pos, disc, cases)
}

func (p *Parser) parseCaseLabel() *ast.Node {
	pos := p.cur().Pos
	label := ast.NewNode(ast.KindCaseLabel, pos)
	if p.at(lexer.DEFAULT) {
		p.advance()
		label.AddOptionalChild(nil)
	} else {
		p.expect(lexer.CASE)
		label.AddChild(p.parseExpression())
	}
	p.expect(lexer.COLON)
	body := ast.NewNode(ast.KindDirectives, p.cur().Pos)
	for !p.at(lexer.CASE) && !p.at(lexer.DEFAULT) && !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		body.AddChild(p.parseDirective())
	}
	label.AddChild(body)
	return label
}

func (p *Parser) parseTry() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	tryBlock := p.parseBlock()

	var catches *ast.Node
	if p.at(lexer.CATCH) {
		catches = ast.NewNode(ast.KindCatchClauses, p.cur().Pos)
		for p.at(lexer.CATCH) {
			catches.AddChild(p.parseCatchClause())
		}
	}

	var finallyBlock *ast.Node
	if p.at(lexer.FINALLY) {
		p.advance()
		finallyBlock = p.parseBlock()
	}

	p.pushState(func(s *compstate.State) { s.CaptureBreak = true })
	p.popState()
	return ast.NewTry(pos, tryBlock, catches, finallyBlock)
}

func (p *Parser) parseCatchClause() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	p.expect(lexer.LPAREN)
	argPos := p.cur().Pos
	name := p.cur().Literal
	p.expect(lexer.IDENT)
	arg := ast.NewNode(ast.KindCatchArg, argPos)
	arg.QName = ast.QName{Name: name}
	if p.at(lexer.COLON) {
		p.advance()
		arg.AddChild(p.parseTypeAnnotation())
	}
	p.expect(lexer.RPAREN)
	body := p.parseBlock()
	return ast.NewCatch(pos, arg, body)
}

func (p *Parser) parseThrow() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	value := p.parseExpression()
	if p.at(lexer.SEMI) {
		p.advance()
	}
	n := ast.NewNode(ast.KindThrow, pos)
	n.AddChild(value)
	return n
}

func (p *Parser) parseWith() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	p.expect(lexer.LPAREN)
	obj := p.parseExpression()
	p.expect(lexer.RPAREN)
	body := p.parseDirective()
	n := ast.NewNode(ast.KindWith, pos)
	n.SetChildren([]*ast.Node{obj, body})
	return n
}

// parseBreakContinue accepts a label only if it appears on the same
// source line as break/continue.
func (p *Parser) parseBreakContinue(isBreak bool) *ast.Node {
	pos := p.cur().Pos
	p.advance()
	label := ""
	if p.at(lexer.IDENT) && p.cur().Pos.Line == pos.Line {
		label = p.cur().Literal
		p.advance()
	}
	if p.at(lexer.SEMI) {
		p.advance()
	}
	return ast.NewBreakContinue(pos, isBreak, label)
}

// parseHashDirective parses `#expr { body }`: a conditional-compilation
// gate guarding a block. The AstProcessor's Phase 2
// evaluates expr by running it through the full pipeline on an ephemeral
// module and disables body if the result is falsy.
func (p *Parser) parseHashDirective() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	p.pushState(func(s *compstate.State) { s.InHashExpression = true })
	expr := p.parseAssignment()
	p.popState()
	body := p.parseBlock()
	n := ast.NewNode(ast.KindHash, pos)
	n.SetChildren([]*ast.Node{expr, body})
	return n
}

func (p *Parser) parseReturn() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	var value *ast.Node
	if !p.at(lexer.SEMI) && !p.at(lexer.RBRACE) && p.cur().Pos.Line == pos.Line {
		value = p.parseExpression()
	}
	if p.at(lexer.SEMI) {
		p.advance()
	}
	return ast.NewReturn(pos, value)
}
