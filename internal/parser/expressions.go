package parser

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/lexer"
)

// parseExpression parses a full assignment-level expression. Comma
// sequences are only legal in specific contexts (for-header, call args)
// and are handled by those callers, not here.
func (p *Parser) parseExpression() *ast.Node {
	return p.parseAssignment()
}

var assignOps = map[lexer.TokenType]string{
	lexer.ASSIGN:         "=",
	lexer.PLUS_ASSIGN:    "+",
	lexer.MINUS_ASSIGN:   "-",
	lexer.STAR_ASSIGN:    "*",
	lexer.SLASH_ASSIGN:   "/",
	lexer.PERCENT_ASSIGN: "%",
	lexer.AND_ASSIGN:     "&",
	lexer.OR_ASSIGN:      "|",
	lexer.XOR_ASSIGN:     "^",
	lexer.SHL_ASSIGN:     "<<",
	lexer.SHR_ASSIGN:     ">>",
}

// parseAssignment handles `=` and the compound forms. A compound
// assignment `a OP= b` is rewritten here into `a = a OP b`, sharing the
// already-built LHS Node between the AssignOp target slot and the
// BinaryOp's left operand rather than re-parsing or cloning it.
func (p *Parser) parseAssignment() *ast.Node {
	left := p.parseConditional()

	op, isAssign := assignOps[p.cur().Type]
	if !isAssign {
		return left
	}
	pos := p.cur().Pos
	p.advance()

	p.pushState(func(s *compstate.State) { s.OnLeft = false })
	value := p.parseAssignment()
	p.popState()

	if op == "=" {
		return ast.NewAssignOp(pos, "=", left, value)
	}
	rhs := ast.NewBinaryOp(pos, op, left, value)
	return ast.NewAssignOp(pos, "=", left, rhs)
}

func (p *Parser) parseConditional() *ast.Node {
	cond := p.parseLogicalOr()
	if !p.at(lexer.QUESTION) {
		return cond
	}
	pos := p.cur().Pos
	p.advance()
	then := p.parseAssignment()
	p.expect(lexer.COLON)
	els := p.parseAssignment()
	n := ast.NewNode(ast.KindIf, pos)
	n.Op = "?:"
	n.SetChildren([]*ast.Node{cond, then, els})
	return n
}

func (p *Parser) parseLogicalOr() *ast.Node {
	left := p.parseLogicalAnd()
	for p.at(lexer.OR_OR) {
		pos := p.cur().Pos
		p.advance()
		right := p.parseLogicalAnd()
		left = ast.NewBinaryOp(pos, "||", left, right)
	}
	return left
}

func (p *Parser) parseLogicalAnd() *ast.Node {
	left := p.parseBitOr()
	for p.at(lexer.AND_AND) {
		pos := p.cur().Pos
		p.advance()
		right := p.parseBitOr()
		left = ast.NewBinaryOp(pos, "&&", left, right)
	}
	return left
}

func (p *Parser) parseBitOr() *ast.Node {
	left := p.parseBitXor()
	for p.at(lexer.PIPE) {
		pos := p.cur().Pos
		p.advance()
		right := p.parseBitXor()
		left = ast.NewBinaryOp(pos, "|", left, right)
	}
	return left
}

func (p *Parser) parseBitXor() *ast.Node {
	left := p.parseBitAnd()
	for p.at(lexer.CARET) {
		pos := p.cur().Pos
		p.advance()
		right := p.parseBitAnd()
		left = ast.NewBinaryOp(pos, "^", left, right)
	}
	return left
}

func (p *Parser) parseBitAnd() *ast.Node {
	left := p.parseEquality()
	for p.at(lexer.AMP) {
		pos := p.cur().Pos
		p.advance()
		right := p.parseEquality()
		left = ast.NewBinaryOp(pos, "&", left, right)
	}
	return left
}

var equalityOps = map[lexer.TokenType]string{
	lexer.EQ: "==", lexer.NOT_EQ: "!=",
	lexer.STRICT_EQ: "===", lexer.STRICT_NOT_EQ: "!==",
}

func (p *Parser) parseEquality() *ast.Node {
	left := p.parseRelational()
	for {
		op, ok := equalityOps[p.cur().Type]
		if !ok {
			return left
		}
		pos := p.cur().Pos
		p.advance()
		right := p.parseRelational()
		left = ast.NewBinaryOp(pos, op, left, right)
	}
}

// parseRelational handles <, >, <=, >=, instanceof, is, like, and `in` —
// the last suppressed inside a for-header via State.Noin.
func (p *Parser) parseRelational() *ast.Node {
	left := p.parseShift()
	for {
		switch p.cur().Type {
		case lexer.LT, lexer.GT, lexer.LE, lexer.GE:
			op := p.cur().Type.String()
			pos := p.cur().Pos
			p.advance()
			right := p.parseShift()
			left = ast.NewBinaryOp(pos, op, left, right)
		case lexer.INSTANCEOF:
			pos := p.cur().Pos
			p.advance()
			right := p.parseShift()
			left = ast.NewBinaryOp(pos, "instanceof", left, right)
		case lexer.IS:
			pos := p.cur().Pos
			p.advance()
			right := p.parseShift()
			left = ast.NewBinaryOp(pos, "is", left, right)
		case lexer.LIKE:
			pos := p.cur().Pos
			p.advance()
			right := p.parseShift()
			left = ast.NewBinaryOp(pos, "like", left, right)
		case lexer.IN:
			if p.state().Noin {
				return left
			}
			pos := p.cur().Pos
			p.advance()
			right := p.parseShift()
			left = ast.NewBinaryOp(pos, "in", left, right)
		default:
			return left
		}
	}
}

var shiftOps = map[lexer.TokenType]string{
	lexer.SHL: "<<", lexer.SHR: ">>", lexer.USHR: ">>>",
}

func (p *Parser) parseShift() *ast.Node {
	left := p.parseAdditive()
	for {
		op, ok := shiftOps[p.cur().Type]
		if !ok {
			return left
		}
		pos := p.cur().Pos
		p.advance()
		right := p.parseAdditive()
		left = ast.NewBinaryOp(pos, op, left, right)
	}
}

func (p *Parser) parseAdditive() *ast.Node {
	left := p.parseMultiplicative()
	for p.at(lexer.PLUS) || p.at(lexer.MINUS) {
		op := "+"
		if p.at(lexer.MINUS) {
			op = "-"
		}
		pos := p.cur().Pos
		p.advance()
		right := p.parseMultiplicative()
		left = ast.NewBinaryOp(pos, op, left, right)
	}
	return left
}

var mulOps = map[lexer.TokenType]string{
	lexer.STAR: "*", lexer.SLASH: "/", lexer.PERCENT: "%",
}

func (p *Parser) parseMultiplicative() *ast.Node {
	left := p.parseUnary()
	for {
		op, ok := mulOps[p.cur().Type]
		if !ok {
			return left
		}
		pos := p.cur().Pos
		p.advance()
		right := p.parseUnary()
		left = ast.NewBinaryOp(pos, op, left, right)
	}
}

func (p *Parser) parseUnary() *ast.Node {
	switch p.cur().Type {
	case lexer.PLUS, lexer.MINUS, lexer.BANG, lexer.TILDE, lexer.TYPEOF, lexer.DELETE, lexer.VOID:
		op := p.cur().Type.String()
		pos := p.cur().Pos
		p.advance()
		operand := p.parseUnary()
		if op == "void" {
			n := ast.NewNode(ast.KindVoid, pos)
			n.AddChild(operand)
			return n
		}
		return ast.NewUnaryOp(pos, op, operand)
	case lexer.INC, lexer.DEC:
		op := p.cur().Type.String()
		pos := p.cur().Pos
		p.advance()
		operand := p.parseUnary()
		return ast.NewUnaryOp(pos, op, operand)
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() *ast.Node {
	operand := p.parseLeftHandSide()
	if p.at(lexer.INC) || p.at(lexer.DEC) {
		op := p.cur().Type.String()
		pos := p.cur().Pos
		p.advance()
		return ast.NewPostfixOp(pos, op, operand)
	}
	return operand
}

// parseLeftHandSide chains new/call/member-access productions: `new
// Foo()`, `a.b`, `a["b"]`, `a::b`, `a(b, c)` — left-associative, applied
// in a single loop over the trailing operators.
func (p *Parser) parseLeftHandSide() *ast.Node {
	var base *ast.Node
	if p.at(lexer.NEW) {
		pos := p.cur().Pos
		p.advance()
		callee := p.parseLeftHandSideNoCall()
		args := p.parseArgsOpt()
		n := ast.NewNode(ast.KindNew, pos)
		n.SetChildren([]*ast.Node{callee, args})
		base = n
	} else {
		base = p.parsePrimary()
	}
	return p.parseCallTail(base)
}

// parseLeftHandSideNoCall parses the callee of `new` without consuming a
// trailing call's argument list, which belongs to `new` itself.
func (p *Parser) parseLeftHandSideNoCall() *ast.Node {
	base := p.parsePrimary()
	for {
		switch p.cur().Type {
		case lexer.DOT:
			base = p.parseDot(base)
		case lexer.LBRACK:
			base = p.parseIndex(base)
		default:
			return base
		}
	}
}

func (p *Parser) parseCallTail(base *ast.Node) *ast.Node {
	for {
		switch p.cur().Type {
		case lexer.DOT:
			base = p.parseDot(base)
		case lexer.COLONCOLON:
			base = p.parseQualify(base)
		case lexer.LBRACK:
			base = p.parseIndex(base)
		case lexer.LPAREN:
			args := p.parseArgsOpt()
			base = ast.NewCall(base.Pos, base, args)
		default:
			return base
		}
	}
}

func (p *Parser) parseDot(base *ast.Node) *ast.Node {
	pos := p.cur().Pos
	p.advance()
	member := p.parsePropertyName()
	return ast.NewDot(pos, base, member)
}

// parseQualify handles `ns::name` as a member access: it produces a Dot
// node whose object is ns and whose member is a plain QName for name (the
// QName itself carries no namespace qualifier).
func (p *Parser) parseQualify(base *ast.Node) *ast.Node {
	pos := p.cur().Pos
	p.advance()
	name := p.cur().Literal
	p.advance()
	member := ast.NewQNameNode(pos, ast.QName{Name: name})
	return ast.NewDot(pos, base, member)
}

func (p *Parser) parseIndex(base *ast.Node) *ast.Node {
	pos := p.cur().Pos
	p.advance()
	index := p.parseExpression()
	p.expect(lexer.RBRACK)
	n := ast.NewNode(ast.KindDot, pos)
	n.Op = "[]"
	n.SetChildren([]*ast.Node{base, index})
	return n
}

func (p *Parser) parsePropertyName() *ast.Node {
	pos := p.cur().Pos
	name := p.cur().Literal
	p.advance()
	return ast.NewQNameNode(pos, ast.QName{Name: name})
}

// parseArgsOpt parses a parenthesized, comma-separated argument list into
// an Args node. If no '(' follows, returns an empty Args node (the `new
// Foo` shorthand).
func (p *Parser) parseArgsOpt() *ast.Node {
	pos := p.cur().Pos
	args := ast.NewNode(ast.KindArgs, pos)
	if !p.at(lexer.LPAREN) {
		return args
	}
	p.advance()
	for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
		args.AddChild(p.parseAssignment())
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(lexer.RPAREN)
	return args
}

func (p *Parser) parsePrimary() *ast.Node {
	tok := p.cur()
	switch tok.Type {
	case lexer.NUMBER, lexer.STRING:
		p.advance()
		return ast.NewLiteral(tok.Pos, tok.Value)
	case lexer.NULL:
		p.advance()
		return ast.NewLiteral(tok.Pos, nil)
	case lexer.TRUE:
		p.advance()
		return ast.NewLiteral(tok.Pos, true)
	case lexer.FALSE:
		p.advance()
		return ast.NewLiteral(tok.Pos, false)
	case lexer.UNDEFINED:
		p.advance()
		return ast.NewLiteral(tok.Pos, ast.Undefined)
	case lexer.THIS:
		p.advance()
		return ast.NewNode(ast.KindThis, tok.Pos)
	case lexer.SUPER:
		p.advance()
		return ast.NewNode(ast.KindSuper, tok.Pos)
	case lexer.SLASH:
		return p.parseRegexLiteral()
	case lexer.LT:
		return p.parseXMLLiteral()
	case lexer.IDENT:
		p.advance()
		return ast.NewQNameNode(tok.Pos, ast.QName{Name: tok.Literal})
	case lexer.LPAREN:
		p.advance()
		expr := p.parseExpression()
		p.expect(lexer.RPAREN)
		return expr
	case lexer.LBRACK:
		return p.parseArrayLiteral()
	case lexer.LBRACE:
		return p.parseObjectLiteral()
	case lexer.FUNCTION:
		return p.parseFunctionExpression()
	default:
		p.errorf("unexpected token %q in expression", tok.Literal)
		p.advance()
		return ast.NewNode(ast.KindNop, tok.Pos)
	}
}

func (p *Parser) parseRegexLiteral() *ast.Node {
	tok := p.w.lex.NextRegexToken()
	p.w.replaceCurrent(tok)
	pos := tok.Pos
	p.advance()
	return ast.NewLiteral(pos, tok.Literal)
}

// parseXMLLiteral re-lexes an E4X literal starting at the `<` the parser
// is now looking at, the same way the regex/division ambiguity is
// resolved by re-lexing. If no XML literal is found, it reports an
// "expected expression" error and returns a Nop.
func (p *Parser) parseXMLLiteral() *ast.Node {
	tok := p.w.lex.NextXMLToken()
	if tok.Type != lexer.XMLLIT {
		pos := p.cur().Pos
		p.errorf("expected expression, found %q", p.cur().Literal)
		p.advance()
		return ast.NewNode(ast.KindNop, pos)
	}
	p.w.replaceCurrent(tok)
	pos := tok.Pos
	p.advance()
	return ast.NewLiteral(pos, tok.Literal)
}

func (p *Parser) parseArrayLiteral() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	n := ast.NewNode(ast.KindArrayLiteral, pos)
	for !p.at(lexer.RBRACK) && !p.at(lexer.EOF) {
		if p.at(lexer.COMMA) {
			n.AddChild(ast.NewNode(ast.KindNop, p.cur().Pos))
			p.advance()
			continue
		}
		n.AddChild(p.parseAssignment())
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	p.expect(lexer.RBRACK)
	return n
}

func (p *Parser) parseObjectLiteral() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	n := ast.NewNode(ast.KindObjectLiteral, pos)
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		keyPos := p.cur().Pos
		key := p.cur().Literal
		p.advance()
		p.expect(lexer.COLON)
		value := p.parseAssignment()
		field := ast.NewNode(ast.KindField, keyPos)
		field.Text = key
		field.AddChild(value)
		n.AddChild(field)
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	p.expect(lexer.RBRACE)
	return n
}

func (p *Parser) parseFunctionExpression() *ast.Node {
	pos := p.cur().Pos
	p.advance()
	name := ast.QName{}
	if p.at(lexer.IDENT) {
		name.Name = p.cur().Literal
		p.advance()
	}
	fn := ast.NewFunction(pos, name)
	p.parseFunctionSignatureAndBody(fn)
	return fn
}
