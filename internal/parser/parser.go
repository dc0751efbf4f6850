// Package parser implements the recursive-descent Ejscript parser: a
// state-stack-driven production set with bounded token lookahead,
// attribute scanning, and statement-boundary error recovery.
package parser

import (
	"fmt"

	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/lexer"
)

// ParserError is one recoverable syntax error.
type ParserError struct {
	Pos     ast.Pos
	Message string
}

// Options configures dialect-level parsing behavior.
type Options struct {
	Mode compstate.Mode
	Lang compstate.Lang
}

// Parser holds one source file's parse session: its token window, compile
// state stack, and accumulated errors. A fresh Parser is created per file;
// Parse(sources) in driver.go fans this out across all input files.
type Parser struct {
	file string
	w    *window
	st   compstate.Stack

	errors []ParserError
	error  bool // sticky until synchronize() clears it

	// pendingAttrs accumulates attributes recognized ahead of the next
	// annotatable directive.
	pendingAttrs ast.Attrs
	pendingNS    []string
}

// New creates a Parser over src, tagged with file for diagnostics.
func New(file, src string, opts Options) *Parser {
	p := &Parser{file: file, w: newWindow(lexer.New(file, src))}
	p.st.Push(func(s *compstate.State) {
		s.Mode = opts.Mode
		s.Lang = opts.Lang
	})
	return p
}

// Errors returns all syntax errors accumulated for this file.
func (p *Parser) Errors() []ParserError { return p.errors }

// state returns the current top-of-stack compile state.
func (p *Parser) state() *compstate.State { return p.st.Top() }

// pushState enters a grammar production, inheriting the caller's state
// and applying mutate; the caller pops the frame with popState. Only the
// productions that change a state field push a frame (blocks, class,
// interface and function bodies, assignment targets, for-headers, switch
// bodies, try statements, hash directives); every other production runs
// under its caller's frame.
func (p *Parser) pushState(mutate func(*compstate.State)) {
	p.st.Push(mutate)
}

func (p *Parser) popState() { p.st.Pop() }

func (p *Parser) cur() lexer.Token       { return p.w.Current() }
func (p *Parser) peek(n int) lexer.Token { return p.w.Peek(n) }
func (p *Parser) advance()               { p.w.Advance() }

func (p *Parser) at(tt lexer.TokenType) bool     { return p.cur().Type == tt }
func (p *Parser) peekAt(tt lexer.TokenType) bool { return p.peek(1).Type == tt }

// expect advances past tt if Current matches, else reports a syntax error
// and returns false without advancing.
func (p *Parser) expect(tt lexer.TokenType) bool {
	if p.at(tt) {
		p.advance()
		return true
	}
	p.errorf("expected %s, found %q", tt, p.cur().Literal)
	return false
}

// errorf records a recoverable syntax error at the current token's
// position.
func (p *Parser) errorf(format string, args ...any) {
	p.error = true
	p.errors = append(p.errors, ParserError{
		Pos:     p.cur().Pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// synchronize advances to the next statement/directive boundary — past
// `;`, `}`, `]` or `)`, or up to a token that starts a new source line,
// or EOF — and clears the sticky error flag so subsequent diagnostics can
// still be collected. This is the parser's sole recovery mechanism;
// parseDirective replaces the malformed directive with a Nop, so a
// partial subtree is never committed.
func (p *Parser) synchronize() {
	for !p.at(lexer.EOF) {
		if p.w.index > 0 && p.cur().Pos.Line > p.w.tokens[p.w.index-1].Pos.Line {
			break
		}
		switch p.cur().Type {
		case lexer.SEMI:
			p.advance()
			p.error = false
			return
		case lexer.RBRACE, lexer.RBRACK, lexer.RPAREN:
			p.advance()
			p.error = false
			return
		}
		p.advance()
	}
	p.error = false
}
