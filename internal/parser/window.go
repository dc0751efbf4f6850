package parser

import "github.com/ejscript/ejsc/internal/lexer"

// LookAhead is the guaranteed lookahead depth the grammar's attribute
// and for-header disambiguation relies on.
const LookAhead = 8

// window buffers tokens from the lexer and exposes Peek(n)/Advance/PutBack
// without ever mutating "current" on a peek. Backed by a growable
// slice rather than a literal linked list — PutBack is simulated by moving
// the cursor index back by one, which gives the same "one-step backup"
// contract of a singly-linked putback stack.
type window struct {
	lex    *lexer.Lexer
	tokens []lexer.Token
	index  int
}

func newWindow(lex *lexer.Lexer) *window {
	w := &window{lex: lex}
	w.tokens = append(w.tokens, lex.NextToken())
	return w
}

// Current returns the token at the cursor without advancing.
func (w *window) Current() lexer.Token { return w.tokens[w.index] }

// Peek returns the token n positions ahead of Current (Peek(0) ==
// Current()). Buffers additional tokens from the lexer as needed; once
// the lexer has produced EOF, asking past it returns that EOF token.
func (w *window) Peek(n int) lexer.Token {
	target := w.index + n
	for target >= len(w.tokens) {
		last := w.tokens[len(w.tokens)-1]
		if last.Type == lexer.EOF {
			return last
		}
		w.tokens = append(w.tokens, w.lex.NextToken())
	}
	return w.tokens[target]
}

// Advance moves the cursor forward one token, buffering from the lexer if
// necessary.
func (w *window) Advance() {
	if w.index+1 >= len(w.tokens) {
		w.Peek(1)
	}
	if w.index+1 < len(w.tokens) {
		w.index++
	}
}

// PutBack backs the cursor up by one token (the "one-step backup" putback
// stack). The parser does not call it: regex/XML re-lexing replaces the
// buffered '/' or '<' token in place via replaceCurrent.
func (w *window) PutBack() {
	if w.index > 0 {
		w.index--
	}
}

// mark/reset give the attribute scanner (and other >1-token lookahead
// decisions) a cheap way to try then undo a sequence of Advance calls.
func (w *window) mark() int      { return w.index }
func (w *window) reset(mark int) { w.index = mark }

// replaceCurrent substitutes the token at the cursor — used when the
// lexer is asked to re-lex the current position as a REGEXP or XMLLIT
// token after the parser decided the initial guess was wrong.
func (w *window) replaceCurrent(tok lexer.Token) {
	w.tokens = w.tokens[:w.index+1]
	w.tokens[w.index] = tok
}
