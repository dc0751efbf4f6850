package parser

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/lexer"
)

// Source is one input file handed to Parse.
type Source struct {
	File string
	Text string
}

// Result is the per-file outcome of parsing: its Program node (nil if
// parsing failed outright) and any accumulated syntax errors.
type Result struct {
	File    string
	Program *ast.Node
	Errors  []ParserError
}

// Parse parses every source independently, each with its own Parser and
// compile-state stack so one file's syntax errors never contaminate
// another's.
func Parse(sources []Source, opts Options) []Result {
	results := make([]Result, len(sources))
	for i, src := range sources {
		p := New(src.File, src.Text, opts)
		results[i] = Result{
			File:    src.File,
			Program: p.ParseProgram(),
			Errors:  p.Errors(),
		}
	}
	return results
}

// ParseProgram parses one file's top-level directive sequence into a
// Program node. Top-level directives are the same grammar as block
// directives; there is no separate top-level statement production.
func (p *Parser) ParseProgram() *ast.Node {
	pos := p.cur().Pos
	prog := ast.NewProgram(pos)
	for !p.at(lexer.EOF) {
		prog.AddChild(p.parseDirective())
	}
	return prog
}
