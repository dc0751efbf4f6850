package parser

import (
	"testing"

	"github.com/ejscript/ejsc/internal/ast"
	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) (*ast.Node, []ParserError) {
	t.Helper()
	p := New("test.ejs", src, Options{})
	return p.ParseProgram(), p.Errors()
}

func mustParse(t *testing.T, src string) *ast.Node {
	t.Helper()
	prog, errs := parseOne(t, src)
	require.Empty(t, errs)
	return prog
}

func TestProgramShape(t *testing.T) {
	prog := mustParse(t, "var x = 1; function f(a) { return a; } class C { }")
	snaps.MatchSnapshot(t, ast.Dump(prog))
}

func TestWellFormedTree(t *testing.T) {
	prog := mustParse(t, `
class Shape { var n; function area() { return n * 2; } }
for (i = 0; i < 3; i++) { if (i) f(i); else g(); }
try { h(); } catch (e) { } finally { k(); }
`)
	ast.Walk(prog, func(n *ast.Node) bool {
		for _, c := range n.Children {
			if c != nil {
				require.Same(t, n, c.Parent, "child's Parent points back at its node")
			}
		}
		if len(n.Children) > 0 {
			require.True(t, n.Left == n.Children[0], "Left aliases Children[0]")
		} else {
			require.Nil(t, n.Left)
		}
		if len(n.Children) > 1 {
			require.True(t, n.Right == n.Children[1], "Right aliases Children[1]")
		}
		return true
	})
}

func TestCompoundAssignmentSharesLHS(t *testing.T) {
	prog := mustParse(t, "a += b;")
	assign := prog.Children[0]
	require.Equal(t, ast.KindAssignOp, assign.Kind)
	target := assign.Children[0]
	rhs := assign.Children[1]
	require.Equal(t, ast.KindBinaryOp, rhs.Kind)
	require.Equal(t, "+", rhs.Op)
	require.Same(t, target, rhs.Children[0],
		"the LHS subtree is shared, not duplicated")
}

func TestWhileRewritesToFor(t *testing.T) {
	prog := mustParse(t, "while (x) f();")
	loop := prog.Children[0]
	require.Equal(t, ast.KindFor, loop.Kind)
	require.Nil(t, loop.Children[0], "no init")
	require.NotNil(t, loop.Children[1], "cond")
	require.Nil(t, loop.Children[2], "no per-loop")
	require.Empty(t, loop.Text)
}

func TestDoWhileRewritesToForWithDoTag(t *testing.T) {
	prog := mustParse(t, "do f(); while (x);")
	loop := prog.Children[0]
	require.Equal(t, ast.KindFor, loop.Kind)
	require.Equal(t, "do", loop.Text)
}

func TestForInForms(t *testing.T) {
	prog := mustParse(t, "for (k in o) f(k);")
	require.Equal(t, ast.KindForIn, prog.Children[0].Kind)
	require.Empty(t, prog.Children[0].Text)

	prog = mustParse(t, "for each (var v in o) f(v);")
	loop := prog.Children[0]
	require.Equal(t, ast.KindForIn, loop.Kind)
	require.Equal(t, "each", loop.Text)
	require.Equal(t, ast.KindVarDefinition, loop.Children[0].Kind)
}

func TestTernary(t *testing.T) {
	prog := mustParse(t, "x = a ? 1: 2;")
	cond := prog.Children[0].Children[1]
	require.Equal(t, ast.KindIf, cond.Kind)
	require.Equal(t, "?:", cond.Op)
	require.Len(t, cond.Children, 3)
}

func TestPrecedence(t *testing.T) {
	prog := mustParse(t, "r = 1 + 2 * 3;")
	add := prog.Children[0].Children[1]
	require.Equal(t, "+", add.Op)
	require.Equal(t, "*", add.Children[1].Op, "* binds tighter than +")

	prog = mustParse(t, "r = a || b && c;")
	or := prog.Children[0].Children[1]
	require.Equal(t, "||", or.Op)
	require.Equal(t, "&&", or.Children[1].Op, "&& binds tighter than ||")
}

func TestClassHeader(t *testing.T) {
	prog := mustParse(t, "class Dog extends Animal implements Pet, Friend { }")
	cls := prog.Children[0]
	require.Equal(t, ast.KindClass, cls.Kind)
	require.Equal(t, "Dog", cls.QName.Name)
	require.Equal(t, "Animal", cls.Children[0].QName.Name)
	impl := cls.Children[1]
	require.Equal(t, ast.KindTypeIdentifiers, impl.Kind)
	require.Len(t, impl.Children, 2)
}

func TestAttributesOnDeclarations(t *testing.T) {
	prog := mustParse(t, "public static var count = 0; final class C { }")
	group := prog.Children[0]
	v := group.Children[0]
	require.Equal(t, ast.KindVarDefinition, v.Kind)
	require.NotZero(t, v.Attrs&ast.AttrPublic)
	require.NotZero(t, v.Attrs&ast.AttrStatic)

	cls := prog.Children[1]
	require.Equal(t, ast.KindClass, cls.Kind)
	require.NotZero(t, cls.Attrs&ast.AttrFinal)
}

func TestAttributeLookaheadBacksOut(t *testing.T) {
	// `x` here starts an expression, not an attribute run: no directive
	// keyword follows within the lookahead window.
	prog, errs := parseOne(t, "x = 1;")
	require.Empty(t, errs)
	require.Equal(t, ast.KindAssignOp, prog.Children[0].Kind)
}

func TestBreakLabelSameLineOnly(t *testing.T) {
	prog := mustParse(t, "for (;;) { break outer; }")
	loop := prog.Children[0]
	brk := loop.Children[3].Children[0]
	require.Equal(t, ast.KindBreak, brk.Kind)
	require.Equal(t, "outer", brk.Text)

	// A line break after the keyword means no label is attached.
	prog = mustParse(t, "for (;;) { break\nouter; }")
	brk = prog.Children[0].Children[3].Children[0]
	require.Empty(t, brk.Text)
}

func TestRestAndDefaultParams(t *testing.T) {
	prog := mustParse(t, "function f(a, b = 2, ...rest) { }")
	params := prog.Children[0].Children[0]
	require.Len(t, params.Children, 3)
	require.True(t, params.Children[2].HasFlag(ast.FlagIsRest))
	require.NotNil(t, params.Children[1].Children[1], "default expression recorded")
}

func TestObjectAndArrayLiterals(t *testing.T) {
	prog := mustParse(t, "o = {a: 1, b: 2}; arr = [1,, 3];")
	obj := prog.Children[0].Children[1]
	require.Equal(t, ast.KindObjectLiteral, obj.Kind)
	require.Len(t, obj.Children, 2)
	require.Equal(t, "a", obj.Children[0].Text)

	arr := prog.Children[1].Children[1]
	require.Equal(t, ast.KindArrayLiteral, arr.Kind)
	require.Len(t, arr.Children, 3)
	require.Equal(t, ast.KindNop, arr.Children[1].Kind, "elision placeholder")
}

func TestHashDirective(t *testing.T) {
	prog := mustParse(t, "#DEBUG { var x = 1; }")
	hash := prog.Children[0]
	require.Equal(t, ast.KindHash, hash.Kind)
	require.Equal(t, ast.KindQName, hash.Children[0].Kind)
	require.Equal(t, ast.KindBlock, hash.Children[1].Kind)
}

func TestErrorRecovery(t *testing.T) {
	prog, errs := parseOne(t, "var = ;\nvar y = 2;\nfunction ) broken\nvar z = 3;")
	require.NotEmpty(t, errs)
	// The parser resyncs at statement boundaries and keeps going, so the
	// healthy declarations still parse.
	found := 0
	ast.Walk(prog, func(n *ast.Node) bool {
		if n.Kind == ast.KindVarDefinition && (n.QName.Name == "y" || n.QName.Name == "z") {
			found++
		}
		return true
	})
	require.Equal(t, 2, found)
}

func TestLookaheadWindowDoesNotMutateCurrent(t *testing.T) {
	p := New("test.ejs", "a b c d e f g h i", Options{})
	cur := p.cur()
	for n := 1; n <= LookAhead; n++ {
		p.peek(n)
	}
	require.Equal(t, cur, p.cur(), "peeking never mutates the current token")
}

func TestSuperCall(t *testing.T) {
	prog := mustParse(t, "class B extends A { function B() { super(1); } }")
	var sawSuperCall bool
	ast.Walk(prog, func(n *ast.Node) bool {
		if n.Kind == ast.KindCall && n.Children[0].Kind == ast.KindSuper {
			sawSuperCall = true
		}
		return true
	})
	require.True(t, sawSuperCall)
}

func TestQualifiedNameAccess(t *testing.T) {
	prog := mustParse(t, `x = ns::name;`)
	dot := prog.Children[0].Children[1]
	require.Equal(t, ast.KindDot, dot.Kind)
}

func TestModuleDefinition(t *testing.T) {
	prog := mustParse(t, "module acme { function ping() { } }")
	mod := prog.Children[0]
	require.Equal(t, ast.KindModule, mod.Kind)
	require.Equal(t, "acme", mod.Text)
	body := mod.Children[0]
	require.Equal(t, ast.KindBlock, body.Kind)
	require.Equal(t, ast.KindFunction, body.Children[0].Kind)
}

func TestPragmas(t *testing.T) {
	prog := mustParse(t, "use namespace mine; use strict; lang plus;")
	require.Equal(t, ast.KindUseNamespace, prog.Children[0].Kind)
	require.Equal(t, "mine", prog.Children[0].Text)
	require.Equal(t, ast.KindPragma, prog.Children[1].Kind)
	require.Equal(t, ast.KindPragma, prog.Children[2].Kind)
}
