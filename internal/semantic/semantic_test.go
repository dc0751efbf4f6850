package semantic

import (
	"testing"

	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/errors"
	"github.com/ejscript/ejsc/internal/parser"
	"github.com/stretchr/testify/require"
)

func process(t *testing.T, src string, mutate func(*Context)) (*ast.Node, *Context) {
	t.Helper()
	p := parser.New("test.ejs", src, parser.Options{})
	prog := p.ParseProgram()
	require.Empty(t, p.Errors())

	status := &errors.Status{}
	ctx := NewContext("test.ejs", status)
	if mutate != nil {
		mutate(ctx)
	}
	NewProcessor().Process(prog, ctx)
	return prog, ctx
}

func findNode(prog *ast.Node, pred func(*ast.Node) bool) *ast.Node {
	var found *ast.Node
	ast.Walk(prog, func(n *ast.Node) bool {
		if found == nil && pred(n) {
			found = n
		}
		return found == nil
	})
	return found
}

func TestDefineBindsDeclarations(t *testing.T) {
	prog, ctx := process(t, "var x = 1; function f() { return x; }", nil)
	require.Zero(t, ctx.Status.Errors)

	ref := findNode(prog, func(n *ast.Node) bool {
		return n.Kind == ast.KindQName && n.QName.Name == "x" && n.Lookup != nil
	})
	require.NotNil(t, ref)
	require.True(t, ref.Lookup.Bound)
	decl, ok := ref.Lookup.Ref.(*ast.Node)
	require.True(t, ok)
	require.Equal(t, ast.KindVarDefinition, decl.Kind)
}

func TestLetStaysBlockScoped(t *testing.T) {
	prog, ctx := process(t, "{ let inner = 1; } use_it = inner;", nil)
	require.Zero(t, ctx.Status.Errors)

	ref := findNode(prog, func(n *ast.Node) bool {
		return n.Kind == ast.KindQName && n.QName.Name == "inner" && n.Parent != nil &&
			n.Parent.Kind == ast.KindAssignOp
	})
	require.NotNil(t, ref)
	require.False(t, ref.Lookup.Bound, "a block-scoped let is invisible outside its block")
}

func TestVarHoistsOutOfBlock(t *testing.T) {
	prog, ctx := process(t, "{ var hoisted = 1; } use_it = hoisted;", nil)
	require.Zero(t, ctx.Status.Errors)

	ref := findNode(prog, func(n *ast.Node) bool {
		return n.Kind == ast.KindQName && n.QName.Name == "hoisted" && n.Parent != nil &&
			n.Parent.Kind == ast.KindAssignOp
	})
	require.NotNil(t, ref)
	require.True(t, ref.Lookup.Bound, "var hoists to the enclosing function/module scope")
}

func TestInstancePropertyLookup(t *testing.T) {
	prog, ctx := process(t, `
class Counter {
  var n;
  function bump() { return n; }
}`, nil)
	require.Zero(t, ctx.Status.Errors)

	ref := findNode(prog, func(n *ast.Node) bool {
		return n.Kind == ast.KindQName && n.QName.Name == "n" && n.Lookup != nil && n.Parent.Kind == ast.KindReturn
	})
	require.NotNil(t, ref)
	require.True(t, ref.Lookup.Bound)
	require.True(t, ref.Lookup.InstanceProperty)
	require.True(t, ref.Lookup.UseThis)
}

func TestStrictModeRejectsUnresolved(t *testing.T) {
	_, ctx := process(t, "y = missing;", func(c *Context) { c.Mode = compstate.ModeStrict })
	require.NotZero(t, ctx.Status.Errors)
}

func TestStandardModeLeavesUnbound(t *testing.T) {
	prog, ctx := process(t, "y = missing;", nil)
	require.Zero(t, ctx.Status.Errors)
	ref := findNode(prog, func(n *ast.Node) bool {
		return n.Kind == ast.KindQName && n.QName.Name == "missing"
	})
	require.NotNil(t, ref.Lookup)
	require.False(t, ref.Lookup.Bound)
}

func TestBindDisabled(t *testing.T) {
	prog, ctx := process(t, "var x = 1; y = x;", func(c *Context) { c.BindEnabled = false })
	require.Zero(t, ctx.Status.Errors)
	ref := findNode(prog, func(n *ast.Node) bool {
		return n.Kind == ast.KindQName && n.QName.Name == "x" && n.Parent.Kind == ast.KindAssignOp
	})
	require.False(t, ref.Lookup.Bound, "--bind=false leaves module-level references dynamic")
}

func TestFixupResolvesBaseAndInterfaces(t *testing.T) {
	prog, ctx := process(t, `
interface Pet { function feed() { } }
class Animal { }
class Dog extends Animal implements Pet { function feed() { } }`, nil)
	require.Zero(t, ctx.Status.Errors)

	dog := findNode(prog, func(n *ast.Node) bool {
		return n.Kind == ast.KindClass && n.QName.Name == "Dog"
	})
	base := dog.Children[0]
	require.NotNil(t, base.Lookup)
	require.True(t, base.Lookup.OwnerIsType)
	decl := base.Lookup.Ref.(*ast.Node)
	require.Equal(t, "Animal", decl.QName.Name)

	iface := dog.Children[1].Children[0]
	require.NotNil(t, iface.Lookup)
	require.Equal(t, "Pet", iface.Lookup.Ref.(*ast.Node).QName.Name)
}

func TestFixupReportsUnknownBase(t *testing.T) {
	_, ctx := process(t, "class Dog extends Ghost { }", nil)
	require.NotZero(t, ctx.Status.Errors)
}

func TestConditionalDisablesFalsyGate(t *testing.T) {
	prog, ctx := process(t, "#FEATURE { var x = 1; }", func(c *Context) {
		c.HashConstants["FEATURE"] = false
	})
	require.Zero(t, ctx.Status.Errors)
	// Erase removed the whole directive.
	require.Nil(t, findNode(prog, func(n *ast.Node) bool { return n.Kind == ast.KindHash }))
	require.Nil(t, findNode(prog, func(n *ast.Node) bool { return n.Kind == ast.KindVarDefinition }))
}

func TestConditionalSplicesTruthyGate(t *testing.T) {
	prog, ctx := process(t, "#FEATURE { var x = 1; }", func(c *Context) {
		c.HashConstants["FEATURE"] = true
	})
	require.Zero(t, ctx.Status.Errors)
	require.Nil(t, findNode(prog, func(n *ast.Node) bool { return n.Kind == ast.KindHash }))
	v := findNode(prog, func(n *ast.Node) bool { return n.Kind == ast.KindVarDefinition })
	require.NotNil(t, v, "the gated body's declarations splice into the program")
}

func TestConditionalOperators(t *testing.T) {
	tests := []struct {
		src     string
		want    bool // want the var to survive
		defines map[string]any
	}{
		{"#(!OFF) { var x = 1; }", true, map[string]any{"OFF": false}},
		{"#(A && B) { var x = 1; }", false, map[string]any{"A": true, "B": false}},
		{"#(A || B) { var x = 1; }", true, map[string]any{"A": false, "B": true}},
		{"#(LEVEL == 2) { var x = 1; }", true, map[string]any{"LEVEL": float64(2)}},
		{"#(LEVEL != 2) { var x = 1; }", false, map[string]any{"LEVEL": float64(2)}},
	}
	for _, tt := range tests {
		prog, ctx := process(t, tt.src, func(c *Context) {
			for k, v := range tt.defines {
				c.HashConstants[k] = v
			}
		})
		require.Zero(t, ctx.Status.Errors, tt.src)
		v := findNode(prog, func(n *ast.Node) bool { return n.Kind == ast.KindVarDefinition })
		if tt.want {
			require.NotNil(t, v, tt.src)
		} else {
			require.Nil(t, v, tt.src)
		}
	}
}

func TestNonConstantGateKeptWithWarning(t *testing.T) {
	prog, ctx := process(t, "#mystery() { var x = 1; }", nil)
	require.Zero(t, ctx.Status.Errors)
	require.NotZero(t, ctx.Status.Warnings)
	require.NotNil(t, findNode(prog, func(n *ast.Node) bool { return n.Kind == ast.KindVarDefinition }),
		"an unfoldable gate conservatively keeps its body")
}

func TestEraseClearsHashConstants(t *testing.T) {
	_, ctx := process(t, "var x = 1;", func(c *Context) {
		c.HashConstants["LEAK"] = true
	})
	require.Empty(t, ctx.HashConstants, "Phase 5 clears transient constants")
}

func TestDuplicateDeclarationsRejected(t *testing.T) {
	tests := []string{
		"class C { } class C { }",
		"interface I { } interface I { }",
		"function f() { } function f() { }",
		"{ let x = 1; let x = 2; }",
		"{ const k = 1; const k = 2; }",
		"function f(a, a) { }",
		"class C { var n; function n() { } }",
		"class C { var n; var n; }",
	}
	for _, src := range tests {
		_, ctx := process(t, src, nil)
		require.NotZero(t, ctx.Status.Errors, "clash in the same block is an error: %s", src)
	}
}

func TestLegalRedeclarations(t *testing.T) {
	tests := []string{
		"var x = 1; var x = 2;",
		"{ var y = 1; } { var y = 2; }",
		"class C { function get v() { return 1; } function set v(n) { } }",
		"{ let x = 1; } { let x = 2; }",
	}
	for _, src := range tests {
		_, ctx := process(t, src, nil)
		require.Zero(t, ctx.Status.Errors, "no clash expected: %s (%+v)", src, ctx.Status.Diagnostics)
	}
}

func TestMissingInterfaceMethodRejected(t *testing.T) {
	_, ctx := process(t, `
interface Shape { function area() { } function perimeter() { } }
class Box implements Shape { function area() { } }`, nil)
	require.NotZero(t, ctx.Status.Errors, "a class omitting an interface method is rejected")
}

func TestInterfaceMethodInheritedFromBase(t *testing.T) {
	_, ctx := process(t, `
interface Shape { function area() { } }
class Base { function area() { } }
class Box extends Base implements Shape { }`, nil)
	require.Zero(t, ctx.Status.Errors, "an inherited method satisfies the interface: %+v", ctx.Status.Diagnostics)
}

func TestOverrideWithoutBaseMethodRejected(t *testing.T) {
	_, ctx := process(t, `
class Animal { }
class Dog extends Animal { override function speak() { } }`, nil)
	require.NotZero(t, ctx.Status.Errors, "override with nothing to replace is a mismatch")
}

func TestOverrideOfBaseMethodAccepted(t *testing.T) {
	_, ctx := process(t, `
class Animal { function speak() { } }
class Dog extends Animal { override function speak() { } }`, nil)
	require.Zero(t, ctx.Status.Errors, "%+v", ctx.Status.Diagnostics)
}

func TestInterfaceMethodSlots(t *testing.T) {
	prog, ctx := process(t, `
interface Shape { function area() { } function perimeter() { } }
class Box implements Shape { function area() { } function perimeter() { } }`, nil)
	require.Zero(t, ctx.Status.Errors)

	iface := findNode(prog, func(n *ast.Node) bool { return n.Kind == ast.KindInterfaceDecl })
	body := iface.Children[len(iface.Children)-1]
	slots := []int{}
	for _, m := range body.Children {
		if m != nil && m.Kind == ast.KindFunction {
			require.NotNil(t, m.Lookup)
			slots = append(slots, m.Lookup.SlotNum)
		}
	}
	require.Equal(t, []int{0, 1}, slots, "interface methods get slots in declaration order")
}
