package semantic

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/errors"
)

// DefinePhase builds the scope tree and binds every declaration's name in
// its owning scope. It never resolves a
// reference — that's Bind's job — it only decides which scope a name
// belongs to, including hoisting `var` to the nearest function/module
// scope while `let`/`const` stay block-scoped. Clashes in the same
// block are errors: a second class/interface/function/`let`/`const`
// under a name already bound in that scope is rejected here, as is any
// duplicate member inside a class body; only `var` outside a class may
// redeclare.
type DefinePhase struct{}

func (d *DefinePhase) Name() string { return "Define" }

func (d *DefinePhase) Run(prog *ast.Node, ctx *Context) {
	ctx.NodeScope[prog] = ctx.Global
	defineChildren(prog, ctx.Global, ctx.Global, ctx)
}

// defineChildren walks n's children, defining declarations into
// blockScope and hoisted vars into hoistScope (the nearest
// function/module scope). A Block/Function/Class/Interface child gets
// its own nested scope, recorded in ctx.NodeScope for later phases.
func defineChildren(n *ast.Node, blockScope, hoistScope *Scope, ctx *Context) {
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		defineNode(c, blockScope, hoistScope, ctx)
	}
}

func defineNode(n *ast.Node, blockScope, hoistScope *Scope, ctx *Context) {
	switch n.Kind {
	case ast.KindClass, ast.KindInterfaceDecl:
		defineUnique(blockScope, n.QName.Name, n, ctx)
		inner := NewScope(blockScope, "class")
		ctx.NodeScope[n] = inner
		// extends/implements (children 0/1) carry no new bindings; the
		// body block (last child) gets the class's own scope as both its
		// block and hoist scope — methods and fields live at class level.
		if body := lastChild(n); body != nil {
			defineChildren(body, inner, inner, ctx)
		}

	case ast.KindFunction:
		if n.QName.Name != "" {
			// A get/set accessor pair legitimately shares one name; any
			// other same-scope redefinition of a function is a clash.
			if n.Text != "" {
				if prev := blockScope.Define(n.QName.Name, n); prev != nil &&
					prev.Kind == ast.KindFunction && prev.Text == n.Text {
					clashError(ctx, n)
				}
			} else {
				defineUnique(blockScope, n.QName.Name, n, ctx)
			}
		}
		inner := NewScope(blockScope, "function")
		ctx.NodeScope[n] = inner
		if len(n.Children) > 0 && n.Children[0] != nil {
			for _, param := range n.Children[0].Children {
				if param != nil {
					defineUnique(inner, param.QName.Name, param, ctx)
				}
			}
		}
		if len(n.Children) > 2 && n.Children[2] != nil {
			defineChildren(n.Children[2], inner, inner, ctx)
		}

	case ast.KindModule:
		// A module directive's body block is scope-transparent: its
		// declarations belong to the enclosing (module-level) scope,
		// qualified by the module's namespace rather than hidden by a
		// block scope.
		if body := lastChild(n); body != nil {
			defineChildren(body, blockScope, hoistScope, ctx)
		}

	case ast.KindBlock:
		inner := NewScope(blockScope, "block")
		ctx.NodeScope[n] = inner
		defineChildren(n, inner, hoistScope, ctx)

	case ast.KindVarDefinition:
		target := blockScope
		if n.Text == "var" {
			target = hoistScope
		}
		// `var` may redeclare, but a class field still clashes with any
		// other member of the same class (a field shadowing a method has
		// no coherent slot layout); let/const are single-binding always.
		if n.Text == "var" && target.kind != "class" {
			target.Define(n.QName.Name, n)
		} else {
			defineUnique(target, n.QName.Name, n, ctx)
		}
		for _, c := range n.Children {
			if c != nil {
				defineNode(c, blockScope, hoistScope, ctx)
			}
		}

	case ast.KindDirectives:
		// VarDefinition groups (`var a, b = 1;`) and case bodies are plain
		// grouping nodes; recurse without opening a new scope.
		defineChildren(n, blockScope, hoistScope, ctx)

	case ast.KindCatch:
		inner := NewScope(blockScope, "catch")
		ctx.NodeScope[n] = inner
		if len(n.Children) > 0 && n.Children[0] != nil {
			inner.Define(n.Children[0].QName.Name, n.Children[0])
		}
		if len(n.Children) > 1 && n.Children[1] != nil {
			defineChildren(n.Children[1], inner, hoistScope, ctx)
		}

	case ast.KindUseNamespace:
		blockScope.OpenNamespace(n.Text)
		defineChildren(n, blockScope, hoistScope, ctx)

	case ast.KindFor, ast.KindForIn, ast.KindIf, ast.KindSwitch, ast.KindTry,
		ast.KindWith, ast.KindCaseLabel, ast.KindCatchClauses:
		// Control-flow nodes may introduce their own block-scoped `let`
		// init (for-loops); conservatively nest a block scope so such a
		// binding doesn't leak to siblings.
		inner := NewScope(blockScope, "block")
		ctx.NodeScope[n] = inner
		defineChildren(n, inner, hoistScope, ctx)

	default:
		defineChildren(n, blockScope, hoistScope, ctx)
	}
}

// defineUnique binds name in scope and reports a semantic error if that
// scope already held a binding for it (Phase 1: clashes in the same
// block are errors).
func defineUnique(scope *Scope, name string, n *ast.Node, ctx *Context) {
	if prev := scope.Define(name, n); prev != nil {
		clashError(ctx, n)
	}
}

func clashError(ctx *Context, n *ast.Node) {
	ctx.Status.Add(errors.Diagnostic{
		Severity: errors.SeverityError,
		File:     n.Pos.File, Line: n.Pos.Line, Column: n.Pos.Column,
		Source:  n.Pos.Text,
		Message: "duplicate declaration of " + n.QName.Name + " in the same block",
	})
}

func lastChild(n *ast.Node) *ast.Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}
