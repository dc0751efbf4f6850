package semantic

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/errors"
)

// BindPhase walks every expression-position QName and resolves it against
// the scope tree Define built, populating Lookup. A name that resolves inside the nearest enclosing class scope
// but isn't `this`-qualified is an instance property reference; a name
// that resolves nowhere is left Bound=false so CodeGen falls back to a
// dynamic *ByName access rather than failing the compile.
type BindPhase struct{}

func (b *BindPhase) Name() string { return "Bind" }

func (b *BindPhase) Run(prog *ast.Node, ctx *Context) {
	bindWalk(prog, ctx.Global, nil, ctx)
}

// bindWalk carries scope (the lexical chain) and classScope (the nearest
// enclosing class scope, or nil outside any class) separately, since an
// instance-property reference resolves through classScope even when the
// lexically nearest scope is a nested function (a method body).
func bindWalk(n *ast.Node, scope *Scope, classScope *Scope, ctx *Context) {
	if n == nil || n.Disabled {
		return
	}
	if s, ok := ctx.NodeScope[n]; ok {
		scope = s
		if n.Kind == ast.KindClass || n.Kind == ast.KindInterfaceDecl {
			classScope = s
		}
	}
	if n.Kind == ast.KindQName && n.Lookup == nil {
		bindQName(n, scope, classScope, ctx)
	}
	if n.Kind == ast.KindDot && n.Op != "[]" && len(n.Children) == 2 {
		// Children[1] is a property name, not a lexical reference:
		// `obj.foo` resolves `foo` against obj — statically in CodeGen's
		// dispatch selection when obj's class is known, dynamically at
		// runtime otherwise — never against whatever happens to be in
		// scope under that name. `obj[expr]` (Op "[]") has a real
		// expression in Children[1] and binds normally.
		bindWalk(n.Children[0], scope, classScope, ctx)
		return
	}
	for _, c := range n.Children {
		bindWalk(c, scope, classScope, ctx)
	}
}

func bindQName(n *ast.Node, scope *Scope, classScope *Scope, ctx *Context) {
	if n.QName.Name == "this" || n.QName.Name == "" {
		return
	}
	bnd, owner, nthBlock, ok := scope.Resolve(n.QName.Name)
	if !ok {
		n.Lookup = &ast.Lookup{Bound: false}
		if ctx.Mode == compstate.ModeStrict {
			ctx.Status.Add(errors.Diagnostic{
				Severity: errors.SeverityError,
				File:     n.Pos.File, Line: n.Pos.Line, Column: n.Pos.Column,
				Source:  n.Pos.Text,
				Message: "undefined name " + n.QName.Name + " in strict mode",
			})
		} else if ctx.WarnLevel >= 6 {
			ctx.Status.Add(errors.Diagnostic{
				Severity: errors.SeverityWarning,
				File:     n.Pos.File, Line: n.Pos.Line, Column: n.Pos.Column,
				Source:  n.Pos.Text,
				Message: "unbound name " + n.QName.Name + " resolves dynamically",
			})
		}
		return
	}
	if !ctx.BindEnabled && owner == ctx.Global {
		n.Lookup = &ast.Lookup{Bound: false}
		return
	}
	lk := &ast.Lookup{Ref: bnd.node, NthBlock: nthBlock, Bound: true}
	if classScope != nil && owner == classScope {
		lk.InstanceProperty = true
		lk.UseThis = true
	}
	n.Lookup = lk
}
