package semantic

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/errors"
)

// FixupPhase resolves class-layout references — `extends`, `implements`,
// and the type annotations on fields and params (not return types) — against the scope
// tree Phase 1 built, assigns interface method slot numbers, and then
// verifies the resolved layout: every interface method is implemented
// and every `override` member actually replaces an inherited one. It
// does not touch ordinary expression QNames; that's Bind's job, since
// expression resolution additionally depends on `this`/instance-property
// rules that don't apply to a type reference.
type FixupPhase struct{}

func (f *FixupPhase) Name() string { return "Fixup" }

func (f *FixupPhase) Run(prog *ast.Node, ctx *Context) {
	walkFixup(prog, ctx.Global, ctx)
	// Verification runs as a second sweep so a class textually ahead of
	// its base or interface still sees every type ref resolved.
	verifyClasses(prog, ctx)
}

func verifyClasses(n *ast.Node, ctx *Context) {
	ast.Walk(n, func(c *ast.Node) bool {
		if c.Disabled {
			return false
		}
		if c.Kind == ast.KindClass {
			if impl := c.Children[1]; impl != nil {
				for _, i := range impl.Children {
					verifyInterfaceImplemented(c, i, ctx)
				}
			}
			verifyOverrides(c, ctx)
		}
		return true
	})
}

func walkFixup(n *ast.Node, scope *Scope, ctx *Context) {
	if n == nil || n.Disabled {
		return
	}
	if s, ok := ctx.NodeScope[n]; ok {
		scope = s
	}
	switch n.Kind {
	case ast.KindClass:
		if base := n.Children[0]; base != nil {
			resolveTypeRef(base, scope, ctx)
		}
		if impl := n.Children[1]; impl != nil {
			for _, i := range impl.Children {
				resolveTypeRef(i, scope, ctx)
				assignInterfaceSlots(n, i)
			}
		}
	case ast.KindInterfaceDecl:
		for _, base := range n.Children[0].Children {
			resolveTypeRef(base, scope, ctx)
		}
	case ast.KindVarDefinition:
		if len(n.Children) > 0 && n.Children[0] != nil && n.Children[0].Kind == ast.KindQName {
			resolveTypeRef(n.Children[0], scope, ctx)
		}
	}
	for _, c := range n.Children {
		walkFixup(c, scope, ctx)
	}
}

// resolveTypeRef resolves a type-annotation QName against scope, leaving
// Lookup.Ref nil (and recording a diagnostic) if the name can't be found
// — an unresolved type reference is a semantic error, not a silent
// dynamic fallback, unlike an ordinary unresolved expression reference.
func resolveTypeRef(n *ast.Node, scope *Scope, ctx *Context) {
	if n == nil || n.QName.Name == "*" {
		return
	}
	b, _, nthBlock, ok := scope.Resolve(n.QName.Name)
	if !ok {
		ctx.Status.Add(errors.Diagnostic{
			Severity: errors.SeverityError,
			File:     ctx.File,
			Line:     n.Pos.Line,
			Column:   n.Pos.Column,
			Source:   n.Pos.Text,
			Message:  "unresolved type '" + n.QName.Name + "'",
		})
		return
	}
	n.Lookup = &ast.Lookup{Ref: b.node, NthBlock: nthBlock, Bound: true, OwnerIsType: true}
}

// verifyInterfaceImplemented checks that cls (or a base class) defines a
// method for every method the interface declares; a missing one is a
// semantic error.
func verifyInterfaceImplemented(cls, iface *ast.Node, ctx *Context) {
	if iface.Lookup == nil || iface.Lookup.Ref == nil {
		return
	}
	ifaceDecl, ok := iface.Lookup.Ref.(*ast.Node)
	if !ok || len(ifaceDecl.Children) < 2 {
		return
	}
	body := ifaceDecl.Children[len(ifaceDecl.Children)-1]
	if body == nil {
		return
	}
	for _, m := range body.Children {
		if m == nil || m.Kind != ast.KindFunction {
			continue
		}
		if findClassMethod(cls, m.QName.Name) == nil {
			ctx.Status.Add(errors.Diagnostic{
				Severity: errors.SeverityError,
				File:     cls.Pos.File, Line: cls.Pos.Line, Column: cls.Pos.Column,
				Source: cls.Pos.Text,
				Message: "class " + cls.QName.Name + " does not implement method " +
					m.QName.Name + " of interface " + ifaceDecl.QName.Name,
			})
		}
	}
}

// verifyOverrides checks every member marked `override` against the base
// chain: an override with no same-named inherited member to replace is a
// semantic error (override mismatch).
func verifyOverrides(cls *ast.Node, ctx *Context) {
	body := cls.Children[len(cls.Children)-1]
	if body == nil {
		return
	}
	for _, m := range classMembers(body) {
		if m.Attrs&ast.AttrOverride == 0 {
			continue
		}
		base := baseClassDecl(cls)
		if base == nil || findClassMethod(base, m.QName.Name) == nil {
			ctx.Status.Add(errors.Diagnostic{
				Severity: errors.SeverityError,
				File:     m.Pos.File, Line: m.Pos.Line, Column: m.Pos.Column,
				Source:  m.Pos.Text,
				Message: m.QName.Name + " is marked override but no base class declares it",
			})
		}
	}
}

// classMembers yields a class body's member declarations, unwrapping the
// Directives grouping a `var a, b;` field line parses to.
func classMembers(body *ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, m := range body.Children {
		if m == nil {
			continue
		}
		if m.Kind == ast.KindDirectives {
			for _, v := range m.Children {
				if v != nil {
					out = append(out, v)
				}
			}
			continue
		}
		out = append(out, m)
	}
	return out
}

// baseClassDecl returns the resolved base-class declaration node, or nil.
func baseClassDecl(cls *ast.Node) *ast.Node {
	base := cls.Children[0]
	if base == nil || base.Lookup == nil {
		return nil
	}
	decl, ok := base.Lookup.Ref.(*ast.Node)
	if !ok || decl == cls {
		return nil
	}
	return decl
}

// findClassMethod searches cls and its base chain for a method named
// name (the class's own constructor does not count). The seen set
// guards against cyclic extends chains.
func findClassMethod(cls *ast.Node, name string) *ast.Node {
	seen := make(map[*ast.Node]bool)
	for c := cls; c != nil && !seen[c]; c = baseClassDecl(c) {
		seen[c] = true
		body := c.Children[len(c.Children)-1]
		if body == nil {
			continue
		}
		for _, m := range body.Children {
			if m != nil && m.Kind == ast.KindFunction &&
				m.QName.Name == name && m.QName.Name != c.QName.Name {
				return m
			}
		}
	}
	return nil
}

// assignInterfaceSlots numbers the methods the interface declares in
// declaration order, recording each number in the interface method
// node's Lookup.SlotNum. CodeGen does not read these numbers.
func assignInterfaceSlots(cls, iface *ast.Node) {
	if iface.Lookup == nil || iface.Lookup.Ref == nil {
		return
	}
	ifaceDecl, ok := iface.Lookup.Ref.(*ast.Node)
	if !ok || len(ifaceDecl.Children) < 2 {
		return
	}
	body := ifaceDecl.Children[len(ifaceDecl.Children)-1]
	if body == nil {
		return
	}
	slot := 0
	for _, m := range body.Children {
		if m != nil && m.Kind == ast.KindFunction {
			if m.Lookup == nil {
				m.Lookup = &ast.Lookup{}
			}
			m.Lookup.SlotNum = slot
			slot++
		}
	}
}
