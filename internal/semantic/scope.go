// Package semantic implements the five-phase AST processor: Define,
// Conditional, Fixup, Bind, Erase. Names are QName-addressed and
// namespace-qualified; resolution walks a chained scope tree built once
// in the Define phase.
package semantic

import (
	"github.com/dolthub/swiss"
	"github.com/ejscript/ejsc/internal/ast"
)

// binding is what a name resolves to once Define has run: the
// declaration node that introduced it.
type binding struct {
	node *ast.Node
}

// Scope is one link in the scope chain QNames resolve against: module,
// class, function, block, or catch-clause level. Two
// lookup tables live side by side, one for each flavor of name:
// plain names and namespace-qualified ones: `names` for unqualified
// bindings, `open` for namespaces this scope (or an enclosing one) opens
// via `use namespace` and therefore searches implicitly.
type Scope struct {
	kind  string
	names map[string]*binding
	open  *swiss.Map[string, struct{}]
	outer *Scope
}

// NewScope creates a scope nested inside outer (nil for the module's
// top-level scope).
func NewScope(outer *Scope, kind string) *Scope {
	return &Scope{
		kind:  kind,
		names: make(map[string]*binding),
		open:  swiss.NewMap[string, struct{}](4),
		outer: outer,
	}
}

// Define binds name to n in this scope, returning the previously bound
// declaration when the name was already defined here (nil for a fresh
// binding). The caller decides whether the redefinition is legal:
// Phase 1 rejects it for classes, interfaces, functions, parameters,
// and `let`/`const`, while `var`, like its JS family, may redeclare
// freely outside a class body (see define.go).
func (s *Scope) Define(name string, n *ast.Node) *ast.Node {
	prev, existed := s.names[name]
	s.names[name] = &binding{node: n}
	if existed {
		return prev.node
	}
	return nil
}

// OpenNamespace records that ns is open for unqualified lookup within
// this scope and its descendants.
func (s *Scope) OpenNamespace(ns string) {
	s.open.Put(ns, struct{}{})
}

// NamespaceOpen reports whether ns is open in this scope or an enclosing
// one.
func (s *Scope) NamespaceOpen(ns string) bool {
	for sc := s; sc != nil; sc = sc.outer {
		if _, ok := sc.open.Get(ns); ok {
			return true
		}
	}
	return false
}

// Resolve searches this scope and its ancestors for name, returning the
// binding, the scope that owns it, and how many scopes out it was
// found. ok is false if no scope defines name.
func (s *Scope) Resolve(name string) (b *binding, owner *Scope, nthBlock int, ok bool) {
	depth := 0
	for sc := s; sc != nil; sc = sc.outer {
		if bnd, found := sc.names[name]; found {
			return bnd, sc, depth, true
		}
		depth++
	}
	return nil, nil, -1, false
}
