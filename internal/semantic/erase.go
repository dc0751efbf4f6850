package semantic

import "github.com/ejscript/ejsc/internal/ast"

// ErasePhase removes every subtree Conditional marked Disabled and clears
// the transient conditional-evaluation constants so they aren't baked
// into module output. A `#expr { body }` directive
// itself carries no runtime meaning once Conditional has decided its
// fate: if body survived, the directive is transparent and its
// statements splice into the enclosing list in its place; if body was
// disabled, the whole directive — gate and body alike — disappears.
type ErasePhase struct{}

func (e *ErasePhase) Name() string { return "Erase" }

func (e *ErasePhase) Run(prog *ast.Node, ctx *Context) {
	eraseNode(prog)
	scrubScopes(ctx)
	for k := range ctx.HashConstants {
		delete(ctx.HashConstants, k)
	}
}

// eraseNode rewrites n's children in place: disabled subtrees are
// dropped, Hash wrappers are resolved away (spliced or removed), and
// nil positional slots are preserved for fixed-arity productions.
func eraseNode(n *ast.Node) {
	if n == nil || len(n.Children) == 0 {
		return
	}
	changed := false
	next := make([]*ast.Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c == nil {
			next = append(next, nil)
			continue
		}
		if c.Disabled {
			changed = true
			continue
		}
		if c.Kind == ast.KindHash {
			changed = true
			body := c.Children[1]
			if body != nil && !body.Disabled {
				eraseNode(body)
				next = append(next, body.Children...)
			}
			continue
		}
		eraseNode(c)
		next = append(next, c)
	}
	if changed {
		n.SetChildren(next)
	}
}

// scrubScopes removes bindings whose declaring node was erased, so a
// later *ByName lookup can't resolve a name that no longer exists in the
// compiled output.
func scrubScopes(ctx *Context) {
	seen := make(map[*Scope]bool)
	for _, s := range ctx.NodeScope {
		if s == nil || seen[s] {
			continue
		}
		seen[s] = true
		for name, b := range s.names {
			if b.node != nil && b.node.Disabled {
				delete(s.names, name)
			}
		}
	}
}
