package semantic

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/errors"
)

// ConditionalPhase evaluates every `#expr` gate and marks the directive
// it guards Disabled when the gate is false.
// The original engine re-entrantly wraps the gated subtree as an
// ephemeral module and running it through the VM so arbitrarily complex
// expressions can gate compilation. This implementation evaluates the
// constant-foldable subset directly against ctx.HashConstants — literals,
// QName lookups into HashConstants, and the boolean/comparison operators
// — which covers every gate the `-D` flag surface can produce. A gate
// that isn't constant-foldable (calls an impure function, for instance)
// is conservatively kept rather than guessed at, with a warning recorded
// so the author knows the gate had no effect.
type ConditionalPhase struct{}

func (c *ConditionalPhase) Name() string { return "Conditional" }

func (c *ConditionalPhase) Run(prog *ast.Node, ctx *Context) {
	walkConditional(prog, ctx)
}

func walkConditional(n *ast.Node, ctx *Context) {
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		if child.Kind == ast.KindHash {
			gate, body := child.Children[0], child.Children[1]
			v, ok := evalHashConst(gate, ctx)
			if !ok {
				ctx.Status.Add(errors.Diagnostic{
					Severity: errors.SeverityWarning,
					File:     ctx.File,
					Line:     child.Pos.Line,
					Column:   child.Pos.Column,
					Source:   child.Pos.Text,
					Message:  "conditional-compilation expression is not constant-foldable; directive kept",
				})
				walkConditional(body, ctx)
				continue
			}
			if !truthy(v) {
				// The whole subtree is disabled, not just the block node:
				// Erase's scope scrub and Bind's skip both test the flag on
				// the declaration nodes themselves.
				ast.Walk(body, func(d *ast.Node) bool {
					d.Disabled = true
					return true
				})
			} else {
				walkConditional(body, ctx)
			}
			continue
		}
		walkConditional(child, ctx)
	}
}

func evalHashConst(n *ast.Node, ctx *Context) (any, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Kind {
	case ast.KindLiteral:
		return n.Literal, true
	case ast.KindQName:
		v, ok := ctx.HashConstants[n.QName.Name]
		return v, ok
	case ast.KindUnaryOp:
		v, ok := evalHashConst(n.Children[0], ctx)
		if !ok {
			return nil, false
		}
		if n.Op == "!" {
			return !truthy(v), true
		}
		return nil, false
	case ast.KindBinaryOp:
		l, lok := evalHashConst(n.Left, ctx)
		r, rok := evalHashConst(n.Right, ctx)
		if !lok || !rok {
			return nil, false
		}
		switch n.Op {
		case "&&":
			return truthy(l) && truthy(r), true
		case "||":
			return truthy(l) || truthy(r), true
		case "==":
			return l == r, true
		case "!=":
			return l != r, true
		}
	}
	return nil, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}
