package ast

// Constructors, grouped by concern (classes, control flow, functions,
// statements, interfaces) — one tagged Node type means these are just
// convenience builders rather than distinct Go types.

// NewProgram creates the root node for one parsed source file.
func NewProgram(pos Pos) *Node {
	return NewNode(KindProgram, pos)
}

// NewBlock creates a lexical block node. createBlockObject is decided in
// Phase 2 (Conditional) once hoisting is known; callers start with it
// unset.
func NewBlock(pos Pos) *Node {
	return NewNode(KindBlock, pos)
}

// NewClass creates a class declaration node. base/implements are attached
// as children (QName references resolved in Phase 3, Fixup).
func NewClass(pos Pos, name QName) *Node {
	n := NewNode(KindClass, pos)
	n.QName = name
	return n
}

// NewInterface creates an interface declaration node.
func NewInterface(pos Pos, name QName) *Node {
	n := NewNode(KindInterfaceDecl, pos)
	n.QName = name
	return n
}

// NewFunction creates a function/method declaration node. Params are
// appended as VarDefinition children ahead of the body Block child.
func NewFunction(pos Pos, name QName) *Node {
	n := NewNode(KindFunction, pos)
	n.QName = name
	return n
}

// NewVarDefinition creates a var/let/const declaration node; kind
// ("var"|"let"|"const") is recorded in Text.
func NewVarDefinition(pos Pos, varKind string, name QName) *Node {
	n := NewNode(KindVarDefinition, pos)
	n.Text = varKind
	n.QName = name
	return n
}

// NewQNameNode wraps a qualified-name reference as an expression node.
func NewQNameNode(pos Pos, name QName) *Node {
	n := NewNode(KindQName, pos)
	n.QName = name
	return n
}

// NewLiteral creates a literal expression node.
func NewLiteral(pos Pos, value any) *Node {
	n := NewNode(KindLiteral, pos)
	n.Literal = value
	return n
}

// NewBinaryOp creates a binary operator node; left/right become
// Children[0]/Children[1].
func NewBinaryOp(pos Pos, op string, left, right *Node) *Node {
	n := NewNode(KindBinaryOp, pos)
	n.Op = op
	n.SetChildren([]*Node{left, right})
	return n
}

// NewAssignOp creates an assignment node. Compound assignments (a OP= b)
// are rewritten by the parser into a = a OP b sharing the LHS subtree
// before CodeGen ever sees them; this constructor is used
// for both the surface `=` and the pre-rewrite compound form.
func NewAssignOp(pos Pos, op string, target, value *Node) *Node {
	n := NewNode(KindAssignOp, pos)
	n.Op = op
	n.SetChildren([]*Node{target, value})
	return n
}

// NewUnaryOp creates a prefix unary operator node.
func NewUnaryOp(pos Pos, op string, operand *Node) *Node {
	n := NewNode(KindUnaryOp, pos)
	n.Op = op
	n.SetChildren([]*Node{operand})
	return n
}

// NewPostfixOp creates a postfix operator node (++/--).
func NewPostfixOp(pos Pos, op string, operand *Node) *Node {
	n := NewNode(KindPostfixOp, pos)
	n.Op = op
	n.SetChildren([]*Node{operand})
	return n
}

// NewCall creates a call node; callee is Children[0], an Args node is
// Children[1].
func NewCall(pos Pos, callee, args *Node) *Node {
	n := NewNode(KindCall, pos)
	n.SetChildren([]*Node{callee, args})
	return n
}

// NewDot creates a member-access node; object is Children[0], the member
// QName node is Children[1].
func NewDot(pos Pos, object, member *Node) *Node {
	n := NewNode(KindDot, pos)
	n.SetChildren([]*Node{object, member})
	return n
}

// NewIf creates an if/else node: cond, then-block, optional else-block.
func NewIf(pos Pos, cond, then, els *Node) *Node {
	n := NewNode(KindIf, pos)
	children := []*Node{cond, then}
	if els != nil {
		children = append(children, els)
	}
	n.SetChildren(children)
	return n
}

// NewFor creates a canonical for-shaped node: init, cond, perLoop, body.
// while/do-while are rewritten to this shape by the parser.
func NewFor(pos Pos, init, cond, perLoop, body *Node) *Node {
	n := NewNode(KindFor, pos)
	n.SetChildren([]*Node{init, cond, perLoop, body})
	return n
}

// NewForIn creates a for-in node prior to its iterator rewrite; the
// AstProcessor (or an early parser desugar pass) turns the RHS into a
// `.get`/`.getValues` call under the `iterator` namespace.
func NewForIn(pos Pos, target, rhs, body *Node, isForEach bool) *Node {
	n := NewNode(KindForIn, pos)
	if isForEach {
		n.Text = "each"
	}
	n.SetChildren([]*Node{target, rhs, body})
	return n
}

// NewSwitch creates a switch node: discriminant plus CaseElements.
func NewSwitch(pos Pos, discriminant, cases *Node) *Node {
	n := NewNode(KindSwitch, pos)
	n.SetChildren([]*Node{discriminant, cases})
	return n
}

// NewTry creates a try node: try-block, optional CatchClauses, optional
// finally-block.
func NewTry(pos Pos, tryBlock, catches, finallyBlock *Node) *Node {
	n := NewNode(KindTry, pos)
	children := []*Node{tryBlock}
	if catches != nil {
		children = append(children, catches)
	}
	if finallyBlock != nil {
		children = append(children, finallyBlock)
	}
	n.SetChildren(children)
	return n
}

// NewCatch creates a single catch clause: CatchArg plus body block.
func NewCatch(pos Pos, arg, body *Node) *Node {
	n := NewNode(KindCatch, pos)
	n.SetChildren([]*Node{arg, body})
	return n
}

// NewReturn creates a return statement; value may be nil for a bare return.
func NewReturn(pos Pos, value *Node) *Node {
	n := NewNode(KindReturn, pos)
	if value != nil {
		n.AddChild(value)
	}
	return n
}

// NewBreakContinue creates a break/continue node carrying an optional same-
// line label.
func NewBreakContinue(pos Pos, isBreak bool, label string) *Node {
	kind := KindContinue
	if isBreak {
		kind = KindBreak
	}
	n := NewNode(kind, pos)
	n.Text = label
	return n
}
