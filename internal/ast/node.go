// Package ast defines the tagged-variant AST node used by the parser, the
// AstProcessor, and CodeGen, plus the QName and Lookup records name binding
// populates.
package ast

// Pos is a source location snapshot: filename, line, column, and the raw
// source line text the error-formatter later renders with a caret.
type Pos struct {
	File   string
	Line   int
	Column int
	Text   string // snapshot of the source line, for diagnostics
}

// QName is a qualified name: a namespace URI (possibly empty/unresolved)
// paired with a bare name.
type QName struct {
	Space string
	Name  string
}

func (q QName) String() string {
	if q.Space == "" {
		return q.Name
	}
	return q.Space + "::" + q.Name
}

// Flags is the per-node boolean bookkeeping bitfield.
type Flags uint32

const (
	FlagCreateBlockObject Flags = 1 << iota
	FlagBlockCreated
	FlagLiteralNamespace
	FlagNeedThis
	FlagNeedDupObj
	FlagIsType
	FlagIsAttribute
	FlagIsRest
	FlagIsNamespace
	FlagInstanceVar
	FlagLetScope
)

// Lookup is the result of resolving a QName against a scope.
// Obj and Trait are typed as `any` because they reference the VM's object
// model, which is one layer above ast to avoid an import cycle between
// AST nodes and the scope/type graph they resolve into.
type Lookup struct {
	Obj              any
	SlotNum          int
	NthBlock         int
	NthBase          int
	UseThis          bool
	InstanceProperty bool
	OwnerIsType      bool
	Trait            any
	Ref              any
	Bound            bool // false => emit *ByName dynamic access
}

// UnresolvedSlot marks a Lookup.SlotNum that has not been (or cannot be)
// bound to a fixed slot.
const UnresolvedSlot = -1

// undefinedSentinel is Literal's payload for the `undefined` literal,
// distinct from a Go nil interface value (reserved for `null`).
type undefinedSentinel struct{}

// Undefined is the Literal value the parser attaches to an `undefined`
// token; CodeGen compares against it to pick OpLoadUndefined over
// OpLoadNull.
var Undefined any = undefinedSentinel{}

// Attrs is the declaration-attribute bitfield
// ("public|private|protected|internal|intrinsic, static|final|native|
// override|enumerable|dynamic"). Distinct from Flags, which holds
// per-node bookkeeping rather than surface attributes a declaration
// carries into the module writer's attribute byte.
type Attrs uint32

const (
	AttrPublic Attrs = 1 << iota
	AttrPrivate
	AttrProtected
	AttrInternal
	AttrIntrinsic
	AttrStatic
	AttrFinal
	AttrNative
	AttrOverride
	AttrEnumerable
	AttrDynamic
)

// Node is the single tagged-variant AST node. Kind selects which payload
// fields are meaningful; Children is the authoritative ordering and Left/
// Right are cached aliases to Children[0]/Children[1] for binary-shaped
// nodes — callers that mutate Children MUST call SyncBinary afterward.
type Node struct {
	Kind   Kind
	Pos    Pos
	Parent *Node

	Children []*Node
	Left     *Node
	Right    *Node

	// Name/value payload, shared across kinds that only need one of these.
	QName   QName
	Literal any    // literal value for KindLiteral
	Op      string // operator text for BinaryOp/AssignOp/UnaryOp/PostfixOp
	Text    string // misc textual payload (pragma name, label, module name…)

	Doc string // doc-comment text attached during parsing, if any

	Flags Flags

	// Attrs and Namespaces hold the declaration attributes the parser's
	// attribute scanner accumulated ahead of this directive.
	Attrs      Attrs
	Namespaces []string

	// Lookup is populated during Phase 4 (Bind); nil before then.
	Lookup *Lookup

	// Disabled marks a subtree removed by conditional compilation.
	Disabled bool
}

// NewNode allocates a bare node of the given kind at pos.
func NewNode(kind Kind, pos Pos) *Node {
	return &Node{Kind: kind, Pos: pos}
}

// HasFlag reports whether all bits in f are set.
func (n *Node) HasFlag(f Flags) bool { return n.Flags&f == f }

// SetFlag sets the given bits.
func (n *Node) SetFlag(f Flags) { n.Flags |= f }

// ClearFlag clears the given bits.
func (n *Node) ClearFlag(f Flags) { n.Flags &^= f }

// AddChild appends a child, reparents it, and refreshes Left/Right.
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	child.Parent = n
	n.Children = append(n.Children, child)
	n.SyncBinary()
}

// AddOptionalChild appends child, which may be nil, preserving its
// positional slot in Children. Fixed-arity productions (a function's
// params/returnType/body, a class's extends/implements/body) use this
// instead of AddChild so a missing optional piece still occupies its
// index — later phases and CodeGen address these children by position,
// not by a compacted count.
func (n *Node) AddOptionalChild(child *Node) {
	n.Children = append(n.Children, child)
	if child != nil {
		child.Parent = n
	}
	n.SyncBinary()
}

// SetChildren replaces the child list wholesale, reparenting every child
// and refreshing Left/Right. Use after any direct mutation of Children.
func (n *Node) SetChildren(children []*Node) {
	n.Children = children
	for _, c := range children {
		if c != nil {
			c.Parent = n
		}
	}
	n.SyncBinary()
}

// SyncBinary restores the invariant Left == Children[0] / Right ==
// Children[1]. Call after any direct slice
// mutation that bypasses AddChild/SetChildren.
func (n *Node) SyncBinary() {
	n.Left = nil
	n.Right = nil
	if len(n.Children) > 0 {
		n.Left = n.Children[0]
	}
	if len(n.Children) > 1 {
		n.Right = n.Children[1]
	}
}

// ReplaceChild swaps the child at index i, reparenting the new node and
// refreshing Left/Right. Used by rewrites such as while→for and a OP= b →
// a = a OP b where the LHS subtree must be shared, not
// duplicated — callers that need sharing pass the same *Node into two
// positions rather than cloning it.
func (n *Node) ReplaceChild(i int, child *Node) {
	if i < 0 || i >= len(n.Children) {
		return
	}
	n.Children[i] = child
	if child != nil {
		child.Parent = n
	}
	n.SyncBinary()
}

// Steal detaches child from its current parent's Children list and returns
// it, for ownership-transfer across a popped State frame.
func Steal(child *Node) *Node {
	if child == nil || child.Parent == nil {
		return child
	}
	parent := child.Parent
	for i, c := range parent.Children {
		if c == child {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			parent.SyncBinary()
			break
		}
	}
	child.Parent = nil
	return child
}

// Walk calls visit for n and every descendant, in pre-order. Kind-specific
// processors switch on n.Kind inside visit rather than needing a generated
// per-type walker.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}
