// Package compstate defines the shared compile-state frame. The same
// schema is pushed/popped by the parser (by the productions that change a
// state field, not by every production) and by CodeGen (one frame per
// function unit); the AstProcessor's Context carries a stack of these
// frames that its phases do not push. Each pass instantiates its own stack of
// these frames rather than sharing one stack instance across passes, since
// a parser's stack is fully unwound before semantic analysis begins.
// Fields that would otherwise force an import cycle (Module, Class,
// Function, Obj, Code) are typed `any`; owning packages store their own
// concrete type there and assert it back out. This mirrors the void*-style
// "universal substitution" the DESIGN NOTES call for when a host language
// feature (here: Go's lack of covariant embedding across packages without
// cycles) would obscure the port.
package compstate

import "github.com/ejscript/ejsc/internal/ast"

// Lang selects the ECMAScript dialect level.
type Lang int

const (
	LangECMA Lang = iota
	LangPlus
	LangFixed
)

// Mode selects standard vs strict binding mode.
type Mode int

const (
	ModeStandard Mode = iota
	ModeStrict
)

// State is one frame of the compile-state stack.
type State struct {
	Module   any
	Class    any
	Function any

	FunctionNode *ast.Node

	LetBlock          any
	VarBlock          any
	OptimizedLetBlock any
	LetBlockNode      *ast.Node
	CurrentObjectNode *ast.Node

	OnLeft     bool // assignment-target flag
	NeedsValue bool

	InstanceCode bool
	InClass      bool
	InFunction   bool
	InMethod     bool
	InInterface  bool
	InSettings   bool

	InHashExpression bool
	Disabled         bool // conditional-compilation disabled subtree
	Noin             bool // for-header mode: suppress `in` as an operator
	CaptureBreak     bool // break/continue/return inside try must emit Finally

	Namespace        string
	DefaultNamespace string

	Mode Mode
	Lang Lang

	BlockNestCount int

	Code      any // active code buffer (internal/codegen.Buffer)
	BreakMark int // stack depth recorded at the enclosing loop/switch entry

	Prev *State
}

// Stack is an owned stack of State frames. The zero value is an empty
// stack; callers normally start with Push(&State{}) for the root frame.
type Stack struct {
	top *State
}

// Push clones the current top frame, inheriting its fields, applies mutate to
// the clone, links Prev, and makes it the new top. mutate may be nil.
func (s *Stack) Push(mutate func(*State)) *State {
	var next State
	if s.top != nil {
		next = *s.top // shallow copy inherits all scalar/any fields
	}
	next.Prev = s.top
	if mutate != nil {
		mutate(&next)
	}
	s.top = &next
	return s.top
}

// Pop discards the top frame. No state leaks up on pop — callers that
// need a value out of the
// popped frame (e.g. a parsed subtree) must have captured it before
// calling Pop.
func (s *Stack) Pop() {
	if s.top != nil {
		s.top = s.top.Prev
	}
}

// Top returns the current frame, or nil if the stack is empty.
func (s *Stack) Top() *State { return s.top }

// Depth returns the number of frames currently pushed.
func (s *Stack) Depth() int {
	n := 0
	for f := s.top; f != nil; f = f.Prev {
		n++
	}
	return n
}
