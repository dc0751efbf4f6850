// Package codegen walks a bound AST once per source file, emitting
// stack-based bytecode into per-function code buffers.
// This file is the Generator's orchestration: one long-lived Generator
// per file, one fnState per function body under construction.
package codegen

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/errors"
)

// ValueUse tells an expression emitter what the caller needs done with
// the value it produces: an explicit parameter threaded through every
// emitter call rather than an implicit compiler-state flag.
type ValueUse int

const (
	// Discarded means the expression's value is never used; a
	// statement-position call then emits neither OpPushResult nor OpPop.
	Discarded ValueUse = iota
	// Consumed means the value feeds directly into an enclosing
	// expression (an operand, an argument, a condition).
	Consumed
	// Returned means the value is the tail expression of a function body
	// that may fold straight into OpReturnValue.
	Returned
)

// Function is one compiled function's output: its code buffer plus the
// layout metadata the module writer needs.
type Function struct {
	Name          string
	Node          *ast.Node
	Buf           *Buffer
	NumParams     int
	NumDefaults   int
	HasRest       bool
	NumLocalSlots int
	IsStatic      bool
	IsConstructor bool
}

// Class is one compiled class's output.
type Class struct {
	Name              string
	Node              *ast.Node
	InstanceSlotCount int
	StaticSlotCount   int
	Constructor       *Function
	Methods           []*Function
}

// Module is everything one source file compiles to, ready for
// internal/module's binary writer.
type Module struct {
	Name        string
	Init        *Function
	Functions   []*Function
	Classes     []*Class
	GlobalSlots int
	Names       []string
}

// Generator compiles one bound, erased AST (the output of
// internal/semantic's five phases) into a Module. It owns the global
// slot table and the per-class layout cache; each function gets its own
// fnState and code Buffer. Bind already resolved every reference to a
// Lookup before CodeGen runs, so no enclosing-compiler chain is needed
// to reach outer locals.
type Generator struct {
	status *errors.Status
	file   string

	optimize int // level >= 1 enables 8-bit short-jump selection

	st compstate.Stack

	globalSlots map[*ast.Node]int
	nextGlobal  int

	classLayouts map[*ast.Node]*classLayout

	// pool, when set, is the module's real constant pool and every name
	// operand is a pool offset; names/nameList are the provisional
	// fallback table used when no pool is attached (see dispatch.go).
	pool     NamePool
	names    map[string]int
	nameList []string

	// debug enables OpDebug source markers ahead of each statement on a
	// new source line.
	debug bool

	fn *fnState // the function currently being emitted

	// nestedClasses and nestedFunctions accumulate class/function
	// declarations found in statement position inside a function body
	// (not hoisted to module or class level); CompileModule drains them
	// into the Module alongside its top-level declarations.
	nestedClasses   []*ast.Node
	nestedFunctions []*Function
}

// NamePool interns strings and hands back a stable integer reference —
// implemented by internal/module's ConstantPool, declared here so the
// pool package stays a leaf CodeGen can depend on without a cycle.
type NamePool interface {
	Intern(name string) int
}

// UsePool attaches the module's constant pool; every subsequent name
// operand is emitted as a real pool offset.
func (g *Generator) UsePool(p NamePool) { g.pool = p }

// EnableDebug turns on OpDebug source-position markers.
func (g *Generator) EnableDebug() { g.debug = true }

// Names returns the provisional name table in index order, for the
// disassembler; empty when a real pool is attached.
func (g *Generator) Names() []string { return g.nameList }

// fnState is the per-function compile state: the code buffer under
// construction, its slot counters, and its loop-context stack.
type fnState struct {
	buf      *Buffer
	nextSlot int
	maxSlot  int
	loops    []*loopContext
	hasRest  bool

	// finallies is the stack of active finally bodies; a break/continue/
	// return emitted inside one of these regions must run the pending
	// finally code before jumping out.
	finallies []*ast.Node

	// debugLine is the last source line an OpDebug marker was emitted
	// for, so straight-line statements on one line share a marker.
	debugLine int
}

// loopContext tracks the jump lists a break/continue inside the current
// loop or switch must patch once the loop's end is known.
type loopContext struct {
	breakJumps    []int
	continueJumps []int
	breakWide     []bool
	continueWide  []bool
	breakMark     int
	finallyMark   int // fn.finallies depth at loop entry
	isSwitch      bool
	label         string
}

// NewGenerator creates a Generator for one file's compilation unit.
// optimize is the `-O` level; optimize >= 1 enables 8-bit short jumps.
func NewGenerator(file string, status *errors.Status, optimize int) *Generator {
	return &Generator{
		status:       status,
		file:         file,
		optimize:     optimize,
		globalSlots:  make(map[*ast.Node]int),
		classLayouts: make(map[*ast.Node]*classLayout),
	}
}

// errorf records a compile-time diagnostic at n's position.
func (g *Generator) errorf(n *ast.Node, msg string) {
	g.status.Add(errors.Diagnostic{
		Severity: errors.SeverityError,
		File:     g.file,
		Line:     n.Pos.Line,
		Column:   n.Pos.Column,
		Source:   n.Pos.Text,
		Message:  msg,
	})
}

// CompileModule compiles the top-level Program node into a Module: a
// synthesized module initializer running every top-level statement, plus
// one Function per top-level function declaration and one Class per
// top-level class declaration.
func (g *Generator) CompileModule(prog *ast.Node, name string) *Module {
	mod := &Module{Name: name}

	g.assignGlobalSlots(prog)

	init := g.newFunctionUnit(prog, "%init", false)
	for _, c := range prog.Children {
		if c == nil {
			continue
		}
		switch c.Kind {
		case ast.KindFunction:
			mod.Functions = append(mod.Functions, g.compileFunction(c))
		case ast.KindClass:
			mod.Classes = append(mod.Classes, g.compileClass(c))
		default:
			g.emitStmt(c, Discarded)
		}
	}
	g.fn.buf.Emit(OpReturn)
	init.Buf = g.fn.buf
	init.NumLocalSlots = g.fn.maxSlot
	mod.Init = init

	// Drain any class/function declarations found in statement position
	// (inside the init body or inside a nested function already
	// compiled above); draining in a loop lets a nested class's own
	// nested declarations surface in turn.
	for len(g.nestedClasses) > 0 || len(g.nestedFunctions) > 0 {
		classes, fns := g.nestedClasses, g.nestedFunctions
		g.nestedClasses, g.nestedFunctions = nil, nil
		for _, c := range classes {
			mod.Classes = append(mod.Classes, g.compileClass(c))
		}
		mod.Functions = append(mod.Functions, fns...)
	}

	mod.GlobalSlots = g.nextGlobal
	mod.Names = g.Names()
	return mod
}

// assignGlobalSlots gives every top-level var/let/const, function, and
// class declaration a module-global slot, in declaration order.
func (g *Generator) assignGlobalSlots(prog *ast.Node) {
	for _, c := range prog.Children {
		if c == nil {
			continue
		}
		switch c.Kind {
		case ast.KindFunction, ast.KindClass:
			g.defineGlobal(c)
		case ast.KindVarDefinition:
			g.defineGlobal(c)
		case ast.KindDirectives:
			for _, v := range c.Children {
				if v != nil && v.Kind == ast.KindVarDefinition {
					g.defineGlobal(v)
				}
			}
		}
	}
}

func (g *Generator) defineGlobal(n *ast.Node) int {
	if slot, ok := g.globalSlots[n]; ok {
		return slot
	}
	slot := g.nextGlobal
	g.nextGlobal++
	g.globalSlots[n] = slot
	if n.Lookup == nil {
		n.Lookup = &ast.Lookup{}
	}
	n.Lookup.SlotNum = slot
	return slot
}

// newFunctionUnit pushes a fresh fnState/Buffer and compstate.State frame
// for one function body, making it the active compile target.
func (g *Generator) newFunctionUnit(node *ast.Node, name string, isStatic bool) *Function {
	g.fn = &fnState{buf: NewBuffer(0)}
	g.st.Push(func(s *compstate.State) {
		s.FunctionNode = node
		s.InFunction = true
		s.Code = g.fn.buf
		s.BreakMark = 0
	})
	return &Function{Name: name, Node: node, IsStatic: isStatic}
}

// compileFunction compiles fn's params and body into a Function,
// restoring the enclosing fnState/State frame afterward.
func (g *Generator) compileFunction(fn *ast.Node) *Function {
	outerFn := g.fn
	isStatic := fn.Attrs&ast.AttrStatic != 0
	name := fn.QName.Name
	unit := g.newFunctionUnit(fn, name, isStatic)

	params := fn.Children[0]
	numDefaults := 0
	for _, p := range params.Children {
		if p == nil {
			continue
		}
		g.assignLocalSlot(p)
		if p.HasFlag(ast.FlagIsRest) {
			g.fn.hasRest = true
		}
		if len(p.Children) > 1 && p.Children[1] != nil {
			numDefaults++
		}
	}
	unit.NumParams = len(params.Children)
	unit.NumDefaults = numDefaults
	unit.HasRest = g.fn.hasRest

	g.emitDefaultArgs(params)

	if len(fn.Children) > 2 && fn.Children[2] != nil {
		g.assignBlockLocalSlots(fn.Children[2])
		g.emitFunctionBody(fn.Children[2])
	}
	g.fn.buf.Emit(OpLoadUndefined)
	g.fn.buf.Emit(OpReturnValue)

	unit.Buf = g.fn.buf
	unit.NumLocalSlots = g.fn.maxSlot

	g.st.Pop()
	g.fn = outerFn
	return unit
}

// emitFunctionBody emits every statement of a function's body block as
// Discarded; a body that falls off its end reaches the
// OpLoadUndefined/OpReturnValue pair compileFunction appends.
func (g *Generator) emitFunctionBody(body *ast.Node) {
	for _, c := range body.Children {
		if c == nil {
			continue
		}
		g.emitStmt(c, Discarded)
	}
}

// emitDefaultArgs emits the InitDefaultArgs jump table for a parameter
// list whose trailing parameters have `= default` initializers. The table
// has one entry per parameter with a default; parameters without one and
// rest parameters get no entry.
func (g *Generator) emitDefaultArgs(params *ast.Node) {
	type def struct {
		slot int
		expr *ast.Node
	}
	var defaults []def
	for _, p := range params.Children {
		if p == nil || p.HasFlag(ast.FlagIsRest) {
			continue
		}
		if len(p.Children) > 1 && p.Children[1] != nil {
			defaults = append(defaults, def{slot: p.Lookup.SlotNum, expr: p.Children[1]})
		}
	}
	if len(defaults) == 0 {
		return
	}
	// Build each initializer in its own segment first so the jump table
	// can carry one byte-length per entry: the VM indexes the table by
	// how many arguments were actually supplied and skips the
	// initializers of parameters that already have values.
	segments := make([]*Buffer, len(defaults))
	for i, d := range defaults {
		seg := g.fn.buf.Child()
		g.withBuffer(seg, func() {
			g.emitExpr(d.expr, Consumed)
			g.fn.buf.EmitOperand(OpPutLocalSlot, int64(d.slot))
		})
		segments[i] = seg
	}
	wide := len(defaults) > 8 || g.optimize < 1
	op := OpInitDefaultArgs
	if !wide {
		op = OpInitDefaultArgs8
	}
	operands := make([]int64, 0, len(defaults)+1)
	operands = append(operands, int64(len(defaults)))
	for _, seg := range segments {
		operands = append(operands, int64(seg.Len()))
	}
	g.fn.buf.EmitOperands(op, operands...)
	for _, seg := range segments {
		g.fn.buf.Append(seg)
	}
}

// compileClass compiles a class declaration into a Class, laying out
// instance/static slots (continuing from the base class's layout, if
// any) and compiling every field initializer and method.
func (g *Generator) compileClass(cls *ast.Node) *Class {
	layout := g.getClassLayout(cls)
	out := &Class{
		Name:              cls.QName.Name,
		Node:              cls,
		InstanceSlotCount: layout.instanceSlots,
		StaticSlotCount:   layout.staticSlots,
	}
	body := cls.Children[len(cls.Children)-1]
	if body == nil {
		return out
	}
	for _, m := range ClassMembers(body) {
		if m.Kind != ast.KindFunction {
			continue
		}
		fn := g.compileFunction(m)
		if m.QName.Name == cls.QName.Name {
			fn.IsConstructor = true
			out.Constructor = fn
		} else {
			out.Methods = append(out.Methods, fn)
		}
	}
	return out
}
