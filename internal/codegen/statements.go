// Statement emitters: one method per AST statement shape, with a loop
// stack of jump lists patched once each loop's extent is known.
package codegen

import "github.com/ejscript/ejsc/internal/ast"

// emitStmt dispatches on n.Kind to the matching statement emitter. use
// only matters for the expression-statement fallback case; every other
// statement shape has no value of its own.
func (g *Generator) emitStmt(n *ast.Node, use ValueUse) {
	if n == nil || n.Disabled {
		return
	}
	g.emitDebugMarker(n)
	switch n.Kind {
	case ast.KindBlock, ast.KindDirectives, ast.KindModule:
		for _, c := range n.Children {
			g.emitStmt(c, Discarded)
		}
	case ast.KindNop, ast.KindUseNamespace, ast.KindUseModule, ast.KindPragma,
		ast.KindEndFunction:
		// No runtime effect once Bind/Erase have run; `use namespace`'s
		// open-set effect is compile-time only.
	case ast.KindVarDefinition:
		g.emitVarDefinition(n)
	case ast.KindIf:
		g.emitIf(n)
	case ast.KindFor:
		g.emitFor(n)
	case ast.KindForIn:
		g.emitForIn(n)
	case ast.KindSwitch:
		g.emitSwitch(n)
	case ast.KindTry:
		g.emitTry(n)
	case ast.KindThrow:
		g.emitExpr(n.Children[0], Consumed)
		g.fn.buf.Emit(OpThrow)
	case ast.KindWith:
		g.emitWith(n)
	case ast.KindBreak:
		g.emitBreak(n)
	case ast.KindContinue:
		g.emitContinue(n)
	case ast.KindReturn:
		g.emitReturn(n)
	case ast.KindClass:
		// A nested class declaration inside a function body; top-level
		// classes are compiled separately by CompileModule.
		g.compileNestedClass(n)
	case ast.KindFunction:
		g.emitFunctionExpressionStatement(n)
	default:
		g.emitExprStmt(n)
	}
}

// emitDebugMarker emits an OpDebug position marker (filename ref, line,
// source-line ref) ahead of the first statement on each new source line
// when the debug option is on. Structural wrappers carry their children's positions, not a
// statement of their own, so they are skipped.
func (g *Generator) emitDebugMarker(n *ast.Node) {
	if !g.debug || n.Pos.Line == 0 || n.Pos.Line == g.fn.debugLine {
		return
	}
	switch n.Kind {
	case ast.KindBlock, ast.KindDirectives, ast.KindNop:
		return
	}
	g.fn.debugLine = n.Pos.Line
	g.fn.buf.EmitOperands(OpDebug,
		int64(g.internName(n.Pos.File)), int64(n.Pos.Line), int64(g.internName(n.Pos.Text)))
}

// emitExprStmt evaluates an expression for its side effects only,
// discarding whatever it leaves on the operand stack.
func (g *Generator) emitExprStmt(n *ast.Node) {
	before := g.fn.buf.StackDepth
	g.emitExpr(n, Discarded)
	excess := g.fn.buf.StackDepth - before
	if excess > 0 {
		g.fn.buf.PopItems(excess)
	}
}

// emitVarDefinition emits the initializer (if any) and stores it into
// the declaration's already-assigned slot; a `var a, b = 1;` group
// arrives as separate VarDefinition siblings under a Directives node and
// is handled one at a time by the KindDirectives case.
func (g *Generator) emitVarDefinition(n *ast.Node) {
	if len(n.Children) < 2 || n.Children[1] == nil {
		return
	}
	g.emitExpr(n.Children[1], Consumed)
	// A module-level declaration stores to its global slot;
	// function-local ones use the frame slot assigned when the body's
	// declarations were walked. A declaration neither pass saw (a var
	// hoisted out of a nested block in the initializer) claims a frame
	// slot on first sight.
	if slot, ok := g.globalSlots[n]; ok {
		if slot > maxBoundSlot {
			g.fn.buf.EmitEffect(OpPutGlobalByName, -1, int64(g.internName(n.QName.Name)))
			return
		}
		g.fn.buf.EmitOperand(OpPutGlobalSlot, int64(slot))
		return
	}
	if n.Lookup == nil {
		g.assignLocalSlot(n)
	}
	g.fn.buf.EmitOperand(OpPutLocalSlot, int64(n.Lookup.SlotNum))
}

// emitIf builds the then/else segments in child buffers first so their
// byte length is known before choosing the 8-bit vs. 32-bit branch form,
// then splices them into the current buffer.
func (g *Generator) emitIf(n *ast.Node) {
	cond, then := n.Children[0], n.Children[1]
	var els *ast.Node
	if len(n.Children) > 2 {
		els = n.Children[2]
	}

	g.emitExpr(cond, Consumed)

	// Each segment runs after the branch has consumed the condition, so
	// a child starts one below the current tracked depth.
	thenBuf := g.fn.buf.Child()
	thenBuf.StackDepth--
	g.withBuffer(thenBuf, func() { g.emitStmt(then, Discarded) })

	var elseBuf *Buffer
	if els != nil {
		elseBuf = g.fn.buf.Child()
		elseBuf.StackDepth--
		g.withBuffer(elseBuf, func() { g.emitStmt(els, Discarded) })
	}

	// The else segment (if any) needs an unconditional jump past the
	// then segment at the end of then, measured before committing either
	// segment so the short-jump choice accounts for it.
	thenJumpWide := elseBuf != nil && (elseBuf.Len() >= 0x7F || g.optimize < 1)
	condWide := thenBuf.Len() >= 0x7F || g.optimize < 1

	branchOffset := g.fn.buf.EmitBranchFalse(condWide)
	base := g.fn.buf.Append(thenBuf)

	if elseBuf == nil {
		g.fn.buf.Patch(branchOffset, condWide, g.fn.buf.Len())
		g.fn.buf.StackDepth = thenBuf.StackDepth
		return
	}

	skipElseOffset := g.fn.buf.EmitGoto(thenJumpWide)
	g.fn.buf.Patch(branchOffset, condWide, g.fn.buf.Len())
	g.fn.buf.Append(elseBuf)
	g.fn.buf.Patch(skipElseOffset, thenJumpWide, g.fn.buf.Len())
	_ = base

	// Both arms must converge on the same stack depth; Append already
	// propagated the else segment's depth forward as the final depth.
	if thenBuf.StackDepth != elseBuf.StackDepth {
		g.errorf(n, "if/else branches leave mismatched operand stack depth")
	}
}

// withBuffer temporarily redirects emission into buf, inheriting the
// loop stack (break/continue targets recorded from a then/else/case
// segment still need to land in the spliced, final buffer's coordinate
// space — callers rebase any jump offset recorded inside buf by the base
// Append returns).
func (g *Generator) withBuffer(buf *Buffer, body func()) {
	outer := g.fn.buf
	g.fn.buf = buf
	body()
	g.fn.buf = outer
}

// emitFor compiles the canonical for-shape (while/do-while already
// rewritten to it by the parser) plus the `do` back-edge test variant.
func (g *Generator) emitFor(n *ast.Node) {
	init, cond, perLoop, body := n.Children[0], n.Children[1], n.Children[2], n.Children[3]
	isDo := n.Text == "do"

	if init != nil {
		g.emitStmt(init, Discarded)
	}

	lc := &loopContext{breakMark: g.fn.buf.StackDepth, finallyMark: len(g.fn.finallies)}
	g.fn.loops = append(g.fn.loops, lc)

	startOffset := g.fn.buf.Len()
	var condJump int
	hasCondJump := false
	if !isDo && cond != nil {
		g.emitExpr(cond, Consumed)
		condJump = g.fn.buf.EmitBranchFalse(true)
		hasCondJump = true
	}

	bodyStart := g.fn.buf.Len()
	g.emitStmt(body, Discarded)
	continueTarget := g.fn.buf.Len()
	if perLoop != nil {
		g.emitExprStmt(perLoop)
	}

	if isDo {
		if cond != nil {
			g.emitExpr(cond, Consumed)
			backJump := g.fn.buf.EmitBranchTrue(true)
			g.fn.buf.Patch(backJump, true, bodyStart)
		} else {
			backJump := g.fn.buf.EmitGoto(true)
			g.fn.buf.Patch(backJump, true, bodyStart)
		}
	} else {
		backJump := g.fn.buf.EmitGoto(true)
		g.fn.buf.Patch(backJump, true, startOffset)
	}

	end := g.fn.buf.Len()
	if hasCondJump {
		g.fn.buf.Patch(condJump, true, end)
	}
	g.patchLoopJumps(lc, end, continueTarget)
	g.fn.loops = g.fn.loops[:len(g.fn.loops)-1]
}

// emitForIn compiles `for (x in rhs) body` / `for each (x in rhs) body`
// as the iterator protocol (`.get`/`.getValues` under
// the `iterator` namespace), driven by a StopIteration-flagged exception
// region rather than a length check, since Ejscript iterators are
// generator-shaped rather than index-shaped.
func (g *Generator) emitForIn(n *ast.Node) {
	target, rhs, body := n.Children[0], n.Children[1], n.Children[2]
	method := "get"
	if n.Text == "each" {
		method = "getValues"
	}

	iterSlot := g.newSyntheticSlot()
	g.emitExpr(rhs, Consumed)
	g.fn.buf.EmitEffect(OpCallObjName, -1, int64(g.internName(method)), 0)
	g.fn.buf.Emit(OpPushResult)
	g.fn.buf.EmitOperand(OpPutLocalSlot, int64(iterSlot))

	lc := &loopContext{breakMark: g.fn.buf.StackDepth, finallyMark: len(g.fn.finallies)}
	g.fn.loops = append(g.fn.loops, lc)

	tryStart := g.fn.buf.Len()
	emitSlot10(g.fn.buf, iterSlot, OpGetLocalSlot0, OpGetLocalSlot)
	g.fn.buf.EmitEffect(OpCallObjName, -1, int64(g.internName("next")), 0)
	g.fn.buf.Emit(OpPushResult)
	// The iteration record covers only the `next` dispatch, so a
	// StopIteration escaping user code in the body still propagates.
	tryEnd := g.fn.buf.Len()
	g.emitForInStore(target)

	g.emitStmt(body, Discarded)
	backJump := g.fn.buf.EmitGoto(true)
	g.fn.buf.Patch(backJump, true, tryStart)

	handlerStart := g.fn.buf.Len()
	// The VM trims the stack to the loop's depth and pushes the
	// StopIteration value before entering the handler.
	loopDepth := g.fn.buf.StackDepth
	g.fn.buf.StackDepth++
	g.fn.buf.Emit(OpPop) // discard the StopIteration exception value
	handlerEnd := g.fn.buf.Len()
	g.fn.buf.Exceptions = append(g.fn.buf.Exceptions, ExceptionRecord{
		TryStart: tryStart, TryEnd: tryEnd,
		HandlerStart: handlerStart, HandlerEnd: handlerEnd,
		NumStack: loopDepth,
		Flags:    ExceptionIteration,
	})

	end := g.fn.buf.Len()
	g.patchLoopJumps(lc, end, tryStart)
	g.fn.loops = g.fn.loops[:len(g.fn.loops)-1]
}

// emitForInStore assigns the per-iteration value into the loop's target,
// which is either a bare QName (`for (x in y)`) or a fresh `var`/`let`
// declaration (`for (var x in y)`, already slot-assigned).
func (g *Generator) emitForInStore(target *ast.Node) {
	if target.Kind == ast.KindVarDefinition {
		if target.Lookup == nil {
			g.assignLocalSlot(target)
		}
		g.fn.buf.EmitOperand(OpPutLocalSlot, int64(target.Lookup.SlotNum))
		return
	}
	g.emitStoreName(target)
}

// emitSwitch emits a chain of strict-equality tests against the
// discriminant (standard JS fallthrough semantics: control falls into
// the next case's body unless that case ends in its own break).
func (g *Generator) emitSwitch(n *ast.Node) {
	disc, cases := n.Children[0], n.Children[1]
	g.emitExpr(disc, Consumed)

	lc := &loopContext{breakMark: g.fn.buf.StackDepth - 1, isSwitch: true, finallyMark: len(g.fn.finallies)}
	g.fn.loops = append(g.fn.loops, lc)

	var testJumps []int
	var defaultIndex = -1
	for i, c := range cases.Children {
		if c == nil || c.Children[0] == nil {
			defaultIndex = i
			testJumps = append(testJumps, -1)
			continue
		}
		g.fn.buf.Emit(OpDup)
		g.emitExpr(c.Children[0], Consumed)
		g.fn.buf.Emit(OpStrictEqual)
		testJumps = append(testJumps, g.fn.buf.EmitBranchTrue(true))
	}
	defaultJump := -1
	if defaultIndex >= 0 {
		defaultJump = g.fn.buf.EmitGoto(true)
	} else {
		defaultJump = g.fn.buf.EmitGoto(true)
	}

	for i, c := range cases.Children {
		if testJumps[i] >= 0 {
			g.fn.buf.Patch(testJumps[i], true, g.fn.buf.Len())
		}
		if i == defaultIndex {
			g.fn.buf.Patch(defaultJump, true, g.fn.buf.Len())
		}
		g.fn.buf.Emit(OpPop) // discriminant no longer needed once a case matches
		for _, stmt := range c.Children[1].Children {
			g.emitStmt(stmt, Discarded)
		}
		// Re-push a placeholder on the fallthrough path: the next case
		// body starts with the Pop that drops the discriminant on a
		// match, so falling into it drops this placeholder instead.
		if i != len(cases.Children)-1 {
			g.fn.buf.Emit(OpLoadUndefined)
		}
	}
	if defaultIndex < 0 {
		g.fn.buf.Patch(defaultJump, true, g.fn.buf.Len())
		// This Pop only runs on the no-match path, where the discriminant
		// is still on the stack; the fallthrough path already popped it,
		// so the tracked depth stays as-is.
		g.fn.buf.EmitEffect(OpPop, 0)
	}

	end := g.fn.buf.Len()
	g.patchLoopJumps(lc, end, end)
	g.fn.loops = g.fn.loops[:len(g.fn.loops)-1]
}

// emitTry compiles try/catch/finally into separate buffers, recording an
// ExceptionRecord per catch clause plus one ExceptionFinally record if a
// finally block is present.
func (g *Generator) emitTry(n *ast.Node) {
	tryBlock := n.Children[0]
	var catches, finallyBlock *ast.Node
	idx := 1
	if idx < len(n.Children) && n.Children[idx] != nil && n.Children[idx].Kind == ast.KindCatchClauses {
		catches = n.Children[idx]
		idx++
	}
	if idx < len(n.Children) {
		finallyBlock = n.Children[idx]
	}

	if finallyBlock != nil {
		g.fn.finallies = append(g.fn.finallies, finallyBlock)
	}
	entryDepth := g.fn.buf.StackDepth
	tryStart := g.fn.buf.Len()
	g.emitStmt(tryBlock, Discarded)
	if finallyBlock != nil {
		g.runFinalliesTo(len(g.fn.finallies) - 1)
		g.fn.buf.Emit(OpEndException)
	}
	tryEnd := g.fn.buf.Len()
	endJump := g.fn.buf.EmitGoto(true)

	var skipJumps []int
	if catches != nil {
		for _, c := range catches.Children {
			if c == nil {
				continue
			}
			handlerStart := g.fn.buf.Len()
			arg := c.Children[0]
			g.fn.buf.Emit(OpPushCatchArg)
			if arg != nil {
				if arg.Lookup == nil {
					g.assignLocalSlot(arg)
				}
				g.fn.buf.EmitOperand(OpPutLocalSlot, int64(arg.Lookup.SlotNum))
			} else {
				g.fn.buf.Emit(OpPop)
			}
			g.emitStmt(c.Children[1], Discarded)
			if finallyBlock != nil {
				g.runFinalliesTo(len(g.fn.finallies) - 1)
				g.fn.buf.Emit(OpEndException)
			}
			handlerEnd := g.fn.buf.Len()
			var catchType any
			if arg != nil && len(arg.Children) > 0 {
				catchType = arg.Children[0]
			}
			g.fn.buf.Exceptions = append(g.fn.buf.Exceptions, ExceptionRecord{
				TryStart: tryStart, TryEnd: tryEnd,
				HandlerStart: handlerStart, HandlerEnd: handlerEnd,
				NumStack: entryDepth,
				Flags:    ExceptionCatch, CatchType: catchType,
			})
			if c != catches.Children[len(catches.Children)-1] {
				skipJumps = append(skipJumps, g.fn.buf.EmitGoto(true)) // skip remaining catch clauses once one handles it
			}
		}
	}
	if finallyBlock != nil {
		g.fn.finallies = g.fn.finallies[:len(g.fn.finallies)-1]
		g.fn.buf.Exceptions = append(g.fn.buf.Exceptions, ExceptionRecord{
			TryStart: tryStart, TryEnd: tryEnd,
			HandlerStart: tryEnd, HandlerEnd: g.fn.buf.Len(),
			NumStack: entryDepth,
			Flags:    ExceptionFinally,
		})
	}
	for _, off := range skipJumps {
		g.fn.buf.Patch(off, true, g.fn.buf.Len())
	}
	g.fn.buf.Patch(endJump, true, g.fn.buf.Len())
}

// runFinalliesTo emits the pending finally regions from innermost down
// to (and including) mark: each gets an OpFinally marker followed by its
// body inline, with that entry deactivated while its own body emits so a
// jump inside a finally doesn't re-run it.
func (g *Generator) runFinalliesTo(mark int) {
	for i := len(g.fn.finallies) - 1; i >= mark && i >= 0; i-- {
		body := g.fn.finallies[i]
		g.fn.buf.Emit(OpFinally)
		saved := g.fn.finallies
		g.fn.finallies = saved[:i]
		g.emitStmt(body, Discarded)
		g.fn.finallies = saved
	}
}

// emitWith widens the scope chain with obj's own properties for body's
// extent; OpPushWith/OpPopWith bracket it so a bare QName
// lookup inside body still falls back to *ByName resolution against the
// widened chain at runtime, since Bind cannot statically know whether a
// name resolves against obj or the enclosing scope.
func (g *Generator) emitWith(n *ast.Node) {
	obj, body := n.Children[0], n.Children[1]
	g.emitExpr(obj, Consumed)
	g.fn.buf.Emit(OpPushWith)
	g.emitStmt(body, Discarded)
	g.fn.buf.Emit(OpPopWith)
}

func (g *Generator) emitBreak(n *ast.Node) {
	lc := g.findLoop(n.Text)
	if lc == nil {
		g.errorf(n, "break outside a loop or switch")
		return
	}
	g.runFinalliesTo(lc.finallyMark)
	g.fn.buf.PopItems(g.fn.buf.StackDepth - lc.breakMark)
	wide := true
	off := g.fn.buf.EmitGoto(wide)
	lc.breakJumps = append(lc.breakJumps, off)
	lc.breakWide = append(lc.breakWide, wide)
}

func (g *Generator) emitContinue(n *ast.Node) {
	lc := g.findLoop(n.Text)
	if lc == nil || lc.isSwitch {
		g.errorf(n, "continue outside a loop")
		return
	}
	g.runFinalliesTo(lc.finallyMark)
	g.fn.buf.PopItems(g.fn.buf.StackDepth - lc.breakMark)
	wide := true
	off := g.fn.buf.EmitGoto(wide)
	lc.continueJumps = append(lc.continueJumps, off)
	lc.continueWide = append(lc.continueWide, wide)
}

// findLoop returns the nearest enclosing loop (any loop, for a bare
// break/continue) or the named one.
func (g *Generator) findLoop(label string) *loopContext {
	for i := len(g.fn.loops) - 1; i >= 0; i-- {
		if label == "" || g.fn.loops[i].label == label {
			return g.fn.loops[i]
		}
	}
	return nil
}

func (g *Generator) patchLoopJumps(lc *loopContext, breakTarget, continueTarget int) {
	for i, off := range lc.breakJumps {
		g.fn.buf.Patch(off, lc.breakWide[i], breakTarget)
	}
	for i, off := range lc.continueJumps {
		g.fn.buf.Patch(off, lc.continueWide[i], continueTarget)
	}
}

func (g *Generator) emitReturn(n *ast.Node) {
	if len(n.Children) > 0 && n.Children[0] != nil {
		g.emitExpr(n.Children[0], Returned)
		g.runFinalliesTo(0)
		g.fn.buf.Emit(OpReturnValue)
		return
	}
	g.runFinalliesTo(0)
	g.fn.buf.Emit(OpReturn)
}

// compileNestedClass compiles a function-body-local class declaration.
// It is appended to the enclosing Generator's module-level class list by
// the caller driving CompileModule; a bare Generator.emitStmt call site
// has no module to append to, so nested classes are recorded via
// g.nestedClasses and drained by CompileModule after the top-level walk.
func (g *Generator) compileNestedClass(n *ast.Node) {
	g.nestedClasses = append(g.nestedClasses, n)
	g.fn.buf.EmitOperand(OpDefineClass, int64(g.internName(n.QName.Name)))
}

// emitFunctionExpressionStatement handles a function declaration that
// appears in statement position inside a block (not hoisted to module
// or class level): it is compiled once and attached to its slot via
// OpDefineFunction.
func (g *Generator) emitFunctionExpressionStatement(n *ast.Node) {
	fn := g.compileFunction(n)
	g.nestedFunctions = append(g.nestedFunctions, fn)
	slot := g.defineGlobal(n)
	g.fn.buf.EmitOperands(OpDefineFunction, int64(slot), 0)
}
