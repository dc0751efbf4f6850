package codegen

import "github.com/ejscript/ejsc/internal/ast"

// emitExpr dispatches on n.Kind, leaving exactly one value on the operand
// stack unless use is Discarded, in which case some shapes (a call whose
// result nobody asked for) leave nothing at all rather than push-then-
// pop: OpPushResult is only emitted when the value is actually wanted.
func (g *Generator) emitExpr(n *ast.Node, use ValueUse) {
	if n == nil {
		g.fn.buf.Emit(OpLoadUndefined)
		return
	}
	switch n.Kind {
	case ast.KindLiteral:
		g.emitLiteral(n)
	case ast.KindQName:
		g.emitLoadName(n)
	case ast.KindThis:
		g.fn.buf.Emit(OpLoadThis)
	case ast.KindSuper:
		g.fn.buf.Emit(OpSuper)
	case ast.KindDot:
		g.emitDotLoad(n)
	case ast.KindCall:
		g.emitCall(n, use)
	case ast.KindNew:
		g.emitNew(n)
	case ast.KindAssignOp:
		g.emitAssign(n, use)
	case ast.KindBinaryOp:
		g.emitBinaryOp(n)
	case ast.KindUnaryOp:
		g.emitUnaryOp(n, use)
	case ast.KindPostfixOp:
		g.emitIncDec(n.Children[0], n.Op == "++", false, use)
	case ast.KindVoid:
		g.emitExprStmt(n.Children[0])
		g.fn.buf.Emit(OpLoadUndefined)
	case ast.KindObjectLiteral:
		g.emitObjectLiteral(n)
	case ast.KindArrayLiteral:
		g.emitArrayLiteral(n)
	case ast.KindIf:
		// The `cond ? then : else` ternary arrives tagged Op == "?:" on an
		// If node; it is the one place an If shape is an
		// expression rather than a statement.
		g.emitTernary(n)
	case ast.KindFunction:
		g.emitFunctionExpression(n)
	case ast.KindNop:
		g.fn.buf.Emit(OpLoadUndefined)
	default:
		g.errorf(n, "unsupported expression kind "+n.Kind.String())
		g.fn.buf.Emit(OpLoadUndefined)
	}
}

// emitFunctionExpression compiles a function literal in expression
// position. The compiled body joins the module's function list under a
// fresh global slot, and the expression's value is the function loaded
// from that slot — a closure over enclosing locals is not captured
// (module-level and global references still resolve), recorded as a
// documented gap in DESIGN.md.
func (g *Generator) emitFunctionExpression(n *ast.Node) {
	fn := g.compileFunction(n)
	g.nestedFunctions = append(g.nestedFunctions, fn)
	slot := g.defineGlobal(n)
	g.fn.buf.EmitOperand(OpGetGlobalSlot, int64(slot))
}

// emitLiteral picks the narrowest literal opcode for n.Literal's dynamic
// value.
func (g *Generator) emitLiteral(n *ast.Node) {
	switch v := n.Literal.(type) {
	case nil:
		g.fn.buf.Emit(OpLoadNull)
	case bool:
		if v {
			g.fn.buf.Emit(OpLoadTrue)
		} else {
			g.fn.buf.Emit(OpLoadFalse)
		}
	case float64:
		if v == float64(int64(v)) && v >= 0 && v <= 9 {
			g.fn.buf.Emit(OpLoad0 + OpCode(int64(v)))
			return
		}
		if v == float64(int64(v)) {
			g.fn.buf.EmitOperand(OpLoadInt, int64(v))
			return
		}
		g.fn.buf.EmitDouble(v)
	case string:
		// Regex and E4X literals are also lexed into a plain Go string
		// Literal payload with no distinguishing marker on the node
		// (parser/expressions.go's parseRegexLiteral/parseXMLLiteral);
		// both fall back to OpLoadString rather than OpLoadRegExp/OpLoadXML.
		g.fn.buf.EmitOperand(OpLoadString, int64(g.internName(v)))
	default:
		if n.Literal == ast.Undefined {
			g.fn.buf.Emit(OpLoadUndefined)
			return
		}
		g.fn.buf.Emit(OpLoadUndefined)
	}
}

// emitDotLoad reads a Dot node for its value. When the object's static
// type is known, the access binds: a type reference reads a static slot
// via OpGetTypeSlot (dispatch-preference step 6), a typed instance reads
// its property slot via OpGetObjSlot_k/OpGetObjSlot (step 7). Otherwise
// `obj.prop` resolves *ByName, and `obj[expr]` goes through
// OpGetElement.
func (g *Generator) emitDotLoad(n *ast.Node) {
	obj, member := n.Children[0], n.Children[1]
	g.emitExpr(obj, Consumed)
	if n.Op == "[]" {
		g.emitExpr(member, Consumed)
		g.fn.buf.Emit(OpGetElement)
		return
	}
	if cls, isTypeRef := staticTypeOf(obj); cls != nil {
		if m, ok := g.findMember(cls, member.QName.Name, isTypeRef); ok {
			if isTypeRef {
				g.fn.buf.EmitOperands(OpGetTypeSlot, int64(m.Lookup.SlotNum), 0)
				return
			}
			emitSlot10(g.fn.buf, m.Lookup.SlotNum, OpGetObjSlot0, OpGetObjSlot)
			return
		}
	}
	g.fn.buf.EmitOperand(OpGetObjByName, int64(g.internName(member.QName.Name)))
}

// emitCall compiles a call expression. A method call through an explicit
// object (`obj.m(...)`) binds to OpCallObjStaticSlot/OpCallObjInstanceSlot
// when the receiver's class is statically known, falling back to
// OpCallObjName; `super(...)` invokes the base constructor; everything
// else (free functions, function-valued locals/globals/properties) loads
// the callee like any other expression and calls it with the generic
// OpCall, trading the dedicated OpCallGlobalSlot/OpCallThisSlot/...
// forms' operand-byte savings for one dispatch path robust to any callee
// shape (recorded in DESIGN.md).
func (g *Generator) emitCall(n *ast.Node, use ValueUse) {
	callee, args := n.Children[0], n.Children[1]
	argCount := len(args.Children)

	if callee.Kind == ast.KindSuper {
		for _, a := range args.Children {
			g.emitExpr(a, Consumed)
		}
		g.fn.buf.EmitEffect(OpCallNextConstructor, -argCount, int64(argCount))
		g.pushCallResult(use)
		return
	}

	if callee.Kind == ast.KindDot && callee.Op != "[]" {
		obj, member := callee.Children[0], callee.Children[1]
		g.emitExpr(obj, Consumed)
		for _, a := range args.Children {
			g.emitExpr(a, Consumed)
		}
		// A statically typed receiver dispatches through the bound slot:
		// OpCallObjStaticSlot for a type reference (preference step 6),
		// OpCallObjInstanceSlot for a typed instance (step 7). Anything
		// else stays a by-name method call.
		if cls, isTypeRef := staticTypeOf(obj); cls != nil {
			if m, ok := g.findMember(cls, member.QName.Name, isTypeRef); ok && m.Kind == ast.KindFunction {
				op := OpCallObjInstanceSlot
				if isTypeRef {
					op = OpCallObjStaticSlot
				}
				g.fn.buf.EmitEffect(op, -(argCount + 1), int64(m.Lookup.SlotNum), int64(argCount))
				g.pushCallResult(use)
				return
			}
		}
		g.fn.buf.EmitEffect(OpCallObjName, -(argCount + 1), int64(g.internName(member.QName.Name)), int64(argCount))
		g.pushCallResult(use)
		return
	}

	g.emitExpr(callee, Consumed)
	for _, a := range args.Children {
		g.emitExpr(a, Consumed)
	}
	g.fn.buf.EmitEffect(OpCall, -(argCount + 1), int64(argCount))
	g.pushCallResult(use)
}

// pushCallResult emits OpPushResult only when the caller actually wants
// the value, per the call-opcode convention documented on OpPushResult:
// a call that discards its result leaves nothing for a statement-level
// OpPop to undo.
func (g *Generator) pushCallResult(use ValueUse) {
	if use != Discarded {
		g.fn.buf.Emit(OpPushResult)
	}
}

// emitNew compiles `new Callee(args)`. The constructed type is named by
// operand, not pushed on the stack, so only a QName/Dot callee — the
// only shapes that resolve to a fixed type name — are supported; a
// computed callee is a static-binding gap this implementation doesn't
// attempt to close.
func (g *Generator) emitNew(n *ast.Node) {
	callee, args := n.Children[0], n.Children[1]
	name := calleeTypeName(callee)
	if name == "" {
		g.errorf(n, "new target must be a fixed type name")
		name = "?"
	}
	for _, a := range args.Children {
		g.emitExpr(a, Consumed)
	}
	g.fn.buf.EmitEffect(OpNew, 1-len(args.Children), int64(g.internName(name)), int64(len(args.Children)))
}

func calleeTypeName(n *ast.Node) string {
	switch n.Kind {
	case ast.KindQName:
		return n.QName.String()
	case ast.KindDot:
		if n.Op == "[]" {
			return ""
		}
		base := calleeTypeName(n.Children[0])
		if base == "" {
			return ""
		}
		return base + "." + n.Children[1].QName.Name
	}
	return ""
}

// emitAssign compiles `target = value` (compound forms already rewritten
// to this shape by the parser). A QName target stores in place with a Dup
// ahead of the store when the result is wanted, since every *Slot/*ByName
// store form pops exactly one value; a Dot target needs the object (and,
// for bracket access, the index) held across the store, so it stashes the
// value in a synthetic local instead of juggling the operand stack.
func (g *Generator) emitAssign(n *ast.Node, use ValueUse) {
	target, value := n.Children[0], n.Children[1]

	if target.Kind == ast.KindQName {
		g.emitExpr(value, Consumed)
		if use != Discarded {
			g.fn.buf.Emit(OpDup)
		}
		g.emitStoreName(target)
		return
	}

	if target.Kind != ast.KindDot {
		g.errorf(n, "invalid assignment target")
		g.emitExpr(value, use)
		return
	}

	obj := target.Children[0]
	if target.Op == "[]" {
		index := target.Children[1]
		tmpObj := g.newSyntheticSlot()
		tmpIdx := g.newSyntheticSlot()
		g.emitExpr(obj, Consumed)
		g.fn.buf.EmitOperand(OpPutLocalSlot, int64(tmpObj))
		g.emitExpr(index, Consumed)
		g.fn.buf.EmitOperand(OpPutLocalSlot, int64(tmpIdx))
		g.emitExpr(value, Consumed)
		tmpVal := g.newSyntheticSlot()
		g.fn.buf.EmitOperand(OpPutLocalSlot, int64(tmpVal))
		emitSlot10(g.fn.buf, tmpObj, OpGetLocalSlot0, OpGetLocalSlot)
		emitSlot10(g.fn.buf, tmpIdx, OpGetLocalSlot0, OpGetLocalSlot)
		emitSlot10(g.fn.buf, tmpVal, OpGetLocalSlot0, OpGetLocalSlot)
		g.fn.buf.EmitEffect(OpSetElement, -3)
		if use != Discarded {
			emitSlot10(g.fn.buf, tmpVal, OpGetLocalSlot0, OpGetLocalSlot)
		}
		return
	}

	member := target.Children[1]
	tmpObj := g.newSyntheticSlot()
	g.emitExpr(obj, Consumed)
	g.fn.buf.EmitOperand(OpPutLocalSlot, int64(tmpObj))
	g.emitExpr(value, Consumed)
	tmpVal := g.newSyntheticSlot()
	g.fn.buf.EmitOperand(OpPutLocalSlot, int64(tmpVal))
	emitSlot10(g.fn.buf, tmpObj, OpGetLocalSlot0, OpGetLocalSlot)
	emitSlot10(g.fn.buf, tmpVal, OpGetLocalSlot0, OpGetLocalSlot)
	g.emitMemberStore(obj, member)
	if use != Discarded {
		emitSlot10(g.fn.buf, tmpVal, OpGetLocalSlot0, OpGetLocalSlot)
	}
}

// emitMemberStore writes the [obj, value] pair on the stack into obj's
// member: through the bound static/instance slot when obj's static type
// is known (dispatch-preference steps 6/7), by name otherwise.
func (g *Generator) emitMemberStore(obj, member *ast.Node) {
	if cls, isTypeRef := staticTypeOf(obj); cls != nil {
		if m, ok := g.findMember(cls, member.QName.Name, isTypeRef); ok {
			if isTypeRef {
				g.fn.buf.EmitOperands(OpPutTypeSlot, int64(m.Lookup.SlotNum), 0)
				return
			}
			g.fn.buf.EmitOperand(OpPutObjSlot, int64(m.Lookup.SlotNum))
			return
		}
	}
	g.fn.buf.EmitOperand(OpPutObjByName, int64(g.internName(member.QName.Name)))
}

var binaryOps = map[string]OpCode{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod,
	"&": OpBitAnd, "|": OpBitOr, "^": OpBitXor, "<<": OpShl, ">>": OpShr, ">>>": OpSar,
	"==": OpEqual, "!=": OpNotEqual, "===": OpStrictEqual, "!==": OpStrictNotEqual,
	"<": OpLess, ">": OpGreater, "<=": OpLessEqual, ">=": OpGreaterEqual,
	"instanceof": OpInstanceOf, "in": OpIn,
	// `is`/`like` are type-relationship tests with no dedicated opcode in
	// this instruction set; both compile to the same runtime check as
	// `instanceof` (documented simplification; both are type tests).
	"is": OpInstanceOf, "like": OpInstanceOf,
}

// emitBinaryOp compiles a BinaryOp node. && and || short-circuit and so
// can't use the flat op-table lookup; every other operator maps straight
// to one opcode consuming both operands already on the stack.
func (g *Generator) emitBinaryOp(n *ast.Node) {
	left, right := n.Children[0], n.Children[1]
	switch n.Op {
	case "&&":
		g.emitShortCircuit(left, right, true)
		return
	case "||":
		g.emitShortCircuit(left, right, false)
		return
	}
	op, ok := binaryOps[n.Op]
	if !ok {
		g.errorf(n, "unsupported operator "+n.Op)
		g.fn.buf.Emit(OpLoadUndefined)
		return
	}
	g.emitExpr(left, Consumed)
	g.emitExpr(right, Consumed)
	g.fn.buf.Emit(op)
}

// emitShortCircuit compiles `left && right` (isAnd == true picks the
// BranchFalse-based lazy path) or `left || right`, leaving left's
// value in place when it already determines the result.
func (g *Generator) emitShortCircuit(left, right *ast.Node, isAnd bool) {
	g.emitExpr(left, Consumed)
	g.fn.buf.Emit(OpDup)
	var skip int
	if isAnd {
		skip = g.fn.buf.EmitBranchFalse(true)
	} else {
		skip = g.fn.buf.EmitBranchTrue(true)
	}
	g.fn.buf.Emit(OpPop)
	g.emitExpr(right, Consumed)
	g.fn.buf.Patch(skip, true, g.fn.buf.Len())
}

var unaryOps = map[string]OpCode{
	"-": OpNegate, "!": OpNot, "~": OpBitNot, "typeof": OpTypeOf,
}

// emitUnaryOp compiles a prefix UnaryOp node. `+x` has no dedicated
// opcode (numeric coercion happens implicitly wherever the value is next
// consumed), so it compiles to its operand unchanged. `delete` only
// makes sense applied to a Dot target; anything else is a parse-level
// error the parser itself should have already rejected.
func (g *Generator) emitUnaryOp(n *ast.Node, use ValueUse) {
	switch n.Op {
	case "++", "--":
		g.emitIncDec(n.Children[0], n.Op == "++", true, use)
		return
	case "+":
		g.emitExpr(n.Children[0], Consumed)
		return
	case "delete":
		g.emitDelete(n.Children[0])
		return
	}
	op, ok := unaryOps[n.Op]
	if !ok {
		g.errorf(n, "unsupported unary operator "+n.Op)
		g.fn.buf.Emit(OpLoadUndefined)
		return
	}
	g.emitExpr(n.Children[0], Consumed)
	g.fn.buf.Emit(op)
}

// emitDelete removes a property, leaving the boolean runtime result.
func (g *Generator) emitDelete(target *ast.Node) {
	if target.Kind != ast.KindDot {
		g.errorf(target, "delete target must be a property or element reference")
		g.fn.buf.Emit(OpLoadFalse)
		return
	}
	obj, member := target.Children[0], target.Children[1]
	g.emitExpr(obj, Consumed)
	if target.Op == "[]" {
		g.emitExpr(member, Consumed)
		g.fn.buf.Emit(OpDeleteElement)
		return
	}
	g.fn.buf.EmitEffect(OpDeleteProperty, 0, int64(g.internName(member.QName.Name)))
}

// emitIncDec compiles ++/-- for both prefix and postfix forms. A QName
// target never needs a synthetic slot: every store form pops exactly the
// one value it was given, so a Dup ahead of the store (prefix, new value)
// or ahead of the increment (postfix, old value) is enough. A Dot target
// needs the object (and index) held across both the read and the write,
// so it goes through temporaries the same way emitAssign's Dot path does.
func (g *Generator) emitIncDec(target *ast.Node, isIncrement, isPrefix bool, use ValueUse) {
	step := OpIncrement
	if !isIncrement {
		step = OpDecrement
	}

	if target.Kind == ast.KindQName {
		g.emitLoadName(target)
		if isPrefix {
			g.fn.buf.Emit(step)
			if use != Discarded {
				g.fn.buf.Emit(OpDup)
			}
			g.emitStoreName(target)
			return
		}
		if use != Discarded {
			g.fn.buf.Emit(OpDup)
		}
		g.fn.buf.Emit(step)
		g.emitStoreName(target)
		return
	}

	if target.Kind != ast.KindDot {
		g.errorf(target, "invalid increment/decrement target")
		g.fn.buf.Emit(OpLoadUndefined)
		return
	}

	obj := target.Children[0]
	tmpObj := g.newSyntheticSlot()
	g.emitExpr(obj, Consumed)
	g.fn.buf.EmitOperand(OpPutLocalSlot, int64(tmpObj))

	var tmpIdx = -1
	if target.Op == "[]" {
		tmpIdx = g.newSyntheticSlot()
		g.emitExpr(target.Children[1], Consumed)
		g.fn.buf.EmitOperand(OpPutLocalSlot, int64(tmpIdx))
	}

	loadObjIdx := func() {
		emitSlot10(g.fn.buf, tmpObj, OpGetLocalSlot0, OpGetLocalSlot)
		if tmpIdx >= 0 {
			emitSlot10(g.fn.buf, tmpIdx, OpGetLocalSlot0, OpGetLocalSlot)
		}
	}

	loadObjIdx()
	if target.Op == "[]" {
		g.fn.buf.Emit(OpGetElement)
	} else {
		g.fn.buf.EmitOperand(OpGetObjByName, int64(g.internName(target.Children[1].QName.Name)))
	}

	var tmpResult int
	if !isPrefix && use != Discarded {
		g.fn.buf.Emit(OpDup)
		tmpResult = g.newSyntheticSlot()
		g.fn.buf.EmitOperand(OpPutLocalSlot, int64(tmpResult))
	}
	g.fn.buf.Emit(step)
	if isPrefix && use != Discarded {
		g.fn.buf.Emit(OpDup)
		tmpResult = g.newSyntheticSlot()
		g.fn.buf.EmitOperand(OpPutLocalSlot, int64(tmpResult))
	}

	tmpNew := g.newSyntheticSlot()
	g.fn.buf.EmitOperand(OpPutLocalSlot, int64(tmpNew))
	loadObjIdx()
	emitSlot10(g.fn.buf, tmpNew, OpGetLocalSlot0, OpGetLocalSlot)
	if target.Op == "[]" {
		g.fn.buf.EmitEffect(OpSetElement, -3)
	} else {
		g.fn.buf.EmitOperand(OpPutObjByName, int64(g.internName(target.Children[1].QName.Name)))
	}

	if use != Discarded {
		emitSlot10(g.fn.buf, tmpResult, OpGetLocalSlot0, OpGetLocalSlot)
	}
}

// emitObjectLiteral pushes (space, name, value) triples and closes with
// OpNewObject. Field keys have no namespace syntax at the
// surface level, so space is always the empty string.
func (g *Generator) emitObjectLiteral(n *ast.Node) {
	emptySpace := g.internName("")
	for _, f := range n.Children {
		if f == nil {
			continue
		}
		g.fn.buf.EmitOperand(OpLoadString, int64(emptySpace))
		g.fn.buf.EmitOperand(OpLoadString, int64(g.internName(f.Text)))
		g.emitExpr(f.Children[0], Consumed)
	}
	count := len(n.Children)
	g.fn.buf.EmitEffect(OpNewObject, 1-3*count, int64(count))
}

// emitArrayLiteral pushes each element (an elision compiles to
// OpLoadUndefined, matching the Kind-Nop placeholder parser/expressions.go
// inserts for `[1,,3]`) and closes with OpNewArray.
func (g *Generator) emitArrayLiteral(n *ast.Node) {
	for _, c := range n.Children {
		g.emitExpr(c, Consumed)
	}
	count := len(n.Children)
	g.fn.buf.EmitEffect(OpNewArray, 1-count, int64(count))
}

// emitTernary compiles `cond ? then : else` the same way emitIf builds
// its then/else segments, except both arms must leave a value (Consumed)
// since this is an expression, not a statement.
func (g *Generator) emitTernary(n *ast.Node) {
	cond, then, els := n.Children[0], n.Children[1], n.Children[2]
	g.emitExpr(cond, Consumed)

	// Both arms run after the branch has consumed the condition.
	thenBuf := g.fn.buf.Child()
	thenBuf.StackDepth--
	g.withBuffer(thenBuf, func() { g.emitExpr(then, Consumed) })
	elseBuf := g.fn.buf.Child()
	elseBuf.StackDepth--
	g.withBuffer(elseBuf, func() { g.emitExpr(els, Consumed) })

	condWide := thenBuf.Len() >= 0x7F || g.optimize < 1
	thenJumpWide := elseBuf.Len() >= 0x7F || g.optimize < 1

	branchOffset := g.fn.buf.EmitBranchFalse(condWide)
	g.fn.buf.Append(thenBuf)
	skipElseOffset := g.fn.buf.EmitGoto(thenJumpWide)
	g.fn.buf.Patch(branchOffset, condWide, g.fn.buf.Len())
	g.fn.buf.Append(elseBuf)
	g.fn.buf.Patch(skipElseOffset, thenJumpWide, g.fn.buf.Len())
}
