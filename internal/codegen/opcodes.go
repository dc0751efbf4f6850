// Package codegen walks a bound AST once per source file, emitting
// stack-based bytecode into per-function code buffers.
// The instruction set uses variable-length signed operands with
// dedicated 8-bit and 32-bit branch forms; OpCodeNames doubles as the
// disassembly mnemonic table.
package codegen

// OpCode identifies one bytecode instruction: the opcode byte followed
// by zero or more variable-length signed operands. Patched jump
// displacements are raw 1- or 4-byte values, not varints.
type OpCode byte

const (
	// ========================================
	// Loads (by lookup-kind, in dispatch preference order)
	// ========================================

	// OpGetLocalSlot0..9 push local slot k. Dedicated 0-arg forms for the
	// first ten locals save an operand byte on the overwhelmingly common
	// case.
	OpGetLocalSlot0 OpCode = iota
	OpGetLocalSlot1
	OpGetLocalSlot2
	OpGetLocalSlot3
	OpGetLocalSlot4
	OpGetLocalSlot5
	OpGetLocalSlot6
	OpGetLocalSlot7
	OpGetLocalSlot8
	OpGetLocalSlot9
	// OpGetLocalSlot pushes local[slot]. Operand: slot (varint).
	OpGetLocalSlot
	// OpPutLocalSlot pops and stores to local[slot]. Operand: slot.
	OpPutLocalSlot

	// OpGetBlockSlot/OpPutBlockSlot address a lexical-block-scoped local
	// `nth` blocks out from the current one. Operands: slot, nth.
	OpGetBlockSlot
	OpPutBlockSlot

	// OpGetGlobalSlot/OpPutGlobalSlot address a module-global. Operand: slot.
	OpGetGlobalSlot
	OpPutGlobalSlot

	// OpGetObjSlot0..9, OpGetObjSlot address an explicit object's
	// property slot. Stack: [obj] -> [value] (Get) / [obj, value] -> [] (Put).
	OpGetObjSlot0
	OpGetObjSlot1
	OpGetObjSlot2
	OpGetObjSlot3
	OpGetObjSlot4
	OpGetObjSlot5
	OpGetObjSlot6
	OpGetObjSlot7
	OpGetObjSlot8
	OpGetObjSlot9
	OpGetObjSlot
	OpPutObjSlot

	// OpGetThisSlot0..9, OpGetThisSlot address the implicit `this`'s
	// instance-property slot. Stack: [] -> [value] / [value] -> [].
	OpGetThisSlot0
	OpGetThisSlot1
	OpGetThisSlot2
	OpGetThisSlot3
	OpGetThisSlot4
	OpGetThisSlot5
	OpGetThisSlot6
	OpGetThisSlot7
	OpGetThisSlot8
	OpGetThisSlot9
	OpGetThisSlot
	OpPutThisSlot

	// OpGetTypeSlot/OpPutTypeSlot address a static (type-owned) slot of
	// the type reference on the stack. Stack: [type] -> [value] (Get) /
	// [type, value] -> [] (Put). Operands: slot, nth (base-type hops).
	OpGetTypeSlot
	OpPutTypeSlot

	// OpGetThisTypeSlot/OpPutThisTypeSlot: static slot accessed through
	// the current instance's own type.
	OpGetThisTypeSlot
	OpPutThisTypeSlot

	// *ByName variants: the binding-restriction fallback when Lookup.Bound is false. Operand: name (constant-pool ref).
	OpGetLocalByName
	OpPutLocalByName
	OpGetObjByName
	OpPutObjByName
	OpGetThisByName
	OpPutThisByName
	OpGetGlobalByName
	OpPutGlobalByName

	// ========================================
	// Calls
	// ========================================

	// OpCall invokes the callee already pushed on the stack. Operand: argCount.
	OpCall
	// OpCallScopedName resolves the callee by name through the lexical
	// scope chain at runtime. Operands: name ref, argCount.
	OpCallScopedName
	// OpCallObjName calls a by-name method on an explicit object. Stack:
	// [obj, arg1..argN] -> [result]. Operands: name ref, argCount.
	OpCallObjName
	// OpCallObjSlot calls a bound method on an explicit object's slot.
	OpCallObjSlot
	OpCallObjInstanceSlot
	OpCallObjStaticSlot
	// OpCallThisSlot/OpCallThisStaticSlot call a method through `this`.
	OpCallThisSlot
	OpCallThisStaticSlot
	// OpCallGlobalSlot calls a bound global function. Operands: slot, argCount.
	OpCallGlobalSlot
	OpCallBlockSlot
	// OpCallConstructor constructs a new instance of a bound type.
	OpCallConstructor
	// OpCallNextConstructor invokes the base class's constructor (only
	// legal inside a constructor body). Operand: argCount.
	OpCallNextConstructor

	// ========================================
	// Branches — 8-bit and 32-bit offset forms.
	// ========================================

	OpGoto8
	OpGoto
	OpBranchTrue8
	OpBranchTrue
	OpBranchFalse8
	OpBranchFalse
	OpBranchEq8
	OpBranchEq
	OpBranchNe8
	OpBranchNe

	// ========================================
	// Exceptions
	// ========================================

	OpFinally
	OpEndException
	OpThrow

	// ========================================
	// Literals
	// ========================================

	OpLoadTrue
	OpLoadFalse
	OpLoadNull
	OpLoadUndefined
	// OpLoad0..9: dedicated small-integer literal forms.
	OpLoad0
	OpLoad1
	OpLoad2
	OpLoad3
	OpLoad4
	OpLoad5
	OpLoad6
	OpLoad7
	OpLoad8
	OpLoad9
	// OpLoadInt pushes a varint-encoded integer operand.
	OpLoadInt
	// OpLoadDouble pushes an IEEE-754 little-endian double operand.
	OpLoadDouble
	// OpLoadString pushes a constant-pool string by offset.
	OpLoadString
	OpLoadNamespace
	OpLoadRegExp
	// OpLoadGlobal pushes the global object itself (not a slot on it).
	OpLoadGlobal
	OpLoadThis
	OpLoadXML

	// ========================================
	// Object construction / stack shuffling
	// ========================================

	// OpNew constructs an instance of the type named by the operand,
	// consuming argCount constructor arguments already pushed.
	OpNew
	// OpNewObject builds an object literal inline: (space, name, value)
	// triples already pushed, operand: tripleCount.
	OpNewObject
	OpDup
	OpSwap
	OpPop
	// OpPopItems discards N items. Operand: N.
	OpPopItems
	// OpPushResult pushes the previous call's return value (calls whose
	// result is discarded emit neither OpPushResult nor OpPop).
	OpPushResult
	OpPushCatchArg
	OpSuper

	// ========================================
	// Block / scope management
	// ========================================

	// OpOpenBlock enters a new lexical block at runtime (let/const
	// scoping). Operands: slot, nth.
	OpOpenBlock
	OpCloseBlock
	OpAddNamespace
	OpAddNamespaceRef
	// OpDefineFunction attaches a function literal's closure to a slot.
	// Operands: slot, nth.
	OpDefineFunction
	// OpDefineClass finalizes a class's static layout. Operand: qname ref.
	OpDefineClass
	// OpPushWith pops an object and pushes it onto the scope chain as a
	// `with` scope.
	OpPushWith
	// OpPopWith removes the innermost `with` scope pushed by OpPushWith.
	OpPopWith
	// OpInitDefaultArgs[_8]: jump table over defaulted parameters,
	// indexed by argsSupplied. _8 is the narrow encoding for <= 8 entries;
	// zero defaulted parameters emits nothing at all.
	OpInitDefaultArgs8
	OpInitDefaultArgs

	// ========================================
	// Arithmetic, comparison, logical (operator-generic; the VM dispatches
	// on runtime operand type — Ejscript numbers are not statically split
	// into integer and float families).
	// ========================================

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNegate
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr
	OpSar
	OpEqual
	OpStrictEqual
	OpNotEqual
	OpStrictNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpInstanceOf
	OpIn
	OpTypeOf
	OpNot
	OpIncrement
	OpDecrement
	OpToBool
	OpVoid

	// ========================================
	// Arrays / properties
	// ========================================

	OpGetProperty
	OpSetProperty
	OpGetElement
	OpSetElement
	// OpDeleteProperty removes a named property: [obj] -> [bool], name
	// operand. OpDeleteElement removes a computed one: [obj, key] -> [bool],
	// no operand — two opcodes so the decoder never has to guess whether a
	// name operand follows.
	OpDeleteProperty
	OpDeleteElement
	OpNewArray

	// ========================================
	// Debug / misc
	// ========================================

	// OpDebug emits a source-position marker: filename ref, line, source ref.
	OpDebug
	OpReturn
	OpReturnValue
)

// OpCodeNames maps opcodes to their disassembly mnemonic.
var OpCodeNames = map[OpCode]string{
	OpGetLocalSlot0: "GetLocalSlot_0", OpGetLocalSlot1: "GetLocalSlot_1",
	OpGetLocalSlot2: "GetLocalSlot_2", OpGetLocalSlot3: "GetLocalSlot_3",
	OpGetLocalSlot4: "GetLocalSlot_4", OpGetLocalSlot5: "GetLocalSlot_5",
	OpGetLocalSlot6: "GetLocalSlot_6", OpGetLocalSlot7: "GetLocalSlot_7",
	OpGetLocalSlot8: "GetLocalSlot_8", OpGetLocalSlot9: "GetLocalSlot_9",
	OpGetLocalSlot: "GetLocalSlot", OpPutLocalSlot: "PutLocalSlot",
	OpGetBlockSlot: "GetBlockSlot", OpPutBlockSlot: "PutBlockSlot",
	OpGetGlobalSlot: "GetGlobalSlot", OpPutGlobalSlot: "PutGlobalSlot",
	OpGetObjSlot0: "GetObjSlot_0", OpGetObjSlot1: "GetObjSlot_1",
	OpGetObjSlot2: "GetObjSlot_2", OpGetObjSlot3: "GetObjSlot_3",
	OpGetObjSlot4: "GetObjSlot_4", OpGetObjSlot5: "GetObjSlot_5",
	OpGetObjSlot6: "GetObjSlot_6", OpGetObjSlot7: "GetObjSlot_7",
	OpGetObjSlot8: "GetObjSlot_8", OpGetObjSlot9: "GetObjSlot_9",
	OpGetObjSlot: "GetObjSlot", OpPutObjSlot: "PutObjSlot",
	OpGetThisSlot0: "GetThisSlot_0", OpGetThisSlot1: "GetThisSlot_1",
	OpGetThisSlot2: "GetThisSlot_2", OpGetThisSlot3: "GetThisSlot_3",
	OpGetThisSlot4: "GetThisSlot_4", OpGetThisSlot5: "GetThisSlot_5",
	OpGetThisSlot6: "GetThisSlot_6", OpGetThisSlot7: "GetThisSlot_7",
	OpGetThisSlot8: "GetThisSlot_8", OpGetThisSlot9: "GetThisSlot_9",
	OpGetThisSlot: "GetThisSlot", OpPutThisSlot: "PutThisSlot",
	OpGetTypeSlot: "GetTypeSlot", OpPutTypeSlot: "PutTypeSlot",
	OpGetThisTypeSlot: "GetThisTypeSlot", OpPutThisTypeSlot: "PutThisTypeSlot",
	OpGetLocalByName: "GetLocalByName", OpPutLocalByName: "PutLocalByName",
	OpGetObjByName: "GetObjByName", OpPutObjByName: "PutObjByName",
	OpGetThisByName: "GetThisByName", OpPutThisByName: "PutThisByName",
	OpGetGlobalByName: "GetGlobalByName", OpPutGlobalByName: "PutGlobalByName",
	OpCall: "Call", OpCallScopedName: "CallScopedName",
	OpCallObjName: "CallObjName", OpCallObjSlot: "CallObjSlot",
	OpCallObjInstanceSlot: "CallObjInstanceSlot", OpCallObjStaticSlot: "CallObjStaticSlot",
	OpCallThisSlot: "CallThisSlot", OpCallThisStaticSlot: "CallThisStaticSlot",
	OpCallGlobalSlot: "CallGlobalSlot", OpCallBlockSlot: "CallBlockSlot",
	OpCallConstructor: "CallConstructor", OpCallNextConstructor: "CallNextConstructor",
	OpGoto8: "Goto8", OpGoto: "Goto",
	OpBranchTrue8: "BranchTrue8", OpBranchTrue: "BranchTrue",
	OpBranchFalse8: "BranchFalse8", OpBranchFalse: "BranchFalse",
	OpBranchEq8: "BranchEq8", OpBranchEq: "BranchEq",
	OpBranchNe8: "BranchNe8", OpBranchNe: "BranchNe",
	OpFinally: "Finally", OpEndException: "EndException", OpThrow: "Throw",
	OpLoadTrue: "LoadTrue", OpLoadFalse: "LoadFalse",
	OpLoadNull: "LoadNull", OpLoadUndefined: "LoadUndefined",
	OpLoad0: "Load0", OpLoad1: "Load1", OpLoad2: "Load2", OpLoad3: "Load3",
	OpLoad4: "Load4", OpLoad5: "Load5", OpLoad6: "Load6", OpLoad7: "Load7",
	OpLoad8: "Load8", OpLoad9: "Load9",
	OpLoadInt: "LoadInt", OpLoadDouble: "LoadDouble", OpLoadString: "LoadString",
	OpLoadNamespace: "LoadNamespace", OpLoadRegExp: "LoadRegExp",
	OpLoadGlobal: "LoadGlobal", OpLoadThis: "LoadThis", OpLoadXML: "LoadXML",
	OpNew: "New", OpNewObject: "NewObject", OpDup: "Dup", OpSwap: "Swap",
	OpPop: "Pop", OpPopItems: "PopItems", OpPushResult: "PushResult",
	OpPushCatchArg: "PushCatchArg", OpSuper: "Super",
	OpOpenBlock: "OpenBlock", OpCloseBlock: "CloseBlock",
	OpAddNamespace: "AddNamespace", OpAddNamespaceRef: "AddNamespaceRef",
	OpDefineFunction: "DefineFunction", OpDefineClass: "DefineClass",
	OpPushWith: "PushWith", OpPopWith: "PopWith",
	OpInitDefaultArgs8: "InitDefaultArgs_8", OpInitDefaultArgs: "InitDefaultArgs",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod",
	OpNegate: "Negate", OpBitAnd: "BitAnd", OpBitOr: "BitOr", OpBitXor: "BitXor",
	OpBitNot: "BitNot", OpShl: "Shl", OpShr: "Shr", OpSar: "Sar",
	OpEqual: "Equal", OpStrictEqual: "StrictEqual",
	OpNotEqual: "NotEqual", OpStrictNotEqual: "StrictNotEqual",
	OpLess: "Less", OpLessEqual: "LessEqual",
	OpGreater: "Greater", OpGreaterEqual: "GreaterEqual",
	OpInstanceOf: "InstanceOf", OpIn: "In", OpTypeOf: "TypeOf",
	OpNot: "Not", OpIncrement: "Increment", OpDecrement: "Decrement",
	OpToBool: "ToBool", OpVoid: "Void",
	OpGetProperty: "GetProperty", OpSetProperty: "SetProperty",
	OpGetElement: "GetElement", OpSetElement: "SetElement",
	OpDeleteProperty: "DeleteProperty", OpDeleteElement: "DeleteElement",
	OpNewArray: "NewArray",
	OpDebug:    "Debug", OpReturn: "Return", OpReturnValue: "ReturnValue",
}

func (op OpCode) String() string {
	if name, ok := OpCodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// stackEffect gives the net operand-stack delta of ops whose effect does
// not depend on their operand (calls are sized by Generator at the
// emission site instead, since their effect depends on argCount/field
// arity which the opcode alone doesn't carry).
var stackEffect = map[OpCode]int{
	OpGetLocalSlot0: 1, OpGetLocalSlot1: 1, OpGetLocalSlot2: 1, OpGetLocalSlot3: 1,
	OpGetLocalSlot4: 1, OpGetLocalSlot5: 1, OpGetLocalSlot6: 1, OpGetLocalSlot7: 1,
	OpGetLocalSlot8: 1, OpGetLocalSlot9: 1, OpGetLocalSlot: 1, OpPutLocalSlot: -1,
	OpGetBlockSlot: 1, OpPutBlockSlot: -1,
	OpGetGlobalSlot: 1, OpPutGlobalSlot: -1,
	OpGetObjSlot0: 0, OpGetObjSlot1: 0, OpGetObjSlot2: 0, OpGetObjSlot3: 0,
	OpGetObjSlot4: 0, OpGetObjSlot5: 0, OpGetObjSlot6: 0, OpGetObjSlot7: 0,
	OpGetObjSlot8: 0, OpGetObjSlot9: 0, OpGetObjSlot: 0, OpPutObjSlot: -2,
	OpGetThisSlot0: 1, OpGetThisSlot1: 1, OpGetThisSlot2: 1, OpGetThisSlot3: 1,
	OpGetThisSlot4: 1, OpGetThisSlot5: 1, OpGetThisSlot6: 1, OpGetThisSlot7: 1,
	OpGetThisSlot8: 1, OpGetThisSlot9: 1, OpGetThisSlot: 1, OpPutThisSlot: -1,
	OpGetTypeSlot: 0, OpPutTypeSlot: -2, OpGetThisTypeSlot: 1, OpPutThisTypeSlot: -1,
	OpGetLocalByName: 1, OpPutLocalByName: -1,
	OpGetObjByName: 0, OpPutObjByName: -2,
	OpGetThisByName: 1, OpPutThisByName: -1,
	OpGetGlobalByName: 1, OpPutGlobalByName: -1,
	OpGoto8: 0, OpGoto: 0,
	OpBranchTrue8: -1, OpBranchTrue: -1, OpBranchFalse8: -1, OpBranchFalse: -1,
	OpBranchEq8: -1, OpBranchEq: -1, OpBranchNe8: -1, OpBranchNe: -1,
	OpFinally: 0, OpEndException: 0, OpThrow: -1,
	OpLoadTrue: 1, OpLoadFalse: 1, OpLoadNull: 1, OpLoadUndefined: 1,
	OpLoad0: 1, OpLoad1: 1, OpLoad2: 1, OpLoad3: 1, OpLoad4: 1, OpLoad5: 1,
	OpLoad6: 1, OpLoad7: 1, OpLoad8: 1, OpLoad9: 1,
	OpLoadInt: 1, OpLoadDouble: 1, OpLoadString: 1, OpLoadNamespace: 1,
	OpLoadRegExp: 1, OpLoadGlobal: 1, OpLoadThis: 1, OpLoadXML: 1,
	OpNewObject: 1, OpDup: 1, OpSwap: 0, OpPop: -1,
	OpPushResult: 1, OpPushCatchArg: 1, OpSuper: 1,
	OpOpenBlock: 0, OpCloseBlock: 0, OpAddNamespace: -1, OpAddNamespaceRef: 0,
	OpDefineFunction: 0, OpDefineClass: 0,
	OpPushWith: -1, OpPopWith: 0,
	OpAdd: -1, OpSub: -1, OpMul: -1, OpDiv: -1, OpMod: -1, OpNegate: 0,
	OpBitAnd: -1, OpBitOr: -1, OpBitXor: -1, OpBitNot: 0,
	OpShl: -1, OpShr: -1, OpSar: -1,
	OpEqual: -1, OpStrictEqual: -1, OpNotEqual: -1, OpStrictNotEqual: -1,
	OpLess: -1, OpLessEqual: -1, OpGreater: -1, OpGreaterEqual: -1,
	OpInstanceOf: -1, OpIn: -1, OpTypeOf: 0, OpNot: 0,
	OpIncrement: 0, OpDecrement: 0, OpToBool: 0, OpVoid: 0,
	OpGetProperty: -1, OpSetProperty: -3, OpGetElement: -1, OpSetElement: -3,
	OpDeleteProperty: 0, OpDeleteElement: -1,
	OpDebug: 0, OpReturn: 0, OpReturnValue: -1,
}
