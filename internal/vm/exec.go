package vm

import (
	"math"

	"github.com/ejscript/ejsc/internal/codegen"
)

// thrownError carries a script-level thrown value up the Go call stack
// until a frame with a matching exception record catches it.
type thrownError struct {
	value Value
}

func (t thrownError) Error() string { return "uncaught exception: " + ToString(t.value) }

// Uncaught extracts the thrown value from an error returned by
// RunInitializer/CallFunction, if it was a script exception.
func Uncaught(err error) (Value, bool) {
	if t, ok := err.(thrownError); ok {
		return t.value, true
	}
	return nil, false
}

// exec runs the current frame to completion. supplied is the caller's
// argument count, consumed by InitDefaultArgs skipping.
func (vm *VM) exec(supplied int) (Value, error) {
	f := vm.frames[len(vm.frames)-1]
	code := f.fn.Code
	var withScopes []Value

	for f.ip < len(code) {
		in, next, err := codegen.DecodeOne(code, f.ip)
		if err != nil {
			return Undefined, vm.runtimeError("%v", err)
		}
		opStart := f.ip
		f.ip = next

		res, done, err := vm.step(f, in, supplied, &withScopes)
		if err != nil {
			if t, ok := err.(thrownError); ok {
				if vm.dispatchException(f, opStart, t.value) {
					continue
				}
			}
			return Undefined, err
		}
		if done {
			return res, nil
		}
	}
	return Undefined, nil
}

// dispatchException finds the innermost exception record covering
// offset and redirects the frame into its handler. StopIteration only
// matches iteration-flagged records.
func (vm *VM) dispatchException(f *frame, offset int, value Value) bool {
	_, isStop := value.(StopIteration)
	for _, e := range f.fn.Exceptions {
		if offset < e.TryStart || offset >= e.TryEnd {
			continue
		}
		iterRecord := e.Flags&int(codegen.ExceptionIteration) != 0
		if isStop != iterRecord {
			continue
		}
		if depth := f.base + e.NumStack; len(vm.stack) > depth {
			vm.stack = vm.stack[:depth]
		}
		if iterRecord {
			// The iteration handler's first instruction pops the
			// exception value (see codegen's emitForIn).
			vm.push(value)
		} else {
			vm.exceptValue = value
		}
		f.ip = e.HandlerStart
		return true
	}
	return false
}

func (vm *VM) step(f *frame, in codegen.Instr, supplied int, withScopes *[]Value) (Value, bool, error) {
	op := in.Op

	switch {
	case op >= codegen.OpGetLocalSlot0 && op <= codegen.OpGetLocalSlot9:
		vm.push(vm.local(f, int(op-codegen.OpGetLocalSlot0)))
		return nil, false, nil
	case op >= codegen.OpGetObjSlot0 && op <= codegen.OpGetObjSlot9:
		return nil, false, vm.getObjSlot(f, int(op-codegen.OpGetObjSlot0))
	case op >= codegen.OpGetThisSlot0 && op <= codegen.OpGetThisSlot9:
		return nil, false, vm.getThisSlot(f, int(op-codegen.OpGetThisSlot0))
	case op >= codegen.OpLoad0 && op <= codegen.OpLoad9:
		vm.push(float64(op - codegen.OpLoad0))
		return nil, false, nil
	}

	switch op {
	case codegen.OpGetLocalSlot, codegen.OpGetBlockSlot:
		// Block-scoped slots share the function-wide local slot space
		// CodeGen assigns, so nth is irrelevant here.
		vm.push(vm.local(f, int(in.Operands[0])))
	case codegen.OpPutLocalSlot, codegen.OpPutBlockSlot:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		vm.setLocal(f, int(in.Operands[0]), v)
	case codegen.OpGetGlobalSlot:
		vm.push(vm.getGlobal(int(in.Operands[0])))
	case codegen.OpPutGlobalSlot:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		vm.setGlobal(int(in.Operands[0]), v)

	case codegen.OpGetThisSlot:
		return nil, false, vm.getThisSlot(f, int(in.Operands[0]))
	case codegen.OpPutThisSlot:
		return nil, false, vm.putThisSlot(f, int(in.Operands[0]))
	case codegen.OpGetThisTypeSlot:
		return nil, false, vm.getThisTypeSlot(f, int(in.Operands[0]))
	case codegen.OpPutThisTypeSlot:
		return nil, false, vm.putThisTypeSlot(f, int(in.Operands[0]))
	case codegen.OpGetTypeSlot:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		cv, ok := v.(*ClassValue)
		if !ok || int(in.Operands[0]) < 0 || int(in.Operands[0]) >= len(cv.Statics) {
			return nil, false, vm.runtimeError("type slot %d unmapped", in.Operands[0])
		}
		vm.push(cv.Statics[in.Operands[0]])
	case codegen.OpPutTypeSlot:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		typ, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		cv, ok := typ.(*ClassValue)
		if !ok || int(in.Operands[0]) < 0 || int(in.Operands[0]) >= len(cv.Statics) {
			return nil, false, vm.runtimeError("type slot %d unmapped", in.Operands[0])
		}
		cv.Statics[in.Operands[0]] = v
	case codegen.OpGetObjSlot:
		return nil, false, vm.getObjSlot(f, int(in.Operands[0]))
	case codegen.OpPutObjSlot:
		return nil, false, vm.putObjSlot(f, int(in.Operands[0]))

	case codegen.OpGetGlobalByName, codegen.OpGetLocalByName, codegen.OpGetThisByName:
		name, err := vm.poolString(in.Operands[0])
		if err != nil {
			return nil, false, err
		}
		vm.push(vm.lookupName(name, *withScopes))
	case codegen.OpPutGlobalByName, codegen.OpPutLocalByName, codegen.OpPutThisByName:
		name, err := vm.poolString(in.Operands[0])
		if err != nil {
			return nil, false, err
		}
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		vm.storeName(name, v)
	case codegen.OpGetObjByName:
		name, err := vm.poolString(in.Operands[0])
		if err != nil {
			return nil, false, err
		}
		obj, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		vm.push(vm.getProperty(obj, name))
	case codegen.OpPutObjByName:
		name, err := vm.poolString(in.Operands[0])
		if err != nil {
			return nil, false, err
		}
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		obj, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		if err := vm.setProperty(obj, name, v); err != nil {
			return nil, false, err
		}

	case codegen.OpCall:
		argc := int(in.Operands[0])
		args, err := vm.popN(argc)
		if err != nil {
			return nil, false, err
		}
		callee, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		result, err := vm.callValue(callee, nil, args)
		if err != nil {
			return nil, false, err
		}
		vm.lastResult = result
	case codegen.OpCallObjName:
		name, err := vm.poolString(in.Operands[0])
		if err != nil {
			return nil, false, err
		}
		argc := int(in.Operands[1])
		args, err := vm.popN(argc)
		if err != nil {
			return nil, false, err
		}
		obj, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		result, err := vm.callMethod(obj, name, args)
		if err != nil {
			return nil, false, err
		}
		vm.lastResult = result
	case codegen.OpCallObjSlot, codegen.OpCallObjInstanceSlot:
		argc := int(in.Operands[1])
		args, err := vm.popN(argc)
		if err != nil {
			return nil, false, err
		}
		recv, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		obj, ok := recv.(*Object)
		if !ok || obj.Class == nil {
			return nil, false, vm.runtimeError("instance slot call on %s", typeOf(recv))
		}
		m := obj.Class.methodBySlot(int(in.Operands[0]), false)
		if m == nil {
			return nil, false, vm.runtimeError("no method at instance slot %d on %s", in.Operands[0], obj.Class.Class.Name)
		}
		result, err := vm.callCompiled(m, obj, args)
		if err != nil {
			return nil, false, err
		}
		vm.lastResult = result
	case codegen.OpCallObjStaticSlot:
		argc := int(in.Operands[1])
		args, err := vm.popN(argc)
		if err != nil {
			return nil, false, err
		}
		recv, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		cv, ok := recv.(*ClassValue)
		if !ok {
			return nil, false, vm.runtimeError("static slot call on %s", typeOf(recv))
		}
		m := cv.methodBySlot(int(in.Operands[0]), true)
		if m == nil {
			return nil, false, vm.runtimeError("no method at static slot %d on %s", in.Operands[0], cv.Class.Name)
		}
		result, err := vm.callCompiled(m, cv, args)
		if err != nil {
			return nil, false, err
		}
		vm.lastResult = result
	case codegen.OpCallNextConstructor:
		argc := int(in.Operands[0])
		args, err := vm.popN(argc)
		if err != nil {
			return nil, false, err
		}
		this, _ := f.this.(*Object)
		if this == nil || this.Class == nil || this.Class.Base == nil {
			return nil, false, vm.runtimeError("super call outside a derived constructor")
		}
		if ctor := this.Class.Base.Class.Constructor; ctor != nil {
			if _, err := vm.callCompiled(ctor, this, args); err != nil {
				return nil, false, err
			}
		}
		vm.lastResult = Undefined
	case codegen.OpNew:
		name, err := vm.poolString(in.Operands[0])
		if err != nil {
			return nil, false, err
		}
		argc := int(in.Operands[1])
		args, err := vm.popN(argc)
		if err != nil {
			return nil, false, err
		}
		obj, err := vm.construct(name, args)
		if err != nil {
			return nil, false, err
		}
		vm.push(obj)

	case codegen.OpGoto, codegen.OpGoto8:
		f.ip += int(in.Operands[0])
	case codegen.OpBranchTrue, codegen.OpBranchTrue8:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		if Truthy(v) {
			f.ip += int(in.Operands[0])
		}
	case codegen.OpBranchFalse, codegen.OpBranchFalse8:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		if !Truthy(v) {
			f.ip += int(in.Operands[0])
		}

	case codegen.OpFinally, codegen.OpEndException, codegen.OpDebug,
		codegen.OpOpenBlock, codegen.OpCloseBlock,
		codegen.OpAddNamespaceRef, codegen.OpDefineFunction, codegen.OpDefineClass:
		// No runtime effect in this VM: finally bodies are emitted
		// inline by CodeGen, blocks share the function slot space, and
		// functions/classes are installed before execution starts.
	case codegen.OpThrow:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		return nil, false, thrownError{value: v}

	case codegen.OpLoadTrue:
		vm.push(true)
	case codegen.OpLoadFalse:
		vm.push(false)
	case codegen.OpLoadNull:
		vm.push(nil)
	case codegen.OpLoadUndefined:
		vm.push(Undefined)
	case codegen.OpLoadInt:
		vm.push(float64(in.Operands[0]))
	case codegen.OpLoadDouble:
		vm.push(math.Float64frombits(uint64(in.Operands[0])))
	case codegen.OpLoadString, codegen.OpLoadNamespace, codegen.OpLoadRegExp, codegen.OpLoadXML:
		s, err := vm.poolString(in.Operands[0])
		if err != nil {
			return nil, false, err
		}
		vm.push(s)
	case codegen.OpLoadThis:
		vm.push(f.this)
	case codegen.OpSuper:
		vm.push(f.this)
	case codegen.OpLoadGlobal:
		vm.push(&Object{Props: vm.dynamicGlobals})

	case codegen.OpNewObject:
		count := int(in.Operands[0])
		triples, err := vm.popN(count * 3)
		if err != nil {
			return nil, false, err
		}
		obj := &Object{Props: make(map[string]Value, count)}
		for i := 0; i < count; i++ {
			// (space, name, value); the space qualifier is unused by
			// this VM's flat property model.
			name := ToString(triples[i*3+1])
			obj.Props[name] = triples[i*3+2]
		}
		vm.push(obj)
	case codegen.OpNewArray:
		count := int(in.Operands[0])
		elems, err := vm.popN(count)
		if err != nil {
			return nil, false, err
		}
		vm.push(&Array{Elems: elems})
	case codegen.OpDup:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		vm.push(v)
		vm.push(v)
	case codegen.OpSwap:
		b, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		a, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		vm.push(b)
		vm.push(a)
	case codegen.OpPop:
		if _, err := vm.pop(); err != nil {
			return nil, false, err
		}
	case codegen.OpPopItems:
		if _, err := vm.popN(int(in.Operands[0])); err != nil {
			return nil, false, err
		}
	case codegen.OpPushResult:
		vm.push(vm.lastResult)
	case codegen.OpPushCatchArg:
		vm.push(vm.exceptValue)

	case codegen.OpPushWith:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		*withScopes = append(*withScopes, v)
	case codegen.OpPopWith:
		if len(*withScopes) > 0 {
			*withScopes = (*withScopes)[:len(*withScopes)-1]
		}

	case codegen.OpInitDefaultArgs, codegen.OpInitDefaultArgs8:
		numDefaults := int(in.Operands[0])
		required := f.fn.NumArgs - numDefaults
		skip := supplied - required
		if skip < 0 {
			skip = 0
		}
		if skip > numDefaults {
			skip = numDefaults
		}
		for k := 0; k < skip; k++ {
			f.ip += int(in.Operands[1+k])
		}

	case codegen.OpGetElement:
		key, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		obj, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		vm.push(vm.getElement(obj, key))
	case codegen.OpSetElement:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		key, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		obj, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		if err := vm.setElement(obj, key, v); err != nil {
			return nil, false, err
		}
	case codegen.OpDeleteProperty:
		name, err := vm.poolString(in.Operands[0])
		if err != nil {
			return nil, false, err
		}
		obj, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		vm.push(vm.deleteProperty(obj, name))
	case codegen.OpDeleteElement:
		key, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		obj, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		vm.push(vm.deleteProperty(obj, ToString(key)))

	case codegen.OpReturn:
		return Undefined, true, nil
	case codegen.OpReturnValue:
		v, err := vm.pop()
		if err != nil {
			return nil, false, err
		}
		return v, true, nil

	default:
		return vm.stepOperator(f, in)
	}
	return nil, false, nil
}

// stepOperator handles the arithmetic/comparison/logic band.
func (vm *VM) stepOperator(f *frame, in codegen.Instr) (Value, bool, error) {
	unary := func(apply func(Value) Value) error {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(apply(v))
		return nil
	}
	binary := func(apply func(a, b Value) Value) error {
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(apply(a, b))
		return nil
	}
	numeric := func(apply func(a, b float64) float64) error {
		return binary(func(a, b Value) Value { return apply(toNumber(a), toNumber(b)) })
	}
	intOp := func(apply func(a, b int64) int64) error {
		return binary(func(a, b Value) Value {
			return float64(apply(int64(toNumber(a)), int64(toNumber(b))))
		})
	}
	compare := func(apply func(a, b float64) bool, str func(a, b string) bool) error {
		return binary(func(a, b Value) Value {
			as, aOK := a.(string)
			bs, bOK := b.(string)
			if aOK && bOK {
				return str(as, bs)
			}
			return apply(toNumber(a), toNumber(b))
		})
	}

	switch in.Op {
	case codegen.OpAdd:
		return nil, false, binary(func(a, b Value) Value {
			if _, ok := a.(string); ok {
				return ToString(a) + ToString(b)
			}
			if _, ok := b.(string); ok {
				return ToString(a) + ToString(b)
			}
			return toNumber(a) + toNumber(b)
		})
	case codegen.OpSub:
		return nil, false, numeric(func(a, b float64) float64 { return a - b })
	case codegen.OpMul:
		return nil, false, numeric(func(a, b float64) float64 { return a * b })
	case codegen.OpDiv:
		return nil, false, numeric(func(a, b float64) float64 { return a / b })
	case codegen.OpMod:
		return nil, false, numeric(math.Mod)
	case codegen.OpNegate:
		return nil, false, unary(func(v Value) Value { return -toNumber(v) })
	case codegen.OpBitAnd:
		return nil, false, intOp(func(a, b int64) int64 { return a & b })
	case codegen.OpBitOr:
		return nil, false, intOp(func(a, b int64) int64 { return a | b })
	case codegen.OpBitXor:
		return nil, false, intOp(func(a, b int64) int64 { return a ^ b })
	case codegen.OpBitNot:
		return nil, false, unary(func(v Value) Value { return float64(^int64(toNumber(v))) })
	case codegen.OpShl:
		return nil, false, intOp(func(a, b int64) int64 { return a << (uint(b) & 31) })
	case codegen.OpShr:
		return nil, false, intOp(func(a, b int64) int64 { return a >> (uint(b) & 31) })
	case codegen.OpSar:
		return nil, false, binary(func(a, b Value) Value {
			return float64(uint32(int64(toNumber(a))) >> (uint(int64(toNumber(b))) & 31))
		})
	case codegen.OpEqual:
		return nil, false, binary(func(a, b Value) Value { return looseEqual(a, b) })
	case codegen.OpNotEqual:
		return nil, false, binary(func(a, b Value) Value { return !looseEqual(a, b) })
	case codegen.OpStrictEqual:
		return nil, false, binary(func(a, b Value) Value { return strictEqual(a, b) })
	case codegen.OpStrictNotEqual:
		return nil, false, binary(func(a, b Value) Value { return !strictEqual(a, b) })
	case codegen.OpLess:
		return nil, false, compare(func(a, b float64) bool { return a < b },
			func(a, b string) bool { return a < b })
	case codegen.OpLessEqual:
		return nil, false, compare(func(a, b float64) bool { return a <= b },
			func(a, b string) bool { return a <= b })
	case codegen.OpGreater:
		return nil, false, compare(func(a, b float64) bool { return a > b },
			func(a, b string) bool { return a > b })
	case codegen.OpGreaterEqual:
		return nil, false, compare(func(a, b float64) bool { return a >= b },
			func(a, b string) bool { return a >= b })
	case codegen.OpInstanceOf:
		return nil, false, binary(func(a, b Value) Value { return vm.instanceOf(a, b) })
	case codegen.OpIn:
		return nil, false, binary(func(a, b Value) Value {
			return !strictEqual(vm.getProperty(b, ToString(a)), Undefined)
		})
	case codegen.OpTypeOf:
		return nil, false, unary(func(v Value) Value { return typeOf(v) })
	case codegen.OpNot:
		return nil, false, unary(func(v Value) Value { return !Truthy(v) })
	case codegen.OpIncrement:
		return nil, false, unary(func(v Value) Value { return toNumber(v) + 1 })
	case codegen.OpDecrement:
		return nil, false, unary(func(v Value) Value { return toNumber(v) - 1 })
	case codegen.OpToBool:
		return nil, false, unary(func(v Value) Value { return Truthy(v) })
	case codegen.OpVoid:
		return nil, false, unary(func(Value) Value { return Undefined })
	}
	return nil, false, vm.runtimeError("unimplemented opcode %s", in.Op)
}

func typeOf(v Value) string {
	switch v.(type) {
	case undefinedValue:
		return "undefined"
	case nil:
		return "object"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case *FunctionValue, Builtin, *ClassValue:
		return "function"
	}
	return "object"
}

func (vm *VM) poolString(ref int64) (string, error) {
	if vm.image.Pool == nil {
		return "", vm.runtimeError("module has no constant pool")
	}
	s, ok := vm.image.Pool.StringAt(int(ref))
	if !ok {
		return "", vm.runtimeError("name ref %d outside constant pool", ref)
	}
	return s, nil
}

func (vm *VM) local(f *frame, slot int) Value {
	if slot < 0 || slot >= len(f.locals) {
		return Undefined
	}
	return f.locals[slot]
}

func (vm *VM) setLocal(f *frame, slot int, v Value) {
	for slot >= len(f.locals) {
		f.locals = append(f.locals, Undefined)
	}
	f.locals[slot] = v
}

// lookupName is the *ByName resolution chain: with-scopes innermost
// first, then declared globals, then builtins, then dynamic globals.
func (vm *VM) lookupName(name string, withScopes []Value) Value {
	for i := len(withScopes) - 1; i >= 0; i-- {
		if v := vm.getProperty(withScopes[i], name); !strictEqual(v, Undefined) {
			return v
		}
	}
	if slot, ok := vm.globalNames[name]; ok && slot >= 0 {
		return vm.getGlobal(slot)
	}
	if b, ok := vm.builtins[name]; ok {
		return b
	}
	if v, ok := vm.dynamicGlobals[name]; ok {
		return v
	}
	return Undefined
}

func (vm *VM) storeName(name string, v Value) {
	if slot, ok := vm.globalNames[name]; ok && slot >= 0 {
		vm.setGlobal(slot, v)
		return
	}
	vm.dynamicGlobals[name] = v
}
