package vm

import (
	"fmt"
	"io"

	"github.com/ejscript/ejsc/internal/module"
)

const (
	defaultStackCapacity = 256
	defaultFrameCapacity = 16
)

// VM executes the bytecode of one loaded module image.
type VM struct {
	image  *module.Image
	output io.Writer

	stack   []Value
	frames  []*frame
	globals []Value

	// globalNames maps a declaration name to its global slot, for the
	// *ByName fallback ops; dynamicGlobals catches names never declared
	// at all (standard-mode unbound stores).
	globalNames    map[string]int
	dynamicGlobals map[string]Value

	builtins map[string]Builtin

	// lastResult holds the most recent call's return value until an
	// OpPushResult claims it.
	lastResult Value

	// exceptValue is the in-flight thrown value an OpPushCatchArg reads.
	exceptValue Value
}

// frame is one function activation. base is the shared operand stack's
// depth when the frame was entered; exception records carry
// frame-relative stack depths rebased against it.
type frame struct {
	fn     *module.Function
	ip     int
	locals []Value
	this   Value
	base   int
}

// New creates a VM for img writing program output to output.
func New(img *module.Image, output io.Writer) *VM {
	vm := &VM{
		image:          img,
		output:         output,
		stack:          make([]Value, 0, defaultStackCapacity),
		frames:         make([]*frame, 0, defaultFrameCapacity),
		globalNames:    make(map[string]int),
		dynamicGlobals: make(map[string]Value),
		builtins:       make(map[string]Builtin),
	}
	vm.registerBuiltins()
	vm.installGlobals()
	return vm
}

// installGlobals materializes the image's functions and classes into
// their global slots before the initializer runs.
func (vm *VM) installGlobals() {
	classes := make(map[string]*ClassValue)
	for _, c := range vm.image.Classes {
		cv := &ClassValue{Class: c}
		classes[c.Name] = cv
	}
	for _, c := range vm.image.Classes {
		cv := classes[c.Name]
		if c.Base != "" {
			cv.Base = classes[c.Base]
		}
		cv.Statics = make([]Value, staticSlotCount(cv))
		if c.Slot >= 0 {
			vm.setGlobal(c.Slot, cv)
		}
		vm.globalNames[c.Name] = c.Slot
	}
	for _, fn := range vm.image.Functions {
		if fn.Slot >= 0 {
			vm.setGlobal(fn.Slot, &FunctionValue{Fn: fn})
		}
		vm.globalNames[fn.Name] = fn.Slot
	}
	for _, p := range vm.image.Globals {
		vm.globalNames[p.Name] = p.Slot
	}
}

// staticSlotCount sizes the Statics array from the chain's highest
// static property slot; slot numbers are chain-global and may be
// interleaved with static-method slots, which live outside Statics.
func staticSlotCount(cv *ClassValue) int {
	n := 0
	for c := cv; c != nil; c = c.Base {
		for _, p := range c.Class.StaticProps {
			if p.Slot+1 > n {
				n = p.Slot + 1
			}
		}
	}
	return n
}

// RunInitializer executes the module initializer, if any.
func (vm *VM) RunInitializer() (Value, error) {
	if vm.image.Init == nil {
		return Undefined, nil
	}
	return vm.CallFunction(vm.image.Init, nil)
}

// CallFunction invokes fn with args and returns its result.
func (vm *VM) CallFunction(fn *module.Function, args []Value) (Value, error) {
	return vm.callCompiled(fn, Undefined, args)
}

// callCompiled invokes fn with an explicit receiver.
func (vm *VM) callCompiled(fn *module.Function, this Value, args []Value) (Value, error) {
	locals := make([]Value, maxInt(fn.NumLocals, fn.NumArgs, len(args)))
	copy(locals, args)
	for i := len(args); i < len(locals); i++ {
		locals[i] = Undefined
	}
	baseDepth := len(vm.stack)
	vm.frames = append(vm.frames, &frame{fn: fn, locals: locals, this: this, base: baseDepth})
	v, err := vm.exec(len(args))
	vm.frames = vm.frames[:len(vm.frames)-1]
	// A function returns with the operand stack exactly as it found it;
	// trim defensively on error paths.
	if len(vm.stack) > baseDepth {
		vm.stack = vm.stack[:baseDepth]
	}
	return v, err
}

func maxInt(vals ...int) int {
	m := 0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

func (vm *VM) getGlobal(slot int) Value {
	if slot < 0 || slot >= len(vm.globals) {
		return Undefined
	}
	v := vm.globals[slot]
	if v == nil {
		return Undefined
	}
	return v
}

func (vm *VM) setGlobal(slot int, v Value) {
	if slot < 0 {
		return
	}
	for slot >= len(vm.globals) {
		vm.globals = append(vm.globals, Undefined)
	}
	vm.globals[slot] = v
}

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (Value, error) {
	if len(vm.stack) == 0 {
		return Undefined, vm.runtimeError("operand stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) popN(n int) ([]Value, error) {
	if n < 0 || n > len(vm.stack) {
		return nil, vm.runtimeError("operand stack underflow")
	}
	vals := append([]Value(nil), vm.stack[len(vm.stack)-n:]...)
	vm.stack = vm.stack[:len(vm.stack)-n]
	return vals, nil
}

func (vm *VM) runtimeError(format string, args ...any) error {
	where := ""
	if len(vm.frames) > 0 {
		f := vm.frames[len(vm.frames)-1]
		where = fmt.Sprintf("%s@%d: ", f.fn.Name, f.ip)
	}
	return fmt.Errorf("runtime error: %s%s", where, fmt.Sprintf(format, args...))
}
