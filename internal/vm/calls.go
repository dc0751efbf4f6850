package vm

import "github.com/ejscript/ejsc/internal/module"

// Call dispatch: generic OpCall callees, by-name method calls, and
// construction: callValue decides what kind of callee it has, the
// per-kind invokers do the rest.

func (vm *VM) callValue(callee Value, this Value, args []Value) (Value, error) {
	switch t := callee.(type) {
	case *FunctionValue:
		return vm.callCompiled(t.Fn, this, args)
	case Builtin:
		return t(vm, args)
	case *ClassValue:
		// Calling a class like a function constructs an instance, the
		// ECMAScript family's second construction form.
		return vm.constructClass(t, args)
	}
	return Undefined, vm.runtimeError("value of type %s is not callable", typeOf(callee))
}

// callMethod invokes obj's method name: the iterator protocol first,
// then class methods, then function-valued properties.
func (vm *VM) callMethod(obj Value, name string, args []Value) (Value, error) {
	switch name {
	case "get":
		if it := iterationKeys(obj); it != nil {
			return &Iterator{items: it}, nil
		}
	case "getValues":
		if it := iterationValues(obj); it != nil {
			return &Iterator{items: it}, nil
		}
	case "next":
		if iter, ok := obj.(*Iterator); ok {
			if iter.pos >= len(iter.items) {
				return Undefined, thrownError{value: StopIteration{}}
			}
			v := iter.items[iter.pos]
			iter.pos++
			return v, nil
		}
	case "toString":
		return ToString(obj), nil
	}

	if o, ok := obj.(*Object); ok && o.Class != nil {
		if m := o.Class.findMethod(name); m != nil {
			return vm.callCompiled(m, o, args)
		}
	}
	if cv, ok := obj.(*ClassValue); ok {
		if m := cv.findStaticMethod(name); m != nil {
			return vm.callCompiled(m, cv, args)
		}
	}
	if prop := vm.getProperty(obj, name); !strictEqual(prop, Undefined) {
		return vm.callValue(prop, obj, args)
	}
	if arr, ok := obj.(*Array); ok {
		return vm.callArrayMethod(arr, name, args)
	}
	if s, ok := obj.(string); ok {
		return vm.callStringMethod(s, name, args)
	}
	return Undefined, vm.runtimeError("no method %q on %s", name, typeOf(obj))
}

// construct builds an instance of the class named name.
func (vm *VM) construct(name string, args []Value) (Value, error) {
	v := vm.lookupName(name, nil)
	switch t := v.(type) {
	case *ClassValue:
		return vm.constructClass(t, args)
	case *FunctionValue:
		// `new` on a plain function: fresh object as receiver.
		obj := &Object{Props: make(map[string]Value)}
		if _, err := vm.callCompiled(t.Fn, obj, args); err != nil {
			return nil, err
		}
		return obj, nil
	}
	switch name {
	case "Object":
		return &Object{Props: make(map[string]Value)}, nil
	case "Array":
		return &Array{}, nil
	}
	return nil, vm.runtimeError("cannot construct %q", name)
}

func (vm *VM) constructClass(cv *ClassValue, args []Value) (Value, error) {
	obj := &Object{Class: cv, Props: make(map[string]Value)}
	for c := cv; c != nil; c = c.Base {
		for _, p := range c.Class.InstanceProps {
			if _, present := obj.Props[p.Name]; !present {
				obj.Props[p.Name] = Undefined
			}
		}
	}
	if ctor := vm.findConstructor(cv); ctor != nil {
		if _, err := vm.callCompiled(ctor, obj, args); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// findConstructor returns cv's own constructor, or the nearest
// inherited one (a synthesized default constructor compiles to a
// CallNextConstructor chain, so a missing own constructor falls back to
// the base's).
func (vm *VM) findConstructor(cv *ClassValue) *module.Function {
	for c := cv; c != nil; c = c.Base {
		if c.Class.Constructor != nil {
			return c.Class.Constructor
		}
	}
	return nil
}
