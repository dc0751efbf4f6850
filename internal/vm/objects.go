package vm

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/module"
)

// Property, element, slot, and call plumbing over the VM's value model.

func (vm *VM) getProperty(obj Value, name string) Value {
	switch t := obj.(type) {
	case *Object:
		if v, ok := t.Props[name]; ok {
			return v
		}
		if t.Class != nil {
			if m := t.Class.findMethod(name); m != nil {
				return &FunctionValue{Fn: m}
			}
		}
		return Undefined
	case *Array:
		if name == "length" {
			return float64(len(t.Elems))
		}
		return Undefined
	case string:
		if name == "length" {
			return float64(len(t))
		}
		return Undefined
	case *ClassValue:
		// Static access through the class reference.
		if slot, ok := t.staticSlotByName(name); ok {
			return t.Statics[slot]
		}
		if m := t.findStaticMethod(name); m != nil {
			return &FunctionValue{Fn: m}
		}
		return Undefined
	}
	return Undefined
}

func (vm *VM) setProperty(obj Value, name string, v Value) error {
	switch t := obj.(type) {
	case *Object:
		if t.Props == nil {
			t.Props = make(map[string]Value)
		}
		t.Props[name] = v
		return nil
	case *Array:
		return vm.runtimeError("cannot set property %q on an array", name)
	case *ClassValue:
		if slot, ok := t.staticSlotByName(name); ok {
			t.Statics[slot] = v
			return nil
		}
		return vm.runtimeError("class %s has no static %q", t.Class.Name, name)
	}
	return vm.runtimeError("cannot set property %q on %s", name, typeOf(obj))
}

func (vm *VM) deleteProperty(obj Value, name string) bool {
	if t, ok := obj.(*Object); ok {
		if _, present := t.Props[name]; present {
			delete(t.Props, name)
			return true
		}
	}
	return false
}

func (vm *VM) getElement(obj, key Value) Value {
	switch t := obj.(type) {
	case *Array:
		idx := int(toNumber(key))
		if idx >= 0 && idx < len(t.Elems) {
			return t.Elems[idx]
		}
		return Undefined
	case string:
		idx := int(toNumber(key))
		if idx >= 0 && idx < len(t) {
			return string(t[idx])
		}
		return Undefined
	default:
		return vm.getProperty(obj, ToString(key))
	}
}

func (vm *VM) setElement(obj, key, v Value) error {
	switch t := obj.(type) {
	case *Array:
		idx := int(toNumber(key))
		if idx < 0 {
			return vm.runtimeError("negative array index %d", idx)
		}
		for idx >= len(t.Elems) {
			t.Elems = append(t.Elems, Undefined)
		}
		t.Elems[idx] = v
		return nil
	default:
		return vm.setProperty(obj, ToString(key), v)
	}
}

// findMethod walks the class chain for an instance method.
func (cv *ClassValue) findMethod(name string) *module.Function {
	for c := cv; c != nil; c = c.Base {
		for _, m := range c.Class.Methods {
			if m.Name == name {
				return m
			}
		}
	}
	return nil
}

func (cv *ClassValue) findStaticMethod(name string) *module.Function {
	// Methods carry their static bit in Attrs; this VM keeps static and
	// instance methods in one list and lets the call site pick.
	return cv.findMethod(name)
}

// staticSlotByName resolves a static property name to its index in
// Statics. Slot numbers are chain-global already (the compiler numbers a
// derived class's statics after its base's), so no offset arithmetic.
func (cv *ClassValue) staticSlotByName(name string) (int, bool) {
	for c := cv; c != nil; c = c.Base {
		for _, p := range c.Class.StaticProps {
			if p.Name == name {
				return p.Slot, true
			}
		}
	}
	return 0, false
}

// methodBySlot finds the method occupying slot, derived-most first so an
// override stamped into an inherited slot wins over the base method.
func (cv *ClassValue) methodBySlot(slot int, wantStatic bool) *module.Function {
	for c := cv; c != nil; c = c.Base {
		for _, m := range c.Class.Methods {
			if m.Slot == slot && (m.Attrs&uint32(ast.AttrStatic) != 0) == wantStatic {
				return m
			}
		}
	}
	return nil
}

// instanceSlotName resolves an instance slot number to its property
// name through the class chain, mirroring the compiler's slot layout
// (base instance slots precede derived ones).
func (cv *ClassValue) instanceSlotName(slot int) (string, bool) {
	var chain []*ClassValue
	for c := cv; c != nil; c = c.Base {
		chain = append(chain, c)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, p := range chain[i].Class.InstanceProps {
			if p.Slot == slot {
				return p.Name, true
			}
		}
		for _, m := range chain[i].Class.Methods {
			if m.Slot == slot && m.Name != "" {
				return m.Name, true
			}
		}
	}
	return "", false
}

func (vm *VM) thisObject(f *frame) (*Object, error) {
	obj, ok := f.this.(*Object)
	if !ok || obj.Class == nil {
		return nil, vm.runtimeError("instance access outside a method")
	}
	return obj, nil
}

func (vm *VM) getThisSlot(f *frame, slot int) error {
	obj, err := vm.thisObject(f)
	if err != nil {
		return err
	}
	name, ok := obj.Class.instanceSlotName(slot)
	if !ok {
		return vm.runtimeError("instance slot %d unmapped on %s", slot, obj.Class.Class.Name)
	}
	vm.push(vm.getProperty(obj, name))
	return nil
}

func (vm *VM) putThisSlot(f *frame, slot int) error {
	obj, err := vm.thisObject(f)
	if err != nil {
		return err
	}
	name, ok := obj.Class.instanceSlotName(slot)
	if !ok {
		return vm.runtimeError("instance slot %d unmapped on %s", slot, obj.Class.Class.Name)
	}
	v, err := vm.pop()
	if err != nil {
		return err
	}
	return vm.setProperty(obj, name, v)
}

func (vm *VM) getThisTypeSlot(f *frame, slot int) error {
	obj, err := vm.thisObject(f)
	if err != nil {
		return err
	}
	if slot < 0 || slot >= len(obj.Class.Statics) {
		return vm.runtimeError("static slot %d out of range on %s", slot, obj.Class.Class.Name)
	}
	vm.push(obj.Class.Statics[slot])
	return nil
}

func (vm *VM) putThisTypeSlot(f *frame, slot int) error {
	obj, err := vm.thisObject(f)
	if err != nil {
		return err
	}
	if slot < 0 || slot >= len(obj.Class.Statics) {
		return vm.runtimeError("static slot %d out of range on %s", slot, obj.Class.Class.Name)
	}
	v, err := vm.pop()
	if err != nil {
		return err
	}
	obj.Class.Statics[slot] = v
	return nil
}

func (vm *VM) getObjSlot(f *frame, slot int) error {
	obj, err := vm.pop()
	if err != nil {
		return err
	}
	if o, ok := obj.(*Object); ok && o.Class != nil {
		if name, ok := o.Class.instanceSlotName(slot); ok {
			vm.push(vm.getProperty(o, name))
			return nil
		}
	}
	return vm.runtimeError("object slot %d unmapped", slot)
}

func (vm *VM) putObjSlot(f *frame, slot int) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	obj, err := vm.pop()
	if err != nil {
		return err
	}
	if o, ok := obj.(*Object); ok && o.Class != nil {
		if name, ok := o.Class.instanceSlotName(slot); ok {
			return vm.setProperty(o, name, v)
		}
	}
	return vm.runtimeError("object slot %d unmapped", slot)
}

func (vm *VM) instanceOf(v, class Value) bool {
	cv, ok := class.(*ClassValue)
	if !ok {
		return false
	}
	obj, ok := v.(*Object)
	if !ok {
		return false
	}
	for c := obj.Class; c != nil; c = c.Base {
		if c == cv {
			return true
		}
	}
	return false
}
