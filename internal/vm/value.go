// Package vm is the minimal companion virtual machine: enough of the
// bytecode contract to execute a compiled module's initializer and
// functions for `ejsc run`. The full object model the compiler targets
// is an external collaborator; this package implements the subset the
// compiler's own output exercises, decoding the variable-length
// instruction stream internal/codegen emits.
package vm

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ejscript/ejsc/internal/module"
)

// Value is a runtime value: nil (null), Undefined, bool, float64,
// string, *Object, *Array, *FunctionValue, *ClassValue, *Iterator, or
// Builtin.
type Value = any

// undefinedValue distinguishes `undefined` from `null` (Go nil).
type undefinedValue struct{}

// Undefined is the VM's `undefined` singleton.
var Undefined Value = undefinedValue{}

// Object is a dynamic property bag, optionally instance of a class.
type Object struct {
	Class *ClassValue
	Props map[string]Value
}

// Array is the VM's ordered collection.
type Array struct {
	Elems []Value
}

// FunctionValue wraps a compiled function for calling.
type FunctionValue struct {
	Fn *module.Function
}

// ClassValue wraps a compiled class for `new` and static access.
type ClassValue struct {
	Class *module.Class
	Base  *ClassValue
	// Statics are the class's static slots.
	Statics []Value
}

// Builtin is a host function callable from bytecode.
type Builtin func(vm *VM, args []Value) (Value, error)

// Iterator drives the for-in protocol: `.get`/`.getValues` produce one,
// `.next` advances it and raises StopIteration at the end.
type Iterator struct {
	items []Value
	pos   int
}

// StopIteration is the sentinel the iterator protocol throws to
// terminate a for-in loop.
type StopIteration struct{}

func (StopIteration) Error() string { return "StopIteration" }

// Truthy implements ECMAScript boolean coercion.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil, undefinedValue:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}

// ToString renders v the way `print` and string concatenation see it.
func ToString(v Value) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case undefinedValue:
		return "undefined"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	case *Array:
		s := ""
		for i, e := range t.Elems {
			if i > 0 {
				s += ","
			}
			s += ToString(e)
		}
		return s
	case *Object:
		return "[object Object]"
	case *FunctionValue:
		return "[function " + t.Fn.Name + "]"
	case *ClassValue:
		return "[class " + t.Class.Name + "]"
	}
	return fmt.Sprintf("%v", v)
}

// toNumber implements the numeric coercion the arithmetic ops use.
func toNumber(v Value) float64 {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	case float64:
		return t
	case string:
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nan()
		}
		return n
	}
	return nan()
}

func nan() float64 {
	var zero float64
	return 0 / zero
}

// looseEqual implements ==; strictEqual implements ===.
func looseEqual(a, b Value) bool {
	if strictEqual(a, b) {
		return true
	}
	_, aUndef := a.(undefinedValue)
	_, bUndef := b.(undefinedValue)
	if (a == nil && bUndef) || (aUndef && b == nil) {
		return true
	}
	switch a.(type) {
	case float64, string, bool:
		switch b.(type) {
		case float64, string, bool:
			return toNumber(a) == toNumber(b)
		}
	}
	return false
}

func strictEqual(a, b Value) bool {
	switch at := a.(type) {
	case nil:
		return b == nil
	case undefinedValue:
		_, ok := b.(undefinedValue)
		return ok
	case bool:
		bt, ok := b.(bool)
		return ok && at == bt
	case float64:
		bt, ok := b.(float64)
		return ok && at == bt
	case string:
		bt, ok := b.(string)
		return ok && at == bt
	}
	return a == b
}

// iterationKeys returns the for-in key set of v in a stable order.
func iterationKeys(v Value) []Value {
	switch t := v.(type) {
	case *Array:
		keys := make([]Value, len(t.Elems))
		for i := range t.Elems {
			keys[i] = float64(i)
		}
		return keys
	case *Object:
		names := make([]string, 0, len(t.Props))
		for k := range t.Props {
			names = append(names, k)
		}
		sort.Strings(names)
		keys := make([]Value, len(names))
		for i, k := range names {
			keys[i] = k
		}
		return keys
	case string:
		keys := make([]Value, len(t))
		for i := range t {
			keys[i] = float64(i)
		}
		return keys
	}
	return nil
}

// iterationValues returns the for-each value set of v.
func iterationValues(v Value) []Value {
	switch t := v.(type) {
	case *Array:
		return append([]Value(nil), t.Elems...)
	case *Object:
		var vals []Value
		for _, k := range iterationKeys(t) {
			vals = append(vals, t.Props[k.(string)])
		}
		return vals
	case string:
		vals := make([]Value, 0, len(t))
		for _, r := range t {
			vals = append(vals, string(r))
		}
		return vals
	}
	return nil
}
