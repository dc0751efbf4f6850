package vm

import (
	"fmt"
	"math"
	"strings"
)

// registerBuiltins installs the host functions scripts can reach by
// name, pared down to what Ejscript programs under `ejsc run` actually
// exercise.
func (vm *VM) registerBuiltins() {
	vm.builtins["print"] = builtinPrint
	vm.builtins["trace"] = builtinPrint
	vm.builtins["assert"] = builtinAssert
	vm.builtins["parseInt"] = builtinParseInt
	vm.builtins["parseFloat"] = func(_ *VM, args []Value) (Value, error) {
		if len(args) == 0 {
			return nan(), nil
		}
		return toNumber(args[0]), nil
	}
	vm.builtins["isNaN"] = func(_ *VM, args []Value) (Value, error) {
		if len(args) == 0 {
			return true, nil
		}
		return math.IsNaN(toNumber(args[0])), nil
	}
	vm.builtins["typeOf"] = func(_ *VM, args []Value) (Value, error) {
		if len(args) == 0 {
			return "undefined", nil
		}
		return typeOf(args[0]), nil
	}
}

func builtinPrint(vm *VM, args []Value) (Value, error) {
	if vm.output == nil {
		return Undefined, nil
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = ToString(a)
	}
	fmt.Fprintln(vm.output, strings.Join(parts, " "))
	return Undefined, nil
}

func builtinAssert(vm *VM, args []Value) (Value, error) {
	if len(args) == 0 || !Truthy(args[0]) {
		msg := "assertion failed"
		if len(args) > 1 {
			msg = msg + ": " + ToString(args[1])
		}
		return Undefined, thrownError{value: msg}
	}
	return Undefined, nil
}

func builtinParseInt(_ *VM, args []Value) (Value, error) {
	if len(args) == 0 {
		return nan(), nil
	}
	s := strings.TrimSpace(ToString(args[0]))
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || (end == 0 && (s[end] == '-' || s[end] == '+'))) {
		end++
	}
	if end == 0 {
		return nan(), nil
	}
	return toNumber(s[:end]), nil
}

// callArrayMethod services the array conveniences programs lean on.
func (vm *VM) callArrayMethod(arr *Array, name string, args []Value) (Value, error) {
	switch name {
	case "push":
		arr.Elems = append(arr.Elems, args...)
		return float64(len(arr.Elems)), nil
	case "pop":
		if len(arr.Elems) == 0 {
			return Undefined, nil
		}
		v := arr.Elems[len(arr.Elems)-1]
		arr.Elems = arr.Elems[:len(arr.Elems)-1]
		return v, nil
	case "join":
		sep := ","
		if len(args) > 0 {
			sep = ToString(args[0])
		}
		parts := make([]string, len(arr.Elems))
		for i, e := range arr.Elems {
			parts[i] = ToString(e)
		}
		return strings.Join(parts, sep), nil
	case "indexOf":
		if len(args) > 0 {
			for i, e := range arr.Elems {
				if strictEqual(e, args[0]) {
					return float64(i), nil
				}
			}
		}
		return float64(-1), nil
	}
	return Undefined, vm.runtimeError("no method %q on array", name)
}

// callStringMethod services the string conveniences.
func (vm *VM) callStringMethod(s, name string, args []Value) (Value, error) {
	switch name {
	case "charAt":
		idx := 0
		if len(args) > 0 {
			idx = int(toNumber(args[0]))
		}
		if idx < 0 || idx >= len(s) {
			return "", nil
		}
		return string(s[idx]), nil
	case "indexOf":
		if len(args) == 0 {
			return float64(-1), nil
		}
		return float64(strings.Index(s, ToString(args[0]))), nil
	case "toUpperCase":
		return strings.ToUpper(s), nil
	case "toLowerCase":
		return strings.ToLower(s), nil
	case "substring":
		start, end := 0, len(s)
		if len(args) > 0 {
			start = clampIndex(int(toNumber(args[0])), len(s))
		}
		if len(args) > 1 {
			end = clampIndex(int(toNumber(args[1])), len(s))
		}
		if start > end {
			start, end = end, start
		}
		return s[start:end], nil
	case "split":
		sep := ""
		if len(args) > 0 {
			sep = ToString(args[0])
		}
		parts := strings.Split(s, sep)
		elems := make([]Value, len(parts))
		for i, p := range parts {
			elems[i] = p
		}
		return &Array{Elems: elems}, nil
	}
	return Undefined, vm.runtimeError("no method %q on string", name)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
