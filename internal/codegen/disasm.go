package codegen

import (
	"fmt"
	"io"
	"math"
)

// Disassembler renders a compiled function's code buffer as a
// human-readable listing, for `ejsc compile --dump` and for tests that
// pin bytecode shapes without comparing raw bytes.
type Disassembler struct {
	writer io.Writer
	names  []string // provisional name table, or nil when operands are pool offsets
}

// NewDisassembler creates a disassembler writing to w. names is the
// Generator's provisional name table; pass nil when the buffer's name
// operands are already constant-pool offsets (a reloaded module), in
// which case name refs print as bare offsets.
func NewDisassembler(w io.Writer, names []string) *Disassembler {
	return &Disassembler{writer: w, names: names}
}

// DisassembleFunction prints one function's header, code, and exception
// table.
func (d *Disassembler) DisassembleFunction(fn *Function) error {
	fmt.Fprintf(d.writer, "== %s ==\n", fn.Name)
	fmt.Fprintf(d.writer, "params: %d, locals: %d, code: %d bytes\n",
		fn.NumParams, fn.NumLocalSlots, fn.Buf.Len())
	if err := d.DisassembleCode(fn.Buf.Bytes); err != nil {
		return err
	}
	for i, e := range fn.Buf.Exceptions {
		fmt.Fprintf(d.writer, "handler %d: %s try=[%d,%d) handler=[%d,%d)\n",
			i, exceptionFlagName(e.Flags), e.TryStart, e.TryEnd, e.HandlerStart, e.HandlerEnd)
	}
	fmt.Fprintln(d.writer)
	return nil
}

// DisassembleCode prints every instruction in code, one per line.
func (d *Disassembler) DisassembleCode(code []byte) error {
	instrs, err := DecodeAll(code)
	if err != nil {
		return err
	}
	for _, in := range instrs {
		d.printInstr(in)
	}
	return nil
}

func (d *Disassembler) printInstr(in Instr) {
	fmt.Fprintf(d.writer, "%04d  %s", in.Offset, in.Op)
	for i, operand := range in.Operands {
		switch in.Kinds[i] {
		case OperNameRef:
			if d.names != nil && operand >= 0 && int(operand) < len(d.names) {
				fmt.Fprintf(d.writer, " %q", d.names[operand])
			} else {
				fmt.Fprintf(d.writer, " @%d", operand)
			}
		case OperDisp8, OperDisp32:
			// Displacements are relative to the end of the instruction;
			// print the resolved absolute target, which is what a reader
			// actually wants to follow.
			fmt.Fprintf(d.writer, " ->%04d", in.Offset+in.Size+int(operand))
		case OperDouble:
			fmt.Fprintf(d.writer, " %g", math.Float64frombits(uint64(in.Operands[i])))
		default:
			fmt.Fprintf(d.writer, " %d", operand)
		}
	}
	fmt.Fprintln(d.writer)
}

func exceptionFlagName(f ExceptionFlag) string {
	switch {
	case f&ExceptionIteration != 0:
		return "iteration"
	case f&ExceptionFinally != 0:
		return "finally"
	case f&ExceptionCatch != 0:
		return "catch"
	}
	return "none"
}
