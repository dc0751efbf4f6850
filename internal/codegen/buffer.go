package codegen

// ExceptionFlag tags what kind of handler an ExceptionRecord describes.
type ExceptionFlag int

const (
	ExceptionCatch ExceptionFlag = 1 << iota
	ExceptionFinally
	ExceptionIteration
)

// ExceptionRecord is one try/catch/finally region, offsets relative to
// the owning Buffer until buffers are concatenated and they get
// rebased; after every concatenation tryStart <= tryEnd <=
// handlerStart <= handlerEnd still holds.
type ExceptionRecord struct {
	TryStart, TryEnd         int
	HandlerStart, HandlerEnd int
	NumBlocks, NumStack      int
	Flags                    ExceptionFlag
	CatchType                any // resolved type ref, nil for `finally`/untyped catch
}

// Buffer is a growable byte buffer bound to one function (or module
// initializer) under construction, tracking the virtual operand stack
// depth at every instruction and collecting exception records.
// Break/continue jump fixups are tracked by the Generator's loopContext
// stack, not here: the Buffer owns the bytes, the Generator owns where
// control flow needs to land.
type Buffer struct {
	Bytes      []byte
	Exceptions []ExceptionRecord

	StackDepth int // current virtual stack depth
	MaxStack   int // high-water mark, for module metadata

	BreakMark int // stack depth recorded at the enclosing loop/switch entry
}

// NewBuffer returns an empty buffer with the given inherited BreakMark.
func NewBuffer(breakMark int) *Buffer {
	return &Buffer{BreakMark: breakMark}
}

// Child allocates a new buffer inheriting this buffer's current stack
// depth and break mark — used when building a then/else, body/cond, or
// try/catch/finally segment separately before measuring and splicing it.
func (b *Buffer) Child() *Buffer {
	c := NewBuffer(b.BreakMark)
	c.StackDepth = b.StackDepth
	return c
}

// Len reports the buffer's current byte length, used to measure a
// pre-built segment before deciding the 8-bit vs. 32-bit branch form.
func (b *Buffer) Len() int { return len(b.Bytes) }

// push adjusts the tracked virtual stack depth and high-water mark.
func (b *Buffer) push(n int) {
	b.StackDepth += n
	if b.StackDepth > b.MaxStack {
		b.MaxStack = b.StackDepth
	}
}

// Emit appends a no-operand opcode and applies its known stack effect.
func (b *Buffer) Emit(op OpCode) {
	b.Bytes = append(b.Bytes, byte(op))
	b.push(stackEffect[op])
}

// EmitOperand appends op followed by one varint operand.
func (b *Buffer) EmitOperand(op OpCode, operand int64) {
	b.Bytes = append(b.Bytes, byte(op))
	b.Bytes = appendVarint(b.Bytes, operand)
	b.push(stackEffect[op])
}

// EmitOperands appends op followed by several varint operands, in order.
func (b *Buffer) EmitOperands(op OpCode, operands ...int64) {
	b.Bytes = append(b.Bytes, byte(op))
	for _, o := range operands {
		b.Bytes = appendVarint(b.Bytes, o)
	}
	b.push(stackEffect[op])
}

// EmitEffect appends op with explicit operands and an explicit stack
// delta, for opcodes whose effect depends on a variable arity (calls,
// *ByName field access) rather than being fixed per opcode.
func (b *Buffer) EmitEffect(op OpCode, delta int, operands ...int64) {
	b.Bytes = append(b.Bytes, byte(op))
	for _, o := range operands {
		b.Bytes = appendVarint(b.Bytes, o)
	}
	b.push(delta)
}

// EmitDouble appends OpLoadDouble with its IEEE-754 payload.
func (b *Buffer) EmitDouble(f float64) {
	b.Bytes = append(b.Bytes, byte(OpLoadDouble))
	b.Bytes = appendDouble(b.Bytes, f)
	b.push(1)
}

// PopItems emits OpPopItems n, or nothing for n==0, or a single Pop for
// n==1 — discarding excess operand-stack items down to a break/continue
// mark.
func (b *Buffer) PopItems(n int) {
	switch {
	case n <= 0:
		return
	case n == 1:
		b.Emit(OpPop)
	default:
		b.EmitEffect(OpPopItems, -n, int64(n))
	}
}

// reserveBranch writes op (a branch/goto form) followed by a placeholder
// displacement, returning the byte offset of the placeholder for later
// patching. wide selects the 32-bit vs. 8-bit displacement width.
func (b *Buffer) reserveBranch(op OpCode, wide bool) int {
	b.Bytes = append(b.Bytes, byte(op))
	b.push(stackEffect[op])
	offset := len(b.Bytes)
	if wide {
		b.Bytes = append(b.Bytes, 0, 0, 0, 0)
	} else {
		b.Bytes = append(b.Bytes, 0)
	}
	return offset
}

// EmitGoto reserves an unconditional jump, returning its displacement
// offset for a later Patch call.
func (b *Buffer) EmitGoto(wide bool) int {
	if wide {
		return b.reserveBranch(OpGoto, true)
	}
	return b.reserveBranch(OpGoto8, false)
}

// EmitBranchFalse reserves a conditional branch consuming the top
// boolean.
func (b *Buffer) EmitBranchFalse(wide bool) int {
	if wide {
		return b.reserveBranch(OpBranchFalse, true)
	}
	return b.reserveBranch(OpBranchFalse8, false)
}

// EmitBranchTrue reserves a conditional branch consuming the top boolean,
// taken when it is truthy (used for a do-while's back-edge test).
func (b *Buffer) EmitBranchTrue(wide bool) int {
	if wide {
		return b.reserveBranch(OpBranchTrue, true)
	}
	return b.reserveBranch(OpBranchTrue8, false)
}

// patchDisplacement writes a displacement at offset, using 1 or 4 bytes
// depending on what was reserved there.
func patchDisplacement(bytes []byte, offset int, wide bool, disp int32) {
	if wide {
		bytes[offset] = byte(disp)
		bytes[offset+1] = byte(disp >> 8)
		bytes[offset+2] = byte(disp >> 16)
		bytes[offset+3] = byte(disp >> 24)
	} else {
		bytes[offset] = byte(disp)
	}
}

// Patch resolves a previously reserved branch at offset to jump to
// target (an absolute byte offset into b.Bytes). The displacement is
// int32, so the patched value always fits its 4-byte slot.
func (b *Buffer) Patch(offset int, wide bool, target int) {
	width := 1
	if wide {
		width = 4
	}
	disp := int32(target - (offset + width))
	patchDisplacement(b.Bytes, offset, wide, disp)
}

// Append concatenates other onto b, rebasing every exception-record
// boundary by b's current length, and returns that base so the caller can rebase any
// offset it recorded from other (e.g. from EmitGoto/EmitBranchFalse)
// before calling Patch on b.
func (b *Buffer) Append(other *Buffer) int {
	base := len(b.Bytes)
	b.Bytes = append(b.Bytes, other.Bytes...)
	for _, e := range other.Exceptions {
		e.TryStart += base
		e.TryEnd += base
		e.HandlerStart += base
		e.HandlerEnd += base
		b.Exceptions = append(b.Exceptions, e)
	}
	// Append only propagates the post-segment depth forward; callers
	// assert stack convergence explicitly at each control-flow join,
	// since a skipped-over segment's depth can't be checked from here.
	b.StackDepth = other.StackDepth
	if other.MaxStack > b.MaxStack {
		b.MaxStack = other.MaxStack
	}
	return base
}
