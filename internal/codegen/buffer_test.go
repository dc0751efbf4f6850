package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackTracking(t *testing.T) {
	b := NewBuffer(0)
	b.Emit(OpLoad1)
	b.Emit(OpLoad2)
	require.Equal(t, 2, b.StackDepth)
	b.Emit(OpAdd)
	require.Equal(t, 1, b.StackDepth)
	b.Emit(OpPop)
	require.Equal(t, 0, b.StackDepth)
	require.Equal(t, 2, b.MaxStack)
}

func TestPopItems(t *testing.T) {
	b := NewBuffer(0)
	b.Emit(OpLoad1)
	b.Emit(OpLoad2)
	b.Emit(OpLoad3)
	b.PopItems(0)
	require.Equal(t, 3, b.StackDepth)

	b.PopItems(1)
	require.Equal(t, 2, b.StackDepth)
	require.Equal(t, OpPop, OpCode(b.Bytes[len(b.Bytes)-1]), "one item uses a plain Pop")

	b.PopItems(2)
	require.Equal(t, 0, b.StackDepth)
	instrs, err := DecodeAll(b.Bytes)
	require.NoError(t, err)
	last := instrs[len(instrs)-1]
	require.Equal(t, OpPopItems, last.Op)
	require.Equal(t, []int64{2}, last.Operands)
}

func TestChildInheritsDepthAndMark(t *testing.T) {
	b := NewBuffer(0)
	b.Emit(OpLoad1)
	b.BreakMark = 1
	c := b.Child()
	require.Equal(t, 1, c.StackDepth)
	require.Equal(t, 1, c.BreakMark)
}

func TestAppendRebasesExceptions(t *testing.T) {
	parent := NewBuffer(0)
	parent.Emit(OpLoad1)
	parent.Emit(OpPop)

	child := parent.Child()
	child.Emit(OpLoadNull)
	child.Emit(OpPop)
	child.Exceptions = append(child.Exceptions, ExceptionRecord{
		TryStart: 0, TryEnd: 1, HandlerStart: 1, HandlerEnd: 2, Flags: ExceptionCatch,
	})

	base := parent.Append(child)
	require.Equal(t, 2, base)
	require.Len(t, parent.Exceptions, 1)
	e := parent.Exceptions[0]
	require.Equal(t, 2, e.TryStart)
	require.Equal(t, 3, e.TryEnd)
	require.Equal(t, 3, e.HandlerStart)
	require.Equal(t, 4, e.HandlerEnd)
	require.LessOrEqual(t, e.TryStart, e.TryEnd)
	require.LessOrEqual(t, e.TryEnd, e.HandlerStart)
	require.LessOrEqual(t, e.HandlerStart, e.HandlerEnd)
}

func TestPatchWritesSignedDisplacement(t *testing.T) {
	b := NewBuffer(0)
	b.Emit(OpLoadTrue)
	off := b.EmitGoto(true)
	// Jump backwards to offset 0.
	b.Patch(off, true, 0)
	instrs, err := DecodeAll(b.Bytes)
	require.NoError(t, err)
	require.Equal(t, OpGoto, instrs[1].Op)
	require.Equal(t, int64(-6), instrs[1].Operands[0],
		"backward displacement from the end of the 5-byte Goto to offset 0")
}
