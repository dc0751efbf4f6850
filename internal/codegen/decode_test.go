package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 63, 64, -64, -65, 127, 128, -128, 255, 256, 1 << 20, -(1 << 20)}
	for _, v := range values {
		buf := appendVarint(nil, v)
		got, next, err := readVarint(buf, 0)
		require.NoError(t, err)
		require.Equal(t, v, got, "value %d", v)
		require.Equal(t, len(buf), next)
	}
}

func TestDecodeSimpleSequence(t *testing.T) {
	b := NewBuffer(0)
	b.Emit(OpLoad1)
	b.EmitOperand(OpPutGlobalSlot, 0)
	b.Emit(OpReturn)

	instrs, err := DecodeAll(b.Bytes)
	require.NoError(t, err)
	require.Len(t, instrs, 3)
	require.Equal(t, OpLoad1, instrs[0].Op)
	require.Equal(t, OpPutGlobalSlot, instrs[1].Op)
	require.Equal(t, []int64{0}, instrs[1].Operands)
	require.Equal(t, OpReturn, instrs[2].Op)
}

func TestDecodeDouble(t *testing.T) {
	b := NewBuffer(0)
	b.EmitDouble(2.5)
	instrs, err := DecodeAll(b.Bytes)
	require.NoError(t, err)
	require.Len(t, instrs, 1)
	require.Equal(t, OpLoadDouble, instrs[0].Op)
	require.Equal(t, 9, instrs[0].Size)
}

func TestDecodeBranchDisplacements(t *testing.T) {
	b := NewBuffer(0)
	b.Emit(OpLoadTrue)
	off := b.EmitBranchFalse(true)
	b.Emit(OpLoadNull)
	b.Patch(off, true, b.Len())

	instrs, err := DecodeAll(b.Bytes)
	require.NoError(t, err)
	require.Equal(t, OpBranchFalse, instrs[1].Op)
	// Displacement is relative to the end of the instruction; the target
	// resolves to the buffer end, past the one-byte LoadNull.
	require.Equal(t, int64(1), instrs[1].Operands[0])
}

func TestDecodeShortBranch(t *testing.T) {
	b := NewBuffer(0)
	b.Emit(OpLoadTrue)
	off := b.EmitBranchFalse(false)
	b.Emit(OpLoadNull)
	b.Patch(off, false, b.Len())

	instrs, err := DecodeAll(b.Bytes)
	require.NoError(t, err)
	require.Equal(t, OpBranchFalse8, instrs[1].Op)
	require.Equal(t, int64(1), instrs[1].Operands[0])
	require.Equal(t, 2, instrs[1].Size)
}

func TestDecodeTruncated(t *testing.T) {
	b := NewBuffer(0)
	b.EmitOperand(OpLoadInt, 1<<20)
	_, err := DecodeAll(b.Bytes[:2])
	require.Error(t, err)
}

func TestDecodeUnknownOpcode(t *testing.T) {
	_, err := DecodeAll([]byte{0xFF})
	require.Error(t, err)
}

func TestDecodeInitDefaultArgsTable(t *testing.T) {
	b := NewBuffer(0)
	b.EmitOperands(OpInitDefaultArgs8, 2, 3, 5)
	instrs, err := DecodeAll(b.Bytes[:b.Len()])
	require.NoError(t, err)
	require.Len(t, instrs, 1)
	require.Equal(t, []int64{2, 3, 5}, instrs[0].Operands,
		"count followed by one segment length per default")
}
