package codegen

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"
)

func TestDisassembleCode(t *testing.T) {
	b := NewBuffer(0)
	b.EmitOperand(OpLoadString, 1)
	b.EmitOperand(OpPutGlobalSlot, 0)
	b.Emit(OpLoadTrue)
	off := b.EmitBranchFalse(false)
	b.EmitOperand(OpLoadInt, 42)
	b.Emit(OpPop)
	b.Patch(off, false, b.Len())
	b.EmitDouble(1.5)
	b.Emit(OpPop)
	b.Emit(OpReturn)

	var sb strings.Builder
	d := NewDisassembler(&sb, []string{"", "greeting"})
	require.NoError(t, d.DisassembleCode(b.Bytes))
	snaps.MatchSnapshot(t, sb.String())
}

func TestDisassembleFunctionHeaderAndHandlers(t *testing.T) {
	b := NewBuffer(0)
	b.Emit(OpLoadNull)
	b.Emit(OpPop)
	b.Emit(OpReturn)
	b.Exceptions = append(b.Exceptions, ExceptionRecord{
		TryStart: 0, TryEnd: 1, HandlerStart: 1, HandlerEnd: 2, Flags: ExceptionFinally,
	})
	fn := &Function{Name: "demo", Buf: b, NumParams: 1, NumLocalSlots: 2}

	var sb strings.Builder
	d := NewDisassembler(&sb, nil)
	require.NoError(t, d.DisassembleFunction(fn))
	out := sb.String()
	require.Contains(t, out, "== demo ==")
	require.Contains(t, out, "params: 1, locals: 2")
	require.Contains(t, out, "handler 0: finally")
}

func TestDisassembleUnknownNameRefPrintsOffset(t *testing.T) {
	b := NewBuffer(0)
	b.EmitOperand(OpLoadString, 99)
	var sb strings.Builder
	require.NoError(t, NewDisassembler(&sb, nil).DisassembleCode(b.Bytes))
	require.Contains(t, sb.String(), "@99")
}
