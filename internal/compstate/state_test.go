package compstate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushInheritsFromPrev(t *testing.T) {
	var st Stack
	st.Push(func(s *State) {
		s.Mode = ModeStrict
		s.Namespace = "outer"
		s.InClass = true
	})
	inner := st.Push(nil)

	require.Equal(t, ModeStrict, inner.Mode)
	require.Equal(t, "outer", inner.Namespace)
	require.True(t, inner.InClass)
	require.Same(t, inner, st.Top())
}

func TestPopDoesNotLeakState(t *testing.T) {
	var st Stack
	st.Push(func(s *State) { s.Namespace = "outer" })
	st.Push(func(s *State) {
		s.Namespace = "inner"
		s.Disabled = true
	})
	st.Pop()

	require.Equal(t, "outer", st.Top().Namespace)
	require.False(t, st.Top().Disabled, "no state leaks up on pop")
}

func TestDepth(t *testing.T) {
	var st Stack
	require.Zero(t, st.Depth())
	st.Push(nil)
	st.Push(nil)
	require.Equal(t, 2, st.Depth())
	st.Pop()
	require.Equal(t, 1, st.Depth())
	st.Pop()
	require.Zero(t, st.Depth())
	st.Pop() // popping an empty stack is harmless
	require.Zero(t, st.Depth())
}

func TestMutateAppliesAfterInheritance(t *testing.T) {
	var st Stack
	st.Push(func(s *State) { s.BlockNestCount = 3 })
	st.Push(func(s *State) { s.BlockNestCount++ })
	require.Equal(t, 4, st.Top().BlockNestCount)
}
