package module

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolOffsetZeroIsReserved(t *testing.T) {
	p := NewConstantPool()
	require.Equal(t, 0, p.Intern(""))
	require.Equal(t, byte(0), p.Bytes()[0], "first byte is NUL so offset 0 means 'no string'")

	s, ok := p.StringAt(0)
	require.True(t, ok)
	require.Equal(t, "", s)
}

func TestPoolInternDedupes(t *testing.T) {
	p := NewConstantPool()
	a := p.Intern("alpha")
	b := p.Intern("beta")
	require.NotEqual(t, a, b)
	require.Equal(t, a, p.Intern("alpha"))

	s, ok := p.StringAt(a)
	require.True(t, ok)
	require.Equal(t, "alpha", s)
	s, ok = p.StringAt(b)
	require.True(t, ok)
	require.Equal(t, "beta", s)
}

func TestPoolEveryStringIsNulTerminated(t *testing.T) {
	p := NewConstantPool()
	off := p.Intern("xyz")
	data := p.Bytes()
	require.Equal(t, byte(0), data[off+3])
}

func TestPoolNFCNormalization(t *testing.T) {
	p := NewConstantPool()
	precomposed := p.Intern("caf\u00e9")
	decomposed := p.Intern("cafe\u0301")
	require.Equal(t, precomposed, decomposed,
		"precomposed and decomposed spellings intern to one entry")
}

func TestPoolLock(t *testing.T) {
	p := NewConstantPool()
	p.Intern("before")
	p.Lock()
	require.True(t, p.Locked())

	// Existing strings still resolve after locking.
	require.Equal(t, p.Lookup("before"), p.Intern("before"))
	require.False(t, p.LockViolation)

	// A new string after locking trips the violation flag.
	require.Equal(t, 0, p.Intern("after"))
	require.True(t, p.LockViolation)
}

func TestPoolFromBytesRoundTrip(t *testing.T) {
	p := NewConstantPool()
	offs := map[string]int{}
	for _, s := range []string{"one", "two", "three"} {
		offs[s] = p.Intern(s)
	}
	reloaded := PoolFromBytes(p.Bytes())
	for s, off := range offs {
		got, ok := reloaded.StringAt(off)
		require.True(t, ok)
		require.Equal(t, s, got)
		require.Equal(t, off, reloaded.Lookup(s))
	}
	require.True(t, reloaded.Locked())
}

func TestPoolStringAtBounds(t *testing.T) {
	p := NewConstantPool()
	p.Intern("abc")
	_, ok := p.StringAt(-1)
	require.False(t, ok)
	_, ok = p.StringAt(p.Len())
	require.False(t, ok)
}
