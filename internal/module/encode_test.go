package module

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 63, 64, -64, -65, 127, 128, 255, 256,
		10000, -10000, 1 << 31, -(1 << 31), 1<<62 - 1}
	for _, v := range values {
		buf := appendVarint(nil, v)
		got, next, err := readVarint(buf, 0)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), next)
	}
}

func TestVarintTruncated(t *testing.T) {
	buf := appendVarint(nil, 1<<40)
	_, _, err := readVarint(buf[:1], 0)
	require.Error(t, err)
}

func TestWordLittleEndian(t *testing.T) {
	buf := appendWord(nil, 0xC7DA0001)
	require.Equal(t, []byte{0x01, 0x00, 0xDA, 0xC7}, buf)
	v, next, err := readWord(buf, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(0xC7DA0001), v)
	require.Equal(t, 4, next)
}

func TestVersionPacking(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 3}
	require.Equal(t, int64(1)*VersionFactor*VersionFactor+2*VersionFactor+3, v.Packed())
	require.Equal(t, v, UnpackVersion(v.Packed()))

	parsed, err := ParseVersion("4.5.6")
	require.NoError(t, err)
	require.Equal(t, Version{Major: 4, Minor: 5, Patch: 6}, parsed)

	_, err = ParseVersion("not.a.version")
	require.Error(t, err)

	empty, err := ParseVersion("")
	require.NoError(t, err)
	require.Equal(t, Version{}, empty)
}

func TestGlobalRefEncoding(t *testing.T) {
	pool := NewConstantPool()
	nameOff := pool.Intern("Shape")

	buf := appendNoRef(nil)
	ref, _, err := readGlobalRef(buf, 0, pool)
	require.NoError(t, err)
	require.True(t, ref.IsNone())

	buf = appendSlotRef(nil, 42)
	ref, _, err = readGlobalRef(buf, 0, pool)
	require.NoError(t, err)
	require.Equal(t, refSlot, ref.Kind)
	require.Equal(t, 42, ref.Slot)

	buf = appendNameRef(nil, nameOff, 0)
	ref, _, err = readGlobalRef(buf, 0, pool)
	require.NoError(t, err)
	require.Equal(t, refName, ref.Kind)
	require.Equal(t, "Shape", ref.Name)
	require.Equal(t, "", ref.Space)
}
