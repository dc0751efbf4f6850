package module

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func minimalImage(name string) *Image {
	return &Image{
		Name: name,
		Init: &Function{Name: "%init", Slot: -1, Code: []byte{0}},
	}
}

func TestWriteHeader(t *testing.T) {
	data, err := Write([]*Image{minimalImage("default")}, WriteOptions{})
	require.NoError(t, err)

	magic, i, err := readWord(data, 0)
	require.NoError(t, err)
	require.Equal(t, Magic, magic)
	fileVersion, i, err := readWord(data, i)
	require.NoError(t, err)
	require.Equal(t, FileVersion, fileVersion)
	flags, i, err := readWord(data, i)
	require.NoError(t, err)
	require.Zero(t, flags)
	require.Equal(t, SectionModule, data[i])
}

func TestEmptyFlagSetsHeaderBit(t *testing.T) {
	data, err := Write([]*Image{minimalImage("core")}, WriteOptions{Empty: true})
	require.NoError(t, err)
	flags, _, err := readWord(data, 8)
	require.NoError(t, err)
	require.Equal(t, FlagEmptyInterp, flags&FlagEmptyInterp)
}

func TestMinimalModuleRoundTrip(t *testing.T) {
	data, err := Write([]*Image{minimalImage("default")}, WriteOptions{})
	require.NoError(t, err)

	images, _, err := Read(data)
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.Equal(t, "default", images[0].Name)
	require.NotNil(t, images[0].Init)
	require.Equal(t, []byte{0}, images[0].Init.Code)
}

func TestFullImageRoundTrip(t *testing.T) {
	img := &Image{
		Name:    "app",
		Version: Version{Major: 1, Minor: 2, Patch: 3},
		Dependencies: []Dependency{
			{Name: "ejs.sys", Checksum: 0xABCD, Min: Version{Major: 1}, Max: Version{Major: 2}},
		},
		Init: &Function{Name: "%init", Slot: -1, Code: []byte{0, 1, 2}},
		Functions: []*Function{{
			Name:       "work",
			Slot:       0,
			NumArgs:    2,
			NumLocals:  3,
			ResultType: "Number",
			Code:       []byte{5, 6, 7, 8},
			Exceptions: []Exception{
				{Flags: 1, TryStart: 0, TryEnd: 2, HandlerStart: 2, HandlerEnd: 4, NumStack: 1, CatchType: "Error"},
			},
			Params: []Property{
				{Name: "a", Slot: 0},
				{Name: "b", Slot: 1, Type: "String"},
			},
			Doc: "does the work",
		}},
		Classes: []*Class{
			{
				Name: "Base", Slot: 1,
				InstanceProps: []Property{{Name: "id", Slot: 0}},
			},
			{
				Name: "Derived", Slot: 2, Base: "Base",
				Interfaces:  []string{"Comparable"},
				StaticProps: []Property{{Name: "count", Slot: 0}},
				Constructor: &Function{Name: "Derived", Code: []byte{9}},
				Methods:     []*Function{{Name: "compare", Slot: 0, NumArgs: 1, Code: []byte{3}}},
				Doc:         "a derived class",
			},
		},
		Globals: []Property{{Name: "flag", Slot: 3, Type: "Boolean", Doc: "a switch"}},
	}

	data, err := Write([]*Image{img}, WriteOptions{})
	require.NoError(t, err)

	images, _, err := Read(data)
	require.NoError(t, err)
	require.Len(t, images, 1)
	got := images[0]

	require.Equal(t, img.Name, got.Name)
	require.Equal(t, img.Version, got.Version)
	require.Equal(t, img.Dependencies, got.Dependencies)
	require.Equal(t, img.Init.Code, got.Init.Code)

	require.Len(t, got.Functions, 1)
	fn := got.Functions[0]
	require.Equal(t, "work", fn.Name)
	require.Equal(t, 2, fn.NumArgs)
	require.Equal(t, 3, fn.NumLocals)
	require.Equal(t, "Number", fn.ResultType)
	require.Equal(t, img.Functions[0].Exceptions, fn.Exceptions)
	require.Equal(t, img.Functions[0].Params, fn.Params)
	require.Equal(t, "does the work", fn.Doc)

	require.Len(t, got.Classes, 2)
	// Base precedes Derived regardless of input order; here input order
	// already satisfies it, so positions are stable.
	require.Equal(t, "Base", got.Classes[0].Name)
	derived := got.Classes[1]
	require.Equal(t, "Derived", derived.Name)
	require.Equal(t, "Base", derived.Base)
	require.Equal(t, []string{"Comparable"}, derived.Interfaces)
	require.NotNil(t, derived.Constructor)
	require.Len(t, derived.Methods, 1)
	require.Equal(t, "a derived class", derived.Doc)

	require.Equal(t, img.Globals, got.Globals)
	require.Equal(t, ComputeChecksum(got), got.Checksum)
}

func TestClassesEmittedBaseFirst(t *testing.T) {
	img := &Image{
		Name: "m",
		Classes: []*Class{
			{Name: "C", Base: "B"},
			{Name: "B", Base: "A"},
			{Name: "A"},
		},
	}
	data, err := Write([]*Image{img}, WriteOptions{})
	require.NoError(t, err)
	images, _, err := Read(data)
	require.NoError(t, err)
	var order []string
	for _, c := range images[0].Classes {
		order = append(order, c.Name)
	}
	require.Equal(t, []string{"A", "B", "C"}, order)
}

func TestCyclicBaseClassesStillEmitOnce(t *testing.T) {
	img := &Image{
		Name: "m",
		Classes: []*Class{
			{Name: "X", Base: "Y"},
			{Name: "Y", Base: "X"},
		},
	}
	data, err := Write([]*Image{img}, WriteOptions{})
	require.NoError(t, err)
	images, _, err := Read(data)
	require.NoError(t, err)
	require.Len(t, images[0].Classes, 2, "the visited flag guards the cycle")
}

func TestChecksumTamperDetected(t *testing.T) {
	data, err := Write([]*Image{minimalImage("default")}, WriteOptions{})
	require.NoError(t, err)

	// Flip the first byte of the module name itself (header is 12 bytes,
	// then the Module tag and the name's varint length).
	tampered := append([]byte(nil), data...)
	tampered[14]++
	_, _, err = Read(tampered)
	require.Error(t, err)
}

func TestBadMagicRejected(t *testing.T) {
	data, err := Write([]*Image{minimalImage("default")}, WriteOptions{})
	require.NoError(t, err)
	data[0] ^= 0xFF
	_, _, err = Read(data)
	require.Error(t, err)
	require.Contains(t, err.Error(), "magic")
}

func TestExceptionBoundsValidatedOnWrite(t *testing.T) {
	img := &Image{
		Name: "m",
		Functions: []*Function{{
			Name: "bad",
			Code: []byte{0},
			Exceptions: []Exception{
				{TryStart: 5, TryEnd: 2, HandlerStart: 6, HandlerEnd: 7},
			},
		}},
	}
	_, err := Write([]*Image{img}, WriteOptions{})
	require.Error(t, err)
}

func TestMergedModules(t *testing.T) {
	data, err := Write([]*Image{minimalImage("first"), minimalImage("second")}, WriteOptions{})
	require.NoError(t, err)
	images, _, err := Read(data)
	require.NoError(t, err)
	require.Len(t, images, 2)
	require.Equal(t, "first", images[0].Name)
	require.Equal(t, "second", images[1].Name)
}
