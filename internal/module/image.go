package module

import (
	"fmt"
	"strconv"
	"strings"
)

// Section tags. Single bytes, in the order the spec
// names them.
const (
	SectionModule byte = 1 + iota
	SectionDependency
	SectionClass
	SectionClassEnd
	SectionFunction
	SectionFunctionEnd
	SectionBlock
	SectionBlockEnd
	SectionProperty
	SectionException
	SectionDoc
	SectionModuleEnd
)

// Magic identifies a .mod file.
const Magic uint32 = 0xC7DA0001

// FileVersion is incremented whenever the section layout changes.
const FileVersion uint32 = 1

// FlagEmptyInterp marks a module built for the empty core interpreter.
const FlagEmptyInterp uint32 = 1 << 0

// Attribute bits carried in section attribute fields. The low bits
// mirror ast.Attrs; the high bits are writer-internal markers.
const (
	// AttrInitializer marks the module initializer's Function section so
	// the reader can tell it from an ordinary global function.
	AttrInitializer uint32 = 1 << 15
	// AttrConstructor marks a class's constructor Function section.
	AttrConstructor uint32 = 1 << 16
)

// VersionFactor packs (major, minor, patch) as major*F² + minor*F +
// patch.
const VersionFactor = 10000

// Version is a (major, minor, patch) triple.
type Version struct {
	Major, Minor, Patch int
}

// Packed returns the single-number version encoding.
func (v Version) Packed() int64 {
	return int64(v.Major)*VersionFactor*VersionFactor + int64(v.Minor)*VersionFactor + int64(v.Patch)
}

// UnpackVersion reverses Packed.
func UnpackVersion(p int64) Version {
	return Version{
		Major: int(p / (VersionFactor * VersionFactor)),
		Minor: int(p / VersionFactor % VersionFactor),
		Patch: int(p % VersionFactor),
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion parses "major[.minor[.patch]]".
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, nil
	}
	parts := strings.SplitN(s, ".", 3)
	var out [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n >= VersionFactor {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		out[i] = n
	}
	return Version{Major: out[0], Minor: out[1], Patch: out[2]}, nil
}

// Exception is one serialized exception-table entry.
type Exception struct {
	Flags                    int
	TryStart, TryEnd         int
	HandlerStart, HandlerEnd int
	NumBlocks, NumStack      int
	CatchType                string // type name, empty for finally/untyped catch
}

// Property is one serialized property trait: a global var, a class
// field, or a function parameter.
type Property struct {
	Name  string
	Space string
	Attrs uint32
	Slot  int
	Type  string
	Doc   string
}

// Function is one serialized function: metadata plus raw bytecode whose
// name operands are offsets into the owning module's constant pool.
type Function struct {
	Name       string
	Space      string
	NextSlot   int // getter/setter linkage, 0 if unused
	Attrs      uint32
	Lang       int
	ResultType string
	Slot       int
	NumArgs    int
	NumLocals  int
	Code       []byte
	Exceptions []Exception
	Params     []Property
	Doc        string
}

// Class is one serialized class with its traits.
type Class struct {
	Name          string
	Space         string
	Attrs         uint32
	Slot          int
	Base          string
	Interfaces    []string
	StaticProps   []Property
	InstanceProps []Property
	Constructor   *Function
	Methods       []*Function
	Doc           string
}

// Dependency names another module this one requires.
type Dependency struct {
	Name     string
	Checksum uint32
	Min, Max Version
}

// Image is one module ready to serialize, or freshly deserialized: the
// in-memory twin of the on-disk module layout.
type Image struct {
	Name         string
	Version      Version
	Dependencies []Dependency
	Init         *Function
	Functions    []*Function
	Classes      []*Class
	Globals      []Property
	Pool         *ConstantPool
	Checksum     uint32
}

// checksumName folds a name's characters into the running checksum.
func checksumName(sum uint32, name string) uint32 {
	for _, b := range []byte(name) {
		sum += uint32(b)
	}
	return sum
}

func checksumFunction(sum uint32, fn *Function) uint32 {
	sum = checksumName(sum, fn.Name)
	sum += uint32(fn.Slot) + uint32(fn.NumArgs) + uint32(fn.NumLocals) + uint32(len(fn.Code))
	for _, p := range fn.Params {
		sum = checksumName(sum, p.Name)
		sum += uint32(p.Slot)
	}
	sum += uint32(len(fn.Exceptions))
	return sum
}

func checksumClass(sum uint32, c *Class) uint32 {
	sum = checksumName(sum, c.Name)
	sum += uint32(c.Slot)
	sum = checksumName(sum, c.Base)
	for _, p := range c.StaticProps {
		sum = checksumName(sum, p.Name)
		sum += uint32(p.Slot)
	}
	for _, p := range c.InstanceProps {
		sum = checksumName(sum, p.Name)
		sum += uint32(p.Slot)
	}
	if c.Constructor != nil {
		sum = checksumFunction(sum, c.Constructor)
	}
	for _, m := range c.Methods {
		sum = checksumFunction(sum, m)
	}
	return sum
}

// ComputeChecksum derives the module checksum from the image contents.
// The writer stamps it into the reserved header slot; the reader
// recomputes it over the parsed image and compares.
func ComputeChecksum(img *Image) uint32 {
	sum := checksumName(0, img.Name)
	for _, d := range img.Dependencies {
		sum = checksumName(sum, d.Name)
	}
	if img.Init != nil {
		sum = checksumFunction(sum, img.Init)
	}
	for _, fn := range img.Functions {
		sum = checksumFunction(sum, fn)
	}
	for _, c := range img.Classes {
		sum = checksumClass(sum, c)
	}
	for _, p := range img.Globals {
		sum = checksumName(sum, p.Name)
		sum += uint32(p.Slot)
	}
	return sum
}
