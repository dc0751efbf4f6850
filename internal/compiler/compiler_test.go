package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/codegen"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/module"
	"github.com/ejscript/ejsc/internal/source"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	res := Compile([]source.File{{Path: "test.ejs", Text: src}}, opts)
	return res
}

// ops decodes a code buffer into its opcode mnemonics, ignoring
// operands, so tests pin instruction shapes without being brittle
// against operand-width changes.
func ops(t *testing.T, code []byte) []string {
	t.Helper()
	instrs, err := codegen.DecodeAll(code)
	require.NoError(t, err)
	names := make([]string, len(instrs))
	for i, in := range instrs {
		names[i] = in.Op.String()
	}
	return names
}

func TestMinimumProgram(t *testing.T) {
	res := compileSource(t, "", Options{Optimize: 1})
	require.Zero(t, res.Status.Errors)
	require.NotNil(t, res.Bytes)

	images, _, err := module.Read(res.Bytes)
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.Equal(t, "default", images[0].Name)
	require.Equal(t, []string{"Return"}, ops(t, images[0].Init.Code))
	require.Empty(t, images[0].Functions)
	require.Empty(t, images[0].Classes)
}

func TestSingleStatement(t *testing.T) {
	res := compileSource(t, "var x = 1;", Options{Optimize: 1})
	require.Zero(t, res.Status.Errors)

	init := res.Generated[0].Init
	instrs, err := codegen.DecodeAll(init.Buf.Bytes)
	require.NoError(t, err)
	require.Equal(t, []string{"Load1", "PutGlobalSlot", "Return"}, ops(t, init.Buf.Bytes))
	require.Equal(t, int64(0), instrs[1].Operands[0], "x occupies global slot 0")
}

func TestFunctionAndCall(t *testing.T) {
	res := compileSource(t, "function add(a, b) { return a + b; } add(2, 3);", Options{Optimize: 1, Bind: true})
	require.Zero(t, res.Status.Errors)

	mod := res.Generated[0]
	require.Len(t, mod.Functions, 1)
	add := mod.Functions[0]
	require.Equal(t, "add", add.Name)
	require.Equal(t, 2, add.NumParams)
	require.Equal(t,
		[]string{"GetLocalSlot_0", "GetLocalSlot_1", "Add", "ReturnValue", "LoadUndefined", "ReturnValue"},
		ops(t, add.Buf.Bytes))

	require.Equal(t,
		[]string{"GetGlobalSlot", "Load2", "Load3", "Call", "Return"},
		ops(t, mod.Init.Buf.Bytes))
}

func TestIfElseShortJumps(t *testing.T) {
	res := compileSource(t, "if (x) y = 1; else y = 2;", Options{Optimize: 1})
	require.Zero(t, res.Status.Errors)

	init := res.Generated[0].Init
	names := ops(t, init.Buf.Bytes)
	require.Contains(t, names, "BranchFalse8")
	require.Contains(t, names, "Goto8")
	require.NotContains(t, names, "BranchFalse")
	require.Less(t, init.Buf.Len(), 30, "initializer fits in under 30 bytes")
}

func TestIfElseWideJumpsWithoutOptimize(t *testing.T) {
	res := compileSource(t, "if (x) y = 1; else y = 2;", Options{Optimize: 0})
	require.Zero(t, res.Status.Errors)
	names := ops(t, res.Generated[0].Init.Buf.Bytes)
	require.Contains(t, names, "BranchFalse")
	require.NotContains(t, names, "BranchFalse8")
}

func TestLongThenSegmentForcesWideBranch(t *testing.T) {
	src := "if (x) { "
	for i := 0; i < 40; i++ {
		src += "y = 100; "
	}
	src += "} else y = 2;"
	res := compileSource(t, src, Options{Optimize: 1})
	require.Zero(t, res.Status.Errors)
	names := ops(t, res.Generated[0].Init.Buf.Bytes)
	require.Contains(t, names, "BranchFalse", "a then-segment past 0x7F bytes needs the 32-bit form")
}

func TestTryCatchFinallyWithBreak(t *testing.T) {
	src := `
for (i = 0; i < 3; i++) {
  try { if (i == 1) break; } catch (e) { } finally { f(); }
}`
	res := compileSource(t, src, Options{Optimize: 1})
	require.Zero(t, res.Status.Errors)

	init := res.Generated[0].Init
	require.Len(t, init.Buf.Exceptions, 2, "one catch record plus one finally record")

	var flags []codegen.ExceptionFlag
	for _, e := range init.Buf.Exceptions {
		flags = append(flags, e.Flags)
		require.LessOrEqual(t, e.TryStart, e.TryEnd)
		require.LessOrEqual(t, e.TryEnd, e.HandlerStart)
		require.LessOrEqual(t, e.HandlerStart, e.HandlerEnd)
	}
	require.Contains(t, flags, codegen.ExceptionCatch)
	require.Contains(t, flags, codegen.ExceptionFinally)

	// The break path runs the pending finally before its Goto out of the
	// loop, so at least one Finally opcode must appear in the initializer.
	instrs, err := codegen.DecodeAll(init.Buf.Bytes)
	require.NoError(t, err)
	sawFinally := false
	for _, in := range instrs {
		if in.Op == codegen.OpFinally {
			sawFinally = true
		}
	}
	require.True(t, sawFinally)
}

func TestConditionalCompilationEnabled(t *testing.T) {
	res := compileSource(t, "#FEATURE { var x = 1; }", Options{
		Optimize: 1,
		Defines:  map[string]any{"FEATURE": true},
	})
	require.Zero(t, res.Status.Errors)
	require.Len(t, res.Images[0].Globals, 1)
	require.Equal(t, "x", res.Images[0].Globals[0].Name)
	// No trace of the hash directive survives in the emitted code.
	require.Equal(t, []string{"Load1", "PutGlobalSlot", "Return"}, ops(t, res.Generated[0].Init.Buf.Bytes))
}

func TestConditionalCompilationDisabled(t *testing.T) {
	res := compileSource(t, "#FEATURE { var x = 1; }", Options{
		Optimize: 1,
		Defines:  map[string]any{"FEATURE": false},
	})
	require.Zero(t, res.Status.Errors)
	require.Empty(t, res.Images[0].Globals, "a disabled body's declarations vanish")
	require.Equal(t, []string{"Return"}, ops(t, res.Generated[0].Init.Buf.Bytes))
}

func TestCompoundAssignmentLaw(t *testing.T) {
	compound := compileSource(t, "a += b;", Options{Optimize: 1})
	expanded := compileSource(t, "a = a + b;", Options{Optimize: 1})
	require.Equal(t,
		expanded.Generated[0].Init.Buf.Bytes,
		compound.Generated[0].Init.Buf.Bytes,
		"a OP= b and a = a OP b produce identical bytecode")
}

func TestNoOutProducesIdenticalAST(t *testing.T) {
	with := compileSource(t, "var x = 1; function f() { return x; }", Options{Optimize: 1})
	without := compileSource(t, "var x = 1; function f() { return x; }", Options{Optimize: 1, NoOut: true})
	require.Nil(t, without.Bytes)
	require.NotNil(t, with.Bytes)
	require.Equal(t, dumpAll(with), dumpAll(without))
}

func dumpAll(res *Result) []string {
	var out []string
	for _, p := range res.Programs {
		out = append(out, ast.Dump(p))
	}
	return out
}

func TestDefaultParameters(t *testing.T) {
	none := compileSource(t, "function f(a) { return a; }", Options{Optimize: 1})
	require.NotContains(t, ops(t, none.Generated[0].Functions[0].Buf.Bytes), "InitDefaultArgs_8",
		"zero defaulted parameters emits no InitDefaultArgs")

	one := compileSource(t, "function f(a, b = 2) { return b; }", Options{Optimize: 1})
	names := ops(t, one.Generated[0].Functions[0].Buf.Bytes)
	require.Contains(t, names, "InitDefaultArgs_8", "one default uses the 8-bit form")
}

func TestStrictModeUnresolvedName(t *testing.T) {
	res := compileSource(t, "y = missing;", Options{Optimize: 1, Mode: compstate.ModeStrict})
	require.NotZero(t, res.Status.Errors, "unresolved name is an error in strict mode")
	require.Nil(t, res.Bytes, "no output on error")
}

func TestStandardModeUnresolvedNameIsDynamic(t *testing.T) {
	res := compileSource(t, "y = missing;", Options{Optimize: 1})
	require.Zero(t, res.Status.Errors)
	names := ops(t, res.Generated[0].Init.Buf.Bytes)
	require.Contains(t, names, "GetGlobalByName")
	require.Contains(t, names, "PutGlobalByName")
}

func TestStackDepthInvariants(t *testing.T) {
	srcs := []string{
		"var x = 1 + 2 * 3;",
		"f(g(1), 2);",
		"if (a) { b = 1; } else { b = 2; }",
		"for (i = 0; i < 10; i++) s = s + i;",
		"switch (x) { case 1: y = 1; break; default: y = 2; }",
		"while (x) { x = x - 1; }",
		"do { x = x - 1; } while (x);",
	}
	for _, src := range srcs {
		res := compileSource(t, src, Options{Optimize: 1})
		require.Zero(t, res.Status.Errors, src)
		init := res.Generated[0].Init
		require.GreaterOrEqual(t, init.Buf.StackDepth, 0, src)
		require.Zero(t, init.Buf.StackDepth, "statements leave the stack where they found it: %s", src)
	}
}

func TestSlotBoundaryForcesByName(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&sb, "var v%d = 0; ", i)
	}
	sb.WriteString("v255 = 1; v256 = 2;")

	res := compileSource(t, sb.String(), Options{Optimize: 1})
	require.Zero(t, res.Status.Errors)
	instrs, err := codegen.DecodeAll(res.Generated[0].Init.Buf.Bytes)
	require.NoError(t, err)

	slot255Bound := false
	byNameStores := 0
	for _, in := range instrs {
		if in.Op == codegen.OpPutGlobalSlot && in.Operands[0] == 255 {
			slot255Bound = true
		}
		if in.Op == codegen.OpPutGlobalByName {
			byNameStores++
		}
	}
	require.True(t, slot255Bound, "slot 255 still uses the dedicated slot path")
	require.NotZero(t, byNameStores, "slot 256 and beyond fall back to *ByName")
}

func TestOverrideReusesBaseSlot(t *testing.T) {
	res := compileSource(t, `
class Animal {
  function speak() { return 1; }
  function eat() { return 2; }
}
class Dog extends Animal {
  override function speak() { return 3; }
}`, Options{Optimize: 1})
	require.Zero(t, res.Status.Errors, "%+v", res.Status.Diagnostics)

	classes := map[string]*codegen.Class{}
	for _, c := range res.Generated[0].Classes {
		classes[c.Name] = c
	}
	animalSpeak := methodSlot(t, classes["Animal"], "speak")
	dogSpeak := methodSlot(t, classes["Dog"], "speak")
	require.Equal(t, animalSpeak, dogSpeak,
		"an override is stamped into the inherited slot it replaces")
	require.Equal(t, classes["Animal"].InstanceSlotCount, classes["Dog"].InstanceSlotCount,
		"no trailing duplicate slot is allocated for the override")
}

func methodSlot(t *testing.T, c *codegen.Class, name string) int {
	t.Helper()
	require.NotNil(t, c)
	for _, m := range c.Methods {
		if m.Name == name {
			require.NotNil(t, m.Node.Lookup)
			return m.Node.Lookup.SlotNum
		}
	}
	t.Fatalf("method %s not found on %s", name, c.Name)
	return -1
}

func TestStaticDispatchTiers(t *testing.T) {
	res := compileSource(t, `
class Counter {
  static var total;
  var n;
  function bump() { return n; }
}
var c: Counter = new Counter();
c.n = 1;
x = c.n;
c.bump();
Counter.total = 5;
y = Counter.total;`, Options{Optimize: 1})
	require.Zero(t, res.Status.Errors, "%+v", res.Status.Diagnostics)

	names := ops(t, res.Generated[0].Init.Buf.Bytes)
	require.Contains(t, names, "PutObjSlot", "typed instance field store binds")
	require.Contains(t, names, "GetObjSlot_0", "typed instance field load binds")
	require.Contains(t, names, "CallObjInstanceSlot", "typed instance method call binds")
	require.Contains(t, names, "PutTypeSlot", "type-reference static store binds")
	require.Contains(t, names, "GetTypeSlot", "type-reference static load binds")
	require.NotContains(t, names, "GetObjByName", "no dynamic fallback for statically typed access")
	require.NotContains(t, names, "CallObjName")
}

func TestUntypedAccessStaysDynamic(t *testing.T) {
	res := compileSource(t, `
var o = {n: 1};
x = o.n;
o.m();`, Options{Optimize: 1})
	require.Zero(t, res.Status.Errors)
	names := ops(t, res.Generated[0].Init.Buf.Bytes)
	require.Contains(t, names, "GetObjByName")
	require.Contains(t, names, "CallObjName")
}

func TestModuleRoundTrip(t *testing.T) {
	src := `
class Shape {
  var name;
  function Shape(n) { this.name = n; }
  function describe() { return this.name; }
}
function area(s) { return s.describe(); }
var unit = new Shape("unit");
`
	res := compileSource(t, src, Options{Optimize: 1, ModuleName: "shapes"})
	require.Zero(t, res.Status.Errors)
	require.NotNil(t, res.Bytes)

	images, _, err := module.Read(res.Bytes)
	require.NoError(t, err)
	require.Len(t, images, 1)
	img := images[0]
	require.Equal(t, "shapes", img.Name)
	require.Len(t, img.Classes, 1)
	require.Equal(t, "Shape", img.Classes[0].Name)
	require.NotNil(t, img.Classes[0].Constructor)
	require.Len(t, img.Classes[0].Methods, 1)
	require.Len(t, img.Functions, 1)
	require.Len(t, img.Globals, 1)
	require.Equal(t, module.ComputeChecksum(img), img.Checksum)
}

func TestMultipleFilesShareGlobalScope(t *testing.T) {
	files := []source.File{
		{Path: "a.ejs", Text: "function helper() { return 1; }"},
		{Path: "b.ejs", Text: "helper();"},
	}
	res := Compile(files, Options{Optimize: 1, Mode: compstate.ModeStrict})
	require.Zero(t, res.Status.Errors, "cross-file references bind against the shared global scope")
	require.Len(t, res.Images, 2)
}
