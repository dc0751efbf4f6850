package vm_test

import (
	"bytes"
	"testing"

	"github.com/ejscript/ejsc/internal/compiler"
	"github.com/ejscript/ejsc/internal/source"
	"github.com/ejscript/ejsc/internal/vm"
	"github.com/stretchr/testify/require"
)

// run compiles src and executes its initializer, returning everything
// the program printed.
func run(t *testing.T, src string) string {
	t.Helper()
	res := compiler.Compile([]source.File{{Path: "test.ejs", Text: src}},
		compiler.Options{Optimize: 1, NoOut: true})
	require.Zero(t, res.Status.Errors, "compile errors: %+v", res.Status.Diagnostics)
	require.Len(t, res.Images, 1)

	var out bytes.Buffer
	machine := vm.New(res.Images[0], &out)
	_, err := machine.RunInitializer()
	require.NoError(t, err)
	return out.String()
}

func TestPrintLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`print("hello");`, "hello\n"},
		{`print(42);`, "42\n"},
		{`print(1.5);`, "1.5\n"},
		{`print(true);`, "true\n"},
		{`print(null);`, "null\n"},
		{`print(undefined);`, "undefined\n"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, run(t, tt.src), tt.src)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`print(1 + 2 * 3);`, "7\n"},
		{`print((1 + 2) * 3);`, "9\n"},
		{`print(7 % 3);`, "1\n"},
		{`print(10 / 4);`, "2.5\n"},
		{`print("a" + 1);`, "a1\n"},
		{`print(5 & 3);`, "1\n"},
		{`print(5 | 2);`, "7\n"},
		{`print(1 << 4);`, "16\n"},
		{`print(-(3));`, "-3\n"},
		{`print(!false);`, "true\n"},
		{`print(typeof "s");`, "string\n"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, run(t, tt.src), tt.src)
	}
}

func TestComparisonsAndLogic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`print(1 < 2);`, "true\n"},
		{`print(2 <= 1);`, "false\n"},
		{`print("a" < "b");`, "true\n"},
		{`print(1 == "1");`, "true\n"},
		{`print(1 === "1");`, "false\n"},
		{`print(true && "yes");`, "yes\n"},
		{`print(false || "fallback");`, "fallback\n"},
		{`print(1 ? "t": "f");`, "t\n"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, run(t, tt.src), tt.src)
	}
}

func TestGlobalsAndLocals(t *testing.T) {
	require.Equal(t, "3\n", run(t, `var x = 1; var y = 2; print(x + y);`))
	require.Equal(t, "11\n", run(t, `var x = 10; x += 1; print(x);`))
	require.Equal(t, "2\n", run(t, `var x = 1; x++; print(x);`))
	require.Equal(t, "1 2\n", run(t, `var x = 1; print(x++, x);`))
}

func TestFunctions(t *testing.T) {
	require.Equal(t, "5\n", run(t, `
function add(a, b) { return a + b; }
print(add(2, 3));`))

	require.Equal(t, "6\n", run(t, `
function fact(n) { if (n <= 1) return 1; return n * fact(n - 1); }
print(fact(3));`))

	require.Equal(t, "10\n", run(t, `
function scaled(x, factor = 5) { return x * factor; }
print(scaled(2));`))

	require.Equal(t, "6\n", run(t, `
function scaled(x, factor = 5) { return x * factor; }
print(scaled(2, 3));`))

	require.Equal(t, "undefined\n", run(t, `
function noReturn() { var a = 1; }
print(noReturn());`))

	require.Equal(t, "42\n", run(t, `
var double = function (x) { return x * 2; };
print(double(21));`))
}

func TestLoops(t *testing.T) {
	require.Equal(t, "10\n", run(t, `
var s = 0;
for (var i = 0; i < 5; i++) { s += i; }
print(s);`))

	require.Equal(t, "3\n", run(t, `
var n = 0;
while (n < 3) { n++; }
print(n);`))

	require.Equal(t, "1\n", run(t, `
var n = 0;
do { n++; } while (false);
print(n);`))

	require.Equal(t, "0 1 3 4 \n", run(t, `
var out = "";
for (var i = 0; i < 5; i++) {
  if (i == 2) continue;
  out += i + " ";
}
print(out);`))

	require.Equal(t, "0 1 \n", run(t, `
var out = "";
for (var i = 0; i < 5; i++) {
  if (i == 2) break;
  out += i + " ";
}
print(out);`))
}

func TestForIn(t *testing.T) {
	require.Equal(t, "0\n1\n2\n", run(t, `
for (var k in [10, 20, 30]) { print(k); }`))

	require.Equal(t, "10\n20\n30\n", run(t, `
for each (var v in [10, 20, 30]) { print(v); }`))

	require.Equal(t, "a\nb\n", run(t, `
for (var k in {a: 1, b: 2}) { print(k); }`))
}

func TestArraysAndObjects(t *testing.T) {
	require.Equal(t, "3\n", run(t, `var a = [1, 2, 3]; print(a.length);`))
	require.Equal(t, "2\n", run(t, `var a = [1, 2, 3]; print(a[1]);`))
	require.Equal(t, "9\n", run(t, `var a = [1, 2, 3]; a[0] = 9; print(a[0]);`))
	require.Equal(t, "1\n", run(t, `var o = {x: 1}; print(o.x);`))
	require.Equal(t, "5\n", run(t, `var o = {x: 1}; o.x = 5; print(o.x);`))
	require.Equal(t, "true\n", run(t, `var o = {x: 1}; print(delete o.x);`))
	require.Equal(t, "1,2,3\n", run(t, `print([1, 2, 3]);`))
	require.Equal(t, "1-2-3\n", run(t, `print([1, 2, 3].join("-"));`))
}

func TestStrings(t *testing.T) {
	require.Equal(t, "5\n", run(t, `print("hello".length);`))
	require.Equal(t, "HELLO\n", run(t, `print("hello".toUpperCase());`))
	require.Equal(t, "ell\n", run(t, `print("hello".substring(1, 4));`))
	require.Equal(t, "2\n", run(t, `print("hello".indexOf("l"));`))
}

func TestSwitch(t *testing.T) {
	src := `
function pick(x) {
  var out = "";
  switch (x) {
    case 1: out += "one "; break;
    case 2: out += "two ";
    case 3: out += "three "; break;
    default: out += "other ";
  }
  return out;
}
print(pick(1));
print(pick(2));
print(pick(9));`
	require.Equal(t, "one \ntwo three \nother \n", run(t, src))
}

func TestExceptions(t *testing.T) {
	require.Equal(t, "boom\n", run(t, `
try { throw "boom"; } catch (e) { print(e); }`))

	require.Equal(t, "t\nf\n", run(t, `
try { print("t"); } finally { print("f"); }`))

	require.Equal(t, "caught\nafter\n", run(t, `
function risky() { throw "err"; }
try { risky(); print("unreached"); } catch (e) { print("caught"); }
print("after");`))

	require.Equal(t, "in\nfin\ndone\n", run(t, `
for (i = 0; i < 3; i++) {
  try { print("in"); break; } finally { print("fin"); }
}
print("done");`))
}

func TestClasses(t *testing.T) {
	require.Equal(t, "unit\n", run(t, `
class Shape {
  var name;
  function Shape(n) { this.name = n; }
  function describe() { return this.name; }
}
var s = new Shape("unit");
print(s.describe());`))

	require.Equal(t, "4\n", run(t, `
class Counter {
  var n;
  function Counter() { this.n = 0; }
  function bump() { n = n + 2; return n; }
}
var c = new Counter();
c.bump();
print(c.bump());`))

	require.Equal(t, "woof\n", run(t, `
class Animal {
  function speak() { return "..."; }
}
class Dog extends Animal {
  function speak() { return "woof"; }
}
var d = new Dog();
print(d.speak());`))

	require.Equal(t, "true false\n", run(t, `
class Animal { }
class Dog extends Animal { }
var d = new Dog();
var a = new Animal();
print(d instanceof Animal, a instanceof Dog);`))
}

func TestBoundInstanceDispatch(t *testing.T) {
	require.Equal(t, "1\n2\n", run(t, `
class Counter {
  var n;
  function Counter() { this.n = 0; }
  function bump() { n = n + 1; return n; }
}
var c: Counter = new Counter();
print(c.bump());
c.n = 1;
print(c.bump());`))
}

func TestBoundStaticDispatch(t *testing.T) {
	require.Equal(t, "7\n14\n", run(t, `
class Registry {
  static var total;
  static function doubled() { return Registry.total * 2; }
}
Registry.total = 7;
print(Registry.total);
print(Registry.doubled());`))
}

func TestOverridePolymorphismThroughBoundSlot(t *testing.T) {
	// The receiver's static type is the base class, so the call binds to
	// the base's slot; the override stamped into that slot must win.
	require.Equal(t, "woof\n", run(t, `
class Animal {
  function speak() { return "..."; }
}
class Dog extends Animal {
  override function speak() { return "woof"; }
}
var a: Animal = new Dog();
print(a.speak());`))
}

func TestModuleDirective(t *testing.T) {
	require.Equal(t, "pong\n", run(t, `
module app {
  function ping() { return "pong"; }
}
print(ping());`))
}

func TestWith(t *testing.T) {
	require.Equal(t, "1\n", run(t, `
var o = {x: 1};
with (o) { print(x); }`))
}

func TestUncaughtException(t *testing.T) {
	res := compiler.Compile([]source.File{{Path: "test.ejs", Text: `throw "fatal";`}},
		compiler.Options{Optimize: 1, NoOut: true})
	require.Zero(t, res.Status.Errors)

	machine := vm.New(res.Images[0], nil)
	_, err := machine.RunInitializer()
	require.Error(t, err)
	v, ok := vm.Uncaught(err)
	require.True(t, ok)
	require.Equal(t, "fatal", vm.ToString(v))
}
