package luby

import (
	"strings"
	"testing"

	"luby/internal/object"
)

func mustEval(t *testing.T, src string) Value {
	t.Helper()
	interp := New(Config{})
	v, err := interp.Eval(src)
	if err != nil {
		t.Fatalf("eval(%q): %s", src, interp.FormatError())
	}
	return v
}

func evalErr(t *testing.T, src string) *Interp {
	t.Helper()
	interp := New(Config{})
	_, err := interp.Eval(src)
	if err == nil {
		t.Fatalf("eval(%q): expected error, got none", src)
	}
	return interp
}

func wantInt(t *testing.T, v Value, want int64) {
	t.Helper()
	got, ok := v.(int64)
	if !ok || got != want {
		t.Fatalf("want int %d, got %#v", want, v)
	}
}

func wantArray(t *testing.T, v Value, want []int64) {
	t.Helper()
	arr, ok := v.(*object.ArrayObj)
	if !ok {
		t.Fatalf("want array, got %#v", v)
	}
	if len(arr.Elements) != len(want) {
		t.Fatalf("want %d elements, got %d (%#v)", len(want), len(arr.Elements), arr.Elements)
	}
	for i, w := range want {
		got, ok := arr.Elements[i].(int64)
		if !ok || got != w {
			t.Fatalf("element %d: want %d, got %#v", i, w, arr.Elements[i])
		}
	}
}

// Scenario: array_map([1,2,3]) { |x| x * 2 } -> [2,4,6]
func TestArrayMapPrimitive(t *testing.T) {
	v := mustEval(t, `array_map([1,2,3]) { |x| x * 2 }`)
	wantArray(t, v, []int64{2, 4, 6})
}

// Scenario: keyword args, required keyword raises ArgumentError when absent.
func TestKeywordArgs(t *testing.T) {
	v := mustEval(t, `def f(x:); x; end; f(x: 42)`)
	wantInt(t, v, 42)

	interp := evalErr(t, `def f(x:); x; end; f()`)
	if !strings.Contains(interp.FormatError(), "ArgumentError") {
		t.Fatalf("expected ArgumentError, got %s", interp.FormatError())
	}
}

// Scenario: a fiber exchanging values symmetrically with its parent.
func TestFiberResumeYield(t *testing.T) {
	v := mustEval(t, `
c = Fiber.new { |x| a = Fiber.yield(x+1); Fiber.yield(a+1) }
[c.resume(10), c.resume(100), c.resume(1000)]
`)
	arr, ok := v.(*object.ArrayObj)
	if !ok || len(arr.Elements) != 3 {
		t.Fatalf("want 3-element array, got %#v", v)
	}
	wantInt(t, arr.Elements[0], 11)
	wantInt(t, arr.Elements[1], 101)
	// The third resume wakes the parked `Fiber.yield(a+1)` with 1000; that
	// call's return value (1000) becomes the block's own last expression,
	// so the completing resume delivers it rather than nil.
	wantInt(t, arr.Elements[2], 1000)
}

// Scenario: `super` walks one step above the current method's owner.
func TestSuperDispatch(t *testing.T) {
	v := mustEval(t, `
class A; def v; 1; end; end
class B < A; def v; super + 1; end; end
B.new.v
`)
	wantInt(t, v, 2)
}

// Scenario: instruction-limit budget raises a rescuable RuntimeError
// whose message names the exceeded budget.
func TestInstructionBudget(t *testing.T) {
	interp := New(Config{InstructionLimit: 1000})
	_, err := interp.Eval(`x=0; while true; x=x+1; end`)
	if err == nil {
		t.Fatalf("expected budget error")
	}
	if !strings.Contains(interp.FormatError(), "instruction limit") {
		t.Fatalf("expected 'instruction limit' in message, got %s", interp.FormatError())
	}
}

// Scenario: division by zero raises ZeroDivisionError; a matching
// rescue recovers and yields the rescue body's value.
func TestZeroDivision(t *testing.T) {
	interp := evalErr(t, `1/0`)
	if !strings.Contains(interp.FormatError(), "ZeroDivisionError") {
		t.Fatalf("expected ZeroDivisionError, got %s", interp.FormatError())
	}

	v := mustEval(t, `begin; 1/0; rescue => e; 99; end`)
	wantInt(t, v, 99)
}

// Scenario: the most recently included module wins at dispatch.
func TestIncludeMostRecentWins(t *testing.T) {
	v := mustEval(t, `
module M; def v; 1; end; end
module N; def v; 2; end; end
class C; include M; include N; end
C.new.v
`)
	wantInt(t, v, 2)
}

// Property: floor-division law x*(y/x) + (y%x) == y for integers.
func TestFloorDivisionLaw(t *testing.T) {
	cases := []struct{ x, y int64 }{
		{3, 10}, {-3, 10}, {3, -10}, {-3, -10}, {7, 22}, {-7, 22},
	}
	for _, c := range cases {
		src := strings2Expr(c.x, c.y)
		v := mustEval(t, src)
		wantInt(t, v, c.y)
	}
}

func strings2Expr(x, y int64) string {
	return itoaExpr(x) + " * (" + itoaExpr(y) + " / " + itoaExpr(x) + ") + (" + itoaExpr(y) + " % " + itoaExpr(x) + ")"
}

func itoaExpr(n int64) string {
	if n < 0 {
		return "(" + itoaDigits(n) + ")"
	}
	return itoaDigits(n)
}

func itoaDigits(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		return "-" + string(buf)
	}
	return string(buf)
}

// Property: begin/ensure always runs exactly once regardless of whether
// a rescue matched.
func TestEnsureAlwaysRuns(t *testing.T) {
	v := mustEval(t, `
$count = 0
def bump; $count = $count + 1; end
begin
  raise "boom"
rescue => e
  1
ensure
  bump
end
$count
`)
	wantInt(t, v, 1)
}

// Property: break v returns v as the iterator call's value; next v is
// discarded for an each-like iterator.
func TestBreakNextInIterator(t *testing.T) {
	v := mustEval(t, `[1,2,3,4].each { |x| break x * 10 if x == 3 }`)
	wantInt(t, v, 30)

	v2 := mustEval(t, `
sum = 0
[1,2,3].each { |x| next if x == 2; sum = sum + x }
sum
`)
	wantInt(t, v2, 4)
}

// Property: break unwinds through any ensure blocks between it and the
// iterator call, running them, before handing v to the iterator.
func TestBreakRunsEnsureBeforeEscapingBlock(t *testing.T) {
	v := mustEval(t, `
$log = []
result = [1,2,3].each do |x|
  begin
    break x * 100 if x == 2
  ensure
    $log = $log + [x]
  end
end
[result, $log]
`)
	arr, ok := v.(*object.ArrayObj)
	if !ok || len(arr.Elements) != 2 {
		t.Fatalf("want 2-element array, got %#v", v)
	}
	wantInt(t, arr.Elements[0], 200)
	log, ok := arr.Elements[1].(*object.ArrayObj)
	if !ok || len(log.Elements) != 2 {
		t.Fatalf("want ensure to have run for x=1 and x=2, got %#v", arr.Elements[1])
	}
	wantInt(t, log.Elements[0], 1)
	wantInt(t, log.Elements[1], 2)
}

// Property: frozen object mutation raises, and frozen? reflects it.
func TestFrozenObject(t *testing.T) {
	v := mustEval(t, `
class Box; attr_accessor :v; end
b = Box.new
b.freeze
b.frozen?
`)
	if v != true {
		t.Fatalf("want true, got %#v", v)
	}

	interp := evalErr(t, `
class Box; attr_accessor :v; end
b = Box.new
b.freeze
b.v = 1
`)
	_ = interp
}

// Property: for every class K, K.ancestors begins with K and terminates
// at Object.
func TestAncestorsShape(t *testing.T) {
	v := mustEval(t, `
class A; end
class B < A; end
B.ancestors
`)
	arr, ok := v.(*object.ArrayObj)
	if !ok || len(arr.Elements) == 0 {
		t.Fatalf("want non-empty array, got %#v", v)
	}
	first, ok := arr.Elements[0].(*object.Class)
	if !ok || first.Name != "B" {
		t.Fatalf("ancestors[0] should be B, got %#v", arr.Elements[0])
	}
	found := false
	for _, m := range arr.Elements {
		if c, ok := m.(*object.Class); ok && c.Name == "Object" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ancestors should include Object, got %#v", arr.Elements)
	}
}

// Class-variable assignment is visible from instance methods and from
// other instances of the same class.
func TestClassVariableSharedAcrossInstances(t *testing.T) {
	v := mustEval(t, `
class Counter
  @@count = 0
  def bump
    @@count = @@count + 1
    @@count
  end
end
a = Counter.new
b = Counter.new
a.bump
b.bump
a.bump
`)
	wantInt(t, v, 3)
}

// Determinism: evaluating the same source twice in fresh interpreters
// yields equal top-of-stack values.
func TestDeterministicAcrossInterpreters(t *testing.T) {
	src := `
class Shape
  def initialize(n); @n = n; end
  def area; @n * @n; end
end
[1,2,3].map { |n| Shape.new(n).area }
`
	a := mustEval(t, src)
	b := mustEval(t, src)
	aw := a.(*object.ArrayObj)
	bw := b.(*object.ArrayObj)
	if len(aw.Elements) != len(bw.Elements) {
		t.Fatalf("mismatched lengths")
	}
	for i := range aw.Elements {
		if aw.Elements[i] != bw.Elements[i] {
			t.Fatalf("element %d differs: %#v vs %#v", i, aw.Elements[i], bw.Elements[i])
		}
	}
}
