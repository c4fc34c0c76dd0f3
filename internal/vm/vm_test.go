package vm

import (
	"bytes"
	"strings"
	"testing"
)

// runSource compiles and interprets src against a fresh VM, returning
// everything written via `print` and the resulting error (nil, ErrCompile,
// or ErrRuntime).
func runSource(t *testing.T, src string) (string, error) {
	t.Helper()
	machine := New()
	var out bytes.Buffer
	machine.SetOutput(&out)
	err := machine.Interpret(src)
	return out.String(), err
}

// runOK is a convenience wrapper for tests that expect no error at all.
func runOK(t *testing.T, src string) string {
	t.Helper()
	out, err := runSource(t, src)
	if err != nil {
		t.Fatalf("unexpected %v for:\n%s", err, src)
	}
	return out
}

func wantLines(t *testing.T, got string, want ...string) {
	t.Helper()
	gotLines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(want) == 0 && got == "" {
		return
	}
	if len(gotLines) != len(want) {
		t.Fatalf("got %d lines, want %d\ngot:\n%s", len(gotLines), len(want), got)
	}
	for i, w := range want {
		if gotLines[i] != w {
			t.Errorf("line %d: got %q, want %q", i, gotLines[i], w)
		}
	}
}

// --- §8 concrete end-to-end scenarios ----------------------------------

func TestClosureCapturesByReference(t *testing.T) {
	out := runOK(t, `
		var x = "global";
		fun outer() {
			var x = "outside";
			fun inner() {
				print x;
			}
			inner();
		}
		outer();
	`)
	wantLines(t, out, "outside")
}

func TestReturnedClosureSeesUpvalueAfterFrameReturns(t *testing.T) {
	out := runOK(t, `
		fun f() {
			var x = "value";
			fun g() {
				fun h() {
					print x;
				}
				print "create inner closure";
				return h;
			}
			print "return from outer";
			return g;
		}
		f()()();
	`)
	wantLines(t, out, "return from outer", "create inner closure", "value")
}

func TestInnerFunctionAssignsOuterLocalViaUpvalue(t *testing.T) {
	out := runOK(t, `
		fun a() {
			var x = nil;
			fun inner() {
				x = true;
			}
			inner();
			print x;
		}
		a();
	`)
	wantLines(t, out, "true")
}

func TestMethodBoundToReceiver(t *testing.T) {
	out := runOK(t, `
		class C {
			output() {
				print this.s;
			}
		}
		var c = C();
		c.s = "hi";
		var m = c.output;
		m();
	`)
	wantLines(t, out, "hi")
}

func TestThisInNestedFunctionInsideMethod(t *testing.T) {
	out := runOK(t, `
		class N {
			m() {
				fun f() {
					print this;
				}
				f();
			}
		}
		N().m();
	`)
	wantLines(t, out, "N instance")
}

func TestInheritanceCopiesMethodsAndSuperDispatches(t *testing.T) {
	out := runOK(t, `
		class A {
			speak() {
				print "A";
			}
		}
		class B < A {
			speak() {
				super.speak();
				print "B";
			}
		}
		B().speak();
	`)
	wantLines(t, out, "A", "B")
}

// --- §8 error behavior ---------------------------------------------------

func TestUndefinedVariableReadIsRuntimeError(t *testing.T) {
	_, err := runSource(t, "print z;")
	if err != ErrRuntime {
		t.Fatalf("got %v, want ErrRuntime", err)
	}
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	_, err := runSource(t, "fun f(a) {} f();")
	if err != ErrRuntime {
		t.Fatalf("got %v, want ErrRuntime", err)
	}
}

func TestMissingExpressionIsCompileError(t *testing.T) {
	_, err := runSource(t, "var x = ;")
	if err != ErrCompile {
		t.Fatalf("got %v, want ErrCompile", err)
	}
}

// --- arithmetic, truthiness, printing ------------------------------------

func TestArithmeticAndPrinting(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"add", `print 1 + 2;`, "3"},
		{"precedence", `print 1 + 2 * 3;`, "7"},
		{"string concat", `print "foo" + "bar";`, "foobar"},
		{"nil", `print nil;`, "nil"},
		{"bool true", `print true;`, "true"},
		{"bool false", `print !true;`, "false"},
		{"not equal", `print 1 != 2;`, "true"},
		{"greater-equal", `print 2 >= 2;`, "true"},
		{"lesser-equal", `print 1 <= 0;`, "false"},
		{"grouping", `print (1 + 2) * 3;`, "9"},
		{"number formatting", `print 3.0;`, "3"},
		{"negate", `print -5;`, "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runOK(t, tt.src)
			wantLines(t, out, tt.want)
		})
	}
}

func TestAndOrShortCircuit(t *testing.T) {
	out := runOK(t, `
		fun sideEffect(v) {
			print v;
			return v;
		}
		if (false and sideEffect("should not print")) {}
		if (true or sideEffect("should not print")) {}
		print "reached";
	`)
	if strings.Contains(out, "should not print") {
		t.Fatalf("short-circuit failed, got:\n%s", out)
	}
	wantLines(t, out, "reached")
}

func TestForLoopAccumulates(t *testing.T) {
	out := runOK(t, `
		var sum = 0;
		for (var i = 0; i < 5; i = i + 1) {
			sum = sum + i;
		}
		print sum;
	`)
	wantLines(t, out, "10")
}

func TestWhileLoop(t *testing.T) {
	out := runOK(t, `
		var i = 0;
		while (i < 3) {
			print i;
			i = i + 1;
		}
	`)
	wantLines(t, out, "0", "1", "2")
}

func TestRecursiveFunction(t *testing.T) {
	out := runOK(t, `
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		print fib(10);
	`)
	wantLines(t, out, "55")
}

func TestFieldsOnInstances(t *testing.T) {
	out := runOK(t, `
		class Box {}
		var b = Box();
		b.value = 42;
		print b.value;
	`)
	wantLines(t, out, "42")
}

func TestInitializerRunsOnConstruction(t *testing.T) {
	out := runOK(t, `
		class Counter {
			init(start) {
				this.count = start;
			}
			bump() {
				this.count = this.count + 1;
				return this.count;
			}
		}
		var c = Counter(10);
		print c.bump();
		print c.count;
	`)
	wantLines(t, out, "11", "11")
}

func TestInvokeFastPathVsFieldShadowing(t *testing.T) {
	out := runOK(t, `
		fun other() {
			print "field";
		}
		class C {
			greet() { print "method"; }
		}
		var c = C();
		c.greet();
		c.greet = other;
		c.greet();
	`)
	wantLines(t, out, "method", "field")
}

func TestGetSuperWithoutCall(t *testing.T) {
	out := runOK(t, `
		class A {
			speak() { print "A"; }
		}
		class B < A {
			speak() {
				var s = super.speak;
				s();
			}
		}
		B().speak();
	`)
	wantLines(t, out, "A")
}

// --- runtime errors --------------------------------------------------------

func TestRuntimeErrorsByKind(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"call non-callable", `var x = 1; x();`},
		{"add mismatched types", `print 1 + "a";`},
		{"negate non-number", `print -"a";`},
		{"property on non-instance", `var x = 1; print x.field;`},
		{"undefined property", `class C{} C().missing();`},
		{"undefined global set", `x = 1;`},
		{"superclass is not a class", `var x = 1; class C < x {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runSource(t, tt.src)
			if err != ErrRuntime {
				t.Fatalf("got %v, want ErrRuntime", err)
			}
		})
	}
}

func TestStackOverflowOnUnboundedRecursion(t *testing.T) {
	_, err := runSource(t, `
		fun recurse() { return recurse(); }
		recurse();
	`)
	if err != ErrRuntime {
		t.Fatalf("got %v, want ErrRuntime", err)
	}
}

// --- compile errors ---------------------------------------------------------

func TestCompileErrorsByKind(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"duplicate local", `{ var a = 1; var a = 2; }`},
		{"return from script", `return 1;`},
		{"return value from initializer", `class C { init() { return 1; } }`},
		{"this outside class", `print this;`},
		{"super outside class", `print super.x;`},
		{"self inheritance", `class C < C {}`},
		{"read local in own initializer", `{ var a = a; }`},
		{"invalid assignment target", `1 = 2;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runSource(t, tt.src)
			if err != ErrCompile {
				t.Fatalf("got %v, want ErrCompile", err)
			}
		})
	}
}

// --- globals persist across REPL-style Interpret calls --------------------

func TestGlobalsPersistAcrossInterpretCalls(t *testing.T) {
	machine := New()
	var out bytes.Buffer
	machine.SetOutput(&out)

	if err := machine.Interpret(`var x = 10;`); err != nil {
		t.Fatalf("unexpected %v", err)
	}
	if err := machine.Interpret(`print x + 5;`); err != nil {
		t.Fatalf("unexpected %v", err)
	}
	wantLines(t, out.String(), "15")
}

// --- GC does not collect live state under stress -------------------------

func TestStressGCKeepsLiveObjectsReachable(t *testing.T) {
	machine := New()
	machine.cfg.StressGC = true
	var out bytes.Buffer
	machine.SetOutput(&out)

	err := machine.Interpret(`
		class Node {
			init(v) { this.v = v; this.next = nil; }
		}
		var head = nil;
		for (var i = 0; i < 50; i = i + 1) {
			var n = Node(i);
			n.next = head;
			head = n;
		}
		var cur = head;
		var sum = 0;
		while (cur != nil) {
			sum = sum + cur.v;
			cur = cur.next;
		}
		print sum;
	`)
	if err != nil {
		t.Fatalf("unexpected %v", err)
	}
	wantLines(t, out.String(), "1225")
}

func TestStringInterningIdentity(t *testing.T) {
	machine := New()
	a := machine.internString("hello")
	b := machine.internString("hello")
	if a != b {
		t.Fatalf("equal-content strings were not interned to the same object")
	}
	c := machine.internString("hello world")
	if a == c {
		t.Fatalf("distinct strings were interned to the same object")
	}
}
