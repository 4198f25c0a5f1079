package compiler_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"lox/internal/compiler"
	"lox/internal/vm"
)

// run compiles and executes source against a fresh VM, returning stdout.
func run(t *testing.T, source string) (string, vm.InterpretResult) {
	t.Helper()
	var out bytes.Buffer
	machine := vm.New(vm.Options{Stdout: &out})
	fn, ok := compiler.Compile(machine, source)
	if !ok {
		return out.String(), vm.InterpretCompileError
	}
	result := machine.InterpretFunction(fn)
	return out.String(), result
}

func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
	}{
		{"arithmetic precedence", `print 1 + 2 * 3;`, "7\n"},
		{"string concatenation", `var a = "foo"; var b = "bar"; print a + b;`, "foobar\n"},
		{"closure captures argument", `fun make(n) { fun inner() { return n; } return inner; } var f = make(42); print f();`, "42\n"},
		{"closure captures mutable upvalue", `fun counter() { var i = 0; fun inc() { i = i + 1; return i; } return inc; } var c = counter(); print c(); print c(); print c();`, "1\n2\n3\n"},
		{"single inheritance dispatch", `class A { greet() { print "hi"; } } class B < A {} B().greet();`, "hi\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, result := run(t, tc.source)
			if result != vm.InterpretOK {
				t.Fatalf("interpret result = %v, want OK (output so far: %q)", result, got)
			}
			if got != tc.want {
				t.Errorf("output = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFinalVariableMutationIsCompileError(t *testing.T) {
	_, result := run(t, `final x = 1; x = 2;`)
	if result != vm.InterpretCompileError {
		t.Fatalf("result = %v, want InterpretCompileError", result)
	}
}

func TestFinalVariableRequiresInitializer(t *testing.T) {
	_, result := run(t, `final x;`)
	if result != vm.InterpretCompileError {
		t.Fatalf("result = %v, want InterpretCompileError", result)
	}
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	_, result := run(t, `print nope;`)
	if result != vm.InterpretRuntimeError {
		t.Fatalf("result = %v, want InterpretRuntimeError", result)
	}
}

func TestSwitchRunsOnlyMatchingCase(t *testing.T) {
	got, result := run(t, `
		var x = 5;
		switch (x) {
			case 1: print "one";
			case 5: print "five";
			default: print "other";
		}
	`)
	if result != vm.InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if got != "five\n" {
		t.Errorf("output = %q, want %q", got, "five\n")
	}
}

func TestBreakExitsWhileLoop(t *testing.T) {
	got, result := run(t, `
		var i = 0;
		while (true) {
			i = i + 1;
			if (i == 3) break;
		}
		print i;
	`)
	if result != vm.InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if got != "3\n" {
		t.Errorf("output = %q, want %q", got, "3\n")
	}
}

func TestContinueSkipsRestOfForBody(t *testing.T) {
	got, result := run(t, `
		var sum = 0;
		for (var i = 0; i < 5; i = i + 1) {
			if (i == 2) continue;
			sum = sum + i;
		}
		print sum;
	`)
	if result != vm.InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if got != "8\n" { // 0+1+3+4
		t.Errorf("output = %q, want %q", got, "8\n")
	}
}

func TestContinueInsideSwitchInsideLoopTargetsTheLoop(t *testing.T) {
	got, result := run(t, `
		var sum = 0;
		for (var i = 0; i < 5; i = i + 1) {
			switch (i) {
				case 2: continue;
				default: sum = sum + i;
			}
			sum = sum + 100;
		}
		print sum;
	`)
	if result != vm.InterpretOK {
		t.Fatalf("result = %v", result)
	}
	// i=0: sum+=0, sum+=100; i=1: sum+=1, sum+=100; i=2: continue skips both;
	// i=3: sum+=3, sum+=100; i=4: sum+=4, sum+=100 => sum = 0+100+1+100+3+100+4+100
	if got != "408\n" {
		t.Errorf("output = %q, want %q", got, "408\n")
	}
}

func TestContinueOutsideLoopInsideSwitchIsCompileError(t *testing.T) {
	_, result := run(t, `
		switch (1) {
			case 1: continue;
		}
	`)
	if result != vm.InterpretCompileError {
		t.Fatalf("result = %v, want InterpretCompileError", result)
	}
}

func TestClassFieldsAndMethods(t *testing.T) {
	got, result := run(t, `
		class Counter {
			init(start) {
				this.n = start;
			}
			next() {
				this.n = this.n + 1;
				return this.n;
			}
		}
		var c = Counter(10);
		print c.next();
		print c.next();
	`)
	if result != vm.InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if got != "11\n12\n" {
		t.Errorf("output = %q, want %q", got, "11\n12\n")
	}
}

func TestSuperCallsParentMethod(t *testing.T) {
	got, result := run(t, `
		class A {
			greet() { print "A"; }
		}
		class B < A {
			greet() {
				super.greet();
				print "B";
			}
		}
		B().greet();
	`)
	if result != vm.InterpretOK {
		t.Fatalf("result = %v", result)
	}
	if got != "A\nB\n" {
		t.Errorf("output = %q, want %q", got, "A\nB\n")
	}
}

func TestTwoBadDeclarationsAreCompileError(t *testing.T) {
	_, result := run(t, `var = 1; var also-bad = 2;`)
	if result != vm.InterpretCompileError {
		t.Fatalf("result = %v, want InterpretCompileError", result)
	}
}

func TestTypeErrorsAreRuntimeErrors(t *testing.T) {
	_, result := run(t, `print 1 + "a";`)
	if result != vm.InterpretRuntimeError {
		t.Fatalf("result = %v, want InterpretRuntimeError", result)
	}
}

func TestStackOverflowIsRecognizableViaErrorsIs(t *testing.T) {
	var out bytes.Buffer
	machine := vm.New(vm.Options{Stdout: &out})
	fn, ok := compiler.Compile(machine, `
		fun recurse(n) { return recurse(n + 1); }
		recurse(0);
	`)
	if !ok {
		t.Fatalf("compile failed")
	}
	if r := machine.InterpretFunction(fn); r != vm.InterpretRuntimeError {
		t.Fatalf("result = %v, want InterpretRuntimeError", r)
	}
	if !errors.Is(machine.LastError(), vm.ErrStackOverflow) {
		t.Fatalf("LastError() = %v, want errors.Is match against ErrStackOverflow", machine.LastError())
	}
}

func TestRecursiveFibonacciRunsToCompletion(t *testing.T) {
	var out bytes.Buffer
	machine := vm.New(vm.Options{Stdout: &out})
	fn, ok := compiler.Compile(machine, `
		fun fib(n) { if (n < 2) return n; return fib(n-1) + fib(n-2); }
		print fib(10);
	`)
	if !ok {
		t.Fatalf("compile failed")
	}
	if result := machine.InterpretFunction(fn); result != vm.InterpretOK {
		t.Fatalf("interpret result = %v", result)
	}
	if !strings.Contains(out.String(), "55") {
		t.Fatalf("expected fib(10) = 55 in output, got %q", out.String())
	}
}
