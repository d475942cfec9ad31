package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willow-lang/willow/internal/compiler"
	"github.com/willow-lang/willow/internal/parser"
	"github.com/willow-lang/willow/internal/vm"
)

// runProgram compiles and runs src against a fresh VM, returning whatever
// it printed and the InterpretResult, for scenario-style assertions.
func runProgram(t *testing.T, src string, opts ...vm.Option) (string, vm.InterpretResult, *vm.VM) {
	t.Helper()
	p := parser.New(src)
	program, err := p.Parse()
	require.NoError(t, err, "parse errors: %v", p.Errors())

	var out bytes.Buffer
	machine := vm.New(append([]vm.Option{vm.WithStdout(&out)}, opts...)...)

	fn, err := compiler.Compile(machine, program)
	require.NoError(t, err)

	result := machine.Interpret(fn)
	return out.String(), result, machine
}

func TestArithmeticAndPrecedence(t *testing.T) {
	out, result, _ := runProgram(t, `print 1 + 2 * 3 - 4 / 2;`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "5", out)
}

func TestStringConcatenation(t *testing.T) {
	out, result, _ := runProgram(t, `
		var greeting = "Hello, " + "world" + "!";
		print greeting;
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "Hello, world!", out)
}

func TestClosureCounter(t *testing.T) {
	out, result, _ := runProgram(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		println counter();
		println counter();
		println counter();
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestForLoop(t *testing.T) {
	out, result, _ := runProgram(t, `
		var sum = 0;
		for (var i = 0; i < 5; i = i + 1) {
			sum = sum + i;
		}
		println sum;
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "10\n", out)
}

func TestAndOrShortCircuit(t *testing.T) {
	out, result, _ := runProgram(t, `
		fun sideEffect(tag, value) {
			println tag;
			return value;
		}
		if (sideEffect("left-false", false) and sideEffect("right-unreached", true)) {
			println "then";
		} else {
			println "else";
		}
		if (sideEffect("left-true", true) or sideEffect("right-unreached", false)) {
			println "then2";
		}
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "left-false\nelse\nleft-true\nthen2\n", out)
}

func TestMultiLevelInheritanceAndSuper(t *testing.T) {
	out, result, _ := runProgram(t, `
		class A {
			greet() { println "A"; }
		}
		class B < A {
			greet() {
				super.greet();
				println "B";
			}
		}
		class C < B {
			greet() {
				super.greet();
				println "C";
			}
		}
		C().greet();
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "A\nB\nC\n", out)
}

func TestClassFieldsAndInitializer(t *testing.T) {
	out, result, _ := runProgram(t, `
		class Point {
			init(x, y) {
				this.x = x;
				this.y = y;
			}
			sum() {
				return this.x + this.y;
			}
		}
		var p = Point(3, 4);
		println p.sum();
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "7\n", out)
}

func TestListNativesLengthAppendDelete(t *testing.T) {
	out, result, _ := runProgram(t, `
		var xs = [1, 2, 3];
		append(xs, 4);
		println length(xs);
		println xs[3];
		delete(xs, 0);
		println length(xs);
		println xs[0];
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "4\n4\n3\n2\n", out)
}

func TestListIndexOutOfRangeIsRuntimeError(t *testing.T) {
	out, result, machine := runProgram(t, `
		var xs = [1, 2];
		println xs[5];
	`)
	assert.Equal(t, vm.InterpretRuntimeError, result)
	assert.Empty(t, out)
	require.Error(t, machine.PendingError())
}

func TestDivisionByZeroIsNotAPanicButFollowsIEEE754(t *testing.T) {
	out, result, _ := runProgram(t, `println 1 / 0;`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "+Inf\n", out)
}

func TestCallingNonFunctionIsRuntimeError(t *testing.T) {
	_, result, machine := runProgram(t, `
		var x = 1;
		x();
	`)
	assert.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, machine.PendingError())
	assert.Contains(t, machine.PendingError().Error(), "Can only call functions and classes.")
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, result, machine := runProgram(t, `print undefinedVariable;`)
	assert.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, machine.PendingError())
}

func TestDeepRecursionIsRuntimeErrorNotPanic(t *testing.T) {
	_, result, machine := runProgram(t, `
		fun recurse(n) {
			return recurse(n + 1);
		}
		recurse(0);
	`)
	assert.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, machine.PendingError())
	assert.Contains(t, machine.PendingError().Error(), "Stack overflow.")
}

func TestGCStressProducesIdenticalOutputToNormalRun(t *testing.T) {
	src := `
		class Node {
			init(value) {
				this.value = value;
				this.next = nil;
			}
		}
		fun buildList(n) {
			var head = nil;
			var i = 0;
			while (i < n) {
				var node = Node(i);
				node.next = head;
				head = node;
				i = i + 1;
			}
			return head;
		}
		fun sumList(node) {
			var total = 0;
			while (node != nil) {
				total = total + node.value;
				node = node.next;
			}
			return total;
		}
		println sumList(buildList(50));

		var xs = [];
		var j = 0;
		while (j < 50) {
			append(xs, j * 2);
			j = j + 1;
		}
		println length(xs);
		println xs[49];
	`

	normalOut, normalResult, _ := runProgram(t, src)
	stressOut, stressResult, _ := runProgram(t, src, vm.WithGCStress(true))

	require.Equal(t, vm.InterpretOK, normalResult)
	require.Equal(t, vm.InterpretOK, stressResult)
	assert.Equal(t, normalOut, stressOut)
}
