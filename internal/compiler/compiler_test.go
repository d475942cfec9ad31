package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willow-lang/willow/internal/bytecode"
	"github.com/willow-lang/willow/internal/parser"
	"github.com/willow-lang/willow/internal/vm"
)

func compileSource(t *testing.T, src string) (*bytecode.ObjFunction, *vm.VM) {
	t.Helper()
	p := parser.New(src)
	program, err := p.Parse()
	require.NoError(t, err, "parse errors: %v", p.Errors())

	machine := vm.New()
	fn, err := Compile(machine, program)
	require.NoError(t, err)
	return fn, machine
}

func TestCompileArithmeticEmitsExpectedOpcodes(t *testing.T) {
	fn, _ := compileSource(t, `1 + 2 * 3;`)
	ops := opcodesOf(fn.Chunk)
	assert.Equal(t, []bytecode.OpCode{
		bytecode.OpConstant, bytecode.OpConstant, bytecode.OpConstant,
		bytecode.OpMultiply, bytecode.OpAdd, bytecode.OpPop,
		bytecode.OpNil, bytecode.OpReturn,
	}, ops)
}

func TestCompileGreaterEqualDesugarsToLessThenNot(t *testing.T) {
	fn, _ := compileSource(t, `1 >= 2;`)
	ops := opcodesOf(fn.Chunk)
	assert.Contains(t, ops, bytecode.OpLess)
	assert.Contains(t, ops, bytecode.OpNot)
	assert.NotContains(t, ops, bytecode.OpGreater)
}

func TestCompileGlobalVarUsesGlobalOpcodes(t *testing.T) {
	fn, _ := compileSource(t, `var x = 1; x = 2;`)
	ops := opcodesOf(fn.Chunk)
	assert.Contains(t, ops, bytecode.OpDefineGlobal)
	assert.Contains(t, ops, bytecode.OpSetGlobal)
}

func TestCompileLocalVarUsesLocalOpcodesNotGlobal(t *testing.T) {
	fn, _ := compileSource(t, `{ var x = 1; x = 2; }`)
	ops := opcodesOf(fn.Chunk)
	assert.NotContains(t, ops, bytecode.OpDefineGlobal)
	assert.Contains(t, ops, bytecode.OpSetLocal)
	assert.Contains(t, ops, bytecode.OpPop) // scope exit pops the local
}

func TestCompileFunctionEmitsClosureWithUpvalue(t *testing.T) {
	fn, _ := compileSource(t, `
		fun outer() {
			var x = 1;
			fun inner() { return x; }
			return inner;
		}
	`)
	ops := opcodesOf(fn.Chunk)
	assert.Contains(t, ops, bytecode.OpClosure)

	// the outer function's constant pool holds the inner ObjFunction
	var outerFn *bytecode.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.AsObject().(*bytecode.ObjFunction); ok && f.Name != nil && f.Name.Chars == "outer" {
			outerFn = f
		}
	}
	require.NotNil(t, outerFn)
	var innerFn *bytecode.ObjFunction
	for _, c := range outerFn.Chunk.Constants {
		if f, ok := c.AsObject().(*bytecode.ObjFunction); ok && f.Name != nil && f.Name.Chars == "inner" {
			innerFn = f
		}
	}
	require.NotNil(t, innerFn)
	assert.Equal(t, 1, innerFn.UpvalueCount)
	assert.Contains(t, opcodesOf(innerFn.Chunk), bytecode.OpGetUpvalue)
}

func TestCompileClassWithSuperclassEmitsInherit(t *testing.T) {
	fn, _ := compileSource(t, `
		class Animal { speak() { print "..."; } }
		class Dog < Animal { speak() { super.speak(); } }
	`)
	ops := opcodesOf(fn.Chunk)
	assert.Contains(t, ops, bytecode.OpClass)
	assert.Contains(t, ops, bytecode.OpInherit)
	assert.Contains(t, ops, bytecode.OpMethod)
}

func TestCompileSuperCallOutsideClassIsError(t *testing.T) {
	p := parser.New(`fun f() { super.speak(); }`)
	program, err := p.Parse()
	require.NoError(t, err)

	machine := vm.New()
	_, err = Compile(machine, program)
	assert.Error(t, err)
}

func TestCompileReturnFromTopLevelIsError(t *testing.T) {
	p := parser.New(`return 1;`)
	program, err := p.Parse()
	require.NoError(t, err)

	machine := vm.New()
	_, err = Compile(machine, program)
	assert.Error(t, err)
}

func TestCompileModuloHasNoOpcodeAndErrors(t *testing.T) {
	p := parser.New(`1 % 2;`)
	program, err := p.Parse()
	require.NoError(t, err)

	machine := vm.New()
	_, err = Compile(machine, program)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported binary operator")
}

func TestCompileInheritFromSelfIsError(t *testing.T) {
	p := parser.New(`class Foo < Foo {}`)
	program, err := p.Parse()
	require.NoError(t, err)

	machine := vm.New()
	_, err = Compile(machine, program)
	assert.Error(t, err)
}

func TestCompileListLiteralEmitsListInitWithCount(t *testing.T) {
	fn, _ := compileSource(t, `[1, 2, 3];`)
	code := fn.Chunk.Code
	found := false
	for i, b := range code {
		if bytecode.OpCode(b) == bytecode.OpListInit {
			assert.Equal(t, byte(3), code[i+1])
			found = true
		}
	}
	assert.True(t, found)
}

func opcodesOf(chunk *bytecode.Chunk) []bytecode.OpCode {
	var ops []bytecode.OpCode
	for offset := 0; offset < len(chunk.Code); {
		op := bytecode.OpCode(chunk.Code[offset])
		ops = append(ops, op)
		offset += 1 + operandWidth(op, chunk, offset)
	}
	return ops
}

// operandWidth returns how many operand bytes follow op at offset,
// mirroring vm.DisassembleInstruction's dispatch but returning only the
// width instead of formatted text.
func operandWidth(op bytecode.OpCode, chunk *bytecode.Chunk, offset int) int {
	switch op {
	case bytecode.OpConstant, bytecode.OpDefineGlobal, bytecode.OpGetGlobal, bytecode.OpSetGlobal,
		bytecode.OpGetProperty, bytecode.OpSetProperty, bytecode.OpClass, bytecode.OpMethod, bytecode.OpGetSuper,
		bytecode.OpGetLocal, bytecode.OpSetLocal, bytecode.OpGetUpvalue, bytecode.OpSetUpvalue,
		bytecode.OpCall, bytecode.OpListInit:
		return 1
	case bytecode.OpInvoke, bytecode.OpSuperInvoke:
		return 2
	case bytecode.OpJump, bytecode.OpJumpIfFalse, bytecode.OpLoop:
		return 2
	case bytecode.OpClosure:
		idx := chunk.Code[offset+1]
		fn := chunk.Constants[idx].AsObject().(*bytecode.ObjFunction)
		return 1 + fn.UpvalueCount*2
	default:
		return 0
	}
}
