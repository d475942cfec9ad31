// Package compiler compiles willow's AST into bytecode.
//
// One Compiler exists per function being compiled (the top-level script
// counts as a function too), chained to its lexically enclosing
// Compiler exactly as the VM's closures chain to their enclosing
// frames. Locals live in a flat slice addressed by scope depth; a local
// referenced by a nested function is "captured" and turned into an
// upvalue the same way the runtime's Upvalue does.
package compiler

import (
	"fmt"

	"github.com/willow-lang/willow/internal/ast"
	"github.com/willow-lang/willow/internal/bytecode"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/vm"
)

// funcType distinguishes the kind of function being compiled, since
// scripts, plain functions, methods, and initializers each reserve
// slot 0 a little differently.
type funcType int

const (
	funcScript funcType = iota
	funcFunction
	funcMethod
	funcInitializer
)

type local struct {
	name       string
	depth      int
	isCaptured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

type classScope struct {
	enclosing     *classScope
	hasSuperclass bool
}

// Compiler compiles a single function body (or the top-level script)
// into a *bytecode.ObjFunction, chaining to enclosing for lexical scope
// resolution.
type Compiler struct {
	vm        *vm.VM
	enclosing *Compiler
	function  *bytecode.ObjFunction
	kind      funcType

	locals     []local
	scopeDepth int
	upvalues   []upvalueRef

	class  *classScope
	errors []string
}

// Compile compiles a parsed program into a top-level script function
// ready to hand to vm.Interpret.
func Compile(vmInstance *vm.VM, program *ast.Program) (*bytecode.ObjFunction, error) {
	c := newCompiler(vmInstance, nil, funcScript, nil)
	for _, stmt := range program.Statements {
		c.statement(stmt)
	}
	fn := c.finish()
	if len(c.errors) > 0 {
		return nil, fmt.Errorf("compile errors: %v", c.errors)
	}
	return fn, nil
}

func newCompiler(vmInstance *vm.VM, enclosing *Compiler, kind funcType, class *classScope) *Compiler {
	c := &Compiler{
		vm:        vmInstance,
		enclosing: enclosing,
		kind:      kind,
		class:     class,
		function:  vmInstance.NewFunction(),
	}
	vmInstance.PushCompilerRoot(c.function)

	// Slot 0 is reserved: "this" for methods/initializers, unnamed for
	// plain functions and the top-level script.
	name := ""
	if kind == funcMethod || kind == funcInitializer {
		name = "this"
	}
	c.locals = append(c.locals, local{name: name, depth: 0})
	return c
}

func (c *Compiler) finish() *bytecode.ObjFunction {
	c.emitReturn()
	c.vm.PopCompilerRoot()
	if c.enclosing != nil {
		c.enclosing.errors = append(c.enclosing.errors, c.errors...)
	}
	return c.function
}

func (c *Compiler) chunk() *bytecode.Chunk { return c.function.Chunk }

func (c *Compiler) errorf(line int, format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf("[line %d] %s", line, fmt.Sprintf(format, args...)))
}

// ---- emission helpers ----

func (c *Compiler) emitByte(b byte, line int) { c.chunk().Write(b, line) }

func (c *Compiler) emitOp(op bytecode.OpCode, line int) { c.chunk().WriteOp(op, line) }

func (c *Compiler) emitOpByte(op bytecode.OpCode, operand byte, line int) {
	c.emitOp(op, line)
	c.emitByte(operand, line)
}

func (c *Compiler) emitReturn() {
	if c.kind == funcInitializer {
		c.emitOpByte(bytecode.OpGetLocal, 0, 0)
	} else {
		c.emitOp(bytecode.OpNil, 0)
	}
	c.emitOp(bytecode.OpReturn, 0)
}

func (c *Compiler) emitConstant(v bytecode.Value, line int) {
	idx := c.chunk().AddConstant(v)
	c.emitOpByte(bytecode.OpConstant, byte(idx), line)
}

func (c *Compiler) identifierConstant(name string) byte {
	return byte(c.chunk().AddConstant(bytecode.ObjectValue(c.vm.InternString(name))))
}

// emitJump emits a jump opcode with a placeholder 2-byte offset and
// returns the offset of the first placeholder byte, for patchJump.
func (c *Compiler) emitJump(op bytecode.OpCode, line int) int {
	c.emitOp(op, line)
	c.emitByte(0xff, line)
	c.emitByte(0xff, line)
	return c.chunk().Len() - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := c.chunk().Len() - offset - 2
	c.chunk().Code[offset] = byte(jump >> 8)
	c.chunk().Code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int, line int) {
	c.emitOp(bytecode.OpLoop, line)
	offset := c.chunk().Len() - loopStart + 2
	c.emitByte(byte(offset>>8), line)
	c.emitByte(byte(offset), line)
}

// ---- scope management ----

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope(line int) {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue, line)
		} else {
			c.emitOp(bytecode.OpPop, line)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (c *Compiler) declareVariable(name token.Token) {
	if c.scopeDepth == 0 {
		return
	}
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name == name.Lexeme {
			c.errorf(name.Line, "variable %q already declared in this scope", name.Lexeme)
		}
	}
	c.locals = append(c.locals, local{name: name.Lexeme, depth: c.scopeDepth})
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (c *Compiler) defineVariable(global byte, line int) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(bytecode.OpDefineGlobal, global, line)
}

func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return i
		}
	}
	return -1
}

func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}
	if slot := c.enclosing.resolveLocal(name); slot != -1 {
		c.enclosing.locals[slot].isCaptured = true
		return c.addUpvalue(byte(slot), true)
	}
	if slot := c.enclosing.resolveUpvalue(name); slot != -1 {
		return c.addUpvalue(byte(slot), false)
	}
	return -1
}

// namedVariable emits the load (or, if isSet, the store) of the
// variable name resolves to: a local slot, a captured upvalue, or a
// global.
func (c *Compiler) namedVariable(name token.Token, isSet bool) {
	var getOp, setOp bytecode.OpCode
	var slot int

	if local := c.resolveLocal(name.Lexeme); local != -1 {
		slot = local
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	} else if uv := c.resolveUpvalue(name.Lexeme); uv != -1 {
		slot = uv
		getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else {
		slot = int(c.identifierConstant(name.Lexeme))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if isSet {
		c.emitOpByte(setOp, byte(slot), name.Line)
	} else {
		c.emitOpByte(getOp, byte(slot), name.Line)
	}
}

func (c *Compiler) addUpvalue(index byte, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}
