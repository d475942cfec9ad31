package vm

import (
	"fmt"
	"strings"

	"github.com/willow-lang/willow/internal/bytecode"
)

// traceStep logs the current stack and the instruction about to execute,
// read-only: it never advances frame.IP or otherwise mutates VM state.
// Enabled by WithTrace, this is the "willow run --trace" observer the
// spec calls for as a debug-only aid, never load-bearing on execution.
func (vm *VM) traceStep(frame *CallFrame, chunk *bytecode.Chunk) {
	var stack strings.Builder
	stack.WriteString("          ")
	for i := 0; i < vm.stackTop; i++ {
		fmt.Fprintf(&stack, "[ %s ]", vm.stack[i].String())
	}

	text, _ := DisassembleInstruction(chunk, frame.IP)
	vm.logTrace(stack.String(), text)
}

// Disassemble renders every instruction in chunk as human-readable text,
// labelled with name. Used by the "willow disassemble" subcommand.
func Disassemble(chunk *bytecode.Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		text, next := DisassembleInstruction(chunk, offset)
		b.WriteString(text)
		b.WriteByte('\n')
		offset = next
	}
	return b.String()
}

// DisassembleInstruction formats the single instruction at offset and
// returns the offset of the instruction following it.
func DisassembleInstruction(chunk *bytecode.Chunk, offset int) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(&b, "%4d ", chunk.Lines[offset])
	}

	op := bytecode.OpCode(chunk.Code[offset])
	switch op {
	case bytecode.OpConstant, bytecode.OpDefineGlobal, bytecode.OpGetGlobal, bytecode.OpSetGlobal,
		bytecode.OpGetProperty, bytecode.OpSetProperty, bytecode.OpClass, bytecode.OpMethod, bytecode.OpGetSuper:
		return constantInstruction(&b, op, chunk, offset)

	case bytecode.OpGetLocal, bytecode.OpSetLocal, bytecode.OpGetUpvalue, bytecode.OpSetUpvalue,
		bytecode.OpCall, bytecode.OpListInit:
		return byteInstruction(&b, op, chunk, offset)

	case bytecode.OpInvoke, bytecode.OpSuperInvoke:
		return invokeInstruction(&b, op, chunk, offset)

	case bytecode.OpJump, bytecode.OpJumpIfFalse:
		return jumpInstruction(&b, op, chunk, offset, 1)
	case bytecode.OpLoop:
		return jumpInstruction(&b, op, chunk, offset, -1)

	case bytecode.OpClosure:
		return closureInstruction(&b, chunk, offset)

	default:
		fmt.Fprintf(&b, "%s", op)
		return b.String(), offset + 1
	}
}

func constantInstruction(b *strings.Builder, op bytecode.OpCode, chunk *bytecode.Chunk, offset int) (string, int) {
	idx := chunk.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d '%s'", op, idx, chunk.Constants[idx].String())
	return b.String(), offset + 2
}

func byteInstruction(b *strings.Builder, op bytecode.OpCode, chunk *bytecode.Chunk, offset int) (string, int) {
	slot := chunk.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d", op, slot)
	return b.String(), offset + 2
}

func invokeInstruction(b *strings.Builder, op bytecode.OpCode, chunk *bytecode.Chunk, offset int) (string, int) {
	idx := chunk.Code[offset+1]
	argCount := chunk.Code[offset+2]
	fmt.Fprintf(b, "%-16s (%d args) %4d '%s'", op, argCount, idx, chunk.Constants[idx].String())
	return b.String(), offset + 3
}

func jumpInstruction(b *strings.Builder, op bytecode.OpCode, chunk *bytecode.Chunk, offset, sign int) (string, int) {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	target := offset + 3 + sign*jump
	fmt.Fprintf(b, "%-16s %4d -> %d", op, offset, target)
	return b.String(), offset + 3
}

func closureInstruction(b *strings.Builder, chunk *bytecode.Chunk, offset int) (string, int) {
	idx := chunk.Code[offset+1]
	offset += 2
	fn := chunk.Constants[idx].AsObject().(*bytecode.ObjFunction)
	fmt.Fprintf(b, "%-16s %4d '%s'", bytecode.OpClosure, idx, chunk.Constants[idx].String())
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		index := chunk.Code[offset+1]
		kind := "upvalue"
		if isLocal == 1 {
			kind = "local"
		}
		fmt.Fprintf(b, "\n%04d      |                     %s %d", offset, kind, index)
		offset += 2
	}
	return b.String(), offset
}
