// Package bytecode defines the bytecode format and opcodes for willow.
//
// The bytecode is the low-level intermediate representation that the willow
// virtual machine executes. It consists of a flat byte stream, a per-chunk
// constant pool, and a parallel per-byte source-line array used only for
// error reporting.
//
// Architecture:
//
// willow uses a stack-based architecture where:
//  1. Values are pushed onto and popped from a runtime value stack
//  2. Most opcodes consume operands from the stack and push a result back
//  3. Locals live in stack slots; globals live in a hash table
//  4. Closures carry upvalues that alias or own captured locals
//
// Instruction Format:
//
// Each instruction is an opcode byte optionally followed by inline operand
// bytes. The operand layout depends on the opcode:
//   - a 1-byte constant-pool index (OpConstant, OpDefineGlobal, ...)
//   - a 1-byte stack-slot or upvalue-slot index (OpGetLocal, OpCall, ...)
//   - a 1-byte name index followed by a 1-byte argc (OpInvoke, OpSuperInvoke)
//   - a 2-byte big-endian jump offset (OpJump, OpJumpIfFalse, OpLoop)
//   - OpClosure is followed by 2 bytes per upvalue: (isLocal, index)
package bytecode

// OpCode is a single bytecode instruction's operation.
type OpCode byte

const (
	// Stack / constant operations.

	OpConstant OpCode = iota // push constants[operand]
	OpNil                    // push nil
	OpTrue                   // push true
	OpFalse                  // push false
	OpPop                    // discard top of stack

	// Variable access.

	OpGetLocal    // push frame.slots[operand]
	OpSetLocal    // frame.slots[operand] = peek(0)
	OpDefineGlobal // globals[constants[operand]] = pop()
	OpGetGlobal   // push globals[constants[operand]]
	OpSetGlobal   // globals[constants[operand]] = peek(0)
	OpGetUpvalue  // push *frame.closure.upvalues[operand].location
	OpSetUpvalue  // *frame.closure.upvalues[operand].location = peek(0)

	// Property access.

	OpGetProperty // pop instance, push field or bound method constants[operand]
	OpSetProperty // pop value, pop instance, set field constants[operand], push value

	// Arithmetic, comparison and logic. All pop their operands and push one result.

	OpEqual
	OpGreater
	OpLess
	OpAdd      // number+number or string+string concatenation
	OpSubtract
	OpMultiply
	OpDivide
	OpNegate // unary -, requires a number
	OpNot    // unary !, pushes the logical negation of truthiness

	// Output.

	OpPrint   // write top without newline, pop it
	OpPrintln // write top then newline, pop it

	// Control flow. Jump operands are 2-byte big-endian offsets from the
	// byte immediately following the operand.

	OpJump        // ip += operand
	OpJumpIfFalse // if !truthy(peek(0)) { ip += operand }; does not pop
	OpLoop        // ip -= operand

	// Calls and method dispatch.

	OpCall        // operand = argc; call callable at peek(argc)
	OpInvoke      // name = constants[nameIdx], argc = next byte; fast-path method call
	OpSuperInvoke // like OpInvoke but looks up the method starting at the popped superclass

	// Closures and upvalues.

	OpClosure      // build a closure over constants[operand] (must be an ObjFunction)
	OpCloseUpvalue // close the upvalue at stackTop-1 and pop it

	// Classes.

	OpClass    // push a new empty class named constants[operand]
	OpInherit  // copy superclass (peek 1) methods into subclass (peek 0), pop subclass
	OpMethod   // pop a closure, bind it as constants[operand] on the class at peek(0)
	OpGetSuper // pop a class, push a bound method named constants[operand] on it

	// Lists.

	OpListInit   // operand = element count n; build a list from the top n stack values
	OpListGetIdx // pop index, pop list, push element
	OpListSetIdx // pop value, pop index, pop list, push value; assigns list[index] = value

	// Return.

	OpReturn // pop result, close upvalues >= frame.slots, pop the frame
)

// String returns a human-readable mnemonic for an opcode, used by the
// disassembler and execution tracer.
func (op OpCode) String() string {
	switch op {
	case OpConstant:
		return "CONSTANT"
	case OpNil:
		return "NIL"
	case OpTrue:
		return "TRUE"
	case OpFalse:
		return "FALSE"
	case OpPop:
		return "POP"
	case OpGetLocal:
		return "GET_LOCAL"
	case OpSetLocal:
		return "SET_LOCAL"
	case OpDefineGlobal:
		return "DEFINE_GLOBAL"
	case OpGetGlobal:
		return "GET_GLOBAL"
	case OpSetGlobal:
		return "SET_GLOBAL"
	case OpGetUpvalue:
		return "GET_UPVALUE"
	case OpSetUpvalue:
		return "SET_UPVALUE"
	case OpGetProperty:
		return "GET_PROPERTY"
	case OpSetProperty:
		return "SET_PROPERTY"
	case OpEqual:
		return "EQUAL"
	case OpGreater:
		return "GREATER"
	case OpLess:
		return "LESS"
	case OpAdd:
		return "ADD"
	case OpSubtract:
		return "SUBTRACT"
	case OpMultiply:
		return "MULTIPLY"
	case OpDivide:
		return "DIVIDE"
	case OpNegate:
		return "NEGATE"
	case OpNot:
		return "NOT"
	case OpPrint:
		return "PRINT"
	case OpPrintln:
		return "PRINTLN"
	case OpJump:
		return "JUMP"
	case OpJumpIfFalse:
		return "JUMP_IF_FALSE"
	case OpLoop:
		return "LOOP"
	case OpCall:
		return "CALL"
	case OpInvoke:
		return "INVOKE"
	case OpSuperInvoke:
		return "SUPER_INVOKE"
	case OpClosure:
		return "CLOSURE"
	case OpCloseUpvalue:
		return "CLOSE_UPVALUE"
	case OpClass:
		return "CLASS"
	case OpInherit:
		return "INHERIT"
	case OpMethod:
		return "METHOD"
	case OpGetSuper:
		return "GET_SUPER"
	case OpListInit:
		return "LIST_INIT"
	case OpListGetIdx:
		return "LIST_GETIDX"
	case OpListSetIdx:
		return "LIST_SETIDX"
	case OpReturn:
		return "RETURN"
	default:
		return "UNKNOWN"
	}
}
