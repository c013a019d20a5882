package chunk

// OpCode is a single bytecode instruction tag. Opcodes are one byte,
// matching the teacher's Opcode byte enum (pkg/bytecode/bytecode.go) and
// spec §4.3's minimum opcode set, extended with the closure/class/upvalue
// opcodes SPEC_FULL.md §C adds on top of it.
type OpCode byte

const (
	OpNop OpCode = iota

	OpPop
	OpPopN // operand: u8 count — spec §9 "POPN vs repeated POP": this repo picks OpPopN.

	OpConstant   // operand: u8 constant index
	OpConstant16 // operand: u16 constant index

	OpNil
	OpTrue
	OpFalse

	OpNot
	OpNegate

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide

	OpEqual
	OpNotEqual
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual

	OpPrint

	OpDefineGlobal
	OpDefineGlobal16
	OpGetGlobal
	OpGetGlobal16
	OpSetGlobal
	OpSetGlobal16

	OpGetLocal
	OpGetLocal16
	OpSetLocal
	OpSetLocal16

	OpGetUpvalue
	OpSetUpvalue
	OpCloseUpvalue

	OpJump
	OpJumpIfFalse    // branch-only: condition value is left on the stack either way (feeds and/or short-circuiting)
	OpJumpIfFalsePop // branch and unconditionally pop the condition (if/while/for)
	OpLoop

	OpCall // operand: u8 argument count

	OpClosure  // operand: u8/u16 constant index of the ObjFunction prototype
	OpClosure16

	OpReturn

	OpClass          // operand: constant index of the class name
	OpClass16
	OpInherit        // pops superclass, peeks subclass, wires method table
	OpMethod         // operand: constant index of the method name
	OpMethod16
	OpGetProperty    // operand: constant index of the field/method name
	OpGetProperty16
	OpSetProperty
	OpSetProperty16
	OpGetSuper
	OpGetSuper16
	OpInvoke         // operand: packed (name constant index, arg count) — fused get+call
	OpInvoke16
	OpSuperInvoke
	OpSuperInvoke16
)

// opNames maps each opcode to its disassembler mnemonic.
var opNames = map[OpCode]string{
	OpNop:             "NOP",
	OpPop:             "POP",
	OpPopN:            "POPN",
	OpConstant:        "CONSTANT",
	OpConstant16:      "CONSTANT_16",
	OpNil:             "NIL",
	OpTrue:            "TRUE",
	OpFalse:           "FALSE",
	OpNot:             "NOT",
	OpNegate:          "NEGATE",
	OpAdd:             "ADD",
	OpSubtract:        "SUBTRACT",
	OpMultiply:        "MULTIPLY",
	OpDivide:          "DIVIDE",
	OpEqual:           "EQUAL",
	OpNotEqual:        "NOT_EQUAL",
	OpGreater:         "GREATER",
	OpGreaterEqual:    "GREATER_EQUAL",
	OpLess:            "LESS",
	OpLessEqual:       "LESS_EQUAL",
	OpPrint:           "PRINT",
	OpDefineGlobal:    "DEFINE_GLOBAL",
	OpDefineGlobal16:  "DEFINE_GLOBAL_16",
	OpGetGlobal:       "GET_GLOBAL",
	OpGetGlobal16:     "GET_GLOBAL_16",
	OpSetGlobal:       "SET_GLOBAL",
	OpSetGlobal16:     "SET_GLOBAL_16",
	OpGetLocal:        "GET_LOCAL",
	OpGetLocal16:      "GET_LOCAL_16",
	OpSetLocal:        "SET_LOCAL",
	OpSetLocal16:      "SET_LOCAL_16",
	OpGetUpvalue:      "GET_UPVALUE",
	OpSetUpvalue:      "SET_UPVALUE",
	OpCloseUpvalue:    "CLOSE_UPVALUE",
	OpJump:            "JUMP",
	OpJumpIfFalse:     "JUMP_IF_FALSE",
	OpJumpIfFalsePop:  "JUMP_IF_FALSE_POP",
	OpLoop:            "LOOP",
	OpCall:            "CALL",
	OpClosure:         "CLOSURE",
	OpClosure16:       "CLOSURE_16",
	OpReturn:          "RETURN",
	OpClass:           "CLASS",
	OpClass16:         "CLASS_16",
	OpInherit:         "INHERIT",
	OpMethod:          "METHOD",
	OpMethod16:        "METHOD_16",
	OpGetProperty:     "GET_PROPERTY",
	OpGetProperty16:   "GET_PROPERTY_16",
	OpSetProperty:     "SET_PROPERTY",
	OpSetProperty16:   "SET_PROPERTY_16",
	OpGetSuper:        "GET_SUPER",
	OpGetSuper16:      "GET_SUPER_16",
	OpInvoke:          "INVOKE",
	OpInvoke16:        "INVOKE_16",
	OpSuperInvoke:     "SUPER_INVOKE",
	OpSuperInvoke16:   "SUPER_INVOKE_16",
}

func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// InvokeArgCountBits/InvokeArgCountMask unpack OpInvoke/OpSuperInvoke's
// 16-bit operand into a constant index (high byte) and an argument count
// (low byte), the same bit-packing idea as the teacher's OpSend
// (pkg/bytecode/bytecode.go: "pack these together using bit
// manipulation"), with the same 8/8 split. Name constants past index 255
// use OpInvoke16/OpSuperInvoke16 instead, whose operand is a u16 constant
// index followed by a separate u8 argument count.
const (
	InvokeArgCountBits = 8
	InvokeArgCountMask = 0xFF
)
