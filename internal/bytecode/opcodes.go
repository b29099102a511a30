// Package bytecode defines the instruction set and the compiled-function
// representation (Proto) that the VM executes.
package bytecode

// OpCode is a single instruction tag. Operands, when present, follow as
// raw bytes in the code stream (see Proto.Code).
type OpCode byte

const (
	OpConstant OpCode = iota // push Constants[operand]
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpDup

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNegate
	OpNot
	OpEqual
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual

	OpJump        // unconditional jump, 2-byte operand
	OpJumpIfFalse // peek, jump if falsy, 2-byte operand (the compiler pops the condition)
	OpJumpIfTrue  // peek, jump if truthy, 2-byte operand (the compiler pops the condition)
	OpAndJump     // peek, jump (without popping) if falsy, else pop
	OpOrJump      // peek, jump (without popping) if truthy, else pop
	OpLoop        // unconditional backward jump, 2-byte operand

	OpGetLocal
	OpSetLocal
	OpGetUpvalue
	OpSetUpvalue
	OpGetGlobal
	OpSetGlobal
	OpDefineGlobal
	OpGetIvar
	OpSetIvar
	OpGetCvar
	OpSetCvar
	OpGetConst // class/module constant lookup, by symbol id
	OpSetConst
	OpGetSelf

	OpMakeArray // operand: element count
	OpMakeHash  // operand: pair count
	OpMakeRange // pops (from, to, exclusiveFlag) -> Range
	OpIndexGet
	OpIndexSet

	OpMakeClosure // operand: proto constant index; followed by upvalue descriptors
	OpCall        // operand: argc; next byte: hasBlock (0/1)
	OpCallMethod  // operand: symbol id of method name; next byte: argc; next byte: hasBlock
	OpSend        // like CallMethod but bypasses visibility checks (reflective send)
	OpSuper       // operand: argc; next byte: hasBlock
	OpYield       // operand: argc - yields to the block attached to the current frame
	OpReturn
	OpBreak // pops value (or Nil) and raises a Break control signal
	OpNext  // pops value (or Nil) and raises a Next control signal
	OpRedo  // raises a Redo control signal

	OpDefineClass  // operand: constant index of the name; pops the superclass (or nil)
	OpDefineModule // operand: symbol id (name)
	OpDefineMethod // operands: constant index of the name, then a self-receiver flag byte; pops the proto, pushes nil
	OpEndClassBody // pops the class value, pushes nil, and closes the open-class context

	OpRaise // pops exception value (or builds RuntimeError from a string), begins unwind
	OpRetry
)

// String gives a human-readable mnemonic, used in VM error messages and
// tests (never by the language's own `inspect`).
func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "OpUnknown"
}

var opNames = map[OpCode]string{
	OpConstant: "CONSTANT", OpNil: "NIL", OpTrue: "TRUE", OpFalse: "FALSE",
	OpPop: "POP", OpDup: "DUP",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD",
	OpNegate: "NEGATE", OpNot: "NOT",
	OpEqual: "EQUAL", OpNotEqual: "NOT_EQUAL", OpGreater: "GREATER", OpLess: "LESS",
	OpGreaterEqual: "GREATER_EQUAL", OpLessEqual: "LESS_EQUAL",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpJumpIfTrue: "JUMP_IF_TRUE",
	OpAndJump: "AND_JUMP", OpOrJump: "OR_JUMP", OpLoop: "LOOP",
	OpGetLocal: "GET_LOCAL", OpSetLocal: "SET_LOCAL",
	OpGetUpvalue: "GET_UPVALUE", OpSetUpvalue: "SET_UPVALUE",
	OpGetGlobal: "GET_GLOBAL", OpSetGlobal: "SET_GLOBAL", OpDefineGlobal: "DEFINE_GLOBAL",
	OpGetIvar: "GET_IVAR", OpSetIvar: "SET_IVAR",
	OpGetCvar: "GET_CVAR", OpSetCvar: "SET_CVAR",
	OpGetConst: "GET_CONST", OpSetConst: "SET_CONST", OpGetSelf: "GET_SELF",
	OpMakeArray: "MAKE_ARRAY", OpMakeHash: "MAKE_HASH", OpMakeRange: "MAKE_RANGE",
	OpIndexGet: "INDEX_GET", OpIndexSet: "INDEX_SET",
	OpMakeClosure: "MAKE_CLOSURE", OpCall: "CALL", OpCallMethod: "CALL_METHOD",
	OpSend: "SEND", OpSuper: "SUPER", OpYield: "YIELD", OpReturn: "RETURN",
	OpBreak: "BREAK", OpNext: "NEXT", OpRedo: "REDO",
	OpDefineClass: "DEFINE_CLASS", OpDefineModule: "DEFINE_MODULE",
	OpDefineMethod: "DEFINE_METHOD", OpEndClassBody: "END_CLASS_BODY",
	OpRaise: "RAISE", OpRetry: "RETRY",
}
