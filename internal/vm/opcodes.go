package vm

// Opcode identifies a single bytecode instruction.
type Opcode byte

const (
	OpConstant Opcode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop

	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpGetProperty
	OpSetProperty
	OpGetSuper

	OpEqual
	OpGreater
	OpLesser
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate

	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop
	OpCall
	OpInvoke
	OpSuperInvoke
	OpClosure
	OpCloseUpvalue
	OpReturn

	OpClass
	OpInherit
	OpMethod
)

// OpcodeNames maps opcodes to their disassembly mnemonic.
var OpcodeNames = map[Opcode]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpGetSuper:     "OP_GET_SUPER",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLesser:       "OP_LESSER",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpInvoke:       "OP_INVOKE",
	OpSuperInvoke:  "OP_SUPER_INVOKE",
	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpReturn:       "OP_RETURN",
	OpClass:        "OP_CLASS",
	OpInherit:      "OP_INHERIT",
	OpMethod:       "OP_METHOD",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "OP_UNKNOWN"
}
