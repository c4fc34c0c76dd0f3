package vm

import (
	"fmt"
	"os"
	"strings"
)

// Disassemble returns a human-readable listing of every instruction in
// chunk, labeled name — used by the -debug config toggle and by tests.
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)

	offset := 0
	for offset < len(chunk.Code) {
		line, next := disassembleInstruction(chunk, offset)
		sb.WriteString(line)
		offset = next
	}
	return sb.String()
}

// disassembleInstruction renders the single instruction at offset,
// returning its text and the offset of the following instruction.
func disassembleInstruction(chunk *Chunk, offset int) (string, int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04d ", offset)

	line := chunk.GetLine(offset)
	if offset > 0 && line == chunk.GetLine(offset-1) {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(&sb, "%4d ", line)
	}

	op := Opcode(chunk.Code[offset])
	name := op.String()

	switch op {
	case OpConstant, OpGetGlobal, OpDefineGlobal, OpSetGlobal,
		OpGetProperty, OpSetProperty, OpGetSuper, OpClass, OpMethod:
		idx := int(chunk.Code[offset+1])
		sb.WriteString(constantOperand(name, chunk, idx))
		return sb.String(), offset + 2

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		slot := chunk.Code[offset+1]
		fmt.Fprintf(&sb, "%-16s %4d\n", name, slot)
		return sb.String(), offset + 2

	case OpInvoke, OpSuperInvoke:
		idx := int(chunk.Code[offset+1])
		argCount := chunk.Code[offset+2]
		fmt.Fprintf(&sb, "%-16s %4d (%d args)\n", name, idx, argCount)
		return sb.String(), offset + 3

	case OpJump, OpJumpIfFalse, OpLoop:
		jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
		sign := 1
		if op == OpLoop {
			sign = -1
		}
		target := offset + 3 + sign*jump
		fmt.Fprintf(&sb, "%-16s %4d -> %d\n", name, jump, target)
		return sb.String(), offset + 3

	case OpClosure:
		idx := int(chunk.Code[offset+1])
		sb.WriteString(constantOperand(name, chunk, idx))
		next := offset + 2
		if idx < len(chunk.Constants) {
			if fn, ok := chunk.Constants[idx].Obj.(*ObjFunction); ok {
				for i := 0; i < fn.UpvalueCount; i++ {
					isLocal := chunk.Code[next]
					index := chunk.Code[next+1]
					kind := "upvalue"
					if isLocal == 1 {
						kind = "local"
					}
					fmt.Fprintf(&sb, "%04d    |                     %s %d\n", next, kind, index)
					next += 2
				}
			}
		}
		return sb.String(), next

	default:
		sb.WriteString(name + "\n")
		return sb.String(), offset + 1
	}
}

func constantOperand(name string, chunk *Chunk, idx int) string {
	if idx >= len(chunk.Constants) {
		return fmt.Sprintf("%-16s %4d (invalid)\n", name, idx)
	}
	return fmt.Sprintf("%-16s %4d '%s'\n", name, idx, chunk.Constants[idx].String())
}

// traceExecution prints the instruction about to run and the current
// stack contents, gated by config.TraceExec.
func (vm *VM) traceExecution() {
	f := vm.frame()
	line, _ := disassembleInstruction(f.closure.Function.Chunk, f.ip)
	fmt.Fprint(os.Stderr, line)

	fmt.Fprint(os.Stderr, "          ")
	for i := 0; i < vm.stackTop; i++ {
		fmt.Fprintf(os.Stderr, "[ %s ]", vm.stack[i].String())
	}
	fmt.Fprintln(os.Stderr)
}
