package vm

import (
	"strings"
	"testing"
)

func TestDisassembleLabelsSimpleAndConstantInstructions(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(NumberValue(42))
	c.WriteOp(OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(OpReturn, 1)

	out := Disassemble(c, "test chunk")
	if !strings.Contains(out, "== test chunk ==") {
		t.Errorf("missing header, got:\n%s", out)
	}
	if !strings.Contains(out, "OP_CONSTANT") || !strings.Contains(out, "42") {
		t.Errorf("missing constant instruction, got:\n%s", out)
	}
	if !strings.Contains(out, "OP_RETURN") {
		t.Errorf("missing return instruction, got:\n%s", out)
	}
}

func TestDisassembleRepeatsLineOnlyWhenItChanges(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpPop, 2)

	out := Disassemble(c, "t")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 { // header + 3 instructions
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[2], "   | ") {
		t.Errorf("second instruction on the same line should elide the line number, got %q", lines[2])
	}
}

func TestDisassembleJumpShowsTarget(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpJump, 1)
	c.Write(0, 1)
	c.Write(2, 1)
	c.WriteOp(OpPop, 1)

	out := Disassemble(c, "t")
	if !strings.Contains(out, "-> 5") {
		t.Errorf("expected jump target 5, got:\n%s", out)
	}
}
