package vm

import "testing"

func TestChunkGetLineReturnsMostRecentPriorWrite(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpPop, 2)
	c.WriteOp(OpNil, 2)
	c.WriteOp(OpReturn, 5)

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 2}, {4, 5},
	}
	for _, tt := range tests {
		if got := c.GetLine(tt.offset); got != tt.want {
			t.Errorf("GetLine(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestChunkAddConstantReturnsIndex(t *testing.T) {
	c := NewChunk()
	i0 := c.AddConstant(NumberValue(1))
	i1 := c.AddConstant(NumberValue(2))
	if i0 != 0 || i1 != 1 {
		t.Fatalf("got indices %d, %d; want 0, 1", i0, i1)
	}
	if c.Constants[i0].Number != 1 || c.Constants[i1].Number != 2 {
		t.Fatal("constant pool did not preserve inserted values")
	}
}

func TestChunkWriteAppendsBytesInOrder(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpConstant, 1)
	c.Write(0, 1)
	if len(c.Code) != 2 || c.Code[0] != byte(OpConstant) || c.Code[1] != 0 {
		t.Fatalf("got %v", c.Code)
	}
}
