package cil

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	code := []byte{
		0x02,                                                                         // ldarg.0
		0x1F, 0xF6,                                                                   // ldc.i4.s -10
		0x20, 0x78, 0x56, 0x34, 0x12,                                                 // ldc.i4 0x12345678
		0x72, 0x01, 0x00, 0x00, 0x70,                                                 // ldstr 0x70000001
		0xFE, 0x01,                                                                   // ceq
		0x2D, 0x02,                                                                   // brtrue.s +2
		0x45, 0x02, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, // switch (1, -1)
		0xFE, 0x0C, 0x03, 0x00,                                                       // ldloc 3
		0x2A,                                                                         // ret
	}

	instrs, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(instrs) != 9 {
		t.Fatalf("decoded %d instructions, want 9", len(instrs))
	}

	if instrs[1].Operand != int8(-10) {
		t.Errorf("ldc.i4.s operand = %v", instrs[1].Operand)
	}
	if instrs[3].Operand != Token(0x70000001) {
		t.Errorf("ldstr operand = %v", instrs[3].Operand)
	}
	if instrs[4].OpCode != Ceq || instrs[4].Offset != 13 {
		t.Errorf("instr 4 = %s", instrs[4])
	}
	targets, ok := instrs[6].Operand.([]int32)
	if !ok || len(targets) != 2 || targets[1] != -1 {
		t.Errorf("switch operand = %v", instrs[6].Operand)
	}
	if instrs[7].Operand != uint16(3) {
		t.Errorf("ldloc operand = %v", instrs[7].Operand)
	}

	encoded, err := Encode(instrs)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(encoded, code) {
		t.Fatalf("round trip mismatch:\n got %x\nwant %x", encoded, code)
	}
}

func TestEncodeAcceptsIntOperands(t *testing.T) {
	got, err := Encode([]Instruction{
		{OpCode: LdcI4S, Operand: 5},
		{OpCode: LdcI4, Operand: -1},
		{OpCode: Ret},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x1F, 0x05, 0x20, 0xFF, 0xFF, 0xFF, 0xFF, 0x2A}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		instr Instruction
	}{
		{"short operand overflow", Instruction{OpCode: LdcI4S, Operand: 300}},
		{"token expected", Instruction{OpCode: Ldstr, Operand: "hello"}},
		{"unexpected operand", Instruction{OpCode: Nop, Operand: 1}},
		{"float expected", Instruction{OpCode: LdcR8, Operand: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode([]Instruction{tt.instr})
			if !errors.Is(err, ErrOperand) {
				t.Fatalf("err = %v, want ErrOperand", err)
			}
		})
	}

	if _, err := Encode([]Instruction{{}}); !errors.Is(err, ErrInvalidOpCode) {
		t.Errorf("zero opcode: err = %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want error
	}{
		{"reserved opcode", []byte{0x24}, ErrInvalidOpCode},
		{"dangling prefix", []byte{0xFE}, ErrTruncated},
		{"short operand", []byte{0x20, 0x01}, ErrTruncated},
		{"short switch table", []byte{0x45, 0x02, 0x00, 0x00, 0x00, 0x01}, ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.code)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAssignOffsets(t *testing.T) {
	instrs := []Instruction{
		{OpCode: Ldarg0},
		{OpCode: LdcI4, Operand: 1},
		{OpCode: Ceq},
		{OpCode: Ret},
	}
	if size := Assign(instrs); size != 9 {
		t.Fatalf("size = %d, want 9", size)
	}
	want := []int{0, 1, 6, 8}
	for i, w := range want {
		if instrs[i].Offset != w {
			t.Errorf("offset[%d] = %d, want %d", i, instrs[i].Offset, w)
		}
	}
}

func TestToken(t *testing.T) {
	tok := NewToken(0x06, 3)
	if tok != 0x06000003 || tok.Table() != 0x06 || tok.RID() != 3 {
		t.Fatalf("token = %s", tok)
	}
}
