package cil

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Token is a metadata token: table number in the high byte, row id in the
// low 24 bits.
type Token uint32

// NewToken builds a token from a table number and a 1-based row id.
func NewToken(table byte, rid uint32) Token {
	return Token(uint32(table)<<24 | rid&0x00FFFFFF)
}

func (t Token) Table() byte { return byte(t >> 24) }
func (t Token) RID() uint32 { return uint32(t) & 0x00FFFFFF }

func (t Token) String() string { return fmt.Sprintf("0x%08X", uint32(t)) }

// Instruction is a single decoded or authored CIL instruction.
//
// Operand holds a value whose Go type depends on the opcode's operand type:
//
//	InlineNone                       nil
//	ShortInlineBrTarget              int8 (offset relative to the next instruction)
//	InlineBrTarget                   int32 (offset relative to the next instruction)
//	ShortInlineI                     int8
//	InlineI                          int32
//	InlineI8                         int64
//	ShortInlineR                     float32
//	InlineR                          float64
//	ShortInlineVar                   uint8
//	InlineVar                        uint16
//	InlineSwitch                     []int32
//	InlineField, InlineMethod,
//	InlineSig, InlineString,
//	InlineTok, InlineType            Token
//
// Encode accepts any Go integer type where an integer is expected.
type Instruction struct {
	Offset  int
	OpCode  OpCode
	Operand any
}

// Size returns the encoded size of the instruction in bytes.
func (i Instruction) Size() int {
	n := i.OpCode.Size()
	if i.OpCode.OperandType() == InlineSwitch {
		targets, _ := i.Operand.([]int32)
		return n + 4 + 4*len(targets)
	}
	return n + OperandSize(i.OpCode.OperandType())
}

func (i Instruction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "IL_%04X: %s", i.Offset, i.OpCode.Mnemonic())
	if i.Operand != nil {
		fmt.Fprintf(&b, " %v", i.Operand)
	}
	return b.String()
}

// OperandSize returns the fixed operand size for an operand type. The switch
// operand is variable; its size here covers only the target count.
func OperandSize(t OperandType) int {
	switch t {
	case InlineNone, InlinePhi:
		return 0
	case ShortInlineBrTarget, ShortInlineI, ShortInlineVar:
		return 1
	case InlineVar:
		return 2
	case InlineBrTarget, InlineField, InlineI, InlineMethod, InlineSig,
		InlineString, InlineTok, InlineType, ShortInlineR, InlineSwitch:
		return 4
	case InlineI8, InlineR:
		return 8
	default:
		return 0
	}
}

var (
	// ErrInvalidOpCode is returned when the stream contains a byte sequence
	// that no opcode is registered for.
	ErrInvalidOpCode = errors.New("invalid opcode")

	// ErrTruncated is returned when an operand runs past the end of the code.
	ErrTruncated = errors.New("truncated instruction stream")

	// ErrOperand is returned when an operand value has the wrong Go type or
	// does not fit the operand encoding.
	ErrOperand = errors.New("invalid operand")
)

// Decode parses an instruction stream.
func Decode(code []byte) ([]Instruction, error) {
	var out []Instruction
	offset := 0
	for offset < len(code) {
		start := offset
		b1 := code[offset]
		offset++

		var op OpCode
		if b1 == ExtendedPrefix {
			if offset >= len(code) {
				return out, fmt.Errorf("IL_%04X: %w", start, ErrTruncated)
			}
			op = DescribeExtended(code[offset])
			offset++
		} else {
			op = Describe(b1)
		}
		if !op.IsValid() {
			return out, fmt.Errorf("IL_%04X: %w: 0x%02X", start, ErrInvalidOpCode, b1)
		}

		operand, n, err := readOperand(op.OperandType(), code[offset:])
		if err != nil {
			return out, fmt.Errorf("IL_%04X: %s: %w", start, op.Mnemonic(), err)
		}
		offset += n

		out = append(out, Instruction{Offset: start, OpCode: op, Operand: operand})
	}
	return out, nil
}

func readOperand(t OperandType, data []byte) (any, int, error) {
	size := OperandSize(t)
	if len(data) < size {
		return nil, 0, ErrTruncated
	}

	le := binary.LittleEndian
	switch t {
	case InlineNone, InlinePhi:
		return nil, 0, nil
	case ShortInlineBrTarget, ShortInlineI:
		return int8(data[0]), 1, nil
	case ShortInlineVar:
		return data[0], 1, nil
	case InlineVar:
		return le.Uint16(data), 2, nil
	case InlineBrTarget, InlineI:
		return int32(le.Uint32(data)), 4, nil
	case InlineField, InlineMethod, InlineSig, InlineString, InlineTok, InlineType:
		return Token(le.Uint32(data)), 4, nil
	case ShortInlineR:
		return math.Float32frombits(le.Uint32(data)), 4, nil
	case InlineI8:
		return int64(le.Uint64(data)), 8, nil
	case InlineR:
		return math.Float64frombits(le.Uint64(data)), 8, nil
	case InlineSwitch:
		count := le.Uint32(data)
		if uint64(len(data)-4) < uint64(count)*4 {
			return nil, 0, ErrTruncated
		}
		targets := make([]int32, count)
		for i := range targets {
			targets[i] = int32(le.Uint32(data[4+4*i:]))
		}
		return targets, 4 + 4*int(count), nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown operand type %d", ErrOperand, t)
	}
}

// Encode serializes instructions into an instruction stream. Offsets stored
// in the instructions are ignored; branch operands are written as given.
func Encode(instructions []Instruction) ([]byte, error) {
	size := 0
	for _, ins := range instructions {
		size += ins.Size()
	}

	buf := make([]byte, 0, size)
	for idx, ins := range instructions {
		if !ins.OpCode.IsValid() {
			return nil, fmt.Errorf("instruction %d: %w", idx, ErrInvalidOpCode)
		}
		b1, b2, n := ins.OpCode.Bytes()
		buf = append(buf, b1)
		if n == 2 {
			buf = append(buf, b2)
		}

		var err error
		buf, err = appendOperand(buf, ins.OpCode.OperandType(), ins.Operand)
		if err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", idx, ins.OpCode.Mnemonic(), err)
		}
	}
	return buf, nil
}

func appendOperand(buf []byte, t OperandType, operand any) ([]byte, error) {
	le := binary.LittleEndian
	switch t {
	case InlineNone, InlinePhi:
		if operand != nil {
			return nil, fmt.Errorf("%w: unexpected operand %v", ErrOperand, operand)
		}
		return buf, nil
	case ShortInlineBrTarget, ShortInlineI:
		v, err := intOperand(operand, math.MinInt8, math.MaxInt8)
		if err != nil {
			return nil, err
		}
		return append(buf, byte(int8(v))), nil
	case ShortInlineVar:
		v, err := intOperand(operand, 0, math.MaxUint8)
		if err != nil {
			return nil, err
		}
		return append(buf, byte(v)), nil
	case InlineVar:
		v, err := intOperand(operand, 0, math.MaxUint16)
		if err != nil {
			return nil, err
		}
		return le.AppendUint16(buf, uint16(v)), nil
	case InlineBrTarget, InlineI:
		v, err := intOperand(operand, math.MinInt32, math.MaxInt32)
		if err != nil {
			return nil, err
		}
		return le.AppendUint32(buf, uint32(int32(v))), nil
	case InlineField, InlineMethod, InlineSig, InlineString, InlineTok, InlineType:
		tok, ok := operand.(Token)
		if !ok {
			return nil, fmt.Errorf("%w: expected token, got %T", ErrOperand, operand)
		}
		return le.AppendUint32(buf, uint32(tok)), nil
	case InlineI8:
		v, err := intOperand(operand, math.MinInt64, math.MaxInt64)
		if err != nil {
			return nil, err
		}
		return le.AppendUint64(buf, uint64(v)), nil
	case ShortInlineR:
		f, ok := floatOperand(operand)
		if !ok {
			return nil, fmt.Errorf("%w: expected float, got %T", ErrOperand, operand)
		}
		return le.AppendUint32(buf, math.Float32bits(float32(f))), nil
	case InlineR:
		f, ok := floatOperand(operand)
		if !ok {
			return nil, fmt.Errorf("%w: expected float, got %T", ErrOperand, operand)
		}
		return le.AppendUint64(buf, math.Float64bits(f)), nil
	case InlineSwitch:
		targets, ok := operand.([]int32)
		if !ok {
			return nil, fmt.Errorf("%w: expected []int32, got %T", ErrOperand, operand)
		}
		buf = le.AppendUint32(buf, uint32(len(targets)))
		for _, target := range targets {
			buf = le.AppendUint32(buf, uint32(target))
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: unknown operand type %d", ErrOperand, t)
	}
}

func intOperand(operand any, lo, hi int64) (int64, error) {
	var v int64
	switch x := operand.(type) {
	case int:
		v = int64(x)
	case int8:
		v = int64(x)
	case int16:
		v = int64(x)
	case int32:
		v = int64(x)
	case int64:
		v = x
	case uint8:
		v = int64(x)
	case uint16:
		v = int64(x)
	case uint32:
		v = int64(x)
	default:
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrOperand, operand)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %d out of range [%d, %d]", ErrOperand, v, lo, hi)
	}
	return v, nil
}

func floatOperand(operand any) (float64, bool) {
	switch x := operand.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// Assign recomputes the Offset of every instruction from its encoded size.
func Assign(instructions []Instruction) int {
	offset := 0
	for i := range instructions {
		instructions[i].Offset = offset
		offset += instructions[i].Size()
	}
	return offset
}
