package cil

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Method body header flags (ECMA-335 II.25.4).
const (
	tinyFormat     = 0x2
	fatFormat      = 0x3
	formatMask     = 0x3
	moreSects      = 0x8
	initLocalsFlag = 0x10

	fatHeaderSize = 12
	tinyMaxCode   = 64
	tinyMaxStack  = 8
)

// ErrHeader is returned for a malformed method body header.
var ErrHeader = errors.New("malformed method body header")

// MethodBody is a serialized CIL method body without exception handler
// sections.
type MethodBody struct {
	MaxStack    uint16
	InitLocals  bool
	LocalVarSig Token
	Code        []byte
}

// IsTiny reports whether the body fits the one-byte header format.
func (b *MethodBody) IsTiny() bool {
	return len(b.Code) < tinyMaxCode && b.MaxStack <= tinyMaxStack &&
		b.LocalVarSig == 0 && !b.InitLocals
}

// Bytes serializes the header followed by the code. Fat bodies must be
// placed at a 4-byte aligned offset by the caller.
func (b *MethodBody) Bytes() []byte {
	if b.IsTiny() {
		out := make([]byte, 0, 1+len(b.Code))
		out = append(out, byte(len(b.Code))<<2|tinyFormat)
		return append(out, b.Code...)
	}

	flags := uint16(fatFormat) | uint16(fatHeaderSize/4)<<12
	if b.InitLocals {
		flags |= initLocalsFlag
	}
	out := make([]byte, 0, fatHeaderSize+len(b.Code))
	out = binary.LittleEndian.AppendUint16(out, flags)
	out = binary.LittleEndian.AppendUint16(out, b.MaxStack)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(b.Code)))
	out = binary.LittleEndian.AppendUint32(out, uint32(b.LocalVarSig))
	return append(out, b.Code...)
}

// ReadMethodBody parses a method body starting at data[0]. It returns the
// body and the number of bytes consumed.
func ReadMethodBody(data []byte) (*MethodBody, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("%w: empty", ErrHeader)
	}

	switch data[0] & formatMask {
	case tinyFormat:
		size := int(data[0] >> 2)
		if 1+size > len(data) {
			return nil, 0, fmt.Errorf("%w: tiny code size %d exceeds data", ErrHeader, size)
		}
		return &MethodBody{MaxStack: tinyMaxStack, Code: data[1 : 1+size]}, 1 + size, nil

	case fatFormat:
		if len(data) < fatHeaderSize {
			return nil, 0, fmt.Errorf("%w: fat header truncated", ErrHeader)
		}
		flags := binary.LittleEndian.Uint16(data)
		headerSize := int(flags>>12) * 4
		if headerSize < fatHeaderSize {
			return nil, 0, fmt.Errorf("%w: fat header size %d", ErrHeader, headerSize)
		}
		if flags&moreSects != 0 {
			return nil, 0, fmt.Errorf("%w: extra data sections are not supported", ErrHeader)
		}
		codeSize := binary.LittleEndian.Uint32(data[4:])
		if uint64(headerSize)+uint64(codeSize) > uint64(len(data)) {
			return nil, 0, fmt.Errorf("%w: fat code size %d exceeds data", ErrHeader, codeSize)
		}
		body := &MethodBody{
			MaxStack:    binary.LittleEndian.Uint16(data[2:]),
			InitLocals:  flags&initLocalsFlag != 0,
			LocalVarSig: Token(binary.LittleEndian.Uint32(data[8:])),
			Code:        data[headerSize : headerSize+int(codeSize)],
		}
		return body, headerSize + int(codeSize), nil

	default:
		return nil, 0, fmt.Errorf("%w: unknown format 0x%02X", ErrHeader, data[0])
	}
}

// StackEffect resolves the pop/push counts of instructions with variable
// stack behaviour (calls, ret).
type StackEffect func(ins Instruction) (pop, push int)

// ComputeMaxStack computes the maximum evaluation stack depth of an
// instruction sequence whose offsets have been assigned. Branch targets
// inherit the depth at the branch, or zero after leave; code following an unconditional transfer
// starts from the depth recorded for it, or zero.
func ComputeMaxStack(instructions []Instruction, effect StackEffect) (int, error) {
	depthAt := make(map[int]int)
	depth, maxDepth := 0, 0
	reachable := true

	for _, ins := range instructions {
		if d, ok := depthAt[ins.Offset]; ok {
			depth = d
		} else if !reachable {
			depth = 0
		}
		reachable = true

		pop := ins.OpCode.StackPop().Count()
		push := ins.OpCode.StackPush().Count()
		if pop < 0 || push < 0 {
			vp, vq := 0, 0
			if effect != nil {
				vp, vq = effect(ins)
			}
			if pop < 0 {
				pop = vp
			}
			if push < 0 {
				push = vq
			}
		}

		depth -= pop
		if depth < 0 {
			return maxDepth, fmt.Errorf("IL_%04X: %s: stack underflow", ins.Offset, ins.OpCode.Mnemonic())
		}
		depth += push
		if depth > maxDepth {
			maxDepth = depth
		}

		if ins.OpCode == Leave || ins.OpCode == LeaveS {
			// leave empties the evaluation stack.
			depth = 0
		}

		next := ins.Offset + ins.Size()
		switch ins.OpCode.OperandType() {
		case InlineBrTarget, ShortInlineBrTarget:
			if rel, err := intOperand(ins.Operand, -1<<31, 1<<31-1); err == nil {
				depthAt[next+int(rel)] = depth
			}
		case InlineSwitch:
			targets, _ := ins.Operand.([]int32)
			for _, rel := range targets {
				depthAt[next+int(rel)] = depth
			}
		}

		switch ins.OpCode.FlowControl() {
		case FlowBranch, FlowReturn, FlowThrow:
			reachable = false
		}
	}
	return maxDepth, nil
}
