// Package cil implements the CIL instruction set: the opcode registry, the
// instruction model and the instruction stream codec.
package cil

import "fmt"

// StackBehaviour describes how an instruction pushes to or pops from the
// evaluation stack.
type StackBehaviour uint8

const (
	Pop0 StackBehaviour = iota
	Pop1
	Pop1Pop1
	PopI
	PopIPop1
	PopIPopI
	PopIPopI8
	PopIPopIPopI
	PopIPopR4
	PopIPopR8
	PopRef
	PopRefPop1
	PopRefPopI
	PopRefPopIPopI
	PopRefPopIPopI8
	PopRefPopIPopR4
	PopRefPopIPopR8
	PopRefPopIPopRef
	Push0
	Push1
	Push1Push1
	PushI
	PushI8
	PushR4
	PushR8
	PushRef
	VarPop
	VarPush
	PopRefPopIPop1
)

// Count returns the number of stack slots the behaviour consumes or
// produces. Variable behaviours report -1.
func (s StackBehaviour) Count() int {
	switch s {
	case Pop0, Push0:
		return 0
	case Pop1, PopI, PopRef, Push1, PushI, PushI8, PushR4, PushR8, PushRef:
		return 1
	case Pop1Pop1, PopIPop1, PopIPopI, PopIPopI8, PopIPopR4, PopIPopR8,
		PopRefPop1, PopRefPopI, Push1Push1:
		return 2
	case PopIPopIPopI, PopRefPopIPopI, PopRefPopIPopI8, PopRefPopIPopR4,
		PopRefPopIPopR8, PopRefPopIPopRef, PopRefPopIPop1:
		return 3
	default:
		return -1
	}
}

// OpCodeType is the category of an opcode.
type OpCodeType uint8

const (
	Annotation OpCodeType = iota
	Macro
	Internal
	ObjModel
	Prefix
	Primitive
)

// OperandType is the category of an instruction's inline operand.
type OperandType uint8

const (
	InlineBrTarget OperandType = iota
	InlineField
	InlineI
	InlineI8
	InlineMethod
	InlineNone
	InlinePhi
	InlineR
	_
	InlineSig
	InlineString
	InlineSwitch
	InlineTok
	InlineType
	InlineVar
	ShortInlineBrTarget
	ShortInlineI
	ShortInlineR
	ShortInlineVar
)

// FlowControl describes how an instruction affects control flow.
type FlowControl uint8

const (
	FlowBranch FlowControl = iota
	FlowBreak
	FlowCall
	FlowCondBranch
	FlowMeta
	FlowNext
	FlowPhi
	FlowReturn
	FlowThrow
)

// Code is the numeric value of an opcode as it appears in the instruction
// stream. Two-byte codes carry the 0xFE lead byte in the high byte.
type Code uint16

// ExtendedPrefix is the lead byte of every two-byte opcode.
const ExtendedPrefix = 0xFE

// Bit layout of a packed opcode, high to low:
//
//	|30..27 |26..22 |21..19|18..14|13..9 |8|7..0 |
//	| flow  |operand| type | pop  | push |L|value|
const (
	valueOffset   = 0
	largeOffset   = 8
	pushOffset    = 9
	popOffset     = 14
	typeOffset    = 19
	operandOffset = 22
	flowOffset    = 27
	stackMask     = 0x1F
	typeMask      = 0x07
	operandMask   = 0x1F
	flowMask      = 0x0F
)

// OpCode describes one CIL operation. The whole description lives in a
// single 32-bit word; the zero OpCode marks an unregistered table slot.
type OpCode uint32

func newOpCode(value byte, large bool, push, pop StackBehaviour, typ OpCodeType, operand OperandType, flow FlowControl) OpCode {
	v := uint32(value) << valueOffset
	if large {
		v |= 1 << largeOffset
	}
	v |= uint32(push&stackMask) << pushOffset
	v |= uint32(pop&stackMask) << popOffset
	v |= uint32(typ&typeMask) << typeOffset
	v |= uint32(operand&operandMask) << operandOffset
	v |= uint32(flow&flowMask) << flowOffset
	return OpCode(v)
}

// IsValid reports whether the opcode came from a registered table slot.
func (o OpCode) IsValid() bool { return o != 0 }

// IsLarge reports whether the opcode is encoded with two bytes.
func (o OpCode) IsLarge() bool { return (o>>largeOffset)&1 == 1 }

// Size returns the number of bytes used to encode the opcode, excluding the
// operand.
func (o OpCode) Size() int {
	if o.IsLarge() {
		return 2
	}
	return 1
}

// Byte1 returns the first byte in the instruction stream.
func (o OpCode) Byte1() byte {
	if o.IsLarge() {
		return ExtendedPrefix
	}
	return byte(o >> valueOffset)
}

// Byte2 returns the second byte in the instruction stream. Only meaningful
// for large opcodes.
func (o OpCode) Byte2() byte {
	if o.IsLarge() {
		return byte(o >> valueOffset)
	}
	return 0
}

// Bytes returns the encoded bytes of the opcode and how many of them are
// used.
func (o OpCode) Bytes() (b1, b2 byte, n int) {
	return o.Byte1(), o.Byte2(), o.Size()
}

// Code returns the numeric code of the opcode.
func (o OpCode) Code() Code {
	c := Code(byte(o >> valueOffset))
	if o.IsLarge() {
		c |= ExtendedPrefix << 8
	}
	return c
}

func (o OpCode) StackPush() StackBehaviour {
	return StackBehaviour((o >> pushOffset) & stackMask)
}

func (o OpCode) StackPop() StackBehaviour {
	return StackBehaviour((o >> popOffset) & stackMask)
}

func (o OpCode) Type() OpCodeType {
	return OpCodeType((o >> typeOffset) & typeMask)
}

func (o OpCode) OperandType() OperandType {
	return OperandType((o >> operandOffset) & operandMask)
}

func (o OpCode) FlowControl() FlowControl {
	return FlowControl((o >> flowOffset) & flowMask)
}

// Mnemonic returns the textual name of the opcode, e.g. "ldc.i4.s".
func (o OpCode) Mnemonic() string {
	if !o.IsValid() {
		return fmt.Sprintf("op_0x%04x", uint32(o))
	}
	return registry.names[tableSlot(o)]
}

func (o OpCode) String() string { return o.Mnemonic() }

func tableSlot(o OpCode) int {
	if o.IsLarge() {
		return 256 + int(o.Byte2())
	}
	return int(o.Byte1())
}
