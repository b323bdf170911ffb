package codeview

import (
	"encoding/binary"
	"fmt"

	"github.com/jtang613/gometa/pkg/lazy"
)

// CallingConvention is the CV_call_e calling convention of a function.
type CallingConvention uint8

const (
	CallNearC      CallingConvention = 0x00
	CallFarC       CallingConvention = 0x01
	CallNearPascal CallingConvention = 0x02
	CallFarPascal  CallingConvention = 0x03
	CallNearFast   CallingConvention = 0x04
	CallFarFast    CallingConvention = 0x05
	CallSkipped    CallingConvention = 0x06
	CallNearStd    CallingConvention = 0x07
	CallFarStd     CallingConvention = 0x08
	CallNearSys    CallingConvention = 0x09
	CallFarSys     CallingConvention = 0x0a
	CallThis       CallingConvention = 0x0b
	CallMips       CallingConvention = 0x0c
	CallGeneric    CallingConvention = 0x0d
	CallAlpha      CallingConvention = 0x0e
	CallPpc        CallingConvention = 0x0f
	CallSh         CallingConvention = 0x10
	CallArm        CallingConvention = 0x11
	CallAm33       CallingConvention = 0x12
	CallTri        CallingConvention = 0x13
	CallSh5        CallingConvention = 0x14
	CallM32R       CallingConvention = 0x15
	CallClr        CallingConvention = 0x16
	CallInline     CallingConvention = 0x17
	CallNearVector CallingConvention = 0x18
)

var callingConventionNames = [...]string{
	"__cdecl", "__cdecl far", "__pascal", "__pascal far", "__fastcall", "__fastcall far",
	"skipped", "__stdcall", "__stdcall far", "__syscall", "__syscall far", "__thiscall",
	"mips", "generic", "alpha", "ppc", "sh", "arm", "am33", "tricore", "sh5", "m32r",
	"__clrcall", "inline", "__vectorcall",
}

func (c CallingConvention) String() string {
	if int(c) < len(callingConventionNames) {
		return callingConventionNames[c]
	}
	return fmt.Sprintf("callconv_0x%02x", uint8(c))
}

// FunctionAttributes is the CV_funcattr_t byte.
type FunctionAttributes uint8

const (
	FuncCxxReturnUdt     FunctionAttributes = 0x01
	FuncConstructor      FunctionAttributes = 0x02
	FuncConstructorVBase FunctionAttributes = 0x04
)

// MemberFunctionSize is the size of an LF_MFUNCTION body.
const MemberFunctionSize = 24

// MemberFunction is an LF_MFUNCTION leaf, the type of a method.
//
// The body is laid out as return type, declaring type and this type
// indices, calling convention, attributes, parameter count, argument list
// index and this adjustment, all little-endian.
type MemberFunction struct {
	leafBase
	ctx           *ReaderContext
	returnType    *lazy.Index[Type]
	declaringType *lazy.Index[Type]
	thisType      *lazy.Index[Type]
	arguments     *lazy.Index[*ArgumentList]

	CallingConvention CallingConvention
	Attributes        FunctionAttributes
	ParameterCount    uint16
	ThisAdjuster      uint32
}

// NewMemberFunction returns an authored member function with every
// reference absent.
func NewMemberFunction(index TypeIndex) *MemberFunction {
	return &MemberFunction{
		leafBase:      leafBase{index},
		returnType:    lazy.NewIndex[Type](0),
		declaringType: lazy.NewIndex[Type](0),
		thisType:      lazy.NewIndex[Type](0),
		arguments:     lazy.NewIndex[*ArgumentList](0),
	}
}

// ReadMemberFunction decodes an LF_MFUNCTION body. Cross references are
// resolved through ctx on first access.
func ReadMemberFunction(ctx *ReaderContext, index TypeIndex, data []byte) (*MemberFunction, error) {
	if len(data) < MemberFunctionSize {
		return nil, truncated(KindMFunction, index, MemberFunctionSize, len(data))
	}
	le := binary.LittleEndian
	return &MemberFunction{
		leafBase:          leafBase{index},
		ctx:               ctx,
		returnType:        lazy.NewIndex[Type](le.Uint32(data[0:])),
		declaringType:     lazy.NewIndex[Type](le.Uint32(data[4:])),
		thisType:          lazy.NewIndex[Type](le.Uint32(data[8:])),
		CallingConvention: CallingConvention(data[12]),
		Attributes:        FunctionAttributes(data[13]),
		ParameterCount:    le.Uint16(data[14:]),
		arguments:         lazy.NewIndex[*ArgumentList](le.Uint32(data[16:])),
		ThisAdjuster:      le.Uint32(data[20:]),
	}, nil
}

func (*MemberFunction) LeafKind() LeafKind { return KindMFunction }

func (m *MemberFunction) ReturnType() Type {
	return m.returnType.Get(lookup[Type](m.ctx, m, "return type"))
}

func (m *MemberFunction) SetReturnType(t Type) { m.returnType.Set(t) }

// DeclaringType returns the class that declares the function.
func (m *MemberFunction) DeclaringType() Type {
	return m.declaringType.Get(lookup[Type](m.ctx, m, "declaring type"))
}

func (m *MemberFunction) SetDeclaringType(t Type) { m.declaringType.Set(t) }

// ThisType returns the type of the this pointer, nil for static methods.
func (m *MemberFunction) ThisType() Type {
	return m.thisType.Get(lookup[Type](m.ctx, m, "this-type"))
}

func (m *MemberFunction) SetThisType(t Type) { m.thisType.Set(t) }

func (m *MemberFunction) Arguments() *ArgumentList {
	return m.arguments.Get(lookup[*ArgumentList](m.ctx, m, "argument list"))
}

func (m *MemberFunction) SetArguments(a *ArgumentList) { m.arguments.Set(a) }

// RawIndices returns the indices read from the image for the return,
// declaring, this and argument list fields, in that order.
func (m *MemberFunction) RawIndices() (ret, declaring, this, args TypeIndex) {
	return TypeIndex(m.returnType.Raw()), TypeIndex(m.declaringType.Raw()),
		TypeIndex(m.thisType.Raw()), TypeIndex(m.arguments.Raw())
}

// IsStatic reports whether the function has no this pointer.
func (m *MemberFunction) IsStatic() bool { return m.ThisType() == nil }

// AppendBody appends the encoded LF_MFUNCTION body.
func (m *MemberFunction) AppendBody(b []byte) []byte {
	le := binary.LittleEndian
	b = le.AppendUint32(b, indexOf(m.ReturnType()))
	b = le.AppendUint32(b, indexOf(m.DeclaringType()))
	b = le.AppendUint32(b, indexOf(m.ThisType()))
	b = append(b, byte(m.CallingConvention), byte(m.Attributes))
	b = le.AppendUint16(b, m.ParameterCount)
	b = le.AppendUint32(b, m.Arguments().index32())
	return le.AppendUint32(b, m.ThisAdjuster)
}
