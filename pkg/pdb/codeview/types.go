package codeview

import (
	"encoding/binary"

	"github.com/jtang613/gometa/pkg/lazy"
	"github.com/jtang613/gometa/pkg/pdb/streams"
)

// SimpleType is a built-in type such as int32 or a pointer to one. It is
// named by its index alone and has no record in the stream.
type SimpleType struct {
	typeBase
}

// NewSimpleType returns the built-in type for index, which must be below
// streams.TypeIndexBegin.
func NewSimpleType(index TypeIndex) *SimpleType {
	return &SimpleType{typeBase{leafBase{index}}}
}

func (*SimpleType) LeafKind() LeafKind { return KindSimple }

// Kind returns the basic type in bits 0-7.
func (s *SimpleType) Kind() uint32 { return uint32(s.index) & 0xFF }

// Mode returns the pointer mode in bits 8-11, streams.TM_DIRECT for a
// plain value.
func (s *SimpleType) Mode() uint32 { return (uint32(s.index) >> 8) & 0xF }

// PointerKind is the addressing kind of a pointer.
type PointerKind uint32

const (
	PointerNear    PointerKind = 0x00
	PointerFar     PointerKind = 0x01
	PointerHuge    PointerKind = 0x02
	PointerNear32  PointerKind = 0x0a
	PointerFar32   PointerKind = 0x0b
	PointerNear64  PointerKind = 0x0c
	PointerNear128 PointerKind = 0x0d
)

// PointerMode distinguishes pointers from references and member pointers.
type PointerMode uint32

const (
	ModePointer      PointerMode = 0
	ModeLValueRef    PointerMode = 1
	ModeDataMember   PointerMode = 2
	ModeMethodMember PointerMode = 3
	ModeRValueRef    PointerMode = 4
)

// PointerAttributes is the packed attribute word of LF_POINTER.
type PointerAttributes uint32

func NewPointerAttributes(kind PointerKind, mode PointerMode, size uint32) PointerAttributes {
	return PointerAttributes(uint32(kind)&0x1F | (uint32(mode)&0x7)<<5 | (size&0x3F)<<13)
}

func (a PointerAttributes) Kind() PointerKind { return PointerKind(a & 0x1F) }
func (a PointerAttributes) Mode() PointerMode { return PointerMode((a >> 5) & 0x7) }
func (a PointerAttributes) IsFlat32() bool    { return a&(1<<8) != 0 }
func (a PointerAttributes) IsVolatile() bool  { return a&(1<<9) != 0 }
func (a PointerAttributes) IsConst() bool     { return a&(1<<10) != 0 }
func (a PointerAttributes) IsUnaligned() bool { return a&(1<<11) != 0 }
func (a PointerAttributes) IsRestrict() bool  { return a&(1<<12) != 0 }

// Size returns the pointer size in bytes.
func (a PointerAttributes) Size() uint32 { return uint32(a>>13) & 0x3F }

// PointerType is an LF_POINTER leaf.
type PointerType struct {
	typeBase
	ctx        *ReaderContext
	referent   *lazy.Index[Type]
	Attributes PointerAttributes
}

// NewPointerType returns an authored pointer to referent.
func NewPointerType(index TypeIndex, referent Type, attrs PointerAttributes) *PointerType {
	p := &PointerType{typeBase: typeBase{leafBase{index}}, referent: lazy.NewIndex[Type](0), Attributes: attrs}
	p.referent.Set(referent)
	return p
}

// ReadPointerType decodes an LF_POINTER body.
func ReadPointerType(ctx *ReaderContext, index TypeIndex, data []byte) (*PointerType, error) {
	if len(data) < 8 {
		return nil, truncated(KindPointer, index, 8, len(data))
	}
	return &PointerType{
		typeBase:   typeBase{leafBase{index}},
		ctx:        ctx,
		referent:   lazy.NewIndex[Type](binary.LittleEndian.Uint32(data)),
		Attributes: PointerAttributes(binary.LittleEndian.Uint32(data[4:])),
	}, nil
}

func (*PointerType) LeafKind() LeafKind { return KindPointer }

// Referent returns the type pointed to.
func (p *PointerType) Referent() Type {
	return p.referent.Get(lookup[Type](p.ctx, p, "referent type"))
}

func (p *PointerType) SetReferent(t Type) { p.referent.Set(t) }

// AppendBody appends the encoded LF_POINTER body.
func (p *PointerType) AppendBody(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, indexOf(p.Referent()))
	return binary.LittleEndian.AppendUint32(b, uint32(p.Attributes))
}

// ModifierAttributes are the cv-qualifiers of LF_MODIFIER.
type ModifierAttributes uint16

const (
	ModifierConst     ModifierAttributes = 0x01
	ModifierVolatile  ModifierAttributes = 0x02
	ModifierUnaligned ModifierAttributes = 0x04
)

// ModifierType is an LF_MODIFIER leaf, a cv-qualified type.
type ModifierType struct {
	typeBase
	ctx        *ReaderContext
	modified   *lazy.Index[Type]
	Attributes ModifierAttributes
}

// NewModifierType returns an authored modifier of t.
func NewModifierType(index TypeIndex, t Type, attrs ModifierAttributes) *ModifierType {
	m := &ModifierType{typeBase: typeBase{leafBase{index}}, modified: lazy.NewIndex[Type](0), Attributes: attrs}
	m.modified.Set(t)
	return m
}

// ReadModifierType decodes an LF_MODIFIER body.
func ReadModifierType(ctx *ReaderContext, index TypeIndex, data []byte) (*ModifierType, error) {
	if len(data) < 6 {
		return nil, truncated(KindModifier, index, 6, len(data))
	}
	return &ModifierType{
		typeBase:   typeBase{leafBase{index}},
		ctx:        ctx,
		modified:   lazy.NewIndex[Type](binary.LittleEndian.Uint32(data)),
		Attributes: ModifierAttributes(binary.LittleEndian.Uint16(data[4:])),
	}, nil
}

func (*ModifierType) LeafKind() LeafKind { return KindModifier }

// Modified returns the qualified type.
func (m *ModifierType) Modified() Type {
	return m.modified.Get(lookup[Type](m.ctx, m, "modified type"))
}

func (m *ModifierType) SetModified(t Type) { m.modified.Set(t) }

// AppendBody appends the encoded LF_MODIFIER body.
func (m *ModifierType) AppendBody(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, indexOf(m.Modified()))
	return binary.LittleEndian.AppendUint16(b, uint16(m.Attributes))
}

// StructProperties is the property word shared by classes, structures,
// unions and enums.
type StructProperties uint16

const (
	PropPacked         StructProperties = 0x0001
	PropCtor           StructProperties = 0x0002
	PropOverOps        StructProperties = 0x0004
	PropNested         StructProperties = 0x0008
	PropContainsNested StructProperties = 0x0010
	PropOverAssign     StructProperties = 0x0020
	PropCasting        StructProperties = 0x0040
	PropForwardRef     StructProperties = 0x0080
	PropScoped         StructProperties = 0x0100
	PropHasUniqueName  StructProperties = 0x0200
	PropSealed         StructProperties = 0x0400
)

// ClassType is an LF_CLASS, LF_STRUCTURE or LF_UNION leaf.
type ClassType struct {
	typeBase
	ctx        *ReaderContext
	kind       LeafKind
	fields     *lazy.Index[*FieldList]
	Count      uint16
	Properties StructProperties
	// DerivedList and VTableShape are zero for unions.
	DerivedList TypeIndex
	VTableShape TypeIndex
	Size        uint64
	Name        string
	UniqueName  string
}

// NewClassType returns an authored class, structure or union.
func NewClassType(index TypeIndex, kind LeafKind, name string, size uint64) *ClassType {
	c := &ClassType{typeBase: typeBase{leafBase{index}}, kind: kind, fields: lazy.NewIndex[*FieldList](0), Name: name, Size: size}
	c.fields.Set(nil)
	return c
}

// ReadClassType decodes the body of a class, structure or union.
func ReadClassType(ctx *ReaderContext, index TypeIndex, kind LeafKind, data []byte) (*ClassType, error) {
	fixed := 16
	if kind == KindUnion {
		fixed = 8
	}
	if len(data) < fixed+2 {
		return nil, truncated(kind, index, fixed+2, len(data))
	}

	le := binary.LittleEndian
	c := &ClassType{
		typeBase:   typeBase{leafBase{index}},
		ctx:        ctx,
		kind:       kind,
		Count:      le.Uint16(data[0:]),
		Properties: StructProperties(le.Uint16(data[2:])),
		fields:     lazy.NewIndex[*FieldList](le.Uint32(data[4:])),
	}
	if kind != KindUnion {
		c.DerivedList = TypeIndex(le.Uint32(data[8:]))
		c.VTableShape = TypeIndex(le.Uint32(data[12:]))
	}

	size, consumed := streams.ParseNumeric(data[fixed:])
	if consumed == 0 {
		return nil, truncated(kind, index, fixed+4, len(data))
	}
	c.Size = size

	offset := fixed + consumed
	if offset < len(data) {
		name, n := streams.ParseString(data[offset:])
		c.Name = name
		offset += n
	}
	if c.Properties&PropHasUniqueName != 0 && offset < len(data) {
		c.UniqueName, _ = streams.ParseString(data[offset:])
	}
	return c, nil
}

func (c *ClassType) LeafKind() LeafKind { return c.kind }

// IsForwardRef reports whether this record only declares the type.
func (c *ClassType) IsForwardRef() bool { return c.Properties&PropForwardRef != 0 }

// Fields returns the field list, nil for forward references.
func (c *ClassType) Fields() *FieldList {
	return c.fields.Get(lookup[*FieldList](c.ctx, c, "field list"))
}

func (c *ClassType) SetFields(f *FieldList) { c.fields.Set(f) }

// EnumType is an LF_ENUM leaf.
type EnumType struct {
	typeBase
	ctx        *ReaderContext
	underlying *lazy.Index[Type]
	fields     *lazy.Index[*FieldList]
	Count      uint16
	Properties StructProperties
	Name       string
	UniqueName string
}

// NewEnumType returns an authored enum over underlying.
func NewEnumType(index TypeIndex, name string, underlying Type) *EnumType {
	e := &EnumType{
		typeBase:   typeBase{leafBase{index}},
		underlying: lazy.NewIndex[Type](0),
		fields:     lazy.NewIndex[*FieldList](0),
		Name:       name,
	}
	e.underlying.Set(underlying)
	e.fields.Set(nil)
	return e
}

// ReadEnumType decodes an LF_ENUM body.
func ReadEnumType(ctx *ReaderContext, index TypeIndex, data []byte) (*EnumType, error) {
	if len(data) < 12 {
		return nil, truncated(KindEnum, index, 12, len(data))
	}
	le := binary.LittleEndian
	e := &EnumType{
		typeBase:   typeBase{leafBase{index}},
		ctx:        ctx,
		Count:      le.Uint16(data[0:]),
		Properties: StructProperties(le.Uint16(data[2:])),
		underlying: lazy.NewIndex[Type](le.Uint32(data[4:])),
		fields:     lazy.NewIndex[*FieldList](le.Uint32(data[8:])),
	}
	offset := 12
	if offset < len(data) {
		name, n := streams.ParseString(data[offset:])
		e.Name = name
		offset += n
	}
	if e.Properties&PropHasUniqueName != 0 && offset < len(data) {
		e.UniqueName, _ = streams.ParseString(data[offset:])
	}
	return e, nil
}

func (*EnumType) LeafKind() LeafKind { return KindEnum }

// Underlying returns the integral type of the enumerators.
func (e *EnumType) Underlying() Type {
	return e.underlying.Get(lookup[Type](e.ctx, e, "underlying type"))
}

func (e *EnumType) SetUnderlying(t Type) { e.underlying.Set(t) }

// Fields returns the enumerator list.
func (e *EnumType) Fields() *FieldList {
	return e.fields.Get(lookup[*FieldList](e.ctx, e, "field list"))
}

func (e *EnumType) SetFields(f *FieldList) { e.fields.Set(f) }

// ProcedureType is an LF_PROCEDURE leaf, the type of a free function.
type ProcedureType struct {
	typeBase
	ctx               *ReaderContext
	returnType        *lazy.Index[Type]
	arguments         *lazy.Index[*ArgumentList]
	CallingConvention CallingConvention
	Attributes        FunctionAttributes
	ParameterCount    uint16
}

// NewProcedureType returns an authored procedure type.
func NewProcedureType(index TypeIndex, returnType Type, args *ArgumentList, cc CallingConvention) *ProcedureType {
	p := &ProcedureType{
		typeBase:          typeBase{leafBase{index}},
		returnType:        lazy.NewIndex[Type](0),
		arguments:         lazy.NewIndex[*ArgumentList](0),
		CallingConvention: cc,
	}
	p.returnType.Set(returnType)
	p.arguments.Set(args)
	if args != nil {
		p.ParameterCount = uint16(len(args.Types()))
	}
	return p
}

// ReadProcedureType decodes an LF_PROCEDURE body.
func ReadProcedureType(ctx *ReaderContext, index TypeIndex, data []byte) (*ProcedureType, error) {
	if len(data) < 12 {
		return nil, truncated(KindProcedure, index, 12, len(data))
	}
	le := binary.LittleEndian
	return &ProcedureType{
		typeBase:          typeBase{leafBase{index}},
		ctx:               ctx,
		returnType:        lazy.NewIndex[Type](le.Uint32(data[0:])),
		CallingConvention: CallingConvention(data[4]),
		Attributes:        FunctionAttributes(data[5]),
		ParameterCount:    le.Uint16(data[6:]),
		arguments:         lazy.NewIndex[*ArgumentList](le.Uint32(data[8:])),
	}, nil
}

func (*ProcedureType) LeafKind() LeafKind { return KindProcedure }

func (p *ProcedureType) ReturnType() Type {
	return p.returnType.Get(lookup[Type](p.ctx, p, "return type"))
}

func (p *ProcedureType) SetReturnType(t Type) { p.returnType.Set(t) }

func (p *ProcedureType) Arguments() *ArgumentList {
	return p.arguments.Get(lookup[*ArgumentList](p.ctx, p, "argument list"))
}

func (p *ProcedureType) SetArguments(a *ArgumentList) { p.arguments.Set(a) }

// AppendBody appends the encoded LF_PROCEDURE body.
func (p *ProcedureType) AppendBody(b []byte) []byte {
	le := binary.LittleEndian
	b = le.AppendUint32(b, indexOf(p.ReturnType()))
	b = append(b, byte(p.CallingConvention), byte(p.Attributes))
	b = le.AppendUint16(b, p.ParameterCount)
	return le.AppendUint32(b, p.Arguments().index32())
}
