// Package codeview models CodeView type leaves read from a PDB TPI stream.
//
// Leaves read from an image keep the raw type indices of the records they
// refer to and resolve them on first access through a ReaderContext. An
// index of 0 means absent. An index that does not name a leaf of the
// expected kind is reported to the context's listener and resolves to nil,
// so one dangling reference degrades a single field instead of the read.
package codeview

import (
	"errors"
	"fmt"

	"github.com/jtang613/gometa/pkg/diag"
	"github.com/jtang613/gometa/pkg/pdb/streams"
)

// TypeIndex identifies a leaf within a TPI stream.
type TypeIndex uint32

func (i TypeIndex) String() string { return fmt.Sprintf("%08X", uint32(i)) }

// IsSimple reports whether the index names a built-in type.
func (i TypeIndex) IsSimple() bool { return i < streams.TypeIndexBegin }

// LeafKind is the LF_* tag of a leaf record.
type LeafKind uint16

const (
	KindSimple    LeafKind = 0 // built-in type, no record on disk
	KindModifier  LeafKind = streams.LF_MODIFIER
	KindPointer   LeafKind = streams.LF_POINTER
	KindClass     LeafKind = streams.LF_CLASS
	KindStructure LeafKind = streams.LF_STRUCTURE
	KindUnion     LeafKind = streams.LF_UNION
	KindEnum      LeafKind = streams.LF_ENUM
	KindProcedure LeafKind = streams.LF_PROCEDURE
	KindMFunction LeafKind = streams.LF_MFUNCTION
	KindArgList   LeafKind = streams.LF_ARGLIST
	KindFieldList LeafKind = streams.LF_FIELDLIST
)

func (k LeafKind) String() string {
	if k == KindSimple {
		return "LF_SIMPLE"
	}
	return streams.LeafKindName(uint16(k))
}

// description names the kind in diagnostics.
func (k LeafKind) description() string {
	switch k {
	case KindSimple:
		return "Simple type"
	case KindModifier:
		return "Modifier"
	case KindPointer:
		return "Pointer"
	case KindClass:
		return "Class"
	case KindStructure:
		return "Structure"
	case KindUnion:
		return "Union"
	case KindEnum:
		return "Enum"
	case KindProcedure:
		return "Procedure"
	case KindMFunction:
		return "Member function"
	case KindArgList:
		return "Argument list"
	case KindFieldList:
		return "Field list"
	}
	return "Leaf"
}

// Leaf is a single record of the type table.
type Leaf interface {
	TypeIndex() TypeIndex
	LeafKind() LeafKind
}

// Type is a leaf that describes a type, as opposed to helper records such
// as argument lists, field lists and member functions.
type Type interface {
	Leaf
	isType()
}

// LeafTable looks up leaves by type index.
type LeafTable interface {
	TryGetLeafRecord(index TypeIndex) (Leaf, bool)
}

// ReaderContext is shared by every leaf read from one image.
type ReaderContext struct {
	Image    LeafTable
	Listener diag.Listener
}

// ErrTruncated is returned when a leaf body is shorter than its layout.
var ErrTruncated = errors.New("truncated leaf record")

// ResolveIndex looks up index on behalf of field of owner. Index 0 yields
// the zero T without a lookup. A missing leaf or one of another kind is
// reported to ctx.Listener and yields the zero T.
func ResolveIndex[T Leaf](ctx *ReaderContext, owner Leaf, field string, index TypeIndex) T {
	var zero T
	if index == 0 {
		return zero
	}
	var listener diag.Listener
	if ctx != nil {
		listener = ctx.Listener
		if ctx.Image != nil {
			if leaf, ok := ctx.Image.TryGetLeafRecord(index); ok {
				if v, ok := leaf.(T); ok {
					return v
				}
			}
		}
	}
	return diag.BadImage[T](listener, "%s %s contains an invalid %s index %s",
		owner.LeafKind().description(), owner.TypeIndex(), field, index)
}

// lookup adapts ResolveIndex to a lazy.Index lookup function. A nil
// context yields a nil lookup, so authored leaves never resolve anything.
func lookup[T Leaf](ctx *ReaderContext, owner Leaf, field string) func(uint32) T {
	if ctx == nil {
		return nil
	}
	return func(index uint32) T {
		return ResolveIndex[T](ctx, owner, field, TypeIndex(index))
	}
}

// indexOf returns the type index of t, or 0 for nil.
func indexOf(t Type) uint32 {
	if t == nil {
		return 0
	}
	return uint32(t.TypeIndex())
}

type leafBase struct {
	index TypeIndex
}

func (b *leafBase) TypeIndex() TypeIndex { return b.index }

type typeBase struct {
	leafBase
}

func (*typeBase) isType() {}

// UnknownLeaf keeps the body of a leaf kind this package does not model.
type UnknownLeaf struct {
	leafBase
	Kind LeafKind
	Data []byte
}

func (u *UnknownLeaf) LeafKind() LeafKind { return u.Kind }

// ReadLeaf decodes rec. Kinds without a model become *UnknownLeaf.
func ReadLeaf(ctx *ReaderContext, rec *streams.TypeRecord) (Leaf, error) {
	index := TypeIndex(rec.Index)
	switch kind := LeafKind(rec.Kind); kind {
	case KindModifier:
		return ReadModifierType(ctx, index, rec.Data)
	case KindPointer:
		return ReadPointerType(ctx, index, rec.Data)
	case KindClass, KindStructure, KindUnion:
		return ReadClassType(ctx, index, kind, rec.Data)
	case KindEnum:
		return ReadEnumType(ctx, index, rec.Data)
	case KindProcedure:
		return ReadProcedureType(ctx, index, rec.Data)
	case KindMFunction:
		return ReadMemberFunction(ctx, index, rec.Data)
	case KindArgList:
		return ReadArgumentList(ctx, index, rec.Data)
	case KindFieldList:
		return ReadFieldList(ctx, index, rec.Data)
	default:
		return &UnknownLeaf{leafBase: leafBase{index}, Kind: kind, Data: rec.Data}, nil
	}
}

func truncated(kind LeafKind, index TypeIndex, need, have int) error {
	return fmt.Errorf("%w: %s %s needs %d bytes, has %d", ErrTruncated, kind, index, need, have)
}
