package codeview

import (
	"encoding/binary"
	"fmt"

	"github.com/jtang613/gometa/pkg/lazy"
	"github.com/jtang613/gometa/pkg/pdb/streams"
)

// ArgumentList is an LF_ARGLIST leaf.
type ArgumentList struct {
	leafBase
	ctx     *ReaderContext
	indices []TypeIndex
	types   *lazy.Value[[]Type]
}

// NewArgumentList returns an authored argument list.
func NewArgumentList(index TypeIndex, types ...Type) *ArgumentList {
	return &ArgumentList{leafBase: leafBase{index}, types: lazy.Of(types)}
}

// ReadArgumentList decodes an LF_ARGLIST body.
func ReadArgumentList(ctx *ReaderContext, index TypeIndex, data []byte) (*ArgumentList, error) {
	if len(data) < 4 {
		return nil, truncated(KindArgList, index, 4, len(data))
	}
	count := binary.LittleEndian.Uint32(data)
	if need := 4 + 4*uint64(count); uint64(len(data)) < need {
		return nil, truncated(KindArgList, index, int(min(need, 1<<31)), len(data))
	}

	a := &ArgumentList{leafBase: leafBase{index}, ctx: ctx, indices: make([]TypeIndex, count)}
	for i := range a.indices {
		a.indices[i] = TypeIndex(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	a.types = lazy.New(a.resolveTypes)
	return a, nil
}

func (*ArgumentList) LeafKind() LeafKind { return KindArgList }

func (a *ArgumentList) resolveTypes() []Type {
	types := make([]Type, len(a.indices))
	for i, index := range a.indices {
		types[i] = ResolveIndex[Type](a.ctx, a, fmt.Sprintf("argument %d type", i), index)
	}
	return types
}

// Types returns the argument types. Entries that cannot be resolved are nil.
func (a *ArgumentList) Types() []Type { return a.types.Get() }

func (a *ArgumentList) SetTypes(types []Type) { a.types.Set(types) }

func (a *ArgumentList) index32() uint32 {
	if a == nil {
		return 0
	}
	return uint32(a.index)
}

// AppendBody appends the encoded LF_ARGLIST body.
func (a *ArgumentList) AppendBody(b []byte) []byte {
	types := a.Types()
	b = binary.LittleEndian.AppendUint32(b, uint32(len(types)))
	for _, t := range types {
		b = binary.LittleEndian.AppendUint32(b, indexOf(t))
	}
	return b
}

// Member is one entry of a field list. Type is the raw type index of the
// member, the base class or the nested type; Value holds the offset of
// data members and base classes and the value of enumerators.
type Member struct {
	Kind       LeafKind
	Attributes uint16
	Type       TypeIndex
	Value      uint64
	Name       string
}

// IsStatic reports whether the member is an LF_STMEMBER.
func (m Member) IsStatic() bool { return m.Kind == streams.LF_STMEMBER }

// FieldList is an LF_FIELDLIST leaf. Long lists are split across records
// chained through LF_INDEX entries.
type FieldList struct {
	leafBase
	ctx     *ReaderContext
	Members []Member
	next    *lazy.Index[*FieldList]
}

// ReadFieldList decodes an LF_FIELDLIST body. Decoding stops at the first
// sub-record kind it does not model.
func ReadFieldList(ctx *ReaderContext, index TypeIndex, data []byte) (*FieldList, error) {
	f := &FieldList{leafBase: leafBase{index}, ctx: ctx, next: lazy.NewIndex[*FieldList](0)}
	le := binary.LittleEndian
	offset := 0

	readName := func() string {
		if offset >= len(data) {
			return ""
		}
		name, n := streams.ParseString(data[offset:])
		offset += n
		return name
	}
	readNumeric := func() (uint64, bool) {
		v, n := streams.ParseNumeric(data[offset:])
		offset += n
		return v, n > 0
	}

	for offset+2 <= len(data) {
		if data[offset] >= streams.LF_PAD0 {
			offset += max(int(data[offset]&0x0F), 1)
			continue
		}
		kind := LeafKind(le.Uint16(data[offset:]))
		offset += 2

		switch kind {
		case streams.LF_MEMBER, streams.LF_BCLASS:
			if offset+6 > len(data) {
				return f, nil
			}
			m := Member{Kind: kind, Attributes: le.Uint16(data[offset:]), Type: TypeIndex(le.Uint32(data[offset+2:]))}
			offset += 6
			v, ok := readNumeric()
			if !ok {
				return f, nil
			}
			m.Value = v
			if kind == streams.LF_MEMBER {
				m.Name = readName()
			}
			f.Members = append(f.Members, m)

		case streams.LF_STMEMBER, streams.LF_ONEMETHOD, streams.LF_NESTTYPE:
			if offset+6 > len(data) {
				return f, nil
			}
			m := Member{Kind: kind, Attributes: le.Uint16(data[offset:]), Type: TypeIndex(le.Uint32(data[offset+2:]))}
			offset += 6
			if kind == streams.LF_ONEMETHOD {
				// Introducing virtuals carry a vtable offset.
				if mprop := (m.Attributes >> 2) & 0x7; mprop == 4 || mprop == 6 {
					if offset+4 > len(data) {
						return f, nil
					}
					m.Value = uint64(le.Uint32(data[offset:]))
					offset += 4
				}
			}
			m.Name = readName()
			f.Members = append(f.Members, m)

		case streams.LF_METHOD:
			if offset+6 > len(data) {
				return f, nil
			}
			m := Member{Kind: kind, Value: uint64(le.Uint16(data[offset:])), Type: TypeIndex(le.Uint32(data[offset+2:]))}
			offset += 6
			m.Name = readName()
			f.Members = append(f.Members, m)

		case streams.LF_ENUMERATE:
			if offset+2 > len(data) {
				return f, nil
			}
			m := Member{Kind: kind, Attributes: le.Uint16(data[offset:])}
			offset += 2
			v, ok := readNumeric()
			if !ok {
				return f, nil
			}
			m.Value = v
			m.Name = readName()
			f.Members = append(f.Members, m)

		case streams.LF_VFUNCTAB:
			if offset+6 > len(data) {
				return f, nil
			}
			f.Members = append(f.Members, Member{Kind: kind, Type: TypeIndex(le.Uint32(data[offset+2:]))})
			offset += 6

		case streams.LF_INDEX:
			if offset+6 > len(data) {
				return f, nil
			}
			f.next = lazy.NewIndex[*FieldList](le.Uint32(data[offset+2:]))
			offset += 6

		default:
			return f, nil
		}
	}
	return f, nil
}

func (*FieldList) LeafKind() LeafKind { return KindFieldList }

// Next returns the continuation record, or nil.
func (f *FieldList) Next() *FieldList {
	return f.next.Get(lookup[*FieldList](f.ctx, f, "continuation"))
}

// AllMembers returns the members of f and every continuation. A chain that
// revisits a record is cut at the repeat.
func (f *FieldList) AllMembers() []Member {
	var out []Member
	seen := make(map[*FieldList]bool)
	for l := f; l != nil && !seen[l]; l = l.Next() {
		seen[l] = true
		out = append(out, l.Members...)
	}
	return out
}

// MemberType resolves the type of m through the context f was read with.
func (f *FieldList) MemberType(m Member) Type {
	return ResolveIndex[Type](f.ctx, f, fmt.Sprintf("member %q type", m.Name), m.Type)
}
