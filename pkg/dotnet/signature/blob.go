package signature

import (
	"fmt"

	"github.com/jtang613/gometa/pkg/cil"
	"github.com/jtang613/gometa/pkg/dotnet/metadata"
)

// Method signature calling convention bits.
const (
	callConvDefault = 0x00
	callConvHasThis = 0x20
	callConvMask    = 0x0F
)

// TokenProvider hands out metadata tokens for referenced types.
type TokenProvider interface {
	TypeToken(t TypeDefOrRefEntity) (cil.Token, error)
}

// TypeResolver maps metadata tokens back to types while decoding.
type TypeResolver interface {
	ResolveType(tok cil.Token) (TypeDefOrRefEntity, error)
}

var typeDefOrRefTags = map[byte]uint32{
	metadata.TableTypeDef:  0,
	metadata.TableTypeRef:  1,
	metadata.TableTypeSpec: 2,
}

var typeDefOrRefTables = [...]byte{metadata.TableTypeDef, metadata.TableTypeRef, metadata.TableTypeSpec}

// EncodeTypeDefOrRef packs a token into a TypeDefOrRef coded index.
func EncodeTypeDefOrRef(tok cil.Token) (uint32, error) {
	tag, ok := typeDefOrRefTags[tok.Table()]
	if !ok {
		return 0, fmt.Errorf("token %s is not a TypeDef, TypeRef or TypeSpec", tok)
	}
	return tok.RID()<<2 | tag, nil
}

// DecodeTypeDefOrRef unpacks a TypeDefOrRef coded index.
func DecodeTypeDefOrRef(v uint32) (cil.Token, error) {
	tag := v & 3
	if int(tag) >= len(typeDefOrRefTables) {
		return 0, fmt.Errorf("%w: TypeDefOrRef tag %d", metadata.ErrFormat, tag)
	}
	return cil.NewToken(typeDefOrRefTables[tag], v>>2), nil
}

// BlobWriter encodes signatures using the tokens of one module under
// construction.
type BlobWriter struct {
	Tokens TokenProvider
}

// AppendType appends the encoding of t to b.
func (w *BlobWriter) AppendType(b []byte, t TypeSignature) ([]byte, error) {
	switch t := t.(type) {
	case *CorLibType:
		return append(b, byte(t.Element)), nil
	case *TypeDefOrRef:
		b = append(b, byte(t.ElementType()))
		return w.appendTypeIndex(b, t)
	case *SzArray:
		return w.AppendType(append(b, byte(ElementSzArray)), t.Base)
	case *Pointer:
		return w.AppendType(append(b, byte(ElementPtr)), t.Base)
	case *ByRef:
		return w.AppendType(append(b, byte(ElementByRef)), t.Base)
	case *GenericInstance:
		var err error
		b = append(b, byte(ElementGenericInst), byte(t.Generic.ElementType()))
		if b, err = w.appendTypeIndex(b, t.Generic); err != nil {
			return nil, err
		}
		if b, err = metadata.WriteCompressedUint(b, uint32(len(t.Args))); err != nil {
			return nil, err
		}
		for _, arg := range t.Args {
			if b, err = w.AppendType(b, arg); err != nil {
				return nil, err
			}
		}
		return b, nil
	case nil:
		return nil, fmt.Errorf("missing type signature")
	default:
		return nil, fmt.Errorf("unknown type signature %T", t)
	}
}

func (w *BlobWriter) appendTypeIndex(b []byte, t *TypeDefOrRef) ([]byte, error) {
	if w.Tokens == nil || t.Type == nil {
		return nil, fmt.Errorf("no token for type %q", FullName(t))
	}
	tok, err := w.Tokens.TypeToken(t.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token for %q: %w", FullName(t), err)
	}
	coded, err := EncodeTypeDefOrRef(tok)
	if err != nil {
		return nil, err
	}
	return metadata.WriteCompressedUint(b, coded)
}

// MethodBlob encodes m as a #Blob entry.
func (w *BlobWriter) MethodBlob(m *MethodSignature) ([]byte, error) {
	conv := byte(callConvDefault)
	if m.HasThis {
		conv |= callConvHasThis
	}
	b, err := metadata.WriteCompressedUint([]byte{conv}, uint32(len(m.Params)))
	if err != nil {
		return nil, err
	}
	ret := m.Return
	if ret == nil {
		ret = Void
	}
	if b, err = w.AppendType(b, ret); err != nil {
		return nil, fmt.Errorf("return type: %w", err)
	}
	for i, p := range m.Params {
		if b, err = w.AppendType(b, p); err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
	}
	return b, nil
}

// BlobReader decodes signatures, resolving type tokens through Types.
type BlobReader struct {
	Types TypeResolver
}

// ReadMethod decodes a MethodDefSig.
func (r *BlobReader) ReadMethod(data []byte) (*MethodSignature, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty method signature", metadata.ErrFormat)
	}
	conv := data[0]
	if conv&callConvMask != callConvDefault {
		return nil, fmt.Errorf("%w: unsupported calling convention 0x%02X", metadata.ErrFormat, conv)
	}
	count, n, err := metadata.ReadCompressedUint(data[1:])
	if err != nil {
		return nil, err
	}
	rest := data[1+n:]
	if uint64(count) > uint64(len(rest)) {
		return nil, fmt.Errorf("%w: %d parameters exceed signature", metadata.ErrFormat, count)
	}

	m := &MethodSignature{HasThis: conv&callConvHasThis != 0}
	if m.Return, rest, err = r.readType(rest); err != nil {
		return nil, fmt.Errorf("return type: %w", err)
	}
	m.Params = make([]TypeSignature, count)
	for i := range m.Params {
		if m.Params[i], rest, err = r.readType(rest); err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
	}
	return m, nil
}

// ReadType decodes a single type signature.
func (r *BlobReader) ReadType(data []byte) (TypeSignature, error) {
	t, _, err := r.readType(data)
	return t, err
}

func (r *BlobReader) readType(data []byte) (TypeSignature, []byte, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: type signature truncated", metadata.ErrFormat)
	}
	e, rest := ElementType(data[0]), data[1:]
	switch {
	case e.IsCorLib():
		return &CorLibType{Element: e}, rest, nil
	case e == ElementClass || e == ElementValueType:
		t, rest, err := r.readTypeIndex(rest, e == ElementValueType)
		return t, rest, err
	case e == ElementSzArray || e == ElementPtr || e == ElementByRef:
		base, rest, err := r.readType(rest)
		if err != nil {
			return nil, nil, err
		}
		switch e {
		case ElementSzArray:
			return &SzArray{Base: base}, rest, nil
		case ElementPtr:
			return &Pointer{Base: base}, rest, nil
		default:
			return &ByRef{Base: base}, rest, nil
		}
	case e == ElementGenericInst:
		if len(rest) == 0 {
			return nil, nil, fmt.Errorf("%w: generic instance truncated", metadata.ErrFormat)
		}
		kind := ElementType(rest[0])
		generic, rest, err := r.readTypeIndex(rest[1:], kind == ElementValueType)
		if err != nil {
			return nil, nil, err
		}
		count, n, err := metadata.ReadCompressedUint(rest)
		if err != nil {
			return nil, nil, err
		}
		rest = rest[n:]
		if uint64(count) > uint64(len(rest)) {
			return nil, nil, fmt.Errorf("%w: %d type arguments exceed signature", metadata.ErrFormat, count)
		}
		g := &GenericInstance{Generic: generic, Args: make([]TypeSignature, count)}
		for i := range g.Args {
			if g.Args[i], rest, err = r.readType(rest); err != nil {
				return nil, nil, err
			}
		}
		return g, rest, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported element type %s", metadata.ErrFormat, e)
	}
}

// readTypeIndex keeps the CLASS or VALUETYPE marker from the blob as the
// signature's value type flag rather than asking the resolved type.
func (r *BlobReader) readTypeIndex(data []byte, isValueType bool) (*TypeDefOrRef, []byte, error) {
	coded, n, err := metadata.ReadCompressedUint(data)
	if err != nil {
		return nil, nil, err
	}
	tok, err := DecodeTypeDefOrRef(coded)
	if err != nil {
		return nil, nil, err
	}
	var entity TypeDefOrRefEntity
	if r.Types != nil {
		if entity, err = r.Types.ResolveType(tok); err != nil {
			return nil, nil, fmt.Errorf("failed to resolve %s: %w", tok, err)
		}
	}
	return NewTypeDefOrRefAs(entity, isValueType), data[n:], nil
}
