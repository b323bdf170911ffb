package signature

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotImplemented is returned by operations a signature cannot perform on
// its own.
var ErrNotImplemented = errors.New("not implemented")

// UnsupportedError reports an operation that must go through a BlobWriter.
type UnsupportedError struct {
	Op   string
	Type TypeSignature
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s of %s signature %q: %v; encode it with a BlobWriter", e.Op, e.Type.ElementType(), e.Type.Name(), ErrNotImplemented)
}

func (e *UnsupportedError) Unwrap() error { return ErrNotImplemented }

// ResolutionScope is the module, assembly or type reference a type is
// resolved against.
type ResolutionScope interface {
	ScopeName() string
}

// TypeDefOrRefEntity is a row of the TypeDef, TypeRef or TypeSpec table as
// seen by a signature.
type TypeDefOrRefEntity interface {
	Name() string
	Namespace() string
	Scope() ResolutionScope
	IsValueType() bool
}

// TypeSignature is one of CorLibType, TypeDefOrRef, SzArray, Pointer, ByRef
// or GenericInstance.
type TypeSignature interface {
	ElementType() ElementType
	Name() string
	Namespace() string
	Scope() ResolutionScope
	IsValueType() bool
	isTypeSignature()
}

// CorLibType is a primitive with a dedicated element type.
type CorLibType struct {
	Element ElementType
}

var (
	Void    = &CorLibType{ElementVoid}
	Boolean = &CorLibType{ElementBoolean}
	Char    = &CorLibType{ElementChar}
	Int32   = &CorLibType{ElementI4}
	Int64   = &CorLibType{ElementI8}
	Double  = &CorLibType{ElementR8}
	String  = &CorLibType{ElementString}
	Object  = &CorLibType{ElementObject}
)

// NewCorLibType returns the primitive for e.
func NewCorLibType(e ElementType) (*CorLibType, error) {
	if !e.IsCorLib() {
		return nil, fmt.Errorf("element type %s is not a primitive", e)
	}
	return &CorLibType{Element: e}, nil
}

func (c *CorLibType) ElementType() ElementType { return c.Element }
func (c *CorLibType) Name() string             { return corLibNames[c.Element] }
func (c *CorLibType) Namespace() string        { return "System" }
func (c *CorLibType) Scope() ResolutionScope   { return nil }
func (c *CorLibType) IsValueType() bool {
	return c.Element != ElementString && c.Element != ElementObject
}
func (*CorLibType) isTypeSignature() {}

// TypeDefOrRef references a type through the TypeDef, TypeRef or TypeSpec
// table. The value type flag is fixed when the signature is created, since
// the referenced type may still be incomplete at that point.
type TypeDefOrRef struct {
	Type        TypeDefOrRefEntity
	isValueType bool
}

// NewTypeDefOrRef references t, taking the value type flag from t.
func NewTypeDefOrRef(t TypeDefOrRefEntity) *TypeDefOrRef {
	return &TypeDefOrRef{Type: t, isValueType: t != nil && t.IsValueType()}
}

// NewTypeDefOrRefAs references t with an explicit value type flag.
func NewTypeDefOrRefAs(t TypeDefOrRefEntity, isValueType bool) *TypeDefOrRef {
	return &TypeDefOrRef{Type: t, isValueType: isValueType}
}

func (s *TypeDefOrRef) ElementType() ElementType {
	if s.isValueType {
		return ElementValueType
	}
	return ElementClass
}

func (s *TypeDefOrRef) IsValueType() bool { return s.isValueType }

func (s *TypeDefOrRef) Name() string {
	if s.Type == nil {
		return ""
	}
	return s.Type.Name()
}

func (s *TypeDefOrRef) Namespace() string {
	if s.Type == nil {
		return ""
	}
	return s.Type.Namespace()
}

func (s *TypeDefOrRef) Scope() ResolutionScope {
	if s.Type == nil {
		return nil
	}
	return s.Type.Scope()
}

// PhysicalSize fails: the coded index width depends on the tables the
// signature is written against.
func (s *TypeDefOrRef) PhysicalSize() (uint32, error) {
	return 0, &UnsupportedError{Op: "size", Type: s}
}

// WriteTo fails for the same reason as PhysicalSize.
func (s *TypeDefOrRef) WriteTo(io.Writer) (int64, error) {
	return 0, &UnsupportedError{Op: "write", Type: s}
}

func (*TypeDefOrRef) isTypeSignature() {}

// SzArray is a single-dimensional, zero-based array.
type SzArray struct {
	Base TypeSignature
}

func (s *SzArray) ElementType() ElementType { return ElementSzArray }
func (s *SzArray) Name() string             { return s.Base.Name() + "[]" }
func (s *SzArray) Namespace() string        { return s.Base.Namespace() }
func (s *SzArray) Scope() ResolutionScope   { return s.Base.Scope() }
func (s *SzArray) IsValueType() bool        { return false }
func (*SzArray) isTypeSignature()           {}

// Pointer is an unmanaged pointer.
type Pointer struct {
	Base TypeSignature
}

func (s *Pointer) ElementType() ElementType { return ElementPtr }
func (s *Pointer) Name() string             { return s.Base.Name() + "*" }
func (s *Pointer) Namespace() string        { return s.Base.Namespace() }
func (s *Pointer) Scope() ResolutionScope   { return s.Base.Scope() }
func (s *Pointer) IsValueType() bool        { return false }
func (*Pointer) isTypeSignature()           {}

// ByRef is a managed reference.
type ByRef struct {
	Base TypeSignature
}

func (s *ByRef) ElementType() ElementType { return ElementByRef }
func (s *ByRef) Name() string             { return s.Base.Name() + "&" }
func (s *ByRef) Namespace() string        { return s.Base.Namespace() }
func (s *ByRef) Scope() ResolutionScope   { return s.Base.Scope() }
func (s *ByRef) IsValueType() bool        { return false }
func (*ByRef) isTypeSignature()           {}

// GenericInstance instantiates a generic type with type arguments.
type GenericInstance struct {
	Generic *TypeDefOrRef
	Args    []TypeSignature
}

func (s *GenericInstance) ElementType() ElementType { return ElementGenericInst }

func (s *GenericInstance) Name() string {
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = a.Name()
	}
	return s.Generic.Name() + "<" + strings.Join(args, ", ") + ">"
}

func (s *GenericInstance) Namespace() string      { return s.Generic.Namespace() }
func (s *GenericInstance) Scope() ResolutionScope { return s.Generic.Scope() }
func (s *GenericInstance) IsValueType() bool      { return s.Generic.IsValueType() }
func (*GenericInstance) isTypeSignature()         {}

// MethodSignature is a MethodDefSig or MethodRefSig without varargs.
type MethodSignature struct {
	HasThis bool
	Return  TypeSignature
	Params  []TypeSignature
}

func (m *MethodSignature) String() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = FullName(p)
	}
	s := FullName(m.Return) + " (" + strings.Join(params, ", ") + ")"
	if m.HasThis {
		s = "instance " + s
	}
	return s
}

// FullName joins the namespace and name of t.
func FullName(t TypeSignature) string {
	if t == nil {
		return "?"
	}
	if ns := t.Namespace(); ns != "" {
		return ns + "." + t.Name()
	}
	return t.Name()
}
