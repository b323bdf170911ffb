// Package dotnet builds ECMA-335 metadata directories from an in-memory
// module graph.
package dotnet

import (
	"github.com/google/uuid"

	"github.com/jtang613/gometa/pkg/cil"
	"github.com/jtang613/gometa/pkg/dotnet/metadata"
	"github.com/jtang613/gometa/pkg/dotnet/signature"
)

// TypeAttributes are TypeDef flags (ECMA-335 II.23.1.15).
type TypeAttributes uint32

const (
	TypePublic           TypeAttributes = 0x00000001
	TypeSequentialLayout TypeAttributes = 0x00000008
	TypeAbstract         TypeAttributes = 0x00000080
	TypeSealed           TypeAttributes = 0x00000100
	TypeBeforeFieldInit  TypeAttributes = 0x00100000
	TypeVisibilityMask   TypeAttributes = 0x00000007
)

const defaultTypeAttributes = TypePublic | TypeBeforeFieldInit

// MethodAttributes are MethodDef flags (ECMA-335 II.23.1.10).
type MethodAttributes uint16

const (
	MethodPrivate     MethodAttributes = 0x0001
	MethodPublic      MethodAttributes = 0x0006
	MethodStatic      MethodAttributes = 0x0010
	MethodFinal       MethodAttributes = 0x0020
	MethodVirtual     MethodAttributes = 0x0040
	MethodHideBySig   MethodAttributes = 0x0080
	MethodAbstract    MethodAttributes = 0x0400
	MethodSpecialName MethodAttributes = 0x0800
)

// Module is the root of a module graph.
type Module struct {
	Name  string
	Mvid  uuid.UUID
	Types []*TypeDefinition

	// Original is the metadata the module was read from, if any. Its heaps
	// are imported when the builder is asked to preserve indices.
	Original *metadata.Metadata
}

// NewModule returns an empty module with a fresh MVID.
func NewModule(name string) *Module {
	return &Module{Name: name, Mvid: uuid.New()}
}

func (m *Module) ScopeName() string { return m.Name }

// AddType appends t to the module.
func (m *Module) AddType(t *TypeDefinition) *TypeDefinition {
	t.module = m
	m.Types = append(m.Types, t)
	return t
}

// FindType returns the type with the given namespace and name.
func (m *Module) FindType(namespace, name string) *TypeDefinition {
	for _, t := range m.Types {
		if t.namespace == namespace && t.name == name {
			return t
		}
	}
	return nil
}

// TypeDefinition is a type defined in the module. It can be referenced from
// signatures before its value type flag is final.
type TypeDefinition struct {
	namespace  string
	name       string
	valueType  bool
	module     *Module
	Attributes TypeAttributes
	Methods    []*MethodDefinition
}

func NewTypeDefinition(namespace, name string, valueType bool) *TypeDefinition {
	attrs := defaultTypeAttributes
	if valueType {
		attrs |= TypeSealed | TypeSequentialLayout
	}
	return &TypeDefinition{namespace: namespace, name: name, valueType: valueType, Attributes: attrs}
}

// The accessors below accept a nil receiver, so a nil *TypeDefinition held
// in a signature reads as an absent type.

func (t *TypeDefinition) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

func (t *TypeDefinition) Namespace() string {
	if t == nil {
		return ""
	}
	return t.namespace
}

func (t *TypeDefinition) IsValueType() bool { return t != nil && t.valueType }

func (t *TypeDefinition) SetValueType(v bool) { t.valueType = v }

func (t *TypeDefinition) Scope() signature.ResolutionScope {
	if t == nil || t.module == nil {
		return nil
	}
	return t.module
}

func (t *TypeDefinition) FullName() string {
	if t == nil {
		return ""
	}
	if t.namespace == "" {
		return t.name
	}
	return t.namespace + "." + t.name
}

// Signature returns a fresh signature referencing t.
func (t *TypeDefinition) Signature() *signature.TypeDefOrRef {
	return signature.NewTypeDefOrRef(t)
}

// AddMethod appends m to the type.
func (t *TypeDefinition) AddMethod(m *MethodDefinition) *MethodDefinition {
	m.DeclaringType = t
	t.Methods = append(t.Methods, m)
	return m
}

// FindMethod returns the first method named name.
func (t *TypeDefinition) FindMethod(name string) *MethodDefinition {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// MethodDefinition is a method defined in the module.
type MethodDefinition struct {
	Name           string
	Attributes     MethodAttributes
	ImplAttributes uint16
	Signature      *signature.MethodSignature
	DeclaringType  *TypeDefinition

	// Body is nil for abstract and runtime-implemented methods.
	Body *MethodBody
}

func (m *MethodDefinition) IsStatic() bool { return m.Attributes&MethodStatic != 0 }

func (m *MethodDefinition) FullName() string {
	if m.DeclaringType == nil {
		return m.Name
	}
	return m.DeclaringType.FullName() + "::" + m.Name
}

// UserString is an ldstr operand that still has to be interned into #US.
type UserString string

// MethodBody holds the instructions of a method before encoding.
//
// Operands referring to metadata may be given as model values instead of
// tokens: UserString for ldstr, *MethodDefinition for call, callvirt, newobj
// and ldftn, and *TypeDefinition for type operands.
type MethodBody struct {
	Instructions []cil.Instruction
	InitLocals   bool

	// MaxStack overrides the computed stack depth when non-zero.
	MaxStack int
}
