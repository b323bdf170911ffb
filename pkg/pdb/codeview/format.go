package codeview

import (
	"fmt"
	"strings"

	"github.com/jtang613/gometa/pkg/pdb/streams"
)

// maxNameDepth bounds recursion through self-referencing records.
const maxNameDepth = 16

// TypeName renders t as a C++-like declaration. Absent types render as
// "<none>".
func TypeName(t Type) string {
	var sb strings.Builder
	writeType(&sb, t, 0)
	return sb.String()
}

func writeType(sb *strings.Builder, t Type, depth int) {
	if depth > maxNameDepth {
		sb.WriteString("...")
		return
	}
	switch t := t.(type) {
	case nil:
		sb.WriteString("<none>")
	case *SimpleType:
		sb.WriteString(streams.GetBuiltinTypeName(uint32(t.index)))
	case *PointerType:
		attrs := t.Attributes
		if attrs.IsVolatile() {
			sb.WriteString("volatile ")
		}
		if attrs.IsConst() {
			sb.WriteString("const ")
		}
		writeType(sb, t.Referent(), depth+1)
		switch attrs.Mode() {
		case ModeLValueRef:
			sb.WriteString("&")
		case ModeRValueRef:
			sb.WriteString("&&")
		default:
			switch attrs.Kind() {
			case PointerFar, PointerFar32:
				sb.WriteString(" far*")
			case PointerHuge:
				sb.WriteString(" huge*")
			default:
				sb.WriteString("*")
			}
		}
	case *ModifierType:
		if t.Attributes&ModifierConst != 0 {
			sb.WriteString("const ")
		}
		if t.Attributes&ModifierVolatile != 0 {
			sb.WriteString("volatile ")
		}
		if t.Attributes&ModifierUnaligned != 0 {
			sb.WriteString("unaligned ")
		}
		writeType(sb, t.Modified(), depth+1)
	case *ClassType:
		if t.Name != "" {
			sb.WriteString(t.Name)
		} else {
			sb.WriteString(classKeyword(t.kind))
		}
	case *EnumType:
		if t.Name != "" {
			sb.WriteString(t.Name)
		} else {
			sb.WriteString("enum")
		}
	case *ProcedureType:
		writeType(sb, t.ReturnType(), depth+1)
		sb.WriteString(" (")
		writeArguments(sb, t.Arguments(), depth+1)
		sb.WriteString(")")
	default:
		fmt.Fprintf(sb, "type_0x%x", uint32(t.TypeIndex()))
	}
}

func writeArguments(sb *strings.Builder, args *ArgumentList, depth int) {
	if args == nil {
		return
	}
	types := args.Types()
	if len(types) == 0 {
		sb.WriteString("void")
		return
	}
	for i, t := range types {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeType(sb, t, depth)
	}
}

func classKeyword(kind LeafKind) string {
	switch kind {
	case KindStructure:
		return "struct"
	case KindUnion:
		return "union"
	}
	return "class"
}

func (s *SimpleType) String() string    { return TypeName(s) }
func (p *PointerType) String() string   { return TypeName(p) }
func (m *ModifierType) String() string  { return TypeName(m) }
func (c *ClassType) String() string     { return classKeyword(c.kind) + " " + TypeName(c) }
func (e *EnumType) String() string      { return "enum " + TypeName(e) }
func (p *ProcedureType) String() string { return TypeName(p) }

func (a *ArgumentList) String() string {
	var sb strings.Builder
	writeArguments(&sb, a, 0)
	return sb.String()
}

// String renders the function as "cc ret Class::*(args)".
func (m *MemberFunction) String() string {
	var sb strings.Builder
	sb.WriteString(m.CallingConvention.String())
	sb.WriteByte(' ')
	writeType(&sb, m.ReturnType(), 0)
	sb.WriteByte(' ')
	writeType(&sb, m.DeclaringType(), 0)
	sb.WriteString("::*(")
	writeArguments(&sb, m.Arguments(), 0)
	sb.WriteString(")")
	return sb.String()
}
