package dotnet

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/jtang613/gometa/pkg/cil"
	"github.com/jtang613/gometa/pkg/dotnet/signature"
)

// ModuleDescription is the TOML form of a module graph.
type ModuleDescription struct {
	Name  string            `toml:"name"`
	Mvid  string            `toml:"mvid"`
	Types []TypeDescription `toml:"types"`
}

// TypeDescription is one [[types]] table.
type TypeDescription struct {
	Namespace string              `toml:"namespace"`
	Name      string              `toml:"name"`
	ValueType bool                `toml:"value-type"`
	Methods   []MethodDescription `toml:"methods"`
}

// MethodDescription is one [[types.methods]] table. Body lines are
// "mnemonic operand", for example `ldstr "hi"`, `ldc.i4.s 5` or
// `call Geometry.Point::Length`.
type MethodDescription struct {
	Name       string   `toml:"name"`
	Static     bool     `toml:"static"`
	Returns    string   `toml:"returns"`
	Params     []string `toml:"params"`
	InitLocals bool     `toml:"init-locals"`
	MaxStack   int      `toml:"max-stack"`
	Body       []string `toml:"body"`
}

// ParseModuleDescription decodes a module description.
func ParseModuleDescription(data []byte) (*ModuleDescription, error) {
	var d ModuleDescription
	if err := toml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse module description: %w", err)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("module description has no name")
	}
	return &d, nil
}

// LoadModuleDescription reads a module description from a TOML file.
func LoadModuleDescription(path string) (*ModuleDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	d, err := ParseModuleDescription(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Module builds the described module graph. Without an explicit MVID one is
// derived from the module name, so repeated builds agree.
func (d *ModuleDescription) Module() (*Module, error) {
	m := &Module{Name: d.Name, Mvid: uuid.NewSHA1(uuid.NameSpaceOID, []byte(d.Name))}
	if d.Mvid != "" {
		mvid, err := uuid.Parse(d.Mvid)
		if err != nil {
			return nil, fmt.Errorf("invalid mvid %q: %w", d.Mvid, err)
		}
		m.Mvid = mvid
	}

	for _, td := range d.Types {
		if td.Name == "" {
			return nil, fmt.Errorf("type in namespace %q has no name", td.Namespace)
		}
		if m.FindType(td.Namespace, td.Name) != nil {
			return nil, fmt.Errorf("duplicate type %s.%s", td.Namespace, td.Name)
		}
		m.AddType(NewTypeDefinition(td.Namespace, td.Name, td.ValueType))
	}

	for i, td := range d.Types {
		t := m.Types[i]
		for _, md := range td.Methods {
			method, err := describedMethod(m, md)
			if err != nil {
				return nil, fmt.Errorf("%s::%s: %w", t.FullName(), md.Name, err)
			}
			t.AddMethod(method)
		}
	}

	// Bodies go last so that calls may target any method.
	for i, td := range d.Types {
		for j, md := range td.Methods {
			method := m.Types[i].Methods[j]
			if md.Body == nil {
				continue
			}
			body := &MethodBody{InitLocals: md.InitLocals, MaxStack: md.MaxStack}
			for n, line := range md.Body {
				ins, err := ParseInstruction(m, line)
				if err != nil {
					return nil, fmt.Errorf("%s line %d: %w", method.FullName(), n+1, err)
				}
				body.Instructions = append(body.Instructions, ins)
			}
			method.Body = body
		}
	}
	return m, nil
}

func describedMethod(m *Module, md MethodDescription) (*MethodDefinition, error) {
	sig := &signature.MethodSignature{HasThis: !md.Static}
	var err error
	if sig.Return, err = ParseTypeName(m, md.Returns); err != nil {
		return nil, fmt.Errorf("return type: %w", err)
	}
	for _, p := range md.Params {
		t, err := ParseTypeName(m, p)
		if err != nil {
			return nil, fmt.Errorf("parameter: %w", err)
		}
		sig.Params = append(sig.Params, t)
	}

	attrs := MethodPublic | MethodHideBySig
	if md.Static {
		attrs |= MethodStatic
	}
	return &MethodDefinition{Name: md.Name, Attributes: attrs, Signature: sig}, nil
}

var builtinTypes = map[string]signature.ElementType{
	"":        signature.ElementVoid,
	"void":    signature.ElementVoid,
	"bool":    signature.ElementBoolean,
	"char":    signature.ElementChar,
	"int8":    signature.ElementI1,
	"uint8":   signature.ElementU1,
	"int16":   signature.ElementI2,
	"uint16":  signature.ElementU2,
	"int32":   signature.ElementI4,
	"uint32":  signature.ElementU4,
	"int64":   signature.ElementI8,
	"uint64":  signature.ElementU8,
	"float32": signature.ElementR4,
	"float64": signature.ElementR8,
	"string":  signature.ElementString,
	"object":  signature.ElementObject,
}

// ParseTypeName parses an ilasm-style type name: a primitive keyword or a
// namespace-qualified type of m, optionally followed by "[]", "*" or "&".
func ParseTypeName(m *Module, name string) (signature.TypeSignature, error) {
	name = strings.TrimSpace(name)
	switch {
	case strings.HasSuffix(name, "[]"):
		base, err := ParseTypeName(m, strings.TrimSuffix(name, "[]"))
		if err != nil {
			return nil, err
		}
		return &signature.SzArray{Base: base}, nil
	case strings.HasSuffix(name, "*"):
		base, err := ParseTypeName(m, strings.TrimSuffix(name, "*"))
		if err != nil {
			return nil, err
		}
		return &signature.Pointer{Base: base}, nil
	case strings.HasSuffix(name, "&"):
		base, err := ParseTypeName(m, strings.TrimSuffix(name, "&"))
		if err != nil {
			return nil, err
		}
		return &signature.ByRef{Base: base}, nil
	}

	if e, ok := builtinTypes[name]; ok {
		return signature.NewCorLibType(e)
	}
	t, err := findType(m, name)
	if err != nil {
		return nil, err
	}
	return t.Signature(), nil
}

func findType(m *Module, name string) (*TypeDefinition, error) {
	namespace, typeName := "", name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		namespace, typeName = name[:i], name[i+1:]
	}
	if t := m.FindType(namespace, typeName); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

// ParseInstruction parses one "mnemonic operand" line against m.
func ParseInstruction(m *Module, line string) (cil.Instruction, error) {
	mnemonic, text, _ := strings.Cut(strings.TrimSpace(line), " ")
	op, ok := cil.ParseMnemonic(mnemonic)
	if !ok {
		return cil.Instruction{}, fmt.Errorf("%w: unknown mnemonic %q", cil.ErrInvalidOpCode, mnemonic)
	}
	text = strings.TrimSpace(text)

	operand, err := parseOperand(m, op.OperandType(), text)
	if err != nil {
		return cil.Instruction{}, fmt.Errorf("%s: %w", mnemonic, err)
	}
	return cil.Instruction{OpCode: op, Operand: operand}, nil
}

func parseOperand(m *Module, t cil.OperandType, text string) (any, error) {
	if t == cil.InlineNone {
		if text != "" {
			return nil, fmt.Errorf("%w: unexpected operand %q", cil.ErrOperand, text)
		}
		return nil, nil
	}
	if text == "" {
		return nil, fmt.Errorf("%w: missing operand", cil.ErrOperand)
	}

	switch t {
	case cil.InlineString:
		s, err := strconv.Unquote(text)
		if err != nil {
			return nil, fmt.Errorf("%w: string %s: %v", cil.ErrOperand, text, err)
		}
		return UserString(s), nil
	case cil.InlineMethod:
		typeName, methodName, ok := strings.Cut(text, "::")
		if !ok {
			return nil, fmt.Errorf("%w: method %q is not Type::Method", cil.ErrOperand, text)
		}
		owner, err := findType(m, typeName)
		if err != nil {
			return nil, err
		}
		method := owner.FindMethod(methodName)
		if method == nil {
			return nil, fmt.Errorf("unknown method %q", text)
		}
		return method, nil
	case cil.InlineType, cil.InlineTok:
		return findType(m, text)
	case cil.ShortInlineI, cil.ShortInlineBrTarget:
		v, err := strconv.ParseInt(text, 0, 8)
		return int8(v), operandError(err)
	case cil.InlineI, cil.InlineBrTarget:
		v, err := strconv.ParseInt(text, 0, 32)
		return int32(v), operandError(err)
	case cil.InlineI8:
		v, err := strconv.ParseInt(text, 0, 64)
		return v, operandError(err)
	case cil.ShortInlineVar:
		v, err := strconv.ParseUint(text, 0, 8)
		return uint8(v), operandError(err)
	case cil.InlineVar:
		v, err := strconv.ParseUint(text, 0, 16)
		return uint16(v), operandError(err)
	case cil.ShortInlineR:
		v, err := strconv.ParseFloat(text, 32)
		return float32(v), operandError(err)
	case cil.InlineR:
		v, err := strconv.ParseFloat(text, 64)
		return v, operandError(err)
	case cil.InlineSwitch:
		var targets []int32
		for _, s := range strings.Split(text, ",") {
			v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
			if err != nil {
				return nil, operandError(err)
			}
			targets = append(targets, int32(v))
		}
		return targets, nil
	default:
		return nil, fmt.Errorf("%w: operand type %d cannot be written in a description", cil.ErrOperand, t)
	}
}

func operandError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", cil.ErrOperand, err)
}
