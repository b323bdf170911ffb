package dotnet

import (
	"errors"
	"fmt"
	"slices"

	"github.com/tliron/commonlog"

	"github.com/jtang613/gometa/pkg/cil"
	"github.com/jtang613/gometa/pkg/dotnet/metadata"
	"github.com/jtang613/gometa/pkg/dotnet/signature"
)

var log = commonlog.GetLogger("gometa.dotnet")

// userStringTable is the token table byte of #US offsets.
const userStringTable = 0x70

// moduleTypeName is the name of the TypeDef row that owns global members.
const moduleTypeName = "<Module>"

// ErrForeignType is returned when a signature or operand refers to a type
// or method that is not part of the module being built.
var ErrForeignType = errors.New("not defined in the module")

// Directory is a built metadata directory: the metadata root, the method
// bodies it points into, and a record of the indices that were assigned.
type Directory struct {
	Metadata *metadata.Metadata
	IL       []byte
	CodeRVA  uint32
	Manifest *Manifest
}

// Builder turns a Module into a Directory.
type Builder struct {
	Parameters BuilderParameters
}

func NewBuilder(params BuilderParameters) *Builder {
	return &Builder{Parameters: params}
}

// Build imports the heaps of the module's original metadata selected by the
// preserve flags, then writes every type and method of the module.
func (b *Builder) Build(module *Module) (*Directory, error) {
	if module == nil {
		return nil, errors.New("no module to build")
	}
	params := b.Parameters
	if params.CodeRVA == 0 {
		params.CodeRVA = DefaultCodeRVA
	}

	buf := metadata.NewMetadataBuffer(params.Version)
	if err := importHeaps(buf, module.Original, params.Flags); err != nil {
		return nil, fmt.Errorf("failed to import original heaps: %w", err)
	}

	c := &buildContext{
		module:    module,
		buf:       buf,
		params:    params,
		typeRID:   make(map[*TypeDefinition]uint32),
		methodRID: make(map[*MethodDefinition]uint32),
		manifest:  &Manifest{Module: module.Name, Mvid: module.Mvid, Flags: params.Flags, CodeRVA: params.CodeRVA},
	}
	c.signatures = &signature.BlobWriter{Tokens: c}
	if err := c.build(); err != nil {
		return nil, fmt.Errorf("failed to build module %s: %w", module.Name, err)
	}

	dir := &Directory{
		Metadata: buf.CreateMetadata(),
		IL:       c.il,
		CodeRVA:  params.CodeRVA,
		Manifest: c.manifest,
	}
	log.Debugf("built module %s: %d types, %d methods, %d bytes of IL (preserve %s)",
		module.Name, len(module.Types), len(c.methods), len(c.il), params.Flags)
	return dir, nil
}

func importHeaps(buf *metadata.MetadataBuffer, original *metadata.Metadata, flags MetadataBuilderFlags) error {
	if original == nil {
		if flags != PreserveNone {
			log.Debugf("module has no original metadata, preserve flags %s have no effect", flags)
		}
		return nil
	}
	if flags&PreserveBlobIndices != 0 {
		if err := buf.Blobs.Import(original.Blobs); err != nil {
			return err
		}
	}
	if flags&PreserveGuidIndices != 0 {
		if err := buf.Guids.Import(original.Guids); err != nil {
			return err
		}
	}
	if flags&PreserveStringIndices != 0 {
		if err := buf.Strings.Import(original.Strings); err != nil {
			return err
		}
	}
	if flags&PreserveUserStringIndices != 0 {
		if err := buf.UserStrings.Import(original.UserStrings); err != nil {
			return err
		}
	}
	log.Debugf("imported original heaps: blob %d, guid %d, strings %d, us %d bytes",
		buf.Blobs.Len(), buf.Guids.Len(), buf.Strings.Len(), buf.UserStrings.Len())
	return nil
}

type buildContext struct {
	module     *Module
	buf        *metadata.MetadataBuffer
	params     BuilderParameters
	signatures *signature.BlobWriter

	typeRID   map[*TypeDefinition]uint32
	methodRID map[*MethodDefinition]uint32
	methods   []*MethodDefinition
	il        []byte
	manifest  *Manifest
}

// TypeToken implements signature.TokenProvider.
func (c *buildContext) TypeToken(t signature.TypeDefOrRefEntity) (cil.Token, error) {
	def, ok := t.(*TypeDefinition)
	if ok {
		if rid, ok := c.typeRID[def]; ok {
			return cil.NewToken(metadata.TableTypeDef, rid), nil
		}
	}
	return 0, fmt.Errorf("type %s: %w", signature.FullName(signature.NewTypeDefOrRef(t)), ErrForeignType)
}

func (c *buildContext) build() error {
	// TypeDef row 1 is <Module>.
	for i, t := range c.module.Types {
		c.typeRID[t] = uint32(i + 2)
		for _, m := range t.Methods {
			c.methods = append(c.methods, m)
			c.methodRID[m] = uint32(len(c.methods))
		}
	}

	if err := c.writeModule(); err != nil {
		return err
	}
	moduleType, err := c.buf.Strings.Append(moduleTypeName)
	if err != nil {
		return err
	}
	c.buf.Tables.TypeDef = append(c.buf.Tables.TypeDef, metadata.TypeDefRow{Name: moduleType, FieldList: 1, MethodList: 1})

	next := uint32(1)
	for _, t := range c.module.Types {
		entry, err := c.writeType(t, next)
		if err != nil {
			return fmt.Errorf("type %s: %w", t.FullName(), err)
		}
		for _, m := range t.Methods {
			method, err := c.writeMethod(m)
			if err != nil {
				return fmt.Errorf("method %s: %w", m.FullName(), err)
			}
			entry.Methods = append(entry.Methods, method)
		}
		next += uint32(len(t.Methods))
		c.manifest.Types = append(c.manifest.Types, entry)
	}
	return nil
}

func (c *buildContext) writeModule() error {
	name, err := c.buf.Strings.Append(c.module.Name)
	if err != nil {
		return err
	}
	mvid := c.buf.Guids.Append(c.module.Mvid)
	c.buf.Tables.Module = []metadata.ModuleRow{{Name: name, Mvid: mvid}}
	c.manifest.NameIndex = name
	c.manifest.MvidIndex = mvid
	return nil
}

func (c *buildContext) writeType(t *TypeDefinition, methodList uint32) (TypeEntry, error) {
	name, err := c.buf.Strings.Append(t.Name())
	if err != nil {
		return TypeEntry{}, err
	}
	namespace, err := c.buf.Strings.Append(t.Namespace())
	if err != nil {
		return TypeEntry{}, err
	}
	c.buf.Tables.TypeDef = append(c.buf.Tables.TypeDef, metadata.TypeDefRow{
		Flags:      uint32(t.Attributes),
		Name:       name,
		Namespace:  namespace,
		FieldList:  1,
		MethodList: methodList,
	})
	return TypeEntry{
		Token:          uint32(cil.NewToken(metadata.TableTypeDef, c.typeRID[t])),
		Namespace:      t.Namespace(),
		Name:           t.Name(),
		NameIndex:      name,
		NamespaceIndex: namespace,
	}, nil
}

func (c *buildContext) writeMethod(m *MethodDefinition) (MethodEntry, error) {
	if m.Signature == nil {
		return MethodEntry{}, errors.New("missing signature")
	}
	name, err := c.buf.Strings.Append(m.Name)
	if err != nil {
		return MethodEntry{}, err
	}
	blob, err := c.signatures.MethodBlob(m.Signature)
	if err != nil {
		return MethodEntry{}, fmt.Errorf("failed to encode signature: %w", err)
	}
	sig, err := c.buf.Blobs.Append(blob)
	if err != nil {
		return MethodEntry{}, err
	}

	entry := MethodEntry{
		Token:          uint32(cil.NewToken(metadata.TableMethodDef, c.methodRID[m])),
		Name:           m.Name,
		NameIndex:      name,
		SignatureIndex: sig,
	}
	if m.Body != nil {
		if err := c.writeBody(m, &entry); err != nil {
			return MethodEntry{}, err
		}
	}

	c.buf.Tables.MethodDef = append(c.buf.Tables.MethodDef, metadata.MethodDefRow{
		RVA:       entry.RVA,
		ImplFlags: m.ImplAttributes,
		Flags:     uint16(m.Attributes),
		Name:      name,
		Signature: sig,
		ParamList: 1,
	})
	return entry, nil
}

func (c *buildContext) writeBody(m *MethodDefinition, entry *MethodEntry) error {
	code := slices.Clone(m.Body.Instructions)
	for i := range code {
		operand, err := c.resolveOperand(code[i], entry)
		if err != nil {
			return fmt.Errorf("instruction %d (%s): %w", i, code[i].OpCode.Mnemonic(), err)
		}
		code[i].Operand = operand
	}
	cil.Assign(code)

	encoded, err := cil.Encode(code)
	if err != nil {
		return err
	}
	maxStack := m.Body.MaxStack
	if maxStack == 0 {
		if maxStack, err = cil.ComputeMaxStack(code, c.stackEffect(m)); err != nil {
			return err
		}
	}

	body := cil.MethodBody{MaxStack: uint16(maxStack), InitLocals: m.Body.InitLocals, Code: encoded}
	for len(c.il)%4 != 0 {
		c.il = append(c.il, 0)
	}
	entry.RVA = c.params.CodeRVA + uint32(len(c.il))
	entry.CodeSize = uint32(len(encoded))
	entry.MaxStack = uint16(maxStack)
	c.il = append(c.il, body.Bytes()...)
	return nil
}

// resolveOperand turns model operands into tokens, interning user strings.
func (c *buildContext) resolveOperand(ins cil.Instruction, entry *MethodEntry) (any, error) {
	switch v := ins.Operand.(type) {
	case UserString:
		if ins.OpCode.OperandType() != cil.InlineString {
			return nil, fmt.Errorf("%w: user string operand", cil.ErrOperand)
		}
		index, err := c.buf.UserStrings.Append(string(v))
		if err != nil {
			return nil, err
		}
		entry.UserStrings = append(entry.UserStrings, index)
		return cil.NewToken(userStringTable, index), nil
	case *MethodDefinition:
		rid, ok := c.methodRID[v]
		if !ok {
			return nil, fmt.Errorf("method %s: %w", v.FullName(), ErrForeignType)
		}
		return cil.NewToken(metadata.TableMethodDef, rid), nil
	case *TypeDefinition:
		return c.TypeToken(v)
	default:
		return ins.Operand, nil
	}
}

// stackEffect supplies the stack behaviour of calls and returns from the
// signatures involved.
func (c *buildContext) stackEffect(m *MethodDefinition) cil.StackEffect {
	return func(ins cil.Instruction) (pop, push int) {
		if ins.OpCode == cil.Ret {
			if returnsValue(m.Signature) {
				return 1, 0
			}
			return 0, 0
		}
		tok, ok := ins.Operand.(cil.Token)
		if !ok || tok.Table() != metadata.TableMethodDef || tok.RID() == 0 || int(tok.RID()) > len(c.methods) {
			return 0, 0
		}
		sig := c.methods[tok.RID()-1].Signature
		if sig == nil {
			return 0, 0
		}
		pop = len(sig.Params)
		if sig.HasThis && ins.OpCode != cil.Newobj {
			pop++
		}
		if returnsValue(sig) {
			push = 1
		}
		return pop, push
	}
}

func returnsValue(sig *signature.MethodSignature) bool {
	return sig != nil && sig.Return != nil && sig.Return.ElementType() != signature.ElementVoid
}
