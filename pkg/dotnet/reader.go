package dotnet

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jtang613/gometa/pkg/cil"
	"github.com/jtang613/gometa/pkg/dotnet/metadata"
	"github.com/jtang613/gometa/pkg/dotnet/signature"
)

// ReadModule rebuilds a module graph from metadata and the method bodies it
// points into, with codeRVA being the RVA of il[0]. With a nil il, methods
// come back without bodies. The returned module keeps md as its original
// metadata.
func ReadModule(md *metadata.Metadata, il []byte, codeRVA uint32) (*Module, error) {
	tables, err := md.Tables()
	if err != nil {
		return nil, err
	}
	if len(tables.Module) != 1 {
		return nil, fmt.Errorf("%w: %d Module rows", metadata.ErrFormat, len(tables.Module))
	}

	r := &moduleReader{md: md, tables: tables}
	m := &Module{
		Name:     r.str(tables.Module[0].Name),
		Mvid:     r.guid(tables.Module[0].Mvid),
		Original: md,
	}

	var methods []*MethodDefinition
	for i, row := range tables.TypeDef {
		start, end := row.MethodList, uint32(len(tables.MethodDef))+1
		if i+1 < len(tables.TypeDef) {
			end = tables.TypeDef[i+1].MethodList
		}
		if start == 0 || start > end || end > uint32(len(tables.MethodDef))+1 {
			return nil, fmt.Errorf("%w: TypeDef %d method list [%d, %d)", metadata.ErrFormat, i+1, start, end)
		}
		if start != uint32(len(methods))+1 {
			return nil, fmt.Errorf("%w: TypeDef %d method list starts at %d, want %d", metadata.ErrFormat, i+1, start, len(methods)+1)
		}
		if i == 0 {
			// <Module> keeps global methods, which a module graph cannot hold.
			if end > start {
				log.Warningf("ignoring %d global methods of %s", end-start, m.Name)
			}
			methods = append(methods, make([]*MethodDefinition, end-start)...)
			continue
		}

		attrs := TypeAttributes(row.Flags)
		valueLayout := TypeSealed | TypeSequentialLayout
		t := NewTypeDefinition(r.str(row.Namespace), r.str(row.Name), attrs&valueLayout == valueLayout)
		t.Attributes = attrs
		m.AddType(t)

		for rid := start; rid < end; rid++ {
			mrow := tables.MethodDef[rid-1]
			methods = append(methods, t.AddMethod(&MethodDefinition{
				Name:           r.str(mrow.Name),
				Attributes:     MethodAttributes(mrow.Flags),
				ImplAttributes: mrow.ImplFlags,
			}))
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	r.module, r.methods = m, methods
	sigs := &signature.BlobReader{Types: r}
	for rid, method := range methods {
		if method == nil {
			continue
		}
		row := tables.MethodDef[rid]
		blob, err := r.blob(row.Signature)
		if err != nil {
			return nil, err
		}
		if method.Signature, err = sigs.ReadMethod(blob); err != nil {
			return nil, fmt.Errorf("method %s: %w", method.FullName(), err)
		}
		if il != nil && row.RVA != 0 {
			if method.Body, err = r.body(il, row.RVA-codeRVA); err != nil {
				return nil, fmt.Errorf("method %s: %w", method.FullName(), err)
			}
		}
	}
	return m, nil
}

// fatHeaderFormat marks a body whose header stores an explicit max stack.
const fatHeaderFormat = 0x3

type moduleReader struct {
	md      *metadata.Metadata
	tables  *metadata.TablesStream
	module  *Module
	methods []*MethodDefinition
	err     error
}

func (r *moduleReader) str(index uint32) string {
	if r.err != nil || (r.md.Strings == nil && index == 0) {
		return ""
	}
	if r.md.Strings == nil {
		r.err = fmt.Errorf("%w: no %s heap", metadata.ErrFormat, metadata.StringsStreamName)
		return ""
	}
	s, err := r.md.Strings.Get(index)
	if err != nil {
		r.err = err
	}
	return s
}

func (r *moduleReader) guid(index uint32) uuid.UUID {
	if r.err != nil || r.md.Guids == nil {
		return uuid.Nil
	}
	g, err := r.md.Guids.Get(index)
	if err != nil {
		r.err = err
	}
	return g
}

func (r *moduleReader) blob(index uint32) ([]byte, error) {
	if r.md.Blobs == nil {
		return nil, fmt.Errorf("%w: no %s heap", metadata.ErrFormat, metadata.BlobStreamName)
	}
	return r.md.Blobs.Get(index)
}

// ResolveType implements signature.TypeResolver.
func (r *moduleReader) ResolveType(tok cil.Token) (signature.TypeDefOrRefEntity, error) {
	if tok.Table() != metadata.TableTypeDef || tok.RID() < 2 || int(tok.RID()) > len(r.module.Types)+1 {
		return nil, fmt.Errorf("type %s: %w", tok, ErrForeignType)
	}
	return r.module.Types[tok.RID()-2], nil
}

func (r *moduleReader) body(il []byte, offset uint32) (*MethodBody, error) {
	if uint64(offset) >= uint64(len(il)) {
		return nil, fmt.Errorf("%w: body offset 0x%X beyond %d bytes of IL", metadata.ErrFormat, offset, len(il))
	}
	raw, _, err := cil.ReadMethodBody(il[offset:])
	if err != nil {
		return nil, err
	}
	code, err := cil.Decode(raw.Code)
	if err != nil {
		return nil, err
	}
	for i := range code {
		if code[i].Operand, err = r.operand(code[i]); err != nil {
			return nil, fmt.Errorf("IL_%04X: %w", code[i].Offset, err)
		}
	}

	body := &MethodBody{Instructions: code, InitLocals: raw.InitLocals}
	if il[offset]&fatHeaderFormat == fatHeaderFormat {
		body.MaxStack = int(raw.MaxStack)
	}
	return body, nil
}

// operand turns tokens back into model values.
func (r *moduleReader) operand(ins cil.Instruction) (any, error) {
	tok, ok := ins.Operand.(cil.Token)
	if !ok {
		return ins.Operand, nil
	}
	switch {
	case tok.Table() == userStringTable && ins.OpCode.OperandType() == cil.InlineString:
		if r.md.UserStrings == nil {
			return nil, fmt.Errorf("%w: no %s heap", metadata.ErrFormat, metadata.UserStringsStreamName)
		}
		s, err := r.md.UserStrings.Get(tok.RID())
		return UserString(s), err
	case tok.Table() == metadata.TableMethodDef:
		if tok.RID() == 0 || int(tok.RID()) > len(r.methods) || r.methods[tok.RID()-1] == nil {
			return nil, fmt.Errorf("method %s: %w", tok, ErrForeignType)
		}
		return r.methods[tok.RID()-1], nil
	case tok.Table() == metadata.TableTypeDef:
		t, err := r.ResolveType(tok)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return tok, nil
	}
}
