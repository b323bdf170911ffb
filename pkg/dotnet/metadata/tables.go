package metadata

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Table numbers (ECMA-335 II.22).
const (
	TableModule    = 0x00
	TableTypeRef   = 0x01
	TableTypeDef   = 0x02
	TableField     = 0x04
	TableMethodDef = 0x06
	TableParam     = 0x08
	TableTypeSpec  = 0x1B
)

// Heap size flags of the #~ header.
const (
	HeapStringsWide = 0x01
	HeapGuidWide    = 0x02
	HeapBlobWide    = 0x04
)

const supportedTables = 1<<TableModule | 1<<TableTypeDef | 1<<TableMethodDef

// HeapFlags chooses the index width of each heap from its size.
func HeapFlags(stringsLen, guidLen, blobLen int) byte {
	var flags byte
	if stringsLen >= 1<<16 {
		flags |= HeapStringsWide
	}
	if guidLen/16 >= 1<<16 {
		flags |= HeapGuidWide
	}
	if blobLen >= 1<<16 {
		flags |= HeapBlobWide
	}
	return flags
}

// ModuleRow is a row of the Module table.
type ModuleRow struct {
	Generation uint16
	Name       uint32 // #Strings
	Mvid       uint32 // #GUID
	EncID      uint32 // #GUID
	EncBaseID  uint32 // #GUID
}

// TypeDefRow is a row of the TypeDef table.
type TypeDefRow struct {
	Flags      uint32
	Name       uint32 // #Strings
	Namespace  uint32 // #Strings
	Extends    uint32 // TypeDefOrRef coded index
	FieldList  uint32
	MethodList uint32
}

// MethodDefRow is a row of the MethodDef table.
type MethodDefRow struct {
	RVA       uint32
	ImplFlags uint16
	Flags     uint16
	Name      uint32 // #Strings
	Signature uint32 // #Blob
	ParamList uint32
}

// TablesStream is the #~ stream, restricted to the Module, TypeDef and
// MethodDef tables.
type TablesStream struct {
	MajorVersion uint8
	MinorVersion uint8
	HeapFlags    byte

	Module    []ModuleRow
	TypeDef   []TypeDefRow
	MethodDef []MethodDefRow
}

// NewTablesStream returns an empty 2.0 tables stream.
func NewTablesStream() *TablesStream {
	return &TablesStream{MajorVersion: 2}
}

type tableLayout struct {
	strings, guid, blob int
	typeDefOrRef        int
	field, method       int
	param               int
}

func (t *TablesStream) layout() tableLayout {
	width := func(wide bool) int {
		if wide {
			return 4
		}
		return 2
	}
	return tableLayout{
		strings: width(t.HeapFlags&HeapStringsWide != 0),
		guid:    width(t.HeapFlags&HeapGuidWide != 0),
		blob:    width(t.HeapFlags&HeapBlobWide != 0),
		// TypeDef, TypeRef and TypeSpec share two tag bits.
		typeDefOrRef: width(len(t.TypeDef) >= 1<<14),
		field:        2,
		method:       width(len(t.MethodDef) >= 1<<16),
		param:        2,
	}
}

// Bytes serializes the stream, padded to four bytes.
func (t *TablesStream) Bytes() []byte {
	le := binary.LittleEndian
	l := t.layout()

	var valid uint64
	var rows []uint32
	if len(t.Module) > 0 {
		valid |= 1 << TableModule
		rows = append(rows, uint32(len(t.Module)))
	}
	if len(t.TypeDef) > 0 {
		valid |= 1 << TableTypeDef
		rows = append(rows, uint32(len(t.TypeDef)))
	}
	if len(t.MethodDef) > 0 {
		valid |= 1 << TableMethodDef
		rows = append(rows, uint32(len(t.MethodDef)))
	}

	out := le.AppendUint32(nil, 0)
	out = append(out, t.MajorVersion, t.MinorVersion, t.HeapFlags, 1)
	out = le.AppendUint64(out, valid)
	out = le.AppendUint64(out, 0)
	for _, n := range rows {
		out = le.AppendUint32(out, n)
	}

	index := func(b []byte, v uint32, size int) []byte {
		if size == 4 {
			return le.AppendUint32(b, v)
		}
		return le.AppendUint16(b, uint16(v))
	}
	for _, r := range t.Module {
		out = le.AppendUint16(out, r.Generation)
		out = index(out, r.Name, l.strings)
		out = index(out, r.Mvid, l.guid)
		out = index(out, r.EncID, l.guid)
		out = index(out, r.EncBaseID, l.guid)
	}
	for _, r := range t.TypeDef {
		out = le.AppendUint32(out, r.Flags)
		out = index(out, r.Name, l.strings)
		out = index(out, r.Namespace, l.strings)
		out = index(out, r.Extends, l.typeDefOrRef)
		out = index(out, r.FieldList, l.field)
		out = index(out, r.MethodList, l.method)
	}
	for _, r := range t.MethodDef {
		out = le.AppendUint32(out, r.RVA)
		out = le.AppendUint16(out, r.ImplFlags)
		out = le.AppendUint16(out, r.Flags)
		out = index(out, r.Name, l.strings)
		out = index(out, r.Signature, l.blob)
		out = index(out, r.ParamList, l.param)
	}
	return align4(out)
}

// tableReader reads fixed and variable width columns, remembering the first
// overrun.
type tableReader struct {
	data []byte
	off  int
	err  error
}

func (r *tableReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: tables stream truncated at 0x%X", ErrFormat, r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *tableReader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *tableReader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *tableReader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *tableReader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *tableReader) index(size int) uint32 {
	if size == 4 {
		return r.u32()
	}
	return uint32(r.u16())
}

// ReadTablesStream parses a #~ stream. Streams holding tables other than
// Module, TypeDef and MethodDef are rejected.
func ReadTablesStream(data []byte) (*TablesStream, error) {
	r := &tableReader{data: data}
	r.u32()
	t := &TablesStream{
		MajorVersion: r.u8(),
		MinorVersion: r.u8(),
		HeapFlags:    r.u8(),
	}
	r.u8()
	valid := r.u64()
	r.u64()
	if r.err != nil {
		return nil, r.err
	}
	if extra := valid &^ supportedTables; extra != 0 {
		return nil, fmt.Errorf("%w: unsupported table 0x%02X", ErrFormat, bits.TrailingZeros64(extra))
	}

	var counts [3]uint32
	for i, table := range []int{TableModule, TableTypeDef, TableMethodDef} {
		if valid&(1<<table) != 0 {
			counts[i] = r.u32()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	for _, n := range counts {
		if uint64(n) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: row count %d exceeds stream", ErrFormat, n)
		}
	}
	t.Module = make([]ModuleRow, counts[0])
	t.TypeDef = make([]TypeDefRow, counts[1])
	t.MethodDef = make([]MethodDefRow, counts[2])

	l := t.layout()
	for i := range t.Module {
		t.Module[i] = ModuleRow{
			Generation: r.u16(),
			Name:       r.index(l.strings),
			Mvid:       r.index(l.guid),
			EncID:      r.index(l.guid),
			EncBaseID:  r.index(l.guid),
		}
	}
	for i := range t.TypeDef {
		t.TypeDef[i] = TypeDefRow{
			Flags:      r.u32(),
			Name:       r.index(l.strings),
			Namespace:  r.index(l.strings),
			Extends:    r.index(l.typeDefOrRef),
			FieldList:  r.index(l.field),
			MethodList: r.index(l.method),
		}
	}
	for i := range t.MethodDef {
		t.MethodDef[i] = MethodDefRow{
			RVA:       r.u32(),
			ImplFlags: r.u16(),
			Flags:     r.u16(),
			Name:      r.index(l.strings),
			Signature: r.index(l.blob),
			ParamList: r.index(l.param),
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return t, nil
}
