package streams

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// TPI Stream versions
const (
	TPIStreamVersion40  = 19950410
	TPIStreamVersion41  = 19951122
	TPIStreamVersion50  = 19961031
	TPIStreamVersionV70 = 19990903
	TPIStreamVersionV80 = 20040203
)

// First type index (built-in types are below this)
const TypeIndexBegin = 0x1000

// TPIHeaderSize is the encoded size of TPIHeader.
const TPIHeaderSize = 56

// ErrTPI is returned for a malformed TPI stream.
var ErrTPI = errors.New("invalid TPI stream")

// TPIHeader is the header of the TPI stream.
type TPIHeader struct {
	Version                 uint32
	HeaderSize              uint32
	TypeIndexBegin          uint32
	TypeIndexEnd            uint32
	TypeRecordBytes         uint32
	HashStreamIndex         uint16
	HashAuxStreamIndex      uint16
	HashKeySize             uint32
	NumHashBuckets          uint32
	HashValueBufferOffset   int32
	HashValueBufferLength   uint32
	IndexOffsetBufferOffset int32
	IndexOffsetBufferLength uint32
	HashAdjBufferOffset     int32
	HashAdjBufferLength     uint32
}

// TPIStream is the parsed TPI (type info) stream.
type TPIStream struct {
	Header      TPIHeader
	TypeRecords []TypeRecord
	typeMap     map[uint32]int
}

// TypeRecord is a single raw leaf record.
type TypeRecord struct {
	Index uint32 // type index
	Kind  uint16 // LF_* leaf kind
	Data  []byte // record body, after the length and kind
}

// ReadTPIStream parses the TPI stream from raw bytes. Records are numbered
// from the header's TypeIndexBegin in stream order.
func ReadTPIStream(data []byte) (*TPIStream, error) {
	r := bytes.NewReader(data)

	var header TPIHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read TPI header: %w", err)
	}
	if header.Version != TPIStreamVersionV80 && header.Version != TPIStreamVersionV70 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrTPI, header.Version)
	}
	if header.TypeIndexEnd < header.TypeIndexBegin {
		return nil, fmt.Errorf("%w: type index range [%X, %X)", ErrTPI, header.TypeIndexBegin, header.TypeIndexEnd)
	}
	if header.HeaderSize > TPIHeaderSize {
		if _, err := r.Seek(int64(header.HeaderSize), io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to skip TPI header: %w", err)
		}
	}

	recordData := make([]byte, header.TypeRecordBytes)
	if _, err := io.ReadFull(r, recordData); err != nil {
		return nil, fmt.Errorf("failed to read type records: %w", err)
	}

	tpi := &TPIStream{
		Header:  header,
		typeMap: make(map[uint32]int),
	}

	offset := 0
	typeIndex := header.TypeIndexBegin
	for offset < len(recordData) && typeIndex < header.TypeIndexEnd {
		if offset+2 > len(recordData) {
			return nil, fmt.Errorf("%w: record %X length truncated", ErrTPI, typeIndex)
		}
		recLen := int(binary.LittleEndian.Uint16(recordData[offset:]))
		offset += 2
		if recLen < 2 || offset+recLen > len(recordData) {
			return nil, fmt.Errorf("%w: record %X has length %d", ErrTPI, typeIndex, recLen)
		}

		record := TypeRecord{
			Index: typeIndex,
			Kind:  binary.LittleEndian.Uint16(recordData[offset:]),
			Data:  bytes.Clone(recordData[offset+2 : offset+recLen]),
		}
		tpi.typeMap[typeIndex] = len(tpi.TypeRecords)
		tpi.TypeRecords = append(tpi.TypeRecords, record)

		offset += recLen
		typeIndex++
	}

	return tpi, nil
}

// GetType returns the type record for the given type index, or nil.
func (t *TPIStream) GetType(index uint32) *TypeRecord {
	i, ok := t.typeMap[index]
	if !ok {
		return nil
	}
	return &t.TypeRecords[i]
}

// NumTypes returns the number of type records.
func (t *TPIStream) NumTypes() int {
	return len(t.TypeRecords)
}

// TypeCount returns the number of types (TypeIndexEnd - TypeIndexBegin).
func (t *TPIStream) TypeCount() uint32 {
	return t.Header.TypeIndexEnd - t.Header.TypeIndexBegin
}

// BuildTPIStream encodes kinds and bodies as a version 8.0 TPI stream
// without hash streams. Record i receives type index TypeIndexBegin+i.
// Bodies are padded to 4 bytes with LF_PAD bytes.
func BuildTPIStream(records []TypeRecord) []byte {
	var body []byte
	for _, rec := range records {
		data := rec.Data
		pad := (4 - (len(data)+4)%4) % 4
		body = binary.LittleEndian.AppendUint16(body, uint16(2+len(data)+pad))
		body = binary.LittleEndian.AppendUint16(body, rec.Kind)
		body = append(body, data...)
		for i := pad; i > 0; i-- {
			body = append(body, byte(LF_PAD0+i))
		}
	}

	header := TPIHeader{
		Version:            TPIStreamVersionV80,
		HeaderSize:         TPIHeaderSize,
		TypeIndexBegin:     TypeIndexBegin,
		TypeIndexEnd:       TypeIndexBegin + uint32(len(records)),
		TypeRecordBytes:    uint32(len(body)),
		HashStreamIndex:    0xFFFF,
		HashAuxStreamIndex: 0xFFFF,
		HashKeySize:        4,
	}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, &header)
	buf.Write(body)
	return buf.Bytes()
}

// LF_* type leaf constants
const (
	LF_MODIFIER  = 0x1001
	LF_POINTER   = 0x1002
	LF_ARRAY     = 0x1503
	LF_CLASS     = 0x1504
	LF_STRUCTURE = 0x1505
	LF_UNION     = 0x1506
	LF_ENUM      = 0x1507
	LF_PROCEDURE = 0x1008
	LF_MFUNCTION = 0x1009
	LF_VTSHAPE   = 0x000a
	LF_LABEL     = 0x000e
	LF_NULL      = 0x000f

	LF_SKIP      = 0x1200
	LF_ARGLIST   = 0x1201
	LF_FIELDLIST = 0x1203
	LF_BITFIELD  = 0x1205

	LF_BCLASS    = 0x1400
	LF_VFUNCTAB  = 0x1409
	LF_ENUMERATE = 0x1502
	LF_INDEX     = 0x1404
	LF_MEMBER    = 0x150d
	LF_STMEMBER  = 0x150e
	LF_METHOD    = 0x150f
	LF_NESTTYPE  = 0x1510
	LF_ONEMETHOD = 0x1511

	LF_FUNC_ID      = 0x1601
	LF_MFUNC_ID     = 0x1602
	LF_BUILDINFO    = 0x1603
	LF_SUBSTR_LIST  = 0x1604
	LF_STRING_ID    = 0x1605
	LF_UDT_SRC_LINE = 0x1606

	// Padding bytes between records and fields are LF_PAD0 + n.
	LF_PAD0 = 0xF0
)

// Built-in type constants (type indices < 0x1000)
// Mode (bits 8-11)
const (
	TM_DIRECT  = 0 // Not a pointer
	TM_NPTR    = 1 // Near pointer
	TM_FPTR    = 2 // Far pointer
	TM_HPTR    = 3 // Huge pointer
	TM_NPTR32  = 4 // 32-bit near pointer
	TM_FPTR32  = 5 // 32-bit far pointer
	TM_NPTR64  = 6 // 64-bit near pointer
	TM_NPTR128 = 7 // 128-bit near pointer
)

// Kind (bits 0-7)
const (
	T_NOTYPE  = 0x0000
	T_VOID    = 0x0003
	T_HRESULT = 0x0008
	T_CHAR    = 0x0010
	T_SHORT   = 0x0011
	T_LONG    = 0x0012
	T_QUAD    = 0x0013
	T_UCHAR   = 0x0020
	T_USHORT  = 0x0021
	T_ULONG   = 0x0022
	T_UQUAD   = 0x0023
	T_BOOL08  = 0x0030
	T_BOOL32  = 0x0032
	T_REAL32  = 0x0040
	T_REAL64  = 0x0041
	T_REAL80  = 0x0042
	T_INT1    = 0x0068
	T_UINT1   = 0x0069
	T_RCHAR   = 0x0070
	T_WCHAR   = 0x0071
	T_INT2    = 0x0072
	T_UINT2   = 0x0073
	T_INT4    = 0x0074
	T_UINT4   = 0x0075
	T_INT8    = 0x0076
	T_UINT8   = 0x0077
	T_CHAR16  = 0x007a
	T_CHAR32  = 0x007b
	T_CHAR8   = 0x007c
)

var builtinNames = map[uint32]string{
	T_NOTYPE:  "<no type>",
	T_VOID:    "void",
	T_HRESULT: "HRESULT",
	T_CHAR:    "char",
	T_SHORT:   "short",
	T_LONG:    "long",
	T_QUAD:    "int64",
	T_UCHAR:   "unsigned char",
	T_USHORT:  "unsigned short",
	T_ULONG:   "unsigned long",
	T_UQUAD:   "uint64",
	T_BOOL08:  "bool",
	T_BOOL32:  "BOOL",
	T_REAL32:  "float",
	T_REAL64:  "double",
	T_REAL80:  "long double",
	T_INT1:    "int8",
	T_UINT1:   "uint8",
	T_RCHAR:   "char",
	T_WCHAR:   "wchar_t",
	T_INT2:    "int16",
	T_UINT2:   "uint16",
	T_INT4:    "int32",
	T_UINT4:   "uint32",
	T_INT8:    "int64",
	T_UINT8:   "uint64",
	T_CHAR16:  "char16_t",
	T_CHAR32:  "char32_t",
	T_CHAR8:   "char8_t",
}

// GetBuiltinTypeName returns the name of a built-in type index.
func GetBuiltinTypeName(typeIdx uint32) string {
	if typeIdx >= TypeIndexBegin {
		return ""
	}

	kind := typeIdx & 0xFF
	mode := (typeIdx >> 8) & 0xF

	baseName, ok := builtinNames[kind]
	if !ok {
		baseName = fmt.Sprintf("builtin_0x%04x", typeIdx)
	}

	switch mode {
	case TM_DIRECT:
		return baseName
	case TM_FPTR, TM_FPTR32:
		return baseName + " far*"
	default:
		return baseName + "*"
	}
}

// LeafKindName returns the name for a LF_* constant.
func LeafKindName(kind uint16) string {
	switch kind {
	case LF_MODIFIER:
		return "LF_MODIFIER"
	case LF_POINTER:
		return "LF_POINTER"
	case LF_ARRAY:
		return "LF_ARRAY"
	case LF_CLASS:
		return "LF_CLASS"
	case LF_STRUCTURE:
		return "LF_STRUCTURE"
	case LF_UNION:
		return "LF_UNION"
	case LF_ENUM:
		return "LF_ENUM"
	case LF_PROCEDURE:
		return "LF_PROCEDURE"
	case LF_MFUNCTION:
		return "LF_MFUNCTION"
	case LF_ARGLIST:
		return "LF_ARGLIST"
	case LF_FIELDLIST:
		return "LF_FIELDLIST"
	case LF_BITFIELD:
		return "LF_BITFIELD"
	case LF_FUNC_ID:
		return "LF_FUNC_ID"
	case LF_MFUNC_ID:
		return "LF_MFUNC_ID"
	case LF_BUILDINFO:
		return "LF_BUILDINFO"
	case LF_STRING_ID:
		return "LF_STRING_ID"
	case LF_UDT_SRC_LINE:
		return "LF_UDT_SRC_LINE"
	default:
		return fmt.Sprintf("LF_0x%04x", kind)
	}
}

// ParseNumeric parses a numeric leaf value from the data.
// Returns the value and the number of bytes consumed, 0 if malformed.
func ParseNumeric(data []byte) (uint64, int) {
	if len(data) < 2 {
		return 0, 0
	}

	val := binary.LittleEndian.Uint16(data)
	if val < 0x8000 {
		return uint64(val), 2
	}

	need := numericSize(val)
	if need == 0 || len(data) < need {
		return 0, 0
	}
	switch val {
	case 0x8000: // LF_CHAR
		return uint64(int8(data[2])), need
	case 0x8001: // LF_SHORT
		return uint64(int16(binary.LittleEndian.Uint16(data[2:]))), need
	case 0x8002: // LF_USHORT
		return uint64(binary.LittleEndian.Uint16(data[2:])), need
	case 0x8003: // LF_LONG
		return uint64(int32(binary.LittleEndian.Uint32(data[2:]))), need
	case 0x8004: // LF_ULONG
		return uint64(binary.LittleEndian.Uint32(data[2:])), need
	default: // LF_QUADWORD, LF_UQUADWORD
		return binary.LittleEndian.Uint64(data[2:]), need
	}
}

func numericSize(prefix uint16) int {
	switch prefix {
	case 0x8000:
		return 3
	case 0x8001, 0x8002:
		return 4
	case 0x8003, 0x8004:
		return 6
	case 0x8009, 0x800a:
		return 10
	}
	return 0
}

// AppendNumeric appends v as a numeric leaf, using the shortest form.
func AppendNumeric(b []byte, v uint64) []byte {
	switch {
	case v < 0x8000:
		return binary.LittleEndian.AppendUint16(b, uint16(v))
	case v <= 0xFFFF:
		b = binary.LittleEndian.AppendUint16(b, 0x8002)
		return binary.LittleEndian.AppendUint16(b, uint16(v))
	case v <= 0xFFFFFFFF:
		b = binary.LittleEndian.AppendUint16(b, 0x8004)
		return binary.LittleEndian.AppendUint32(b, uint32(v))
	default:
		b = binary.LittleEndian.AppendUint16(b, 0x800a)
		return binary.LittleEndian.AppendUint64(b, v)
	}
}

// ParseString parses a null-terminated string from data.
// Returns the string and number of bytes consumed (including null).
func ParseString(data []byte) (string, int) {
	idx := bytes.IndexByte(data, 0)
	if idx == -1 {
		return string(data), len(data)
	}
	return string(data[:idx]), idx + 1
}
