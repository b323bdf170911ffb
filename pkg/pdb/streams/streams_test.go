package streams

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestTPIRoundTrip(t *testing.T) {
	mfunc := make([]byte, 24)
	mfunc[0] = 0x74
	records := []TypeRecord{
		{Kind: LF_ARGLIST, Data: []byte{0, 0, 0, 0}},
		{Kind: LF_MFUNCTION, Data: mfunc},
		{Kind: LF_MODIFIER, Data: []byte{0x74, 0, 0, 0, 1, 0}}, // padded to 8
	}
	tpi, err := ReadTPIStream(BuildTPIStream(records))
	if err != nil {
		t.Fatalf("ReadTPIStream: %v", err)
	}
	if tpi.NumTypes() != 3 || tpi.TypeCount() != 3 {
		t.Fatalf("NumTypes = %d, TypeCount = %d", tpi.NumTypes(), tpi.TypeCount())
	}
	rec := tpi.GetType(0x1001)
	if rec == nil || rec.Kind != LF_MFUNCTION || !bytes.Equal(rec.Data, mfunc) {
		t.Fatalf("record 0x1001 = %+v", rec)
	}
	mod := tpi.GetType(0x1002)
	if mod == nil || len(mod.Data) != 8 || mod.Data[6] != 0xF2 || mod.Data[7] != 0xF1 {
		t.Fatalf("record 0x1002 = %+v", mod)
	}
	if tpi.GetType(0x1003) != nil || tpi.GetType(0) != nil {
		t.Errorf("lookup outside the range returned a record")
	}
}

func TestTPIRejectsMalformed(t *testing.T) {
	data := BuildTPIStream([]TypeRecord{{Kind: LF_ARGLIST, Data: []byte{0, 0, 0, 0}}})

	badVersion := bytes.Clone(data)
	badVersion[0] = 1
	if _, err := ReadTPIStream(badVersion); !errors.Is(err, ErrTPI) {
		t.Errorf("bad version: err = %v", err)
	}

	badLength := bytes.Clone(data)
	badLength[TPIHeaderSize] = 0xFF
	if _, err := ReadTPIStream(badLength); !errors.Is(err, ErrTPI) {
		t.Errorf("bad record length: err = %v", err)
	}

	if _, err := ReadTPIStream(data[:TPIHeaderSize+2]); err == nil {
		t.Errorf("truncated stream accepted")
	}
}

func TestNumeric(t *testing.T) {
	tests := []struct {
		value uint64
		size  int
	}{
		{0, 2},
		{0x7FFF, 2},
		{0x8000, 4},
		{0x12345, 6},
		{1 << 40, 10},
	}
	for _, tt := range tests {
		enc := AppendNumeric(nil, tt.value)
		got, n := ParseNumeric(enc)
		if got != tt.value || n != tt.size || len(enc) != tt.size {
			t.Errorf("%#x: got %#x in %d bytes (encoded %d)", tt.value, got, n, len(enc))
		}
	}
	if v, n := ParseNumeric([]byte{0x00, 0x80, 0xFF}); int64(v) != -1 || n != 3 {
		t.Errorf("LF_CHAR -1 = %d, %d", int64(v), n)
	}
	if _, n := ParseNumeric([]byte{0x04, 0x80, 0x01}); n != 0 {
		t.Errorf("truncated LF_ULONG consumed %d", n)
	}
}

func TestBuiltinTypeName(t *testing.T) {
	tests := map[uint32]string{
		T_INT4:                 "int32",
		T_VOID:                 "void",
		TM_NPTR64<<8 | T_CHAR8: "char8_t*",
		TM_FPTR<<8 | T_WCHAR:   "wchar_t far*",
		0x00FE:                 "builtin_0x00fe",
		0x1000:                 "",
	}
	for idx, want := range tests {
		if got := GetBuiltinTypeName(idx); got != want {
			t.Errorf("GetBuiltinTypeName(%#x) = %q, want %q", idx, got, want)
		}
	}
}

func TestPDBInfoRoundTrip(t *testing.T) {
	info := &PDBInfo{
		Version:   PDBStreamVersionVC70,
		Signature: 0x5F000000,
		Age:       3,
		GUID:      uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef"),
		NamedStreams: map[string]uint32{
			"/names":           5,
			"/LinkInfo":        6,
			"/src/headerblock": 7,
		},
	}
	data := info.Bytes()
	// Windows layout stores the first group little-endian.
	if !bytes.Equal(data[12:16], []byte{0x67, 0x45, 0x23, 0x01}) {
		t.Fatalf("GUID bytes = %x", data[12:28])
	}

	got, err := ReadPDBInfo(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadPDBInfo: %v", err)
	}
	if got.GUID != info.GUID || got.Age != 3 || got.Version != PDBStreamVersionVC70 {
		t.Errorf("header = %+v", got)
	}
	if len(got.NamedStreams) != 3 || got.NamedStreams["/names"] != 5 || got.NamedStreams["/src/headerblock"] != 7 {
		t.Errorf("named streams = %v", got.NamedStreams)
	}
	if got.GUIDString() != "0123456789ABCDEF0123456789ABCDEF" {
		t.Errorf("GUIDString = %s", got.GUIDString())
	}
	if got.SymbolServerKey() != "0123456789ABCDEF0123456789ABCDEF3" {
		t.Errorf("SymbolServerKey = %s", got.SymbolServerKey())
	}
}

func TestPDBInfoHeaderOnly(t *testing.T) {
	data := (&PDBInfo{Version: PDBStreamVersionVC70}).Bytes()[:28]
	info, err := ReadPDBInfo(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadPDBInfo: %v", err)
	}
	if len(info.NamedStreams) != 0 {
		t.Errorf("named streams = %v", info.NamedStreams)
	}
	if _, err := ReadPDBInfo(bytes.NewReader(data[:10])); err == nil {
		t.Errorf("short header accepted")
	}
}
