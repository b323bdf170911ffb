package metadata

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestCompressedUint(t *testing.T) {
	tests := []struct {
		value uint32
		want  []byte
	}{
		{0x00, []byte{0x00}},
		{0x03, []byte{0x03}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x80, 0x80}},
		{0x2E57, []byte{0xAE, 0x57}},
		{0x3FFF, []byte{0xBF, 0xFF}},
		{0x4000, []byte{0xC0, 0x00, 0x40, 0x00}},
		{0x1FFFFFFF, []byte{0xDF, 0xFF, 0xFF, 0xFF}},
	}
	for _, tt := range tests {
		got, err := WriteCompressedUint(nil, tt.value)
		if err != nil {
			t.Fatalf("WriteCompressedUint(0x%X): %v", tt.value, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("WriteCompressedUint(0x%X) = % X, want % X", tt.value, got, tt.want)
		}
		v, n, err := ReadCompressedUint(got)
		if err != nil || v != tt.value || n != len(tt.want) {
			t.Errorf("ReadCompressedUint(% X) = 0x%X, %d, %v", got, v, n, err)
		}
	}

	if _, err := WriteCompressedUint(nil, 0x20000000); err == nil {
		t.Errorf("expected error for 0x20000000")
	}
	for _, bad := range [][]byte{nil, {0x80}, {0xC0, 0x00}, {0xE0, 0, 0, 0}} {
		if _, _, err := ReadCompressedUint(bad); !errors.Is(err, ErrFormat) {
			t.Errorf("ReadCompressedUint(% X) error = %v", bad, err)
		}
	}
}

func TestBlobAppendGet(t *testing.T) {
	b := NewBlobStreamBuffer()
	first, err := b.Append([]byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if first != 1 {
		t.Errorf("first blob index = %d, want 1", first)
	}
	second, _ := b.Append([]byte{4})
	if second != 5 {
		t.Errorf("second blob index = %d, want 5", second)
	}
	if again, _ := b.Append([]byte{1, 2, 3}); again != first {
		t.Errorf("duplicate blob index = %d, want %d", again, first)
	}
	if empty, _ := b.Append(nil); empty != 0 {
		t.Errorf("empty blob index = %d, want 0", empty)
	}

	got, err := b.Get(first)
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Get(%d) = % X, %v", first, got, err)
	}

	s := b.CreateStream()
	if len(s.Raw())%4 != 0 {
		t.Errorf("stream length %d is not aligned", len(s.Raw()))
	}
	if got, _ := s.Get(second); !bytes.Equal(got, []byte{4}) {
		t.Errorf("stream Get(%d) = % X", second, got)
	}
}

func TestStringsAppendGet(t *testing.T) {
	b := NewStringsStreamBuffer()
	point, _ := b.Append("Point")
	system, _ := b.Append("System")
	if point != 1 || system != 7 {
		t.Errorf("indices = %d, %d, want 1, 7", point, system)
	}
	if again, _ := b.Append("Point"); again != point {
		t.Errorf("duplicate string index = %d", again)
	}
	if empty, _ := b.Append(""); empty != 0 {
		t.Errorf("empty string index = %d", empty)
	}
	if _, err := b.Append("a\x00b"); err == nil {
		t.Errorf("expected error for embedded NUL")
	}

	s := b.CreateStream()
	if got, err := s.Get(system); err != nil || got != "System" {
		t.Errorf("Get(%d) = %q, %v", system, got, err)
	}
}

func TestGuidAppendGet(t *testing.T) {
	g := uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef")
	b := NewGuidStreamBuffer()
	if i := b.Append(g); i != 1 {
		t.Errorf("first GUID index = %d", i)
	}
	if i := b.Append(g); i != 2 {
		t.Errorf("GUIDs must not be deduplicated, got index %d", i)
	}

	s := b.CreateStream()
	if !bytes.Equal(s.Raw()[:4], []byte{0x67, 0x45, 0x23, 0x01}) {
		t.Errorf("GUID not stored in Windows layout: % X", s.Raw()[:16])
	}
	if got, err := s.Get(2); err != nil || got != g {
		t.Errorf("Get(2) = %v, %v", got, err)
	}
	if got, _ := s.Get(0); got != uuid.Nil {
		t.Errorf("Get(0) = %v", got)
	}
}

func TestUserStringsAppendGet(t *testing.T) {
	b := NewUserStringsStreamBuffer()
	hello, _ := b.Append("Hello")
	if hello != 1 {
		t.Errorf("first index = %d", hello)
	}
	if again, _ := b.Append("Hello"); again != 13 {
		t.Errorf("second Hello index = %d, want 13", again)
	}

	raw := b.CreateStream().Raw()
	want := []byte{11, 'H', 0, 'e', 0, 'l', 0, 'l', 0, 'o', 0, 0}
	if !bytes.Equal(raw[1:13], want) {
		t.Errorf("encoded = % X, want % X", raw[1:13], want)
	}

	tests := []struct {
		text   string
		marker byte
	}{
		{"plain", 0},
		{"it's", 1},
		{"a-b", 1},
		{"π", 1},
		{"café", 0},
		{"", 0},
	}
	for _, tt := range tests {
		index, err := b.Append(tt.text)
		if err != nil {
			t.Fatalf("Append(%q): %v", tt.text, err)
		}
		got, err := b.Get(index)
		if err != nil || got != tt.text {
			t.Errorf("Get(%d) = %q, %v, want %q", index, got, err, tt.text)
		}
		blob, _ := readBlob(b.data, index)
		if blob[len(blob)-1] != tt.marker {
			t.Errorf("%q marker = %d, want %d", tt.text, blob[len(blob)-1], tt.marker)
		}
	}

	size := b.Len()
	if _, err := b.Append("a\xffb"); !errors.Is(err, ErrFormat) {
		t.Errorf("Append(invalid UTF-8) error = %v, want ErrFormat", err)
	}
	if b.Len() != size {
		t.Errorf("rejected string grew the heap from %d to %d", size, b.Len())
	}
}

func TestImportPreservesIndices(t *testing.T) {
	t.Run("blob", func(t *testing.T) {
		src := NewBlobStreamBuffer()
		a, _ := src.Append([]byte{1, 2})
		c, _ := src.Append([]byte{3, 4, 5})
		stream := src.CreateStream()

		dst := NewBlobStreamBuffer()
		if err := dst.Import(stream); err != nil {
			t.Fatal(err)
		}
		if got, _ := dst.Get(a); !bytes.Equal(got, []byte{1, 2}) {
			t.Errorf("Get(%d) = % X", a, got)
		}
		if got, _ := dst.Append([]byte{3, 4, 5}); got != c {
			t.Errorf("imported blob reappended at %d, want %d", got, c)
		}
		fresh, _ := dst.Append([]byte{9})
		if int(fresh) < len(stream.Raw()) {
			t.Errorf("fresh blob index %d inside imported range %d", fresh, len(stream.Raw()))
		}
	})

	t.Run("strings", func(t *testing.T) {
		src := NewStringsStreamBuffer()
		src.Append("Point")
		line, _ := src.Append("Line")
		stream := src.CreateStream()

		dst := NewStringsStreamBuffer()
		if err := dst.Import(stream); err != nil {
			t.Fatal(err)
		}
		if got, _ := dst.Get(line); got != "Line" {
			t.Errorf("Get(%d) = %q", line, got)
		}
		if got, _ := dst.Append("Line"); got != line {
			t.Errorf("imported string reappended at %d, want %d", got, line)
		}
		fresh, _ := dst.Append("Circle")
		if int(fresh) < len(stream.Raw()) {
			t.Errorf("fresh string index %d inside imported range", fresh)
		}
	})

	t.Run("guid", func(t *testing.T) {
		src := NewGuidStreamBuffer()
		g := uuid.New()
		src.Append(g)
		dst := NewGuidStreamBuffer()
		if err := dst.Import(src.CreateStream()); err != nil {
			t.Fatal(err)
		}
		if got, _ := dst.Get(1); got != g {
			t.Errorf("Get(1) = %v, want %v", got, g)
		}
		if i := dst.Append(uuid.New()); i != 2 {
			t.Errorf("fresh GUID index = %d, want 2", i)
		}
	})

	t.Run("user strings", func(t *testing.T) {
		src := NewUserStringsStreamBuffer()
		hi, _ := src.Append("hi")
		stream := src.CreateStream()
		dst := NewUserStringsStreamBuffer()
		if err := dst.Import(stream); err != nil {
			t.Fatal(err)
		}
		if got, _ := dst.Get(hi); got != "hi" {
			t.Errorf("Get(%d) = %q", hi, got)
		}
		fresh, _ := dst.Append("hi")
		if int(fresh) < len(stream.Raw()) {
			t.Errorf("fresh user string index %d inside imported range", fresh)
		}
	})
}

func TestImportOrder(t *testing.T) {
	b := NewBlobStreamBuffer()
	b.Append([]byte{1})
	if err := b.Import(NewBlobStream([]byte{0})); !errors.Is(err, ErrImportOrder) {
		t.Errorf("import after append: %v", err)
	}

	s := NewStringsStreamBuffer()
	if err := s.Import(NewStringsStream([]byte{0})); err != nil {
		t.Fatal(err)
	}
	if err := s.Import(NewStringsStream([]byte{0})); !errors.Is(err, ErrImportOrder) {
		t.Errorf("second import: %v", err)
	}

	g := NewGuidStreamBuffer()
	g.Append(uuid.Nil)
	if err := g.Import(NewGuidStream(nil)); !errors.Is(err, ErrImportOrder) {
		t.Errorf("guid import after append: %v", err)
	}

	u := NewUserStringsStreamBuffer()
	u.Append("x")
	if err := u.Import(NewUserStringsStream([]byte{0})); !errors.Is(err, ErrImportOrder) {
		t.Errorf("user string import after append: %v", err)
	}
}

func TestImportNilIsNoop(t *testing.T) {
	b := NewBlobStreamBuffer()
	if err := b.Import(nil); err != nil {
		t.Fatal(err)
	}
	if i, _ := b.Append([]byte{7}); i != 1 {
		t.Errorf("index after nil import = %d", i)
	}

	s := NewStringsStreamBuffer()
	if err := s.Import(nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Import(NewStringsStream([]byte{0, 'a', 0})); err != nil {
		t.Errorf("nil import must not count as an import: %v", err)
	}

	if err := NewGuidStreamBuffer().Import(nil); err != nil {
		t.Error(err)
	}
	if err := NewUserStringsStreamBuffer().Import(nil); err != nil {
		t.Error(err)
	}
}

func TestOutOfRange(t *testing.T) {
	if _, err := NewBlobStream([]byte{0, 2, 1, 2}).Get(9); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("blob: %v", err)
	}
	if _, err := NewBlobStream([]byte{0, 5, 1}).Get(1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("overlong blob: %v", err)
	}
	if _, err := NewStringsStream([]byte{0, 'a', 0}).Get(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("strings: %v", err)
	}
	if _, err := NewGuidStream(make([]byte, 16)).Get(2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("guid: %v", err)
	}
	if _, err := NewUserStringsStreamBuffer().Get(4); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("user strings: %v", err)
	}
	if got, err := NewBlobStream(nil).Get(0); err != nil || got != nil {
		t.Errorf("empty heap Get(0) = %v, %v", got, err)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	mvid := uuid.MustParse("6f2e1c0a-5b7d-4e1f-9a3c-2d4b6e8f0a1c")
	b := NewMetadataBuffer("")
	name, _ := b.Strings.Append("Sample.dll")
	typeName, _ := b.Strings.Append("Point")
	ns, _ := b.Strings.Append("Geometry")
	sig, _ := b.Blobs.Append([]byte{0x20, 0x00, 0x01})
	b.Tables.Module = []ModuleRow{{Name: name, Mvid: b.Guids.Append(mvid)}}
	b.Tables.TypeDef = []TypeDefRow{
		{Name: 1, FieldList: 1, MethodList: 1},
		{Flags: 0x100109, Name: typeName, Namespace: ns, FieldList: 1, MethodList: 1},
	}
	b.Tables.MethodDef = []MethodDefRow{{RVA: 0x2050, Flags: 0x86, Name: typeName, Signature: sig, ParamList: 1}}

	m := b.CreateMetadata()
	m.Extra = []RawStream{{Name: "#Pdb", Data: []byte{1, 2, 3, 4}}}
	data, err := m.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	got, err := Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Version != DefaultVersion || got.MajorVersion != 1 || got.MinorVersion != 1 {
		t.Errorf("root = %s %d.%d", got.Version, got.MajorVersion, got.MinorVersion)
	}
	if s, _ := got.Strings.Get(ns); s != "Geometry" {
		t.Errorf("namespace = %q", s)
	}
	if g, _ := got.Guids.Get(1); g != mvid {
		t.Errorf("mvid = %v", g)
	}
	if blob, _ := got.Blobs.Get(sig); !bytes.Equal(blob, []byte{0x20, 0x00, 0x01}) {
		t.Errorf("signature = % X", blob)
	}
	if len(got.Extra) != 1 || got.Extra[0].Name != "#Pdb" || !bytes.Equal(got.Extra[0].Data, []byte{1, 2, 3, 4}) {
		t.Errorf("extra streams = %+v", got.Extra)
	}

	tables, err := got.Tables()
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if !reflect.DeepEqual(tables.Module, b.Tables.Module) {
		t.Errorf("Module = %+v", tables.Module)
	}
	if !reflect.DeepEqual(tables.TypeDef, b.Tables.TypeDef) {
		t.Errorf("TypeDef = %+v", tables.TypeDef)
	}
	if !reflect.DeepEqual(tables.MethodDef, b.Tables.MethodDef) {
		t.Errorf("MethodDef = %+v", tables.MethodDef)
	}
}

func TestReadRejectsBadRoot(t *testing.T) {
	if _, err := Read([]byte("not metadata at all")); !errors.Is(err, ErrFormat) {
		t.Errorf("bad signature: %v", err)
	}
	data, _ := New("").Bytes()
	if _, err := Read(data[:20]); !errors.Is(err, ErrFormat) {
		t.Errorf("truncated root: %v", err)
	}
}

func TestWideHeapColumns(t *testing.T) {
	if f := HeapFlags(1<<16, 16, 10); f != HeapStringsWide {
		t.Errorf("HeapFlags = 0x%02X", f)
	}

	tables := NewTablesStream()
	tables.HeapFlags = HeapStringsWide | HeapBlobWide
	tables.Module = []ModuleRow{{Name: 0x12345, Mvid: 1}}
	tables.MethodDef = []MethodDefRow{{Name: 0x10000, Signature: 0x2_0000}}
	got, err := ReadTablesStream(tables.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Module[0].Name != 0x12345 || got.MethodDef[0].Signature != 0x20000 {
		t.Errorf("wide columns = %+v %+v", got.Module[0], got.MethodDef[0])
	}
	if len(got.TypeDef) != 0 {
		t.Errorf("TypeDef rows = %d", len(got.TypeDef))
	}
}

func TestTablesRejectUnsupported(t *testing.T) {
	tables := NewTablesStream()
	data := tables.Bytes()
	data[8] |= 1 << TableTypeRef
	if _, err := ReadTablesStream(data); !errors.Is(err, ErrFormat) {
		t.Errorf("error = %v", err)
	}
}
