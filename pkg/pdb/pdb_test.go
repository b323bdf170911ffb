package pdb

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jtang613/gometa/pkg/diag"
	"github.com/jtang613/gometa/pkg/pdb/codeview"
	"github.com/jtang613/gometa/pkg/pdb/msf"
	"github.com/jtang613/gometa/pkg/pdb/streams"
)

var testGUID = uuid.MustParse("6f1c2a3b-4d5e-4f60-8172-93a4b5c6d7e8")

func buildImage(t *testing.T, records []streams.TypeRecord) []byte {
	t.Helper()
	info := &streams.PDBInfo{
		Version:      streams.PDBStreamVersionVC70,
		Age:          1,
		GUID:         testGUID,
		NamedStreams: map[string]uint32{"/names": 3},
	}
	img, err := msf.Build(512, [][]byte{nil, info.Bytes(), streams.BuildTPIStream(records), nil})
	if err != nil {
		t.Fatalf("msf.Build: %v", err)
	}
	return img
}

// sampleRecords describes
//
//	0x1000 LF_ARGLIST   (int32)
//	0x1001 LF_FIELDLIST x: int32 @0, y: int32 @4
//	0x1002 LF_STRUCTURE Point
//	0x1003 LF_POINTER   Point*
//	0x1004 LF_MFUNCTION int32 Point::*(int32), this = 0x1003
//	0x1005 LF_MFUNCTION return type 0x1000 (not a type), declaring 0x1002
//	0x1006 LF_POINTER   truncated
func sampleRecords() []streams.TypeRecord {
	le := binary.LittleEndian

	int32T := codeview.NewSimpleType(streams.T_INT4)
	args := codeview.NewArgumentList(0x1000, int32T)

	var fields []byte
	for i, name := range []string{"x", "y"} {
		fields = le.AppendUint16(fields, streams.LF_MEMBER)
		fields = le.AppendUint16(fields, 3)
		fields = le.AppendUint32(fields, streams.T_INT4)
		fields = streams.AppendNumeric(fields, uint64(4*i))
		fields = append(fields, name...)
		fields = append(fields, 0)
	}

	var point []byte
	point = le.AppendUint16(point, 2)
	point = le.AppendUint16(point, 0)
	point = le.AppendUint32(point, 0x1001)
	point = le.AppendUint32(point, 0)
	point = le.AppendUint32(point, 0)
	point = streams.AppendNumeric(point, 8)
	point = append(point, "Point\x00"...)

	pointT, _ := codeview.ReadClassType(nil, 0x1002, codeview.KindStructure, point)
	ptr := codeview.NewPointerType(0x1003, pointT, codeview.NewPointerAttributes(codeview.PointerNear64, codeview.ModePointer, 8))

	method := codeview.NewMemberFunction(0x1004)
	method.SetReturnType(int32T)
	method.SetDeclaringType(pointT)
	method.SetThisType(ptr)
	method.SetArguments(args)
	method.CallingConvention = codeview.CallThis
	method.ParameterCount = 1

	broken := codeview.NewMemberFunction(0x1005)
	broken.SetDeclaringType(pointT)
	body := broken.AppendBody(nil)
	le.PutUint32(body, 0x1000)

	return []streams.TypeRecord{
		{Kind: streams.LF_ARGLIST, Data: args.AppendBody(nil)},
		{Kind: streams.LF_FIELDLIST, Data: fields},
		{Kind: streams.LF_STRUCTURE, Data: point},
		{Kind: streams.LF_POINTER, Data: ptr.AppendBody(nil)},
		{Kind: streams.LF_MFUNCTION, Data: method.AppendBody(nil)},
		{Kind: streams.LF_MFUNCTION, Data: body},
		{Kind: streams.LF_POINTER, Data: []byte{1, 2}},
	}
}

func TestReadImage(t *testing.T) {
	var d diag.Diagnostics
	img, err := Read(buildImage(t, sampleRecords()), &d)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer img.Close()

	info := img.Info()
	if info.GUID != testGUID.String() || info.Types != 7 || info.NamedStreams["/names"] != 3 {
		t.Fatalf("Info = %+v", info)
	}

	leaf, ok := img.TryGetLeafRecord(0x1004)
	if !ok {
		t.Fatalf("leaf 0x1004 missing")
	}
	again, _ := img.TryGetLeafRecord(0x1004)
	if leaf != again {
		t.Errorf("leaves are not cached")
	}
	m := leaf.(*codeview.MemberFunction)
	if got := m.String(); got != "__thiscall int32 Point::*(int32)" {
		t.Errorf("member function = %q", got)
	}
	if got := codeview.TypeName(m.ThisType()); got != "Point*" {
		t.Errorf("this type = %q", got)
	}
	if d.Len() != 0 {
		t.Fatalf("reports = %v", d.Errors())
	}

	if _, ok := img.TryGetLeafRecord(0); ok {
		t.Errorf("index 0 resolved")
	}
	if _, ok := img.TryGetLeafRecord(0x2000); ok {
		t.Errorf("index past the stream resolved")
	}
	simple, ok := img.TryGetLeafRecord(streams.T_INT4)
	if !ok || simple.LeafKind() != codeview.KindSimple {
		t.Errorf("simple type = %v", simple)
	}
}

func TestMalformedLeavesDegrade(t *testing.T) {
	var d diag.Diagnostics
	img, err := Read(buildImage(t, sampleRecords()), &d)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	funcs := img.MemberFunctions()
	if len(funcs) != 2 {
		t.Fatalf("member functions = %d", len(funcs))
	}
	// Reading every leaf reports the truncated pointer once.
	if d.Len() != 1 || !strings.Contains(d.Errors()[0].Error(), "00001006") {
		t.Fatalf("reports = %v", d.Errors())
	}
	img.Leaves()
	if d.Len() != 1 {
		t.Fatalf("truncated leaf reported again: %v", d.Errors())
	}

	broken := funcs[1]
	if broken.ReturnType() != nil {
		t.Errorf("return type should fall back to nil")
	}
	if d.Len() != 2 || !strings.Contains(d.Errors()[1].Error(), "Member function 00001005 contains an invalid return type index 00001000") {
		t.Fatalf("reports = %v", d.Errors())
	}
	if got := codeview.TypeName(broken.DeclaringType()); got != "Point" {
		t.Errorf("declaring type = %q", got)
	}
}

func TestTypes(t *testing.T) {
	img, err := Read(buildImage(t, sampleRecords()), diag.Discard)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	types := img.Types()
	if len(types) != 1 {
		t.Fatalf("types = %+v", types)
	}
	point := types[0]
	if point.Name != "Point" || point.Kind != "LF_STRUCTURE" || point.Size != 8 || len(point.Members) != 2 {
		t.Fatalf("Point = %+v", point)
	}
	if point.Members[1].Name != "y" || point.Members[1].Offset != 4 || point.Members[1].TypeName != "int32" {
		t.Errorf("member y = %+v", point.Members[1])
	}

	if ti := img.ResolveType(streams.T_INT4); ti == nil || ti.Kind != "builtin" || ti.Name != "int32" {
		t.Errorf("ResolveType(int32) = %+v", ti)
	}
	if ti := img.ResolveType(0x1003); ti == nil || ti.Signature != "Point*" {
		t.Errorf("ResolveType(0x1003) = %+v", ti)
	}
	if img.ResolveType(0x1006) != nil {
		t.Errorf("truncated leaf described")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.pdb")
	if err := os.WriteFile(path, buildImage(t, nil), 0o644); err != nil {
		t.Fatal(err)
	}
	img, err := Open(path, diag.Discard)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if img.TypeCount() != 0 || len(img.Leaves()) != 0 {
		t.Errorf("empty TPI has %d types", img.TypeCount())
	}
	if err := img.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.pdb"), nil); err == nil {
		t.Errorf("missing file opened")
	}
}

func TestRejectsNonMSF(t *testing.T) {
	if _, err := Read(make([]byte, 1024), nil); !errors.Is(err, msf.ErrFormat) {
		t.Fatalf("err = %v", err)
	}
}
