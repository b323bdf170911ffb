package dotnet

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jtang613/gometa/pkg/cil"
	"github.com/jtang613/gometa/pkg/dotnet/metadata"
	"github.com/jtang613/gometa/pkg/dotnet/signature"
)

const sampleDescription = `
name = "Sample.dll"
mvid = "6f2e1c0a-5b7d-4e1f-9a3c-2d4b6e8f0a1c"

[[types]]
namespace = "Geometry"
name = "Point"
value-type = true

[[types.methods]]
name = "Scale"
returns = "int32"
params = ["int32"]
body = ["ldarg.1", "ret"]

[[types.methods]]
name = "Length"
returns = "float64"
body = ["ldarg.0", "ldc.i4.5", "call Geometry.Point::Scale", "conv.r8", "ret"]

[[types]]
namespace = "App"
name = "Program"

[[types.methods]]
name = "Main"
static = true
params = ["string[]"]
body = [
  'ldstr "Hello"',
  "ldnull",
  "call App.Program::Print",
  "ret",
]

[[types.methods]]
name = "Print"
static = true
params = ["string", "Geometry.Point"]
body = ["ret"]
`

func sampleModule(t *testing.T, description string) *Module {
	t.Helper()
	d, err := ParseModuleDescription([]byte(description))
	if err != nil {
		t.Fatalf("ParseModuleDescription: %v", err)
	}
	m, err := d.Module()
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	return m
}

func build(t *testing.T, m *Module, flags MetadataBuilderFlags) (*Directory, *metadata.Metadata) {
	t.Helper()
	params := DefaultParameters()
	params.Flags = flags
	dir, err := NewBuilder(params).Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := dir.Metadata.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	md, err := metadata.Read(data)
	if err != nil {
		t.Fatalf("metadata.Read: %v", err)
	}
	return dir, md
}

func TestBuildManifestResolves(t *testing.T) {
	dir, md := build(t, sampleModule(t, sampleDescription), PreserveNone)
	man := dir.Manifest

	if name, _ := md.Strings.Get(man.NameIndex); name != "Sample.dll" {
		t.Errorf("module name = %q", name)
	}
	if mvid, _ := md.Guids.Get(man.MvidIndex); mvid != man.Mvid {
		t.Errorf("mvid = %v, want %v", mvid, man.Mvid)
	}

	tables, err := md.Tables()
	if err != nil {
		t.Fatal(err)
	}
	if len(tables.TypeDef) != 3 || len(tables.MethodDef) != 4 {
		t.Fatalf("rows: %d TypeDef, %d MethodDef", len(tables.TypeDef), len(tables.MethodDef))
	}
	if name, _ := md.Strings.Get(tables.TypeDef[0].Name); name != "<Module>" {
		t.Errorf("TypeDef 1 = %q", name)
	}
	if tables.TypeDef[2].MethodList != 3 {
		t.Errorf("Program method list = %d, want 3", tables.TypeDef[2].MethodList)
	}

	for _, te := range man.Types {
		if name, _ := md.Strings.Get(te.NameIndex); name != te.Name {
			t.Errorf("type name index %d = %q, want %q", te.NameIndex, name, te.Name)
		}
		if ns, _ := md.Strings.Get(te.NamespaceIndex); ns != te.Namespace {
			t.Errorf("namespace index %d = %q, want %q", te.NamespaceIndex, ns, te.Namespace)
		}
		for _, me := range te.Methods {
			if name, _ := md.Strings.Get(me.NameIndex); name != me.Name {
				t.Errorf("method name index %d = %q", me.NameIndex, name)
			}
			if _, err := md.Blobs.Get(me.SignatureIndex); err != nil {
				t.Errorf("%s signature: %v", me.Name, err)
			}
		}
	}

	program, _ := man.FindType("App", "Program")
	mainEntry, _ := program.FindMethod("Main")
	if len(mainEntry.UserStrings) != 1 {
		t.Fatalf("Main user strings = %v", mainEntry.UserStrings)
	}
	if s, _ := md.UserStrings.Get(mainEntry.UserStrings[0]); s != "Hello" {
		t.Errorf("user string = %q", s)
	}

	body, _, err := cil.ReadMethodBody(dir.IL[mainEntry.RVA-dir.CodeRVA:])
	if err != nil {
		t.Fatal(err)
	}
	code, err := cil.Decode(body.Code)
	if err != nil {
		t.Fatal(err)
	}
	if tok := code[0].Operand.(cil.Token); tok != cil.NewToken(0x70, mainEntry.UserStrings[0]) {
		t.Errorf("ldstr operand = %s", tok)
	}
	if tok := code[2].Operand.(cil.Token); tok != cil.NewToken(metadata.TableMethodDef, 4) {
		t.Errorf("call operand = %s", tok)
	}
}

func TestBuildComputesMaxStack(t *testing.T) {
	dir, _ := build(t, sampleModule(t, sampleDescription), PreserveNone)
	point, _ := dir.Manifest.FindType("Geometry", "Point")
	length, _ := point.FindMethod("Length")
	if length.MaxStack != 2 {
		t.Errorf("Length max stack = %d, want 2", length.MaxStack)
	}
	program, _ := dir.Manifest.FindType("App", "Program")
	main, _ := program.FindMethod("Main")
	if main.MaxStack != 2 {
		t.Errorf("Main max stack = %d, want 2", main.MaxStack)
	}
	if main.RVA%4 != 0 || main.RVA < DefaultCodeRVA {
		t.Errorf("Main RVA = 0x%X", main.RVA)
	}
}

// Rebuilding with and without the blob flag keeps string indices while the
// changed signature lands after the imported blobs only when they are kept.
func TestPreserveBlobIndependentOfStrings(t *testing.T) {
	_, original := build(t, sampleModule(t, sampleDescription), PreserveNone)
	originalBlobs := len(original.Blobs.Raw())

	modified := strings.Replace(sampleDescription, `returns = "float64"`, "returns = \"float64\"\nparams = [\"int64\"]", 1)
	rebuild := func(flags MetadataBuilderFlags) *Manifest {
		m := sampleModule(t, modified)
		m.Original = original
		dir, _ := build(t, m, flags)
		return dir.Manifest
	}
	withBlobs := rebuild(PreserveStringIndices | PreserveBlobIndices)
	withoutBlobs := rebuild(PreserveStringIndices)

	for i := range withBlobs.Types {
		a, b := withBlobs.Types[i], withoutBlobs.Types[i]
		if a.NameIndex != b.NameIndex || a.NamespaceIndex != b.NamespaceIndex {
			t.Errorf("%s string indices differ: %d/%d vs %d/%d", a.Name, a.NameIndex, a.NamespaceIndex, b.NameIndex, b.NamespaceIndex)
		}
	}

	lengthWith, _ := withBlobs.Types[0].FindMethod("Length")
	lengthWithout, _ := withoutBlobs.Types[0].FindMethod("Length")
	if int(lengthWith.SignatureIndex) < originalBlobs {
		t.Errorf("modified signature at %d inside the %d imported blob bytes", lengthWith.SignatureIndex, originalBlobs)
	}
	if lengthWith.SignatureIndex == lengthWithout.SignatureIndex {
		t.Errorf("modified signature index %d unaffected by the blob flag", lengthWith.SignatureIndex)
	}

	scaleWith, _ := withBlobs.Types[0].FindMethod("Scale")
	tables, _ := original.Tables()
	if scaleWith.SignatureIndex != tables.MethodDef[0].Signature {
		t.Errorf("unchanged signature moved from %d to %d", tables.MethodDef[0].Signature, scaleWith.SignatureIndex)
	}
}

func TestPreserveFlagsPerHeap(t *testing.T) {
	_, original := build(t, sampleModule(t, sampleDescription), PreserveNone)

	tests := []struct {
		flags       MetadataBuilderFlags
		guids       int
		userStrings int
	}{
		{PreserveNone, 1, len(original.UserStrings.Raw())},
		{PreserveGuidIndices, 2, len(original.UserStrings.Raw())},
		{PreserveUserStringIndices, 1, len(original.UserStrings.Raw()) + 12},
	}
	for _, tt := range tests {
		m := sampleModule(t, sampleDescription)
		m.Original = original
		_, md := build(t, m, tt.flags)
		if got := md.Guids.Count(); got != tt.guids {
			t.Errorf("%s: %d GUIDs, want %d", tt.flags, got, tt.guids)
		}
		if got := len(md.UserStrings.Raw()); got != tt.userStrings {
			t.Errorf("%s: #US of %d bytes, want %d", tt.flags, got, tt.userStrings)
		}
	}
}

func TestPreserveWithoutOriginal(t *testing.T) {
	plain, _ := build(t, sampleModule(t, sampleDescription), PreserveNone)
	preserved, _ := build(t, sampleModule(t, sampleDescription), PreserveAll)
	a, _ := plain.Metadata.Bytes()
	b, _ := preserved.Metadata.Bytes()
	if !bytes.Equal(a, b) {
		t.Errorf("preserve flags changed the output without original metadata")
	}
}

func TestReadModuleRoundTrip(t *testing.T) {
	dir, md := build(t, sampleModule(t, sampleDescription), PreserveNone)
	m, err := ReadModule(md, dir.IL, dir.CodeRVA)
	if err != nil {
		t.Fatalf("ReadModule: %v", err)
	}
	if m.Name != "Sample.dll" || m.Mvid != dir.Manifest.Mvid || len(m.Types) != 2 {
		t.Fatalf("module = %s %v with %d types", m.Name, m.Mvid, len(m.Types))
	}

	point := m.FindType("Geometry", "Point")
	if point == nil || !point.IsValueType() {
		t.Fatalf("Point = %+v", point)
	}
	printMethod := m.FindType("App", "Program").FindMethod("Print")
	if got := printMethod.Signature.String(); got != "System.Void (System.String, Geometry.Point)" {
		t.Errorf("Print signature = %s", got)
	}
	if p := printMethod.Signature.Params[1].(*signature.TypeDefOrRef); p.Type != point || !p.IsValueType() {
		t.Errorf("Print parameter 1 = %+v", p)
	}

	main := m.FindType("App", "Program").FindMethod("Main")
	if main.Body == nil || len(main.Body.Instructions) != 4 {
		t.Fatalf("Main body = %+v", main.Body)
	}
	if s, ok := main.Body.Instructions[0].Operand.(UserString); !ok || s != "Hello" {
		t.Errorf("ldstr operand = %v", main.Body.Instructions[0].Operand)
	}
	if target := main.Body.Instructions[2].Operand; target != printMethod {
		t.Errorf("call operand = %v", target)
	}

	// Rebuilding the read module against its own metadata keeps every
	// string and blob index.
	rebuilt, rmd := build(t, m, PreserveAll)
	if !bytes.Equal(rmd.Strings.Raw(), md.Strings.Raw()) {
		t.Errorf("#Strings changed on rebuild")
	}
	if !bytes.Equal(rmd.Blobs.Raw(), md.Blobs.Raw()) {
		t.Errorf("#Blob changed on rebuild")
	}
	for i, te := range rebuilt.Manifest.Types {
		if te.NameIndex != dir.Manifest.Types[i].NameIndex {
			t.Errorf("%s name index %d, was %d", te.Name, te.NameIndex, dir.Manifest.Types[i].NameIndex)
		}
	}
}

func TestReadModuleRejectsMethodListGap(t *testing.T) {
	dir, md := build(t, sampleModule(t, sampleDescription), PreserveNone)
	tables, err := md.Tables()
	if err != nil {
		t.Fatal(err)
	}
	// <Module> and Point both start at method 2, so method 1 belongs to no
	// type and every later row would shift by one.
	tables.TypeDef[0].MethodList = 2
	tables.TypeDef[1].MethodList = 2
	md.TablesData = tables.Bytes()
	if _, err := ReadModule(md, dir.IL, dir.CodeRVA); !errors.Is(err, metadata.ErrFormat) {
		t.Errorf("ReadModule with a method list gap: %v", err)
	}
}

func TestBuildRejectsForeignReferences(t *testing.T) {
	m := sampleModule(t, sampleDescription)
	stranger := NewTypeDefinition("Elsewhere", "Stranger", false)
	main := m.FindType("App", "Program").FindMethod("Main")
	main.Signature.Params = append(main.Signature.Params, stranger.Signature())
	if _, err := NewBuilder(DefaultParameters()).Build(m); !errors.Is(err, ErrForeignType) {
		t.Errorf("foreign signature type: %v", err)
	}

	m = sampleModule(t, sampleDescription)
	orphan := &MethodDefinition{Name: "Orphan", Signature: &signature.MethodSignature{Return: signature.Void}}
	main = m.FindType("App", "Program").FindMethod("Main")
	main.Body.Instructions[2].Operand = orphan
	if _, err := NewBuilder(DefaultParameters()).Build(m); !errors.Is(err, ErrForeignType) {
		t.Errorf("foreign call target: %v", err)
	}

	if _, err := NewBuilder(DefaultParameters()).Build(nil); err == nil {
		t.Errorf("expected error for nil module")
	}
}

func TestNilTypeDefinitionSignature(t *testing.T) {
	var missing *TypeDefinition
	sig := signature.NewTypeDefOrRef(missing)
	if sig.IsValueType() || sig.ElementType() != signature.ElementClass {
		t.Errorf("nil type classified as value type")
	}
	if sig.Name() != "" || sig.Namespace() != "" || sig.Scope() != nil {
		t.Errorf("nil type accessors = %q %q %v", sig.Name(), sig.Namespace(), sig.Scope())
	}
	if missing.FullName() != "" {
		t.Errorf("FullName = %q", missing.FullName())
	}

	m := sampleModule(t, sampleDescription)
	main := m.FindType("App", "Program").FindMethod("Main")
	main.Signature.Params = append(main.Signature.Params, sig)
	if _, err := NewBuilder(DefaultParameters()).Build(m); !errors.Is(err, ErrForeignType) {
		t.Errorf("nil signature type: %v", err)
	}
}

func TestManifestCBOR(t *testing.T) {
	dir, _ := build(t, sampleModule(t, sampleDescription), PreserveNone)
	data, err := MarshalManifest(dir.Manifest)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := MarshalManifest(dir.Manifest)
	if !bytes.Equal(data, again) {
		t.Errorf("canonical encoding is not deterministic")
	}
	got, err := UnmarshalManifest(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, dir.Manifest) {
		t.Errorf("manifest round trip:\n got %+v\nwant %+v", got, dir.Manifest)
	}
	if _, err := UnmarshalManifest([]byte{0xFF}); err == nil {
		t.Errorf("expected error for malformed CBOR")
	}
}

func TestParseParameters(t *testing.T) {
	p, err := ParseParameters([]byte(`
[metadata]
version = "v2.0.50727"
code-rva = 0x3000
preserve-string-indices = true
preserve-user-string-indices = true
`))
	if err != nil {
		t.Fatal(err)
	}
	if p.Flags != PreserveStringIndices|PreserveUserStringIndices {
		t.Errorf("flags = %s", p.Flags)
	}
	if p.Version != "v2.0.50727" || p.CodeRVA != 0x3000 {
		t.Errorf("parameters = %+v", p)
	}

	p, err = ParseParameters(nil)
	if err != nil || p.Flags != PreserveNone || p.CodeRVA != DefaultCodeRVA {
		t.Errorf("defaults = %+v, %v", p, err)
	}
	if _, err := ParseParameters([]byte("[metadata]\npreserve-blobs = true\n")); err == nil {
		t.Errorf("expected error for unknown key")
	}
	if got := (PreserveBlobIndices | PreserveGuidIndices).String(); got != "blob|guid" {
		t.Errorf("String = %q", got)
	}
}

func TestDescriptionErrors(t *testing.T) {
	tests := []struct {
		name, body string
	}{
		{"unknown type", "[[types]]\nname = \"A\"\n[[types.methods]]\nname = \"M\"\nreturns = \"Nowhere.B\"\n"},
		{"unknown mnemonic", "[[types]]\nname = \"A\"\n[[types.methods]]\nname = \"M\"\nbody = [\"frobnicate\"]\n"},
		{"bad operand", "[[types]]\nname = \"A\"\n[[types.methods]]\nname = \"M\"\nbody = [\"ldc.i4.s 300\"]\n"},
		{"unknown call", "[[types]]\nname = \"A\"\n[[types.methods]]\nname = \"M\"\nbody = [\"call A::Missing\"]\n"},
		{"stray operand", "[[types]]\nname = \"A\"\n[[types.methods]]\nname = \"M\"\nbody = [\"ret 1\"]\n"},
		{"duplicate type", "[[types]]\nname = \"A\"\n[[types]]\nname = \"A\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseModuleDescription([]byte("name = \"x.dll\"\n" + tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := d.Module(); err == nil {
				t.Errorf("expected error")
			}
		})
	}
	if _, err := ParseModuleDescription([]byte("mvid = \"\"\n")); err == nil {
		t.Errorf("expected error for a nameless module")
	}
}
