package dotnet

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Manifest records the heap indices and RVAs a build assigned, so that
// tools can map authored names back to the emitted metadata.
type Manifest struct {
	Module    string               `cbor:"1,keyasint"`
	Mvid      uuid.UUID            `cbor:"2,keyasint"`
	Flags     MetadataBuilderFlags `cbor:"3,keyasint"`
	CodeRVA   uint32               `cbor:"4,keyasint"`
	NameIndex uint32               `cbor:"5,keyasint"`
	MvidIndex uint32               `cbor:"6,keyasint"`
	Types     []TypeEntry          `cbor:"7,keyasint,omitempty"`
}

// TypeEntry is the manifest record of one TypeDef row.
type TypeEntry struct {
	Token          uint32        `cbor:"1,keyasint"`
	Namespace      string        `cbor:"2,keyasint"`
	Name           string        `cbor:"3,keyasint"`
	NamespaceIndex uint32        `cbor:"4,keyasint"`
	NameIndex      uint32        `cbor:"5,keyasint"`
	Methods        []MethodEntry `cbor:"6,keyasint,omitempty"`
}

// MethodEntry is the manifest record of one MethodDef row.
type MethodEntry struct {
	Token          uint32   `cbor:"1,keyasint"`
	Name           string   `cbor:"2,keyasint"`
	NameIndex      uint32   `cbor:"3,keyasint"`
	SignatureIndex uint32   `cbor:"4,keyasint"`
	RVA            uint32   `cbor:"5,keyasint,omitempty"`
	CodeSize       uint32   `cbor:"6,keyasint,omitempty"`
	MaxStack       uint16   `cbor:"7,keyasint,omitempty"`
	UserStrings    []uint32 `cbor:"8,keyasint,omitempty"`
}

// FindType returns the entry for namespace.name.
func (m *Manifest) FindType(namespace, name string) (*TypeEntry, bool) {
	for i := range m.Types {
		if m.Types[i].Namespace == namespace && m.Types[i].Name == name {
			return &m.Types[i], true
		}
	}
	return nil, false
}

// FindMethod returns the entry of the method named name.
func (t *TypeEntry) FindMethod(name string) (*MethodEntry, bool) {
	for i := range t.Methods {
		if t.Methods[i].Name == name {
			return &t.Methods[i], true
		}
	}
	return nil, false
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dotnet: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalManifest serializes a Manifest to canonical CBOR.
func MarshalManifest(m *Manifest) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

// UnmarshalManifest deserializes a Manifest from CBOR.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("dotnet: unmarshal manifest: %w", err)
	}
	return &m, nil
}
