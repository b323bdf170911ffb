// Package pdb provides high-level access to Microsoft PDB debug files:
// the info stream and the CodeView type leaves of the TPI stream.
package pdb

// TypeInfo represents a parsed type.
type TypeInfo struct {
	Index     uint32   `json:"index"`
	Kind      string   `json:"kind"`
	Name      string   `json:"name,omitempty"`
	Size      uint64   `json:"size,omitempty"`
	Signature string   `json:"signature"`
	Members   []Member `json:"members,omitempty"`
}

// Member represents a struct/class/union member or an enumerator.
type Member struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
	Offset   uint64 `json:"offset"`
}

// Diagnostic is a malformed-input report collected while reading.
type Diagnostic struct {
	Message string `json:"message"`
}

// PDBInfo contains basic PDB file information.
type PDBInfo struct {
	GUID         string            `json:"guid"`
	Age          uint32            `json:"age"`
	Version      uint32            `json:"version"`
	Signature    uint32            `json:"signature"`
	SymbolKey    string            `json:"symbol_key"`
	Streams      int               `json:"streams"`
	Types        int               `json:"types"`
	NamedStreams map[string]uint32 `json:"named_streams,omitempty"`
}
