package pdb

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/jtang613/gometa/pkg/diag"
	"github.com/jtang613/gometa/pkg/pdb/codeview"
	"github.com/jtang613/gometa/pkg/pdb/msf"
	"github.com/jtang613/gometa/pkg/pdb/streams"
)

var log = commonlog.GetLogger("gometa.pdb")

// Image is an opened PDB file. It owns the leaves read from the TPI stream
// and serves as their lookup table.
type Image struct {
	msf     *msf.MSF
	pdbInfo *streams.PDBInfo
	tpi     *streams.TPIStream
	ctx     *codeview.ReaderContext

	mu     sync.Mutex
	leaves map[codeview.TypeIndex]codeview.Leaf
	bad    map[codeview.TypeIndex]bool
}

// Open opens a PDB file and parses its info and type streams. Malformed
// leaves and cross references are reported to listener; a nil listener
// logs them.
func Open(path string, listener diag.Listener) (*Image, error) {
	m, err := msf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MSF: %w", err)
	}
	img, err := New(m, listener)
	if err != nil {
		m.Close()
		return nil, err
	}
	return img, nil
}

// Read parses a PDB image held in memory.
func Read(data []byte, listener diag.Listener) (*Image, error) {
	m, err := msf.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open MSF: %w", err)
	}
	return New(m, listener)
}

// New parses the PDB streams of an opened MSF container.
func New(m *msf.MSF, listener diag.Listener) (*Image, error) {
	if listener == nil {
		listener = diag.NewLogListener("gometa.pdb")
	}
	img := &Image{
		msf:    m,
		leaves: make(map[codeview.TypeIndex]codeview.Leaf),
		bad:    make(map[codeview.TypeIndex]bool),
	}
	img.ctx = &codeview.ReaderContext{Image: img, Listener: listener}

	if m.NumStreams() <= streams.StreamPDB {
		return nil, fmt.Errorf("%w: no PDB info stream", msf.ErrFormat)
	}
	reader, err := m.StreamReader(streams.StreamPDB)
	if err != nil {
		return nil, err
	}
	if img.pdbInfo, err = streams.ReadPDBInfo(reader); err != nil {
		return nil, err
	}

	if m.NumStreams() > streams.StreamTPI {
		data, err := m.ReadStream(streams.StreamTPI)
		if err != nil {
			return nil, fmt.Errorf("failed to read TPI stream: %w", err)
		}
		if len(data) > 0 {
			if img.tpi, err = streams.ReadTPIStream(data); err != nil {
				return nil, err
			}
		}
	}

	log.Debugf("opened PDB %s with %d type records", img.pdbInfo.GUIDString(), img.TypeCount())
	return img, nil
}

// Close closes the underlying file.
func (img *Image) Close() error {
	if img.msf != nil {
		return img.msf.Close()
	}
	return nil
}

// PDBInfo returns the parsed info stream.
func (img *Image) PDBInfo() *streams.PDBInfo { return img.pdbInfo }

// ReaderContext returns the context shared by the image's leaves.
func (img *Image) ReaderContext() *codeview.ReaderContext { return img.ctx }

// TryGetLeafRecord returns the leaf at index. Built-in indices below
// streams.TypeIndexBegin yield a *codeview.SimpleType; index 0 and
// indices without a well-formed record yield false. A record that fails
// to decode is reported to the listener once.
func (img *Image) TryGetLeafRecord(index codeview.TypeIndex) (codeview.Leaf, bool) {
	if index == 0 {
		return nil, false
	}

	img.mu.Lock()
	defer img.mu.Unlock()

	if leaf, ok := img.leaves[index]; ok {
		return leaf, true
	}
	if img.bad[index] {
		return nil, false
	}

	var leaf codeview.Leaf
	if index.IsSimple() {
		leaf = codeview.NewSimpleType(index)
	} else {
		if img.tpi == nil {
			return nil, false
		}
		rec := img.tpi.GetType(uint32(index))
		if rec == nil {
			return nil, false
		}
		var err error
		leaf, err = codeview.ReadLeaf(img.ctx, rec)
		if err != nil {
			img.bad[index] = true
			diag.BadImage[codeview.Leaf](img.ctx.Listener, "leaf %s: %v", index, err)
			return nil, false
		}
	}
	img.leaves[index] = leaf
	return leaf, true
}

// Leaves returns every well-formed leaf of the TPI stream in index order.
func (img *Image) Leaves() []codeview.Leaf {
	if img.tpi == nil {
		return nil
	}
	out := make([]codeview.Leaf, 0, img.tpi.NumTypes())
	for _, rec := range img.tpi.TypeRecords {
		if leaf, ok := img.TryGetLeafRecord(codeview.TypeIndex(rec.Index)); ok {
			out = append(out, leaf)
		}
	}
	return out
}

// MemberFunctions returns every LF_MFUNCTION leaf.
func (img *Image) MemberFunctions() []*codeview.MemberFunction {
	var out []*codeview.MemberFunction
	for _, leaf := range img.Leaves() {
		if m, ok := leaf.(*codeview.MemberFunction); ok {
			out = append(out, m)
		}
	}
	return out
}

// Info returns basic PDB file information.
func (img *Image) Info() *PDBInfo {
	info := &PDBInfo{
		Streams:      img.msf.NumStreams(),
		GUID:         img.pdbInfo.GUID.String(),
		Age:          img.pdbInfo.Age,
		Version:      img.pdbInfo.Version,
		Signature:    img.pdbInfo.Signature,
		SymbolKey:    img.pdbInfo.SymbolServerKey(),
		NamedStreams: img.pdbInfo.NamedStreams,
		Types:        img.TypeCount(),
	}
	return info
}

// Types returns all named, non-forward-declared classes, structures,
// unions and enums.
func (img *Image) Types() []TypeInfo {
	var types []TypeInfo
	for _, leaf := range img.Leaves() {
		switch t := leaf.(type) {
		case *codeview.ClassType:
			if t.Name != "" && !t.IsForwardRef() {
				types = append(types, *img.describe(t))
			}
		case *codeview.EnumType:
			if t.Name != "" {
				types = append(types, *img.describe(t))
			}
		}
	}
	return types
}

// ResolveType describes the leaf at index, or returns nil.
func (img *Image) ResolveType(index uint32) *TypeInfo {
	leaf, ok := img.TryGetLeafRecord(codeview.TypeIndex(index))
	if !ok {
		return nil
	}
	return img.describe(leaf)
}

func (img *Image) describe(leaf codeview.Leaf) *TypeInfo {
	ti := &TypeInfo{
		Index: uint32(leaf.TypeIndex()),
		Kind:  leaf.LeafKind().String(),
	}
	switch t := leaf.(type) {
	case *codeview.SimpleType:
		ti.Kind = "builtin"
		ti.Name = codeview.TypeName(t)
		ti.Signature = ti.Name
	case *codeview.ClassType:
		ti.Name = t.Name
		ti.Size = t.Size
		ti.Signature = t.String()
		if fields := t.Fields(); fields != nil {
			for _, m := range fields.AllMembers() {
				if !isDataMember(m) {
					continue
				}
				ti.Members = append(ti.Members, Member{
					Name:     m.Name,
					TypeName: memberTypeName(fields, m),
					Offset:   m.Value,
				})
			}
		}
	case *codeview.EnumType:
		ti.Name = t.Name
		ti.Signature = fmt.Sprintf("enum %s : %s", t.Name, codeview.TypeName(t.Underlying()))
		if fields := t.Fields(); fields != nil {
			for _, m := range fields.AllMembers() {
				ti.Members = append(ti.Members, Member{
					Name:     m.Name,
					TypeName: fmt.Sprintf("%d", m.Value),
					Offset:   m.Value,
				})
			}
		}
	case *codeview.MemberFunction:
		ti.Signature = t.String()
	case codeview.Type:
		ti.Signature = codeview.TypeName(t)
	case fmt.Stringer:
		ti.Signature = t.String()
	}
	return ti
}

// isDataMember reports whether m is a data member or base class. Methods
// and nested types are not listed.
func isDataMember(m codeview.Member) bool {
	switch m.Kind {
	case streams.LF_MEMBER, streams.LF_STMEMBER, streams.LF_BCLASS:
		return true
	}
	return false
}

func memberTypeName(fields *codeview.FieldList, m codeview.Member) string {
	name := codeview.TypeName(fields.MemberType(m))
	if m.IsStatic() {
		name += " (static)"
	}
	return name
}

// TypeCount returns the number of types in the TPI stream.
func (img *Image) TypeCount() int {
	if img.tpi == nil {
		return 0
	}
	return img.tpi.NumTypes()
}
