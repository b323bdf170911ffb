package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Signature is the magic number at the start of the metadata root, "BSJB".
const Signature = 0x424A5342

// DefaultVersion is the runtime version string written by new metadata.
const DefaultVersion = "v4.0.30319"

const maxVersionLength = 255

// RawStream is a metadata stream this package does not interpret. It is kept
// so that rewriting a root does not lose it.
type RawStream struct {
	Name string
	Data []byte
}

// Metadata is a parsed metadata root (ECMA-335 II.24.2.1) with its streams.
// Nil heaps are omitted when the root is written.
type Metadata struct {
	MajorVersion uint16
	MinorVersion uint16
	Version      string
	Flags        uint16

	Strings     *StringsStream
	UserStrings *UserStringsStream
	Guids       *GuidStream
	Blobs       *BlobStream
	TablesData  []byte
	Extra       []RawStream
}

// New returns an empty root with the usual 1.1 version numbers.
func New(version string) *Metadata {
	if version == "" {
		version = DefaultVersion
	}
	return &Metadata{MajorVersion: 1, MinorVersion: 1, Version: version}
}

// Tables decodes the #~ stream.
func (m *Metadata) Tables() (*TablesStream, error) {
	if m.TablesData == nil {
		return nil, fmt.Errorf("%w: no %s stream", ErrFormat, TablesStreamName)
	}
	return ReadTablesStream(m.TablesData)
}

// Read parses a metadata root and slices out its streams. Stream contents
// alias data.
func Read(data []byte) (*Metadata, error) {
	le := binary.LittleEndian
	if len(data) < 16 {
		return nil, fmt.Errorf("%w: root truncated", ErrFormat)
	}
	if sig := le.Uint32(data); sig != Signature {
		return nil, fmt.Errorf("%w: bad signature 0x%08X", ErrFormat, sig)
	}

	m := &Metadata{
		MajorVersion: le.Uint16(data[4:]),
		MinorVersion: le.Uint16(data[6:]),
	}
	versionLength := int(le.Uint32(data[12:]))
	offset := 16
	if versionLength > maxVersionLength+1 || offset+versionLength+4 > len(data) {
		return nil, fmt.Errorf("%w: version string of %d bytes", ErrFormat, versionLength)
	}
	version := data[offset : offset+versionLength]
	if end := bytes.IndexByte(version, 0); end >= 0 {
		version = version[:end]
	}
	m.Version = string(version)
	offset += versionLength

	m.Flags = le.Uint16(data[offset:])
	count := int(le.Uint16(data[offset+2:]))
	offset += 4

	for i := 0; i < count; i++ {
		if offset+8 > len(data) {
			return nil, fmt.Errorf("%w: stream header %d truncated", ErrFormat, i)
		}
		start := le.Uint32(data[offset:])
		size := le.Uint32(data[offset+4:])
		offset += 8

		end := bytes.IndexByte(data[offset:], 0)
		if end < 0 {
			return nil, fmt.Errorf("%w: stream header %d name is not terminated", ErrFormat, i)
		}
		name := string(data[offset : offset+end])
		offset += (end + 4) &^ 3

		if uint64(start)+uint64(size) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: stream %s at 0x%X+0x%X exceeds root", ErrFormat, name, start, size)
		}
		m.setStream(name, data[start:start+size])
	}
	return m, nil
}

func (m *Metadata) setStream(name string, data []byte) {
	switch name {
	case StringsStreamName:
		m.Strings = NewStringsStream(data)
	case UserStringsStreamName:
		m.UserStrings = NewUserStringsStream(data)
	case GuidStreamName:
		m.Guids = NewGuidStream(data)
	case BlobStreamName:
		m.Blobs = NewBlobStream(data)
	case TablesStreamName:
		m.TablesData = data
	default:
		m.Extra = append(m.Extra, RawStream{Name: name, Data: data})
	}
}

func (m *Metadata) streams() []RawStream {
	var out []RawStream
	if m.TablesData != nil {
		out = append(out, RawStream{TablesStreamName, m.TablesData})
	}
	if m.Strings != nil {
		out = append(out, RawStream{StringsStreamName, m.Strings.Raw()})
	}
	if m.UserStrings != nil {
		out = append(out, RawStream{UserStringsStreamName, m.UserStrings.Raw()})
	}
	if m.Guids != nil {
		out = append(out, RawStream{GuidStreamName, m.Guids.Raw()})
	}
	if m.Blobs != nil {
		out = append(out, RawStream{BlobStreamName, m.Blobs.Raw()})
	}
	return append(out, m.Extra...)
}

// Bytes serializes the root followed by each stream, every stream starting
// on a four byte boundary.
func (m *Metadata) Bytes() ([]byte, error) {
	if len(m.Version) > maxVersionLength {
		return nil, fmt.Errorf("%w: version string of %d bytes", ErrFormat, len(m.Version))
	}
	streams := m.streams()
	le := binary.LittleEndian

	versionLength := (len(m.Version) + 4) &^ 3
	headerSize := 16 + versionLength + 4
	for _, s := range streams {
		headerSize += 8 + (len(s.Name)+4)&^3
	}

	out := make([]byte, 0, headerSize)
	out = le.AppendUint32(out, Signature)
	out = le.AppendUint16(out, m.MajorVersion)
	out = le.AppendUint16(out, m.MinorVersion)
	out = le.AppendUint32(out, 0)
	out = le.AppendUint32(out, uint32(versionLength))
	out = append(out, m.Version...)
	out = append(out, make([]byte, versionLength-len(m.Version))...)
	out = le.AppendUint16(out, m.Flags)
	out = le.AppendUint16(out, uint16(len(streams)))

	offset := headerSize
	for _, s := range streams {
		size := (len(s.Data) + 3) &^ 3
		out = le.AppendUint32(out, uint32(offset))
		out = le.AppendUint32(out, uint32(size))
		out = append(out, s.Name...)
		out = append(out, make([]byte, (len(s.Name)+4)&^3-len(s.Name))...)
		offset += size
	}
	for _, s := range streams {
		out = align4(append(out, s.Data...))
	}
	return out, nil
}
