// Package streams provides parsers for the PDB info and TPI streams.
package streams

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
)

// PDB Stream versions
const (
	PDBStreamVersionVC2     = 19941610
	PDBStreamVersionVC4     = 19950623
	PDBStreamVersionVC41    = 19950814
	PDBStreamVersionVC50    = 19960307
	PDBStreamVersionVC98    = 19970604
	PDBStreamVersionVC70Dep = 19990604
	PDBStreamVersionVC70    = 20000404
	PDBStreamVersionVC80    = 20030901
	PDBStreamVersionVC110   = 20091201
	PDBStreamVersionVC140   = 20140508
)

// Fixed stream indices.
const (
	StreamPDB = 1
	StreamTPI = 2
	StreamDBI = 3
	StreamIPI = 4
)

// PDBInfo represents the PDB Info Stream (Stream 1).
type PDBInfo struct {
	Version      uint32
	Signature    uint32            // Timestamp of PDB creation
	Age          uint32            // Number of times PDB has been written
	GUID         uuid.UUID         // Unique identifier
	NamedStreams map[string]uint32 // Map of named streams to stream indices
}

// PDBInfoHeader is the fixed header at the start of the PDB info stream.
// The GUID is stored in the Windows layout, little-endian first three groups.
type PDBInfoHeader struct {
	Version   uint32
	Signature uint32
	Age       uint32
	GUID      [16]byte
}

// ReadPDBInfo parses the PDB info stream.
func ReadPDBInfo(r io.Reader) (*PDBInfo, error) {
	var header PDBInfoHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read PDB info header: %w", err)
	}

	info := &PDBInfo{
		Version:      header.Version,
		Signature:    header.Signature,
		Age:          header.Age,
		GUID:         swapGUID(header.GUID),
		NamedStreams: make(map[string]uint32),
	}

	// Named streams might not be present in older PDBs, so a short read
	// ends the map without failing.
	var strBufSize uint32
	if err := binary.Read(r, binary.LittleEndian, &strBufSize); err != nil {
		return info, nil
	}
	strBuf := make([]byte, strBufSize)
	if _, err := io.ReadFull(r, strBuf); err != nil {
		return info, nil
	}

	var hashSize, hashCapacity uint32
	if err := binary.Read(r, binary.LittleEndian, &hashSize); err != nil {
		return info, nil
	}
	if err := binary.Read(r, binary.LittleEndian, &hashCapacity); err != nil {
		return info, nil
	}

	presentWords, err := readBitVector(r)
	if err != nil {
		return info, nil
	}
	if _, err := readBitVector(r); err != nil {
		return info, nil
	}

	for i := uint32(0); i < hashCapacity; i++ {
		if !isBitSet(presentWords, i) {
			continue
		}

		var pair [2]uint32
		if err := binary.Read(r, binary.LittleEndian, &pair); err != nil {
			break
		}
		keyOffset, streamIndex := pair[0], pair[1]
		if keyOffset < strBufSize {
			name, _ := ParseString(strBuf[keyOffset:])
			info.NamedStreams[name] = streamIndex
		}
	}

	return info, nil
}

// Bytes encodes the info stream. Named streams are written in name order
// into a dense hash table with no deleted buckets.
func (p *PDBInfo) Bytes() []byte {
	var buf bytes.Buffer
	header := PDBInfoHeader{
		Version:   p.Version,
		Signature: p.Signature,
		Age:       p.Age,
		GUID:      swapGUID(p.GUID),
	}
	binary.Write(&buf, binary.LittleEndian, &header)

	names := make([]string, 0, len(p.NamedStreams))
	for name := range p.NamedStreams {
		names = append(names, name)
	}
	sort.Strings(names)

	var strBuf []byte
	offsets := make([]uint32, len(names))
	for i, name := range names {
		offsets[i] = uint32(len(strBuf))
		strBuf = append(strBuf, name...)
		strBuf = append(strBuf, 0)
	}

	le := binary.LittleEndian
	out := buf.Bytes()
	out = le.AppendUint32(out, uint32(len(strBuf)))
	out = append(out, strBuf...)
	out = le.AppendUint32(out, uint32(len(names)))
	out = le.AppendUint32(out, uint32(len(names)))

	words := make([]uint32, (len(names)+31)/32)
	for i := range names {
		words[i/32] |= 1 << (i % 32)
	}
	out = le.AppendUint32(out, uint32(len(words)))
	for _, w := range words {
		out = le.AppendUint32(out, w)
	}
	out = le.AppendUint32(out, 0)

	for i, name := range names {
		out = le.AppendUint32(out, offsets[i])
		out = le.AppendUint32(out, p.NamedStreams[name])
	}
	return out
}

// GUIDString returns the GUID in the compact form used by symbol servers.
func (p *PDBInfo) GUIDString() string {
	return fmt.Sprintf("%X", p.GUID[:])
}

// SymbolServerKey returns the GUID followed by the age, the directory
// name a symbol server stores this PDB under.
func (p *PDBInfo) SymbolServerKey() string {
	return fmt.Sprintf("%s%X", p.GUIDString(), p.Age)
}

// swapGUID converts between the Windows mixed-endian GUID layout and the
// RFC 4122 byte order. The conversion is its own inverse.
func swapGUID(g [16]byte) uuid.UUID {
	var u uuid.UUID
	copy(u[:], g[:])
	u[0], u[1], u[2], u[3] = g[3], g[2], g[1], g[0]
	u[4], u[5] = g[5], g[4]
	u[6], u[7] = g[7], g[6]
	return u
}

const maxBitVectorWords = 1 << 16

func readBitVector(r io.Reader) ([]uint32, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	if count > maxBitVectorWords {
		return nil, fmt.Errorf("bit vector of %d words", count)
	}
	words := make([]uint32, count)
	if err := binary.Read(r, binary.LittleEndian, words); err != nil {
		return nil, err
	}
	return words, nil
}

// isBitSet checks if bit n is set in the bit vector.
func isBitSet(words []uint32, n uint32) bool {
	wordIdx := n / 32
	bitIdx := n % 32
	if wordIdx >= uint32(len(words)) {
		return false
	}
	return (words[wordIdx] & (1 << bitIdx)) != 0
}
