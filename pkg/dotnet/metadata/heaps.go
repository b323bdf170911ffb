package metadata

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
)

// Heap stream names.
const (
	StringsStreamName     = "#Strings"
	UserStringsStreamName = "#US"
	GuidStreamName        = "#GUID"
	BlobStreamName        = "#Blob"
	TablesStreamName      = "#~"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// BlobStream is a read-only #Blob heap. Each entry is a compressed length
// followed by that many bytes; index 0 is the empty blob.
type BlobStream struct {
	data []byte
}

func NewBlobStream(data []byte) *BlobStream { return &BlobStream{data: data} }

func (s *BlobStream) Name() string { return BlobStreamName }
func (s *BlobStream) Raw() []byte  { return s.data }

// Get returns the blob starting at index.
func (s *BlobStream) Get(index uint32) ([]byte, error) {
	return readBlob(s.data, index)
}

func readBlob(data []byte, index uint32) ([]byte, error) {
	if uint64(index) >= uint64(len(data)) {
		if index == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: blob 0x%X of %d bytes", ErrIndexOutOfRange, index, len(data))
	}
	n, size, err := ReadCompressedUint(data[index:])
	if err != nil || uint64(index)+uint64(size)+uint64(n) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: blob 0x%X is malformed", ErrIndexOutOfRange, index)
	}
	start := int(index) + size
	return data[start : start+int(n)], nil
}

// GuidStream is a read-only #GUID heap of 16-byte entries addressed from 1.
type GuidStream struct {
	data []byte
}

func NewGuidStream(data []byte) *GuidStream { return &GuidStream{data: data} }

func (s *GuidStream) Name() string { return GuidStreamName }
func (s *GuidStream) Raw() []byte  { return s.data }

// Count returns the number of GUIDs in the heap.
func (s *GuidStream) Count() int { return len(s.data) / 16 }

// Get returns the GUID at the 1-based index. Index 0 is the nil GUID.
func (s *GuidStream) Get(index uint32) (uuid.UUID, error) {
	return readGuid(s.data, index)
}

// GUIDs are stored in the Windows layout, first three groups little-endian.
func readGuid(data []byte, index uint32) (uuid.UUID, error) {
	if index == 0 {
		return uuid.Nil, nil
	}
	if uint64(index)*16 > uint64(len(data)) {
		return uuid.Nil, fmt.Errorf("%w: GUID %d of %d", ErrIndexOutOfRange, index, len(data)/16)
	}
	var raw [16]byte
	copy(raw[:], data[(index-1)*16:])
	return swapGuid(raw), nil
}

func swapGuid(g [16]byte) uuid.UUID {
	u := uuid.UUID(g)
	u[0], u[1], u[2], u[3] = g[3], g[2], g[1], g[0]
	u[4], u[5] = g[5], g[4]
	u[6], u[7] = g[7], g[6]
	return u
}

// StringsStream is a read-only #Strings heap of NUL-terminated UTF-8
// strings; index 0 is the empty string.
type StringsStream struct {
	data []byte
}

func NewStringsStream(data []byte) *StringsStream { return &StringsStream{data: data} }

func (s *StringsStream) Name() string { return StringsStreamName }
func (s *StringsStream) Raw() []byte  { return s.data }

// Get returns the string starting at index.
func (s *StringsStream) Get(index uint32) (string, error) {
	return readString(s.data, index)
}

func readString(data []byte, index uint32) (string, error) {
	if uint64(index) >= uint64(len(data)) {
		if index == 0 {
			return "", nil
		}
		return "", fmt.Errorf("%w: string 0x%X of %d bytes", ErrIndexOutOfRange, index, len(data))
	}
	rest := data[index:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", fmt.Errorf("%w: string 0x%X is not terminated", ErrIndexOutOfRange, index)
	}
	return string(rest[:end]), nil
}

// UserStringsStream is a read-only #US heap. Entries are blobs holding
// UTF-16LE text followed by one marker byte.
type UserStringsStream struct {
	data []byte
}

func NewUserStringsStream(data []byte) *UserStringsStream { return &UserStringsStream{data: data} }

func (s *UserStringsStream) Name() string { return UserStringsStreamName }
func (s *UserStringsStream) Raw() []byte  { return s.data }

// Get returns the user string starting at index.
func (s *UserStringsStream) Get(index uint32) (string, error) {
	return readUserString(s.data, index)
}

func readUserString(data []byte, index uint32) (string, error) {
	blob, err := readBlob(data, index)
	if err != nil {
		return "", err
	}
	if len(blob) == 0 {
		return "", nil
	}
	if len(blob)%2 != 1 {
		return "", fmt.Errorf("%w: user string 0x%X has even length %d", ErrIndexOutOfRange, index, len(blob))
	}
	text, err := utf16le.NewDecoder().Bytes(blob[:len(blob)-1])
	if err != nil {
		return "", fmt.Errorf("failed to decode user string 0x%X: %w", index, err)
	}
	return string(text), nil
}

// encodeUserString returns the #US blob for s: UTF-16LE text and the
// marker byte, 1 when any code unit needs more than plain 8-bit handling.
// s must be valid UTF-8, since the encoder would replace bad bytes.
func encodeUserString(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("%w: user string %q is not valid UTF-8", ErrFormat, s)
	}
	text, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode user string: %w", err)
	}
	var marker byte
	for i := 0; i+1 < len(text); i += 2 {
		lo, hi := text[i], text[i+1]
		if hi != 0 || (lo >= 0x01 && lo <= 0x08) || (lo >= 0x0E && lo <= 0x1F) || lo == 0x27 || lo == 0x2D || lo == 0x7F {
			marker = 1
			break
		}
	}
	return append(text, marker), nil
}
