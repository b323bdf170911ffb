package metadata

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// importGuard enforces that Import happens at most once and before the
// first Append.
type importGuard struct {
	imported bool
	appended bool
}

func (g *importGuard) beginImport(name string) error {
	if g.imported || g.appended {
		return fmt.Errorf("%w: %s", ErrImportOrder, name)
	}
	g.imported = true
	return nil
}

// BlobStreamBuffer builds a #Blob heap. Identical blobs share one index,
// including blobs taken over by Import.
type BlobStreamBuffer struct {
	importGuard
	data  []byte
	index map[string]uint32
}

func NewBlobStreamBuffer() *BlobStreamBuffer {
	return &BlobStreamBuffer{data: []byte{0}, index: map[string]uint32{"": 0}}
}

func (b *BlobStreamBuffer) Name() string { return BlobStreamName }

// Len returns the current heap size in bytes.
func (b *BlobStreamBuffer) Len() int { return len(b.data) }

// Import copies src verbatim so that every index valid in src stays valid.
// A nil src is a no-op.
func (b *BlobStreamBuffer) Import(src *BlobStream) error {
	if src == nil {
		return nil
	}
	if err := b.beginImport(BlobStreamName); err != nil {
		return err
	}
	if len(src.data) == 0 {
		return nil
	}
	b.data = bytes.Clone(src.data)
	for offset := 1; offset < len(b.data); {
		blob, err := readBlob(b.data, uint32(offset))
		if err != nil {
			break
		}
		key := string(blob)
		if _, ok := b.index[key]; !ok {
			b.index[key] = uint32(offset)
		}
		_, size, _ := ReadCompressedUint(b.data[offset:])
		offset += size + len(blob)
	}
	return nil
}

// Append interns blob and returns its index. The empty blob is index 0.
func (b *BlobStreamBuffer) Append(blob []byte) (uint32, error) {
	b.appended = true
	if index, ok := b.index[string(blob)]; ok {
		return index, nil
	}
	offset := uint32(len(b.data))
	data, err := WriteCompressedUint(b.data, uint32(len(blob)))
	if err != nil {
		return 0, fmt.Errorf("failed to append blob: %w", err)
	}
	b.data = append(data, blob...)
	b.index[string(blob)] = offset
	return offset, nil
}

// Get returns the blob at index.
func (b *BlobStreamBuffer) Get(index uint32) ([]byte, error) {
	return readBlob(b.data, index)
}

// CreateStream returns the finished heap, padded to four bytes.
func (b *BlobStreamBuffer) CreateStream() *BlobStream {
	return NewBlobStream(align4(bytes.Clone(b.data)))
}

// GuidStreamBuffer builds a #GUID heap. Every Append adds an entry; GUIDs
// are addressed by position.
type GuidStreamBuffer struct {
	importGuard
	data []byte
}

func NewGuidStreamBuffer() *GuidStreamBuffer { return &GuidStreamBuffer{} }

func (b *GuidStreamBuffer) Name() string { return GuidStreamName }

// Len returns the current heap size in bytes.
func (b *GuidStreamBuffer) Len() int { return len(b.data) }

// Import copies src verbatim. A nil src is a no-op.
func (b *GuidStreamBuffer) Import(src *GuidStream) error {
	if src == nil {
		return nil
	}
	if err := b.beginImport(GuidStreamName); err != nil {
		return err
	}
	b.data = bytes.Clone(src.data[:len(src.data)/16*16])
	return nil
}

// Append adds g and returns its 1-based index.
func (b *GuidStreamBuffer) Append(g uuid.UUID) uint32 {
	b.appended = true
	raw := swapGuid(g)
	b.data = append(b.data, raw[:]...)
	return uint32(len(b.data) / 16)
}

// Get returns the GUID at the 1-based index.
func (b *GuidStreamBuffer) Get(index uint32) (uuid.UUID, error) {
	return readGuid(b.data, index)
}

func (b *GuidStreamBuffer) CreateStream() *GuidStream {
	return NewGuidStream(bytes.Clone(b.data))
}

// StringsStreamBuffer builds a #Strings heap. Identical strings share one
// index, including strings taken over by Import.
type StringsStreamBuffer struct {
	importGuard
	data  []byte
	index map[string]uint32
}

func NewStringsStreamBuffer() *StringsStreamBuffer {
	return &StringsStreamBuffer{data: []byte{0}, index: map[string]uint32{"": 0}}
}

func (b *StringsStreamBuffer) Name() string { return StringsStreamName }

// Len returns the current heap size in bytes.
func (b *StringsStreamBuffer) Len() int { return len(b.data) }

// Import copies src verbatim so that every index valid in src stays valid.
// A nil src is a no-op.
func (b *StringsStreamBuffer) Import(src *StringsStream) error {
	if src == nil {
		return nil
	}
	if err := b.beginImport(StringsStreamName); err != nil {
		return err
	}
	if len(src.data) == 0 {
		return nil
	}
	b.data = bytes.Clone(src.data)
	for offset := 0; offset < len(b.data); {
		end := bytes.IndexByte(b.data[offset:], 0)
		if end < 0 {
			// Terminate a truncated final entry so it stays readable.
			b.data = append(b.data, 0)
			end = len(b.data) - 1 - offset
		}
		key := string(b.data[offset : offset+end])
		if _, ok := b.index[key]; !ok {
			b.index[key] = uint32(offset)
		}
		offset += end + 1
	}
	return nil
}

// Append interns s and returns its index. The empty string is index 0.
func (b *StringsStreamBuffer) Append(s string) (uint32, error) {
	b.appended = true
	if index, ok := b.index[s]; ok {
		return index, nil
	}
	if strings.IndexByte(s, 0) >= 0 {
		return 0, fmt.Errorf("string %q contains a NUL byte", s)
	}
	offset := uint32(len(b.data))
	b.data = append(b.data, s...)
	b.data = append(b.data, 0)
	b.index[s] = offset
	return offset, nil
}

// Get returns the string at index.
func (b *StringsStreamBuffer) Get(index uint32) (string, error) {
	return readString(b.data, index)
}

// CreateStream returns the finished heap, padded to four bytes.
func (b *StringsStreamBuffer) CreateStream() *StringsStream {
	return NewStringsStream(align4(bytes.Clone(b.data)))
}

// UserStringsStreamBuffer builds a #US heap. Every Append adds an entry,
// since ldstr tokens address user strings by position.
type UserStringsStreamBuffer struct {
	importGuard
	data []byte
}

func NewUserStringsStreamBuffer() *UserStringsStreamBuffer {
	return &UserStringsStreamBuffer{data: []byte{0}}
}

func (b *UserStringsStreamBuffer) Name() string { return UserStringsStreamName }

// Len returns the current heap size in bytes.
func (b *UserStringsStreamBuffer) Len() int { return len(b.data) }

// Import copies src verbatim. A nil src is a no-op.
func (b *UserStringsStreamBuffer) Import(src *UserStringsStream) error {
	if src == nil {
		return nil
	}
	if err := b.beginImport(UserStringsStreamName); err != nil {
		return err
	}
	if len(src.data) > 0 {
		b.data = bytes.Clone(src.data)
	}
	return nil
}

// Append adds s and returns its index.
func (b *UserStringsStreamBuffer) Append(s string) (uint32, error) {
	blob, err := encodeUserString(s)
	if err != nil {
		return 0, err
	}
	b.appended = true
	offset := uint32(len(b.data))
	data, err := WriteCompressedUint(b.data, uint32(len(blob)))
	if err != nil {
		return 0, fmt.Errorf("failed to append user string: %w", err)
	}
	b.data = append(data, blob...)
	return offset, nil
}

// Get returns the user string at index.
func (b *UserStringsStreamBuffer) Get(index uint32) (string, error) {
	return readUserString(b.data, index)
}

// CreateStream returns the finished heap, padded to four bytes.
func (b *UserStringsStreamBuffer) CreateStream() *UserStringsStream {
	return NewUserStringsStream(align4(bytes.Clone(b.data)))
}
