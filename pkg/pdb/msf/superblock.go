// Package msf reads Microsoft's Multi-Stream Format (MSF) container, the
// outer layer of a PDB file.
package msf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Magic is the MSF 7.00 file signature.
var Magic = []byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00")

// ErrFormat is returned for input that is not a well-formed MSF file.
var ErrFormat = errors.New("invalid MSF file")

// SuperBlock is the header at the start of an MSF file.
type SuperBlock struct {
	Magic             [32]byte
	BlockSize         uint32 // 512, 1024, 2048 or 4096
	FreeBlockMapBlock uint32 // active FPM block, 1 or 2
	NumBlocks         uint32
	NumDirectoryBytes uint32
	Unknown           uint32
	BlockMapAddr      uint32 // block holding the directory block list
}

// SuperBlockSize is the encoded size of a SuperBlock.
const SuperBlockSize = 56

// ValidBlockSizes are the block sizes an MSF file may use.
var ValidBlockSizes = []uint32{512, 1024, 2048, 4096}

// ReadSuperBlock reads and validates the SuperBlock.
func ReadSuperBlock(r io.Reader) (*SuperBlock, error) {
	var sb SuperBlock
	if err := binary.Read(r, binary.LittleEndian, &sb); err != nil {
		return nil, fmt.Errorf("failed to read superblock: %w", err)
	}
	if err := sb.Validate(); err != nil {
		return nil, err
	}
	return &sb, nil
}

// Validate checks the signature and the fields the reader depends on.
func (sb *SuperBlock) Validate() error {
	if !bytes.Equal(sb.Magic[:], Magic) {
		return fmt.Errorf("%w: bad magic", ErrFormat)
	}
	if !slices.Contains(ValidBlockSizes, sb.BlockSize) {
		return fmt.Errorf("%w: block size %d", ErrFormat, sb.BlockSize)
	}
	if sb.FreeBlockMapBlock != 1 && sb.FreeBlockMapBlock != 2 {
		return fmt.Errorf("%w: free block map block %d (must be 1 or 2)", ErrFormat, sb.FreeBlockMapBlock)
	}
	if sb.BlockMapAddr >= sb.NumBlocks {
		return fmt.Errorf("%w: block map address %d beyond %d blocks", ErrFormat, sb.BlockMapAddr, sb.NumBlocks)
	}
	return nil
}

// NumDirectoryBlocks returns the number of blocks holding the stream
// directory.
func (sb *SuperBlock) NumDirectoryBlocks() uint32 {
	return (sb.NumDirectoryBytes + sb.BlockSize - 1) / sb.BlockSize
}

// FileSize returns the file size implied by the block count.
func (sb *SuperBlock) FileSize() int64 {
	return int64(sb.NumBlocks) * int64(sb.BlockSize)
}
