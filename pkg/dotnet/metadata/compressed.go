// Package metadata reads and builds the ECMA-335 metadata directory: the
// metadata root, the #Strings, #US, #GUID and #Blob heaps, and a minimal
// #~ tables stream.
package metadata

import (
	"errors"
	"fmt"
)

// MaxCompressedUint is the largest value a compressed integer can hold.
const MaxCompressedUint = 0x1FFFFFFF

var (
	// ErrIndexOutOfRange is returned for a heap index past the end of the
	// heap or one that does not start a well-formed entry.
	ErrIndexOutOfRange = errors.New("heap index out of range")

	// ErrImportOrder is returned when a heap buffer is imported into twice
	// or after content was appended to it.
	ErrImportOrder = errors.New("heap import must precede every append")

	// ErrFormat is returned for malformed metadata.
	ErrFormat = errors.New("invalid metadata")
)

// WriteCompressedUint appends v in the ECMA-335 II.23.2 compressed form:
// one byte below 0x80, two bytes below 0x4000, four bytes otherwise.
func WriteCompressedUint(b []byte, v uint32) ([]byte, error) {
	switch {
	case v < 0x80:
		return append(b, byte(v)), nil
	case v < 0x4000:
		return append(b, byte(v>>8)|0x80, byte(v)), nil
	case v <= MaxCompressedUint:
		return append(b, byte(v>>24)|0xC0, byte(v>>16), byte(v>>8), byte(v)), nil
	default:
		return b, fmt.Errorf("value 0x%X exceeds compressed integer range", v)
	}
}

// ReadCompressedUint decodes a compressed integer from the start of b and
// returns it with the number of bytes consumed.
func ReadCompressedUint(b []byte) (uint32, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("%w: empty compressed integer", ErrFormat)
	}
	switch first := b[0]; {
	case first&0x80 == 0:
		return uint32(first), 1, nil
	case first&0xC0 == 0x80:
		if len(b) < 2 {
			return 0, 0, fmt.Errorf("%w: truncated compressed integer", ErrFormat)
		}
		return uint32(first&0x3F)<<8 | uint32(b[1]), 2, nil
	case first&0xE0 == 0xC0:
		if len(b) < 4 {
			return 0, 0, fmt.Errorf("%w: truncated compressed integer", ErrFormat)
		}
		return uint32(first&0x1F)<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), 4, nil
	default:
		return 0, 0, fmt.Errorf("%w: invalid compressed integer prefix 0x%02X", ErrFormat, first)
	}
}

// align4 pads b with zeros to a multiple of four bytes.
func align4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}
