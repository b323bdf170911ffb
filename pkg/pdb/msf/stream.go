package msf

import (
	"fmt"
	"io"
)

// Stream is a single stream of an MSF file, stored in possibly
// non-contiguous blocks.
type Stream struct {
	msf    *MSF
	size   uint32
	blocks []uint32
}

func (s *Stream) Size() uint32 { return s.size }

func (s *Stream) Blocks() []uint32 { return s.blocks }

// ReadAt implements io.ReaderAt over the logical stream contents.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(s.size) {
		return 0, io.EOF
	}

	blockSize := int64(s.msf.superBlock.BlockSize)
	total := 0
	for len(p) > 0 && off < int64(s.size) {
		idx := int(off / blockSize)
		if idx >= len(s.blocks) {
			return total, fmt.Errorf("%w: stream offset %d has no block", ErrFormat, off)
		}
		inBlock := off % blockSize
		n := min(int64(len(p)), blockSize-inBlock, int64(s.size)-off)

		base, err := s.msf.blockOffset(s.blocks[idx])
		if err != nil {
			return total, err
		}
		read, err := s.msf.r.ReadAt(p[:n], base+inBlock)
		total += read
		off += int64(read)
		p = p[read:]
		if err != nil && err != io.EOF {
			return total, err
		}
		if int64(read) < n {
			return total, io.ErrUnexpectedEOF
		}
	}
	if len(p) > 0 {
		return total, io.EOF
	}
	return total, nil
}

// ReadAll reads the entire stream.
func (s *Stream) ReadAll() ([]byte, error) {
	data := make([]byte, s.size)
	if _, err := s.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return data, nil
}

// StreamReader gives sequential, seekable access to a stream.
type StreamReader struct {
	*io.SectionReader
}

// NewStreamReader creates a reader positioned at the start of s.
func NewStreamReader(s *Stream) *StreamReader {
	return &StreamReader{io.NewSectionReader(s, 0, int64(s.size))}
}

// StreamDirectory is the decoded directory of all streams.
type StreamDirectory struct {
	NumStreams   uint32
	StreamSizes  []uint32
	StreamBlocks [][]uint32
}
