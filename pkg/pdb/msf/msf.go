package msf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// unusedStream is the size recorded for a deleted stream.
const unusedStream = 0xFFFFFFFF

// MSF is an opened MSF container.
type MSF struct {
	r          io.ReaderAt
	closer     io.Closer
	superBlock *SuperBlock
	directory  *StreamDirectory
	streams    []*Stream
}

// Open opens an MSF file on disk.
func Open(path string) (*MSF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	m, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	m.closer = f
	return m, nil
}

// New parses an MSF container from r.
func New(r io.ReaderAt) (*MSF, error) {
	sb, err := ReadSuperBlock(io.NewSectionReader(r, 0, SuperBlockSize))
	if err != nil {
		return nil, err
	}

	m := &MSF{r: r, superBlock: sb}
	if err := m.readStreamDirectory(); err != nil {
		return nil, fmt.Errorf("failed to read stream directory: %w", err)
	}
	m.buildStreams()
	return m, nil
}

// Close closes the underlying file when the container was opened by path.
func (m *MSF) Close() error {
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

func (m *MSF) SuperBlock() *SuperBlock { return m.superBlock }

func (m *MSF) BlockSize() uint32 { return m.superBlock.BlockSize }

// NumStreams returns the number of streams in the directory.
func (m *MSF) NumStreams() int {
	return len(m.streams)
}

// Stream returns the stream at index.
func (m *MSF) Stream(index int) (*Stream, error) {
	if index < 0 || index >= len(m.streams) {
		return nil, fmt.Errorf("stream index %d out of range [0, %d)", index, len(m.streams))
	}
	return m.streams[index], nil
}

// StreamReader returns a sequential reader over the stream at index.
func (m *MSF) StreamReader(index int) (*StreamReader, error) {
	s, err := m.Stream(index)
	if err != nil {
		return nil, err
	}
	return NewStreamReader(s), nil
}

// ReadStream returns the full contents of the stream at index.
func (m *MSF) ReadStream(index int) ([]byte, error) {
	s, err := m.Stream(index)
	if err != nil {
		return nil, err
	}
	return s.ReadAll()
}

func (m *MSF) blockOffset(block uint32) (int64, error) {
	if block >= m.superBlock.NumBlocks {
		return 0, fmt.Errorf("%w: block %d beyond %d blocks", ErrFormat, block, m.superBlock.NumBlocks)
	}
	return int64(block) * int64(m.superBlock.BlockSize), nil
}

func (m *MSF) readStreamDirectory() error {
	blockSize := m.superBlock.BlockSize
	numDirBlocks := m.superBlock.NumDirectoryBlocks()
	if numDirBlocks*4 > blockSize {
		return fmt.Errorf("%w: directory needs %d blocks", ErrFormat, numDirBlocks)
	}

	mapOffset, err := m.blockOffset(m.superBlock.BlockMapAddr)
	if err != nil {
		return err
	}
	blockMap := make([]uint32, numDirBlocks)
	if err := binary.Read(io.NewSectionReader(m.r, mapOffset, int64(blockSize)), binary.LittleEndian, blockMap); err != nil {
		return fmt.Errorf("failed to read block map: %w", err)
	}

	dirData := make([]byte, m.superBlock.NumDirectoryBytes)
	read := 0
	for _, block := range blockMap {
		off, err := m.blockOffset(block)
		if err != nil {
			return err
		}
		n := min(int(blockSize), len(dirData)-read)
		if _, err := m.r.ReadAt(dirData[read:read+n], off); err != nil {
			return fmt.Errorf("failed to read directory block %d: %w", block, err)
		}
		read += n
	}

	dir, err := parseStreamDirectory(dirData, blockSize)
	if err != nil {
		return err
	}
	m.directory = dir
	return nil
}

func parseStreamDirectory(data []byte, blockSize uint32) (*StreamDirectory, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: directory truncated", ErrFormat)
	}
	numStreams := binary.LittleEndian.Uint32(data)
	offset := 4
	if uint64(numStreams)*4 > uint64(len(data)-offset) {
		return nil, fmt.Errorf("%w: %d stream sizes exceed directory", ErrFormat, numStreams)
	}

	sizes := make([]uint32, numStreams)
	for i := range sizes {
		sizes[i] = binary.LittleEndian.Uint32(data[offset:])
		offset += 4
	}

	blocks := make([][]uint32, numStreams)
	for i, size := range sizes {
		if size == unusedStream {
			continue
		}
		n := int((size + blockSize - 1) / blockSize)
		if offset+4*n > len(data) {
			return nil, fmt.Errorf("%w: block list of stream %d truncated", ErrFormat, i)
		}
		list := make([]uint32, n)
		for j := range list {
			list[j] = binary.LittleEndian.Uint32(data[offset:])
			offset += 4
		}
		blocks[i] = list
	}

	return &StreamDirectory{
		NumStreams:   numStreams,
		StreamSizes:  sizes,
		StreamBlocks: blocks,
	}, nil
}

func (m *MSF) buildStreams() {
	m.streams = make([]*Stream, m.directory.NumStreams)
	for i, size := range m.directory.StreamSizes {
		if size == unusedStream {
			size = 0
		}
		m.streams[i] = &Stream{msf: m, size: size, blocks: m.directory.StreamBlocks[i]}
	}
}
