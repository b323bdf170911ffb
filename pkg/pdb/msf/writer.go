package msf

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// Build lays out streams into a new MSF image. Block 0 holds the
// superblock, blocks 1 and 2 the free block maps, block 3 the directory
// block list, followed by the directory and then each stream in order.
func Build(blockSize uint32, streams [][]byte) ([]byte, error) {
	if !slices.Contains(ValidBlockSizes, blockSize) {
		return nil, fmt.Errorf("%w: block size %d", ErrFormat, blockSize)
	}
	bs := int(blockSize)
	blocksFor := func(n int) int { return (n + bs - 1) / bs }

	next := uint32(4)
	streamBlocks := make([][]uint32, len(streams))
	dirSize := 4 + 4*len(streams)
	for i, s := range streams {
		n := blocksFor(len(s))
		dirSize += 4 * n
		streamBlocks[i] = make([]uint32, n)
	}
	dirBlocksNeeded := blocksFor(dirSize)
	if dirBlocksNeeded*4 > bs {
		return nil, fmt.Errorf("%w: directory of %d bytes does not fit one block map", ErrFormat, dirSize)
	}

	dirBlocks := make([]uint32, dirBlocksNeeded)
	for i := range dirBlocks {
		dirBlocks[i] = next
		next++
	}
	for i := range streamBlocks {
		for j := range streamBlocks[i] {
			streamBlocks[i][j] = next
			next++
		}
	}

	out := make([]byte, int(next)*bs)
	putBlock := func(block uint32, data []byte) {
		copy(out[int(block)*bs:], data)
	}

	sb := out[:SuperBlockSize]
	copy(sb, Magic)
	le := binary.LittleEndian
	le.PutUint32(sb[32:], blockSize)
	le.PutUint32(sb[36:], 1)
	le.PutUint32(sb[40:], next)
	le.PutUint32(sb[44:], uint32(dirSize))
	le.PutUint32(sb[52:], 3)

	blockMap := make([]byte, 0, 4*len(dirBlocks))
	for _, b := range dirBlocks {
		blockMap = le.AppendUint32(blockMap, b)
	}
	putBlock(3, blockMap)

	dir := make([]byte, 0, dirSize)
	dir = le.AppendUint32(dir, uint32(len(streams)))
	for _, s := range streams {
		dir = le.AppendUint32(dir, uint32(len(s)))
	}
	for _, list := range streamBlocks {
		for _, b := range list {
			dir = le.AppendUint32(dir, b)
		}
	}
	for i, b := range dirBlocks {
		end := min((i+1)*bs, len(dir))
		putBlock(b, dir[i*bs:end])
	}

	for i, s := range streams {
		for j, b := range streamBlocks[i] {
			end := min((j+1)*bs, len(s))
			putBlock(b, s[j*bs:end])
		}
	}
	return out, nil
}
