package msf

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"
)

func TestBuildAndRead(t *testing.T) {
	large := bytes.Repeat([]byte{0xAB, 0xCD}, 700) // spans three 512-byte blocks
	streams := [][]byte{nil, []byte("info"), large}

	img, err := Build(512, streams)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m, err := New(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	if m.NumStreams() != 3 {
		t.Fatalf("NumStreams = %d", m.NumStreams())
	}
	for i, want := range streams {
		got, err := m.ReadStream(i)
		if err != nil {
			t.Fatalf("ReadStream(%d): %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("stream %d mismatch: got %d bytes, want %d", i, len(got), len(want))
		}
	}

	// Build places the directory in block 4 and the streams after it.
	s, err := m.Stream(2)
	if err != nil {
		t.Fatalf("Stream(2): %v", err)
	}
	if got := s.Blocks(); !slices.Equal(got, []uint32{6, 7, 8}) || s.Size() != uint32(len(large)) {
		t.Errorf("stream 2 blocks = %v, size %d", got, s.Size())
	}

	r, err := m.StreamReader(2)
	if err != nil {
		t.Fatalf("StreamReader: %v", err)
	}
	if _, err := r.Seek(510, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("read across block boundary: %v", err)
	}
	if !bytes.Equal(buf, []byte{0xAB, 0xCD, 0xAB, 0xCD}) {
		t.Errorf("cross-block read = %x", buf)
	}

	if _, err := m.Stream(3); err == nil {
		t.Errorf("expected out of range error")
	}
}

func TestRejectsBadMagic(t *testing.T) {
	img, err := Build(512, [][]byte{[]byte("x")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	img[0] = 'X'
	if _, err := New(bytes.NewReader(img)); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestRejectsBadBlockSize(t *testing.T) {
	if _, err := Build(100, nil); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v", err)
	}
}
