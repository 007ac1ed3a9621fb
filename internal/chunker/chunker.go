// Package chunker splits a local video file into the fixed-size binary chunks the actor
// stores. Chunks are numbered from 1 and are not independently playable.
package chunker

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

type Chunk struct {
	Index    int // 1-based
	Data     []byte
	Checksum string
	Err      error // set on the final value when reading failed
}

type Chunker interface {
	ChunkFile(ctx context.Context, filePath string, chunkSize int) (<-chan Chunk, error)
}

type fileChunker struct{}

func New() Chunker {
	return &fileChunker{}
}

// Count returns how many chunks of chunkSize a file of size bytes splits into.
func Count(size int64, chunkSize int) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + int64(chunkSize) - 1) / int64(chunkSize))
}

func (c *fileChunker) ChunkFile(ctx context.Context, filePath string, chunkSize int) (<-chan Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer f.Close()
		r := bufio.NewReaderSize(f, chunkSize)
		for idx := 1; ; idx++ {
			buf := make([]byte, chunkSize)
			n, err := io.ReadFull(r, buf)
			if n > 0 {
				hash := sha256.Sum256(buf[:n])
				select {
				case out <- Chunk{Index: idx, Data: buf[:n], Checksum: hex.EncodeToString(hash[:])}:
				case <-ctx.Done():
					return
				}
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			if err != nil {
				select {
				case out <- Chunk{Index: idx, Err: err}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return out, nil
}
