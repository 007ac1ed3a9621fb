package video

import (
	"errors"
	"fmt"
	"math"

	"cancan-client/internal/optional"
)

var (
	ErrMissingChunks  = errors.New("missing chunks")
	ErrBufferTooLarge = errors.New("assembled video too large")
)

// Mode selects how absent chunks are treated.
type Mode int

const (
	// Lenient drops absent chunks and concatenates the rest. The result is shorter than the
	// original video and will usually not play cleanly.
	Lenient Mode = iota
	// Strict fails the assembly when any chunk is absent.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

type AssembleOptions struct {
	Mode     Mode
	MaxBytes int64 // unlimited when <= 0
}

// Assembly is a reassembled video buffer.
type Assembly struct {
	Data    []byte
	Present int
	Missing []int // 1-based indexes of absent chunks
}

// Assemble decodes the raw optional chunk results, where results[i] is chunk i+1, and
// concatenates the present payloads in index order.
func Assemble(results [][][]byte, opts AssembleOptions) (Assembly, error) {
	payloads := make([][]byte, len(results))
	var missing []int
	var total int64
	for i, raw := range results {
		chunk, err := optional.Unwrap(raw)
		if err != nil {
			return Assembly{}, fmt.Errorf("chunk %d: %w", i+1, err)
		}
		data, ok := chunk.Get()
		if !ok {
			missing = append(missing, i+1)
			continue
		}
		if total > math.MaxInt64-int64(len(data)) {
			return Assembly{}, ErrBufferTooLarge
		}
		total += int64(len(data))
		payloads[i] = data
	}

	if opts.Mode == Strict && len(missing) > 0 {
		return Assembly{}, fmt.Errorf("%w: %d of %d absent (first %d)", ErrMissingChunks, len(missing), len(results), missing[0])
	}
	if opts.MaxBytes > 0 && total > opts.MaxBytes {
		return Assembly{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrBufferTooLarge, total, opts.MaxBytes)
	}
	if total > math.MaxInt {
		return Assembly{}, ErrBufferTooLarge
	}

	buf := make([]byte, 0, int(total))
	for _, p := range payloads {
		buf = append(buf, p...)
	}
	return Assembly{Data: buf, Present: len(results) - len(missing), Missing: missing}, nil
}
