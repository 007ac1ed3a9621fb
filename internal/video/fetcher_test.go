package video

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cancan-client/internal/config"
	"cancan-client/internal/optional"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chunkCall struct {
	videoID string
	index   int
	hash    []string
}

type fakeSource struct {
	mu       sync.Mutex
	chunks   map[int][][]byte
	failures map[int]int // index -> failures before success, -1 fails forever
	delay    func(index int) time.Duration
	barrier  int // when > 0, every call waits until this many calls have arrived
	arrived  int
	release  chan struct{}
	calls    []chunkCall
}

func newFakeSource(chunks map[int][][]byte) *fakeSource {
	return &fakeSource{chunks: chunks, failures: map[int]int{}, release: make(chan struct{})}
}

func (f *fakeSource) GetVideoChunk(ctx context.Context, videoID string, index int, videoHash []string) ([][]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, chunkCall{videoID, index, videoHash})
	f.arrived++
	if f.barrier > 0 && f.arrived == f.barrier {
		close(f.release)
	}
	fail := f.failures[index]
	if fail > 0 {
		f.failures[index] = fail - 1
	}
	f.mu.Unlock()

	if f.barrier > 0 {
		select {
		case <-f.release:
		case <-time.After(2 * time.Second):
			return nil, errors.New("barrier timeout: requests were not issued concurrently")
		}
	}
	if f.delay != nil {
		time.Sleep(f.delay(index))
	}
	if fail != 0 {
		return nil, errors.New("transport error")
	}
	return f.chunks[index], nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() *config.Config {
	return &config.Config{FetchRetries: 0, FetchRetryBackoff: time.Millisecond}
}

func TestFetchZeroChunks(t *testing.T) {
	src := newFakeSource(nil)
	f := NewFetcher(src, testConfig(), zap.NewNop())
	res, err := f.Fetch(context.Background(), "v1", 0, optional.None[string]())
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Equal(t, 0, src.callCount())
}

func TestFetchNegativeCount(t *testing.T) {
	f := NewFetcher(newFakeSource(nil), testConfig(), zap.NewNop())
	_, err := f.Fetch(context.Background(), "v1", -1, optional.None[string]())
	assert.Error(t, err)
}

func TestFetchIssuesEveryIndexWithVariant(t *testing.T) {
	src := newFakeSource(map[int][][]byte{1: {{1}}, 2: {{2}}, 3: {{3}}})
	f := NewFetcher(src, testConfig(), zap.NewNop())
	res, err := f.Fetch(context.Background(), "v1", 3, optional.Some("hash-a"))
	require.NoError(t, err)
	require.Len(t, res, 3)

	seen := map[int]bool{}
	for _, c := range src.calls {
		assert.Equal(t, "v1", c.videoID)
		assert.Equal(t, []string{"hash-a"}, c.hash)
		seen[c.index] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen)
	assert.Equal(t, [][]byte{{1}}, res[0])
	assert.Equal(t, [][]byte{{3}}, res[2])
}

func TestFetchWithoutVariantSendsEmptyOptional(t *testing.T) {
	src := newFakeSource(map[int][][]byte{1: {{1}}})
	f := NewFetcher(src, testConfig(), zap.NewNop())
	_, err := f.Fetch(context.Background(), "v1", 1, optional.None[string]())
	require.NoError(t, err)
	require.Len(t, src.calls, 1)
	assert.NotNil(t, src.calls[0].hash)
	assert.Empty(t, src.calls[0].hash)
}

func TestFetchIsConcurrent(t *testing.T) {
	const n = 16
	chunks := map[int][][]byte{}
	for i := 1; i <= n; i++ {
		chunks[i] = [][]byte{{byte(i)}}
	}
	src := newFakeSource(chunks)
	src.barrier = n
	f := NewFetcher(src, testConfig(), zap.NewNop())
	res, err := f.Fetch(context.Background(), "v1", n, optional.None[string]())
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.Equal(t, [][]byte{{byte(i + 1)}}, res[i])
	}
}

func TestFetchFailureFailsWholeOperation(t *testing.T) {
	src := newFakeSource(map[int][][]byte{1: {{1}}, 3: {{3}}})
	src.failures[2] = -1
	f := NewFetcher(src, testConfig(), zap.NewNop())
	res, err := f.Fetch(context.Background(), "v1", 3, optional.None[string]())
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Nil(t, res)
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	src := newFakeSource(map[int][][]byte{1: {{1}}, 2: {{2}}})
	src.failures[2] = 2
	cfg := testConfig()
	cfg.FetchRetries = 2
	f := NewFetcher(src, cfg, zap.NewNop())
	res, err := f.Fetch(context.Background(), "v1", 2, optional.None[string]())
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{2}}, res[1])
	assert.Equal(t, 4, src.callCount())
}

func TestFetchRetriesAreBounded(t *testing.T) {
	src := newFakeSource(nil)
	src.failures[1] = -1
	cfg := testConfig()
	cfg.FetchRetries = 3
	f := NewFetcher(src, cfg, zap.NewNop())
	_, err := f.Fetch(context.Background(), "v1", 1, optional.None[string]())
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, 4, src.callCount())
}

func TestFetchConcurrencyLimit(t *testing.T) {
	chunks := map[int][][]byte{}
	for i := 1; i <= 6; i++ {
		chunks[i] = [][]byte{{byte(i)}}
	}
	src := newFakeSource(chunks)
	var mu sync.Mutex
	inflight, peak := 0, 0
	src.delay = func(int) time.Duration {
		mu.Lock()
		inflight++
		peak = max(peak, inflight)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inflight--
		mu.Unlock()
		return 0
	}
	cfg := testConfig()
	cfg.FetchConcurrency = 2
	f := NewFetcher(src, cfg, zap.NewNop())
	res, err := f.Fetch(context.Background(), "v1", 6, optional.None[string]())
	require.NoError(t, err)
	assert.Len(t, res, 6)
	assert.LessOrEqual(t, peak, 2)
}

func TestBackoffFor(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoffFor(100*time.Millisecond, 0))
	assert.Equal(t, 400*time.Millisecond, backoffFor(100*time.Millisecond, 2))
	// Large attempt counts must not overflow into negative or zero waits.
	assert.Equal(t, maxBackoff, backoffFor(200*time.Millisecond, 70))
	assert.Equal(t, maxBackoff, backoffFor(time.Hour, 1))
}
