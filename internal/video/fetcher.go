// Package video fetches a chunked video from the actor, reassembles it in index order and
// turns the result into a playback handle.
package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cancan-client/internal/actor"
	"cancan-client/internal/config"
	"cancan-client/internal/metrics"
	"cancan-client/internal/optional"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrFetchFailed = errors.New("chunk fetch failed")

// maxBackoff caps the wait between retries of one chunk.
const maxBackoff = 30 * time.Second

// Fetcher requests every chunk of a video concurrently.
type Fetcher struct {
	source  actor.ChunkSource
	retries int
	backoff time.Duration
	limit   int
	log     *zap.Logger
}

func NewFetcher(source actor.ChunkSource, cfg *config.Config, log *zap.Logger) *Fetcher {
	return &Fetcher{
		source:  source,
		retries: max(cfg.FetchRetries, 0),
		backoff: cfg.FetchRetryBackoff,
		limit:   cfg.FetchConcurrency,
		log:     log,
	}
}

// Fetch requests chunks 1..n of videoID and returns the raw optional results, where
// results[i] holds chunk i+1. Requests are issued in ascending index order without
// waiting on each other. If any chunk fails after its retries the whole fetch fails and
// no results are returned.
func (f *Fetcher) Fetch(ctx context.Context, videoID string, n int, variant optional.Value[string]) ([][][]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative chunk count %d", n)
	}
	results := make([][][]byte, n)
	if n == 0 {
		return results, nil
	}
	hash := optional.Encode(variant)

	g, gctx := errgroup.WithContext(ctx)
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}
	for i := 1; i <= n; i++ {
		g.Go(func() error {
			res, err := f.fetchChunk(gctx, videoID, i, hash)
			if err != nil {
				return fmt.Errorf("chunk %d of %s: %w", i, videoID, err)
			}
			results[i-1] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return results, nil
}

func (f *Fetcher) fetchChunk(ctx context.Context, videoID string, index int, hash []string) ([][]byte, error) {
	for attempt := 0; ; attempt++ {
		start := time.Now()
		res, err := f.source.GetVideoChunk(ctx, videoID, index, hash)
		metrics.ChunkFetchDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.ChunksFetched.Inc()
			return res, nil
		}
		metrics.ChunkFetchFailures.Inc()
		if attempt >= f.retries || ctx.Err() != nil {
			return nil, err
		}
		wait := backoffFor(f.backoff, attempt)
		f.log.Warn("Chunk fetch failed, retrying",
			zap.String("video_id", videoID), zap.Int("chunk", index),
			zap.Int("attempt", attempt+1), zap.Duration("backoff", wait), zap.Error(err))
		metrics.ChunkFetchRetries.Inc()
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, err
		case <-t.C:
		}
	}
}

// backoffFor doubles base per attempt, capped at maxBackoff.
func backoffFor(base time.Duration, attempt int) time.Duration {
	wait := base
	for i := 0; i < attempt && wait < maxBackoff; i++ {
		wait *= 2
	}
	return min(wait, maxBackoff)
}
