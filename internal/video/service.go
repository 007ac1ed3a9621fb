package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cancan-client/internal/actor"
	"cancan-client/internal/config"
	"cancan-client/internal/mediatype"
	"cancan-client/internal/metrics"
	"cancan-client/internal/optional"
	"cancan-client/internal/playback"

	"go.uber.org/zap"
)

var ErrTooManyChunks = errors.New("chunk count exceeds limit")

// HandleProducer registers an assembled buffer for playback.
type HandleProducer interface {
	Create(data []byte, mimeType optional.Value[string]) (playback.Handle, error)
}

// Service runs the fetch, assemble, resolve and register pipeline.
type Service struct {
	fetcher   *Fetcher
	handles   HandleProducer
	opts      AssembleOptions
	maxChunks int
	log       *zap.Logger
}

func NewService(fetcher *Fetcher, handles HandleProducer, cfg *config.Config, log *zap.Logger) *Service {
	mode := Lenient
	if cfg.StrictAssembly {
		mode = Strict
	}
	return &Service{
		fetcher:   fetcher,
		handles:   handles,
		opts:      AssembleOptions{Mode: mode, MaxBytes: cfg.MaxBufferBytes},
		maxChunks: cfg.MaxChunks,
		log:       log,
	}
}

// AssembleVideo fetches every chunk of info, joins them and returns a playback handle.
// The caller owns the handle and must revoke it. No handle is created on error.
func (s *Service) AssembleVideo(ctx context.Context, info actor.VideoInfo, variant optional.Value[string]) (playback.Handle, error) {
	start := time.Now()
	h, err := s.assemble(ctx, info, variant)
	if err != nil {
		metrics.AssemblyFailures.Inc()
		s.log.Error("Video assembly failed", zap.String("video_id", info.VideoID), zap.Error(err))
		return playback.Handle{}, err
	}
	metrics.VideosAssembled.Inc()
	metrics.AssemblyDuration.Observe(time.Since(start).Seconds())
	s.log.Info("Video assembled",
		zap.String("video_id", info.VideoID), zap.String("url", h.URL),
		zap.String("mime_type", h.MIMEType), zap.Int("size", h.Size),
		zap.Duration("took", time.Since(start)))
	return h, nil
}

func (s *Service) assemble(ctx context.Context, info actor.VideoInfo, variant optional.Value[string]) (playback.Handle, error) {
	n, err := info.ChunkCount.Int()
	if err != nil {
		return playback.Handle{}, fmt.Errorf("video %s: %w", info.VideoID, err)
	}
	if s.maxChunks > 0 && n > s.maxChunks {
		return playback.Handle{}, fmt.Errorf("%w: video %s declares %d, limit %d", ErrTooManyChunks, info.VideoID, n, s.maxChunks)
	}
	s.log.Debug("Fetching video chunks",
		zap.String("video_id", info.VideoID), zap.Int("chunk_count", n), zap.Stringer("variant", variant))

	results, err := s.fetcher.Fetch(ctx, info.VideoID, n, variant)
	if err != nil {
		return playback.Handle{}, err
	}
	asm, err := Assemble(results, s.opts)
	if err != nil {
		return playback.Handle{}, fmt.Errorf("video %s: %w", info.VideoID, err)
	}
	if len(asm.Missing) > 0 {
		metrics.MissingChunks.Add(float64(len(asm.Missing)))
		s.log.Warn("Video assembled with missing chunks",
			zap.String("video_id", info.VideoID), zap.Ints("missing", asm.Missing), zap.Int("present", asm.Present))
	}

	mimeType := optional.None[string]()
	if t, ok := mediatype.Resolve(info.Name); ok {
		mimeType = optional.Some(t)
	}
	return s.handles.Create(asm.Data, mimeType)
}
