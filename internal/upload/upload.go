// Package upload pushes a local video file to the actor as a chunked video: it creates the
// video record, sends every chunk in order and attaches a thumbnail when one sits next to
// the file. Progress is checkpointed in Redis so an interrupted upload resumes without
// resending chunks the actor already has.
package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cancan-client/internal/actor"
	"cancan-client/internal/chunker"
	"cancan-client/internal/config"
	"cancan-client/internal/metrics"
	"cancan-client/internal/redisstore"

	"go.uber.org/zap"
)

const checkpointTTL = 7 * 24 * time.Hour

var (
	ErrEmptyFile   = errors.New("video file is empty")
	ErrFileChanged = errors.New("video file changed during upload")
)

// VideoAPI is the part of the client an upload needs.
type VideoAPI interface {
	CreateVideo(ctx context.Context, init actor.VideoInit) (string, error)
	PutVideoChunk(ctx context.Context, videoID string, chunkNum int, data []byte) error
	PutVideoPic(ctx context.Context, videoID string, pic []byte) error
}

// Meta is the user-supplied description of an upload.
type Meta struct {
	Caption string
	Tags    []string
}

type Uploader struct {
	api       VideoAPI
	store     redisstore.Store
	chunker   chunker.Chunker
	chunkSize int
	log       *zap.Logger
	nowFunc   func() time.Time
}

func New(api VideoAPI, store redisstore.Store, cfg *config.Config, log *zap.Logger) *Uploader {
	return &Uploader{
		api:       api,
		store:     store,
		chunker:   chunker.New(),
		chunkSize: cfg.ChunkSize,
		log:       log,
		nowFunc:   time.Now,
	}
}

// UploadFile uploads the video at path for userID and returns the actor's video id.
// A file already uploaded with the same content is not sent again.
//
// Chunks go out sequentially in index order. A chunk that fails aborts the upload: the
// remote video would otherwise be missing a piece. Rerunning resumes after the last
// checkpointed chunk. Checkpoints belong to the remote video, so a newly created video
// always receives every chunk.
func (u *Uploader) UploadFile(ctx context.Context, userID, path string, meta Meta) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	n := chunker.Count(info.Size(), u.chunkSize)
	if n == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}
	uploadID, err := ID(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	name := filepath.Base(path)
	videoKey := VideoKey(uploadID)
	log := u.log.With(zap.String("file", path), zap.String("upload_id", uploadID))

	status, err := u.store.GetUploadStatus(ctx, uploadID)
	if err != nil {
		metrics.RedisErrors.Inc()
		log.Warn("Redis error reading upload status", zap.Error(err))
	}
	videoID, err := u.store.GetValue(ctx, videoKey)
	if err != nil {
		metrics.RedisErrors.Inc()
		log.Warn("Redis error reading upload video id", zap.Error(err))
		videoID = ""
	}
	if status == redisstore.StatusCompleted && videoID != "" {
		log.Info("File already uploaded and hash unchanged, skipping", zap.String("video_id", videoID))
		return videoID, nil
	}

	if videoID == "" {
		videoID, err = u.api.CreateVideo(ctx, actor.VideoInit{
			UserID:     userID,
			Name:       name,
			CreatedAt:  u.nowFunc().UnixNano(),
			Caption:    meta.Caption,
			Tags:       meta.Tags,
			ChunkCount: actor.Nat(n),
		})
		if err != nil {
			metrics.UploadFailures.Inc()
			return "", fmt.Errorf("create video for %s: %w", name, err)
		}
		if err := u.store.SetValue(ctx, videoKey, videoID, checkpointTTL); err != nil {
			metrics.RedisErrors.Inc()
			log.Warn("Redis error saving upload video id", zap.Error(err))
		}
		log.Info("Created video", zap.String("video_id", videoID), zap.Int("chunk_count", n))
	}
	if err := u.store.SetUploadStatus(ctx, uploadID, redisstore.StatusInProgress); err != nil {
		metrics.RedisErrors.Inc()
	}
	if err := u.store.SetUploadTTL(ctx, uploadID, checkpointTTL); err != nil {
		log.Warn("Failed to set upload TTL", zap.Error(err))
	}

	if err := u.sendChunks(ctx, log, videoID, path, n); err != nil {
		metrics.UploadFailures.Inc()
		return "", err
	}
	if err := u.sendThumbnail(ctx, videoID, path); err != nil {
		log.Warn("Thumbnail upload failed", zap.Error(err))
	}

	// The status and the video id expire together so a completed upload is never
	// left without its video.
	if err := u.store.SetUploadStatus(ctx, uploadID, redisstore.StatusCompleted); err != nil {
		metrics.RedisErrors.Inc()
	}
	if err := u.store.SetUploadTTL(ctx, uploadID, checkpointTTL); err != nil {
		log.Warn("Failed to set upload TTL", zap.Error(err))
	}
	if err := u.store.SetValue(ctx, videoKey, videoID, checkpointTTL); err != nil {
		metrics.RedisErrors.Inc()
		log.Warn("Redis error refreshing upload video id", zap.Error(err))
	}
	log.Info("Upload complete", zap.String("video_id", videoID), zap.Int("chunk_count", n))
	return videoID, nil
}

// sendChunks sends the n chunks declared for videoID. A file that no longer splits into
// exactly n chunks fails with ErrFileChanged.
func (u *Uploader) sendChunks(ctx context.Context, log *zap.Logger, videoID, path string, n int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	chunks, err := u.chunker.ChunkFile(ctx, path, u.chunkSize)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", path, err)
	}
	sent := 0
	for chunk := range chunks {
		if chunk.Err != nil {
			return fmt.Errorf("read chunk %d of %s: %w", chunk.Index, path, chunk.Err)
		}
		if chunk.Index > n {
			return fmt.Errorf("%w: %s has more than %d chunks", ErrFileChanged, path, n)
		}
		sent = chunk.Index
		uploaded, err := u.store.IsChunkUploaded(ctx, videoID, chunk.Index, chunk.Checksum)
		if err != nil {
			log.Error("Redis error", zap.Error(err))
			metrics.RedisErrors.Inc()
		}
		if uploaded {
			log.Debug("Chunk already uploaded, skipping", zap.Int("chunk", chunk.Index))
			continue
		}
		if err := u.api.PutVideoChunk(ctx, videoID, chunk.Index, chunk.Data); err != nil {
			return fmt.Errorf("put chunk %d of %s: %w", chunk.Index, videoID, err)
		}
		if err := u.store.SetChunkUploaded(ctx, videoID, chunk.Index, chunk.Checksum, checkpointTTL); err != nil {
			log.Error("Redis set chunk uploaded failed", zap.Error(err))
			metrics.RedisErrors.Inc()
		}
		metrics.ChunksUploaded.Inc()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if sent != n {
		return fmt.Errorf("%w: %s has %d chunks, declared %d", ErrFileChanged, path, sent, n)
	}
	return nil
}

// sendThumbnail uploads <name>.jpg or <name>.png from next to the video, if present.
func (u *Uploader) sendThumbnail(ctx context.Context, videoID, path string) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".jpg", ".jpeg", ".png"} {
		pic, err := os.ReadFile(base + ext)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		return u.api.PutVideoPic(ctx, videoID, pic)
	}
	return nil
}

// ID names the upload of the file at path. Two files with the same name and content
// share an ID, so a re-uploaded or re-detected file resumes instead of starting over.
func ID(path string) (string, error) {
	hash, err := FileHash(path)
	if err != nil {
		return "", err
	}
	return filepath.Base(path) + ":" + hash, nil
}

// VideoKey is the Redis key holding the actor video id created for uploadID.
func VideoKey(uploadID string) string {
	return "upload_video:" + uploadID
}

// FileHash returns a short hash of the file contents (SHA256 hex, first 16 chars).
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.CopyN(h, f, 10*1024*1024); err != nil && !errors.Is(err, io.EOF) { // Only hash first 10MB for speed
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}
