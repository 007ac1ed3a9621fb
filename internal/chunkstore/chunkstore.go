// Package chunkstore reads and writes video chunks directly in S3/MinIO-compatible object
// storage, one object per chunk under <videoID>/chunk-NNNNN. It serves as a chunk source
// when the actor's chunks are mirrored to a bucket.
package chunkstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"cancan-client/internal/actor"
	"cancan-client/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// User metadata keys. hashMetaKey holds a chunk's content variant and is set by whatever
// mirrors variant chunks into the bucket. sumMetaKey holds the sha256 of the chunk bytes.
const (
	hashMetaKey = "Video-Hash"
	sumMetaKey  = "Chunk-Sha256"
)

var ErrCorruptChunk = errors.New("chunk checksum mismatch")

// objectAPI is the part of the MinIO client the store uses (for mocking in tests).
type objectAPI interface {
	PutObject(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucket, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

type minioObjects struct {
	*minio.Client
}

func (m minioObjects) GetObject(ctx context.Context, bucket, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return m.Client.GetObject(ctx, bucket, objectName, opts)
}

type Store struct {
	client objectAPI
	bucket string
	log    *zap.Logger
}

var (
	_ actor.ChunkSource = (*Store)(nil)
	_ actor.ChunkSink   = (*Store)(nil)
)

func New(cfg *config.Config, log *zap.Logger) (*Store, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Store{client: minioObjects{client}, bucket: cfg.MinioBucket, log: log}, nil
}

// GetVideoChunk returns the chunk as an optional payload. A missing object, or one whose
// variant differs from the requested videoHash, is absent.
func (s *Store) GetVideoChunk(ctx context.Context, videoID string, index int, videoHash []string) ([][]byte, error) {
	if len(videoHash) > 1 {
		return nil, fmt.Errorf("video hash must hold at most one element, got %d", len(videoHash))
	}
	name := objectName(videoID, index)
	info, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return [][]byte{}, nil
		}
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if len(videoHash) == 1 {
		if got := userMeta(info.UserMetadata, hashMetaKey); got != videoHash[0] {
			s.log.Debug("Chunk variant mismatch", zap.String("object", name), zap.String("want", videoHash[0]), zap.String("got", got))
			return [][]byte{}, nil
		}
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return [][]byte{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if info.Size >= 0 && int64(len(data)) != info.Size {
		return nil, fmt.Errorf("read %s: got %d bytes, object has %d", name, len(data), info.Size)
	}
	// Objects written by other tools may carry no checksum.
	if want := userMeta(info.UserMetadata, sumMetaKey); want != "" && want != checksum(data) {
		return nil, fmt.Errorf("read %s: %w", name, ErrCorruptChunk)
	}
	return [][]byte{data}, nil
}

// PutVideoChunk stores the chunk with its sha256 so later reads can detect corruption.
func (s *Store) PutVideoChunk(ctx context.Context, videoID string, index int, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName(videoID, index), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: map[string]string{sumMetaKey: checksum(data)},
	})
	return err
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func objectName(videoID string, index int) string {
	return fmt.Sprintf("%s/chunk-%05d", videoID, index)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

func userMeta(meta map[string]string, key string) string {
	if v, ok := meta[key]; ok {
		return v
	}
	for k, v := range meta {
		if strings.EqualFold(k, key) || strings.EqualFold(k, "X-Amz-Meta-"+key) {
			return v
		}
	}
	return ""
}
