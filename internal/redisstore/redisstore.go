// Package redisstore keeps client-side state in Redis: cached user profiles and the
// checkpoints that let an interrupted chunked upload resume where it stopped.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cancan-client/internal/actor"
	"cancan-client/internal/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Upload statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Store interface {
	GetProfile(ctx context.Context, key string) (*actor.ProfileInfoPlus, error)
	PutProfile(ctx context.Context, key string, profile actor.ProfileInfoPlus, ttl time.Duration) error
	DeleteProfile(ctx context.Context, key string) error

	// Chunk checkpoints belong to a remote video and remember the checksum sent.
	SetChunkUploaded(ctx context.Context, videoID string, chunkIdx int, checksum string, ttl time.Duration) error
	IsChunkUploaded(ctx context.Context, videoID string, chunkIdx int, checksum string) (bool, error)
	SetUploadStatus(ctx context.Context, uploadID, status string) error
	GetUploadStatus(ctx context.Context, uploadID string) (string, error)
	SetUploadTTL(ctx context.Context, uploadID string, ttl time.Duration) error
	ScanIncompleteUploads(ctx context.Context) ([]string, error)
	// Generic key-value helpers for upload bookkeeping
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string, ttl time.Duration) error
}

type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisStore struct {
	client RedisClient
	log    *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &redisStore{client: client, log: log}
}

// GetProfile returns the cached profile, or nil when none is cached.
func (r *redisStore) GetProfile(ctx context.Context, key string) (*actor.ProfileInfoPlus, error) {
	raw, err := r.client.Get(ctx, "profile:"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p actor.ProfileInfoPlus
	if err := json.Unmarshal(raw, &p); err != nil {
		r.log.Warn("Dropping unreadable cached profile", zap.String("key", key), zap.Error(err))
		_ = r.client.Del(ctx, "profile:"+key).Err()
		return nil, nil
	}
	return &p, nil
}

func (r *redisStore) PutProfile(ctx context.Context, key string, profile actor.ProfileInfoPlus, ttl time.Duration) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return r.client.Set(ctx, "profile:"+key, raw, ttl).Err()
}

func (r *redisStore) DeleteProfile(ctx context.Context, key string) error {
	return r.client.Del(ctx, "profile:"+key).Err()
}

func chunkKey(videoID string, chunkIdx int) string {
	return "chunk_uploaded:" + videoID + ":" + itoa(chunkIdx)
}

func (r *redisStore) SetChunkUploaded(ctx context.Context, videoID string, chunkIdx int, checksum string, ttl time.Duration) error {
	return r.client.Set(ctx, chunkKey(videoID, chunkIdx), checksum, ttl).Err()
}

// IsChunkUploaded reports whether the chunk was sent to videoID with the same checksum.
func (r *redisStore) IsChunkUploaded(ctx context.Context, videoID string, chunkIdx int, checksum string) (bool, error) {
	res, err := r.client.Get(ctx, chunkKey(videoID, chunkIdx)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res == checksum, nil
}

func (r *redisStore) SetUploadStatus(ctx context.Context, uploadID, status string) error {
	return r.client.Set(ctx, "upload_status:"+uploadID, status, 0).Err()
}

// GetUploadStatus returns "" for an unknown upload.
func (r *redisStore) GetUploadStatus(ctx context.Context, uploadID string) (string, error) {
	res, err := r.client.Get(ctx, "upload_status:"+uploadID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return res, err
}

func (r *redisStore) SetUploadTTL(ctx context.Context, uploadID string, ttl time.Duration) error {
	return r.client.Expire(ctx, "upload_status:"+uploadID, ttl).Err()
}

func (r *redisStore) ScanIncompleteUploads(ctx context.Context) ([]string, error) {
	var uploads []string
	iter := r.client.Scan(ctx, 0, "upload_status:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		status, err := r.client.Get(ctx, key).Result()
		if err == nil && status != StatusCompleted {
			uploads = append(uploads, key[len("upload_status:"):])
		}
	}
	return uploads, iter.Err()
}

// GetValue returns "" for a missing key.
func (r *redisStore) GetValue(ctx context.Context, key string) (string, error) {
	res, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return res, err
}

func (r *redisStore) SetValue(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func itoa(i int) string {
	return fmt.Sprintf("%05d", i)
}
