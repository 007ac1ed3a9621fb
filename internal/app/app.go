// Package app wires the client together and runs it until shutdown.
//
// Run starts the metrics endpoint, connects the actor and the chunk backend, serves the
// HTTP API with its playback handles and, when an upload inbox is configured, watches it
// and uploads new videos with a pool of workers.
//
// Example usage:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	cfg := config.Load()
//	log := logger.New(cfg.LogLevel)
//	err := app.Run(ctx, cfg, log)
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cancan-client/internal/actor"
	"cancan-client/internal/api"
	"cancan-client/internal/chunkstore"
	"cancan-client/internal/client"
	"cancan-client/internal/config"
	"cancan-client/internal/metrics"
	"cancan-client/internal/playback"
	"cancan-client/internal/redisstore"
	"cancan-client/internal/rpcactor"
	"cancan-client/internal/upload"
	"cancan-client/internal/video"
	"cancan-client/internal/watcher"

	"go.uber.org/zap"
)

var (
	ErrUnknownBackend = errors.New("unknown chunk backend")
	ErrNoUploadUser   = errors.New("UPLOAD_USER_ID is required when WATCH_DIR is set")
)

type fileUploader interface {
	UploadFile(ctx context.Context, userID, path string, meta upload.Meta) (string, error)
}

// uploadTarget sends video records through the client and chunks to the configured sink,
// so uploaded chunks land where playback reads them from.
type uploadTarget struct {
	*client.Client
	sink actor.ChunkSink
}

func (t uploadTarget) PutVideoChunk(ctx context.Context, videoID string, chunkNum int, data []byte) error {
	return t.sink.PutVideoChunk(ctx, videoID, chunkNum, data)
}

// Run blocks until ctx is done. Playback handles still open at shutdown are revoked.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	metrics.Init(cfg.PrometheusPort, func(err error) {
		log.Error("Metrics server error", zap.Error(err))
	})
	log.Info("Starting cancan client",
		zap.String("actor_url", cfg.ActorURL),
		zap.String("chunk_backend", cfg.ChunkBackend),
		zap.String("http_addr", cfg.HTTPAddr))

	actorClient := rpcactor.New(cfg, log)
	source, sink, err := chunkBackend(cfg, actorClient, log)
	if err != nil {
		return err
	}

	registry := playback.NewRegistry(cfg.PublicBaseURL, log)
	defer registry.RevokeAll()

	fetcher := video.NewFetcher(source, cfg, log)
	videos := video.NewService(fetcher, registry, cfg, log)
	store := redisstore.New(cfg, log)
	cl := client.New(actorClient, store, videos, cfg, log)

	srv := api.NewServer(cfg.HTTPAddr, cl, registry, log)
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		if err := srv.Stop(); err != nil {
			log.Warn("API server stop failed", zap.Error(err))
		}
	}()

	var wg sync.WaitGroup
	if cfg.WatchDir != "" {
		if cfg.UploadUserID == "" {
			return ErrNoUploadUser
		}
		reportIncompleteUploads(ctx, store, log)

		fileCh := make(chan string, 100)
		w := watcher.New(cfg, log, fileCh, store)
		go func() {
			if err := w.Start(ctx); err != nil {
				log.Error("Watcher stopped", zap.Error(err))
			}
		}()
		up := upload.New(uploadTarget{Client: cl, sink: sink}, store, cfg, log)
		startWorkers(ctx, &wg, cfg.WorkerCount, fileCh, up, cfg.UploadUserID, log)
	}

	<-ctx.Done()
	log.Info("Waiting for workers to finish...")
	wg.Wait()
	log.Info("All workers finished. Shutdown complete.")
	return nil
}

// chunkBackend picks where chunks are read from and written to.
func chunkBackend(cfg *config.Config, actorClient *rpcactor.Client, log *zap.Logger) (actor.ChunkSource, actor.ChunkSink, error) {
	switch cfg.ChunkBackend {
	case config.BackendActor, "":
		return actorClient, actorClient, nil
	case config.BackendMinio:
		store, err := chunkstore.New(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.ChunkBackend)
	}
}

func reportIncompleteUploads(ctx context.Context, store redisstore.Store, log *zap.Logger) {
	ids, err := store.ScanIncompleteUploads(ctx)
	if err != nil {
		metrics.RedisErrors.Inc()
		log.Warn("Failed to scan incomplete uploads", zap.Error(err))
		return
	}
	if len(ids) > 0 {
		log.Info("Found incomplete uploads, they resume when their files are seen again", zap.Strings("upload_ids", ids))
	}
}

// startWorkers launches upload workers. Files of one upload go through one worker, so
// its chunks are sent in order.
func startWorkers(ctx context.Context, wg *sync.WaitGroup, workerCount int, fileCh <-chan string, up fileUploader, userID string, log *zap.Logger) {
	if workerCount <= 0 {
		workerCount = 2
	}
	log.Info("Launching upload workers", zap.Int("worker_count", workerCount))
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					log.Debug("Worker shutting down", zap.Int("worker_id", workerID))
					return
				case file := <-fileCh:
					log.Info("Worker picked up file", zap.Int("worker_id", workerID), zap.String("file", file))
					metrics.FilesInProgress.Inc()
					start := time.Now()
					if _, err := up.UploadFile(ctx, userID, file, upload.Meta{}); err != nil {
						log.Error("Upload failed", zap.String("file", file), zap.Error(err))
					}
					metrics.FilesInProgress.Dec()
					metrics.FileUploadDuration.Observe(time.Since(start).Seconds())
				}
			}
		}(i)
	}
}
