// Package watcher watches an upload inbox directory and hands stable video files to the
// upload workers. A file is stable once it has not changed for the configured threshold.
// Files whose upload already completed with the same content are skipped.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cancan-client/internal/config"
	"cancan-client/internal/metrics"
	"cancan-client/internal/redisstore"
	"cancan-client/internal/upload"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type WatcherInterface interface {
	Start(ctx context.Context) error
}

type Watcher struct {
	cfg    *config.Config
	log    *zap.Logger
	fileCh chan<- string
	seen   map[string]time.Time
	hashes map[string]string // file path -> last known hash
	mu     sync.Mutex
	redis  redisstore.Store
}

func New(cfg *config.Config, log *zap.Logger, fileCh chan<- string, redis redisstore.Store) WatcherInterface {
	return &Watcher{
		cfg:    cfg,
		log:    log,
		fileCh: fileCh,
		seen:   make(map[string]time.Time),
		hashes: make(map[string]string),
		redis:  redis,
	}
}

// Start blocks until ctx is done. It fails only when the directory cannot be watched.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.cfg.WatchDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.WatchDir, err)
	}
	w.log.Info("Watching for uploads", zap.String("dir", w.cfg.WatchDir))

	w.scanExistingFiles()

	debounce := time.Duration(w.cfg.StabilityThreshold) * time.Second
	go w.periodicRescan(ctx, debounce)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.checkStableFiles(ctx, debounce)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Chmod) != 0 {
				w.mu.Lock()
				w.seen[event.Name] = time.Now()
				w.mu.Unlock()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("Watcher error", zap.Error(err))
		}
	}
}

// scanExistingFiles marks video files already in the directory as ready.
func (w *Watcher) scanExistingFiles() {
	files, err := filepath.Glob(filepath.Join(w.cfg.WatchDir, "*"))
	if err != nil {
		w.log.Error("Failed to scan watch dir", zap.Error(err))
		return
	}
	old := time.Now().Add(-2 * time.Duration(w.cfg.StabilityThreshold) * time.Second)
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, file := range files {
		if isAllowedExt(file, w.cfg.VideoFileFormats) {
			w.seen[file] = old
		}
	}
}

func isAllowedExt(file string, allowedExts []string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	for _, allowed := range allowedExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// filterFile reports whether file still needs uploading.
func (w *Watcher) filterFile(ctx context.Context, file string) bool {
	uploadID, err := upload.ID(file)
	if err != nil {
		w.log.Warn("Watcher: cannot hash file, skipping", zap.String("file", file), zap.Error(err))
		return false
	}
	status, err := w.redis.GetUploadStatus(ctx, uploadID)
	if err != nil {
		metrics.RedisErrors.Inc()
		return true
	}
	videoID, _ := w.redis.GetValue(ctx, upload.VideoKey(uploadID))
	if status == redisstore.StatusCompleted && videoID != "" {
		w.log.Info("Watcher: file already uploaded and hash unchanged, skipping",
			zap.String("file", file), zap.String("video_id", videoID))
		return false
	}
	return true
}

func (w *Watcher) checkStableFiles(ctx context.Context, debounce time.Duration) {
	now := time.Now()
	var ready []string
	w.mu.Lock()
	for file, last := range w.seen {
		if now.Sub(last) > debounce {
			if isAllowedExt(file, w.cfg.VideoFileFormats) {
				ready = append(ready, file)
			}
			delete(w.seen, file)
		}
	}
	w.mu.Unlock()

	for _, file := range ready {
		if !w.filterFile(ctx, file) {
			continue
		}
		select {
		case w.fileCh <- file:
			metrics.FilesDetected.Inc()
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) periodicRescan(ctx context.Context, debounce time.Duration) {
	if debounce <= 0 {
		debounce = time.Second
	}
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.rescanFiles()
		}
	}
}

// rescanFiles picks up files whose content changed since it was last seen.
func (w *Watcher) rescanFiles() {
	files, err := filepath.Glob(filepath.Join(w.cfg.WatchDir, "*"))
	if err != nil {
		w.log.Error("Failed to rescan watch dir", zap.Error(err))
		return
	}
	old := time.Now().Add(-2 * time.Duration(w.cfg.StabilityThreshold) * time.Second)
	for _, file := range files {
		if !isAllowedExt(file, w.cfg.VideoFileFormats) {
			continue
		}
		hash, err := upload.FileHash(file)
		if err != nil {
			continue
		}
		w.mu.Lock()
		if prev, seen := w.hashes[file]; !seen || prev != hash {
			w.seen[file] = old
			w.hashes[file] = hash
		}
		w.mu.Unlock()
	}
}
