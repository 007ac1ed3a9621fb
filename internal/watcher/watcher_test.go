package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cancan-client/internal/config"
	"cancan-client/internal/redisstore"
	"cancan-client/internal/upload"

	"go.uber.org/zap"
)

func TestIsAllowedExt(t *testing.T) {
	if !isAllowedExt("foo/bar/test.MP4", []string{".mp4", ".mkv"}) {
		t.Error("Should allow .mp4")
	}
	if isAllowedExt("foo/bar/test.txt", []string{".mp4", ".mkv"}) {
		t.Error("Should not allow .txt")
	}
}

// mockRedisStore implements the lookups filterFile makes.
type mockRedisStore struct {
	redisstore.Store
	statusMap map[string]string
	values    map[string]string
	fail      bool
}

func (m *mockRedisStore) GetUploadStatus(ctx context.Context, uploadID string) (string, error) {
	if m.fail {
		return "", errors.New("redis down")
	}
	return m.statusMap[uploadID], nil
}
func (m *mockRedisStore) GetValue(ctx context.Context, key string) (string, error) {
	return m.values[key], nil
}

func newTestWatcher(dir string, fileCh chan<- string, store redisstore.Store) *Watcher {
	cfg := &config.Config{WatchDir: dir, StabilityThreshold: 1, VideoFileFormats: []string{".mp4"}}
	return New(cfg, zap.NewNop(), fileCh, store).(*Watcher)
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	fpath := filepath.Join(dir, name)
	if err := os.WriteFile(fpath, []byte("somedata"), 0644); err != nil {
		t.Fatal(err)
	}
	return fpath
}

func TestScanExistingFiles(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(dir, make(chan string, 1), nil)
	fpath := writeFile(t, dir, "test.mp4")
	writeFile(t, dir, "notes.txt")
	w.scanExistingFiles()
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[fpath]; !ok {
		t.Error("scanExistingFiles did not add file to seen map")
	}
	if len(w.seen) != 1 {
		t.Errorf("seen = %v, want only the video", w.seen)
	}
}

func TestRescanFiles(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(dir, make(chan string, 1), nil)
	fpath := writeFile(t, dir, "test.mp4")
	w.rescanFiles()
	w.mu.Lock()
	_, ok := w.hashes[fpath]
	delete(w.seen, fpath)
	w.mu.Unlock()
	if !ok {
		t.Fatal("rescanFiles did not add file hash")
	}

	// Unchanged content is not re-queued.
	w.rescanFiles()
	w.mu.Lock()
	_, requeued := w.seen[fpath]
	w.mu.Unlock()
	if requeued {
		t.Error("unchanged file was queued again")
	}
}

func TestFilterFile(t *testing.T) {
	dir := t.TempDir()
	fpath := writeFile(t, dir, "test.mp4")
	uploadID, err := upload.ID(fpath)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		status  string
		videoID string
		fail    bool
		expect  bool
	}{
		{"new file", "", "", false, true},
		{"already uploaded", redisstore.StatusCompleted, "vid-1", false, false},
		{"in progress", redisstore.StatusInProgress, "vid-1", false, true},
		{"completed without video id", redisstore.StatusCompleted, "", false, true},
		{"redis error", "", "", true, true},
	}
	for _, c := range cases {
		store := &mockRedisStore{
			statusMap: map[string]string{uploadID: c.status},
			values:    map[string]string{upload.VideoKey(uploadID): c.videoID},
			fail:      c.fail,
		}
		w := newTestWatcher(dir, nil, store)
		if got := w.filterFile(context.Background(), fpath); got != c.expect {
			t.Errorf("%s: expected %v, got %v", c.name, c.expect, got)
		}
	}
}

func TestFilterFile_MissingFile(t *testing.T) {
	w := newTestWatcher(t.TempDir(), nil, &mockRedisStore{})
	if w.filterFile(context.Background(), "/nonexistent/test.mp4") {
		t.Error("missing file should be skipped")
	}
}

func TestCheckStableFiles(t *testing.T) {
	dir := t.TempDir()
	fpath := writeFile(t, dir, "test.mp4")
	uploadID, _ := upload.ID(fpath)

	fileCh := make(chan string, 1)
	w := newTestWatcher(dir, fileCh, &mockRedisStore{statusMap: map[string]string{uploadID: redisstore.StatusInProgress}})
	w.seen[fpath] = time.Now().Add(-2 * time.Second)
	w.checkStableFiles(context.Background(), time.Second)
	select {
	case file := <-fileCh:
		if file != fpath {
			t.Errorf("Expected %s, got %s", fpath, file)
		}
	default:
		t.Error("stable file was not sent")
	}
	if len(w.seen) != 0 {
		t.Error("sent file should leave the seen map")
	}
}

func TestCheckStableFiles_Filtered(t *testing.T) {
	dir := t.TempDir()
	fpath := writeFile(t, dir, "test.mp4")
	uploadID, _ := upload.ID(fpath)
	store := &mockRedisStore{
		statusMap: map[string]string{uploadID: redisstore.StatusCompleted},
		values:    map[string]string{upload.VideoKey(uploadID): "vid-1"},
	}
	fileCh := make(chan string, 1)
	w := newTestWatcher(dir, fileCh, store)
	w.seen[fpath] = time.Now().Add(-2 * time.Second)
	w.checkStableFiles(context.Background(), time.Second)
	select {
	case <-fileCh:
		t.Error("Should not send already uploaded file to channel")
	default:
	}
}

func TestCheckStableFiles_NotYetStable(t *testing.T) {
	dir := t.TempDir()
	fpath := writeFile(t, dir, "test.mp4")
	fileCh := make(chan string, 1)
	w := newTestWatcher(dir, fileCh, &mockRedisStore{})
	w.seen[fpath] = time.Now()
	w.checkStableFiles(context.Background(), time.Minute)
	if len(fileCh) != 0 {
		t.Error("file sent before it was stable")
	}
	if _, ok := w.seen[fpath]; !ok {
		t.Error("unstable file should stay in the seen map")
	}
}

func TestCheckStableFiles_CancelledWhileBlocked(t *testing.T) {
	dir := t.TempDir()
	fpath := writeFile(t, dir, "test.mp4")
	w := newTestWatcher(dir, make(chan string), &mockRedisStore{})
	w.seen[fpath] = time.Now().Add(-2 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.checkStableFiles(ctx, time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checkStableFiles blocked after cancellation")
	}
}

func TestStart_MissingDir(t *testing.T) {
	w := newTestWatcher(filepath.Join(t.TempDir(), "missing"), nil, nil)
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
