package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"cancan-client/internal/actor"
	"cancan-client/internal/chunkstore"
	"cancan-client/internal/config"
	"cancan-client/internal/rpcactor"
	"cancan-client/internal/upload"

	"go.uber.org/zap"
)

func TestChunkBackend(t *testing.T) {
	log := zap.NewNop()
	actorClient := rpcactor.New(&config.Config{ActorURL: "http://127.0.0.1:1"}, log)

	src, sink, err := chunkBackend(&config.Config{ChunkBackend: config.BackendActor}, actorClient, log)
	if err != nil {
		t.Fatal(err)
	}
	if src != actor.ChunkSource(actorClient) || sink != actor.ChunkSink(actorClient) {
		t.Error("actor backend should read and write through the actor client")
	}

	src, _, err = chunkBackend(&config.Config{
		ChunkBackend:  config.BackendMinio,
		MinioEndpoint: "localhost:9000",
		MinioBucket:   "video-chunks",
	}, actorClient, log)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*chunkstore.Store); !ok {
		t.Errorf("minio backend source = %T", src)
	}

	if _, _, err := chunkBackend(&config.Config{ChunkBackend: "ftp"}, actorClient, log); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("err = %v, want ErrUnknownBackend", err)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	chunks map[int][]byte
}

func (s *recordingSink) PutVideoChunk(ctx context.Context, videoID string, index int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[index] = data
	return nil
}

func TestUploadTargetRoutesChunksToSink(t *testing.T) {
	sink := &recordingSink{chunks: map[int][]byte{}}
	target := uploadTarget{sink: sink}
	if err := target.PutVideoChunk(context.Background(), "v1", 2, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if string(sink.chunks[2]) != "x" {
		t.Errorf("chunks = %v", sink.chunks)
	}
}

type fakeUploader struct {
	mu    sync.Mutex
	files []string
	user  string
}

func (f *fakeUploader) UploadFile(ctx context.Context, userID, path string, meta upload.Meta) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, path)
	f.user = userID
	if path == "bad.mp4" {
		return "", errors.New("upload failed")
	}
	return "vid", nil
}

func TestStartWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fileCh := make(chan string)
	up := &fakeUploader{}
	var wg sync.WaitGroup
	startWorkers(ctx, &wg, 2, fileCh, up, "alice", zap.NewNop())

	for _, f := range []string{"a.mp4", "bad.mp4", "c.mp4"} {
		fileCh <- f
	}
	// Unbuffered sends only guarantee pickup; wait for the last upload to be recorded.
	deadline := time.Now().Add(time.Second)
	for {
		up.mu.Lock()
		n := len(up.files)
		up.mu.Unlock()
		if n == 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	sort.Strings(up.files)
	if len(up.files) != 3 || up.files[0] != "a.mp4" || up.files[2] != "c.mp4" {
		t.Errorf("uploaded files = %v", up.files)
	}
	if up.user != "alice" {
		t.Errorf("user = %q", up.user)
	}
}
