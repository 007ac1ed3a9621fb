package rpcactor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cancan-client/internal/actor"
	"cancan-client/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

type fakeActor struct {
	mu      sync.Mutex
	methods map[string]func(args []any) (any, int)
	seen    map[string][]any
}

func (f *fakeActor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/api/v2/call/")
	body, _ := io.ReadAll(r.Body)
	var args []any
	if err := msgpack.Unmarshal(body, &args); err != nil {
		http.Error(w, "bad args", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.seen[method] = args
	h, ok := f.methods[method]
	f.mu.Unlock()
	if !ok {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusNotFound)
		b, _ := msgpack.Marshal(map[string]string{"code": "MethodNotFound", "message": method})
		w.Write(b)
		return
	}
	res, status := h(args)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	b, _ := msgpack.Marshal(res)
	w.Write(b)
}

func newTestClient(t *testing.T, methods map[string]func(args []any) (any, int)) (*Client, *fakeActor) {
	t.Helper()
	fa := &fakeActor{methods: methods, seen: map[string][]any{}}
	ts := httptest.NewServer(fa)
	t.Cleanup(ts.Close)
	cfg := &config.Config{ActorURL: ts.URL + "/api/v2/", ActorTimeout: 5 * time.Second}
	return New(cfg, zap.NewNop()), fa
}

func ok(v any) func([]any) (any, int) {
	return func([]any) (any, int) { return v, http.StatusOK }
}

func TestGetVideoChunk(t *testing.T) {
	c, fa := newTestClient(t, map[string]func([]any) (any, int){
		"getVideoChunk": ok([][]byte{{1, 2, 3}}),
	})
	res, err := c.GetVideoChunk(context.Background(), "vid", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2, 3}}, res)

	args := fa.seen["getVideoChunk"]
	require.Len(t, args, 3)
	assert.Equal(t, "vid", args[0])
	assert.EqualValues(t, 2, args[1])
	assert.Equal(t, []any{}, args[2])
}

func TestGetVideoChunkAbsent(t *testing.T) {
	c, _ := newTestClient(t, map[string]func([]any) (any, int){
		"getVideoChunk": ok([][]byte{}),
	})
	res, err := c.GetVideoChunk(context.Background(), "vid", 1, []string{"h"})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestGetVideoInfoDecodesStruct(t *testing.T) {
	info := actor.VideoInfo{VideoID: "v1", Name: "clip.mp4", ChunkCount: 4, Tags: []string{"cats"}}
	c, fa := newTestClient(t, map[string]func([]any) (any, int){
		"getVideoInfo": ok([]actor.VideoInfo{info}),
	})
	res, err := c.GetVideoInfo(context.Background(), []string{"alice"}, "v1")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "v1", res[0].VideoID)
	assert.Equal(t, actor.Nat(4), res[0].ChunkCount)
	assert.Equal(t, []any{"alice"}, fa.seen["getVideoInfo"][0])
}

func TestGetFeedVideosTuple(t *testing.T) {
	results := actor.VideoResults{{Info: actor.VideoInfo{VideoID: "a"}}, {Info: actor.VideoInfo{VideoID: "b"}, Pic: [][]byte{{9}}}}
	c, _ := newTestClient(t, map[string]func([]any) (any, int){
		"getFeedVideos": ok([]actor.VideoResults{results}),
	})
	res, err := c.GetFeedVideos(context.Background(), "alice", nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Len(t, res[0], 2)
	assert.Equal(t, "b", res[0][1].Info.VideoID)
	assert.Equal(t, [][]byte{{9}}, res[0][1].Pic)
}

func TestRejection(t *testing.T) {
	c, _ := newTestClient(t, map[string]func([]any) (any, int){
		"putSuperLike": func([]any) (any, int) {
			return map[string]string{"code": "Unauthorized", "message": "not your profile"}, http.StatusForbidden
		},
	})
	err := c.PutSuperLike(context.Background(), "alice", "v1", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))

	var rej *RejectError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusForbidden, rej.Status)
	assert.Equal(t, "Unauthorized", rej.Code)
	assert.Equal(t, "putSuperLike", rej.Method)

	err = c.PutAbuseFlagVideo(context.Background(), "a", "b", true)
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "MethodNotFound", rej.Code)
}

func TestDecodeError(t *testing.T) {
	c, _ := newTestClient(t, map[string]func([]any) (any, int){
		"checkUsernameAvailable": ok("not a bool"),
	})
	_, err := c.CheckUsernameAvailable(context.Background(), "alice")
	assert.Error(t, err)
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestTransportError(t *testing.T) {
	c := &Client{baseURL: "http://actor", http: failingDoer{}, log: zap.NewNop()}
	_, err := c.IsDropDay(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}
