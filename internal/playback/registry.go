// Package playback keeps assembled video buffers addressable by URL until the caller
// revokes them. It is the process-local equivalent of a browser object URL table.
package playback

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cancan-client/internal/mediatype"
	"cancan-client/internal/metrics"
	"cancan-client/internal/optional"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrHandleNotFound = errors.New("playback handle not found")

// Handle is the only artifact returned to callers of the assembly pipeline.
type Handle struct {
	URL      string `json:"url"`
	MIMEType string `json:"mimeType,omitempty"` // empty when the type could not be resolved
	Size     int    `json:"size"`
}

// Blob is a registered buffer.
type Blob struct {
	Data      []byte
	MIMEType  string
	CreatedAt time.Time
}

type Registry struct {
	mu      sync.RWMutex
	prefix  string
	blobs   map[string]Blob
	log     *zap.Logger
	nowFunc func() time.Time
}

// NewRegistry returns a registry whose handle URLs start with baseURL + "/blob/".
func NewRegistry(baseURL string, log *zap.Logger) *Registry {
	return &Registry{
		prefix:  strings.TrimRight(baseURL, "/") + "/blob/",
		blobs:   make(map[string]Blob),
		log:     log,
		nowFunc: time.Now,
	}
}

// Create registers data and returns a handle for it. The registry keeps data until the
// handle is revoked; the caller must not modify data afterwards.
func (r *Registry) Create(data []byte, mimeType optional.Value[string]) (Handle, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Handle{}, fmt.Errorf("generate handle id: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	typ := mimeType.OrZero()
	r.mu.Lock()
	r.blobs[id.String()] = Blob{Data: data, MIMEType: typ, CreatedAt: r.nowFunc()}
	r.mu.Unlock()
	metrics.PlaybackHandlesOpen.Inc()

	h := Handle{URL: r.prefix + id.String(), MIMEType: typ, Size: len(data)}
	r.log.Debug("Playback handle created", zap.String("url", h.URL), zap.String("mime_type", typ), zap.Int("size", h.Size))
	return h, nil
}

// Revoke releases the buffer behind url. Revoking an unknown or already revoked handle
// does nothing.
func (r *Registry) Revoke(url string) {
	id, ok := r.idFromURL(url)
	if !ok {
		return
	}
	r.revokeID(id)
}

func (r *Registry) revokeID(id string) bool {
	r.mu.Lock()
	_, found := r.blobs[id]
	delete(r.blobs, id)
	r.mu.Unlock()
	if found {
		metrics.PlaybackHandlesOpen.Dec()
		r.log.Debug("Playback handle revoked", zap.String("id", id))
	}
	return found
}

// Open returns the blob behind url.
func (r *Registry) Open(url string) (Blob, error) {
	id, ok := r.idFromURL(url)
	if !ok {
		return Blob{}, ErrHandleNotFound
	}
	return r.openID(id)
}

func (r *Registry) openID(id string) (Blob, error) {
	r.mu.RLock()
	b, ok := r.blobs[id]
	r.mu.RUnlock()
	if !ok {
		return Blob{}, ErrHandleNotFound
	}
	return b, nil
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

// RevokeAll releases every live handle. Used on shutdown.
func (r *Registry) RevokeAll() {
	r.mu.Lock()
	n := len(r.blobs)
	r.blobs = make(map[string]Blob)
	r.mu.Unlock()
	metrics.PlaybackHandlesOpen.Sub(float64(n))
}

func (r *Registry) idFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, r.prefix) {
		return "", false
	}
	id := strings.TrimPrefix(url, r.prefix)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// Routes mounts GET and DELETE /blob/{id}.
func (r *Registry) Routes(router chi.Router) {
	router.Get("/blob/{id}", r.handleGet)
	router.Delete("/blob/{id}", r.handleDelete)
}

func (r *Registry) handleGet(w http.ResponseWriter, req *http.Request) {
	b, err := r.openID(chi.URLParam(req, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	typ := b.MIMEType
	if typ == "" {
		typ = mediatype.Untyped
	}
	w.Header().Set("Content-Type", typ)
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, req, "", b.CreatedAt, bytes.NewReader(b.Data))
}

func (r *Registry) handleDelete(w http.ResponseWriter, req *http.Request) {
	r.revokeID(chi.URLParam(req, "id"))
	w.WriteHeader(http.StatusNoContent)
}
