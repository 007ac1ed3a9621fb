package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cancan-client/internal/chunkstore"
	"cancan-client/internal/client"
	"cancan-client/internal/optional"
	"cancan-client/internal/rpcactor"
	"cancan-client/internal/video"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	ErrNoUser     = errors.New("user parameter is required")
	ErrBadLimit   = errors.New("limit must be a non-negative integer")
	ErrBadLike    = errors.New("value must be true or false")
	ErrNoSuchUser = errors.New("user not found")
)

type playbackResponse struct {
	URL      string `json:"url"`
	MIMEType string `json:"mimeType,omitempty"`
	Size     int    `json:"size"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"openHandles": s.blobs.Len(),
	})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	info, err := s.backend.GetVideoInfo(r.Context(), user, chi.URLParam(r, "videoID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handlePlayback assembles the video and returns a handle URL. The caller revokes it with
// DELETE on the returned URL.
func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	info, err := s.backend.GetVideoInfo(ctx, user, chi.URLParam(r, "videoID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	h, err := s.backend.GetVideoChunks(ctx, info, optional.FromString(r.URL.Query().Get("hash")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ctx.Err() != nil {
		// Nobody is left to receive the URL, so nobody would revoke it.
		s.blobs.Revoke(h.URL)
		return
	}
	writeJSON(w, http.StatusCreated, playbackResponse{URL: h.URL, MIMEType: h.MIMEType, Size: h.Size})
}

func (s *Server) handleGetVideoPic(w http.ResponseWriter, r *http.Request) {
	pic, err := s.backend.GetVideoPic(r.Context(), chi.URLParam(r, "videoID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(pic) == 0 {
		http.Error(w, "no picture", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(pic))
	w.Write(pic)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	willLike, err := strconv.ParseBool(r.URL.Query().Get("value"))
	if err != nil {
		http.Error(w, ErrBadLike.Error(), http.StatusBadRequest)
		return
	}
	if err := s.backend.Like(r.Context(), user, chi.URLParam(r, "videoID"), willLike); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	videos, err := s.backend.GetFeedVideos(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

// handleSearch splits q on whitespace into search terms. limit defaults to
// client.DefaultSearchLimit.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit := optional.Some(client.DefaultSearchLimit)
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, ErrBadLimit.Error(), http.StatusBadRequest)
			return
		}
		limit = optional.Some(n)
	}
	terms := strings.Fields(q.Get("q"))
	if terms == nil {
		terms = []string{}
	}
	videos, err := s.backend.GetSearchVideos(r.Context(), user, terms, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := s.backend.GetUserFromActor(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if profile == nil {
		http.Error(w, ErrNoSuchUser.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.backend.GetMessages(r.Context(), chi.URLParam(r, "userName"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, ErrNoUser.Error(), http.StatusBadRequest)
		return "", false
	}
	return user, true
}

// writeError maps client and assembly errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, client.ErrVideoNotFound), errors.Is(err, client.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, video.ErrBufferTooLarge), errors.Is(err, video.ErrTooManyChunks):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads the response.
		return
	case errors.Is(err, rpcactor.ErrRejected), errors.Is(err, video.ErrFetchFailed),
		errors.Is(err, video.ErrMissingChunks), errors.Is(err, chunkstore.ErrCorruptChunk):
		status = http.StatusBadGateway
	default:
		s.log.Error("Unhandled API error", zap.Error(err))
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
