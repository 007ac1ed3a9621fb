// Package api serves the client to the web front end over HTTP: video metadata, feeds,
// search, likes and playback handles. Handle URLs point back at this server's /blob routes.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"cancan-client/internal/actor"
	"cancan-client/internal/optional"
	"cancan-client/internal/playback"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

var (
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerNotRunning     = errors.New("server is not running")
)

// Backend is the part of the client the API exposes.
type Backend interface {
	GetVideoInfo(ctx context.Context, userID, videoID string) (actor.VideoInfo, error)
	GetVideoChunks(ctx context.Context, info actor.VideoInfo, videoHash optional.Value[string]) (playback.Handle, error)
	GetVideoPic(ctx context.Context, videoID string) ([]byte, error)
	GetFeedVideos(ctx context.Context, userID string) ([]actor.VideoInfo, error)
	GetSearchVideos(ctx context.Context, userID string, terms []string, limit optional.Value[int]) ([]actor.VideoInfo, error)
	GetUserFromActor(ctx context.Context, userID string) (*actor.ProfileInfoPlus, error)
	GetMessages(ctx context.Context, userName string) ([]actor.Message, error)
	Like(ctx context.Context, userID, videoID string, willLike bool) error
}

type Server struct {
	addr     string
	backend  Backend
	blobs    *playback.Registry
	router   *chi.Mux
	server   *http.Server
	listener net.Listener
	running  bool
	mu       sync.RWMutex
	log      *zap.Logger
}

func NewServer(addr string, backend Backend, blobs *playback.Registry, log *zap.Logger) *Server {
	s := &Server{
		addr:    addr,
		backend: backend,
		blobs:   blobs,
		router:  chi.NewRouter(),
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api", func(r chi.Router) {
		// Assembling a long video can take a while, so only the cheap routes get a timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/health", s.handleHealth)
			r.Get("/videos/{videoID}", s.handleGetVideo)
			r.Get("/videos/{videoID}/pic", s.handleGetVideoPic)
			r.Put("/videos/{videoID}/like", s.handleLike)
			r.Get("/feed/{userID}", s.handleFeed)
			r.Get("/search", s.handleSearch)
			r.Get("/users/{userID}", s.handleGetUser)
			r.Get("/messages/{userName}", s.handleMessages)
		})
		r.Post("/videos/{videoID}/playback", s.handlePlayback)
	})

	s.blobs.Routes(s.router)
}

// Handler returns the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerAlreadyRunning
	}
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener
	httpServer := &http.Server{
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	s.server = httpServer
	s.running = true

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("API server error", zap.Error(err))
		}
	}()
	s.log.Info("API server listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting up to five seconds for open requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServerNotRunning
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.running = false
	s.server = nil
	s.listener = nil
	return nil
}

func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetActualAddr returns the listening address, useful when the configured port is 0.
func (s *Server) GetActualAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
