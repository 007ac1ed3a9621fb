// Package metrics defines and registers Prometheus metrics for the client.
// Metrics cover chunk fetches, video assembly, playback handles, uploads and the profile cache.
package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChunksFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_chunks_fetched_total",
			Help: "Total number of video chunks fetched from the chunk source.",
		},
	)
	ChunkFetchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_chunk_fetch_failures_total",
			Help: "Total number of chunk fetch attempts that failed.",
		},
	)
	ChunkFetchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_chunk_fetch_retries_total",
			Help: "Total number of chunk fetch retries.",
		},
	)
	MissingChunks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_missing_chunks_total",
			Help: "Total number of chunks that came back absent.",
		},
	)
	VideosAssembled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_videos_assembled_total",
			Help: "Total number of videos assembled into playback handles.",
		},
	)
	AssemblyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_assembly_failures_total",
			Help: "Total number of video assemblies that failed.",
		},
	)
	ChunkFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cancan_chunk_fetch_duration_seconds",
			Help:    "Histogram of single chunk fetch durations.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms, 100ms, ...
		},
	)
	AssemblyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cancan_assembly_duration_seconds",
			Help:    "Histogram of whole video fetch and assembly durations.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s, 0.5s, ...
		},
	)
	PlaybackHandlesOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cancan_playback_handles_open",
			Help: "Current number of playback handles that have not been revoked.",
		},
	)
	ChunksUploaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_chunks_uploaded_total",
			Help: "Total number of chunks uploaded.",
		},
	)
	UploadFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_upload_failures_total",
			Help: "Total number of failed uploads.",
		},
	)
	FilesDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_files_detected_total",
			Help: "Total number of video files picked up by the watcher.",
		},
	)
	FilesInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cancan_files_in_progress",
			Help: "Current number of files being uploaded.",
		},
	)
	FileUploadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cancan_file_upload_duration_seconds",
			Help:    "Histogram of whole file upload durations.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s, 2s, 4s, ...
		},
	)
	ProfileCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_profile_cache_hits_total",
			Help: "Total number of profile lookups served from the cache.",
		},
	)
	RedisErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancan_redis_errors_total",
			Help: "Total number of Redis errors.",
		},
	)
	initOnce sync.Once
)

func register() {
	prometheus.MustRegister(ChunksFetched, ChunkFetchFailures, ChunkFetchRetries, MissingChunks,
		VideosAssembled, AssemblyFailures, ChunkFetchDuration, AssemblyDuration,
		PlaybackHandlesOpen, ChunksUploaded, UploadFailures, FilesDetected, FilesInProgress,
		FileUploadDuration, ProfileCacheHits, RedisErrors)
}

// Handler registers the collectors if needed and returns the scrape handler.
func Handler() http.Handler {
	initOnce.Do(register)
	return promhttp.Handler()
}

// Init registers the collectors and serves /metrics on port until the process exits.
func Init(port string, onError func(error)) {
	h := Handler()
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	go func() {
		err := http.ListenAndServe(":"+port, mux)
		if err != nil && !errors.Is(err, http.ErrServerClosed) && onError != nil {
			onError(err)
		}
	}()
}
