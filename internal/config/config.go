// Package config loads client configuration from .env files and environment variables.
// Every knob has a default so the client starts against a local actor with no setup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Chunk backends.
const (
	BackendActor = "actor"
	BackendMinio = "minio"
)

type Config struct {
	ActorURL     string
	ActorTimeout time.Duration
	ChunkBackend string // where video chunks are read from: "actor" or "minio"

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProfileCacheTTL time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	FetchRetries      int           // extra attempts per chunk after the first
	FetchRetryBackoff time.Duration // first backoff, doubled per attempt
	FetchConcurrency  int           // 0 means every chunk is requested at once
	StrictAssembly    bool          // fail when a chunk comes back absent
	MaxBufferBytes    int64
	MaxChunks         int

	HTTPAddr      string
	PublicBaseURL string // prefix of playback handle URLs

	WatchDir           string
	ChunkSize          int
	StabilityThreshold int
	WorkerCount        int      // Number of parallel upload workers
	VideoFileFormats   []string // Extensions picked up by the watcher
	UploadUserID       string

	PrometheusPort string
	LogLevel       string
}

func Load() *Config {
	_ = godotenv.Load()
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	actorTimeout, _ := strconv.Atoi(getEnv("ACTOR_TIMEOUT", "30"))
	profileTTL, _ := strconv.Atoi(getEnv("PROFILE_CACHE_TTL", "3600"))
	retries, _ := strconv.Atoi(getEnv("FETCH_RETRIES", "2"))
	backoffMS, _ := strconv.Atoi(getEnv("FETCH_RETRY_BACKOFF_MS", "200"))
	concurrency, _ := strconv.Atoi(getEnv("FETCH_CONCURRENCY", "0"))
	maxBuffer, _ := strconv.ParseInt(getEnv("MAX_BUFFER_BYTES", "1073741824"), 10, 64)
	maxChunks, _ := strconv.Atoi(getEnv("MAX_CHUNKS", "10000"))
	// The actor caps ingress messages at 2MB; stay under it with headroom.
	chunkSize, _ := strconv.Atoi(getEnv("CHUNK_SIZE", "500000"))
	stabilityThreshold, _ := strconv.Atoi(getEnv("STABILITY_THRESHOLD", "15"))
	workerCount, _ := strconv.Atoi(getEnv("WORKER_COUNT", "2"))
	httpAddr := getEnv("HTTP_ADDR", "127.0.0.1:8090")
	return &Config{
		ActorURL:           getEnv("ACTOR_URL", "http://127.0.0.1:8000/api/v2"),
		ActorTimeout:       time.Duration(actorTimeout) * time.Second,
		ChunkBackend:       strings.ToLower(getEnv("CHUNK_BACKEND", BackendActor)),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            redisDB,
		ProfileCacheTTL:    time.Duration(profileTTL) * time.Second,
		MinioEndpoint:      getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:     getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:     getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:        getEnv("MINIO_BUCKET", "video-chunks"),
		MinioUseSSL:        getEnv("MINIO_USE_SSL", "false") == "true",
		FetchRetries:       retries,
		FetchRetryBackoff:  time.Duration(backoffMS) * time.Millisecond,
		FetchConcurrency:   concurrency,
		StrictAssembly:     getEnv("STRICT_ASSEMBLY", "false") == "true",
		MaxBufferBytes:     maxBuffer,
		MaxChunks:          maxChunks,
		HTTPAddr:           httpAddr,
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://"+httpAddr), "/"),
		WatchDir:           getEnv("WATCH_DIR", ""),
		ChunkSize:          chunkSize,
		StabilityThreshold: stabilityThreshold,
		WorkerCount:        workerCount,
		VideoFileFormats:   parseFormats(getEnv("VIDEO_FILE_FORMATS", ".mp4,.webm,.mov")),
		UploadUserID:       getEnv("UPLOAD_USER_ID", ""),
		PrometheusPort:     getEnv("PROMETHEUS_PORT", "2112"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

func parseFormats(formats string) []string {
	var out []string
	for _, f := range strings.Split(formats, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			if !strings.HasPrefix(f, ".") {
				f = "." + f
			}
			out = append(out, strings.ToLower(f))
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
