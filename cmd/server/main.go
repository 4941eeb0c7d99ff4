package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vreddit-mux/internal/muxer"
	"vreddit-mux/internal/platform/config"
	"vreddit-mux/internal/platform/logger"
	"vreddit-mux/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	publicBaseURL := config.GetEnv("PUBLIC_BASE_URL", "http://localhost:"+port)
	redditBase := config.GetEnv("REDDIT_BASE_URL", "https://www.reddit.com")
	streamHost := config.GetEnv("STREAM_HOST", "https://v.redd.it")
	userAgent := config.GetEnv("USER_AGENT", "vreddit-mux/1.0")
	tmpDir := config.GetEnv("TMP_DIR", os.TempDir())
	ffmpegPath := config.GetEnv("FFMPEG_PATH", "ffmpeg")
	cacheSize := config.GetEnvInt("CACHE_SIZE", muxer.DefaultCacheSize)
	fetchTimeout := config.GetEnvDuration("FETCH_TIMEOUT", 15*time.Second)
	muxTimeout := config.GetEnvDuration("MUX_TIMEOUT", 2*time.Minute)
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	httpClient := &http.Client{Timeout: fetchTimeout}
	cache := muxer.NewResolutionCache(cacheSize)
	manifests := muxer.NewManifestClient(streamHost, userAgent, httpClient)
	resolver := muxer.NewResolver(redditBase, streamHost, userAgent, httpClient, cache)
	encoder := muxer.NewFFmpegEncoder(ffmpegPath, streamHost, tmpDir, muxTimeout)
	svc := muxer.NewService(manifests, resolver, encoder, publicBaseURL)
	met := metrics.New()
	h := muxer.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestID())
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetCachedResolutions(cache.Len()) }).ServeHTTP(w, r)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/{id}", h.GetVideo)
	r.Get("/*", h.ResolvePost)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"public_base_url", publicBaseURL,
		"stream_host", streamHost,
		"cache_size", cacheSize,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
