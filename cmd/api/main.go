package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/bilifx/internal/api/handler"
	"github.com/hszk-dev/bilifx/internal/api/middleware"
	"github.com/hszk-dev/bilifx/internal/config"
	"github.com/hszk-dev/bilifx/internal/infrastructure/bilibili"
	"github.com/hszk-dev/bilifx/internal/infrastructure/cache"
	"github.com/hszk-dev/bilifx/internal/relay"
	"github.com/hszk-dev/bilifx/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	responseCache := buildCache(cfg.Cache)
	defer responseCache.Close()

	biliClient, err := bilibili.New(bilibili.Config{
		APIBase:       cfg.Upstream.APIBase,
		ParseBase:     cfg.Upstream.ParseBase,
		ShortLinkBase: cfg.Upstream.ShortLinkBase,
		ProxyURL:      cfg.Upstream.ProxyURL,
		UserAgent:     cfg.Upstream.UserAgent,
		Timeout:       cfg.Upstream.Timeout,
		RetryAttempts: cfg.Upstream.RetryAttempts,
		RetryPause:    cfg.Upstream.RetryPause,
	})
	if err != nil {
		return fmt.Errorf("failed to build upstream client: %w", err)
	}
	logger.Info("proxy configured", slog.Bool("enabled", cfg.Upstream.ProxyURL != ""))

	svc := usecase.NewCachedResolveService(
		usecase.NewResolveService(biliClient, biliClient, biliClient, biliClient),
		responseCache,
		usecase.CachedResolveServiceConfig{TTL: cfg.Cache.TTL},
	)

	// The relay client has no overall timeout: transfers are bounded by
	// the inbound request context.
	mediaRelay := relay.New(&http.Client{}, cfg.Upstream.UserAgent, cfg.Relay.ChunkSize)

	embedHandler := handler.NewEmbedHandler(svc, mediaRelay, handler.EmbedHandlerConfig{
		WatchPageBase: cfg.Upstream.WatchPageBase,
		ShortLinkBase: cfg.Upstream.ShortLinkBase,
		RelayEnabled:  cfg.Relay.Enabled,
	}, logger)

	r := setupRouter(logger, embedHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func buildCache(cfg config.CacheConfig) cache.ResponseCache {
	if cfg.Backend == config.CacheBackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return cache.NewRedisResponseCache(client)
	}
	return cache.NewMemoryResponseCache()
}

func setupRouter(logger *slog.Logger, h *handler.EmbedHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Index)
	r.Get("/favicon.ico", h.Favicon)
	r.Get("/video/{id}", h.Embed)
	r.Get("/ep/{epid}", h.EmbedEpisode)
	r.Get("/b23/{token}", h.EmbedShortLink)
	r.Get("/dl/b23/{token}", h.DownloadShortLink)
	r.Get("/dl/ep/{epid}", h.DownloadEpisode)
	r.Get("/dl/{id}", h.Download)
	r.Get("/{id}", h.Embed)

	return r
}
