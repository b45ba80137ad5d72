package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "jukebox/playbackservice/internal/api/http"
	"jukebox/playbackservice/internal/app"
	"jukebox/playbackservice/internal/audioproxy"
	"jukebox/playbackservice/internal/domain"
	"jukebox/playbackservice/internal/metrics"
	"jukebox/playbackservice/internal/playback"
	"jukebox/playbackservice/internal/providers/youtube"
	"jukebox/playbackservice/internal/store"
	"jukebox/playbackservice/internal/telemetry"
)

const serviceName = "jukebox-playback"

func main() {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), serviceName, cfg.Version)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Int64("audioMaxBytes", cfg.AudioMaxBytes),
		slog.Bool("proxyAudio", cfg.ProxyAudio),
		slog.String("publicBaseURL", cfg.PublicBaseURL),
		slog.Any("proxyAllowedHosts", cfg.ProxyAllowedHosts),
		slog.Duration("extractTimeout", cfg.ExtractTimeout),
		slog.Duration("proxyTimeout", cfg.ProxyTimeout),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records := store.Connect(rootCtx, cfg.RedisURL, store.DefaultRetryConfig(), logger)
	if closer, ok := records.(interface{ Close() error }); ok {
		defer func() {
			_ = closer.Close()
		}()
	}

	extractClient := &http.Client{Timeout: cfg.ExtractTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	extractor := youtube.NewProvider(youtube.Config{Client: extractClient, Logger: logger})

	service := playback.NewService(extractor, records,
		playback.WithMaxAudioBytes(cfg.AudioMaxBytes),
		playback.WithExtractTimeout(cfg.ExtractTimeout),
		playback.WithLogger(logger),
	)

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithHealthChecker(records),
		apihttp.WithServiceInfo(domain.ServiceInfo{
			Version:    cfg.Version,
			SourceCode: cfg.SourceCodeURL,
			PoweredBy:  cfg.PoweredBy,
		}),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		apihttp.WithFetchAudioLimit(cfg.FetchAudioPerMinute),
	}
	if cfg.ProxyAudio {
		proxyClient := &http.Client{Timeout: cfg.ProxyTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
		fetcher := audioproxy.NewFetcher(audioproxy.Config{
			Client:       proxyClient,
			AllowedHosts: cfg.ProxyAllowedHosts,
			MaxBytes:     cfg.AudioMaxBytes,
		})
		serverOpts = append(serverOpts, apihttp.WithAudioProxy(fetcher, cfg.PublicBaseURL))
	} else {
		logger.Info("audio proxy disabled, playback responses carry direct stream urls")
	}

	handler := apihttp.NewServer(service, serverOpts...).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Proxied audio is bounded by the proxy client timeout instead.
		WriteTimeout: cfg.ProxyTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("playback service started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("playback service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
