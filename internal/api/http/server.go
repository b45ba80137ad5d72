package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"jukebox/playbackservice/internal/audioproxy"
	"jukebox/playbackservice/internal/domain"
)

const (
	msgInvalidSource   = "Invalid YouTube source URL."
	msgExtraction      = "Unknown error occurred while getting playback data."
	msgInvalidPointer  = "Invalid audio source."
	msgAudioTooLarge   = "Audio source is too large to proxy."
	msgUpstreamFailure = "Failed to fetch audio from upstream."
	msgProxyDisabled   = "Audio proxy is disabled."

	maxSourceLength = 2048
	healthTimeout   = 2 * time.Second
)

type PlaybackService interface {
	Resolve(ctx context.Context, sourceURL string) (domain.PlaybackRecord, error)
}

type AudioFetcher interface {
	Open(ctx context.Context, pointer string) (*audioproxy.Upstream, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	playback       PlaybackService
	audio          AudioFetcher
	health         HealthChecker
	info           domain.ServiceInfo
	proxyAudio     bool
	publicBaseURL  string
	rateLimitRPS   float64
	rateLimitBurst int
	fetchPerMinute int
	logger         *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAudioProxy serves /fetch-audio through fetcher and rewrites
// audio_source in playback responses to point at it.
func WithAudioProxy(fetcher AudioFetcher, publicBaseURL string) ServerOption {
	return func(s *Server) {
		s.audio = fetcher
		s.proxyAudio = fetcher != nil
		s.publicBaseURL = strings.TrimSpace(publicBaseURL)
	}
}

func WithHealthChecker(checker HealthChecker) ServerOption {
	return func(s *Server) {
		s.health = checker
	}
}

func WithServiceInfo(info domain.ServiceInfo) ServerOption {
	return func(s *Server) {
		s.info = info
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateLimitRPS = rps
		s.rateLimitBurst = burst
	}
}

// WithFetchAudioLimit caps /fetch-audio requests per client IP per minute.
func WithFetchAudioLimit(perMinute int) ServerOption {
	return func(s *Server) {
		s.fetchPerMinute = perMinute
	}
}

func NewServer(playback PlaybackService, options ...ServerOption) *Server {
	server := &Server{
		playback:       playback,
		logger:         slog.Default(),
		rateLimitRPS:   20,
		rateLimitBurst: 40,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Get("/", s.handleRoot)
	router.Get("/v1", s.handleRoot)
	router.Get("/health", s.handleHealth)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/playback-data", s.handlePlaybackData)
	router.Get("/v1/playback-data", s.handleLegacyPlaybackData)

	fetchAudio := router.With()
	if s.fetchPerMinute > 0 {
		fetchAudio = router.With(httprate.LimitByIP(s.fetchPerMinute, time.Minute))
	}
	fetchAudio.Get(audioproxy.Path, s.handleFetchAudio)

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found.")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	traced := otelhttp.NewHandler(router, "jukebox",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	// CORS and request IDs sit outside recovery and the limiter so that 429
	// and 500 responses carry them too.
	limited := rateLimitMiddleware(s.rateLimitRPS, s.rateLimitBurst, traced)
	return requestIDMiddleware(corsMiddleware(recoveryMiddleware(s.logger, observeMiddleware(s.logger, limited))))
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	storeState := "ok"
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			storeState = "unavailable"
			s.logger.Warn("store health check failed", slog.String("error", err.Error()))
		}
	}
	label := "ok"
	if status != http.StatusOK {
		label = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":    label,
		"store":     storeState,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handlePlaybackData(w http.ResponseWriter, r *http.Request) {
	record, err := s.resolve(r, r.URL.Query().Get("youtube_url"))
	if err != nil {
		status, message := playbackErrorResponse(err)
		writeError(w, status, message)
		return
	}
	if s.proxyAudio {
		record.AudioSource = audioproxy.Wrap(s.publicBaseURL, record.AudioSource)
	}
	writeJSON(w, http.StatusOK, record)
}

type legacyPlaybackResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
	*domain.PlaybackRecord
}

// handleLegacyPlaybackData keeps the first API generation working: the
// source parameter, a status field, failures reported with HTTP 200 and the
// upstream URL returned as-is.
func (s *Server) handleLegacyPlaybackData(w http.ResponseWriter, r *http.Request) {
	record, err := s.resolve(r, r.URL.Query().Get("source"))
	if err != nil {
		_, message := playbackErrorResponse(err)
		writeJSON(w, http.StatusOK, legacyPlaybackResponse{Status: "failed", Msg: message})
		return
	}
	writeJSON(w, http.StatusOK, legacyPlaybackResponse{Status: "success", PlaybackRecord: &record})
}

func (s *Server) resolve(r *http.Request, rawSource string) (domain.PlaybackRecord, error) {
	source := strings.TrimSpace(rawSource)
	if source == "" || len(source) > maxSourceLength {
		return domain.PlaybackRecord{}, domain.ErrInvalidSourceURL
	}
	if s.playback == nil {
		return domain.PlaybackRecord{}, domain.ErrExtractionFailure
	}
	record, err := s.playback.Resolve(r.Context(), source)
	if err != nil && !errors.Is(err, domain.ErrInvalidSourceURL) {
		s.logger.Warn("playback request failed",
			slog.String("source", truncate(source, 120)),
			slog.String("error", err.Error()),
		)
	}
	return record, err
}

func playbackErrorResponse(err error) (int, string) {
	if errors.Is(err, domain.ErrInvalidSourceURL) {
		return http.StatusBadRequest, msgInvalidSource
	}
	return http.StatusBadRequest, msgExtraction
}

func (s *Server) handleFetchAudio(w http.ResponseWriter, r *http.Request) {
	if s.audio == nil {
		writeError(w, http.StatusNotFound, msgProxyDisabled)
		return
	}
	upstream, err := s.audio.Open(r.Context(), r.URL.Query().Get("audio_source"))
	if err != nil {
		switch {
		case errors.Is(err, audioproxy.ErrInvalidPointer):
			writeError(w, http.StatusBadRequest, msgInvalidPointer)
		case errors.Is(err, audioproxy.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, msgAudioTooLarge)
		default:
			s.logger.Warn("audio proxy upstream failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, msgUpstreamFailure)
		}
		return
	}
	defer upstream.Body.Close()

	w.Header().Set("Content-Type", audioproxy.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(upstream.Length, 10))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	// Headers are gone at this point; a short copy can only be logged.
	if _, err := upstream.WriteTo(w); err != nil {
		s.logger.Warn("audio proxy copy interrupted", slog.String("error", err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"msg": message})
}
