package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"jukebox/playbackservice/internal/domain"
	"jukebox/playbackservice/internal/metrics"
	"jukebox/playbackservice/internal/store"
	"jukebox/playbackservice/internal/videoid"
)

const defaultExtractTimeout = 30 * time.Second

// Extractor resolves a video ID into metadata and candidate streams.
type Extractor interface {
	Extract(ctx context.Context, videoID string) (domain.MediaInfo, error)
}

type Service struct {
	extractor      Extractor
	store          store.Store
	maxAudioBytes  int64
	extractTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
	inflight       singleflight.Group
}

type ServiceOption func(*Service)

func WithMaxAudioBytes(limit int64) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.maxAudioBytes = limit
		}
	}
}

func WithExtractTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.extractTimeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(extractor Extractor, records store.Store, options ...ServiceOption) *Service {
	s := &Service{
		extractor:      extractor,
		store:          records,
		maxAudioBytes:  DefaultMaxAudioBytes,
		extractTimeout: defaultExtractTimeout,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(s)
		}
	}
	return s
}

// Resolve returns the playback record for sourceURL, from the store when a
// live record exists and from the extractor otherwise.
func (s *Service) Resolve(ctx context.Context, sourceURL string) (domain.PlaybackRecord, error) {
	id, err := videoid.Extract(sourceURL)
	if err != nil {
		return domain.PlaybackRecord{}, err
	}

	ctx, span := otel.Tracer("jukebox/playback").Start(ctx, "playback.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("video.id", id))

	if record, found := s.lookup(ctx, id); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return record, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, shared := s.inflight.Do(id, func() (any, error) {
		return s.resolveMiss(ctx, id, sourceURL)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return domain.PlaybackRecord{}, err
	}
	if shared {
		s.logger.Debug("shared in-flight extraction", slog.String("videoId", id))
	}
	return result.(domain.PlaybackRecord), nil
}

func (s *Service) lookup(ctx context.Context, id string) (domain.PlaybackRecord, bool) {
	if s.store == nil {
		return domain.PlaybackRecord{}, false
	}
	record, found, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Warn("store lookup failed, treating as miss",
			slog.String("videoId", id),
			slog.String("error", err.Error()),
		)
		metrics.CacheMissesTotal.Inc()
		return domain.PlaybackRecord{}, false
	}
	if !found {
		metrics.CacheMissesTotal.Inc()
		return domain.PlaybackRecord{}, false
	}
	metrics.CacheHitsTotal.Inc()
	return record, true
}

func (s *Service) resolveMiss(ctx context.Context, id, sourceURL string) (domain.PlaybackRecord, error) {
	// The work may be shared by several requests; one of them hanging up
	// must not cancel it for the rest.
	extractCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.extractTimeout)
	defer cancel()

	start := time.Now()
	record, expireAt, err := s.extract(extractCtx, id, sourceURL)
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(extractionResult(err)).Inc()
		s.logger.Warn("extraction failed",
			slog.String("videoId", id),
			slog.String("error", err.Error()),
		)
		return domain.PlaybackRecord{}, err
	}
	metrics.ExtractionsTotal.WithLabelValues("ok").Inc()

	if s.store != nil {
		if err := s.store.Put(extractCtx, id, record, expireAt); err != nil {
			s.logger.Warn("store write failed",
				slog.String("videoId", id),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logger.Info("playback data resolved",
		slog.String("videoId", id),
		slog.Time("expireAt", expireAt),
		slog.Duration("elapsed", time.Since(start)),
	)
	return record, nil
}

func (s *Service) extract(ctx context.Context, id, sourceURL string) (domain.PlaybackRecord, time.Time, error) {
	if s.extractor == nil {
		return domain.PlaybackRecord{}, time.Time{}, fmt.Errorf("%w: no extractor configured", domain.ErrExtractionFailure)
	}
	// Extractors get the validated ID, never the raw source URL.
	info, err := s.extractor.Extract(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailure) {
			return domain.PlaybackRecord{}, time.Time{}, err
		}
		return domain.PlaybackRecord{}, time.Time{}, fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
	}

	stream, err := SelectStream(info.Streams, s.maxAudioBytes)
	if err != nil {
		return domain.PlaybackRecord{}, time.Time{}, err
	}
	expireAt, err := ParseExpiry(stream.URL, s.now())
	if err != nil {
		return domain.PlaybackRecord{}, time.Time{}, err
	}

	videoID := info.ID
	if videoID == "" {
		videoID = id
	}
	return domain.PlaybackRecord{
		VideoID:     videoID,
		Title:       info.Title,
		Channel:     info.Channel,
		Duration:    int64(info.Duration / time.Second),
		Thumbnail:   info.Thumbnail,
		OriginalURL: sourceURL,
		AudioSource: stream.URL,
		ExpireAt:    expireAt.Unix(),
	}, expireAt, nil
}

func extractionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoEligibleStream):
		return "no_stream"
	case errors.Is(err, domain.ErrExpiryNotFound):
		return "no_expiry"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
