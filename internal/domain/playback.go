package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidSourceURL  = errors.New("invalid source url")
	ErrExtractionFailure = errors.New("extraction failed")
	ErrUpstreamFetch     = errors.New("upstream fetch failed")

	// ErrNoEligibleStream and ErrExpiryNotFound are extraction failures with a
	// narrower cause; errors.Is matches both them and ErrExtractionFailure.
	ErrNoEligibleStream = fmt.Errorf("%w: no eligible audio stream", ErrExtractionFailure)
	ErrExpiryNotFound   = fmt.Errorf("%w: stream url has no usable expire parameter", ErrExtractionFailure)
)

// PlaybackRecord is the cached result for one video: metadata plus the
// resolved audio stream reference.
type PlaybackRecord struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Duration    int64  `json:"duration"`
	Thumbnail   string `json:"thumbnail"`
	OriginalURL string `json:"original_url"`
	AudioSource string `json:"audio_source"`
	ExpireAt    int64  `json:"expire_at"`
}

// Stream is one candidate rendition returned by the extractor.
type Stream struct {
	Itag          int
	MimeType      string
	Container     string
	AudioOnly     bool
	Bitrate       int
	SampleRate    int
	ContentLength int64
	URL           string
}

// MediaInfo is what an extractor knows about a video.
type MediaInfo struct {
	ID        string
	Title     string
	Channel   string
	Duration  time.Duration
	Thumbnail string
	Streams   []Stream
}

type ServiceInfo struct {
	Version    string `json:"version"`
	SourceCode string `json:"source_code"`
	PoweredBy  string `json:"powered_by"`
}
