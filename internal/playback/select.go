package playback

import (
	"sort"
	"strings"

	"jukebox/playbackservice/internal/domain"
)

const (
	// DefaultMaxAudioBytes keeps a proxied response under the hosting
	// platform's payload limit.
	DefaultMaxAudioBytes = int64(5 * 1024 * 1024)

	audioContainer = "webm"
)

// Eligible reports whether a stream can be served: audio only, webm, and a
// known size no larger than maxBytes.
func Eligible(stream domain.Stream, maxBytes int64) bool {
	if !stream.AudioOnly {
		return false
	}
	if !strings.EqualFold(stream.Container, audioContainer) {
		return false
	}
	if stream.ContentLength <= 0 || stream.ContentLength > maxBytes {
		return false
	}
	return strings.TrimSpace(stream.URL) != ""
}

// SelectStream picks the eligible stream with the highest sample rate.
// Ties go to the higher bitrate, then the lower itag.
func SelectStream(streams []domain.Stream, maxBytes int64) (domain.Stream, error) {
	candidates := make([]domain.Stream, 0, len(streams))
	for _, stream := range streams {
		if Eligible(stream, maxBytes) {
			candidates = append(candidates, stream)
		}
	}
	if len(candidates) == 0 {
		return domain.Stream{}, domain.ErrNoEligibleStream
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.SampleRate != b.SampleRate {
			return a.SampleRate > b.SampleRate
		}
		if a.Bitrate != b.Bitrate {
			return a.Bitrate > b.Bitrate
		}
		return a.Itag < b.Itag
	})
	return candidates[0], nil
}
