package playback

import (
	"errors"
	"strconv"
	"testing"

	"jukebox/playbackservice/internal/domain"
)

func audioWebm(itag, sampleRate, bitrate int, size int64) domain.Stream {
	return domain.Stream{
		Itag:          itag,
		MimeType:      `audio/webm; codecs="opus"`,
		Container:     "webm",
		AudioOnly:     true,
		Bitrate:       bitrate,
		SampleRate:    sampleRate,
		ContentLength: size,
		URL:           "https://rr1.googlevideo.com/videoplayback?expire=1999999999&itag=" + strconv.Itoa(itag),
	}
}

func TestSelectStreamPicksHighestSampleRateUnderCeiling(t *testing.T) {
	const ceiling = 5 * 1024 * 1024
	streams := []domain.Stream{
		audioWebm(249, 44100, 50_000, 1_000_000),
		audioWebm(251, 48000, 160_000, 4_000_000),
		audioWebm(250, 96000, 320_000, ceiling+1),
		{Itag: 140, Container: "mp4", AudioOnly: true, SampleRate: 192000, ContentLength: 1_000, URL: "https://x/videoplayback?expire=1999999999"},
		{Itag: 248, Container: "webm", AudioOnly: false, SampleRate: 192000, ContentLength: 1_000, URL: "https://x/videoplayback?expire=1999999999"},
	}

	got, err := SelectStream(streams, ceiling)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Itag != 251 {
		t.Fatalf("expected itag 251, got %d", got.Itag)
	}
}

func TestSelectStreamIncludesExactlyCeiling(t *testing.T) {
	streams := []domain.Stream{
		audioWebm(249, 44100, 50_000, 100),
		audioWebm(251, 48000, 160_000, 1000),
	}
	got, err := SelectStream(streams, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Itag != 251 {
		t.Fatalf("expected stream at the ceiling to be eligible, got itag %d", got.Itag)
	}
}

func TestSelectStreamTieBreaks(t *testing.T) {
	streams := []domain.Stream{
		audioWebm(251, 48000, 128_000, 1000),
		audioWebm(250, 48000, 160_000, 1000),
		audioWebm(252, 48000, 160_000, 1000),
	}
	got, err := SelectStream(streams, 10_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Itag != 250 {
		t.Fatalf("expected higher bitrate then lower itag (250), got %d", got.Itag)
	}
}

func TestSelectStreamNoneEligible(t *testing.T) {
	tests := []struct {
		name    string
		streams []domain.Stream
	}{
		{"empty", nil},
		{"all too large", []domain.Stream{audioWebm(251, 48000, 160_000, 10_000)}},
		{"unknown size", []domain.Stream{audioWebm(251, 48000, 160_000, 0)}},
		{"wrong container", []domain.Stream{{Itag: 140, Container: "mp4", AudioOnly: true, SampleRate: 44100, ContentLength: 10, URL: "https://x"}}},
		{"video", []domain.Stream{{Itag: 248, Container: "webm", SampleRate: 48000, ContentLength: 10, URL: "https://x"}}},
		{"missing url", []domain.Stream{{Itag: 251, Container: "webm", AudioOnly: true, SampleRate: 48000, ContentLength: 10}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SelectStream(tt.streams, 1000)
			if !errors.Is(err, domain.ErrNoEligibleStream) {
				t.Fatalf("expected ErrNoEligibleStream, got %v", err)
			}
			if !errors.Is(err, domain.ErrExtractionFailure) {
				t.Fatalf("expected error to also be an extraction failure, got %v", err)
			}
		})
	}
}

func TestEligibleContainerCaseInsensitive(t *testing.T) {
	stream := audioWebm(251, 48000, 160_000, 10)
	stream.Container = "WebM"
	if !Eligible(stream, 100) {
		t.Fatal("expected container match to ignore case")
	}
}
