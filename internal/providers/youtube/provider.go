package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	yt "github.com/kkdai/youtube/v2"
	"golang.org/x/text/unicode/norm"

	"jukebox/playbackservice/internal/domain"
)

// videoClient is the part of *yt.Client the provider needs.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*yt.Video, error)
	GetStreamURLContext(ctx context.Context, video *yt.Video, format *yt.Format) (string, error)
}

type Config struct {
	Client *http.Client
	Logger *slog.Logger
}

// Provider extracts metadata and audio renditions from YouTube.
type Provider struct {
	client videoClient
	logger *slog.Logger
}

func NewProvider(cfg Config) *Provider {
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		client: &yt.Client{HTTPClient: httpClient},
		logger: logger,
	}
}

// Extract loads the video by its 11-character ID and lists its audio
// renditions with resolved stream URLs. Renditions whose URL cannot be
// deciphered are skipped.
func (p *Provider) Extract(ctx context.Context, videoID string) (domain.MediaInfo, error) {
	video, err := p.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return domain.MediaInfo{}, fmt.Errorf("youtube get video: %w", err)
	}

	info := domain.MediaInfo{
		ID:        video.ID,
		Title:     cleanText(video.Title),
		Channel:   cleanText(video.Author),
		Duration:  video.Duration,
		Thumbnail: largestThumbnail(video.Thumbnails),
	}

	for i := range video.Formats {
		format := &video.Formats[i]
		stream, ok := toStream(*format)
		if !ok {
			continue
		}
		streamURL, err := p.client.GetStreamURLContext(ctx, video, format)
		if err != nil {
			if ctx.Err() != nil {
				return domain.MediaInfo{}, fmt.Errorf("youtube stream url: %w", ctx.Err())
			}
			p.logger.Debug("youtube stream url unavailable",
				slog.String("videoId", video.ID),
				slog.Int("itag", format.ItagNo),
				slog.String("error", err.Error()),
			)
			continue
		}
		stream.URL = streamURL
		info.Streams = append(info.Streams, stream)
	}
	return info, nil
}

// toStream maps an audio-bearing format. Video renditions are dropped here
// since only audio is ever played.
func toStream(format yt.Format) (domain.Stream, bool) {
	mediaType, _, err := mime.ParseMediaType(format.MimeType)
	if err != nil {
		return domain.Stream{}, false
	}
	kind, container, found := strings.Cut(mediaType, "/")
	if !found || kind != "audio" {
		return domain.Stream{}, false
	}
	bitrate := format.Bitrate
	if format.AverageBitrate > 0 {
		bitrate = format.AverageBitrate
	}
	sampleRate, _ := strconv.Atoi(strings.TrimSpace(format.AudioSampleRate))
	return domain.Stream{
		Itag:          format.ItagNo,
		MimeType:      format.MimeType,
		Container:     container,
		AudioOnly:     format.Width == 0 && format.Height == 0,
		Bitrate:       bitrate,
		SampleRate:    sampleRate,
		ContentLength: format.ContentLength,
	}, true
}

func largestThumbnail(thumbnails yt.Thumbnails) string {
	best := ""
	var bestArea uint
	for _, thumbnail := range thumbnails {
		area := thumbnail.Width * thumbnail.Height
		if best == "" || area > bestArea {
			best = thumbnail.URL
			bestArea = area
		}
	}
	return best
}

func cleanText(raw string) string {
	return strings.TrimSpace(norm.NFC.String(raw))
}
