package playback

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"jukebox/playbackservice/internal/domain"
)

var expirePattern = regexp.MustCompile(`^[0-9]{10}$`)

// ParseExpiry reads the unix timestamp from the `expire` query parameter of
// a signed stream URL. It must be ten digits and later than now.
func ParseExpiry(streamURL string, now time.Time) (time.Time, error) {
	parsed, err := url.Parse(streamURL)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrExpiryNotFound, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return time.Time{}, fmt.Errorf("%w: unsupported scheme %q", domain.ErrExpiryNotFound, parsed.Scheme)
	}
	raw := parsed.Query().Get("expire")
	if !expirePattern.MatchString(raw) {
		return time.Time{}, fmt.Errorf("%w: expire=%q", domain.ErrExpiryNotFound, raw)
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrExpiryNotFound, err)
	}
	expireAt := time.Unix(seconds, 0)
	if !expireAt.After(now) {
		return time.Time{}, fmt.Errorf("%w: expired at %s", domain.ErrExpiryNotFound, expireAt.UTC().Format(time.RFC3339))
	}
	return expireAt, nil
}
