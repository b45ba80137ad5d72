// Package videoid extracts the 11-character YouTube video identifier from
// the many URL shapes users paste: watch pages, short links, embeds, shorts,
// live pages, legacy mirror domains, Invidious instances and bare IDs.
package videoid

import (
	"fmt"
	"regexp"
	"strings"

	"jukebox/playbackservice/internal/domain"
)

const idPattern = `[0-9A-Za-z_-]{11}`

var invidiousHosts = []string{
	`(?:www\.)?invidious\.[a-z0-9.-]+`,
	`(?:www\.)?yewtu\.be`,
	`(?:www\.)?inv\.nadeko\.net`,
	`(?:www\.)?inv\.tux\.pizza`,
	`(?:www\.)?vid\.puffyan\.us`,
	`(?:www\.)?iv\.ggtyler\.dev`,
	`(?:www\.)?invidio\.us`,
}

// The leading alternative requires a recognised prefix and lets anything
// follow the ID. The trailing alternative is the naked ID, which must end
// the input or be followed by '#'.
var pattern = regexp.MustCompile(buildPattern())

func buildPattern() string {
	invidious := strings.Join(invidiousHosts, "|")

	hosts := strings.Join([]string{
		`(?:\w+\.)?youtube(?:-nocookie|kids)?\.com`,
		`(?:www\.)?deturl\.com/www\.youtube\.com`,
		`(?:www\.)?pwnyoutube\.com`,
		`(?:www\.)?hooktube\.com`,
		`(?:www\.)?yourepeat\.com`,
		`tube\.majestyc\.net`,
		invidious,
		`youtube\.googleapis\.com`,
	}, "|")

	beforeID := `(?:` +
		`(?P<segment>(?:v|embed|e|shorts|live)/)` +
		`|(?:(?:(?:watch|movie)(?:_popup)?(?:\.php)?/?)?(?:\?|#!?)(?:.*?[&;])??v=)` +
		`)`

	prefix := `(?:https?://|//)(?:` +
		`(?:(?:` + hosts + `)/(?:.*?#/)?` + beforeID + `)` +
		`|(?:youtu\.be|vid\.plus|zwearz\.com/watch|` + invidious + `)/` +
		`|(?:www\.)?cleanvideosearch\.com/media/action/yt/watch\?videoId=` +
		`)`

	return fmt.Sprintf(`(?i)^(?:%s(?P<id>%s).*|(?P<bare>%s)(?:#.*)?)$`, prefix, idPattern, idPattern)
}

var (
	idIndex      = pattern.SubexpIndex("id")
	bareIndex    = pattern.SubexpIndex("bare")
	segmentIndex = pattern.SubexpIndex("segment")
)

// pseudoIDs are playlist and channel-stream path components that happen to
// be 11 characters long.
var pseudoIDs = map[string]struct{}{
	"videoseries": {},
	"live_stream": {},
}

// Extract returns the video ID embedded in raw, or domain.ErrInvalidSourceURL.
func Extract(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", domain.ErrInvalidSourceURL
	}
	match := pattern.FindStringSubmatch(value)
	if match == nil {
		return "", domain.ErrInvalidSourceURL
	}
	if bare := match[bareIndex]; bare != "" {
		return bare, nil
	}
	id := match[idIndex]
	if match[segmentIndex] != "" {
		if _, pseudo := pseudoIDs[id]; pseudo {
			return "", domain.ErrInvalidSourceURL
		}
	}
	return id, nil
}
