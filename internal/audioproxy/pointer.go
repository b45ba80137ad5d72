package audioproxy

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
)

var ErrInvalidPointer = errors.New("invalid audio source pointer")

// Pointers use the URL-safe alphabet with padding. Strict decoding rejects
// non-canonical trailing bits, so every accepted pointer re-encodes to
// itself.
var pointerEncoding = base64.URLEncoding.Strict()

// EncodePointer hides an upstream stream URL behind an opaque token.
func EncodePointer(upstreamURL string) string {
	return pointerEncoding.EncodeToString([]byte(upstreamURL))
}

// DecodePointer reverses EncodePointer.
func DecodePointer(pointer string) (string, error) {
	// The decoder skips CR and LF; refuse them so decoding stays one-to-one.
	if pointer == "" || strings.ContainsAny(pointer, "\r\n") {
		return "", ErrInvalidPointer
	}
	raw, err := pointerEncoding.DecodeString(pointer)
	if err != nil {
		return "", ErrInvalidPointer
	}
	return string(raw), nil
}

// Wrap builds the public proxy link for an upstream URL. baseURL may be
// empty, in which case the link is relative.
func Wrap(baseURL, upstreamURL string) string {
	query := url.Values{"audio_source": {EncodePointer(upstreamURL)}}
	return strings.TrimRight(baseURL, "/") + Path + "?" + query.Encode()
}

// Path is where the proxy handler is mounted.
const Path = "/fetch-audio"
