package audioproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jukebox/playbackservice/internal/domain"
	"jukebox/playbackservice/internal/metrics"
)

const (
	ContentType         = "audio/webm"
	defaultUserAgent    = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	defaultProxyTimeout = 60 * time.Second
	maxRedirects        = 5
)

var ErrTooLarge = errors.New("upstream audio exceeds size limit")

var DefaultAllowedHosts = []string{"googlevideo.com"}

type Config struct {
	Client       *http.Client
	AllowedHosts []string
	MaxBytes     int64
	UserAgent    string
}

// Fetcher pulls audio for a proxy pointer: a HEAD to learn the length, then
// one ranged GET covering the whole body.
type Fetcher struct {
	client       *http.Client
	allowedHosts []string
	maxBytes     int64
	userAgent    string
}

// Upstream is an opened upstream body of a known length.
type Upstream struct {
	Body   io.ReadCloser
	Length int64
}

func NewFetcher(cfg Config) *Fetcher {
	hosts := make([]string, 0, len(cfg.AllowedHosts))
	for _, host := range cfg.AllowedHosts {
		host = strings.ToLower(strings.Trim(strings.TrimSpace(host), "."))
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 {
		hosts = append(hosts, DefaultAllowedHosts...)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	f := &Fetcher{
		allowedHosts: hosts,
		maxBytes:     cfg.MaxBytes,
		userAgent:    userAgent,
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultProxyTimeout}
	}
	// Copy so the redirect policy does not leak into a shared client.
	guarded := *client
	guarded.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return f.validateTarget(req.URL)
	}
	f.client = &guarded
	return f
}

// Open decodes the pointer, checks the target and returns the upstream body.
// The caller must close Upstream.Body.
func (f *Fetcher) Open(ctx context.Context, pointer string) (*Upstream, error) {
	rawURL, err := DecodePointer(pointer)
	if err != nil {
		return nil, err
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, ErrInvalidPointer
	}
	if err := f.validateTarget(target); err != nil {
		return nil, err
	}

	length, err := f.contentLength(ctx, target)
	if err != nil {
		metrics.UpstreamFailuresTotal.WithLabelValues("head").Inc()
		return nil, err
	}
	if f.maxBytes > 0 && length > f.maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, length, f.maxBytes)
	}

	body, err := f.rangedGet(ctx, target, length)
	if err != nil {
		metrics.UpstreamFailuresTotal.WithLabelValues("get").Inc()
		return nil, err
	}
	return &Upstream{Body: body, Length: length}, nil
}

// Fetch opens the pointer and copies exactly the upstream length to w.
func (f *Fetcher) Fetch(ctx context.Context, pointer string, w io.Writer) (int64, error) {
	upstream, err := f.Open(ctx, pointer)
	if err != nil {
		return 0, err
	}
	defer upstream.Body.Close()
	return upstream.WriteTo(w)
}

// WriteTo copies Length bytes. A body that ends early is an upstream failure.
func (u *Upstream) WriteTo(w io.Writer) (int64, error) {
	n, err := io.CopyN(w, u.Body, u.Length)
	metrics.ProxiedBytesTotal.Add(float64(n))
	if err != nil {
		metrics.UpstreamFailuresTotal.WithLabelValues("body").Inc()
		return n, fmt.Errorf("%w: copied %d of %d bytes: %w", domain.ErrUpstreamFetch, n, u.Length, err)
	}
	return n, nil
}

func (f *Fetcher) contentLength(ctx context.Context, target *url.URL) (int64, error) {
	req, err := f.newRequest(ctx, http.MethodHead, target)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: head: %w", domain.ErrUpstreamFetch, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: head returned HTTP %d", domain.ErrUpstreamFetch, resp.StatusCode)
	}
	if resp.ContentLength <= 0 {
		return 0, fmt.Errorf("%w: head returned no content length", domain.ErrUpstreamFetch)
	}
	return resp.ContentLength, nil
}

func (f *Fetcher) rangedGet(ctx context.Context, target *url.URL, length int64) (io.ReadCloser, error) {
	req, err := f.newRequest(ctx, http.MethodGet, target)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", length-1))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get: %w", domain.ErrUpstreamFetch, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: get returned HTTP %d", domain.ErrUpstreamFetch, resp.StatusCode)
	}
	return resp.Body, nil
}

func (f *Fetcher) newRequest(ctx context.Context, method string, target *url.URL) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, ErrInvalidPointer
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")
	return req, nil
}

func (f *Fetcher) validateTarget(u *url.URL) error {
	if u == nil {
		return ErrInvalidPointer
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme", ErrInvalidPointer)
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidPointer)
	}
	if !f.hostAllowed(host) {
		return fmt.Errorf("%w: host %q not allowed", ErrInvalidPointer, host)
	}
	return nil
}

// hostAllowed matches a configured host exactly or any subdomain of it.
// IP literals only pass when listed verbatim.
func (f *Fetcher) hostAllowed(host string) bool {
	isIP := net.ParseIP(host) != nil
	for _, allowed := range f.allowedHosts {
		if host == allowed {
			return true
		}
		if !isIP && strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
