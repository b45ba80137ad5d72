package audioproxy

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"jukebox/playbackservice/internal/domain"
)

type upstreamRecorder struct {
	mu      sync.Mutex
	methods []string
	ranges  []string
}

func (u *upstreamRecorder) record(r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.methods = append(u.methods, r.Method)
	u.ranges = append(u.ranges, r.Header.Get("Range"))
}

func newAudioUpstream(t *testing.T, payload []byte) (*httptest.Server, *upstreamRecorder) {
	t.Helper()
	rec := &upstreamRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", "audio/webm")
		http.ServeContent(w, r, "audio.webm", time.Time{}, bytes.NewReader(payload))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newTestFetcher(maxBytes int64) *Fetcher {
	return NewFetcher(Config{
		Client:       &http.Client{Timeout: 5 * time.Second},
		AllowedHosts: []string{"127.0.0.1"},
		MaxBytes:     maxBytes,
	})
}

func TestFetchReturnsExactlyContentLength(t *testing.T) {
	payload := bytes.Repeat([]byte("opus"), 4096)
	srv, rec := newAudioUpstream(t, payload)
	fetcher := newTestFetcher(0)

	var out bytes.Buffer
	n, err := fetcher.Fetch(context.Background(), EncodePointer(srv.URL+"/videoplayback?expire=1700021600"), &out)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n != int64(len(payload)) || out.Len() != len(payload) {
		t.Fatalf("expected %d bytes, got n=%d buffered=%d", len(payload), n, out.Len())
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Fatal("payload mismatch")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.methods) != 2 || rec.methods[0] != http.MethodHead || rec.methods[1] != http.MethodGet {
		t.Fatalf("expected HEAD then GET, got %v", rec.methods)
	}
	wantRange := "bytes=0-" + strconv.Itoa(len(payload)-1)
	if rec.ranges[1] != wantRange {
		t.Fatalf("expected range %q, got %q", wantRange, rec.ranges[1])
	}
}

func TestOpenReportsLength(t *testing.T) {
	payload := []byte("0123456789")
	srv, _ := newAudioUpstream(t, payload)
	fetcher := newTestFetcher(100)

	upstream, err := fetcher.Open(context.Background(), EncodePointer(srv.URL))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer upstream.Body.Close()
	if upstream.Length != 10 {
		t.Fatalf("expected length 10, got %d", upstream.Length)
	}
}

func TestFetchRejectsOversizedUpstream(t *testing.T) {
	srv, rec := newAudioUpstream(t, make([]byte, 2048))
	fetcher := newTestFetcher(1024)

	_, err := fetcher.Fetch(context.Background(), EncodePointer(srv.URL), &bytes.Buffer{})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.methods) != 1 {
		t.Fatalf("expected only the HEAD request, got %v", rec.methods)
	}
}

func TestFetchRejectsDisallowedHost(t *testing.T) {
	fetcher := NewFetcher(Config{})
	inputs := []string{
		"https://evil.example.com/videoplayback",
		"https://googlevideo.com.evil.example/x",
		"http://127.0.0.1:6379/",
		"file:///etc/passwd",
		"//rr1.googlevideo.com/videoplayback",
	}
	for _, raw := range inputs {
		_, err := fetcher.Fetch(context.Background(), EncodePointer(raw), &bytes.Buffer{})
		if !errors.Is(err, ErrInvalidPointer) {
			t.Errorf("Fetch(%q) = %v, want ErrInvalidPointer", raw, err)
		}
	}
}

func TestDefaultAllowedHostsAcceptSubdomains(t *testing.T) {
	fetcher := NewFetcher(Config{})
	if !fetcher.hostAllowed("rr4---sn-4g5e6nsz.googlevideo.com") {
		t.Fatal("expected googlevideo subdomain to be allowed")
	}
	if fetcher.hostAllowed("notgooglevideo.com") {
		t.Fatal("suffix match must respect label boundaries")
	}
}

func TestFetchUpstreamHeadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestFetcher(0).Fetch(context.Background(), EncodePointer(srv.URL), &bytes.Buffer{})
	if !errors.Is(err, domain.ErrUpstreamFetch) {
		t.Fatalf("expected ErrUpstreamFetch, got %v", err)
	}
}

func TestFetchUpstreamGetFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "10")
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestFetcher(0).Fetch(context.Background(), EncodePointer(srv.URL), &bytes.Buffer{})
	if !errors.Is(err, domain.ErrUpstreamFetch) {
		t.Fatalf("expected ErrUpstreamFetch, got %v", err)
	}
}

func TestFetchShortBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "100")
			return
		}
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(make([]byte, 40))
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	n, err := newTestFetcher(0).Fetch(context.Background(), EncodePointer(srv.URL), &out)
	if !errors.Is(err, domain.ErrUpstreamFetch) {
		t.Fatalf("expected ErrUpstreamFetch, got %v", err)
	}
	if n != 40 {
		t.Fatalf("expected 40 bytes copied before failure, got %d", n)
	}
}

func TestFetchMissingContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestFetcher(0).Fetch(context.Background(), EncodePointer(srv.URL), &bytes.Buffer{})
	if !errors.Is(err, domain.ErrUpstreamFetch) {
		t.Fatalf("expected ErrUpstreamFetch, got %v", err)
	}
}
