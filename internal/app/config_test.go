package app

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "REDIS_URL", "AUDIO_MAX_BYTES", "PROXY_AUDIO",
		"PUBLIC_BASE_URL", "PROXY_ALLOWED_HOSTS", "EXTRACT_TIMEOUT_SECONDS", "PROXY_TIMEOUT_SECONDS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "FETCH_AUDIO_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
	if cfg.AudioMaxBytes != 5*1024*1024 {
		t.Fatalf("unexpected audio ceiling %d", cfg.AudioMaxBytes)
	}
	if !cfg.ProxyAudio {
		t.Fatal("proxy should default to on")
	}
	if !reflect.DeepEqual(cfg.ProxyAllowedHosts, []string{"googlevideo.com"}) {
		t.Fatalf("unexpected hosts %v", cfg.ProxyAllowedHosts)
	}
	if cfg.ExtractTimeout != 30*time.Second || cfg.ProxyTimeout != 60*time.Second {
		t.Fatalf("unexpected timeouts %v %v", cfg.ExtractTimeout, cfg.ProxyTimeout)
	}
	if cfg.RateLimitRPS != 20 || cfg.RateLimitBurst != 40 || cfg.FetchAudioPerMinute != 60 {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if cfg.RedisURL != "" || cfg.PublicBaseURL != "" {
		t.Fatalf("expected empty redis and base url, got %q %q", cfg.RedisURL, cfg.PublicBaseURL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("AUDIO_MAX_BYTES", "1048576")
	t.Setenv("PROXY_AUDIO", "off")
	t.Setenv("PUBLIC_BASE_URL", "jukebox.example.com/")
	t.Setenv("PROXY_ALLOWED_HOSTS", " googlevideo.com, ,c.youtube.com ")
	t.Setenv("RATE_LIMIT_RPS", "0")
	t.Setenv("EXTRACT_TIMEOUT_SECONDS", "-5")

	cfg := LoadConfig()
	if cfg.HTTPAddr != ":9000" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected %q %q", cfg.HTTPAddr, cfg.LogLevel)
	}
	if cfg.AudioMaxBytes != 1048576 {
		t.Fatalf("unexpected audio ceiling %d", cfg.AudioMaxBytes)
	}
	if cfg.ProxyAudio {
		t.Fatal("expected proxy disabled")
	}
	if cfg.PublicBaseURL != "https://jukebox.example.com" {
		t.Fatalf("unexpected base url %q", cfg.PublicBaseURL)
	}
	if !reflect.DeepEqual(cfg.ProxyAllowedHosts, []string{"googlevideo.com", "c.youtube.com"}) {
		t.Fatalf("unexpected hosts %v", cfg.ProxyAllowedHosts)
	}
	if cfg.RateLimitRPS != 0 {
		t.Fatalf("expected limiter disabled, got %v", cfg.RateLimitRPS)
	}
	if cfg.ExtractTimeout != 30*time.Second {
		t.Fatalf("invalid timeout should fall back, got %v", cfg.ExtractTimeout)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := map[string]bool{
		"1": true, "yes": true, "ON": true,
		"0": false, "no": false, "Off": false,
		"maybe": true,
	}
	for raw, want := range tests {
		t.Setenv("JUKEBOX_TEST_BOOL", raw)
		if got := getEnvBool("JUKEBOX_TEST_BOOL", true); got != want {
			t.Errorf("getEnvBool(%q) = %v, want %v", raw, got, want)
		}
	}
}
