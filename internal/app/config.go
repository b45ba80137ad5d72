package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr            string
	LogLevel            string
	LogFormat           string
	RedisURL            string
	AudioMaxBytes       int64
	ProxyAudio          bool
	PublicBaseURL       string
	ProxyAllowedHosts   []string
	ExtractTimeout      time.Duration
	ProxyTimeout        time.Duration
	RateLimitRPS        float64
	RateLimitBurst      int
	FetchAudioPerMinute int
	Version             string
	SourceCodeURL       string
	PoweredBy           string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "text")),
		RedisURL:            getEnv("REDIS_URL", ""),
		AudioMaxBytes:       getEnvInt64("AUDIO_MAX_BYTES", 5*1024*1024),
		ProxyAudio:          getEnvBool("PROXY_AUDIO", true),
		PublicBaseURL:       normalizeBaseURL(getEnv("PUBLIC_BASE_URL", "")),
		ProxyAllowedHosts:   getEnvList("PROXY_ALLOWED_HOSTS", []string{"googlevideo.com"}),
		ExtractTimeout:      time.Duration(getEnvInt("EXTRACT_TIMEOUT_SECONDS", 30)) * time.Second,
		ProxyTimeout:        time.Duration(getEnvInt("PROXY_TIMEOUT_SECONDS", 60)) * time.Second,
		RateLimitRPS:        getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 40),
		FetchAudioPerMinute: getEnvInt("FETCH_AUDIO_PER_MINUTE", 60),
		Version:             getEnv("SERVICE_VERSION", "1.0.0"),
		SourceCodeURL:       getEnv("SOURCE_CODE_URL", "https://github.com/NightFeather0615/Classroom-Jukebox-API"),
		PoweredBy:           getEnv("POWERED_BY", "https://go.dev/"),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// getEnvFloat accepts zero so the global limiter can be switched off.
func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	items := make([]string, 0, 4)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}

func normalizeBaseURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		value = "https://" + value
	}
	return strings.TrimRight(value, "/")
}
