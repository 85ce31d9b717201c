package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	UserAgent       string
	StaticToken     string
	RedisURL        string
	SessionCookie   string
	RateLimitRPS    float64
	RateLimitBurst  int
	OTLPEndpoint    string
	TraceSampling   float64
}

// LoadConfig reads the environment, after merging an optional .env file from
// the working directory. Variables already set in the environment win.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8095"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UpstreamBaseURL: normalizeBaseURL(getEnv("UPSTREAM_BASE_URL", "http://127.0.0.1:8000/api")),
		UpstreamTimeout: time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 15)) * time.Second,
		UserAgent:       getEnv("UPSTREAM_USER_AGENT", "moviesvault-catalog/1.0"),
		StaticToken:     strings.TrimSpace(os.Getenv("UPSTREAM_STATIC_TOKEN")),
		RedisURL:        getEnv("REDIS_URL", ""),
		SessionCookie:   getEnv("SESSION_COOKIE", "moviesvault_session"),
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 40),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampling:   getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
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

func normalizeBaseURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		value = "http://" + value
	}
	return strings.TrimRight(value, "/")
}
