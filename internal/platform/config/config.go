package config

import (
	"os"
	"strconv"
	"time"
)

// Default dataset source, matching the public OpenSanctions simple CSV
// export for the US SDN list.
const defaultSourceURL = "https://data.opensanctions.org/datasets/20250806/us_sdn/targets.simple.csv"

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr string

	// Dataset source.
	SourceURL    string
	SourceKind   string // http, file, gcs, s3
	FetchTimeout time.Duration

	// Cache behavior.
	TTL             time.Duration
	RefreshBackoff  time.Duration
	MaxSkipFraction float64

	// Query behavior.
	ResultLimit int

	// Optional Redis-backed rate limiting for the public endpoint.
	RedisURL        string
	RateLimitPerWin int
	RateLimitWindow time.Duration
}

// FromEnv builds a Config from environment variables with defaults
// suitable for local development.
func FromEnv() Config {
	return Config{
		Addr:            getEnv("SDNSCREEN_ADDR", ":8080"),
		SourceURL:       getEnv("SDNSCREEN_SOURCE_URL", defaultSourceURL),
		SourceKind:      getEnv("SDNSCREEN_SOURCE_KIND", "http"),
		FetchTimeout:    getDuration("SDNSCREEN_FETCH_TIMEOUT", 30*time.Second),
		TTL:             getDuration("SDNSCREEN_TTL", 15*time.Minute),
		RefreshBackoff:  getDuration("SDNSCREEN_REFRESH_BACKOFF", time.Minute),
		MaxSkipFraction: getFloat("SDNSCREEN_MAX_SKIP_FRACTION", 0.5),
		ResultLimit:     getInt("SDNSCREEN_RESULT_LIMIT", 100),
		RedisURL:        os.Getenv("SDNSCREEN_REDIS_URL"),
		RateLimitPerWin: getInt("SDNSCREEN_RATE_LIMIT", 0),
		RateLimitWindow: getDuration("SDNSCREEN_RATE_WINDOW", time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
