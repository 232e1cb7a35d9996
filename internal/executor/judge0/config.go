package judge0

import (
	"time"
)

// Config holds the connection settings for a Judge0-compatible execution service.
type Config struct {
	// BaseURL is the full submissions URL, e.g.
	// https://judge0-ce.p.rapidapi.com/submissions?base64_encoded=false&wait=true
	// Empty means "not configured": every run fails with a configuration error.
	BaseURL string
	// APIKey is optional. When set it is sent in APIKeyHeader.
	APIKey string
	// APIKeyHeader defaults to the RapidAPI header name.
	APIKeyHeader string
	// Timeout bounds a single submission round trip.
	Timeout time.Duration
	// MaxResponseBytes caps how much of the response body is read.
	MaxResponseBytes int64
}

// DefaultConfig returns a Config with no endpoint and sensible limits.
func DefaultConfig() Config {
	return Config{
		APIKeyHeader: "X-RapidAPI-Key",
		// wait=true submissions include compile + run time
		Timeout:          30 * time.Second,
		MaxResponseBytes: 4 << 20,
	}
}
