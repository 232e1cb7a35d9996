// Package config loads the server configuration.
//
// Sources, later ones winning:
//  1. Defaults()
//  2. a YAML file (explicit path, COMPILER_CONFIG, or ./config.yaml)
//  3. environment variables (JUDGE0_BASE_URL, OPENAI_API_KEY, PORT, ...)
//
// Missing upstream settings are not an error: the server starts and the
// affected flow answers with its "not configured" message.
package config

import "time"

// Config is the full server configuration.
type Config struct {
	Port      int             `yaml:"port"`
	Log       LogConfig       `yaml:"log"`
	Judge0    Judge0Config    `yaml:"judge0"`
	Assistant AssistantConfig `yaml:"assistant"`
	CORS      CORSConfig      `yaml:"cors"`
	Session   SessionConfig   `yaml:"session"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Judge0Config configures the execution service client.
type Judge0Config struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	APIKeyHeader string        `yaml:"api_key_header"`
	Timeout      time.Duration `yaml:"timeout"`
}

// AssistantConfig configures the chat-completion client.
type AssistantConfig struct {
	APIKey   string        `yaml:"api_key"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CORSConfig lists origins allowed to call /api from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SessionConfig configures page sessions.
type SessionConfig struct {
	// Secret signs the session cookie. Empty means a random per-process secret.
	Secret  string        `yaml:"secret"`
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port: 8080,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Judge0: Judge0Config{
			APIKeyHeader: "X-RapidAPI-Key",
			Timeout:      30 * time.Second,
		},
		Assistant: AssistantConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4.1-mini",
			Timeout:  60 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Session: SessionConfig{
			IdleTTL: 30 * time.Minute,
		},
	}
}
