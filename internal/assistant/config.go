package assistant

import "time"

// DefaultEndpoint is the public OpenAI chat-completions URL.
const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4.1-mini"

// Config holds the chat-completion client settings.
type Config struct {
	APIKey           string
	Endpoint         string
	Model            string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// DefaultConfig returns a Config without an API key.
func DefaultConfig() Config {
	return Config{
		Endpoint:         DefaultEndpoint,
		Model:            DefaultModel,
		Timeout:          60 * time.Second,
		MaxResponseBytes: 4 << 20,
	}
}
