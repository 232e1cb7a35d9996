package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks ranges and formats. Empty upstream URLs and keys are valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}

	if c.Judge0.BaseURL != "" {
		if err := checkURL(c.Judge0.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("judge0.base_url: %w", err))
		}
	}
	if c.Judge0.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("judge0.timeout must be > 0, got %s", c.Judge0.Timeout))
	}

	if err := checkURL(c.Assistant.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("assistant.endpoint: %w", err))
	}
	if c.Assistant.Model == "" {
		errs = append(errs, errors.New("assistant.model is required"))
	}
	if c.Assistant.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("assistant.timeout must be > 0, got %s", c.Assistant.Timeout))
	}

	if c.Session.Secret != "" && len(c.Session.Secret) < 16 {
		errs = append(errs, errors.New("session.secret must be at least 16 characters"))
	}
	if c.Session.IdleTTL <= 0 {
		errs = append(errs, fmt.Errorf("session.idle_ttl must be > 0, got %s", c.Session.IdleTTL))
	}

	return errors.Join(errs...)
}

// SlogLevel maps Level to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
	}
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
