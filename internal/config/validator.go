package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for unusable settings before the server starts
// (and before a hot-reload is applied).
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.Storage.Backend {
	case "memory":
	case "redis":
		if cfg.Storage.RedisURL == "" {
			errs = append(errs, "storage: redis_url is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: backend %q must be one of memory, redis", cfg.Storage.Backend))
	}

	if cfg.Cleanup.Schedule == "" {
		errs = append(errs, "cleanup: schedule is required")
	}
	if cfg.Sink.URL != "" && !strings.HasPrefix(cfg.Sink.URL, "http://") && !strings.HasPrefix(cfg.Sink.URL, "https://") {
		errs = append(errs, fmt.Sprintf("sink: url %q must be an http(s) endpoint", cfg.Sink.URL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
