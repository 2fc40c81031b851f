package config

import (
	"os"
	"strconv"
)

// FromEnv overlays EPIVIEW_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("EPIVIEW_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("EPIVIEW_REMOTE_URL"); v != "" {
		cfg.RemoteBaseURL = v
	}
	if v := os.Getenv("EPIVIEW_REQUEST_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RequestTimeoutMs = n
		}
	}
	if v := os.Getenv("EPIVIEW_DEFAULT_CATEGORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultCategory = n
		}
	}
}
