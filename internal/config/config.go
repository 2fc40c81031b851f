package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/epiview/epiview/internal/catalog"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	HTTPAddr         string `json:"httpAddr"`
	RemoteBaseURL    string `json:"remoteBaseUrl"`
	RequestTimeoutMs int    `json:"requestTimeoutMs"`
	DefaultCategory  int    `json:"defaultCategory"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:         ":8080",
		RemoteBaseURL:    "http://localhost:9090",
		RequestTimeoutMs: 10_000,
		DefaultCategory:  catalog.CategoryAll,
	}
}

// RequestTimeout returns the remote request timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return Config{}, errors.New("yaml config not supported yet; use JSON for now")
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}
