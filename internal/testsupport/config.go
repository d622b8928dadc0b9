package testsupport

import (
	"path/filepath"
	"testing"

	"reprint/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The broker URL is cleared so tests run with a noop publisher unless they
// opt in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Broker.URL = ""
	cfg.Storage.Endpoint = "http://127.0.0.1:0"
	cfg.Storage.AccessKey = "test"
	cfg.Storage.SecretKey = "test"
	cfg.Embedder.BaseURL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBrokerURL points the test config at a live broker.
func WithBrokerURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Broker.URL = url
	}
}

// WithEmbedderURL points the test config at an embedding test server.
func WithEmbedderURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Embedder.BaseURL = url
	}
}
