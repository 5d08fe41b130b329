package testsupport

import (
	"path/filepath"
	"testing"

	"gazerec/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ExportDir = filepath.Join(base, "exports")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "gazerec.sock")
	cfgVal.Capture.ChunkIntervalMS = 10
	cfgVal.Capture.FinalizeTimeoutSeconds = 2

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithIssuerURL points uploads at a test issuer.
func WithIssuerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.IssuerURL = url
	}
}

// WithWebcamDevice overrides the capture device path.
func WithWebcamDevice(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.WebcamDevice = path
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
