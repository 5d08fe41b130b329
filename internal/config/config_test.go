package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"gazerec/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GAZEREC_ISSUER_URL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "gazerec")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "chunks.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.ChunkInterval() != time.Second {
		t.Fatalf("expected 1s chunk interval, got %s", cfg.ChunkInterval())
	}
	if cfg.Export.CompressionLevel != 6 {
		t.Fatalf("expected compression level 6, got %d", cfg.Export.CompressionLevel)
	}
	if cfg.Upload.ContentType != "application/zip" {
		t.Fatalf("unexpected content type %q", cfg.Upload.ContentType)
	}
	if len(cfg.Capture.MimePreferences) != 5 || cfg.Capture.MimePreferences[0] != "video/mp4;codecs=avc1,mp4a.40.2" {
		t.Fatalf("unexpected mime preferences %v", cfg.Capture.MimePreferences)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.ExportDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "gazerec.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Capture struct {
			ChunkIntervalMS int    `toml:"chunk_interval_ms"`
			ScreenWindowID  string `toml:"screen_window_id"`
		} `toml:"capture"`
		Upload struct {
			IssuerURL string `toml:"issuer_url"`
		} `toml:"upload"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Capture.ChunkIntervalMS = 500
	custom.Capture.ScreenWindowID = " 0x3a00007 "
	custom.Upload.IssuerURL = "https://issuer.example.com/upload"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.ChunkInterval() != 500*time.Millisecond {
		t.Fatalf("unexpected chunk interval %s", cfg.ChunkInterval())
	}
	if cfg.Capture.ScreenWindowID != "0x3a00007" {
		t.Fatalf("expected trimmed window id, got %q", cfg.Capture.ScreenWindowID)
	}
	if cfg.Capture.WebcamDevice != "/dev/video0" {
		t.Fatalf("expected default webcam device, got %q", cfg.Capture.WebcamDevice)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"compression level", func(c *config.Config) { c.Export.CompressionLevel = 12 }, "export.compression_level"},
		{"chunk interval", func(c *config.Config) { c.Capture.ChunkIntervalMS = 0 }, "capture.chunk_interval_ms"},
		{"issuer scheme", func(c *config.Config) { c.Upload.IssuerURL = "ftp://example.com" }, "upload.issuer_url"},
		{"issuer host", func(c *config.Config) { c.Upload.IssuerURL = "https:///upload" }, "upload.issuer_url"},
		{"warn percent", func(c *config.Config) { c.Storage.WarnUsagePercent = 0 }, "storage.warn_usage_percent"},
		{"empty mime", func(c *config.Config) { c.Capture.MimePreferences = []string{"video/webm", ""} }, "capture.mime_preferences[1]"},
		{"log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	path := filepath.Join(tempDir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Storage.WarnUsagePercent != 90 {
		t.Fatalf("unexpected warn percent %d", cfg.Storage.WarnUsagePercent)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, ".local", "share", "gazerec") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
}
