package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	ExportDir  string `toml:"export_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Capture contains device and encoder settings for both recorded streams.
type Capture struct {
	FFmpegBinary           string   `toml:"ffmpeg_binary"`
	ChunkIntervalMS        int      `toml:"chunk_interval_ms"`
	FinalizeTimeoutSeconds int      `toml:"finalize_timeout_seconds"`
	WebcamDevice           string   `toml:"webcam_device"`
	WebcamWidth            int      `toml:"webcam_width"`
	WebcamHeight           int      `toml:"webcam_height"`
	WebcamFramerate        int      `toml:"webcam_framerate"`
	WebcamBitrate          int      `toml:"webcam_bitrate"`
	ScreenDisplay          string   `toml:"screen_display"`
	ScreenWindowID         string   `toml:"screen_window_id"`
	ScreenWidth            int      `toml:"screen_width"`
	ScreenHeight           int      `toml:"screen_height"`
	ScreenFramerate        int      `toml:"screen_framerate"`
	ScreenBitrate          int      `toml:"screen_bitrate"`
	MimePreferences        []string `toml:"mime_preferences"`
}

// Export contains archive packaging settings.
type Export struct {
	CompressionLevel      int   `toml:"compression_level"`
	MetadataOverheadBytes int64 `toml:"metadata_overhead_bytes"`
	AutoPackage           bool  `toml:"auto_package"`
}

// Upload contains presigned-URL upload settings.
type Upload struct {
	IssuerURL      string `toml:"issuer_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ContentType    string `toml:"content_type"`
}

// Storage contains local disk usage thresholds.
type Storage struct {
	WarnUsagePercent int `toml:"warn_usage_percent"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for gazerec.
//
// Configuration sections by subsystem:
//   - Paths: data, export and log directories plus the bridge socket
//   - Capture: webcam/screen devices, encoder bitrates and chunk cadence
//   - Export: archive compression and size estimation
//   - Upload: presigned URL issuer and transfer timeout
//   - Storage: disk usage warning threshold
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Capture Capture `toml:"capture"`
	Export  Export  `toml:"export"`
	Upload  Upload  `toml:"upload"`
	Storage Storage `toml:"storage"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gazerec.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, export and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ExportDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.SocketPath); c.Paths.SocketPath != "" && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create socket directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file holding sessions and chunks.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "chunks.db")
}

// LockPath returns the lock file guarding one active recording per data dir.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "recording.lock")
}

// ChunkInterval returns the encoder timeslice.
func (c *Config) ChunkInterval() time.Duration {
	return time.Duration(c.Capture.ChunkIntervalMS) * time.Millisecond
}

// FinalizeTimeout bounds how long a recorder waits for its encoder to finish.
func (c *Config) FinalizeTimeout() time.Duration {
	return time.Duration(c.Capture.FinalizeTimeoutSeconds) * time.Second
}

// UploadTimeout is the hard limit for one upload attempt.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.TimeoutSeconds) * time.Second
}

// FFmpegBinary returns the ffmpeg executable used for capture.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Capture.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
