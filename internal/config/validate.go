package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		return errors.New("paths.export_dir must be set")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if err := ensurePositiveMap(map[string]int{
		"capture.chunk_interval_ms":        c.Capture.ChunkIntervalMS,
		"capture.finalize_timeout_seconds": c.Capture.FinalizeTimeoutSeconds,
		"capture.webcam_width":             c.Capture.WebcamWidth,
		"capture.webcam_height":            c.Capture.WebcamHeight,
		"capture.webcam_framerate":         c.Capture.WebcamFramerate,
		"capture.webcam_bitrate":           c.Capture.WebcamBitrate,
		"capture.screen_width":             c.Capture.ScreenWidth,
		"capture.screen_height":            c.Capture.ScreenHeight,
		"capture.screen_framerate":         c.Capture.ScreenFramerate,
		"capture.screen_bitrate":           c.Capture.ScreenBitrate,
	}); err != nil {
		return err
	}
	for idx, mime := range c.Capture.MimePreferences {
		if mime == "" {
			return fmt.Errorf("capture.mime_preferences[%d] must not be empty", idx)
		}
		if !strings.HasPrefix(mime, "video/") {
			return fmt.Errorf("capture.mime_preferences[%d] %q must be a video mime type", idx, mime)
		}
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.CompressionLevel < 0 || c.Export.CompressionLevel > 9 {
		return errors.New("export.compression_level must be between 0 and 9")
	}
	if c.Export.MetadataOverheadBytes < 0 {
		return errors.New("export.metadata_overhead_bytes must be >= 0")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.TimeoutSeconds <= 0 {
		return errors.New("upload.timeout_seconds must be positive")
	}
	if c.Upload.IssuerURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Upload.IssuerURL)
	if err != nil {
		return fmt.Errorf("upload.issuer_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("upload.issuer_url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("upload.issuer_url must include a host")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.WarnUsagePercent < 1 || c.Storage.WarnUsagePercent > 100 {
		return errors.New("storage.warn_usage_percent must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
