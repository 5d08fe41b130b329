package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeUpload()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaultSocketPath
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.FFmpegBinary = strings.TrimSpace(c.Capture.FFmpegBinary)
	if c.Capture.FFmpegBinary == "" {
		c.Capture.FFmpegBinary = defaultFFmpegBinary
	}
	c.Capture.WebcamDevice = strings.TrimSpace(c.Capture.WebcamDevice)
	if c.Capture.WebcamDevice == "" {
		c.Capture.WebcamDevice = defaultWebcamDevice
	}
	c.Capture.ScreenDisplay = strings.TrimSpace(c.Capture.ScreenDisplay)
	if c.Capture.ScreenDisplay == "" {
		if value, ok := os.LookupEnv("DISPLAY"); ok && strings.TrimSpace(value) != "" {
			c.Capture.ScreenDisplay = strings.TrimSpace(value)
		} else {
			c.Capture.ScreenDisplay = defaultScreenDisplay
		}
	}
	c.Capture.ScreenWindowID = strings.TrimSpace(c.Capture.ScreenWindowID)
	if len(c.Capture.MimePreferences) == 0 {
		c.Capture.MimePreferences = DefaultMimePreferences()
	} else {
		prefs := make([]string, 0, len(c.Capture.MimePreferences))
		for _, mime := range c.Capture.MimePreferences {
			prefs = append(prefs, strings.TrimSpace(mime))
		}
		c.Capture.MimePreferences = prefs
	}
}

func (c *Config) normalizeUpload() {
	c.Upload.IssuerURL = strings.TrimSpace(c.Upload.IssuerURL)
	if c.Upload.IssuerURL == "" {
		if value, ok := os.LookupEnv("GAZEREC_ISSUER_URL"); ok {
			c.Upload.IssuerURL = strings.TrimSpace(value)
		}
	}
	c.Upload.ContentType = strings.TrimSpace(c.Upload.ContentType)
	if c.Upload.ContentType == "" {
		c.Upload.ContentType = defaultUploadContentType
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
