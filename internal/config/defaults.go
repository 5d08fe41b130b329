package config

const (
	defaultConfigPath             = "~/.config/gazerec/config.toml"
	defaultDataDir                = "~/.local/share/gazerec"
	defaultExportDir              = "~/.local/share/gazerec/exports"
	defaultLogDir                 = "~/.local/share/gazerec/logs"
	defaultSocketPath             = "~/.local/share/gazerec/gazerec.sock"
	defaultFFmpegBinary           = "ffmpeg"
	defaultChunkIntervalMS        = 1000
	defaultFinalizeTimeoutSeconds = 10
	defaultWebcamDevice           = "/dev/video0"
	defaultWebcamWidth            = 1280
	defaultWebcamHeight           = 720
	defaultWebcamFramerate        = 30
	defaultWebcamBitrate          = 3_000_000
	defaultScreenDisplay          = ":0.0"
	defaultScreenWidth            = 1920
	defaultScreenHeight           = 1080
	defaultScreenFramerate        = 30
	defaultScreenBitrate          = 5_000_000
	defaultCompressionLevel       = 6
	defaultMetadataOverheadBytes  = 10 * 1024
	defaultUploadTimeoutSeconds   = 30 * 60
	defaultUploadContentType      = "application/zip"
	defaultWarnUsagePercent       = 90
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// DefaultMimePreferences is the encoder format preference order, best first.
func DefaultMimePreferences() []string {
	return []string{
		"video/mp4;codecs=avc1,mp4a.40.2",
		"video/mp4",
		"video/webm;codecs=vp9,opus",
		"video/webm;codecs=vp8,opus",
		"video/webm",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			ExportDir:  defaultExportDir,
			LogDir:     defaultLogDir,
			SocketPath: defaultSocketPath,
		},
		Capture: Capture{
			FFmpegBinary:           defaultFFmpegBinary,
			ChunkIntervalMS:        defaultChunkIntervalMS,
			FinalizeTimeoutSeconds: defaultFinalizeTimeoutSeconds,
			WebcamDevice:           defaultWebcamDevice,
			WebcamWidth:            defaultWebcamWidth,
			WebcamHeight:           defaultWebcamHeight,
			WebcamFramerate:        defaultWebcamFramerate,
			WebcamBitrate:          defaultWebcamBitrate,
			ScreenDisplay:          defaultScreenDisplay,
			ScreenWidth:            defaultScreenWidth,
			ScreenHeight:           defaultScreenHeight,
			ScreenFramerate:        defaultScreenFramerate,
			ScreenBitrate:          defaultScreenBitrate,
			MimePreferences:        DefaultMimePreferences(),
		},
		Export: Export{
			CompressionLevel:      defaultCompressionLevel,
			MetadataOverheadBytes: defaultMetadataOverheadBytes,
		},
		Upload: Upload{
			TimeoutSeconds: defaultUploadTimeoutSeconds,
			ContentType:    defaultUploadContentType,
		},
		Storage: Storage{
			WarnUsagePercent: defaultWarnUsagePercent,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
