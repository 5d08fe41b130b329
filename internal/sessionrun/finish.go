package sessionrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"gazerec/internal/alignment"
	"gazerec/internal/chunkstore"
	"gazerec/internal/config"
	"gazerec/internal/export"
	"gazerec/internal/logging"
	"gazerec/internal/packager"
	"gazerec/internal/upload"
)

// ErrIssuerNotConfigured is returned when an upload is requested without
// upload.issuer_url.
var ErrIssuerNotConfigured = errors.New("upload.issuer_url is not configured")

// NewExportService wires the packager and alignment calculator to store.
// Sessions still recording under the data directory lock are refused.
func NewExportService(cfg *config.Config, store *chunkstore.Store, logger *slog.Logger) *export.Service {
	pkg := packager.New(store, alignment.NewCalculator(store, logger), packager.Options{
		CompressionLevel: cfg.Export.CompressionLevel,
		MetadataOverhead: cfg.Export.MetadataOverheadBytes,
		Logger:           logger,
	})
	return export.NewService(store, pkg, cfg.Paths.ExportDir, logger).WithRecordingLock(cfg.LockPath())
}

// NewIssuer returns the HTTP issuer configured for uploads.
func NewIssuer(cfg *config.Config) (upload.Issuer, error) {
	if strings.TrimSpace(cfg.Upload.IssuerURL) == "" {
		return nil, ErrIssuerNotConfigured
	}
	return upload.NewHTTPIssuer(cfg.Upload.IssuerURL, nil), nil
}

// NewUploader returns an uploader honoring the configured timeout and
// content type.
func NewUploader(cfg *config.Config, client *http.Client, logger *slog.Logger) *upload.Uploader {
	return upload.NewUploader(upload.Options{
		Client:      client,
		ContentType: cfg.Upload.ContentType,
		Timeout:     cfg.UploadTimeout(),
		Logger:      logger,
	})
}

// FinishOptions selects the post-recording steps.
type FinishOptions struct {
	Export bool
	Upload bool
	// Issuer overrides the configured HTTP issuer.
	Issuer     upload.Issuer
	Client     *http.Client
	OnProgress func(upload.Progress)
	Logger     *slog.Logger
}

// FinishResult reports what Finish produced.
type FinishResult struct {
	Export   *export.Result
	Uploaded bool
}

// Finish packages a completed session and optionally uploads the archive.
// Uploading implies packaging.
func Finish(ctx context.Context, cfg *config.Config, store *chunkstore.Store, sessionID string, opts FinishOptions) (FinishResult, error) {
	var result FinishResult
	if !opts.Export && !opts.Upload {
		return result, nil
	}
	logger := logging.WithSessionID(logging.NewComponentLogger(opts.Logger, "sessionrun"), sessionID)

	issuer := opts.Issuer
	if opts.Upload && issuer == nil {
		configured, err := NewIssuer(cfg)
		if err != nil {
			return result, err
		}
		issuer = configured
	}

	exported, err := NewExportService(cfg, store, opts.Logger).Ensure(ctx, sessionID, export.Options{})
	if err != nil {
		return result, fmt.Errorf("export session: %w", err)
	}
	result.Export = &exported
	if !opts.Upload {
		return result, nil
	}

	uploader := NewUploader(cfg, opts.Client, opts.Logger)
	if err := uploader.UploadSession(ctx, issuer, store, sessionID, exported.Path, opts.OnProgress); err != nil {
		return result, fmt.Errorf("upload session: %w", err)
	}
	result.Uploaded = true
	logger.Info("session uploaded",
		logging.String(logging.FieldEventType, "session_uploaded"),
		logging.String("archive", exported.Path),
	)
	return result, nil
}
