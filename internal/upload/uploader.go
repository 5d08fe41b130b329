package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gazerec/internal/chunkstore"
	"gazerec/internal/logging"
	"gazerec/internal/sessiondata"
)

const (
	DefaultTimeout     = 30 * time.Minute
	DefaultContentType = "application/zip"
)

// StatusSetter records the session status after a successful upload.
type StatusSetter interface {
	SetStatus(ctx context.Context, sessionID string, status sessiondata.Status, message string) error
}

// Options configures an Uploader.
type Options struct {
	Client      *http.Client
	ContentType string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Uploader PUTs archives to presigned URLs.
type Uploader struct {
	client      *http.Client
	contentType string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewUploader builds an Uploader with defaults for zero options.
func NewUploader(opts Options) *Uploader {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Uploader{
		client:      client,
		contentType: contentType,
		timeout:     timeout,
		logger:      logging.NewComponentLogger(opts.Logger, "upload"),
	}
}

// Put sends size bytes from body to url. onProgress may be nil.
func (u *Uploader) Put(ctx context.Context, url string, body io.Reader, size int64, onProgress func(Progress)) error {
	ctx, cancel := context.WithTimeoutCause(ctx, u.timeout, ErrTimeout)
	defer cancel()

	reader := &progressReader{r: body, total: size, report: onProgress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, reader)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", u.contentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			return ErrTimeout
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// UploadSession issues a target for the archive at path, uploads it and
// marks the session uploaded. On any failure the status is left untouched.
func (u *Uploader) UploadSession(ctx context.Context, issuer Issuer, store StatusSetter, sessionID, path string, onProgress func(Progress)) error {
	logger := logging.WithSessionID(u.logger, sessionID)
	filename := filepath.Base(path)
	if err := ValidateFilename(filename); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}

	target, err := issuer.Issue(ctx, sessionID, filename)
	if err != nil {
		return fmt.Errorf("get upload url: %w", err)
	}

	started := time.Now()
	if err := u.Put(ctx, target.UploadURL, file, info.Size(), onProgress); err != nil {
		logging.WarnWithContext(logger, "upload failed", "upload_failed",
			logging.String("filename", filename),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network connectivity and retry the upload"),
			logging.String(logging.FieldImpact, "session stays in its current status"),
		)
		return err
	}

	err = store.SetStatus(ctx, sessionID, sessiondata.StatusUploaded, "")
	switch {
	case errors.Is(err, chunkstore.ErrSessionNotFound):
		logger.Info("uploaded archive has no local session record", logging.String("filename", filename))
	case err != nil:
		return fmt.Errorf("mark session uploaded: %w", err)
	}
	logger.Info("upload complete",
		logging.String("filename", filename),
		logging.Int64("bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}
