package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"gazerec/internal/chunkstore"
	"gazerec/internal/fileutil"
	"gazerec/internal/logging"
	"gazerec/internal/packager"
	"gazerec/internal/sessiondata"
)

// ErrIncomplete is returned in strict mode when validation finds problems.
var ErrIncomplete = errors.New("session data incomplete")

// ErrRecordingActive is returned when the session is still being recorded
// by a process holding the data directory lock.
var ErrRecordingActive = errors.New("session is still recording")

// SessionReader loads session records and their stored chunk volume.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*chunkstore.Session, error)
	CalculateTotalSize(ctx context.Context, sessionID string) (int64, error)
}

// Options controls one export.
type Options struct {
	// Force re-packages even when a cached archive exists.
	Force bool
	// Strict fails the export when validation reports problems.
	Strict bool
}

// Result describes the archive produced or reused.
type Result struct {
	Path     string
	Size     int64
	Reused   bool
	Problems []string
	Package  packager.Result
}

// Service writes session archives to a directory.
type Service struct {
	sessions SessionReader
	packager *packager.Packager
	dir      string
	lockPath string
	logger   *slog.Logger
	now      func() time.Time
}

// NewService returns a Service writing into dir.
func NewService(sessions SessionReader, pkg *packager.Packager, dir string, logger *slog.Logger) *Service {
	return &Service{
		sessions: sessions,
		packager: pkg,
		dir:      dir,
		logger:   logging.NewComponentLogger(logger, "export"),
		now:      time.Now,
	}
}

// WithRecordingLock makes Ensure refuse sessions still marked recording
// while another holder has the lock at path.
func (s *Service) WithRecordingLock(path string) *Service {
	s.lockPath = path
	return s
}

// Dir returns the export directory.
func (s *Service) Dir() string {
	return s.dir
}

// Ensure returns an archive for sessionID, packaging it unless a cached
// archive exists and opts.Force is unset.
func (s *Service) Ensure(ctx context.Context, sessionID string, opts Options) (Result, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return Result{}, fmt.Errorf("%w: %s", chunkstore.ErrSessionNotFound, sessionID)
	}
	logger := logging.WithSessionID(s.logger, sessionID)

	if session.Status == sessiondata.StatusRecording {
		active, err := s.recordingActive()
		if err != nil {
			return Result{}, err
		}
		if active {
			return Result{}, fmt.Errorf("%w: %s", ErrRecordingActive, sessionID)
		}
	}

	data := packager.FromSession(session)
	problems := packager.Validate(data)
	if len(problems) > 0 {
		if opts.Strict {
			return Result{Problems: problems}, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(problems, "; "))
		}
		logging.WarnWithContext(logger, "exporting incomplete session", "export_validation",
			logging.String("problems", strings.Join(problems, "; ")),
			logging.String(logging.FieldImpact, "archive is missing some experiment data"),
		)
	}

	if !opts.Force {
		if path, size, ok := s.Cached(ctx, session); ok {
			logger.Info("reusing cached archive", logging.String("path", path))
			return Result{Path: path, Size: size, Reused: true, Problems: problems}, nil
		}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("ensure export directory: %w", err)
	}
	path := filepath.Join(s.dir, packager.Filename(sessionID, session.Participant.Name, s.now()))
	var pkgResult packager.Result
	err = fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		var err error
		pkgResult, err = s.packager.CreatePackage(ctx, data, w)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("package session: %w", err)
	}
	s.removeStale(sessionID, path)
	logger.Info("archive written",
		logging.String("path", path),
		logging.Int64("bytes", pkgResult.ArchiveBytes),
	)
	return Result{Path: path, Size: pkgResult.ArchiveBytes, Problems: problems, Package: pkgResult}, nil
}

// Cached returns the newest archive in the export directory that still
// matches the stored session: same metadata and same chunk volume.
func (s *Service) Cached(ctx context.Context, session *chunkstore.Session) (string, int64, bool) {
	matches, err := filepath.Glob(filepath.Join(s.dir, packager.FilenamePattern(session.SessionID)))
	if err != nil || len(matches) == 0 {
		return "", 0, false
	}
	stored, err := s.sessions.CalculateTotalSize(ctx, session.SessionID)
	if err != nil {
		logging.WarnWithContext(s.logger, "stored size unavailable", "export_cache_check_failed",
			logging.String(logging.FieldSessionID, session.SessionID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "session will be packaged again"),
		)
		return "", 0, false
	}
	want, err := json.Marshal(packager.FromSession(session))
	if err != nil {
		return "", 0, false
	}

	var (
		best     string
		bestSize int64
		bestTime time.Time
	)
	for _, candidate := range matches {
		info, archive, ok := s.open(candidate, session.SessionID)
		if !ok || !current(archive, want, stored) {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestSize, bestTime = candidate, info.Size(), info.ModTime()
		}
	}
	return best, bestSize, best != ""
}

// current reports whether archive was built from the session encoded in
// want and holds stored bytes of video.
func current(archive *packager.Archive, want []byte, stored int64) bool {
	var video int64
	for _, entry := range archive.Entries {
		if entry.Name != packager.MetadataEntry {
			video += int64(entry.Size)
		}
	}
	if video != stored {
		return false
	}
	meta := archive.Metadata
	meta.VideoAlignment = nil
	got, err := json.Marshal(meta)
	if err != nil {
		return false
	}
	return bytes.Equal(got, want)
}

func (s *Service) open(path, sessionID string) (os.FileInfo, *packager.Archive, bool) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, false
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, nil, false
	}
	archive, err := packager.Inspect(file, info.Size())
	if err != nil {
		logging.WarnWithContext(s.logger, "ignoring unreadable archive", "export_cache_invalid",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "session will be packaged again"),
		)
		return nil, nil, false
	}
	if archive.Metadata.SessionID != sessionID {
		return nil, nil, false
	}
	return info, archive, true
}

func (s *Service) recordingActive() (bool, error) {
	if s.lockPath == "" {
		return false, nil
	}
	if _, err := os.Stat(s.lockPath); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	lock := flock.New(s.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("check recording lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	if err := lock.Unlock(); err != nil {
		return false, fmt.Errorf("release recording lock: %w", err)
	}
	return false, nil
}

func (s *Service) removeStale(sessionID, keep string) {
	matches, _ := filepath.Glob(filepath.Join(s.dir, packager.FilenamePattern(sessionID)))
	for _, path := range matches {
		if path == keep {
			continue
		}
		if _, _, ok := s.open(path, sessionID); !ok {
			continue
		}
		if err := os.Remove(path); err != nil {
			logging.WarnWithContext(s.logger, "stale archive remove failed", "export_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "older archive stays in export_dir"),
			)
		}
	}
}

// CopyTo copies an archive into dir, verifying the copy.
func CopyTo(path, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure output directory: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(path))
	if sameFile(path, dst) {
		return dst, nil
	}
	if err := fileutil.CopyFileVerified(path, dst); err != nil {
		return "", fmt.Errorf("copy archive: %w", err)
	}
	return dst, nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
