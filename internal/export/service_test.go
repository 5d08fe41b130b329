package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"gazerec/internal/alignment"
	"gazerec/internal/chunkstore"
	"gazerec/internal/logging"
	"gazerec/internal/packager"
	"gazerec/internal/sessiondata"
	"gazerec/internal/testsupport"
)

func newTestService(t *testing.T) (*Service, *chunkstore.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pkg := packager.New(store, alignment.NewCalculator(store, nil), packager.Options{})
	svc := NewService(store, pkg, cfg.Paths.ExportDir, logging.NewNop())
	clock := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, store
}

func TestEnsureReusesCachedArchive(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	testsupport.PutSession(t, store, "session-a", 1000)
	testsupport.StoreChunks(t, store, "session-a", sessiondata.StreamWebcam, 3, 8, 1100, 10)

	first, err := svc.Ensure(ctx, "session-a", Options{})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if first.Reused || first.Package.WebcamChunks != 3 {
		t.Fatalf("unexpected first result %+v", first)
	}
	if len(first.Problems) == 0 {
		t.Fatal("expected validation problems for a bare session")
	}

	second, err := svc.Ensure(ctx, "session-a", Options{})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !second.Reused || second.Path != first.Path {
		t.Fatalf("expected cached archive %s, got %+v", first.Path, second)
	}

	forced, err := svc.Ensure(ctx, "session-a", Options{Force: true})
	if err != nil {
		t.Fatalf("Ensure force: %v", err)
	}
	if forced.Reused || forced.Path == first.Path {
		t.Fatalf("expected fresh archive, got %+v", forced)
	}
	if _, err := os.Stat(first.Path); !os.IsNotExist(err) {
		t.Fatalf("expected stale archive removed, stat err %v", err)
	}
}

func TestEnsureRepackagesWhenStoreChanged(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	testsupport.PutSession(t, store, "session-p", 1000)
	testsupport.StoreChunks(t, store, "session-p", sessiondata.StreamWebcam, 2, 8, 1100, 10)
	testsupport.StoreChunks(t, store, "session-p", sessiondata.StreamScreen, 2, 8, 1100, 10)

	early, err := svc.Ensure(ctx, "session-p", Options{})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	testsupport.StoreChunks(t, store, "session-p", sessiondata.StreamWebcam, 5, 8, 1200, 10)
	if _, err := store.UpdateSession(ctx, "session-p", func(s *chunkstore.Session) error {
		s.Status = sessiondata.StatusCompleted
		s.RecordingDuration = 60
		return nil
	}); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	late, err := svc.Ensure(ctx, "session-p", Options{})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if late.Reused || late.Path == early.Path {
		t.Fatalf("expected a fresh archive, got %+v", late)
	}
	if late.Package.WebcamChunks != 7 || late.Package.ScreenChunks != 2 {
		t.Fatalf("unexpected chunk counts %+v", late.Package)
	}
	archive := inspectFile(t, late.Path)
	if archive.Metadata.RecordingDuration != 60 {
		t.Fatalf("archive duration = %d, want 60", archive.Metadata.RecordingDuration)
	}
	if _, err := os.Stat(early.Path); !os.IsNotExist(err) {
		t.Fatalf("expected outdated archive removed, stat err %v", err)
	}

	again, err := svc.Ensure(ctx, "session-p", Options{})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !again.Reused || again.Path != late.Path {
		t.Fatalf("expected up to date archive reused, got %+v", again)
	}
}

func TestEnsureRefusesSessionUnderActiveRecording(t *testing.T) {
	svc, store := newTestService(t)
	lockPath := filepath.Join(t.TempDir(), "recording.lock")
	svc.WithRecordingLock(lockPath)
	testsupport.PutSession(t, store, "session-r", 1000)

	held := flock.New(lockPath)
	if ok, err := held.TryLock(); !ok || err != nil {
		t.Fatalf("hold lock: ok=%v err=%v", ok, err)
	}
	if _, err := svc.Ensure(context.Background(), "session-r", Options{}); !errors.Is(err, ErrRecordingActive) {
		t.Fatalf("expected ErrRecordingActive, got %v", err)
	}
	entries, _ := os.ReadDir(svc.Dir())
	if len(entries) != 0 {
		t.Fatalf("refused export wrote %d files", len(entries))
	}

	if err := held.Unlock(); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Ensure(context.Background(), "session-r", Options{}); err != nil {
		t.Fatalf("Ensure after recorder exit: %v", err)
	}
}

func inspectFile(t *testing.T, path string) *packager.Archive {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		t.Fatal(err)
	}
	archive, err := packager.Inspect(file, info.Size())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	return archive
}

func TestEnsureStrictRejectsIncomplete(t *testing.T) {
	svc, store := newTestService(t)
	testsupport.PutSession(t, store, "session-b", 1000)

	result, err := svc.Ensure(context.Background(), "session-b", Options{Strict: true})
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if len(result.Problems) == 0 {
		t.Fatal("expected problems listed")
	}
	entries, _ := os.ReadDir(svc.Dir())
	if len(entries) != 0 {
		t.Fatalf("strict failure wrote %d files", len(entries))
	}
}

func TestEnsureMissingSession(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Ensure(context.Background(), "nope", Options{}); !errors.Is(err, chunkstore.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCachedIgnoresCorruptArchive(t *testing.T) {
	svc, _ := newTestService(t)
	if err := os.MkdirAll(svc.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	bogus := filepath.Join(svc.Dir(), "gaze-experiment-session-c-x-2024.zip")
	if err := os.WriteFile(bogus, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := svc.Cached(context.Background(), &chunkstore.Session{SessionID: "session-c"}); ok {
		t.Fatal("corrupt archive must not be reused")
	}
}

func TestCopyTo(t *testing.T) {
	svc, store := newTestService(t)
	testsupport.PutSession(t, store, "session-d", 1000)
	result, err := svc.Ensure(context.Background(), "session-d", Options{})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	out := t.TempDir()
	dst, err := CopyTo(result.Path, out)
	if err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	if filepath.Dir(dst) != out || filepath.Base(dst) != filepath.Base(result.Path) {
		t.Fatalf("unexpected destination %s", dst)
	}
	again, err := CopyTo(dst, out)
	if err != nil || again != dst {
		t.Fatalf("copy onto itself: %s %v", again, err)
	}
}
