package upload_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gazerec/internal/logging"
	"gazerec/internal/sessiondata"
	"gazerec/internal/testsupport"
	"gazerec/internal/upload"
)

type storageServer struct {
	mu          sync.Mutex
	status      int
	body        []byte
	contentType string
	delay       time.Duration
}

func (s *storageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.body = data
	s.contentType = r.Header.Get("Content-Type")
	status, delay := s.status, s.delay
	s.mu.Unlock()
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (s *storageServer) received() ([]byte, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body, s.contentType
}

func newIssuerServer(t *testing.T, uploadURL string, seen *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID string `json:"sessionId"`
			Filename  string `json:"filename"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		*seen = append(*seen, req.SessionID+"/"+req.Filename)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"uploadUrl": uploadURL, "expiresIn": 7200})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeArchive(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Repeat("z", size)), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func TestUploadSessionMarksUploaded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.PutSession(t, store, "session-1", 1000)

	storage := &storageServer{}
	storageSrv := httptest.NewServer(storage)
	defer storageSrv.Close()
	var issued []string
	issuerSrv := newIssuerServer(t, storageSrv.URL+"/sessions/archive.zip", &issued)

	name := "gaze-experiment-session-1-test_participant-2024-01-02T03-04-05-678Z.zip"
	path := writeArchive(t, t.TempDir(), name, 300_000)

	var (
		mu      sync.Mutex
		updates []upload.Progress
	)
	uploader := upload.NewUploader(upload.Options{Logger: logging.NewNop()})
	err := uploader.UploadSession(context.Background(), upload.NewHTTPIssuer(issuerSrv.URL, nil), store, "session-1", path, func(p upload.Progress) {
		mu.Lock()
		updates = append(updates, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("UploadSession: %v", err)
	}

	if len(issued) != 1 || issued[0] != "session-1/"+name {
		t.Fatalf("unexpected issue requests %v", issued)
	}
	body, contentType := storage.received()
	if len(body) != 300_000 || contentType != "application/zip" {
		t.Fatalf("storage got %d bytes with type %q", len(body), contentType)
	}
	if len(updates) == 0 {
		t.Fatal("expected progress updates")
	}
	last := updates[len(updates)-1]
	if last.Loaded != 300_000 || last.Total != 300_000 || last.Percentage != 100 {
		t.Fatalf("unexpected final progress %+v", last)
	}
	for i := 1; i < len(updates); i++ {
		if updates[i].Loaded < updates[i-1].Loaded {
			t.Fatalf("progress went backwards: %+v", updates)
		}
	}

	session, err := store.GetSession(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Status != sessiondata.StatusUploaded {
		t.Fatalf("expected uploaded status, got %s", session.Status)
	}
}

func TestUploadSessionKeepsStatusOnFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.PutSession(t, store, "session-2", 1000)

	storage := &storageServer{status: http.StatusServiceUnavailable}
	storageSrv := httptest.NewServer(storage)
	defer storageSrv.Close()
	var issued []string
	issuerSrv := newIssuerServer(t, storageSrv.URL, &issued)

	path := writeArchive(t, t.TempDir(), "archive.zip", 10)
	err := upload.NewUploader(upload.Options{}).UploadSession(context.Background(), upload.NewHTTPIssuer(issuerSrv.URL, nil), store, "session-2", path, nil)
	var statusErr *upload.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected StatusError 503, got %v", err)
	}
	if err.Error() != "upload failed with status: 503" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	session, err := store.GetSession(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Status != sessiondata.StatusRecording {
		t.Fatalf("status changed to %s", session.Status)
	}
}

func TestPutTimeout(t *testing.T) {
	storage := &storageServer{delay: 2 * time.Second}
	srv := httptest.NewServer(storage)
	defer srv.Close()

	uploader := upload.NewUploader(upload.Options{Timeout: 50 * time.Millisecond})
	err := uploader.Put(context.Background(), srv.URL, strings.NewReader("data"), 4, nil)
	if !errors.Is(err, upload.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestPutNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := upload.NewUploader(upload.Options{}).Put(context.Background(), url, strings.NewReader("data"), 4, nil)
	if !errors.Is(err, upload.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestIssueRejectsInvalidFilename(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	_, err := upload.NewHTTPIssuer(srv.URL, nil).Issue(context.Background(), "s", "bad name.zip")
	if !errors.Is(err, upload.ErrInvalidFilename) {
		t.Fatalf("expected ErrInvalidFilename, got %v", err)
	}
	if called {
		t.Fatal("issuer should not be contacted for an invalid filename")
	}
}

func TestIssueSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "credentials not configured", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := upload.NewHTTPIssuer(srv.URL, nil).Issue(context.Background(), "s", "ok.zip")
	if err == nil || !strings.Contains(err.Error(), "credentials not configured") {
		t.Fatalf("expected server message in error, got %v", err)
	}
}

func TestValidateFilename(t *testing.T) {
	for _, name := range []string{"a.zip", "gaze-experiment-session-1-x_y-2024-01-01T00-00-00-000Z.zip"} {
		if err := upload.ValidateFilename(name); err != nil {
			t.Errorf("ValidateFilename(%q) = %v", name, err)
		}
	}
	for _, name := range []string{"", "a b.zip", "../x.zip", "x:y.zip"} {
		if err := upload.ValidateFilename(name); err == nil {
			t.Errorf("ValidateFilename(%q) accepted", name)
		}
	}
}

func TestProgressString(t *testing.T) {
	p := upload.Progress{Loaded: 1572864, Total: 3145728, Percentage: 50}
	if got := p.String(); got != "50% (1.50 MB / 3.00 MB)" {
		t.Fatalf("String = %q", got)
	}
}
