package main

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
	"testing"

	"gazerec/internal/alignment"
	"gazerec/internal/export"
	"gazerec/internal/sessiondata"
	"gazerec/internal/testsupport"
)

func TestAlignJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCompleteSession(t, env.store, "session-a")

	out, err := env.run(t, "align", "session-a", "--json")
	if err != nil {
		t.Fatalf("align --json: %v", err)
	}
	var info alignment.Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode alignment: %v\n%s", err, out)
	}
	if info.Webcam.OffsetFromStart != 150 || info.Screen.OffsetFromStart != 100 {
		t.Fatalf("unexpected offsets %+v", info)
	}
	if info.Alignment.ScreenLeadsBy != 50 || info.Alignment.TrimScreenBy != 50 || info.Alignment.WebcamLeadsBy != 0 {
		t.Fatalf("unexpected alignment %+v", info.Alignment)
	}
}

func TestAlignWithoutChunks(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.PutSession(t, env.store, "session-empty", seedStart)

	out, err := env.run(t, "align", "session-empty")
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	requireContains(t, out, "Alignment unavailable")

	out, err = env.run(t, "align", "session-empty", "--json")
	if err != nil {
		t.Fatalf("align --json: %v", err)
	}
	if strings.TrimSpace(out) != "null" {
		t.Fatalf("expected null alignment, got %q", out)
	}
}

func TestExportWritesAndReusesArchive(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCompleteSession(t, env.store, "session-a")
	outDir := filepath.Join(env.baseDir, "copies")

	out, err := env.run(t, "export", "session-a", "--out", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Exported "+outDir)
	if strings.Contains(out, "warning:") {
		t.Fatalf("complete session reported problems:\n%s", out)
	}
	copies, err := filepath.Glob(filepath.Join(outDir, "*.zip"))
	if err != nil || len(copies) != 1 {
		t.Fatalf("expected one copied archive, got %v (err=%v)", copies, err)
	}

	out, err = env.run(t, "export", "session-a")
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	requireContains(t, out, "Reused "+env.cfg.Paths.ExportDir)

	out, err = env.run(t, "export", "session-a", "--force")
	if err != nil {
		t.Fatalf("forced export: %v", err)
	}
	requireContains(t, out, "Exported "+env.cfg.Paths.ExportDir)
}

func TestExportReportsIncompleteSession(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.PutSession(t, env.store, "session-partial", seedStart)
	testsupport.StoreChunks(t, env.store, "session-partial", sessiondata.StreamWebcam, 1, 16, seedStart, 1000)

	_, err := env.run(t, "export", "session-partial", "--strict")
	if !errors.Is(err, export.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}

	out, err := env.run(t, "export", "session-partial")
	if err != nil {
		t.Fatalf("lenient export: %v", err)
	}
	requireContains(t, out, "warning: Calibration data is missing or incomplete")
	requireContains(t, out, "Exported ")
}

func TestEstimate(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCompleteSession(t, env.store, "session-a")

	out, err := env.run(t, "estimate", "session-a")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	requireContains(t, out, "Estimated archive size:")

	if _, err := env.run(t, "estimate", "missing"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestUploadRequiresIssuer(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCompleteSession(t, env.store, "session-a")

	_, err := env.run(t, "upload", "session-a")
	if err == nil || !strings.Contains(err.Error(), "issuer_url") {
		t.Fatalf("expected issuer error, got %v", err)
	}
}

func TestUploadThroughIssuer(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	received := make(chan int64, 1)
	mux.HandleFunc("POST /issue", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"uploadUrl": srv.URL + "/put", "expiresIn": 3600})
	})
	mux.HandleFunc("PUT /put", func(w http.ResponseWriter, r *http.Request) {
		n, _ := io.Copy(io.Discard, r.Body)
		received <- n
		w.WriteHeader(http.StatusOK)
	})

	env := setupCLITestEnv(t)
	t.Setenv("GAZEREC_ISSUER_URL", srv.URL+"/issue")
	seedCompleteSession(t, env.store, "session-a")

	out, err := env.run(t, "upload", "session-a")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "Uploaded ")

	archive := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Uploaded "))
	info, err := os.Stat(archive)
	if err != nil {
		t.Fatalf("stat archive: %v", err)
	}
	if got := <-received; got != info.Size() {
		t.Fatalf("uploaded %d bytes, archive is %d", got, info.Size())
	}

	session, err := env.store.GetSession(context.Background(), "session-a")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Status != sessiondata.StatusUploaded {
		t.Fatalf("expected uploaded status, got %s", session.Status)
	}
}
