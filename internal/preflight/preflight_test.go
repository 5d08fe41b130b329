package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gazerec/internal/capture"
	"gazerec/internal/capture/capturetest"
	"gazerec/internal/deps"
	"gazerec/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestEstimateStorage(t *testing.T) {
	est, err := EstimateStorage(t.TempDir())
	if err != nil {
		t.Fatalf("EstimateStorage: %v", err)
	}
	if est.Quota == 0 || est.Usage > est.Quota {
		t.Fatalf("implausible estimate %+v", est)
	}
	if est.Percentage < 0 || est.Percentage > 100 {
		t.Fatalf("percentage out of range: %f", est.Percentage)
	}
	if _, err := EstimateStorage(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestCheckStorage(t *testing.T) {
	dir := t.TempDir()
	if result := CheckStorage("Storage", dir, 100); !result.Passed || result.Warning {
		t.Fatalf("expected no warning at 100%%, got %+v", result)
	}
	if result := CheckStorage("Storage", filepath.Join(dir, "missing"), 90); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckBinary(t *testing.T) {
	if r := CheckBinary(deps.Status{Name: "FFmpeg", Available: true, Command: "/usr/bin/ffmpeg"}); !r.Passed || r.Detail != "/usr/bin/ffmpeg" {
		t.Fatalf("unexpected result %+v", r)
	}
	if r := CheckBinary(deps.Status{Name: "FFmpeg", Detail: `binary "ffmpeg" not found`}); r.Passed {
		t.Fatal("expected failure")
	}
}

func TestCheckDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")
	if r := CheckDisplay("Display", ""); r.Passed {
		t.Fatal("expected failure without display")
	}
	if r := CheckDisplay("Display", ":1"); !r.Passed || r.Detail != ":1" {
		t.Fatalf("unexpected result %+v", r)
	}
	t.Setenv("DISPLAY", ":2")
	if r := CheckDisplay("Display", ""); !r.Passed || r.Detail != ":2" {
		t.Fatalf("expected DISPLAY fallback, got %+v", r)
	}
}

func TestCheckCapture(t *testing.T) {
	src := capturetest.NewWebcam()
	if r := CheckCapture(context.Background(), "Webcam", src); !r.Passed || r.Detail != "1280x720" {
		t.Fatalf("unexpected result %+v", r)
	}
	if stream := src.Last(); stream.Active() {
		t.Fatal("expected probe stream to be stopped")
	}

	busy := capturetest.NewWebcam()
	busy.FailWith(capture.ErrDeviceBusy)
	r := CheckCapture(context.Background(), "Webcam", busy)
	if r.Passed || !strings.Contains(r.Detail, capture.Remediation(capture.ErrDeviceBusy)) {
		t.Fatalf("expected remediation in detail, got %+v", r)
	}
}

func TestCheckEncoder(t *testing.T) {
	codec := capturetest.NewCodec("video/webm;codecs=vp9,opus", "video/webm")
	r := CheckEncoder("Encoder", codec, []string{"video/mp4", "video/webm;codecs=vp9,opus"})
	if !r.Passed || r.Detail != "video/webm;codecs=vp9,opus" {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestCheckIssuer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()
	if r := CheckIssuer(context.Background(), srv.URL); !r.Passed {
		t.Fatalf("expected reachable, got %+v", r)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	if r := CheckIssuer(context.Background(), broken.URL); r.Passed {
		t.Fatal("expected failure on 502")
	}
	if r := CheckIssuer(context.Background(), ""); r.Passed {
		t.Fatal("expected failure without url")
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Capture.ScreenDisplay = ":0"
	results := RunAll(context.Background(), cfg)
	names := map[string]Result{}
	for _, r := range results {
		names[r.Name] = r
	}
	for _, want := range []string{"Data directory", "Export directory", "Storage", "FFmpeg", "Display"} {
		if _, ok := names[want]; !ok {
			t.Fatalf("missing %s in %+v", want, results)
		}
	}
	if !names["Data directory"].Passed {
		t.Fatalf("data dir should pass: %+v", names["Data directory"])
	}
	if _, ok := names["Upload issuer"]; ok {
		t.Fatal("issuer check should be skipped without a url")
	}
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil for nil config")
	}
}

func TestFailed(t *testing.T) {
	failed := Failed([]Result{{Name: "a", Passed: true}, {Name: "b"}})
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("unexpected %+v", failed)
	}
}
