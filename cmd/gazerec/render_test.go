package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"gazerec/internal/preflight"
	"gazerec/internal/upload"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("FFmpeg", statusOK, "/usr/bin/ffmpeg", false)
	if !strings.Contains(line, "FFmpeg:") || !strings.HasSuffix(line, "[OK] /usr/bin/ffmpeg") {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("Display", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestRenderTableKeepsRows(t *testing.T) {
	out := renderTable(
		[]string{"Session", "Size"},
		[][]string{{"session-a", "1.0 KiB"}, {"session-b"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	for _, want := range []string{"session-a", "1.0 KiB", "session-b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatSize(-5); got != "0 B" {
		t.Fatalf("formatSize(-5) = %q", got)
	}
	if got := formatSize(2048); got != "2.0 KiB" {
		t.Fatalf("formatSize(2048) = %q", got)
	}
	if formatEpochMillis(0) != "-" || formatAge(0, time.Now()) != "-" {
		t.Fatal("expected placeholder for unset timestamps")
	}
	now := time.Now()
	if got := formatAge(now.Add(-2*time.Hour).UnixMilli(), now); got != "2 hours ago" {
		t.Fatalf("formatAge = %q", got)
	}
}

func TestRecordFlagsParticipant(t *testing.T) {
	flags := recordFlags{name: "  Ada ", age: 31, gender: " f ", glasses: true}
	p, err := flags.participant()
	if err != nil {
		t.Fatalf("participant: %v", err)
	}
	if p.Name != "Ada" || p.Gender != "f" || !p.WearingGlasses || p.WearingContacts {
		t.Fatalf("unexpected participant %+v", p)
	}
	if _, err := (recordFlags{name: " ", age: 31}).participant(); err == nil {
		t.Fatal("expected error for blank name")
	}
	if _, err := (recordFlags{name: "Ada"}).participant(); err == nil {
		t.Fatal("expected error for missing age")
	}
}

func TestDropCheck(t *testing.T) {
	results := []preflight.Result{{Name: "Data directory"}, {Name: "Upload issuer"}}
	kept := dropCheck(results, "Upload issuer")
	if len(kept) != 1 || kept[0].Name != "Data directory" {
		t.Fatalf("unexpected results %+v", kept)
	}
}

func TestProgressReporterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	report, done := newProgressReporter(&buf)
	for _, loaded := range []int64{10, 30, 60, 100} {
		report(upload.Progress{Loaded: loaded, Total: 100, Percentage: float64(loaded)})
	}
	done()
	if lines := strings.Count(buf.String(), "upload "); lines != 4 {
		t.Fatalf("expected 4 progress lines, got %d:\n%s", lines, buf.String())
	}
}
