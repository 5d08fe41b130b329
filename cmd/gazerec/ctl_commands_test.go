package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gazerec/internal/clicktrack"
	"gazerec/internal/ipc"
	"gazerec/internal/sessiondata"
)

func TestCtlStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	startFakeBridge(t, env.socketPath)

	out, err := env.run(t, "ctl", "status")
	if err != nil {
		t.Fatalf("ctl status: %v", err)
	}
	requireContains(t, out, "Session:   session-live")
	requireContains(t, out, "Recording: yes")
	requireContains(t, out, "Duration:  1m 1s")

	out, err = env.run(t, "ctl", "status", "--json")
	if err != nil {
		t.Fatalf("ctl status --json: %v", err)
	}
	var status ipc.StatusResponse
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if status.SessionID != "session-live" || !status.Recording {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestCtlClickClassifiesTargets(t *testing.T) {
	env := setupCLITestEnv(t)
	rec := startFakeBridge(t, env.socketPath)

	out, err := env.run(t, "ctl", "click", "10", "20", "--spirit")
	if err != nil {
		t.Fatalf("ctl click --spirit: %v", err)
	}
	requireContains(t, out, "Clicks recorded: 1")

	out, err = env.run(t, "ctl", "click", "110", "220", "--card", "c7", "--card-rect", "100,200,40,60")
	if err != nil {
		t.Fatalf("ctl click --card: %v", err)
	}
	requireContains(t, out, "Clicks recorded: 2")

	clicks, _, _ := rec.snapshot()
	if len(clicks) != 2 {
		t.Fatalf("expected 2 clicks, got %d", len(clicks))
	}
	if clicks[0].Type != sessiondata.ClickExplicit {
		t.Fatalf("expected explicit spirit click, got %s", clicks[0].Type)
	}
	card := clicks[1]
	if card.Type != sessiondata.ClickImplicit || card.CardID == nil || *card.CardID != "c7" {
		t.Fatalf("unexpected card click %+v", card)
	}
	if *card.TargetX != 120 || *card.TargetY != 230 {
		t.Fatalf("expected card center 120,230, got %v,%v", *card.TargetX, *card.TargetY)
	}
}

func TestCtlPauseResumeStop(t *testing.T) {
	env := setupCLITestEnv(t)
	rec := startFakeBridge(t, env.socketPath)

	out, err := env.run(t, "ctl", "pause")
	if err != nil {
		t.Fatalf("ctl pause: %v", err)
	}
	requireContains(t, out, "OK")
	if _, paused, _ := rec.snapshot(); !paused {
		t.Fatal("expected recording to be paused")
	}

	if _, err := env.run(t, "ctl", "resume"); err != nil {
		t.Fatalf("ctl resume: %v", err)
	}
	if _, paused, _ := rec.snapshot(); paused {
		t.Fatal("expected recording to be resumed")
	}

	if _, err := env.run(t, "ctl", "stop"); err != nil {
		t.Fatalf("ctl stop: %v", err)
	}
	if _, _, stopped := rec.snapshot(); !stopped {
		t.Fatal("expected stop to reach the recording")
	}
}

func TestCtlMetadata(t *testing.T) {
	env := setupCLITestEnv(t)
	rec := startFakeBridge(t, env.socketPath)

	if _, err := env.run(t, "ctl", "metadata"); err == nil {
		t.Fatal("expected error without --moves or --matches")
	}
	if _, err := env.run(t, "ctl", "metadata", "--moves", "12"); err != nil {
		t.Fatalf("ctl metadata: %v", err)
	}
	game := rec.GameMetadata()
	if game.TotalMoves != 12 || game.TotalMatches != 0 {
		t.Fatalf("unexpected game metadata %+v", game)
	}
}

func TestCtlFullscreenUnsupported(t *testing.T) {
	env := setupCLITestEnv(t)
	startFakeBridge(t, env.socketPath)

	if _, err := env.run(t, "ctl", "fullscreen", "maybe"); err == nil {
		t.Fatal("expected error for invalid fullscreen argument")
	}
	_, err := env.run(t, "ctl", "fullscreen", "on")
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestCtlCalibrateReadsFile(t *testing.T) {
	env := setupCLITestEnv(t)
	startFakeBridge(t, env.socketPath)

	path := filepath.Join(env.baseDir, "calibration.json")
	data := `{"startTimestamp":1,"endTimestamp":2,"points":[{"pointId":"p1","x":0.5,"y":0.5}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write calibration: %v", err)
	}
	out, err := env.run(t, "ctl", "calibrate", path)
	if err != nil {
		t.Fatalf("ctl calibrate: %v", err)
	}
	requireContains(t, out, "Sent 1 calibration points")

	if _, err := env.run(t, "ctl", "calibrate", filepath.Join(env.baseDir, "missing.json")); err == nil {
		t.Fatal("expected error for missing calibration file")
	}
}

func TestCtlWithoutRecording(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "ctl", "status")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected socket not found error, got %v", err)
	}
}

func TestClickPath(t *testing.T) {
	path, err := clickPath(5, 6, "", "", false)
	if err != nil {
		t.Fatalf("clickPath: %v", err)
	}
	if len(path) != 2 || path[0].ID != "board" || path[1].ID != "root" {
		t.Fatalf("unexpected plain path %+v", path)
	}

	path, err = clickPath(5, 6, "c1", "", true)
	if err != nil {
		t.Fatalf("clickPath: %v", err)
	}
	if len(path) != 3 {
		t.Fatalf("expected card, spirit and root, got %+v", path)
	}
	if path[0].Attributes[clicktrack.AttrCardID] != "c1" {
		t.Fatalf("expected card element first, got %+v", path[0])
	}
	if path[0].Rect != (clicktrack.Rect{Left: 5, Top: 6}) {
		t.Fatalf("expected card rect at click point, got %+v", path[0].Rect)
	}
	if _, ok := path[1].Attributes[clicktrack.AttrSpirit]; !ok {
		t.Fatalf("expected spirit element second, got %+v", path[1])
	}

	if _, err := clickPath(5, 6, "c1", "1,2,3", false); err == nil {
		t.Fatal("expected error for short card rect")
	}
}

func TestParseRect(t *testing.T) {
	rect, err := parseRect(" 1, 2.5 ,3,4 ")
	if err != nil {
		t.Fatalf("parseRect: %v", err)
	}
	if rect != (clicktrack.Rect{Left: 1, Top: 2.5, Width: 3, Height: 4}) {
		t.Fatalf("unexpected rect %+v", rect)
	}
	if _, err := parseRect("1,2,x,4"); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}
