package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gazerec/internal/chunkstore"
	"gazerec/internal/clicktrack"
	"gazerec/internal/config"
	"gazerec/internal/ipc"
	"gazerec/internal/logging"
	"gazerec/internal/recording"
	"gazerec/internal/sessiondata"
	"gazerec/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *chunkstore.Store
	socketPath string
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("GAZEREC_ISSUER_URL", "")
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	sockDir, err := os.MkdirTemp("", "gzcli")
	if err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(sockDir) })
	cfg.Paths.SocketPath = filepath.Join(sockDir, "s.sock")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		socketPath: cfg.Paths.SocketPath,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, e.socketPath, e.configPath)
	return out, err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nexport_dir = %q\nlog_dir = %q\nsocket_path = %q\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.DataDir,
		cfg.Paths.ExportDir,
		cfg.Paths.LogDir,
		cfg.Paths.SocketPath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

const seedStart = int64(1_700_000_000_000)

// seedCompleteSession stores a finished session with calibration, cards,
// clicks and chunks on both streams. The screen starts 50ms before the
// webcam.
func seedCompleteSession(t *testing.T, store *chunkstore.Store, id string) {
	t.Helper()
	testsupport.PutSession(t, store, id, seedStart)
	testsupport.StoreChunks(t, store, id, sessiondata.StreamScreen, 4, 64, seedStart+100, 1000)
	testsupport.StoreChunks(t, store, id, sessiondata.StreamWebcam, 4, 64, seedStart+150, 1000)
	_, err := store.UpdateSession(context.Background(), id, func(s *chunkstore.Session) error {
		s.Status = sessiondata.StatusCompleted
		s.RecordingDuration = 4
		s.InitialCalibration = &sessiondata.CalibrationData{
			StartTimestamp: seedStart + 10,
			EndTimestamp:   seedStart + 20,
			Points:         []sessiondata.CalibrationPoint{{PointID: "p1", X: 0.5, Y: 0.5, ScreenX: 960, ScreenY: 540, Timestamp: seedStart + 15, VideoTimestamp: 15}},
		}
		s.CardPositions = []sessiondata.CardPosition{sessiondata.NewCardPosition("c1", 100, 200, 40, 60)}
		s.Clicks = []sessiondata.Click{
			{ID: "click-1", Timestamp: seedStart + 500, VideoTimestamp: 500, Type: sessiondata.ClickExplicit, ScreenX: 1, ScreenY: 2},
			{ID: "click-2", Timestamp: seedStart + 900, VideoTimestamp: 900, Type: sessiondata.ClickImplicit, ScreenX: 3, ScreenY: 4},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
}

// fakeRecording stands in for a live coordinator behind the bridge socket.
type fakeRecording struct {
	mu      sync.Mutex
	clicks  []sessiondata.Click
	paused  bool
	stopped bool
	game    sessiondata.GameMetadata
}

func (f *fakeRecording) State() recording.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return recording.State{
		SessionID:      "session-live",
		Recording:      !f.stopped,
		Paused:         f.paused,
		DurationMs:     61_000,
		ClickCount:     len(f.clicks),
		WebcamMimeType: "video/webm",
		ScreenMimeType: "video/webm",
	}
}

func (f *fakeRecording) GameMetadata() sessiondata.GameMetadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.game
}

func (f *fakeRecording) SetInitialCalibration(context.Context, sessiondata.CalibrationData) {}
func (f *fakeRecording) SetCardPositions([]sessiondata.CardPosition) {}
func (f *fakeRecording) MarkGameStart(time.Time) {}
func (f *fakeRecording) MarkGameEnd(time.Time) {}

func (f *fakeRecording) UpdateGameMetadata(update sessiondata.GameMetadataUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.game = update.Apply(f.game)
}

func (f *fakeRecording) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
}

func (f *fakeRecording) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
}

func (f *fakeRecording) addClick(c sessiondata.Click) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, c)
}

func (f *fakeRecording) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeRecording) snapshot() (clicks []sessiondata.Click, paused, stopped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sessiondata.Click(nil), f.clicks...), f.paused, f.stopped
}

func startFakeBridge(t *testing.T, socket string) *fakeRecording {
	t.Helper()
	rec := &fakeRecording{}
	tracker := clicktrack.New(clicktrack.Config{
		RecordingStartTime: time.Now(),
		OnClick:            rec.addClick,
	})
	tracker.Start()

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, socket, ipc.Bridge{
		Session: rec,
		Clicks:  tracker.Root(),
		Stop:    rec.stop,
	}, logging.NewNop())
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		cancel()
		srv.Close()
		tracker.Stop()
	})
	return rec
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
