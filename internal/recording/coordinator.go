package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gazerec/internal/capture"
	"gazerec/internal/chunkstore"
	"gazerec/internal/logging"
	"gazerec/internal/recorder"
	"gazerec/internal/sessiondata"
)

const (
	DefaultWebcamBitrate = 3_000_000
	DefaultScreenBitrate = 5_000_000
)

// SessionStore is the slice of the chunk store the coordinator needs.
type SessionStore interface {
	recorder.ChunkWriter
	PutSession(ctx context.Context, session *chunkstore.Session) error
	UpdateSession(ctx context.Context, sessionID string, fn func(*chunkstore.Session) error) (*chunkstore.Session, error)
}

// Config describes one recording session.
type Config struct {
	Participant sessiondata.Participant
	// ScreenResolution is the logical display size reported by the UI.
	ScreenResolution sessiondata.Resolution
	Store            SessionStore
	WebcamSource     capture.Source
	ScreenSource     capture.Source
	Codec            capture.Codec
	MimePreferences  []string
	WebcamBitrate    int
	ScreenBitrate    int
	Timeslice        time.Duration
	FinalizeTimeout  time.Duration
	Logger           *slog.Logger
	Now              func() time.Time
}

// Streams describes the initialized devices for preview and metadata.
type Streams struct {
	Webcam           capture.Stream
	Screen           capture.Stream
	WebcamResolution sessiondata.Resolution
	ScreenResolution sessiondata.Resolution
	WebcamMimeType   string
	ScreenMimeType   string
}

// State is a point-in-time snapshot of the coordinator.
type State struct {
	SessionID          string `json:"sessionId"`
	Recording          bool   `json:"recording"`
	Paused             bool   `json:"paused"`
	RecordingStartTime int64  `json:"recordingStartTime"`
	DurationMs         int64  `json:"durationMs"`
	ClickCount         int    `json:"clickCount"`
	WebcamMimeType     string `json:"webcamMimeType"`
	ScreenMimeType     string `json:"screenMimeType"`
}

// Coordinator drives the webcam and screen recorders together. It is safe
// for concurrent use.
type Coordinator struct {
	sessionID        string
	participant      sessiondata.Participant
	screenResolution sessiondata.Resolution
	store            SessionStore
	webcam           *recorder.Recorder
	screen           *recorder.Recorder
	logger           *slog.Logger
	now              func() time.Time

	mu          sync.Mutex
	initialized bool
	recording   bool
	paused      bool
	startTime   time.Time
	calibration *sessiondata.CalibrationData
	clicks      []sessiondata.Click
	cards       []sessiondata.CardPosition
	gameStart   int64
	gameEnd     int64
	game        sessiondata.GameMetadata
}

// New creates a coordinator with a fresh session id.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("recording: store required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	sessionID := sessiondata.NewSessionID(now())
	logger := logging.WithSessionID(logging.NewComponentLogger(cfg.Logger, "coordinator"), sessionID)

	webcamBitrate := cfg.WebcamBitrate
	if webcamBitrate <= 0 {
		webcamBitrate = DefaultWebcamBitrate
	}
	screenBitrate := cfg.ScreenBitrate
	if screenBitrate <= 0 {
		screenBitrate = DefaultScreenBitrate
	}
	newRecorder := func(streamType sessiondata.StreamType, source capture.Source, bitrate int) (*recorder.Recorder, error) {
		return recorder.New(recorder.Config{
			SessionID:       sessionID,
			Type:            streamType,
			Source:          source,
			Codec:           cfg.Codec,
			Store:           cfg.Store,
			MimePreferences: cfg.MimePreferences,
			BitsPerSecond:   bitrate,
			Timeslice:       cfg.Timeslice,
			FinalizeTimeout: cfg.FinalizeTimeout,
			Logger:          cfg.Logger,
			Now:             now,
		})
	}
	webcam, err := newRecorder(sessiondata.StreamWebcam, cfg.WebcamSource, webcamBitrate)
	if err != nil {
		return nil, err
	}
	screen, err := newRecorder(sessiondata.StreamScreen, cfg.ScreenSource, screenBitrate)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		sessionID:        sessionID,
		participant:      cfg.Participant,
		screenResolution: cfg.ScreenResolution,
		store:            cfg.Store,
		webcam:           webcam,
		screen:           screen,
		logger:           logger,
		now:              now,
	}, nil
}

// SessionID returns the id every chunk and the session record carry.
func (c *Coordinator) SessionID() string { return c.sessionID }

func (c *Coordinator) recorders() []*recorder.Recorder {
	return []*recorder.Recorder{c.webcam, c.screen}
}

// InitializeStreams acquires both devices concurrently. Any failure releases
// both before the error is returned.
func (c *Coordinator) InitializeStreams(ctx context.Context) (Streams, error) {
	var streams Streams
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stream, err := c.webcam.InitializeStream(gctx)
		streams.Webcam = stream
		return err
	})
	g.Go(func() error {
		stream, err := c.screen.InitializeStream(gctx)
		streams.Screen = stream
		return err
	})
	if err := g.Wait(); err != nil {
		c.cleanup()
		logging.WarnWithContext(c.logger, "stream initialization failed", "stream_init_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, capture.Remediation(err)),
			logging.String(logging.FieldImpact, "recording cannot start; devices released"),
		)
		return Streams{}, err
	}

	streams.WebcamResolution = c.webcam.Resolution()
	streams.ScreenResolution = c.screen.Resolution()
	streams.WebcamMimeType = c.webcam.MimeType()
	streams.ScreenMimeType = c.screen.MimeType()

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	return streams, nil
}

// StartRecordingToDisk starts both recorders concurrently, stamps the
// recording start time once both run and persists the session record.
func (c *Coordinator) StartRecordingToDisk(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording {
		return ErrAlreadyRecording
	}
	if !c.initialized {
		return ErrStreamsNotInitialized
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, rec := range c.recorders() {
		g.Go(func() error { return rec.StartRecording(gctx) })
	}
	if err := g.Wait(); err != nil {
		c.abortLocked(ctx)
		return fmt.Errorf("start recording: %w", err)
	}

	c.startTime = c.now()
	session := &chunkstore.Session{
		SessionID:              c.sessionID,
		Participant:            c.participant,
		RecordingStartTime:     sessiondata.EpochMillis(c.startTime),
		ScreenResolution:       c.screenResolution,
		ScreenStreamResolution: c.screen.Resolution(),
		WebcamResolution:       c.webcam.Resolution(),
		WebcamMimeType:         c.webcam.MimeType(),
		ScreenMimeType:         c.screen.MimeType(),
		Status:                 sessiondata.StatusRecording,
		InitialCalibration:     c.calibration,
	}
	if session.ScreenResolution.IsZero() {
		session.ScreenResolution = session.ScreenStreamResolution
	}
	if err := c.store.PutSession(ctx, session); err != nil {
		c.abortLocked(ctx)
		return fmt.Errorf("save session: %w", err)
	}

	c.recording = true
	c.paused = false
	c.logger.Info("recording started",
		logging.Int64("recording_start_time", session.RecordingStartTime),
		logging.String("webcam_mime_type", session.WebcamMimeType),
		logging.String("screen_mime_type", session.ScreenMimeType),
		logging.String("screen_stream_resolution", session.ScreenStreamResolution.String()),
	)
	return nil
}

// abortLocked stops whatever started and releases both devices.
func (c *Coordinator) abortLocked(ctx context.Context) {
	c.stopRecorders(ctx)
	c.cleanup()
	c.initialized = false
}

func (c *Coordinator) stopRecorders(ctx context.Context) {
	var g errgroup.Group
	for _, rec := range c.recorders() {
		g.Go(func() error { return rec.StopRecording(ctx) })
	}
	_ = g.Wait()
}

func (c *Coordinator) cleanup() {
	for _, rec := range c.recorders() {
		rec.Release()
	}
}

// SetInitialCalibration attaches calibration data to the session record.
// Write failures are logged; the data is written again at stop.
func (c *Coordinator) SetInitialCalibration(ctx context.Context, data sessiondata.CalibrationData) {
	c.mu.Lock()
	c.calibration = &data
	recording := c.recording
	c.mu.Unlock()
	if !recording {
		return
	}

	_, err := c.store.UpdateSession(ctx, c.sessionID, func(s *chunkstore.Session) error {
		s.InitialCalibration = &data
		return nil
	})
	if err != nil {
		logging.WarnWithContext(c.logger, "calibration write failed", "calibration_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "calibration kept in memory and written at stop"),
		)
		return
	}
	c.logger.Info("calibration saved", logging.Int("points", len(data.Points)))
}

// AddClick appends a click and refreshes the click totals.
func (c *Coordinator) AddClick(click sessiondata.Click) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clicks = append(c.clicks, click)
	c.game.TotalExplicitClicks, c.game.TotalImplicitClicks = sessiondata.CountClicks(c.clicks)
}

// SetCardPositions replaces the card layout.
func (c *Coordinator) SetCardPositions(cards []sessiondata.CardPosition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards = append([]sessiondata.CardPosition(nil), cards...)
}

// MarkGameStart records when gameplay began.
func (c *Coordinator) MarkGameStart(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameStart = sessiondata.EpochMillis(at)
}

// MarkGameEnd records when gameplay ended and derives the game duration in
// whole seconds.
func (c *Coordinator) MarkGameEnd(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameEnd = sessiondata.EpochMillis(at)
	if c.gameStart > 0 && c.gameEnd >= c.gameStart {
		c.game.Duration = int((c.gameEnd - c.gameStart) / 1000)
	}
}

// UpdateGameMetadata merges a partial update into the game statistics.
func (c *Coordinator) UpdateGameMetadata(update sessiondata.GameMetadataUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.game = update.Apply(c.game)
}

// Clicks returns a copy of the recorded clicks in order.
func (c *Coordinator) Clicks() []sessiondata.Click {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sessiondata.Click(nil), c.clicks...)
}

// GameMetadata returns the current game statistics.
func (c *Coordinator) GameMetadata() sessiondata.GameMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game
}

// RecordingStartTime returns the canonical start, or the zero time before
// recording began.
func (c *Coordinator) RecordingStartTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTime
}

// RecordingDuration returns the elapsed recording time.
func (c *Coordinator) RecordingDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durationLocked()
}

func (c *Coordinator) durationLocked() time.Duration {
	if !c.recording || c.startTime.IsZero() {
		return 0
	}
	return c.now().Sub(c.startTime)
}

// State returns a snapshot for status reporting.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := State{
		SessionID:      c.sessionID,
		Recording:      c.recording,
		Paused:         c.paused,
		DurationMs:     c.durationLocked().Milliseconds(),
		ClickCount:     len(c.clicks),
		WebcamMimeType: c.webcam.MimeType(),
		ScreenMimeType: c.screen.MimeType(),
	}
	if !c.startTime.IsZero() {
		state.RecordingStartTime = sessiondata.EpochMillis(c.startTime)
	}
	return state
}

// IsRecording reports whether both recorders are running.
func (c *Coordinator) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Pause pauses both recorders.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording || c.paused {
		return
	}
	for _, rec := range c.recorders() {
		rec.Pause()
	}
	c.paused = true
	c.logger.Info("recording paused")
}

// Resume resumes both recorders.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording || !c.paused {
		return
	}
	for _, rec := range c.recorders() {
		rec.Resume()
	}
	c.paused = false
	c.logger.Info("recording resumed")
}

// StopRecording stops both recorders, waits for their writes to drain and
// marks the session completed with the accumulated game data. When not
// recording it only releases initialized streams.
func (c *Coordinator) StopRecording(ctx context.Context) error {
	return c.finish(ctx, sessiondata.StatusCompleted, "")
}

// Fail stops both recorders and marks the session as errored with reason.
func (c *Coordinator) Fail(ctx context.Context, reason string) error {
	return c.finish(ctx, sessiondata.StatusError, reason)
}

func (c *Coordinator) finish(ctx context.Context, status sessiondata.Status, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		if c.initialized {
			c.cleanup()
			c.initialized = false
		}
		return nil
	}
	defer func() {
		c.cleanup()
		c.recording = false
		c.paused = false
		c.initialized = false
	}()

	duration := c.durationLocked()
	c.stopRecorders(ctx)

	calibration := c.calibration
	clicks := append([]sessiondata.Click(nil), c.clicks...)
	cards := append([]sessiondata.CardPosition(nil), c.cards...)
	game := c.game
	gameStart, gameEnd := c.gameStart, c.gameEnd

	_, err := c.store.UpdateSession(context.WithoutCancel(ctx), c.sessionID, func(s *chunkstore.Session) error {
		s.Status = status
		s.ErrorMessage = reason
		s.RecordingDuration = int64(duration / time.Second)
		if calibration != nil {
			s.InitialCalibration = calibration
		}
		s.Clicks = clicks
		s.CardPositions = cards
		s.GameStartTimestamp = gameStart
		s.GameEndTimestamp = gameEnd
		s.GameMetadata = &game
		return nil
	})
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}

	c.logger.Info("recording stopped",
		logging.String("status", string(status)),
		logging.Int64("duration_seconds", int64(duration/time.Second)),
		logging.Int("clicks", len(clicks)),
	)
	return nil
}
