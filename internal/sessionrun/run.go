package sessionrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"gazerec/internal/capture"
	"gazerec/internal/capture/ffmpeg"
	"gazerec/internal/chunkstore"
	"gazerec/internal/clicktrack"
	"gazerec/internal/config"
	"gazerec/internal/devicewatch"
	"gazerec/internal/ipc"
	"gazerec/internal/logging"
	"gazerec/internal/recording"
	"gazerec/internal/sessiondata"
)

// ErrLocked is returned when another process is recording into the same
// data directory.
var ErrLocked = errors.New("another recording is active for this data directory")

// Options configures one run. Nil sources and codec select the ffmpeg
// backend built from the capture config.
type Options struct {
	Participant      sessiondata.Participant
	ScreenResolution sessiondata.Resolution
	WebcamSource     capture.Source
	ScreenSource     capture.Source
	Codec            capture.Codec
	// FullscreenUnsupported disables the fullscreen guard.
	FullscreenUnsupported bool
	Logger                *slog.Logger
	// Started is called once both streams are being written to disk.
	Started func(recording.State)
}

// Outcome describes how the run ended.
type Outcome struct {
	SessionID string
	Status    sessiondata.Status
	Reason    string
	Duration  time.Duration
	Clicks    int
	// Interrupted is set when the run ended because ctx was cancelled.
	Interrupted bool
}

// Run records one session and returns after it is finalized. The session
// ends on an IPC Stop call, on ctx cancellation, or as an error when the
// watched webcam disappears.
func Run(ctx context.Context, cfg *config.Config, store *chunkstore.Store, opts Options) (Outcome, error) {
	if cfg == nil {
		return Outcome{}, errors.New("config is required")
	}
	if store == nil {
		return Outcome{}, errors.New("store is required")
	}
	logger := logging.NewComponentLogger(opts.Logger, "sessionrun")

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return Outcome{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return Outcome{}, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release recording lock", logging.Error(err))
		}
	}()

	webcamSource, screenSource, codec, err := resolveBackend(cfg, opts)
	if err != nil {
		return Outcome{}, err
	}

	coord, err := recording.New(recording.Config{
		Participant:      opts.Participant,
		ScreenResolution: opts.ScreenResolution,
		Store:            store,
		WebcamSource:     webcamSource,
		ScreenSource:     screenSource,
		Codec:            codec,
		MimePreferences:  cfg.Capture.MimePreferences,
		WebcamBitrate:    cfg.Capture.WebcamBitrate,
		ScreenBitrate:    cfg.Capture.ScreenBitrate,
		Timeslice:        cfg.ChunkInterval(),
		FinalizeTimeout:  cfg.FinalizeTimeout(),
		Logger:           opts.Logger,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("create coordinator: %w", err)
	}
	logger = logging.WithSessionID(logger, coord.SessionID())

	if _, err := coord.InitializeStreams(ctx); err != nil {
		return Outcome{SessionID: coord.SessionID()}, fmt.Errorf("initialize streams: %w", err)
	}
	if err := coord.StartRecordingToDisk(ctx); err != nil {
		return Outcome{SessionID: coord.SessionID()}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ending := newStopSignal()

	root := clicktrack.NewRoot()
	tracker := clicktrack.New(clicktrack.Config{
		Root:               root,
		RecordingStartTime: coord.RecordingStartTime(),
		OnClick:            coord.AddClick,
	})
	tracker.Start()
	defer tracker.Stop()

	display := recording.NewBridgeDisplay(!opts.FullscreenUnsupported)
	guard := recording.NewFullscreenGuard(display, coord, opts.Logger)
	var wg sync.WaitGroup
	wg.Go(func() { guard.Run(runCtx) })

	server, err := ipc.NewServer(runCtx, cfg.Paths.SocketPath, ipc.Bridge{
		Session: coord,
		Clicks:  root,
		Display: display,
		Stop:    func() { ending.fire("") },
	}, opts.Logger)
	if err != nil {
		cancel()
		wg.Wait()
		_ = coord.Fail(ctx, "ipc bridge unavailable")
		return Outcome{SessionID: coord.SessionID()}, fmt.Errorf("start IPC server: %w", err)
	}
	server.Serve()
	defer server.Close()

	monitor := devicewatch.New(cfg.Capture.WebcamDevice, opts.Logger, func(device string) {
		ending.fire("webcam disconnected: " + device)
	})
	_ = monitor.Start(runCtx)
	defer monitor.Stop()

	logger.Info("recording live",
		logging.String(logging.FieldEventType, "recording_live"),
		logging.String("socket", server.Path()),
	)
	if opts.Started != nil {
		opts.Started(coord.State())
	}

	outcome := Outcome{SessionID: coord.SessionID()}
	select {
	case <-ctx.Done():
		outcome.Interrupted = true
	case <-ending.done:
		outcome.Reason = ending.reason()
	}

	tracker.Stop()
	cancel()
	wg.Wait()

	outcome.Duration = coord.RecordingDuration()
	outcome.Clicks = len(coord.Clicks())
	finalizeCtx := context.WithoutCancel(ctx)
	if outcome.Reason != "" {
		outcome.Status = sessiondata.StatusError
		if err := coord.Fail(finalizeCtx, outcome.Reason); err != nil {
			return outcome, err
		}
		return outcome, nil
	}
	outcome.Status = sessiondata.StatusCompleted
	if err := coord.StopRecording(finalizeCtx); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func resolveBackend(cfg *config.Config, opts Options) (webcam, screen capture.Source, codec capture.Codec, err error) {
	webcam, screen, codec = opts.WebcamSource, opts.ScreenSource, opts.Codec
	if webcam == nil {
		webcam = ffmpeg.WebcamSource{
			Device:    cfg.Capture.WebcamDevice,
			Width:     cfg.Capture.WebcamWidth,
			Height:    cfg.Capture.WebcamHeight,
			FrameRate: cfg.Capture.WebcamFramerate,
		}
	}
	if screen == nil {
		screen = ffmpeg.ScreenSource{
			Display:   cfg.Capture.ScreenDisplay,
			WindowID:  cfg.Capture.ScreenWindowID,
			Width:     cfg.Capture.ScreenWidth,
			Height:    cfg.Capture.ScreenHeight,
			FrameRate: cfg.Capture.ScreenFramerate,
		}
	}
	if codec == nil {
		probed := ffmpeg.NewCodec(cfg.FFmpegBinary())
		if err := probed.ProbeError(); err != nil {
			return nil, nil, nil, fmt.Errorf("probe encoders: %w", err)
		}
		codec = probed
	}
	return webcam, screen, codec, nil
}

// stopSignal records the first reason a run should end.
type stopSignal struct {
	once sync.Once
	done chan struct{}

	mu  sync.Mutex
	why string
}

func newStopSignal() *stopSignal {
	return &stopSignal{done: make(chan struct{})}
}

func (s *stopSignal) fire(reason string) {
	s.once.Do(func() {
		s.mu.Lock()
		s.why = reason
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *stopSignal) reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.why
}
