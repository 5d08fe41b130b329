package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gazerec/internal/capture"
	"gazerec/internal/chunkstore"
	"gazerec/internal/logging"
	"gazerec/internal/sessiondata"
)

const (
	defaultTimeslice       = time.Second
	defaultFinalizeTimeout = 10 * time.Second
)

// ChunkWriter persists one chunk. *chunkstore.Store satisfies it.
type ChunkWriter interface {
	StoreChunk(ctx context.Context, chunk chunkstore.VideoChunk) error
}

// Config wires a Recorder to its device, encoder and store.
type Config struct {
	SessionID       string
	Type            sessiondata.StreamType
	Source          capture.Source
	Codec           capture.Codec
	Store           ChunkWriter
	MimePreferences []string
	BitsPerSecond   int
	Timeslice       time.Duration
	FinalizeTimeout time.Duration
	Logger          *slog.Logger
	Now             func() time.Time
}

// Stats counts chunk outcomes for one recording.
type Stats struct {
	Stored  int64
	Failed  int64
	Dropped int64
}

// Recorder owns one capture stream for its lifetime.
type Recorder struct {
	sessionID       string
	streamType      sessiondata.StreamType
	source          capture.Source
	codec           capture.Codec
	store           ChunkWriter
	mimeType        string
	bitsPerSecond   int
	timeslice       time.Duration
	finalizeTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time

	mu        sync.Mutex
	stream    capture.Stream
	encoder   capture.Encoder
	startedAt time.Time
	loopDone  chan struct{}
	stopDone  chan struct{}
	draining  bool
	pending   sync.WaitGroup

	stored  atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// New validates cfg and negotiates the mime type.
func New(cfg Config) (*Recorder, error) {
	if cfg.SessionID == "" {
		return nil, errors.New("recorder: session id required")
	}
	if !cfg.Type.Valid() {
		return nil, fmt.Errorf("recorder: invalid stream type %q", cfg.Type)
	}
	if cfg.Source == nil || cfg.Codec == nil || cfg.Store == nil {
		return nil, errors.New("recorder: source, codec and store are required")
	}
	r := &Recorder{
		sessionID:       cfg.SessionID,
		streamType:      cfg.Type,
		source:          cfg.Source,
		codec:           cfg.Codec,
		store:           cfg.Store,
		mimeType:        capture.NegotiateMimeType(cfg.Codec, cfg.MimePreferences),
		bitsPerSecond:   cfg.BitsPerSecond,
		timeslice:       cfg.Timeslice,
		finalizeTimeout: cfg.FinalizeTimeout,
		now:             cfg.Now,
	}
	if r.timeslice <= 0 {
		r.timeslice = defaultTimeslice
	}
	if r.finalizeTimeout <= 0 {
		r.finalizeTimeout = defaultFinalizeTimeout
	}
	if r.now == nil {
		r.now = time.Now
	}
	logger := logging.NewComponentLogger(cfg.Logger, "recorder")
	r.logger = logging.WithSessionID(logger, cfg.SessionID).With(logging.String(logging.FieldStream, string(cfg.Type)))
	return r, nil
}

// Type returns the stream type this recorder captures.
func (r *Recorder) Type() sessiondata.StreamType { return r.streamType }

// MimeType returns the negotiated container/codec string.
func (r *Recorder) MimeType() string { return r.mimeType }

// InitializeStream acquires the device. Calling it again returns the live
// stream. A display capture of anything but a whole monitor is stopped and
// rejected with capture.ErrInvalidSurface.
func (r *Recorder) InitializeStream(ctx context.Context) (capture.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream != nil {
		return r.stream, nil
	}

	stream, err := r.source.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize %s stream: %w", r.streamType, err)
	}
	if r.streamType == sessiondata.StreamScreen {
		if err := validateSurface(stream); err != nil {
			stream.Stop()
			logging.WarnWithContext(r.logger, "display capture rejected", "invalid_capture_surface",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "share the entire screen"),
				logging.String(logging.FieldImpact, "screen stream torn down; recording cannot start"),
			)
			return nil, fmt.Errorf("initialize %s stream: %w", r.streamType, err)
		}
	}
	r.stream = stream
	r.logger.Info("stream initialized",
		logging.String("resolution", resolutionOf(stream).String()),
		logging.String("mime_type", r.mimeType),
	)
	return stream, nil
}

func validateSurface(stream capture.Stream) error {
	tracks := stream.VideoTracks()
	if len(tracks) == 0 {
		return fmt.Errorf("%w: no video track", capture.ErrInvalidSurface)
	}
	surface := tracks[0].Settings().DisplaySurface
	if surface != capture.SurfaceMonitor {
		return fmt.Errorf("%w: got %q", capture.ErrInvalidSurface, surface)
	}
	return nil
}

func resolutionOf(stream capture.Stream) sessiondata.Resolution {
	if stream == nil {
		return sessiondata.Resolution{}
	}
	tracks := stream.VideoTracks()
	if len(tracks) == 0 {
		return sessiondata.Resolution{}
	}
	settings := tracks[0].Settings()
	return sessiondata.Resolution{Width: settings.Width, Height: settings.Height}
}

// Resolution reports the live track size, or zero before initialization.
func (r *Recorder) Resolution() sessiondata.Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return resolutionOf(r.stream)
}

// StartRecording starts the encoder and the persist loop.
func (r *Recorder) StartRecording(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return fmt.Errorf("start %s recording: %w", r.streamType, ErrNotInitialized)
	}
	if r.encoder != nil {
		return fmt.Errorf("start %s recording: %w", r.streamType, ErrAlreadyStarted)
	}

	encoder, err := r.codec.NewEncoder(r.stream, capture.EncoderOptions{
		MimeType:           r.mimeType,
		VideoBitsPerSecond: r.bitsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("create %s encoder: %w", r.streamType, err)
	}
	events, err := encoder.Start(r.timeslice)
	if err != nil {
		return fmt.Errorf("start %s encoder: %w", r.streamType, err)
	}

	r.encoder = encoder
	r.startedAt = r.now()
	r.loopDone = make(chan struct{})
	r.stopDone = nil
	r.draining = false
	go r.consume(context.WithoutCancel(ctx), events, r.startedAt, r.loopDone)

	r.logger.Info("recording started",
		logging.String("mime_type", r.mimeType),
		logging.Duration("timeslice", r.timeslice),
	)
	return nil
}

func (r *Recorder) consume(ctx context.Context, events <-chan capture.EncoderEvent, startedAt time.Time, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		if ev.Err != nil {
			logging.WarnWithContext(r.logger, "encoder error", "encoder_error",
				logging.Error(ev.Err),
				logging.String(logging.FieldErrorHint, "inspect ffmpeg output and device health"),
				logging.String(logging.FieldImpact, "recording continues; the affected chunk may be missing"),
			)
			continue
		}
		if len(ev.Data) == 0 {
			continue
		}
		r.persist(ctx, ev.Data, startedAt)
	}
}

// persist registers one write with the pending group and runs it in the
// background. Chunks arriving after draining began are dropped.
func (r *Recorder) persist(ctx context.Context, data []byte, startedAt time.Time) {
	now := r.now()
	chunk := chunkstore.VideoChunk{
		SessionID:   r.sessionID,
		Type:        r.streamType,
		Timestamp:   sessiondata.EpochMillis(now),
		ChunkOffset: now.Sub(startedAt).Milliseconds(),
		Data:        data,
	}

	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		r.dropped.Add(1)
		logging.WarnWithContext(r.logger, "chunk arrived after finalize; dropped", "chunk_dropped",
			logging.Int64("chunk_offset_ms", chunk.ChunkOffset),
			logging.Int64("bytes", chunk.Size()),
			logging.String(logging.FieldImpact, "tail of the recording is shorter"),
		)
		return
	}
	r.pending.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.pending.Done()
		if err := r.store.StoreChunk(ctx, chunk); err != nil {
			r.failed.Add(1)
			logging.WarnWithContext(r.logger, "chunk persist failed", "chunk_persist_failed",
				logging.Error(err),
				logging.Int64("chunk_offset_ms", chunk.ChunkOffset),
				logging.Int64("bytes", chunk.Size()),
				logging.String(logging.FieldErrorHint, "check free disk space and data_dir permissions"),
				logging.String(logging.FieldImpact, "about one timeslice of video is missing"),
			)
			return
		}
		r.stored.Add(1)
	}()
}

// StopRecording finalizes the encoder, waits for every pending write and
// releases the device. When nothing was started it only releases an
// initialized stream. Concurrent callers wait for the same stop.
func (r *Recorder) StopRecording(ctx context.Context) error {
	r.mu.Lock()
	if r.stopDone != nil {
		done := r.stopDone
		r.mu.Unlock()
		<-done
		return nil
	}
	encoder := r.encoder
	if encoder == nil {
		r.mu.Unlock()
		r.Release()
		return nil
	}
	loopDone := r.loopDone
	r.stopDone = make(chan struct{})
	stopDone := r.stopDone
	r.mu.Unlock()
	defer close(stopDone)

	encoder.Stop()

	timer := time.NewTimer(r.finalizeTimeout)
	defer timer.Stop()
	select {
	case <-loopDone:
	case <-timer.C:
		logging.WarnWithContext(r.logger, "encoder did not finalize in time", "encoder_finalize_timeout",
			logging.Duration("timeout", r.finalizeTimeout),
			logging.String(logging.FieldErrorHint, "raise capture.finalize_timeout_seconds or inspect the encoder"),
			logging.String(logging.FieldImpact, "final chunk may be missing; device released anyway"),
		)
	case <-ctx.Done():
		logging.WarnWithContext(r.logger, "stop interrupted before encoder finalized", "encoder_finalize_canceled",
			logging.Error(ctx.Err()),
			logging.String(logging.FieldImpact, "final chunk may be missing; device released anyway"),
		)
	}

	r.mu.Lock()
	r.draining = true
	r.mu.Unlock()
	r.pending.Wait()

	r.Release()

	r.mu.Lock()
	r.encoder = nil
	r.mu.Unlock()

	stats := r.Stats()
	r.logger.Info("recording stopped",
		logging.Int64("chunks_stored", stats.Stored),
		logging.Int64("chunks_failed", stats.Failed),
		logging.Int64("chunks_dropped", stats.Dropped),
	)
	return nil
}

// Release stops the device tracks. It is safe to call at any time.
func (r *Recorder) Release() {
	r.mu.Lock()
	stream := r.stream
	r.stream = nil
	r.mu.Unlock()
	if stream != nil {
		stream.Stop()
	}
}

// Pause pauses an active encoder. Other states are left alone.
func (r *Recorder) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder != nil && r.stopDone == nil && r.encoder.State() == capture.StateRecording {
		r.encoder.Pause()
		r.logger.Debug("recording paused")
	}
}

// Resume resumes a paused encoder. Other states are left alone.
func (r *Recorder) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder != nil && r.stopDone == nil && r.encoder.State() == capture.StatePaused {
		r.encoder.Resume()
		r.logger.Debug("recording resumed")
	}
}

// State reports the encoder state; inactive when no encoder is running.
func (r *Recorder) State() capture.EncoderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return capture.StateInactive
	}
	return r.encoder.State()
}

// StartedAt returns when the encoder started, or the zero time.
func (r *Recorder) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

// Stats returns chunk outcome counters.
func (r *Recorder) Stats() Stats {
	return Stats{Stored: r.stored.Load(), Failed: r.failed.Load(), Dropped: r.dropped.Load()}
}
