package capturetest

import (
	"context"
	"sync"
	"sync/atomic"

	"gazerec/internal/capture"
)

// Track is a fake video track.
type Track struct {
	settings capture.TrackSettings
	stopped  atomic.Bool
	stops    atomic.Int32
}

// NewTrack returns a live track reporting settings.
func NewTrack(settings capture.TrackSettings) *Track {
	return &Track{settings: settings}
}

func (t *Track) Settings() capture.TrackSettings { return t.settings }

func (t *Track) Stop() {
	t.stops.Add(1)
	t.stopped.Store(true)
}

func (t *Track) Ended() bool { return t.stopped.Load() }

// StopCalls reports how many times Stop was called.
func (t *Track) StopCalls() int { return int(t.stops.Load()) }

// Stream is a fake stream over fixed tracks.
type Stream struct {
	tracks []*Track
}

// NewStream wraps tracks into a stream.
func NewStream(tracks ...*Track) *Stream {
	return &Stream{tracks: tracks}
}

func (s *Stream) VideoTracks() []capture.Track {
	out := make([]capture.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t)
	}
	return out
}

func (s *Stream) Stop() {
	for _, t := range s.tracks {
		t.Stop()
	}
}

// Tracks returns the concrete fake tracks.
func (s *Stream) Tracks() []*Track { return s.tracks }

// Active reports whether any track is still live.
func (s *Stream) Active() bool {
	for _, t := range s.tracks {
		if !t.Ended() {
			return true
		}
	}
	return false
}

// Source hands out a new fake stream per Acquire call, or Err when set.
type Source struct {
	mu       sync.Mutex
	settings capture.TrackSettings
	err      error
	acquired []*Stream
}

// NewWebcam returns a source producing a 1280x720 camera track.
func NewWebcam() *Source {
	return &Source{settings: capture.TrackSettings{Width: 1280, Height: 720, FrameRate: 30, DeviceID: "/dev/video0"}}
}

// NewScreen returns a source producing a 1920x1080 whole-monitor track.
func NewScreen() *Source {
	return NewSource(capture.TrackSettings{Width: 1920, Height: 1080, FrameRate: 30, DisplaySurface: capture.SurfaceMonitor, DeviceID: ":0.0"})
}

// NewSource returns a source producing tracks with settings.
func NewSource(settings capture.TrackSettings) *Source {
	return &Source{settings: settings}
}

// FailWith makes subsequent Acquire calls return err.
func (s *Source) FailWith(err error) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

func (s *Source) Acquire(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	stream := NewStream(NewTrack(s.settings))
	s.acquired = append(s.acquired, stream)
	return stream, nil
}

// Acquired returns every stream handed out so far.
func (s *Source) Acquired() []*Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Stream(nil), s.acquired...)
}

// Last returns the most recently acquired stream, or nil.
func (s *Source) Last() *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.acquired) == 0 {
		return nil
	}
	return s.acquired[len(s.acquired)-1]
}
