package capture

import (
	"context"
	"time"
)

// DisplaySurface describes what a display capture track is showing.
type DisplaySurface string

const (
	// SurfaceMonitor is a whole physical display.
	SurfaceMonitor DisplaySurface = "monitor"
	// SurfaceWindow is a single application window.
	SurfaceWindow DisplaySurface = "window"
	// SurfaceBrowser is a single browser tab.
	SurfaceBrowser DisplaySurface = "browser"
	// SurfaceApplication is every window of one application.
	SurfaceApplication DisplaySurface = "application"
)

// TrackSettings reports the negotiated properties of a live track.
type TrackSettings struct {
	Width          int
	Height         int
	FrameRate      float64
	DisplaySurface DisplaySurface
	DeviceID       string
}

// Track is one live video track.
type Track interface {
	Settings() TrackSettings
	// Stop releases the device behind the track. It is idempotent.
	Stop()
	Ended() bool
}

// Stream is a live capture handle holding one or more tracks.
type Stream interface {
	VideoTracks() []Track
	// Stop stops every track of the stream.
	Stop()
}

// Source acquires live streams from a device or display.
type Source interface {
	// Acquire may block while the user or the OS grants access.
	// Failures wrap ErrPermissionDenied, ErrDeviceNotFound or ErrDeviceBusy.
	Acquire(ctx context.Context) (Stream, error)
}

// EncoderState mirrors the lifecycle of a chunked encoder.
type EncoderState string

const (
	StateInactive  EncoderState = "inactive"
	StateRecording EncoderState = "recording"
	StatePaused    EncoderState = "paused"
)

// EncoderEvent carries either one chunk of encoded bytes or an encoder error.
type EncoderEvent struct {
	Data []byte
	Err  error
}

// EncoderOptions configures a new encoder.
type EncoderOptions struct {
	MimeType           string
	VideoBitsPerSecond int
}

// Encoder turns a live stream into a sequence of chunks.
type Encoder interface {
	// Start begins encoding and delivers one chunk per timeslice. The channel
	// is closed after the final chunk once Stop has been called.
	Start(timeslice time.Duration) (<-chan EncoderEvent, error)
	Pause()
	Resume()
	// Stop requests finalization. It does not wait for the final chunk.
	Stop()
	State() EncoderState
}

// Codec reports supported container/codec strings and builds encoders.
type Codec interface {
	IsTypeSupported(mimeType string) bool
	NewEncoder(stream Stream, opts EncoderOptions) (Encoder, error)
}

// StopStream stops every track of stream, tolerating nil.
func StopStream(stream Stream) {
	if stream == nil {
		return
	}
	stream.Stop()
}
