package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"gazerec/internal/capture"
)

// WebcamSource captures a V4L2 device.
type WebcamSource struct {
	Device    string
	Width     int
	Height    int
	FrameRate int
}

// Acquire checks the device node and returns a stream describing it. The
// device is opened by the encoder process, not here.
func (s WebcamSource) Acquire(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	device := strings.TrimSpace(s.Device)
	if device == "" {
		return nil, fmt.Errorf("webcam: %w: no device configured", capture.ErrDeviceNotFound)
	}
	if err := probeDevice(device); err != nil {
		return nil, fmt.Errorf("webcam %s: %w", device, err)
	}
	settings := capture.TrackSettings{
		Width:     s.Width,
		Height:    s.Height,
		FrameRate: float64(s.FrameRate),
		DeviceID:  device,
	}
	input := []string{
		"-f", "v4l2",
		"-framerate", strconv.Itoa(s.FrameRate),
		"-video_size", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"-i", device,
	}
	return newStream(settings, input), nil
}

// probeDevice maps device access failures onto capture sentinels.
func probeDevice(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return capture.ErrDeviceNotFound
		}
		return classifyErrno(err)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return classifyErrno(err)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return classifyErrno(err)
	}
	_ = unix.Close(fd)
	return nil
}

func classifyErrno(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: %v", capture.ErrDeviceNotFound, err)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %v", capture.ErrPermissionDenied, err)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %v", capture.ErrDeviceBusy, err)
	default:
		return err
	}
}

// ScreenSource captures an X11 display. A non-empty WindowID captures a
// single window, which the recorder rejects.
type ScreenSource struct {
	Display   string
	WindowID  string
	Width     int
	Height    int
	FrameRate int
	// SocketDir is the X11 socket directory; empty means /tmp/.X11-unix.
	SocketDir string
}

func (s ScreenSource) Acquire(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	display := strings.TrimSpace(s.Display)
	if display == "" {
		return nil, fmt.Errorf("screen: %w: DISPLAY not set", capture.ErrDeviceNotFound)
	}
	if socket, ok := x11Socket(display, s.SocketDir); ok {
		if err := unix.Access(socket, unix.W_OK); err != nil {
			return nil, fmt.Errorf("screen %s: %w", display, classifyErrno(err))
		}
	}

	surface := capture.SurfaceMonitor
	input := []string{
		"-f", "x11grab",
		"-framerate", strconv.Itoa(s.FrameRate),
		"-video_size", fmt.Sprintf("%dx%d", s.Width, s.Height),
	}
	if id := strings.TrimSpace(s.WindowID); id != "" {
		surface = capture.SurfaceWindow
		input = append(input, "-window_id", id)
	}
	input = append(input, "-i", display)

	settings := capture.TrackSettings{
		Width:          s.Width,
		Height:         s.Height,
		FrameRate:      float64(s.FrameRate),
		DisplaySurface: surface,
		DeviceID:       display,
	}
	return newStream(settings, input), nil
}

// x11Socket returns the local socket for displays such as ":0" or ":1.0".
// Remote displays report ok=false.
func x11Socket(display, dir string) (string, bool) {
	if !strings.HasPrefix(display, ":") {
		return "", false
	}
	number, _, _ := strings.Cut(display[1:], ".")
	if _, err := strconv.Atoi(number); err != nil {
		return "", false
	}
	if dir == "" {
		dir = "/tmp/.X11-unix"
	}
	return dir + "/X" + number, true
}

// Stream is an acquired ffmpeg input. Stopping it kills any encoder process
// still reading from the device.
type Stream struct {
	input []string
	track *track

	mu      sync.Mutex
	encoder *Encoder
}

func newStream(settings capture.TrackSettings, input []string) *Stream {
	s := &Stream{input: input}
	s.track = &track{settings: settings, stream: s}
	return s
}

func (s *Stream) VideoTracks() []capture.Track {
	return []capture.Track{s.track}
}

func (s *Stream) Stop() {
	s.track.Stop()
}

// InputArgs returns the ffmpeg input arguments for this stream.
func (s *Stream) InputArgs() []string {
	return append([]string(nil), s.input...)
}

func (s *Stream) attach(enc *Encoder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encoder = enc
}

func (s *Stream) release() {
	s.mu.Lock()
	enc := s.encoder
	s.encoder = nil
	s.mu.Unlock()
	if enc != nil {
		enc.kill()
	}
}

type track struct {
	settings capture.TrackSettings
	stream   *Stream
	once     sync.Once
	ended    bool
	mu       sync.Mutex
}

func (t *track) Settings() capture.TrackSettings { return t.settings }

func (t *track) Stop() {
	t.once.Do(func() {
		t.mu.Lock()
		t.ended = true
		t.mu.Unlock()
		t.stream.release()
	})
}

func (t *track) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}
