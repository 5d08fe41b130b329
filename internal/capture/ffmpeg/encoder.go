package ffmpeg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"gazerec/internal/capture"
)

const readBufferSize = 64 << 10

// Encoder runs one ffmpeg process and slices its stdout into chunks.
type Encoder struct {
	binary string
	args   []string

	mu       sync.Mutex
	state    capture.EncoderState
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	pending  bytes.Buffer
	started  bool
	stopping bool
	exited   bool
	stderr   tailBuffer
}

// Args returns the ffmpeg command line used by Start.
func (e *Encoder) Args() []string {
	return append([]string(nil), e.args...)
}

func (e *Encoder) Start(timeslice time.Duration) (<-chan capture.EncoderEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil, errors.New("ffmpeg encoder already started")
	}
	if timeslice <= 0 {
		timeslice = time.Second
	}

	cmd := exec.Command(e.binary, e.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	cmd.Stderr = &e.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.started = true
	e.state = capture.StateRecording

	events := make(chan capture.EncoderEvent, 4)
	readDone := make(chan error, 1)
	go e.read(stdout, readDone)
	go e.pump(events, readDone, timeslice)
	return events, nil
}

func (e *Encoder) read(r io.Reader, done chan<- error) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			e.mu.Lock()
			e.pending.Write(buf[:n])
			e.mu.Unlock()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			done <- err
			return
		}
	}
}

// pump owns the event channel: it flushes buffered bytes every timeslice and,
// once stdout closes, reaps the process and emits the remainder.
func (e *Encoder) pump(events chan<- capture.EncoderEvent, readDone <-chan error, timeslice time.Duration) {
	defer close(events)
	ticker := time.NewTicker(timeslice)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if data := e.take(); len(data) > 0 {
				events <- capture.EncoderEvent{Data: data}
			}
		case readErr := <-readDone:
			waitErr := e.cmd.Wait()
			e.mu.Lock()
			e.exited = true
			e.state = capture.StateInactive
			stopping := e.stopping
			e.mu.Unlock()

			if data := e.take(); len(data) > 0 {
				events <- capture.EncoderEvent{Data: data}
			}
			if readErr != nil {
				events <- capture.EncoderEvent{Err: fmt.Errorf("read ffmpeg output: %w", readErr)}
			} else if waitErr != nil && !stopping {
				events <- capture.EncoderEvent{Err: fmt.Errorf("ffmpeg exited: %w: %s", waitErr, e.stderr.String())}
			}
			return
		}
	}
}

func (e *Encoder) take() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending.Len() == 0 {
		return nil
	}
	data := bytes.Clone(e.pending.Bytes())
	e.pending.Reset()
	return data
}

func (e *Encoder) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != capture.StateRecording || e.exited {
		return
	}
	if err := unix.Kill(e.cmd.Process.Pid, unix.SIGSTOP); err == nil {
		e.state = capture.StatePaused
	}
}

func (e *Encoder) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != capture.StatePaused || e.exited {
		return
	}
	if err := unix.Kill(e.cmd.Process.Pid, unix.SIGCONT); err == nil {
		e.state = capture.StateRecording
	}
}

// Stop asks ffmpeg to finish the container. The event channel closes once
// the process exits.
func (e *Encoder) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.stopping || e.exited {
		return
	}
	if e.state == capture.StatePaused {
		_ = unix.Kill(e.cmd.Process.Pid, unix.SIGCONT)
	}
	e.stopping = true
	e.state = capture.StateInactive
	_, _ = io.WriteString(e.stdin, "q\n")
	_ = e.stdin.Close()
}

func (e *Encoder) State() capture.EncoderState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// kill terminates a process that is still running after its stream was
// released.
func (e *Encoder) kill() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.exited {
		return
	}
	e.stopping = true
	if e.state == capture.StatePaused {
		_ = unix.Kill(e.cmd.Process.Pid, unix.SIGCONT)
	}
	_ = e.cmd.Process.Kill()
}

// tailBuffer keeps the last bytes ffmpeg wrote to stderr.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const stderrTail = 2048

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - stderrTail; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
