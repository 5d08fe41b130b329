package capturetest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gazerec/internal/capture"
)

// Codec is a fake codec supporting a fixed set of mime types.
type Codec struct {
	mu        sync.Mutex
	supported map[string]bool
	encoders  []*Encoder
	configure func(*Encoder)
}

// NewCodec returns a codec that supports exactly mimeTypes.
func NewCodec(mimeTypes ...string) *Codec {
	supported := make(map[string]bool, len(mimeTypes))
	for _, m := range mimeTypes {
		supported[m] = true
	}
	return &Codec{supported: supported}
}

// OnNewEncoder registers fn to script every encoder the codec builds.
func (c *Codec) OnNewEncoder(fn func(*Encoder)) *Codec {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configure = fn
	return c
}

func (c *Codec) IsTypeSupported(mimeType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supported[mimeType]
}

func (c *Codec) NewEncoder(stream capture.Stream, opts capture.EncoderOptions) (capture.Encoder, error) {
	if stream == nil {
		return nil, errors.New("nil stream")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.supported) > 0 && !c.supported[opts.MimeType] && opts.MimeType != capture.FallbackMimeType {
		return nil, fmt.Errorf("%w: %s", capture.ErrUnsupportedMimeType, opts.MimeType)
	}
	enc := NewEncoder()
	enc.Options = opts
	if c.configure != nil {
		c.configure(enc)
	}
	c.encoders = append(c.encoders, enc)
	return enc, nil
}

// Encoders returns every encoder built so far.
func (c *Codec) Encoders() []*Encoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Encoder(nil), c.encoders...)
}

// Encoder is a scriptable encoder. Tests push chunks with Emit; Stop sends
// FinalChunk (when set) and closes the channel unless HangOnStop is set.
type Encoder struct {
	Options    capture.EncoderOptions
	FinalChunk []byte
	HangOnStop bool
	StartErr   error

	mu        sync.Mutex
	state     capture.EncoderState
	events    chan capture.EncoderEvent
	closed    bool
	timeslice time.Duration
	started   chan struct{}
}

// NewEncoder returns an inactive encoder.
func NewEncoder() *Encoder {
	return &Encoder{state: capture.StateInactive, started: make(chan struct{})}
}

func (e *Encoder) Start(timeslice time.Duration) (<-chan capture.EncoderEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.StartErr != nil {
		return nil, e.StartErr
	}
	if e.events != nil {
		return nil, errors.New("encoder already started")
	}
	e.timeslice = timeslice
	e.events = make(chan capture.EncoderEvent, 256)
	e.state = capture.StateRecording
	close(e.started)
	return e.events, nil
}

// Started is closed once Start succeeds.
func (e *Encoder) Started() <-chan struct{} { return e.started }

// Timeslice returns the value Start was called with.
func (e *Encoder) Timeslice() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeslice
}

// Emit delivers one chunk. It reports false once the channel is closed.
func (e *Encoder) Emit(data []byte) bool {
	return e.send(capture.EncoderEvent{Data: data})
}

// EmitError delivers an encoder error event.
func (e *Encoder) EmitError(err error) bool {
	return e.send(capture.EncoderEvent{Err: err})
}

func (e *Encoder) send(ev capture.EncoderEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.events == nil || e.closed {
		return false
	}
	e.events <- ev
	return true
}

func (e *Encoder) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == capture.StateRecording {
		e.state = capture.StatePaused
	}
}

func (e *Encoder) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == capture.StatePaused {
		e.state = capture.StateRecording
	}
}

func (e *Encoder) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.events == nil || e.closed || e.state == capture.StateInactive {
		return
	}
	e.state = capture.StateInactive
	if e.FinalChunk != nil {
		e.events <- capture.EncoderEvent{Data: e.FinalChunk}
	}
	if e.HangOnStop {
		return
	}
	e.closed = true
	close(e.events)
}

// Close closes the event channel regardless of HangOnStop.
func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.events == nil || e.closed {
		return
	}
	e.state = capture.StateInactive
	e.closed = true
	close(e.events)
}

func (e *Encoder) State() capture.EncoderState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}
