package recording

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"gazerec/internal/logging"
)

// ErrFullscreenUnsupported is returned when the display cannot go fullscreen.
var ErrFullscreenUnsupported = errors.New("fullscreen not supported")

// Display is the fullscreen capability of the presentation layer.
type Display interface {
	IsSupported() bool
	IsFullscreen() bool
	RequestFullscreen(ctx context.Context) error
	ExitFullscreen(ctx context.Context) error
	// Subscribe delivers every fullscreen change until cancel is called.
	Subscribe() (changes <-chan bool, cancel func())
}

// BridgeDisplay is a Display whose state is reported by the presentation
// layer over IPC. Requests are recorded so the UI can act on them.
type BridgeDisplay struct {
	mu         sync.Mutex
	supported  bool
	fullscreen bool
	requested  bool
	nextID     int
	subs       map[int]chan bool
}

// NewBridgeDisplay returns a display that starts out of fullscreen.
func NewBridgeDisplay(supported bool) *BridgeDisplay {
	return &BridgeDisplay{supported: supported, subs: make(map[int]chan bool)}
}

func (d *BridgeDisplay) IsSupported() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.supported
}

func (d *BridgeDisplay) IsFullscreen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fullscreen
}

// Requested reports whether fullscreen is currently wanted.
func (d *BridgeDisplay) Requested() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requested
}

func (d *BridgeDisplay) RequestFullscreen(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.supported {
		return ErrFullscreenUnsupported
	}
	d.requested = true
	return nil
}

func (d *BridgeDisplay) ExitFullscreen(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requested = false
	return nil
}

// SetFullscreen records a state change reported by the UI and notifies
// subscribers. Repeated reports of the same state are ignored.
func (d *BridgeDisplay) SetFullscreen(active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if active {
		d.supported = true
	}
	if d.fullscreen == active {
		return
	}
	d.fullscreen = active
	for _, ch := range d.subs {
		select {
		case ch <- active:
		default:
			// keep the newest state for slow subscribers
			select {
			case <-ch:
			default:
			}
			ch <- active
		}
	}
}

func (d *BridgeDisplay) Subscribe() (<-chan bool, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	ch := make(chan bool, 1)
	d.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.subs, id)
			close(ch)
		})
	}
}

// Pausable is anything the guard can pause while fullscreen is lost.
type Pausable interface {
	Pause()
	Resume()
	IsRecording() bool
}

// FullscreenGuard keeps capture paused while the display is not fullscreen.
type FullscreenGuard struct {
	display Display
	target  Pausable
	logger  *slog.Logger
}

// NewFullscreenGuard watches display on behalf of target.
func NewFullscreenGuard(display Display, target Pausable, logger *slog.Logger) *FullscreenGuard {
	return &FullscreenGuard{
		display: display,
		target:  target,
		logger:  logging.NewComponentLogger(logger, "fullscreen-guard"),
	}
}

// Run requests fullscreen and reacts to changes until ctx is done.
func (g *FullscreenGuard) Run(ctx context.Context) {
	if g.display == nil || !g.display.IsSupported() {
		g.logger.Info("fullscreen unsupported; guard disabled")
		return
	}
	changes, cancel := g.display.Subscribe()
	defer cancel()

	if err := g.display.RequestFullscreen(ctx); err != nil {
		logging.WarnWithContext(g.logger, "fullscreen request failed", "fullscreen_request_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "participant may record outside fullscreen"),
		)
	}

	for {
		select {
		case <-ctx.Done():
			_ = g.display.ExitFullscreen(context.WithoutCancel(ctx))
			return
		case active, ok := <-changes:
			if !ok {
				return
			}
			g.apply(active)
		}
	}
}

func (g *FullscreenGuard) apply(active bool) {
	if !g.target.IsRecording() {
		return
	}
	if active {
		g.target.Resume()
		g.logger.Info("fullscreen restored; capture resumed")
		return
	}
	g.target.Pause()
	logging.WarnWithContext(g.logger, "fullscreen exited; capture paused", "fullscreen_exited",
		logging.String(logging.FieldErrorHint, "return the window to fullscreen to continue"),
		logging.String(logging.FieldImpact, "recording paused until fullscreen resumes"),
	)
}
