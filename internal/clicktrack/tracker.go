package clicktrack

import (
	"sync"
	"time"

	"gazerec/internal/sessiondata"
)

// Config wires a Tracker.
type Config struct {
	Root               *Root
	HitTester          HitTester
	RecordingStartTime time.Time
	OnClick            func(sessiondata.Click)
	Now                func() time.Time
}

// Tracker classifies clicks dispatched into a Root.
type Tracker struct {
	root      *Root
	hit       HitTester
	startTime time.Time
	onClick   func(sessiondata.Click)
	now       func() time.Time

	mu     sync.Mutex
	remove func()
}

// New builds a Tracker; it does nothing until Start.
func New(cfg Config) *Tracker {
	t := &Tracker{
		root:      cfg.Root,
		hit:       cfg.HitTester,
		startTime: cfg.RecordingStartTime,
		onClick:   cfg.OnClick,
		now:       cfg.Now,
	}
	if t.root == nil {
		t.root = NewRoot()
	}
	if t.hit == nil {
		t.hit = MarkupHitTester{}
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// Root returns the event target the tracker listens on.
func (t *Tracker) Root() *Root { return t.root }

// Start attaches the capture listener. A second call is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remove != nil {
		return
	}
	t.remove = t.root.AddCaptureListener(t.handle)
}

// Stop detaches the listener. It is idempotent.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remove == nil {
		return
	}
	t.remove()
	t.remove = nil
}

// IsActive reports whether the listener is attached.
func (t *Tracker) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remove != nil
}

func (t *Tracker) handle(ev PointerEvent) {
	now := t.now()
	click := Classify(t.hit, ev)
	click.ID = sessiondata.NewClickID(now)
	click.Timestamp = sessiondata.EpochMillis(now)
	click.VideoTimestamp = click.Timestamp - sessiondata.EpochMillis(t.startTime)
	if t.onClick != nil {
		t.onClick(click)
	}
}

// Classify derives type, coordinates and card target of ev. Identity and
// timestamps are left for the caller.
func Classify(hit HitTester, ev PointerEvent) sessiondata.Click {
	click := sessiondata.Click{
		Type:    sessiondata.ClickImplicit,
		ScreenX: ev.ClientX,
		ScreenY: ev.ClientY,
	}
	if ev.Target == nil {
		return click
	}
	if ev.Target.Closest(hit.IsTarget) != nil {
		click.Type = sessiondata.ClickExplicit
	}
	if card := ev.Target.Closest(hit.IsCard); card != nil {
		x, y := card.Rect.Center()
		click.TargetX, click.TargetY = &x, &y
		if id, ok := hit.CardID(card); ok {
			click.CardID = &id
		}
	}
	return click
}
