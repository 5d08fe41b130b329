package clicktrack

import (
	"sync"
	"testing"
	"time"

	"gazerec/internal/sessiondata"
)

type clickSink struct {
	mu     sync.Mutex
	clicks []sessiondata.Click
}

func (s *clickSink) add(c sessiondata.Click) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, c)
}

func (s *clickSink) all() []sessiondata.Click {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sessiondata.Click(nil), s.clicks...)
}

func newTracker(sink *clickSink, now time.Time) *Tracker {
	return New(Config{
		RecordingStartTime: now.Add(-1500 * time.Millisecond),
		OnClick:            sink.add,
		Now:                func() time.Time { return now },
	})
}

func TestStartTwiceRecordsOneEvent(t *testing.T) {
	sink := &clickSink{}
	tracker := newTracker(sink, time.UnixMilli(1_700_000_001_500))
	tracker.Start()
	tracker.Start()
	if n := tracker.Root().ListenerCount(); n != 1 {
		t.Fatalf("expected one listener, got %d", n)
	}

	tracker.Root().Dispatch(PointerEvent{ClientX: 10, ClientY: 20, Target: &Element{ID: "board"}})
	clicks := sink.all()
	if len(clicks) != 1 {
		t.Fatalf("expected exactly one click, got %d", len(clicks))
	}
	if clicks[0].Timestamp != 1_700_000_001_500 || clicks[0].VideoTimestamp != 1500 {
		t.Fatalf("unexpected timestamps %+v", clicks[0])
	}

	tracker.Stop()
	tracker.Stop()
	tracker.Root().Dispatch(PointerEvent{Target: &Element{}})
	if len(sink.all()) != 1 || tracker.IsActive() {
		t.Fatal("stopped tracker must not record clicks")
	}
}

func TestClassifyNestedSpiritIsExplicit(t *testing.T) {
	target := LinkPath([]Element{
		{ID: "eye"},
		{Classes: []string{"face"}},
		{Classes: []string{"body"}},
		{Attributes: map[string]string{AttrSpirit: "true"}},
		{ID: "board"},
		{ID: "root"},
	})
	click := Classify(MarkupHitTester{}, PointerEvent{ClientX: 5, ClientY: 6, Target: target})
	if click.Type != sessiondata.ClickExplicit {
		t.Fatalf("expected explicit click, got %q", click.Type)
	}
	if click.CardID != nil || click.TargetX != nil {
		t.Fatalf("spirit click must not carry card data: %+v", click)
	}
}

func TestClassifyUnrelatedIsImplicit(t *testing.T) {
	target := LinkPath([]Element{{Classes: []string{"score"}}, {ID: "root"}})
	click := Classify(MarkupHitTester{}, PointerEvent{ClientX: 1, ClientY: 2, Target: target})
	if click.Type != sessiondata.ClickImplicit {
		t.Fatalf("expected implicit click, got %q", click.Type)
	}
	if click.ScreenX != 1 || click.ScreenY != 2 {
		t.Fatalf("unexpected coordinates %+v", click)
	}
}

func TestClassifyCardPopulatesTarget(t *testing.T) {
	target := LinkPath([]Element{
		{Classes: []string{"card-face"}},
		{
			Classes:    []string{"memory-card"},
			Attributes: map[string]string{AttrCardID: "card-7"},
			Rect:       Rect{Left: 100, Top: 200, Width: 80, Height: 120},
		},
		{ID: "grid"},
	})
	click := Classify(MarkupHitTester{}, PointerEvent{Target: target})
	if click.Type != sessiondata.ClickImplicit {
		t.Fatalf("card click without spirit should be implicit, got %q", click.Type)
	}
	if click.CardID == nil || *click.CardID != "card-7" {
		t.Fatalf("expected card id, got %v", click.CardID)
	}
	if *click.TargetX != 140 || *click.TargetY != 260 {
		t.Fatalf("unexpected card center %v,%v", *click.TargetX, *click.TargetY)
	}
}

func TestClassifyCardWithoutIDKeepsCenter(t *testing.T) {
	target := LinkPath([]Element{{Classes: []string{"card"}, Rect: Rect{Width: 10, Height: 10}}})
	click := Classify(MarkupHitTester{}, PointerEvent{Target: target})
	if click.CardID != nil || click.TargetX == nil || *click.TargetX != 5 {
		t.Fatalf("unexpected card data %+v", click)
	}
}

type onlyIDs map[string]bool

func (o onlyIDs) IsTarget(el *Element) bool { return o[el.ID] }
func (o onlyIDs) IsCard(*Element) bool { return false }
func (o onlyIDs) CardID(*Element) (string, bool) { return "", false }

func TestInjectedHitTester(t *testing.T) {
	target := LinkPath([]Element{{ID: "leaf"}, {ID: "custom-target"}})
	if Classify(onlyIDs{"custom-target": true}, PointerEvent{Target: target}).Type != sessiondata.ClickExplicit {
		t.Fatal("expected injected hit tester to classify explicit")
	}
	if Classify(MarkupHitTester{}, PointerEvent{Target: target}).Type != sessiondata.ClickImplicit {
		t.Fatal("markup tester should not know custom target")
	}
}

func TestDispatchPreservesOrder(t *testing.T) {
	sink := &clickSink{}
	tracker := newTracker(sink, time.UnixMilli(1_700_000_000_000))
	tracker.Start()
	for i := 0; i < 5; i++ {
		tracker.Root().Dispatch(PointerEvent{ClientX: float64(i)})
	}
	for i, c := range sink.all() {
		if c.ScreenX != float64(i) {
			t.Fatalf("click %d out of order: %+v", i, c)
		}
	}
}

func TestLinkPath(t *testing.T) {
	if LinkPath(nil) != nil {
		t.Fatal("expected nil for empty path")
	}
	leaf := LinkPath([]Element{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	if leaf.ID != "a" || leaf.Parent.ID != "b" || leaf.Parent.Parent.ID != "c" || leaf.Parent.Parent.Parent != nil {
		t.Fatal("unexpected linked chain")
	}
}
