package clicktrack

import "sync"

// PointerEvent is one click as reported by the presentation layer.
type PointerEvent struct {
	ClientX float64
	ClientY float64
	Target  *Element
}

// Listener receives dispatched events.
type Listener func(PointerEvent)

// Root is the document-level event target. Dispatch runs capture
// listeners synchronously, one event at a time, in registration order.
type Root struct {
	mu        sync.Mutex
	dispatch  sync.Mutex
	nextID    int
	order     []int
	listeners map[int]Listener
}

// NewRoot returns an empty event target.
func NewRoot() *Root {
	return &Root{listeners: make(map[int]Listener)}
}

// AddCaptureListener registers fn and returns a function removing it.
func (r *Root) AddCaptureListener(fn Listener) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.order = append(r.order, id)
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.listeners, id)
			for i, v := range r.order {
				if v == id {
					r.order = append(r.order[:i], r.order[i+1:]...)
					break
				}
			}
		})
	}
}

// ListenerCount reports how many listeners are attached.
func (r *Root) ListenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Dispatch delivers ev to every listener before returning.
func (r *Root) Dispatch(ev PointerEvent) {
	r.dispatch.Lock()
	defer r.dispatch.Unlock()

	r.mu.Lock()
	fns := make([]Listener, 0, len(r.order))
	for _, id := range r.order {
		fns = append(fns, r.listeners[id])
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
