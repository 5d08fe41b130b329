package chunkstore

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Opener lazily opens one Store per database path. Concurrent callers share a
// single in-flight open, and a failed open leaves the Opener ready for a
// fresh attempt.
type Opener struct {
	path  string
	open  func(context.Context, string) (*Store, error)
	group singleflight.Group

	mu    sync.Mutex
	store *Store
}

// NewOpener returns an Opener for the database at path.
func NewOpener(path string) *Opener {
	return &Opener{path: path, open: Open}
}

// Get returns the shared Store, opening it on first use.
func (o *Opener) Get(ctx context.Context) (*Store, error) {
	o.mu.Lock()
	if o.store != nil {
		store := o.store
		o.mu.Unlock()
		return store, nil
	}
	o.mu.Unlock()

	v, err, _ := o.group.Do(o.path, func() (any, error) {
		o.mu.Lock()
		if o.store != nil {
			store := o.store
			o.mu.Unlock()
			return store, nil
		}
		o.mu.Unlock()

		store, err := o.open(context.WithoutCancel(ctx), o.path)
		if err != nil {
			return nil, err
		}
		o.mu.Lock()
		o.store = store
		o.mu.Unlock()
		return store, nil
	})
	if err != nil {
		return nil, persistErr("open", err)
	}
	return v.(*Store), nil
}

// Close closes the shared Store if one was opened. A later Get reopens it.
func (o *Opener) Close() error {
	o.mu.Lock()
	store := o.store
	o.store = nil
	o.mu.Unlock()
	return store.Close()
}
