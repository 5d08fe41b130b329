package chunkstore

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by read-modify-write helpers when the
// session record does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrClosed is returned when the store has been closed.
var ErrClosed = errors.New("chunk store closed")

// PersistenceError reports a failed store operation. Chunk writers treat it
// as non-fatal; one lost chunk degrades the recording without corrupting it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("chunkstore %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
