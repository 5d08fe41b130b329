package recorder

import "errors"

var (
	// ErrNotInitialized is returned by StartRecording before InitializeStream.
	ErrNotInitialized = errors.New("stream not initialized")
	// ErrAlreadyStarted is returned by a second StartRecording.
	ErrAlreadyStarted = errors.New("recording already started")
)
