package recording

import "errors"

var (
	// ErrAlreadyRecording is returned by a second StartRecordingToDisk.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrStreamsNotInitialized is returned when recording starts before
	// InitializeStreams succeeded.
	ErrStreamsNotInitialized = errors.New("streams not initialized")
)
