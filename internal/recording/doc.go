// Package recording coordinates the webcam and screen recorders as one
// session.
//
// The Coordinator initializes and starts both recorders concurrently, stamps
// the canonical recording start time once both are running, and owns the
// session record through read-modify-write updates against the chunk store.
// Click, card and game bookkeeping accumulates in memory and is written once
// when the recording stops. FullscreenGuard pauses both recorders whenever
// the display leaves fullscreen.
package recording
