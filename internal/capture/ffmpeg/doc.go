// Package ffmpeg implements the capture contracts on top of an ffmpeg child
// process: v4l2 for the webcam and x11grab for the display.
//
// The encoder writes a streamable container to stdout. A reader goroutine
// buffers the bytes and a pump goroutine flushes one chunk per timeslice.
// Pause and Resume stop and continue the process with SIGSTOP/SIGCONT; Stop
// asks ffmpeg to quit, flushes the remainder as the final chunk and closes
// the event channel.
package ffmpeg
